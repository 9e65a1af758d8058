package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"callbridge/internal/calls"
)

type fakeFlow struct {
	inboundOK bool
	statuses  []calls.StatusEvent
	attached  []string
}

func (f *fakeFlow) HandleInbound(_ context.Context, sid, from, to string) (calls.ActiveCall, bool, error) {
	if !f.inboundOK {
		return calls.ActiveCall{}, false, nil
	}
	return calls.ActiveCall{ID: "c1", UserID: "u1", SID: sid, From: from, To: to}, true, nil
}

func (f *fakeFlow) AttachOutbound(_ context.Context, callID, sid, _, _ string) error {
	f.attached = append(f.attached, callID+"/"+sid)
	return nil
}

func (f *fakeFlow) HandleStatusEvent(_ context.Context, ev calls.StatusEvent) error {
	f.statuses = append(f.statuses, ev)
	return nil
}

type fakeVoicemail struct {
	saved []string
}

func (f *fakeVoicemail) SaveRecording(_ context.Context, callSID, _, _, url string, _ int) error {
	f.saved = append(f.saved, callSID+"/"+url)
	return nil
}

func (f *fakeVoicemail) SetDuration(_ context.Context, _ string, _ int) error { return nil }

type fakeMessages struct {
	received []string
}

func (f *fakeMessages) ReceiveInbound(_ context.Context, sid, _, _, _ string) error {
	f.received = append(f.received, sid)
	return nil
}

func webhookServer(flow *fakeFlow) (*gin.Engine, *fakeVoicemail, *fakeMessages) {
	gin.SetMode(gin.TestMode)
	vm := &fakeVoicemail{}
	msg := &fakeMessages{}
	h := NewWebhookHandlers(flow, vm, msg, "https://api.example.com")
	r := gin.New()
	h.Register(r.Group("/webhooks"))
	return r, vm, msg
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVoiceInbound_RingsOwnerClient(t *testing.T) {
	r, _, _ := webhookServer(&fakeFlow{inboundOK: true})

	form := url.Values{}
	form.Set("CallSid", "CA1")
	form.Set("From", "+19998887777")
	form.Set("To", "+15550001111")

	w := postForm(r, "/webhooks/voice", form)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, ">u1</Client>") {
		t.Fatalf("expected client dial for owner, got:\n%s", body)
	}
	if !strings.Contains(body, "dial-action") {
		t.Fatalf("expected dial action wired, got:\n%s", body)
	}
	// The inbound leg must report its lifecycle, or the call never
	// gets recorded or billed.
	if !strings.Contains(body, `statusCallback="https://api.example.com/webhooks/voice/status"`) {
		t.Fatalf("expected status callback on inbound dial, got:\n%s", body)
	}
}

func TestVoiceInbound_RejectsUnownedNumber(t *testing.T) {
	r, _, _ := webhookServer(&fakeFlow{inboundOK: false})

	form := url.Values{}
	form.Set("CallSid", "CA2")
	form.Set("From", "+19998887777")
	form.Set("To", "+14440000000")

	w := postForm(r, "/webhooks/voice", form)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Reject") {
		t.Fatalf("expected Reject, got:\n%s", w.Body.String())
	}
}

func TestCallStatus_ParsesFields(t *testing.T) {
	flow := &fakeFlow{}
	r, _, _ := webhookServer(flow)

	form := url.Values{}
	form.Set("CallSid", "CA3")
	form.Set("From", "15550001111")
	form.Set("To", "+19998887777")
	form.Set("CallStatus", "completed")
	form.Set("CallDuration", "95")

	w := postForm(r, "/webhooks/voice/status", form)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(flow.statuses) != 1 {
		t.Fatalf("expected one status event")
	}
	ev := flow.statuses[0]
	if ev.SID != "CA3" || ev.Status != "completed" || ev.DurationSeconds != 95 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.From != "+15550001111" {
		t.Fatalf("from must be normalized, got %q", ev.From)
	}
}

func TestCallStatus_MissingSIDIsBadRequest(t *testing.T) {
	r, _, _ := webhookServer(&fakeFlow{})
	w := postForm(r, "/webhooks/voice/status", url.Values{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestDialAction_UnansweredDropsToVoicemail(t *testing.T) {
	r, _, _ := webhookServer(&fakeFlow{})

	form := url.Values{}
	form.Set("DialCallStatus", "no-answer")
	w := postForm(r, "/webhooks/voice/dial-action", form)
	body := w.Body.String()
	if !strings.Contains(body, "<Record") || !strings.Contains(body, "voicemail-status") {
		t.Fatalf("expected voicemail record, got:\n%s", body)
	}

	form.Set("DialCallStatus", "completed")
	w = postForm(r, "/webhooks/voice/dial-action", form)
	if !strings.Contains(w.Body.String(), "<Hangup") {
		t.Fatalf("answered leg should just hang up, got:\n%s", w.Body.String())
	}
}

func TestVoicemailComplete_SavesRecording(t *testing.T) {
	r, vm, _ := webhookServer(&fakeFlow{})

	form := url.Values{}
	form.Set("CallSid", "CA4")
	form.Set("From", "+19998887777")
	form.Set("To", "+15550001111")
	form.Set("RecordingUrl", "https://rec/RE1")
	form.Set("RecordingDuration", "17")

	w := postForm(r, "/webhooks/voice/voicemail", form)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(vm.saved) != 1 || vm.saved[0] != "CA4/https://rec/RE1" {
		t.Fatalf("expected recording saved, got %v", vm.saved)
	}
}

func TestSMSInbound_ForwardsToMessages(t *testing.T) {
	r, _, msg := webhookServer(&fakeFlow{})

	form := url.Values{}
	form.Set("MessageSid", "SM1")
	form.Set("From", "+19998887777")
	form.Set("To", "+15550001111")
	form.Set("Body", "hello")

	w := postForm(r, "/webhooks/sms", form)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(msg.received) != 1 || msg.received[0] != "SM1" {
		t.Fatalf("expected SM1 received, got %v", msg.received)
	}

	// Legacy alias path still works.
	w = postForm(r, "/webhooks/twilio/sms", form)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on alias, got %d", w.Code)
	}
}
