package telephony

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"callbridge/internal/calls"
	"callbridge/internal/phone"
	"callbridge/pkg/logger"
)

// CallFlow is the slice of the call orchestrator the webhook layer
// drives.
type CallFlow interface {
	HandleInbound(ctx context.Context, sid, from, to string) (calls.ActiveCall, bool, error)
	AttachOutbound(ctx context.Context, callID, sid, from, to string) error
	HandleStatusEvent(ctx context.Context, ev calls.StatusEvent) error
}

// VoicemailSink stores a finished recording.
type VoicemailSink interface {
	SaveRecording(ctx context.Context, callSID, from, to, recordingURL string, durationSeconds int) error
	SetDuration(ctx context.Context, recordingURL string, durationSeconds int) error
}

// MessageSink stores an inbound SMS.
type MessageSink interface {
	ReceiveInbound(ctx context.Context, messageSID, from, to, body string) error
}

// WebhookHandlers serves the provider's voice and messaging callbacks.
// Every handler answers 200 unless the request itself is malformed:
// provider-side retries are for transport failures, not for events the
// platform chose to ignore.
type WebhookHandlers struct {
	flow        CallFlow
	voicemail   VoicemailSink
	messages    MessageSink
	publicURL   string
	dialTimeout int
}

func NewWebhookHandlers(flow CallFlow, voicemail VoicemailSink, messages MessageSink, publicURL string) *WebhookHandlers {
	return &WebhookHandlers{
		flow:        flow,
		voicemail:   voicemail,
		messages:    messages,
		publicURL:   publicURL,
		dialTimeout: 25,
	}
}

// Register mounts the webhook routes. The /twilio/* aliases exist for
// numbers configured before the path layout settled.
func (h *WebhookHandlers) Register(r gin.IRouter) {
	r.POST("/voice", h.VoiceInbound)
	r.POST("/voice/outbound", h.OutboundBridge)
	r.POST("/voice/status", h.CallStatus)
	r.POST("/voice/dial-action", h.DialAction)
	r.POST("/voice/voicemail", h.VoicemailComplete)
	r.POST("/voice/voicemail-status", h.VoicemailStatus)
	r.POST("/sms", h.SMSInbound)

	r.POST("/twilio/voice", h.VoiceInbound)
	r.POST("/twilio/sms", h.SMSInbound)
}

// VoiceInbound answers a ring on one of the platform's numbers. The
// owner's app rings via a client dial; unanswered legs divert to
// voicemail through the dial action.
func (h *WebhookHandlers) VoiceInbound(c *gin.Context) {
	ctx := c.Request.Context()
	sid := c.PostForm("CallSid")
	from := phone.Normalize(c.PostForm("From"))
	to := phone.Normalize(c.PostForm("To"))

	active, ok, err := h.flow.HandleInbound(ctx, sid, from, to)
	if err != nil {
		webhookCounter.WithLabelValues("voice_inbound", "error").Inc()
		logger.From(ctx).Error("inbound call handling failed", "sid", sid, "error", err)
		c.String(http.StatusInternalServerError, "error")
		return
	}

	tw := NewTwiML()
	if !ok {
		// Number nobody owns; tell the carrier we are not taking it.
		webhookCounter.WithLabelValues("voice_inbound", "rejected").Inc()
		tw.Reject("busy")
	} else {
		webhookCounter.WithLabelValues("voice_inbound", "ringing").Inc()
		tw.DialClient(active.UserID, from, h.dialTimeout,
			h.publicURL+"/webhooks/voice/dial-action",
			h.publicURL+"/webhooks/voice/status")
	}
	h.renderTwiML(c, tw)
}

// OutboundBridge converts a client SDK call into a PSTN leg. The app
// passes its call id so the pending tracker entry picks up the SID.
func (h *WebhookHandlers) OutboundBridge(c *gin.Context) {
	ctx := c.Request.Context()
	sid := c.PostForm("CallSid")
	callID := c.PostForm("CallbridgeCallId")
	from := phone.Normalize(c.PostForm("FromNumber"))
	to := phone.Normalize(c.PostForm("To"))

	if to == "" {
		webhookCounter.WithLabelValues("outbound_bridge", "bad_request").Inc()
		c.String(http.StatusBadRequest, "missing To")
		return
	}

	if err := h.flow.AttachOutbound(ctx, callID, sid, from, to); err != nil {
		webhookCounter.WithLabelValues("outbound_bridge", "error").Inc()
		logger.From(ctx).Error("outbound bridge failed", "sid", sid, "error", err)
		c.String(http.StatusInternalServerError, "error")
		return
	}

	webhookCounter.WithLabelValues("outbound_bridge", "bridged").Inc()
	tw := NewTwiML()
	tw.DialNumber(to, from, h.dialTimeout, h.publicURL+"/webhooks/voice/status")
	h.renderTwiML(c, tw)
}

// CallStatus ingests call lifecycle events. Always 200 on handled
// events, including duplicates and events for unknown calls, so the
// provider stops retrying.
func (h *WebhookHandlers) CallStatus(c *gin.Context) {
	ctx := c.Request.Context()

	duration, _ := strconv.Atoi(c.PostForm("CallDuration"))
	ev := calls.StatusEvent{
		SID:             c.PostForm("CallSid"),
		From:            phone.Normalize(c.PostForm("From")),
		To:              phone.Normalize(c.PostForm("To")),
		Status:          c.PostForm("CallStatus"),
		DurationSeconds: duration,
	}
	if ev.SID == "" {
		webhookCounter.WithLabelValues("call_status", "bad_request").Inc()
		c.String(http.StatusBadRequest, "missing CallSid")
		return
	}

	if err := h.flow.HandleStatusEvent(ctx, ev); err != nil {
		webhookCounter.WithLabelValues("call_status", "error").Inc()
		logger.From(ctx).Error("call status handling failed", "sid", ev.SID, "error", err)
		c.String(http.StatusInternalServerError, "error")
		return
	}
	webhookCounter.WithLabelValues("call_status", ev.Status).Inc()
	c.String(http.StatusOK, "ok")
}

// DialAction runs after the client dial finishes. An unanswered leg
// drops to voicemail; an answered one just ends cleanly.
func (h *WebhookHandlers) DialAction(c *gin.Context) {
	dialStatus := c.PostForm("DialCallStatus")

	tw := NewTwiML()
	if dialStatus == "completed" || dialStatus == "answered" {
		tw.Hangup()
	} else {
		webhookCounter.WithLabelValues("dial_action", "voicemail").Inc()
		tw.Say("The person you are calling is unavailable. Please leave a message after the beep.")
		tw.Record(120,
			h.publicURL+"/webhooks/voice/voicemail",
			h.publicURL+"/webhooks/voice/voicemail-status")
	}
	h.renderTwiML(c, tw)
}

// VoicemailComplete runs when the caller stops recording. The recording
// URL is stored immediately; duration may still be zero here and gets
// corrected by the recording status callback.
func (h *WebhookHandlers) VoicemailComplete(c *gin.Context) {
	ctx := c.Request.Context()
	sid := c.PostForm("CallSid")
	from := phone.Normalize(c.PostForm("From"))
	to := phone.Normalize(c.PostForm("To"))
	recordingURL := c.PostForm("RecordingUrl")
	duration, _ := strconv.Atoi(c.PostForm("RecordingDuration"))

	if recordingURL != "" {
		if err := h.voicemail.SaveRecording(ctx, sid, from, to, recordingURL, duration); err != nil {
			logger.From(ctx).Error("voicemail save failed", "sid", sid, "error", err)
		} else {
			webhookCounter.WithLabelValues("voicemail", "saved").Inc()
		}
	}

	tw := NewTwiML()
	tw.Say("Thank you. Goodbye.")
	tw.Hangup()
	h.renderTwiML(c, tw)
}

// VoicemailStatus fires when the provider finishes processing the
// recording, carrying the authoritative duration.
func (h *WebhookHandlers) VoicemailStatus(c *gin.Context) {
	ctx := c.Request.Context()
	if c.PostForm("RecordingStatus") != "completed" {
		c.String(http.StatusOK, "ok")
		return
	}
	recordingURL := c.PostForm("RecordingUrl")
	duration, _ := strconv.Atoi(c.PostForm("RecordingDuration"))

	if recordingURL != "" {
		if err := h.voicemail.SetDuration(ctx, recordingURL, duration); err != nil {
			logger.From(ctx).Error("voicemail duration update failed", "error", err)
		}
	}
	c.String(http.StatusOK, "ok")
}

// SMSInbound stores an incoming text for the owner of the dialed
// number. Duplicate deliveries are absorbed by the message SID.
func (h *WebhookHandlers) SMSInbound(c *gin.Context) {
	ctx := c.Request.Context()
	sid := c.PostForm("MessageSid")
	from := phone.Normalize(c.PostForm("From"))
	to := phone.Normalize(c.PostForm("To"))
	body := c.PostForm("Body")

	if sid == "" {
		webhookCounter.WithLabelValues("sms_inbound", "bad_request").Inc()
		c.String(http.StatusBadRequest, "missing MessageSid")
		return
	}

	if err := h.messages.ReceiveInbound(ctx, sid, from, to, body); err != nil {
		webhookCounter.WithLabelValues("sms_inbound", "error").Inc()
		logger.From(ctx).Error("inbound sms handling failed", "sid", sid, "error", err)
		c.String(http.StatusInternalServerError, "error")
		return
	}
	webhookCounter.WithLabelValues("sms_inbound", "stored").Inc()
	c.String(http.StatusOK, "ok")
}

func (h *WebhookHandlers) renderTwiML(c *gin.Context, tw *TwiML) {
	out, err := tw.Render()
	if err != nil {
		c.String(http.StatusInternalServerError, "twiml render failed")
		return
	}
	c.Data(http.StatusOK, "application/xml", []byte(out))
}
