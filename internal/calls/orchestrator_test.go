package calls

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"callbridge/internal/numbers"
	"callbridge/internal/routing"
)

type fakeBiller struct {
	mu      sync.Mutex
	settled []string
	cost    int64
}

func (f *fakeBiller) SettleCall(_ context.Context, _, _ string, _ int, direction string, ref string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, ref)
	if direction != "outbound" {
		return 0, nil
	}
	return f.cost, nil
}

func (f *fakeBiller) settlements() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.settled)
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Notify(_, event string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

type fakeCompleter struct {
	completed []string
	err       error
}

func (f *fakeCompleter) CompleteCall(_ context.Context, sid string) error {
	if f.err != nil {
		return f.err
	}
	f.completed = append(f.completed, sid)
	return nil
}

func testHarness(t *testing.T) (*Orchestrator, *MemoryTracker, *MemoryRecordStore, *fakeBiller, *fakeNotifier, *fakeCompleter) {
	t.Helper()
	now := time.Now()
	numRepo := numbers.NewMemoryRepo(numbers.VirtualNumber{
		ID: "n1", CountryCode: "US", PhoneNumber: "+15550001111",
		Status: numbers.StatusAssigned, UserID: "u1", AssignedAt: &now,
	})
	tracker := NewMemoryTracker()
	records := NewMemoryRecordStore()
	biller := &fakeBiller{cost: 30}
	notifier := &fakeNotifier{}
	provider := &fakeCompleter{}
	o := NewOrchestrator(tracker, records, routing.NewResolver(numRepo), biller, numRepo, notifier, provider)
	return o, tracker, records, biller, notifier, provider
}

func TestHandleStatusEvent_TerminalWritesRecordAndClearsTracker(t *testing.T) {
	o, tracker, records, biller, notifier, _ := testHarness(t)
	ctx := context.Background()

	c, err := o.Initiate(ctx, "u1", "+15550001111", "+19998887777")
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if err := o.AttachOutbound(ctx, c.ID, "CA100", c.From, c.To); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	ev := StatusEvent{SID: "CA100", From: "+15550001111", To: "+19998887777", Status: "completed", DurationSeconds: 90}
	if err := o.HandleStatusEvent(ctx, ev); err != nil {
		t.Fatalf("status event failed: %v", err)
	}

	r, ok, _ := records.FindBySID(ctx, "CA100")
	if !ok {
		t.Fatalf("expected call record")
	}
	if r.UserID != "u1" || r.Status != "completed" || r.CostMinor != 30 || r.DurationSeconds != 90 {
		t.Fatalf("unexpected record: %+v", r)
	}
	if _, still, _ := tracker.FindBySID(ctx, "CA100"); still {
		t.Fatalf("tracker entry must be cleared")
	}
	if len(biller.settled) != 1 {
		t.Fatalf("expected one settlement, got %d", len(biller.settled))
	}
	if len(notifier.events) == 0 || notifier.events[len(notifier.events)-1] != "call_ended" {
		t.Fatalf("expected call_ended notification, got %v", notifier.events)
	}
}

func TestHandleStatusEvent_DuplicateDeliveryIsNoOp(t *testing.T) {
	o, _, records, biller, _, _ := testHarness(t)
	ctx := context.Background()

	ev := StatusEvent{SID: "CA200", From: "+15550001111", To: "+19998887777", Status: "completed", DurationSeconds: 60}
	if err := o.HandleStatusEvent(ctx, ev); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := o.HandleStatusEvent(ctx, ev); err != nil {
		t.Fatalf("duplicate delivery must succeed, got %v", err)
	}

	if len(biller.settled) != 1 {
		t.Fatalf("duplicate must not bill again, settled=%d", len(biller.settled))
	}
	if n, _ := records.History(ctx, "u1", 0); len(n) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(n))
	}
}

func TestHandleStatusEvent_ConcurrentDuplicatesBillOnce(t *testing.T) {
	// Providers retry webhooks, and retries can land in parallel. Both
	// deliveries pass the cheap existence check; the record claim must
	// still let exactly one of them reach the biller.
	o, _, records, biller, _, _ := testHarness(t)
	ctx := context.Background()

	ev := StatusEvent{SID: "CA250", From: "+15550001111", To: "+19998887777", Status: "completed", DurationSeconds: 45}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = o.HandleStatusEvent(ctx, ev)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("delivery %d failed: %v", i, err)
		}
	}
	if got := biller.settlements(); got != 1 {
		t.Fatalf("expected exactly one settlement, got %d", got)
	}
	r, ok, _ := records.FindBySID(ctx, "CA250")
	if !ok {
		t.Fatalf("expected call record")
	}
	if r.CostMinor != 30 {
		t.Fatalf("winner must backfill the settled cost, got %d", r.CostMinor)
	}
	if n, _ := records.History(ctx, "u1", 0); len(n) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(n))
	}
}

func TestHandleStatusEvent_FallbackAttributionWithoutTracker(t *testing.T) {
	// No Initiate, no bridge: the tracker knows nothing. Attribution
	// comes from the numbers alone. From matches u1's number, so this
	// is an outbound call billed to u1.
	o, _, records, biller, _, _ := testHarness(t)
	ctx := context.Background()

	ev := StatusEvent{SID: "CA300", From: "+15550001111", To: "+19998887777", Status: "completed", DurationSeconds: 120}
	if err := o.HandleStatusEvent(ctx, ev); err != nil {
		t.Fatalf("status event failed: %v", err)
	}

	r, ok, _ := records.FindBySID(ctx, "CA300")
	if !ok || r.UserID != "u1" || r.Direction != DirectionOutbound {
		t.Fatalf("expected outbound record for u1, got %+v ok=%v", r, ok)
	}
	if len(biller.settled) != 1 {
		t.Fatalf("expected settlement")
	}
}

func TestHandleStatusEvent_UnattributableIsNoOp(t *testing.T) {
	o, _, records, biller, _, _ := testHarness(t)
	ctx := context.Background()

	ev := StatusEvent{SID: "CA400", From: "+12220001111", To: "+13330002222", Status: "completed", DurationSeconds: 60}
	if err := o.HandleStatusEvent(ctx, ev); err != nil {
		t.Fatalf("unattributable event must succeed, got %v", err)
	}
	if exists, _ := records.ExistsBySID(ctx, "CA400"); exists {
		t.Fatalf("unattributable event must not write a record")
	}
	if len(biller.settled) != 0 {
		t.Fatalf("unattributable event must not bill")
	}
}

func TestHandleStatusEvent_NonTerminalIsInert(t *testing.T) {
	o, tracker, records, biller, _, _ := testHarness(t)
	ctx := context.Background()

	c, _ := o.Initiate(ctx, "u1", "+15550001111", "+19998887777")
	_ = o.AttachOutbound(ctx, c.ID, "CA500", c.From, c.To)

	for _, status := range []string{"initiated", "ringing", "in-progress"} {
		ev := StatusEvent{SID: "CA500", From: c.From, To: c.To, Status: status}
		if err := o.HandleStatusEvent(ctx, ev); err != nil {
			t.Fatalf("progress event %q failed: %v", status, err)
		}
	}

	if exists, _ := records.ExistsBySID(ctx, "CA500"); exists {
		t.Fatalf("progress events must not write records")
	}
	if len(biller.settled) != 0 {
		t.Fatalf("progress events must not bill")
	}
	got, _, _ := tracker.FindBySID(ctx, "CA500")
	if got.Status != "in-progress" {
		t.Fatalf("expected tracker status in-progress, got %q", got.Status)
	}
}

func TestHandleStatusEvent_MissedInboundMapping(t *testing.T) {
	o, _, records, _, notifier, _ := testHarness(t)
	ctx := context.Background()

	// Inbound ring, then the caller gives up.
	if _, ok, err := o.HandleInbound(ctx, "CA600", "+19998887777", "+15550001111"); err != nil || !ok {
		t.Fatalf("inbound not attributed, ok=%v err=%v", ok, err)
	}
	if notifier.events[0] != "incoming_call" {
		t.Fatalf("expected incoming_call push, got %v", notifier.events)
	}

	ev := StatusEvent{SID: "CA600", From: "+19998887777", To: "+15550001111", Status: "no-answer"}
	if err := o.HandleStatusEvent(ctx, ev); err != nil {
		t.Fatalf("status event failed: %v", err)
	}

	r, ok, _ := records.FindBySID(ctx, "CA600")
	if !ok || r.Status != "missed" || r.Direction != DirectionInbound {
		t.Fatalf("expected missed inbound record, got %+v", r)
	}
	if r.CostMinor != 0 {
		t.Fatalf("inbound call must cost nothing, got %d", r.CostMinor)
	}
}

func TestEnd_ChecksOwnershipAndHangsUp(t *testing.T) {
	o, tracker, _, _, _, provider := testHarness(t)
	ctx := context.Background()

	c, _ := o.Initiate(ctx, "u1", "+15550001111", "+19998887777")
	_ = o.AttachOutbound(ctx, c.ID, "CA700", c.From, c.To)

	if err := o.End(ctx, "u2", c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other users must not end the call, got %v", err)
	}
	if err := o.End(ctx, "u1", c.ID); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if len(provider.completed) != 1 || provider.completed[0] != "CA700" {
		t.Fatalf("expected provider hangup of CA700, got %v", provider.completed)
	}
	// Tracker cleanup is the terminal webhook's job once the provider
	// is involved.
	if _, still, _ := tracker.FindByID(ctx, c.ID); !still {
		t.Fatalf("entry should remain until the terminal webhook lands")
	}
}

func TestEnd_PendingCallWithoutSIDJustDrops(t *testing.T) {
	o, tracker, _, _, _, provider := testHarness(t)
	ctx := context.Background()

	c, _ := o.Initiate(ctx, "u1", "+15550001111", "+19998887777")
	if err := o.End(ctx, "u1", c.ID); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if len(provider.completed) != 0 {
		t.Fatalf("no provider call should be made for a pending entry")
	}
	if _, still, _ := tracker.FindByID(ctx, c.ID); still {
		t.Fatalf("pending entry must be dropped")
	}
}

func TestInitiate_RejectsForeignNumber(t *testing.T) {
	o, _, _, _, _, _ := testHarness(t)
	if _, err := o.Initiate(context.Background(), "u2", "+15550001111", "+19998887777"); !errors.Is(err, ErrNotYourNumber) {
		t.Fatalf("expected ErrNotYourNumber, got %v", err)
	}
}
