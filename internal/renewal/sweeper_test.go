package renewal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"callbridge/internal/pricing"
)

type fakeStore struct {
	balances map[string]int64

	dueNumbers []DueNumber
	duePlans   []DuePlan

	suspended []string
	expired   []string
	renewErr  map[string]error
	stale     map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{balances: map[string]int64{}, renewErr: map[string]error{}, stale: map[string]bool{}}
}

func (s *fakeStore) DueNumbers(ctx context.Context, now time.Time, limit int) ([]DueNumber, error) {
	return s.dueNumbers, nil
}

func (s *fakeStore) RenewNumber(ctx context.Context, d DueNumber, amountMinor int64, now time.Time) (Outcome, error) {
	if err := s.renewErr[d.NumberID]; err != nil {
		return OutcomeShortfall, err
	}
	if s.stale[d.NumberID] {
		return OutcomeStale, nil
	}
	if s.balances[d.UserID] < amountMinor {
		return OutcomeShortfall, nil
	}
	s.balances[d.UserID] -= amountMinor
	return OutcomeRenewed, nil
}

func (s *fakeStore) SuspendNumber(ctx context.Context, numberID string, now time.Time) error {
	s.suspended = append(s.suspended, numberID)
	return nil
}

func (s *fakeStore) DuePlans(ctx context.Context, now time.Time, limit int) ([]DuePlan, error) {
	return s.duePlans, nil
}

func (s *fakeStore) RenewPlan(ctx context.Context, d DuePlan, amountMinor int64, now time.Time) (Outcome, error) {
	if s.stale[d.PlanID] {
		return OutcomeStale, nil
	}
	if s.balances[d.UserID] < amountMinor {
		return OutcomeShortfall, nil
	}
	s.balances[d.UserID] -= amountMinor
	return OutcomeRenewed, nil
}

func (s *fakeStore) ExpirePlan(ctx context.Context, planID string, now time.Time) error {
	s.expired = append(s.expired, planID)
	return nil
}

type fakeRates struct {
	byCountry map[string]pricing.Pricing
}

func (r *fakeRates) FindByCountry(ctx context.Context, cc string) (pricing.Pricing, bool, error) {
	p, ok := r.byCountry[cc]
	return p, ok, nil
}

type sentEvent struct {
	userID string
	event  string
}

type fakeNotifier struct {
	events []sentEvent
}

func (n *fakeNotifier) Notify(userID, event string, payload any) {
	n.events = append(n.events, sentEvent{userID: userID, event: event})
}

func (n *fakeNotifier) has(userID, event string) bool {
	for _, e := range n.events {
		if e.userID == userID && e.event == event {
			return true
		}
	}
	return false
}

func newTestSweeper(store *fakeStore, rates *fakeRates, notifier *fakeNotifier) *Sweeper {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSweeper(store, rates, notifier, time.Hour, log)
}

func TestSweep_RenewsNumberAtExactBalance(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = 500
	store.dueNumbers = []DueNumber{{NumberID: "n1", UserID: "u1", CountryCode: "US"}}
	rates := &fakeRates{byCountry: map[string]pricing.Pricing{
		"US": {CountryCode: "US", NumberMonthlyMinor: 500},
	}}
	notifier := &fakeNotifier{}

	newTestSweeper(store, rates, notifier).Sweep(context.Background())

	if store.balances["u1"] != 0 {
		t.Fatalf("expected balance 0, got %d", store.balances["u1"])
	}
	if len(store.suspended) != 0 {
		t.Fatalf("number should not be suspended: %v", store.suspended)
	}
	if !notifier.has("u1", "number_renewed") {
		t.Fatalf("expected number_renewed event, got %v", notifier.events)
	}
}

func TestSweep_SuspendsNumberWhenOneShort(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = 499
	store.dueNumbers = []DueNumber{{NumberID: "n1", UserID: "u1", CountryCode: "US"}}
	rates := &fakeRates{byCountry: map[string]pricing.Pricing{
		"US": {CountryCode: "US", NumberMonthlyMinor: 500},
	}}
	notifier := &fakeNotifier{}

	newTestSweeper(store, rates, notifier).Sweep(context.Background())

	if store.balances["u1"] != 499 {
		t.Fatalf("balance must be untouched on failed renewal, got %d", store.balances["u1"])
	}
	if len(store.suspended) != 1 || store.suspended[0] != "n1" {
		t.Fatalf("expected n1 suspended, got %v", store.suspended)
	}
	if !notifier.has("u1", "number_suspended") {
		t.Fatalf("expected number_suspended event, got %v", notifier.events)
	}
}

func TestSweep_StaleRowIsLeftAlone(t *testing.T) {
	// Two sweepers can list the same row; the loser sees it already
	// advanced. That is not a shortfall, so the number stays assigned
	// and the plan stays active, with no events and no charge.
	store := newFakeStore()
	store.balances["u1"] = 499 // would be short, but the row is stale
	store.dueNumbers = []DueNumber{{NumberID: "n1", UserID: "u1", CountryCode: "US"}}
	store.duePlans = []DuePlan{{PlanID: "p1", UserID: "u1", CountryCode: "US"}}
	store.stale["n1"] = true
	store.stale["p1"] = true
	rates := &fakeRates{byCountry: map[string]pricing.Pricing{
		"US": {CountryCode: "US", NumberMonthlyMinor: 500, UnlimitedPlanMonthlyMinor: 1990},
	}}
	notifier := &fakeNotifier{}

	newTestSweeper(store, rates, notifier).Sweep(context.Background())

	if len(store.suspended) != 0 {
		t.Fatalf("stale number must not be suspended: %v", store.suspended)
	}
	if len(store.expired) != 0 {
		t.Fatalf("stale plan must not be expired: %v", store.expired)
	}
	if store.balances["u1"] != 499 {
		t.Fatalf("balance must be untouched, got %d", store.balances["u1"])
	}
	if len(notifier.events) != 0 {
		t.Fatalf("stale rows must not notify, got %v", notifier.events)
	}
}

func TestSweep_SkipsNumberWithoutRateCard(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = 1000
	store.dueNumbers = []DueNumber{{NumberID: "n1", UserID: "u1", CountryCode: "ZZ"}}
	notifier := &fakeNotifier{}

	newTestSweeper(store, &fakeRates{byCountry: map[string]pricing.Pricing{}}, notifier).Sweep(context.Background())

	if store.balances["u1"] != 1000 {
		t.Fatalf("balance must be untouched, got %d", store.balances["u1"])
	}
	if len(store.suspended) != 0 {
		t.Fatalf("unpriced number must not be suspended: %v", store.suspended)
	}
}

func TestSweep_ContinuesPastRowErrors(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = 500
	store.balances["u2"] = 500
	store.dueNumbers = []DueNumber{
		{NumberID: "n1", UserID: "u1", CountryCode: "US"},
		{NumberID: "n2", UserID: "u2", CountryCode: "US"},
	}
	store.renewErr["n1"] = errors.New("boom")
	rates := &fakeRates{byCountry: map[string]pricing.Pricing{
		"US": {CountryCode: "US", NumberMonthlyMinor: 500},
	}}
	notifier := &fakeNotifier{}

	newTestSweeper(store, rates, notifier).Sweep(context.Background())

	if !notifier.has("u2", "number_renewed") {
		t.Fatalf("n2 should renew despite n1 failing, got %v", notifier.events)
	}
	if store.balances["u2"] != 0 {
		t.Fatalf("expected u2 charged, balance %d", store.balances["u2"])
	}
}

func TestSweep_RenewsAndExpiresPlans(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = 1990
	store.balances["u2"] = 10
	store.duePlans = []DuePlan{
		{PlanID: "p1", UserID: "u1", CountryCode: "US"},
		{PlanID: "p2", UserID: "u2", CountryCode: "US"},
	}
	rates := &fakeRates{byCountry: map[string]pricing.Pricing{
		"US": {CountryCode: "US", UnlimitedPlanMonthlyMinor: 1990},
	}}
	notifier := &fakeNotifier{}

	newTestSweeper(store, rates, notifier).Sweep(context.Background())

	if store.balances["u1"] != 0 {
		t.Fatalf("expected p1 charged, balance %d", store.balances["u1"])
	}
	if !notifier.has("u1", "plan_renewed") {
		t.Fatalf("expected plan_renewed for u1, got %v", notifier.events)
	}
	if len(store.expired) != 1 || store.expired[0] != "p2" {
		t.Fatalf("expected p2 expired, got %v", store.expired)
	}
	if store.balances["u2"] != 10 {
		t.Fatalf("u2 balance must be untouched, got %d", store.balances["u2"])
	}
	if !notifier.has("u2", "plan_expired") {
		t.Fatalf("expected plan_expired for u2, got %v", notifier.events)
	}
}

func TestSweep_ExpiresPlanWhenNoLongerOffered(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = 5000
	store.duePlans = []DuePlan{{PlanID: "p1", UserID: "u1", CountryCode: "US"}}
	rates := &fakeRates{byCountry: map[string]pricing.Pricing{
		"US": {CountryCode: "US", UnlimitedPlanMonthlyMinor: 0},
	}}
	notifier := &fakeNotifier{}

	newTestSweeper(store, rates, notifier).Sweep(context.Background())

	if len(store.expired) != 1 || store.expired[0] != "p1" {
		t.Fatalf("expected p1 expired, got %v", store.expired)
	}
	if store.balances["u1"] != 5000 {
		t.Fatalf("balance must be untouched, got %d", store.balances["u1"])
	}
}
