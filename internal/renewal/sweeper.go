package renewal

import (
	"context"
	"log/slog"
	"time"

	"callbridge/internal/pricing"
)

// RateFinder resolves the per-country rate card.
type RateFinder interface {
	FindByCountry(ctx context.Context, countryCode string) (pricing.Pricing, bool, error)
}

// Notifier pushes renewal outcomes to affected users.
type Notifier interface {
	Notify(userID, event string, payload any)
}

// Sweeper periodically renews lapsed number rentals and plans. Each
// row is settled independently: a failure on one row is logged and the
// sweep moves on, and because each renewal is guarded on the due date
// the sweep is safe to re-run at any time.
type Sweeper struct {
	store    Store
	rates    RateFinder
	notifier Notifier
	interval time.Duration
	batch    int
	log      *slog.Logger
	clock    func() time.Time
}

func NewSweeper(store Store, rates RateFinder, notifier Notifier, interval time.Duration, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		store:    store,
		rates:    rates,
		notifier: notifier,
		interval: interval,
		batch:    500,
		log:      log,
		clock:    time.Now,
	}
}

// Run blocks until ctx is canceled, sweeping once immediately and then
// on every tick.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep settles everything currently due.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.clock().UTC()
	s.sweepNumbers(ctx, now)
	s.sweepPlans(ctx, now)
}

func (s *Sweeper) sweepNumbers(ctx context.Context, now time.Time) {
	due, err := s.store.DueNumbers(ctx, now, s.batch)
	if err != nil {
		s.log.Error("renewal: listing due numbers failed", "error", err)
		return
	}

	for _, d := range due {
		rate, ok, err := s.rates.FindByCountry(ctx, d.CountryCode)
		if err != nil {
			s.log.Error("renewal: rate lookup failed", "number_id", d.NumberID, "error", err)
			continue
		}
		if !ok || rate.NumberMonthlyMinor <= 0 {
			s.log.Warn("renewal: no rate card, number skipped", "number_id", d.NumberID, "country", d.CountryCode)
			continue
		}

		outcome, err := s.store.RenewNumber(ctx, d, rate.NumberMonthlyMinor, now)
		if err != nil {
			s.log.Error("renewal: number renewal failed", "number_id", d.NumberID, "error", err)
			continue
		}
		switch outcome {
		case OutcomeRenewed:
			renewalCounter.WithLabelValues("number", "renewed").Inc()
			s.notifier.Notify(d.UserID, "number_renewed", map[string]string{"number_id": d.NumberID})
		case OutcomeStale:
			// Another sweep settled this row between listing and
			// renewing. Leave it alone.
			renewalCounter.WithLabelValues("number", "stale").Inc()
		case OutcomeShortfall:
			if err := s.store.SuspendNumber(ctx, d.NumberID, now); err != nil {
				s.log.Error("renewal: number suspension failed", "number_id", d.NumberID, "error", err)
				continue
			}
			renewalCounter.WithLabelValues("number", "suspended").Inc()
			s.log.Warn("renewal: number suspended for insufficient balance",
				"number_id", d.NumberID, "user_id", d.UserID)
			s.notifier.Notify(d.UserID, "number_suspended", map[string]string{"number_id": d.NumberID})
		}
	}
}

func (s *Sweeper) sweepPlans(ctx context.Context, now time.Time) {
	due, err := s.store.DuePlans(ctx, now, s.batch)
	if err != nil {
		s.log.Error("renewal: listing due plans failed", "error", err)
		return
	}

	for _, d := range due {
		rate, ok, err := s.rates.FindByCountry(ctx, d.CountryCode)
		if err != nil {
			s.log.Error("renewal: rate lookup failed", "plan_id", d.PlanID, "error", err)
			continue
		}
		if !ok || rate.UnlimitedPlanMonthlyMinor <= 0 {
			// Plan no longer offered; let it lapse.
			if err := s.store.ExpirePlan(ctx, d.PlanID, now); err != nil {
				s.log.Error("renewal: plan expiry failed", "plan_id", d.PlanID, "error", err)
			}
			renewalCounter.WithLabelValues("plan", "expired").Inc()
			continue
		}

		outcome, err := s.store.RenewPlan(ctx, d, rate.UnlimitedPlanMonthlyMinor, now)
		if err != nil {
			s.log.Error("renewal: plan renewal failed", "plan_id", d.PlanID, "error", err)
			continue
		}
		switch outcome {
		case OutcomeRenewed:
			renewalCounter.WithLabelValues("plan", "renewed").Inc()
			s.notifier.Notify(d.UserID, "plan_renewed", map[string]string{"plan_id": d.PlanID})
		case OutcomeStale:
			renewalCounter.WithLabelValues("plan", "stale").Inc()
		case OutcomeShortfall:
			if err := s.store.ExpirePlan(ctx, d.PlanID, now); err != nil {
				s.log.Error("renewal: plan expiry failed", "plan_id", d.PlanID, "error", err)
				continue
			}
			renewalCounter.WithLabelValues("plan", "expired").Inc()
			s.notifier.Notify(d.UserID, "plan_expired", map[string]string{"plan_id": d.PlanID})
		}
	}
}
