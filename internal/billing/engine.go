package billing

import (
	"context"

	"callbridge/internal/numbers"
	"callbridge/internal/plans"
	"callbridge/internal/pricing"
	"callbridge/pkg/logger"
)

// NumberFinder resolves which platform number (and so which country's
// rate card) a call was placed from.
type NumberFinder interface {
	FindAssignedByPhone(ctx context.Context, phoneNumber string) (numbers.VirtualNumber, bool, error)
}

// RateFinder resolves the per-country rate card.
type RateFinder interface {
	FindByCountry(ctx context.Context, countryCode string) (pricing.Pricing, bool, error)
}

// PlanSource is the slice of the plan service billing needs: the active
// plan for a user and country (lazily expiring lapsed ones) plus the
// guarded minute consumption.
type PlanSource interface {
	ActiveFor(ctx context.Context, userID, countryCode string) (plans.UserPlan, bool, error)
	ConsumeMinutes(ctx context.Context, planID string, minutes int) (bool, error)
}

// WalletDebiter charges the user if the balance covers the amount.
type WalletDebiter interface {
	DebitIfSufficient(ctx context.Context, userID string, amountMinor int64, method, externalRef string) (bool, error)
}

// Engine settles the cost of a finished call.
//
// Settlement order is plan first, wallet second. A plan either absorbs
// the whole call or none of it; a call that would push usage past the
// fair-use cap falls through to the wallet in full. A wallet shortfall
// waives the charge rather than failing the event: the call already
// happened, and the webhook must still be acknowledged.
type Engine struct {
	numbers NumberFinder
	rates   RateFinder
	plans   PlanSource
	wallet  WalletDebiter
}

func NewEngine(numbers NumberFinder, rates RateFinder, plans PlanSource, wallet WalletDebiter) *Engine {
	return &Engine{numbers: numbers, rates: rates, plans: plans, wallet: wallet}
}

// SettleCall returns the amount charged in minor units. Inbound calls,
// zero-duration calls, calls from numbers the platform does not know,
// and calls without a rate card all settle at zero.
func (e *Engine) SettleCall(ctx context.Context, userID, fromNumber string, durationSeconds int, direction string, callRef string) (int64, error) {
	log := logger.From(ctx)

	if direction != "outbound" {
		outcomeCounter.WithLabelValues(outcomeInboundFree).Inc()
		return 0, nil
	}

	minutes := pricing.BillableMinutes(durationSeconds)
	if minutes == 0 {
		outcomeCounter.WithLabelValues(outcomeZeroDuration).Inc()
		return 0, nil
	}

	num, ok, err := e.numbers.FindAssignedByPhone(ctx, fromNumber)
	if err != nil {
		return 0, err
	}
	if !ok {
		// Caller number is not one of ours. Nothing to rate against;
		// fail safe toward not charging.
		log.Warn("billing: call from unknown number", "from", fromNumber, "user_id", userID)
		outcomeCounter.WithLabelValues(outcomeUnknownNumber).Inc()
		return 0, nil
	}

	rate, ok, err := e.rates.FindByCountry(ctx, num.CountryCode)
	if err != nil {
		return 0, err
	}
	if !ok || rate.CallPerMinuteMinor <= 0 {
		log.Warn("billing: no rate card", "country", num.CountryCode)
		outcomeCounter.WithLabelValues(outcomeNoPricing).Inc()
		return 0, nil
	}

	if plan, ok, err := e.plans.ActiveFor(ctx, userID, num.CountryCode); err != nil {
		return 0, err
	} else if ok && plan.MinutesRemaining() >= minutes {
		consumed, err := e.plans.ConsumeMinutes(ctx, plan.ID, minutes)
		if err != nil {
			return 0, err
		}
		if consumed {
			outcomeCounter.WithLabelValues(outcomePlanCovered).Inc()
			return 0, nil
		}
		// A concurrent call consumed the headroom between our read and
		// the guarded update. Fall through to the wallet.
	}

	cost := int64(minutes) * rate.CallPerMinuteMinor
	charged, err := e.wallet.DebitIfSufficient(ctx, userID, cost, "call", callRef)
	if err != nil {
		return 0, err
	}
	if !charged {
		log.Warn("billing: insufficient balance, charge waived",
			"user_id", userID, "cost_minor", cost, "call_ref", callRef)
		outcomeCounter.WithLabelValues(outcomeWaived).Inc()
		return 0, nil
	}

	outcomeCounter.WithLabelValues(outcomeWalletCharged).Inc()
	chargedMinor.Add(float64(cost))
	return cost, nil
}

// SettleSMS rates one outbound message against the sender's number.
// Same fail-safe posture as calls.
func (e *Engine) SettleSMS(ctx context.Context, userID, fromNumber, messageRef string) (int64, error) {
	num, ok, err := e.numbers.FindAssignedByPhone(ctx, fromNumber)
	if err != nil {
		return 0, err
	}
	if !ok {
		outcomeCounter.WithLabelValues(outcomeUnknownNumber).Inc()
		return 0, nil
	}

	rate, ok, err := e.rates.FindByCountry(ctx, num.CountryCode)
	if err != nil {
		return 0, err
	}
	if !ok || rate.SMSMinor <= 0 {
		outcomeCounter.WithLabelValues(outcomeNoPricing).Inc()
		return 0, nil
	}

	charged, err := e.wallet.DebitIfSufficient(ctx, userID, rate.SMSMinor, "sms", messageRef)
	if err != nil {
		return 0, err
	}
	if !charged {
		outcomeCounter.WithLabelValues(outcomeWaived).Inc()
		return 0, nil
	}
	chargedMinor.Add(float64(rate.SMSMinor))
	return rate.SMSMinor, nil
}
