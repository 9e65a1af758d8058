package plans

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"callbridge/internal/pricing"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPricingNotFound     = errors.New("pricing not found")
	ErrNoPlanOffered       = errors.New("no plan offered for country")
)

// RateFinder resolves the per-country rate card.
type RateFinder interface {
	FindByCountry(ctx context.Context, countryCode string) (pricing.Pricing, bool, error)
}

// Service handles plan purchase and lifecycle for users.
type Service struct {
	repo       Repository
	rates      RateFinder
	wallet     Debiter
	fupMinutes int
	clock      func() time.Time
}

func NewService(repo Repository, rates RateFinder, wallet Debiter, fupMinutes int) *Service {
	return &Service{
		repo:       repo,
		rates:      rates,
		wallet:     wallet,
		fupMinutes: fupMinutes,
		clock:      time.Now,
	}
}

// Purchase buys an unlimited plan for the given country, charging one
// period up front. A user holds at most one active plan per country;
// the debit and the insert commit together, so a rejected insert
// leaves the wallet untouched.
func (s *Service) Purchase(ctx context.Context, userID, countryCode string) (UserPlan, error) {
	// Lazily expire a lapsed plan first so it does not block the
	// repurchase.
	if _, ok, err := s.ActiveFor(ctx, userID, countryCode); err != nil {
		return UserPlan{}, err
	} else if ok {
		return UserPlan{}, ErrAlreadyActive
	}

	rate, ok, err := s.rates.FindByCountry(ctx, countryCode)
	if err != nil {
		return UserPlan{}, err
	}
	if !ok {
		return UserPlan{}, ErrPricingNotFound
	}
	if rate.UnlimitedPlanMonthlyMinor <= 0 {
		return UserPlan{}, ErrNoPlanOffered
	}

	now := s.clock().UTC()
	p := UserPlan{
		ID:            uuid.NewString(),
		UserID:        userID,
		CountryCode:   countryCode,
		Status:        StatusActive,
		MinutesLimit:  s.fupMinutes,
		StartedAt:     now,
		NextBillingAt: now.Add(Period),
		CreatedAt:     now,
	}

	charged, err := s.repo.InsertPaid(ctx, p, rate.UnlimitedPlanMonthlyMinor, s.wallet)
	if err != nil {
		return UserPlan{}, err
	}
	if !charged {
		return UserPlan{}, ErrInsufficientBalance
	}
	return p, nil
}

func (s *Service) Mine(ctx context.Context, userID string) ([]UserPlan, error) {
	return s.repo.FindByUser(ctx, userID)
}

// ActiveFor returns the user's active plan for the country, lazily
// expiring it if its period has lapsed.
func (s *Service) ActiveFor(ctx context.Context, userID, countryCode string) (UserPlan, bool, error) {
	p, ok, err := s.repo.FindActive(ctx, userID, countryCode)
	if err != nil || !ok {
		return UserPlan{}, false, err
	}
	if p.Lapsed(s.clock().UTC()) {
		if err := s.repo.MarkExpired(ctx, p.ID); err != nil {
			return UserPlan{}, false, err
		}
		return UserPlan{}, false, nil
	}
	return p, true, nil
}

func (s *Service) Cancel(ctx context.Context, userID, planID string) error {
	ok, err := s.repo.Cancel(ctx, planID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
