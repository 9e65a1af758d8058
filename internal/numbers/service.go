package numbers

import (
	"context"
	"errors"
	"time"

	"callbridge/internal/phone"
	"callbridge/internal/pricing"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPricingNotFound     = errors.New("pricing not found")
)

// RateFinder resolves the per-country rate card.
type RateFinder interface {
	FindByCountry(ctx context.Context, countryCode string) (pricing.Pricing, bool, error)
}

// Service handles user-facing number operations: browsing the pool,
// purchasing and listing owned numbers.
type Service struct {
	repo   Repository
	rates  RateFinder
	wallet Debiter
	clock  func() time.Time
}

func NewService(repo Repository, rates RateFinder, wallet Debiter) *Service {
	return &Service{repo: repo, rates: rates, wallet: wallet, clock: time.Now}
}

func (s *Service) Available(ctx context.Context, countryCode string) ([]VirtualNumber, error) {
	return s.repo.FindAvailable(ctx, countryCode)
}

func (s *Service) Mine(ctx context.Context, userID string) ([]VirtualNumber, error) {
	return s.repo.FindAssignedByUser(ctx, userID)
}

func (s *Service) FindAssignedByPhone(ctx context.Context, phoneNumber string) (VirtualNumber, bool, error) {
	return s.repo.FindAssignedByPhone(ctx, phone.Normalize(phoneNumber))
}

// Purchase assigns an available number to the user, charging one rental
// period up front. The debit and the claim commit together: a racing
// purchase loses the conditional claim and its debit rolls back, so
// nobody ends up charged for a number they did not get.
func (s *Service) Purchase(ctx context.Context, userID, numberID string) (VirtualNumber, error) {
	n, ok, err := s.repo.FindByID(ctx, numberID)
	if err != nil {
		return VirtualNumber{}, err
	}
	if !ok || n.Status != StatusAvailable {
		return VirtualNumber{}, ErrNotAvailable
	}

	rate, ok, err := s.rates.FindByCountry(ctx, n.CountryCode)
	if err != nil {
		return VirtualNumber{}, err
	}
	if !ok {
		return VirtualNumber{}, ErrPricingNotFound
	}

	now := s.clock().UTC()
	claimed, err := s.repo.ClaimPaid(ctx, n.ID, userID, rate.NumberMonthlyMinor, now, s.wallet)
	if err != nil {
		return VirtualNumber{}, err
	}
	if !claimed {
		return VirtualNumber{}, ErrInsufficientBalance
	}

	out, _, err := s.repo.FindByID(ctx, n.ID)
	if err != nil {
		return VirtualNumber{}, err
	}
	return out, nil
}
