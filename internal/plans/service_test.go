package plans

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"callbridge/internal/pricing"
)

type fakeWallet struct {
	balance int64
	debits  []int64
}

func (f *fakeWallet) DebitTx(_ context.Context, _ *sql.Tx, _ string, amount int64, _, _ string) (bool, error) {
	if f.balance < amount {
		return false, nil
	}
	f.balance -= amount
	f.debits = append(f.debits, amount)
	return true, nil
}

type fakeRates struct {
	byCountry map[string]pricing.Pricing
}

func (f fakeRates) FindByCountry(_ context.Context, cc string) (pricing.Pricing, bool, error) {
	p, ok := f.byCountry[cc]
	return p, ok, nil
}

func usRates(planMinor int64) fakeRates {
	return fakeRates{byCountry: map[string]pricing.Pricing{
		"US": {CountryCode: "US", Currency: "USD", CallPerMinuteMinor: 10, UnlimitedPlanMonthlyMinor: planMinor},
	}}
}

func TestPurchase_ChargesAndActivates(t *testing.T) {
	wallet := &fakeWallet{balance: 3000}
	svc := NewService(NewMemoryRepo(), usRates(2500), wallet, 2000)

	p, err := svc.Purchase(context.Background(), "u1", "US")
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}
	if p.Status != StatusActive || p.MinutesLimit != 2000 || p.MinutesUsed != 0 {
		t.Fatalf("unexpected plan: %+v", p)
	}
	if wallet.balance != 500 {
		t.Fatalf("expected balance 500 after purchase, got %d", wallet.balance)
	}
	if got := p.NextBillingAt.Sub(p.StartedAt); got != Period {
		t.Fatalf("expected 30 day period, got %v", got)
	}
}

func TestPurchase_RejectsSecondActivePlanSameCountry(t *testing.T) {
	wallet := &fakeWallet{balance: 10000}
	svc := NewService(NewMemoryRepo(), usRates(2500), wallet, 2000)

	if _, err := svc.Purchase(context.Background(), "u1", "US"); err != nil {
		t.Fatalf("first purchase failed: %v", err)
	}
	if _, err := svc.Purchase(context.Background(), "u1", "US"); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
	if len(wallet.debits) != 1 {
		t.Fatalf("second purchase must not charge, debits=%v", wallet.debits)
	}
}

func TestPurchase_InsufficientBalanceChargesNothing(t *testing.T) {
	wallet := &fakeWallet{balance: 100}
	svc := NewService(NewMemoryRepo(), usRates(2500), wallet, 2000)

	if _, err := svc.Purchase(context.Background(), "u1", "US"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if wallet.balance != 100 {
		t.Fatalf("balance must be unchanged, got %d", wallet.balance)
	}
}

func TestInsertPaid_DuplicateActiveChargesNothing(t *testing.T) {
	// Two purchases can race past the service's pre-check; the repo
	// guard must reject the loser without keeping its money.
	now := time.Now().UTC()
	repo := NewMemoryRepo(UserPlan{
		ID: "p1", UserID: "u1", CountryCode: "US",
		Status: StatusActive, MinutesLimit: 2000,
		StartedAt: now, NextBillingAt: now.Add(Period), CreatedAt: now,
	})
	wallet := &fakeWallet{balance: 5000}

	loser := UserPlan{
		ID: "p2", UserID: "u1", CountryCode: "US",
		Status: StatusActive, MinutesLimit: 2000,
		StartedAt: now, NextBillingAt: now.Add(Period), CreatedAt: now,
	}
	if _, err := repo.InsertPaid(context.Background(), loser, 2500, wallet); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
	if wallet.balance != 5000 {
		t.Fatalf("losing purchase must not keep a charge, balance %d", wallet.balance)
	}
	if _, ok, _ := repo.FindByID(context.Background(), "p2"); ok {
		t.Fatalf("losing plan must not be stored")
	}
}

func TestPurchase_NoPlanOffered(t *testing.T) {
	svc := NewService(NewMemoryRepo(), usRates(0), &fakeWallet{balance: 10000}, 2000)
	if _, err := svc.Purchase(context.Background(), "u1", "US"); !errors.Is(err, ErrNoPlanOffered) {
		t.Fatalf("expected ErrNoPlanOffered, got %v", err)
	}
}

func TestActiveFor_LazilyExpiresLapsedPlan(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, usRates(2500), &fakeWallet{balance: 10000}, 2000)

	p, err := svc.Purchase(context.Background(), "u1", "US")
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}

	// Jump past the end of the period.
	svc.clock = func() time.Time { return p.NextBillingAt.Add(time.Minute) }

	if _, ok, err := svc.ActiveFor(context.Background(), "u1", "US"); err != nil || ok {
		t.Fatalf("lapsed plan must not be active, ok=%v err=%v", ok, err)
	}

	stored, _, _ := repo.FindByID(context.Background(), p.ID)
	if stored.Status != StatusExpired {
		t.Fatalf("expected stored plan expired, got %s", stored.Status)
	}
}

func TestConsumeMinutes_GuardsCapAndStatus(t *testing.T) {
	repo := NewMemoryRepo(UserPlan{
		ID: "p1", UserID: "u1", CountryCode: "US",
		Status: StatusActive, MinutesLimit: 2000, MinutesUsed: 1990,
	})

	// Exactly reaching the cap is allowed.
	ok, err := repo.ConsumeMinutes(context.Background(), "p1", 10)
	if err != nil || !ok {
		t.Fatalf("expected consume to cap boundary to succeed, ok=%v err=%v", ok, err)
	}

	// One more minute must be refused, usage unchanged.
	ok, _ = repo.ConsumeMinutes(context.Background(), "p1", 1)
	if ok {
		t.Fatalf("expected consume beyond cap to fail")
	}
	p, _, _ := repo.FindByID(context.Background(), "p1")
	if p.MinutesUsed != 2000 {
		t.Fatalf("expected minutes_used 2000, got %d", p.MinutesUsed)
	}
}
