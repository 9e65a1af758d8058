package messages

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"callbridge/internal/numbers"
	"callbridge/internal/phone"
	"callbridge/internal/pricing"
	"callbridge/internal/telephony"
	"callbridge/internal/wallet"
	"callbridge/pkg/logger"
)

var (
	ErrNotYourNumber       = errors.New("number not assigned to user")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPricingNotFound     = errors.New("pricing not found")
	ErrEmptyBody           = errors.New("empty message body")
)

// Sender delivers one SMS through the provider.
type Sender interface {
	SendMessage(ctx context.Context, from, to, body string) (telephony.Message, error)
}

// NumberOwnership answers whether a platform number is assigned.
type NumberOwnership interface {
	FindAssignedByPhone(ctx context.Context, phoneNumber string) (numbers.VirtualNumber, bool, error)
}

// RateFinder resolves the per-country rate card.
type RateFinder interface {
	FindByCountry(ctx context.Context, countryCode string) (pricing.Pricing, bool, error)
}

// WalletOps is the wallet slice messaging needs: a balance read for the
// pre-send check and the conditional debit afterwards.
type WalletOps interface {
	GetBalance(ctx context.Context, userID string) (wallet.Balance, error)
	DebitIfSufficient(ctx context.Context, userID string, amountMinor int64, method, externalRef string) (bool, error)
}

// Service handles SMS in both directions.
type Service struct {
	repo    Repository
	numbers NumberOwnership
	rates   RateFinder
	wallet  WalletOps
	sender  Sender
	clock   func() time.Time
}

func NewService(repo Repository, nums NumberOwnership, rates RateFinder, w WalletOps, sender Sender) *Service {
	return &Service{
		repo:    repo,
		numbers: nums,
		rates:   rates,
		wallet:  w,
		sender:  sender,
		clock:   time.Now,
	}
}

// Send checks ownership and funds, delivers through the provider, then
// charges. The charge happens after delivery: the provider accepted the
// message, so a concurrent spend that empties the wallet waives the
// fee rather than clawing the message back.
func (s *Service) Send(ctx context.Context, userID, from, to, body string) (Message, error) {
	if body == "" {
		return Message{}, ErrEmptyBody
	}
	from = phone.Normalize(from)
	to = phone.Normalize(to)

	num, ok, err := s.numbers.FindAssignedByPhone(ctx, from)
	if err != nil {
		return Message{}, err
	}
	if !ok || num.UserID != userID {
		return Message{}, ErrNotYourNumber
	}

	rate, ok, err := s.rates.FindByCountry(ctx, num.CountryCode)
	if err != nil {
		return Message{}, err
	}
	if !ok {
		return Message{}, ErrPricingNotFound
	}

	if rate.SMSMinor > 0 {
		bal, err := s.wallet.GetBalance(ctx, userID)
		if err != nil && !errors.Is(err, wallet.ErrNotFound) {
			return Message{}, err
		}
		if bal.BalanceMinor < rate.SMSMinor {
			return Message{}, ErrInsufficientBalance
		}
	}

	sent, err := s.sender.SendMessage(ctx, from, to, body)
	if err != nil {
		return Message{}, err
	}

	var cost int64
	if rate.SMSMinor > 0 {
		charged, err := s.wallet.DebitIfSufficient(ctx, userID, rate.SMSMinor, "sms", sent.SID)
		if err != nil {
			return Message{}, err
		}
		if charged {
			cost = rate.SMSMinor
		} else {
			logger.From(ctx).Warn("sms charge waived after send", "user_id", userID, "sid", sent.SID)
		}
	}

	m := Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		SID:       sent.SID,
		From:      from,
		To:        to,
		Body:      body,
		Direction: DirectionOutbound,
		CostMinor: cost,
		Read:      true,
		CreatedAt: s.clock().UTC(),
	}
	if _, err := s.repo.Insert(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// ReceiveInbound stores a provider-delivered SMS for the owner of the
// dialed number. Duplicate deliveries collapse on the message SID; a
// message to a number nobody owns is dropped as a successful no-op.
func (s *Service) ReceiveInbound(ctx context.Context, messageSID, from, to, body string) error {
	num, ok, err := s.numbers.FindAssignedByPhone(ctx, phone.Normalize(to))
	if err != nil {
		return err
	}
	if !ok {
		logger.From(ctx).Warn("inbound sms for unowned number", "sid", messageSID, "to", to)
		return nil
	}

	inserted, err := s.repo.Insert(ctx, Message{
		ID:        uuid.NewString(),
		UserID:    num.UserID,
		SID:       messageSID,
		From:      phone.Normalize(from),
		To:        phone.Normalize(to),
		Body:      body,
		Direction: DirectionInbound,
		CreatedAt: s.clock().UTC(),
	})
	if err != nil {
		return err
	}
	if !inserted {
		logger.From(ctx).Info("duplicate inbound sms", "sid", messageSID)
	}
	return nil
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]Message, error) {
	return s.repo.History(ctx, userID, limit)
}

func (s *Service) Conversation(ctx context.Context, userID, peer string, limit int) ([]Message, error) {
	peer = phone.Normalize(peer)
	if err := s.repo.MarkRead(ctx, userID, peer); err != nil {
		return nil, err
	}
	return s.repo.Conversation(ctx, userID, peer, limit)
}
