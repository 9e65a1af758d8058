package messages

import (
	"context"
	"errors"
	"testing"
	"time"

	"callbridge/internal/numbers"
	"callbridge/internal/pricing"
	"callbridge/internal/telephony"
	"callbridge/internal/wallet"
)

type fakeSender struct {
	sent []string
	next int
}

func (f *fakeSender) SendMessage(_ context.Context, _, _, _ string) (telephony.Message, error) {
	f.next++
	sid := "SM" + string(rune('0'+f.next))
	f.sent = append(f.sent, sid)
	return telephony.Message{SID: sid, Status: "queued"}, nil
}

type fakeWallet struct {
	balance int64
}

func (f *fakeWallet) GetBalance(_ context.Context, _ string) (wallet.Balance, error) {
	return wallet.Balance{BalanceMinor: f.balance}, nil
}

func (f *fakeWallet) DebitIfSufficient(_ context.Context, _ string, amount int64, _, _ string) (bool, error) {
	if f.balance < amount {
		return false, nil
	}
	f.balance -= amount
	return true, nil
}

func harness(balance int64) (*Service, *MemoryRepo, *fakeSender, *fakeWallet) {
	now := time.Now()
	numRepo := numbers.NewMemoryRepo(numbers.VirtualNumber{
		ID: "n1", CountryCode: "US", PhoneNumber: "+15550001111",
		Status: numbers.StatusAssigned, UserID: "u1", AssignedAt: &now,
	})
	rates := pricing.NewMemoryRepo(pricing.Pricing{CountryCode: "US", Currency: "USD", SMSMinor: 5})
	repo := NewMemoryRepo()
	sender := &fakeSender{}
	w := &fakeWallet{balance: balance}
	return NewService(repo, numRepo, rates, w, sender), repo, sender, w
}

func TestSend_ChargesAndStores(t *testing.T) {
	svc, repo, sender, w := harness(100)

	m, err := svc.Send(context.Background(), "u1", "+15550001111", "+19998887777", "hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if m.CostMinor != 5 || w.balance != 95 {
		t.Fatalf("expected cost 5 and balance 95, got %d / %d", m.CostMinor, w.balance)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one provider send")
	}
	hist, _ := repo.History(context.Background(), "u1", 0)
	if len(hist) != 1 || hist[0].Direction != DirectionOutbound {
		t.Fatalf("expected one outbound message in history, got %+v", hist)
	}
}

func TestSend_InsufficientBalanceBlocksBeforeSending(t *testing.T) {
	svc, _, sender, _ := harness(3)

	if _, err := svc.Send(context.Background(), "u1", "+15550001111", "+19998887777", "hello"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("must not reach the provider when funds are short")
	}
}

func TestSend_RejectsForeignNumber(t *testing.T) {
	svc, _, _, _ := harness(100)
	if _, err := svc.Send(context.Background(), "u2", "+15550001111", "+19998887777", "hello"); !errors.Is(err, ErrNotYourNumber) {
		t.Fatalf("expected ErrNotYourNumber, got %v", err)
	}
}

func TestReceiveInbound_IdempotentOnSID(t *testing.T) {
	svc, repo, _, _ := harness(0)
	ctx := context.Background()

	if err := svc.ReceiveInbound(ctx, "SM100", "+19998887777", "+15550001111", "hi"); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := svc.ReceiveInbound(ctx, "SM100", "+19998887777", "+15550001111", "hi"); err != nil {
		t.Fatalf("duplicate delivery must succeed, got %v", err)
	}
	hist, _ := repo.History(ctx, "u1", 0)
	if len(hist) != 1 {
		t.Fatalf("expected one stored message, got %d", len(hist))
	}
	if hist[0].Read {
		t.Fatalf("inbound messages start unread")
	}
}

func TestReceiveInbound_UnownedNumberIsNoOp(t *testing.T) {
	svc, repo, _, _ := harness(0)
	if err := svc.ReceiveInbound(context.Background(), "SM200", "+19998887777", "+14440000000", "hi"); err != nil {
		t.Fatalf("unowned delivery must succeed, got %v", err)
	}
	hist, _ := repo.History(context.Background(), "u1", 0)
	if len(hist) != 0 {
		t.Fatalf("nothing should be stored, got %d", len(hist))
	}
}

func TestConversation_MarksInboundRead(t *testing.T) {
	svc, _, _, _ := harness(100)
	ctx := context.Background()

	_ = svc.ReceiveInbound(ctx, "SM300", "+19998887777", "+15550001111", "hi")
	conv, err := svc.Conversation(ctx, "u1", "+19998887777", 0)
	if err != nil {
		t.Fatalf("conversation failed: %v", err)
	}
	if len(conv) != 1 || !conv[0].Read {
		t.Fatalf("expected one read message, got %+v", conv)
	}
}
