package routing

import (
	"context"
	"testing"
	"time"

	"callbridge/internal/numbers"
)

func assigned(id, userID, phoneNumber string) numbers.VirtualNumber {
	now := time.Now()
	return numbers.VirtualNumber{
		ID:          id,
		CountryCode: "US",
		PhoneNumber: phoneNumber,
		Status:      numbers.StatusAssigned,
		UserID:      userID,
		AssignedAt:  &now,
	}
}

func TestResolve_ToMatchesIsInbound(t *testing.T) {
	repo := numbers.NewMemoryRepo(assigned("n1", "u1", "+15550001111"))
	r := NewResolver(repo)

	att, ok, err := r.Resolve(context.Background(), "+19998887777", "+15550001111")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ok {
		t.Fatalf("expected attribution")
	}
	if att.UserID != "u1" || att.Direction != DirectionInbound {
		t.Fatalf("unexpected attribution: %+v", att)
	}
}

func TestResolve_FromMatchesIsOutbound(t *testing.T) {
	repo := numbers.NewMemoryRepo(assigned("n1", "u1", "+15550001111"))
	r := NewResolver(repo)

	att, ok, err := r.Resolve(context.Background(), "+15550001111", "+19998887777")
	if err != nil || !ok {
		t.Fatalf("expected attribution, ok=%v err=%v", ok, err)
	}
	if att.UserID != "u1" || att.Direction != DirectionOutbound {
		t.Fatalf("unexpected attribution: %+v", att)
	}
}

func TestResolve_ToWinsOverFrom(t *testing.T) {
	// Both sides assigned (user calling another platform number):
	// "to" match decides, so the event attributes to the callee.
	repo := numbers.NewMemoryRepo(
		assigned("n1", "u1", "+15550001111"),
		assigned("n2", "u2", "+15550002222"),
	)
	r := NewResolver(repo)

	att, ok, _ := r.Resolve(context.Background(), "+15550001111", "+15550002222")
	if !ok || att.UserID != "u2" || att.Direction != DirectionInbound {
		t.Fatalf("unexpected attribution: %+v ok=%v", att, ok)
	}
}

func TestResolve_NeitherMatches(t *testing.T) {
	repo := numbers.NewMemoryRepo(assigned("n1", "u1", "+15550001111"))
	r := NewResolver(repo)

	_, ok, err := r.Resolve(context.Background(), "+12223334444", "+15556667777")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok {
		t.Fatalf("expected no attribution")
	}
}

func TestResolve_NormalizesInputs(t *testing.T) {
	repo := numbers.NewMemoryRepo(assigned("n1", "u1", "+15550001111"))
	r := NewResolver(repo)

	att, ok, _ := r.Resolve(context.Background(), "", " 15550001111 ")
	if !ok || att.Direction != DirectionInbound {
		t.Fatalf("expected normalized inbound match, got %+v ok=%v", att, ok)
	}

	if _, ok, _ := r.Resolve(context.Background(), "", ""); ok {
		t.Fatalf("empty numbers must not attribute")
	}
}
