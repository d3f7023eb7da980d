package domain

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newFundedEscrow(t *testing.T) Escrow {
	t.Helper()
	escrow, err := NewEscrow("esc-1", "client-1", "freelancer-1", "", testNow)
	if err != nil {
		t.Fatalf("new escrow: %v", err)
	}
	funded, err := escrow.Deposit("client-1", 10000, testNow)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	return funded
}

func TestNewEscrowValidatesParties(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                 string
		id, client, freelance string
		want                 error
	}{
		{name: "missing id", id: "", client: "c", freelance: "f", want: ErrInvalidInput},
		{name: "missing client", id: "e", client: " ", freelance: "f", want: ErrInvalidParty},
		{name: "missing freelancer", id: "e", client: "c", freelance: "", want: ErrInvalidParty},
		{name: "same party", id: "e", client: "Alice", freelance: "alice", want: ErrInvalidParty},
	}
	for _, tc := range tests {
		if _, err := NewEscrow(tc.id, tc.client, tc.freelance, "usd", testNow); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	escrow, err := NewEscrow("e", "c", "f", "eur", testNow)
	if err != nil {
		t.Fatalf("new escrow: %v", err)
	}
	if escrow.Status != EscrowStatusNone || escrow.Currency != "EUR" || escrow.Step() != 1 {
		t.Fatalf("unexpected initial escrow %+v", escrow)
	}
}

func TestDepositTwiceFailsWithAlreadyFunded(t *testing.T) {
	t.Parallel()

	funded := newFundedEscrow(t)
	if funded.Status != EscrowStatusDeposited || funded.Amount != 10000 || funded.Step() != 2 {
		t.Fatalf("unexpected funded escrow %+v", funded)
	}
	if _, err := funded.Deposit("client-1", 500, testNow); !errors.Is(err, ErrAlreadyFunded) {
		t.Fatalf("expected ErrAlreadyFunded, got %v", err)
	}
	if funded.Amount != 10000 || funded.Status != EscrowStatusDeposited {
		t.Fatalf("failed deposit mutated the escrow: %+v", funded)
	}
}

func TestDepositPreconditions(t *testing.T) {
	t.Parallel()

	escrow, err := NewEscrow("e", "c", "f", "", testNow)
	if err != nil {
		t.Fatalf("new escrow: %v", err)
	}
	if _, err := escrow.Deposit("f", 100, testNow); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := escrow.Deposit("c", 0, testNow); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if escrow.Status != EscrowStatusNone {
		t.Fatalf("precondition failure changed status")
	}
}

func TestReleaseAndRefundAreExclusive(t *testing.T) {
	t.Parallel()

	funded := newFundedEscrow(t)
	verified := VerificationResult{Verified: true, ConfidenceScore: 0.9}
	rejected := VerificationResult{Verified: false, ConfidenceScore: 0.2}

	released, err := funded.Release(verified, testNow)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Status != EscrowStatusReleased || released.ClosedAt == nil || released.Step() != 3 {
		t.Fatalf("unexpected released escrow %+v", released)
	}
	if funded.Status != EscrowStatusDeposited {
		t.Fatalf("release mutated the receiver")
	}
	if _, err := released.Release(verified, testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second release, got %v", err)
	}
	if _, err := released.Refund(RefundRequest{Verdict: &rejected}, testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on refund after release, got %v", err)
	}

	refunded, err := funded.Refund(RefundRequest{Verdict: &rejected}, testNow)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if _, err := refunded.Refund(RefundRequest{CallerID: "client-1", Cancel: true}, testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second refund, got %v", err)
	}
	if _, err := refunded.Release(verified, testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on release after refund, got %v", err)
	}
}

func TestReleaseRequiresVerifiedResult(t *testing.T) {
	t.Parallel()

	funded := newFundedEscrow(t)
	if _, err := funded.Release(VerificationResult{Verified: false}, testNow); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	unfunded, _ := NewEscrow("e", "c", "f", "", testNow)
	if _, err := unfunded.Release(VerificationResult{Verified: true}, testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState before deposit, got %v", err)
	}
}

func TestRefundJustification(t *testing.T) {
	t.Parallel()

	funded := newFundedEscrow(t)
	verified := VerificationResult{Verified: true}
	if _, err := funded.Refund(RefundRequest{}, testNow); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without justification, got %v", err)
	}
	if _, err := funded.Refund(RefundRequest{Verdict: &verified}, testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for verified verdict, got %v", err)
	}
	if _, err := funded.Refund(RefundRequest{CallerID: "freelancer-1", Cancel: true}, testNow); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for freelancer cancel, got %v", err)
	}
	refunded, err := funded.Refund(RefundRequest{CallerID: "client-1", Cancel: true}, testNow)
	if err != nil || refunded.Status != EscrowStatusRefunded {
		t.Fatalf("expected client cancellation to refund, got %+v %v", refunded, err)
	}
}

func TestRecordVerdictRequiresDeposit(t *testing.T) {
	t.Parallel()

	summary := VerdictSummary{VerificationID: "v1", Verified: false, ConfidenceScore: 0.3, IssueCount: 2, RecordedAt: testNow}
	unfunded, _ := NewEscrow("e", "c", "f", "", testNow)
	if _, err := unfunded.RecordVerdict(summary, testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	funded := newFundedEscrow(t)
	next, err := funded.RecordVerdict(summary, testNow)
	if err != nil {
		t.Fatalf("record verdict: %v", err)
	}
	if next.LastVerdict == nil || next.LastVerdict.VerificationID != "v1" || funded.LastVerdict != nil {
		t.Fatalf("verdict not attached by value: next=%+v funded=%+v", next.LastVerdict, funded.LastVerdict)
	}
}

func TestIsParty(t *testing.T) {
	t.Parallel()

	funded := newFundedEscrow(t)
	if !funded.IsParty("client-1") || !funded.IsParty("freelancer-1") || funded.IsParty("other") || funded.IsParty("") {
		t.Fatalf("unexpected party membership")
	}
}
