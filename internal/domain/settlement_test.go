package domain

import (
	"errors"
	"testing"
)

func TestBuildInstructionAttributesFees(t *testing.T) {
	t.Parallel()

	funded := newFundedEscrow(t)
	fees, err := ComputeFees(funded.Amount, DefaultFeeRate, DefaultFeeRate)
	if err != nil {
		t.Fatalf("compute fees: %v", err)
	}

	release, err := BuildInstruction(funded, SettlementActionRelease, fees)
	if err != nil {
		t.Fatalf("build release: %v", err)
	}
	if release.PayeeID != "freelancer-1" || release.PayeeAmount != 9900 || release.PlatformAmount != 200 {
		t.Fatalf("unexpected release instruction %+v", release)
	}
	if release.IdempotencyKey != "esc-1:release" || release.Currency != "USD" {
		t.Fatalf("unexpected release key/currency %+v", release)
	}

	refund, err := BuildInstruction(funded, SettlementActionRefund, fees)
	if err != nil {
		t.Fatalf("build refund: %v", err)
	}
	if refund.PayeeID != "client-1" || refund.PayeeAmount != 10100 || refund.PlatformAmount != 0 {
		t.Fatalf("unexpected refund instruction %+v", refund)
	}
}

func TestBuildInstructionRejectsMismatchedFees(t *testing.T) {
	t.Parallel()

	funded := newFundedEscrow(t)
	fees, _ := ComputeFees(5000, DefaultFeeRate, DefaultFeeRate)
	if _, err := BuildInstruction(funded, SettlementActionRelease, fees); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	good, _ := ComputeFees(funded.Amount, DefaultFeeRate, DefaultFeeRate)
	if _, err := BuildInstruction(funded, SettlementAction("burn"), good); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown action, got %v", err)
	}
}

func TestBuildInstructionRejectsTamperedFees(t *testing.T) {
	t.Parallel()

	funded := newFundedEscrow(t)
	tests := []struct {
		name   string
		tamper func(*FeeBreakdown)
	}{
		{name: "freelancer receives", tamper: func(f *FeeBreakdown) { f.FreelancerReceives = 1000000 }},
		{name: "client pays", tamper: func(f *FeeBreakdown) { f.ClientPays = 1 }},
		{name: "platform fee", tamper: func(f *FeeBreakdown) { f.ClientFee = 0 }},
		{name: "zeroed breakdown", tamper: func(f *FeeBreakdown) { *f = FeeBreakdown{RawAmount: f.RawAmount} }},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			fees, err := ComputeFees(funded.Amount, DefaultFeeRate, DefaultFeeRate)
			if err != nil {
				t.Fatalf("compute fees: %v", err)
			}
			tc.tamper(&fees)
			if _, err := BuildInstruction(funded, SettlementActionRelease, fees); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestActionForStatus(t *testing.T) {
	t.Parallel()

	if action, ok := ActionForStatus(EscrowStatusReleased); !ok || action != SettlementActionRelease {
		t.Fatalf("released should map to release")
	}
	if action, ok := ActionForStatus(EscrowStatusRefunded); !ok || action != SettlementActionRefund {
		t.Fatalf("refunded should map to refund")
	}
	if _, ok := ActionForStatus(EscrowStatusDeposited); ok {
		t.Fatalf("deposited has no settlement action")
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	if KindOf(nil) != "" {
		t.Fatalf("nil error has no kind")
	}
	wrapped := errors.Join(errors.New("context"), ErrAlreadyFunded)
	if KindOf(wrapped) != KindAlreadyFunded {
		t.Fatalf("expected AlreadyFunded, got %s", KindOf(wrapped))
	}
	if KindOf(ErrIdempotencyConflict) != KindConflict {
		t.Fatalf("idempotency conflicts are conflicts")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("unknown errors are internal")
	}
}
