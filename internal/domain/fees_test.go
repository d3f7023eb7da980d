package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeFeesDefaultRates(t *testing.T) {
	t.Parallel()

	fees, err := ComputeFees(10000, DefaultFeeRate, DefaultFeeRate)
	if err != nil {
		t.Fatalf("compute fees: %v", err)
	}
	if fees.ClientFee != 100 || fees.FreelancerFee != 100 {
		t.Fatalf("expected 100/100 fees, got %d/%d", fees.ClientFee, fees.FreelancerFee)
	}
	if fees.ClientPays != 10100 || fees.FreelancerReceives != 9900 {
		t.Fatalf("unexpected totals: pays=%d receives=%d", fees.ClientPays, fees.FreelancerReceives)
	}
	if fees.PlatformTake() != 200 {
		t.Fatalf("expected platform take 200, got %d", fees.PlatformTake())
	}
}

func TestComputeFeesRoundsHalfUp(t *testing.T) {
	t.Parallel()

	fees, err := ComputeFees(150, DefaultFeeRate, DefaultFeeRate)
	if err != nil {
		t.Fatalf("compute fees: %v", err)
	}
	if fees.ClientFee != 2 || fees.ClientPays != 152 || fees.FreelancerReceives != 148 {
		t.Fatalf("expected 1.5 to round to 2, got %+v", fees)
	}

	fees, err = ComputeFees(149, DefaultFeeRate, DefaultFeeRate)
	if err != nil {
		t.Fatalf("compute fees: %v", err)
	}
	if fees.ClientFee != 1 {
		t.Fatalf("expected 1.49 to round to 1, got %d", fees.ClientFee)
	}
}

func TestComputeFeesExactForAllAmounts(t *testing.T) {
	t.Parallel()

	rates := []decimal.Decimal{
		decimal.Zero,
		DefaultFeeRate,
		decimal.RequireFromString("0.025"),
		decimal.RequireFromString("0.0333"),
		decimal.RequireFromString("0.5"),
	}
	for _, rc := range rates {
		for _, rf := range rates {
			for amount := int64(1); amount <= 2500; amount++ {
				fees, err := ComputeFees(amount, rc, rf)
				if err != nil {
					t.Fatalf("compute fees(%d, %s, %s): %v", amount, rc, rf, err)
				}
				wantClient := decimal.NewFromInt(amount).Mul(rc).Round(0).IntPart()
				wantFreelancer := decimal.NewFromInt(amount).Mul(rf).Round(0).IntPart()
				if fees.ClientPays != amount+wantClient {
					t.Fatalf("client pays drift for %d @ %s: %d", amount, rc, fees.ClientPays)
				}
				if fees.FreelancerReceives != amount-wantFreelancer {
					t.Fatalf("freelancer receives drift for %d @ %s: %d", amount, rf, fees.FreelancerReceives)
				}
			}
		}
	}
}

func TestComputeFeesRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		amount int64
		rc, rf decimal.Decimal
		want   error
	}{
		{name: "zero amount", amount: 0, rc: DefaultFeeRate, rf: DefaultFeeRate, want: ErrInvalidAmount},
		{name: "negative amount", amount: -5, rc: DefaultFeeRate, rf: DefaultFeeRate, want: ErrInvalidAmount},
		{name: "negative rate", amount: 100, rc: decimal.RequireFromString("-0.01"), rf: DefaultFeeRate, want: ErrInvalidInput},
		{name: "rate of one", amount: 100, rc: DefaultFeeRate, rf: decimal.NewFromInt(1), want: ErrInvalidInput},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ComputeFees(tc.amount, tc.rc, tc.rf); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
