package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultFeeRate is the platform fee charged to each party (1%).
var DefaultFeeRate = decimal.RequireFromString("0.01")

// FeeBreakdown is derived entirely from RawAmount and the two rates.
// Amounts are in the currency's smallest unit.
type FeeBreakdown struct {
	RawAmount          int64           `json:"raw_amount"`
	ClientFeeRate      decimal.Decimal `json:"client_fee_rate"`
	FreelancerFeeRate  decimal.Decimal `json:"freelancer_fee_rate"`
	ClientFee          int64           `json:"client_fee"`
	FreelancerFee      int64           `json:"freelancer_fee"`
	ClientPays         int64           `json:"client_pays"`
	FreelancerReceives int64           `json:"freelancer_receives"`
}

// ComputeFees rounds each fee half-up to the smallest currency unit.
func ComputeFees(amount int64, clientRate, freelancerRate decimal.Decimal) (FeeBreakdown, error) {
	if amount <= 0 {
		return FeeBreakdown{}, fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidAmount, amount)
	}
	if err := validateRate("client", clientRate); err != nil {
		return FeeBreakdown{}, err
	}
	if err := validateRate("freelancer", freelancerRate); err != nil {
		return FeeBreakdown{}, err
	}
	raw := decimal.NewFromInt(amount)
	clientFee := raw.Mul(clientRate).Round(0).IntPart()
	freelancerFee := raw.Mul(freelancerRate).Round(0).IntPart()
	return FeeBreakdown{
		RawAmount:          amount,
		ClientFeeRate:      clientRate,
		FreelancerFeeRate:  freelancerRate,
		ClientFee:          clientFee,
		FreelancerFee:      freelancerFee,
		ClientPays:         amount + clientFee,
		FreelancerReceives: amount - freelancerFee,
	}, nil
}

// PlatformTake is what the platform keeps when an escrow is released.
func (f FeeBreakdown) PlatformTake() int64 {
	return f.ClientFee + f.FreelancerFee
}

// Equal compares breakdowns field by field, rates numerically.
func (f FeeBreakdown) Equal(other FeeBreakdown) bool {
	return f.RawAmount == other.RawAmount &&
		f.ClientFeeRate.Equal(other.ClientFeeRate) &&
		f.FreelancerFeeRate.Equal(other.FreelancerFeeRate) &&
		f.ClientFee == other.ClientFee &&
		f.FreelancerFee == other.FreelancerFee &&
		f.ClientPays == other.ClientPays &&
		f.FreelancerReceives == other.FreelancerReceives
}

// Validate rejects a breakdown whose derived fields were not computed from RawAmount and the
// two rates.
func (f FeeBreakdown) Validate() error {
	want, err := ComputeFees(f.RawAmount, f.ClientFeeRate, f.FreelancerFeeRate)
	if err != nil {
		return err
	}
	if !f.Equal(want) {
		return fmt.Errorf("%w: fee breakdown does not derive from amount %d", ErrInvalidInput, f.RawAmount)
	}
	return nil
}

func validateRate(party string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s fee rate must be in [0,1), got %s", ErrInvalidInput, party, rate.String())
	}
	return nil
}
