package domain

import (
	"strings"
	"time"
)

const (
	DefaultMinScore  = 0.6
	DefaultMaxIssues = 3
)

type VerdictPolicy struct {
	MinScore  float64
	MaxIssues int
}

func DefaultVerdictPolicy() VerdictPolicy {
	return VerdictPolicy{MinScore: DefaultMinScore, MaxIssues: DefaultMaxIssues}
}

// Decide is the only place a numeric score becomes a business decision.
func (p VerdictPolicy) Decide(score float64, issues []string) (bool, string) {
	verified := score >= p.MinScore && len(issues) <= p.MaxIssues
	if verified {
		switch {
		case score >= 0.8:
			return true, "Excellent work! The submission meets all requirements."
		case score >= 0.7:
			return true, "Good work. The submission satisfies the requirements."
		default:
			return true, "Acceptable submission. The requirements are met with minor gaps."
		}
	}

	var lead string
	switch {
	case score < 0.3:
		lead = "The submission has significant issues"
	case score < 0.5:
		lead = "The submission has multiple issues"
	default:
		lead = "Some requirements were not met"
	}
	if len(issues) == 0 {
		return false, lead + "."
	}
	return false, lead + ": " + strings.Join(issues, "; ") + "."
}

type VerificationResult struct {
	ConfidenceScore float64  `json:"confidence_score"`
	Issues          []string `json:"issues"`
	Strengths       []string `json:"strengths"`
	Verified        bool     `json:"verified"`
	Feedback        string   `json:"feedback"`
}

func (p VerdictPolicy) Verify(card ScoreCard) VerificationResult {
	verified, feedback := p.Decide(card.Score, card.Issues)
	return VerificationResult{
		ConfidenceScore: card.Score,
		Issues:          card.Issues,
		Strengths:       card.Strengths,
		Verified:        verified,
		Feedback:        feedback,
	}
}

// VerificationRecord is the audit row kept for every recorded verdict.
type VerificationRecord struct {
	VerificationID  string    `json:"verification_id"`
	EscrowID        string    `json:"escrow_id"`
	FileName        string    `json:"file_name"`
	Category        Category  `json:"category"`
	SizeBytes       int64     `json:"size_bytes"`
	ConfidenceScore float64   `json:"confidence_score"`
	Verified        bool      `json:"verified"`
	Issues          []string  `json:"issues"`
	Strengths       []string  `json:"strengths"`
	Feedback        string    `json:"feedback"`
	CreatedAt       time.Time `json:"created_at"`
}
