package domain

import (
	"strings"
	"testing"
)

func TestVerdictBoundaries(t *testing.T) {
	t.Parallel()

	policy := DefaultVerdictPolicy()
	issues := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = "issue"
		}
		return out
	}
	tests := []struct {
		name   string
		score  float64
		issues int
		want   bool
	}{
		{name: "exactly min score", score: 0.6, issues: 0, want: true},
		{name: "just below min score", score: 0.5999, issues: 0, want: false},
		{name: "max issues allowed", score: 0.9, issues: 3, want: true},
		{name: "too many issues", score: 0.9, issues: 4, want: false},
		{name: "perfect", score: 1, issues: 0, want: true},
		{name: "zero", score: 0, issues: 0, want: false},
	}
	for _, tc := range tests {
		got, _ := policy.Decide(tc.score, issues(tc.issues))
		if got != tc.want {
			t.Fatalf("%s: Decide(%v, %d) = %v", tc.name, tc.score, tc.issues, got)
		}
	}
}

func TestVerdictFeedbackTiers(t *testing.T) {
	t.Parallel()

	policy := DefaultVerdictPolicy()
	tests := []struct {
		score  float64
		issues []string
		prefix string
	}{
		{score: 0.85, prefix: "Excellent"},
		{score: 0.75, prefix: "Good"},
		{score: 0.65, prefix: "Acceptable"},
		{score: 0.1, issues: []string{"a"}, prefix: "The submission has significant issues"},
		{score: 0.4, issues: []string{"a"}, prefix: "The submission has multiple issues"},
		{score: 0.55, issues: []string{"a"}, prefix: "Some requirements were not met"},
	}
	for _, tc := range tests {
		_, feedback := policy.Decide(tc.score, tc.issues)
		if !strings.HasPrefix(feedback, tc.prefix) {
			t.Fatalf("score %v: expected prefix %q, got %q", tc.score, tc.prefix, feedback)
		}
	}

	_, feedback := policy.Decide(0.2, []string{"Missing <title> element", "No form element found"})
	if !strings.Contains(feedback, "Missing <title> element; No form element found") {
		t.Fatalf("expected issues to be listed in order, got %q", feedback)
	}
}

func TestVerifyCopiesScoreCard(t *testing.T) {
	t.Parallel()

	card := ScoreCard{Score: 0.7, Issues: []string{"x"}, Strengths: []string{"y"}}
	result := VerdictPolicy{MinScore: 0.8, MaxIssues: 3}.Verify(card)
	if result.Verified || result.ConfidenceScore != 0.7 || result.Issues[0] != "x" || result.Strengths[0] != "y" {
		t.Fatalf("unexpected result %+v", result)
	}
}
