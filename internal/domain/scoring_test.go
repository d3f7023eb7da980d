package domain

import (
	"strings"
	"testing"
)

func landingPageHTML() string {
	body := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Acme</title>
</head>
<body>
  <header><h1>Acme</h1></header>
  <form action="/contact" method="post">
    <input name="email" type="email">
    <button type="submit">Send</button>
  </form>
</body>
</html>
`
	return body + "<!--" + strings.Repeat("padding ", 160) + "-->\n"
}

func TestScoreResponsiveLandingPage(t *testing.T) {
	t.Parallel()

	html := landingPageHTML()
	card := Score("Build a responsive landing page with a contact form", CategoryWebpage, &html, int64(len(html)))
	if card.Score < 0.95 || card.Score > 1 {
		t.Fatalf("expected score in [0.95,1], got %v (issues=%v)", card.Score, card.Issues)
	}
	if len(card.Issues) != 0 {
		t.Fatalf("expected no issues, got %v", card.Issues)
	}
	result := DefaultVerdictPolicy().Verify(card)
	if !result.Verified {
		t.Fatalf("expected verified result, got %+v", result)
	}
	if !strings.HasPrefix(result.Feedback, "Excellent") {
		t.Fatalf("expected excellent feedback, got %q", result.Feedback)
	}
}

func TestScoreVideoTaskWithSmallWebpage(t *testing.T) {
	t.Parallel()

	card := Score("Create a 2-minute demo video", CategoryWebpage, nil, 800)
	if card.Score > 0.2 {
		t.Fatalf("expected heavy penalty, got %v", card.Score)
	}
	result := DefaultVerdictPolicy().Verify(card)
	if result.Verified {
		t.Fatalf("expected rejection")
	}
	var mismatch bool
	for _, issue := range card.Issues {
		if strings.HasPrefix(issue, "Category mismatch") {
			mismatch = true
		}
	}
	if !mismatch {
		t.Fatalf("expected a category mismatch issue, got %v", card.Issues)
	}
	if !strings.Contains(result.Feedback, "Category mismatch") {
		t.Fatalf("expected rejected feedback to enumerate issues, got %q", result.Feedback)
	}
}

func TestScoreIsAlwaysClamped(t *testing.T) {
	t.Parallel()

	descriptions := []string{
		"",
		"video website javascript css dataset pdf logo responsive form interactive",
		"Build a responsive landing page with a contact form and interactive javascript",
		"Make a logo",
	}
	empty := ""
	html := landingPageHTML()
	texts := []*string{nil, &empty, &html}
	sizes := []int64{0, 10, 2048, 10 << 20}
	for _, description := range descriptions {
		for _, category := range AllCategories {
			for _, text := range texts {
				for _, size := range sizes {
					card := Score(description, category, text, size)
					if card.Score < 0 || card.Score > 1 {
						t.Fatalf("score %v out of range for %q/%s/%d", card.Score, description, category, size)
					}
				}
			}
		}
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	t.Parallel()

	html := landingPageHTML()
	first := Score("interactive responsive website with signup form", CategoryWebpage, &html, 4096)
	for i := 0; i < 20; i++ {
		next := Score("interactive responsive website with signup form", CategoryWebpage, &html, 4096)
		if next.Score != first.Score || strings.Join(next.Issues, "|") != strings.Join(first.Issues, "|") ||
			strings.Join(next.Strengths, "|") != strings.Join(first.Strengths, "|") {
			t.Fatalf("scoring is not deterministic: %+v vs %+v", first, next)
		}
	}
}

func TestScoreEmptyTextFile(t *testing.T) {
	t.Parallel()

	blank := "   \n"
	card := Score("Write the release notes", CategoryText, &blank, int64(len(blank)))
	if len(card.Issues) != 1 || card.Issues[0] != "Submission file is empty" {
		t.Fatalf("expected empty-content issue, got %v", card.Issues)
	}
	if card.Score != 0.4 {
		t.Fatalf("expected 0.7-0.3, got %v", card.Score)
	}
}

func TestScoreUnknownType(t *testing.T) {
	t.Parallel()

	card := Score("Deliver the assets", CategoryUnknown, nil, 100)
	if card.Score != 0.5 {
		t.Fatalf("expected 0.5, got %v", card.Score)
	}
	if len(card.Issues) != 1 || card.Issues[0] != "Unrecognized file type" {
		t.Fatalf("unexpected issues %v", card.Issues)
	}
}

func TestMentionsMatchesWholeWords(t *testing.T) {
	t.Parallel()

	in := NewScoringInput("Write a JSON-schema for the transcript", CategoryData, nil, 0)
	if !in.Mentions("json") {
		t.Fatalf("expected json token to match")
	}
	if in.Mentions("script") {
		t.Fatalf("script must not match inside transcript")
	}
	phrase := NewScoringInput("A landing   page for launch", CategoryWebpage, nil, 0)
	if !phrase.Mentions("landing page") {
		t.Fatalf("expected phrase match across repeated whitespace")
	}
}

func TestHasTagDoesNotMatchPrefixes(t *testing.T) {
	t.Parallel()

	text := "<header>nav</header>"
	in := NewScoringInput("", CategoryWebpage, &text, 0)
	if in.HasTag("head") {
		t.Fatalf("<header> must not satisfy <head>")
	}
	if !in.HasTag("header") {
		t.Fatalf("expected <header> to match")
	}
}

func TestRuleTableOrderIsStable(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for _, rule := range DefaultRules() {
		if rule.Name == "" || rule.Satisfied == nil {
			t.Fatalf("rule without name or predicate: %+v", rule)
		}
		if _, dup := seen[rule.Name]; dup {
			t.Fatalf("duplicate rule name %q", rule.Name)
		}
		seen[rule.Name] = struct{}{}
	}
	if len(seen) != 20 {
		t.Fatalf("expected 20 rules, got %d", len(seen))
	}
}
