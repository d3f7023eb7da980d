package domain

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

const (
	// ScorePrior is the neutral starting confidence before any rule is applied.
	ScorePrior = 0.7

	MinVideoBytes   int64 = 100 * 1024
	MinWebpageBytes int64 = 1024
)

// ScoringInput is the read-only view every rule inspects.
type ScoringInput struct {
	Category  Category
	SizeBytes int64
	HasText   bool

	description string
	text        string
	words       map[string]struct{}
}

func NewScoringInput(description string, category Category, text *string, sizeBytes int64) ScoringInput {
	tokens := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		words[token] = struct{}{}
	}
	in := ScoringInput{
		Category:    category,
		SizeBytes:   sizeBytes,
		description: " " + strings.Join(tokens, " ") + " ",
		words:       words,
	}
	if text != nil {
		in.HasText = true
		in.text = strings.ToLower(*text)
	}
	return in
}

// Mentions reports whether the task description names any of the terms.
// Single words match whole tokens; multi-word terms match as a phrase.
func (in ScoringInput) Mentions(terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(term, " ") {
			if strings.Contains(in.description, " "+term+" ") {
				return true
			}
			continue
		}
		if _, ok := in.words[term]; ok {
			return true
		}
	}
	return false
}

func (in ScoringInput) ContentContains(markers ...string) bool {
	for _, marker := range markers {
		if strings.Contains(in.text, marker) {
			return true
		}
	}
	return false
}

// HasTag matches an opening tag such as <head> without also matching <header>.
func (in ScoringInput) HasTag(tag string) bool {
	needle := "<" + tag
	rest := in.text
	for {
		idx := strings.Index(rest, needle)
		if idx < 0 {
			return false
		}
		next := idx + len(needle)
		if next >= len(rest) {
			return false
		}
		switch rest[next] {
		case '>', ' ', '\t', '\n', '\r', '/':
			return true
		}
		rest = rest[next:]
	}
}

func (in ScoringInput) textBlank() bool {
	return strings.TrimSpace(in.text) == ""
}

// Effect is what a rule contributes when it passes or fails. Note returns the strength
// (on pass) or issue (on fail) text; an empty note contributes nothing to the lists.
type Effect struct {
	Delta float64
	Note  func(ScoringInput) string
}

type Rule struct {
	Name      string
	Applies   func(ScoringInput) bool
	Satisfied func(ScoringInput) bool
	Pass      Effect
	Fail      Effect
}

// ScoreCard is the accumulator threaded through the rule table.
type ScoreCard struct {
	Score     float64  `json:"confidence_score"`
	Issues    []string `json:"issues"`
	Strengths []string `json:"strengths"`
}

func (c ScoreCard) with(delta float64, issue, strength string) ScoreCard {
	next := ScoreCard{
		Score:     c.Score + delta,
		Issues:    append(make([]string, 0, len(c.Issues)+1), c.Issues...),
		Strengths: append(make([]string, 0, len(c.Strengths)+1), c.Strengths...),
	}
	if issue != "" {
		next.Issues = append(next.Issues, issue)
	}
	if strength != "" {
		next.Strengths = append(next.Strengths, strength)
	}
	return next
}

func (r Rule) apply(card ScoreCard, in ScoringInput) ScoreCard {
	if r.Applies != nil && !r.Applies(in) {
		return card
	}
	if r.Satisfied(in) {
		return card.with(r.Pass.Delta, "", noteOf(r.Pass, in))
	}
	return card.with(r.Fail.Delta, noteOf(r.Fail, in), "")
}

func noteOf(effect Effect, in ScoringInput) string {
	if effect.Note == nil {
		return ""
	}
	return effect.Note(in)
}

// RuleTable is evaluated strictly in slice order so issue and strength ordering is stable.
type RuleTable []Rule

func (t RuleTable) Evaluate(in ScoringInput) ScoreCard {
	card := ScoreCard{Score: ScorePrior, Issues: []string{}, Strengths: []string{}}
	for _, rule := range t {
		card = rule.apply(card, in)
	}
	card.Score = clampScore(card.Score)
	return card
}

// Score evaluates the default rule table.
func Score(description string, category Category, text *string, sizeBytes int64) ScoreCard {
	return DefaultRules().Evaluate(NewScoringInput(description, category, text, sizeBytes))
}

func clampScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return math.Round(score*10000) / 10000
}

func fixed(text string) func(ScoringInput) string {
	return func(ScoringInput) string { return text }
}

func expectsCategory(name string, want Category, failDelta float64, satisfied func(ScoringInput) bool, terms ...string) Rule {
	return Rule{
		Name:      name,
		Applies:   func(in ScoringInput) bool { return in.Mentions(terms...) },
		Satisfied: satisfied,
		Pass: Effect{Delta: 0.10, Note: func(ScoringInput) string {
			return fmt.Sprintf("Submission is a %s file as the task requires", want)
		}},
		Fail: Effect{Delta: failDelta, Note: func(in ScoringInput) string {
			return fmt.Sprintf("Category mismatch: task requires %s but submission is %s", want, in.Category)
		}},
	}
}

func isCategory(want Category) func(ScoringInput) bool {
	return func(in ScoringInput) bool { return in.Category == want }
}

func htmlElementRule(name, tag, label string) Rule {
	return Rule{
		Name:      name,
		Applies:   webpageWithText,
		Satisfied: func(in ScoringInput) bool { return in.HasTag(tag) },
		Fail:      Effect{Delta: -0.05, Note: fixed("Missing " + label)},
	}
}

func webpageWithText(in ScoringInput) bool {
	return in.Category == CategoryWebpage && in.HasText
}

var htmlStructureTags = []string{"!doctype", "html", "head", "body", "title"}

// DefaultRules returns the scoring table in evaluation order.
func DefaultRules() RuleTable {
	return RuleTable{
		expectsCategory("expects-video", CategoryVideo, -0.40, isCategory(CategoryVideo),
			"video", "videos", "footage", "clip", "screencast"),
		expectsCategory("expects-webpage", CategoryWebpage, -0.40, isCategory(CategoryWebpage),
			"landing page", "website", "web page", "webpage", "html", "homepage"),
		expectsCategory("expects-javascript", CategoryJavaScript, -0.30, func(in ScoringInput) bool {
			return in.Category == CategoryJavaScript || (in.Category == CategoryWebpage && in.ContentContains("<script"))
		}, "javascript", "js", "script"),
		expectsCategory("expects-stylesheet", CategoryStylesheet, -0.30, func(in ScoringInput) bool {
			return in.Category == CategoryStylesheet || (in.Category == CategoryWebpage && in.ContentContains("<style"))
		}, "css", "stylesheet"),
		expectsCategory("expects-data", CategoryData, -0.30, isCategory(CategoryData),
			"dataset", "csv", "json", "spreadsheet"),
		expectsCategory("expects-document", CategoryDocument, -0.30, isCategory(CategoryDocument),
			"pdf", "document", "report", "whitepaper"),
		expectsCategory("expects-image", CategoryImage, -0.30, isCategory(CategoryImage),
			"image", "logo", "illustration", "photo", "banner"),
		{
			Name:      "video-size",
			Applies:   isCategory(CategoryVideo),
			Satisfied: func(in ScoringInput) bool { return in.SizeBytes >= MinVideoBytes },
			Fail: Effect{Delta: -0.15, Note: func(in ScoringInput) string {
				return fmt.Sprintf("Video file is implausibly small (%d bytes)", in.SizeBytes)
			}},
		},
		{
			Name:      "webpage-size",
			Applies:   isCategory(CategoryWebpage),
			Satisfied: func(in ScoringInput) bool { return in.SizeBytes >= MinWebpageBytes },
			Fail: Effect{Delta: -0.15, Note: func(in ScoringInput) string {
				return fmt.Sprintf("Webpage file is implausibly small (%d bytes)", in.SizeBytes)
			}},
		},
		{
			Name: "responsive",
			Applies: func(in ScoringInput) bool {
				return in.HasText && in.Mentions("responsive", "mobile")
			},
			Satisfied: func(in ScoringInput) bool { return in.ContentContains("viewport", "@media") },
			Pass:      Effect{Delta: 0.10, Note: fixed("Responsive design markers present")},
			Fail:      Effect{Delta: -0.15, Note: fixed("No responsive design markers (viewport meta or media queries)")},
		},
		{
			Name: "form",
			Applies: func(in ScoringInput) bool {
				return in.HasText && in.Mentions("form", "forms", "contact", "signup", "sign up")
			},
			Satisfied: func(in ScoringInput) bool { return in.HasTag("form") },
			Pass:      Effect{Delta: 0.10, Note: fixed("Form element present")},
			Fail:      Effect{Delta: -0.15, Note: fixed("No form element found")},
		},
		{
			Name: "interactive",
			Applies: func(in ScoringInput) bool {
				return webpageWithText(in) && in.Mentions("interactive", "javascript", "script", "dynamic")
			},
			Satisfied: func(in ScoringInput) bool { return in.ContentContains("<script") },
			Pass:      Effect{Delta: 0.05, Note: fixed("Script element present")},
			Fail:      Effect{Delta: -0.10, Note: fixed("No script element found for interactive behaviour")},
		},
		htmlElementRule("html-doctype", "!doctype", "DOCTYPE declaration"),
		htmlElementRule("html-root", "html", "<html> element"),
		htmlElementRule("html-head", "head", "<head> element"),
		htmlElementRule("html-body", "body", "<body> element"),
		htmlElementRule("html-title", "title", "<title> element"),
		{
			Name:    "html-structure",
			Applies: webpageWithText,
			Satisfied: func(in ScoringInput) bool {
				for _, tag := range htmlStructureTags {
					if !in.HasTag(tag) {
						return false
					}
				}
				return true
			},
			Pass: Effect{Delta: 0.05, Note: fixed("Complete HTML document structure")},
		},
		{
			Name: "empty-content",
			Applies: func(in ScoringInput) bool {
				return in.HasText && IsTextBearing(in.Category)
			},
			Satisfied: func(in ScoringInput) bool { return !in.textBlank() },
			Fail:      Effect{Delta: -0.30, Note: fixed("Submission file is empty")},
		},
		{
			Name:      "unknown-type",
			Applies:   isCategory(CategoryUnknown),
			Satisfied: func(ScoringInput) bool { return false },
			Fail:      Effect{Delta: -0.20, Note: fixed("Unrecognized file type")},
		},
	}
}
