// Package matching implements fuzzy equality between a free-text user
// answer and a set of accepted reference answers.
package matching

import (
	"math"
	"strings"
)

// Minimum normalized length for the fuzzy paths, applied to both sides:
// when either the user answer or the reference falls below it, only an
// exact match counts. Short tokens cannot false-positive against longer
// text from either direction.
const fuzzyMinLen = 4

// Overlap thresholds for the two fuzzy paths
const (
	overlapThreshold        = 0.70
	synonymOverlapThreshold = 0.50
)

// punctuation stripped during normalization
const punctuation = `.,!?;:"()[]{}<>/\-_&*#@%+=~|`

// apostrophe variants standardized before stripping
var apostropheReplacer = strings.NewReplacer(
	"’", "'", // right single quote
	"‘", "'", // left single quote
	"`", "'",
)

// leading articles dropped from answers
var articles = map[string]bool{"the": true, "a": true, "an": true}

// written numerals substituted with digits
var numerals = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
}

// hand-authored synonym groups for the relaxed match path
var synonymGroups = [][]string{
	{"increase", "improve", "enhance", "boost", "grow", "raise"},
	{"decrease", "reduce", "lower", "minimize", "cut"},
	{"customer", "client", "user", "consumer", "buyer"},
	{"revenue", "sales", "income", "earnings"},
	{"problem", "issue", "challenge", "obstacle"},
	{"fast", "quick", "rapid", "speedy"},
	{"goal", "objective", "target", "aim"},
}

// Normalize canonicalizes an answer string for comparison: lowercase,
// apostrophe standardization (with possessive 's removal), punctuation
// strip, written numerals one..five to digits, leading article drop and
// whitespace collapse.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = apostropheReplacer.Replace(s)
	s = strings.ReplaceAll(s, "'s", "")
	s = strings.ReplaceAll(s, "'", "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(punctuation, r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}

	words := strings.Fields(b.String())
	out := make([]string, 0, len(words))
	for i, w := range words {
		if i == 0 && articles[w] {
			continue
		}
		if digit, ok := numerals[w]; ok {
			w = digit
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// IsMatch reports whether a user answer matches one reference answer.
// Both inputs are normalized internally.
func IsMatch(userAnswer, reference string) bool {
	user := Normalize(userAnswer)
	ref := Normalize(reference)

	if user == "" || ref == "" {
		return user == ref && user != ""
	}

	if user == ref {
		return true
	}

	// Short answers on either side get no fuzzy path
	if len(ref) < fuzzyMinLen || len(user) < fuzzyMinLen {
		return false
	}

	overlap := wordOverlap(user, ref)
	if overlap >= overlapThreshold {
		return true
	}

	if sharedSynonymGroup(user, ref) && overlap >= synonymOverlapThreshold {
		return true
	}

	return false
}

// wordOverlap returns the share of reference words (length > 2) also
// present in the user answer, relative to the reference word count.
func wordOverlap(user, ref string) float64 {
	refWords := strings.Fields(ref)
	if len(refWords) == 0 {
		return 0
	}

	userSet := make(map[string]bool)
	for _, w := range strings.Fields(user) {
		userSet[w] = true
	}

	shared := 0
	for _, w := range refWords {
		if len(w) > 2 && userSet[w] {
			shared++
		}
	}
	return float64(shared) / float64(len(refWords))
}

// sharedSynonymGroup reports whether both strings contain a term from the
// same synonym group.
func sharedSynonymGroup(user, ref string) bool {
	userSet := make(map[string]bool)
	for _, w := range strings.Fields(user) {
		userSet[w] = true
	}
	refSet := make(map[string]bool)
	for _, w := range strings.Fields(ref) {
		refSet[w] = true
	}

	for _, group := range synonymGroups {
		inUser, inRef := false, false
		for _, term := range group {
			if userSet[term] {
				inUser = true
			}
			if refSet[term] {
				inRef = true
			}
		}
		if inUser && inRef {
			return true
		}
	}
	return false
}

// Question is one graded item: a user answer against accepted references
type Question struct {
	Question       string   `json:"question"`
	UserAnswer     string   `json:"userAnswer"`
	CorrectAnswers []string `json:"correctAnswers"`
}

// QuestionResult reports the outcome for one question
type QuestionResult struct {
	Question      string `json:"question"`
	UserAnswer    string `json:"userAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	MatchedAnswer string `json:"matchedAnswer,omitempty"`
}

// GradeResult aggregates a full validation request
type GradeResult struct {
	TotalQuestions   int              `json:"totalQuestions"`
	CorrectAnswers   int              `json:"correctAnswers"`
	IncorrectAnswers int              `json:"incorrectAnswers"`
	Accuracy         float64          `json:"accuracy"`
	Details          []QuestionResult `json:"details"`
}

// Grade matches every question against its accepted answers and aggregates
// accuracy as correct/total*100, rounded to 2 decimals.
func Grade(questions []Question) *GradeResult {
	result := &GradeResult{
		TotalQuestions: len(questions),
		Details:        make([]QuestionResult, 0, len(questions)),
	}

	for _, q := range questions {
		qr := QuestionResult{Question: q.Question, UserAnswer: q.UserAnswer}
		for _, ref := range q.CorrectAnswers {
			if IsMatch(q.UserAnswer, ref) {
				qr.IsCorrect = true
				qr.MatchedAnswer = ref
				break
			}
		}
		if qr.IsCorrect {
			result.CorrectAnswers++
		} else {
			result.IncorrectAnswers++
		}
		result.Details = append(result.Details, qr)
	}

	if result.TotalQuestions > 0 {
		raw := float64(result.CorrectAnswers) / float64(result.TotalQuestions) * 100
		result.Accuracy = math.Round(raw*100) / 100
	}
	return result
}
