package app

import (
	"regexp"
	"strconv"
	"strings"

	"quiz-battle-service/internal/domain"
)

// EvaluatorConfig carries the grading heuristics. The defaults mirror the
// product tuning but both knobs are overridable via config.
type EvaluatorConfig struct {
	// NumericTolerance is the relative tolerance band for numeric answers:
	// |user - expected| <= NumericTolerance * |expected|.
	NumericTolerance float64
	// FuzzyMatchThreshold is the minimum fraction of significant expected
	// words that must match for a long-form text answer to count as correct.
	FuzzyMatchThreshold float64
}

// DefaultEvaluatorConfig returns the production defaults.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		NumericTolerance:    0.05,
		FuzzyMatchThreshold: 0.70,
	}
}

// Evaluator grades answers deterministically. No network, no model calls;
// every ambiguity resolves to incorrect.
type Evaluator struct {
	cfg EvaluatorConfig
}

func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	if cfg.NumericTolerance <= 0 {
		cfg.NumericTolerance = DefaultEvaluatorConfig().NumericTolerance
	}
	if cfg.FuzzyMatchThreshold <= 0 {
		cfg.FuzzyMatchThreshold = DefaultEvaluatorConfig().FuzzyMatchThreshold
	}
	return &Evaluator{cfg: cfg}
}

// EvaluateChoice grades an MCQ selection. The NoSelection sentinel never
// matches a valid index, so a timed-out question always grades incorrect.
func (e *Evaluator) EvaluateChoice(q domain.Question, selected int) bool {
	if selected == domain.NoSelection {
		return false
	}
	return selected == q.CorrectIndex
}

// EvaluateOpen grades a free-text answer against the question's expected
// answers. Empty or whitespace-only input is always incorrect.
func (e *Evaluator) EvaluateOpen(q domain.Question, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, expected := range q.ExpectedAnswers {
		if q.AnswerFormat == domain.FormatNumeric {
			if e.matchNumeric(text, expected) {
				return true
			}
			continue
		}
		if e.matchText(text, expected) {
			return true
		}
	}
	return false
}

var numericToken = regexp.MustCompile(`[-+]?\d*\.?\d+`)

// matchNumeric extracts the first numeric token from each side and compares
// them within the relative tolerance band. A user answer with no extractable
// number is incorrect.
func (e *Evaluator) matchNumeric(user, expected string) bool {
	userVal, ok := firstNumber(user)
	if !ok {
		return false
	}
	expVal, ok := firstNumber(expected)
	if !ok {
		return false
	}
	diff := userVal - expVal
	if diff < 0 {
		diff = -diff
	}
	mag := expVal
	if mag < 0 {
		mag = -mag
	}
	return diff <= e.cfg.NumericTolerance*mag
}

func firstNumber(s string) (float64, bool) {
	token := numericToken.FindString(s)
	if token == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var nonWord = regexp.MustCompile(`[^a-z0-9\s]+`)
var whitespace = regexp.MustCompile(`\s+`)

// normalize lowercases, strips punctuation, and collapses whitespace.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWord.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// matchText grades a text answer: exact normalized equality first, then a
// significant-word overlap ratio for long-form expected answers. Short
// expected answers (two or fewer significant words) demand exact equality so
// "paris city" never gets credit for "Paris".
func (e *Evaluator) matchText(user, expected string) bool {
	normUser := normalize(user)
	normExp := normalize(expected)
	if normUser == "" || normExp == "" {
		return false
	}
	if normUser == normExp {
		return true
	}

	expWords := significantWords(normExp)
	if len(expWords) <= 2 {
		return false
	}

	userWords := strings.Fields(normUser)
	matched := 0
	for _, ew := range expWords {
		if wordMatches(ew, userWords) {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(expWords))
	return ratio >= e.cfg.FuzzyMatchThreshold
}

// significantWords keeps words longer than two characters; articles and
// glue words carry no grading signal.
func significantWords(norm string) []string {
	var out []string
	for _, w := range strings.Fields(norm) {
		if len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

// wordMatches accepts substring containment in either direction, so
// "searching" matches expected "search" and vice versa.
func wordMatches(expected string, userWords []string) bool {
	for _, uw := range userWords {
		if strings.Contains(uw, expected) {
			return true
		}
		// Reverse containment only for significant user words; "a" is a
		// substring of almost everything.
		if len(uw) > 2 && strings.Contains(expected, uw) {
			return true
		}
	}
	return false
}
