package eval

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// Verdict is the outcome of one scoring axis.
type Verdict string

const (
	Pass    Verdict = "PASS"
	Partial Verdict = "PARTIAL"
	Fail    Verdict = "FAIL"
)

// declinePhrases mark a correctly declined answer. An unanswerable question
// passes only when one of these appears. The last two cover the router's
// out-of-scope decline, which is just as valid as the prompt's template.
var declinePhrases = []string{
	"not available", "not found", "no information", "don't have",
	"cannot answer", "not mentioned", "not in the provided", "not covered",
	"can't assist", "cannot assist",
}

// fabricationSignals are hedging phrases a grounded answer should never need.
var fabricationSignals = []string{
	"i think", "i believe", "probably", "it's likely",
	"i assume", "generally speaking", "in most companies",
}

// Score holds the per-axis verdicts for one answer.
type Score struct {
	KeywordScore    float64  `json:"keyword_score"`
	KeywordsFound   []string `json:"keywords_found"`
	KeywordsMissing []string `json:"keywords_missing"`
	Accuracy        Verdict  `json:"accuracy"`
	Hallucination   Verdict  `json:"hallucination"`
	Clarity         Verdict  `json:"clarity"`
	Overall         Verdict  `json:"overall"`
}

// Judge lets a hosted model override the rule-based overall verdict. The rule
// scores are still computed and kept in the report for comparison.
type Judge interface {
	Judge(ctx context.Context, question Question, answer string) (Verdict, error)
}

func checkKeywords(answer string, keywords []string) (found, missing []string) {
	lower := strings.ToLower(answer)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			found = append(found, kw)
		} else {
			missing = append(missing, kw)
		}
	}
	return found, missing
}

func checkHallucination(answer string, category Category) Verdict {
	lower := strings.ToLower(answer)

	if category == Unanswerable {
		for _, p := range declinePhrases {
			if strings.Contains(lower, p) {
				return Pass
			}
		}
		return Fail
	}

	for _, s := range fabricationSignals {
		if strings.Contains(lower, s) {
			return Partial
		}
	}
	return Pass
}

func checkClarity(answer string) Verdict {
	trimmed := strings.TrimSpace(answer)
	if len(trimmed) < 10 {
		return Fail
	}
	if len(trimmed) > 1500 {
		return Partial
	}
	last := rune(trimmed[len(trimmed)-1])
	if unicode.IsLetter(last) || unicode.IsDigit(last) {
		// Trailing word with no terminal punctuation reads as truncated
		// output from the model.
		return Partial
	}
	return Pass
}

// scoreAnswer applies the rule matrix for one question/answer pair.
func scoreAnswer(q Question, answer string) Score {
	found, missing := checkKeywords(answer, q.Keywords)
	kwScore := 1.0
	if len(q.Keywords) > 0 {
		kwScore = float64(len(found)) / float64(len(q.Keywords))
	}
	kwScore = math.Round(kwScore*100) / 100

	hall := checkHallucination(answer, q.Category)
	clarity := checkClarity(answer)

	var accuracy, overall Verdict
	switch q.Category {
	case Unanswerable:
		if hall == Pass {
			accuracy, overall = Pass, Pass
		} else {
			accuracy, overall = Fail, Fail
		}
	case PartiallyAnswerable:
		switch {
		case kwScore >= 0.5:
			accuracy, overall = Pass, Pass
		case kwScore >= 0.3 && hall != Fail:
			accuracy, overall = Partial, Partial
		default:
			accuracy, overall = Fail, Fail
		}
	default: // Answerable
		switch {
		case kwScore >= 0.5 && hall == Pass:
			accuracy, overall = Pass, Pass
		case kwScore >= 0.25:
			accuracy, overall = Partial, Partial
		default:
			accuracy, overall = Fail, Fail
		}
	}

	return Score{
		KeywordScore:    kwScore,
		KeywordsFound:   found,
		KeywordsMissing: missing,
		Accuracy:        accuracy,
		Hallucination:   hall,
		Clarity:         clarity,
		Overall:         overall,
	}
}
