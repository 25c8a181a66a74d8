package assessment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	courseModels "lms/models/course"
)

// Answer is what a learner submitted for one question. Choice questions carry
// option ids, short answers carry text. On the wire it is a number (one
// option), an array of numbers (several options) or a string (text).
type Answer struct {
	OptionIDs []uint
	Text      string
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = Answer{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Answer{Text: s}
	case '[':
		var ids []uint
		if err := json.Unmarshal(b, &ids); err != nil {
			return err
		}
		*a = Answer{OptionIDs: ids}
	case '{':
		var obj struct {
			OptionIDs []uint `json:"option_ids"`
			OptionID  *uint  `json:"option_id"`
			Text      string `json:"text"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*a = Answer{OptionIDs: obj.OptionIDs, Text: obj.Text}
		if obj.OptionID != nil {
			a.OptionIDs = append(a.OptionIDs, *obj.OptionID)
		}
	default:
		var id uint
		if err := json.Unmarshal(b, &id); err != nil {
			return fmt.Errorf("answer must be an option id, a list of option ids or text: %w", err)
		}
		*a = Answer{OptionIDs: []uint{id}}
	}
	return nil
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if len(a.OptionIDs) == 0 {
		return json.Marshal(a.Text)
	}
	if len(a.OptionIDs) == 1 {
		return json.Marshal(a.OptionIDs[0])
	}
	return json.Marshal(a.OptionIDs)
}

func (a Answer) Empty() bool {
	return len(a.OptionIDs) == 0 && strings.TrimSpace(a.Text) == ""
}

// IsCorrect grades one answer against its question.
func IsCorrect(q courseModels.AssessmentQuestion, a Answer) bool {
	switch q.QuestionType {
	case courseModels.QuestionShortAnswer:
		want := strings.TrimSpace(q.CorrectText)
		return want != "" && strings.EqualFold(strings.TrimSpace(a.Text), want)
	case courseModels.QuestionMultipleChoice:
		return sameSet(correctOptions(q), a.OptionIDs)
	default:
		// single_choice, true_false
		correct := correctOptions(q)
		return len(correct) == 1 && len(a.OptionIDs) == 1 && correct[0] == a.OptionIDs[0]
	}
}

func correctOptions(q courseModels.AssessmentQuestion) []uint {
	var ids []uint
	for _, o := range q.Options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func sameSet(want, got []uint) bool {
	if len(want) == 0 {
		return false
	}
	w := dedupe(want)
	g := dedupe(got)
	if len(w) != len(g) {
		return false
	}
	for i := range w {
		if w[i] != g[i] {
			return false
		}
	}
	return true
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Grade is the outcome of scoring a whole attempt.
type Grade struct {
	Score      float64
	MaxScore   float64
	Percentage float64
	Passed     bool
	// Awarded and Correct are keyed by question id.
	Awarded map[uint]float64
	Correct map[uint]bool
}

// Percent is score/max*100 rounded to two decimals, 0 when max is 0.
func Percent(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return math.Round(score/max*100*100) / 100
}

// Score grades answers (keyed by question id) against the questions.
// Unanswered questions score zero but still count toward the maximum.
func Score(questions []courseModels.AssessmentQuestion, answers map[uint]Answer, passingScore float64) Grade {
	g := Grade{
		Awarded: make(map[uint]float64, len(questions)),
		Correct: make(map[uint]bool, len(questions)),
	}
	for _, q := range questions {
		g.MaxScore += q.Points
		a, ok := answers[q.ID]
		if !ok || a.Empty() {
			g.Awarded[q.ID] = 0
			continue
		}
		if IsCorrect(q, a) {
			g.Score += q.Points
			g.Awarded[q.ID] = q.Points
			g.Correct[q.ID] = true
		} else {
			g.Awarded[q.ID] = 0
		}
	}
	g.Percentage = Percent(g.Score, g.MaxScore)
	g.Passed = g.MaxScore > 0 && g.Percentage >= passingScore
	return g
}

// CompletionDue is the completion policy applied after a submit: the
// assessment's context completes when the attempt passed or when no attempts
// remain. maxAttempts 0 means unlimited. The attempt state machine itself
// never makes this decision.
func CompletionDue(passed bool, attemptsUsed, maxAttempts int) bool {
	if passed {
		return true
	}
	return maxAttempts > 0 && attemptsUsed >= maxAttempts
}
