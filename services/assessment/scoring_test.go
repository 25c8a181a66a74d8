package assessment

import (
	"encoding/json"
	"testing"

	courseModels "lms/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func choice(id uint, typ string, points float64, correct ...uint) courseModels.AssessmentQuestion {
	q := courseModels.AssessmentQuestion{ID: id, QuestionType: typ, Points: points}
	for _, o := range []uint{id*10 + 1, id*10 + 2, id*10 + 3} {
		isCorrect := false
		for _, c := range correct {
			if c == o {
				isCorrect = true
			}
		}
		q.Options = append(q.Options, courseModels.AssessmentOption{ID: o, QuestionID: id, IsCorrect: isCorrect})
	}
	return q
}

func TestAnswer_DecodesEveryWireShape(t *testing.T) {
	cases := map[string]Answer{
		`12`:                                 {OptionIDs: []uint{12}},
		`[3, 1]`:                             {OptionIDs: []uint{3, 1}},
		`"Paris"`:                            {Text: "Paris"},
		`{"option_id": 4}`:                   {OptionIDs: []uint{4}},
		`{"option_ids": [5,6]}`:              {OptionIDs: []uint{5, 6}},
		`{"text": "go", "option_ids": null}`: {Text: "go"},
		`null`:                               {},
	}
	for raw, want := range cases {
		var got Answer
		require.NoError(t, json.Unmarshal([]byte(raw), &got), raw)
		assert.Equal(t, want, got, raw)
	}

	var bad Answer
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

func TestIsCorrect(t *testing.T) {
	single := choice(1, courseModels.QuestionSingleChoice, 1, 12)
	assert.True(t, IsCorrect(single, Answer{OptionIDs: []uint{12}}))
	assert.False(t, IsCorrect(single, Answer{OptionIDs: []uint{11}}))
	assert.False(t, IsCorrect(single, Answer{OptionIDs: []uint{12, 11}}))

	multi := choice(2, courseModels.QuestionMultipleChoice, 1, 21, 23)
	assert.True(t, IsCorrect(multi, Answer{OptionIDs: []uint{23, 21, 21}}))
	assert.False(t, IsCorrect(multi, Answer{OptionIDs: []uint{21}}))
	assert.False(t, IsCorrect(multi, Answer{OptionIDs: []uint{21, 22, 23}}))

	short := courseModels.AssessmentQuestion{ID: 3, QuestionType: courseModels.QuestionShortAnswer, CorrectText: "Goroutine"}
	assert.True(t, IsCorrect(short, Answer{Text: "  goroutine "}))
	assert.False(t, IsCorrect(short, Answer{Text: "thread"}))

	unset := courseModels.AssessmentQuestion{ID: 4, QuestionType: courseModels.QuestionShortAnswer}
	assert.False(t, IsCorrect(unset, Answer{Text: ""}))
}

func TestScore(t *testing.T) {
	qs := []courseModels.AssessmentQuestion{
		choice(1, courseModels.QuestionSingleChoice, 5, 11),
		choice(2, courseModels.QuestionTrueFalse, 3, 21),
		choice(3, courseModels.QuestionMultipleChoice, 2, 31, 32),
	}
	g := Score(qs, map[uint]Answer{
		1: {OptionIDs: []uint{11}},
		2: {OptionIDs: []uint{22}},
	}, 50)
	assert.Equal(t, 5.0, g.Score)
	assert.Equal(t, 10.0, g.MaxScore)
	assert.Equal(t, 50.0, g.Percentage)
	assert.True(t, g.Passed)
	assert.True(t, g.Correct[1])
	assert.False(t, g.Correct[2])
	assert.Equal(t, 0.0, g.Awarded[3])

	assert.Equal(t, 33.33, Percent(1, 3))
	assert.Equal(t, 0.0, Percent(3, 0))

	empty := Score(nil, nil, 0)
	assert.False(t, empty.Passed, "an assessment without points cannot be passed")
}

func TestCompletionDue(t *testing.T) {
	assert.True(t, CompletionDue(true, 1, 2))
	assert.False(t, CompletionDue(false, 1, 2))
	assert.True(t, CompletionDue(false, 2, 2))
	assert.False(t, CompletionDue(false, 9, 0), "unlimited attempts never exhaust")
}
