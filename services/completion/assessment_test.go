package completion_test

import (
	"context"
	"testing"

	"lms/apperr"
	courseModels "lms/models/course"
	"lms/services/assessment"
	"lms/services/completion"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// submitAttempt launches, answers and submits one attempt, then applies the
// completion policy through the tracker, as the submit endpoint does.
func submitAttempt(t *testing.T, e env, p *assessment.Player, req assessment.LaunchRequest, answers map[uint]assessment.Answer) (*assessment.SubmitResult, *completion.TrackResult) {
	t.Helper()
	ctx := context.Background()
	l, err := p.CreateOrGetAttempt(ctx, e.db, req)
	require.NoError(t, err)
	for qid, a := range answers {
		require.NoError(t, p.SaveAnswer(ctx, e.db, assessment.SaveAnswerRequest{
			AttemptID: l.Attempt.ID, UserID: req.UserID, ClientID: req.ClientID, QuestionID: qid, Answer: a,
		}))
	}
	sub, err := p.SubmitAssessment(ctx, e.db, l.Attempt.ID, req.UserID, req.ClientID)
	require.NoError(t, err)

	track, err := e.tracker.RecordAssessmentAttempt(ctx, testutil.Learner(req.UserID, req.ClientID), completion.AttemptRecord{
		Attempt:       sub.Attempt,
		AttemptsUsed:  sub.AttemptsUsed,
		CompletionDue: assessment.CompletionDue(sub.Attempt.Passed, sub.AttemptsUsed, sub.MaxAttempts),
	})
	require.NoError(t, err)
	return sub, track
}

func prerequisiteDone(t *testing.T, e env, pre courseModels.CoursePrerequisite) bool {
	t.Helper()
	var pc courseModels.PrerequisiteCompletion
	err := e.db.Where("client_id = ? AND user_id = ? AND prerequisite_id = ?", clientID, 1, pre.ID).First(&pc).Error
	return err == nil && pc.IsCompleted
}

func TestAssessment_ExhaustedAttemptsCompletePrerequisite(t *testing.T) {
	e := setup(t)
	p := assessment.NewPlayer(nil)
	pkg, qs := testutil.SeedAssessment(t, e.db, clientID, 70, 2,
		testutil.Question{Type: courseModels.QuestionSingleChoice, Points: 5, Options: []string{"a", "b"}, Correct: []int{0}},
		testutil.Question{Type: courseModels.QuestionSingleChoice, Points: 4, Options: []string{"a", "b"}, Correct: []int{0}},
		testutil.Question{Type: courseModels.QuestionSingleChoice, Points: 1, Options: []string{"a", "b"}, Correct: []int{0}},
	)
	course := testutil.SeedCourse(t, e.db, clientID, "Safety")
	pre := testutil.SeedPrerequisite(t, e.db, course, courseModels.TypeAssessment, pkg.ID)

	req := assessment.LaunchRequest{AssessmentID: pkg.ID, UserID: 1, ClientID: clientID, CourseID: course.ID, PrerequisiteID: &pre.ID}
	right := func(q courseModels.AssessmentQuestion) assessment.Answer {
		return assessment.Answer{OptionIDs: []uint{q.Options[0].ID}}
	}

	sub, track := submitAttempt(t, e, p, req, map[uint]assessment.Answer{qs[0].ID: right(qs[0])})
	assert.Equal(t, 50.0, sub.Attempt.Percentage)
	assert.False(t, sub.Attempt.Passed)
	assert.Equal(t, 1, sub.AttemptsUsed)
	assert.False(t, track.BecameComplete)
	assert.False(t, prerequisiteDone(t, e, pre))

	sub, track = submitAttempt(t, e, p, req, map[uint]assessment.Answer{qs[1].ID: right(qs[1])})
	assert.Equal(t, 40.0, sub.Attempt.Percentage)
	assert.False(t, sub.Attempt.Passed)
	assert.Equal(t, 2, sub.AttemptsUsed)
	assert.True(t, track.BecameComplete, "exhausted attempts complete the context")
	assert.True(t, prerequisiteDone(t, e, pre))

	row := track.Progress.(*courseModels.AssessmentProgress)
	assert.Equal(t, 2, row.AttemptsUsed)
	assert.Equal(t, 50.0, row.BestPercentage)
	assert.False(t, row.Passed)
	assert.Equal(t, 100.0, courseProgress(t, e.db, 1, course.ID).CompletionPercentage)
}

func TestAssessment_PassCompletesModuleItem(t *testing.T) {
	e := setup(t)
	p := assessment.NewPlayer(nil)
	pkg, qs := testutil.SeedAssessment(t, e.db, clientID, 70, 0,
		testutil.Question{Type: courseModels.QuestionTrueFalse, Points: 1, Options: []string{"true", "false"}, Correct: []int{1}},
	)
	course := testutil.SeedCourse(t, e.db, clientID, "Quiz course")
	mod := testutil.SeedModule(t, e.db, course, "M1", 1)
	item := testutil.SeedItem(t, e.db, mod, courseModels.TypeAssessment, pkg.ID)

	req := assessment.LaunchRequest{AssessmentID: pkg.ID, UserID: 1, ClientID: clientID, CourseID: course.ID, ContentID: &item.ID}
	sub, track := submitAttempt(t, e, p, req, map[uint]assessment.Answer{qs[0].ID: {OptionIDs: []uint{qs[0].Options[1].ID}}})
	assert.True(t, sub.Attempt.Passed)
	assert.True(t, track.BecameComplete)
	require.NotNil(t, track.Cascade)
	assert.Equal(t, []uint{course.ID}, track.Cascade.CompletedCourses)
}

func TestAssessment_AttemptMustMatchContext(t *testing.T) {
	e := setup(t)
	pkg, _ := testutil.SeedAssessment(t, e.db, clientID, 70, 0,
		testutil.Question{Type: courseModels.QuestionShortAnswer, Points: 1, CorrectText: "x"},
	)
	otherPkg, _ := testutil.SeedAssessment(t, e.db, clientID, 70, 0,
		testutil.Question{Type: courseModels.QuestionShortAnswer, Points: 1, CorrectText: "y"},
	)
	course := testutil.SeedCourse(t, e.db, clientID, "C")
	pre := testutil.SeedPrerequisite(t, e.db, course, courseModels.TypeAssessment, otherPkg.ID)

	attempt := &courseModels.AssessmentAttempt{ID: 1, ClientID: clientID, UserID: 1, AssessmentID: pkg.ID, CourseID: course.ID, PrerequisiteID: &pre.ID, Status: courseModels.AttemptCompleted}
	_, err := e.tracker.RecordAssessmentAttempt(context.Background(), testutil.Learner(1, clientID), completion.AttemptRecord{Attempt: attempt, AttemptsUsed: 1, CompletionDue: true})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	var n int64
	require.NoError(t, e.db.Model(&courseModels.AssessmentProgress{}).Count(&n).Error)
	assert.Zero(t, n)
}
