// Package assessment is the attempt state machine:
// not_started -> in_progress -> completed (terminal).
//
// It only scores attempts. Whether a submitted attempt completes the
// surrounding course context is decided by CompletionDue and applied by the
// caller.
package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"lms/apperr"
	"lms/logger"
	courseModels "lms/models/course"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Player struct {
	log *logger.Logger
	now func() time.Time
}

func NewPlayer(log *logger.Logger) *Player {
	return &Player{
		log: logger.OrNop(log).With("service", "AssessmentPlayer"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// LaunchRequest identifies the learner and the context the attempt runs in.
type LaunchRequest struct {
	AssessmentID   uint
	UserID         uint
	ClientID       uint
	CourseID       uint
	ContentID      *uint
	PrerequisiteID *uint
}

// Launch is the attempt handed back to the player together with its questions.
type Launch struct {
	Attempt   *courseModels.AssessmentAttempt   `json:"attempt"`
	Questions []courseModels.AssessmentQuestion `json:"questions"`
	Answers   map[uint]Answer                   `json:"answers"`
	Resumed   bool                              `json:"resumed"`
}

// SubmitResult carries the graded attempt and what the completion policy needs.
type SubmitResult struct {
	Attempt          *courseModels.AssessmentAttempt
	AttemptsUsed     int
	MaxAttempts      int
	AlreadySubmitted bool
}

func (p *Player) loadPackage(ctx context.Context, tx *gorm.DB, clientID, assessmentID uint) (*courseModels.AssessmentPackage, error) {
	var pkg courseModels.AssessmentPackage
	err := tx.WithContext(ctx).
		Where("id = ? AND client_id = ? AND is_deleted = ?", assessmentID, clientID, false).
		First(&pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Assessment not found!")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load assessment")
	}
	return &pkg, nil
}

// Questions returns the assessment's live questions in display order.
func (p *Player) Questions(ctx context.Context, tx *gorm.DB, clientID, assessmentID uint) ([]courseModels.AssessmentQuestion, error) {
	var qs []courseModels.AssessmentQuestion
	err := tx.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc, id asc") }).
		Where("assessment_id = ? AND client_id = ? AND is_deleted = ?", assessmentID, clientID, false).
		Order("sort_order asc, id asc").
		Find(&qs).Error
	if err != nil {
		return nil, apperr.Wrap(err, "load questions")
	}
	return qs, nil
}

func countAttempts(ctx context.Context, tx *gorm.DB, clientID, assessmentID, userID uint) (int, error) {
	var n int64
	err := tx.WithContext(ctx).Model(&courseModels.AssessmentAttempt{}).
		Where("client_id = ? AND assessment_id = ? AND user_id = ?", clientID, assessmentID, userID).
		Count(&n).Error
	return int(n), err
}

// CreateOrGetAttempt resumes the learner's open attempt or starts a new one,
// consuming one of the allowed attempts.
func (p *Player) CreateOrGetAttempt(ctx context.Context, db *gorm.DB, req LaunchRequest) (*Launch, error) {
	if req.UserID == 0 || req.ClientID == 0 {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	if req.AssessmentID == 0 {
		return nil, apperr.Validation("assessment_id is required!")
	}

	out := &Launch{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pkg, err := p.loadPackage(ctx, tx, req.ClientID, req.AssessmentID)
		if err != nil {
			return err
		}

		var open courseModels.AssessmentAttempt
		err = tx.Where("client_id = ? AND assessment_id = ? AND user_id = ? AND status = ?",
			req.ClientID, req.AssessmentID, req.UserID, courseModels.AttemptInProgress).
			Order("id desc").First(&open).Error
		switch {
		case err == nil:
			out.Attempt = &open
			out.Resumed = true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return apperr.Wrap(err, "load attempt")
		default:
			used, err := countAttempts(ctx, tx, req.ClientID, req.AssessmentID, req.UserID)
			if err != nil {
				return apperr.Wrap(err, "count attempts")
			}
			if pkg.NumAttempts > 0 && used >= pkg.NumAttempts {
				return apperr.Conflict("No attempts remaining!")
			}
			now := p.now()
			attempt := courseModels.AssessmentAttempt{
				ClientID:       req.ClientID,
				AssessmentID:   req.AssessmentID,
				UserID:         req.UserID,
				CourseID:       req.CourseID,
				ContentID:      req.ContentID,
				PrerequisiteID: req.PrerequisiteID,
				AttemptNumber:  used + 1,
				Status:         courseModels.AttemptInProgress,
				TimeRemaining:  pkg.TimeLimitMinutes * 60,
				StartedAt:      now,
			}
			if err := tx.Create(&attempt).Error; err != nil {
				return apperr.Wrap(err, "create attempt")
			}
			out.Attempt = &attempt
		}

		out.Questions, err = p.Questions(ctx, tx, req.ClientID, req.AssessmentID)
		if err != nil {
			return err
		}
		out.Answers, err = loadAnswers(ctx, tx, out.Attempt.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !out.Resumed {
		p.log.Info("attempt started",
			"attempt_id", out.Attempt.ID, "assessment_id", req.AssessmentID,
			"user_id", req.UserID, "client_id", req.ClientID, "attempt_number", out.Attempt.AttemptNumber)
	}
	return out, nil
}

func loadAnswers(ctx context.Context, tx *gorm.DB, attemptID uint) (map[uint]Answer, error) {
	var rows []courseModels.AttemptAnswer
	if err := tx.WithContext(ctx).Where("attempt_id = ?", attemptID).Find(&rows).Error; err != nil {
		return nil, apperr.Wrap(err, "load answers")
	}
	out := make(map[uint]Answer, len(rows))
	for _, r := range rows {
		var a Answer
		if len(r.Answer) > 0 {
			if err := json.Unmarshal(r.Answer, &a); err != nil {
				return nil, apperr.Wrap(err, "decode answer")
			}
		}
		out[r.QuestionID] = a
	}
	return out, nil
}

// loadOwned returns the attempt when it belongs to the tenant and the user.
func loadOwned(ctx context.Context, tx *gorm.DB, attemptID, userID, clientID uint) (*courseModels.AssessmentAttempt, error) {
	if userID == 0 || clientID == 0 {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	var a courseModels.AssessmentAttempt
	err := tx.WithContext(ctx).Where("id = ? AND client_id = ?", attemptID, clientID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Attempt not found!")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load attempt")
	}
	if a.UserID != userID {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	return &a, nil
}

// GetAttempt returns the attempt with its saved answers.
func (p *Player) GetAttempt(ctx context.Context, db *gorm.DB, attemptID, userID, clientID uint) (*Launch, error) {
	a, err := loadOwned(ctx, db, attemptID, userID, clientID)
	if err != nil {
		return nil, err
	}
	qs, err := p.Questions(ctx, db, clientID, a.AssessmentID)
	if err != nil {
		return nil, err
	}
	answers, err := loadAnswers(ctx, db, a.ID)
	if err != nil {
		return nil, err
	}
	return &Launch{Attempt: a, Questions: qs, Answers: answers, Resumed: a.Status == courseModels.AttemptInProgress}, nil
}

type SaveAnswerRequest struct {
	AttemptID       uint
	UserID          uint
	ClientID        uint
	QuestionID      uint
	Answer          Answer
	CurrentQuestion *int
}

// SaveAnswer stores the latest answer for a question and moves the resume
// pointer. Only an in_progress attempt accepts answers.
func (p *Player) SaveAnswer(ctx context.Context, db *gorm.DB, req SaveAnswerRequest) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadOwned(ctx, tx, req.AttemptID, req.UserID, req.ClientID)
		if err != nil {
			return err
		}
		if a.Status != courseModels.AttemptInProgress {
			return apperr.Conflict("Attempt already submitted!")
		}

		var q courseModels.AssessmentQuestion
		err = tx.Where("id = ? AND assessment_id = ? AND client_id = ? AND is_deleted = ?",
			req.QuestionID, a.AssessmentID, req.ClientID, false).First(&q).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Question not found!")
		}
		if err != nil {
			return apperr.Wrap(err, "load question")
		}

		raw, err := json.Marshal(req.Answer)
		if err != nil {
			return apperr.Validation("Invalid answer!")
		}
		row := courseModels.AttemptAnswer{
			AttemptID:  a.ID,
			QuestionID: q.ID,
			Answer:     datatypes.JSON(raw),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"answer", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return apperr.Wrap(err, "save answer")
		}

		if req.CurrentQuestion != nil {
			if err := tx.Model(&courseModels.AssessmentAttempt{}).
				Where("id = ?", a.ID).
				Update("current_question", *req.CurrentQuestion).Error; err != nil {
				return apperr.Wrap(err, "save resume pointer")
			}
		}
		return nil
	})
}

// UpdateTimeRemaining persists the player's countdown. It never changes state.
func (p *Player) UpdateTimeRemaining(ctx context.Context, db *gorm.DB, attemptID, userID, clientID uint, seconds int) (*courseModels.AssessmentAttempt, error) {
	if seconds < 0 {
		seconds = 0
	}
	var out *courseModels.AssessmentAttempt
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadOwned(ctx, tx, attemptID, userID, clientID)
		if err != nil {
			return err
		}
		if a.Status != courseModels.AttemptInProgress {
			return apperr.Conflict("Attempt already submitted!")
		}
		a.TimeRemaining = seconds
		if err := tx.Model(a).Update("time_remaining", seconds).Error; err != nil {
			return apperr.Wrap(err, "save time remaining")
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitAssessment grades and closes the attempt. A completed attempt is
// returned as stored and never rescored.
func (p *Player) SubmitAssessment(ctx context.Context, db *gorm.DB, attemptID, userID, clientID uint) (*SubmitResult, error) {
	out := &SubmitResult{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadOwned(ctx, tx, attemptID, userID, clientID)
		if err != nil {
			return err
		}
		pkg, err := p.loadPackage(ctx, tx, clientID, a.AssessmentID)
		if err != nil {
			return err
		}
		out.MaxAttempts = pkg.NumAttempts
		out.AttemptsUsed, err = countAttempts(ctx, tx, clientID, a.AssessmentID, userID)
		if err != nil {
			return apperr.Wrap(err, "count attempts")
		}

		if a.Status == courseModels.AttemptCompleted {
			out.Attempt = a
			out.AlreadySubmitted = true
			return nil
		}

		qs, err := p.Questions(ctx, tx, clientID, a.AssessmentID)
		if err != nil {
			return err
		}
		answers, err := loadAnswers(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		g := Score(qs, answers, pkg.PassingScore)

		now := p.now()
		res := tx.Model(&courseModels.AssessmentAttempt{}).
			Where("id = ? AND status = ?", a.ID, courseModels.AttemptInProgress).
			Updates(map[string]interface{}{
				"status":       courseModels.AttemptCompleted,
				"score":        g.Score,
				"max_score":    g.MaxScore,
				"percentage":   g.Percentage,
				"passed":       g.Passed,
				"completed_at": now,
			})
		if res.Error != nil {
			return apperr.Wrap(res.Error, "submit attempt")
		}
		if res.RowsAffected == 0 {
			// lost a race with another submit; report what it stored
			if err := tx.First(a, a.ID).Error; err != nil {
				return apperr.Wrap(err, "reload attempt")
			}
			out.Attempt = a
			out.AlreadySubmitted = true
			return nil
		}

		for qid, pts := range g.Awarded {
			if err := tx.Model(&courseModels.AttemptAnswer{}).
				Where("attempt_id = ? AND question_id = ?", a.ID, qid).
				Updates(map[string]interface{}{"is_correct": g.Correct[qid], "points_awarded": pts}).Error; err != nil {
				return apperr.Wrap(err, "grade answer")
			}
		}

		a.Status = courseModels.AttemptCompleted
		a.Score = g.Score
		a.MaxScore = g.MaxScore
		a.Percentage = g.Percentage
		a.Passed = g.Passed
		a.CompletedAt = &now
		out.Attempt = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !out.AlreadySubmitted {
		p.log.Info("attempt submitted",
			"attempt_id", out.Attempt.ID, "user_id", userID, "client_id", clientID,
			"percentage", out.Attempt.Percentage, "passed", out.Attempt.Passed,
			"attempts_used", out.AttemptsUsed, "max_attempts", out.MaxAttempts)
	}
	return out, nil
}
