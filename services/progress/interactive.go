package progress

import (
	"strings"
	"time"

	courseModels "lms/models/course"

	"gorm.io/datatypes"
)

// NewInteractiveStore completes on a reported completion_percentage of 100 or
// an explicit is_completed flag from the content runtime.
func NewInteractiveStore() ProgressStore {
	return &gormStore[courseModels.InteractiveProgress, *courseModels.InteractiveProgress]{
		typ:   Interactive,
		apply: applyInteractive,
	}
}

func applyInteractive(row *courseModels.InteractiveProgress, _ Target, m Metrics, _ time.Time) bool {
	if m.CompletionPercentage != nil {
		if v := clampPercent(*m.CompletionPercentage); v > row.CompletionPercentage {
			row.CompletionPercentage = v
		}
	}
	if m.Score != nil {
		s := *m.Score
		row.Score = &s
	}
	if len(m.SuspendData) > 0 {
		row.SuspendData = datatypes.JSON(m.SuspendData)
	}
	reported := m.IsCompleted != nil && *m.IsCompleted
	if reported {
		row.CompletionPercentage = 100
	}
	return reported || row.CompletionPercentage >= 100
}

// NewScormStore follows cmi.core.lesson_status: completed and passed finish the item.
func NewScormStore() ProgressStore {
	return &gormStore[courseModels.ScormProgress, *courseModels.ScormProgress]{
		typ: Scorm,
		init: func(row *courseModels.ScormProgress, _ Target) {
			row.LessonStatus = "not attempted"
		},
		apply: applyScorm,
	}
}

func scormTerminal(status string) bool {
	return status == "completed" || status == "passed"
}

func applyScorm(row *courseModels.ScormProgress, _ Target, m Metrics, _ time.Time) bool {
	if m.LessonStatus != nil {
		status := strings.ToLower(strings.TrimSpace(*m.LessonStatus))
		// a finished lesson keeps its terminal status
		if status != "" && (!scormTerminal(row.LessonStatus) || scormTerminal(status)) {
			row.LessonStatus = status
		}
	}
	if m.LessonLocation != nil {
		row.LessonLocation = *m.LessonLocation
	}
	if m.Score != nil {
		s := *m.Score
		row.ScoreRaw = &s
	}
	if len(m.SuspendData) > 0 {
		row.SuspendData = datatypes.JSON(m.SuspendData)
	}
	return scormTerminal(row.LessonStatus)
}
