package progress

import (
	"time"

	"lms/config"
	courseModels "lms/models/course"
)

// NewVideoStore completes a video once the watched percentage reaches the
// package threshold (VIDEO_COMPLETION_THRESHOLD when the package sets none).
func NewVideoStore() ProgressStore {
	return &gormStore[courseModels.VideoProgress, *courseModels.VideoProgress]{
		typ:   Video,
		apply: applyVideo,
	}
}

func applyVideo(row *courseModels.VideoProgress, t Target, m Metrics, _ time.Time) bool {
	if m.Started {
		row.PlayCount++
	}
	if m.WatchedPercentage != nil {
		if v := clampPercent(*m.WatchedPercentage); v > row.WatchedPercentage {
			row.WatchedPercentage = v
		}
	}
	if m.CurrentPosition != nil && *m.CurrentPosition >= 0 {
		row.LastPosition = *m.CurrentPosition
	}
	if m.Duration != nil && *m.Duration > 0 {
		row.Duration = *m.Duration
	} else if row.Duration == 0 && t.Config.DurationSeconds > 0 {
		row.Duration = t.Config.DurationSeconds
	}
	return row.WatchedPercentage >= threshold(t.Config.CompletionThreshold, config.Current().VideoCompletionThreshold)
}

func NewAudioStore() ProgressStore {
	return &gormStore[courseModels.AudioProgress, *courseModels.AudioProgress]{
		typ:   Audio,
		apply: applyAudio,
	}
}

func applyAudio(row *courseModels.AudioProgress, t Target, m Metrics, _ time.Time) bool {
	if m.Started {
		row.PlayCount++
	}
	pct := m.ListenedPercentage
	if pct == nil {
		pct = m.WatchedPercentage
	}
	if pct != nil {
		if v := clampPercent(*pct); v > row.ListenedPercentage {
			row.ListenedPercentage = v
		}
	}
	if m.CurrentPosition != nil && *m.CurrentPosition >= 0 {
		row.LastPosition = *m.CurrentPosition
	}
	if m.Duration != nil && *m.Duration > 0 {
		row.Duration = *m.Duration
	} else if row.Duration == 0 && t.Config.DurationSeconds > 0 {
		row.Duration = t.Config.DurationSeconds
	}
	return row.ListenedPercentage >= threshold(t.Config.CompletionThreshold, config.Current().AudioCompletionThreshold)
}

// NewImageStore completes an image on its first view.
func NewImageStore() ProgressStore {
	return &gormStore[courseModels.ImageProgress, *courseModels.ImageProgress]{
		typ:   Image,
		apply: applyImage,
	}
}

func applyImage(row *courseModels.ImageProgress, _ Target, _ Metrics, now time.Time) bool {
	row.ViewCount++
	if row.ViewedAt == nil {
		row.ViewedAt = &now
	}
	return true
}

// NewExternalStore completes an external link only through MarkComplete,
// unless a minimum time on the page is configured.
func NewExternalStore() ProgressStore {
	return &gormStore[courseModels.ExternalProgress, *courseModels.ExternalProgress]{
		typ:   External,
		apply: applyExternal,
	}
}

func applyExternal(row *courseModels.ExternalProgress, t Target, m Metrics, now time.Time) bool {
	if m.Visit {
		row.VisitCount++
		row.LastVisitedAt = &now
	}
	minTime := t.Config.MinTimeSeconds
	if minTime <= 0 {
		minTime = config.Current().ExternalMinSeconds
	}
	return minTime > 0 && row.TimeSpent >= minTime
}
