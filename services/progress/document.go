package progress

import (
	"encoding/json"
	"sort"
	"time"

	"lms/config"
	courseModels "lms/models/course"

	"gorm.io/datatypes"
)

// NewDocumentStore completes a document when the share of distinct pages
// viewed reaches the threshold.
func NewDocumentStore() ProgressStore {
	return &gormStore[courseModels.DocumentProgress, *courseModels.DocumentProgress]{
		typ: Document,
		init: func(row *courseModels.DocumentProgress, t Target) {
			row.TotalPages = t.Config.TotalPages
			row.PagesViewed = datatypes.JSON([]byte("[]"))
		},
		apply: applyDocument,
	}
}

func applyDocument(row *courseModels.DocumentProgress, t Target, m Metrics, _ time.Time) bool {
	if m.TotalPages != nil && *m.TotalPages > 0 {
		row.TotalPages = *m.TotalPages
	}
	if row.TotalPages == 0 {
		row.TotalPages = t.Config.TotalPages
	}

	pages := decodePages(row.PagesViewed)
	add := func(p int) {
		if p > 0 && (row.TotalPages == 0 || p <= row.TotalPages) {
			pages[p] = true
		}
	}
	for _, p := range m.PagesViewed {
		add(p)
	}
	if m.CurrentPage != nil {
		row.CurrentPage = *m.CurrentPage
		add(*m.CurrentPage)
	}
	row.PagesViewed = encodePages(pages)

	pct := row.ViewedPercentage
	if row.TotalPages > 0 {
		pct = float64(len(pages)) / float64(row.TotalPages) * 100
	} else if m.ViewedPercentage != nil {
		// without a page count the viewer's own percentage is the only signal
		pct = *m.ViewedPercentage
	}
	if v := clampPercent(pct); v > row.ViewedPercentage {
		row.ViewedPercentage = v
	}
	return row.ViewedPercentage >= threshold(t.Config.CompletionThreshold, config.Current().DocumentCompletionThreshold)
}

func decodePages(raw datatypes.JSON) map[int]bool {
	out := map[int]bool{}
	if len(raw) == 0 {
		return out
	}
	var list []int
	if err := json.Unmarshal(raw, &list); err != nil {
		return out
	}
	for _, p := range list {
		out[p] = true
	}
	return out
}

func encodePages(pages map[int]bool) datatypes.JSON {
	list := make([]int, 0, len(pages))
	for p := range pages {
		list = append(list, p)
	}
	sort.Ints(list)
	b, _ := json.Marshal(list)
	return datatypes.JSON(b)
}
