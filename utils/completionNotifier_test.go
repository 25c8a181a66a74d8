package utils

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lms/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionNotifier_PostsWebhook(t *testing.T) {
	var got CourseCompletedEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.CompletionWebhookURL = srv.URL
	n := NewCompletionNotifier(cfg, nil)
	require.True(t, n.Enabled())

	ev := CourseCompletedEvent{
		EventID:     "evt-1",
		ClientID:    4,
		UserID:      11,
		CourseID:    2,
		CourseTitle: "Go",
		CompletedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, n.NotifyCourseCompleted(context.Background(), ev))
	assert.Equal(t, ev.EventID, got.EventID)
	assert.Equal(t, ev.UserID, got.UserID)
	assert.True(t, ev.CompletedAt.Equal(got.CompletedAt))
}

func TestCompletionNotifier_ReportsWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.CompletionWebhookURL = srv.URL
	err := NewCompletionNotifier(cfg, nil).NotifyCourseCompleted(context.Background(), CourseCompletedEvent{EventID: "evt-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestCompletionNotifier_DisabledWithoutChannels(t *testing.T) {
	n := NewCompletionNotifier(config.Default(), nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.NotifyCourseCompleted(context.Background(), CourseCompletedEvent{}))

	var none *CompletionNotifier
	assert.False(t, none.Enabled())
	none.NotifyAsync(CourseCompletedEvent{})
}

func TestCourseCompletedEmail_EscapesTitle(t *testing.T) {
	subject, body := courseCompletedEmail(CourseCompletedEvent{CourseTitle: "<b>Go</b>", CertificateNumber: "abc"})
	assert.Equal(t, "Course Completed: <b>Go</b>", subject)
	assert.True(t, strings.Contains(body, "&lt;b&gt;Go&lt;/b&gt;"))
	assert.Contains(t, body, "abc")
}
