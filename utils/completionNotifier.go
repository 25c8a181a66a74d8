package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lms/config"
	"lms/logger"

	"github.com/go-resty/resty/v2"
)

// CourseCompletedEvent is posted to the webhook and used for the email.
type CourseCompletedEvent struct {
	EventID           string    `json:"event_id"`
	ClientID          uint      `json:"client_id"`
	UserID            uint      `json:"user_id"`
	Email             string    `json:"email,omitempty"`
	CourseID          uint      `json:"course_id"`
	CourseTitle       string    `json:"course_title"`
	CertificateNumber string    `json:"certificate_number,omitempty"`
	CompletedAt       time.Time `json:"completed_at"`
}

// CompletionNotifier tells the outside world a learner finished a course.
// Delivery is best-effort: failures are logged and never reach the learner.
type CompletionNotifier struct {
	client     *resty.Client
	webhookURL string
	mailer     *Mailer
	log        *logger.Logger
}

func NewCompletionNotifier(cfg *config.Config, log *logger.Logger) *CompletionNotifier {
	return &CompletionNotifier{
		client:     resty.New().SetTimeout(10 * time.Second).SetRetryCount(2),
		webhookURL: cfg.CompletionWebhookURL,
		mailer:     NewMailer(cfg.SendgridAPIKey, cfg.EmailSender),
		log:        logger.OrNop(log).With("service", "CompletionNotifier"),
	}
}

// Enabled reports whether any channel is configured.
func (n *CompletionNotifier) Enabled() bool {
	return n != nil && (n.webhookURL != "" || n.mailer != nil)
}

// NotifyCourseCompleted delivers ev to every configured channel.
func (n *CompletionNotifier) NotifyCourseCompleted(ctx context.Context, ev CourseCompletedEvent) error {
	if !n.Enabled() {
		return nil
	}
	var errs []error
	if n.webhookURL != "" {
		resp, err := n.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(ev).
			Post(n.webhookURL)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("webhook: %w", err))
		case resp.IsError():
			errs = append(errs, fmt.Errorf("webhook: status %d", resp.StatusCode()))
		}
	}
	if n.mailer != nil && ev.Email != "" {
		subject, body := courseCompletedEmail(ev)
		if err := n.mailer.SendEmail(ctx, ev.Email, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}
	return errors.Join(errs...)
}

// NotifyAsync delivers ev in the background.
func (n *CompletionNotifier) NotifyAsync(ev CourseCompletedEvent) {
	if !n.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := n.NotifyCourseCompleted(ctx, ev); err != nil {
			n.log.Warn("course completion notification failed",
				"event_id", ev.EventID, "user_id", ev.UserID, "course_id", ev.CourseID, "error", err)
		}
	}()
}
