package utils

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends transactional email through SendGrid.
type Mailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewMailer returns nil when no API key is configured; a nil Mailer sends nothing.
func NewMailer(apiKey, sender string) *Mailer {
	if apiKey == "" || sender == "" {
		return nil
	}
	return &Mailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("LMS", sender),
	}
}

// SendEmail sends one HTML message.
func (m *Mailer) SendEmail(ctx context.Context, toEmail, subject, htmlBody string) error {
	if m == nil || toEmail == "" {
		return nil
	}
	msg := mail.NewSingleEmail(m.from, subject, mail.NewEmail("", toEmail), "", htmlBody)
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #1F3A5F; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1F3A5F; line-height: 1.6; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #4A90D9; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>LEARNING</h1></div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

// courseCompletedEmail renders the course completion message.
func courseCompletedEmail(ev CourseCompletedEvent) (string, string) {
	subject := "Course Completed: " + ev.CourseTitle
	body := fmt.Sprintf(`
		<p>Congratulations!</p>
		<p>You have completed <strong>%s</strong>.</p>
		<div class="info-box">
			Certificate number: <strong>%s</strong>
		</div>
	`, html.EscapeString(ev.CourseTitle), html.EscapeString(ev.CertificateNumber))
	return subject, getEmailTemplate("Course Completed", body)
}
