package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	types "github.com/skillforge/skillforge-backend/internal/domain"
	"github.com/skillforge/skillforge-backend/internal/observability"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"github.com/skillforge/skillforge-backend/internal/platform/sendgrid"
)

// Mailer sends author notifications for review outcomes. Sends are
// fire-and-forget: a mail failure never fails the moderation write.
type Mailer struct {
	client  sendgrid.Client
	metrics *observability.Metrics
	log     *logger.Logger
}

// NewMailer accepts a nil client; every send becomes a logged no-op.
func NewMailer(client sendgrid.Client, metrics *observability.Metrics, baseLog *logger.Logger) *Mailer {
	return &Mailer{
		client:  client,
		metrics: metrics,
		log:     baseLog.With("service", "Mailer"),
	}
}

func (m *Mailer) CourseReleased(author *types.User, courseTitle string, version int) {
	subject := fmt.Sprintf("Your course %q version %d is now live", courseTitle, version)
	body := fmt.Sprintf(
		"Good news! Version %d of %q passed review and is now available in the catalog.",
		version, courseTitle,
	)
	m.send("release", author, subject, body)
}

func (m *Mailer) CourseRejected(author *types.User, courseTitle string, version int, note string) {
	subject := fmt.Sprintf("Your course %q version %d was not approved", courseTitle, version)
	body := fmt.Sprintf("Version %d of %q did not pass review.", version, courseTitle)
	if n := strings.TrimSpace(note); n != "" {
		body += "\n\nReviewer note: " + n
	}
	m.send("reject", author, subject, body)
}

func (m *Mailer) send(kind string, author *types.User, subject, body string) {
	if m == nil || author == nil {
		return
	}
	to := strings.TrimSpace(author.ContactEmail)
	if to == "" {
		to = strings.TrimSpace(author.Email)
	}
	if to == "" || m.client == nil {
		m.log.Debug("Mail skipped", "kind", kind)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		_, err := m.client.Send(ctx, sendgrid.SendEmailRequest{
			To:         []sendgrid.EmailAddress{{Email: to, Name: strings.TrimSpace(author.FirstName + " " + author.LastName)}},
			Subject:    subject,
			Text:       body,
			Categories: []string{"course-review", kind},
		})
		if err != nil {
			m.metrics.IncMailSend(kind, "error")
			m.log.Warn("Mail send failed", "kind", kind, "error", err)
			return
		}
		m.metrics.IncMailSend(kind, "ok")
	}()
}
