package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	"github.com/noah-isme/healthcare-admin-api/pkg/jobs"
	"github.com/noah-isme/healthcare-admin-api/pkg/mailer"
)

const (
	loginNotificationJob     = "login_notification"
	loginNotificationSubject = "Account Login Notification"
	loginTimestampLayout     = "2006-01-02 15:04:05 UTC"
)

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// LoginNotifier emails administrators when their account signs in.
type LoginNotifier struct {
	queue   jobEnqueuer
	sender  mailer.Sender
	metrics *MetricsService
	logger  *zap.Logger
}

// NewLoginNotifier constructs a notifier. Call Bind with the queue that will
// run Deliver before the first login.
func NewLoginNotifier(sender mailer.Sender, metrics *MetricsService, logger *zap.Logger) *LoginNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginNotifier{sender: sender, metrics: metrics, logger: logger}
}

// Bind attaches the queue used by NotifyLogin.
func (n *LoginNotifier) Bind(queue jobEnqueuer) {
	n.queue = queue
}

// NotifyLogin enqueues a notification for the given login. It never blocks on delivery.
func (n *LoginNotifier) NotifyLogin(_ context.Context, event models.LoginNotification) error {
	if n.queue == nil {
		n.metrics.RecordLoginNotification(NotificationDropped)
		return fmt.Errorf("login notifier has no queue")
	}
	if err := n.queue.Enqueue(jobs.Job{Type: loginNotificationJob, Payload: event}); err != nil {
		n.metrics.RecordLoginNotification(NotificationDropped)
		return fmt.Errorf("enqueue login notification: %w", err)
	}
	return nil
}

// Deliver is the queue handler sending one notification.
func (n *LoginNotifier) Deliver(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.LoginNotification)
	if !ok {
		n.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if err := n.sender.Send(ctx, LoginMessage(event)); err != nil {
		n.metrics.RecordLoginNotification(NotificationRetrying)
		return err
	}
	n.metrics.RecordLoginNotification(NotificationSent)
	n.logger.Info("login notification sent", zap.String("user_id", event.UserID))
	return nil
}

// GiveUp records a notification that exhausted its retries.
func (n *LoginNotifier) GiveUp(job jobs.Job, err error) {
	n.metrics.RecordLoginNotification(NotificationFailed)
	n.logger.Warn("login notification failed", zap.String("job_id", job.ID), zap.Int("attempts", job.Attempt), zap.Error(err))
}

// LoginMessage renders the email for a login event.
func LoginMessage(event models.LoginNotification) mailer.Message {
	name := event.Name
	if strings.TrimSpace(name) == "" {
		name = event.Email
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", name)
	body.WriteString("A login to your administrator account was recorded.\n\n")
	fmt.Fprintf(&body, "Email: %s\n", event.Email)
	fmt.Fprintf(&body, "IP Address: %s\n", event.IPAddress)
	fmt.Fprintf(&body, "Timestamp: %s\n\n", event.LoggedAt.UTC().Format(loginTimestampLayout))
	body.WriteString("If this was not you, contact your system administrator.\n")

	return mailer.Message{
		To:      []string{event.Email},
		Subject: loginNotificationSubject,
		Body:    body.String(),
	}
}
