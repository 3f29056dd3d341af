package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	"github.com/noah-isme/healthcare-admin-api/pkg/jobs"
	"github.com/noah-isme/healthcare-admin-api/pkg/mailer"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []mailer.Message
	failures int
}

func (s *recordingSender) Send(ctx context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp unavailable")
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSender) sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type rejectingQueue struct{}

func (rejectingQueue) Enqueue(jobs.Job) error { return jobs.ErrQueueFull }

func sampleLogin() models.LoginNotification {
	return models.LoginNotification{
		UserID:    "user-1",
		Name:      "Grace Admin",
		Email:     "admin@example.com",
		IPAddress: "192.168.1.10",
		LoggedAt:  time.Date(2025, 1, 15, 8, 30, 5, 0, time.UTC),
	}
}

func TestLoginMessage(t *testing.T) {
	msg := LoginMessage(sampleLogin())

	assert.Equal(t, []string{"admin@example.com"}, msg.To)
	assert.Equal(t, "Account Login Notification", msg.Subject)
	assert.Contains(t, msg.Body, "Dear Grace Admin,")
	assert.Contains(t, msg.Body, "Email: admin@example.com")
	assert.Contains(t, msg.Body, "IP Address: 192.168.1.10")
	assert.Contains(t, msg.Body, "Timestamp: 2025-01-15 08:30:05 UTC")
}

func TestLoginMessageFallsBackToEmail(t *testing.T) {
	event := sampleLogin()
	event.Name = " "
	assert.Contains(t, LoginMessage(event).Body, "Dear admin@example.com,")
}

func TestLoginNotifierDeliversThroughQueue(t *testing.T) {
	sender := &recordingSender{failures: 1}
	notifier := NewLoginNotifier(sender, NewMetricsService(), zap.NewNop())
	queue := jobs.NewQueue("notifications", notifier.Deliver, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
		OnGiveUp:   notifier.GiveUp,
	})
	notifier.Bind(queue)
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, notifier.NotifyLogin(context.Background(), sampleLogin()))
	assert.Eventually(t, func() bool { return sender.sent() == 1 }, time.Second, 5*time.Millisecond)
}

func TestLoginNotifierReportsEnqueueFailure(t *testing.T) {
	notifier := NewLoginNotifier(&recordingSender{}, nil, zap.NewNop())
	assert.Error(t, notifier.NotifyLogin(context.Background(), sampleLogin()))

	notifier.Bind(rejectingQueue{})
	err := notifier.NotifyLogin(context.Background(), sampleLogin())
	assert.ErrorIs(t, err, jobs.ErrQueueFull)
}

func TestLoginNotifierDeliverIgnoresForeignPayload(t *testing.T) {
	sender := &recordingSender{}
	notifier := NewLoginNotifier(sender, nil, zap.NewNop())

	assert.NoError(t, notifier.Deliver(context.Background(), jobs.Job{Payload: "unexpected"}))
	assert.Zero(t, sender.sent())
}
