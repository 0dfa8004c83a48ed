package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushub/events-api/pkg/config"
	"github.com/campushub/events-api/pkg/jobs"
)

const jobTypeCertificateIssued = "certificate.issued"

// NotificationService delivers certificate notices through a background queue.
// Delivery is best effort; failures are retried by the queue and then logged.
type NotificationService struct {
	queue   *jobs.Queue
	enabled bool
	logger  *zap.Logger
}

// NewNotificationService constructs the service and its worker queue.
func NewNotificationService(cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{enabled: cfg.Enabled, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.enabled {
		s.queue.Start(ctx)
	}
}

// Stop drains the queue workers.
func (s *NotificationService) Stop() {
	if s.enabled {
		s.queue.Stop()
	}
}

// CertificateIssued enqueues a notice for an issued certificate.
func (s *NotificationService) CertificateIssued(_ context.Context, n CertificateNotification) error {
	if !s.enabled {
		return nil
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeCertificateIssued,
		Payload: n,
	})
	if err != nil {
		return fmt.Errorf("enqueue certificate notification: %w", err)
	}
	return nil
}

func (s *NotificationService) deliver(_ context.Context, job jobs.Job) error {
	n, ok := job.Payload.(CertificateNotification)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}
	// No outbound channel is wired yet; record the notice so operators can
	// trace issuance end to end.
	s.logger.Info("certificate notification delivered",
		zap.String("job", job.ID),
		zap.String("registration", n.RegistrationID),
		zap.String("enrollment", n.EnrollmentID),
		zap.String("event", n.EventID),
		zap.String("certificate", n.CertificateID),
	)
	return nil
}
