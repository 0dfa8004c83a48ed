package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushub/events-api/internal/models"
	appErrors "github.com/campushub/events-api/pkg/errors"
	"github.com/campushub/events-api/pkg/export"
)

type lifecycleRepository interface {
	FindByRegistrationID(ctx context.Context, registrationID string) (*models.Participation, error)
	SetAttendance(ctx context.Context, registrationID string, attendanceID *string, markedAt time.Time, present bool) error
	SetFeedback(ctx context.Context, registrationID, feedbackID string, submittedAt time.Time, rating int, comments string) error
	SetCertificate(ctx context.Context, registrationID, certificateID string, issuedAt time.Time, path string) error
}

type certificateRenderer interface {
	Render(data export.CertificateData) ([]byte, error)
}

type fileStore interface {
	Save(filename string, data []byte) (string, error)
}

type urlSigner interface {
	Generate(certificateID, relPath string) (string, time.Time, error)
}

// CertificateNotification describes the outbound notice sent after issuance.
type CertificateNotification struct {
	RegistrationID string
	EnrollmentID   string
	EventID        string
	CertificateID  string
	DownloadToken  string
}

type certificateNotifier interface {
	CertificateIssued(ctx context.Context, n CertificateNotification) error
}

// MarkAttendanceRequest describes the attendance payload.
type MarkAttendanceRequest struct {
	RegistrationID string `json:"registration_id" validate:"required"`
	Present        *bool  `json:"present" validate:"required"`
}

// MarkAttendanceResult carries the attendance outcome. AlreadyMarked signals
// an idempotent retry; the existing outcome is returned, never overwritten.
type MarkAttendanceResult struct {
	RegistrationID string  `json:"registration_id"`
	AttendanceID   *string `json:"attendance_id"`
	Present        bool    `json:"present"`
	AlreadyMarked  bool    `json:"already_marked"`
}

// SubmitFeedbackRequest describes the feedback payload. Rating and comments
// are the minimum required field set.
type SubmitFeedbackRequest struct {
	RegistrationID string `json:"registration_id" validate:"required"`
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Comments       string `json:"comments" validate:"required"`
}

// SubmitFeedbackResult carries the feedback outcome.
type SubmitFeedbackResult struct {
	RegistrationID   string `json:"registration_id"`
	FeedbackID       string `json:"feedback_id"`
	AlreadySubmitted bool   `json:"already_submitted"`
}

// IssueCertificateResult carries the certificate outcome. Retries return the
// same certificate id.
type IssueCertificateResult struct {
	RegistrationID string    `json:"registration_id"`
	CertificateID  string    `json:"certificate_id"`
	IssuedAt       time.Time `json:"issued_at"`
	DownloadToken  string    `json:"download_token,omitempty"`
	AlreadyIssued  bool      `json:"already_issued"`
}

// BulkMarkAttendanceItem is one entry in a bulk attendance request.
type BulkMarkAttendanceItem struct {
	RegistrationID string `json:"registration_id" validate:"required"`
	Present        *bool  `json:"present" validate:"required"`
}

// BulkMarkAttendanceRequest describes the bulk attendance payload.
type BulkMarkAttendanceRequest struct {
	Items []BulkMarkAttendanceItem `json:"items" validate:"required,min=1,dive"`
}

// LifecycleService enforces the stage-gated participation state machine:
// attendance gates feedback, feedback gates the certificate. Every transition
// is a single idempotent write; callers own retry policy.
type LifecycleService struct {
	repo      lifecycleRepository
	events    eventReader
	students  studentReader
	counters  counterApplier
	renderer  certificateRenderer
	files     fileStore
	signer    urlSigner
	notifier  certificateNotifier
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLifecycleService constructs LifecycleService. notifier, signer and cache
// may be nil.
func NewLifecycleService(repo lifecycleRepository, events eventReader, students studentReader, counters counterApplier,
	renderer certificateRenderer, files fileStore, signer urlSigner, notifier certificateNotifier,
	cache *CacheService, validate *validator.Validate, logger *zap.Logger) *LifecycleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		repo: repo, events: events, students: students, counters: counters,
		renderer: renderer, files: files, signer: signer, notifier: notifier,
		cache: cache, validator: validate, logger: logger,
	}
}

// MarkAttendance records presence or absence for a registered participant.
// Presence allocates an attendance id and unlocks feedback; absence stores a
// marker without an id and is terminal for the participant.
func (s *LifecycleService) MarkAttendance(ctx context.Context, req MarkAttendanceRequest) (*MarkAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	record, err := s.load(ctx, req.RegistrationID)
	if err != nil {
		return nil, err
	}
	if record.Status == models.ParticipationStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrStateViolation, "registration was cancelled")
	}
	if record.AttendancePresent != nil {
		// Never silently overwrite an existing mark.
		return &MarkAttendanceResult{
			RegistrationID: record.RegistrationID,
			AttendanceID:   record.AttendanceID,
			Present:        *record.AttendancePresent,
			AlreadyMarked:  true,
		}, nil
	}

	markedAt := time.Now().UTC()
	present := *req.Present
	var attendanceID *string
	if present {
		id := uuid.NewString()
		attendanceID = &id
	}
	if err := s.repo.SetAttendance(ctx, record.RegistrationID, attendanceID, markedAt, present); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	if present {
		s.applyDelta(ctx, record.EventID, models.CounterDelta{Attended: 1})
	}
	s.cache.InvalidateStatus(ctx, record.RegistrationID)

	s.logger.Info("attendance marked",
		zap.String("registration", record.RegistrationID),
		zap.Bool("present", present),
	)
	return &MarkAttendanceResult{RegistrationID: record.RegistrationID, AttendanceID: attendanceID, Present: present}, nil
}

// SubmitFeedback records feedback for an attended participant. Resubmission
// returns the existing feedback id.
func (s *LifecycleService) SubmitFeedback(ctx context.Context, req SubmitFeedbackRequest) (*SubmitFeedbackResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid feedback payload")
	}
	record, err := s.load(ctx, req.RegistrationID)
	if err != nil {
		return nil, err
	}
	switch record.State() {
	case models.StateAttended:
	case models.StateFeedbackSubmitted, models.StateCertified:
		return &SubmitFeedbackResult{RegistrationID: record.RegistrationID, FeedbackID: *record.FeedbackID, AlreadySubmitted: true}, nil
	case models.StateCancelled:
		return nil, appErrors.Clone(appErrors.ErrStateViolation, "registration was cancelled")
	default:
		return nil, appErrors.Clone(appErrors.ErrStateViolation, "attendance required before feedback")
	}

	feedbackID := uuid.NewString()
	if err := s.repo.SetFeedback(ctx, record.RegistrationID, feedbackID, time.Now().UTC(), req.Rating, req.Comments); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit feedback")
	}
	s.cache.InvalidateStatus(ctx, record.RegistrationID)

	s.logger.Info("feedback submitted", zap.String("registration", record.RegistrationID))
	return &SubmitFeedbackResult{RegistrationID: record.RegistrationID, FeedbackID: feedbackID}, nil
}

// IssueCertificate issues the certificate for a participant whose feedback is
// in. The PDF render and the notification are side effects: the notification
// is best-effort and its failure never unwinds issuance.
func (s *LifecycleService) IssueCertificate(ctx context.Context, registrationID string) (*IssueCertificateResult, error) {
	record, err := s.load(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	switch record.State() {
	case models.StateFeedbackSubmitted:
	case models.StateCertified:
		result := &IssueCertificateResult{
			RegistrationID: record.RegistrationID,
			CertificateID:  *record.CertificateID,
			IssuedAt:       *record.CertificateIssuedAt,
			AlreadyIssued:  true,
		}
		return result, nil
	case models.StateCancelled:
		return nil, appErrors.Clone(appErrors.ErrStateViolation, "registration was cancelled")
	case models.StateAttended:
		return nil, appErrors.Clone(appErrors.ErrStateViolation, "feedback required before certificate")
	default:
		return nil, appErrors.Clone(appErrors.ErrStateViolation, "attendance required before certificate")
	}

	certificateID := uuid.NewString()
	issuedAt := time.Now().UTC()
	path, err := s.renderCertificate(ctx, record, certificateID, issuedAt)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetCertificate(ctx, record.RegistrationID, certificateID, issuedAt, path); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue certificate")
	}
	s.cache.InvalidateStatus(ctx, record.RegistrationID)

	result := &IssueCertificateResult{RegistrationID: record.RegistrationID, CertificateID: certificateID, IssuedAt: issuedAt}
	if s.signer != nil {
		token, _, err := s.signer.Generate(certificateID, path)
		if err != nil {
			s.logger.Warn("failed to sign certificate url", zap.String("certificate", certificateID), zap.Error(err))
		} else {
			result.DownloadToken = token
		}
	}
	s.notify(ctx, record, certificateID, result.DownloadToken)

	s.logger.Info("certificate issued",
		zap.String("registration", record.RegistrationID),
		zap.String("certificate", certificateID),
	)
	return result, nil
}

// BulkMarkAttendance marks attendance for many participants sequentially.
// One item's failure is recorded and processing continues.
func (s *LifecycleService) BulkMarkAttendance(ctx context.Context, req BulkMarkAttendanceRequest) (*models.BulkResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid bulk attendance payload")
	}
	result := &models.BulkResult{Results: make([]models.BulkItemResult, 0, len(req.Items))}
	for _, item := range req.Items {
		result.Processed++
		outcome, err := s.MarkAttendance(ctx, MarkAttendanceRequest{RegistrationID: item.RegistrationID, Present: item.Present})
		if err != nil {
			result.Errors++
			detail := models.BulkItemResult{RegistrationID: item.RegistrationID, Message: appErrors.FromError(err).Message}
			result.Results = append(result.Results, detail)
			result.ErrorDetails = append(result.ErrorDetails, detail)
			continue
		}
		message := "attendance marked"
		if outcome.AlreadyMarked {
			message = "already marked"
		}
		result.Results = append(result.Results, models.BulkItemResult{
			RegistrationID: item.RegistrationID,
			Success:        true,
			Message:        message,
			Data:           outcome,
		})
	}
	return result, nil
}

func (s *LifecycleService) load(ctx context.Context, registrationID string) (*models.Participation, error) {
	record, err := s.repo.FindByRegistrationID(ctx, registrationID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	return record, nil
}

func (s *LifecycleService) renderCertificate(ctx context.Context, record *models.Participation, certificateID string, issuedAt time.Time) (string, error) {
	if s.renderer == nil || s.files == nil {
		return "", nil
	}
	studentName := record.EnrollmentID
	if student, err := s.students.FindByEnrollmentID(ctx, record.EnrollmentID); err == nil {
		studentName = student.FullName
	}
	eventName := record.EventID
	eventType := ""
	if event, err := s.events.FindByID(ctx, record.EventID); err == nil {
		eventName = event.Name
		eventType = event.EventType
	}

	pdf, err := s.renderer.Render(export.CertificateData{
		CertificateID: certificateID,
		StudentName:   studentName,
		EnrollmentID:  record.EnrollmentID,
		EventName:     eventName,
		EventType:     eventType,
		IssuedAt:      issuedAt,
	})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	path := fmt.Sprintf("%s/%s.pdf", record.EventID, certificateID)
	if _, err := s.files.Save(path, pdf); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store certificate")
	}
	return path, nil
}

func (s *LifecycleService) notify(ctx context.Context, record *models.Participation, certificateID, token string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.CertificateIssued(ctx, CertificateNotification{
		RegistrationID: record.RegistrationID,
		EnrollmentID:   record.EnrollmentID,
		EventID:        record.EventID,
		CertificateID:  certificateID,
		DownloadToken:  token,
	})
	if err != nil {
		s.logger.Warn("certificate notification failed",
			zap.String("registration", record.RegistrationID),
			zap.Error(err),
		)
	}
}

func (s *LifecycleService) applyDelta(ctx context.Context, eventID string, delta models.CounterDelta) {
	if err := s.counters.ApplyCounterDelta(ctx, eventID, delta); err != nil {
		s.logger.Warn("failed to apply counter delta", zap.String("event", eventID), zap.Error(err))
	}
}
