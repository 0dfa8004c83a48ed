package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campushub/events-api/internal/models"
	appErrors "github.com/campushub/events-api/pkg/errors"
	"github.com/campushub/events-api/pkg/export"
)

type exportParticipationLister interface {
	List(ctx context.Context, filter models.ParticipationFilter) ([]models.Participation, int, error)
}

// ExportService renders participant rosters into downloadable files.
type ExportService struct {
	records exportParticipationLister
	events  eventReader
	csv     *export.CSVExporter
	logger  *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(records exportParticipationLister, events eventReader, csv *export.CSVExporter, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{records: records, events: events, csv: csv, logger: logger}
}

// ParticipantsCSV renders all participation records for an event as CSV and
// suggests a filename.
func (s *ExportService) ParticipantsCSV(ctx context.Context, eventID string) ([]byte, string, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if isNoRows(err) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	records, _, err := s.records.List(ctx, models.ParticipationFilter{EventID: eventID, Page: 1, PageSize: 10000})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participants")
	}

	headers := []string{"registration_id", "enrollment_id", "registration_type", "team_registration_id", "status", "state", "attendance_marked_at", "feedback_submitted_at", "certificate_id"}
	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		row := map[string]string{
			"registration_id":   record.RegistrationID,
			"enrollment_id":     record.EnrollmentID,
			"registration_type": string(record.RegistrationType),
			"status":            string(record.Status),
			"state":             string(record.State()),
		}
		if record.TeamRegistrationID != nil {
			row["team_registration_id"] = *record.TeamRegistrationID
		}
		if record.AttendanceMarkedAt != nil {
			row["attendance_marked_at"] = record.AttendanceMarkedAt.UTC().Format(time.RFC3339)
		}
		if record.FeedbackSubmittedAt != nil {
			row["feedback_submitted_at"] = record.FeedbackSubmittedAt.UTC().Format(time.RFC3339)
		}
		if record.CertificateID != nil {
			row["certificate_id"] = *record.CertificateID
		}
		rows = append(rows, row)
	}

	payload, err := s.csv.Render(export.Dataset{Headers: headers, Rows: rows})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}

	filename := fmt.Sprintf("participants-%s-%s.csv", event.ID, time.Now().UTC().Format("20060102"))
	s.logger.Info("participants exported", zap.String("event", event.ID), zap.Int("rows", len(rows)))
	return payload, filename, nil
}
