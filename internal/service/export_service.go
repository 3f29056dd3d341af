package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/healthcare-admin-api/internal/dto"
	"github.com/noah-isme/healthcare-admin-api/internal/models"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
	"github.com/noah-isme/healthcare-admin-api/pkg/export"
)

type exportRepository interface {
	ExportClients(ctx context.Context, filter models.AnalyticsFilter) ([]models.Client, error)
	ExportEnrollments(ctx context.Context, filter models.AnalyticsFilter) ([]models.EnrollmentDetail, error)
}

type datasetRenderer interface {
	Render(format export.Format, data export.Dataset) ([]byte, error)
}

var (
	clientExportColumns = []export.Column{
		{Key: "first_name", Label: "First Name"},
		{Key: "last_name", Label: "Last Name"},
		{Key: "age", Label: "Age"},
		{Key: "phone_number", Label: "Phone"},
		{Key: "area_of_residence", Label: "Area of Residence"},
		{Key: "profession", Label: "Profession"},
		{Key: "created_at", Label: "Registered"},
	}
	enrollmentExportColumns = []export.Column{
		{Key: "enrollment_id", Label: "Enrollment ID"},
		{Key: "client", Label: "Client"},
		{Key: "program", Label: "Program"},
		{Key: "short_code", Label: "Code"},
		{Key: "enrolled_at", Label: "Enrolled At"},
	}
)

// ExportService renders registry data as downloadable files.
type ExportService struct {
	repo     exportRepository
	renderer datasetRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an export service.
func NewExportService(repo exportRepository, renderer datasetRenderer, logger *zap.Logger) *ExportService {
	if renderer == nil {
		renderer = export.NewExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{repo: repo, renderer: renderer, logger: logger, now: time.Now}
}

// Clients exports clients registered in the date range.
func (s *ExportService) Clients(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error) {
	format, filter, err := s.parse(query)
	if err != nil {
		return nil, err
	}
	clients, err := s.repo.ExportClients(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to load clients for export")
	}

	rows := make([]map[string]string, 0, len(clients))
	for _, c := range clients {
		rows = append(rows, map[string]string{
			"first_name":        c.FirstName,
			"last_name":         c.LastName,
			"age":               strconv.Itoa(c.Age),
			"phone_number":      c.PhoneNumber,
			"area_of_residence": c.AreaOfResidence,
			"profession":        c.Profession,
			"created_at":        c.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return s.render(format, "clients", export.Dataset{Title: "Clients", Columns: clientExportColumns, Rows: rows})
}

// Enrollments exports enrollments made in the date range.
func (s *ExportService) Enrollments(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error) {
	format, filter, err := s.parse(query)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.repo.ExportEnrollments(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to load enrollments for export")
	}

	rows := make([]map[string]string, 0, len(enrollments))
	for _, e := range enrollments {
		rows = append(rows, map[string]string{
			"enrollment_id": e.EnrollmentID,
			"client":        e.ClientFirstName + " " + e.ClientLastName,
			"program":       e.ProgramName,
			"short_code":    e.ProgramShortCode,
			"enrolled_at":   e.EnrolledAt.UTC().Format(time.RFC3339),
		})
	}
	return s.render(format, "enrollments", export.Dataset{Title: "Enrollments", Columns: enrollmentExportColumns, Rows: rows})
}

func (s *ExportService) parse(query dto.ExportQuery) (export.Format, models.AnalyticsFilter, error) {
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		return "", models.AnalyticsFilter{}, appErrors.Field(appErrors.ErrValidation, "format", "Supported formats are csv and pdf.")
	}
	filter, err := ParseDateRange(query.From, query.To)
	if err != nil {
		return "", models.AnalyticsFilter{}, err
	}
	return format, filter, nil
}

func (s *ExportService) render(format export.Format, name string, data export.Dataset) (*dto.ExportFile, error) {
	content, err := s.renderer.Render(format, data)
	if err != nil {
		return nil, internalError(err, "failed to render export")
	}
	s.logger.Debug("export rendered", zap.String("dataset", name), zap.String("format", string(format)), zap.Int("rows", len(data.Rows)))
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("%s-%s.%s", name, s.now().UTC().Format("20060102"), format),
		ContentType: format.ContentType(),
		Content:     content,
	}, nil
}
