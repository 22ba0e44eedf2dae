package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/export"
)

type substitutionLister interface {
	List(ctx context.Context, session *models.Session, filter dto.SubstitutionQuery) ([]models.SubstitutionRequest, error)
}

// DocumentRenderer turns a dataset into a downloadable document.
type DocumentRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportService renders the substitution board as CSV or PDF documents.
type ExportService struct {
	substitutions substitutionLister
	renderers     map[string]DocumentRenderer
	logger        *zap.Logger
	now           func() time.Time
}

// NewExportService constructs an ExportService. Without renderers it falls back to CSV and PDF.
func NewExportService(substitutions substitutionLister, logger *zap.Logger, renderers ...DocumentRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(renderers) == 0 {
		renderers = []DocumentRenderer{export.NewCSVExporter(), export.NewPDFExporter()}
	}
	svc := &ExportService{
		substitutions: substitutions,
		renderers:     make(map[string]DocumentRenderer, len(renderers)),
		logger:        logger,
		now:           time.Now,
	}
	for _, r := range renderers {
		svc.renderers[r.Extension()] = r
	}
	return svc
}

// Formats lists the supported export formats.
func (s *ExportService) Formats() []string {
	formats := make([]string, 0, len(s.renderers))
	for f := range s.renderers {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// Export renders the newest-first request list in the requested format.
func (s *ExportService) Export(ctx context.Context, session *models.Session, format string, filter dto.SubstitutionQuery) (*dto.SubstitutionExport, error) {
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if session.Role != models.RoleTeacher && session.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are available to teachers and admins")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("format must be one of %s", strings.Join(s.Formats(), ", ")))
	}

	requests, err := s.substitutions.List(ctx, session, filter)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now().UTC()
	payload, err := renderer.Render(substitutionDataset(requests, generatedAt))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("substitutions exported", zap.String("format", format), zap.Int("rows", len(requests)), zap.String("user_id", session.ID))
	return &dto.SubstitutionExport{
		Filename:    fmt.Sprintf("substitutions-%s.%s", generatedAt.Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, nil
}

func substitutionDataset(requests []models.SubstitutionRequest, generatedAt time.Time) export.Dataset {
	data := export.Dataset{
		Title:       "Substitution Requests",
		GeneratedAt: generatedAt,
		Columns: []export.Column{
			{Header: "ID", Weight: 2},
			{Header: "Requested At", Weight: 1.5},
			{Header: "Requester", Weight: 1.5},
			{Header: "Notes", Weight: 4},
			{Header: "Status", Weight: 1},
			{Header: "Accepted By", Weight: 1.5},
		},
		Rows: make([][]string, 0, len(requests)),
	}
	for _, r := range requests {
		data.Rows = append(data.Rows, []string{
			r.ID,
			time.UnixMilli(r.Timestamp).UTC().Format("2006-01-02 15:04"),
			r.RequesterName,
			r.Notes,
			string(r.Status),
			r.AcceptedBy,
		})
	}
	return data
}
