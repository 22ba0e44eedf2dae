package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type listerStub struct {
	requests []models.SubstitutionRequest
	err      error
	filter   dto.SubstitutionQuery
}

func (l *listerStub) List(_ context.Context, _ *models.Session, filter dto.SubstitutionQuery) ([]models.SubstitutionRequest, error) {
	l.filter = filter
	return l.requests, l.err
}

func newExportServiceForTest(lister substitutionLister) *ExportService {
	svc := NewExportService(lister, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC) }
	return svc
}

func TestExportServiceCSV(t *testing.T) {
	lister := &listerStub{requests: []models.SubstitutionRequest{
		{ID: "sub-2", Timestamp: time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC).UnixMilli(), Notes: "Period 3", Status: models.SubstitutionStatusAccepted, RequesterName: "Teacher A", AcceptedBy: "Teacher B"},
		{ID: "sub-1", Timestamp: time.Date(2024, 3, 3, 7, 0, 0, 0, time.UTC).UnixMilli(), Notes: "Period 1", Status: models.SubstitutionStatusPending, RequesterName: "Teacher A"},
	}}
	svc := newExportServiceForTest(lister)

	doc, err := svc.Export(context.Background(), teacherA, " CSV ", dto.SubstitutionQuery{Status: models.SubstitutionStatusPending})
	require.NoError(t, err)
	assert.Equal(t, "substitutions-20240304-083000.csv", doc.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", doc.ContentType)
	assert.Equal(t, models.SubstitutionStatusPending, lister.filter.Status)

	lines := strings.Split(strings.TrimSpace(string(doc.Payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Requested At,Requester,Notes,Status,Accepted By", lines[0])
	assert.Equal(t, "sub-2,2024-03-04 07:00,Teacher A,Period 3,Accepted,Teacher B", lines[1])
	assert.Equal(t, "sub-1,2024-03-03 07:00,Teacher A,Period 1,Pending,", lines[2])
}

func TestExportServicePDF(t *testing.T) {
	svc := newExportServiceForTest(&listerStub{})
	admin := &models.Session{ID: "a1", FullName: "Admin", Role: models.RoleAdmin}

	doc, err := svc.Export(context.Background(), admin, "pdf", dto.SubstitutionQuery{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, strings.HasPrefix(string(doc.Payload), "%PDF-"))
}

func TestExportServiceRejections(t *testing.T) {
	svc := newExportServiceForTest(&listerStub{})

	_, err := svc.Export(context.Background(), student, "csv", dto.SubstitutionQuery{})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Export(context.Background(), teacherA, "xlsx", dto.SubstitutionQuery{})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	failing := newExportServiceForTest(&listerStub{err: appErrors.Wrap(errors.New("down"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed")})
	_, err = failing.Export(context.Background(), teacherA, "csv", dto.SubstitutionQuery{})
	require.ErrorIs(t, err, appErrors.ErrInternal)
}
