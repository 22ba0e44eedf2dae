package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/middleware"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type substitutionServiceMock struct {
	submitReq   dto.CreateSubstitutionRequest
	listFilter  dto.SubstitutionQuery
	acceptVer   int
	cancelVer   int
	lastSession *models.Session
	err         error
	called      bool
}

func (m *substitutionServiceMock) Submit(_ context.Context, session *models.Session, req dto.CreateSubstitutionRequest) (*models.SubstitutionRequest, error) {
	m.called, m.lastSession, m.submitReq = true, session, req
	if m.err != nil {
		return nil, m.err
	}
	return &models.SubstitutionRequest{ID: "sub-1", Notes: req.Notes, Status: models.SubstitutionStatusPending, Version: 1}, nil
}

func (m *substitutionServiceMock) List(_ context.Context, session *models.Session, filter dto.SubstitutionQuery) ([]models.SubstitutionRequest, error) {
	m.called, m.lastSession, m.listFilter = true, session, filter
	return []models.SubstitutionRequest{{ID: "sub-1"}}, m.err
}

func (m *substitutionServiceMock) Get(_ context.Context, id string, session *models.Session) (*dto.SubstitutionDetail, error) {
	m.called, m.lastSession = true, session
	if m.err != nil {
		return nil, m.err
	}
	return &dto.SubstitutionDetail{Request: models.SubstitutionRequest{ID: id}, IsActionable: true}, nil
}

func (m *substitutionServiceMock) Accept(_ context.Context, id string, session *models.Session, expectedVersion int) (*models.SubstitutionRequest, error) {
	m.called, m.lastSession, m.acceptVer = true, session, expectedVersion
	if m.err != nil {
		return nil, m.err
	}
	return &models.SubstitutionRequest{ID: id, Status: models.SubstitutionStatusAccepted}, nil
}

func (m *substitutionServiceMock) Decline(_ context.Context, id string, session *models.Session) (*models.SubstitutionRequest, error) {
	m.called, m.lastSession = true, session
	if m.err != nil {
		return nil, m.err
	}
	return &models.SubstitutionRequest{ID: id}, nil
}

func (m *substitutionServiceMock) Cancel(_ context.Context, _ string, session *models.Session, expectedVersion int) error {
	m.called, m.lastSession, m.cancelVer = true, session, expectedVersion
	return m.err
}

type exporterMock struct {
	format string
}

func (e *exporterMock) Export(_ context.Context, _ *models.Session, format string, _ dto.SubstitutionQuery) (*dto.SubstitutionExport, error) {
	e.format = format
	return &dto.SubstitutionExport{Filename: "substitutions.csv", ContentType: "text/csv", Payload: []byte("ID\n")}, nil
}

var teacherClaims = &models.JWTClaims{UserID: "t1", FullName: "Teacher A", Role: models.RoleTeacher}

func newTestContext(method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func TestSubstitutionHandlerCreate(t *testing.T) {
	svc := &substitutionServiceMock{}
	h := NewSubstitutionHandler(svc, nil)

	c, w := newTestContext(http.MethodPost, "/substitutions", []byte(`{"notes":"Cover Period 3"}`), teacherClaims)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Cover Period 3", svc.submitReq.Notes)
	assert.Equal(t, &models.Session{ID: "t1", FullName: "Teacher A", Role: models.RoleTeacher}, svc.lastSession)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "sub-1", data["id"])
}

func TestSubstitutionHandlerCreateInvalidBody(t *testing.T) {
	svc := &substitutionServiceMock{}
	h := NewSubstitutionHandler(svc, nil)

	c, w := newTestContext(http.MethodPost, "/substitutions", []byte(`{"notes":`), teacherClaims)
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, svc.called)
}

func TestSubstitutionHandlerRequiresSession(t *testing.T) {
	svc := &substitutionServiceMock{}
	h := NewSubstitutionHandler(svc, nil)

	c, w := newTestContext(http.MethodGet, "/substitutions", nil, nil)
	h.List(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, svc.called)
}

func TestSubstitutionHandlerListFilters(t *testing.T) {
	svc := &substitutionServiceMock{}
	h := NewSubstitutionHandler(svc, nil)

	c, w := newTestContext(http.MethodGet, "/substitutions?status=pending&requesterId=t2", nil, teacherClaims)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.SubstitutionQuery{Status: models.SubstitutionStatusPending, RequesterID: "t2"}, svc.listFilter)
	meta := decodeEnvelope(t, w)["meta"].(map[string]interface{})
	assert.EqualValues(t, 1, meta["count"])

	c, w = newTestContext(http.MethodGet, "/substitutions?status=declined", nil, teacherClaims)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubstitutionHandlerAcceptVersion(t *testing.T) {
	svc := &substitutionServiceMock{}
	h := NewSubstitutionHandler(svc, nil)

	c, w := newTestContext(http.MethodPost, "/substitutions/sub-1/accept", []byte(`{"version":3}`), teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
	h.Accept(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, svc.acceptVer)

	c, w = newTestContext(http.MethodPost, "/substitutions/sub-1/accept", nil, teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
	h.Accept(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, svc.acceptVer)
}

func TestSubstitutionHandlerMapsErrors(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
		code   string
	}{
		"not found":          {appErrors.Clone(appErrors.ErrNotFound, "substitution request not found"), http.StatusNotFound, "NOT_FOUND"},
		"forbidden":          {appErrors.Clone(appErrors.ErrForbidden, "you cannot accept your own request"), http.StatusForbidden, "FORBIDDEN"},
		"invalid transition": {appErrors.Clone(appErrors.ErrInvalidTransition, "no longer pending"), http.StatusConflict, "INVALID_TRANSITION"},
		"conflict":           {appErrors.Clone(appErrors.ErrConflict, "stale"), http.StatusConflict, "CONFLICT"},
		"internal":           {appErrors.ErrInternal, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := NewSubstitutionHandler(&substitutionServiceMock{err: tc.err}, nil)
			c, w := newTestContext(http.MethodPost, "/substitutions/sub-1/accept", []byte(`{}`), teacherClaims)
			c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
			h.Accept(c)

			require.Equal(t, tc.status, w.Code)
			errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
			assert.Equal(t, tc.code, errBody["code"])
		})
	}
}

func TestSubstitutionHandlerCancel(t *testing.T) {
	svc := &substitutionServiceMock{}
	h := NewSubstitutionHandler(svc, nil)

	c, w := newTestContext(http.MethodDelete, "/substitutions/sub-1?version=2", nil, teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
	h.Cancel(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 2, svc.cancelVer)

	svc.called = false
	c, w = newTestContext(http.MethodDelete, "/substitutions/sub-1?version=abc", nil, teacherClaims)
	h.Cancel(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, svc.called)
}

func TestSubstitutionHandlerDecline(t *testing.T) {
	svc := &substitutionServiceMock{}
	h := NewSubstitutionHandler(svc, nil)

	c, w := newTestContext(http.MethodPost, "/substitutions/sub-9/decline", nil, teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "sub-9"}}
	h.Decline(c)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "sub-9", data["id"])
}

func TestSubstitutionHandlerExport(t *testing.T) {
	exporter := &exporterMock{}
	h := NewSubstitutionHandler(&substitutionServiceMock{}, exporter)

	c, w := newTestContext(http.MethodGet, "/substitutions/export?format=csv", nil, teacherClaims)
	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Equal(t, `attachment; filename="substitutions.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "ID\n", w.Body.String())
}
