package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/response"
)

type substitutionService interface {
	Submit(ctx context.Context, session *models.Session, req dto.CreateSubstitutionRequest) (*models.SubstitutionRequest, error)
	List(ctx context.Context, session *models.Session, filter dto.SubstitutionQuery) ([]models.SubstitutionRequest, error)
	Get(ctx context.Context, id string, session *models.Session) (*dto.SubstitutionDetail, error)
	Accept(ctx context.Context, id string, session *models.Session, expectedVersion int) (*models.SubstitutionRequest, error)
	Decline(ctx context.Context, id string, session *models.Session) (*models.SubstitutionRequest, error)
	Cancel(ctx context.Context, id string, session *models.Session, expectedVersion int) error
}

type substitutionExporter interface {
	Export(ctx context.Context, session *models.Session, format string, filter dto.SubstitutionQuery) (*dto.SubstitutionExport, error)
}

// SubstitutionHandler exposes the substitution request board.
type SubstitutionHandler struct {
	service  substitutionService
	exporter substitutionExporter
}

// NewSubstitutionHandler constructs the handler.
func NewSubstitutionHandler(service substitutionService, exporter substitutionExporter) *SubstitutionHandler {
	return &SubstitutionHandler{service: service, exporter: exporter}
}

// List godoc
// @Summary List substitution requests, newest first
// @Tags Substitutions
// @Produce json
// @Param status query string false "Pending or Accepted"
// @Param requesterId query string false "Only requests of this teacher"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /substitutions [get]
func (h *SubstitutionHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "substitution service not configured"))
		return
	}
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query, err := parseSubstitutionQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	requests, err := h.service.List(c.Request.Context(), session, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil, map[string]interface{}{"count": len(requests)})
}

// Create godoc
// @Summary Request a substitute teacher
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubstitutionRequest true "Substitution payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /substitutions [post]
func (h *SubstitutionHandler) Create(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "substitution service not configured"))
		return
	}
	var req dto.CreateSubstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid substitution payload"))
		return
	}
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	created, err := h.service.Submit(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Get godoc
// @Summary Substitution request detail with the actions available to the caller
// @Tags Substitutions
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /substitutions/{id} [get]
func (h *SubstitutionHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "substitution service not configured"))
		return
	}
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Accept godoc
// @Summary Accept a pending substitution request
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.TransitionSubstitutionRequest false "Version last seen by the caller"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitutions/{id}/accept [post]
func (h *SubstitutionHandler) Accept(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "substitution service not configured"))
		return
	}
	var req dto.TransitionSubstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid accept payload"))
		return
	}
	if req.Version < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "version must not be negative"))
		return
	}
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	accepted, err := h.service.Accept(c.Request.Context(), c.Param("id"), session, req.Version)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accepted, nil)
}

// Decline godoc
// @Summary Decline a substitution request without changing it
// @Tags Substitutions
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /substitutions/{id}/decline [post]
func (h *SubstitutionHandler) Decline(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "substitution service not configured"))
		return
	}
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Decline(c.Request.Context(), c.Param("id"), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Cancel godoc
// @Summary Withdraw your own pending request
// @Tags Substitutions
// @Param id path string true "Request ID"
// @Param version query int false "Version last seen by the caller"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitutions/{id} [delete]
func (h *SubstitutionHandler) Cancel(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "substitution service not configured"))
		return
	}
	version := 0
	if raw := strings.TrimSpace(c.Query("version")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "version must be a non-negative integer"))
			return
		}
		version = parsed
	}
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Cancel(c.Request.Context(), c.Param("id"), session, version); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Download the request board
// @Tags Substitutions
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "Pending or Accepted"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /substitutions/export [get]
func (h *SubstitutionHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query, err := parseSubstitutionQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.exporter.Export(c.Request.Context(), session, c.Query("format"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Payload)
}

func parseSubstitutionQuery(c *gin.Context) (dto.SubstitutionQuery, error) {
	query := dto.SubstitutionQuery{RequesterID: strings.TrimSpace(c.Query("requesterId"))}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, ok := models.ParseSubstitutionStatus(raw)
		if !ok {
			return query, appErrors.Clone(appErrors.ErrValidation, "status must be Pending or Accepted")
		}
		query.Status = status
	}
	return query, nil
}
