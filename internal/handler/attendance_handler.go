package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/response"
)

type attendanceService interface {
	MarkPresence(ctx context.Context, session *models.Session, now time.Time) (*models.DailyPresence, error)
	WeeklySummary(ctx context.Context, session *models.Session, now time.Time) (*models.AttendanceSummary, error)
}

// AttendanceHandler exposes teacher presence endpoints.
type AttendanceHandler struct {
	service attendanceService
	now     func() time.Time
}

// NewAttendanceHandler constructs the handler. Days are evaluated in loc.
func NewAttendanceHandler(service attendanceService, loc *time.Location) *AttendanceHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceHandler{service: service, now: func() time.Time { return time.Now().In(loc) }}
}

// MarkPresence godoc
// @Summary Mark presence for one lecture today
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/presence [post]
func (h *AttendanceHandler) MarkPresence(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "attendance service not configured"))
		return
	}
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	presence, err := h.service.MarkPresence(c.Request.Context(), session, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, presence, nil)
}

// Weekly godoc
// @Summary Attendance chart of the current week
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/weekly [get]
func (h *AttendanceHandler) Weekly(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "attendance service not configured"))
		return
	}
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.service.WeeklySummary(c.Request.Context(), session, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
