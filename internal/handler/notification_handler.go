package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/response"
)

type notificationInbox interface {
	Drain(ctx context.Context, recipientID string) []models.DeliveredNotification
}

// NotificationHandler hands pending toasts to the client.
type NotificationHandler struct {
	inbox notificationInbox
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(inbox notificationInbox) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

// List godoc
// @Summary Pending notifications of the caller, oldest first. Returned entries are removed.
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	if h.inbox == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "notification inbox not configured"))
		return
	}
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items := h.inbox.Drain(c.Request.Context(), session.ID)
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"count": len(items)})
}
