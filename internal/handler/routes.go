package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-substitution-api/internal/middleware"
	"github.com/noah-isme/sma-substitution-api/internal/models"
)

// Handlers groups the API handlers mounted under the API prefix.
type Handlers struct {
	Substitutions *SubstitutionHandler
	Attendance    *AttendanceHandler
	Profile       *ProfileHandler
	Notifications *NotificationHandler
}

// RegisterRoutes mounts the authenticated API on group. auth must populate middleware.ContextUserKey.
func RegisterRoutes(group *gin.RouterGroup, auth gin.HandlerFunc, h Handlers) {
	api := group.Group("", auth)
	teacherOnly := middleware.RequireRoles(models.RoleTeacher)

	subs := api.Group("/substitutions")
	subs.GET("", h.Substitutions.List)
	subs.POST("", teacherOnly, h.Substitutions.Create)
	subs.GET("/export", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), h.Substitutions.Export)
	subs.GET("/:id", h.Substitutions.Get)
	subs.POST("/:id/accept", teacherOnly, h.Substitutions.Accept)
	subs.POST("/:id/decline", teacherOnly, h.Substitutions.Decline)
	subs.DELETE("/:id", h.Substitutions.Cancel)

	attendance := api.Group("/attendance", teacherOnly)
	attendance.POST("/presence", h.Attendance.MarkPresence)
	attendance.GET("/weekly", h.Attendance.Weekly)

	api.GET("/profile", h.Profile.Get)
	api.PATCH("/profile", h.Profile.Update)

	api.GET("/notifications", h.Notifications.List)
}
