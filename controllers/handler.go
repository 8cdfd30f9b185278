package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"manuscript-review-api/middleware"
	"manuscript-review-api/models"
	"manuscript-review-api/services"
	"manuscript-review-api/utils"
)

// Pinger reports whether the database is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler holds the services behind the HTTP API.
type Handler struct {
	workflow      *services.WorkflowService
	notifications *services.NotificationService
	auth          *services.AuthService
	users         *services.UserDirectory
	db            Pinger
}

func NewHandler(
	workflow *services.WorkflowService,
	notifications *services.NotificationService,
	auth *services.AuthService,
	users *services.UserDirectory,
	db Pinger,
) *Handler {
	return &Handler{
		workflow:      workflow,
		notifications: notifications,
		auth:          auth,
		users:         users,
		db:            db,
	}
}

// Health reports liveness and database reachability.
func (h *Handler) Health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			utils.RespondError(c, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
	}
	utils.RespondOK(c, http.StatusOK, "", gin.H{"status": "ok"})
}

// NotFound is the catch-all for unknown routes.
func NotFound(c *gin.Context) {
	utils.RespondError(c, http.StatusNotFound, "Endpoint not found")
}

/* ==========================
   Helpers
   ========================== */

// currentUser returns the authenticated user or writes a 401.
func currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	return user, true
}

// pathID parses the :id parameter or writes a 400.
func pathID(c *gin.Context, what string) (uint, bool) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, "Invalid "+what+" ID")
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return false
	}
	return true
}
