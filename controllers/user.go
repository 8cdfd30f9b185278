package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"manuscript-review-api/utils"
)

type ActivationRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// ListUsers is admin-only; ?role= filters.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), c.Query("role"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", users)
}

// SetUserActivation activates or deactivates an account.
func (h *Handler) SetUserActivation(c *gin.Context) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	var req ActivationRequest
	if !bindJSON(c, &req) {
		return
	}
	if id == admin.UserID && !*req.IsActive {
		utils.RespondError(c, http.StatusBadRequest, "You cannot deactivate your own account")
		return
	}

	user, err := h.users.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "User updated", user)
}
