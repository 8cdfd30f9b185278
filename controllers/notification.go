package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"manuscript-review-api/services"
	"manuscript-review-api/utils"
)

// GetNotifications lists the caller's notifications.
// Query: limit, skip (or offset), unreadOnly.
func (h *Handler) GetNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	unreadOnly := strings.TrimSpace(c.Query("unreadOnly"))
	opts := services.ListOptions{
		UnreadOnly: unreadOnly == "1" || strings.EqualFold(unreadOnly, "true"),
	}
	if v, err := strconv.Atoi(strings.TrimSpace(c.Query("limit"))); err == nil {
		opts.Limit = v
	}
	skip := c.Query("skip")
	if skip == "" {
		skip = c.Query("offset")
	}
	if v, err := strconv.Atoi(strings.TrimSpace(skip)); err == nil && v >= 0 {
		opts.Offset = v
	}

	page, err := h.notifications.List(c.Request.Context(), user.UserID, opts)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", page)
}

func (h *Handler) GetUnreadCount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.notifications.UnreadCount(c.Request.Context(), user.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", gin.H{"unreadCount": n})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "notification")
	if !ok {
		return
	}
	n, err := h.notifications.MarkRead(c.Request.Context(), id, user.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Notification marked as read", n)
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	updated, err := h.notifications.MarkAllRead(c.Request.Context(), user.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "All notifications marked as read", gin.H{"updated": updated})
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "notification")
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), id, user.UserID); err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Notification deleted", nil)
}

func (h *Handler) DeleteAllNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	deleted, err := h.notifications.DeleteAll(c.Request.Context(), user.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "All notifications deleted", gin.H{"deleted": deleted})
}
