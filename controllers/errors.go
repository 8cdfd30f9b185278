package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"manuscript-review-api/services"
	"manuscript-review-api/utils"
)

// statusFor maps a service error to an HTTP status. A repeated review is a
// client error (400); other conflicts are 409.
func statusFor(err error) int {
	if errors.Is(err, services.ErrAlreadyReviewed) {
		return http.StatusBadRequest
	}
	switch services.KindOf(err) {
	case services.KindValidation, services.KindState:
		return http.StatusBadRequest
	case services.KindAuthentication:
		return http.StatusUnauthorized
	case services.KindAuthorization:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError writes the envelope for err. Internal errors are logged
// and answered with a generic message.
func handleServiceError(c *gin.Context, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		utils.RespondError(c, statusFor(err), se.Message)
		return
	}
	log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	utils.RespondError(c, http.StatusInternalServerError, "Internal server error")
}
