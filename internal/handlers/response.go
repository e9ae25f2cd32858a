package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LeshegoT/the-hive-backend/internal/pkg/apperr"
)

// statusFor maps the error taxonomy onto HTTP status codes. Anything outside
// the taxonomy is an internal error.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict, apperr.KindIntegrityRefusal:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError && !apperr.IsPartialFailure(err) {
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
