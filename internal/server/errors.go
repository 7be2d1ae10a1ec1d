package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rowanvale/questboard/internal/task"
)

// renderError maps the task error taxonomy onto HTTP status codes.
// Validation and business-rule conflicts are both 400; authorization
// mismatches 403; unknown IDs 404. Anything else is an unexpected fault:
// logged with context, surfaced generically.
func renderError(c *gin.Context, err error) {
	var (
		ve *task.ValidationError
		fe *task.ForbiddenError
		ne *task.NotFoundError
		ce *task.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Reason})
	case errors.As(err, &ce):
		c.JSON(http.StatusBadRequest, gin.H{"error": ce.Reason})
	case errors.As(err, &fe):
		c.JSON(http.StatusForbidden, gin.H{"error": fe.Reason})
	case errors.As(err, &ne):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	default:
		log.Printf("server: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
