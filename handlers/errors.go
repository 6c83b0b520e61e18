package handlers

import (
	"errors"
	"net/http"

	"footfall-prediction-api/services"

	"github.com/gin-gonic/gin"
)

var errMissingUpload = errors.New(`multipart field "file" is required`)

// respondError maps pipeline and model errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var schemaErr *services.SchemaError
	var modelErr *services.ModelUnavailableError
	var historyErr *services.InsufficientHistoryError
	switch {
	case errors.As(err, &schemaErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &historyErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &modelErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prediction unavailable", "detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
