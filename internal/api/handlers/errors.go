package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/ingest"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// respondError maps domain errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case domain.IsForecastUnavailable(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "forecast unavailable", "detail": err.Error()})
	case errors.Is(err, domain.ErrInvalidConfiguration),
		errors.Is(err, ingest.ErrMalformed),
		errors.Is(err, ingest.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func productIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid product id")
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}
