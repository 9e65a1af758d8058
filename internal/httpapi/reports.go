package httpapi

import (
	"errors"
	"net/http"
	"time"

	"callbridge/internal/reporting"

	"github.com/gin-gonic/gin"
)

// timeRangeParams parses from/to query params (RFC 3339), defaulting to
// the trailing 30 days.
func timeRangeParams(c *gin.Context) (reporting.TimeRange, error) {
	now := time.Now().UTC()
	rng := reporting.TimeRange{From: now.AddDate(0, 0, -30), To: now}

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return reporting.TimeRange{}, errors.New("from must be RFC 3339")
		}
		rng.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return reporting.TimeRange{}, errors.New("to must be RFC 3339")
		}
		rng.To = t
	}
	return rng, nil
}

func (h Handlers) UsageReport(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	rng, err := timeRangeParams(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.Reports.UsageSummary(c.Request.Context(), reporting.UsageSummaryRequest{UserID: uid, Range: rng})
	switch {
	case errors.Is(err, reporting.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
	default:
		c.JSON(http.StatusOK, out)
	}
}

func (h Handlers) SpendReport(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	rng, err := timeRangeParams(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.Reports.SpendSummary(c.Request.Context(), reporting.SpendSummaryRequest{UserID: uid, Range: rng})
	switch {
	case errors.Is(err, reporting.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
	default:
		c.JSON(http.StatusOK, out)
	}
}
