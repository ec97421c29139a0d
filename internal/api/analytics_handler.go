package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aethra/upfronts/internal/analytics"
	apperrors "github.com/aethra/upfronts/internal/errors"
)

// AnalyticsQuery renders the warehouse revenue query for the given
// event and date window. The query is returned as text; executing it
// against the warehouse is the analyst's job.
func (a *App) AnalyticsQuery(c *gin.Context) {
	from, err := parseDay(c.Query("from-date"))
	if err != nil {
		respondError(c, apperrors.NewValidationError("from-date", err.Error()))
		return
	}
	to, err := parseDay(c.Query("to-date"))
	if err != nil {
		respondError(c, apperrors.NewValidationError("to-date", err.Error()))
		return
	}

	params := analytics.QueryParams{
		EventID:  c.Query("event-id"),
		FromDate: from,
		ToDate:   to,
		Currency: c.Query("currency"),
	}

	c.JSON(http.StatusOK, gin.H{"query": analytics.GenerateQuery(params, a.cfg.DefaultCurrency)})
}
