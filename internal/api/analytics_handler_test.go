package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyticsQueryEndpoint(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(t, http.MethodGet,
		"/api/analytics/query?event-id=1234&from-date=2019-03-08&to-date=2019-05-08", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Query string `json:"query"`
	}
	decodeJSON(t, w, &resp)
	require.Contains(t, resp.Query, "AND f.event_id = 1234")
	require.Contains(t, resp.Query, "f.trx_date > '2019-03-08'")
	require.Contains(t, resp.Query, "f.trx_date < '2019-05-08'")
	require.Contains(t, resp.Query, "f.currency IN ('BRL')")
}

func TestAnalyticsQueryEndpointNoFilters(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(t, http.MethodGet, "/api/analytics/query", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Query string `json:"query"`
	}
	decodeJSON(t, w, &resp)
	require.NotContains(t, resp.Query, "event_id =")
	require.NotContains(t, resp.Query, "trx_date")
}

func TestAnalyticsQueryEndpointRejectsBadDate(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(t, http.MethodGet, "/api/analytics/query?from-date=garbage", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
