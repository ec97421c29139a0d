package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestGenerateQueryAllFilters(t *testing.T) {
	got := GenerateQuery(QueryParams{
		EventID:  "1234",
		FromDate: datePtr(2019, time.March, 8),
		ToDate:   datePtr(2019, time.May, 8),
		Currency: "BRL",
	}, "BRL")

	want := `SELECT
    f.organizer_id,
    f.currency,
    u.email,
    e.event_name,
    SUM(f.gtf) AS gtf,
    SUM(f.gts) AS gts,
    SUM(f.eb_fee) AS eb_fee,
    SUM(f.eb_tax) AS eb_tax,
    SUM(f.royalty) AS royalty
FROM f_ticket_merchandise_purchase f
JOIN d_organizer u ON u.organizer_id = f.organizer_id
JOIN d_event e ON e.event_id = f.event_id
WHERE f.currency IN ('BRL')
AND f.event_id = 1234
AND f.trx_date > '2019-03-08'
AND f.trx_date < '2019-05-08'
GROUP BY f.organizer_id, f.currency, u.email, e.event_name`

	assert.Equal(t, want, got)
	assert.Equal(t, 1, strings.Count(got, "AND f.event_id = 1234"))
	assert.Equal(t, 1, strings.Count(got, "trx_date > '2019-03-08'"))
	assert.Equal(t, 1, strings.Count(got, "trx_date < '2019-05-08'"))
}

func TestGenerateQueryOmitsAbsentClauses(t *testing.T) {
	got := GenerateQuery(QueryParams{}, "BRL")

	assert.Contains(t, got, "WHERE f.currency IN ('BRL')")
	assert.NotContains(t, got, "f.event_id =")
	assert.NotContains(t, got, "trx_date")
}

func TestGenerateQueryCurrencyDefault(t *testing.T) {
	got := GenerateQuery(QueryParams{}, "USD")
	assert.Contains(t, got, "f.currency IN ('USD')")

	got = GenerateQuery(QueryParams{Currency: "ARS"}, "USD")
	assert.Contains(t, got, "f.currency IN ('ARS')")
}

func TestGenerateQueryOnlyDateRange(t *testing.T) {
	got := GenerateQuery(QueryParams{
		FromDate: datePtr(2019, time.March, 8),
	}, "BRL")

	assert.Contains(t, got, "AND f.trx_date > '2019-03-08'")
	assert.NotContains(t, got, "trx_date <")
	assert.NotContains(t, got, "f.event_id")
}

func TestGenerateQueryIsDeterministic(t *testing.T) {
	p := QueryParams{EventID: "42", FromDate: datePtr(2020, time.January, 1)}
	assert.Equal(t, GenerateQuery(p, "BRL"), GenerateQuery(p, "BRL"))
}
