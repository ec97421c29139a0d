// Package analytics generates the ad-hoc Presto query handed off to the
// BI tool. Generation is pure string templating: nothing here executes
// SQL, and the output is stable enough for exact-string tests.
package analytics

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the fixed date layout used inside generated queries.
const DateFormat = "2006-01-02"

// QueryParams are the optional narrowing clauses. Absent values omit
// their clause entirely rather than emitting an always-true one.
type QueryParams struct {
	EventID  string
	FromDate *time.Time
	ToDate   *time.Time
	// Currency falls back to the configured default when empty.
	Currency string
}

// GenerateQuery builds the aggregation query over the ticket purchase
// fact table: per organizer, currency, organizer email and event name,
// summing the five fee/tax measures the finance team reconciles against.
func GenerateQuery(p QueryParams, defaultCurrency string) string {
	currency := p.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	var b strings.Builder
	b.WriteString("SELECT\n")
	b.WriteString("    f.organizer_id,\n")
	b.WriteString("    f.currency,\n")
	b.WriteString("    u.email,\n")
	b.WriteString("    e.event_name,\n")
	b.WriteString("    SUM(f.gtf) AS gtf,\n")
	b.WriteString("    SUM(f.gts) AS gts,\n")
	b.WriteString("    SUM(f.eb_fee) AS eb_fee,\n")
	b.WriteString("    SUM(f.eb_tax) AS eb_tax,\n")
	b.WriteString("    SUM(f.royalty) AS royalty\n")
	b.WriteString("FROM f_ticket_merchandise_purchase f\n")
	b.WriteString("JOIN d_organizer u ON u.organizer_id = f.organizer_id\n")
	b.WriteString("JOIN d_event e ON e.event_id = f.event_id\n")
	fmt.Fprintf(&b, "WHERE f.currency IN ('%s')\n", currency)
	if p.EventID != "" {
		fmt.Fprintf(&b, "AND f.event_id = %s\n", p.EventID)
	}
	if p.FromDate != nil {
		fmt.Fprintf(&b, "AND f.trx_date > '%s'\n", p.FromDate.Format(DateFormat))
	}
	if p.ToDate != nil {
		fmt.Fprintf(&b, "AND f.trx_date < '%s'\n", p.ToDate.Format(DateFormat))
	}
	b.WriteString("GROUP BY f.organizer_id, f.currency, u.email, e.event_name")
	return b.String()
}
