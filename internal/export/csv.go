// Package export serializes installment listings as CSV. The export
// always walks the entire filtered collection, never a page of it.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aethra/upfronts/internal/models"
)

// AmountPrecision is the fixed number of fractional digits rendered for
// every monetary column.
const AmountPrecision = 4

// Columns is the fixed CSV column schema, header included. Balance is
// derived, everything else is stored.
var Columns = []string{
	"is_recoup",
	"status",
	"organizer_account_name",
	"organizer_email",
	"signed_date",
	"upfront_projection",
	"recoup_amount",
	"balance",
	"maximum_payment_date",
	"payment_date",
	"gts",
	"gtf",
}

// Filename returns the export file name for the given moment:
// an ISO-8601 timestamp with seconds precision plus the fixed suffix.
func Filename(now time.Time) string {
	return now.UTC().Format("2006-01-02T15:04:05") + "-installments.csv"
}

// Writer streams installments to CSV one row at a time so large exports
// never buffer the whole file.
type Writer struct {
	cw *csv.Writer
}

// NewWriter wraps w and writes the header row.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return &Writer{cw: cw}, nil
}

// Write appends one data row. The installment must carry its contract.
func (w *Writer) Write(inst *models.Installment) error {
	if inst.Contract == nil {
		return fmt.Errorf("installment %d has no contract loaded", inst.ID)
	}
	signed := inst.Contract.SignedDate
	row := []string{
		strconv.FormatBool(inst.IsRecoup),
		inst.Status,
		inst.Contract.OrganizerAccountName,
		inst.Contract.OrganizerEmail,
		models.FormatDate(&signed),
		formatAmount(inst.UpfrontProjection),
		formatAmount(inst.RecoupAmount),
		inst.Balance().StringFixed(AmountPrecision),
		models.FormatDate(inst.MaximumPaymentDate),
		models.FormatDate(inst.PaymentDate),
		formatAmount(inst.GTS),
		formatAmount(inst.GTF),
	}
	return w.cw.Write(row)
}

// Flush writes any buffered rows and reports the first error seen.
func (w *Writer) Flush() error {
	w.cw.Flush()
	return w.cw.Error()
}

// formatAmount renders a nullable amount with fixed precision and no
// locale grouping; absent values stay empty in the raw CSV.
func formatAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(AmountPrecision)
}
