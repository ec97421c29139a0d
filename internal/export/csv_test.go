package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aethra/upfronts/internal/models"
)

func money(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func sampleInstallment() *models.Installment {
	maxPay := models.NewDate(2019, time.May, 30)
	payDate := models.NewDate(2019, time.May, 5)
	return &models.Installment{
		IsRecoup:           true,
		Status:             "COMMITED/APPROVED",
		UpfrontProjection:  money("77777"),
		RecoupAmount:       money("55555"),
		GTF:                money("100000"),
		GTS:                money("7000"),
		MaximumPaymentDate: &maxPay,
		PaymentDate:        &payDate,
		Contract: &models.Contract{
			OrganizerAccountName: "EDA",
			OrganizerEmail:       "juan@eventbrite.com",
			SignedDate:           models.NewDate(2019, time.April, 4),
		},
	}
}

func writeAll(t *testing.T, installments ...*models.Installment) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	for _, inst := range installments {
		require.NoError(t, w.Write(inst))
	}
	require.NoError(t, w.Flush())
	return buf.String()
}

func TestHeaderMatchesColumnSchema(t *testing.T) {
	out := writeAll(t)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Columns, records[0])
}

func TestExportProducesHeaderPlusOneLinePerRow(t *testing.T) {
	out := writeAll(t, sampleInstallment(), sampleInstallment(), sampleInstallment())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
}

func TestRowValues(t *testing.T) {
	out := writeAll(t, sampleInstallment())
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	row := records[1]
	byColumn := map[string]string{}
	for i, col := range Columns {
		byColumn[col] = row[i]
	}

	assert.Equal(t, "true", byColumn["is_recoup"])
	assert.Equal(t, "COMMITED/APPROVED", byColumn["status"])
	assert.Equal(t, "EDA", byColumn["organizer_account_name"])
	assert.Equal(t, "juan@eventbrite.com", byColumn["organizer_email"])
	assert.Equal(t, "2019-04-04", byColumn["signed_date"])
	assert.Equal(t, "77777.0000", byColumn["upfront_projection"])
	assert.Equal(t, "55555.0000", byColumn["recoup_amount"])
	assert.Equal(t, "22222.0000", byColumn["balance"])
	assert.Equal(t, "2019-05-30", byColumn["maximum_payment_date"])
	assert.Equal(t, "2019-05-05", byColumn["payment_date"])
	assert.Equal(t, "7000.0000", byColumn["gts"])
	assert.Equal(t, "100000.0000", byColumn["gtf"])
}

func TestNullAmountsAndDatesStayEmpty(t *testing.T) {
	inst := &models.Installment{
		Status: "INVESTED",
		Contract: &models.Contract{
			OrganizerAccountName: "IDO",
			OrganizerEmail:       "ido@example.com",
			SignedDate:           models.NewDate(2019, time.April, 4),
		},
	}
	out := writeAll(t, inst)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)

	row := records[1]
	byColumn := map[string]string{}
	for i, col := range Columns {
		byColumn[col] = row[i]
	}
	assert.Equal(t, "", byColumn["upfront_projection"])
	assert.Equal(t, "", byColumn["recoup_amount"])
	assert.Equal(t, "", byColumn["payment_date"])
	// Balance is derived with null-as-zero, never empty.
	assert.Equal(t, "0.0000", byColumn["balance"])
}

func TestWriteRejectsDetachedInstallment(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	assert.Error(t, w.Write(&models.Installment{}))
}

func TestFilename(t *testing.T) {
	now := time.Date(2019, 11, 11, 14, 19, 59, 123456789, time.UTC)
	assert.Equal(t, "2019-11-11T14:19:59-installments.csv", Filename(now))
}
