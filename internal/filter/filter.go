// Package filter implements the composable search predicates applied to
// contract and installment listings. Every filter is a pure GORM scope:
// an absent value leaves the query untouched, present values compose
// conjunctively, and the order of application never changes the result.
package filter

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aethra/upfronts/internal/security"
)

// InstallmentFilters narrows an installment listing. The query is expected
// to be joined to contracts (installments.contract_id = contracts.id).
type InstallmentFilters struct {
	Organizer          string
	Status             string
	SignedDate         *datatypes.Date
	MaximumPaymentDate *datatypes.Date
	PaymentDate        *datatypes.Date
}

// Scope returns the combined scope for all present filters.
func (f InstallmentFilters) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = organizerScope(db, f.Organizer)
		if f.Status != "" {
			db = db.Where(`LOWER(installments.status) LIKE ? ESCAPE '\'`, security.ContainsPattern(f.Status))
		}
		if f.SignedDate != nil {
			db = db.Where("contracts.signed_date = ?", *f.SignedDate)
		}
		if f.MaximumPaymentDate != nil {
			db = db.Where("installments.maximum_payment_date = ?", *f.MaximumPaymentDate)
		}
		if f.PaymentDate != nil {
			db = db.Where("installments.payment_date = ?", *f.PaymentDate)
		}
		return db
	}
}

// ContractFilters narrows a contract listing.
type ContractFilters struct {
	Organizer  string
	SignedDate *datatypes.Date
}

// Scope returns the combined scope for all present filters.
func (f ContractFilters) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = organizerScope(db, f.Organizer)
		if f.SignedDate != nil {
			db = db.Where("contracts.signed_date = ?", *f.SignedDate)
		}
		return db
	}
}

// organizerScope matches the term as a case-insensitive substring of the
// organizer account name or email.
func organizerScope(db *gorm.DB, term string) *gorm.DB {
	if term == "" {
		return db
	}
	pattern := security.ContainsPattern(term)
	return db.Where(
		`LOWER(contracts.organizer_account_name) LIKE ? ESCAPE '\' OR LOWER(contracts.organizer_email) LIKE ? ESCAPE '\'`,
		pattern, pattern,
	)
}

// ParseDate parses a YYYY-MM-DD query value. An empty value yields nil,
// meaning "filter not supplied".
func ParseDate(value string) (*datatypes.Date, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	d := datatypes.Date(t)
	return &d, nil
}
