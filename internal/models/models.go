// Package models defines the persistent entities of the upfronts service
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Contract is an upfront payment agreement with an event organizer.
// Deleting a contract cascades to its installments, attachments and events.
type Contract struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	OrganizerAccountName string         `gorm:"size:80;not null" json:"organizerAccountName"`
	OrganizerEmail       string         `gorm:"size:254;not null" json:"organizerEmail"`
	SignedDate           datatypes.Date `json:"signedDate"`
	EventID              *string        `gorm:"size:80" json:"eventId,omitempty"`
	UserID               *string        `gorm:"size:80" json:"userId,omitempty"`
	Description          string         `gorm:"type:text" json:"description"`

	// CaseNumber is the business key; uniqueness is enforced by the store.
	CaseNumber           string `gorm:"size:80;uniqueIndex" json:"caseNumber"`
	SalesforceID         string `gorm:"size:80" json:"salesforceId"`
	SalesforceCaseID     string `gorm:"size:80" json:"salesforceCaseId"`
	LinkToSalesforceCase string `gorm:"size:255" json:"linkToSalesforceCase"`

	Installments []Installment `gorm:"constraint:OnDelete:CASCADE" json:"installments,omitempty"`
	Attachments  []Attachment  `gorm:"constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
	Events       []Event       `gorm:"constraint:OnDelete:CASCADE" json:"events,omitempty"`
}

func (Contract) TableName() string { return "contracts" }

// Installment is one payment tranche under a contract. Amount and date
// fields are nullable: early tranches are often recorded before the
// schedule is final.
type Installment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ContractID uint      `gorm:"not null;index" json:"contractId"`
	Contract   *Contract `gorm:"foreignKey:ContractID" json:"contract,omitempty"`

	IsRecoup           bool                `json:"isRecoup"`
	Status             string              `gorm:"size:80;default:'COMMITED/APPROVED'" json:"status"`
	UpfrontProjection  decimal.NullDecimal `gorm:"type:decimal(19,4)" json:"upfrontProjection"`
	MaximumPaymentDate *datatypes.Date     `json:"maximumPaymentDate,omitempty"`
	PaymentDate        *datatypes.Date     `json:"paymentDate,omitempty"`
	RecoupAmount       decimal.NullDecimal `gorm:"type:decimal(19,4)" json:"recoupAmount"`
	GTF                decimal.NullDecimal `gorm:"column:gtf;type:decimal(19,4)" json:"gtf"`
	GTS                decimal.NullDecimal `gorm:"column:gts;type:decimal(19,4)" json:"gts"`

	Conditions []InstallmentCondition `gorm:"constraint:OnDelete:CASCADE" json:"conditions,omitempty"`
}

func (Installment) TableName() string { return "installments" }

// Balance is the outstanding amount: upfront projection minus what has
// been recouped. A missing operand counts as zero, never as unknown.
func (i *Installment) Balance() decimal.Decimal {
	projection := decimal.Zero
	if i.UpfrontProjection.Valid {
		projection = i.UpfrontProjection.Decimal
	}
	recouped := decimal.Zero
	if i.RecoupAmount.Valid {
		recouped = i.RecoupAmount.Decimal
	}
	return projection.Sub(recouped)
}

// InstallmentCondition is a checklist item that must be satisfied before
// an installment's funds are released. Done is nil while pending and holds
// the completion time once marked done.
type InstallmentCondition struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	InstallmentID uint         `gorm:"not null;index" json:"installmentId"`
	Installment   *Installment `gorm:"foreignKey:InstallmentID" json:"-"`

	ConditionName string     `gorm:"size:80;not null" json:"conditionName"`
	Done          *time.Time `json:"done,omitempty"`

	// UploadFile is the stored backup-proof path; UploadFileName keeps the
	// name the file was uploaded under.
	UploadFile     string `gorm:"size:255" json:"uploadFile,omitempty"`
	UploadFileName string `gorm:"size:255" json:"uploadFileName,omitempty"`
}

func (InstallmentCondition) TableName() string { return "installment_conditions" }

// Toggle flips the condition between pending and done. Toggling twice
// returns it to the initial pending state.
func (c *InstallmentCondition) Toggle(now time.Time) {
	if c.Done != nil {
		c.Done = nil
		return
	}
	c.Done = &now
}

// IsDone reports whether the condition has been completed.
func (c *InstallmentCondition) IsDone() bool { return c.Done != nil }

// Attachment caches Salesforce attachment metadata for a contract so the
// binary body can be fetched on demand.
type Attachment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ContractID uint      `gorm:"not null;index" json:"contractId"`
	Contract   *Contract `gorm:"foreignKey:ContractID" json:"-"`

	SalesforceID string `gorm:"size:80;not null" json:"salesforceId"`
	Name         string `gorm:"size:255" json:"name"`
	ContentType  string `gorm:"size:120" json:"contentType"`
}

func (Attachment) TableName() string { return "attachments" }

// Event links a contract to an external event used for reporting.
type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ContractID uint      `gorm:"not null;index" json:"contractId"`
	Contract   *Contract `gorm:"foreignKey:ContractID" json:"-"`

	EventID string `gorm:"size:80;not null" json:"eventId"`
}

func (Event) TableName() string { return "events" }

// NewDate builds a datatypes.Date from a calendar day.
func NewDate(year int, month time.Month, day int) datatypes.Date {
	return datatypes.Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FormatDate renders a date as YYYY-MM-DD, or "" for nil.
func FormatDate(d *datatypes.Date) string {
	if d == nil {
		return ""
	}
	return time.Time(*d).Format("2006-01-02")
}
