package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aethra/upfronts/internal/config"
	apperrors "github.com/aethra/upfronts/internal/errors"
	"github.com/aethra/upfronts/internal/export"
	"github.com/aethra/upfronts/internal/filter"
	"github.com/aethra/upfronts/internal/models"
)

// exportBatchSize is how many rows a CSV export loads per query.
const exportBatchSize = 500

// InstallmentInput is the create/update payload for an installment.
type InstallmentInput struct {
	IsRecoup           bool                `json:"isRecoup"`
	Status             string              `json:"status" binding:"omitempty,upfrontstatus"`
	UpfrontProjection  decimal.NullDecimal `json:"upfrontProjection"`
	MaximumPaymentDate string              `json:"maximumPaymentDate"`
	PaymentDate        string              `json:"paymentDate"`
	RecoupAmount       decimal.NullDecimal `json:"recoupAmount"`
	GTF                decimal.NullDecimal `json:"gtf"`
	GTS                decimal.NullDecimal `json:"gts"`

	// SeedConditions asks for the basic checklist to be attached to the
	// new installment inside the same transaction.
	SeedConditions bool `json:"seedConditions"`
}

// InstallmentResponse decorates an installment with its derived balance.
type InstallmentResponse struct {
	models.Installment
	Balance decimal.Decimal `json:"balance"`
}

func toResponse(installments []models.Installment) []InstallmentResponse {
	out := make([]InstallmentResponse, len(installments))
	for i := range installments {
		out[i] = InstallmentResponse{Installment: installments[i], Balance: installments[i].Balance()}
	}
	return out
}

// installmentFilters reads the listing filters from the query string.
func installmentFilters(c *gin.Context) (filter.InstallmentFilters, error) {
	var f filter.InstallmentFilters
	f.Organizer = c.Query("organizer")
	f.Status = c.Query("status")

	var err error
	if f.SignedDate, err = filter.ParseDate(c.Query("signed-date")); err != nil {
		return f, apperrors.NewValidationError("signed-date", err.Error())
	}
	if f.MaximumPaymentDate, err = filter.ParseDate(c.Query("maximum-payment-date")); err != nil {
		return f, apperrors.NewValidationError("maximum-payment-date", err.Error())
	}
	if f.PaymentDate, err = filter.ParseDate(c.Query("payment-date")); err != nil {
		return f, apperrors.NewValidationError("payment-date", err.Error())
	}
	return f, nil
}

// ListInstallments returns the filtered all-installments view, one page
// at a time — unless ?download=true, which streams the entire filtered
// collection as CSV.
func (a *App) ListInstallments(c *gin.Context) {
	f, err := installmentFilters(c)
	if err != nil {
		respondError(c, err)
		return
	}

	base := a.db.Model(&models.Installment{}).
		Joins("JOIN contracts ON contracts.id = installments.contract_id").
		Scopes(f.Scope())

	if c.Query("download") == "true" {
		a.exportInstallmentsCSV(c, base)
		return
	}

	var totalRows int64
	if err := base.Count(&totalRows).Error; err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	var installments []models.Installment
	err = base.Preload("Contract").
		Scopes(a.Paginate(c)).
		Order("installments.id").
		Find(&installments).Error
	if err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, a.NewPaginatedResponse(c, toResponse(installments), totalRows))
}

// exportInstallmentsCSV walks the whole filtered collection in batches
// and streams CSV rows, never materializing the full file in memory.
func (a *App) exportInstallmentsCSV(c *gin.Context, base *gorm.DB) {
	filename := export.Filename(time.Now())
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)

	w, err := export.NewWriter(c.Writer)
	if err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	var batch []models.Installment
	result := base.Preload("Contract").
		Order("installments.id").
		FindInBatches(&batch, exportBatchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				if err := w.Write(&batch[i]); err != nil {
					return err
				}
			}
			return nil
		})
	if result.Error != nil {
		// Headers are committed; all we can do is cut the stream short.
		c.Abort()
		return
	}
	if err := w.Flush(); err != nil {
		c.Abort()
	}
}

// CreateInstallment adds an installment to a contract, optionally seeding
// the basic condition checklist in the same transaction.
func (a *App) CreateInstallment(c *gin.Context) {
	contractID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var contract models.Contract
	if err := a.db.First(&contract, contractID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.NewNotFoundError("contract"))
			return
		}
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	var input InstallmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, bindError(err))
		return
	}

	installment, appErr := a.installmentFromInput(contractID, input)
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	seed := input.SeedConditions || c.Query("seed-conditions") == "true"

	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(installment).Error; err != nil {
			return err
		}
		if !seed {
			return nil
		}
		for _, name := range config.BasicConditions {
			cond := models.InstallmentCondition{
				InstallmentID: installment.ID,
				ConditionName: name,
			}
			if err := tx.Create(&cond).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	if seed {
		a.db.Preload("Conditions").First(installment, installment.ID)
	}
	c.JSON(http.StatusCreated, InstallmentResponse{Installment: *installment, Balance: installment.Balance()})
}

// UpdateInstallment applies an edit-form payload.
func (a *App) UpdateInstallment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var installment models.Installment
	if err := a.db.First(&installment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.NewNotFoundError("installment"))
			return
		}
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	var input InstallmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, bindError(err))
		return
	}

	updated, appErr := a.installmentFromInput(installment.ContractID, input)
	if appErr != nil {
		respondError(c, appErr)
		return
	}
	updated.ID = installment.ID
	updated.CreatedAt = installment.CreatedAt

	if err := a.db.Save(updated).Error; err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, InstallmentResponse{Installment: *updated, Balance: updated.Balance()})
}

// DeleteInstallment removes one installment and, through the cascade,
// its conditions. The parent contract is untouched.
func (a *App) DeleteInstallment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	result := a.db.Delete(&models.Installment{}, id)
	if result.Error != nil {
		respondError(c, apperrors.NewInternalError(result.Error))
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, apperrors.NewNotFoundError("installment"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (a *App) installmentFromInput(contractID uint, input InstallmentInput) (*models.Installment, error) {
	maxDate, err := filter.ParseDate(input.MaximumPaymentDate)
	if err != nil {
		return nil, apperrors.NewValidationError("maximumPaymentDate", err.Error())
	}
	payDate, err := filter.ParseDate(input.PaymentDate)
	if err != nil {
		return nil, apperrors.NewValidationError("paymentDate", err.Error())
	}

	status := input.Status
	if status == "" {
		status = a.cfg.Statuses[0]
	}

	return &models.Installment{
		ContractID:         contractID,
		IsRecoup:           input.IsRecoup,
		Status:             status,
		UpfrontProjection:  input.UpfrontProjection,
		MaximumPaymentDate: maxDate,
		PaymentDate:        payDate,
		RecoupAmount:       input.RecoupAmount,
		GTF:                input.GTF,
		GTS:                input.GTS,
	}, nil
}
