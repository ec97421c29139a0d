package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "github.com/aethra/upfronts/internal/errors"
	"github.com/aethra/upfronts/internal/filter"
	"github.com/aethra/upfronts/internal/models"
)

// ContractInput is the create/update payload for a contract.
type ContractInput struct {
	OrganizerAccountName string  `json:"organizerAccountName" binding:"required"`
	OrganizerEmail       string  `json:"organizerEmail" binding:"required,email"`
	SignedDate           string  `json:"signedDate" binding:"required"`
	EventID              *string `json:"eventId"`
	UserID               *string `json:"userId"`
	Description          string  `json:"description"`
	CaseNumber           string  `json:"caseNumber" binding:"required"`
	SalesforceID         string  `json:"salesforceId"`
	SalesforceCaseID     string  `json:"salesforceCaseId"`
	LinkToSalesforceCase string  `json:"linkToSalesforceCase"`
}

// ListContracts returns a filtered, paginated contract listing.
func (a *App) ListContracts(c *gin.Context) {
	signedDate, err := filter.ParseDate(c.Query("signed-date"))
	if err != nil {
		respondError(c, apperrors.NewValidationError("signed-date", err.Error()))
		return
	}
	f := filter.ContractFilters{
		Organizer:  c.Query("organizer"),
		SignedDate: signedDate,
	}

	base := a.db.Model(&models.Contract{}).Scopes(f.Scope())

	var totalRows int64
	if err := base.Count(&totalRows).Error; err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	var contracts []models.Contract
	if err := base.Scopes(a.Paginate(c)).Order("contracts.id").Find(&contracts).Error; err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}
	if contracts == nil {
		contracts = make([]models.Contract, 0)
	}

	c.JSON(http.StatusOK, a.NewPaginatedResponse(c, contracts, totalRows))
}

// CreateContract creates a contract from the administrative form.
func (a *App) CreateContract(c *gin.Context) {
	var input ContractInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, bindError(err))
		return
	}

	contract, err := a.contractFromInput(input)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := a.db.Create(contract).Error; err != nil {
		if isUniqueViolation(err) {
			respondError(c, apperrors.NewConflictError("contract with this case number"))
			return
		}
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	c.JSON(http.StatusCreated, contract)
}

// GetContract returns one contract with its installments, attachments
// and events.
func (a *App) GetContract(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var contract models.Contract
	err = a.db.
		Preload("Installments.Conditions").
		Preload("Installments").
		Preload("Attachments").
		Preload("Events").
		First(&contract, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.NewNotFoundError("contract"))
			return
		}
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, contract)
}

// UpdateContract applies the editable subset of contract fields.
func (a *App) UpdateContract(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var contract models.Contract
	if err := a.db.First(&contract, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.NewNotFoundError("contract"))
			return
		}
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	var input ContractInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, bindError(err))
		return
	}

	updated, err := a.contractFromInput(input)
	if err != nil {
		respondError(c, err)
		return
	}

	contract.OrganizerAccountName = updated.OrganizerAccountName
	contract.OrganizerEmail = updated.OrganizerEmail
	contract.SignedDate = updated.SignedDate
	contract.EventID = updated.EventID
	contract.UserID = updated.UserID
	contract.Description = updated.Description
	contract.CaseNumber = updated.CaseNumber

	if err := a.db.Save(&contract).Error; err != nil {
		if isUniqueViolation(err) {
			respondError(c, apperrors.NewConflictError("contract with this case number"))
			return
		}
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, contract)
}

// DeleteContract removes a contract; the store cascades to installments,
// conditions, attachments and events.
func (a *App) DeleteContract(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	result := a.db.Delete(&models.Contract{}, id)
	if result.Error != nil {
		respondError(c, apperrors.NewInternalError(result.Error))
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, apperrors.NewNotFoundError("contract"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (a *App) contractFromInput(input ContractInput) (*models.Contract, error) {
	signed, err := filter.ParseDate(input.SignedDate)
	if err != nil {
		return nil, apperrors.NewValidationError("signedDate", err.Error())
	}
	if signed == nil {
		return nil, apperrors.NewValidationError("signedDate", "is required")
	}
	return &models.Contract{
		OrganizerAccountName: input.OrganizerAccountName,
		OrganizerEmail:       input.OrganizerEmail,
		SignedDate:           *signed,
		EventID:              input.EventID,
		UserID:               input.UserID,
		Description:          input.Description,
		CaseNumber:           input.CaseNumber,
		SalesforceID:         input.SalesforceID,
		SalesforceCaseID:     input.SalesforceCaseID,
		LinkToSalesforceCase: input.LinkToSalesforceCase,
	}, nil
}

// isUniqueViolation recognizes unique-constraint errors across the
// Postgres production store and the sqlite test store.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
