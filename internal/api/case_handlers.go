package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "github.com/aethra/upfronts/internal/errors"
	"github.com/aethra/upfronts/internal/filter"
	"github.com/aethra/upfronts/internal/models"
	"github.com/aethra/upfronts/internal/salesforce"
)

// FetchCases previews CRM cases without persisting anything. The caller
// supplies either case-numbers (comma-separated) or a from-date/to-date
// pair; exactly one selector must be present.
func (a *App) FetchCases(c *gin.Context) {
	numbers := splitCaseNumbers(c.Query("case-numbers"))
	fromRaw := c.Query("from-date")
	toRaw := c.Query("to-date")

	hasNumbers := len(numbers) > 0
	hasRange := fromRaw != "" || toRaw != ""
	if hasNumbers == hasRange {
		respondError(c, apperrors.NewBadRequestError(
			"provide either case-numbers or a from-date/to-date pair"))
		return
	}

	var (
		previews []salesforce.CasePreview
		err      error
	)
	if hasNumbers {
		previews, err = a.crm.FetchCasesByNumbers(c.Request.Context(), numbers)
	} else {
		var from, to *time.Time
		if from, err = parseDay(fromRaw); err != nil {
			respondError(c, apperrors.NewValidationError("from-date", err.Error()))
			return
		}
		if to, err = parseDay(toRaw); err != nil {
			respondError(c, apperrors.NewValidationError("to-date", err.Error()))
			return
		}
		if from == nil || to == nil {
			respondError(c, apperrors.NewValidationError("to-date", "both range bounds are required"))
			return
		}
		// The upper bound is inclusive of the whole day.
		previews, err = a.crm.FetchCasesByDateRange(c.Request.Context(), *from, to.Add(24*time.Hour-time.Second))
	}
	if err != nil {
		respondError(c, apperrors.NewUpstreamError("", err))
		return
	}
	if previews == nil {
		previews = make([]salesforce.CasePreview, 0)
	}

	c.JSON(http.StatusOK, gin.H{"data": previews})
}

// SaveCase imports one CRM case as a local contract, together with the
// attachment metadata of its linked contract. The import is all or
// nothing; a case already imported yields a conflict.
func (a *App) SaveCase(c *gin.Context) {
	caseID := c.Param("caseID")
	if caseID == "" {
		respondError(c, apperrors.NewBadRequestError("invalid caseID"))
		return
	}

	var existing models.Contract
	err := a.db.Where("salesforce_case_id = ?", caseID).First(&existing).Error
	if err == nil {
		respondError(c, apperrors.NewConflictError("contract for this case"))
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	ctx := c.Request.Context()
	crmCase, err := a.crm.GetCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, salesforce.ErrNotFound) {
			respondError(c, apperrors.NewNotFoundError("case"))
			return
		}
		respondError(c, apperrors.NewUpstreamError("", err))
		return
	}
	if crmCase.ContractID == "" {
		respondError(c, apperrors.NewBadRequestError("case has no linked contract"))
		return
	}

	crmContract, err := a.crm.GetContract(ctx, crmCase.ContractID)
	if err != nil {
		respondError(c, apperrors.NewUpstreamError("", err))
		return
	}
	signed, err := crmContract.SignedDate()
	if err != nil {
		respondError(c, apperrors.NewUpstreamError("", err))
		return
	}

	attachments, err := a.crm.ListAttachments(ctx, crmCase.ContractID)
	if err != nil {
		respondError(c, apperrors.NewUpstreamError("", err))
		return
	}

	contract := models.Contract{
		OrganizerAccountName: crmContract.AccountName,
		OrganizerEmail:       crmContract.OrganizerEmail,
		SignedDate:           models.NewDate(signed.Year(), signed.Month(), signed.Day()),
		Description:          crmCase.Description,
		CaseNumber:           crmCase.CaseNumber,
		SalesforceID:         crmContract.ID,
		SalesforceCaseID:     crmCase.ID,
		LinkToSalesforceCase: a.crm.CaseLink(crmCase.ID),
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&contract).Error; err != nil {
			return err
		}
		for _, att := range attachments {
			row := models.Attachment{
				ContractID:   contract.ID,
				SalesforceID: att.ID,
				Name:         att.Name,
				ContentType:  att.ContentType,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			respondError(c, apperrors.NewConflictError("contract for this case"))
			return
		}
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	a.db.Preload("Attachments").First(&contract, contract.ID)
	c.JSON(http.StatusCreated, gin.H{
		"contract":        contract,
		"installmentsUrl": fmt.Sprintf("/api/contracts/%d/installments", contract.ID),
	})
}

func splitCaseNumbers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	numbers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			numbers = append(numbers, trimmed)
		}
	}
	return numbers
}

// parseDay reads a YYYY-MM-DD query value into a UTC midnight time.
func parseDay(raw string) (*time.Time, error) {
	d, err := filter.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	t := time.Time(*d)
	return &t, nil
}
