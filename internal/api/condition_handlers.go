package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aethra/upfronts/internal/config"
	apperrors "github.com/aethra/upfronts/internal/errors"
	"github.com/aethra/upfronts/internal/models"
)

// ConditionInput is the create payload for an installment condition.
type ConditionInput struct {
	ConditionName string `json:"conditionName" binding:"required,conditionname"`
}

// ListConditions returns the checklist of one installment.
func (a *App) ListConditions(c *gin.Context) {
	installmentID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := a.requireInstallment(installmentID); err != nil {
		respondError(c, err)
		return
	}

	var conditions []models.InstallmentCondition
	err = a.db.Where("installment_id = ?", installmentID).
		Order("id").
		Find(&conditions).Error
	if err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": conditions})
}

// CreateCondition adds one checklist item to an installment. The name
// must come from the allowed set; conditions always start pending.
func (a *App) CreateCondition(c *gin.Context) {
	installmentID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := a.requireInstallment(installmentID); err != nil {
		respondError(c, err)
		return
	}

	var input ConditionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, bindError(err))
		return
	}

	cond := models.InstallmentCondition{
		InstallmentID: installmentID,
		ConditionName: input.ConditionName,
	}
	if err := a.db.Create(&cond).Error; err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}
	c.JSON(http.StatusCreated, cond)
}

// ToggleCondition flips a condition between pending and done. Toggling a
// done condition clears its completion time.
func (a *App) ToggleCondition(c *gin.Context) {
	cond, appErr := a.findCondition(c)
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	cond.Toggle(time.Now().UTC())
	if err := a.db.Model(cond).Update("done", cond.Done).Error; err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}
	c.JSON(http.StatusOK, cond)
}

// UploadBackupProof stores a supporting document for a condition. The
// file lands on disk under a generated name; nothing is persisted when
// the extension is not in the allowed set.
func (a *App) UploadBackupProof(c *gin.Context) {
	cond, appErr := a.findCondition(c)
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperrors.NewValidationError("file", "is required"))
		return
	}

	ext := filepath.Ext(file.Filename)
	if !config.AllowedExtension(ext) {
		respondError(c, apperrors.NewValidationError("file", "file extension not allowed"))
		return
	}

	if err := os.MkdirAll(a.cfg.UploadDir, 0o755); err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}
	stored := filepath.Join(a.cfg.UploadDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(file, stored); err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	previous := cond.UploadFile
	cond.UploadFile = stored
	cond.UploadFileName = filepath.Base(file.Filename)
	err = a.db.Model(cond).Updates(map[string]interface{}{
		"upload_file":      cond.UploadFile,
		"upload_file_name": cond.UploadFileName,
	}).Error
	if err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}
	// Replacing a proof leaves no orphan on disk.
	if previous != "" && previous != stored {
		_ = os.Remove(previous)
	}

	c.JSON(http.StatusOK, cond)
}

// DownloadBackupProof serves a condition's stored proof under its
// original upload name.
func (a *App) DownloadBackupProof(c *gin.Context) {
	cond, appErr := a.findCondition(c)
	if appErr != nil {
		respondError(c, appErr)
		return
	}
	if cond.UploadFile == "" {
		respondError(c, apperrors.NewNotFoundError("backup proof"))
		return
	}
	c.FileAttachment(cond.UploadFile, cond.UploadFileName)
}

// DeleteBackupProof removes a condition's proof from disk and clears
// the stored references.
func (a *App) DeleteBackupProof(c *gin.Context) {
	cond, appErr := a.findCondition(c)
	if appErr != nil {
		respondError(c, appErr)
		return
	}
	if cond.UploadFile == "" {
		respondError(c, apperrors.NewNotFoundError("backup proof"))
		return
	}

	stored := cond.UploadFile
	err := a.db.Model(cond).Updates(map[string]interface{}{
		"upload_file":      "",
		"upload_file_name": "",
	}).Error
	if err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}
	_ = os.Remove(stored)

	cond.UploadFile = ""
	cond.UploadFileName = ""
	c.JSON(http.StatusOK, cond)
}

// DeleteCondition removes one checklist item.
func (a *App) DeleteCondition(c *gin.Context) {
	id, err := pathID(c, "conditionID")
	if err != nil {
		respondError(c, err)
		return
	}

	result := a.db.Delete(&models.InstallmentCondition{}, id)
	if result.Error != nil {
		respondError(c, apperrors.NewInternalError(result.Error))
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, apperrors.NewNotFoundError("condition"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (a *App) findCondition(c *gin.Context) (*models.InstallmentCondition, error) {
	id, err := pathID(c, "conditionID")
	if err != nil {
		return nil, err
	}
	var cond models.InstallmentCondition
	if err := a.db.First(&cond, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("condition")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return &cond, nil
}

func (a *App) requireInstallment(id uint) error {
	var installment models.Installment
	if err := a.db.Select("id").First(&installment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFoundError("installment")
		}
		return apperrors.NewInternalError(err)
	}
	return nil
}
