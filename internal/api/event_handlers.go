package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/aethra/upfronts/internal/errors"
	"github.com/aethra/upfronts/internal/models"
)

// EventInput is the create payload linking an external event to a contract.
type EventInput struct {
	EventID string `json:"eventId" binding:"required"`
}

// eventResponse decorates an event with its reporting deep link.
type eventResponse struct {
	models.Event
	ReportLink string `json:"reportLink"`
}

// CreateEvent links an event to a contract and returns the reporting link.
func (a *App) CreateEvent(c *gin.Context) {
	contractID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var contract models.Contract
	if err := a.db.First(&contract, contractID).Error; err != nil {
		respondError(c, apperrors.NewNotFoundError("contract"))
		return
	}

	var input EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, bindError(err))
		return
	}

	event := models.Event{ContractID: contractID, EventID: input.EventID}
	if err := a.db.Create(&event).Error; err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	c.JSON(http.StatusCreated, eventResponse{
		Event:      event,
		ReportLink: fmt.Sprintf(a.cfg.ReportEventLink, event.EventID),
	})
}

// ListEvents returns the events of a contract with their reporting links.
func (a *App) ListEvents(c *gin.Context) {
	contractID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var events []models.Event
	if err := a.db.Where("contract_id = ?", contractID).Order("id").Find(&events).Error; err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	out := make([]eventResponse, len(events))
	for i, event := range events {
		out[i] = eventResponse{Event: event, ReportLink: fmt.Sprintf(a.cfg.ReportEventLink, event.EventID)}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// DeleteEvent unlinks an event from its contract.
func (a *App) DeleteEvent(c *gin.Context) {
	id, err := pathID(c, "eventID")
	if err != nil {
		respondError(c, err)
		return
	}

	result := a.db.Delete(&models.Event{}, id)
	if result.Error != nil {
		respondError(c, apperrors.NewInternalError(result.Error))
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, apperrors.NewNotFoundError("event"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
