package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "github.com/aethra/upfronts/internal/errors"
	"github.com/aethra/upfronts/internal/models"
)

// LoginRequest represents login credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Login authenticates an operator and returns a token pair.
func (a *App) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.NewUnauthorizedError("invalid credentials"))
			return
		}
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	if !user.CheckPassword(req.Password) {
		respondError(c, apperrors.NewUnauthorizedError("invalid credentials"))
		return
	}

	pair, err := a.jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": pair,
		"user":  user,
	})
}

// RefreshToken exchanges a refresh token for a fresh pair.
func (a *App) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	claims, err := a.jwtService.ValidateToken(req.RefreshToken)
	if err != nil {
		respondError(c, apperrors.NewUnauthorizedError("invalid refresh token"))
		return
	}

	var user models.User
	if err := a.db.First(&user, claims.UserID).Error; err != nil {
		respondError(c, apperrors.NewUnauthorizedError("invalid refresh token"))
		return
	}

	pair, err := a.jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": pair})
}

// GetMe returns the authenticated operator.
func (a *App) GetMe(c *gin.Context) {
	claims := currentClaims(c)
	if claims == nil {
		respondError(c, apperrors.NewUnauthorizedError(""))
		return
	}

	var user models.User
	if err := a.db.First(&user, claims.UserID).Error; err != nil {
		respondError(c, apperrors.NewNotFoundError("user"))
		return
	}
	c.JSON(http.StatusOK, user)
}
