// Package api contains the HTTP handlers for the upfronts service
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/aethra/upfronts/internal/auth"
	"github.com/aethra/upfronts/internal/config"
	apperrors "github.com/aethra/upfronts/internal/errors"
	"github.com/aethra/upfronts/internal/salesforce"
)

const claimsKey = "claims"

// App bundles the dependencies shared by every handler. Configuration is
// injected here once; handlers never read the environment.
type App struct {
	db         *gorm.DB
	cfg        *config.Config
	jwtService *auth.JWTService
	crm        salesforce.API
}

// NewApp creates the handler set and registers the custom payload
// validations that depend on configuration.
func NewApp(db *gorm.DB, cfg *config.Config, crm salesforce.API) *App {
	app := &App{
		db:         db,
		cfg:        cfg,
		jwtService: auth.NewJWTService(cfg.JWTSecret),
		crm:        crm,
	}
	app.registerValidations()
	return app
}

// registerValidations wires the configured closed sets into the binding
// validator so payloads fail at bind time with a field-level error.
func (a *App) registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("upfrontstatus", func(fl validator.FieldLevel) bool {
		return a.cfg.ValidStatus(fl.Field().String())
	})
	v.RegisterValidation("conditionname", func(fl validator.FieldLevel) bool {
		return config.ValidConditionName(fl.Field().String())
	})
}

// Health responds to liveness probes.
func (a *App) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RequireAuthMiddleware rejects requests without a valid bearer token.
func (a *App) RequireAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortWithError(c, apperrors.NewUnauthorizedError(""))
			return
		}
		claims, err := a.jwtService.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abortWithError(c, apperrors.NewUnauthorizedError("invalid or expired token"))
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// currentClaims returns the authenticated user's claims, if any.
func currentClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// respondError renders any error through the application error mapping.
func respondError(c *gin.Context, err error) {
	status, body := apperrors.ToHTTPError(err)
	c.JSON(status, body)
}

func abortWithError(c *gin.Context, err error) {
	status, body := apperrors.ToHTTPError(err)
	c.AbortWithStatusJSON(status, body)
}

// bindError translates gin binding failures into a field-level message.
func bindError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		first := verrs[0]
		switch first.Tag() {
		case "email":
			return apperrors.NewValidationError(first.Field(), "must be a valid email address")
		case "upfrontstatus":
			return apperrors.NewValidationError(first.Field(), "status outside the configured set")
		case "conditionname":
			return apperrors.NewValidationError(first.Field(), "condition name outside the allowed set")
		case "required":
			return apperrors.NewValidationError(first.Field(), "is required")
		}
		return apperrors.NewValidationError(first.Field(), "is invalid")
	}
	return apperrors.NewBadRequestError(err.Error())
}

// pathID parses a numeric path parameter.
func pathID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewBadRequestError("invalid " + name)
	}
	return uint(id), nil
}
