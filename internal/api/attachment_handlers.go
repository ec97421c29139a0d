package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "github.com/aethra/upfronts/internal/errors"
	"github.com/aethra/upfronts/internal/models"
	"github.com/aethra/upfronts/internal/salesforce"
)

// extensionByContentType maps the CRM content types the importer stores
// to the download filename extension.
var extensionByContentType = map[string]string{
	"application/pdf":          ".pdf",
	"image/png":                ".png",
	"image/jpeg":               ".jpg",
	"application/vnd.ms-excel": ".xls",
}

// DownloadAttachment streams a contract attachment's binary from the CRM
// to the caller. Only metadata is stored locally; the body is fetched on
// every download.
func (a *App) DownloadAttachment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var attachment models.Attachment
	if err := a.db.First(&attachment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.NewNotFoundError("attachment"))
			return
		}
		respondError(c, apperrors.NewInternalError(err))
		return
	}

	body, contentType, err := a.crm.DownloadAttachment(c.Request.Context(), attachment.SalesforceID)
	if err != nil {
		if errors.Is(err, salesforce.ErrNotFound) {
			respondError(c, apperrors.NewNotFoundError("attachment"))
			return
		}
		respondError(c, apperrors.NewUpstreamError("", err))
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = attachment.ContentType
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, downloadFilename(attachment.Name, contentType)))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}

// downloadFilename sanitizes the stored attachment name and appends an
// extension inferred from the content type when the name carries none.
func downloadFilename(name, contentType string) string {
	// Commas break the Content-Disposition header in some clients.
	name = strings.ReplaceAll(name, ",", "")
	if name == "" {
		name = "attachment"
	}
	if ext, ok := extensionByContentType[contentType]; ok && !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}
	return name
}
