package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aethra/upfronts/internal/models"
)

func TestDownloadAttachment(t *testing.T) {
	ta := newTestApp(t)
	contract := ta.seedContract(t, "001", "EDA Eventos", "contact@eda.com")
	attachment := models.Attachment{
		ContractID:   contract.ID,
		SalesforceID: "00PXX1",
		Name:         "signed, sealed contract",
		ContentType:  "application/pdf",
	}
	require.NoError(t, ta.app.db.Create(&attachment).Error)
	ta.crm.bodies["00PXX1"] = []byte("%PDF-1.4 fake")

	w := ta.do(t, http.MethodGet, fmt.Sprintf("/api/attachments/%d/download", attachment.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.Equal(t, "%PDF-1.4 fake", w.Body.String())

	// Commas are stripped and the extension inferred from the content type.
	require.Equal(t,
		`attachment; filename="signed sealed contract.pdf"`,
		w.Header().Get("Content-Disposition"))
}

func TestDownloadAttachmentNotFound(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(t, http.MethodGet, "/api/attachments/99/download", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadAttachmentGoneUpstream(t *testing.T) {
	ta := newTestApp(t)
	contract := ta.seedContract(t, "001", "EDA Eventos", "contact@eda.com")
	attachment := models.Attachment{
		ContractID:   contract.ID,
		SalesforceID: "00PGONE",
		Name:         "vanished",
	}
	require.NoError(t, ta.app.db.Create(&attachment).Error)

	w := ta.do(t, http.MethodGet, fmt.Sprintf("/api/attachments/%d/download", attachment.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadFilename(t *testing.T) {
	require.Equal(t, "report.pdf", downloadFilename("report", "application/pdf"))
	require.Equal(t, "report.pdf", downloadFilename("report.pdf", "application/pdf"))
	require.Equal(t, "a b.png", downloadFilename("a, b", "image/png"))
	require.Equal(t, "attachment.xls", downloadFilename("", "application/vnd.ms-excel"))
	require.Equal(t, "unknown-type", downloadFilename("unknown-type", "application/octet-stream"))
}
