package api

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/aethra/upfronts/internal/models"
)

func seedCondition(t *testing.T, ta *testApp, name string) models.InstallmentCondition {
	t.Helper()
	contract := ta.seedContract(t, "001", "EDA Eventos", "contact@eda.com")
	inst := ta.seedInstallment(t, contract.ID, "INVESTED", "5000", "")
	cond := models.InstallmentCondition{InstallmentID: inst.ID, ConditionName: name}
	require.NoError(t, ta.app.db.Create(&cond).Error)
	return cond
}

func TestToggleConditionRoundTrip(t *testing.T) {
	ta := newTestApp(t)
	cond := seedCondition(t, ta, "Promissory Note")

	w := ta.do(t, http.MethodPost, fmt.Sprintf("/api/conditions/%d/toggle", cond.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.InstallmentCondition
	decodeJSON(t, w, &got)
	require.NotNil(t, got.Done)

	// Second toggle returns the condition to pending.
	w = ta.do(t, http.MethodPost, fmt.Sprintf("/api/conditions/%d/toggle", cond.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &got)
	require.Nil(t, got.Done)

	var stored models.InstallmentCondition
	require.NoError(t, ta.app.db.First(&stored, cond.ID).Error)
	require.Nil(t, stored.Done)
}

func TestCreateConditionRejectsUnknownName(t *testing.T) {
	ta := newTestApp(t)
	contract := ta.seedContract(t, "001", "EDA Eventos", "contact@eda.com")
	inst := ta.seedInstallment(t, contract.ID, "INVESTED", "5000", "")

	w := ta.do(t, http.MethodPost, fmt.Sprintf("/api/installments/%d/conditions", inst.ID), gin.H{
		"conditionName": "Handshake Agreement",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = ta.do(t, http.MethodPost, fmt.Sprintf("/api/installments/%d/conditions", inst.ID), gin.H{
		"conditionName": "Bank Details",
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

func uploadProof(t *testing.T, ta *testApp, conditionID uint, filename string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("proof-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/conditions/%d/backup-proof", conditionID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ta.token)

	w := httptest.NewRecorder()
	ta.router.ServeHTTP(w, req)
	return w
}

func TestUploadBackupProof(t *testing.T) {
	ta := newTestApp(t)
	cond := seedCondition(t, ta, "Bank Details")

	w := uploadProof(t, ta, cond.ID, "statement.pdf")
	require.Equal(t, http.StatusOK, w.Code)

	var got models.InstallmentCondition
	decodeJSON(t, w, &got)
	require.Equal(t, "statement.pdf", got.UploadFileName)
	require.NotEmpty(t, got.UploadFile)
	require.Equal(t, ".pdf", filepath.Ext(got.UploadFile))

	// The file must land under the configured upload directory.
	_, err := os.Stat(got.UploadFile)
	require.NoError(t, err)
}

func TestUploadBackupProofRejectsExtension(t *testing.T) {
	ta := newTestApp(t)
	cond := seedCondition(t, ta, "Bank Details")

	w := uploadProof(t, ta, cond.ID, "malware.exe")
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Nothing was persisted.
	var stored models.InstallmentCondition
	require.NoError(t, ta.app.db.First(&stored, cond.ID).Error)
	require.Empty(t, stored.UploadFile)
	require.Empty(t, stored.UploadFileName)
}

func TestDownloadAndDeleteBackupProof(t *testing.T) {
	ta := newTestApp(t)
	cond := seedCondition(t, ta, "Bank Details")

	w := uploadProof(t, ta, cond.ID, "statement.pdf")
	require.Equal(t, http.StatusOK, w.Code)
	var uploaded models.InstallmentCondition
	decodeJSON(t, w, &uploaded)

	w = ta.do(t, http.MethodGet, fmt.Sprintf("/api/conditions/%d/backup-proof", cond.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "proof-bytes", w.Body.String())

	w = ta.do(t, http.MethodDelete, fmt.Sprintf("/api/conditions/%d/backup-proof", cond.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := os.Stat(uploaded.UploadFile)
	require.True(t, os.IsNotExist(err))

	w = ta.do(t, http.MethodGet, fmt.Sprintf("/api/conditions/%d/backup-proof", cond.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCondition(t *testing.T) {
	ta := newTestApp(t)
	cond := seedCondition(t, ta, "Funds Available")

	w := ta.do(t, http.MethodDelete, fmt.Sprintf("/api/conditions/%d", cond.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ta.do(t, http.MethodDelete, fmt.Sprintf("/api/conditions/%d", cond.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
