package handlers_test

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mammoscreen-server/internal/models"
	"mammoscreen-server/internal/storage"
)

func seedAnalysis(t *testing.T, env *testEnv, status models.AnalysisStatus) models.Analysis {
	t.Helper()
	a := models.Analysis{Mode: models.ModeMulti, Status: status}
	require.NoError(t, env.db.Create(&a).Error)
	return a
}

func TestListAnalysesFilters(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})
	seedAnalysis(t, env, models.AnalysisCompleted)
	seedAnalysis(t, env, models.AnalysisCompleted)
	failed := seedAnalysis(t, env, models.AnalysisFailed)

	w := env.do(t, http.MethodGet, "/analyses", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []models.Analysis `json:"items"`
		Total int64             `json:"total"`
	}
	decodeData(t, w, &list)
	assert.Equal(t, int64(3), list.Total)

	w = env.do(t, http.MethodGet, "/analyses?status=failed", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &list)
	require.Equal(t, int64(1), list.Total)
	assert.Equal(t, failed.ID, list.Items[0].ID)
}

func TestListAnalysesByPatient(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})
	patient := createPatient(t, env, "Jane Roe")

	a := models.Analysis{PatientID: &patient.ID, Mode: models.ModeSingle, Status: models.AnalysisCompleted}
	require.NoError(t, env.db.Create(&a).Error)
	seedAnalysis(t, env, models.AnalysisCompleted)

	w := env.do(t, http.MethodGet, "/analyses?patient_id="+patient.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []models.Analysis `json:"items"`
		Total int64             `json:"total"`
	}
	decodeData(t, w, &list)
	require.Equal(t, int64(1), list.Total)
	assert.Equal(t, a.ID, list.Items[0].ID)
}

func TestGetAnalysisIncludesImages(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})
	a := seedAnalysis(t, env, models.AnalysisCompleted)
	img := models.AnalysisImage{
		AnalysisID: a.ID,
		ViewType:   models.ViewLCC,
		Filename:   "lcc.png",
	}
	require.NoError(t, env.db.Create(&img).Error)

	w := env.do(t, http.MethodGet, "/analyses/"+a.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var fetched models.Analysis
	decodeData(t, w, &fetched)
	assert.Equal(t, a.ID, fetched.ID)
	require.Len(t, fetched.Images, 1)
	assert.Equal(t, models.ViewLCC, fetched.Images[0].ViewType)
}

func TestGetAnalysisNotFound(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})
	w := env.do(t, http.MethodGet, "/analyses/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateAnalysisReviewerFields(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})
	a := seedAnalysis(t, env, models.AnalysisCompleted)

	w := env.doJSON(t, http.MethodPatch, "/analyses/"+a.ID, gin.H{
		"findingsDescription": "Suspicious mass in upper quadrant",
		"recommendations":     "Biopsy recommended",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated models.Analysis
	decodeData(t, w, &updated)
	assert.Equal(t, "Suspicious mass in upper quadrant", updated.FindingsNote)
	assert.Equal(t, "Biopsy recommended", updated.Recommendations)
	// Lifecycle fields are untouched by reviewer edits.
	assert.Equal(t, models.AnalysisCompleted, updated.Status)
}

func TestDeleteAnalysisRemovesRowsAndFiles(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})
	a := seedAnalysis(t, env, models.AnalysisCompleted)

	record, err := env.store.Save(context.Background(), storage.SaveInput{
		Data:             testImage(t),
		OriginalFilename: "lcc.png",
		ContentType:      "image/png",
		AnalysisID:       a.ID,
		ViewName:         "lcc",
	})
	require.NoError(t, err)

	img := models.AnalysisImage{
		AnalysisID:    a.ID,
		ViewType:      models.ViewLCC,
		FileID:        record.FileID,
		Filename:      record.Filename,
		FilePath:      record.FilePath,
		RelativePath:  record.RelativePath,
		ThumbnailPath: record.ThumbnailPath,
	}
	require.NoError(t, env.db.Create(&img).Error)

	w := env.do(t, http.MethodDelete, "/analyses/"+a.ID, nil, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	require.NoError(t, env.db.Model(&models.Analysis{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, env.db.Model(&models.AnalysisImage{}).Count(&count).Error)
	assert.Zero(t, count)

	_, err = os.Stat(record.FilePath)
	assert.True(t, os.IsNotExist(err))
}

func TestServeStoredImage(t *testing.T) {
	env := newTestEnv(t, &stubPredictor{})

	record, err := env.store.Save(context.Background(), storage.SaveInput{
		Data:             testImage(t),
		OriginalFilename: "scan.png",
		ContentType:      "image/png",
		ViewName:         "single",
	})
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/files/"+record.RelativePath, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotZero(t, w.Body.Len())

	w = env.do(t, http.MethodGet, "/files/images/2026/01/01/missing.png", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
