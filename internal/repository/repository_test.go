package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mammoscreen-server/internal/analysis"
	"mammoscreen-server/internal/inference"
	"mammoscreen-server/internal/models"
)

func newTestRepo(t *testing.T) *GormRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return NewGormRepository(db)
}

func TestGetPatientNotFoundSentinel(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetPatient(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrPatientNotFound))
}

func TestGetPatient(t *testing.T) {
	repo := newTestRepo(t)
	patient := models.Patient{FullName: "Jane Roe", IsActive: true}
	require.NoError(t, repo.DB.Create(&patient).Error)

	found, err := repo.GetPatient(context.Background(), patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", found.FullName)
}

func TestCreateAnalysisAssignsID(t *testing.T) {
	repo := newTestRepo(t)

	a := &models.Analysis{Mode: models.ModeMulti, Status: models.AnalysisProcessing}
	require.NoError(t, repo.CreateAnalysis(context.Background(), a))
	assert.NotEmpty(t, a.ID)
}

func TestUpdateAnalysisPersistsAggregates(t *testing.T) {
	repo := newTestRepo(t)

	a := &models.Analysis{Mode: models.ModeMulti, Status: models.AnalysisProcessing}
	require.NoError(t, repo.CreateAnalysis(context.Background(), a))

	label := "mass"
	category := inference.CategoryMalignant
	summary := models.AnalysisSummary{
		Mode: models.ModeMulti,
		Views: map[string]models.ViewSummary{
			"lcc": {Size: inference.ImageSize{Width: 100, Height: 100}, Detections: []inference.Detection{}},
		},
		Totals: models.SummaryTotals{
			TotalFindings:  2,
			CategoryCounts: map[inference.RiskCategory]int{inference.CategoryMalignant: 2},
			LabelCounts:    map[string]int{"mass": 2},
		},
	}
	err := repo.UpdateAnalysis(context.Background(), a.ID, map[string]interface{}{
		"status":            models.AnalysisCompleted,
		"total_findings":    2,
		"dominant_label":    &label,
		"dominant_category": &category,
		"summary":           summary,
	})
	require.NoError(t, err)

	var stored models.Analysis
	require.NoError(t, repo.DB.First(&stored, "id = ?", a.ID).Error)
	assert.Equal(t, models.AnalysisCompleted, stored.Status)
	assert.Equal(t, 2, stored.TotalFindings)
	require.NotNil(t, stored.DominantLabel)
	assert.Equal(t, "mass", *stored.DominantLabel)
	// The summary document survives the JSON column round trip.
	assert.Equal(t, 2, stored.Summary.Totals.TotalFindings)
	assert.Equal(t, 2, stored.Summary.Totals.CategoryCounts[inference.CategoryMalignant])
}

func TestUpdateAnalysisMissingRow(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.UpdateAnalysis(context.Background(), "missing", map[string]interface{}{
		"status": models.AnalysisFailed,
	})
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestCreateAnalysisImage(t *testing.T) {
	repo := newTestRepo(t)

	a := &models.Analysis{Mode: models.ModeSingle, Status: models.AnalysisProcessing}
	require.NoError(t, repo.CreateAnalysis(context.Background(), a))

	img := &models.AnalysisImage{
		AnalysisID:      a.ID,
		ViewType:        models.ViewSingle,
		Filename:        "scan.png",
		DetectionsCount: 1,
		DetectionsData: models.DetectionsData{
			Detections: []inference.Detection{{Label: "mass", Category: inference.CategoryBenign, Confidence: 0.4}},
		},
	}
	require.NoError(t, repo.CreateAnalysisImage(context.Background(), img))

	var stored models.AnalysisImage
	require.NoError(t, repo.DB.First(&stored, "id = ?", img.ID).Error)
	require.Len(t, stored.DetectionsData.Detections, 1)
	assert.Equal(t, "mass", stored.DetectionsData.Detections[0].Label)
}
