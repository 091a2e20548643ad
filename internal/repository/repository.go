package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mammoscreen-server/internal/analysis"
	"mammoscreen-server/internal/models"
)

// GormRepository implements the analysis controller's persistence port on
// top of the shared gorm handle.
type GormRepository struct {
	DB *gorm.DB
}

// NewGormRepository creates a GormRepository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{DB: db}
}

// GetPatient fetches a patient by ID, mapping a missing row onto the
// controller's not-found sentinel.
func (r *GormRepository) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	var patient models.Patient
	if err := r.DB.WithContext(ctx).First(&patient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", analysis.ErrPatientNotFound, id)
		}
		return nil, err
	}
	return &patient, nil
}

// CreateAnalysis inserts a new analysis row.
func (r *GormRepository) CreateAnalysis(ctx context.Context, a *models.Analysis) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

// UpdateAnalysis applies the given column updates to an analysis row.
func (r *GormRepository) UpdateAnalysis(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.DB.WithContext(ctx).Model(&models.Analysis{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateAnalysisImage inserts a new analysis image row.
func (r *GormRepository) CreateAnalysisImage(ctx context.Context, img *models.AnalysisImage) error {
	return r.DB.WithContext(ctx).Create(img).Error
}
