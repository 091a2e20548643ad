package handlers

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mammoscreen-server/internal/models"
	"mammoscreen-server/internal/storage"
	"mammoscreen-server/internal/utils"
)

// AnalysisHandler handles analysis record requests.
type AnalysisHandler struct {
	DB    *gorm.DB
	Store *storage.FileStore
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(db *gorm.DB, store *storage.FileStore) *AnalysisHandler {
	return &AnalysisHandler{DB: db, Store: store}
}

// ListAnalyses handles listing analyses with pagination and filters.
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
	skip, limit := paginationParams(c, 50, 200)

	query := h.DB.Model(&models.Analysis{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if patientID := c.Query("patient_id"); patientID != "" {
		query = query.Where("patient_id = ?", patientID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalServerError(c, "Failed to count analyses: "+err.Error())
		return
	}

	var analyses []models.Analysis
	if err := query.Order("created_at desc").Offset(skip).Limit(limit).Find(&analyses).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch analyses: "+err.Error())
		return
	}

	utils.Success(c, "Analyses fetched successfully", NewListResponse(analyses, total, skip, limit))
}

// GetAnalysisByID handles fetching a single analysis with its images.
func (h *AnalysisHandler) GetAnalysisByID(c *gin.Context) {
	id := c.Param("id")

	var a models.Analysis
	if err := h.DB.Preload("Images").First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Analysis not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Analysis fetched successfully", a)
}

// UpdateAnalysisRequest represents the request body for annotating an analysis.
type UpdateAnalysisRequest struct {
	FindingsDescription *string `json:"findingsDescription"`
	Recommendations     *string `json:"recommendations"`
}

// UpdateAnalysis handles updating the reviewer fields of an analysis.
// Lifecycle fields are owned by the analysis controller and not writable here.
func (h *AnalysisHandler) UpdateAnalysis(c *gin.Context) {
	id := c.Param("id")

	var req UpdateAnalysisRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var a models.Analysis
	if err := h.DB.First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Analysis not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	changes := models.ChangeData{}
	if req.FindingsDescription != nil {
		a.FindingsNote = *req.FindingsDescription
		changes["findingsDescription"] = *req.FindingsDescription
	}
	if req.Recommendations != nil {
		a.Recommendations = *req.Recommendations
		changes["recommendations"] = *req.Recommendations
	}

	if err := h.DB.Save(&a).Error; err != nil {
		utils.InternalServerError(c, "Failed to update analysis: "+err.Error())
		return
	}

	var images []models.AnalysisImage
	if err := h.DB.Where("analysis_id = ?", a.ID).Order("created_at asc").Find(&images).Error; err == nil {
		a.Images = images
	}

	recordAudit(h.DB, c, "analysis", a.ID, "update", changes)
	utils.Success(c, "Analysis updated successfully", a)
}

// DeleteAnalysis handles deleting an analysis, its image rows and the stored
// files backing them.
func (h *AnalysisHandler) DeleteAnalysis(c *gin.Context) {
	id := c.Param("id")

	var a models.Analysis
	if err := h.DB.First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Analysis not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var images []models.AnalysisImage
	if err := h.DB.Where("analysis_id = ?", a.ID).Find(&images).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch analysis images: "+err.Error())
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("analysis_id = ?", a.ID).Delete(&models.AnalysisImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&a).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to delete analysis: "+err.Error())
		return
	}

	// Stored files are removed after the rows; a leftover file is only
	// wasted disk, a dangling row would be a broken link.
	for _, img := range images {
		if img.RelativePath == "" {
			continue
		}
		if err := h.Store.Delete(img.RelativePath, img.ThumbnailPath); err != nil {
			log.Printf("analysis %s: failed to remove stored file %s: %v", a.ID, img.RelativePath, err)
		}
	}

	recordAudit(h.DB, c, "analysis", a.ID, "delete", nil)
	c.Status(204)
}
