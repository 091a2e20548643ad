package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mammoscreen-server/internal/models"
	"mammoscreen-server/internal/utils"
)

const searchLimit = 10

// SearchHandler serves the global search endpoint.
type SearchHandler struct {
	DB *gorm.DB
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(db *gorm.DB) *SearchHandler {
	return &SearchHandler{DB: db}
}

// GlobalSearch searches patients and analyses with a single query string.
// Queries shorter than two characters return empty result sets.
func (h *SearchHandler) GlobalSearch(c *gin.Context) {
	q := c.Query("q")
	if len(q) < 2 {
		utils.Success(c, "Search completed", gin.H{
			"patients": []models.Patient{},
			"analyses": []models.Analysis{},
		})
		return
	}

	pattern := "%" + q + "%"

	var patients []models.Patient
	if err := h.DB.
		Where("is_active = ?", true).
		Where("full_name LIKE ? OR medical_record_number LIKE ? OR email LIKE ? OR phone LIKE ?",
			pattern, pattern, pattern, pattern).
		Limit(searchLimit).Find(&patients).Error; err != nil {
		utils.InternalServerError(c, "Failed to search patients: "+err.Error())
		return
	}

	var analyses []models.Analysis
	if err := h.DB.
		Where("id = ? OR dominant_label LIKE ? OR findings_note LIKE ?", q, pattern, pattern).
		Order("created_at desc").
		Limit(searchLimit).Find(&analyses).Error; err != nil {
		utils.InternalServerError(c, "Failed to search analyses: "+err.Error())
		return
	}

	utils.Success(c, "Search completed", gin.H{
		"patients": patients,
		"analyses": analyses,
	})
}
