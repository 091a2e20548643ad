package handlers

import (
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mammoscreen-server/internal/models"
)

// ListResponse is the pagination envelope shared by list endpoints.
type ListResponse struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int64       `json:"total_pages"`
}

// NewListResponse builds the envelope from skip/limit offsets.
func NewListResponse(items interface{}, total int64, skip, limit int) ListResponse {
	if limit <= 0 {
		limit = 1
	}
	return ListResponse{
		Items:      items,
		Total:      total,
		Page:       skip/limit + 1,
		PageSize:   limit,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}
}

// paginationParams reads skip/limit query parameters with bounds applied.
func paginationParams(c *gin.Context, defaultLimit, maxLimit int) (int, int) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit
}

// recordAudit writes an audit row for an entity mutation. Best-effort: a
// failed audit write is logged, never surfaced to the caller.
func recordAudit(db *gorm.DB, c *gin.Context, entityType, entityID, action string, changes models.ChangeData) {
	entry := models.AuditLog{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Changes:    changes,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("audit: failed to record %s %s on %s: %v", action, entityType, entityID, err)
	}
}
