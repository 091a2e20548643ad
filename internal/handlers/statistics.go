package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mammoscreen-server/internal/inference"
	"mammoscreen-server/internal/models"
	"mammoscreen-server/internal/utils"
)

// StatisticsHandler serves dashboard aggregates.
type StatisticsHandler struct {
	DB *gorm.DB
}

// NewStatisticsHandler creates a new StatisticsHandler.
func NewStatisticsHandler(db *gorm.DB) *StatisticsHandler {
	return &StatisticsHandler{DB: db}
}

// StatisticsResponse is the overall counters payload.
type StatisticsResponse struct {
	TotalPatients      int64 `json:"total_patients"`
	ActivePatients     int64 `json:"active_patients"`
	TotalAnalyses      int64 `json:"total_analyses"`
	CompletedAnalyses  int64 `json:"completed_analyses"`
	PendingAnalyses    int64 `json:"pending_analyses"`
	ProcessingAnalyses int64 `json:"processing_analyses"`
	FailedAnalyses     int64 `json:"failed_analyses"`
	TotalFindings      int64 `json:"total_findings"`
}

// GetStatistics handles the overall statistics endpoint.
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	var resp StatisticsResponse

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&resp.TotalPatients, h.DB.Model(&models.Patient{})},
		{&resp.ActivePatients, h.DB.Model(&models.Patient{}).Where("is_active = ?", true)},
		{&resp.TotalAnalyses, h.DB.Model(&models.Analysis{})},
		{&resp.CompletedAnalyses, h.DB.Model(&models.Analysis{}).Where("status = ?", models.AnalysisCompleted)},
		{&resp.PendingAnalyses, h.DB.Model(&models.Analysis{}).Where("status = ?", models.AnalysisPending)},
		{&resp.ProcessingAnalyses, h.DB.Model(&models.Analysis{}).Where("status = ?", models.AnalysisProcessing)},
		{&resp.FailedAnalyses, h.DB.Model(&models.Analysis{}).Where("status = ?", models.AnalysisFailed)},
	}
	for _, count := range counts {
		if err := count.query.Count(count.dest).Error; err != nil {
			utils.InternalServerError(c, "Failed to compute statistics: "+err.Error())
			return
		}
	}

	var totalFindings *int64
	if err := h.DB.Model(&models.Analysis{}).
		Select("SUM(total_findings)").Scan(&totalFindings).Error; err != nil {
		utils.InternalServerError(c, "Failed to compute statistics: "+err.Error())
		return
	}
	if totalFindings != nil {
		resp.TotalFindings = *totalFindings
	}

	utils.Success(c, "Statistics fetched successfully", resp)
}

// TrendsResponse holds one aligned series per day for charting.
type TrendsResponse struct {
	Labels   []string `json:"labels"`
	Analyses []int    `json:"analyses"`
	Findings []int    `json:"findings"`
}

// GetTrends handles the analyses-per-day trend endpoint.
func (h *StatisticsHandler) GetTrends(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 {
		days = 30
	}
	if days > 365 {
		days = 365
	}

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -days)

	var analyses []models.Analysis
	if err := h.DB.Where("created_at >= ?", start).
		Order("created_at asc").Find(&analyses).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch trend data: "+err.Error())
		return
	}

	type daily struct {
		count    int
		findings int
	}
	byDay := map[string]daily{}
	for _, a := range analyses {
		key := a.CreatedAt.UTC().Format("2006-01-02")
		d := byDay[key]
		d.count++
		d.findings += a.TotalFindings
		byDay[key] = d
	}

	resp := TrendsResponse{
		Labels:   make([]string, 0, days),
		Analyses: make([]int, 0, days),
		Findings: make([]int, 0, days),
	}
	for i := 0; i < days; i++ {
		key := now.AddDate(0, 0, -(days - i - 1)).Format("2006-01-02")
		d := byDay[key]
		resp.Labels = append(resp.Labels, key)
		resp.Analyses = append(resp.Analyses, d.count)
		resp.Findings = append(resp.Findings, d.findings)
	}

	utils.Success(c, "Trends fetched successfully", resp)
}

// GetFindingsBreakdown handles the per-category findings breakdown endpoint.
func (h *StatisticsHandler) GetFindingsBreakdown(c *gin.Context) {
	breakdown := map[inference.RiskCategory]int64{}
	for _, category := range []inference.RiskCategory{
		inference.CategoryNormal, inference.CategoryBenign, inference.CategoryMalignant,
	} {
		var count int64
		if err := h.DB.Model(&models.Analysis{}).
			Where("dominant_category = ?", category).Count(&count).Error; err != nil {
			utils.InternalServerError(c, "Failed to compute findings breakdown: "+err.Error())
			return
		}
		breakdown[category] = count
	}

	utils.Success(c, "Findings breakdown fetched successfully", breakdown)
}
