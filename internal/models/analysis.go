package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"mammoscreen-server/internal/inference"
)

// AnalysisStatus represents the lifecycle state of an analysis
type AnalysisStatus string

const (
	AnalysisPending    AnalysisStatus = "pending"
	AnalysisProcessing AnalysisStatus = "processing"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisFailed     AnalysisStatus = "failed"
)

// AnalysisMode distinguishes four-view studies from single-image reviews
type AnalysisMode string

const (
	ModeMulti  AnalysisMode = "multi"
	ModeSingle AnalysisMode = "single"
)

// Analysis represents one inference run over a set of imaging views
type Analysis struct {
	BaseModel
	PatientID        *string                 `gorm:"size:36;index" json:"patientId,omitempty"`
	Mode             AnalysisMode            `gorm:"size:16;not null" json:"mode"`
	Status           AnalysisStatus          `gorm:"size:20;default:'pending';index" json:"status"`
	TotalFindings    int                     `gorm:"default:0" json:"totalFindings"`
	DominantLabel    *string                 `gorm:"size:100" json:"dominantLabel"`
	DominantCategory *inference.RiskCategory `gorm:"size:50" json:"dominantCategory"`
	Summary          AnalysisSummary         `gorm:"type:json" json:"summary"`
	FindingsNote     string                  `gorm:"type:text" json:"findingsDescription,omitempty"`
	Recommendations  string                  `gorm:"type:text" json:"recommendations,omitempty"`
	CompletedAt      *time.Time              `json:"completedAt"`

	// Relations
	Patient *Patient        `gorm:"foreignKey:PatientID" json:"-"`
	Images  []AnalysisImage `gorm:"foreignKey:AnalysisID" json:"images,omitempty"`
}

// ViewSummary holds the per-view slice of an analysis summary
type ViewSummary struct {
	Size           inference.ImageSize   `json:"size"`
	Detections     []inference.Detection `json:"detections"`
	DetectionCount int                   `json:"detection_count"`
}

// SummaryTotals aggregates findings across all views of an analysis
type SummaryTotals struct {
	TotalFindings  int                            `json:"total_findings"`
	CategoryCounts map[inference.RiskCategory]int `json:"category_counts"`
	LabelCounts    map[string]int                 `json:"label_counts"`
}

// AnalysisSummary is the nested result document stored on the analysis row
type AnalysisSummary struct {
	Mode   AnalysisMode           `json:"mode"`
	Views  map[string]ViewSummary `json:"views"`
	Totals SummaryTotals          `json:"totals"`
}

func (s AnalysisSummary) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *AnalysisSummary) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return nil
}
