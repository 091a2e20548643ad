package models

import (
	"database/sql/driver"
	"encoding/json"

	"mammoscreen-server/internal/inference"
)

// ImageViewType enumerates the anatomical views an image can belong to
type ImageViewType string

const (
	ViewLCC    ImageViewType = "lcc"
	ViewRCC    ImageViewType = "rcc"
	ViewLMLO   ImageViewType = "lmlo"
	ViewRMLO   ImageViewType = "rmlo"
	ViewSingle ImageViewType = "single"
	ViewOther  ImageViewType = "other"
)

// MultiViewNames is the fixed set of views a four-view study must contain,
// in the order views are iterated during aggregation.
var MultiViewNames = []ImageViewType{ViewLCC, ViewRCC, ViewLMLO, ViewRMLO}

// AnalysisImage records one stored view image and its raw detections.
// Created once after the view has been both predicted and stored; immutable.
type AnalysisImage struct {
	BaseModel
	AnalysisID       string         `gorm:"size:36;index;not null" json:"analysisId"`
	ViewType         ImageViewType  `gorm:"size:16;default:'single'" json:"viewType"`
	FileID           string         `gorm:"size:100;index" json:"fileId"`
	Filename         string         `gorm:"size:255" json:"filename"`
	OriginalFilename string         `gorm:"size:255" json:"originalFilename"`
	FilePath         string         `gorm:"size:500" json:"-"`
	RelativePath     string         `gorm:"size:500" json:"relativePath"`
	ThumbnailPath    *string        `gorm:"size:500" json:"thumbnailPath"`
	FileSize         int64          `gorm:"default:0" json:"fileSize"`
	FileHash         string         `gorm:"size:64" json:"fileHash"`
	ContentType      string         `gorm:"size:100" json:"contentType,omitempty"`
	Width            int            `json:"width"`
	Height           int            `json:"height"`
	DetectionsCount  int            `gorm:"default:0" json:"detectionsCount"`
	DetectionsData   DetectionsData `gorm:"type:json" json:"detectionsData"`

	// Relations
	Analysis *Analysis `gorm:"foreignKey:AnalysisID" json:"-"`
}

// DetectionsData stores the raw per-view detection list as a JSON document
type DetectionsData struct {
	Detections []inference.Detection `json:"detections"`
}

func (d DetectionsData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *DetectionsData) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	}
	return nil
}
