package inference

// RiskCategory classifies a finding by clinical severity.
type RiskCategory string

const (
	CategoryNormal    RiskCategory = "normal"
	CategoryBenign    RiskCategory = "benign"
	CategoryMalignant RiskCategory = "malignant"
)

// SeverityRank returns the total order used to compare risk categories.
// Unknown categories rank below normal so they never dominate a real finding.
func SeverityRank(c RiskCategory) int {
	switch c {
	case CategoryNormal:
		return 0
	case CategoryBenign:
		return 1
	case CategoryMalignant:
		return 2
	default:
		return -1
	}
}

// TrafficLight is the display urgency derived from category and confidence.
type TrafficLight string

const (
	LightGreen TrafficLight = "green"
	LightAmber TrafficLight = "amber"
	LightRed   TrafficLight = "red"
)

// ResolveTrafficLight applies confidence-aware urgency thresholds.
func ResolveTrafficLight(category RiskCategory, confidence float64) TrafficLight {
	switch category {
	case CategoryMalignant:
		if confidence >= 0.55 {
			return LightRed
		}
		return LightAmber
	case CategoryBenign:
		if confidence >= 0.35 {
			return LightAmber
		}
		return LightGreen
	default:
		return LightGreen
	}
}

// BoundingBox is an axis-aligned box in pixel coordinates.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Detection is a single finding reported by the model.
type Detection struct {
	BBox         BoundingBox  `json:"bbox"`
	Confidence   float64      `json:"confidence"`
	Label        string       `json:"label"`
	Category     RiskCategory `json:"category"`
	TrafficLight TrafficLight `json:"traffic_light"`
}

// ImageSize holds image dimensions in pixels.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ViewPrediction is the normalized prediction payload for one anatomical view.
type ViewPrediction struct {
	Size       ImageSize   `json:"size"`
	Detections []Detection `json:"detections"`
}

// ModelInfo describes the model backing the adapter, reported back to callers
// so they can interpret class indices and thresholds.
type ModelInfo struct {
	Name                string               `json:"name"`
	Weights             string               `json:"weights"`
	Device              string               `json:"device"`
	ConfidenceThreshold float64              `json:"confidence_threshold"`
	IOUThreshold        *float64             `json:"iou_threshold,omitempty"`
	Augmentation        bool                 `json:"augmentation"`
	Classes             map[int]string       `json:"classes"`
	Categories          map[int]RiskCategory `json:"categories"`
}
