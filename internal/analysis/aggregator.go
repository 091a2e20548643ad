package analysis

import (
	"mammoscreen-server/internal/inference"
	"mammoscreen-server/internal/models"
)

// ViewResult pairs a view name with its prediction. Aggregation iterates
// views in slice order so equal-best ties resolve identically across runs.
type ViewResult struct {
	Name       models.ImageViewType
	Prediction inference.ViewPrediction
}

// Aggregate is the reduction of all per-view predictions into the fields
// stored on the analysis row.
type Aggregate struct {
	TotalFindings    int
	DominantLabel    *string
	DominantCategory *inference.RiskCategory
	Summary          models.AnalysisSummary
}

// Summarise reduces ordered per-view predictions into totals, per-category
// and per-label counts, and the single dominant finding.
//
// The dominant finding is the detection with the highest severity rank,
// confidence breaking ties within a rank. A detection replaces the current
// dominant only when strictly better on rank, or equal on rank and strictly
// better on confidence; exact ties keep the first detection seen.
func Summarise(mode models.AnalysisMode, views []ViewResult) Aggregate {
	categoryCounts := map[inference.RiskCategory]int{
		inference.CategoryNormal:    0,
		inference.CategoryBenign:    0,
		inference.CategoryMalignant: 0,
	}
	labelCounts := map[string]int{}
	viewPayload := make(map[string]models.ViewSummary, len(views))

	total := 0
	dominantRank := -1
	dominantConfidence := -1.0
	var dominantLabel *string
	var dominantCategory *inference.RiskCategory

	for _, view := range views {
		detections := view.Prediction.Detections
		viewPayload[string(view.Name)] = models.ViewSummary{
			Size:           view.Prediction.Size,
			Detections:     detections,
			DetectionCount: len(detections),
		}
		total += len(detections)

		for _, det := range detections {
			categoryCounts[det.Category]++
			labelCounts[det.Label]++

			rank := inference.SeverityRank(det.Category)
			if rank > dominantRank || (rank == dominantRank && det.Confidence > dominantConfidence) {
				dominantRank = rank
				dominantConfidence = det.Confidence
				label := det.Label
				category := det.Category
				dominantLabel = &label
				dominantCategory = &category
			}
		}
	}

	return Aggregate{
		TotalFindings:    total,
		DominantLabel:    dominantLabel,
		DominantCategory: dominantCategory,
		Summary: models.AnalysisSummary{
			Mode:  mode,
			Views: viewPayload,
			Totals: models.SummaryTotals{
				TotalFindings:  total,
				CategoryCounts: categoryCounts,
				LabelCounts:    labelCounts,
			},
		},
	}
}
