package inference

import (
	"context"
	"errors"
)

// ErrInference indicates the model backend failed to produce a prediction.
// Callers treat any prediction failure as fatal to the surrounding analysis.
var ErrInference = errors.New("model inference failed")

// ImageInput carries one raw uploaded image to the model backend.
type ImageInput struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Service is the contract for a detection model backend. Implementations must
// return either a complete prediction or an error, never partial detections.
type Service interface {
	Predict(ctx context.Context, input ImageInput) (*ViewPrediction, error)
	Info() ModelInfo
}
