package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

// Client talks to an external model-serving endpoint over HTTP. The endpoint
// is expected to expose POST {base}/predict accepting a multipart image and
// GET {base}/info describing the loaded model.
type Client struct {
	baseURL    string
	httpClient *http.Client

	infoOnce sync.Once
	info     ModelInfo
}

// NewClient creates a Client for the given model server base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Predict sends the image to the model server and decodes its detections.
func (c *Client) Predict(ctx context.Context, input ImageInput) (*ViewPrediction, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("image", input.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if _, err := part.Write(input.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: model server returned %d: %s", ErrInference, resp.StatusCode, snippet)
	}

	var prediction ViewPrediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrInference, err)
	}
	normalize(&prediction)
	return &prediction, nil
}

// Info returns model metadata, fetched from the server at most once. If the
// server cannot be reached the zero-value ModelInfo is returned; predictions
// remain usable without it.
func (c *Client) Info() ModelInfo {
	c.infoOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/info", nil)
		if err != nil {
			return
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Printf("inference: failed to fetch model info: %v", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			log.Printf("inference: model info request returned %d", resp.StatusCode)
			return
		}
		if err := json.NewDecoder(resp.Body).Decode(&c.info); err != nil {
			log.Printf("inference: failed to decode model info: %v", err)
		}
	})
	return c.info
}

// normalize fills in fields optional on the wire: unknown categories fall back
// to normal and missing traffic lights are derived from category + confidence.
func normalize(p *ViewPrediction) {
	for i := range p.Detections {
		det := &p.Detections[i]
		if SeverityRank(det.Category) < 0 {
			det.Category = CategoryNormal
		}
		if det.TrafficLight == "" {
			det.TrafficLight = ResolveTrafficLight(det.Category, det.Confidence)
		}
	}
	if p.Detections == nil {
		p.Detections = []Detection{}
	}
}
