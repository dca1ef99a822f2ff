// Package deepface talks to the facial emotion sidecar. One frame in,
// one score distribution out.
package deepface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"affekt/internal/domain"
	"affekt/internal/port"
)

type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// wireResponse carries the model's per-emotion scores as percentages.
type wireResponse struct {
	FaceDetected bool               `json:"face_detected"`
	Emotions     map[string]float64 `json:"emotions"`
}

// Detect classifies a single JPEG frame. A frame with no detectable
// face returns domain.ErrNoFace; scores are normalized from the
// model's percentages to [0,1] fractions.
func (c *Client) Detect(ctx context.Context, frame []byte) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepface request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("deepface %s: %s", resp.Status, string(body))
	}

	var out wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("deepface decode: %w", err)
	}
	if !out.FaceDetected || len(out.Emotions) == 0 {
		return nil, domain.ErrNoFace
	}

	scores := make(map[string]float64, len(out.Emotions))
	for emotion, percent := range out.Emotions {
		scores[emotion] = percent / 100.0
	}
	return scores, nil
}

var _ port.FaceDetector = (*Client)(nil)
