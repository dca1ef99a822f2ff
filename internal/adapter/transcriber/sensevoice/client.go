// Package sensevoice talks to the SenseVoice speech sidecar. The model
// emits one tagged transcript per utterance; emotion and audio-event
// tags are embedded in the text and parsed out here.
package sensevoice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"affekt/internal/port"
)

type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 5 * time.Minute},
	}
}

// wireSegment carries millisecond timestamps and still-tagged text, as
// produced by the model.
type wireSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type wireResponse struct {
	Text     string        `json:"text"`
	Language string        `json:"language"`
	Segments []wireSegment `json:"segments"`
}

// Transcribe posts the wav to the sidecar and normalizes the tagged
// output into clean text, per-utterance emotions and audio events.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (*port.TranscriptionOutput, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	fd, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sensevoice request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sensevoice %s: %s", resp.Status, string(body))
	}

	var out wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("sensevoice decode: %w", err)
	}
	return normalize(&out), nil
}

var _ port.Transcriber = (*Client)(nil)
