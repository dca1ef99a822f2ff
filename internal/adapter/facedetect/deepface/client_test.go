package deepface

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affekt/internal/domain"
)

func TestDetect(t *testing.T) {
	frame := []byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detect", r.URL.Path)
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, frame, body)

		json.NewEncoder(w).Encode(wireResponse{
			FaceDetected: true,
			Emotions: map[string]float64{
				"happy":   87.5,
				"neutral": 10.0,
				"sad":     2.5,
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	scores, err := c.Detect(context.Background(), frame)
	require.NoError(t, err)
	assert.InDelta(t, 0.875, scores["happy"], 1e-9)
	assert.InDelta(t, 0.10, scores["neutral"], 1e-9)
	assert.InDelta(t, 0.025, scores["sad"], 1e-9)
}

func TestDetect_NoFace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(wireResponse{FaceDetected: false})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Detect(context.Background(), []byte{0xFF, 0xD8})
	assert.ErrorIs(t, err, domain.ErrNoFace)
}

func TestDetect_SidecarError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Detect(context.Background(), []byte{0xFF, 0xD8})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoFace)
	assert.Contains(t, err.Error(), "model loading")
}
