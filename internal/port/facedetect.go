package port

import "context"

// FaceDetector classifies the emotion distribution of one frame image.
// It returns domain.ErrNoFace when the frame contains no detectable face;
// any other error is an inference failure. Scores sum to ~1.
type FaceDetector interface {
	Detect(ctx context.Context, frame []byte) (map[string]float64, error)
}
