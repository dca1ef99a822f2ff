package port

import "context"

// Frame is one sampled video frame. Timestamp comes from the decoder's
// per-frame presentation timestamp, so variable-frame-rate sources still
// report correct times.
type Frame struct {
	Index     int
	Timestamp float64
	Image     []byte
}

// FrameSeq is a lazy, finite, single-pass sequence of sampled frames.
// Next returns io.EOF after the last frame. Close must be called on every
// exit path; re-sampling requires a fresh Sample call.
type FrameSeq interface {
	Next() (*Frame, error)
	Close() error
}

// FrameSampler decodes a video and yields every stride-th frame starting at
// index 0. A zero-frame video yields an immediately-exhausted sequence, not
// an error.
type FrameSampler interface {
	Sample(ctx context.Context, videoPath string, stride int) (FrameSeq, error)
}
