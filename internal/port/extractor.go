package port

import "context"

// AudioExtractor derives a normalized mono audio artifact from a video.
// cleanup releases the artifact and is safe to call on every exit path;
// it is non-nil whenever err is nil.
type AudioExtractor interface {
	Extract(ctx context.Context, videoPath string) (audioPath string, cleanup func(), err error)
}
