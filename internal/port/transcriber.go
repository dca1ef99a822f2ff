package port

import (
	"context"

	"affekt/internal/domain"
)

// TranscriptionOutput is the raw adapter result. Segments may be unsorted
// or overlapping and confidences may fall outside [0,1]; the speech branch
// sanitizes both before anything reaches the job record.
type TranscriptionOutput struct {
	Text           string
	Language       string
	Segments       []domain.Segment
	SpeechEmotions []domain.SpeechEmotion
	AudioEvents    []string
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*TranscriptionOutput, error)
}
