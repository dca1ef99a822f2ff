package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"affekt/internal/domain"
)

// facialOutcome is the facial branch's contribution to the join.
type facialOutcome struct {
	samples  []domain.FacialEmotion
	dominant *domain.DominantEmotion
	notes    []string
	err      error
}

// runFacialBranch samples frames and classifies each one. Per-frame
// inference errors are tolerated: one note for the whole branch and the
// remaining frames still run. Only a failure to sample at all fails the
// branch.
func (o *Orchestrator) runFacialBranch(ctx context.Context, videoPath string) (out facialOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = facialOutcome{
				err: &domain.InferenceError{Branch: "facial", Err: fmt.Errorf("panic: %v", r)},
			}
		}
	}()

	seq, err := o.sampler.Sample(ctx, videoPath, o.stride)
	if err != nil {
		out.err = &domain.InferenceError{Branch: "facial", Err: err}
		return out
	}
	defer seq.Close()

	tally := domain.NewEmotionTally()
	inferenceNoted := false

	for {
		frame, err := seq.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// The sequence is single-pass; a decode error ends it early.
			out.notes = append(out.notes, fmt.Sprintf("frame decoding stopped early: %v", err))
			break
		}

		scores, err := o.detector.Detect(ctx, frame.Image)
		if errors.Is(err, domain.ErrNoFace) {
			// Frames without a face count toward neither numerator nor
			// denominator.
			continue
		}
		if err != nil {
			if !inferenceNoted {
				inferenceNoted = true
				out.notes = append(out.notes, fmt.Sprintf("facial inference error at frame %d: %v", frame.Index, err))
			}
			continue
		}

		emotion, confidence := domain.Argmax(scores)
		if emotion == "" {
			continue
		}
		tally.Add(emotion)
		out.samples = append(out.samples, domain.FacialEmotion{
			Emotion:     emotion,
			Confidence:  confidence,
			Timestamp:   frame.Timestamp,
			Frame:       frame.Index,
			AllEmotions: scores,
		})
	}

	out.dominant = tally.Dominant()
	if out.dominant == nil {
		out.notes = append(out.notes, "no face detected in any sampled frame")
	}
	return out
}
