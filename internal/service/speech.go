package service

import (
	"context"
	"fmt"
	"sort"

	"affekt/internal/domain"
)

// speechOutcome is the transcription branch's contribution to the join.
// err set means the branch produced nothing usable; notes carry
// partial-failure annotations that apply even on success.
type speechOutcome struct {
	transcription *domain.Transcription
	emotions      []domain.SpeechEmotion
	events        []string
	notes         []string
	err           error
}

func (o *Orchestrator) runSpeechBranch(ctx context.Context, audioPath string) (out speechOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = speechOutcome{
				err: &domain.InferenceError{Branch: "transcription", Err: fmt.Errorf("panic: %v", r)},
			}
		}
	}()

	raw, err := o.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		out.err = &domain.InferenceError{Branch: "transcription", Err: err}
		return out
	}

	segments, segNotes := sanitizeSegments(raw.Segments)
	emotions, emoNotes := clampSpeechEmotions(raw.SpeechEmotions)

	out.transcription = &domain.Transcription{
		Text:     raw.Text,
		Language: raw.Language,
		Segments: segments,
	}
	out.emotions = emotions
	out.events = raw.AudioEvents
	out.notes = append(segNotes, emoNotes...)
	return out
}

// sanitizeSegments enforces the segment ordering invariant on raw adapter
// output: sorted ascending by start, non-overlapping, start < end. Nothing
// is adjusted silently; every repair is reported as a partial-failure note.
func sanitizeSegments(raw []domain.Segment) ([]domain.Segment, []string) {
	if len(raw) == 0 {
		return nil, nil
	}

	segments := append([]domain.Segment(nil), raw...)
	var notes []string

	if !sort.SliceIsSorted(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	}) {
		sort.SliceStable(segments, func(i, j int) bool {
			return segments[i].Start < segments[j].Start
		})
		notes = append(notes, "transcription segments arrived out of order and were re-sorted")
	}

	sanitized := segments[:0]
	prevEnd := 0.0
	for i, seg := range segments {
		if seg.Start < 0 {
			notes = append(notes, fmt.Sprintf("segment %d start clamped from %.3f to 0", i, seg.Start))
			seg.Start = 0
		}
		if seg.Start < prevEnd {
			notes = append(notes, fmt.Sprintf(
				"segment %d overlapped the previous segment; start moved from %.3f to %.3f", i, seg.Start, prevEnd))
			seg.Start = prevEnd
		}
		if seg.End <= seg.Start {
			notes = append(notes, fmt.Sprintf(
				"segment %d dropped: interval [%.3f, %.3f] is empty after adjustment", i, seg.Start, seg.End))
			continue
		}
		sanitized = append(sanitized, seg)
		prevEnd = seg.End
	}
	return sanitized, notes
}

// clampSpeechEmotions forces confidences into [0,1], noting each repair.
func clampSpeechEmotions(raw []domain.SpeechEmotion) ([]domain.SpeechEmotion, []string) {
	if len(raw) == 0 {
		return nil, nil
	}

	emotions := make([]domain.SpeechEmotion, len(raw))
	var notes []string
	for i, e := range raw {
		switch {
		case e.Confidence < 0:
			notes = append(notes, fmt.Sprintf("speech emotion %d confidence clamped from %.3f to 0", i, e.Confidence))
			e.Confidence = 0
		case e.Confidence > 1:
			notes = append(notes, fmt.Sprintf("speech emotion %d confidence clamped from %.3f to 1", i, e.Confidence))
			e.Confidence = 1
		}
		emotions[i] = e
	}
	return emotions, notes
}
