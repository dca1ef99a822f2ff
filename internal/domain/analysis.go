package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AnalysisStatus string

const (
	AnalysisStatusQueued     AnalysisStatus = "Queued"
	AnalysisStatusProcessing AnalysisStatus = "Processing"
	AnalysisStatusCompleted  AnalysisStatus = "Completed"
	AnalysisStatusFailed     AnalysisStatus = "Failed"
)

// Analysis is one submitted video's end-to-end analysis job and its evolving
// record. Status moves one way: Queued -> Processing -> Completed|Failed.
// Once terminal the record is immutable; a reanalysis is a new Analysis with
// a new ID, never a mutation of a prior one.
type Analysis struct {
	ID              string
	SourceID        string
	SourcePath      string
	Status          AnalysisStatus
	Result          *Result
	ErrorMessage    string
	PartialFailures []string
	CreatedAt       time.Time
	StartedAt       time.Time
	CompletedAt     time.Time
}

func NewAnalysis(sourceID, sourcePath string) *Analysis {
	return &Analysis{
		ID:         uuid.NewString(),
		SourceID:   sourceID,
		SourcePath: sourcePath,
		Status:     AnalysisStatusQueued,
		CreatedAt:  time.Now().UTC(),
	}
}

func (a *Analysis) Terminal() bool {
	return a.Status == AnalysisStatusCompleted || a.Status == AnalysisStatusFailed
}

// validTransition enforces the allowed state machine edges.
func validTransition(from, to AnalysisStatus) bool {
	switch from {
	case AnalysisStatusQueued:
		return to == AnalysisStatusProcessing || to == AnalysisStatusFailed
	case AnalysisStatusProcessing:
		return to == AnalysisStatusCompleted || to == AnalysisStatusFailed
	default:
		return false
	}
}

func (a *Analysis) transition(to AnalysisStatus) error {
	if !validTransition(a.Status, to) {
		return fmt.Errorf("invalid status transition: %s -> %s", a.Status, to)
	}
	a.Status = to
	return nil
}

func (a *Analysis) MarkProcessing() error {
	if err := a.transition(AnalysisStatusProcessing); err != nil {
		return err
	}
	a.StartedAt = time.Now().UTC()
	return nil
}

// Complete writes the terminal success state. Result and status land in the
// same mutation so no reader ever sees Completed without a result.
func (a *Analysis) Complete(result *Result, partialFailures []string) error {
	if err := a.transition(AnalysisStatusCompleted); err != nil {
		return err
	}
	a.Result = result
	a.PartialFailures = append([]string(nil), partialFailures...)
	a.CompletedAt = time.Now().UTC()
	return nil
}

// Fail writes the terminal failure state. A failed job carries no result.
func (a *Analysis) Fail(message string, partialFailures []string) error {
	if err := a.transition(AnalysisStatusFailed); err != nil {
		return err
	}
	a.Result = nil
	a.ErrorMessage = message
	a.PartialFailures = append([]string(nil), partialFailures...)
	a.CompletedAt = time.Now().UTC()
	return nil
}

func (a *Analysis) Clone() *Analysis {
	c := *a
	c.Result = a.Result.Clone()
	c.PartialFailures = append([]string(nil), a.PartialFailures...)
	return &c
}

// Snapshot is the caller-visible view of a job, rendered by the query
// surface. Terminal snapshots are stable: repeated queries marshal to
// byte-identical JSON.
type Snapshot struct {
	ID                    string           `json:"id"`
	Status                AnalysisStatus   `json:"status"`
	Transcription         *Transcription   `json:"transcription,omitempty"`
	SpeechEmotions        []SpeechEmotion  `json:"speech_emotions,omitempty"`
	AudioEvents           []string         `json:"audio_events,omitempty"`
	FacialEmotions        []FacialEmotion  `json:"facial_emotions,omitempty"`
	DominantFacialEmotion *DominantEmotion `json:"dominant_facial_emotion,omitempty"`
	PartialFailures       []string         `json:"partial_failures,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	Error                 string           `json:"error,omitempty"`
}

func (a *Analysis) Snapshot() Snapshot {
	s := Snapshot{
		ID:              a.ID,
		Status:          a.Status,
		PartialFailures: a.PartialFailures,
		CreatedAt:       a.CreatedAt,
		Error:           a.ErrorMessage,
	}
	if a.Result != nil {
		s.Transcription = a.Result.Transcription
		s.SpeechEmotions = a.Result.SpeechEmotions
		s.AudioEvents = a.Result.AudioEvents
		s.FacialEmotions = a.Result.FacialEmotions
		s.DominantFacialEmotion = a.Result.DominantFacialEmotion
	}
	return s
}
