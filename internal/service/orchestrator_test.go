package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"affekt/internal/adapter/storage/memory"
	"affekt/internal/domain"
	"affekt/internal/port"
	"affekt/internal/port/mocks"
)

type orchFixture struct {
	store       *memory.Store
	extractor   *mocks.AudioExtractorMock
	transcriber *mocks.TranscriberMock
	detector    *mocks.FaceDetectorMock
	sampler     *mocks.FrameSamplerMock
	orch        *Orchestrator
}

func newOrchFixture(t *testing.T) *orchFixture {
	f := &orchFixture{
		store:       memory.NewStore(),
		extractor:   mocks.NewAudioExtractorMock(t),
		transcriber: mocks.NewTranscriberMock(t),
		detector:    mocks.NewFaceDetectorMock(t),
		sampler:     mocks.NewFrameSamplerMock(t),
	}
	f.orch = NewOrchestrator(f.store, f.extractor, f.transcriber, f.detector, f.sampler, NewEventBus(), 30, 1)
	return f
}

// run drives one job through the pipeline synchronously.
func (f *orchFixture) run(t *testing.T) string {
	t.Helper()
	src := domain.NewSource("clip.mp4", "/data/uploads/clip.mp4", "video/mp4", 100)
	jobID, err := f.orch.Submit(src)
	require.NoError(t, err)

	job, err := f.store.ClaimNext()
	require.NoError(t, err)
	require.NotNil(t, job)
	f.orch.process(context.Background(), job)
	return jobID
}

func happyTranscription() *port.TranscriptionOutput {
	return &port.TranscriptionOutput{
		Text:     "that was great",
		Language: "en",
		Segments: []domain.Segment{
			{Text: "that was", Start: 0, End: 2.4},
			{Text: "great", Start: 2.4, End: 3.1},
		},
		SpeechEmotions: []domain.SpeechEmotion{
			{Emotion: "happy", Confidence: 0.8, Events: []string{"Laughter"}},
		},
		AudioEvents: []string{"Laughter"},
	}
}

func framesAt(indices ...int) []port.Frame {
	frames := make([]port.Frame, len(indices))
	for i, idx := range indices {
		frames[i] = port.Frame{Index: idx, Timestamp: float64(idx) / 30.0, Image: []byte{byte(idx)}}
	}
	return frames
}

func TestProcess_Success(t *testing.T) {
	f := newOrchFixture(t)

	cleaned := false
	f.extractor.On("Extract", mock.Anything, "/data/uploads/clip.mp4").
		Return("/tmp/audio.wav", func() { cleaned = true }, nil)
	f.transcriber.On("Transcribe", mock.Anything, "/tmp/audio.wav").
		Return(happyTranscription(), nil)

	seq := &mocks.StaticFrameSeq{Frames: framesAt(0, 30, 60)}
	f.sampler.On("Sample", mock.Anything, "/data/uploads/clip.mp4", 30).Return(seq, nil)
	f.detector.On("Detect", mock.Anything, mock.Anything).
		Return(map[string]float64{"happy": 0.9, "neutral": 0.1}, nil).Times(3)

	jobID := f.run(t)

	snapshot, err := f.orch.Status(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisStatusCompleted, snapshot.Status)
	assert.Empty(t, snapshot.PartialFailures)
	assert.Empty(t, snapshot.Error)

	require.NotNil(t, snapshot.Transcription)
	assert.Equal(t, "that was great", snapshot.Transcription.Text)
	assert.Len(t, snapshot.Transcription.Segments, 2)
	assert.Equal(t, []string{"Laughter"}, snapshot.AudioEvents)

	require.Len(t, snapshot.FacialEmotions, 3)
	assert.Equal(t, 30, snapshot.FacialEmotions[1].Frame)
	require.NotNil(t, snapshot.DominantFacialEmotion)
	assert.Equal(t, "happy", snapshot.DominantFacialEmotion.Emotion)
	assert.InDelta(t, 100.0, snapshot.DominantFacialEmotion.Percentage, 1e-9)

	assert.True(t, cleaned, "extracted audio must be removed after the job")
	assert.True(t, seq.Closed(), "frame sequence must be closed")
}

func TestProcess_FacialBranchFailureIsPartial(t *testing.T) {
	f := newOrchFixture(t)

	f.extractor.On("Extract", mock.Anything, mock.Anything).Return("/tmp/audio.wav", func() {}, nil)
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).Return(happyTranscription(), nil)
	f.sampler.On("Sample", mock.Anything, mock.Anything, 30).
		Return(nil, errors.New("decoder exploded"))

	jobID := f.run(t)

	snapshot, err := f.orch.Status(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisStatusCompleted, snapshot.Status)
	require.NotNil(t, snapshot.Transcription)
	assert.Empty(t, snapshot.FacialEmotions)
	assert.Nil(t, snapshot.DominantFacialEmotion)

	require.NotEmpty(t, snapshot.PartialFailures)
	assert.Contains(t, snapshot.PartialFailures[len(snapshot.PartialFailures)-1], "facial")
}

func TestProcess_SpeechBranchFailureIsPartial(t *testing.T) {
	f := newOrchFixture(t)

	f.extractor.On("Extract", mock.Anything, mock.Anything).Return("/tmp/audio.wav", func() {}, nil)
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).
		Return(nil, errors.New("sidecar down"))

	seq := &mocks.StaticFrameSeq{Frames: framesAt(0)}
	f.sampler.On("Sample", mock.Anything, mock.Anything, 30).Return(seq, nil)
	f.detector.On("Detect", mock.Anything, mock.Anything).
		Return(map[string]float64{"sad": 0.7}, nil)

	jobID := f.run(t)

	snapshot, err := f.orch.Status(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisStatusCompleted, snapshot.Status)
	assert.Nil(t, snapshot.Transcription)
	require.NotNil(t, snapshot.DominantFacialEmotion)
	assert.Equal(t, "sad", snapshot.DominantFacialEmotion.Emotion)

	require.NotEmpty(t, snapshot.PartialFailures)
	assert.Contains(t, snapshot.PartialFailures[0], "transcription")
}

func TestProcess_BothBranchesFail(t *testing.T) {
	f := newOrchFixture(t)

	f.extractor.On("Extract", mock.Anything, mock.Anything).Return("/tmp/audio.wav", func() {}, nil)
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).
		Return(nil, errors.New("sidecar down"))
	f.sampler.On("Sample", mock.Anything, mock.Anything, 30).
		Return(nil, errors.New("decoder exploded"))

	jobID := f.run(t)

	snapshot, err := f.orch.Status(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisStatusFailed, snapshot.Status)
	assert.Contains(t, snapshot.Error, "all branches failed")
	assert.Nil(t, snapshot.Transcription)
	assert.Nil(t, snapshot.DominantFacialEmotion)
}

func TestProcess_ExtractionFailureIsFatal(t *testing.T) {
	f := newOrchFixture(t)

	f.extractor.On("Extract", mock.Anything, mock.Anything).
		Return("", nil, errors.New("moov atom not found"))

	jobID := f.run(t)

	snapshot, err := f.orch.Status(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisStatusFailed, snapshot.Status)
	assert.Contains(t, snapshot.Error, "audio extraction")

	// Neither branch runs on a bad input.
	f.transcriber.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything)
	f.sampler.AssertNotCalled(t, "Sample", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_NoFaceInAnyFrame(t *testing.T) {
	f := newOrchFixture(t)

	f.extractor.On("Extract", mock.Anything, mock.Anything).Return("/tmp/audio.wav", func() {}, nil)
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).Return(happyTranscription(), nil)

	seq := &mocks.StaticFrameSeq{Frames: framesAt(0, 30)}
	f.sampler.On("Sample", mock.Anything, mock.Anything, 30).Return(seq, nil)
	f.detector.On("Detect", mock.Anything, mock.Anything).
		Return(nil, domain.ErrNoFace).Times(2)

	jobID := f.run(t)

	snapshot, err := f.orch.Status(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisStatusCompleted, snapshot.Status)
	assert.Nil(t, snapshot.DominantFacialEmotion)
	assert.Empty(t, snapshot.FacialEmotions)
	assert.Contains(t, snapshot.PartialFailures, "no face detected in any sampled frame")
}

func TestProcess_DominantEmotionPercentage(t *testing.T) {
	f := newOrchFixture(t)

	f.extractor.On("Extract", mock.Anything, mock.Anything).Return("/tmp/audio.wav", func() {}, nil)
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).Return(happyTranscription(), nil)

	seq := &mocks.StaticFrameSeq{Frames: framesAt(0, 30, 60, 90, 120, 150, 180, 210)}
	f.sampler.On("Sample", mock.Anything, mock.Anything, 30).Return(seq, nil)

	happy := map[string]float64{"happy": 0.9}
	neutral := map[string]float64{"neutral": 0.8}
	f.detector.On("Detect", mock.Anything, mock.Anything).Return(happy, nil).Times(5)
	f.detector.On("Detect", mock.Anything, mock.Anything).Return(neutral, nil).Times(3)

	jobID := f.run(t)

	snapshot, err := f.orch.Status(jobID)
	require.NoError(t, err)
	require.NotNil(t, snapshot.DominantFacialEmotion)
	assert.Equal(t, "happy", snapshot.DominantFacialEmotion.Emotion)
	assert.InDelta(t, 62.5, snapshot.DominantFacialEmotion.Percentage, 1e-9)
}

func TestSubmit_ImmediatelyQueryable(t *testing.T) {
	f := newOrchFixture(t)

	src := domain.NewSource("clip.mp4", "/data/clip.mp4", "video/mp4", 1)
	jobID, err := f.orch.Submit(src)
	require.NoError(t, err)

	snapshot, err := f.orch.Status(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisStatusQueued, snapshot.Status)
	assert.Equal(t, jobID, snapshot.ID)
}

func TestStatus_UnknownJob(t *testing.T) {
	f := newOrchFixture(t)

	_, err := f.orch.Status("no-such-job")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTerminalSnapshotIsStable(t *testing.T) {
	f := newOrchFixture(t)

	f.extractor.On("Extract", mock.Anything, mock.Anything).Return("/tmp/audio.wav", func() {}, nil)
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).Return(happyTranscription(), nil)
	seq := &mocks.StaticFrameSeq{Frames: framesAt(0)}
	f.sampler.On("Sample", mock.Anything, mock.Anything, 30).Return(seq, nil)
	f.detector.On("Detect", mock.Anything, mock.Anything).
		Return(map[string]float64{"happy": 0.9}, nil)

	jobID := f.run(t)

	first, err := f.orch.Status(jobID)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := f.orch.Status(jobID)
		require.NoError(t, err)
		againJSON, err := json.Marshal(again)
		require.NoError(t, err)
		assert.Equal(t, firstJSON, againJSON)
	}
}

func TestWorkerPool_ProcessesQueuedJobs(t *testing.T) {
	f := newOrchFixture(t)
	f.orch.pollInterval = 10 * time.Millisecond

	f.extractor.On("Extract", mock.Anything, mock.Anything).Return("/tmp/audio.wav", func() {}, nil)
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).Return(happyTranscription(), nil)
	f.sampler.On("Sample", mock.Anything, mock.Anything, 30).
		Return(&mocks.StaticFrameSeq{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.orch.Start(ctx)

	src := domain.NewSource("clip.mp4", "/data/clip.mp4", "video/mp4", 1)
	jobID, err := f.orch.Submit(src)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snapshot, err := f.orch.Status(jobID)
		return err == nil && snapshot.Status == domain.AnalysisStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStatusDuringProcessingIsNeverTorn(t *testing.T) {
	f := newOrchFixture(t)

	f.extractor.On("Extract", mock.Anything, mock.Anything).Return("/tmp/audio.wav", func() {}, nil)
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).Return(happyTranscription(), nil)
	seq := &mocks.StaticFrameSeq{Frames: framesAt(0)}
	f.sampler.On("Sample", mock.Anything, mock.Anything, 30).Return(seq, nil)
	f.detector.On("Detect", mock.Anything, mock.Anything).
		Return(map[string]float64{"happy": 0.9}, nil)

	src := domain.NewSource("clip.mp4", "/data/clip.mp4", "video/mp4", 1)
	jobID, err := f.orch.Submit(src)
	require.NoError(t, err)

	job, err := f.store.ClaimNext()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.orch.process(context.Background(), job)
	}()

	// Readers racing the terminal write must see either a running status
	// with no result, or Completed with a full result. Nothing in between.
	for {
		snapshot, err := f.orch.Status(jobID)
		require.NoError(t, err)
		switch snapshot.Status {
		case domain.AnalysisStatusProcessing, domain.AnalysisStatusQueued:
			assert.Nil(t, snapshot.Transcription)
			assert.Nil(t, snapshot.DominantFacialEmotion)
		case domain.AnalysisStatusCompleted:
			assert.NotNil(t, snapshot.Transcription)
			assert.NotNil(t, snapshot.DominantFacialEmotion)
			<-done
			return
		default:
			t.Fatalf("unexpected status %s", snapshot.Status)
		}
	}
}
