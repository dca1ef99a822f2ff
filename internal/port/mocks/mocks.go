// Package mocks provides testify-backed doubles for the port interfaces.
package mocks

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/mock"

	"affekt/internal/port"
)

type AudioExtractorMock struct {
	mock.Mock
}

func NewAudioExtractorMock(t *testing.T) *AudioExtractorMock {
	m := &AudioExtractorMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *AudioExtractorMock) Extract(ctx context.Context, videoPath string) (string, func(), error) {
	args := m.Called(ctx, videoPath)
	cleanup, _ := args.Get(1).(func())
	if cleanup == nil {
		cleanup = func() {}
	}
	return args.String(0), cleanup, args.Error(2)
}

type TranscriberMock struct {
	mock.Mock
}

func NewTranscriberMock(t *testing.T) *TranscriberMock {
	m := &TranscriberMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *TranscriberMock) Transcribe(ctx context.Context, audioPath string) (*port.TranscriptionOutput, error) {
	args := m.Called(ctx, audioPath)
	out, _ := args.Get(0).(*port.TranscriptionOutput)
	return out, args.Error(1)
}

type FaceDetectorMock struct {
	mock.Mock
}

func NewFaceDetectorMock(t *testing.T) *FaceDetectorMock {
	m := &FaceDetectorMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *FaceDetectorMock) Detect(ctx context.Context, frame []byte) (map[string]float64, error) {
	args := m.Called(ctx, frame)
	scores, _ := args.Get(0).(map[string]float64)
	return scores, args.Error(1)
}

type FrameSamplerMock struct {
	mock.Mock
}

func NewFrameSamplerMock(t *testing.T) *FrameSamplerMock {
	m := &FrameSamplerMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *FrameSamplerMock) Sample(ctx context.Context, videoPath string, stride int) (port.FrameSeq, error) {
	args := m.Called(ctx, videoPath, stride)
	seq, _ := args.Get(0).(port.FrameSeq)
	return seq, args.Error(1)
}

// StaticFrameSeq replays a fixed slice of frames, then io.EOF.
type StaticFrameSeq struct {
	Frames []port.Frame
	Err    error // returned after the frames instead of io.EOF when set
	pos    int
	closed bool
}

func (s *StaticFrameSeq) Next() (*port.Frame, error) {
	if s.pos >= len(s.Frames) {
		if s.Err != nil {
			return nil, s.Err
		}
		return nil, io.EOF
	}
	f := s.Frames[s.pos]
	s.pos++
	return &f, nil
}

func (s *StaticFrameSeq) Close() error {
	s.closed = true
	return nil
}

func (s *StaticFrameSeq) Closed() bool { return s.closed }
