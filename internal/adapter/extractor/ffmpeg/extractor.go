// Package ffmpeg extracts the audio track of a video into a normalized
// mono 16 kHz PCM wav, the input format the speech model expects.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"affekt/internal/infrastructure/logger"
	"affekt/internal/port"
)

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

type Extractor struct {
	ffmpegPath string
	tempDir    string
	runner     commandRunner
}

func NewExtractor(ffmpegPath string) *Extractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Extractor{
		ffmpegPath: ffmpegPath,
		tempDir:    os.TempDir(),
		runner:     execRunner{},
	}
}

func (e *Extractor) Extract(ctx context.Context, videoPath string) (string, func(), error) {
	if strings.TrimSpace(videoPath) == "" {
		return "", nil, fmt.Errorf("video path is required")
	}
	if _, err := os.Stat(videoPath); err != nil {
		return "", nil, fmt.Errorf("cannot access video: %w", err)
	}

	audioPath := filepath.Join(e.tempDir, uuid.NewString()+".wav")
	args := buildExtractArgs(videoPath, audioPath)

	_, stderr, err := e.runner.Run(ctx, e.ffmpegPath, args...)
	if err != nil {
		os.Remove(audioPath)
		return "", nil, fmt.Errorf("ffmpeg audio extraction failed: %w (%s)", err, lastStderrLine(stderr))
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", nil, fmt.Errorf("ffmpeg completed but output wav is missing: %w", err)
	}

	cleanup := func() {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			logger.Warnf("failed to remove extracted audio %s: %v", audioPath, err)
		}
	}
	return audioPath, cleanup, nil
}

func buildExtractArgs(videoPath, audioPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		audioPath,
	}
}

// lastStderrLine keeps errors readable: ffmpeg prints the actual failure
// reason on its final stderr line.
func lastStderrLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

var _ port.AudioExtractor = (*Extractor)(nil)
