package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	stderr  string
	err     error
	gotName string
	gotArgs []string
	// writeOutput mimics ffmpeg producing the wav file.
	writeOutput bool
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	f.gotName = name
	f.gotArgs = args
	if f.writeOutput {
		outPath := args[len(args)-1]
		if err := os.WriteFile(outPath, []byte("RIFF"), 0644); err != nil {
			return "", "", err
		}
	}
	return "", f.stderr, f.err
}

func writeTempVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0644))
	return path
}

func TestExtract_Success(t *testing.T) {
	runner := &fakeRunner{writeOutput: true}
	e := NewExtractor("ffmpeg")
	e.tempDir = t.TempDir()
	e.runner = runner

	videoPath := writeTempVideo(t)
	audioPath, cleanup, err := e.Extract(context.Background(), videoPath)
	require.NoError(t, err)
	require.NotNil(t, cleanup)

	assert.Equal(t, "ffmpeg", runner.gotName)
	assert.Contains(t, runner.gotArgs, "-vn")
	assert.Contains(t, runner.gotArgs, "pcm_s16le")
	assert.Contains(t, runner.gotArgs, videoPath)
	assert.Equal(t, ".wav", filepath.Ext(audioPath))

	_, err = os.Stat(audioPath)
	require.NoError(t, err)

	cleanup()
	_, err = os.Stat(audioPath)
	assert.True(t, os.IsNotExist(err))
}

func TestExtract_NormalizationArgs(t *testing.T) {
	args := buildExtractArgs("in.mp4", "out.wav")
	assert.Equal(t, []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", "in.mp4",
		"-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le",
		"out.wav",
	}, args)
}

func TestExtract_FfmpegFailure(t *testing.T) {
	runner := &fakeRunner{
		stderr: "some banner\nInvalid data found when processing input",
		err:    errors.New("exit status 1"),
	}
	e := NewExtractor("")
	e.tempDir = t.TempDir()
	e.runner = runner

	_, _, err := e.Extract(context.Background(), writeTempVideo(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found")
}

func TestExtract_MissingInput(t *testing.T) {
	e := NewExtractor("")
	e.runner = &fakeRunner{}

	_, _, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access video")
}

func TestExtract_OutputMissing(t *testing.T) {
	e := NewExtractor("")
	e.tempDir = t.TempDir()
	e.runner = &fakeRunner{writeOutput: false}

	_, _, err := e.Extract(context.Background(), writeTempVideo(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output wav is missing")
}
