// Package ffmpeg samples video frames as JPEG images at a fixed stride.
// Frame timestamps come from ffprobe so variable-frame-rate inputs keep
// accurate timing, and the frames themselves stream out of ffmpeg as
// MJPEG over a pipe so only one frame is held in memory at a time.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"affekt/internal/infrastructure/logger"
	"affekt/internal/port"
)

// prober returns the presentation timestamp of every video frame, in
// order, in seconds.
type prober interface {
	FrameTimes(ctx context.Context, videoPath string) ([]float64, error)
}

// decoder streams the selected frames as concatenated JPEGs. stop
// terminates the underlying process.
type decoder interface {
	Open(ctx context.Context, videoPath string, stride int) (stream io.ReadCloser, stop func() error, err error)
}

type Sampler struct {
	prober  prober
	decoder decoder
}

func NewSampler(ffmpegPath, ffprobePath string) *Sampler {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Sampler{
		prober:  &ffprobeProber{path: ffprobePath},
		decoder: &ffmpegDecoder{path: ffmpegPath},
	}
}

// Sample probes the frame timeline, then opens a lazy single-pass
// sequence over every stride-th frame starting at frame zero.
func (s *Sampler) Sample(ctx context.Context, videoPath string, stride int) (port.FrameSeq, error) {
	if stride < 1 {
		stride = 1
	}

	times, err := s.prober.FrameTimes(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe frame timestamps: %w", err)
	}
	if len(times) == 0 {
		return &frameSeq{done: true}, nil
	}

	stream, stop, err := s.decoder.Open(ctx, videoPath, stride)
	if err != nil {
		return nil, fmt.Errorf("open frame stream: %w", err)
	}

	return &frameSeq{
		reader: bufio.NewReaderSize(stream, 1<<16),
		stream: stream,
		stop:   stop,
		times:  times,
		stride: stride,
	}, nil
}

// frameSeq yields frames one at a time. pos counts emitted frames; the
// k-th emitted frame is source frame k*stride.
type frameSeq struct {
	reader *bufio.Reader
	stream io.ReadCloser
	stop   func() error
	times  []float64
	stride int
	pos    int
	done   bool
}

func (f *frameSeq) Next() (*port.Frame, error) {
	if f.done {
		return nil, io.EOF
	}

	img, err := readJPEG(f.reader)
	if err == io.EOF {
		f.done = true
		return nil, io.EOF
	}
	if err != nil {
		f.done = true
		return nil, fmt.Errorf("read frame %d: %w", f.pos*f.stride, err)
	}

	index := f.pos * f.stride
	frame := &port.Frame{
		Index: index,
		Image: img,
	}
	if index < len(f.times) {
		frame.Timestamp = f.times[index]
	} else if len(f.times) > 0 {
		// ffmpeg emitted more frames than ffprobe reported; carry the
		// last known timestamp rather than inventing one.
		frame.Timestamp = f.times[len(f.times)-1]
	}
	f.pos++
	return frame, nil
}

func (f *frameSeq) Close() error {
	f.done = true
	if f.stream != nil {
		_ = f.stream.Close()
		f.stream = nil
	}
	if f.stop != nil {
		stop := f.stop
		f.stop = nil
		if err := stop(); err != nil {
			// Closing mid-stream kills the decoder; that exit status is
			// expected and only worth a debug line.
			logger.Debugf("frame stream shutdown: %v", err)
			return err
		}
	}
	return nil
}

// readJPEG extracts the next JPEG from an MJPEG stream by scanning from
// the SOI marker to the matching EOI marker.
func readJPEG(r *bufio.Reader) ([]byte, error) {
	// Sync to the start-of-image marker.
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != 0xFF {
			continue
		}
		next, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if next == 0xD8 {
			break
		}
	}

	buf := bytes.NewBuffer([]byte{0xFF, 0xD8})
	prev := byte(0)
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("truncated frame: %w", io.ErrUnexpectedEOF)
			}
			return nil, err
		}
		buf.WriteByte(b)
		if prev == 0xFF && b == 0xD9 {
			return buf.Bytes(), nil
		}
		prev = b
	}
}

type ffprobeProber struct {
	path string
}

// FrameTimes reads per-frame pts_time values. best_effort_timestamp_time
// is used as a fallback for streams where pts_time is N/A.
func (p *ffprobeProber) FrameTimes(ctx context.Context, videoPath string) ([]float64, error) {
	cmd := exec.CommandContext(ctx, p.path,
		"-hide_banner",
		"-loglevel", "error",
		"-select_streams", "v:0",
		"-show_entries", "frame=pts_time,best_effort_timestamp_time",
		"-of", "csv=p=0",
		videoPath,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return parseFrameTimes(stdout.String())
}

func parseFrameTimes(out string) ([]float64, error) {
	var times []float64
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), ","))
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		value := ""
		for _, f := range fields {
			if f != "" && f != "N/A" {
				value = f
				break
			}
		}
		if value == "" {
			// No usable timestamp for this frame; extrapolate from the
			// previous one so indices stay aligned.
			if len(times) > 0 {
				times = append(times, times[len(times)-1])
			} else {
				times = append(times, 0)
			}
			continue
		}
		t, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("unparseable frame timestamp %q", value)
		}
		times = append(times, t)
	}
	return times, nil
}

type ffmpegDecoder struct {
	path string
}

// Open starts ffmpeg decoding every stride-th frame to an MJPEG pipe.
// The select filter keeps frame indices aligned with the probed
// timeline: frame n survives iff n mod stride == 0.
func (d *ffmpegDecoder) Open(ctx context.Context, videoPath string, stride int) (io.ReadCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, d.path,
		"-hide_banner",
		"-nostdin",
		"-i", videoPath,
		"-vf", fmt.Sprintf("select=not(mod(n\\,%d))", stride),
		"-vsync", "vfr",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "2",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	stop := func() error {
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("ffmpeg frame decoding: %w (%s)", err, strings.TrimSpace(stderr.String()))
		}
		return nil
	}
	return stdout, stop, nil
}

var _ port.FrameSampler = (*Sampler)(nil)
