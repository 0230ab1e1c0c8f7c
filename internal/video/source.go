package video

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/pkg/logging"
)

// Source yields decoded frames from a video input
type Source interface {
	Open(ctx context.Context) error
	ReadFrame(ctx context.Context) (*Frame, error)
	Close() error
}

// SourceFactory builds a Source for a stream configuration
type SourceFactory func(config StreamConfig) Source

// FFmpegSource decodes a video input into raw RGB24 frames using an
// ffmpeg subprocess reading from stdout. It handles all supported
// source kinds: network streams, capture devices and files.
type FFmpegSource struct {
	config StreamConfig
	logger *logging.Logger

	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdout io.ReadCloser

	width    int
	height   int
	sequence uint64
}

const (
	defaultFrameWidth  = 1280
	defaultFrameHeight = 720
)

// NewFFmpegSource creates an FFmpegSource for the given stream configuration
func NewFFmpegSource(config StreamConfig, logger *logging.Logger) *FFmpegSource {
	width, height := config.FrameWidth, config.FrameHeight
	if width <= 0 {
		width = defaultFrameWidth
	}
	if height <= 0 {
		height = defaultFrameHeight
	}

	return &FFmpegSource{
		config: config,
		logger: logger.WithComponent("ffmpeg").WithStreamID(config.StreamID),
		width:  width,
		height: height,
	}
}

// NewFFmpegSourceFactory returns a SourceFactory producing FFmpegSources
func NewFFmpegSourceFactory(logger *logging.Logger) SourceFactory {
	return func(config StreamConfig) Source {
		return NewFFmpegSource(config, logger)
	}
}

func (s *FFmpegSource) buildArgs() []string {
	args := []string{"-hide_banner", "-loglevel", "warning", "-nostdin"}

	switch s.config.SourceType {
	case domain.SourceRTSP:
		args = append(args, "-rtsp_transport", "tcp", "-i", s.config.SourceURL)
	case domain.SourceUSB:
		device := s.config.SourceURL
		if !strings.HasPrefix(device, "/dev/") {
			device = "/dev/video" + device
		}
		args = append(args, "-f", "v4l2", "-i", device)
	case domain.SourceFile:
		// Throttle file playback to realtime so FPS matches live sources
		args = append(args, "-re", "-stream_loop", "-1", "-i", s.config.SourceURL)
	default:
		args = append(args, "-i", s.config.SourceURL)
	}

	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", s.width, s.height),
		"-r", fmt.Sprintf("%d", s.config.TargetFPS),
		"pipe:1",
	)
	return args
}

// Open starts the decoder process and waits for the pipe to be ready
func (s *FFmpegSource) Open(ctx context.Context) error {
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, "ffmpeg", s.buildArgs()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	s.cmd = cmd
	s.cancel = cancel
	s.stdout = stdout

	go s.drainStderr(stderr)

	return nil
}

func (s *FFmpegSource) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		s.logger.Debug("ffmpeg", "line", scanner.Text())
	}
}

// ReadFrame reads the next frame from the decoder pipe.
// It blocks until a full frame is available or the pipe closes.
func (s *FFmpegSource) ReadFrame(ctx context.Context) (*Frame, error) {
	if s.stdout == nil {
		return nil, fmt.Errorf("source not open")
	}

	data := make([]byte, s.width*s.height*3)
	if _, err := io.ReadFull(s.stdout, data); err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	s.sequence++
	return &Frame{
		StreamID:   s.config.StreamID,
		Sequence:   s.sequence,
		Width:      s.width,
		Height:     s.height,
		Data:       data,
		CapturedAt: time.Now(),
	}, nil
}

// Close stops the decoder process
func (s *FFmpegSource) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cmd != nil {
		// Reap the process; the context cancel above kills it
		done := make(chan struct{})
		go func() {
			_ = s.cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			if s.cmd.Process != nil {
				_ = s.cmd.Process.Kill()
			}
		}
	}
	s.cmd = nil
	s.stdout = nil
	return nil
}
