package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/internal/video"
	"github.com/marmot-vision/marmot/pkg/logging"
	"github.com/marmot-vision/marmot/pkg/metrics"
)

const (
	inputBufferSize   = 5
	resultsBufferSize = 10

	stdinWriteTimeout = 2 * time.Second
	stopTimeout       = 2 * time.Second
)

// WorkerConfig configures the inference worker subprocess
type WorkerConfig struct {
	Command   string
	Args      []string
	ModelPath string
	Settings  Settings
	WorkerID  string
}

// request is the wire format sent to the worker process
type request struct {
	Seq        uint64  `msgpack:"seq"`
	FrameData  []byte  `msgpack:"frame_data"`
	Width      int     `msgpack:"width"`
	Height     int     `msgpack:"height"`
	Timestamp  string  `msgpack:"timestamp"`
	Confidence float64 `msgpack:"confidence"`
	Tracker    string  `msgpack:"tracker"`
}

// wireDetection is one detection in the worker response
type wireDetection struct {
	BBox       [4]float64 `msgpack:"bbox"`
	Confidence float64    `msgpack:"confidence"`
	TrackID    *int       `msgpack:"track_id"`
}

// response is the wire format read back from the worker process
type response struct {
	Seq        uint64          `msgpack:"seq"`
	Detections []wireDetection `msgpack:"detections"`
	TotalMs    float64         `msgpack:"total_ms"`
	Error      string          `msgpack:"error"`
}

type pendingCall struct {
	reply chan *response
}

// Worker runs the inference subprocess and correlates requests with
// responses by sequence number. Calls are non-blocking at the input
// boundary: a full buffer drops the frame instead of stalling capture.
type Worker struct {
	config  WorkerConfig
	logger  *logging.Logger
	metrics *metrics.Metrics

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	input chan *request

	mu       sync.Mutex
	pending  map[uint64]pendingCall
	settings Settings

	seq            atomic.Uint64
	framesSent     atomic.Uint64
	framesDropped  atomic.Uint64
	inferenceCount atomic.Uint64

	isActive atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWorker creates an inference worker. Start must be called before use.
func NewWorker(config WorkerConfig, logger *logging.Logger, m *metrics.Metrics) *Worker {
	if config.Settings.Confidence <= 0 {
		config.Settings = DefaultSettings()
	}
	if config.Command == "" {
		config.Command = "scripts/run_inference_worker.sh"
	}

	return &Worker{
		config:   config,
		logger:   logger.WithComponent("detector").WithFields(map[string]any{"workerId": config.WorkerID}),
		metrics:  m,
		pending:  make(map[uint64]pendingCall),
		settings: config.Settings,
	}
}

// Start spawns the worker process and the reader goroutines
func (w *Worker) Start(ctx context.Context) error {
	if w.isActive.Load() {
		return fmt.Errorf("detector worker already started")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.input = make(chan *request, inputBufferSize)

	args := append([]string{}, w.config.Args...)
	if w.config.ModelPath != "" {
		args = append(args, "--model", w.config.ModelPath)
	}

	cmd := exec.CommandContext(w.ctx, w.config.Command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start inference worker: %w", err)
	}

	w.cmd = cmd
	w.stdin = stdin
	w.stdout = stdout
	w.stderr = stderr
	w.isActive.Store(true)

	w.wg.Add(4)
	go w.writeLoop()
	go w.readLoop()
	go w.logStderr()
	go w.waitProcess()

	w.logger.Info("Inference worker started",
		"pid", cmd.Process.Pid,
		"model", w.config.ModelPath,
		"confidence", w.settings.Confidence,
		"tracker", string(w.settings.Tracker),
	)

	return nil
}

// UpdateSettings changes the inference parameters. They are attached to
// every request, so the worker applies them on the next frame.
func (w *Worker) UpdateSettings(settings Settings) error {
	if settings.Confidence <= 0 || settings.Confidence > 1 {
		return fmt.Errorf("invalid confidence %.2f", settings.Confidence)
	}
	switch settings.Tracker {
	case TrackerBoTSORT, TrackerByteTrack:
	default:
		return fmt.Errorf("invalid tracker %q", settings.Tracker)
	}

	w.mu.Lock()
	w.settings = settings
	w.mu.Unlock()

	w.logger.Info("Detector settings updated",
		"confidence", settings.Confidence,
		"tracker", string(settings.Tracker),
	)
	return nil
}

// Settings returns the current inference parameters
func (w *Worker) Settings() Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings
}

// TrackPersons sends a frame for inference and waits for its result
func (w *Worker) TrackPersons(ctx context.Context, frame *video.Frame) ([]domain.Tracking, error) {
	if !w.isActive.Load() {
		return nil, ErrNotRunning
	}

	w.mu.Lock()
	settings := w.settings
	w.mu.Unlock()

	req := &request{
		Seq:        w.seq.Add(1),
		FrameData:  frame.Data,
		Width:      frame.Width,
		Height:     frame.Height,
		Timestamp:  frame.CapturedAt.Format(time.RFC3339Nano),
		Confidence: settings.Confidence,
		Tracker:    string(settings.Tracker),
	}

	call := pendingCall{reply: make(chan *response, 1)}
	w.mu.Lock()
	w.pending[req.Seq] = call
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.pending, req.Seq)
		w.mu.Unlock()
	}()

	select {
	case w.input <- req:
		w.framesSent.Add(1)
	default:
		w.framesDropped.Add(1)
		if w.metrics != nil {
			w.metrics.RecordFrameDropped(frame.StreamID, "inference")
		}
		return nil, ErrBusy
	}

	start := time.Now()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.ctx.Done():
		return nil, ErrNotRunning
	case resp := <-call.reply:
		if w.metrics != nil {
			w.metrics.RecordInference(time.Since(start))
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("inference failed: %s", resp.Error)
		}
		return toTrackings(resp.Detections), nil
	}
}

func toTrackings(detections []wireDetection) []domain.Tracking {
	out := make([]domain.Tracking, 0, len(detections))
	for _, d := range detections {
		out = append(out, domain.Tracking{
			BBox: domain.BoundingBox{
				X1: d.BBox[0], Y1: d.BBox[1],
				X2: d.BBox[2], Y2: d.BBox[3],
			},
			Confidence: d.Confidence,
			TrackID:    d.TrackID,
		})
	}
	return out
}

func (w *Worker) writeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case req, ok := <-w.input:
			if !ok {
				return
			}
			if err := w.writeRequest(req); err != nil {
				w.logger.WithError(err).Error("Failed to write frame to inference worker")
				w.failPending(req.Seq, err)
			}
		}
	}
}

// writeRequest frames the request as 4-byte big-endian length + msgpack
func (w *Worker) writeRequest(req *request) error {
	payload, err := msgpack.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	writeErr := make(chan error, 1)
	go func() {
		prefix := make([]byte, 4)
		binary.BigEndian.PutUint32(prefix, uint32(len(payload)))

		if _, err := w.stdin.Write(prefix); err != nil {
			writeErr <- fmt.Errorf("failed to write length prefix: %w", err)
			return
		}
		if _, err := w.stdin.Write(payload); err != nil {
			writeErr <- fmt.Errorf("failed to write payload: %w", err)
			return
		}
		writeErr <- nil
	}()

	select {
	case err := <-writeErr:
		return err
	case <-time.After(stdinWriteTimeout):
		return fmt.Errorf("stdin write timed out, worker may be hung")
	case <-w.ctx.Done():
		return w.ctx.Err()
	}
}

func (w *Worker) failPending(seq uint64, err error) {
	w.mu.Lock()
	call, ok := w.pending[seq]
	w.mu.Unlock()
	if ok {
		select {
		case call.reply <- &response{Seq: seq, Error: err.Error()}:
		default:
		}
	}
}

func (w *Worker) readLoop() {
	defer w.wg.Done()

	lengthBuf := make([]byte, 4)
	for {
		if _, err := io.ReadFull(w.stdout, lengthBuf); err != nil {
			if err != io.EOF && w.ctx.Err() == nil {
				w.logger.WithError(err).Error("Failed to read length prefix from inference worker")
			}
			return
		}

		msgLength := binary.BigEndian.Uint32(lengthBuf)
		payload := make([]byte, msgLength)
		if _, err := io.ReadFull(w.stdout, payload); err != nil {
			w.logger.WithError(err).Error("Failed to read payload from inference worker",
				"expectedLength", msgLength,
			)
			return
		}

		var resp response
		if err := msgpack.Unmarshal(payload, &resp); err != nil {
			w.logger.WithError(err).Error("Failed to unmarshal inference result",
				"payloadLength", len(payload),
			)
			continue
		}

		w.inferenceCount.Add(1)

		w.mu.Lock()
		call, ok := w.pending[resp.Seq]
		w.mu.Unlock()

		if !ok {
			// Caller gave up or never existed
			continue
		}

		select {
		case call.reply <- &resp:
		default:
		}
	}
}

// logStderr maps worker log levels into the service log
func (w *Worker) logStderr() {
	defer w.wg.Done()

	scanner := bufio.NewScanner(w.stderr)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "[ERROR]") || strings.Contains(line, "[CRITICAL]"):
			w.logger.Error("Inference worker error", "log", line)
		case strings.Contains(line, "[WARNING]") || strings.Contains(line, "[WARN]"):
			w.logger.Warn("Inference worker warning", "log", line)
		default:
			w.logger.Debug("Inference worker log", "log", line)
		}
	}
}

// waitProcess reaps the worker process to avoid zombies
func (w *Worker) waitProcess() {
	defer w.wg.Done()

	if w.cmd == nil || w.cmd.Process == nil {
		return
	}

	err := w.cmd.Wait()
	if err != nil && w.ctx.Err() == nil {
		w.logger.WithError(err).Error("Inference worker exited unexpectedly",
			"pid", w.cmd.Process.Pid,
		)
	}
}

// WorkerStats is a snapshot of worker counters
type WorkerStats struct {
	FramesSent     uint64 `json:"framesSent"`
	FramesDropped  uint64 `json:"framesDropped"`
	InferenceCount uint64 `json:"inferenceCount"`
	Active         bool   `json:"active"`
}

// Stats returns a snapshot of worker counters
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		FramesSent:     w.framesSent.Load(),
		FramesDropped:  w.framesDropped.Load(),
		InferenceCount: w.inferenceCount.Load(),
		Active:         w.isActive.Load(),
	}
}

// Stop shuts down the worker process, force-killing after a timeout
func (w *Worker) Stop() error {
	if !w.isActive.Load() {
		return nil
	}
	w.isActive.Store(false)

	w.logger.Info("Stopping inference worker")

	if w.cancel != nil {
		w.cancel()
	}
	if w.stdin != nil {
		_ = w.stdin.Close()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		if w.cmd != nil && w.cmd.Process != nil {
			w.logger.Warn("Force killing inference worker", "pid", w.cmd.Process.Pid)
			_ = w.cmd.Process.Kill()
		}
		<-done
	}

	return nil
}
