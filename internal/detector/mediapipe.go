package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrScriptNotFound is returned when the MediaPipe service script cannot be located.
var ErrScriptNotFound = errors.New("mediapipe_service.py not found")

// idleShutdown is how long the model process may sit unused before it is stopped.
const idleShutdown = 30 * time.Second

// MediaPipeDetector implements Detector with a long-lived Python MediaPipe
// process. The process starts on the first frame, stops after idleShutdown
// without frames and is restarted after any protocol failure.
//
// Each frame is sent as a 4-byte big-endian length followed by JPEG bytes.
// The process answers with one JSON line whose points are normalised to the
// frame; Detect scales them to pixels.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	python     string
	log        *slog.Logger

	mu        sync.Mutex
	svc       *service
	idleTimer *time.Timer
}

// NewMediaPipeDetector validates config and locates the service script and
// interpreter. No process is started yet.
func NewMediaPipeDetector(config Config, log *slog.Logger) (*MediaPipeDetector, error) {
	if log == nil {
		log = slog.Default()
	}
	if config.Backend == "" {
		config.Backend = BackendCPU
	}
	if !config.Backend.IsValid() {
		return nil, fmt.Errorf("unknown detector backend %q", config.Backend)
	}
	if !validHand(config.Hand) {
		return nil, fmt.Errorf("unknown preferred hand %q", config.Hand)
	}

	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = firstExisting(searchPaths("scripts/mediapipe_service.py"))
	}
	if scriptPath == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("stat mediapipe script: %w", err)
	}

	python := config.Python
	if python == "" {
		python = firstExisting(searchPaths("venv/bin/python"))
	}
	if python == "" {
		python = "python3"
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
		python:     python,
		log:        log.With(slog.String("component", "mediapipe")),
	}, nil
}

// Detect returns the hands in frame, preferred hand first.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.svc == nil {
		if d.svc, err = startService(d.python, d.args(), d.log); err != nil {
			return nil, err
		}
	}

	line, err := d.svc.roundTrip(buf.GetBytes())
	if err != nil {
		// The stream is out of step; start over on the next frame.
		d.stopLocked()
		return nil, err
	}
	d.resetIdleTimer()

	hands, err := decodeHands(line, float64(frame.Cols()), float64(frame.Rows()))
	if err != nil {
		return nil, err
	}
	rankHands(hands, d.config.Hand)
	return hands, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

// args are the command-line flags handed to the service script.
func (d *MediaPipeDetector) args() []string {
	return []string{
		d.scriptPath,
		"--backend", string(d.config.Backend),
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	}
}

func (d *MediaPipeDetector) stopLocked() error {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.svc == nil {
		return nil
	}
	err := d.svc.stop()
	d.svc = nil
	d.log.Info("mediapipe service stopped")
	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(idleShutdown, func() { d.idleExpired(t) })
	d.idleTimer = t
}

// idleExpired stops the service when t is still the live idle timer. A timer
// that fired while Detect was replacing it is stale and does nothing.
func (d *MediaPipeDetector) idleExpired(t *time.Timer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t == nil || t != d.idleTimer {
		return
	}
	if err := d.stopLocked(); err != nil {
		d.log.Warn("mediapipe idle shutdown", slog.String("error", err.Error()))
	}
}

// service is one running model process.
type service struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	logged chan struct{}
}

func startService(python string, args []string, log *slog.Logger) (*service, error) {
	cmd := exec.Command(python, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mediapipe service: %w", err)
	}

	s := &service{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		logged: make(chan struct{}),
	}
	go func() {
		defer close(s.logged)
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			log.Debug("service output", slog.String("line", sc.Text()))
		}
	}()

	log.Info("mediapipe service started", slog.String("python", python), slog.Int("pid", cmd.Process.Pid))
	return s, nil
}

// roundTrip sends one JPEG frame and reads the answer line.
func (s *service) roundTrip(jpeg []byte) ([]byte, error) {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(jpeg)))

	if _, err := s.stdin.Write(header[:]); err != nil {
		return nil, fmt.Errorf("write frame header: %w", err)
	}
	if _, err := s.stdin.Write(jpeg); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}

	line, err := s.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

// stop closes stdin, which the service treats as end of input, and waits
// for it to exit.
func (s *service) stop() error {
	s.stdin.Close()
	<-s.logged
	return s.cmd.Wait()
}

// searchPaths lists where a bundled file may live: the working directory,
// its parents, next to the binary and under ~/.signbridge.
func searchPaths(rel string) []string {
	paths := []string{rel, filepath.Join("..", rel), filepath.Join("..", "..", rel)}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), rel))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".signbridge", rel))
	}
	return paths
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// wireHand is one hand in a service response.
type wireHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

// decodeHands parses one service response line and scales the normalised
// points to a width x height frame; z shares the x scale. Hands that do not
// carry a full skeleton are dropped rather than padded with zero points.
func decodeHands(line []byte, width, height float64) ([]HandLandmarks, error) {
	var response struct {
		Hands []wireHand `json:"hands"`
		Error string     `json:"error,omitempty"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("mediapipe service: %s", response.Error)
	}

	result := make([]HandLandmarks, 0, len(response.Hands))
	for _, h := range response.Hands {
		if len(h.Points) != NumLandmarks {
			continue
		}
		lm := HandLandmarks{
			Handedness: h.Handedness,
			Score:      h.Score,
		}
		for i, p := range h.Points {
			lm.Points[i] = Point3D{X: p.X * width, Y: p.Y * height, Z: p.Z * width}
		}
		result = append(result, lm)
	}
	return result, nil
}

func validHand(h string) bool {
	switch strings.ToLower(h) {
	case "", "left", "right":
		return true
	}
	return false
}

// rankHands orders hands so the preferred handedness comes first, then by
// detection score. An empty preference ranks by score alone.
func rankHands(hands []HandLandmarks, prefer string) {
	sort.SliceStable(hands, func(i, j int) bool {
		pi := prefer != "" && strings.EqualFold(hands[i].Handedness, prefer)
		pj := prefer != "" && strings.EqualFold(hands[j].Handedness, prefer)
		if pi != pj {
			return pi
		}
		return hands[i].Score > hands[j].Score
	})
}
