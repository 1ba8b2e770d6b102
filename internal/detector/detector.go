package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Backend selects the compute backend the landmark model runs on.
type Backend string

const (
	BackendCPU Backend = "cpu"
	BackendGPU Backend = "gpu"
)

// IsValid reports whether b is a recognised backend.
func (b Backend) IsValid() bool {
	return b == BackendCPU || b == BackendGPU
}

// Config holds configuration options for hand detection.
type Config struct {
	// Backend is passed to the model process; it is never process-global.
	Backend Backend

	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides discovery of the MediaPipe service script.
	ScriptPath string

	// Python overrides discovery of the interpreter that runs the script.
	Python string

	// Hand is the handedness to classify first when several hands are in
	// view: "left", "right" or empty for the highest score.
	Hand string
}

// DefaultConfig returns a Config with sensible default values.
// Only the first hand is ever classified, so one is enough.
func DefaultConfig() Config {
	return Config{
		Backend:         BackendCPU,
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
