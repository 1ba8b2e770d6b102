// Package capture provides camera capture, motion gating and frame sharing
// using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned when the device or stream yields no image.
	ErrNoFrame = errors.New("no frame captured")
)

// Config selects the capture source and its resolution. Zero values use the
// package defaults.
type Config struct {
	// Device is the camera index used when Source is empty.
	Device int
	// Source is a video file or stream URL played instead of a device.
	Source string
	// Mirror flips frames horizontally so the preview behaves like a mirror
	// and signs keep the handedness the signer sees.
	Mirror bool
	Width  int
	Height int
	FPS    int
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// cameraImpl captures from a device or a video source using GoCV.
type cameraImpl struct {
	cfg Config

	mu      sync.Mutex
	capture *gocv.VideoCapture
	fps     int
}

// NewCamera creates a Camera for cfg. It is not opened.
func NewCamera(cfg Config) Camera {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	return &cameraImpl{cfg: cfg, fps: cfg.FPS}
}

// String names the capture source for logs.
func (c *cameraImpl) String() string {
	if c.cfg.Source != "" {
		return c.cfg.Source
	}
	return fmt.Sprintf("device %d", c.cfg.Device)
}

// Open starts capturing. Device cameras are asked for the configured
// resolution and rate; file and stream sources keep their own.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	var (
		vc  *gocv.VideoCapture
		err error
	)
	if c.cfg.Source != "" {
		vc, err = gocv.OpenVideoCapture(c.cfg.Source)
	} else {
		vc, err = gocv.OpenVideoCapture(c.cfg.Device)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", c, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open %s: %w", c, ErrCameraNotOpen)
	}

	if c.cfg.Source == "" {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
		vc.Set(gocv.VideoCaptureFPS, float64(c.fps))
	}

	c.capture = vc
	return nil
}

// Close stops capturing and releases the device.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

// ReadFrame grabs one frame, mirrored when configured. The caller closes the
// returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("read %s: %w", c, ErrNoFrame)
	}
	if c.cfg.Mirror {
		gocv.Flip(mat, &mat, 1)
	}
	return &mat, nil
}

// SetFPS changes the capture rate. Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil && c.cfg.Source == "" {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current capture rate.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen reports whether the camera is capturing.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
