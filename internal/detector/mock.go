package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// The preset hands below are in pixel space (640x480 frame, y down).
// Fingers are laid out left to right as pinky, ring, middle, index, thumb.

// FistLandmarks returns a closed fist: no finger tip above its base and no
// middle joint above its tip.
func FistLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 320, Y: 400}

	h.Points[ThumbCMC] = Point3D{X: 360, Y: 380}
	h.Points[ThumbMCP] = Point3D{X: 380, Y: 350}
	h.Points[ThumbIP] = Point3D{X: 385, Y: 330}
	h.Points[ThumbTip] = Point3D{X: 375, Y: 315}

	// Curled fingers: base 300, mid 320, tip 310 (tip below base, mid below tip).
	curled := func(base int, x float64) {
		h.Points[base] = Point3D{X: x, Y: 300}
		h.Points[base+1] = Point3D{X: x, Y: 330}
		h.Points[base+2] = Point3D{X: x, Y: 320}
		h.Points[base+3] = Point3D{X: x, Y: 310}
	}
	curled(IndexMCP, 350)
	curled(MiddleMCP, 325)
	curled(RingMCP, 300)
	curled(PinkyMCP, 275)

	return h
}

// OpenPalmLandmarks returns a flat hand with all four fingers pointing up.
func OpenPalmLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 320, Y: 400}

	h.Points[ThumbCMC] = Point3D{X: 355, Y: 380}
	h.Points[ThumbMCP] = Point3D{X: 385, Y: 360}
	h.Points[ThumbIP] = Point3D{X: 405, Y: 340}
	h.Points[ThumbTip] = Point3D{X: 420, Y: 325}

	straight := func(base int, x, baseY, length float64) {
		step := length / 3
		for i := 0; i < 4; i++ {
			h.Points[base+i] = Point3D{X: x, Y: baseY - step*float64(i)}
		}
	}
	straight(IndexMCP, 360, 300, 120)
	straight(MiddleMCP, 330, 295, 135)
	straight(RingMCP, 300, 300, 120)
	straight(PinkyMCP, 272, 310, 95)

	return h
}

// PointingLandmarks returns a fist with only the index finger raised.
func PointingLandmarks() HandLandmarks {
	h := FistLandmarks()
	h.Points[IndexMCP] = Point3D{X: 350, Y: 300}
	h.Points[IndexPIP] = Point3D{X: 350, Y: 260}
	h.Points[IndexDIP] = Point3D{X: 350, Y: 225}
	h.Points[IndexTip] = Point3D{X: 350, Y: 190}
	return h
}
