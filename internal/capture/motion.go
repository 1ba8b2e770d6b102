package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion detection constants.
const (
	// BlurSize is the Gaussian kernel applied before differencing.
	BlurSize = 21
	// DiffThreshold is the grey-level change that marks a pixel as changed.
	DiffThreshold = 25
	// WorkWidth is the width frames are shrunk to before comparison.
	WorkWidth = 320
)

// Motion is the result of comparing one frame with the previous one.
type Motion struct {
	// Moving is set when Percent exceeds the detector threshold.
	Moving bool
	// Percent is the share of changed pixels, 0-100.
	Percent float64
	// Region bounds the changed pixels in source frame coordinates. It is
	// empty when nothing changed.
	Region image.Rectangle
}

// MotionDetector decides whether a hand is moving in front of the camera by
// differencing consecutive blurred greyscale frames.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	hasPrev   bool
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage of
// pixels that must change to count as motion; 1.0 means 1%.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect compares frame with the previous one. The first frame after
// construction or Reset only sets the baseline and reports no motion.
func (m *MotionDetector) Detect(frame *gocv.Mat) Motion {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return Motion{}
	}

	scale := 1.0
	if frame.Cols() > WorkWidth {
		scale = float64(WorkWidth) / float64(frame.Cols())
	}
	cur := prepare(frame, scale)

	if !m.hasPrev || m.prev.Rows() != cur.Rows() || m.prev.Cols() != cur.Cols() {
		m.prev.Close()
		m.prev = cur
		m.hasPrev = true
		return Motion{}
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(cur, m.prev, &diff)
	gocv.Threshold(diff, &diff, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := gocv.CountNonZero(diff)
	percent := float64(changed) / float64(diff.Rows()*diff.Cols()) * 100

	var region image.Rectangle
	if changed > 0 {
		region = changedRegion(diff, scale)
	}

	m.prev.Close()
	m.prev = cur

	return Motion{
		Moving:  percent > m.threshold,
		Percent: percent,
		Region:  region,
	}
}

// prepare shrinks, greys and blurs frame. The caller owns the result.
func prepare(frame *gocv.Mat, scale float64) gocv.Mat {
	out := gocv.NewMat()
	if scale < 1 {
		gocv.Resize(*frame, &out, image.Point{}, scale, scale, gocv.InterpolationArea)
	} else {
		frame.CopyTo(&out)
	}
	if out.Channels() > 1 {
		gocv.CvtColor(out, &out, gocv.ColorBGRToGray)
	}
	gocv.GaussianBlur(out, &out, image.Point{X: BlurSize, Y: BlurSize}, 0, 0, gocv.BorderDefault)
	return out
}

// changedRegion returns the union of the outer contours of mask, scaled back
// to source coordinates.
func changedRegion(mask gocv.Mat, scale float64) image.Rectangle {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var r image.Rectangle
	for i := 0; i < contours.Size(); i++ {
		r = r.Union(gocv.BoundingRect(contours.At(i)))
	}
	if scale == 1 || r.Empty() {
		return r
	}
	return image.Rect(
		int(float64(r.Min.X)/scale),
		int(float64(r.Min.Y)/scale),
		int(float64(r.Max.X)/scale),
		int(float64(r.Max.Y)/scale),
	)
}

// Reset drops the baseline so the next frame starts a new comparison.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	m.prev.Close()
	m.prev = gocv.NewMat()
	m.hasPrev = false
}

// Threshold returns the percentage of changed pixels that counts as motion.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// SetThreshold sets the motion threshold in percent. Values outside (0, 100]
// are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 || threshold > 100 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}
