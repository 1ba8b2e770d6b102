package detector

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestPoint3D_IsFinite(t *testing.T) {
	tests := []struct {
		name string
		p    Point3D
		want bool
	}{
		{"zero", Point3D{}, true},
		{"regular", Point3D{X: 1.5, Y: -2, Z: 0.01}, true},
		{"nan x", Point3D{X: math.NaN()}, false},
		{"inf y", Point3D{Y: math.Inf(1)}, false},
		{"neg inf z", Point3D{Z: math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.IsFinite(); got != tt.want {
				t.Errorf("IsFinite() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	t.Run("empty input yields zero box", func(t *testing.T) {
		if got := Bounds(nil); got != (BoundingBox{}) {
			t.Errorf("expected zero box, got %+v", got)
		}
	})

	t.Run("encloses all points", func(t *testing.T) {
		points := []Point3D{
			{X: 10, Y: 50},
			{X: 40, Y: 20},
			{X: 25, Y: 80},
		}

		got := Bounds(points)
		want := BoundingBox{X: 10, Y: 20, Width: 30, Height: 60}
		if got != want {
			t.Errorf("Bounds() = %+v, want %+v", got, want)
		}
	})

	t.Run("hand bounding box matches slice bounds", func(t *testing.T) {
		hand := OpenPalmLandmarks()
		if hand.BoundingBox() != Bounds(hand.Slice()) {
			t.Error("BoundingBox() disagrees with Bounds(Slice())")
		}
	})
}

func TestPointsFromTuples(t *testing.T) {
	t.Run("accepts 2D and 3D tuples", func(t *testing.T) {
		points, err := PointsFromTuples([][]float64{{1, 2}, {3, 4, 5}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(points) != 2 {
			t.Fatalf("expected 2 points, got %d", len(points))
		}
		if points[0] != (Point3D{X: 1, Y: 2}) {
			t.Errorf("unexpected first point %+v", points[0])
		}
		if points[1] != (Point3D{X: 3, Y: 4, Z: 5}) {
			t.Errorf("unexpected second point %+v", points[1])
		}
	})

	t.Run("rejects short tuples", func(t *testing.T) {
		_, err := PointsFromTuples([][]float64{{1, 2}, {3}})
		if !errors.Is(err, ErrMalformedPoint) {
			t.Errorf("expected ErrMalformedPoint, got %v", err)
		}
	})

	t.Run("rejects long tuples", func(t *testing.T) {
		_, err := PointsFromTuples([][]float64{{1, 2, 3}, {4, 5, 6, 7}})
		if !errors.Is(err, ErrMalformedPoint) {
			t.Errorf("expected ErrMalformedPoint, got %v", err)
		}
	})
}

func TestPresetHands_Slice(t *testing.T) {
	// Presets are values; Slice and BoundingBox work on them directly.
	points := FistLandmarks().Slice()
	if len(points) != NumLandmarks {
		t.Fatalf("Slice() length = %d, want %d", len(points), NumLandmarks)
	}
	if points[Wrist] != FistLandmarks().Points[Wrist] {
		t.Errorf("Slice()[Wrist] = %+v, want %+v", points[Wrist], FistLandmarks().Points[Wrist])
	}
	if box := OpenPalmLandmarks().BoundingBox(); box.Width <= 0 || box.Height <= 0 {
		t.Errorf("BoundingBox() of an open palm = %+v, want a non-empty box", box)
	}
}

func TestDecodeHands(t *testing.T) {
	t.Run("scales complete hands to pixels", func(t *testing.T) {
		full := `{"x":0.5,"y":0.25,"z":-0.1}`
		points := full
		for i := 1; i < NumLandmarks; i++ {
			points += "," + full
		}
		line := `{"hands":[{"points":[` + points + `],"handedness":"Left","score":0.9},{"points":[` + full + `]}]}`

		hands, err := decodeHands([]byte(line), 640, 480)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 complete hand, got %d", len(hands))
		}
		if hands[0].Handedness != "Left" {
			t.Errorf("expected handedness Left, got %s", hands[0].Handedness)
		}
		want := Point3D{X: 320, Y: 120, Z: -64}
		if got := hands[0].Points[PinkyTip]; math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 || math.Abs(got.Z-want.Z) > 1e-9 {
			t.Errorf("pinky tip = %+v, want %+v", got, want)
		}
	})

	t.Run("surfaces service errors", func(t *testing.T) {
		_, err := decodeHands([]byte(`{"hands":[],"error":"model not loaded"}`), 640, 480)
		if err == nil {
			t.Fatal("expected error from service error field")
		}
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		if _, err := decodeHands([]byte(`not json`), 640, 480); err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestRankHands(t *testing.T) {
	hands := func() []HandLandmarks {
		return []HandLandmarks{
			{Handedness: "Left", Score: 0.7},
			{Handedness: "Right", Score: 0.95},
			{Handedness: "Left", Score: 0.8},
		}
	}

	tests := []struct {
		prefer string
		want   []float64
	}{
		{"", []float64{0.95, 0.8, 0.7}},
		{"left", []float64{0.8, 0.7, 0.95}},
		{"RIGHT", []float64{0.95, 0.8, 0.7}},
	}
	for _, tt := range tests {
		t.Run("prefer "+tt.prefer, func(t *testing.T) {
			got := hands()
			rankHands(got, tt.prefer)
			for i, h := range got {
				if h.Score != tt.want[i] {
					t.Fatalf("order = %+v, want scores %v", got, tt.want)
				}
			}
		})
	}
}

func TestNewMediaPipeDetector_Config(t *testing.T) {
	t.Run("rejects unknown backend", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Backend = "tpu"
		if _, err := NewMediaPipeDetector(cfg, nil); err == nil {
			t.Fatal("expected error for unknown backend")
		}
	})

	t.Run("rejects unknown hand", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Hand = "both"
		if _, err := NewMediaPipeDetector(cfg, nil); err == nil {
			t.Fatal("expected error for unknown hand")
		}
	})

	t.Run("missing explicit script fails", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ScriptPath = t.TempDir() + "/missing.py"
		if _, err := NewMediaPipeDetector(cfg, nil); err == nil {
			t.Fatal("expected error for missing script")
		}
	})

	t.Run("passes backend to the service", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Backend = BackendGPU
		d := &MediaPipeDetector{config: cfg, scriptPath: "svc.py"}

		args := d.args()
		found := false
		for i := 0; i+1 < len(args); i++ {
			if args[i] == "--backend" && args[i+1] == "gpu" {
				found = true
			}
		}
		if !found {
			t.Errorf("expected --backend gpu in %v", args)
		}
	})
}

func TestMediaPipeDetector_IdleExpired(t *testing.T) {
	t.Run("stale timer leaves the service running", func(t *testing.T) {
		svc := &service{}
		live := time.NewTimer(time.Hour)
		defer live.Stop()
		stale := time.NewTimer(time.Hour)
		stale.Stop()

		d := &MediaPipeDetector{svc: svc, idleTimer: live}
		d.idleExpired(stale)

		if d.svc != svc {
			t.Error("stale timer stopped the service")
		}
		if d.idleTimer != live {
			t.Error("stale timer replaced the live timer")
		}
	})

	t.Run("live timer clears itself", func(t *testing.T) {
		live := time.NewTimer(time.Hour)
		d := &MediaPipeDetector{idleTimer: live}
		d.idleExpired(live)

		if d.idleTimer != nil {
			t.Error("expected idle timer to be cleared")
		}
	})

	t.Run("reset replaces the timer", func(t *testing.T) {
		d := &MediaPipeDetector{}
		d.resetIdleTimer()
		first := d.idleTimer
		d.resetIdleTimer()
		defer d.idleTimer.Stop()

		if first == nil || d.idleTimer == first {
			t.Fatal("expected a fresh timer on reset")
		}
		d.idleExpired(first)
		if d.idleTimer == nil {
			t.Error("old timer cleared the new one")
		}
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands and counts calls", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{FistLandmarks(), OpenPalmLandmarks()})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestPresetHands(t *testing.T) {
	extended := func(h HandLandmarks, base int) bool {
		return h.Points[base+3].Y < h.Points[base].Y
	}
	fingers := []int{IndexMCP, MiddleMCP, RingMCP, PinkyMCP}

	t.Run("fist has no raised finger", func(t *testing.T) {
		h := FistLandmarks()
		for _, f := range fingers {
			if extended(h, f) {
				t.Errorf("finger at %d should be curled", f)
			}
		}
	})

	t.Run("open palm raises every finger", func(t *testing.T) {
		h := OpenPalmLandmarks()
		for _, f := range fingers {
			if !extended(h, f) {
				t.Errorf("finger at %d should be raised", f)
			}
		}
	})

	t.Run("pointing raises index only", func(t *testing.T) {
		h := PointingLandmarks()
		if !extended(h, IndexMCP) {
			t.Error("index should be raised")
		}
		for _, f := range fingers[1:] {
			if extended(h, f) {
				t.Errorf("finger at %d should be curled", f)
			}
		}
	})
}
