package app

import (
	"context"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/signbridge/internal/asl"
	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/event"
)

// runPipeline is the camera loop. Every tick it reads a frame, shares it
// with stream clients and feeds the motion gate, which switches the frame
// rate between idle and active. While active, a detection runs at most once
// per interval and never overlaps the previous one.
func (a *App) runPipeline(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.gate.Interval())
	defer ticker.Stop()

	var lastDetect time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Skip processing if detection is disabled
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if err != nil {
				a.log.Debug("read frame", slog.String("error", err.Error()))
				continue
			}

			if err := a.frames.Store(frame); err != nil {
				a.log.Debug("encode frame", slog.String("error", err.Error()))
			}

			motion := a.motion.Detect(frame)
			active, changed := a.gate.Observe(motion.Moving)
			if changed {
				a.camera.SetFPS(a.gate.FPS())
				ticker.Reset(a.gate.Interval())
				a.log.Debug("pipeline mode changed",
					slog.Bool("active", active),
					slog.Float64("change_pct", motion.Percent),
					slog.String("region", motion.Region.String()),
					slog.Int("fps", a.gate.FPS()),
				)
			}

			if !active || time.Since(lastDetect) < a.interval {
				frame.Close()
				continue
			}
			if !a.inFlight.CompareAndSwap(false, true) {
				frame.Close()
				continue
			}
			lastDetect = time.Now()

			a.wg.Add(1)
			go func(frame *gocv.Mat) {
				defer a.wg.Done()
				defer a.inFlight.Store(false)
				defer frame.Close()
				a.detectFrame(ctx, frame)
			}(frame)
		}
	}
}

// detectFrame runs the hand detector on one frame and classifies the first
// hand found.
func (a *App) detectFrame(ctx context.Context, frame *gocv.Mat) {
	d := a.Detector()
	if d == nil {
		return
	}

	start := time.Now()
	hands, err := d.Detect(frame)
	if err != nil {
		a.metrics.DetectorErrors.Add(ctx, 1)
		a.log.Warn("hand detection failed", slog.String("error", err.Error()))
		a.publish(ctx, event.Event{
			Kind:    event.KindStatus,
			Time:    time.Now(),
			Source:  event.SourceCamera,
			Status:  event.StatusDetectorError,
			Message: err.Error(),
		})
		return
	}

	if len(hands) == 0 {
		a.NoHand(ctx, event.SourceCamera)
		return
	}

	if _, err := a.process(ctx, event.SourceCamera, hands[0].Slice(), start); err != nil {
		a.log.Warn("classify camera hand", slog.String("error", err.Error()))
	}
}

// Submit classifies landmarks produced outside the camera pipeline, for
// example by a detector running in the browser, and accepts the result.
func (a *App) Submit(ctx context.Context, source string, points []detector.Point3D) (event.Event, error) {
	if !a.IsEnabled() {
		return event.Event{}, ErrDetectionDisabled
	}
	return a.process(ctx, source, points, time.Now())
}

// NoHand records a tick without a visible hand. The last prediction is
// cleared and clients are told why.
func (a *App) NoHand(ctx context.Context, source string) {
	a.metrics.NoHand.Add(ctx, 1)

	a.sessMu.Lock()
	a.last = nil
	a.sessMu.Unlock()

	a.publish(ctx, event.Event{
		Kind:    event.KindStatus,
		Time:    time.Now(),
		Source:  source,
		Status:  event.StatusNoHand,
		Message: event.NoHandMessage,
	})
}

func (a *App) process(ctx context.Context, source string, points []detector.Point3D, start time.Time) (event.Event, error) {
	f, err := asl.ExtractFeatures(points)
	if err != nil {
		return event.Event{}, err
	}
	res := asl.ClassifyFeatures(f)
	box := detector.Bounds(points)

	ev := event.Event{
		Kind:       event.KindLetter,
		Time:       time.Now(),
		Source:     source,
		Letter:     res.Letter,
		Confidence: res.Confidence,
		Candidates: asl.Candidates(f),
		Box:        &box,
	}
	a.metrics.RecordClassification(ctx, res.Letter, source, time.Since(start))

	return a.Accept(ctx, ev), nil
}
