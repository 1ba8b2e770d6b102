// Package app wires the signbridge pipeline: camera frames or browser
// landmarks in, classified letters out to the transcript, store, plugins
// and every registered sink.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/signbridge/internal/asl"
	"github.com/ayusman/signbridge/internal/capture"
	"github.com/ayusman/signbridge/internal/config"
	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/event"
	"github.com/ayusman/signbridge/internal/observe"
	"github.com/ayusman/signbridge/internal/plugin"
	"github.com/ayusman/signbridge/internal/store"
)

// DefaultInterval is the prediction tick when none is configured.
const DefaultInterval = time.Second

// ErrDetectionDisabled is returned by Submit while detection is switched off.
var ErrDetectionDisabled = errors.New("detection is disabled")

// Config holds configuration options for the application.
type Config struct {
	Store         *store.Store
	Camera        config.CameraConfig
	Detector      config.DetectorConfig
	Pipeline      config.PipelineConfig
	PluginDir     string
	PluginTimeout time.Duration
	Metrics       *observe.Metrics
	Log           *slog.Logger

	// Intn picks practice targets. Nil uses math/rand.
	Intn func(n int) int
}

// App is the main application that orchestrates detection, classification
// and fan-out.
type App struct {
	config     Config
	log        *slog.Logger
	metrics    *observe.Metrics
	store      *store.Store
	camera     capture.Camera
	motion     *capture.MotionDetector
	gate       *capture.Gate
	frames     *capture.FrameBuffer
	detector   detector.Detector
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor
	practice   *asl.Practice
	interval   time.Duration

	mu      sync.RWMutex
	enabled bool
	cancel  context.CancelFunc
	done    chan struct{}
	sinks   []Sink

	// sessMu guards the live transcripts and their store rows.
	sessMu       sync.Mutex
	transcript   asl.Transcript
	transcriptID string
	speech       string
	speechID     string
	last         *event.Event

	inFlight atomic.Bool
	wg       sync.WaitGroup
}

// New creates a new App instance with the given configuration.
func New(cfg Config) *App {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.Discard()
	}
	interval := cfg.Pipeline.Interval()
	if interval <= 0 {
		interval = DefaultInterval
	}

	motionThreshold := cfg.Camera.MotionThreshold
	if motionThreshold <= 0 {
		motionThreshold = 1.0 // 1% pixel change
	}

	a := &App{
		config:  cfg,
		log:     log,
		metrics: metrics,
		store:   cfg.Store,
		motion:  capture.NewMotionDetector(motionThreshold),
		gate: capture.NewGate(
			cfg.Camera.IdleFPS,
			cfg.Camera.ActiveFPS,
			time.Duration(cfg.Camera.IdleTimeoutMS)*time.Millisecond,
		),
		frames:     capture.NewFrameBuffer(),
		pluginMgr:  plugin.NewManager(cfg.PluginDir, log),
		pluginExec: plugin.NewExecutor(cfg.PluginTimeout),
		practice:   asl.NewPractice(cfg.Intn),
		interval:   interval,
		enabled:    true,
	}

	if cfg.Camera.Enabled {
		a.camera = capture.NewCamera(capture.Config{
			Device: cfg.Camera.Device,
			Source: cfg.Camera.Source,
			Mirror: cfg.Camera.Mirror,
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			FPS:    a.gate.FPS(),
		})

		// Try MediaPipe first, fall back to mock detector
		if mp, err := detector.NewMediaPipeDetector(detectorConfig(cfg.Detector), log); err == nil {
			a.detector = mp
			log.Info("using MediaPipe hand detection", slog.String("backend", cfg.Detector.Backend))
		} else {
			log.Warn("MediaPipe not available, using mock detector", slog.String("error", err.Error()))
			a.detector = detector.NewMockDetector()
		}
	}

	if a.store != nil {
		a.enabled = a.store.Settings().GetBool(store.SettingDetectionEnabled, true)
		a.restoreSession()
	}

	return a
}

func detectorConfig(c config.DetectorConfig) detector.Config {
	d := detector.DefaultConfig()
	if c.Backend != "" {
		d.Backend = detector.Backend(c.Backend)
	}
	if c.MaxHands > 0 {
		d.MaxHands = c.MaxHands
	}
	if c.MinConfidence > 0 {
		d.MinConfidence = c.MinConfidence
	}
	if c.MinTrackingConf > 0 {
		d.MinTrackingConf = c.MinTrackingConf
	}
	d.ScriptPath = c.ScriptPath
	d.Python = c.Python
	d.Hand = c.Hand
	return d
}

// SetEnabled switches detection on or off and remembers the choice.
func (a *App) SetEnabled(ctx context.Context, enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if !changed {
		return
	}
	if a.store != nil {
		if err := a.store.Settings().SetBool(store.SettingDetectionEnabled, enabled); err != nil {
			a.log.Warn("persist detection toggle", slog.String("error", err.Error()))
		}
	}
	if !enabled {
		a.gate.Reset()
		a.motion.Reset()
	}

	status := event.StatusDisabled
	if enabled {
		status = event.StatusEnabled
	}
	a.log.Info("detection toggled", slog.Bool("enabled", enabled))
	a.publish(ctx, event.Event{Kind: event.KindStatus, Time: time.Now(), Status: status})
}

// IsEnabled returns whether detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the frame source. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start begins the camera pipeline. Without a camera it only logs; browser
// landmarks still flow through Submit.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.cancel != nil {
		return nil
	}
	if a.camera == nil {
		a.log.Info("camera disabled, waiting for browser landmarks")
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.gate.FPS())

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.runPipeline(ctx, a.done)

	a.log.Info("detection pipeline started",
		slog.Duration("interval", a.interval),
		slog.Int("fps", a.gate.FPS()),
	)
	return nil
}

// Stop halts the camera pipeline, waits for in-flight work and releases
// resources. It is safe to call more than once.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	a.wg.Wait()

	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			a.log.Warn("closing camera", slog.String("error", err.Error()))
		}
	}
	a.motion.Close()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			a.log.Warn("closing detector", slog.String("error", err.Error()))
		}
	}

	if cancel != nil {
		a.log.Info("detection pipeline stopped")
	}
}

// Ready reports whether the app can serve predictions.
func (a *App) Ready(ctx context.Context) error {
	if a.store != nil {
		if err := a.store.Ping(ctx); err != nil {
			return err
		}
	}
	if a.camera != nil && a.Detector() == nil {
		return errors.New("no hand detector")
	}
	return nil
}

// Camera returns the camera instance, nil when the camera is disabled.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Frames returns the latest-frame buffer fed by the pipeline.
func (a *App) Frames() *capture.FrameBuffer {
	return a.frames
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Store returns the backing store, which may be nil.
func (a *App) Store() *store.Store {
	return a.store
}
