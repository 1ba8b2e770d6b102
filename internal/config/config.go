// Package config loads signbridge settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel is a slog level name.
type LogLevel string

// IsValid reports whether l is one of debug, info, warn or error.
func (l LogLevel) IsValid() bool {
	switch l {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// Slog converts l to a slog.Level, defaulting to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type ServerConfig struct {
	Addr      string   `yaml:"addr"`
	StaticDir string   `yaml:"static_dir"`
	LogLevel  LogLevel `yaml:"log_level"`
	LogFormat string   `yaml:"log_format"` // text, json
}

type CameraConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Device          int     `yaml:"device"`
	Source          string  `yaml:"source"` // video file or stream URL; overrides device
	Mirror          bool    `yaml:"mirror"`
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	IdleFPS         int     `yaml:"idle_fps"`
	ActiveFPS       int     `yaml:"active_fps"`
	MotionThreshold float64 `yaml:"motion_threshold"`
	IdleTimeoutMS   int     `yaml:"idle_timeout_ms"`
}

type DetectorConfig struct {
	Backend         string  `yaml:"backend"` // cpu, gpu
	MaxHands        int     `yaml:"max_hands"`
	MinConfidence   float64 `yaml:"min_confidence"`
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`
	ScriptPath      string  `yaml:"script_path"`
	Python          string  `yaml:"python"`
	Hand            string  `yaml:"hand"` // left, right or empty
}

type PipelineConfig struct {
	IntervalMS  int  `yaml:"interval_ms"`
	SkipUnknown bool `yaml:"skip_unknown"`
}

// Interval is the prediction tick.
func (p PipelineConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMS) * time.Millisecond
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type PluginsConfig struct {
	Dir       string `yaml:"dir"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// Timeout is the per-invocation plugin deadline.
func (p PluginsConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

type BusConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Embedded         bool     `yaml:"embedded"`
	Port             int      `yaml:"port"`
	Servers          []string `yaml:"servers"`
	SubjectPrefix    string   `yaml:"subject_prefix"`
	ConnectTimeoutMS int      `yaml:"connect_timeout_ms"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Store    StoreConfig    `yaml:"store"`
	Plugins  PluginsConfig  `yaml:"plugins"`
	Bus      BusConfig      `yaml:"bus"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DataDir is ~/.signbridge, falling back to ./.signbridge without a home.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".signbridge"
	}
	return filepath.Join(home, ".signbridge")
}

func Default() Config {
	dataDir := DataDir()
	return Config{
		Server: ServerConfig{
			Addr:      "127.0.0.1:8080",
			StaticDir: "web",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Camera: CameraConfig{
			Enabled:         true,
			Device:          0,
			Mirror:          true,
			Width:           640,
			Height:          480,
			IdleFPS:         5,
			ActiveFPS:       15,
			MotionThreshold: 1.0,
			IdleTimeoutMS:   2000,
		},
		Detector: DetectorConfig{
			Backend:         "cpu",
			MaxHands:        1,
			MinConfidence:   0.5,
			MinTrackingConf: 0.5,
		},
		Pipeline: PipelineConfig{
			IntervalMS: 1000,
		},
		Store: StoreConfig{
			Path: filepath.Join(dataDir, "signbridge.db"),
		},
		Plugins: PluginsConfig{
			Dir:       filepath.Join(dataDir, "plugins"),
			TimeoutMS: 5000,
		},
		Bus: BusConfig{
			Enabled:          false,
			Embedded:         false,
			Port:             4222,
			Servers:          []string{"nats://localhost:4222"},
			SubjectPrefix:    "signbridge",
			ConnectTimeoutMS: 2000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies SIGNBRIDGE_*
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()
		if err := decode(f, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates it.
// Environment overrides are not applied.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()
	if err := decode(r, &cfg); err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Server.Addr, "SIGNBRIDGE_SERVER_ADDR")
	overrideString(&cfg.Server.StaticDir, "SIGNBRIDGE_SERVER_STATIC_DIR")
	overrideString((*string)(&cfg.Server.LogLevel), "SIGNBRIDGE_SERVER_LOG_LEVEL")
	overrideString(&cfg.Server.LogFormat, "SIGNBRIDGE_SERVER_LOG_FORMAT")
	overrideBool(&cfg.Camera.Enabled, "SIGNBRIDGE_CAMERA_ENABLED")
	overrideInt(&cfg.Camera.Device, "SIGNBRIDGE_CAMERA_DEVICE")
	overrideString(&cfg.Camera.Source, "SIGNBRIDGE_CAMERA_SOURCE")
	overrideBool(&cfg.Camera.Mirror, "SIGNBRIDGE_CAMERA_MIRROR")
	overrideInt(&cfg.Camera.IdleFPS, "SIGNBRIDGE_CAMERA_IDLE_FPS")
	overrideInt(&cfg.Camera.ActiveFPS, "SIGNBRIDGE_CAMERA_ACTIVE_FPS")
	overrideString(&cfg.Detector.Backend, "SIGNBRIDGE_DETECTOR_BACKEND")
	overrideString(&cfg.Detector.ScriptPath, "SIGNBRIDGE_DETECTOR_SCRIPT_PATH")
	overrideString(&cfg.Detector.Python, "SIGNBRIDGE_DETECTOR_PYTHON")
	overrideString(&cfg.Detector.Hand, "SIGNBRIDGE_DETECTOR_HAND")
	overrideInt(&cfg.Pipeline.IntervalMS, "SIGNBRIDGE_PIPELINE_INTERVAL_MS")
	overrideBool(&cfg.Pipeline.SkipUnknown, "SIGNBRIDGE_PIPELINE_SKIP_UNKNOWN")
	overrideString(&cfg.Store.Path, "SIGNBRIDGE_STORE_PATH")
	overrideString(&cfg.Plugins.Dir, "SIGNBRIDGE_PLUGINS_DIR")
	overrideInt(&cfg.Plugins.TimeoutMS, "SIGNBRIDGE_PLUGINS_TIMEOUT_MS")
	overrideBool(&cfg.Bus.Enabled, "SIGNBRIDGE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "SIGNBRIDGE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "SIGNBRIDGE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "SIGNBRIDGE_BUS_SERVERS")
	overrideString(&cfg.Bus.SubjectPrefix, "SIGNBRIDGE_BUS_SUBJECT_PREFIX")
	overrideInt(&cfg.Bus.ConnectTimeoutMS, "SIGNBRIDGE_BUS_CONNECT_TIMEOUT_MS")
	overrideBool(&cfg.Metrics.Enabled, "SIGNBRIDGE_METRICS_ENABLED")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

// Validate checks cfg and returns every failure joined into one error.
func Validate(cfg Config) error {
	var errs []error

	if cfg.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	switch cfg.Server.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("server.log_format %q is invalid; valid values: text, json", cfg.Server.LogFormat))
	}

	if cfg.Camera.Enabled {
		if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
			errs = append(errs, errors.New("camera.width and camera.height must be positive"))
		}
		if cfg.Camera.IdleFPS <= 0 || cfg.Camera.ActiveFPS <= 0 {
			errs = append(errs, errors.New("camera.idle_fps and camera.active_fps must be positive"))
		}
		if cfg.Camera.MotionThreshold < 0 || cfg.Camera.MotionThreshold > 100 {
			errs = append(errs, fmt.Errorf("camera.motion_threshold %.2f is out of range [0, 100]", cfg.Camera.MotionThreshold))
		}
	}

	switch cfg.Detector.Backend {
	case "cpu", "gpu":
	default:
		errs = append(errs, fmt.Errorf("detector.backend %q is invalid; valid values: cpu, gpu", cfg.Detector.Backend))
	}
	if cfg.Detector.MaxHands < 1 {
		errs = append(errs, errors.New("detector.max_hands must be >= 1"))
	}
	if cfg.Detector.MinConfidence < 0 || cfg.Detector.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("detector.min_confidence %.2f is out of range [0, 1]", cfg.Detector.MinConfidence))
	}
	if cfg.Detector.MinTrackingConf < 0 || cfg.Detector.MinTrackingConf > 1 {
		errs = append(errs, fmt.Errorf("detector.min_tracking_confidence %.2f is out of range [0, 1]", cfg.Detector.MinTrackingConf))
	}
	switch strings.ToLower(cfg.Detector.Hand) {
	case "", "left", "right":
	default:
		errs = append(errs, fmt.Errorf("detector.hand %q is invalid; valid values: left, right or empty", cfg.Detector.Hand))
	}

	if cfg.Pipeline.IntervalMS <= 0 {
		errs = append(errs, errors.New("pipeline.interval_ms must be positive"))
	}
	if cfg.Store.Path == "" {
		errs = append(errs, errors.New("store.path must not be empty"))
	}
	if cfg.Plugins.TimeoutMS <= 0 {
		errs = append(errs, errors.New("plugins.timeout_ms must be positive"))
	}

	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				errs = append(errs, errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled"))
			}
		} else if len(cfg.Bus.Servers) == 0 {
			errs = append(errs, errors.New("bus.servers must not be empty when the bus is enabled"))
		}
		if cfg.Bus.SubjectPrefix == "" {
			errs = append(errs, errors.New("bus.subject_prefix must not be empty when the bus is enabled"))
		}
		if cfg.Bus.ConnectTimeoutMS <= 0 {
			errs = append(errs, errors.New("bus.connect_timeout_ms must be positive"))
		}
	}

	return errors.Join(errs...)
}
