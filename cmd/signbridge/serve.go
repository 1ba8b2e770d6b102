package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/bus"
	"github.com/ayusman/signbridge/internal/config"
	"github.com/ayusman/signbridge/internal/observe"
	"github.com/ayusman/signbridge/internal/server"
	"github.com/ayusman/signbridge/internal/store"
	"github.com/ayusman/signbridge/internal/tray"
)

var (
	serveAddr     string
	serveTray     bool
	serveNoCamera bool
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recogniser, web UI and API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&serveTray, "tray", false, "show the system tray menu")
	cmd.Flags().BoolVar(&serveNoCamera, "no-camera", false, "accept browser landmarks only")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveNoCamera {
		cfg.Camera.Enabled = false
	}

	log := newLogger(cfg.Server, cmd.ErrOrStderr())
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observe.Discard()
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		met, shutdown, err := observe.InitProvider(ctx, version)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer shutdown(context.Background())
		metrics = met
		metricsHandler = observe.Handler()
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	log.Info("store opened", slog.String("path", st.Path()))

	a := app.New(app.Config{
		Store:         st,
		Camera:        cfg.Camera,
		Detector:      cfg.Detector,
		Pipeline:      cfg.Pipeline,
		PluginDir:     cfg.Plugins.Dir,
		PluginTimeout: cfg.Plugins.Timeout(),
		Metrics:       metrics,
		Log:           log,
	})
	if err := a.DiscoverPlugins(); err != nil {
		log.Warn("plugin discovery failed", slog.String("dir", cfg.Plugins.Dir), slog.String("error", err.Error()))
	}

	if cfg.Bus.Enabled {
		closeBus, err := connectBus(ctx, cfg.Bus, a, log)
		if err != nil {
			return err
		}
		defer closeBus()
	}

	srv := server.New(server.Config{
		App:            a,
		StaticDir:      findWebDir(cfg.Server.StaticDir),
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		Log:            log,
	})

	if err := a.Start(); err != nil {
		log.Warn("camera unavailable, accepting browser landmarks only", slog.String("error", err.Error()))
	}
	defer a.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Server.Addr)
	})

	if serveTray {
		t := tray.New(a.IsEnabled(), tray.Handlers{
			Toggle: func(enabled bool) { a.SetEnabled(gctx, enabled) },
			Phrase: func(key string) {
				if _, _, err := a.TriggerPhrase(gctx, key); err != nil {
					log.Warn("tray phrase failed", slog.String("phrase", key), slog.String("error", err.Error()))
				}
			},
			Clear: func() { a.ClearTranscript(gctx) },
			Open:  func() { openBrowser(uiURL(cfg.Server.Addr), log) },
			Quit:  stop,
		})
		a.AddSink(t)

		g.Go(func() error {
			<-gctx.Done()
			t.Quit()
			return nil
		})
		// The tray owns the main thread until it quits.
		t.Run()
		stop()
	}

	err = g.Wait()
	log.Info("signbridge stopped")
	return err
}

// connectBus dials NATS, starting an embedded server first when configured,
// and registers the publisher as an app sink.
func connectBus(ctx context.Context, cfg config.BusConfig, a *app.App, log *slog.Logger) (func(), error) {
	var embedded *bus.EmbeddedServer
	if cfg.Embedded {
		var err error
		embedded, err = bus.StartEmbedded("127.0.0.1", cfg.Port, log)
		if err != nil {
			return nil, err
		}
		cfg.Servers = []string{embedded.ClientURL()}
	}

	pub, err := bus.Connect(ctx, cfg, log)
	if err != nil {
		embedded.Shutdown()
		return nil, err
	}
	a.AddSink(pub)

	return func() {
		pub.Close()
		embedded.Shutdown()
	}, nil
}

// uiURL turns a listen address into a browsable URL.
func uiURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func openBrowser(url string, log *slog.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("open browser", slog.String("url", url), slog.String("error", err.Error()))
		return
	}
	go cmd.Wait()
}

// findWebDir returns configured when it exists, otherwise the first of
// "web", "../web", "../../web" and ~/.signbridge/web that does. Returns ""
// when none is found.
func findWebDir(configured string) string {
	candidates := []string{configured, "web", "../web", "../../web", filepath.Join(config.DataDir(), "web")}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
