package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ayusman/signbridge/internal/asl"
	"github.com/ayusman/signbridge/internal/config"
	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/event"
	"github.com/ayusman/signbridge/internal/observe"
	"github.com/ayusman/signbridge/internal/phrase"
	"github.com/ayusman/signbridge/internal/plugin"
	"github.com/ayusman/signbridge/internal/store"
	"github.com/ayusman/signbridge/testdata"
)

// recorder is a Sink that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Publish(_ context.Context, ev event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) all() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

func (r *recorder) last(t *testing.T) event.Event {
	t.Helper()
	all := r.all()
	require.NotEmpty(t, all)
	return all[len(all)-1]
}

func openStore(t *testing.T, dir string) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(dir, "signbridge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestApp(t *testing.T, s *store.Store, mods ...func(*Config)) (*App, *recorder) {
	t.Helper()
	cfg := Config{
		Store:     s,
		PluginDir: t.TempDir(),
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Intn:      func(int) int { return 0 },
	}
	for _, mod := range mods {
		mod(&cfg)
	}
	a := New(cfg)
	t.Cleanup(a.Stop)

	rec := &recorder{}
	a.AddSink(rec)
	return a, rec
}

func pose(name string) []detector.Point3D {
	return testdata.MustPose(name).Points()
}

func TestApp_Submit(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	a, rec := newTestApp(t, s)

	ev, err := a.Submit(ctx, event.SourceBrowser, pose("fist"))
	require.NoError(t, err)

	assert.Equal(t, event.KindLetter, ev.Kind)
	assert.Equal(t, event.SourceBrowser, ev.Source)
	assert.Equal(t, "A", ev.Letter)
	assert.Equal(t, 87, ev.Confidence)
	assert.Equal(t, []asl.Result{{Letter: "A", Confidence: 87}, {Letter: "S", Confidence: 86}}, ev.Candidates)
	require.NotNil(t, ev.Box)
	assert.Equal(t, 275.0, ev.Box.X)
	require.NotNil(t, ev.Transcript)
	assert.Equal(t, asl.Transcript{LastLetter: "A", Text: "A"}, *ev.Transcript)
	assert.Nil(t, ev.Practice)

	// Holding the pose does not repeat the letter.
	_, err = a.Submit(ctx, event.SourceBrowser, pose("fist"))
	require.NoError(t, err)
	_, err = a.Submit(ctx, event.SourceBrowser, pose("open_palm"))
	require.NoError(t, err)

	assert.Equal(t, "AB", a.Transcript().Text)
	assert.Len(t, rec.all(), 3)

	last, ok := a.Last()
	require.True(t, ok)
	assert.Equal(t, "B", last.Letter)

	stored, err := s.Transcripts().Latest(store.ModalityASL)
	require.NoError(t, err)
	assert.Equal(t, "AB", stored.Text)
	assert.Equal(t, "B", stored.LastLetter)

	preds, err := s.Predictions().ListByTranscript(stored.ID)
	require.NoError(t, err)
	require.Len(t, preds, 2, "only letters that changed the transcript are logged")
	assert.Equal(t, "A", preds[0].Letter)
	assert.Equal(t, event.SourceBrowser, preds[0].Source)

	active, err := s.Settings().Get(store.SettingActiveTranscript)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, active)
}

func TestApp_Submit_Unknown(t *testing.T) {
	ctx := context.Background()

	t.Run("appended by default", func(t *testing.T) {
		a, _ := newTestApp(t, nil)
		_, err := a.Submit(ctx, event.SourceBrowser, pose("fist"))
		require.NoError(t, err)
		ev, err := a.Submit(ctx, event.SourceBrowser, pose("middle_only"))
		require.NoError(t, err)

		assert.Equal(t, asl.Unknown, ev.Letter)
		assert.Equal(t, asl.UnknownConfidence, ev.Confidence)
		assert.Empty(t, ev.Candidates)
		assert.Equal(t, "A?", a.Transcript().Text)
	})

	t.Run("skipped when configured", func(t *testing.T) {
		a, rec := newTestApp(t, nil, func(c *Config) {
			c.Pipeline = config.PipelineConfig{SkipUnknown: true}
		})
		_, err := a.Submit(ctx, event.SourceBrowser, pose("fist"))
		require.NoError(t, err)
		ev, err := a.Submit(ctx, event.SourceBrowser, pose("middle_only"))
		require.NoError(t, err)

		assert.Equal(t, asl.Unknown, ev.Letter)
		assert.Equal(t, "A", a.Transcript().Text)
		assert.Len(t, rec.all(), 2, "unknown results are still published")
	})
}

func TestApp_Submit_InvalidLandmarks(t *testing.T) {
	a, rec := newTestApp(t, nil)

	_, err := a.Submit(context.Background(), event.SourceAPI, pose("fist")[:5])
	require.ErrorIs(t, err, asl.ErrInvalidLandmarks)
	assert.Empty(t, rec.all())
	assert.Empty(t, a.Transcript().Text)
}

func TestApp_SetEnabled(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)
	a, rec := newTestApp(t, s)

	assert.True(t, a.IsEnabled())
	a.SetEnabled(ctx, false)
	a.SetEnabled(ctx, false)

	assert.False(t, a.IsEnabled())
	require.Len(t, rec.all(), 1, "repeating the same state publishes once")
	assert.Equal(t, event.StatusDisabled, rec.last(t).Status)

	_, err := a.Submit(ctx, event.SourceBrowser, pose("fist"))
	require.ErrorIs(t, err, ErrDetectionDisabled)

	restarted, _ := newTestApp(t, s)
	assert.False(t, restarted.IsEnabled(), "toggle survives restart")

	restarted.SetEnabled(ctx, true)
	assert.True(t, restarted.IsEnabled())
}

func TestApp_RestoresTranscript(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	first, _ := newTestApp(t, s)
	_, err := first.Submit(ctx, event.SourceBrowser, pose("pinky_up"))
	require.NoError(t, err)

	second, _ := newTestApp(t, s)
	assert.Equal(t, asl.Transcript{LastLetter: "I", Text: "I"}, second.Transcript())

	_, err = second.Submit(ctx, event.SourceBrowser, pose("three_up"))
	require.NoError(t, err)
	all, err := s.Transcripts().List(0)
	require.NoError(t, err)
	require.Len(t, all, 1, "restored session keeps writing the same row")
	assert.Equal(t, "IW", all[0].Text)

	second.ClearTranscript(ctx)
	third, _ := newTestApp(t, s)
	assert.Equal(t, asl.Transcript{}, third.Transcript())
}

func TestApp_ClearTranscript(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	a, rec := newTestApp(t, s)

	_, err := a.Submit(ctx, event.SourceBrowser, pose("fist"))
	require.NoError(t, err)

	tr := a.ClearTranscript(ctx)
	assert.Equal(t, asl.Transcript{}, tr)
	assert.Equal(t, event.KindTranscript, rec.last(t).Kind)

	// The same letter is accepted again after a clear and starts a new row.
	_, err = a.Submit(ctx, event.SourceBrowser, pose("fist"))
	require.NoError(t, err)
	assert.Equal(t, "A", a.Transcript().Text)

	all, err := s.Transcripts().List(0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestApp_NoHand(t *testing.T) {
	ctx := context.Background()
	a, rec := newTestApp(t, nil)

	_, err := a.Submit(ctx, event.SourceBrowser, pose("fist"))
	require.NoError(t, err)
	a.NoHand(ctx, event.SourceBrowser)

	_, ok := a.Last()
	assert.False(t, ok, "prediction is cleared when the hand leaves")

	ev := rec.last(t)
	assert.Equal(t, event.KindStatus, ev.Kind)
	assert.Equal(t, event.StatusNoHand, ev.Status)
	assert.Equal(t, event.NoHandMessage, ev.Message)
	assert.Equal(t, "A", a.Transcript().Text, "transcript is kept")
}

func TestApp_TriggerPhrase(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	a, rec := newTestApp(t, s)

	_, err := a.Submit(ctx, event.SourceBrowser, pose("open_palm"))
	require.NoError(t, err)

	p, tr, err := a.TriggerPhrase(ctx, "water")
	require.NoError(t, err)
	assert.Equal(t, "WATER", p.Key)
	assert.Equal(t, "B I need water", tr.Text)
	assert.Empty(t, tr.LastLetter)

	ev := rec.last(t)
	assert.Equal(t, event.KindTranscript, ev.Kind)
	assert.Equal(t, "I need water", ev.Message)

	stored, err := s.Transcripts().Latest(store.ModalityASL)
	require.NoError(t, err)
	assert.Equal(t, "B I need water", stored.Text)

	_, _, err = a.TriggerPhrase(ctx, "pizza")
	require.ErrorIs(t, err, phrase.ErrUnknownPhrase)
}

func TestApp_SetSpeech(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	a, rec := newTestApp(t, s)

	require.NoError(t, a.SetSpeech(ctx, "  hello there "))
	require.NoError(t, a.SetSpeech(ctx, "hello there friend"))

	assert.Equal(t, "hello there friend", a.Speech())
	ev := rec.last(t)
	assert.Equal(t, event.SourceSpeech, ev.Source)
	assert.Equal(t, "hello there friend", ev.Transcript.Text)

	stored, err := s.Transcripts().Latest(store.ModalitySpeech)
	require.NoError(t, err)
	assert.Equal(t, "hello there friend", stored.Text)

	all, err := s.Transcripts().List(0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Empty(t, a.Transcript().Text, "speech does not touch the fingerspelling transcript")
}

func TestApp_Practice(t *testing.T) {
	ctx := context.Background()
	a, rec := newTestApp(t, nil)

	_, err := a.StartPractice(ctx, "expert")
	require.ErrorIs(t, err, asl.ErrUnknownLevel)

	st, err := a.StartPractice(ctx, "beginner")
	require.NoError(t, err)
	assert.Equal(t, "A", st.Target)
	assert.Equal(t, event.KindPractice, rec.last(t).Kind)

	ev, err := a.Submit(ctx, event.SourceBrowser, pose("fist"))
	require.NoError(t, err)
	assert.True(t, ev.Correct)
	require.NotNil(t, ev.Practice)
	assert.Equal(t, 1, ev.Practice.Score)
	assert.Equal(t, 1, ev.Practice.Attempts)

	ev, err = a.Submit(ctx, event.SourceBrowser, pose("open_palm"))
	require.NoError(t, err)
	assert.False(t, ev.Correct)
	assert.Equal(t, 2, a.Practice().Attempts)

	st = a.StopPractice(ctx)
	assert.False(t, st.Active)

	ev, err = a.Submit(ctx, event.SourceBrowser, pose("fist"))
	require.NoError(t, err)
	assert.Nil(t, ev.Practice)
}

func TestApp_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	a, _ := newTestApp(t, nil, func(c *Config) { c.Metrics = m })

	_, err = a.Submit(ctx, event.SourceBrowser, pose("fist"))
	require.NoError(t, err)
	_, err = a.Submit(ctx, event.SourceBrowser, pose("fist"))
	require.NoError(t, err)
	a.NoHand(ctx, event.SourceBrowser)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if sum, ok := metric.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[metric.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), totals["signbridge.classifications"])
	assert.Equal(t, int64(1), totals["signbridge.detector.no_hand"])
}

// writeRecorderPlugin installs a plugin that saves each request it receives.
func writeRecorderPlugin(t *testing.T, dir string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	pluginDir := filepath.Join(dir, "recorder")
	require.NoError(t, os.MkdirAll(pluginDir, 0755))

	out := filepath.Join(pluginDir, "requests.log")
	script := "#!/bin/sh\ncat >> " + out + "\necho >> " + out + "\necho '{\"success\":true}'\n"
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "run.sh"), []byte(script), 0755))

	manifest, err := json.Marshal(plugin.Manifest{
		Name:       "recorder",
		Version:    "1.0.0",
		Executable: "run.sh",
		Actions:    []string{"speak"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "plugin.json"), manifest, 0644))
	return out
}

func readRequests(t *testing.T, path string) []plugin.Request {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var reqs []plugin.Request
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var req plugin.Request
		require.NoError(t, json.Unmarshal([]byte(line), &req))
		reqs = append(reqs, req)
	}
	return reqs
}

func TestApp_FiresBoundActions(t *testing.T) {
	ctx := context.Background()
	pluginDir := t.TempDir()
	out := writeRecorderPlugin(t, pluginDir)

	s := openStore(t, t.TempDir())
	a, _ := newTestApp(t, s, func(c *Config) { c.PluginDir = pluginDir })
	require.NoError(t, a.DiscoverPlugins())

	for _, act := range []*store.Action{
		{ID: "speak-a", Trigger: "A", PluginName: "recorder", ActionName: "speak", Enabled: true},
		{ID: "speak-help", Trigger: "phrase:HELP", PluginName: "recorder", ActionName: "speak", Enabled: true},
		{ID: "muted-b", Trigger: "B", PluginName: "recorder", ActionName: "speak", Enabled: false},
	} {
		require.NoError(t, s.Actions().Create(act))
	}

	_, err := a.Submit(ctx, event.SourceBrowser, pose("fist"))
	require.NoError(t, err)
	_, err = a.Submit(ctx, event.SourceBrowser, pose("fist"))
	require.NoError(t, err)
	a.wg.Wait()

	_, err = a.Submit(ctx, event.SourceBrowser, pose("open_palm"))
	require.NoError(t, err)
	_, _, err = a.TriggerPhrase(ctx, "HELP")
	require.NoError(t, err)
	a.wg.Wait()

	reqs := readRequests(t, out)
	require.Len(t, reqs, 2, "held letters and disabled actions do not fire")
	empty := json.RawMessage(`{}`)
	assert.Equal(t, plugin.Request{Action: "speak", Trigger: "A", Text: "A", Config: empty}, reqs[0])
	assert.Equal(t, plugin.Request{Action: "speak", Trigger: "phrase:HELP", Text: "I need immediate assistance", Config: empty}, reqs[1])
}

func TestApp_RunAction_Errors(t *testing.T) {
	ctx := context.Background()
	pluginDir := t.TempDir()
	writeRecorderPlugin(t, pluginDir)

	a, _ := newTestApp(t, nil, func(c *Config) { c.PluginDir = pluginDir })
	require.NoError(t, a.DiscoverPlugins())

	_, err := a.RunAction(ctx, &store.Action{ID: "x", PluginName: "missing", ActionName: "speak"}, "A", "A")
	require.ErrorIs(t, err, plugin.ErrPluginNotFound)

	_, err = a.RunAction(ctx, &store.Action{ID: "y", PluginName: "recorder", ActionName: "dance"}, "A", "A")
	require.ErrorIs(t, err, plugin.ErrUnknownAction)

	resp, err := a.RunAction(ctx, &store.Action{ID: "z", PluginName: "recorder", ActionName: "speak"}, "A", "A")
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestApp_SinkErrorsDoNotStopFanOut(t *testing.T) {
	ctx := context.Background()
	a, rec := newTestApp(t, nil)

	failing := SinkFunc(func(context.Context, event.Event) error { return io.ErrClosedPipe })
	a.AddSink(failing)
	after := &recorder{}
	a.AddSink(after)

	_, err := a.Submit(ctx, event.SourceBrowser, pose("fist"))
	require.NoError(t, err)
	assert.Len(t, rec.all(), 1)
	assert.Len(t, after.all(), 1)
}

func TestApp_Ready(t *testing.T) {
	s := openStore(t, t.TempDir())
	a, _ := newTestApp(t, s)
	require.NoError(t, a.Ready(context.Background()))
}
