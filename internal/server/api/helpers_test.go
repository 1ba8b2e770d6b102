package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/store"
	"github.com/ayusman/signbridge/testdata"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "signbridge-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// newTestApp creates a camera-less App over s with plugins loaded from
// pluginDir.
func newTestApp(t *testing.T, s *store.Store, pluginDir string) *app.App {
	t.Helper()
	if pluginDir == "" {
		pluginDir = t.TempDir()
	}
	a := app.New(app.Config{
		Store:     s,
		PluginDir: pluginDir,
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Intn:      func(int) int { return 0 },
	})
	t.Cleanup(a.Stop)
	return a
}

// serve runs one request against h and returns the recorder.
func serve(h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	case []byte:
		r = bytes.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the recorder body into a fresh T.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func rawPose(t *testing.T, name string) []byte {
	t.Helper()
	data, err := testdata.RawPose(name)
	require.NoError(t, err)
	return data
}
