package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_CreatesDatabaseAndDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "signbridge.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file should exist after creating store: %v", err)
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestNew_InMemory(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if err := s.Settings().Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := os.Stat(":memory:"); !os.IsNotExist(err) {
		t.Error("in-memory store should not create a file")
	}
}

func TestNew_MigratesSchema(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.Version(ctx)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v != SchemaVersion {
		t.Errorf("Version() = %d, want %d", v, SchemaVersion)
	}

	for _, obj := range []struct{ kind, name string }{
		{"table", "transcripts"},
		{"table", "predictions"},
		{"table", "samples"},
		{"table", "actions"},
		{"table", "settings"},
		{"index", "idx_predictions_transcript_id"},
		{"index", "idx_samples_letter"},
		{"index", "idx_actions_trigger"},
		{"index", "idx_actions_binding"},
	} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = ? AND name = ?",
			obj.kind, obj.name,
		).Scan(&name)
		if err != nil {
			t.Errorf("%s %q should exist after migrations: %v", obj.kind, obj.name, err)
		}
	}
}

func TestNew_ReopenKeepsDataAndVersion(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "signbridge.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Samples().Create(&Sample{ID: "s1", Letter: "A", Points: json.RawMessage(`[]`)}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	if _, err := s.Samples().GetByID("s1"); err != nil {
		t.Errorf("sample lost on reopen: %v", err)
	}
	if v, _ := s.Version(context.Background()); v != SchemaVersion {
		t.Errorf("Version() after reopen = %d, want %d", v, SchemaVersion)
	}
}

func TestNew_UpgradesOlderSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "signbridge.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	// Pretend only the first step ever ran.
	for _, stmt := range []string{
		"DROP INDEX idx_actions_binding",
		"DROP TABLE samples",
		"PRAGMA user_version = 1",
	} {
		if _, err := s.DB().Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("upgrade error = %v", err)
	}
	defer s.Close()

	if err := s.Samples().Create(&Sample{ID: "s1", Letter: "B", Points: json.RawMessage(`[]`)}); err != nil {
		t.Errorf("samples table missing after upgrade: %v", err)
	}
}

func TestNew_RejectsNewerSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "signbridge.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.DB().Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	if s, err := New(dbPath); err == nil {
		s.Close()
		t.Fatal("opening a database from a newer build should fail")
	}
}

func TestStore_Pragmas(t *testing.T) {
	s := newTestStore(t)

	var fk int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("failed to read foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Error("foreign keys should be enabled")
	}

	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("failed to read journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "signbridge.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping() should fail after Close")
	}
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.SchemaVersion != SchemaVersion || st.Transcripts != 0 || st.Predictions != 0 || len(st.Letters) != 0 {
		t.Errorf("empty Stats() = %+v", st)
	}

	if err := s.Transcripts().Create(&Transcript{ID: "t1", Modality: ModalityASL}); err != nil {
		t.Fatal(err)
	}
	for _, l := range []string{"A", "B", "A"} {
		if err := s.Predictions().Create(&Prediction{TranscriptID: "t1", Letter: l, Confidence: 87, Source: "camera"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Samples().Create(&Sample{ID: "s1", Letter: "A", Points: json.RawMessage(`[]`)}); err != nil {
		t.Fatal(err)
	}
	if err := s.Actions().Create(&Action{ID: "a1", Trigger: "A", PluginName: "speak", ActionName: "speak", Enabled: true}); err != nil {
		t.Fatal(err)
	}

	st, err = s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Transcripts != 1 || st.Predictions != 3 || st.Samples != 1 || st.Actions != 1 {
		t.Errorf("Stats() = %+v", st)
	}
	if st.Letters["A"] != 2 || st.Letters["B"] != 1 {
		t.Errorf("Stats().Letters = %v", st.Letters)
	}
}

func TestActionRepository_DuplicateBinding(t *testing.T) {
	repo := newTestStore(t).Actions()

	first := &Action{ID: "a1", Trigger: "A", PluginName: "speak", ActionName: "speak", Enabled: true}
	if err := repo.Create(first); err != nil {
		t.Fatal(err)
	}

	dup := &Action{ID: "a2", Trigger: "A", PluginName: "speak", ActionName: "speak", Enabled: false}
	if err := repo.Create(dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Create() duplicate error = %v, want %v", err, ErrDuplicate)
	}

	other := &Action{ID: "a3", Trigger: "B", PluginName: "speak", ActionName: "speak", Enabled: true}
	if err := repo.Create(other); err != nil {
		t.Fatal(err)
	}
	other.Trigger = "A"
	if err := repo.Update(other); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Update() onto an existing binding error = %v, want %v", err, ErrDuplicate)
	}
}
