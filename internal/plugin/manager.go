package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Manager discovers plugins under one directory and looks them up by name.
type Manager struct {
	pluginDir string
	log       *slog.Logger

	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager creates a Manager for pluginDir.
func NewManager(pluginDir string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		pluginDir: pluginDir,
		plugins:   make(map[string]*Plugin),
		log:       log,
	}
}

// Discover rescans the plugin directory. Every subdirectory holding a valid
// plugin.json becomes a plugin; broken manifests are logged and skipped. A
// missing directory yields no plugins. When two directories claim the same
// name the first in lexical order wins.
func (m *Manager) Discover() error {
	info, err := os.Stat(m.pluginDir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		m.replace(map[string]*Plugin{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat plugin dir: %w", err)
	}

	entries, err := os.ReadDir(m.pluginDir)
	if err != nil {
		return fmt.Errorf("read plugin dir: %w", err)
	}

	found := make(map[string]*Plugin)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := loadPlugin(filepath.Join(m.pluginDir, entry.Name()))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			m.log.Warn("skipping plugin", slog.String("dir", entry.Name()), slog.String("error", err.Error()))
			continue
		}
		if prev, dup := found[p.Manifest.Name]; dup {
			m.log.Warn("duplicate plugin name",
				slog.String("name", p.Manifest.Name),
				slog.String("kept", prev.Path),
				slog.String("skipped", p.Path),
			)
			continue
		}
		found[p.Manifest.Name] = p
	}

	m.replace(found)
	m.log.Info("plugins discovered", slog.String("dir", m.pluginDir), slog.Int("count", len(found)))
	return nil
}

func (m *Manager) replace(plugins map[string]*Plugin) {
	m.mu.Lock()
	m.plugins = plugins
	m.mu.Unlock()
}

// loadPlugin reads and validates the manifest in dir. The directory name
// stands in for a missing manifest name.
func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if manifest.Name == "" {
		manifest.Name = filepath.Base(dir)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

// Get returns a plugin by name, or ErrPluginNotFound.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return p, nil
}

// Lookup returns the named plugin after checking it supports action.
func (m *Manager) Lookup(name, action string) (*Plugin, error) {
	p, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	if err := p.Supports(action); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Manifest.Name < plugins[j].Manifest.Name })
	return plugins
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
