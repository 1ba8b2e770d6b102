// Package plugin discovers and runs out-of-process action plugins. A plugin
// is a directory with a plugin.json manifest and an executable that reads one
// JSON Request on stdin and writes one JSON Response on stdout.
package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
)

var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrUnknownAction is returned for an action the manifest does not list.
	ErrUnknownAction = errors.New("plugin has no such action")
	// ErrInvalidManifest wraps every manifest validation failure.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
	// ErrPluginFailed wraps the error text of a success=false response.
	ErrPluginFailed = errors.New("plugin reported failure")
	// ErrTimeout is returned when a run outlives the executor timeout.
	ErrTimeout = errors.New("plugin timed out")
)

// ManifestFile is the manifest name looked up in each plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Validate checks that the manifest names an executable inside the plugin
// directory and at least one action.
func (m Manifest) Validate() error {
	switch {
	case m.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidManifest)
	case m.Executable == "":
		return fmt.Errorf("%w: %s: executable is required", ErrInvalidManifest, m.Name)
	case !filepath.IsLocal(m.Executable):
		return fmt.Errorf("%w: %s: executable %q leaves the plugin directory", ErrInvalidManifest, m.Name, m.Executable)
	case len(m.Actions) == 0:
		return fmt.Errorf("%w: %s: no actions", ErrInvalidManifest, m.Name)
	}
	return nil
}

// Request is sent to a plugin for execution.
type Request struct {
	Action string `json:"action"`
	// Trigger is what fired the action: a letter or "phrase:<KEY>".
	Trigger string `json:"trigger"`
	// Text is the letter or phrase text to act on.
	Text   string          `json:"text,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Err returns nil for a successful response and an ErrPluginFailed error
// carrying the plugin's message otherwise.
func (r *Response) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == "" {
		return ErrPluginFailed
	}
	return fmt.Errorf("%w: %s", ErrPluginFailed, r.Error)
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// HasAction reports whether the manifest lists action.
func (p *Plugin) HasAction(action string) bool {
	return slices.Contains(p.Manifest.Actions, action)
}

// Supports returns ErrUnknownAction when the manifest does not list action.
func (p *Plugin) Supports(action string) error {
	if !p.HasAction(action) {
		return fmt.Errorf("%w: %s/%s", ErrUnknownAction, p.Manifest.Name, action)
	}
	return nil
}
