// Package tray puts signbridge in the system tray: a detection toggle, the
// last letter and transcript, quick phrases, and shortcuts to the web UI
// and quit.
package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/signbridge/internal/event"
	"github.com/ayusman/signbridge/internal/phrase"
)

// Handlers are invoked from the menu goroutine. Nil entries are skipped.
type Handlers struct {
	Toggle func(enabled bool)
	Phrase func(key string)
	Clear  func()
	Open   func()
	Quit   func()
}

// state is what the menu shows.
type state struct {
	enabled bool
	last    string
	text    string
}

// Tray is the menu. It is also an app sink, so toggles and letters that
// happen elsewhere show up in it.
type Tray struct {
	handlers Handlers

	mu    sync.Mutex
	state state
	items *items
}

// items exist only once systray has called onReady.
type items struct {
	toggle     *systray.MenuItem
	last       *systray.MenuItem
	transcript *systray.MenuItem
}

// New returns a tray that starts in the given detection state.
func New(enabled bool, h Handlers) *Tray {
	return &Tray{handlers: h, state: state{enabled: enabled}}
}

// Run shows the tray and blocks until Quit. It must own the main thread.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray and unblocks Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("SignBridge")
	systray.SetTooltip("SignBridge ASL fingerspelling")

	t.mu.Lock()
	it := &items{
		toggle: systray.AddMenuItem(toggleTitle(t.state.enabled), "Toggle letter detection"),
	}
	systray.AddSeparator()
	it.last = systray.AddMenuItem(lastTitle(t.state.last), "Last recognised letter")
	it.last.Disable()
	it.transcript = systray.AddMenuItem(transcriptTitle(t.state.text), "Current transcript")
	it.transcript.Disable()
	t.items = it
	t.mu.Unlock()

	clearItem := systray.AddMenuItem("Clear transcript", "Start a new transcript")
	phrases := systray.AddMenuItem("Quick phrases", "Send a phrase without spelling it")
	for _, p := range phrase.All() {
		sub := phrases.AddSubMenuItem(p.Icon+" "+p.Text, p.Key)
		go t.forward(sub.ClickedCh, func() { t.sendPhrase(p.Key) })
	}
	systray.AddSeparator()
	openItem := systray.AddMenuItem("Open SignBridge...", "Open the web UI in a browser")
	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Quit SignBridge")

	go t.forward(it.toggle.ClickedCh, t.toggle)
	go t.forward(clearItem.ClickedCh, t.clear)
	go t.forward(openItem.ClickedCh, t.open)
	go func() {
		<-quit.ClickedCh
		t.quit()
	}()
}

// forward calls fn for every click on ch.
func (t *Tray) forward(ch <-chan struct{}, fn func()) {
	for range ch {
		fn()
	}
}

func (t *Tray) toggle() {
	t.mu.Lock()
	t.state.enabled = !t.state.enabled
	enabled := t.state.enabled
	t.refreshLocked()
	t.mu.Unlock()

	if t.handlers.Toggle != nil {
		t.handlers.Toggle(enabled)
	}
}

func (t *Tray) sendPhrase(key string) {
	if t.handlers.Phrase != nil {
		t.handlers.Phrase(key)
	}
}

func (t *Tray) clear() {
	if t.handlers.Clear != nil {
		t.handlers.Clear()
	}
}

func (t *Tray) open() {
	if t.handlers.Open != nil {
		t.handlers.Open()
	}
}

func (t *Tray) quit() {
	if t.handlers.Quit != nil {
		t.handlers.Quit()
	}
	systray.Quit()
}

// Publish mirrors app events into the menu.
func (t *Tray) Publish(_ context.Context, ev event.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = apply(t.state, ev)
	t.refreshLocked()
	return nil
}

// apply folds one event into the menu state. Speech transcripts are not
// shown; the menu follows fingerspelling only.
func apply(s state, ev event.Event) state {
	switch ev.Kind {
	case event.KindLetter:
		s.last = ev.Letter
	case event.KindStatus:
		switch ev.Status {
		case event.StatusEnabled:
			s.enabled = true
		case event.StatusDisabled:
			s.enabled = false
		case event.StatusNoHand:
			s.last = ""
		}
	}
	if ev.Transcript != nil && ev.Source != event.SourceSpeech {
		s.text = ev.Transcript.Text
	}
	return s
}

func (t *Tray) refreshLocked() {
	if t.items == nil {
		return
	}
	t.items.toggle.SetTitle(toggleTitle(t.state.enabled))
	t.items.last.SetTitle(lastTitle(t.state.last))
	t.items.transcript.SetTitle(transcriptTitle(t.state.text))
}

// LastLetter is the letter shown in the menu, "" when none.
func (t *Tray) LastLetter() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.last
}

// IsEnabled reports the detection state shown in the menu.
func (t *Tray) IsEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Detecting"
	}
	return "○ Paused"
}

func lastTitle(letter string) string {
	if letter == "" {
		return "Last: none"
	}
	return "Last: " + letter
}

// transcriptMax keeps the menu item narrow.
const transcriptMax = 24

func transcriptTitle(text string) string {
	if text == "" {
		return "Transcript: empty"
	}
	if r := []rune(text); len(r) > transcriptMax {
		text = "…" + string(r[len(r)-transcriptMax:])
	}
	return "Transcript: " + text
}
