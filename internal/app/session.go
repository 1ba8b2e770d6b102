package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/signbridge/internal/asl"
	"github.com/ayusman/signbridge/internal/event"
	"github.com/ayusman/signbridge/internal/phrase"
	"github.com/ayusman/signbridge/internal/store"
)

// Accept folds a classified letter event into the session: the transcript
// reducer, the practice drill, the store and bound plugin actions. The
// completed event is published to every sink and returned.
func (a *App) Accept(ctx context.Context, ev event.Event) event.Event {
	skip := ev.Letter == asl.Unknown && a.config.Pipeline.SkipUnknown

	a.sessMu.Lock()
	before := a.transcript
	if !skip {
		a.transcript = asl.Append(a.transcript, ev.Letter)
	}
	changed := a.transcript != before
	tr := a.transcript
	ev.Transcript = &tr

	if a.practice.Snapshot().Active {
		ev.Correct = a.practice.Observe(ev.Letter)
		st := a.practice.Snapshot()
		ev.Practice = &st
	}

	last := ev
	a.last = &last

	if changed {
		a.persistLetter(ev)
	}
	a.sessMu.Unlock()

	if changed && ev.Letter != asl.Unknown {
		a.fireActions(ev.Letter, ev.Letter)
	}
	a.publish(ctx, ev)
	return ev
}

// Last returns the most recent letter event, if a hand is in view.
func (a *App) Last() (event.Event, bool) {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()
	if a.last == nil {
		return event.Event{}, false
	}
	return *a.last, true
}

// Transcript returns the live fingerspelling transcript.
func (a *App) Transcript() asl.Transcript {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()
	return a.transcript
}

// ClearTranscript empties the transcript. The next letter starts a new
// stored transcript.
func (a *App) ClearTranscript(ctx context.Context) asl.Transcript {
	a.sessMu.Lock()
	a.transcript = asl.Clear()
	a.transcriptID = ""
	if a.store != nil {
		if err := a.store.Settings().Set(store.SettingActiveTranscript, ""); err != nil {
			a.log.Warn("reset active transcript", slog.String("error", err.Error()))
		}
	}
	tr := a.transcript
	a.sessMu.Unlock()

	a.publish(ctx, event.Event{Kind: event.KindTranscript, Time: time.Now(), Transcript: &tr})
	return tr
}

// TriggerPhrase appends an emergency phrase to the transcript and runs the
// actions bound to it.
func (a *App) TriggerPhrase(ctx context.Context, key string) (phrase.Phrase, asl.Transcript, error) {
	p, err := phrase.Lookup(key)
	if err != nil {
		return phrase.Phrase{}, asl.Transcript{}, err
	}

	a.sessMu.Lock()
	a.transcript = asl.AppendPhrase(a.transcript, p.Text)
	tr := a.transcript
	a.persistTranscript()
	a.sessMu.Unlock()

	a.log.Info("phrase triggered", slog.String("phrase", p.Key))
	a.fireActions(p.Trigger(), p.Text)
	a.publish(ctx, event.Event{
		Kind:       event.KindTranscript,
		Time:       time.Now(),
		Source:     event.SourceAPI,
		Transcript: &tr,
		Message:    p.Text,
	})
	return p, tr, nil
}

// Speech returns the latest speech transcript.
func (a *App) Speech() string {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()
	return a.speech
}

// SetSpeech stores text from an external speech recogniser verbatim.
func (a *App) SetSpeech(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	a.sessMu.Lock()
	a.speech = text
	var err error
	if a.store != nil {
		err = a.saveTranscript(&a.speechID, store.ModalitySpeech, text, "")
	}
	a.sessMu.Unlock()
	if err != nil {
		return err
	}

	tr := asl.Transcript{Text: text}
	a.publish(ctx, event.Event{
		Kind:       event.KindTranscript,
		Time:       time.Now(),
		Source:     event.SourceSpeech,
		Transcript: &tr,
	})
	return nil
}

// StartPractice begins a drill at level.
func (a *App) StartPractice(ctx context.Context, level string) (asl.PracticeState, error) {
	st, err := a.practice.Start(level)
	if err != nil {
		return st, err
	}
	a.publish(ctx, event.Event{Kind: event.KindPractice, Time: time.Now(), Practice: &st})
	return st, nil
}

// StopPractice ends the current drill.
func (a *App) StopPractice(ctx context.Context) asl.PracticeState {
	a.practice.Reset()
	st := a.practice.Snapshot()
	a.publish(ctx, event.Event{Kind: event.KindPractice, Time: time.Now(), Practice: &st})
	return st
}

// Practice returns the drill state.
func (a *App) Practice() asl.PracticeState {
	return a.practice.Snapshot()
}

// restoreSession reloads the transcript that was active at shutdown.
func (a *App) restoreSession() {
	id, err := a.store.Settings().Get(store.SettingActiveTranscript)
	if err != nil || id == "" {
		return
	}
	t, err := a.store.Transcripts().GetByID(id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.log.Warn("restore transcript", slog.String("error", err.Error()))
		}
		return
	}
	a.transcript = asl.Transcript{LastLetter: t.LastLetter, Text: t.Text}
	a.transcriptID = t.ID
	a.log.Info("transcript restored", slog.String("id", t.ID), slog.Int("length", len(t.Text)))
}

// persistLetter stores the transcript and logs the prediction. Callers hold
// sessMu. Store failures are logged; the live session keeps going.
func (a *App) persistLetter(ev event.Event) {
	if a.store == nil {
		return
	}
	a.persistTranscript()

	p := &store.Prediction{
		TranscriptID: a.transcriptID,
		Letter:       ev.Letter,
		Confidence:   ev.Confidence,
		Source:       ev.Source,
	}
	if err := a.store.Predictions().Create(p); err != nil {
		a.log.Warn("store prediction", slog.String("error", err.Error()))
	}
}

func (a *App) persistTranscript() {
	if a.store == nil {
		return
	}
	if err := a.saveTranscript(&a.transcriptID, store.ModalityASL, a.transcript.Text, a.transcript.LastLetter); err != nil {
		a.log.Warn("store transcript", slog.String("error", err.Error()))
	}
}

// saveTranscript updates the row *id points at, creating it when missing.
func (a *App) saveTranscript(id *string, modality store.Modality, text, lastLetter string) error {
	repo := a.store.Transcripts()
	if *id != "" {
		err := repo.Update(&store.Transcript{ID: *id, Text: text, LastLetter: lastLetter})
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	t := &store.Transcript{
		ID:         uuid.NewString(),
		Modality:   modality,
		Text:       text,
		LastLetter: lastLetter,
	}
	if err := repo.Create(t); err != nil {
		return err
	}
	*id = t.ID

	if modality == store.ModalityASL {
		return a.store.Settings().Set(store.SettingActiveTranscript, t.ID)
	}
	return nil
}
