package store

import (
	"database/sql"
	"errors"
	"time"
)

// Modality identifies how a transcript was produced.
type Modality string

const (
	// ModalityASL is fingerspelled text from the letter classifier.
	ModalityASL Modality = "asl"
	// ModalitySpeech is text from an external speech recogniser.
	ModalitySpeech Modality = "speech"
	// ModalityLip is reserved for lip reading.
	ModalityLip Modality = "lip"
)

// IsValid reports whether m is a known modality.
func (m Modality) IsValid() bool {
	switch m {
	case ModalityASL, ModalitySpeech, ModalityLip:
		return true
	}
	return false
}

// Transcript is a persisted session transcript.
type Transcript struct {
	ID         string
	Modality   Modality
	Text       string
	LastLetter string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TranscriptRepository provides CRUD operations for transcripts.
type TranscriptRepository struct {
	db *sql.DB
}

// Transcripts returns the transcript repository for this store.
func (s *Store) Transcripts() *TranscriptRepository {
	return &TranscriptRepository{db: s.db}
}

const transcriptColumns = `id, modality, text, last_letter, created_at, updated_at`

func scanTranscript(row interface{ Scan(...any) error }) (*Transcript, error) {
	t := &Transcript{}
	var modality string
	if err := row.Scan(&t.ID, &modality, &t.Text, &t.LastLetter, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Modality = Modality(modality)
	return t, nil
}

// Create inserts a new transcript.
func (r *TranscriptRepository) Create(t *Transcript) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO transcripts (`+transcriptColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Modality), t.Text, t.LastLetter, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// GetByID retrieves a transcript by its ID.
func (r *TranscriptRepository) GetByID(id string) (*Transcript, error) {
	t, err := scanTranscript(r.db.QueryRow(
		`SELECT `+transcriptColumns+` FROM transcripts WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// Latest returns the most recently updated transcript of a modality.
func (r *TranscriptRepository) Latest(m Modality) (*Transcript, error) {
	t, err := scanTranscript(r.db.QueryRow(
		`SELECT `+transcriptColumns+` FROM transcripts WHERE modality = ?
		 ORDER BY updated_at DESC LIMIT 1`, string(m),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// List returns up to limit transcripts, newest first. A limit <= 0 returns all.
func (r *TranscriptRepository) List(limit int) ([]*Transcript, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT `+transcriptColumns+` FROM transcripts ORDER BY updated_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		transcripts = append(transcripts, t)
	}
	return transcripts, rows.Err()
}

// Update stores new text and last letter for a transcript.
func (r *TranscriptRepository) Update(t *Transcript) error {
	t.UpdatedAt = time.Now()
	result, err := r.db.Exec(
		`UPDATE transcripts SET text = ?, last_letter = ?, updated_at = ? WHERE id = ?`,
		t.Text, t.LastLetter, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	return affectedOrNotFound(result)
}

// Delete removes a transcript and its predictions.
func (r *TranscriptRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM transcripts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(result)
}
