package store

import (
	"database/sql"
	"time"
)

// Prediction is one accepted letter.
type Prediction struct {
	ID           int64
	TranscriptID string
	Letter       string
	Confidence   int
	Source       string
	CreatedAt    time.Time
}

// PredictionRepository records and queries predictions.
type PredictionRepository struct {
	db *sql.DB
}

// Predictions returns the prediction repository for this store.
func (s *Store) Predictions() *PredictionRepository {
	return &PredictionRepository{db: s.db}
}

// Create inserts a prediction and sets its ID. An empty TranscriptID stores NULL.
func (r *PredictionRepository) Create(p *Prediction) error {
	p.CreatedAt = time.Now()

	var transcriptID any
	if p.TranscriptID != "" {
		transcriptID = p.TranscriptID
	}

	result, err := r.db.Exec(
		`INSERT INTO predictions (transcript_id, letter, confidence, source, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		transcriptID, p.Letter, p.Confidence, p.Source, p.CreatedAt,
	)
	if err != nil {
		return err
	}
	p.ID, err = result.LastInsertId()
	return err
}

// ListByTranscript returns a transcript's predictions in insertion order.
func (r *PredictionRepository) ListByTranscript(transcriptID string) ([]Prediction, error) {
	rows, err := r.db.Query(
		`SELECT id, COALESCE(transcript_id, ''), letter, confidence, source, created_at
		 FROM predictions WHERE transcript_id = ? ORDER BY id`,
		transcriptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var predictions []Prediction
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.ID, &p.TranscriptID, &p.Letter, &p.Confidence, &p.Source, &p.CreatedAt); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

// CountByLetter returns how often each letter has been accepted.
func (r *PredictionRepository) CountByLetter() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT letter, COUNT(*) FROM predictions GROUP BY letter`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var letter string
		var n int
		if err := rows.Scan(&letter, &n); err != nil {
			return nil, err
		}
		counts[letter] = n
	}
	return counts, rows.Err()
}
