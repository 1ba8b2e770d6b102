package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Sample is a recorded landmark set labelled with the intended letter.
// Points holds the JSON-encoded landmarks.
type Sample struct {
	ID        string          `json:"id"`
	Letter    string          `json:"letter"`
	Points    json.RawMessage `json:"points"`
	CreatedAt time.Time       `json:"created_at"`
}

// SampleRepository provides CRUD operations for samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create inserts samples in a single transaction.
func (r *SampleRepository) Create(samples ...*Sample) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO samples (id, letter, points, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, s := range samples {
		s.CreatedAt = now
		if _, err := stmt.Exec(s.ID, s.Letter, string(s.Points), s.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a sample by its ID.
func (r *SampleRepository) GetByID(id string) (*Sample, error) {
	var s Sample
	var points string
	err := r.db.QueryRow(
		`SELECT id, letter, points, created_at FROM samples WHERE id = ?`, id,
	).Scan(&s.ID, &s.Letter, &points, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.Points = json.RawMessage(points)
	return &s, nil
}

// List returns samples ordered by letter then age. An empty letter lists all.
func (r *SampleRepository) List(letter string) ([]Sample, error) {
	query := `SELECT id, letter, points, created_at FROM samples`
	var args []any
	if letter != "" {
		query += ` WHERE letter = ?`
		args = append(args, letter)
	}
	query += ` ORDER BY letter, created_at`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var points string
		if err := rows.Scan(&s.ID, &s.Letter, &points, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Points = json.RawMessage(points)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// Delete removes a sample by its ID.
func (r *SampleRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM samples WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(result)
}
