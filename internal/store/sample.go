package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/vinyasa/internal/pose"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Sample represents one processed training image stored in the database.
type Sample struct {
	ID             string
	ImageName      string
	PoseLabel      string
	Keypoints      pose.Skeleton
	Angles         pose.AngleSet
	ConfidenceMean float64
	CreatedAt      time.Time
}

// SampleRepository provides CRUD operations for pose samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create inserts a new sample into the database. The skeleton and angles are
// stored as JSON text.
func (r *SampleRepository) Create(s *Sample) error {
	s.CreatedAt = time.Now()

	keypoints, err := json.Marshal(s.Keypoints)
	if err != nil {
		return fmt.Errorf("encode keypoints: %w", err)
	}
	angles, err := json.Marshal(s.Angles)
	if err != nil {
		return fmt.Errorf("encode angles: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO samples (id, image_name, pose_label, keypoints, angles, confidence_mean, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ImageName, s.PoseLabel, string(keypoints), string(angles), s.ConfidenceMean, s.CreatedAt,
	)
	if err != nil {
		return err
	}

	return nil
}

// Exists reports whether a sample for the given label and image name has
// already been processed.
func (r *SampleRepository) Exists(poseLabel, imageName string) (bool, error) {
	var one int
	err := r.db.QueryRow(
		`SELECT 1 FROM samples WHERE pose_label = ? AND image_name = ?`,
		poseLabel, imageName,
	).Scan(&one)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// All retrieves every sample, ordered by label and image name so exports are
// deterministic.
func (r *SampleRepository) All() ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, image_name, pose_label, keypoints, angles, confidence_mean, created_at
		 FROM samples ORDER BY pose_label, image_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var keypoints, angles string

		err := rows.Scan(&s.ID, &s.ImageName, &s.PoseLabel, &keypoints, &angles, &s.ConfidenceMean, &s.CreatedAt)
		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(keypoints), &s.Keypoints); err != nil {
			return nil, fmt.Errorf("decode keypoints for %s: %w", s.ID, err)
		}
		if err := json.Unmarshal([]byte(angles), &s.Angles); err != nil {
			return nil, fmt.Errorf("decode angles for %s: %w", s.ID, err)
		}

		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// Labels retrieves the distinct pose labels present in the database.
func (r *SampleRepository) Labels() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT pose_label FROM samples ORDER BY pose_label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return labels, nil
}

// Count returns the number of stored samples.
func (r *SampleRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&n)
	return n, err
}

// DeleteAll removes every sample, forcing the next build to start fresh.
func (r *SampleRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM samples`)
	return err
}
