package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Samples table - one row per processed training image
		`CREATE TABLE IF NOT EXISTS samples (
			id TEXT PRIMARY KEY,
			image_name TEXT NOT NULL,
			pose_label TEXT NOT NULL,
			keypoints TEXT NOT NULL,
			angles TEXT NOT NULL,
			confidence_mean REAL NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(pose_label, image_name)
		)`,

		// Settings table - stores builder metadata as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_samples_pose_label ON samples(pose_label)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
