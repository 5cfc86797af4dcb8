package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260301-000000",
		Description: "Initial schema",
		Up: []string{
			// Finished transformations, one row per normalized source URL.
			// original_url is unique so re-transforming a page replaces
			// its history entry instead of stacking duplicates.
			`CREATE TABLE IF NOT EXISTS transformations (
				id TEXT PRIMARY KEY,
				uuid TEXT UNIQUE NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				original_url TEXT UNIQUE NOT NULL,
				transformed_content TEXT NOT NULL,
				complexity TEXT NOT NULL DEFAULT 'beginner',
				model TEXT NOT NULL DEFAULT '',
				image_count INTEGER NOT NULL DEFAULT 0,
				images_json TEXT NOT NULL DEFAULT '[]',
				original_length INTEGER NOT NULL DEFAULT 0,
				transformed_length INTEGER NOT NULL DEFAULT 0,
				compression_ratio REAL NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_transformations_uuid ON transformations(uuid)`,
			`CREATE INDEX IF NOT EXISTS idx_transformations_created_at ON transformations(created_at)`,
		},
	})
}
