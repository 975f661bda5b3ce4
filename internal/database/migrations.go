package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS episodes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    episode_date TEXT,
    episode_number INTEGER,
    filename TEXT,
    duration_seconds REAL NOT NULL DEFAULT 0,
    transcript_json TEXT NOT NULL DEFAULT '[]',
    uploaded_at TEXT DEFAULT (datetime('now')),
    indexed_at TEXT
);

CREATE TABLE IF NOT EXISTS word_frequencies (
    episode_id INTEGER NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
    word TEXT NOT NULL,
    count INTEGER NOT NULL,
    PRIMARY KEY (episode_id, word)
);

CREATE TABLE IF NOT EXISTS minute_frequencies (
    episode_id INTEGER NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
    minute INTEGER NOT NULL,
    word TEXT NOT NULL,
    count INTEGER NOT NULL,
    PRIMARY KEY (episode_id, minute, word)
);

CREATE INDEX IF NOT EXISTS idx_word_frequencies_word ON word_frequencies(word);
CREATE INDEX IF NOT EXISTS idx_minute_frequencies_word ON minute_frequencies(word);
CREATE INDEX IF NOT EXISTS idx_episodes_date ON episodes(episode_date);
CREATE INDEX IF NOT EXISTS idx_episodes_number ON episodes(episode_number);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
