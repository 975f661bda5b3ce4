package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	hashNumberRe    = regexp.MustCompile(`#(\d{3,5})`)
	episodeNumberRe = regexp.MustCompile(`(?i)episode\s+(\d{3,5})`)
)

const episodeColumns = `id, title, episode_date, episode_number, filename, duration_seconds, uploaded_at, indexed_at`

// InsertEpisode inserts an episode with its transcript segments.
// The episode number is parsed from the title when present.
func (db *DB) InsertEpisode(title string, episodeDate, filename *string, durationSeconds float64, segments []Segment) (int64, error) {
	if segments == nil {
		segments = []Segment{}
	}
	transcriptJSON, err := json.Marshal(segments)
	if err != nil {
		return 0, fmt.Errorf("encoding transcript: %w", err)
	}

	result, err := db.conn.Exec(
		`INSERT INTO episodes (title, episode_date, episode_number, filename, duration_seconds, transcript_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		title, episodeDate, ParseEpisodeNumber(title), filename, durationSeconds, string(transcriptJSON),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetEpisode returns a single episode by ID, or nil if it does not exist.
func (db *DB) GetEpisode(id int64) (*Episode, error) {
	row := db.conn.QueryRow(
		`SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id,
	)
	e, err := scanEpisode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEpisode removes an episode; frequency rows cascade. Returns false
// when no episode had the given ID.
func (db *DB) DeleteEpisode(id int64) (bool, error) {
	result, err := db.conn.Exec("DELETE FROM episodes WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListEpisodes returns indexed episodes ordered newest-first. Optional
// filterIDs narrow the result; IDs that match nothing simply narrow the
// scope, possibly to empty.
func (db *DB) ListEpisodes(filterIDs ...int64) ([]Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE indexed_at IS NOT NULL`
	var args []any
	if len(filterIDs) > 0 {
		query += " AND id IN (" + placeholders(len(filterIDs)) + ")"
		for _, id := range filterIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY episode_date IS NULL, episode_date DESC, id DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

// AllEpisodes returns every episode, indexed or not, newest-first.
func (db *DB) AllEpisodes() ([]Episode, error) {
	rows, err := db.conn.Query(
		`SELECT ` + episodeColumns + ` FROM episodes
		ORDER BY episode_date IS NULL, episode_date DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

// UnindexedEpisodes returns episodes whose frequency index has not been
// built yet, oldest-first so indexing proceeds chronologically.
func (db *DB) UnindexedEpisodes() ([]Episode, error) {
	rows, err := db.conn.Query(
		`SELECT ` + episodeColumns + ` FROM episodes
		WHERE indexed_at IS NULL ORDER BY id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

// EpisodeByFilename returns the episode ingested from the given file, or
// nil when none matches.
func (db *DB) EpisodeByFilename(filename string) (*Episode, error) {
	row := db.conn.QueryRow(
		`SELECT `+episodeColumns+` FROM episodes WHERE filename = ?`, filename,
	)
	e, err := scanEpisode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Segments returns the stored transcript segments for an episode.
func (db *DB) Segments(episodeID int64) ([]Segment, error) {
	var transcriptJSON string
	err := db.conn.QueryRow(
		"SELECT transcript_json FROM episodes WHERE id = ?", episodeID,
	).Scan(&transcriptJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var segments []Segment
	if err := json.Unmarshal([]byte(transcriptJSON), &segments); err != nil {
		return nil, fmt.Errorf("decoding transcript for episode %d: %w", episodeID, err)
	}
	return segments, nil
}

// RawTranscriptText returns the episode's full transcript as one string,
// segment texts joined with single spaces.
func (db *DB) RawTranscriptText(episodeID int64) (string, error) {
	segments, err := db.Segments(episodeID)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " "), nil
}

// MarkIndexed records when the episode's frequency index was built.
func (db *DB) MarkIndexed(episodeID int64, timestamp string) error {
	_, err := db.conn.Exec(
		"UPDATE episodes SET indexed_at = ? WHERE id = ?", timestamp, episodeID,
	)
	return err
}

// GetStats returns aggregate corpus statistics.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM episodes").Scan(&s.TotalEpisodes); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM episodes WHERE indexed_at IS NOT NULL").Scan(&s.IndexedEpisodes); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(DISTINCT word) FROM word_frequencies").Scan(&s.DistinctWords); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COALESCE(SUM(count), 0) FROM word_frequencies").Scan(&s.TotalMentions); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseEpisodeNumber extracts an episode number like "#2113" or
// "Episode 2113" from a title. Returns nil when no number is found.
func ParseEpisodeNumber(title string) *int64 {
	for _, re := range []*regexp.Regexp{hashNumberRe, episodeNumberRe} {
		if m := re.FindStringSubmatch(title); m != nil {
			var n int64
			fmt.Sscanf(m[1], "%d", &n)
			return &n
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func scanEpisodes(rows *sql.Rows) ([]Episode, error) {
	var episodes []Episode
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.ID, &e.Title, &e.EpisodeDate, &e.EpisodeNumber,
			&e.Filename, &e.DurationSeconds, &e.UploadedAt, &e.IndexedAt); err != nil {
			return nil, err
		}
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}

func scanEpisode(row *sql.Row) (*Episode, error) {
	var e Episode
	if err := row.Scan(&e.ID, &e.Title, &e.EpisodeDate, &e.EpisodeNumber,
		&e.Filename, &e.DurationSeconds, &e.UploadedAt, &e.IndexedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
