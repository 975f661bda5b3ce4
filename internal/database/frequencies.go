package database

import (
	"fmt"
	"sort"
)

// UpsertTokenCounts writes an episode's word→count map in one transaction.
// Words are inserted in sorted order so a full rebuild of an unchanged
// corpus reproduces identical tables.
func (db *DB) UpsertTokenCounts(episodeID int64, counts map[string]int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		`INSERT INTO word_frequencies (episode_id, word, count) VALUES (?, ?, ?)
		ON CONFLICT(episode_id, word) DO UPDATE SET count = excluded.count`,
	)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Strings(words)

	for _, w := range words {
		if _, err := stmt.Exec(episodeID, w, counts[w]); err != nil {
			tx.Rollback()
			return fmt.Errorf("upserting word %q: %w", w, err)
		}
	}
	return tx.Commit()
}

// UpsertMinuteCounts writes an episode's minute→word→count map in one
// transaction.
func (db *DB) UpsertMinuteCounts(episodeID int64, counts map[int]map[string]int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		`INSERT INTO minute_frequencies (episode_id, minute, word, count) VALUES (?, ?, ?, ?)
		ON CONFLICT(episode_id, minute, word) DO UPDATE SET count = excluded.count`,
	)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	minutes := make([]int, 0, len(counts))
	for m := range counts {
		minutes = append(minutes, m)
	}
	sort.Ints(minutes)

	for _, m := range minutes {
		words := make([]string, 0, len(counts[m]))
		for w := range counts[m] {
			words = append(words, w)
		}
		sort.Strings(words)
		for _, w := range words {
			if _, err := stmt.Exec(episodeID, m, w, counts[m][w]); err != nil {
				tx.Rollback()
				return fmt.Errorf("upserting minute %d word %q: %w", m, w, err)
			}
		}
	}
	return tx.Commit()
}

// TokenCounts returns the full word→count map for an episode.
func (db *DB) TokenCounts(episodeID int64) (map[string]int, error) {
	rows, err := db.conn.Query(
		"SELECT word, count FROM word_frequencies WHERE episode_id = ?", episodeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var word string
		var count int
		if err := rows.Scan(&word, &count); err != nil {
			return nil, err
		}
		counts[word] = count
	}
	return counts, rows.Err()
}

// MinuteCounts returns the minute→word→count map for an episode.
func (db *DB) MinuteCounts(episodeID int64) (map[int]map[string]int, error) {
	rows, err := db.conn.Query(
		"SELECT minute, word, count FROM minute_frequencies WHERE episode_id = ?", episodeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]map[string]int)
	for rows.Next() {
		var minute, count int
		var word string
		if err := rows.Scan(&minute, &word, &count); err != nil {
			return nil, err
		}
		if counts[minute] == nil {
			counts[minute] = make(map[string]int)
		}
		counts[minute][word] = count
	}
	return counts, rows.Err()
}

// WordsContaining returns frequency rows from indexed episodes whose word
// contains term as a substring. This is the coarse SQL prefilter; the
// matcher decides which rows actually count.
func (db *DB) WordsContaining(term string, filterIDs ...int64) ([]WordCount, error) {
	query := `SELECT wf.episode_id, wf.word, wf.count
		FROM word_frequencies wf
		JOIN episodes e ON e.id = wf.episode_id
		WHERE wf.word LIKE ? AND e.indexed_at IS NOT NULL`
	args := []any{"%" + term + "%"}
	if len(filterIDs) > 0 {
		query += " AND wf.episode_id IN (" + placeholders(len(filterIDs)) + ")"
		for _, id := range filterIDs {
			args = append(args, id)
		}
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WordCount
	for rows.Next() {
		var wc WordCount
		if err := rows.Scan(&wc.EpisodeID, &wc.Word, &wc.Count); err != nil {
			return nil, err
		}
		out = append(out, wc)
	}
	return out, rows.Err()
}

// MinuteWordsContaining returns per-minute frequency rows for one episode
// whose word contains term, ordered by minute.
func (db *DB) MinuteWordsContaining(term string, episodeID int64) ([]MinuteWordCount, error) {
	rows, err := db.conn.Query(
		`SELECT episode_id, minute, word, count FROM minute_frequencies
		WHERE word LIKE ? AND episode_id = ? ORDER BY minute`,
		"%"+term+"%", episodeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MinuteWordCount
	for rows.Next() {
		var mwc MinuteWordCount
		if err := rows.Scan(&mwc.EpisodeID, &mwc.Minute, &mwc.Word, &mwc.Count); err != nil {
			return nil, err
		}
		out = append(out, mwc)
	}
	return out, rows.Err()
}

// ClearFrequencyIndex deletes both frequency tables and resets every
// episode's indexed-at stamp in a single transaction, so readers observe
// either the prior index or none of it.
func (db *DB) ClearFrequencyIndex() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	steps := []string{
		"DELETE FROM word_frequencies",
		"DELETE FROM minute_frequencies",
		"UPDATE episodes SET indexed_at = NULL",
	}
	for _, q := range steps {
		if _, err := tx.Exec(q); err != nil {
			tx.Rollback()
			return fmt.Errorf("clearing index: %w", err)
		}
	}
	return tx.Commit()
}
