package database

// Episode represents an ingested podcast episode.
type Episode struct {
	ID              int64
	Title           string
	EpisodeDate     *string // YYYY-MM-DD
	EpisodeNumber   *int64
	Filename        *string
	DurationSeconds float64
	UploadedAt      *string
	IndexedAt       *string // nil until the frequency index is built
}

// Segment is one timestamped span of transcript text. Segments are stored
// as JSON on the episode row and re-read at indexing and phrase-search time.
type Segment struct {
	StartSeconds float64 `json:"start"`
	Text         string  `json:"text"`
}

// WordCount is one (episode, word) row of the frequency index.
type WordCount struct {
	EpisodeID int64
	Word      string
	Count     int
}

// MinuteWordCount is one (episode, minute, word) row of the minute index.
type MinuteWordCount struct {
	EpisodeID int64
	Minute    int
	Word      string
	Count     int
}

// Stats contains aggregate corpus statistics.
type Stats struct {
	TotalEpisodes   int
	IndexedEpisodes int
	DistinctWords   int
	TotalMentions   int64
}
