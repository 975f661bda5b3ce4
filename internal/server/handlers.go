package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"podsift/internal/apperr"
	"podsift/internal/database"
	"podsift/internal/fairvalue"
	"podsift/internal/search"
	"podsift/internal/transcript"
)

// maxUploadBytes caps a whole multipart upload request.
const maxUploadBytes = 64 << 20

// episodeJSON is the wire form of an episode.
type episodeJSON struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	EpisodeDate     *string `json:"episode_date"`
	EpisodeNumber   *int64  `json:"episode_number"`
	DurationSeconds float64 `json:"duration_seconds"`
	IndexedAt       *string `json:"indexed_at"`
}

func toEpisodeJSON(e *database.Episode) episodeJSON {
	return episodeJSON{
		ID:              e.ID,
		Title:           e.Title,
		EpisodeDate:     e.EpisodeDate,
		EpisodeNumber:   e.EpisodeNumber,
		DurationSeconds: e.DurationSeconds,
		IndexedAt:       e.IndexedAt,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{
		"total_episodes":   stats.TotalEpisodes,
		"indexed_episodes": stats.IndexedEpisodes,
		"distinct_words":   stats.DistinctWords,
		"total_mentions":   stats.TotalMentions,
	}
	if episodes, err := s.db.ListEpisodes(); err == nil && len(episodes) > 0 {
		resp["latest_title"] = episodes[0].Title
		resp["latest_date"] = episodes[0].EpisodeDate
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.db.ListEpisodes()
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]episodeJSON, 0, len(episodes))
	for i := range episodes {
		out = append(out, toEpisodeJSON(&episodes[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"episodes": out,
		"total":    len(out),
	})
}

type uploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// handleUpload ingests one or more multipart "files" parts. An optional
// parallel "titles" field overrides the title derived from each
// filename. Files that fail to parse or duplicate an earlier upload are
// reported per file without failing the batch.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("invalid multipart form: %w", apperr.ErrValidation))
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, fmt.Errorf("no files uploaded: %w", apperr.ErrValidation))
		return
	}
	titles := r.MultipartForm.Value["titles"]

	created := []episodeJSON{}
	failures := []uploadFailure{}
	for i, hdr := range files {
		content, err := readUpload(hdr)
		if err != nil {
			failures = append(failures, uploadFailure{Filename: hdr.Filename, Error: err.Error()})
			continue
		}

		title := transcript.TitleFromFilename(hdr.Filename)
		if i < len(titles) && strings.TrimSpace(titles[i]) != "" {
			title = strings.TrimSpace(titles[i])
		}

		ep, err := s.ingestTranscript(title, hdr.Filename, content)
		if err != nil {
			failures = append(failures, uploadFailure{Filename: hdr.Filename, Error: err.Error()})
			continue
		}
		created = append(created, toEpisodeJSON(ep))
	}

	status := http.StatusCreated
	if len(created) == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]any{
		"created": created,
		"errors":  failures,
	})
}

func readUpload(hdr *multipart.FileHeader) (string, error) {
	f, err := hdr.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("invalid episode id %q: %w", raw, apperr.ErrValidation))
		return
	}

	deleted, err := s.db.DeleteEpisode(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeError(w, fmt.Errorf("episode %d: %w", id, apperr.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

type searchParams struct {
	Keyword  string
	Mode     string
	Lookback int
}

func (p searchParams) validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Keyword, validation.Required.Error("keyword is required")),
		validation.Field(&p.Mode, validation.In(search.ModeOr, search.ModeAnd).Error("mode must be or|and")),
	)
}

// searchResponse carries the search result plus the fair-value fit over
// the same series.
type searchResponse struct {
	*search.Result
	FairValue fairvalue.Result `json:"fair_value"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := searchParams{
		Keyword: strings.TrimSpace(q.Get("keyword")),
		Mode:    q.Get("mode"),
	}
	if params.Mode == "" {
		params.Mode = s.cfg.Search.Mode
	}

	lookback, err := parseLookback(q.Get("lookback"), s.cfg.Search.Lookback)
	if err != nil {
		writeError(w, err)
		return
	}
	params.Lookback = lookback

	if err := params.validate(); err != nil {
		writeError(w, fmt.Errorf("%v: %w", err, apperr.ErrValidation))
		return
	}

	filterIDs, err := parseEpisodeIDs(q.Get("episode_ids"))
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.engine.Search(params.Keyword, params.Mode, filterIDs...)
	if err != nil {
		writeError(w, err)
		return
	}

	fv := fairvalue.Compute(result.Observations(), params.Lookback, 0)
	writeJSON(w, http.StatusOK, searchResponse{Result: result, FairValue: fv})
}

// parseLookback maps the query form onto the engine convention: "all"
// and 0 both mean the whole corpus.
func parseLookback(raw string, fallback int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	if strings.EqualFold(raw, "all") {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid lookback %q: %w", raw, apperr.ErrValidation)
	}
	return n, nil
}

func parseEpisodeIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid episode id %q: %w", part, apperr.ErrValidation)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Server) handleMinutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	episodeID, err := parseEpisodeID(q.Get("episode_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	breakdown, err := s.engine.Minutes(strings.TrimSpace(q.Get("keyword")), episodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	episodeID, err := parseEpisodeID(q.Get("episode_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	keyword := strings.TrimSpace(q.Get("keyword"))

	hits, err := s.engine.Context(keyword, episodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	if limit, _ := strconv.Atoi(q.Get("limit")); limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []search.ContextHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"episode_id": episodeID,
		"keyword":    keyword,
		"contexts":   hits,
	})
}

func parseEpisodeID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid episode_id %q: %w", raw, apperr.ErrValidation)
	}
	return id, nil
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	n, err := s.indexer.Reindex(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reindexed": n})
}
