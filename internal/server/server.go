// Package server exposes the corpus over a JSON API: episode CRUD,
// keyword search with fair-value odds, minute breakdowns, context
// snippets, and reindexing. With watching enabled it also ingests
// transcript files dropped into the transcripts directory.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"podsift/internal/apperr"
	"podsift/internal/config"
	"podsift/internal/database"
	"podsift/internal/index"
	"podsift/internal/match"
	"podsift/internal/search"
	"podsift/internal/transcript"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// server is asked to stop.
const shutdownTimeout = 5 * time.Second

// Server is the HTTP server for the podsift API.
type Server struct {
	cfg     *config.Config
	db      *database.DB
	engine  *search.Engine
	indexer *index.Indexer
	router  chi.Router
}

// New creates a new Server.
func New(cfg *config.Config, db *database.DB, lex *config.Lexicon) *Server {
	s := &Server{
		cfg:     cfg,
		db:      db,
		engine:  search.New(db, match.New(lex)),
		indexer: index.New(db, cfg.Ingest.Concurrency),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/episodes", s.handleEpisodes)
	r.Post("/api/upload", s.handleUpload)
	r.Delete("/api/episodes/{id}", s.handleDelete)
	r.Get("/api/search", s.handleSearch)
	r.Get("/api/minutes", s.handleMinutes)
	r.Get("/api/context", s.handleContext)
	r.Post("/api/reindex", s.handleReindex)

	return r
}

// Run serves the API until ctx is cancelled, then shuts down
// gracefully. When cfg.Server.Watch is set, a watcher ingests .txt
// files appearing in the transcripts directory for as long as the
// server runs.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Server.Watch {
		dir := s.cfg.GetTranscriptsDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating transcripts dir: %w", err)
		}
		go func() {
			if err := s.watch(ctx, dir); err != nil {
				log.Printf("Watcher stopped: %v", err)
			}
		}()
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ingestTranscript parses and stores transcript content, then indexes
// the new episode. filename is the duplicate key: content already
// ingested under the same name is rejected as a validation failure.
func (s *Server) ingestTranscript(title, filename, content string) (*database.Episode, error) {
	existing, err := s.db.EpisodeByFilename(filename)
	if err != nil {
		return nil, fmt.Errorf("checking for duplicate %s: %w", filename, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%s already ingested: %w", filename, apperr.ErrValidation)
	}

	parsed, err := transcript.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperr.ErrValidation)
	}

	id, err := s.db.InsertEpisode(title, parsed.Date, &filename, parsed.DurationSeconds, parsed.Segments)
	if err != nil {
		return nil, fmt.Errorf("storing %s: %w", filename, err)
	}
	if err := s.indexer.IndexEpisode(id); err != nil {
		return nil, fmt.Errorf("indexing %s: %w", filename, err)
	}
	return s.db.GetEpisode(id)
}
