// Package pipeline orchestrates a sync run: collect transcripts from the
// configured sources, then index what arrived.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"podsift/internal/config"
	"podsift/internal/database"
	"podsift/internal/feed"
	"podsift/internal/index"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full sync run.
type Result struct {
	Steps []StepResult
}

// Failed reports whether any step errored.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline runs the two-step sync.
type Pipeline struct {
	cfg *config.Config
	db  *database.DB
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	return &Pipeline{cfg: cfg, db: db}
}

// Run executes the full sync pipeline.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{}
	r.Steps = append(r.Steps, p.runCollect(ctx))
	r.Steps = append(r.Steps, p.runIndex(ctx))
	return r
}

// DryRun reports what a sync would do. Discovery still reads the
// configured feeds and index pages; nothing is fetched or written.
func (p *Pipeline) DryRun() *Result {
	r := &Result{}

	candidates := feed.NewCollector(p.cfg, p.db).Discover()
	fresh := 0
	for _, c := range candidates {
		existing, err := p.db.EpisodeByFilename(c.URL)
		if err == nil && existing == nil {
			fresh++
		}
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("[dry-run] %d candidates discovered, %d not yet stored", len(candidates), fresh),
	})

	unindexed, _ := p.db.UnindexedEpisodes()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Index",
		Summary: fmt.Sprintf("[dry-run] %d episodes waiting for indexing", len(unindexed)),
	})

	return r
}

func (p *Pipeline) runCollect(ctx context.Context) StepResult {
	log.Println("Step 1/2: Collecting transcripts...")
	result := feed.NewCollector(p.cfg, p.db).Collect(ctx)
	return StepResult{
		Name: "Collect",
		Summary: fmt.Sprintf("Found %d episodes: %d new, %d duplicates, %d failed",
			result.TotalFound, result.NewEpisodes, result.Duplicates, result.Failed),
	}
}

func (p *Pipeline) runIndex(ctx context.Context) StepResult {
	log.Println("Step 2/2: Indexing episodes...")
	indexer := index.New(p.db, p.cfg.Ingest.Concurrency)
	n, err := indexer.IndexAll(ctx)
	if err != nil {
		return StepResult{Name: "Index", Err: err}
	}
	return StepResult{
		Name:    "Index",
		Summary: fmt.Sprintf("Indexed %d episodes", n),
	}
}
