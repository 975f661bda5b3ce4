package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"podsift/internal/config"
	"podsift/internal/database"
	"podsift/internal/export"
	"podsift/internal/fairvalue"
	"podsift/internal/index"
	"podsift/internal/match"
	"podsift/internal/pipeline"
	"podsift/internal/report"
	"podsift/internal/search"
	"podsift/internal/server"
	"podsift/internal/transcript"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	lex        = config.DefaultLexicon()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "podsift",
	Short:   "Podcast transcript keyword analytics",
	Long:    "Podsift collects podcast transcripts, indexes word frequencies, and prices keyword mention counts the way a prediction market would.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(minutesCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reportCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("podsift", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/podsift/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, transcript sites, and the server.")
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show corpus and index status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n\n", database.GetToday())
		fmt.Println("Episodes:")
		fmt.Printf("  Stored: %d\n", stats.TotalEpisodes)
		fmt.Printf("  Indexed: %d\n", stats.IndexedEpisodes)
		fmt.Println("\nFrequency index:")
		fmt.Printf("  Distinct words: %d\n", stats.DistinctWords)
		fmt.Printf("  Total mentions: %d\n", stats.TotalMentions)

		if episodes, err := db.ListEpisodes(); err == nil && len(episodes) > 0 {
			latest := episodes[0]
			date := "unknown"
			if latest.EpisodeDate != nil {
				date = database.FormatDateDisplay(*latest.EpisodeDate)
			}
			fmt.Println("\nLatest episode:")
			fmt.Printf("  %s (%s)\n", latest.Title, date)
		}
		return nil
	},
}

// --- sync command ---

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Collect transcripts from configured sources and index them",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db)

		var result *pipeline.Result
		if syncDryRun {
			result = pipe.DryRun()
		} else {
			result = pipe.Run(context.Background())
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("sync finished with errors")
		}
		if !syncDryRun {
			fmt.Println("\nSync complete! Run 'podsift search KEYWORD' to query the corpus.")
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Show what would be done without writing")
}

// --- add command ---

var addCmd = &cobra.Command{
	Use:   "add FILE...",
	Short: "Ingest local transcript .txt files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		indexer := index.New(db, cfg.Ingest.Concurrency)
		added := 0
		for _, path := range args {
			if err := addFile(db, indexer, path); err != nil {
				fmt.Printf("  %s: %v\n", filepath.Base(path), err)
				continue
			}
			added++
		}
		fmt.Printf("Added %d of %d files.\n", added, len(args))
		return nil
	},
}

func addFile(db *database.DB, indexer *index.Indexer, path string) error {
	name := filepath.Base(path)

	existing, err := db.EpisodeByFilename(name)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("already ingested as episode %d", existing.ID)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	parsed, err := transcript.Parse(string(data))
	if err != nil {
		return err
	}

	id, err := db.InsertEpisode(transcript.TitleFromFilename(name), parsed.Date, &name,
		parsed.DurationSeconds, parsed.Segments)
	if err != nil {
		return err
	}
	if err := indexer.IndexEpisode(id); err != nil {
		return err
	}

	fmt.Printf("  %s -> episode %d (%d segments)\n", name, id, len(parsed.Segments))
	return nil
}

// --- index / reindex commands ---

var indexAll bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index episodes missing from the frequency index",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		indexer := index.New(db, cfg.Ingest.Concurrency)
		var n int
		if indexAll {
			n, err = indexer.Reindex(context.Background())
		} else {
			n, err = indexer.IndexAll(context.Background())
		}
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d episodes.\n", n)
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexAll, "all", false, "Rebuild the index for every episode")
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Clear the frequency index and rebuild it",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := index.New(db, cfg.Ingest.Concurrency).Reindex(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Reindexed %d episodes.\n", n)
		return nil
	},
}

// --- search command ---

var (
	searchMode     string
	searchLookback string
	searchEpisodes string
	searchTop      int
	searchRefMin   float64
)

var searchCmd = &cobra.Command{
	Use:   "search KEYWORD",
	Short: "Count keyword mentions and price the outcome buckets",
	Long: "Search counts mentions of KEYWORD per episode, newest first. KEYWORD may be\n" +
		"comma-separated terms (combined per --mode) and may contain phrases.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		mode := searchMode
		if mode == "" {
			mode = cfg.Search.Mode
		}
		lookback, err := resolveLookback(searchLookback)
		if err != nil {
			return err
		}
		filterIDs, err := parseIDList(searchEpisodes)
		if err != nil {
			return err
		}

		engine := search.New(db, match.New(lex))
		result, err := engine.Search(args[0], mode, filterIDs...)
		if err != nil {
			return err
		}

		top := searchTop
		if top <= 0 {
			top = cfg.Search.Top
		}
		printSearchResult(result, top)

		fv := fairvalue.Compute(result.Observations(), lookback, searchRefMin*60)
		printFairValue(fv)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchMode, "mode", "", "Combine comma-separated terms with \"or\" or \"and\"")
	searchCmd.Flags().StringVar(&searchLookback, "lookback", "", "Episodes the fair-value fit looks back over, or \"all\"")
	searchCmd.Flags().StringVar(&searchEpisodes, "episodes", "", "Comma-separated episode ids to search within")
	searchCmd.Flags().IntVar(&searchTop, "top", 0, "Episodes shown in the table (0 = config default)")
	searchCmd.Flags().Float64Var(&searchRefMin, "ref-minutes", 0, "Reference episode length in minutes (0 = window median)")
}

func printSearchResult(result *search.Result, top int) {
	fmt.Printf("Mentions of %q across %d episodes\n\n", result.Keyword, len(result.Episodes))

	shown := result.Episodes
	if top > 0 && top < len(shown) {
		shown = shown[:top]
	}
	rows := make([]table.Row, 0, len(shown))
	for _, ep := range shown {
		date := "unknown"
		if ep.EpisodeDate != nil {
			date = database.FormatDateDisplay(*ep.EpisodeDate)
		}
		rows = append(rows, table.Row{
			ep.Title,
			date,
			fmt.Sprintf("%.0f", ep.DurationSeconds/60),
			ep.Count,
			fmt.Sprintf("%.2f", ep.PerMinute),
		})
	}
	fmt.Println(renderTable(table.Row{"Episode", "Date", "Min", "Count", "Per min"}, rows, 3, 4, 5))
	if len(shown) < len(result.Episodes) {
		fmt.Printf("Showing %d of %d episodes.\n", len(shown), len(result.Episodes))
	}

	fmt.Println("\nRolling averages")
	avgRows := []table.Row{
		{"Last 1", fmtAvg(result.Averages.Last1, 1), fmtAvg(result.AveragesPerMin.Last1, 3)},
		{"Last 5", fmtAvg(result.Averages.Last5, 1), fmtAvg(result.AveragesPerMin.Last5, 3)},
		{"Last 20", fmtAvg(result.Averages.Last20, 1), fmtAvg(result.AveragesPerMin.Last20, 3)},
		{"Last 50", fmtAvg(result.Averages.Last50, 1), fmtAvg(result.AveragesPerMin.Last50, 3)},
		{"Last 100", fmtAvg(result.Averages.Last100, 1), fmtAvg(result.AveragesPerMin.Last100, 3)},
	}
	fmt.Println(renderTable(table.Row{"Window", "Mentions", "Per minute"}, avgRows, 2, 3))
}

func fmtAvg(v *float64, prec int) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func printFairValue(fv fairvalue.Result) {
	fmt.Printf("\nFair value (%s model over last %d episodes", fv.Model, fv.LookbackEpisodes)
	if fv.ReferenceMinutes > 0 {
		fmt.Printf(", ref %.0f min", fv.ReferenceMinutes)
	}
	fmt.Println(")")
	fmt.Printf("Mean %.2f, std dev %.2f, zero fraction %.2f\n\n", fv.Mean, fv.StdDev, fv.ZeroFraction)

	rows := make([]table.Row, 0, len(fv.Buckets))
	for _, b := range fv.Buckets {
		rows = append(rows, table.Row{
			b.Label,
			fmt.Sprintf("%.4f", b.PMF),
			fmt.Sprintf("%.4f", b.SF),
			fmt.Sprintf("%.1f%%", b.Pct),
		})
	}
	fmt.Println(renderTable(table.Row{"Count", "P(=N)", "P(>=N)", "Fair value"}, rows, 1, 2, 3, 4))
}

// --- minutes command ---

var minutesEpisode int64

var minutesCmd = &cobra.Command{
	Use:   "minutes KEYWORD",
	Short: "Per-minute mention breakdown for one episode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine := search.New(db, match.New(lex))
		breakdown, err := engine.Minutes(args[0], minutesEpisode)
		if err != nil {
			return err
		}

		fmt.Printf("%q in %s\n\n", breakdown.Keyword, breakdown.Title)

		total, nonzero := 0, 0
		rows := make([]table.Row, 0, len(breakdown.Minutes))
		for _, m := range breakdown.Minutes {
			total += m.Count
			if m.Count == 0 {
				continue
			}
			nonzero++
			rows = append(rows, table.Row{fmt.Sprintf("%d:00", m.Minute), m.Count})
		}
		if len(rows) == 0 {
			fmt.Println("No mentions.")
			return nil
		}
		fmt.Println(renderTable(table.Row{"Minute", "Count"}, rows, 2))
		fmt.Printf("\n%d mentions across %d of %d minutes.\n", total, nonzero, len(breakdown.Minutes))
		return nil
	},
}

func init() {
	minutesCmd.Flags().Int64Var(&minutesEpisode, "episode", 0, "Episode id (required)")
	minutesCmd.MarkFlagRequired("episode")
}

// --- context command ---

var (
	contextEpisode int64
	contextLimit   int
)

var contextCmd = &cobra.Command{
	Use:   "context KEYWORD",
	Short: "Show each mention with surrounding transcript text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine := search.New(db, match.New(lex))
		hits, err := engine.Context(args[0], contextEpisode)
		if err != nil {
			return err
		}
		if contextLimit > 0 && contextLimit < len(hits) {
			hits = hits[:contextLimit]
		}
		if len(hits) == 0 {
			fmt.Println("No mentions.")
			return nil
		}
		for _, h := range hits {
			fmt.Printf("[%d:%02d] %s[%s]%s\n", h.Minute, h.Second, h.Prefix, h.Match, h.Suffix)
		}
		return nil
	},
}

func init() {
	contextCmd.Flags().Int64Var(&contextEpisode, "episode", 0, "Episode id (required)")
	contextCmd.Flags().IntVar(&contextLimit, "limit", 0, "Maximum snippets shown (0 = all)")
	contextCmd.MarkFlagRequired("episode")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://127.0.0.1:%d\n", cfg.Server.Port)
		fmt.Println("Press Ctrl+C to stop")
		return server.New(cfg, db, lex).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Override the configured port")
}

// --- export command ---

var (
	exportOut      string
	exportMinutes  bool
	exportTopWords int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the corpus as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		doc, err := export.Build(db, lex, export.Options{
			TopWords:       exportTopWords,
			IncludeMinutes: exportMinutes,
		})
		if err != nil {
			return err
		}

		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("creating %s: %w", exportOut, err)
			}
			defer f.Close()
			out = f
		}
		if err := export.Write(out, doc); err != nil {
			return err
		}
		if exportOut != "" {
			fmt.Printf("Exported %d episodes to %s\n", len(doc.Episodes), exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to a file instead of stdout")
	exportCmd.Flags().BoolVar(&exportMinutes, "minutes", false, "Include per-minute word counts")
	exportCmd.Flags().IntVar(&exportTopWords, "top-words", 50, "Words kept per episode (0 = all)")
}

// --- report command ---

var reportOut string

var reportCmd = &cobra.Command{
	Use:   "report KEYWORD",
	Short: "Write a standalone HTML mention report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine := search.New(db, match.New(lex))
		result, err := engine.Search(args[0], cfg.Search.Mode)
		if err != nil {
			return err
		}
		fv := fairvalue.Compute(result.Observations(), cfg.Search.Lookback, 0)

		markdown := report.Compose(result, &fv, cfg.Search.Top)
		html, err := report.RenderHTML(markdown, fmt.Sprintf("Mentions of %q", args[0]))
		if err != nil {
			return err
		}

		out := reportOut
		if out == "" {
			out = fmt.Sprintf("mentions-%s.html", slug(args[0]))
		}
		if err := os.WriteFile(out, html, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Report written to %s\n", out)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Output path (default mentions-KEYWORD.html)")
}

// --- helpers ---

// resolveLookback maps the flag form onto the engine convention: "all"
// and 0 both mean the whole corpus.
func resolveLookback(raw string) (int, error) {
	if raw == "" {
		return cfg.Search.Lookback, nil
	}
	if strings.EqualFold(raw, "all") {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid lookback %q (want a count or \"all\")", raw)
	}
	return n, nil
}

func parseIDList(raw string) ([]int64, error) {
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
			return nil, fmt.Errorf("invalid episode id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// slug reduces a keyword to a filename-safe token.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "podsift.db"))
}
