package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/polyreq/internal/model"
	"github.com/ppiankov/polyreq/internal/pipeline"
	"github.com/ppiankov/polyreq/internal/store"
)

var (
	outJSON     string
	outYAML     string
	outMD       string
	scanTimeout time.Duration
	databaseURL string
	llmEnabled  bool
	llmProvider string
	llmModel    string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <degree-url>",
	Short: "Scan a degree page and its concentrations into a requirement report",
	Long: `Scan fetches a catalog degree page and:
- Classifies every row of its requirement tables
- Builds sections of courses, "one of" groups and "all of" bundles
- Parses the general-education areas
- Follows concentration links and parses those pages too
- Reports every row it could not place as a diagnostic

Example:
  polyreq scan https://catalog.calpoly.edu/collegesandprograms/collegeofengineering/computersciencesoftwareengineering/computersciencebs/
  polyreq scan <url> --json cs.json --md cs.md
  polyreq scan <url> --db postgres://localhost:5432/polyreq
  polyreq scan <url> --llm --llm-provider ollama --llm-model llama3.1`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	// Output flags
	scanCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	scanCmd.Flags().StringVar(&outYAML, "yaml", "", "output YAML path (optional)")
	scanCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 2*time.Minute, "overall scan timeout, concentrations included")

	addStoreFlags(scanCmd)
	addLLMFlags(scanCmd)
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&databaseURL, "db", "", "Postgres URL to persist reports to (overrides store.database_url)")
}

func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM summary generation")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default when empty)")
}

// applyRunFlags layers the per-command LLM and store flags over the loaded config
func applyRunFlags(cfg *model.Config) error {
	if databaseURL != "" {
		cfg.Store.DatabaseURL = databaseURL
	}

	if !llmEnabled {
		cfg.LLM.Provider = ""
		return nil
	}
	cfg.LLM.Provider = llmProvider
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	cfg.LLM.StrictCodes = true // Always enforce

	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	return nil
}

// openStore connects to Postgres when a database URL is configured, nil otherwise
func openStore(ctx context.Context, cfg *model.Config) (*store.Store, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, nil
	}
	s, err := store.New(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	url := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cfg); err != nil {
		return err
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Scanning: %s\n", url)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", scanTimeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintf(os.Stderr, "Robots: %v\n", cfg.HTTP.RespectRobots)
		fmt.Fprintln(os.Stderr)
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	p := pipeline.NewPipeline(cfg)

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Fetching degree page...\n")
	}

	report, err := p.ScanDegree(ctx, url)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Parsed %d sections\n", len(report.Requirements.Sections))
		fmt.Fprintf(os.Stderr, "✓ Parsed %d concentrations (%d excluded)\n", len(report.Requirements.Concentrations), len(report.Excluded))
		fmt.Fprintf(os.Stderr, "✓ Recorded %d diagnostics\n", len(report.Diagnostics))
		if report.LLM != nil && report.LLM.Enabled {
			fmt.Fprintf(os.Stderr, "✓ Generated LLM summary using %s/%s\n", report.LLM.Provider, report.LLM.Model)
		}
		printCacheStats(p)
		fmt.Fprintln(os.Stderr)
	}

	if err := p.RenderReport(report, outputPaths(cmd, cfg), cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if db != nil {
		if err := db.SaveReport(ctx, report); err != nil {
			return fmt.Errorf("store failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Stored %s\n", report.Degree.ID)
	}
	return nil
}

func printCacheStats(p *pipeline.Pipeline) {
	if stats, ok := p.Fetcher().CacheStats(); ok && stats.Lookups() > 0 {
		fmt.Fprintf(os.Stderr, "✓ Cache: %d memory hits, %d disk hits, %d fetched\n", stats.MemoryHits, stats.DiskHits, stats.Misses)
	}
}

// outputPaths switches the default report file to YAML when output.format is yaml and --json was not given
func outputPaths(cmd *cobra.Command, cfg *model.Config) pipeline.OutputPaths {
	paths := pipeline.OutputPaths{JSON: outJSON, YAML: outYAML, Markdown: outMD}
	if cfg.Output.Format == "yaml" && !cmd.Flags().Changed("json") && paths.YAML == "" {
		paths.JSON = ""
		paths.YAML = "report.yaml"
	}
	return paths
}
