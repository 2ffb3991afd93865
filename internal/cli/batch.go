package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/polyreq/internal/model"
	"github.com/ppiankov/polyreq/internal/pipeline"
	"github.com/ppiankov/polyreq/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchDelay   time.Duration
	batchMD      bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Scan multiple degree pages from a file in parallel",
	Long: `Batch processes many degree pages concurrently:
- Read degree URLs from input file (one per line, # for comments)
- Scan degrees in parallel with configurable worker count
- Write one report per degree, named by degree id
- A failed degree is reported and never stops the rest

Example:
  polyreq batch degrees.txt
  polyreq batch degrees.txt --concurrency 8 --output-dir ./reports --md
  polyreq batch degrees.txt --db postgres://localhost:5432/polyreq`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of degrees scanned at once")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./polyreq-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().DurationVar(&scanTimeout, "scan-timeout", 2*time.Minute, "timeout for one degree, concentrations included")
	batchCmd.Flags().DurationVar(&batchDelay, "delay", 0, "pause between starting degrees")
	batchCmd.Flags().BoolVar(&batchMD, "md", false, "also write a Markdown report per degree")

	addStoreFlags(batchCmd)
	addLLMFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  polyreq Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	if cfg.Store.DatabaseURL != "" {
		fmt.Fprintf(os.Stderr, "  Store:        postgres\n")
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	fmt.Fprintf(os.Stderr, "⚙️  Reading URLs from file...\n")
	urls, err := worker.ReadURLsFromFile(file)
	if err != nil {
		return fmt.Errorf("read URLs: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d URLs\n", len(urls))
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "⚙️  Processing degrees with %d workers...\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "\n")

	p := pipeline.NewPipeline(cfg)
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, scanTimeout, batchDelay).
		WithProgress(func(done, total int, r *worker.ScanResult) {
			if !cfg.Output.Verbose {
				return
			}
			status := "ok"
			if r.Error != nil {
				status = "failed"
			}
			fmt.Fprintf(os.Stderr, "  [%d/%d] %s %s (%v)\n", done, total, status, r.URL, r.Duration.Round(time.Millisecond))
		})
	results := processor.ProcessURLs(ctx, urls)

	renderer := pipeline.NewRenderer()
	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.URL, result.Error)
			continue
		}

		slug := reportSlug(result.Report, result.Index)
		render, ext := renderer.RenderJSON, ".json"
		if cfg.Output.Format == "yaml" {
			render, ext = renderer.RenderYAML, ".yaml"
		}
		if err := render(result.Report, filepath.Join(outputDir, slug+ext)); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write report: %v\n", result.URL, err)
			continue
		}
		if batchMD {
			mdPath := filepath.Join(outputDir, slug+".md")
			if err := renderer.RenderMarkdown(result.Report, mdPath); err != nil {
				failureCount++
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.URL, err)
				continue
			}
		}
		if db != nil {
			if err := db.SaveReport(ctx, result.Report); err != nil {
				failureCount++
				fmt.Fprintf(os.Stderr, "✗ %s: failed to store: %v\n", result.URL, err)
				continue
			}
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (%d sections, %d diagnostics, %v)\n",
			slug, len(result.Report.Requirements.Sections), len(result.Report.Diagnostics), result.Duration.Round(time.Millisecond))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d degrees\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	if stats, ok := p.Fetcher().CacheStats(); ok && stats.Lookups() > 0 {
		fmt.Fprintf(os.Stderr, "  Cache:     %d/%d pages reused\n", stats.MemoryHits+stats.DiskHits, stats.Lookups())
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// reportSlug names a degree's report files, falling back to its input position
func reportSlug(report *model.Report, index int) string {
	if report != nil {
		if slug := sanitizeFilename(report.Degree.ID); slug != "" {
			return slug
		}
	}
	return fmt.Sprintf("degree-%03d", index+1)
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	s = strings.TrimSpace(s)

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)
	s = strings.Trim(s, ".")

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}

	return s
}
