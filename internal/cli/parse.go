package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/polyreq/internal/pipeline"
)

var sourceURL string

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <page.html>",
	Short: "Parse a saved degree page without fetching anything",
	Long: `Parse reads a degree page saved to disk and runs the same requirement
parser as scan. Concentration links are reported but not followed.

Example:
  polyreq parse computersciencebs.html
  polyreq parse saved.html --source https://catalog.calpoly.edu/collegesandprograms/.../computersciencebs/ --yaml out.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&sourceURL, "source", "", "URL the page was saved from (sets degree id and resolves links)")
	parseCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	parseCmd.Flags().StringVar(&outYAML, "yaml", "", "output YAML path (optional)")
	parseCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.LLM.Provider = ""

	p := pipeline.NewPipeline(cfg)
	report, err := p.ParseFile(args[0], sourceURL)
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	if err := p.RenderReport(report, outputPaths(cmd, cfg), cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
