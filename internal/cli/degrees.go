package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/polyreq/internal/catalog"
	"github.com/ppiankov/polyreq/internal/model"
	"github.com/ppiankov/polyreq/internal/pipeline"
)

// DefaultIndexURL is the programs A-Z page of the Cal Poly catalog
const DefaultIndexURL = "https://catalog.calpoly.edu/programsaz/"

var (
	indexURL      string
	degreesJSON   bool
	degreesStored bool
)

// degreesCmd represents the degrees command
var degreesCmd = &cobra.Command{
	Use:   "degrees",
	Short: "List the bachelor degrees of a catalog",
	Long: `Degrees reads the catalog's programs A-Z page and lists every bachelor
degree with its page URL. The URL column can be fed straight to batch.

With --stored, degrees already persisted to Postgres are listed instead.

Example:
  polyreq degrees
  polyreq degrees --json > degrees.json
  polyreq degrees | awk 'NR>1 {print $NF}' > degrees.txt
  polyreq degrees --stored --db postgres://localhost:5432/polyreq`,
	Args: cobra.NoArgs,
	RunE: runDegrees,
}

func init() {
	rootCmd.AddCommand(degreesCmd)

	degreesCmd.Flags().StringVar(&indexURL, "index", DefaultIndexURL, "programs A-Z page URL")
	degreesCmd.Flags().BoolVar(&degreesJSON, "json", false, "print degrees as JSON")
	degreesCmd.Flags().BoolVar(&degreesStored, "stored", false, "list degrees stored in Postgres")
	addStoreFlags(degreesCmd)
}

func runDegrees(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if databaseURL != "" {
		cfg.Store.DatabaseURL = databaseURL
	}

	var degrees []model.Degree
	if degreesStored {
		degrees, err = storedDegrees(ctx, cfg)
	} else {
		degrees, err = fetchDegreeIndex(ctx, cfg, indexURL)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if degreesJSON {
		return writeJSON(out, degrees)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tNAME\tURL")
	for _, d := range degrees {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Kind, d.Name, d.Link)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ %d degrees\n", len(degrees))
	return nil
}

// fetchDegreeIndex fetches a programs A-Z page and lists its bachelor degrees
func fetchDegreeIndex(ctx context.Context, cfg *model.Config, rawURL string) ([]model.Degree, error) {
	doc, result, err := pipeline.NewFetcherFromConfig(cfg).FetchDocument(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch index: %w", err)
	}
	base, err := url.Parse(result.FinalURL)
	if err != nil {
		return nil, fmt.Errorf("parse index url: %w", err)
	}
	degrees := catalog.ParseDegreeIndex(doc, base)
	if len(degrees) == 0 {
		return nil, fmt.Errorf("no degrees found on %s", rawURL)
	}
	return degrees, nil
}

func storedDegrees(ctx context.Context, cfg *model.Config) ([]model.Degree, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, fmt.Errorf("--stored needs a database: pass --db or set POLYREQ_STORE_DATABASE_URL")
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.ListDegrees(ctx)
}
