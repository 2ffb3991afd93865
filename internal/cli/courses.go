package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/polyreq/internal/catalog"
	"github.com/ppiankov/polyreq/internal/model"
	"github.com/ppiankov/polyreq/internal/pipeline"
)

// DefaultCoursesURL is the courses A-Z page of the Cal Poly catalog
const DefaultCoursesURL = "https://catalog.calpoly.edu/coursesaz/"

var (
	coursesIndexURL string
	coursesJSON     bool
	coursesStored   bool
)

// coursesCmd represents the courses command
var coursesCmd = &cobra.Command{
	Use:   "courses [subject]",
	Short: "List catalog subjects, or the courses of one subject",
	Long: `Courses reads the catalog's courses A-Z page. Without arguments it lists
every subject with its code. Given a subject code it reads that subject's
course listing: code, title, unit range, terms typically offered and description.

With --db the subject and its courses are upserted into Postgres.
With --stored the courses already in Postgres are listed instead.

Example:
  polyreq courses
  polyreq courses CSC
  polyreq courses csc --json > csc.json
  polyreq courses CSC --db postgres://localhost:5432/polyreq`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCourses,
}

func init() {
	rootCmd.AddCommand(coursesCmd)

	coursesCmd.Flags().StringVar(&coursesIndexURL, "index", DefaultCoursesURL, "courses A-Z page URL")
	coursesCmd.Flags().BoolVar(&coursesJSON, "json", false, "print as JSON")
	coursesCmd.Flags().BoolVar(&coursesStored, "stored", false, "list courses stored in Postgres")
	addStoreFlags(coursesCmd)
}

func runCourses(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if databaseURL != "" {
		cfg.Store.DatabaseURL = databaseURL
	}
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		if coursesStored {
			return fmt.Errorf("--stored needs a subject code")
		}
		subjects, err := fetchSubjectIndex(ctx, cfg, coursesIndexURL)
		if err != nil {
			return err
		}
		if coursesJSON {
			return writeJSON(out, subjects)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tNAME\tURL")
		for _, s := range subjects {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Code, s.Name, s.Link)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ %d subjects\n", len(subjects))
		return nil
	}

	code := strings.ToUpper(strings.TrimSpace(args[0]))
	var courses []model.Course
	if coursesStored {
		courses, err = storedCourses(ctx, cfg, code)
	} else {
		courses, err = scrapeSubject(ctx, cfg, coursesIndexURL, code)
	}
	if err != nil {
		return err
	}

	if coursesJSON {
		if err := writeJSON(out, courses); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tUNITS\tTERMS\tTITLE")
		for _, c := range courses {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Code, c.UnitsLabel(), strings.Join(c.Terms, ","), c.Title)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stderr, "✓ %d %s courses\n", len(courses), code)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// fetchSubjectIndex fetches a courses A-Z page and lists its subjects
func fetchSubjectIndex(ctx context.Context, cfg *model.Config, rawURL string) ([]model.Subject, error) {
	doc, result, err := pipeline.NewFetcherFromConfig(cfg).FetchDocument(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch subject index: %w", err)
	}
	base, err := url.Parse(result.FinalURL)
	if err != nil {
		return nil, fmt.Errorf("parse index url: %w", err)
	}
	subjects := catalog.ParseSubjectIndex(doc, base)
	if len(subjects) == 0 {
		return nil, fmt.Errorf("no subjects found on %s", rawURL)
	}
	return subjects, nil
}

// scrapeSubject reads one subject's course listing and stores it when a database is configured.
// The subject must appear on the index; its listing link comes from there.
func scrapeSubject(ctx context.Context, cfg *model.Config, indexURL, code string) ([]model.Course, error) {
	subjects, err := fetchSubjectIndex(ctx, cfg, indexURL)
	if err != nil {
		return nil, err
	}
	subject, ok := findSubject(subjects, code)
	if !ok {
		return nil, fmt.Errorf("subject %s not listed on %s", code, indexURL)
	}
	if subject.Link == "" {
		index, err := url.Parse(indexURL)
		if err != nil {
			return nil, fmt.Errorf("parse index url: %w", err)
		}
		subject.Link = catalog.SubjectURL(index, code).String()
	}

	doc, _, err := pipeline.NewFetcherFromConfig(cfg).FetchDocument(ctx, subject.Link)
	if err != nil {
		return nil, fmt.Errorf("fetch %s courses: %w", code, err)
	}
	courses := catalog.ParseSubjectCourses(doc)
	if len(courses) == 0 {
		return nil, fmt.Errorf("no courses found on %s", subject.Link)
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if db != nil {
		defer db.Close()
		if err := db.SaveCourses(ctx, subject, courses); err != nil {
			return nil, fmt.Errorf("store failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Stored %d %s courses\n", len(courses), code)
	}
	return courses, nil
}

func findSubject(subjects []model.Subject, code string) (model.Subject, bool) {
	for _, s := range subjects {
		if strings.EqualFold(s.Code, code) {
			return s, true
		}
	}
	return model.Subject{}, false
}

func storedCourses(ctx context.Context, cfg *model.Config, code string) ([]model.Course, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, fmt.Errorf("--stored needs a database: pass --db or set POLYREQ_STORE_DATABASE_URL")
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.ListCourses(ctx, code)
}
