package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/polyreq/internal/catalog"
	"github.com/ppiankov/polyreq/internal/llm"
	"github.com/ppiankov/polyreq/internal/model"
)

// Pipeline orchestrates fetching and parsing one degree and its concentrations
type Pipeline struct {
	fetcher    *Fetcher
	renderer   *Renderer
	summarizer *llm.Summarizer // nil if disabled
	config     *model.Config
	stderr     io.Writer
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config) *Pipeline {
	p := &Pipeline{
		fetcher:  NewFetcherFromConfig(cfg),
		renderer: NewRenderer(),
		config:   cfg,
		stderr:   &syncWriter{w: os.Stderr},
	}

	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(*cfg))
		if err != nil {
			fmt.Fprintf(p.stderr, "Warning: Failed to initialize LLM provider: %v\n", err)
		} else {
			p.summarizer = s
		}
	}
	return p
}

// WithFetcher replaces the fetcher
func (p *Pipeline) WithFetcher(f *Fetcher) *Pipeline {
	p.fetcher = f
	return p
}

// Fetcher returns the fetcher shared by every scan of this pipeline
func (p *Pipeline) Fetcher() *Fetcher {
	return p.fetcher
}

// WithOutput redirects progress, warnings and console summaries
func (p *Pipeline) WithOutput(w io.Writer) *Pipeline {
	sw := &syncWriter{w: w}
	p.stderr = sw
	p.renderer.out = sw
	return p
}

// syncWriter serializes writes from concurrent concentration scans
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(b)
}

func (p *Pipeline) warnf(format string, args ...any) {
	fmt.Fprintf(p.stderr, "Warning: "+format+"\n", args...)
}

func (p *Pipeline) parseOptions(source string, majorSubjects []string) catalog.ParseOptions {
	opts := catalog.ParseOptions{Source: source, MajorSubjects: majorSubjects}
	if p.config.Output.Verbose {
		opts.Logf = func(format string, args ...any) {
			fmt.Fprintf(p.stderr, "  [%s] "+format+"\n", append([]any{source}, args...)...)
		}
	}
	return opts
}

// ScanDegree fetches and parses a degree page, then each of its concentration
// pages in parallel. A failed concentration is excluded and recorded; only a
// failure of the degree page itself fails the scan.
func (p *Pipeline) ScanDegree(ctx context.Context, rawURL string) (*model.Report, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	doc, fetched, err := p.fetcher.FetchDocument(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if final, err := url.Parse(fetched.FinalURL); err == nil && final.Host != "" {
		base = final
	}

	report, err := p.parseMain(doc, base)
	if err != nil {
		return nil, err
	}
	report.SourceURL = fetched.FinalURL
	report.FetchMeta = fetched.Meta

	links := catalog.ConcentrationLinks(doc, base)
	if len(links) > 0 {
		majorSubjects := MajorSubjects(report.Requirements.Sections)
		outcomes := p.scanConcentrations(ctx, links, majorSubjects)
		mergeConcentrations(report, outcomes)
	}

	p.summarize(ctx, report)
	return report, nil
}

// ParseHTML parses a saved degree page without touching the network.
// Concentration pages are not followed.
func (p *Pipeline) ParseHTML(r io.Reader, sourceURL string) (*model.Report, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	report, err := p.parseMain(doc, base)
	if err != nil {
		return nil, err
	}
	report.SourceURL = sourceURL
	return report, nil
}

// ParseFile parses a saved degree page from disk
func (p *Pipeline) ParseFile(path, sourceURL string) (*model.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if sourceURL == "" {
		sourceURL = "file://" + path
	}
	return p.ParseHTML(f, sourceURL)
}

// parseMain builds the report skeleton from the degree page's own tables
func (p *Pipeline) parseMain(doc *goquery.Document, base *url.URL) (*model.Report, error) {
	degree := catalog.DegreeFromURL(base)
	degree.Name, degree.Kind = catalog.SplitDegreeTitle(catalog.DocumentTitle(doc))

	// A headerless main table is titled from the page's own dominant subject
	parsed, err := catalog.ParseDocument(doc, p.parseOptions(degree.ID, catalog.DominantSubjects(doc)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", base, err)
	}

	return &model.Report{
		Degree:    degree,
		FetchedAt: time.Now().UTC(),
		Requirements: model.DegreeRequirements{
			Sections:       parsed.Sections,
			GERequirements: parsed.GE,
			Courses:        parsed.Courses,
		},
		Diagnostics: parsed.Diagnostics,
		Stats:       parsed.Stats,
		SourceStats: map[string]model.ParseStats{degree.ID: parsed.Stats},
	}, nil
}

// concentrationOutcome is the settled result of one concentration page
type concentrationOutcome struct {
	link   catalog.ConcentrationLink
	result *catalog.DocumentResult
	err    error
}

// scanConcentrations fetches and parses every concentration with bounded parallelism.
// Outcomes are returned in link order regardless of completion order.
func (p *Pipeline) scanConcentrations(ctx context.Context, links []catalog.ConcentrationLink, majorSubjects []string) []concentrationOutcome {
	workers := p.config.Concurrency.ConcentrationWorkers
	if workers <= 0 {
		workers = 1
	}

	outcomes := make([]concentrationOutcome, len(links))
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, link := range links {
		wg.Add(1)
		go func(idx int, link catalog.ConcentrationLink) {
			defer wg.Done()
			outcomes[idx].link = link

			select {
			case <-ctx.Done():
				outcomes[idx].err = ctx.Err()
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			outcomes[idx].result, outcomes[idx].err = p.scanConcentration(ctx, link, majorSubjects)
			if outcomes[idx].err != nil {
				p.warnf("excluding concentration %s (%s): %v", link.ID, link.URL, outcomes[idx].err)
			} else if p.config.Output.Verbose {
				fmt.Fprintf(p.stderr, "✓ Parsed concentration %s\n", link.ID)
			}
		}(i, link)
	}

	wg.Wait()
	return outcomes
}

func (p *Pipeline) scanConcentration(ctx context.Context, link catalog.ConcentrationLink, majorSubjects []string) (*catalog.DocumentResult, error) {
	doc, _, err := p.fetcher.FetchDocument(ctx, link.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return catalog.ParseDocument(doc, p.parseOptions(link.ID, majorSubjects))
}

// mergeConcentrations folds settled concentration results into the report, keyed by id
func mergeConcentrations(report *model.Report, outcomes []concentrationOutcome) {
	for _, o := range outcomes {
		if o.err != nil {
			category := model.DiagFetch
			if errors.Is(o.err, catalog.ErrNoRequirementTables) {
				category = model.DiagTableShape
			}
			report.Excluded = append(report.Excluded, model.ExcludedScope{
				ID:    o.link.ID,
				Link:  o.link.URL,
				Error: o.err.Error(),
			})
			report.Diagnostics = append(report.Diagnostics, model.Diagnostic{
				Source:   o.link.ID,
				RowIndex: -1,
				RowText:  o.link.URL,
				Reason:   "concentration excluded: " + o.err.Error(),
				Category: category,
			})
			continue
		}

		if report.Requirements.Concentrations == nil {
			report.Requirements.Concentrations = make(map[string][]model.Section)
		}
		if report.Requirements.Courses == nil {
			report.Requirements.Courses = make(map[string]model.CourseInfo)
		}
		report.Requirements.Concentrations[o.link.ID] = append(report.Requirements.Concentrations[o.link.ID], o.result.Sections...)
		catalog.MergeCourses(report.Requirements.Courses, o.result.Courses)
		report.Diagnostics = append(report.Diagnostics, o.result.Diagnostics...)
		report.Stats.Add(o.result.Stats)
		if report.SourceStats == nil {
			report.SourceStats = make(map[string]model.ParseStats)
		}
		stats := report.SourceStats[o.link.ID]
		stats.Add(o.result.Stats)
		report.SourceStats[o.link.ID] = stats
	}
}

// MajorSubjects returns the sorted subject prefixes of every course in the major sections
func MajorSubjects(sections []model.Section) []string {
	seen := make(map[string]bool)
	for _, s := range sections {
		if s.Kind != model.SectionMajor {
			continue
		}
		for _, req := range s.Requirements {
			for _, code := range req.Codes() {
				if subject := catalog.SubjectOf(code); subject != "" {
					seen[subject] = true
				}
			}
		}
	}
	subjects := make([]string, 0, len(seen))
	for subject := range seen {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	return subjects
}

// summarize attaches the LLM narrative. It runs after parsing and never changes the requirements.
func (p *Pipeline) summarize(ctx context.Context, report *model.Report) {
	if p.summarizer == nil || !p.summarizer.IsEnabled() {
		return
	}
	summary, err := p.summarizer.GenerateSummary(ctx, *report)
	if err != nil {
		p.warnf("LLM summary generation failed: %v", err)
		return
	}
	report.LLM = summary
}

// OutputPaths names the files a report is written to; empty paths are skipped
type OutputPaths struct {
	JSON     string
	YAML     string
	Markdown string
}

// RenderReport writes the report to every requested output and prints a console summary
func (p *Pipeline) RenderReport(report *model.Report, paths OutputPaths, verbose bool) error {
	if paths.JSON != "" {
		if err := p.renderer.RenderJSON(report, paths.JSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(p.stderr, "✓ Wrote JSON: %s\n", paths.JSON)
		}
	}

	if paths.YAML != "" {
		if err := p.renderer.RenderYAML(report, paths.YAML); err != nil {
			return fmt.Errorf("render YAML: %w", err)
		}
		if verbose {
			fmt.Fprintf(p.stderr, "✓ Wrote YAML: %s\n", paths.YAML)
		}
	}

	if paths.Markdown != "" {
		if err := p.renderer.RenderMarkdown(report, paths.Markdown); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(p.stderr, "✓ Wrote Markdown: %s\n", paths.Markdown)
		}

		if report.LLM != nil && report.LLM.Enabled {
			llmPath := strings.TrimSuffix(paths.Markdown, ".md") + ".llm.md"
			if err := p.renderer.RenderLLMMarkdown(llm.RenderSeparateMarkdown(report.LLM), llmPath); err != nil {
				p.warnf("failed to write LLM summary: %v", err)
			} else if verbose {
				fmt.Fprintf(p.stderr, "✓ Wrote LLM Summary: %s\n", llmPath)
			}
		}
	}

	p.renderer.RenderSummary(report)
	return nil
}
