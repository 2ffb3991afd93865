package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/polyreq/internal/model"
)

// Renderer writes reports to files and prints console summaries
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer that prints summaries to stdout
func NewRenderer() *Renderer {
	return &Renderer{out: os.Stdout}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderYAML writes the report as YAML
func (r *Renderer) RenderYAML(report *model.Report, path string) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return writeFile(path, data)
}

// RenderMarkdown writes a human-readable report
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(MarkdownReport(report)))
}

// RenderLLMMarkdown writes the separately generated LLM summary
func (r *Renderer) RenderLLMMarkdown(markdown, path string) error {
	if markdown == "" {
		return nil
	}
	return writeFile(path, []byte(markdown))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// MarkdownReport renders the report's requirement trees as nested lists
func MarkdownReport(report *model.Report) string {
	var b strings.Builder
	reqs := report.Requirements

	title := report.Degree.Name
	if report.Degree.Kind != "" {
		title += ", " + report.Degree.Kind
	}
	if title == "" {
		title = report.Degree.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- **Source:** %s\n", report.SourceURL)
	if !report.FetchedAt.IsZero() {
		fmt.Fprintf(&b, "- **Fetched:** %s\n", report.FetchedAt.Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintf(&b, "- **Rows:** %d parsed, %d diagnostics\n", report.Stats.Rows, report.Stats.Diagnostics)
	for _, source := range unrecognizedSources(report.SourceStats) {
		fmt.Fprintf(&b, "- **Unrecognized in %s:** %d rows\n", source, report.SourceStats[source].Unrecognized)
	}
	b.WriteString("\n")

	writeSections(&b, "##", reqs.Sections, reqs.Courses)

	if len(reqs.GERequirements) > 0 {
		b.WriteString("## General Education\n\n")
		b.WriteString("| Area | Subarea | Units | Label |\n|---|---|---|---|\n")
		for _, ge := range reqs.GERequirements {
			fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", ge.Area, ge.Subarea, ge.Units, escapeCell(ge.Label))
		}
		b.WriteString("\n")
	}

	if len(reqs.Concentrations) > 0 {
		b.WriteString("## Concentrations\n\n")
		ids := make([]string, 0, len(reqs.Concentrations))
		for id := range reqs.Concentrations {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "### %s\n\n", id)
			writeSections(&b, "####", reqs.Concentrations[id], reqs.Courses)
		}
	}

	if len(report.Excluded) > 0 {
		b.WriteString("## Excluded Concentrations\n\n")
		for _, e := range report.Excluded {
			fmt.Fprintf(&b, "- `%s` (%s): %s\n", e.ID, e.Link, e.Error)
		}
		b.WriteString("\n")
	}

	if len(report.Diagnostics) > 0 {
		b.WriteString("## Diagnostics\n\n")
		b.WriteString("| Source | Row | Category | Reason | Text |\n|---|---|---|---|---|\n")
		for _, d := range report.Diagnostics {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s |\n",
				d.Source, d.RowIndex, d.Category, escapeCell(d.Reason), escapeCell(d.RowText))
		}
		b.WriteString("\n")
	}

	if report.LLM != nil && report.LLM.Enabled && report.LLM.SummaryMD != "" {
		b.WriteString("---\n\n_An LLM-generated summary is available in the accompanying .llm.md file._\n")
	}
	return b.String()
}

func writeSections(b *strings.Builder, level string, sections []model.Section, courses map[string]model.CourseInfo) {
	for _, s := range sections {
		fmt.Fprintf(b, "%s %s (%s, %d units)\n\n", level, s.Title, s.Kind, s.Units())
		if len(s.Requirements) == 0 {
			b.WriteString("_No requirements._\n\n")
			continue
		}
		for _, req := range s.Requirements {
			writeRequirement(b, req, courses, 0)
		}
		b.WriteString("\n")
	}
}

func writeRequirement(b *strings.Builder, req model.Requirement, courses map[string]model.CourseInfo, depth int) {
	indent := strings.Repeat("  ", depth)
	switch req.Kind {
	case model.RequirementCourse:
		line := req.Code
		if info, ok := courses[req.Code]; ok && info.Title != "" {
			line += " " + info.Title
		}
		fmt.Fprintf(b, "%s- %s (%d)\n", indent, line, req.Units)
	case model.RequirementAnd:
		fmt.Fprintf(b, "%s- All of (%d):\n", indent, req.Units)
	case model.RequirementOr:
		fmt.Fprintf(b, "%s- One of (%d):\n", indent, req.Units)
	}
	for _, child := range req.Children {
		writeRequirement(b, child, courses, depth+1)
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderSummary prints a short report summary
func (r *Renderer) RenderSummary(report *model.Report) {
	reqs := report.Requirements
	name := report.Degree.Name
	if name == "" {
		name = report.Degree.ID
	}

	fmt.Fprintf(r.out, "\n%s", name)
	if report.Degree.Kind != "" {
		fmt.Fprintf(r.out, ", %s", report.Degree.Kind)
	}
	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "  Sections:        %d\n", len(reqs.Sections))
	for _, s := range reqs.Sections {
		fmt.Fprintf(r.out, "    %-40s %3d units  %2d requirements\n", truncate(s.Title, 40), s.Units(), len(s.Requirements))
	}
	fmt.Fprintf(r.out, "  GE requirements: %d\n", len(reqs.GERequirements))
	fmt.Fprintf(r.out, "  Concentrations:  %d parsed, %d excluded\n", len(reqs.Concentrations), len(report.Excluded))
	fmt.Fprintf(r.out, "  Courses:         %d\n", len(reqs.Courses))
	fmt.Fprintf(r.out, "  Rows:            %d (%d node, %d structural, %d diagnostic)\n",
		report.Stats.Rows, report.Stats.NodeRows, report.Stats.Structural, report.Stats.Diagnostics)
	for _, source := range unrecognizedSources(report.SourceStats) {
		fmt.Fprintf(r.out, "    %-40s %3d unrecognized rows\n", truncate(source, 40), report.SourceStats[source].Unrecognized)
	}
	if report.FetchMeta.FromCache {
		fmt.Fprintln(r.out, "  (served from cache)")
	}
}

// unrecognizedSources returns the sorted sources that left rows unrecognized
func unrecognizedSources(stats map[string]model.ParseStats) []string {
	var sources []string
	for source, s := range stats {
		if s.Unrecognized > 0 {
			sources = append(sources, source)
		}
	}
	sort.Strings(sources)
	return sources
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
