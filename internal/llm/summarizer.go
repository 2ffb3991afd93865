package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/polyreq/internal/model"
)

// Summarizer produces the optional narrative for a report.
// It runs after parsing and never alters the parsed requirements.
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer; an empty provider yields a disabled summarizer
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s.provider != nil
}

// ProviderName returns the configured provider name, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary asks the provider for a narrative. Provider failures are
// reported as warnings on the summary rather than returned as errors.
func (s *Summarizer) GenerateSummary(ctx context.Context, report model.Report) (*model.LLMSummary, error) {
	if s.provider == nil {
		return nil, nil
	}

	summary := &model.LLMSummary{
		Enabled:     true,
		Provider:    s.provider.Name(),
		Model:       s.config.Model,
		StrictCodes: s.config.StrictCodes,
	}

	if !s.provider.IsAvailable(ctx) {
		summary.Enabled = false
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM provider %s is not available", s.provider.Name()))
		return summary, nil
	}

	allowed := AllowedCodes(report)
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:       report,
		AllowedCodes: allowed,
		Model:        s.config.Model,
		MaxTokens:    s.config.MaxTokens,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM summary generation failed: %v", err))
		return summary, nil
	}

	summary.SummaryMD = resp.Summary
	if resp.Model != "" {
		summary.Model = resp.Model
	}
	summary.Warnings = append(summary.Warnings,
		fmt.Sprintf("Tokens used: %d", resp.TokensUsed),
		fmt.Sprintf("Verified %d course codes against %d parsed codes", len(resp.CitedCodes), len(allowed)),
	)
	return summary, nil
}

// AllowedCodes collects every course code in the report's requirement trees, sorted
func AllowedCodes(report model.Report) []string {
	seen := make(map[string]bool)
	collect := func(sections []model.Section) {
		for _, section := range sections {
			for _, req := range section.Requirements {
				for _, code := range req.Codes() {
					seen[code] = true
				}
			}
		}
	}
	collect(report.Requirements.Sections)
	for _, sections := range report.Requirements.Concentrations {
		collect(sections)
	}
	for code := range report.Requirements.Courses {
		seen[code] = true
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// RenderSeparateMarkdown renders the summary as a standalone markdown file
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# LLM Summary\n\n")
	b.WriteString("> **GENERATED CONTENT.** The requirement trees in the main report were parsed ")
	b.WriteString("from the catalog and determined independently of this text.\n\n")
	fmt.Fprintf(&b, "- **Provider:** %s\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "- **Model:** %s\n", summary.Model)
	}
	fmt.Fprintf(&b, "- **Strict Course Codes:** %t\n\n", summary.StrictCodes)

	b.WriteString("## Summary\n\n")
	if summary.SummaryMD == "" {
		b.WriteString("_No summary generated._\n")
	} else {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
