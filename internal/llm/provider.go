package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/polyreq/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize describes a degree report using only allowlisted course codes
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Report is the parsed degree report to summarize
	Report model.Report

	// AllowedCodes is the strict allowlist of course codes the LLM may mention.
	// Every code comes from the parsed requirement trees.
	AllowedCodes []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	Summary    string
	CitedCodes []string // Course codes found in the summary
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	Model   string
	APIKey  string
	BaseURL string
	Timeout int // seconds

	// StrictCodes rejects summaries that mention a course code not in the report
	StrictCodes bool

	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "", // Disabled by default
		Timeout:     30,
		StrictCodes: true,
		MaxTokens:   800,
	}
}

const systemPrompt = "You describe university degree requirements using only the course codes you are given."

// BuildPrompt constructs the default prompt for a degree report
func BuildPrompt(report model.Report, allowedCodes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are summarizing the parsed requirements of a degree program.

CRITICAL RULES:
1. You MAY ONLY mention course codes from this allowed list:
%s

2. DO NOT invent courses, prerequisites, or unit counts.
3. Describe alternatives ("one of") and bundles ("together with") as given.
4. If rows could not be parsed, say that the summary may be incomplete.

Degree:
- Name: %s
- Kind: %s
- Sections: %d
- GE requirements: %d
- Concentrations: %d
- Unparsed rows: %d

Sections:
`, joinCodes(allowedCodes), report.Degree.Name, report.Degree.Kind,
		len(report.Requirements.Sections), len(report.Requirements.GERequirements),
		len(report.Requirements.Concentrations), report.Stats.Diagnostics)

	for _, s := range report.Requirements.Sections {
		fmt.Fprintf(&b, "- %s (%s, %d units, %d requirements)\n", s.Title, s.Kind, s.Units(), len(s.Requirements))
	}

	b.WriteString("\nProvide a 3-5 sentence overview of what a student must take.")
	return b.String()
}

const maxPromptCodes = 60

func joinCodes(codes []string) string {
	if len(codes) == 0 {
		return "(No course codes available)"
	}
	var b strings.Builder
	for i, code := range codes {
		if i >= maxPromptCodes {
			fmt.Fprintf(&b, "\n... and %d more codes", len(codes)-maxPromptCodes)
			break
		}
		b.WriteString("\n- ")
		b.WriteString(code)
	}
	return b.String()
}

var courseCodePattern = regexp.MustCompile(`\b[A-Z]{2,5}[ \x{00A0}]\d{3,4}[A-Z]?\b`)

// extractCourseCodes finds every course-code-shaped token in text, deduplicated
func extractCourseCodes(text string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, code := range courseCodePattern.FindAllString(text, -1) {
		code = strings.ReplaceAll(code, "\u00a0", " ")
		if !seen[code] {
			seen[code] = true
			unique = append(unique, code)
		}
	}
	return unique
}

// checkCodes verifies the cited codes against the allowlist when strict mode is on
func checkCodes(strict bool, cited, allowed []string) error {
	if !strict {
		return nil
	}
	allow := make(map[string]bool, len(allowed))
	for _, code := range allowed {
		allow[code] = true
	}
	for _, code := range cited {
		if !allow[code] {
			return fmt.Errorf("CODE LEAK: LLM mentioned course not in report: %s", code)
		}
	}
	return nil
}

// requestDefaults resolves model and token limits from the request, then config
func requestDefaults(req SummarizeRequest, config Config, fallbackModel string) (string, int) {
	modelName := req.Model
	if modelName == "" {
		modelName = config.Model
	}
	if modelName == "" {
		modelName = fallbackModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 800
	}
	return modelName, maxTokens
}
