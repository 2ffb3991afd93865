package llm

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/polyreq/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *SummarizeResponse
	err       error
	lastReq   SummarizeRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func testReport() model.Report {
	return model.Report{
		Degree: model.Degree{Name: "Computer Science", Kind: "BS", ID: "computersciencebs"},
		Requirements: model.DegreeRequirements{
			Sections: []model.Section{
				{Kind: model.SectionMajor, Title: "MAJOR COURSES", Requirements: []model.Requirement{
					model.NewCourse("CSC 101", 4),
					model.NewOr(4, model.NewCourse("CSC 348", 4), model.NewCourse("MATH 248", 0)),
				}},
			},
			GERequirements: []model.GERequirement{{Area: model.GEAreaA, Subarea: "A1", Units: 4}},
			Concentrations: map[string][]model.Section{
				"aiconcentration": {{Kind: model.SectionElective, Title: "Select from", Requirements: []model.Requirement{
					model.NewCourse("CSC 480", 4),
				}}},
			},
		},
	}
}

func TestNewSummarizer_DisabledProvider(t *testing.T) {
	summarizer, err := NewSummarizer(Config{Provider: ""})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summarizer.IsEnabled() {
		t.Error("Expected summarizer to be disabled")
	}
	if summarizer.ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}
}

func TestNewSummarizer_UnknownProvider(t *testing.T) {
	if _, err := NewSummarizer(Config{Provider: "anthropic"}); err == nil {
		t.Fatal("Expected error for unsupported provider")
	}
}

func TestSummarizer_GenerateSummary_Disabled(t *testing.T) {
	summarizer := &Summarizer{}
	summary, err := summarizer.GenerateSummary(context.Background(), testReport())
	if err != nil || summary != nil {
		t.Errorf("Expected (nil, nil) when disabled, got (%v, %v)", summary, err)
	}
}

func TestSummarizer_GenerateSummary_ProviderUnavailable(t *testing.T) {
	summarizer := &Summarizer{
		provider: &MockProvider{name: "test-provider", available: false},
		config:   Config{StrictCodes: true},
	}

	summary, err := summarizer.GenerateSummary(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary == nil || summary.Enabled {
		t.Fatalf("Expected disabled summary with warnings, got %+v", summary)
	}
	if len(summary.Warnings) == 0 || !strings.Contains(summary.Warnings[0], "not available") {
		t.Errorf("Expected unavailability warning, got %v", summary.Warnings)
	}
}

func TestSummarizer_GenerateSummary_Success(t *testing.T) {
	mock := &MockProvider{
		name:      "test-provider",
		available: true,
		response: &SummarizeResponse{
			Summary:    "Students take CSC 101 and one of CSC 348 or MATH 248.",
			CitedCodes: []string{"CSC 101", "CSC 348", "MATH 248"},
			Model:      "test-model",
			TokensUsed: 150,
		},
	}
	summarizer := &Summarizer{provider: mock, config: Config{Model: "test-model", StrictCodes: true}}

	summary, err := summarizer.GenerateSummary(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !summary.Enabled || summary.Provider != "test-provider" || summary.Model != "test-model" {
		t.Errorf("unexpected summary header %+v", summary)
	}
	if !summary.StrictCodes {
		t.Error("Expected strict course codes to be recorded")
	}
	if summary.SummaryMD != mock.response.Summary {
		t.Errorf("SummaryMD = %q", summary.SummaryMD)
	}

	wantAllowed := []string{"CSC 101", "CSC 348", "CSC 480", "MATH 248"}
	if !reflect.DeepEqual(mock.lastReq.AllowedCodes, wantAllowed) {
		t.Errorf("AllowedCodes = %v, want %v", mock.lastReq.AllowedCodes, wantAllowed)
	}

	joined := strings.Join(summary.Warnings, "\n")
	if !strings.Contains(joined, "Tokens used: 150") || !strings.Contains(joined, "Verified 3 course codes") {
		t.Errorf("unexpected warnings %v", summary.Warnings)
	}
}

func TestSummarizer_GenerateSummary_ProviderError(t *testing.T) {
	summarizer := &Summarizer{
		provider: &MockProvider{name: "test-provider", available: true, err: errors.New("API rate limit exceeded")},
		config:   Config{StrictCodes: true},
	}

	summary, err := summarizer.GenerateSummary(context.Background(), testReport())
	if err != nil {
		t.Errorf("Expected graceful degradation, got %v", err)
	}
	if summary == nil || !summary.Enabled {
		t.Fatalf("Expected enabled summary with warning, got %+v", summary)
	}
	if !strings.Contains(strings.Join(summary.Warnings, " "), "failed: API rate limit") {
		t.Errorf("Expected warning to mention error: %v", summary.Warnings)
	}
}

func TestAllowedCodes_IncludesCourseIndex(t *testing.T) {
	report := testReport()
	report.Requirements.Courses = map[string]model.CourseInfo{"STAT 312": {Code: "STAT 312", Units: 4}}
	codes := AllowedCodes(report)
	found := false
	for _, c := range codes {
		if c == "STAT 312" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected STAT 312 in %v", codes)
	}
}

func TestRenderSeparateMarkdown(t *testing.T) {
	if RenderSeparateMarkdown(nil) != "" {
		t.Error("Expected empty markdown when nil")
	}
	if RenderSeparateMarkdown(&model.LLMSummary{Enabled: false}) != "" {
		t.Error("Expected empty markdown when disabled")
	}

	md := RenderSeparateMarkdown(&model.LLMSummary{
		Enabled:     true,
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		StrictCodes: true,
		SummaryMD:   "Students take CSC 101.",
		Warnings:    []string{"Tokens used: 150"},
	})
	for _, want := range []string{
		"# LLM Summary",
		"GENERATED CONTENT",
		"determined independently",
		"**Provider:** openai",
		"**Model:** gpt-4o-mini",
		"**Strict Course Codes:** true",
		"Students take CSC 101.",
		"## Notes",
		"Tokens used: 150",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected markdown to contain %q", want)
		}
	}

	empty := RenderSeparateMarkdown(&model.LLMSummary{Enabled: true, Provider: "ollama"})
	if !strings.Contains(empty, "No summary generated") {
		t.Error("Expected message about no summary")
	}
}

func TestBuildPrompt(t *testing.T) {
	report := testReport()
	report.Stats.Diagnostics = 2
	prompt := BuildPrompt(report, AllowedCodes(report))

	for _, want := range []string{
		"CRITICAL RULES",
		"MAY ONLY mention course codes from this allowed list",
		"- CSC 348",
		"Name: Computer Science",
		"Kind: BS",
		"Sections: 1",
		"GE requirements: 1",
		"Concentrations: 1",
		"Unparsed rows: 2",
		"MAJOR COURSES (major, 8 units, 2 requirements)",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}

func TestJoinCodes(t *testing.T) {
	if !strings.Contains(joinCodes(nil), "No course codes available") {
		t.Error("Expected message about no codes")
	}

	codes := make([]string, maxPromptCodes+5)
	for i := range codes {
		codes[i] = "CSC 1" + string(rune('0'+i%10)) + "0"
	}
	if !strings.Contains(joinCodes(codes), "and 5 more codes") {
		t.Error("Expected truncation message")
	}
}

func TestExtractCourseCodes(t *testing.T) {
	text := "Take CSC 101, then CSC 202 or MATH 248. CSC 101 again; BIO 161L lab. Not a code: A 1 or Section 12."
	want := []string{"CSC 101", "CSC 202", "MATH 248", "BIO 161L"}
	if got := extractCourseCodes(text); !reflect.DeepEqual(got, want) {
		t.Errorf("extractCourseCodes = %v, want %v", got, want)
	}
}

func TestCheckCodes(t *testing.T) {
	allowed := []string{"CSC 101", "CSC 202"}
	if err := checkCodes(true, []string{"CSC 101"}, allowed); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	err := checkCodes(true, []string{"CSC 999"}, allowed)
	if err == nil || !strings.Contains(err.Error(), "CODE LEAK") {
		t.Errorf("expected CODE LEAK, got %v", err)
	}
	if err := checkCodes(false, []string{"CSC 999"}, allowed); err != nil {
		t.Errorf("non-strict mode should not fail: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.Provider != "" {
		t.Errorf("Expected provider disabled, got %q", config.Provider)
	}
	if !config.StrictCodes {
		t.Error("Expected strict course codes by default")
	}
	if config.Timeout <= 0 || config.MaxTokens <= 0 {
		t.Error("Expected positive timeout and max tokens")
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "llama3.1"
	cfg.HTTP.HTTPSProxy = "http://proxy:3128"

	got := ConfigFromModel(*cfg)
	if got.Provider != "ollama" || got.Model != "llama3.1" || !got.StrictCodes || got.HTTPSProxy != "http://proxy:3128" {
		t.Errorf("ConfigFromModel = %+v", got)
	}
}
