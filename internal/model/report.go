package model

import "time"

// Report is the complete result of scraping one degree
type Report struct {
	Degree    Degree    `json:"degree" yaml:"degree"`         // Degree the report describes
	SourceURL string    `json:"source_url" yaml:"source_url"` // Degree page that was scanned
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"` // When the scan occurred
	FetchMeta FetchMeta `json:"fetch_meta" yaml:"fetch_meta"` // HTTP metadata of the main document

	Requirements DegreeRequirements `json:"requirements" yaml:"requirements"`

	Diagnostics []Diagnostic    `json:"diagnostics" yaml:"diagnostics"`               // Rows and tables that could not be parsed
	Excluded    []ExcludedScope `json:"excluded,omitempty" yaml:"excluded,omitempty"` // Concentrations left out of the aggregate
	Stats       ParseStats      `json:"stats" yaml:"stats"`

	// SourceStats breaks Stats down per parsed page, keyed by degree or concentration id
	SourceStats map[string]ParseStats `json:"source_stats,omitempty" yaml:"source_stats,omitempty"`

	LLM *LLMSummary `json:"llm,omitempty" yaml:"llm,omitempty"` // Optional narrative, never affects parsing
}

// Degree identifies a degree program in the catalog
type Degree struct {
	Name         string `json:"name" yaml:"name"`
	Kind         string `json:"kind,omitempty" yaml:"kind,omitempty"` // BA, BS, BFA, BArch, BLA
	Link         string `json:"link" yaml:"link"`
	ID           string `json:"id" yaml:"id"`
	DepartmentID string `json:"department_id,omitempty" yaml:"department_id,omitempty"`
}

// FetchMeta contains HTTP metadata from fetching the source
type FetchMeta struct {
	StatusCode   int               `json:"status_code" yaml:"status_code"`
	ContentType  string            `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty" yaml:"etag,omitempty"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	FromCache    bool              `json:"from_cache,omitempty" yaml:"from_cache,omitempty"`
}

// DiagnosticCategory classifies a parse problem
type DiagnosticCategory string

const (
	DiagClassification DiagnosticCategory = "classification" // Row matches no known layout
	DiagGrammar        DiagnosticCategory = "grammar"        // Row violates the table grammar
	DiagGELabel        DiagnosticCategory = "ge_label"       // GE label failed pattern matching
	DiagTableShape     DiagnosticCategory = "table_shape"    // Table of unrecognized kind
	DiagFetch          DiagnosticCategory = "fetch"          // Upstream document could not be fetched
)

// Diagnostic records one row or table the parser could not use
type Diagnostic struct {
	Source   string             `json:"source,omitempty" yaml:"source,omitempty"` // Document or concentration the row came from
	RowIndex int                `json:"row_index" yaml:"row_index"`               // -1 when not tied to a row
	RowText  string             `json:"row_text" yaml:"row_text"`
	Reason   string             `json:"reason" yaml:"reason"`
	Category DiagnosticCategory `json:"category" yaml:"category"`
}

// ExcludedScope records a concentration excluded from the aggregate
type ExcludedScope struct {
	ID    string `json:"id" yaml:"id"`
	Link  string `json:"link" yaml:"link"`
	Error string `json:"error" yaml:"error"`
}

// ParseStats summarizes row dispositions across all parsed tables
type ParseStats struct {
	Tables       int `json:"tables" yaml:"tables"`
	Rows         int `json:"rows" yaml:"rows"`
	NodeRows     int `json:"node_rows" yaml:"node_rows"`
	Structural   int `json:"structural_rows" yaml:"structural_rows"`
	Diagnostics  int `json:"diagnostic_rows" yaml:"diagnostic_rows"`
	Unrecognized int `json:"unrecognized_rows" yaml:"unrecognized_rows"`
}

// Add accumulates another set of stats
func (s *ParseStats) Add(other ParseStats) {
	s.Tables += other.Tables
	s.Rows += other.Rows
	s.NodeRows += other.NodeRows
	s.Structural += other.Structural
	s.Diagnostics += other.Diagnostics
	s.Unrecognized += other.Unrecognized
}

// LLMSummary contains the optional LLM-generated narrative
type LLMSummary struct {
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	Provider    string   `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model       string   `json:"model,omitempty" yaml:"model,omitempty"`
	StrictCodes bool     `json:"strict_codes" yaml:"strict_codes"` // Whether course-code allowlist was enforced
	SummaryMD   string   `json:"summary_md,omitempty" yaml:"summary_md,omitempty"`
	Warnings    []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}
