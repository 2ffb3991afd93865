package catalog

import (
	"regexp"
	"strings"

	"github.com/ppiankov/polyreq/internal/model"
)

const (
	defaultMajorHeader    = "MAJOR COURSES"
	defaultElectiveHeader = "Technical Electives"
)

var electiveHeader = regexp.MustCompile(`(?i)^(.*?)\s*\belectives?\b`)

// ClassifySection maps a header title to exactly one section kind.
// Rules apply in priority order; anything unmatched is unclassified and keeps the raw title.
func ClassifySection(title string) (model.SectionKind, string) {
	upper := strings.ToUpper(title)
	switch {
	case strings.Contains(upper, "MAJOR COURSES"):
		return model.SectionMajor, ""
	case electiveHeader.MatchString(title):
		prefix := electiveHeader.FindStringSubmatch(title)[1]
		return model.SectionElective, strings.TrimSpace(strings.Trim(prefix, ":-,"))
	case strings.Contains(upper, "GENERAL EDUCATION"):
		return model.SectionGE, ""
	case strings.Contains(upper, "SUPPORT COURSES"):
		return model.SectionSupport, ""
	default:
		return model.SectionUnclassified, title
	}
}

// Disposition records what became of a row
type Disposition int

const (
	DispositionNone       Disposition = iota // not yet consumed
	DispositionNode                          // absorbed into exactly one output node
	DispositionStructural                    // header, comment, summary, or suppressed row
	DispositionDiagnostic                    // reported in the diagnostics list
)

func (d Disposition) String() string {
	switch d {
	case DispositionNode:
		return "node"
	case DispositionStructural:
		return "structural"
	case DispositionDiagnostic:
		return "diagnostic"
	default:
		return "none"
	}
}

// ParseOptions tunes a table scan
type ParseOptions struct {
	// Source names the document in diagnostics
	Source string
	// MajorSubjects are subject prefixes (e.g. "CSC") that mark a header-less
	// table's first course as a major course
	MajorSubjects []string
	// Logf receives warnings as they are found; nil discards them
	Logf func(format string, args ...any)
}

func (o ParseOptions) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}

// TableResult is the outcome of scanning one requirements table
type TableResult struct {
	Sections     []model.Section
	Courses      map[string]model.CourseInfo
	Diagnostics  []model.Diagnostic
	Dispositions []Disposition
	Unrecognized int // rows classified as Unrecognized
}

// Stats counts the table's row dispositions
func (r TableResult) Stats() model.ParseStats {
	return dispositionStats(r.Dispositions, r.Unrecognized)
}

// ParseRequirementRows scans a requirements table: it classifies each row,
// routes course rows through the select-from-the-following resolver and the
// or-merge rules, and folds the resulting nodes into closed sections.
func ParseRequirementRows(rows []RowRecord, opts ParseOptions) TableResult {
	s := &tableScan{
		opts:         opts,
		rows:         rows,
		courses:      make(map[string]model.CourseInfo),
		dispositions: make([]Disposition, len(rows)),
	}
	for i, row := range rows {
		row.Index = i
		s.step(Classify(row))
	}
	s.closeSection()

	return TableResult{
		Sections:     s.closed,
		Courses:      s.courses,
		Diagnostics:  s.diagnostics,
		Dispositions: s.dispositions,
		Unrecognized: s.unrecognized,
	}
}

// openSection accumulates top-level items until the next header
type openSection struct {
	kind   model.SectionKind
	detail string
	title  string
	items  []model.Requirement
}

type tableScan struct {
	opts ParseOptions
	rows []RowRecord

	closed  []model.Section
	current *openSection

	state     blockState
	block     model.Requirement // Or accumulator while a block is open
	opener    int               // row index of the block's opening comment
	pendingOr int               // row index of an armed loose "or"

	courses      map[string]model.CourseInfo
	diagnostics  []model.Diagnostic
	dispositions []Disposition
	unrecognized int
}

func (s *tableScan) step(c ClassifiedRow) {
	switch c.Kind {
	case KindAreaHeader:
		s.onHeader(c)
	case KindComment:
		s.onComment(c)
	case KindListSum:
		s.mark(c.Row.Index, DispositionStructural)
	case KindCourse:
		s.onCourse(c)
	default:
		s.unrecognized++
		category := model.DiagClassification
		if c.Grammar {
			category = model.DiagGrammar
		}
		s.reject(c.Row, category, c.Reason)
	}
}

func (s *tableScan) onHeader(c ClassifiedRow) {
	s.closeSection()
	s.mark(c.Row.Index, DispositionStructural)
	if c.Title == "" {
		s.opts.logf("header row %d has no text", c.Row.Index)
	}
	s.open(c.Title)
}

func (s *tableScan) onComment(c ClassifiedRow) {
	switch classifyComment(c.Text) {
	case commentSFTF:
		s.ensureSection(c)
		s.closeBlock()
		s.state = blockOpen
		s.block = model.NewOr(0)
		s.opener = c.Row.Index
		s.mark(c.Row.Index, DispositionStructural)
	case commentOr:
		s.ensureSection(c)
		next, ok := nextOnOr(s.state, len(s.current.items) > 0)
		if !ok {
			s.reject(c.Row, model.DiagGrammar, `"or" row has no preceding alternative`)
			return
		}
		if next == looseOr {
			s.pendingOr = c.Row.Index
		}
		s.state = next
		s.mark(c.Row.Index, DispositionStructural)
	default:
		s.opts.logf("ignoring comment row %d: %q", c.Row.Index, c.Text)
		s.mark(c.Row.Index, DispositionStructural)
	}
}

func (s *tableScan) onCourse(c ClassifiedRow) {
	s.ensureSection(c)
	req := requirementFromRow(c)

	next, action := nextOnCourse(s.state, len(s.block.Children), c.IsOrOption)
	switch action {
	case actionPushOption:
		s.block = appendOption(s.block, req)
	case actionCloseAndAppend:
		s.closeBlock()
		s.current.items = append(s.current.items, req)
	case actionMerge:
		last := len(s.current.items) - 1
		if last < 0 {
			s.state = next
			s.reject(c.Row, model.DiagGrammar, "or-option row has no preceding item to merge with")
			return
		}
		s.current.items[last] = mergeOr(s.current.items[last], req)
	default:
		s.current.items = append(s.current.items, req)
	}
	s.state = next
	s.recordCourses(c)
	s.mark(c.Row.Index, DispositionNode)
}

// ensureSection synthesizes a default header for tables that start without one
func (s *tableScan) ensureSection(first ClassifiedRow) {
	if s.current != nil {
		return
	}
	title := defaultElectiveHeader
	if first.Kind == KindCourse && !first.IsOrOption && !first.IsAnd && s.isMajorCode(first.Courses[0].Code) {
		title = defaultMajorHeader
	}
	s.opts.logf("table has no leading header, assuming %q", title)
	s.open(title)
}

func (s *tableScan) isMajorCode(code string) bool {
	subject := SubjectOf(code)
	for _, major := range s.opts.MajorSubjects {
		if strings.EqualFold(major, subject) {
			return true
		}
	}
	return false
}

func (s *tableScan) open(title string) {
	kind, detail := ClassifySection(title)
	s.current = &openSection{kind: kind, detail: detail, title: title}
}

// closeBlock finishes an open select-from-the-following block and any armed loose "or"
func (s *tableScan) closeBlock() {
	switch {
	case s.state.inBlock():
		if reduced, ok := collapse(s.block); ok {
			s.current.items = append(s.current.items, reduced)
		} else {
			s.diagnose(s.opener, model.DiagGrammar, "empty select-from-the-following block")
		}
	case s.state == looseOr:
		s.diagnose(s.pendingOr, model.DiagGrammar, `"or" row is not followed by a course`)
	}
	s.state = blockNone
	s.block = model.Requirement{}
}

func (s *tableScan) closeSection() {
	if s.current == nil {
		return
	}
	s.closeBlock()
	items := s.current.items
	if items == nil {
		items = []model.Requirement{}
	}
	s.closed = append(s.closed, model.Section{
		Kind:         s.current.kind,
		KindDetail:   s.current.detail,
		Title:        s.current.title,
		Requirements: items,
	})
	s.current = nil
}

func (s *tableScan) recordCourses(c ClassifiedRow) {
	for _, cell := range c.Courses {
		units := c.Units
		if c.IsAnd {
			units = 0
		}
		info := model.CourseInfo{Code: cell.Code, Title: cell.Title, Units: units}
		if existing, ok := s.courses[cell.Code]; ok && existing.Units > info.Units {
			info.Units = existing.Units
		}
		s.courses[cell.Code] = info
	}
	if c.IsAnd {
		titled := 0
		for _, cell := range c.Courses {
			if cell.Title != "" {
				titled++
			}
		}
		if titled != len(c.Courses) {
			s.opts.logf("row %d: %d course codes but %d titles", c.Row.Index, len(c.Courses), titled)
		}
	}
}

func (s *tableScan) mark(index int, d Disposition) {
	if index >= 0 && index < len(s.dispositions) {
		s.dispositions[index] = d
	}
}

func (s *tableScan) reject(row RowRecord, category model.DiagnosticCategory, reason string) {
	s.opts.logf("row %d: %s: %s", row.Index, reason, row.Text)
	s.diagnostics = append(s.diagnostics, model.Diagnostic{
		Source:   s.opts.Source,
		RowIndex: row.Index,
		RowText:  row.Text,
		Reason:   reason,
		Category: category,
	})
	s.mark(row.Index, DispositionDiagnostic)
}

// diagnose turns an already-consumed structural row into a diagnostic
func (s *tableScan) diagnose(index int, category model.DiagnosticCategory, reason string) {
	s.opts.logf("row %d: %s", index, reason)
	text := ""
	if index >= 0 && index < len(s.rows) {
		text = s.rows[index].Text
	}
	s.diagnostics = append(s.diagnostics, model.Diagnostic{
		Source:   s.opts.Source,
		RowIndex: index,
		RowText:  text,
		Reason:   reason,
		Category: category,
	})
	s.mark(index, DispositionDiagnostic)
}

// SubjectOf returns the subject prefix of a course code ("CSC 101" -> "CSC", "CSC/CPE 101" -> "CSC")
func SubjectOf(code string) string {
	subject, _, _ := strings.Cut(strings.TrimSpace(code), " ")
	subject, _, _ = strings.Cut(subject, "/")
	return strings.ToUpper(subject)
}

func dispositionStats(dispositions []Disposition, unrecognized int) model.ParseStats {
	stats := model.ParseStats{Tables: 1, Rows: len(dispositions), Unrecognized: unrecognized}
	for _, d := range dispositions {
		switch d {
		case DispositionNode:
			stats.NodeRows++
		case DispositionStructural:
			stats.Structural++
		case DispositionDiagnostic:
			stats.Diagnostics++
		}
	}
	return stats
}
