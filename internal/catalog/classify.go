package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// RowKind is the classifier's tag for one row
type RowKind int

const (
	KindUnrecognized RowKind = iota
	KindAreaHeader
	KindComment
	KindCourse
	KindListSum
)

func (k RowKind) String() string {
	switch k {
	case KindAreaHeader:
		return "area_header"
	case KindComment:
		return "comment"
	case KindCourse:
		return "course"
	case KindListSum:
		return "list_sum"
	default:
		return "unrecognized"
	}
}

// ClassifiedRow is a row after classification
type ClassifiedRow struct {
	Kind RowKind
	Row  RowRecord

	Title string // AreaHeader: trimmed label, trailing parenthetical stripped
	Text  string // CommentRow: comment text

	Courses    []CourseCell // CourseRow: one cell, or several when IsAnd
	Units      int
	IsOrOption bool
	IsAnd      bool

	Reason string // Unrecognized: why the row matched no layout
	// Grammar is set when the row was rejected for violating the markup contract
	Grammar bool
}

var trailingParenthetical = regexp.MustCompile(`\s*\([^()]*\)\s*$`)

// Classify assigns a RowKind to a row. Rules apply in priority order:
// header, comment, summary, single course, conjoined courses, unrecognized.
func Classify(row RowRecord) ClassifiedRow {
	row = inferMarkers(row)
	units, _ := ParseUnits(row.Units)
	out := ClassifiedRow{Row: row, Units: units}

	switch {
	case row.Header:
		out.Kind = KindAreaHeader
		out.Title = headerTitle(row.Label)
	case row.Comment && len(row.Courses) == 0:
		out.Kind = KindComment
		out.Text = row.Label
	case row.Summary && len(row.Courses) == 0:
		out.Kind = KindListSum
	case len(row.Courses) == 1:
		out.Kind = KindCourse
		out.Courses = row.Courses
		out.IsOrOption = row.OrOption
	case len(row.Courses) > 1 && row.Conjunction:
		out.Kind = KindCourse
		out.Courses = row.Courses
		out.IsAnd = true
		out.IsOrOption = row.OrOption
	case len(row.Courses) > 1:
		out.Kind = KindUnrecognized
		out.Grammar = true
		out.Reason = "multiple course codes without a conjunction marker"
	default:
		out.Kind = KindUnrecognized
		out.Reason = "row matches no known layout"
	}
	return out
}

// headerTitle trims a header label and strips a trailing parenthetical such as "(24 units)"
func headerTitle(label string) string {
	title := strings.TrimSpace(label)
	for {
		stripped := trailingParenthetical.ReplaceAllString(title, "")
		if stripped == title || stripped == "" {
			return title
		}
		title = stripped
	}
}

// ParseUnits parses a units cell. Blank means 0 and is valid;
// a range such as "4-8" yields its lower bound. ok is false when no number is present.
func ParseUnits(raw string) (units int, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
