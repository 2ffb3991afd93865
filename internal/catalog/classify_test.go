package catalog

import "testing"

func headerRow(label string) RowRecord {
	return RowRecord{Header: true, Label: label, Text: label}
}

func commentRow(text string) RowRecord {
	return RowRecord{Comment: true, Label: text, Text: text}
}

func courseRow(code, units string, orOption bool) RowRecord {
	return RowRecord{
		OrOption: orOption,
		Label:    code,
		Courses:  []CourseCell{{Code: code}},
		Units:    units,
		Text:     code + " " + units,
	}
}

func andRow(units string, codes ...string) RowRecord {
	row := RowRecord{Conjunction: true, Units: units}
	for i, code := range codes {
		if i > 0 {
			row.Label += " & "
		}
		row.Label += code
		row.Courses = append(row.Courses, CourseCell{Code: code})
	}
	row.Text = row.Label
	return row
}

func summaryRow() RowRecord {
	return RowRecord{Summary: true, Label: "Total units", Units: "48", Text: "Total units 48"}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		row     RowRecord
		kind    RowKind
		units   int
		orOpt   bool
		isAnd   bool
		grammar bool
	}{
		{"header", headerRow("MAJOR COURSES"), KindAreaHeader, 0, false, false, false},
		{"comment", commentRow("Select from the following:"), KindComment, 0, false, false, false},
		{"summary", summaryRow(), KindListSum, 48, false, false, false},
		{"single course", courseRow("CSC 101", "4", false), KindCourse, 4, false, false, false},
		{"or option", courseRow("CSC 102", "4", true), KindCourse, 4, true, false, false},
		{"blank units", courseRow("CSC 103", "", false), KindCourse, 0, false, false, false},
		{"and row", andRow("8", "PHYS 141", "PHYS 142"), KindCourse, 8, false, true, false},
		{
			"codes without conjunction",
			RowRecord{Comment: false, Label: "CSC 101 CSC 102", Courses: []CourseCell{{Code: "CSC 101"}, {Code: "CSC 102"}}, Units: "4"},
			KindUnrecognized, 4, false, false, true,
		},
		{"empty row", RowRecord{Units: "4", Label: "see advisor"}, KindUnrecognized, 4, false, false, false},
		{"comment with a course cell is a course", RowRecord{Comment: true, Label: "CSC 101", Courses: []CourseCell{{Code: "CSC 101"}}}, KindCourse, 0, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.row)
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Units != tt.units {
				t.Errorf("Units = %d, want %d", got.Units, tt.units)
			}
			if got.IsOrOption != tt.orOpt {
				t.Errorf("IsOrOption = %v, want %v", got.IsOrOption, tt.orOpt)
			}
			if got.IsAnd != tt.isAnd {
				t.Errorf("IsAnd = %v, want %v", got.IsAnd, tt.isAnd)
			}
			if got.Grammar != tt.grammar {
				t.Errorf("Grammar = %v, want %v", got.Grammar, tt.grammar)
			}
			if got.Kind == KindUnrecognized && got.Reason == "" {
				t.Error("expected a reason for an unrecognized row")
			}
		})
	}
}

func TestClassify_HeaderTitle(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"MAJOR COURSES", "MAJOR COURSES"},
		{"  SUPPORT COURSES (24 units) ", "SUPPORT COURSES"},
		{"Technical Electives (12 units) (see advisor)", "Technical Electives"},
		{"(12 units)", "(12 units)"},
	}
	for _, tt := range tests {
		got := Classify(headerRow(tt.label))
		if got.Title != tt.want {
			t.Errorf("title of %q = %q, want %q", tt.label, got.Title, tt.want)
		}
	}
}

func TestClassify_InferredMarkers(t *testing.T) {
	tests := []struct {
		name  string
		row   RowRecord
		kind  RowKind
		orOpt bool
	}{
		{"bare or row", RowRecord{Label: "or"}, KindComment, false},
		{"select opener", RowRecord{Label: "Select one sequence from the following:"}, KindComment, false},
		{"total units", RowRecord{Label: "Total units", Units: "180"}, KindListSum, false},
		{"upper-case heading", RowRecord{Label: "SUPPORT COURSES"}, KindAreaHeader, false},
		{"or prefix on course", RowRecord{Label: "or MATH 248", Courses: []CourseCell{{Code: "MATH 248"}}}, KindCourse, true},
		{"heading with units is not a header", RowRecord{Label: "FREE ELECTIVES", Units: "4"}, KindUnrecognized, false},
		{"unlinked course code is not a header", RowRecord{Label: "CSC 491"}, KindUnrecognized, false},
		{"unlinked cross-listed code is not a header", RowRecord{Label: "CSC/CPE 461"}, KindUnrecognized, false},
		{"upper-case heading with digits", RowRecord{Label: "MAJOR COURSES 2024"}, KindAreaHeader, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.row)
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.IsOrOption != tt.orOpt {
				t.Errorf("IsOrOption = %v, want %v", got.IsOrOption, tt.orOpt)
			}
		})
	}
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		raw   string
		units int
		ok    bool
	}{
		{"", 0, true},
		{"  ", 0, true},
		{"4", 4, true},
		{" 12 ", 12, true},
		{"4-8", 4, true},
		{"TBD", 0, false},
		{"-", 0, false},
	}
	for _, tt := range tests {
		units, ok := ParseUnits(tt.raw)
		if units != tt.units || ok != tt.ok {
			t.Errorf("ParseUnits(%q) = (%d, %v), want (%d, %v)", tt.raw, units, ok, tt.units, tt.ok)
		}
	}
}

func TestRowKind_String(t *testing.T) {
	if KindListSum.String() != "list_sum" {
		t.Errorf("unexpected string %q", KindListSum.String())
	}
	if RowKind(42).String() != "unrecognized" {
		t.Errorf("unexpected string %q", RowKind(42).String())
	}
}
