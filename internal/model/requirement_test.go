package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRequirement_String(t *testing.T) {
	req := NewOr(8,
		NewAnd(8, NewCourse("PHYS 141", 0), NewCourse("PHYS 132", 0)),
		NewCourse("PHYS 143", 0),
	)
	want := "((PHYS 141 & PHYS 132) or PHYS 143)"
	if got := req.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestRequirement_Codes(t *testing.T) {
	req := NewOr(8,
		NewAnd(8, NewCourse("PHYS 141", 0), NewCourse("PHYS 132", 0)),
		NewCourse("PHYS 143", 0),
	)
	want := []string{"PHYS 141", "PHYS 132", "PHYS 143"}
	if got := req.Codes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Codes() = %v, want %v", got, want)
	}
	if !req.IsGroup() || NewCourse("X 1", 0).IsGroup() {
		t.Error("IsGroup mismatch")
	}
}

func TestRequirement_JSONShape(t *testing.T) {
	data, err := json.Marshal(NewOr(4, NewCourse("CSC 348", 4), NewCourse("MATH 248", 0)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"kind":"or","units":4,"children":[{"kind":"course","code":"CSC 348","units":4},{"kind":"course","code":"MATH 248","units":0}]}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestSection_Units(t *testing.T) {
	s := Section{Requirements: []Requirement{
		NewCourse("CSC 101", 4),
		NewOr(4, NewCourse("CSC 348", 4), NewCourse("MATH 248", 0)),
	}}
	if s.Units() != 8 {
		t.Errorf("Units() = %d, want 8", s.Units())
	}
}

func TestDegreeRequirements_SectionsOfKind(t *testing.T) {
	d := DegreeRequirements{Sections: []Section{
		{Kind: SectionMajor, Title: "MAJOR COURSES"},
		{Kind: SectionElective, Title: "Technical Electives"},
		{Kind: SectionMajor, Title: "MAJOR COURSES (cont.)"},
	}}
	got := d.SectionsOfKind(SectionMajor)
	if len(got) != 2 || got[1].Title != "MAJOR COURSES (cont.)" {
		t.Errorf("SectionsOfKind = %+v", got)
	}
	if len(d.SectionsOfKind(SectionSupport)) != 0 {
		t.Error("expected no support sections")
	}
}

func TestParseStats_Add(t *testing.T) {
	s := ParseStats{Tables: 1, Rows: 10, NodeRows: 6, Structural: 3, Diagnostics: 1}
	s.Add(ParseStats{Tables: 1, Rows: 5, NodeRows: 2, Structural: 2, Diagnostics: 1, Unrecognized: 1})
	want := ParseStats{Tables: 2, Rows: 15, NodeRows: 8, Structural: 5, Diagnostics: 2, Unrecognized: 1}
	if s != want {
		t.Errorf("Add = %+v, want %+v", s, want)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HTTP.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.HTTP.MaxRetries)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Dir == "" {
		t.Errorf("unexpected cache config %+v", cfg.Cache)
	}
	if cfg.Concurrency.Workers <= 0 || cfg.Concurrency.ConcentrationWorkers <= 0 {
		t.Errorf("unexpected concurrency %+v", cfg.Concurrency)
	}
	if !cfg.LLM.StrictCodes {
		t.Error("strict course codes should default on")
	}
}

func TestCourse_UnitsLabel(t *testing.T) {
	if got := (Course{MinUnits: 4, MaxUnits: 4}).UnitsLabel(); got != "4" {
		t.Errorf("fixed units label = %q", got)
	}
	if got := (Course{MinUnits: 1, MaxUnits: 4}).UnitsLabel(); got != "1-4" {
		t.Errorf("range units label = %q", got)
	}
}
