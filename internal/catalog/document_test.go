package catalog

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/polyreq/internal/model"
)

const degreePage = `<!DOCTYPE html>
<html><head><title>Computer Science, BS &lt; Cal Poly Catalog</title></head>
<body>
<h1 class="page-title">Computer Science, BS</h1>
<div id="content">
<p>Concentrations:
  <a href="/collegesandprograms/coe/csc/computersciencebs/artificialintelligenceconcentration/">Artificial Intelligence Concentration</a>
  <a href="/collegesandprograms/coe/csc/computersciencebs/artificialintelligenceconcentration/#text">AI again</a>
  <a href="graphicsconcentration/">Graphics Concentration</a>
  <a href="#requirementstext">Degree Requirements</a>
  <a href="/collegesandprograms/coe/csc/">Department</a>
  <a href="https://elsewhere.example.edu/collegesandprograms/coe/csc/computersciencebs/xconcentration/">Elsewhere</a>
  <a href="/collegesandprograms/coe/csc/computersciencebs/minor/">Minor</a>
</p>
<h2>Program Learning Objectives</h2>
<table class="sc_courselist"><tbody>
<tr><td>Objective one</td><td class="hourscol"></td></tr>
</tbody></table>
<h2>Degree Requirements and Curriculum</h2>
<table class="sc_courselist">
<thead><tr class="hidden noscript"><th scope="col">Code</th><th scope="col">Title</th><th class="hourscol" scope="col">Units</th></tr></thead>
<tbody>
<tr class="even areaheader firstrow"><td colspan="2"><span class="courselistcomment areaheader">MAJOR COURSES</span></td><td class="hourscol"></td></tr>
<tr class="odd"><td class="codecol"><a href="/search/?P=CSC%20101" title="CSC&#160;101" class="bubblelink code">CSC&#160;101</a></td><td>Fundamentals of Computer Science</td><td class="hourscol">4</td></tr>
<tr class="even"><td class="codecol"><a href="/search/?P=CSC%20348" title="CSC 348" class="bubblelink code">CSC 348</a></td><td>Discrete Structures</td><td class="hourscol">4</td></tr>
<tr class="odd orclass"><td class="codecol">or <a href="/search/?P=MATH%20248" title="MATH 248" class="bubblelink code">MATH 248</a></td><td>Methods of Proof in Mathematics</td><td class="hourscol"></td></tr>
<tr class="even"><td colspan="2"><span class="courselistcomment">Select one sequence from the following:</span></td><td class="hourscol"></td></tr>
<tr class="odd"><td class="codecol"><a title="PHYS 141" class="bubblelink code">PHYS 141</a><span class="blockindent">&amp; <a title="PHYS 132" class="bubblelink code">PHYS 132</a></span></td><td>General Physics IA<span>and General Physics II</span></td><td class="hourscol">8</td></tr>
<tr class="even"><td colspan="2"><span class="courselistcomment">or</span></td><td class="hourscol"></td></tr>
<tr class="odd"><td class="codecol"><a title="BIO 161" class="bubblelink code">BIO 161</a><span class="blockindent">&amp; <a title="BIO 162" class="bubblelink code">BIO 162</a></span></td><td>Introduction to Cell Biology<span>and Diversity of Life</span></td><td class="hourscol">8</td></tr>
<tr class="even areaheader"><td colspan="2"><span class="courselistcomment areaheader">Technical Electives (24 units)</span></td><td class="hourscol"></td></tr>
<tr class="odd"><td class="codecol"><a title="CSC 480" class="bubblelink code">CSC 480</a></td><td>Artificial Intelligence</td><td class="hourscol">4</td></tr>
<tr class="even"><td class="codecol"><a title="CSC 481" class="bubblelink code">CSC 481</a> <a title="CSC 482" class="bubblelink code">CSC 482</a></td><td>Knowledge Based Systems</td><td class="hourscol">4</td></tr>
<tr class="odd listsum"><td colspan="2">Total units</td><td class="hourscol">60</td></tr>
</tbody></table>
<h2>General Education (GE) Requirements</h2>
<table class="sc_courselist"><tbody>
<tr class="areaheader"><td colspan="2"><span class="courselistcomment areaheader">Area A English Language Communication and Critical Thinking</span></td><td class="hourscol"></td></tr>
<tr><td class="codecol">A1</td><td>Oral Communication</td><td class="hourscol">4</td></tr>
<tr><td class="codecol">A2</td><td>Written Communication</td><td class="hourscol">4</td></tr>
<tr><td colspan="2"><span class="courselistcomment">Select courses from two different areas</span></td><td class="hourscol"></td></tr>
<tr><td class="codecol">Lifelong Learning</td><td></td><td class="hourscol">4</td></tr>
<tr class="listsum"><td colspan="2">Total units</td><td class="hourscol">8</td></tr>
</tbody></table>
</div>
</body></html>`

func mustDocument(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestRowsFromTable(t *testing.T) {
	doc := mustDocument(t, degreePage)
	table := doc.Find("table.sc_courselist").Eq(1)
	rows := RowsFromTable(table)

	if len(rows) != 12 {
		t.Fatalf("expected 12 rows (column headings skipped), got %d", len(rows))
	}
	if !rows[0].Header || rows[0].Comment || rows[0].Label != "MAJOR COURSES" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if got := rows[1].Courses; len(got) != 1 || got[0].Code != "CSC 101" || got[0].Title != "Fundamentals of Computer Science" {
		t.Errorf("row 1 courses = %+v", got)
	}
	if rows[1].Units != "4" {
		t.Errorf("row 1 units = %q", rows[1].Units)
	}
	if !rows[3].OrOption || rows[3].Units != "" {
		t.Errorf("row 3 = %+v", rows[3])
	}
	if !rows[4].Comment || rows[4].Label != "Select one sequence from the following:" {
		t.Errorf("row 4 = %+v", rows[4])
	}

	and := rows[5]
	if !and.Conjunction {
		t.Error("row 5 should carry a conjunction")
	}
	wantCourses := []CourseCell{{Code: "PHYS 141", Title: "General Physics IA"}, {Code: "PHYS 132", Title: "General Physics II"}}
	if !reflect.DeepEqual(and.Courses, wantCourses) {
		t.Errorf("row 5 courses = %+v, want %+v", and.Courses, wantCourses)
	}
	if rows[10].Conjunction || len(rows[10].Courses) != 2 {
		t.Errorf("row 10 = %+v", rows[10])
	}
	if !rows[11].Summary {
		t.Error("row 11 should be a summary row")
	}
	for i, row := range rows {
		if row.Index != i {
			t.Errorf("row %d has index %d", i, row.Index)
		}
	}
}

const unlinkedCodeTable = `<table class="sc_courselist"><tbody>
<tr class="areaheader"><td colspan="3"><span class="courselistcomment areaheader">MAJOR COURSES</span></td></tr>
<tr><td class="codecol"><a href="#" title="CSC 101">CSC&#160;101</a></td><td>Fundamentals of Computer Science</td><td class="hourscol">4</td></tr>
<tr><td class="codecol">CSC&#160;491</td><td>Senior Project I</td><td class="hourscol"></td></tr>
<tr><td class="codecol">CSC&#160;492 &amp; CSC&#160;493</td><td>Senior Project II<span>and Senior Project III</span></td><td class="hourscol">4</td></tr>
<tr><td class="codecol"><a href="#" title="CSC 102">CSC&#160;102</a></td><td>Fundamentals of Computer Science II</td><td class="hourscol">4</td></tr>
</tbody></table>`

func TestRowsFromTable_UnlinkedCodes(t *testing.T) {
	doc := mustDocument(t, "<html><body>"+unlinkedCodeTable+"</body></html>")
	rows := RowsFromTable(doc.Find("table"))
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}

	if got := rows[2].Courses; len(got) != 1 || got[0].Code != "CSC 491" || got[0].Title != "Senior Project I" {
		t.Errorf("row 2 courses = %+v", got)
	}
	if rows[2].Header {
		t.Error("row 2 must not be a header")
	}
	want := []CourseCell{{Code: "CSC 492", Title: "Senior Project II"}, {Code: "CSC 493", Title: "Senior Project III"}}
	if !rows[3].Conjunction || !reflect.DeepEqual(rows[3].Courses, want) {
		t.Errorf("row 3 = %+v", rows[3])
	}
}

func TestParseRequirementRows_UnlinkedCodeStaysInSection(t *testing.T) {
	doc := mustDocument(t, "<html><body>"+unlinkedCodeTable+"</body></html>")
	result := ParseRequirementRows(RowsFromTable(doc.Find("table")), ParseOptions{})

	if len(result.Sections) != 1 {
		t.Fatalf("got %d sections, want 1: %+v", len(result.Sections), result.Sections)
	}
	want := []model.Requirement{
		model.NewCourse("CSC 101", 4),
		model.NewCourse("CSC 491", 0),
		model.NewAnd(4, model.NewCourse("CSC 492", 0), model.NewCourse("CSC 493", 0)),
		model.NewCourse("CSC 102", 4),
	}
	if got := result.Sections[0].Requirements; !reflect.DeepEqual(got, want) {
		t.Errorf("requirements = %v, want %v", got, want)
	}
	if len(result.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %+v", result.Diagnostics)
	}
}

func TestParseRequirementRows_UnmarkedCodeWithoutCellIsDiagnosed(t *testing.T) {
	rows := []RowRecord{
		headerRow("MAJOR COURSES"),
		courseRow("CSC 101", "4", false),
		{Label: "CSC 491", Text: "CSC 491 Senior Project I"},
		courseRow("CSC 102", "4", false),
	}
	for i := range rows {
		rows[i].Index = i
	}

	result := ParseRequirementRows(rows, ParseOptions{})
	if len(result.Sections) != 1 || len(result.Sections[0].Requirements) != 2 {
		t.Fatalf("sections = %+v", result.Sections)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].RowIndex != 2 {
		t.Errorf("diagnostics = %+v, want one for row 2", result.Diagnostics)
	}
	if result.Dispositions[2] != DispositionDiagnostic {
		t.Errorf("row 2 disposition = %v", result.Dispositions[2])
	}
}

func TestParseDocument(t *testing.T) {
	doc := mustDocument(t, degreePage)
	result, err := ParseDocument(doc, ParseOptions{Source: "computersciencebs"})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	if result.Title != "Computer Science, BS" {
		t.Errorf("Title = %q", result.Title)
	}
	if result.TablesParsed != 2 {
		t.Errorf("TablesParsed = %d, want 2", result.TablesParsed)
	}
	if len(result.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(result.Sections))
	}

	major := result.Sections[0]
	if major.Kind != model.SectionMajor {
		t.Errorf("first section kind = %s", major.Kind)
	}
	wantMajor := []model.Requirement{
		model.NewCourse("CSC 101", 4),
		model.NewOr(4, model.NewCourse("CSC 348", 4), model.NewCourse("MATH 248", 0)),
		model.NewOr(8,
			model.NewAnd(8, model.NewCourse("PHYS 141", 0), model.NewCourse("PHYS 132", 0)),
			model.NewAnd(0, model.NewCourse("BIO 161", 0), model.NewCourse("BIO 162", 0)),
		),
	}
	if !reflect.DeepEqual(major.Requirements, wantMajor) {
		t.Errorf("major requirements =\n%v\nwant\n%v", major.Requirements, wantMajor)
	}

	electives := result.Sections[1]
	if electives.Kind != model.SectionElective || electives.KindDetail != "Technical" || electives.Title != "Technical Electives" {
		t.Errorf("electives section = %+v", electives)
	}
	if len(electives.Requirements) != 1 {
		t.Errorf("expected the unconjoined row to be dropped, got %v", electives.Requirements)
	}

	wantGE := []model.GERequirement{
		{Area: model.GEAreaA, Subarea: "A1", Units: 4, Label: "A1"},
		{Area: model.GEAreaA, Subarea: "A2", Units: 4, Label: "A2"},
	}
	if !reflect.DeepEqual(result.GE, wantGE) {
		t.Errorf("GE = %+v, want %+v", result.GE, wantGE)
	}

	categories := map[model.DiagnosticCategory]int{}
	for _, d := range result.Diagnostics {
		categories[d.Category]++
		if d.Source != "computersciencebs" {
			t.Errorf("diagnostic source = %q", d.Source)
		}
	}
	want := map[model.DiagnosticCategory]int{
		model.DiagTableShape: 1,
		model.DiagGrammar:    1,
		model.DiagGELabel:    1,
	}
	if !reflect.DeepEqual(categories, want) {
		t.Errorf("diagnostic categories = %v, want %v", categories, want)
	}

	if info := result.Courses["PHYS 132"]; info.Title != "General Physics II" {
		t.Errorf("PHYS 132 catalog entry = %+v", info)
	}
	if info := result.Courses["CSC 348"]; info.Units != 4 {
		t.Errorf("CSC 348 catalog entry = %+v", info)
	}

	if result.Stats.Tables != 2 || result.Stats.Rows != 18 {
		t.Errorf("stats = %+v", result.Stats)
	}
	if result.Stats.NodeRows+result.Stats.Structural+result.Stats.Diagnostics != result.Stats.Rows {
		t.Errorf("stats do not account for every row: %+v", result.Stats)
	}
}

func TestParseDocument_NoTables(t *testing.T) {
	page := `<html><body><h1>Minor</h1><h2>Program Learning Objectives</h2>
<table class="sc_courselist"><tr><td>x</td></tr></table></body></html>`
	result, err := ParseDocument(mustDocument(t, page), ParseOptions{})
	if !errors.Is(err, ErrNoRequirementTables) {
		t.Fatalf("expected ErrNoRequirementTables, got %v", err)
	}
	if result == nil || len(result.Diagnostics) != 1 {
		t.Fatalf("expected a partial result with one diagnostic, got %+v", result)
	}
}

func TestParseDocument_HeadinglessTable(t *testing.T) {
	page := `<html><body>
<table class="sc_courselist"><tbody>
<tr><td class="codecol"><a title="CSC 471">CSC 471</a></td><td>Computer Graphics</td><td class="hourscol">4</td></tr>
</tbody></table></body></html>`
	result, err := ParseDocument(mustDocument(t, page), ParseOptions{MajorSubjects: []string{"CSC"}})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if len(result.Sections) != 1 || result.Sections[0].Kind != model.SectionMajor {
		t.Errorf("sections = %+v", result.Sections)
	}
}

func TestClassifyTable(t *testing.T) {
	tests := map[string]TableKind{
		"Degree Requirements and Curriculum":  TableRequirements,
		"Curriculum":                          TableRequirements,
		"Graphics Concentration":              TableRequirements,
		"":                                    TableRequirements,
		"General Education (GE) Requirements": TableGE,
		"Program Learning Objectives":         TableUnknown,
	}
	for heading, want := range tests {
		if got := ClassifyTable(heading); got != want {
			t.Errorf("ClassifyTable(%q) = %v, want %v", heading, got, want)
		}
	}
}

func TestConcentrationLinks(t *testing.T) {
	doc := mustDocument(t, degreePage)
	base, _ := url.Parse("https://catalog.example.edu/collegesandprograms/coe/csc/computersciencebs/")

	links := ConcentrationLinks(doc, base)
	want := []ConcentrationLink{
		{
			ID:   "artificialintelligenceconcentration",
			Name: "Artificial Intelligence Concentration",
			URL:  "https://catalog.example.edu/collegesandprograms/coe/csc/computersciencebs/artificialintelligenceconcentration/",
		},
		{
			ID:   "graphicsconcentration",
			Name: "Graphics Concentration",
			URL:  "https://catalog.example.edu/collegesandprograms/coe/csc/computersciencebs/graphicsconcentration/",
		},
	}
	if !reflect.DeepEqual(links, want) {
		t.Errorf("links =\n%+v\nwant\n%+v", links, want)
	}
}

func TestDocumentTitle_FallsBackToTitleTag(t *testing.T) {
	doc := mustDocument(t, `<html><head><title>Graphics Concentration &lt; Catalog</title></head><body></body></html>`)
	if got := DocumentTitle(doc); got != "Graphics Concentration" {
		t.Errorf("DocumentTitle = %q", got)
	}
}

func TestMergeCourses(t *testing.T) {
	dst := map[string]model.CourseInfo{
		"CSC 101": {Code: "CSC 101", Title: "Fundamentals", Units: 4},
	}
	MergeCourses(dst, map[string]model.CourseInfo{
		"CSC 101": {Code: "CSC 101", Units: 0},
		"CSC 102": {Code: "CSC 102", Title: "Data Structures", Units: 4},
	})
	if dst["CSC 101"].Units != 4 || dst["CSC 101"].Title != "Fundamentals" {
		t.Errorf("CSC 101 = %+v", dst["CSC 101"])
	}
	if _, ok := dst["CSC 102"]; !ok {
		t.Error("CSC 102 missing")
	}
}

func TestDominantSubjects(t *testing.T) {
	tests := []struct {
		name string
		page string
		want []string
	}{
		{
			name: "single major subject",
			page: `<h2>Degree Requirements</h2><table class="sc_courselist"><tbody>
<tr><td class="codecol"><a title="CSC 101" class="bubblelink code">CSC 101</a></td><td class="hourscol">4</td></tr>
<tr><td class="codecol"><a title="CSC 202" class="bubblelink code">CSC 202</a></td><td class="hourscol">4</td></tr>
<tr><td class="codecol"><a title="MATH 141" class="bubblelink code">MATH 141</a></td><td class="hourscol">4</td></tr>
</tbody></table>`,
			want: []string{"CSC"},
		},
		{
			name: "tie keeps every leader",
			page: `<h2>Degree Requirements</h2><table class="sc_courselist"><tbody>
<tr><td class="codecol"><a title="EE 211" class="bubblelink code">EE 211</a></td><td class="hourscol">3</td></tr>
<tr><td class="codecol"><a title="CPE 133" class="bubblelink code">CPE 133</a></td><td class="hourscol">4</td></tr>
</tbody></table>`,
			want: []string{"CPE", "EE"},
		},
		{
			name: "general education tables ignored",
			page: `<h2>General Education (GE) Requirements</h2><table class="sc_courselist"><tbody>
<tr><td class="codecol"><a title="ENGL 134" class="bubblelink code">ENGL 134</a></td><td class="hourscol">4</td></tr>
<tr><td class="codecol"><a title="ENGL 145" class="bubblelink code">ENGL 145</a></td><td class="hourscol">4</td></tr>
</tbody></table>
<h2>Degree Requirements</h2><table class="sc_courselist"><tbody>
<tr><td class="codecol"><a title="BIO 161" class="bubblelink code">BIO 161</a></td><td class="hourscol">4</td></tr>
</tbody></table>`,
			want: []string{"BIO"},
		},
		{
			name: "no tables",
			page: `<p>Coming soon.</p>`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DominantSubjects(mustDocument(t, tt.page))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DominantSubjects = %v, want %v", got, tt.want)
			}
		})
	}
}
