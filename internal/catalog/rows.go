package catalog

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// CourseCell is one course-identifying cell of a row
type CourseCell struct {
	Code  string
	Title string
}

// RowRecord is one physical row of a course-list table.
// Markers carry the structural meaning; Label, Title and Units carry content.
type RowRecord struct {
	Index int

	Header   bool // tr.areaheader
	Comment  bool // span.courselistcomment present
	OrOption bool // tr.orclass
	Summary  bool // tr.listsum

	Label       string // comment text, header text, or code-cell text
	Title       string // title cell text
	Conjunction bool   // code cell joins its courses with "&"
	Courses     []CourseCell
	Units       string // raw units cell text
	Text        string // whole row text, for diagnostics
}

// HasMarkers reports whether any structural annotation is present
func (r RowRecord) HasMarkers() bool {
	return r.Header || r.Comment || r.OrOption || r.Summary
}

var (
	sftfPattern = regexp.MustCompile(`(?i)^\s*select\b.*\bfrom the following`)
	spaceRun    = regexp.MustCompile(`\s+`)
	// Cross-listed codes such as "CSC/CPE 101" keep both subjects
	courseCode  = regexp.MustCompile(`\b[A-Z]{2,5}(?:/[A-Z]{2,5})?\s\d{3,4}[A-Z]?\b`)
	leadingCode = regexp.MustCompile(`^(?:or\s+)?[A-Z]{2,5}(?:/[A-Z]{2,5})?\s\d{3}`)
)

// RowsFromTable decodes every data row of a course-list table.
// Rows without td cells (column headings) are not document rows and are skipped.
func RowsFromTable(table *goquery.Selection) []RowRecord {
	var rows []RowRecord
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Find("td").Length() == 0 {
			return
		}
		row := decodeRow(tr)
		row.Index = len(rows)
		rows = append(rows, row)
	})
	return rows
}

func decodeRow(tr *goquery.Selection) RowRecord {
	row := RowRecord{
		Header:   tr.HasClass("areaheader"),
		OrOption: tr.HasClass("orclass"),
		Summary:  tr.HasClass("listsum"),
		Units:    cleanText(tr.Find("td.hourscol").First().Text()),
		Text:     cleanText(tr.Text()),
	}

	comment := tr.Find("span.courselistcomment")
	row.Comment = comment.Length() > 0 && !row.Header

	codeCell := tr.Find("td.codecol").First()
	titleCell := tr.Find("td:not([class])").First()
	row.Title = cleanText(titleCell.Text())

	switch {
	case row.Comment:
		row.Label = cleanText(comment.First().Text())
	case codeCell.Length() > 0:
		row.Label = cleanText(codeCell.Text())
	default:
		row.Label = cleanText(tr.Find("td").First().Text())
	}

	anchors := codeCell.Find("a[title]")
	if anchors.Length() > 1 {
		row.Conjunction = strings.Contains(codeCell.Find("span.blockindent").Text(), "&") ||
			strings.Contains(codeCell.Text(), "&")
	}

	codes := make([]string, 0, anchors.Length())
	anchors.Each(func(_ int, a *goquery.Selection) {
		codes = append(codes, cleanText(a.Text()))
	})
	if len(codes) == 0 && codeCell.Length() > 0 {
		// Unlinked codes are plain text in the code cell
		codes = courseCode.FindAllString(row.Label, -1)
		if len(codes) > 1 {
			row.Conjunction = strings.Contains(row.Label, "&")
		}
	}

	titles := splitTitles(titleCell, len(codes))
	for i, code := range codes {
		cell := CourseCell{Code: code}
		if i < len(titles) {
			cell.Title = titles[i]
		}
		row.Courses = append(row.Courses, cell)
	}

	return row
}

// splitTitles extracts one title per course from a title cell.
// Multi-course cells hold the first title as a leading text node and the rest in spans prefixed with "and".
func splitTitles(cell *goquery.Selection, courses int) []string {
	if courses <= 1 {
		return []string{cleanText(cell.Text())}
	}

	var titles []string
	cell.Contents().Each(func(i int, c *goquery.Selection) {
		node := c.Get(0)
		switch {
		case node.Type == html.TextNode && i == 0:
			if t := cleanText(node.Data); t != "" {
				titles = append(titles, t)
			}
		case node.Type == html.ElementNode && node.Data == "span":
			t := strings.TrimPrefix(cleanText(c.Text()), "and ")
			titles = append(titles, t)
		}
	})
	return titles
}

// inferMarkers fills in annotations for rows that carry none,
// using the row's content the way the markers would have described it.
func inferMarkers(row RowRecord) RowRecord {
	if row.HasMarkers() {
		return row
	}

	lower := strings.ToLower(row.Label)
	switch {
	case len(row.Courses) > 0:
		if strings.HasPrefix(lower, "or ") {
			row.OrOption = true
		}
	case lower == "or" || sftfPattern.MatchString(row.Label):
		row.Comment = true
	case strings.HasPrefix(lower, "total units"):
		row.Summary = true
	case row.Units == "" && looksLikeHeading(row.Label) && !leadingCode.MatchString(row.Label):
		row.Header = true
	}
	return row
}

// looksLikeHeading reports whether text is an upper-case heading such as "SUPPORT COURSES"
func looksLikeHeading(text string) bool {
	letters := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}

// cleanText collapses whitespace (including non-breaking spaces) and trims
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
