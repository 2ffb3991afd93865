package catalog

import (
	"errors"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/polyreq/internal/model"
)

// ErrNoRequirementTables is returned when a document holds no table of a known kind
var ErrNoRequirementTables = errors.New("no requirement tables found")

// TableKind is the kind of a course-list table, decided by the heading above it
type TableKind int

const (
	TableUnknown TableKind = iota
	TableRequirements
	TableGE
)

func (k TableKind) String() string {
	switch k {
	case TableRequirements:
		return "requirements"
	case TableGE:
		return "ge"
	default:
		return "unknown"
	}
}

// ClassifyTable maps the nearest preceding h2 text to a table kind.
// Concentration pages often have no heading at all; their tables are requirement tables.
func ClassifyTable(heading string) TableKind {
	lower := strings.ToLower(strings.TrimSpace(heading))
	switch {
	case lower == "":
		return TableRequirements
	case strings.Contains(lower, "general education"):
		return TableGE
	case strings.Contains(lower, "degree requirements"),
		strings.Contains(lower, "curriculum"),
		strings.Contains(lower, "concentration"):
		return TableRequirements
	default:
		return TableUnknown
	}
}

// DocumentResult aggregates every table parsed from one document
type DocumentResult struct {
	Title        string
	Sections     []model.Section
	GE           []model.GERequirement
	Courses      map[string]model.CourseInfo
	Diagnostics  []model.Diagnostic
	Stats        model.ParseStats
	TablesParsed int
}

// ParseDocument parses every course-list table in a catalog page.
// Tables of unknown kind are skipped with a table_shape diagnostic; row-level
// problems never abort the scan. ErrNoRequirementTables is returned only when
// no table could be used at all; the partial result is still returned with it.
func ParseDocument(doc *goquery.Document, opts ParseOptions) (*DocumentResult, error) {
	result := &DocumentResult{
		Title:   DocumentTitle(doc),
		Courses: make(map[string]model.CourseInfo),
	}

	heading := ""
	doc.Find("h2, table.sc_courselist").Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "h2" {
			heading = cleanText(sel.Text())
			return
		}

		rows := RowsFromTable(sel)
		switch ClassifyTable(heading) {
		case TableRequirements:
			table := ParseRequirementRows(rows, opts)
			result.Sections = append(result.Sections, table.Sections...)
			result.Diagnostics = append(result.Diagnostics, table.Diagnostics...)
			result.Stats.Add(table.Stats())
			MergeCourses(result.Courses, table.Courses)
			result.TablesParsed++
		case TableGE:
			table := ParseGERows(rows, opts)
			result.GE = append(result.GE, table.Requirements...)
			result.Diagnostics = append(result.Diagnostics, table.Diagnostics...)
			result.Stats.Add(table.Stats())
			result.TablesParsed++
		default:
			opts.logf("skipping table of unrecognized kind: %q", heading)
			result.Diagnostics = append(result.Diagnostics, model.Diagnostic{
				Source:   opts.Source,
				RowIndex: -1,
				RowText:  heading,
				Reason:   "table of unrecognized kind",
				Category: model.DiagTableShape,
			})
		}
	})

	if result.TablesParsed == 0 {
		return result, ErrNoRequirementTables
	}
	return result, nil
}

// DominantSubjects returns the subject prefixes that occur most often among the
// course codes of a page's requirement tables, sorted. A degree page's own major
// subject normally dominates, so it stands in for MajorSubjects when no other
// page supplies them.
func DominantSubjects(doc *goquery.Document) []string {
	counts := make(map[string]int)
	heading := ""
	doc.Find("h2, table.sc_courselist").Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "h2" {
			heading = cleanText(sel.Text())
			return
		}
		if ClassifyTable(heading) != TableRequirements {
			return
		}
		for _, row := range RowsFromTable(sel) {
			for _, cell := range row.Courses {
				if subject := SubjectOf(cell.Code); subject != "" {
					counts[subject]++
				}
			}
		}
	})

	best := 0
	for _, n := range counts {
		best = max(best, n)
	}
	var subjects []string
	for subject, n := range counts {
		if n == best {
			subjects = append(subjects, subject)
		}
	}
	sort.Strings(subjects)
	return subjects
}

// DocumentTitle returns the page's h1 text, falling back to <title>
func DocumentTitle(doc *goquery.Document) string {
	if h1 := cleanText(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	title := cleanText(doc.Find("title").First().Text())
	name, _, _ := strings.Cut(title, " < ")
	return strings.TrimSpace(name)
}

// ConcentrationLink identifies one concentration page of a degree
type ConcentrationLink struct {
	ID   string
	Name string
	URL  string
}

// ConcentrationLinks finds links to concentration pages nested under the degree page.
// base is the degree page URL; links are deduplicated by resolved URL.
func ConcentrationLinks(doc *goquery.Document, base *url.URL) []ConcentrationLink {
	prefix := strings.TrimSuffix(base.Path, "/") + "/"
	seen := make(map[string]bool)
	var links []ConcentrationLink

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		target := base.ResolveReference(ref)
		target.Fragment = ""
		target.RawFragment = ""
		target.RawQuery = ""
		if target.Host != base.Host || !strings.HasPrefix(target.Path, prefix) || target.Path == prefix {
			return
		}

		id := path.Base(strings.TrimSuffix(target.Path, "/"))
		name := cleanText(a.Text())
		if !strings.Contains(strings.ToLower(id), "concentration") &&
			!strings.Contains(strings.ToLower(name), "concentration") {
			return
		}

		key := target.String()
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, ConcentrationLink{ID: id, Name: name, URL: key})
	})
	return links
}

// MergeCourses adds src into dst. A code seen twice keeps the larger unit count and any known title.
func MergeCourses(dst, src map[string]model.CourseInfo) {
	for code, info := range src {
		if existing, ok := dst[code]; ok {
			if existing.Units > info.Units {
				info.Units = existing.Units
			}
			if info.Title == "" {
				info.Title = existing.Title
			}
		}
		dst[code] = info
	}
}
