package catalog

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/polyreq/internal/model"
)

var degreeEntry = regexp.MustCompile(`(.+),\s+(B\w+)`)

// ParseDegreeIndex lists the bachelor degrees of a programs A-Z page.
// Entries live between the bachelordegrees and concentrations anchors as
// p.plist paragraphs reading "Name, BS".
func ParseDegreeIndex(doc *goquery.Document, base *url.URL) []model.Degree {
	var degrees []model.Degree
	doc.Find("a[name=bachelordegrees]").
		NextUntil("a[name=concentrations]").
		FilterFunction(func(_ int, p *goquery.Selection) bool {
			return p.Is("p.plist") && p.Find("a[href]").Length() > 0
		}).
		Each(func(_ int, p *goquery.Selection) {
			m := degreeEntry.FindStringSubmatch(cleanText(p.Text()))
			if m == nil {
				return
			}
			href, _ := p.Find("a[href]").First().Attr("href")
			ref, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				return
			}
			link := ref
			if base != nil {
				link = base.ResolveReference(ref)
			}

			degree := DegreeFromURL(link)
			degree.Name = strings.TrimSpace(m[1])
			degree.Kind = m[2]
			degrees = append(degrees, degree)
		})
	return degrees
}

// DegreeFromURL derives a degree's identity from its page URL alone
func DegreeFromURL(link *url.URL) model.Degree {
	degree := model.Degree{Link: link.String()}
	segments := linkSegments(link.Path)
	if n := len(segments); n > 0 {
		degree.ID = segments[n-1]
		if n > 1 {
			degree.DepartmentID = segments[n-2]
		}
	}
	return degree
}

// SplitDegreeTitle splits a page title like "Computer Science, BS" into name and kind.
// A title without a degree kind is returned whole as the name.
func SplitDegreeTitle(title string) (name, kind string) {
	m := degreeEntry.FindStringSubmatch(title)
	if m == nil {
		return strings.TrimSpace(title), ""
	}
	return strings.TrimSpace(m[1]), m[2]
}

func linkSegments(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && !strings.HasPrefix(s, "#") {
			segments = append(segments, s)
		}
	}
	return segments
}
