package catalog

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/polyreq/internal/model"
)

var (
	// "Computer Science (CSC)"
	subjectEntry = regexp.MustCompile(`^(.+?)\s+\(([A-Z][A-Z ]*)\)$`)
	// "CSC 101. Fundamentals of Computer Science."
	courseTitle = regexp.MustCompile(`^(([A-Z]{2,5})\s+(\d{3,4}[A-Z]?))\.\s*(.*?)\.?$`)
	unitRange   = regexp.MustCompile(`(\d+)(?:\s*[-–]\s*(\d+))?`)
)

const termsPrefix = "Term Typically Offered:"

// ParseSubjectIndex lists the subjects of a courses A-Z page. Links are
// resolved against base when it is non-nil.
func ParseSubjectIndex(doc *goquery.Document, base *url.URL) []model.Subject {
	var subjects []model.Subject
	doc.Find("a.sitemaplink").Each(func(_ int, a *goquery.Selection) {
		m := subjectEntry.FindStringSubmatch(cleanText(a.Text()))
		if m == nil {
			return
		}
		subject := model.Subject{
			Code: strings.ReplaceAll(m[2], " ", ""),
			Name: m[1],
		}
		if href, ok := a.Attr("href"); ok {
			if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
				if base != nil {
					ref = base.ResolveReference(ref)
				}
				subject.Link = ref.String()
			}
		}
		subjects = append(subjects, subject)
	})
	return subjects
}

// SubjectURL returns the course listing page of a subject under a courses A-Z page
func SubjectURL(index *url.URL, code string) *url.URL {
	return index.ResolveReference(&url.URL{Path: strings.ToLower(strings.TrimSpace(code)) + "/"})
}

// ParseSubjectCourses reads every .courseblock of a subject's course listing.
// Blocks whose title does not carry a course code are skipped.
func ParseSubjectCourses(doc *goquery.Document) []model.Course {
	var courses []model.Course
	doc.Find(".courseblock").Each(func(_ int, block *goquery.Selection) {
		strong := block.Find(".courseblocktitle strong").First()
		units := cleanText(strong.Find("span").Text())
		title := cleanText(strings.Replace(strong.Text(), strong.Find("span").Text(), "", 1))

		m := courseTitle.FindStringSubmatch(title)
		if m == nil {
			return
		}
		number, _ := strconv.Atoi(strings.TrimRight(m[3], "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
		course := model.Course{
			Code:        m[1],
			Subject:     m[2],
			Number:      number,
			Title:       m[4],
			Description: cleanText(block.Find(".courseblockdesc").Text()),
		}
		course.MinUnits, course.MaxUnits = parseUnitRange(units)

		block.Find(".courseextendedwrap p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
			text := cleanText(p.Text())
			if !strings.HasPrefix(text, termsPrefix) {
				return true
			}
			course.Terms = splitTerms(strings.TrimPrefix(text, termsPrefix))
			return false
		})
		courses = append(courses, course)
	})
	return courses
}

// parseUnitRange reads "4 units" or "1-4 units"; anything else is zero
func parseUnitRange(s string) (minUnits, maxUnits int) {
	m := unitRange.FindStringSubmatch(s)
	if m == nil {
		return 0, 0
	}
	minUnits, _ = strconv.Atoi(m[1])
	maxUnits = minUnits
	if m[2] != "" {
		maxUnits, _ = strconv.Atoi(m[2])
	}
	return minUnits, maxUnits
}

func splitTerms(s string) []string {
	var terms []string
	for _, term := range strings.Split(s, ",") {
		if term = strings.TrimSpace(term); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}
