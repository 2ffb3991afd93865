package store

import (
	"sort"

	"github.com/ppiankov/polyreq/internal/model"
)

// MainScope is the scope of sections parsed from the degree page itself.
// Concentration sections use the concentration id as their scope.
const MainScope = "main"

// NodeRow is one requirement node flattened for storage
type NodeRow struct {
	Scope           string
	SectionPosition int
	NodeID          int
	ParentID        *int // nil for top-level requirements
	Position        int  // index among siblings
	Kind            model.RequirementKind
	CourseCode      *string
	Units           int
}

// SectionRow is one section flattened for storage
type SectionRow struct {
	Scope      string
	Position   int
	Kind       model.SectionKind
	KindDetail string
	Title      string
}

// FlattenRequirements assigns every node in the degree's trees a numeric id,
// depth first, and links children to their parent. GE sections and sections
// without requirements are skipped.
func FlattenRequirements(reqs model.DegreeRequirements) ([]SectionRow, []NodeRow) {
	var sections []SectionRow
	var nodes []NodeRow

	flattenScope := func(scope string, list []model.Section) {
		for position, section := range list {
			if section.Kind == model.SectionGE || len(section.Requirements) == 0 {
				continue
			}
			sections = append(sections, SectionRow{
				Scope:      scope,
				Position:   position,
				Kind:       section.Kind,
				KindDetail: section.KindDetail,
				Title:      section.Title,
			})
			next := 0
			var walk func(req model.Requirement, parent *int, index int)
			walk = func(req model.Requirement, parent *int, index int) {
				id := next
				next++
				row := NodeRow{
					Scope:           scope,
					SectionPosition: position,
					NodeID:          id,
					ParentID:        parent,
					Position:        index,
					Kind:            req.Kind,
					Units:           req.Units,
				}
				if req.Kind == model.RequirementCourse {
					code := req.Code
					row.CourseCode = &code
				}
				nodes = append(nodes, row)
				for i, child := range req.Children {
					walk(child, &id, i)
				}
			}
			for i, req := range section.Requirements {
				walk(req, nil, i)
			}
		}
	}

	flattenScope(MainScope, reqs.Sections)

	ids := make([]string, 0, len(reqs.Concentrations))
	for id := range reqs.Concentrations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		flattenScope(id, reqs.Concentrations[id])
	}
	return sections, nodes
}

func sortedCourseCodes(courses map[string]model.CourseInfo) []string {
	codes := make([]string, 0, len(courses))
	for code := range courses {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
