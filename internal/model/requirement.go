package model

import "strings"

// RequirementKind classifies a node in the requirement tree
type RequirementKind string

const (
	RequirementCourse RequirementKind = "course" // A single course
	RequirementAnd    RequirementKind = "and"    // All children required together
	RequirementOr     RequirementKind = "or"     // Exactly one child required
)

// Requirement is one node of a degree's requirement tree.
// Course nodes carry a Code; And/Or nodes carry Children.
// For Or nodes, Units reflects the representative alternative, never the sum.
type Requirement struct {
	Kind     RequirementKind `json:"kind" yaml:"kind"`
	Code     string          `json:"code,omitempty" yaml:"code,omitempty"`
	Units    int             `json:"units" yaml:"units"`
	Children []Requirement   `json:"children,omitempty" yaml:"children,omitempty"`
}

// NewCourse creates a single-course requirement
func NewCourse(code string, units int) Requirement {
	return Requirement{Kind: RequirementCourse, Code: code, Units: units}
}

// NewAnd creates a conjunctive group
func NewAnd(units int, children ...Requirement) Requirement {
	return Requirement{Kind: RequirementAnd, Units: units, Children: children}
}

// NewOr creates a disjunctive group
func NewOr(units int, children ...Requirement) Requirement {
	return Requirement{Kind: RequirementOr, Units: units, Children: children}
}

// IsGroup reports whether the node is an And or Or group
func (r Requirement) IsGroup() bool {
	return r.Kind == RequirementAnd || r.Kind == RequirementOr
}

// Codes returns every course code in the subtree in document order
func (r Requirement) Codes() []string {
	if r.Kind == RequirementCourse {
		return []string{r.Code}
	}
	var codes []string
	for _, child := range r.Children {
		codes = append(codes, child.Codes()...)
	}
	return codes
}

// String renders the node the way catalogs print it: "&" joins AND rows, " or " joins alternatives
func (r Requirement) String() string {
	switch r.Kind {
	case RequirementCourse:
		return r.Code
	case RequirementAnd:
		return "(" + joinRequirements(r.Children, " & ") + ")"
	case RequirementOr:
		return "(" + joinRequirements(r.Children, " or ") + ")"
	default:
		return ""
	}
}

func joinRequirements(children []Requirement, sep string) string {
	parts := make([]string, len(children))
	for i, child := range children {
		parts[i] = child.String()
	}
	return strings.Join(parts, sep)
}

// SectionKind classifies a named requirement section
type SectionKind string

const (
	SectionMajor        SectionKind = "major"
	SectionElective     SectionKind = "elective"
	SectionSupport      SectionKind = "support"
	SectionGE           SectionKind = "ge"
	SectionUnclassified SectionKind = "unclassified"
)

// Section is a named run of requirements under one area header
type Section struct {
	Kind         SectionKind   `json:"kind" yaml:"kind"`
	KindDetail   string        `json:"kind_detail,omitempty" yaml:"kind_detail,omitempty"` // Elective type, or raw title when unclassified
	Title        string        `json:"title" yaml:"title"`
	Requirements []Requirement `json:"requirements" yaml:"requirements"`
}

// Units sums the units of the section's top-level requirements
func (s Section) Units() int {
	total := 0
	for _, req := range s.Requirements {
		total += req.Units
	}
	return total
}

// GEArea is a general-education area code
type GEArea string

const (
	GEAreaA        GEArea = "A"
	GEAreaB        GEArea = "B"
	GEAreaC        GEArea = "C"
	GEAreaD        GEArea = "D"
	GEAreaE        GEArea = "E"
	GEAreaF        GEArea = "F"
	GEAreaElective GEArea = "ELECTIVE"
)

// GERequirement is one general-education requirement row
type GERequirement struct {
	Area    GEArea `json:"area" yaml:"area"`
	Subarea string `json:"subarea,omitempty" yaml:"subarea,omitempty"`
	Units   int    `json:"units" yaml:"units"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
}

// CourseInfo is the catalog entry seen for a course code while parsing
type CourseInfo struct {
	Code  string `json:"code" yaml:"code"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Units int    `json:"units" yaml:"units"`
}

// DegreeRequirements is the parsed requirement structure of one degree
type DegreeRequirements struct {
	Sections       []Section             `json:"sections" yaml:"sections"`
	GERequirements []GERequirement       `json:"ge_requirements" yaml:"ge_requirements"`
	Concentrations map[string][]Section  `json:"concentrations,omitempty" yaml:"concentrations,omitempty"`
	Courses        map[string]CourseInfo `json:"courses,omitempty" yaml:"courses,omitempty"`
}

// SectionsOfKind returns the sections with the given kind, in document order
func (d DegreeRequirements) SectionsOfKind(kind SectionKind) []Section {
	var out []Section
	for _, s := range d.Sections {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}
