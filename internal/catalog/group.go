package catalog

import "github.com/ppiankov/polyreq/internal/model"

// requirementFromRow builds the immediate node for a course row:
// a single course, or an And group whose units are carried by the group.
func requirementFromRow(c ClassifiedRow) model.Requirement {
	if !c.IsAnd {
		return model.NewCourse(c.Courses[0].Code, c.Units)
	}
	children := make([]model.Requirement, len(c.Courses))
	for i, cell := range c.Courses {
		children[i] = model.NewCourse(cell.Code, 0)
	}
	return model.NewAnd(c.Units, children...)
}

// appendOption adds an alternative to an Or node under the unit-conservation rule:
// the first option keeps its units and sets the group's units; later options
// are zeroed, and only lend their units to the group when it has none yet.
func appendOption(or model.Requirement, option model.Requirement) model.Requirement {
	children := make([]model.Requirement, len(or.Children), len(or.Children)+1)
	copy(children, or.Children)

	if len(children) == 0 {
		or.Units = option.Units
	} else {
		if or.Units == 0 {
			or.Units = option.Units
		}
		option.Units = 0
	}
	or.Children = append(children, option)
	return or
}

// mergeOr joins a new alternative onto the preceding top-level item.
// An existing Or absorbs the option; anything else is wrapped with it in a fresh Or.
func mergeOr(prev model.Requirement, option model.Requirement) model.Requirement {
	if prev.Kind == model.RequirementOr {
		return appendOption(prev, option)
	}
	return appendOption(model.NewOr(prev.Units, prev), option)
}

// collapse reduces groups with fewer than two children.
// A singleton group becomes its child; an empty group reports ok=false.
func collapse(req model.Requirement) (model.Requirement, bool) {
	if !req.IsGroup() {
		return req, true
	}

	children := make([]model.Requirement, 0, len(req.Children))
	for _, child := range req.Children {
		if reduced, ok := collapse(child); ok {
			children = append(children, reduced)
		}
	}

	switch len(children) {
	case 0:
		return model.Requirement{}, false
	case 1:
		only := children[0]
		if only.Units == 0 {
			only.Units = req.Units
		}
		return only, true
	default:
		req.Children = children
		return req, true
	}
}
