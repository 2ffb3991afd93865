package catalog

import (
	"regexp"
	"strings"

	"github.com/ppiankov/polyreq/internal/model"
)

var (
	geSubareaCode = regexp.MustCompile(`^([A-F])([1-9])\b`)
	geDivision    = regexp.MustCompile(`(?i)^(upper|lower)[-\s]+division(?:\s+([A-F])\b)?`)
	geArea        = regexp.MustCompile(`(?i)^area\s+([A-F])\b`)
	geElective    = regexp.MustCompile(`(?i)\belectives?\b`)

	geFootnote = regexp.MustCompile(`^(?:\d+|[¹²³⁴⁵⁶⁷⁸⁹])\s*[A-Za-z(]`)
	geAdvisory = regexp.MustCompile(`(?i)(select courses from (two|three|\d+) different|from (at least )?(two|three|\d+) different areas|^see\b|^note\b|^\(?note:)`)
	geTotal    = regexp.MustCompile(`(?i)^total\b`)
)

// GETableResult is the outcome of scanning a general-education table
type GETableResult struct {
	Requirements []model.GERequirement
	Diagnostics  []model.Diagnostic
	Dispositions []Disposition
}

// Stats counts the table's row dispositions
func (r GETableResult) Stats() model.ParseStats {
	return dispositionStats(r.Dispositions, 0)
}

// ParseGERows scans a general-education table. Each row holds at most one
// requirement; header rows set the current area for division rows that omit it.
// Known non-requirement rows are skipped silently, anything else unmatched is a diagnostic.
func ParseGERows(rows []RowRecord, opts ParseOptions) GETableResult {
	result := GETableResult{Dispositions: make([]Disposition, len(rows))}
	currentArea := model.GEArea("")

	reject := func(row RowRecord, reason string) {
		opts.logf("GE row %d: %s: %s", row.Index, reason, row.Text)
		result.Diagnostics = append(result.Diagnostics, model.Diagnostic{
			Source:   opts.Source,
			RowIndex: row.Index,
			RowText:  row.Text,
			Reason:   reason,
			Category: model.DiagGELabel,
		})
		result.Dispositions[row.Index] = DispositionDiagnostic
	}

	for i, row := range rows {
		row.Index = i
		row = inferMarkers(row)
		label := geLabel(row)
		units, unitsOK := ParseUnits(row.Units)

		if row.Header {
			if m := geArea.FindStringSubmatch(label); m != nil {
				currentArea = model.GEArea(strings.ToUpper(m[1]))
				if unitsOK && units > 0 {
					result.Requirements = append(result.Requirements, model.GERequirement{Area: currentArea, Units: units, Label: label})
					result.Dispositions[i] = DispositionNode
					continue
				}
			}
			result.Dispositions[i] = DispositionStructural
			continue
		}

		if isSuppressedGERow(row, label) {
			result.Dispositions[i] = DispositionStructural
			continue
		}

		area, subarea, matched := matchGELabel(label, currentArea)
		switch {
		case !matched && !unitsOK:
			reject(row, "unrecognized GE label with unparseable unit count")
		case !matched:
			reject(row, "unrecognized GE label")
		case subarea == "" && area != model.GEAreaElective && row.Units == "":
			// "Area X" without units introduces the rows that follow
			currentArea = area
			result.Dispositions[i] = DispositionStructural
		case !unitsOK:
			reject(row, "unparseable unit count")
		default:
			if area != model.GEAreaElective {
				currentArea = area
			}
			result.Requirements = append(result.Requirements, model.GERequirement{
				Area:    area,
				Subarea: subarea,
				Units:   units,
				Label:   label,
			})
			result.Dispositions[i] = DispositionNode
		}
	}
	return result
}

// matchGELabel extracts (area, subarea) from a GE label.
// Division rows without an area letter inherit currentArea.
func matchGELabel(label string, currentArea model.GEArea) (model.GEArea, string, bool) {
	if m := geSubareaCode.FindStringSubmatch(label); m != nil {
		return model.GEArea(m[1]), m[1] + m[2], true
	}
	if m := geDivision.FindStringSubmatch(label); m != nil {
		subarea := "LD"
		if strings.EqualFold(m[1], "upper") {
			subarea = "UD"
		}
		switch {
		case m[2] != "":
			return model.GEArea(strings.ToUpper(m[2])), subarea, true
		case currentArea != "":
			return currentArea, subarea, true
		}
	}
	if m := geArea.FindStringSubmatch(label); m != nil {
		return model.GEArea(strings.ToUpper(m[1])), "", true
	}
	if geElective.MatchString(label) {
		return model.GEAreaElective, "", true
	}
	return "", "", false
}

func isSuppressedGERow(row RowRecord, label string) bool {
	switch {
	case row.Summary:
		return true
	case label == "":
		return true
	case geTotal.MatchString(label):
		return true
	case geFootnote.MatchString(label):
		return true
	case geAdvisory.MatchString(label):
		return true
	}
	return false
}

// geLabel picks the label text of a GE row; GE tables rarely use a code column
func geLabel(row RowRecord) string {
	if row.Label != "" {
		return row.Label
	}
	return row.Title
}
