package model

import "strconv"

// Subject is one entry of the catalog's courses A-Z index
type Subject struct {
	Code string `json:"code" yaml:"code"` // e.g. "CSC"
	Name string `json:"name" yaml:"name"` // e.g. "Computer Science"
	Link string `json:"link" yaml:"link"` // subject course listing page
}

// Course is a full course description from a subject's course listing
type Course struct {
	Code        string   `json:"code" yaml:"code"`
	Subject     string   `json:"subject" yaml:"subject"`
	Number      int      `json:"number" yaml:"number"`
	Title       string   `json:"title" yaml:"title"`
	MinUnits    int      `json:"min_units" yaml:"min_units"`
	MaxUnits    int      `json:"max_units" yaml:"max_units"`
	Terms       []string `json:"terms_typically_offered,omitempty" yaml:"terms_typically_offered,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// UnitsLabel renders the unit range as the catalog does ("4", "1-4")
func (c Course) UnitsLabel() string {
	if c.MinUnits == c.MaxUnits {
		return strconv.Itoa(c.MinUnits)
	}
	return strconv.Itoa(c.MinUnits) + "-" + strconv.Itoa(c.MaxUnits)
}
