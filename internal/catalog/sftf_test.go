package catalog

import (
	"testing"

	"github.com/ppiankov/polyreq/internal/model"
)

func TestNextOnCourse(t *testing.T) {
	tests := []struct {
		state       blockState
		accumulated int
		orOption    bool
		next        blockState
		action      courseAction
	}{
		{blockNone, 0, false, blockNone, actionAppend},
		{blockNone, 0, true, blockNone, actionMerge},
		{looseOr, 0, false, blockNone, actionMerge},
		{looseOr, 0, true, blockNone, actionMerge},

		{blockOpen, 0, false, blockOpen, actionPushOption},
		{blockOpen, 0, true, blockOpen, actionPushOption},
		{blockAfterOr, 0, false, blockSeparated, actionPushOption},
		{blockSeparated, 0, false, blockSeparated, actionPushOption},

		{blockOpen, 1, true, blockSeparated, actionPushOption},
		{blockSeparated, 2, true, blockSeparated, actionPushOption},
		{blockAfterOr, 1, true, blockSeparated, actionPushOption},

		{blockAfterOr, 1, false, blockSeparated, actionPushOption},
		{blockOpen, 3, false, blockOpen, actionPushOption},
		{blockSeparated, 2, false, blockNone, actionCloseAndAppend},
	}

	for _, tt := range tests {
		next, action := nextOnCourse(tt.state, tt.accumulated, tt.orOption)
		if next != tt.next || action != tt.action {
			t.Errorf("nextOnCourse(%v, %d, %v) = (%v, %d), want (%v, %d)",
				tt.state, tt.accumulated, tt.orOption, next, action, tt.next, tt.action)
		}
	}
}

func TestNextOnCourse_UnknownStatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for an unknown state")
		}
	}()
	nextOnCourse(blockState(99), 0, false)
}

func TestNextOnOr(t *testing.T) {
	tests := []struct {
		state       blockState
		hasPrevious bool
		next        blockState
		ok          bool
	}{
		{blockOpen, false, blockAfterOr, true},
		{blockSeparated, true, blockAfterOr, true},
		{blockAfterOr, true, blockAfterOr, true},
		{blockNone, true, looseOr, true},
		{blockNone, false, blockNone, false},
		{looseOr, true, looseOr, false},
	}
	for _, tt := range tests {
		next, ok := nextOnOr(tt.state, tt.hasPrevious)
		if next != tt.next || ok != tt.ok {
			t.Errorf("nextOnOr(%v, %v) = (%v, %v), want (%v, %v)", tt.state, tt.hasPrevious, next, ok, tt.next, tt.ok)
		}
	}
}

func TestClassifyComment(t *testing.T) {
	tests := map[string]commentKind{
		"or":   commentOr,
		" OR ": commentOr,
		"Select one sequence from the following:": commentSFTF,
		"Select from the following":               commentSFTF,
		"select 8 units from the following list":  commentSFTF,
		"Select courses in consultation":          commentOther,
		"Choose one":                              commentOther,
		"or better":                               commentOther,
	}
	for text, want := range tests {
		if got := classifyComment(text); got != want {
			t.Errorf("classifyComment(%q) = %d, want %d", text, got, want)
		}
	}
}

func TestBlockState_String(t *testing.T) {
	if blockAfterOr.String() != "after_or" {
		t.Errorf("unexpected %q", blockAfterOr.String())
	}
	if blockState(7).String() != "blockState(7)" {
		t.Errorf("unexpected %q", blockState(7).String())
	}
}

func TestCollapse(t *testing.T) {
	tests := []struct {
		name string
		in   model.Requirement
		want model.Requirement
		ok   bool
	}{
		{"course", model.NewCourse("CSC 101", 4), model.NewCourse("CSC 101", 4), true},
		{"empty or", model.NewOr(0), model.Requirement{}, false},
		{"singleton keeps child units", model.NewOr(4, model.NewCourse("CSC 101", 3)), model.NewCourse("CSC 101", 3), true},
		{"singleton inherits group units", model.NewOr(4, model.NewCourse("CSC 101", 0)), model.NewCourse("CSC 101", 4), true},
		{
			"nested singleton",
			model.NewOr(4, model.NewOr(0, model.NewCourse("A 1", 4)), model.NewCourse("B 2", 0)),
			model.NewOr(4, model.NewCourse("A 1", 4), model.NewCourse("B 2", 0)),
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := collapse(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got.String() != tt.want.String() {
				t.Errorf("collapse = %v, want %v", got, tt.want)
			}
			if ok && got.Units != tt.want.Units {
				t.Errorf("units = %d, want %d", got.Units, tt.want.Units)
			}
		})
	}
}
