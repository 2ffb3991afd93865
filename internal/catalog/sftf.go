package catalog

import (
	"fmt"
	"strings"
)

// A select-from-the-following block appears in four layouts:
//
//	a) course / or course / or course        (or-option markers)
//	b) course / or / course / or / course    (dedicated "or" rows)
//	c) course / course / course              (no separators at all)
//	d) course / or course                    (or-option outside any block)
//
// blockState captures which layout is in force so that each course row
// can be routed by a single transition function.
type blockState int

const (
	blockNone      blockState = iota // normal flow, no block open
	blockOpen                        // in a block, no separator seen yet (layout c until proven otherwise)
	blockSeparated                   // in a block whose options are separated by "or"
	blockAfterOr                     // in a block, a dedicated "or" row just preceded
	looseOr                          // outside any block, a dedicated "or" row awaits its second alternative
)

func (s blockState) String() string {
	switch s {
	case blockNone:
		return "none"
	case blockOpen:
		return "open"
	case blockSeparated:
		return "separated"
	case blockAfterOr:
		return "after_or"
	case looseOr:
		return "loose_or"
	default:
		return fmt.Sprintf("blockState(%d)", int(s))
	}
}

func (s blockState) inBlock() bool {
	return s == blockOpen || s == blockSeparated || s == blockAfterOr
}

// courseAction is what the scanner does with a course row
type courseAction int

const (
	actionAppend         courseAction = iota // new top-level item
	actionMerge                              // or-merge with the previous top-level item
	actionPushOption                         // add to the open block's alternatives
	actionCloseAndAppend                     // close the block, then append as a new top-level item
)

// nextOnCourse routes a course row. First match wins:
//
//	accumulated  or-option  state       action
//	0            any        in block    push option
//	>=1          yes        in block    push option, separator becomes "or"
//	>=1          no         after_or    push option
//	>=1          no         open        push option
//	>=1          no         separated   close block, append
func nextOnCourse(state blockState, accumulated int, isOrOption bool) (blockState, courseAction) {
	switch state {
	case blockNone:
		if isOrOption {
			return blockNone, actionMerge
		}
		return blockNone, actionAppend
	case looseOr:
		return blockNone, actionMerge
	case blockOpen, blockSeparated, blockAfterOr:
		if accumulated == 0 {
			if state == blockAfterOr {
				return blockSeparated, actionPushOption
			}
			return state, actionPushOption
		}
		if isOrOption {
			return blockSeparated, actionPushOption
		}
		switch state {
		case blockAfterOr:
			return blockSeparated, actionPushOption
		case blockOpen:
			return blockOpen, actionPushOption
		default:
			return blockNone, actionCloseAndAppend
		}
	default:
		panic(fmt.Sprintf("catalog: unhandled block state %v", state))
	}
}

// commentKind distinguishes the comment rows the resolver reacts to
type commentKind int

const (
	commentOther commentKind = iota
	commentSFTF
	commentOr
)

func classifyComment(text string) commentKind {
	switch {
	case strings.EqualFold(strings.TrimSpace(text), "or"):
		return commentOr
	case sftfPattern.MatchString(text):
		return commentSFTF
	default:
		return commentOther
	}
}

// nextOnOr handles a dedicated "or" row. Outside a block it arms a one-shot
// merge with the previous item when one exists; ok=false means the row has
// nothing to attach to.
func nextOnOr(state blockState, hasPrevious bool) (next blockState, ok bool) {
	switch state {
	case blockOpen, blockSeparated, blockAfterOr:
		return blockAfterOr, true
	case blockNone:
		if !hasPrevious {
			return blockNone, false
		}
		return looseOr, true
	case looseOr:
		return looseOr, false
	default:
		panic(fmt.Sprintf("catalog: unhandled block state %v", state))
	}
}
