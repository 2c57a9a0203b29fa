// Package linebreak implements a line index: a tree over lines, each
// carrying a non-break character count and a line ending kind, maintaining
// CRLF atomicity and a single terminator line under insert and erase.
package linebreak

import "github.com/textkit/textkit/internal/invariant"

// Ending is the sum type {none, r, n, rn}. none marks the final line only.
type Ending int

const (
	EndingNone Ending = iota
	EndingR
	EndingN
	EndingRN
)

func (e Ending) String() string {
	switch e {
	case EndingNone:
		return "none"
	case EndingR:
		return "r"
	case EndingN:
		return "n"
	case EndingRN:
		return "rn"
	default:
		return "invalid"
	}
}

// Codepoints is the number of codepoints this ending contributes: rn=2,
// r=1, n=1, none=0.
func (e Ending) Codepoints() int {
	switch e {
	case EndingRN:
		return 2
	case EndingNone:
		return 0
	default:
		return 1
	}
}

// Chars is the number of user-visible characters this ending
// contributes: a CRLF is one character, any other ending is one
// character, none is zero.
func (e Ending) Chars() int {
	if e == EndingNone {
		return 0
	}
	return 1
}

// Breaks is 1 for any real ending, 0 for none.
func (e Ending) Breaks() int {
	if e == EndingNone {
		return 0
	}
	return 1
}

// Line is a line-tree node value: a run of non-break characters followed by
// an Ending.
type Line struct {
	NonbreakChars int
	Ending        Ending
}

// Codepoints is the total codepoint length of this line (content + ending).
func (l Line) Codepoints() int { return l.NonbreakChars + l.Ending.Codepoints() }

// Chars is the total user-visible character length of this line.
func (l Line) Chars() int { return l.NonbreakChars + l.Ending.Chars() }

// validate panics if l violates the structural rules a Line must
// always satisfy (non-negative length; only a none-ending line may have
// zero total length).
func (l Line) validate() {
	invariant.Invariant(l.NonbreakChars >= 0, "nonbreak_chars must be >= 0, got %d", l.NonbreakChars)
}
