package linebreak_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/textkit/textkit/linebreak"
)

// collect returns the NonbreakChars/Ending pairs of every line in order.
func collect(idx *linebreak.Index) []linebreak.Line {
	var out []linebreak.Line
	idx.InOrder(func(l linebreak.Line) { out = append(out, l) })
	return out
}

func TestNewIndexHasSingleTerminatorLine(t *testing.T) {
	idx := linebreak.New()
	require.Equal(t, 1, idx.Len())
	lines := collect(idx)
	require.Equal(t, linebreak.Line{NonbreakChars: 0, Ending: linebreak.EndingNone}, lines[0])
}

func TestInsertPlainTextIntoTerminator(t *testing.T) {
	idx := linebreak.New()
	n := idx.First()
	split, mf, mb := idx.Insert(n, 0, []linebreak.Line{{NonbreakChars: 5, Ending: linebreak.EndingNone}})
	require.False(t, split)
	require.False(t, mf)
	require.False(t, mb)
	require.Equal(t, 1, idx.Len())
	require.Equal(t, 5, idx.Aggregate().Codepoints)
}

func TestInsertLineBreakSplitsTerminator(t *testing.T) {
	idx := linebreak.New()
	n := idx.First()
	// "hello\nworld" -> ["hello\n", "world"]
	clip := []linebreak.Line{
		{NonbreakChars: 5, Ending: linebreak.EndingN},
		{NonbreakChars: 5, Ending: linebreak.EndingNone},
	}
	idx.Insert(n, 0, clip)
	require.Equal(t, 2, idx.Len())
	lines := collect(idx)
	require.Equal(t, linebreak.Line{NonbreakChars: 5, Ending: linebreak.EndingN}, lines[0])
	require.Equal(t, linebreak.Line{NonbreakChars: 5, Ending: linebreak.EndingNone}, lines[1])
	require.Equal(t, 1, idx.Aggregate().Breaks)
}

func TestInsertAtCRLFMiddleSplitsWithoutMerging(t *testing.T) {
	// Start: "a\r\nb" -> lines: ["a" + rn] ["b" + none]
	idx := linebreak.New()
	n := idx.First()
	idx.Insert(n, 0, []linebreak.Line{
		{NonbreakChars: 1, Ending: linebreak.EndingRN},
		{NonbreakChars: 1, Ending: linebreak.EndingNone},
	})
	require.Equal(t, 2, idx.Len())

	// Insert "X" at codepoint offset 2 within the first line, i.e.
	// between the r and the n of the rn ending. This both splits the rn
	// ending and leaves the inserted "X" attached to the new lone-n line.
	first := idx.First()
	split, mergeFront, mergeBack := idx.Insert(first, 2, []linebreak.Line{{NonbreakChars: 1, Ending: linebreak.EndingNone}})
	require.True(t, split)
	require.False(t, mergeFront)
	require.False(t, mergeBack)

	lines := collect(idx)
	require.Equal(t, 3, len(lines))
	require.Equal(t, linebreak.Line{NonbreakChars: 1, Ending: linebreak.EndingR}, lines[0]) // "a\r"
	require.Equal(t, linebreak.Line{NonbreakChars: 1, Ending: linebreak.EndingN}, lines[1]) // "X\n"
	require.Equal(t, linebreak.Line{NonbreakChars: 1, Ending: linebreak.EndingNone}, lines[2]) // "b"
	// Splitting the rn ending turns one merged character into two lone
	// ones, so the character count grows by two even though only one
	// codepoint was inserted.
	require.Equal(t, 5, idx.Aggregate().Codepoints)
	require.Equal(t, 5, idx.Aggregate().Chars)
}

func TestInsertMergesLeadingNWithPrecedingR(t *testing.T) {
	// Existing: line0 ends in lone r, line1 is the terminator.
	idx := linebreak.New()
	n := idx.First()
	idx.Insert(n, 0, []linebreak.Line{
		{NonbreakChars: 1, Ending: linebreak.EndingR},
		{NonbreakChars: 0, Ending: linebreak.EndingNone},
	})
	require.Equal(t, 2, idx.Len())

	// Insert a clip beginning with a bare n (no preceding content) right
	// at the start of the terminator line: "a\r" + insert("\n...") should
	// merge into a single rn line.
	terminator, _, _ := idx.LineAt(1)
	clip := []linebreak.Line{
		{NonbreakChars: 0, Ending: linebreak.EndingN},
		{NonbreakChars: 0, Ending: linebreak.EndingNone},
	}
	split, mergeFront, mergeBack := idx.Insert(terminator, 0, clip)
	require.False(t, split)
	require.True(t, mergeFront)
	require.False(t, mergeBack)

	lines := collect(idx)
	require.Equal(t, 2, len(lines))
	require.Equal(t, linebreak.EndingRN, lines[0].Ending)
	require.Equal(t, 1, lines[0].NonbreakChars)
}

func TestEraseJoinsTwoLines(t *testing.T) {
	idx := linebreak.New()
	n := idx.First()
	idx.Insert(n, 0, []linebreak.Line{
		{NonbreakChars: 5, Ending: linebreak.EndingN},
		{NonbreakChars: 5, Ending: linebreak.EndingNone},
	})
	require.Equal(t, 2, idx.Len())

	first, _, _ := idx.LineAt(0)
	// Erase the trailing n ending of line 0 (codepoint offset 5..6):
	// this joins "hello" and "world" into one line.
	splitFront, splitBack, merge := idx.Erase(first, 5, first, 6)
	require.False(t, splitFront)
	require.False(t, splitBack)
	require.False(t, merge)
	require.Equal(t, 1, idx.Len())
	lines := collect(idx)
	require.Equal(t, linebreak.Line{NonbreakChars: 10, Ending: linebreak.EndingNone}, lines[0])
}

func TestEraseWholeRNEndingJoinsLines(t *testing.T) {
	// "a\r\nb" -> erase exactly the rn ending (codepoints 1..3) joins
	// into a single line "ab".
	idx := linebreak.New()
	n := idx.First()
	idx.Insert(n, 0, []linebreak.Line{
		{NonbreakChars: 1, Ending: linebreak.EndingRN},
		{NonbreakChars: 1, Ending: linebreak.EndingNone},
	})
	first, _, _ := idx.LineAt(0)
	splitFront, splitBack, merge := idx.Erase(first, 1, first, 3)
	require.False(t, splitFront)
	require.False(t, splitBack)
	require.False(t, merge)
	require.Equal(t, 1, idx.Len())
	lines := collect(idx)
	require.Equal(t, linebreak.Line{NonbreakChars: 2, Ending: linebreak.EndingNone}, lines[0])
}

func TestLineColRoundTrip(t *testing.T) {
	idx := linebreak.New()
	n := idx.First()
	idx.Insert(n, 0, []linebreak.Line{
		{NonbreakChars: 3, Ending: linebreak.EndingN},
		{NonbreakChars: 4, Ending: linebreak.EndingN},
		{NonbreakChars: 2, Ending: linebreak.EndingNone},
	})
	line, col := idx.LineColAtCodepoint(5) // within second line ("foob" + n), offset 5 = index 4-3-1=... compute directly
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)
	require.Equal(t, 5, idx.CodepointAtLineCol(line, col))
}

func TestConverterCodepointCharRoundTrip(t *testing.T) {
	idx := linebreak.New()
	n := idx.First()
	idx.Insert(n, 0, []linebreak.Line{
		{NonbreakChars: 1, Ending: linebreak.EndingRN}, // "a\r\n" = 3 codepoints, 2 chars
		{NonbreakChars: 1, Ending: linebreak.EndingNone},
	})
	conv := linebreak.NewConverter(idx)
	require.Equal(t, 0, conv.CodepointToChar(0)) // 'a'
	require.Equal(t, 1, conv.CodepointToChar(1)) // start of rn
	require.Equal(t, 1, conv.CodepointToChar(2)) // inside rn, still char 1
	require.Equal(t, 2, conv.CodepointToChar(3)) // 'b'

	require.Equal(t, 0, conv.CharToCodepoint(0))
	require.Equal(t, 1, conv.CharToCodepoint(1))
	require.Equal(t, 3, conv.CharToCodepoint(2))
}
