package softbreak_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/textkit/textkit/linebreak"
	"github.com/textkit/textkit/softbreak"
)

func TestEmptyIndexHasNoBreaks(t *testing.T) {
	idx := softbreak.New()
	require.Equal(t, 0, idx.Len())
	require.Equal(t, 0, idx.CountBefore(100))
}

func TestInsertAndCharAt(t *testing.T) {
	idx := softbreak.New()
	idx.Insert(10)
	idx.Insert(25)
	idx.Insert(5)

	require.Equal(t, 3, idx.Len())
	require.Equal(t, 5, idx.CharAt(0))
	require.Equal(t, 10, idx.CharAt(1))
	require.Equal(t, 25, idx.CharAt(2))
}

func TestCountBefore(t *testing.T) {
	idx := softbreak.New()
	idx.Insert(10)
	idx.Insert(25)

	require.Equal(t, 0, idx.CountBefore(5))
	require.Equal(t, 0, idx.CountBefore(10))
	require.Equal(t, 1, idx.CountBefore(11))
	require.Equal(t, 1, idx.CountBefore(25))
	require.Equal(t, 2, idx.CountBefore(26))
}

func TestAtFindsExactPosition(t *testing.T) {
	idx := softbreak.New()
	idx.Insert(10)

	n, ok := idx.At(10)
	require.True(t, ok)
	require.Equal(t, 10, idx.CharAt(0))
	_ = n

	_, ok = idx.At(11)
	require.False(t, ok)
}

func TestRemoveFoldsGapIntoSuccessor(t *testing.T) {
	idx := softbreak.New()
	idx.Insert(10)
	n25 := idx.Insert(25)
	idx.Insert(5)

	n10, _ := idx.At(10)
	idx.Remove(n10)

	require.Equal(t, 2, idx.Len())
	require.Equal(t, 5, idx.CharAt(0))
	require.Equal(t, 25, idx.CharAt(1))
	require.Equal(t, 25, n25.Value().GapChars+idx.CharAt(0))
}

func TestVisualRowAtCharWithNoSoftBreaks(t *testing.T) {
	lines := linebreak.New()
	clip := []linebreak.Line{
		{NonbreakChars: 5, Ending: linebreak.EndingN},
		{NonbreakChars: 5, Ending: linebreak.EndingNone},
	}
	lines.Insert(lines.First(), 0, clip)

	vi := softbreak.NewVisualIndex(lines, softbreak.New())
	require.Equal(t, 0, vi.RowAtChar(3))
	require.Equal(t, 1, vi.RowAtChar(6))
	require.Equal(t, 2, vi.RowCount())
}

func TestVisualRowAtCharWithSoftBreaks(t *testing.T) {
	lines := linebreak.New()
	clip := []linebreak.Line{
		{NonbreakChars: 20, Ending: linebreak.EndingNone},
	}
	lines.Insert(lines.First(), 0, clip)

	soft := softbreak.New()
	soft.Insert(8)
	soft.Insert(15)

	vi := softbreak.NewVisualIndex(lines, soft)
	require.Equal(t, 3, vi.RowCount())
	require.Equal(t, 0, vi.RowAtChar(5))
	require.Equal(t, 1, vi.RowAtChar(10))
	require.Equal(t, 2, vi.RowAtChar(18))
}

func TestCharAtRowIsInverseOfRowAtChar(t *testing.T) {
	lines := linebreak.New()
	clip := []linebreak.Line{
		{NonbreakChars: 20, Ending: linebreak.EndingNone},
	}
	lines.Insert(lines.First(), 0, clip)

	soft := softbreak.New()
	soft.Insert(8)
	soft.Insert(15)

	vi := softbreak.NewVisualIndex(lines, soft)
	for row := 0; row < vi.RowCount(); row++ {
		ch := vi.CharAtRow(row)
		require.Equal(t, row, vi.RowAtChar(ch))
	}
}
