package fold_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/textkit/textkit/chunk"
	"github.com/textkit/textkit/encoding"
	"github.com/textkit/textkit/fold"
	"github.com/textkit/textkit/linebreak"
	"github.com/textkit/textkit/textbuf"
)

func TestEmptyIndexConversionsAreIdentity(t *testing.T) {
	idx := fold.New()
	require.Equal(t, 42, idx.UnfoldedCharToFolded(42))
	require.Equal(t, 42, idx.FoldedCharToUnfolded(42))
	require.Equal(t, 3, idx.UnfoldedLineToFolded(3))
	require.Equal(t, 3, idx.FoldedLineToUnfolded(3))
}

func TestAddFoldIntoEmptyIndex(t *testing.T) {
	idx := fold.New()
	n, tok := idx.AddFold(10, 20, 2, 5)
	require.Equal(t, 1, idx.Len())
	require.NotEmpty(t, string(tok))
	require.Equal(t, 10, n.Value().Gap)
	require.Equal(t, 10, n.Value().Range)
	require.Equal(t, 2, n.Value().GapLines)
	require.Equal(t, 3, n.Value().FoldedLines)
}

func TestUnfoldedCharToFoldedClampsInsideFold(t *testing.T) {
	idx := fold.New()
	idx.AddFold(10, 20, 2, 5)

	require.Equal(t, 5, idx.UnfoldedCharToFolded(5))   // before the fold
	require.Equal(t, 10, idx.UnfoldedCharToFolded(10))  // at fold start
	require.Equal(t, 10, idx.UnfoldedCharToFolded(15))  // clamped inside the fold
	require.Equal(t, 10, idx.UnfoldedCharToFolded(20))  // right at fold end, still clamped
	require.Equal(t, 11, idx.UnfoldedCharToFolded(21))  // past the fold
}

func TestFoldedCharToUnfoldedRoundTripsOutsideFold(t *testing.T) {
	idx := fold.New()
	idx.AddFold(10, 20, 2, 5)

	for _, ch := range []int{0, 5, 9, 21, 30} {
		f := idx.UnfoldedCharToFolded(ch)
		require.Equal(t, ch, idx.FoldedCharToUnfolded(f), "char %d", ch)
	}
}

func TestAddSecondFoldAfterFirst(t *testing.T) {
	idx := fold.New()
	idx.AddFold(10, 20, 2, 5)
	idx.AddFold(30, 40, 8, 10)
	require.Equal(t, 2, idx.Len())

	require.Equal(t, 11, idx.UnfoldedCharToFolded(21)) // 21-10=11, one fold of width 10 already clamped out
	require.Equal(t, 21, idx.UnfoldedCharToFolded(41))
}

func TestAddFoldOverlappingExistingFoldMerges(t *testing.T) {
	idx := fold.New()
	idx.AddFold(10, 20, 2, 5)
	idx.AddFold(30, 40, 8, 10)

	// A fold covering [15, 35) overlaps both existing folds and should
	// erase and replace them with a single fold.
	idx.AddFold(15, 35, 3, 9)
	require.Equal(t, 1, idx.Len())

	n := idx.First()
	require.Equal(t, 15, n.Value().Gap)
	require.Equal(t, 20, n.Value().Range)
}

func TestRemoveFoldRestoresUnfoldedPositions(t *testing.T) {
	idx := fold.New()
	idx.AddFold(10, 20, 2, 5)
	n, _ := idx.AddFold(30, 40, 8, 10)
	idx.RemoveFold(idx.First())

	require.Equal(t, 1, idx.Len())
	require.Equal(t, n, idx.First())
	require.Equal(t, 30, idx.First().Value().Gap)

	for _, ch := range []int{5, 25, 45} {
		require.Equal(t, ch, idx.FoldedCharToUnfolded(idx.UnfoldedCharToFolded(ch)))
	}
}

func TestPrepareForEditAndFixupErasesConsumedFold(t *testing.T) {
	lines := linebreak.New()
	lines.Insert(lines.First(), 0, []linebreak.Line{
		{NonbreakChars: 40, Ending: linebreak.EndingNone},
	})
	reg := encoding.NewRegistry()
	dec, err := reg.Get("utf-8")
	require.NoError(t, err)
	chunks := chunk.New()
	chunks.Insert(chunks.First(), 0, []byte(
		"0123456789012345678901234567890123456789"), dec)

	idx := fold.New()
	idx.AddFold(10, 20, 0, 0)
	idx.PrepareForEdit(lines, chunks, dec)

	patcher := textbuf.NewPositionPatcher([]textbuf.PositionEdit{
		{StartByte: 5, EraseLen: 30, InsertedLen: 0},
	})
	idx.ApplyEditFixup(patcher, lines, chunks, dec)

	require.Equal(t, 0, idx.Len())
}
