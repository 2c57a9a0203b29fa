package textbuf_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/textkit/textkit/textbuf"
)

func TestPositionPatcherUnaffectedPositionShiftsByDelta(t *testing.T) {
	// "hello, world" -> insert "!" at byte 5 ("hello!, world"): a
	// position after the insertion point shifts by the inserted length.
	p := textbuf.NewPositionPatcher([]textbuf.PositionEdit{
		{StartByte: 5, EraseLen: 0, InsertedLen: 1},
	})
	require.Equal(t, 0, p.PatchNext(textbuf.BiasBefore, 0))
	require.Equal(t, 6, p.PatchNext(textbuf.BiasBefore, 5))
	require.Equal(t, 13, p.PatchNext(textbuf.BiasBefore, 12))
}

func TestPositionPatcherPositionInsideErasedSpanResolvesByBias(t *testing.T) {
	// erase bytes [2,5) and insert 2 bytes in their place.
	p := textbuf.NewPositionPatcher([]textbuf.PositionEdit{
		{StartByte: 2, EraseLen: 3, InsertedLen: 2},
	})
	require.Equal(t, 2, p.PatchNext(textbuf.BiasBefore, 3))

	q := textbuf.NewPositionPatcher([]textbuf.PositionEdit{
		{StartByte: 2, EraseLen: 3, InsertedLen: 2},
	})
	require.Equal(t, 4, q.PatchNext(textbuf.BiasAfter, 3))
}

func TestPositionPatcherMultipleEditsMonotoneQueries(t *testing.T) {
	p := textbuf.NewPositionPatcher([]textbuf.PositionEdit{
		{StartByte: 2, EraseLen: 1, InsertedLen: 3}, // +2
		{StartByte: 10, EraseLen: 2, InsertedLen: 0}, // -2
	})

	require.Equal(t, 1, p.PatchNext(textbuf.BiasBefore, 1))   // before first edit
	require.Equal(t, 7, p.PatchNext(textbuf.BiasBefore, 5))   // after first edit only: 5+2
	require.Equal(t, 18, p.PatchNext(textbuf.BiasBefore, 18)) // after both: 18+2-2
}
