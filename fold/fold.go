// Package fold implements the fold index. A fold collapses a
// character range (and the visual lines it spans) into a single row;
// Index stores folds as gap-encoded nodes (characters/lines since the
// previous fold's end) ordered by sequence position, and answers
// folded<->unfolded conversions for lines and caret positions as
// order-statistic lookups that clamp into the gap when a target lies
// inside a fold.
package fold

import (
	"github.com/textkit/textkit/chunk"
	"github.com/textkit/textkit/encoding"
	"github.com/textkit/textkit/internal/idtoken"
	"github.com/textkit/textkit/internal/invariant"
	"github.com/textkit/textkit/linebreak"
	"github.com/textkit/textkit/orderstat"
	"github.com/textkit/textkit/textbuf"
)

// Fold is a fold-tree node value. Gap/Range are in characters, relative to
// the end of the previous fold (or document start); GapLines/
// FoldedLines are the same relationship in visual lines. FirstByte/
// LastByte cache the fold's byte-position boundaries for the edit
// fixup pass and are only meaningful while the Index's byte cache is
// valid.
type Fold struct {
	Gap         int
	Range       int
	GapLines    int
	FoldedLines int
	FirstByte   int
	LastByte    int
	Token       idtoken.Token
}

// Agg is the per-subtree synthesized aggregate.
type Agg struct {
	GapChars    int
	RangeChars  int
	GapLines    int
	FoldedLines int
	Count       int
}

func synthesize(v Fold, left, right Agg) Agg {
	return Agg{
		GapChars:    left.GapChars + v.Gap + right.GapChars,
		RangeChars:  left.RangeChars + v.Range + right.RangeChars,
		GapLines:    left.GapLines + v.GapLines + right.GapLines,
		FoldedLines: left.FoldedLines + v.FoldedLines + right.FoldedLines,
		Count:       left.Count + 1 + right.Count,
	}
}

// Node is an iterator into an Index: a handle on one fold.
type Node = orderstat.Node[Fold, Agg]

// Index is the fold tree. It may be empty.
type Index struct {
	tree           *orderstat.Tree[Fold, Agg]
	tokens         *idtoken.Factory
	byteCacheValid bool
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		tree:   orderstat.New(Agg{}, synthesize),
		tokens: idtoken.NewFactory("fold", [32]byte{}),
	}
}

func (idx *Index) Len() int       { return idx.tree.Len() }
func (idx *Index) Aggregate() Agg { return idx.tree.Aggregate() }
func (idx *Index) First() *Node   { return idx.tree.Begin() }
func Next(n *Node) *Node          { return orderstat.Next(n) }
func Prev(n *Node) *Node          { return orderstat.Prev(n) }

type snapshot struct {
	n                             *Node
	start, end, lineStart, lineEnd int
}

func (idx *Index) snapshotAll() []snapshot {
	var snaps []snapshot
	charPos, linePos := 0, 0
	for n := idx.tree.Begin(); n != nil; n = Next(n) {
		v := n.Value()
		start := charPos + v.Gap
		end := start + v.Range
		lineStart := linePos + v.GapLines
		lineEnd := lineStart + v.FoldedLines
		snaps = append(snaps, snapshot{n, start, end, lineStart, lineEnd})
		charPos, linePos = end, lineEnd
	}
	return snaps
}

// AddFold collapses character range [a,b) (spanning visual lines
// [la,lb]) into a single fold, merging or displacing any folds it
// overlaps, and returns the resulting node and its opaque handle.
func (idx *Index) AddFold(a, b, la, lb int) (*Node, idtoken.Token) {
	invariant.Precondition(a < b, "fold range [%d, %d) must be non-empty", a, b)
	invariant.Precondition(la <= lb, "fold lines [%d, %d] must be non-decreasing", la, lb)

	snaps := idx.snapshotAll()

	begIdx := -1
	for i, s := range snaps {
		if s.end > a {
			begIdx = i
			break
		}
	}
	endIdx := -1
	for i := len(snaps) - 1; i >= 0; i-- {
		if snaps[i].start < b {
			endIdx = i
			break
		}
	}

	predIdx := begIdx - 1
	if begIdx < 0 {
		predIdx = len(snaps) - 1
	}
	var predEnd, predLineEnd int
	if predIdx >= 0 {
		predEnd, predLineEnd = snaps[predIdx].end, snaps[predIdx].lineEnd
	}

	tok := idx.tokens.Next()
	newFold := Fold{
		Gap:         a - predEnd,
		Range:       b - a,
		GapLines:    la - predLineEnd,
		FoldedLines: lb - la,
		Token:       tok,
	}
	invariant.Invariant(newFold.Gap >= 0 && newFold.GapLines >= 0, "fold at [%d, %d) overlaps a preceding fold", a, b)

	succIdx := endIdx + 1
	var succNode *Node
	if succIdx < len(snaps) {
		succNode = snaps[succIdx].n
	}

	if begIdx >= 0 {
		idx.tree.EraseRange(snaps[begIdx].n, succNode)
	}
	inserted := idx.tree.InsertBefore(succNode, newFold)

	if succNode != nil {
		idx.tree.Modify(succNode, func(f *Fold) {
			f.Gap = snaps[succIdx].start - b
			f.GapLines = snaps[succIdx].lineStart - lb
		})
	}

	idx.byteCacheValid = false
	return inserted, tok
}

// RemoveFold erases the fold at n, folding its gap and range back into
// its successor's gap so every later fold's absolute position is
// unaffected.
func (idx *Index) RemoveFold(n *Node) {
	v := n.Value()
	if next := Next(n); next != nil {
		idx.tree.Modify(next, func(f *Fold) {
			f.Gap += v.Gap + v.Range
			f.GapLines += v.GapLines + v.FoldedLines
		})
	}
	idx.tree.Erase(n)
	idx.byteCacheValid = false
}

// UnfoldedCharToFolded converts an absolute unfolded character
// position to its folded-coordinate position, clamping to the fold's
// start when the position lies inside a fold's hidden range.
func (idx *Index) UnfoldedCharToFolded(uCh int) int {
	target := uCh
	n, acc := idx.tree.Find(func(left Agg, v Fold, a *Agg) orderstat.Direction {
		leftSpan := left.GapChars + left.RangeChars
		if target < leftSpan {
			return orderstat.Left
		}
		within := target - leftSpan
		if within <= v.Gap {
			a.GapChars += left.GapChars + within
			return orderstat.Here
		}
		if within <= v.Gap+v.Range {
			a.GapChars += left.GapChars + v.Gap
			return orderstat.Here
		}
		target -= leftSpan + v.Gap + v.Range
		a.GapChars += left.GapChars + v.Gap
		return orderstat.Right
	})
	if n == nil {
		return acc.GapChars + target
	}
	return acc.GapChars
}

// FoldedCharToUnfolded converts a folded-coordinate character position
// back to its absolute unfolded position.
func (idx *Index) FoldedCharToUnfolded(fCh int) int {
	target := fCh
	n, acc := idx.tree.Find(func(left Agg, v Fold, a *Agg) orderstat.Direction {
		if target < left.GapChars {
			return orderstat.Left
		}
		within := target - left.GapChars
		if within <= v.Gap {
			a.GapChars += left.GapChars + within
			a.RangeChars += left.RangeChars
			return orderstat.Here
		}
		target -= left.GapChars + v.Gap
		a.GapChars += left.GapChars + v.Gap
		a.RangeChars += left.RangeChars + v.Range
		return orderstat.Right
	})
	if n == nil {
		return acc.GapChars + acc.RangeChars + target
	}
	return acc.GapChars + acc.RangeChars
}

// UnfoldedLineToFolded and FoldedLineToUnfolded are the visual-line
// counterparts of the character conversions above.
func (idx *Index) UnfoldedLineToFolded(uLine int) int {
	target := uLine
	n, acc := idx.tree.Find(func(left Agg, v Fold, a *Agg) orderstat.Direction {
		leftSpan := left.GapLines + left.FoldedLines
		if target < leftSpan {
			return orderstat.Left
		}
		within := target - leftSpan
		if within <= v.GapLines {
			a.GapLines += left.GapLines + within
			return orderstat.Here
		}
		if within <= v.GapLines+v.FoldedLines {
			a.GapLines += left.GapLines + v.GapLines
			return orderstat.Here
		}
		target -= leftSpan + v.GapLines + v.FoldedLines
		a.GapLines += left.GapLines + v.GapLines
		return orderstat.Right
	})
	if n == nil {
		return acc.GapLines + target
	}
	return acc.GapLines
}

func (idx *Index) FoldedLineToUnfolded(fLine int) int {
	target := fLine
	n, acc := idx.tree.Find(func(left Agg, v Fold, a *Agg) orderstat.Direction {
		if target < left.GapLines {
			return orderstat.Left
		}
		within := target - left.GapLines
		if within <= v.GapLines {
			a.GapLines += left.GapLines + within
			a.FoldedLines += left.FoldedLines
			return orderstat.Here
		}
		target -= left.GapLines + v.GapLines
		a.GapLines += left.GapLines + v.GapLines
		a.FoldedLines += left.FoldedLines + v.FoldedLines
		return orderstat.Right
	})
	if n == nil {
		return acc.GapLines + acc.FoldedLines + target
	}
	return acc.GapLines + acc.FoldedLines
}

// PrepareForEdit refreshes each fold's cached byte-position boundaries
// from its current character positions via lines and chunks, if the
// cache was invalidated by a prior AddFold/RemoveFold or fixup pass.
func (idx *Index) PrepareForEdit(lines *linebreak.Index, chunks *chunk.Index, dec encoding.Decoder) {
	if idx.byteCacheValid {
		return
	}
	conv := linebreak.NewConverter(lines)
	charPos := 0
	for n := idx.tree.Begin(); n != nil; n = Next(n) {
		v := n.Value()
		firstChar := charPos + v.Gap
		lastChar := firstChar + v.Range
		firstByte := chunks.ByteAtCodepoint(conv.CharToCodepoint(firstChar), dec)
		lastByte := chunks.ByteAtCodepoint(conv.CharToCodepoint(lastChar), dec)
		idx.tree.Modify(n, func(f *Fold) { f.FirstByte, f.LastByte = firstByte, lastByte })
		charPos = lastChar
	}
	idx.byteCacheValid = true
}

// ApplyEditFixup patches every fold's byte boundaries through patcher,
// re-derives its character/line gaps from the patched positions, and
// erases any fold whose range was fully consumed by the edit. Callers
// must have called PrepareForEdit since the last structural change.
func (idx *Index) ApplyEditFixup(patcher *textbuf.PositionPatcher, lines *linebreak.Index, chunks *chunk.Index, dec encoding.Decoder) {
	invariant.Precondition(idx.byteCacheValid, "prepare_for_edit must run before apply_edit_fixup")

	conv := linebreak.NewConverter(lines)
	prevChar, prevLine := 0, 0
	for n := idx.tree.Begin(); n != nil; {
		next := Next(n)
		v := n.Value()

		newFirstByte := patcher.PatchNext(textbuf.BiasAfter, v.FirstByte)
		newLastByte := patcher.PatchNext(textbuf.BiasBefore, v.LastByte)

		if newLastByte <= newFirstByte {
			idx.tree.Erase(n)
			n = next
			continue
		}

		firstCp := chunks.CodepointAtByte(newFirstByte, dec)
		lastCp := chunks.CodepointAtByte(newLastByte, dec)
		firstChar := conv.CodepointToChar(firstCp)
		lastChar := conv.CodepointToChar(lastCp)
		firstLine, _ := lines.LineColAtCodepoint(firstCp)
		lastLine, _ := lines.LineColAtCodepoint(lastCp)

		idx.tree.Modify(n, func(f *Fold) {
			f.Gap = firstChar - prevChar
			f.Range = lastChar - firstChar
			f.GapLines = firstLine - prevLine
			f.FoldedLines = lastLine - firstLine
			f.FirstByte, f.LastByte = newFirstByte, newLastByte
		})
		prevChar, prevLine = lastChar, lastLine
		n = next
	}
	idx.tree.RefreshAll()
	idx.byteCacheValid = false
}

// InOrder visits every fold in sequence order.
func (idx *Index) InOrder(visit func(Fold)) { idx.tree.InOrder(visit) }
