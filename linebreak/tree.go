package linebreak

import (
	"github.com/textkit/textkit/internal/invariant"
	"github.com/textkit/textkit/orderstat"
)

// Agg is the per-subtree synthesized aggregate: total codepoints, total
// user-visible characters, total line breaks, and total line count.
type Agg struct {
	Codepoints int
	Chars      int
	Breaks     int
	Count      int
}

func synthesize(v Line, left, right Agg) Agg {
	return Agg{
		Codepoints: left.Codepoints + v.Codepoints() + right.Codepoints,
		Chars:      left.Chars + v.Chars() + right.Chars,
		Breaks:     left.Breaks + v.Ending.Breaks() + right.Breaks,
		Count:      left.Count + 1 + right.Count,
	}
}

// Node is an iterator into an Index: a handle on one Line.
type Node = orderstat.Node[Line, Agg]

// Index is the line tree. It always contains at least one line, and
// the last line in sequence order always has Ending == EndingNone.
type Index struct {
	tree *orderstat.Tree[Line, Agg]
}

// New creates an Index holding a single empty terminator line.
func New() *Index {
	idx := &Index{tree: orderstat.New(Agg{}, synthesize)}
	idx.tree.InsertBefore(nil, Line{NonbreakChars: 0, Ending: EndingNone})
	return idx
}

// Len returns the number of lines.
func (idx *Index) Len() int { return idx.tree.Len() }

// Aggregate returns the totals over the whole document.
func (idx *Index) Aggregate() Agg { return idx.tree.Aggregate() }

// First returns the first line.
func (idx *Index) First() *Node { return idx.tree.Begin() }

// Next and Prev walk the sequence.
func Next(n *Node) *Node { return orderstat.Next(n) }
func Prev(n *Node) *Node { return orderstat.Prev(n) }

// LineAt returns the node at 0-based line index k along with the
// codepoint and character offsets at which that line starts.
func (idx *Index) LineAt(k int) (n *Node, cpStart, chStart int) {
	invariant.Precondition(k >= 0 && k < idx.tree.Len(), "line index %d out of range [0, %d)", k, idx.tree.Len())
	target := k
	n, acc := idx.tree.Find(func(left Agg, v Line, a *Agg) orderstat.Direction {
		if target < left.Count {
			return orderstat.Left
		}
		if target == left.Count {
			a.Codepoints += left.Codepoints
			a.Chars += left.Chars
			return orderstat.Here
		}
		target -= left.Count + 1
		a.Codepoints += left.Codepoints + v.Codepoints()
		a.Chars += left.Chars + v.Chars()
		return orderstat.Right
	})
	return n, acc.Codepoints, acc.Chars
}

// LineColAtCodepoint returns the 0-based (line, column) position of
// codepoint offset cp, where column is counted in codepoints from the
// start of the line. An offset just past a line's ending belongs to the
// next line (column 0); the document end belongs to the last line.
func (idx *Index) LineColAtCodepoint(cp int) (line, col int) {
	invariant.Precondition(cp >= 0 && cp <= idx.tree.Aggregate().Codepoints, "codepoint offset %d out of range", cp)
	target := cp
	n, acc := idx.tree.Find(func(left Agg, v Line, a *Agg) orderstat.Direction {
		if target < left.Codepoints {
			return orderstat.Left
		}
		within := target - left.Codepoints
		if within < v.Codepoints() || (within == v.Codepoints() && v.Ending == EndingNone) {
			a.Count += left.Count
			target = within
			return orderstat.Here
		}
		target -= left.Codepoints + v.Codepoints()
		a.Count += left.Count + 1
		return orderstat.Right
	})
	invariant.Postcondition(n != nil, "codepoint offset %d out of range", cp)
	return acc.Count, target
}

// CodepointAtLineCol converts a (line, column) position back to an
// absolute codepoint offset.
func (idx *Index) CodepointAtLineCol(line, col int) int {
	n, cpStart, _ := idx.LineAt(line)
	invariant.Precondition(col >= 0 && col <= n.Value().Codepoints(), "column %d out of range for line %d", col, line)
	return cpStart + col
}

// normalizeForward advances (n, offset) to (Next(n), 0) whenever offset
// sits exactly at the end of n's line and n is not the terminator line,
// so every caller sees offsets in [0, n.NonbreakChars] or, only for an
// rn ending, the single interior value NonbreakChars+1.
func normalizeForward(n *Node, offset int) (*Node, int) {
	for offset == n.Value().Codepoints() && n.Value().Ending != EndingNone {
		n = Next(n)
		offset = 0
	}
	return n, offset
}

// splitMidRN splits n into an r-ending line and an empty n-ending line
// when offset lands strictly between the r and the n of an rn ending.
// It returns the node at which offset now means "right here" (0), and
// whether a split happened.
func (idx *Index) splitMidRN(n *Node, offset int) (*Node, int, bool) {
	v := n.Value()
	if v.Ending == EndingRN && offset == v.NonbreakChars+1 {
		idx.tree.Modify(n, func(l *Line) { l.Ending = EndingR })
		next := idx.tree.InsertBefore(Next(n), Line{NonbreakChars: 0, Ending: EndingN})
		return next, 0, true
	}
	invariant.Invariant(offset <= v.NonbreakChars, "offset %d lands inside a non-rn ending of line with %d nonbreak chars", offset, v.NonbreakChars)
	return n, offset, false
}

// normalizeCRLFAt checks the boundary between n and Next(n) and, if it
// violates CRLF atomicity (an r ending immediately followed by a bare
// empty n-ending line), merges them into a single rn-ending line. It
// reports whether a merge happened.
func (idx *Index) normalizeCRLFAt(n *Node) bool {
	if n == nil {
		return false
	}
	next := Next(n)
	if next == nil {
		return false
	}
	v, nv := n.Value(), next.Value()
	if v.Ending == EndingR && nv.NonbreakChars == 0 && nv.Ending == EndingN {
		idx.tree.Modify(n, func(l *Line) { l.Ending = EndingRN })
		idx.tree.Erase(next)
		return true
	}
	return false
}

// Insert splices clip into the line at node `at`, starting at codepoint
// offset within that line. clip must be non-empty and its final entry
// must have Ending == EndingNone (it represents text still attached to
// whatever used to follow the insertion point).
//
// It returns whether an existing rn ending was split by the insertion
// point, and whether the insertion merged a leading/trailing r or n of
// the clip with an adjacent ending to restore CRLF atomicity.
func (idx *Index) Insert(at *Node, offset int, clip []Line) (split, mergeFront, mergeBack bool) {
	invariant.Precondition(len(clip) > 0, "insert clip must not be empty")
	invariant.Precondition(clip[len(clip)-1].Ending == EndingNone, "insert clip's final line must have ending none")

	at, offset = normalizeForward(at, offset)
	at, offset, split = idx.splitMidRN(at, offset)

	line := at.Value()
	prefixChars := offset
	suffixChars := line.NonbreakChars - offset
	originalEnding := line.Ending

	if len(clip) == 1 {
		idx.tree.Modify(at, func(l *Line) {
			l.NonbreakChars = prefixChars + clip[0].NonbreakChars + suffixChars
		})
		return split, false, false
	}

	first := Line{NonbreakChars: prefixChars + clip[0].NonbreakChars, Ending: clip[0].Ending}
	idx.tree.Modify(at, func(l *Line) { *l = first })

	cursor := at
	for i := 1; i < len(clip)-1; i++ {
		cursor = idx.tree.InsertBefore(Next(cursor), clip[i])
	}
	last := Line{NonbreakChars: clip[len(clip)-1].NonbreakChars + suffixChars, Ending: originalEnding}
	lastNode := idx.tree.InsertBefore(Next(cursor), last)

	mergeFront = idx.normalizeCRLFAt(Prev(at))
	mergeBack = idx.normalizeCRLFAt(lastNode)
	return split, mergeFront, mergeBack
}

// Erase removes the codepoint range [beg at begOffset, end at endOffset)
// and merges what remains of beg's and end's lines into one line.
//
// It returns whether the front and back boundaries each split an
// existing rn ending, and whether the resulting gap merged an r and n
// across the deleted range back into a single rn ending.
func (idx *Index) Erase(beg *Node, begOffset int, end *Node, endOffset int) (splitFront, splitBack, merge bool) {
	end, endOffset = normalizeForward(end, endOffset)
	end, endOffset, splitBack = idx.splitMidRN(end, endOffset)

	beg, begOffset = normalizeForward(beg, begOffset)
	beg, begOffset, splitFront = idx.splitMidRN(beg, begOffset)

	endLine := end.Value()
	prefixChars := begOffset
	suffixChars := endLine.NonbreakChars - endOffset
	invariant.Precondition(suffixChars >= 0, "end offset %d exceeds nonbreak chars %d", endOffset, endLine.NonbreakChars)

	merged := Line{NonbreakChars: prefixChars + suffixChars, Ending: endLine.Ending}
	idx.tree.Modify(beg, func(l *Line) { *l = merged })

	if beg != end {
		idx.tree.EraseRange(Next(beg), Next(end))
	}

	mergedPrev := idx.normalizeCRLFAt(Prev(beg))
	mergedNext := idx.normalizeCRLFAt(beg)
	merge = mergedPrev || mergedNext
	return splitFront, splitBack, merge
}

// InOrder visits every line in sequence order.
func (idx *Index) InOrder(visit func(Line)) { idx.tree.InOrder(visit) }
