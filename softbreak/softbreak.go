// Package softbreak implements the soft-linebreak index. A soft
// break is a visual-only line split (word wrap) that does not change
// the line index's hard-line count, recorded as a character offset
// relative to it. Index
// answers "how many soft breaks lie before character position p" and
// its inverse, the primitives a joint visual-line query composes with
// the line index's hard-line queries.
package softbreak

import (
	"github.com/textkit/textkit/internal/invariant"
	"github.com/textkit/textkit/orderstat"
)

// Break is a soft-break-tree node value: the character gap since the previous soft
// break (or since document start, for the first node).
type Break struct {
	GapChars int
}

// Agg is the per-subtree synthesized aggregate.
type Agg struct {
	Chars int
	Count int
}

func synthesize(v Break, left, right Agg) Agg {
	return Agg{
		Chars: left.Chars + v.GapChars + right.Chars,
		Count: left.Count + 1 + right.Count,
	}
}

// Node is an iterator into an Index: a handle on one soft break.
type Node = orderstat.Node[Break, Agg]

// Index is the soft-break tree. Unlike the line or chunk tree it may be empty (a
// document with no soft-wrapped lines has no nodes at all).
type Index struct {
	tree *orderstat.Tree[Break, Agg]
}

// New creates an empty Index.
func New() *Index {
	return &Index{tree: orderstat.New(Agg{}, synthesize)}
}

func (idx *Index) Len() int       { return idx.tree.Len() }
func (idx *Index) Aggregate() Agg { return idx.tree.Aggregate() }
func (idx *Index) First() *Node   { return idx.tree.Begin() }
func Next(n *Node) *Node          { return orderstat.Next(n) }
func Prev(n *Node) *Node          { return orderstat.Prev(n) }

// At returns the node recorded exactly at character position ch, if
// any.
func (idx *Index) At(ch int) (*Node, bool) {
	n, before := idx.breakAtOrAfter(ch)
	if n == nil || before+n.Value().GapChars != ch {
		return nil, false
	}
	return n, true
}

// CountBefore returns the number of soft breaks whose character
// position is strictly less than ch.
func (idx *Index) CountBefore(ch int) int {
	target := ch
	_, acc := idx.tree.Find(func(left Agg, v Break, a *Agg) orderstat.Direction {
		if target <= left.Chars {
			return orderstat.Left
		}
		if target <= left.Chars+v.GapChars {
			a.Count += left.Count
			return orderstat.Here
		}
		target -= left.Chars + v.GapChars
		a.Count += left.Count + 1
		return orderstat.Right
	})
	return acc.Count
}

// CharAt returns the absolute character position of the k-th (0-based)
// soft break in sequence order.
func (idx *Index) CharAt(k int) int {
	invariant.Precondition(k >= 0 && k < idx.tree.Len(), "soft break index %d out of range [0, %d)", k, idx.tree.Len())
	target := k
	_, acc := idx.tree.Find(func(left Agg, v Break, a *Agg) orderstat.Direction {
		if target < left.Count {
			return orderstat.Left
		}
		if target == left.Count {
			a.Chars += left.Chars + v.GapChars
			return orderstat.Here
		}
		target -= left.Count + 1
		a.Chars += left.Chars + v.GapChars
		return orderstat.Right
	})
	return acc.Chars
}

// Insert records a new soft break at absolute character position ch.
// ch must not already be a recorded soft break.
func (idx *Index) Insert(ch int) *Node {
	n, before := idx.breakAtOrAfter(ch)
	gap := ch - before
	invariant.Precondition(gap >= 0, "soft break position %d precedes prior break ending at %d", ch, before)
	inserted := idx.tree.InsertBefore(n, Break{GapChars: gap})
	if n != nil {
		idx.tree.Modify(n, func(b *Break) { b.GapChars -= gap })
	}
	return inserted
}

// breakAtOrAfter finds the first node whose absolute position is >= ch
// (nil if none), and the absolute position at which the prior node
// ends (0 if there is none).
func (idx *Index) breakAtOrAfter(ch int) (n *Node, before int) {
	target := ch
	n, acc := idx.tree.Find(func(left Agg, v Break, a *Agg) orderstat.Direction {
		if target <= left.Chars {
			return orderstat.Left
		}
		if target <= left.Chars+v.GapChars {
			a.Chars += left.Chars
			return orderstat.Here
		}
		target -= left.Chars + v.GapChars
		a.Chars += left.Chars + v.GapChars
		return orderstat.Right
	})
	return n, acc.Chars
}

// Remove erases the soft break at n, folding its gap into its
// successor's gap so every later break's absolute position is
// unaffected.
func (idx *Index) Remove(n *Node) {
	if next := Next(n); next != nil {
		gap := n.Value().GapChars
		idx.tree.Modify(next, func(b *Break) { b.GapChars += gap })
	}
	idx.tree.Erase(n)
}

// InOrder visits every soft break's gap in sequence order.
func (idx *Index) InOrder(visit func(Break)) { idx.tree.InOrder(visit) }
