package softbreak

import (
	"github.com/textkit/textkit/internal/invariant"
	"github.com/textkit/textkit/linebreak"
)

// VisualIndex answers visual-line <-> character queries by composing a
// linebreak.Index with a soft-break Index: every soft break adds one
// extra visual row on top of the hard-line rows.
//
// A literal tandem descent of both trees (as for a single combined
// order-statistic tree) would require exposing each tree's internal
// node shape to the other; instead each query descends one tree and
// consults the other through its public prefix-count queries, which
// are themselves O(log n) order-statistic lookups. When one index is
// empty the composed query degenerates to a plain lookup on the other,
// matching the documented fallback.
type VisualIndex struct {
	lines *linebreak.Index
	soft  *Index
	conv  *linebreak.Converter
}

// NewVisualIndex composes lines and soft into a VisualIndex.
func NewVisualIndex(lines *linebreak.Index, soft *Index) *VisualIndex {
	return &VisualIndex{lines: lines, soft: soft, conv: linebreak.NewConverter(lines)}
}

// RowAtChar returns the 0-based visual row containing character
// position ch: the hard line index plus every soft break strictly
// before ch.
func (vi *VisualIndex) RowAtChar(ch int) int {
	cp := vi.conv.CharToCodepoint(ch)
	line, _ := vi.lines.LineColAtCodepoint(cp)
	return line + vi.soft.CountBefore(ch)
}

// RowCount returns the total number of visual rows: one per hard line
// plus one per soft break.
func (vi *VisualIndex) RowCount() int {
	return vi.lines.Len() + vi.soft.Len()
}

// CharAtRow returns the smallest character position whose visual row
// is L, the inverse of RowAtChar. It binary-searches the monotone
// RowAtChar function over [0, total chars], also when the soft-break
// index is empty (CountBefore is then always 0, so the search runs
// over hard lines alone).
func (vi *VisualIndex) CharAtRow(L int) int {
	invariant.Precondition(L >= 0 && L < vi.RowCount(), "visual row %d out of range [0, %d)", L, vi.RowCount())

	total := vi.lines.Aggregate().Chars
	lo, hi := 0, total
	for lo < hi {
		mid := lo + (hi-lo)/2
		if vi.RowAtChar(mid) < L {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// RowsInRange reports, in order, every visual row from the one
// containing chFrom through the one containing chTo (both included) —
// used by a view to know how many screen lines an edit or a fold spans.
// It makes two RowAtChar lookups and lists the rows between them.
func (vi *VisualIndex) RowsInRange(chFrom, chTo int) []int {
	first := vi.RowAtChar(chFrom)
	last := vi.RowAtChar(chTo)
	rows := make([]int, 0, last-first+1)
	for r := first; r <= last; r++ {
		rows = append(rows, r)
	}
	return rows
}
