// Package chunk implements the codepoint-chunk index: a tree of
// contiguous byte runs, each tagged with its decoded codepoint count, that
// supports byte<->codepoint conversion and a streaming read cursor without
// ever materializing the whole buffer as one contiguous slice.
package chunk

import (
	"github.com/textkit/textkit/encoding"
	"github.com/textkit/textkit/internal/invariant"
	"github.com/textkit/textkit/orderstat"
)

// MinChunk and MaxChunk bound a chunk's byte length, not its codepoint
// count: a stricter bound than one on codepoints alone, since a chunk's
// byte length is always >= its codepoint count. Insert splits any chunk
// that grows past MaxChunk; Erase merges adjacent chunks that fall
// below MinChunk back together, the same amortized-rebalance policy a
// rope or piece table uses to keep node count proportional to edit count
// rather than document size.
const (
	MinChunk = 512
	MaxChunk = 4096
)

// Chunk is a chunk-tree node value: a contiguous byte run and its decoded
// codepoint count (so codepoint-addressed queries never need to
// re-decode a chunk's bytes).
type Chunk struct {
	Bytes      []byte
	Codepoints int
}

// Agg is the per-subtree synthesized aggregate.
type Agg struct {
	Bytes      int
	Codepoints int
	Count      int
}

func synthesize(v Chunk, left, right Agg) Agg {
	return Agg{
		Bytes:      left.Bytes + len(v.Bytes) + right.Bytes,
		Codepoints: left.Codepoints + v.Codepoints + right.Codepoints,
		Count:      left.Count + 1 + right.Count,
	}
}

// Node is an iterator into an Index: a handle on one Chunk.
type Node = orderstat.Node[Chunk, Agg]

// Index is the chunk tree. It always contains at least one (possibly
// empty) chunk.
type Index struct {
	tree *orderstat.Tree[Chunk, Agg]
}

// New creates an empty Index.
func New() *Index {
	idx := &Index{tree: orderstat.New(Agg{}, synthesize)}
	idx.tree.InsertBefore(nil, Chunk{})
	return idx
}

func (idx *Index) Len() int        { return idx.tree.Len() }
func (idx *Index) Aggregate() Agg  { return idx.tree.Aggregate() }
func (idx *Index) First() *Node    { return idx.tree.Begin() }
func Next(n *Node) *Node           { return orderstat.Next(n) }
func Prev(n *Node) *Node           { return orderstat.Prev(n) }

// ChunkAtByte finds the chunk containing absolute byte offset b and the
// byte offset at which that chunk starts. A boundary position resolves
// to the earlier chunk, except when b is the very end of the document,
// which resolves to the last chunk.
func (idx *Index) ChunkAtByte(b int) (n *Node, byteStart, codepointStart int) {
	target := b
	n, acc := idx.tree.Find(func(left Agg, v Chunk, a *Agg) orderstat.Direction {
		if target < left.Bytes {
			return orderstat.Left
		}
		within := target - left.Bytes
		if within <= len(v.Bytes) {
			a.Bytes += left.Bytes
			a.Codepoints += left.Codepoints
			return orderstat.Here
		}
		target -= left.Bytes + len(v.Bytes)
		a.Bytes += left.Bytes + len(v.Bytes)
		a.Codepoints += left.Codepoints + v.Codepoints
		return orderstat.Right
	})
	invariant.Postcondition(n != nil, "byte offset %d out of range", b)
	return n, acc.Bytes, acc.Codepoints
}

// CodepointAtByte decodes forward from the start of the chunk containing
// byte offset b to translate it to an absolute codepoint offset. dec
// must be the same decoder the bytes were produced with.
func (idx *Index) CodepointAtByte(b int, dec encoding.Decoder) int {
	n, byteStart, cpStart := idx.ChunkAtByte(b)
	chunk := n.Value()
	pos := 0
	cp := 0
	for pos < b-byteStart {
		_, size, _ := dec.NextCodepoint(chunk.Bytes, pos, len(chunk.Bytes))
		pos += size
		cp++
	}
	return cpStart + cp
}

// ChunkAtCodepoint finds the chunk containing absolute codepoint offset
// cp and the byte/codepoint offsets at which that chunk starts. It is
// the codepoint-indexed counterpart of ChunkAtByte.
func (idx *Index) ChunkAtCodepoint(cp int) (n *Node, byteStart, codepointStart int) {
	target := cp
	n, acc := idx.tree.Find(func(left Agg, v Chunk, a *Agg) orderstat.Direction {
		if target < left.Codepoints {
			return orderstat.Left
		}
		within := target - left.Codepoints
		if within <= v.Codepoints {
			a.Bytes += left.Bytes
			a.Codepoints += left.Codepoints
			return orderstat.Here
		}
		target -= left.Codepoints + v.Codepoints
		a.Bytes += left.Bytes + len(v.Bytes)
		a.Codepoints += left.Codepoints + v.Codepoints
		return orderstat.Right
	})
	invariant.Postcondition(n != nil, "codepoint offset %d out of range", cp)
	return n, acc.Bytes, acc.Codepoints
}

// ByteAtCodepoint decodes forward from the start of the chunk
// containing codepoint offset cp to translate it to an absolute byte
// offset, the inverse of CodepointAtByte.
func (idx *Index) ByteAtCodepoint(cp int, dec encoding.Decoder) int {
	n, byteStart, cpStart := idx.ChunkAtCodepoint(cp)
	chunk := n.Value()
	pos, count, target := 0, 0, cp-cpStart
	for count < target {
		_, size, _ := dec.NextCodepoint(chunk.Bytes, pos, len(chunk.Bytes))
		pos += size
		count++
	}
	return byteStart + pos
}

// Insert splices data into the chunk at node `at`, at byte offset
// `offset` within that chunk, decoding with dec to keep each resulting
// chunk's codepoint count exact. It splits the merged run into pieces
// of at most MaxChunk bytes, each ending on a codepoint boundary, if it
// would otherwise exceed MaxChunk.
func (idx *Index) Insert(at *Node, offset int, data []byte, dec encoding.Decoder) {
	invariant.Precondition(offset >= 0 && offset <= len(at.Value().Bytes), "offset %d out of range for chunk of %d bytes", offset, len(at.Value().Bytes))

	v := at.Value()
	merged := make([]byte, 0, len(v.Bytes)+len(data))
	merged = append(merged, v.Bytes[:offset]...)
	merged = append(merged, data...)
	merged = append(merged, v.Bytes[offset:]...)

	if len(merged) <= MaxChunk {
		idx.tree.Modify(at, func(c *Chunk) { c.Bytes = merged; c.Codepoints = countCodepoints(merged, dec) })
		return
	}

	after := Next(at)
	idx.tree.Erase(at)
	for len(merged) > 0 {
		n := 0
		for n < len(merged) {
			_, size, _ := dec.NextCodepoint(merged, n, len(merged))
			if n+size > MaxChunk {
				break
			}
			n += size
		}
		piece := merged[:n]
		idx.tree.InsertBefore(after, Chunk{Bytes: piece, Codepoints: countCodepoints(piece, dec)})
		merged = merged[n:]
	}
}

func countCodepoints(data []byte, dec encoding.Decoder) int {
	n, pos := 0, 0
	for pos < len(data) {
		_, size, _ := dec.NextCodepoint(data, pos, len(data))
		pos += size
		n++
	}
	return n
}

// Erase removes bytes [begOffset, endOffset) from `beg`'s and `end`'s
// chunks (and every whole chunk strictly between them), merging what
// remains into a single chunk. If that chunk has fallen below MinChunk
// and a neighbor remains, it is folded into the neighbor to keep chunk
// count proportional to edit count rather than document size.
func (idx *Index) Erase(beg *Node, begOffset int, end *Node, endOffset int, dec encoding.Decoder) {
	begChunk, endChunk := beg.Value(), end.Value()
	kept := append(append([]byte(nil), begChunk.Bytes[:begOffset]...), endChunk.Bytes[endOffset:]...)

	idx.tree.Modify(beg, func(c *Chunk) {
		c.Bytes = kept
		c.Codepoints = countCodepoints(kept, dec)
	})
	if beg != end {
		idx.tree.EraseRange(Next(beg), Next(end))
	}

	if len(kept) == 0 || len(kept) >= MinChunk {
		return
	}
	if next := Next(beg); next != nil {
		idx.mergeInto(beg, next, dec)
	} else if prev := Prev(beg); prev != nil {
		idx.mergeInto(prev, beg, dec)
	}
}

// mergeInto folds b's bytes into a and erases b, provided the result
// still fits in MaxChunk; a document with more chunks than necessary is
// corrected on the next edit instead of forced smaller here.
func (idx *Index) mergeInto(a, b *Node, dec encoding.Decoder) {
	av, bv := a.Value(), b.Value()
	if len(av.Bytes)+len(bv.Bytes) > MaxChunk {
		return
	}
	merged := append(append([]byte(nil), av.Bytes...), bv.Bytes...)
	idx.tree.Modify(a, func(c *Chunk) { c.Bytes = merged; c.Codepoints = countCodepoints(merged, dec) })
	idx.tree.Erase(b)
}

// InOrder visits every chunk in sequence order.
func (idx *Index) InOrder(visit func(Chunk)) { idx.tree.InOrder(visit) }
