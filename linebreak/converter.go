package linebreak

import "github.com/textkit/textkit/internal/invariant"

// Converter answers character<->codepoint position queries against an
// Index, caching the line last touched so that a run of monotonically
// increasing (or decreasing) queries — the common caret-movement and
// streaming-scan access pattern — costs O(1) amortized instead of
// O(log lines) per call.
type Converter struct {
	idx *Index

	cached         *Node
	cpStart, chStart int // absolute offsets at which the cached line begins
}

// NewConverter wraps idx for position conversion.
func NewConverter(idx *Index) *Converter {
	return &Converter{idx: idx, cached: idx.First()}
}

// seekCodepoint re-anchors the cache on the line containing absolute
// codepoint offset cp, unless it is already cached.
func (c *Converter) seekCodepoint(cp int) {
	if c.cached != nil && cp >= c.cpStart && cp <= c.cpStart+c.cached.Value().Codepoints() {
		return
	}
	line, _ := c.idx.LineColAtCodepoint(cp)
	n, cpStart, chStart := c.idx.LineAt(line)
	c.cached, c.cpStart, c.chStart = n, cpStart, chStart
}

// CodepointToChar converts an absolute codepoint offset to the
// corresponding absolute character offset.
func (c *Converter) CodepointToChar(cp int) int {
	invariant.Precondition(cp >= 0, "codepoint offset must be >= 0, got %d", cp)
	c.seekCodepoint(cp)
	within := cp - c.cpStart
	line := c.cached.Value()
	switch {
	case within <= line.NonbreakChars:
		return c.chStart + within
	case within < line.Codepoints():
		// Strictly inside a multi-codepoint (rn) ending: still the same
		// merged character as its first codepoint.
		return c.chStart + line.NonbreakChars
	default:
		return c.chStart + line.Chars()
	}
}

// CharToCodepoint converts an absolute character offset to the
// corresponding absolute codepoint offset. A character offset landing on
// an rn ending always resolves to the codepoint offset of the leading r.
func (c *Converter) CharToCodepoint(ch int) int {
	invariant.Precondition(ch >= 0, "character offset must be >= 0, got %d", ch)
	for {
		line := c.cached.Value()
		if ch >= c.chStart && ch <= c.chStart+line.Chars() {
			within := ch - c.chStart
			if within <= line.NonbreakChars {
				return c.cpStart + within
			}
			return c.cpStart + line.Codepoints()
		}
		if ch < c.chStart {
			c.moveTo(Prev(c.cached))
		} else {
			c.moveTo(Next(c.cached))
		}
	}
}

func (c *Converter) moveTo(n *Node) {
	invariant.Invariant(n != nil, "character offset out of range")
	if n == Next(c.cached) {
		c.cpStart += c.cached.Value().Codepoints()
		c.chStart += c.cached.Value().Chars()
	} else {
		c.cpStart -= n.Value().Codepoints()
		c.chStart -= n.Value().Chars()
	}
	c.cached = n
}
