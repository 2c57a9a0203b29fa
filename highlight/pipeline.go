package highlight

import (
	"math"

	"github.com/textkit/textkit/internal/telemetry"
)

// Status is the outcome of one compute_highlight pass.
type Status int

const (
	Completed Status = iota
	Cancelled
)

// CharRange is one resolved theme range in character coordinates
// (half-open), the form published to views.
type CharRange struct {
	Start, End int
	Theme      ThemeID
}

// Result is compute_highlight's return value: either an assembled
// theme-range map, or a cancellation notice with no map at all (a
// cancelled pass is discarded, never partially published).
type Result struct {
	Status Status
	Ranges []CharRange
}

// Converter translates a byte offset to a character offset. The
// pipeline composes it from the owning interpretation's streaming
// converter (the line converter composed with the chunk cursor).
type Converter interface {
	CharAt(byteOffset int) int
}

// Tag is the per-interpretation highlight handle: a parser
// binding, the declared language, and the theme configuration its
// highlight passes resolve capture names against.
type Tag struct {
	Lang   Language
	Parser Parser
	Theme  *ThemeConfiguration
}

// NewTag constructs a Tag for one interpretation's highlight pipeline.
// A grammar whose ABI is outside the supported range is logged here,
// once; every pass of the returned Tag then yields an empty map.
func NewTag(lang Language, parser Parser, theme *ThemeConfiguration) *Tag {
	if !lang.Compatible() {
		telemetry.Logger("highlight").Warn("grammar ABI outside supported range; highlighting disabled",
			"language", lang.Name, "abi", lang.ABIVersion)
	}
	return &Tag{Lang: lang, Parser: parser, Theme: theme}
}

// wholeDocument is the included-range set a root layer starts with: the
// entire byte stream, since the streaming reader (not a range) bounds
// what is actually available.
var wholeDocument = []Range{{Start: 0, End: math.MaxInt32}}

// ComputeHighlight runs one highlight pass: parses read through the
// pluggable Parser, walks the resulting (possibly injected) layers,
// merges their captures into a flat theme-event stream, and converts it
// to a theme-range map in character coordinates. An incompatible
// grammar ABI or a query parse failure is the "highlight failure" case
// (a highlight failure): the pass completes with an empty map rather than erroring.
func (t *Tag) ComputeHighlight(read ByteReader, conv Converter, cancel *CancelToken) Result {
	if !t.Lang.Compatible() {
		return Result{Status: Completed}
	}

	layers, status := t.drainLayers(read, wholeDocument, 0, cancel)
	if status == Cancelled {
		return Result{Status: Cancelled}
	}

	events := MergeLayers(layers, t.Theme)
	return Result{Status: Completed, Ranges: eventsToRanges(events, conv)}
}

// drainLayers parses one layer (the root, or one spawned by an
// injection capture), drains its full capture list, and recursively
// spawns + drains a child layer for every injection capture it holds.
func (t *Tag) drainLayers(read ByteReader, ranges []Range, depth int, cancel *CancelToken) ([]LayerCaptures, Status) {
	if cancel.Cancelled() {
		return nil, Cancelled
	}

	cursor, err := t.Parser.Parse(t.Lang, ranges, read, cancel)
	if err != nil {
		return nil, Completed
	}

	var caps []Capture
	var injections []Capture
	for {
		if cancel.Cancelled() {
			return nil, Cancelled
		}
		c, ok := cursor.Next()
		if !ok {
			break
		}
		caps = append(caps, c)
		if c.Injection != nil {
			injections = append(injections, c)
		}
	}

	out := []LayerCaptures{{Captures: caps, Depth: depth}}
	for _, inj := range injections {
		childRanges := intersectRanges(ranges, Range{Start: inj.Start, End: inj.End})
		if len(inj.Injection.ExcludedChildren) > 0 {
			childRanges = subtractRanges(childRanges, inj.Injection.ExcludedChildren)
		}
		if len(childRanges) == 0 {
			continue
		}

		child := &Tag{Lang: Language{Name: inj.Injection.Language, ABIVersion: t.Lang.ABIVersion}, Parser: t.Parser, Theme: t.Theme}
		childLayers, status := child.drainLayers(read, childRanges, depth+1, cancel)
		if status == Cancelled {
			return nil, Cancelled
		}
		out = append(out, childLayers...)
	}
	return out, Completed
}

// eventsToRanges folds a merged ThemeEvent stream (properly nested
// start/end pairs) into a flat CharRange list. A region closed at the
// same position it opened (an empty capture) contributes nothing.
func eventsToRanges(events []ThemeEvent, conv Converter) []CharRange {
	var ranges []CharRange
	var openThemes []ThemeID
	var openStarts []int

	for _, ev := range events {
		if !ev.End {
			openThemes = append(openThemes, ev.Theme)
			openStarts = append(openStarts, ev.Pos)
			continue
		}
		if len(openThemes) == 0 {
			continue
		}
		n := len(openThemes) - 1
		theme, start := openThemes[n], openStarts[n]
		openThemes, openStarts = openThemes[:n], openStarts[:n]

		if ev.Pos > start {
			ranges = append(ranges, CharRange{Start: conv.CharAt(start), End: conv.CharAt(ev.Pos), Theme: theme})
		}
	}
	return ranges
}
