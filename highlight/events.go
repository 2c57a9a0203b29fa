package highlight

import "container/heap"

// Capture is one highlight or injection capture a QueryCursor emits, in
// tree order (ascending Start). A node can carry both a regular
// highlight name (resolved against the theme normally) and a Local
// role, exactly as a tree-sitter query can tag one node with both
// "@variable" and "@local.definition" simultaneously. Text carries the
// captured node's source text, used to match a local.reference against
// an enclosing local.definition by identifier.
type Capture struct {
	Name      string
	Local     LocalRole
	Start     int
	End       int
	Text      string
	Injection *InjectionCapture
}

// InjectionCapture names the language an injection-content capture
// should be parsed as. ExcludedChildren carries the byte ranges of any
// child nodes the spawned layer's ranges should exclude (e.g. a fenced
// code block's delimiter lines), per a capture attribute the grammar
// binding resolves; empty when the injection includes the whole node.
type InjectionCapture struct {
	Language         string
	ExcludedChildren []Range
}

// LocalRole names the small local-scope machinery's four roles. A
// capture with NoLocalRole takes no part in scope bookkeeping.
type LocalRole int

const (
	NoLocalRole LocalRole = iota
	LocalScope
	LocalDefinition
	LocalDefinitionValue
	LocalReference
)

// QueryCursor produces Captures for one parsed tree (or subtree) in
// tree order. A grammar binding supplies the implementation; this
// package only consumes it, never the concrete binding.
type QueryCursor interface {
	Next() (Capture, bool)
}

// ByteReader feeds bytes to a Parser on demand: the streaming
// byte_index -> chunk contract the highlight pipeline describes.
type ByteReader interface {
	ReadAt(byteIndex int) (data []byte, ok bool)
}

// Parser turns a byte stream into a root QueryCursor for lang over the
// given included byte ranges, stopping early if cancel is set mid-parse.
type Parser interface {
	Parse(lang Language, ranges []Range, read ByteReader, cancel *CancelToken) (QueryCursor, error)
}

// Range is an included byte range, half-open [Start, End).
type Range struct{ Start, End int }

func intersectRanges(parent []Range, node Range) []Range {
	out := make([]Range, 0, len(parent))
	for _, r := range parent {
		start, end := r.Start, r.End
		if start < node.Start {
			start = node.Start
		}
		if end > node.End {
			end = node.End
		}
		if start < end {
			out = append(out, Range{Start: start, End: end})
		}
	}
	return out
}

// subtractRanges removes each exclude range from ranges, splitting any
// range it falls inside of. Used to carve a node's own children out of
// an injected layer's included ranges.
func subtractRanges(ranges, exclude []Range) []Range {
	for _, ex := range exclude {
		var next []Range
		for _, r := range ranges {
			if ex.End <= r.Start || ex.Start >= r.End {
				next = append(next, r)
				continue
			}
			if ex.Start > r.Start {
				next = append(next, Range{Start: r.Start, End: ex.Start})
			}
			if ex.End < r.End {
				next = append(next, Range{Start: ex.End, End: r.End})
			}
		}
		ranges = next
	}
	return ranges
}

// ThemeEvent is one entry of the flat (byte_position, theme_id?) stream
// the highlight pipeline describes: End==true marks the close of the most recently opened
// region at this position (theme_id = None).
type ThemeEvent struct {
	Pos   int
	End   bool
	Theme ThemeID
}

// event is an internal, depth-tagged ThemeEvent used to order the merge.
type event struct {
	ThemeEvent
	depth int
}

// layerEvents turns one layer's captures into its own ordered event
// list: a start then an end event per capture, a scope's reference
// captures already resolved against enclosing local.definition
// captures.
func layerEvents(caps []Capture, theme *ThemeConfiguration, depth int) []event {
	resolved := resolveLocalScopes(caps, theme)

	events := make([]event, 0, len(resolved)*2)
	for _, c := range resolved {
		if c.id == NoTheme {
			continue
		}
		events = append(events, event{ThemeEvent: ThemeEvent{Pos: c.cap.Start, End: false, Theme: c.id}, depth: depth})
		events = append(events, event{ThemeEvent: ThemeEvent{Pos: c.cap.End, End: true, Theme: NoTheme}, depth: depth})
	}
	sortEvents(events)
	return events
}

type resolvedCapture struct {
	cap Capture
	id  ThemeID
}

// resolveLocalScopes walks captures in tree order, tracking a stack of
// open local.scope frames. A local.definition (or
// local.definition-value) capture inside the innermost open scope
// records its Text; a local.reference capture whose Text matches a
// definition recorded in an enclosing scope is re-themed with that
// definition's resolved id instead of its own Name's, so a reference
// highlights as whatever its definition does. A pure local.scope
// capture (no regular Name) contributes no highlight event of its own.
func resolveLocalScopes(caps []Capture, theme *ThemeConfiguration) []resolvedCapture {
	type scope struct {
		end  int
		defs map[string]ThemeID
	}
	var scopes []scope
	out := make([]resolvedCapture, 0, len(caps))

	for _, c := range caps {
		for len(scopes) > 0 && scopes[len(scopes)-1].end <= c.Start {
			scopes = scopes[:len(scopes)-1]
		}

		if c.Local == LocalScope {
			scopes = append(scopes, scope{end: c.End, defs: make(map[string]ThemeID)})
		}

		id := NoTheme
		if c.Name != "" {
			id = theme.GetIndexFor(c.Name)
		}

		switch c.Local {
		case LocalDefinition, LocalDefinitionValue:
			if len(scopes) > 0 && c.Text != "" {
				scopes[len(scopes)-1].defs[c.Text] = id
			}
		case LocalReference:
			for i := len(scopes) - 1; i >= 0; i-- {
				if def, ok := scopes[i].defs[c.Text]; ok {
					id = def
					break
				}
			}
		}

		if id != NoTheme {
			out = append(out, resolvedCapture{cap: c, id: id})
		}
	}
	return out
}

// sortEvents orders a layer's own events by the same key the
// cross-layer merge uses, via insertion sort (layers are expected to
// hold at most a few hundred captures at a time).
func sortEvents(events []event) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && eventKeyLess(events[j], events[j-1]); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}

func eventKeyLess(a, b event) bool {
	if a.Pos != b.Pos {
		return a.Pos < b.Pos
	}
	if a.End != b.End {
		return !a.End
	}
	return a.depth > b.depth
}

// mergeItem is one entry in the cross-layer priority queue: the next
// unconsumed event of a given layer.
type mergeItem struct {
	ev       event
	layer    int
	eventIdx int
}

type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	return eventKeyLess(h[i].ev, h[j].ev)
}
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)        { *h = append(*h, x.(mergeItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MergeLayers merges each layer's already-ordered event list into one
// flat ThemeEvent stream in the iterator's (position, is-end, -depth)
// order. layers[i] holds layer i's captures and depth; layers earlier
// in the slice are not assumed to be the base layer — depth is read
// per-layer.
func MergeLayers(layers []LayerCaptures, theme *ThemeConfiguration) []ThemeEvent {
	perLayer := make([][]event, len(layers))
	for i, l := range layers {
		perLayer[i] = layerEvents(l.Captures, theme, l.Depth)
	}

	h := &mergeHeap{}
	heap.Init(h)
	for i, evs := range perLayer {
		if len(evs) > 0 {
			heap.Push(h, mergeItem{ev: evs[0], layer: i, eventIdx: 0})
		}
	}

	out := make([]ThemeEvent, 0)
	for h.Len() > 0 {
		item := heap.Pop(h).(mergeItem)
		out = append(out, item.ev.ThemeEvent)

		next := item.eventIdx + 1
		if next < len(perLayer[item.layer]) {
			heap.Push(h, mergeItem{ev: perLayer[item.layer][next], layer: item.layer, eventIdx: next})
		}
	}
	return out
}

// LayerCaptures is one layer iterator's full, already-produced capture
// list (from a QueryCursor drained to completion) plus its injection
// depth. The Manager/Tag assembles this slice by draining the base
// layer's cursor and recursively spawning + draining injected layers;
// MergeLayers performs the final priority-queue merge described in
// the merge step, which does not need the layers to stream incrementally once
// each is fully drained up front.
type LayerCaptures struct {
	Captures []Capture
	Depth    int
}
