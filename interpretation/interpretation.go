// Package interpretation implements the owner of one document's
// linebreak and chunk indices over one encoding, subscribed to a
// textbuf.Buffer's begin/end-modify edit protocol so the buffer stays
// the single source of truth for the document's bytes, the
// caret-driven byte-range precomputation behind its
// backspace/delete/insert mutators, the provider registries for
// theming and tooltips, and the event catalog downstream consumers (a
// view, a highlighter) observe.
package interpretation

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/textkit/textkit/chunk"
	"github.com/textkit/textkit/encoding"
	"github.com/textkit/textkit/internal/idtoken"
	"github.com/textkit/textkit/internal/invariant"
	"github.com/textkit/textkit/internal/telemetry"
	"github.com/textkit/textkit/linebreak"
	"github.com/textkit/textkit/textbuf"
)

// EventKind names the five events a consumer can observe, in the order
// a single edit always fires them.
type EventKind int

const (
	BeginEdit EventKind = iota
	ModificationDecoded
	EndModification
	EndEdit
	AppearanceChanged
)

func (k EventKind) String() string {
	switch k {
	case BeginEdit:
		return "begin_edit"
	case ModificationDecoded:
		return "modification_decoded"
	case EndModification:
		return "end_modification"
	case EndEdit:
		return "end_edit"
	case AppearanceChanged:
		return "appearance_changed"
	default:
		return "invalid"
	}
}

// Event is delivered to every subscriber on the goroutine that performed
// the edit; subscribers that need async work must hand off themselves
// (this is how the highlight Manager's worker goroutine is fed).
type Event struct {
	Kind           EventKind
	Generation     uint64
	ByteStart      int
	ByteEnd        int // exclusive; zero-length for a pure insert report before growth is known
	CodepointStart int
	CodepointEnd   int
}

// Interpretation owns one document's text under one fixed encoding,
// read from and mutated through buf. It holds no bytes of its own: a
// fresh Insert/Erase into the underlying buffer only ever reaches
// Interpretation's trees via the begin_modify/end_modify/end_edit
// subscription wired up in New.
type Interpretation struct {
	mu         sync.Mutex
	buf        *textbuf.ReferenceBuffer
	lines      *linebreak.Index
	chunks     *chunk.Index
	dec        encoding.Decoder
	generation uint64

	unsubscribeBuf func()

	themeTokens   *idtoken.Factory
	tooltipTokens *idtoken.Factory

	themeMu   sync.RWMutex
	theme     []themeEntry
	tooltipMu sync.RWMutex
	tooltip   []tooltipEntry

	listenersMu sync.RWMutex
	listeners   map[int]func(Event)
	nextSub     int

	log *slog.Logger
}

// ThemeProvider supplies styling for a byte range. Ordering among
// providers at equal priority is registration order (stable).
type ThemeProvider interface {
	Name() string
}

type themeEntry struct {
	token    idtoken.Token
	priority int
	provider ThemeProvider
}

// TooltipProvider supplies hover/tooltip content for a byte position.
type TooltipProvider interface {
	Name() string
}

type tooltipEntry struct {
	token    idtoken.Token
	provider TooltipProvider
}

func randomTokenKey() [32]byte {
	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is
		// unavailable, which would make every other part of the
		// process unreliable too.
		panic("interpretation: failed to read random token key: " + err.Error())
	}
	return key
}

// New creates an Interpretation over buf's current contents under the
// named encoding from reg, then subscribes to buf so every later edit
// reaches the interpretation's trees through the begin_modify/
// end_modify/end_edit protocol rather than a caller-facing byte API.
func New(reg *encoding.Registry, encodingName string, buf *textbuf.ReferenceBuffer) (*Interpretation, error) {
	dec, err := reg.Get(encodingName)
	if err != nil {
		return nil, err
	}
	ip := &Interpretation{
		buf:           buf,
		lines:         linebreak.New(),
		chunks:        chunk.New(),
		dec:           dec,
		themeTokens:   idtoken.NewFactory("theme", randomTokenKey()),
		tooltipTokens: idtoken.NewFactory("tooltip", randomTokenKey()),
		listeners:     make(map[int]func(Event)),
		log:           telemetry.Logger("interpretation"),
	}

	// Initial construction: read the whole buffer once and build the
	// trees directly, ahead of the edit protocol below — this is not
	// itself an edit, so it fires no events.
	if initial := buf.GetClip(buf.At(0), buf.At(buf.Length())); len(initial) > 0 {
		ip.insertTree(0, initial)
	}

	ip.unsubscribeBuf = buf.Subscribe(ip.onBufferEvent)
	return ip, nil
}

// Close detaches the interpretation from its buffer. Further edits to
// buf after Close no longer reach this interpretation's trees.
func (ip *Interpretation) Close() {
	ip.unsubscribeBuf()
}

// Encoding returns the decoder this interpretation was constructed with.
func (ip *Interpretation) Encoding() encoding.Decoder { return ip.dec }

// Chunks and Lines expose the underlying indices to consumers that need
// direct read access, such as the highlight pipeline's byte reader and
// byte<->char converter.
func (ip *Interpretation) Chunks() *chunk.Index    { return ip.chunks }
func (ip *Interpretation) Lines() *linebreak.Index { return ip.lines }

// ByteLen, CodepointLen, CharLen, and LineCount report document totals.
func (ip *Interpretation) ByteLen() int      { return ip.chunks.Aggregate().Bytes }
func (ip *Interpretation) CodepointLen() int { return ip.lines.Aggregate().Codepoints }
func (ip *Interpretation) CharLen() int      { return ip.lines.Aggregate().Chars }
func (ip *Interpretation) LineCount() int    { return ip.lines.Len() }

// LineColAtCodepoint and CodepointAtLineCol delegate to the line index.
func (ip *Interpretation) LineColAtCodepoint(cp int) (line, col int) {
	return ip.lines.LineColAtCodepoint(cp)
}
func (ip *Interpretation) CodepointAtLineCol(line, col int) int {
	return ip.lines.CodepointAtLineCol(line, col)
}

// Subscribe registers fn to receive every Event. The returned func
// unsubscribes.
func (ip *Interpretation) Subscribe(fn func(Event)) (unsubscribe func()) {
	ip.listenersMu.Lock()
	defer ip.listenersMu.Unlock()
	id := ip.nextSub
	ip.nextSub++
	ip.listeners[id] = fn
	return func() {
		ip.listenersMu.Lock()
		defer ip.listenersMu.Unlock()
		delete(ip.listeners, id)
	}
}

func (ip *Interpretation) emit(ev Event) {
	ip.listenersMu.RLock()
	defer ip.listenersMu.RUnlock()
	for _, fn := range ip.listeners {
		fn(ev)
	}
}

// onBufferEvent implements the edit protocol: begin_modify erases the
// old span from the trees (in the pre-splice byte coordinates the
// event carries), end_modify re-reads the freshly spliced-in bytes
// from buf and inserts them, and end_edit closes out the atomic edit.
// buf itself has already applied the splice by the time end_modify
// fires, so the bytes at [StartByte, StartByte+InsertedLen) are always
// exactly what was just inserted.
func (ip *Interpretation) onBufferEvent(ev textbuf.ModifyEvent) {
	switch ev.Kind {
	case textbuf.BeginModify:
		ip.mu.Lock()
		defer ip.mu.Unlock()
		ip.emit(Event{Kind: BeginEdit, Generation: ip.generation, ByteStart: ev.StartByte, ByteEnd: ev.StartByte + ev.EraseLen})
		if ev.EraseLen > 0 {
			ip.eraseTree(ev.StartByte, ev.StartByte+ev.EraseLen)
		}

	case textbuf.EndModify:
		ip.mu.Lock()
		defer ip.mu.Unlock()
		cp := ip.chunks.CodepointAtByte(ev.StartByte, ip.dec)
		codepoints := 0
		if ev.InsertedLen > 0 {
			raw := ip.buf.GetClip(ip.buf.At(ev.StartByte), ip.buf.At(ev.StartByte+ev.InsertedLen))
			cp, codepoints = ip.insertTree(ev.StartByte, raw)
		}

		ip.generation++
		gen := ip.generation
		ip.log.Debug("modify", "byte_offset", ev.StartByte, "erase_len", ev.EraseLen, "inserted_len", ev.InsertedLen, "generation", gen)

		ip.emit(Event{Kind: ModificationDecoded, Generation: gen, ByteStart: ev.StartByte, ByteEnd: ev.StartByte + ev.InsertedLen, CodepointStart: cp, CodepointEnd: cp + codepoints})
		ip.emit(Event{Kind: EndModification, Generation: gen})

	case textbuf.EndEdit:
		ip.mu.Lock()
		gen := ip.generation
		ip.mu.Unlock()
		ip.emit(Event{Kind: EndEdit, Generation: gen})
		ip.emit(Event{Kind: AppearanceChanged})
	}
}

// insertTree splices raw into the trees at byteOffset, decoding it
// under ip.dec. Callers hold ip.mu.
func (ip *Interpretation) insertTree(byteOffset int, raw []byte) (cp, codepoints int) {
	clip, codepoints := decodeClip(raw, ip.dec)

	cp = ip.chunks.CodepointAtByte(byteOffset, ip.dec)
	line, col := ip.lines.LineColAtCodepoint(cp)
	lineNode, _, _ := ip.lines.LineAt(line)

	chunkNode, chunkByteStart, _ := ip.chunks.ChunkAtByte(byteOffset)

	ip.lines.Insert(lineNode, col, clip)
	ip.chunks.Insert(chunkNode, byteOffset-chunkByteStart, raw, ip.dec)
	return cp, codepoints
}

// eraseTree removes [begByte, endByte) from the trees. Callers hold
// ip.mu.
func (ip *Interpretation) eraseTree(begByte, endByte int) {
	begCP := ip.chunks.CodepointAtByte(begByte, ip.dec)
	endCP := ip.chunks.CodepointAtByte(endByte, ip.dec)

	begLine, begCol := ip.lines.LineColAtCodepoint(begCP)
	endLine, endCol := ip.lines.LineColAtCodepoint(endCP)
	begNode, _, _ := ip.lines.LineAt(begLine)
	endNode, _, _ := ip.lines.LineAt(endLine)
	ip.lines.Erase(begNode, begCol, endNode, endCol)

	begChunkNode, begChunkStart, _ := ip.chunks.ChunkAtByte(begByte)
	endChunkNode, endChunkStart, _ := ip.chunks.ChunkAtByte(endByte)
	ip.chunks.Erase(begChunkNode, begByte-begChunkStart, endChunkNode, endByte-endChunkStart, ip.dec)
}

// decodeClip scans raw under dec, returning the linebreak.Line sequence
// and total codepoint count it decodes to. The last entry always has
// Ending == EndingNone, naming the still-open run of trailing text.
func decodeClip(raw []byte, dec encoding.Decoder) ([]linebreak.Line, int) {
	var clip []linebreak.Line
	nonbreak := 0
	codepoints := 0
	pos := 0
	for pos < len(raw) {
		cp, size, _ := dec.NextCodepoint(raw, pos, len(raw))
		codepoints++
		switch cp {
		case '\r':
			nextPos := pos + size
			if nextPos < len(raw) {
				nextCP, nextSize, _ := dec.NextCodepoint(raw, nextPos, len(raw))
				if nextCP == '\n' {
					clip = append(clip, linebreak.Line{NonbreakChars: nonbreak, Ending: linebreak.EndingRN})
					nonbreak = 0
					codepoints++
					pos = nextPos + nextSize
					continue
				}
			}
			clip = append(clip, linebreak.Line{NonbreakChars: nonbreak, Ending: linebreak.EndingR})
			nonbreak = 0
		case '\n':
			clip = append(clip, linebreak.Line{NonbreakChars: nonbreak, Ending: linebreak.EndingN})
			nonbreak = 0
		default:
			nonbreak++
		}
		pos += size
	}
	clip = append(clip, linebreak.Line{NonbreakChars: nonbreak, Ending: linebreak.EndingNone})
	return clip, codepoints
}

// Caret is one caret's position in character coordinates, with an
// optional selection (SelStart/SelEnd, meaningful only when
// HasSelection is set).
type Caret struct {
	Pos          int
	SelStart     int
	SelEnd       int
	HasSelection bool
}

func clampChar(ch, numChars int) int {
	switch {
	case ch < 0:
		return 0
	case ch > numChars:
		return numChars
	default:
		return ch
	}
}

// selectionRange returns c's erase range in character coordinates: a
// selection's two ends (clamped and ordered) if it has one, else an
// empty range at its clamped position.
func (c Caret) selectionRange(numChars int) (beg, end int) {
	if c.HasSelection {
		a, b := clampChar(c.SelStart, numChars), clampChar(c.SelEnd, numChars)
		if a > b {
			a, b = b, a
		}
		return a, b
	}
	p := clampChar(c.Pos, numChars)
	return p, p
}

// charToByte converts an absolute character offset to its byte offset
// via the character->codepoint converter composed with the chunk
// index's codepoint->byte lookup. Callers hold ip.mu.
func (ip *Interpretation) charToByte(ch int) int {
	cp := linebreak.NewConverter(ip.lines).CharToCodepoint(ch)
	return ip.chunks.ByteAtCodepoint(cp, ip.dec)
}

type caretEdit struct {
	startByte int
	eraseLen  int
	insert    []byte
}

// applyCaretEdits queues edits onto one scoped modifier in descending
// start-byte order, so each queued edit's byte offsets (computed
// against the pre-edit document) remain valid when the scope applies
// them in sequence: an edit only ever shifts bytes after it, and
// descending order means every edit still to come lies strictly
// before it.
func (ip *Interpretation) applyCaretEdits(edits []caretEdit, src string) {
	if len(edits) == 0 {
		return
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].startByte > edits[j].startByte })
	scope := ip.buf.ScopedNormalModifier(src)
	for _, e := range edits {
		scope.Modify(e.startByte, e.eraseLen, e.insert)
	}
	scope.Close()
}

func (ip *Interpretation) eraseEdit(begCh, endCh int) caretEdit {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	begByte := ip.charToByte(begCh)
	endByte := ip.charToByte(endCh)
	return caretEdit{startByte: begByte, eraseLen: endByte - begByte}
}

// Backspace erases one character range per caret: the caret's
// selection if it has one, else [p-1, p) for an empty selection at p
// (a no-op at document start). All carets apply as one atomic edit.
func (ip *Interpretation) Backspace(carets []Caret, src string) {
	numChars := ip.CharLen()
	var edits []caretEdit
	for _, c := range carets {
		beg, end := c.selectionRange(numChars)
		if beg == end {
			if beg == 0 {
				continue
			}
			beg--
		}
		edits = append(edits, ip.eraseEdit(beg, end))
	}
	ip.applyCaretEdits(edits, src)
}

// Delete erases one character range per caret: the caret's selection
// if it has one, else [p, p+1) for an empty selection at p (a no-op at
// document end). All carets apply as one atomic edit.
func (ip *Interpretation) Delete(carets []Caret, src string) {
	numChars := ip.CharLen()
	var edits []caretEdit
	for _, c := range carets {
		beg, end := c.selectionRange(numChars)
		if beg == end {
			if end == numChars {
				continue
			}
			end++
		}
		edits = append(edits, ip.eraseEdit(beg, end))
	}
	ip.applyCaretEdits(edits, src)
}

// Insert replaces each caret's selection (or inserts at its position,
// for an empty selection) with data. All carets apply as one atomic
// edit.
func (ip *Interpretation) Insert(carets []Caret, data []byte, src string) {
	numChars := ip.CharLen()
	var edits []caretEdit
	for _, c := range carets {
		beg, end := c.selectionRange(numChars)
		e := ip.eraseEdit(beg, end)
		e.insert = append([]byte(nil), data...)
		edits = append(edits, e)
	}
	ip.applyCaretEdits(edits, src)
}

// CacheKey returns a content-addressed cache key for the codepoint range
// [start, end): a SHA-256 hash of the canonical CBOR encoding of the
// range bounds and this interpretation's current generation, so a
// highlighter cache entry keyed on it is automatically invalidated by
// any edit.
func (ip *Interpretation) CacheKey(start, end int) string {
	type keyInput struct {
		Generation uint64
		Start      int
		End        int
	}
	em, err := cbor.CanonicalEncOptions().EncMode()
	invariant.ExpectNoError(err, "canonical CBOR encode mode must construct")
	data, err := em.Marshal(keyInput{Generation: ip.generation, Start: start, End: end})
	invariant.ExpectNoError(err, "cache key struct must encode")
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AddThemeProvider registers p at priority (higher wins on overlap) and
// returns its handle, firing appearance_changed.
func (ip *Interpretation) AddThemeProvider(priority int, p ThemeProvider) idtoken.Token {
	ip.themeMu.Lock()
	tok := ip.themeTokens.Next()
	ip.theme = append(ip.theme, themeEntry{token: tok, priority: priority, provider: p})
	sort.SliceStable(ip.theme, func(i, j int) bool { return ip.theme[i].priority > ip.theme[j].priority })
	ip.themeMu.Unlock()
	ip.emit(Event{Kind: AppearanceChanged})
	return tok
}

// RemoveThemeProvider unregisters the provider named by tok.
func (ip *Interpretation) RemoveThemeProvider(tok idtoken.Token) {
	ip.themeMu.Lock()
	for i, e := range ip.theme {
		if e.token == tok {
			ip.theme = append(ip.theme[:i], ip.theme[i+1:]...)
			break
		}
	}
	ip.themeMu.Unlock()
	ip.emit(Event{Kind: AppearanceChanged})
}

// ThemeProviders returns the registered providers in priority order
// (highest first).
func (ip *Interpretation) ThemeProviders() []ThemeProvider {
	ip.themeMu.RLock()
	defer ip.themeMu.RUnlock()
	out := make([]ThemeProvider, len(ip.theme))
	for i, e := range ip.theme {
		out[i] = e.provider
	}
	return out
}

// AddTooltipProvider registers a tooltip provider and returns its handle.
func (ip *Interpretation) AddTooltipProvider(p TooltipProvider) idtoken.Token {
	ip.tooltipMu.Lock()
	tok := ip.tooltipTokens.Next()
	ip.tooltip = append(ip.tooltip, tooltipEntry{token: tok, provider: p})
	ip.tooltipMu.Unlock()
	return tok
}

// RemoveTooltipProvider unregisters the tooltip provider named by tok.
func (ip *Interpretation) RemoveTooltipProvider(tok idtoken.Token) {
	ip.tooltipMu.Lock()
	defer ip.tooltipMu.Unlock()
	for i, e := range ip.tooltip {
		if e.token == tok {
			ip.tooltip = append(ip.tooltip[:i], ip.tooltip[i+1:]...)
			return
		}
	}
}

// Generation returns the current edit-generation counter, bumped once
// per applied sub-edit.
func (ip *Interpretation) Generation() uint64 {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	return ip.generation
}
