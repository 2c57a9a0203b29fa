package highlight

import (
	"github.com/textkit/textkit/chunk"
	"github.com/textkit/textkit/encoding"
	"github.com/textkit/textkit/interpretation"
	"github.com/textkit/textkit/linebreak"
)

// chunkByteReader reads bytes directly out of an interpretation's chunk
// tree, one chunk's worth at a time, rather than holding the whole
// document in memory.
type chunkByteReader struct {
	chunks *chunk.Index
}

func (r chunkByteReader) ReadAt(byteIndex int) ([]byte, bool) {
	if byteIndex < 0 || byteIndex >= r.chunks.Aggregate().Bytes {
		return nil, false
	}
	n, byteStart, _ := r.chunks.ChunkAtByte(byteIndex)
	if n == nil {
		return nil, false
	}
	data := n.Value().Bytes
	offset := byteIndex - byteStart
	if offset < 0 || offset >= len(data) {
		return nil, false
	}
	return data[offset:], true
}

// byteCharConverter composes a chunk cursor (byte->codepoint) with a
// line converter (codepoint->char) into the single byte->char lookup
// ComputeHighlight needs to turn a theme-event stream into character
// ranges.
type byteCharConverter struct {
	chunks *chunk.Index
	lines  *linebreak.Converter
	dec    encoding.Decoder
}

func (c *byteCharConverter) CharAt(byteOffset int) int {
	cp := c.chunks.CodepointAtByte(byteOffset, c.dec)
	return c.lines.CodepointToChar(cp)
}

// Attach wires tag and mgr into ip's edit event stream: begin_edit
// cancels any highlight job in flight for id, end_edit queues a fresh
// one over the document's current state. The returned func detaches
// both the subscription and any still-running job.
func Attach(ip *interpretation.Interpretation, id string, tag *Tag, mgr *Manager, publish func(Result, Diff)) (detach func()) {
	unsubscribe := ip.Subscribe(func(ev interpretation.Event) {
		switch ev.Kind {
		case interpretation.BeginEdit:
			mgr.Cancel(id)
		case interpretation.EndEdit:
			read := chunkByteReader{chunks: ip.Chunks()}
			conv := &byteCharConverter{
				chunks: ip.Chunks(),
				lines:  linebreak.NewConverter(ip.Lines()),
				dec:    ip.Encoding(),
			}
			mgr.Queue(Job{ID: id, Tag: tag, Read: read, Conv: conv, Publish: publish})
		}
	})
	return func() {
		unsubscribe()
		mgr.Cancel(id)
	}
}
