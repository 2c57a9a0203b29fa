// Package encoding implements the named decoder/encoder registry:
// UTF-8, UTF-16LE, and UTF-16BE built in, each exposing
// codepoint-at-a-time decoding with a replacement-codepoint recovery
// rule for invalid byte sequences, plus encoding of a single codepoint.
package encoding

import "github.com/textkit/textkit/internal/invariant"

// Codepoint is an unsigned 32-bit Unicode scalar value, or the
// distinguished ReplacementCodepoint standing in for an invalid
// sequence.
type Codepoint = uint32

// ReplacementCodepoint (U+FFFD) is substituted for any byte sequence a
// Decoder cannot interpret under its encoding.
const ReplacementCodepoint Codepoint = 0xFFFD

// Decoder decodes and encodes a single named byte encoding.
type Decoder interface {
	// Name is the registry key this decoder was registered under.
	Name() string

	// MaxCodepointLength is the maximum number of bytes one codepoint
	// can occupy in this encoding.
	MaxCodepointLength() int

	// NextCodepoint decodes the codepoint starting at data[pos:end].
	// It returns the decoded codepoint, the number of bytes consumed
	// (always >= 1, even on failure), and whether the sequence was
	// valid. On an invalid sequence it returns (ReplacementCodepoint, 1,
	// false): decoding resynchronizes at the next byte rather than
	// stalling.
	NextCodepoint(data []byte, pos, end int) (cp Codepoint, size int, valid bool)

	// EncodeCodepoint renders a single codepoint as bytes in this
	// encoding.
	EncodeCodepoint(cp Codepoint) []byte
}

// decodeStep is a small helper Decoders can share: call fn, and if it
// reports failure, normalize to the one-byte replacement-and-resync
// contract NextCodepoint promises.
func decodeStep(data []byte, pos, end int, fn func() (Codepoint, int, bool)) (Codepoint, int, bool) {
	if pos >= end || pos >= len(data) {
		invariant.Precondition(false, "NextCodepoint called with pos >= end")
	}
	cp, size, ok := fn()
	if !ok || size <= 0 {
		return ReplacementCodepoint, 1, false
	}
	return cp, size, true
}
