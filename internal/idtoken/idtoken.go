// Package idtoken mints opaque handles for subscription tokens
// (theme-provider tokens, tooltip-provider tokens, fold handles). Handles
// must never be raw pointers or bare incrementing integers a caller could
// treat as an array index: a keyed BLAKE2s-128 PRF over a monotonic
// counter and a namespace tag, rendered as base32 text, gives an opaque
// identifier instead.
package idtoken

import (
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Factory mints Tokens within one namespace (e.g. "theme", "tooltip",
// "fold"). Each Factory carries its own 32-byte key so tokens minted by
// different interpretations never collide even if their counters do.
type Factory struct {
	namespace string
	key       [32]byte
	counter   uint64
}

// NewFactory creates a Factory seeded with a caller-supplied 32-byte key.
// Passing a fixed key (e.g. derived from the interpretation's identity)
// makes tokens reproducible across runs, which is useful in tests.
func NewFactory(namespace string, key [32]byte) *Factory {
	return &Factory{namespace: namespace, key: key}
}

// Token is an opaque, comparable handle returned to callers of
// add()/subscribe()-style APIs. It carries no information a holder can
// use to compute another valid token or a tree position.
type Token string

// Next mints the next token in this factory's namespace.
func (f *Factory) Next() Token {
	n := atomic.AddUint64(&f.counter, 1)

	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], n)

	nsHash := blake2b.Sum256([]byte(f.namespace))

	mac, err := blake2s.New128(f.key[:])
	if err != nil {
		// Only fails on an invalid key size, which NewFactory's fixed
		// [32]byte parameter makes unreachable.
		panic(fmt.Sprintf("idtoken: failed to construct BLAKE2s-128: %v", err))
	}
	mac.Write(nsHash[:])
	mac.Write(counterBytes[:])
	digest := mac.Sum(nil)

	return Token(fmt.Sprintf("%s:%s", f.namespace, b32.EncodeToString(digest[:10])))
}
