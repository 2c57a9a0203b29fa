package encoding

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	textkiterrors "github.com/textkit/textkit/internal/errors"
	"github.com/textkit/textkit/internal/telemetry"
)

// Registry is a name-keyed map of Decoders. It refuses duplicate names
// and lets a caller set a process-wide default encoding that affects
// only interpretations constructed after the change.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]Decoder
	names   []string // insertion order, for suggestion ranking and listing
	defaultName string
	log     *slog.Logger
}

// NewRegistry creates a Registry pre-populated with the built-in UTF-8,
// UTF-16LE, and UTF-16BE decoders, defaulting to UTF-8.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]Decoder),
		log:    telemetry.Logger("encoding.registry"),
	}
	for _, d := range []Decoder{utf8Decoder{}, utf16LE, utf16BE} {
		if err := r.Register(d); err != nil {
			panic(err) // built-ins must never collide
		}
	}
	r.defaultName = "utf-8"
	return r
}

// Register adds a new decoder. It returns a *TextkitError of category
// ErrDuplicateEncoding if the name is already registered.
func (r *Registry) Register(d Decoder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[d.Name()]; exists {
		return textkiterrors.NewDuplicateEncodingError(d.Name())
	}
	r.byName[d.Name()] = d
	r.names = append(r.names, d.Name())
	return nil
}

// Get looks up a decoder by name. On failure it returns a construction
// error suggesting the closest registered name.
func (r *Registry) Get(name string) (Decoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.byName[name]; ok {
		return d, nil
	}

	suggestion := r.suggest(name)
	r.log.Warn("unknown encoding requested", "name", name, "suggestion", suggestion)
	return nil, textkiterrors.NewUnknownEncodingError(name, suggestion, r.sortedNames())
}

func (r *Registry) suggest(name string) string {
	if len(r.names) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindNormalizedFold(name, r.names)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

func (r *Registry) sortedNames() []string {
	out := append([]string(nil), r.names...)
	sort.Strings(out)
	return out
}

// SetDefault sets the name used when a new interpretation is
// constructed without an explicit encoding. It does not affect
// interpretations that already exist.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return textkiterrors.NewUnknownEncodingError(name, r.suggest(name), r.sortedNames())
	}
	r.defaultName = name
	return nil
}

// Default returns the current default encoding name.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}
