package highlight

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/santhosh-tekuri/jsonschema/v5"

	textkiterrors "github.com/textkit/textkit/internal/errors"
)

// themeConfigSchema declares the shape a theme_configuration document
// must have: a flat map from dotted capture path to a style entry.
// Unlike core/types' per-decorator schema (assembled field-by-field from
// a typed ParamSchema), this one is the document's entire contract, so
// it is declared once as a literal.
const themeConfigSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "captures": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "foreground": {"type": "string"},
          "bold": {"type": "boolean"},
          "italic": {"type": "boolean"}
        },
        "additionalProperties": false
      }
    }
  },
  "required": ["captures"],
  "additionalProperties": false
}`

var themeConfigSchema = compileThemeConfigSchema()

func compileThemeConfigSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("theme-configuration.json", strings.NewReader(themeConfigSchemaJSON)); err != nil {
		panic("highlight: theme configuration schema failed to compile: " + err.Error())
	}
	schema, err := compiler.Compile("theme-configuration.json")
	if err != nil {
		panic("highlight: theme configuration schema failed to compile: " + err.Error())
	}
	return schema
}

// Style is one theme entry's resolved appearance.
type Style struct {
	Foreground string `json:"foreground"`
	Bold       bool   `json:"bold"`
	Italic     bool   `json:"italic"`
}

// ThemeID indexes into a ThemeConfiguration's declared captures.
// NoTheme (-1, not the zero value) names "no style assigned".
type ThemeID int

const NoTheme ThemeID = -1

// ThemeConfiguration maps dotted capture paths ("function.builtin") to
// style entries, loaded and validated from a JSON document before use.
type ThemeConfiguration struct {
	paths  []string // index i holds the path for ThemeID(i)
	styles []Style
}

type themeConfigDoc struct {
	Captures map[string]Style `json:"captures"`
}

// LoadThemeConfiguration validates raw against the declared theme
// configuration schema and compiles it into a lookup table. A
// validation failure is a construction-time error
// (ErrThemeConfigInvalid), per the core's rule that malformed
// configuration is reported to the caller rather than absorbed.
func LoadThemeConfiguration(raw []byte) (*ThemeConfiguration, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, textkiterrors.Wrap(textkiterrors.ErrThemeConfigInvalid, "theme configuration is not valid JSON", err)
	}
	if err := themeConfigSchema.Validate(generic); err != nil {
		return nil, textkiterrors.Wrap(textkiterrors.ErrThemeConfigInvalid, "theme configuration failed schema validation", err)
	}

	var doc themeConfigDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, textkiterrors.Wrap(textkiterrors.ErrThemeConfigInvalid, "theme configuration failed to decode", err)
	}

	paths := make([]string, 0, len(doc.Captures))
	for path := range doc.Captures {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	tc := &ThemeConfiguration{paths: paths, styles: make([]Style, len(paths))}
	for i, path := range paths {
		tc.styles[i] = doc.Captures[path]
	}
	return tc, nil
}

// Style returns the style entry for id, or the zero Style if id is
// NoTheme or out of range.
func (tc *ThemeConfiguration) Style(id ThemeID) Style {
	if id < 0 || int(id) >= len(tc.styles) {
		return Style{}
	}
	return tc.styles[id]
}

// Path returns the declared capture path id was minted from.
func (tc *ThemeConfiguration) Path(id ThemeID) string {
	if id < 0 || int(id) >= len(tc.paths) {
		return ""
	}
	return tc.paths[id]
}

// GetIndexFor returns the most specific declared index matching path.
// It tries an exact match, then progressively shorter dotted prefixes
// of path (so "function.builtin.call" resolves to a declared
// "function.builtin" entry), and falls back to fuzzy ranking over the
// declared paths when no prefix matches at all, so a near-miss capture
// name still resolves to the closest specific entry rather than
// NoTheme.
func (tc *ThemeConfiguration) GetIndexFor(path string) ThemeID {
	if id, ok := tc.exact(path); ok {
		return id
	}

	segments := strings.Split(path, ".")
	for n := len(segments) - 1; n > 0; n-- {
		if id, ok := tc.exact(strings.Join(segments[:n], ".")); ok {
			return id
		}
	}

	return tc.fuzzy(path)
}

func (tc *ThemeConfiguration) exact(path string) (ThemeID, bool) {
	i := sort.SearchStrings(tc.paths, path)
	if i < len(tc.paths) && tc.paths[i] == path {
		return ThemeID(i), true
	}
	return NoTheme, false
}

func (tc *ThemeConfiguration) fuzzy(path string) ThemeID {
	ranks := fuzzy.RankFindNormalizedFold(path, tc.paths)
	if len(ranks) == 0 {
		return NoTheme
	}
	sort.Sort(ranks)
	best := ranks[0].Target
	id, _ := tc.exact(best)
	return id
}
