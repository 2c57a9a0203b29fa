// Package highlight implements the asynchronous syntax-highlighting
// pipeline. It specifies the contract between the text-interpretation
// core and a pluggable grammar binding (a Parser), not any concrete
// tree-sitter grammar: the package consumes capture events a Parser
// produces and turns them into a theme-range map.
package highlight

import "golang.org/x/mod/semver"

// Language identifies a grammar and its compiled queries. ABIVersion is
// the grammar's declared ABI version (semver, "vMAJOR.MINOR.PATCH")
// checked against the pipeline's supported range when a Tag is built
// and at the start of every highlight pass.
type Language struct {
	Name       string
	ABIVersion string
}

// Supported ABI range, inclusive. A grammar outside this range is
// treated as the "grammar mismatch" error case: logged once at setup,
// the interpretation continues with an empty highlight map.
const (
	minSupportedABI = "v13.0.0"
	maxSupportedABI = "v15.0.0"
)

// Compatible reports whether l's declared grammar ABI falls inside the
// range this pipeline supports.
func (l Language) Compatible() bool {
	if !semver.IsValid(l.ABIVersion) {
		return false
	}
	return semver.Compare(l.ABIVersion, minSupportedABI) >= 0 &&
		semver.Compare(l.ABIVersion, maxSupportedABI) <= 0
}
