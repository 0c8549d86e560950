package docs

import (
	"bytes"
	"encoding/json"
)

// RustdocCrate is the top-level structure of rustdoc JSON output.
type RustdocCrate struct {
	Root           int                       `json:"root"`
	CrateVersion   *string                   `json:"crate_version"`
	Index          map[string]RustdocItem    `json:"index"`
	Paths          map[string]RustdocSummary `json:"paths"`
	ExternalCrates map[string]ExternalCrate  `json:"external_crates"`
	FormatVersion  int                       `json:"format_version"`
}

// ExternalCrate identifies a dependency crate by name.
type ExternalCrate struct {
	Name        string `json:"name"`
	HTMLRootURL string `json:"html_root_url"`
}

// RustdocItem is a single item in the rustdoc index.
type RustdocItem struct {
	ID         int             `json:"id"`
	CrateID    int             `json:"crate_id"`
	Name       *string         `json:"name"`
	Docs       *string         `json:"docs"`
	Visibility json.RawMessage `json:"visibility"` // "public", "default", "crate" or {"restricted": ...}
	Inner      json.RawMessage `json:"inner"`
}

// Public reports whether the item is part of the crate's public API. Items
// without visibility information are treated as public.
func (it *RustdocItem) Public() bool {
	v := bytes.TrimSpace(it.Visibility)
	if len(v) == 0 {
		return true
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return false
	}
	return s == "public"
}

// RustdocSummary provides the path and kind for an item.
type RustdocSummary struct {
	CrateID int      `json:"crate_id"`
	Path    []string `json:"path"`
	Kind    string   `json:"kind"`
}
