package sidebar

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind is the closed set of categories a renderer knows how to style.
// KindOther covers any label outside that set.
type Kind int

const (
	KindOther Kind = iota
	KindModule
	KindMacro
	KindStruct
	KindEnum
	KindUnion
	KindTrait
	KindTraitAlias
	KindFunction
	KindTypeAlias
	KindConstant
	KindStatic
	KindPrimitive
	KindKeyword
	KindAttribute
	KindDerive
	KindExternCrate
	KindImport
)

type kindInfo struct {
	label string
	title string
	// file prefix in rustdoc's generated html (struct.Box.html)
	prefix string
}

// Known kinds in the order rustdoc lays out a module sidebar.
var kinds = []struct {
	kind Kind
	info kindInfo
}{
	{KindExternCrate, kindInfo{"externcrate", "Crates", ""}},
	{KindImport, kindInfo{"import", "Re-exports", ""}},
	{KindPrimitive, kindInfo{"primitive", "Primitive Types", "primitive"}},
	{KindModule, kindInfo{"mod", "Modules", ""}},
	{KindMacro, kindInfo{"macro", "Macros", "macro"}},
	{KindStruct, kindInfo{"struct", "Structs", "struct"}},
	{KindEnum, kindInfo{"enum", "Enums", "enum"}},
	{KindUnion, kindInfo{"union", "Unions", "union"}},
	{KindTrait, kindInfo{"trait", "Traits", "trait"}},
	{KindTraitAlias, kindInfo{"traitalias", "Trait Aliases", "traitalias"}},
	{KindFunction, kindInfo{"fn", "Functions", "fn"}},
	{KindTypeAlias, kindInfo{"type", "Type Aliases", "type"}},
	{KindConstant, kindInfo{"constant", "Constants", "constant"}},
	{KindStatic, kindInfo{"static", "Statics", "static"}},
	{KindKeyword, kindInfo{"keyword", "Keywords", "keyword"}},
	{KindAttribute, kindInfo{"attr", "Attribute Macros", "attr"}},
	{KindDerive, kindInfo{"derive", "Derive Macros", "derive"}},
}

// aliases maps alternate spellings seen from different emitters (and rustdoc JSON
// inner kinds) onto the canonical label.
var aliases = map[string]string{
	"module":         "mod",
	"function":       "fn",
	"method":         "fn",
	"type_alias":     "type",
	"typedef":        "type",
	"const":          "constant",
	"trait_alias":    "traitalias",
	"extern_crate":   "externcrate",
	"use":            "import",
	"proc_attribute": "attr",
	"proc_derive":    "derive",
}

var (
	byLabel = make(map[string]Kind, len(kinds))
	byKind  = make(map[Kind]kindInfo, len(kinds))
	rank    = make(map[Kind]int, len(kinds))
)

func init() {
	for i, k := range kinds {
		byLabel[k.info.label] = k.kind
		byKind[k.kind] = k.info
		rank[k.kind] = i
	}
}

// Category is a category label resolved against the known kinds. The raw label is
// always kept so an unknown category round-trips unchanged.
type Category struct {
	Kind  Kind
	Label string
}

// ParseCategory resolves a label. It never fails; unrecognized labels come back as
// KindOther with the label untouched.
func ParseCategory(label string) Category {
	key := strings.ToLower(strings.TrimSpace(label))
	if canon, ok := aliases[key]; ok {
		key = canon
	}
	if k, ok := byLabel[key]; ok {
		return Category{Kind: k, Label: label}
	}
	return Category{Kind: KindOther, Label: label}
}

// Known reports whether the category is one renderers can style.
func (c Category) Known() bool {
	return c.Kind != KindOther
}

// Canonical returns the canonical label for known kinds and the raw label otherwise.
func (c Category) Canonical() string {
	if info, ok := byKind[c.Kind]; ok {
		return info.label
	}
	return c.Label
}

// Title is the heading a renderer shows for the group.
func (c Category) Title() string {
	if info, ok := byKind[c.Kind]; ok {
		return info.title
	}
	if c.Label == "" {
		return "Other"
	}
	r, size := utf8.DecodeRuneInString(c.Label)
	return string(unicode.ToTitle(r)) + c.Label[size:]
}

// Rank orders categories the way rustdoc does. Unknown categories sort last.
func (c Category) Rank() int {
	if r, ok := rank[c.Kind]; ok {
		return r
	}
	return len(kinds)
}

// Href returns the relative link rustdoc generates for an item of this category.
func (c Category) Href(name string) string {
	switch c.Kind {
	case KindModule:
		return name + "/index.html"
	case KindExternCrate, KindImport, KindOther:
		return "#" + name
	}
	return byKind[c.Kind].prefix + "." + name + ".html"
}

func (k Kind) String() string {
	if info, ok := byKind[k]; ok {
		return info.label
	}
	return "other"
}
