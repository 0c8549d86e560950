package sidebar

import (
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CopiesInput(t *testing.T) {
	t.Parallel()

	input := map[string][]Entry{"struct": {{"Box", "a"}, {"Circle", "b"}}}
	idx, err := New(input)
	require.NoError(t, err)

	input["struct"][0].Name = "Mutated"
	input["enum"] = []Entry{{"Late", ""}}

	assert.Equal(t, "Box", idx.Entries("struct")[0].Name)
	assert.False(t, idx.Has("enum"))

	got := idx.Entries("struct")
	got[1].Name = "Changed"
	assert.Equal(t, "Circle", idx.Entries("struct")[1].Name)
}

func TestNew_Empty(t *testing.T) {
	t.Parallel()

	idx, err := New(nil)
	require.NoError(t, err)
	assert.True(t, idx.IsEmpty())
	assert.Empty(t, idx.Categories())
	assert.Nil(t, idx.Entries("struct"))

	var nilIdx *Index
	assert.True(t, nilIdx.IsEmpty())
	assert.Equal(t, 0, nilIdx.EntryCount())
}

func TestCategories_RustdocOrder(t *testing.T) {
	t.Parallel()

	idx, err := New(map[string][]Entry{
		"fn":       {{"f", ""}},
		"zzz":      {{"z", ""}},
		"struct":   {{"S", ""}},
		"mod":      {{"m", ""}},
		"aaa":      {{"a", ""}},
		"macro":    {{"mac", ""}},
		"constant": {{"C", ""}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"mod", "macro", "struct", "fn", "constant", "aaa", "zzz"}, idx.Categories())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		groups   map[string][]Entry
		problems int
	}{
		{"valid", map[string][]Entry{"struct": {{"A", ""}, {"B", "b"}}}, 0},
		{"same name across categories", map[string][]Entry{"struct": {{"A", ""}}, "fn": {{"A", ""}}}, 0},
		{"unknown category is fine", map[string][]Entry{"gizmo": {{"A", ""}}}, 0},
		{"duplicate", map[string][]Entry{"struct": {{"A", ""}, {"A", "again"}}}, 1},
		{"empty label", map[string][]Entry{"": {{"A", ""}}}, 1},
		{"empty name", map[string][]Entry{"enum": {{"", "x"}}}, 1},
		{"several", map[string][]Entry{"": {{"A", ""}, {"A", ""}}, "fn": {{"x", ""}, {"x", ""}, {"x", ""}}}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := New(tt.groups, WithValidation(false))
			require.NoError(t, err)

			err = Validate(idx)
			if tt.problems == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Len(t, verr.Problems, tt.problems)

			_, err = New(tt.groups)
			assert.Error(t, err)
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	t.Parallel()

	_, err := New(map[string][]Entry{"struct": {{"Box", ""}, {"Box", ""}}})
	require.Error(t, err)
	assert.Equal(t, `invalid sidebar index: struct "Box": duplicate name`, err.Error())
}

func TestWarnings(t *testing.T) {
	t.Parallel()

	idx, err := New(map[string][]Entry{"struct": {{"A", ""}}, "gizmo": {{"B", ""}}})
	require.NoError(t, err)

	warnings := Warnings(idx)
	require.Len(t, warnings, 1)
	assert.Equal(t, "gizmo", warnings[0].Category)
}

func TestEqual(t *testing.T) {
	t.Parallel()

	a, _ := New(map[string][]Entry{"struct": {{"A", ""}, {"B", ""}}})
	b, _ := New(map[string][]Entry{"struct": {{"A", ""}, {"B", ""}}})
	reordered, _ := New(map[string][]Entry{"struct": {{"B", ""}, {"A", ""}}})
	resummarized, _ := New(map[string][]Entry{"struct": {{"A", "docs"}, {"B", ""}}})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(reordered))
	assert.False(t, a.Equal(resummarized))
	assert.False(t, a.Equal(Empty()))

	var nilIdx *Index
	assert.True(t, nilIdx.Equal(nil))
	assert.True(t, nilIdx.Equal(Empty()))
	assert.True(t, Empty().Equal(nilIdx))
	assert.False(t, nilIdx.Equal(a))
	assert.False(t, a.Equal(nilIdx))
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label     string
		kind      Kind
		canonical string
		title     string
	}{
		{"struct", KindStruct, "struct", "Structs"},
		{"enum", KindEnum, "enum", "Enums"},
		{"fn", KindFunction, "fn", "Functions"},
		{"function", KindFunction, "fn", "Functions"},
		{"Module", KindModule, "mod", "Modules"},
		{"type_alias", KindTypeAlias, "type", "Type Aliases"},
		{"gizmo", KindOther, "gizmo", "Gizmo"},
		{"", KindOther, "", "Other"},
		{"élément", KindOther, "élément", "Élément"},
		{"ǆ", KindOther, "ǆ", "ǅ"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			c := ParseCategory(tt.label)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.label, c.Label)
			assert.Equal(t, tt.canonical, c.Canonical())
			assert.Equal(t, tt.title, c.Title())
			assert.True(t, utf8.ValidString(c.Title()))
		})
	}
}

func TestCategoryHref(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "struct.Box.html", ParseCategory("struct").Href("Box"))
	assert.Equal(t, "fn.spawn.html", ParseCategory("function").Href("spawn"))
	assert.Equal(t, "shape/index.html", ParseCategory("mod").Href("shape"))
	assert.Equal(t, "macro.vec.html", ParseCategory("macro").Href("vec"))
	assert.Equal(t, "#Knob", ParseCategory("gizmo").Href("Knob"))
}
