package sidebar

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shapeScript = `initSidebarItems({"enum":[["CapsuleUvProfile","Manner in which UV coordinates are distributed vertically."]],"struct":[["Box","An axis-aligned box defined by its minimum and maximum point."],["Capsule","A cylinder with hemispheres at the top and bottom"],["Circle","A circle in the xy plane"],["Cube",""],["Icosphere","A sphere made from a subdivided Icosahedron."],["Plane","A square on the XZ plane centered at the origin."],["Quad","A rectangle on the XY plane centered at the origin."],["RegularPolygon","A regular polygon in the xy plane"],["Torus","A torus (donut) shape."],["UVSphere","A sphere made of sectors and stacks."]]});`

func TestParseScript_Shape(t *testing.T) {
	t.Parallel()

	idx, err := ParseScript(strings.NewReader(shapeScript))
	require.NoError(t, err)

	assert.Equal(t, []string{"struct", "enum"}, idx.Categories())
	assert.Equal(t, 11, idx.EntryCount())

	structs := idx.Entries("struct")
	require.Len(t, structs, 10)
	assert.Equal(t, "Box", structs[0].Name)
	assert.Equal(t, "UVSphere", structs[9].Name)
	assert.Equal(t, Entry{Name: "Cube", Summary: ""}, structs[3])

	assert.Equal(t, []Entry{{"CapsuleUvProfile", "Manner in which UV coordinates are distributed vertically."}}, idx.Entries("enum"))
}

func TestParseScript_Variants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"call", `initSidebarItems({"fn":[["run",""]]});`},
		{"call no semicolon", "initSidebarItems({\"fn\":[[\"run\",\"\"]]})\n"},
		{"assignment", `window.SIDEBAR_ITEMS = {"fn":[["run",""]]};`},
		{"bare json", `{"fn":[["run",""]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := ParseScript(strings.NewReader(tt.src))
			require.NoError(t, err)
			assert.Equal(t, []Entry{{Name: "run"}}, idx.Entries("fn"))
		})
	}
}

func TestRoundTrip_AllFormats(t *testing.T) {
	t.Parallel()

	idx, err := New(map[string][]Entry{
		"struct":  {{"Zeta", "Last <alphabetically>"}, {"Alpha", "Deliberately out of order & escaped"}},
		"enum":    {{"Mode", ""}},
		"fn":      {{"spawn", "Spawns a \"task\"."}, {"block_on", "true"}},
		"widgets": {{"Knob", "Unknown category"}},
		"trait":   {},
	})
	require.NoError(t, err)

	for _, format := range []Format{FormatScript, FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, idx, format))

			got, err := Decode(&buf, format)
			require.NoError(t, err)
			assert.True(t, idx.Equal(got), "round trip changed index: %s vs %s", idx, got)
			assert.Equal(t, idx.Entries("struct"), got.Entries("struct"))
			assert.True(t, got.Has("trait"))
		})
	}
}

func TestWriteScript_MatchesRustdoc(t *testing.T) {
	t.Parallel()

	idx, err := ParseScript(strings.NewReader(shapeScript))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteScript(&buf, idx))
	assert.Equal(t, shapeScript, buf.String())
}

func TestMarshalJSON_DoesNotEscapeHTML(t *testing.T) {
	t.Parallel()

	idx, err := New(map[string][]Entry{"fn": {{"cmp", "Returns a < b"}}})
	require.NoError(t, err)

	data, err := idx.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"fn":[["cmp","Returns a < b"]]}`, string(data))
}

func TestDecode_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		category string
		position int
	}{
		{"not an object", `[1,2]`, "", -1},
		{"category not array", `{"struct":{"Box":"x"}}`, "struct", -1},
		{"entry not array", `{"struct":["Box"]}`, "struct", 0},
		{"wrong arity", `{"struct":[["Box","a"],["Cube"]]}`, "struct", 1},
		{"non-string name", `{"enum":[[1,"x"]]}`, "enum", 0},
		{"non-string summary", `{"enum":[["A",null]]}`, "enum", 0},
		{"truncated", `{"enum":[["A","x"]`, "", -1},
		{"duplicate category", `{"struct":[["Box","a"]],"struct":[["Circle","b"]]}`, "struct", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.src), FormatJSON)
			require.Error(t, err)

			var syn *SyntaxError
			require.True(t, errors.As(err, &syn), "expected SyntaxError, got %T: %v", err, err)
			assert.Equal(t, tt.category, syn.Category)
			assert.Equal(t, tt.position, syn.Position)
		})
	}
}

func TestDecode_MalformedYAML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"sequence root", "- a\n- b\n"},
		{"scalar entries", "struct: Box\n"},
		{"short pair", "struct:\n  - [Box]\n"},
		{"int name", "struct:\n  - [1, \"x\"]\n"},
		{"empty", ""},
		{"duplicate category", "struct:\n  - [Box, a]\nstruct:\n  - [Circle, b]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.src), FormatYAML)
			var syn *SyntaxError
			assert.True(t, errors.As(err, &syn), "expected SyntaxError, got %v", err)
		})
	}
}

func TestDecode_DuplicateCategoryKeepsNothing(t *testing.T) {
	t.Parallel()

	for _, format := range []Format{FormatScript, FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			src := `{"struct":[["Box","a"]],"struct":[["Circle","b"]]}`
			if format == FormatYAML {
				src = "struct:\n  - [Box, a]\nstruct:\n  - [Circle, b]\n"
			}

			idx, err := Decode(strings.NewReader(src), format, WithValidation(false))
			assert.Nil(t, idx)
			var syn *SyntaxError
			require.True(t, errors.As(err, &syn), "expected SyntaxError, got %v", err)
			assert.Equal(t, "struct", syn.Category)
			assert.Contains(t, syn.Msg, "duplicate category")
		})
	}
}

func TestDecode_ValidationToggle(t *testing.T) {
	t.Parallel()

	src := `{"struct":[["Box","a"],["Box","b"]]}`

	_, err := Decode(strings.NewReader(src), FormatJSON)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	idx, err := Decode(strings.NewReader(src), FormatJSON, WithValidation(false))
	require.NoError(t, err)
	assert.Len(t, idx.Entries("struct"), 2)
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatScript, FormatFromPath("sidebar-items.js"))
	assert.Equal(t, FormatJSON, FormatFromPath("out/index.JSON"))
	assert.Equal(t, FormatYAML, FormatFromPath("nav.yml"))
	assert.Equal(t, FormatScript, FormatFromPath("noext"))

	f, err := ParseFormat("js")
	require.NoError(t, err)
	assert.Equal(t, FormatScript, f)
	_, err = ParseFormat("toml")
	assert.Error(t, err)
}

func TestDecode_FromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sidebar-items.js")
	require.NoError(t, os.WriteFile(path, []byte(shapeScript+"\n"), 0644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	idx, err := Decode(f, FormatFromPath(path))
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
}
