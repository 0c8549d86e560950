package nav

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcdickinson/ferrisnav/internal/sidebar"
)

func mustIndex(t *testing.T, groups map[string][]sidebar.Entry, opts ...sidebar.Option) *sidebar.Index {
	t.Helper()
	idx, err := sidebar.New(groups, opts...)
	require.NoError(t, err)
	return idx
}

func shapeIndex(t *testing.T) *sidebar.Index {
	return mustIndex(t, map[string][]sidebar.Entry{
		"struct": {
			{Name: "Box", Summary: "An axis-aligned box..."},
			{Name: "Circle", Summary: "A circle..."},
		},
		"enum": {
			{Name: "CapsuleUvProfile", Summary: "Manner..."},
		},
	})
}

func TestPage_Groups_Example(t *testing.T) {
	t.Parallel()

	groups := NewPage("shape", shapeIndex(t)).Groups()
	require.Len(t, groups, 2)

	assert.Equal(t, "struct", groups[0].Category.Label)
	assert.Equal(t, "Structs", groups[0].Title)
	assert.Equal(t, []Item{
		{Name: "Box", Summary: "An axis-aligned box...", Href: "struct.Box.html"},
		{Name: "Circle", Summary: "A circle...", Href: "struct.Circle.html"},
	}, groups[0].Items)

	assert.Equal(t, "enum", groups[1].Category.Label)
	assert.Equal(t, []Item{
		{Name: "CapsuleUvProfile", Summary: "Manner...", Href: "enum.CapsuleUvProfile.html"},
	}, groups[1].Items)
}

func TestPage_Groups_PreservesEmitterOrder(t *testing.T) {
	t.Parallel()

	idx := mustIndex(t, map[string][]sidebar.Entry{
		"fn": {{Name: "zeta"}, {Name: "alpha"}, {Name: "mid"}},
	})
	groups := NewPage("", idx).Groups()
	require.Len(t, groups, 1)

	var names []string
	for _, it := range groups[0].Items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestPage_Groups_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, NewPage("empty", sidebar.Empty()).Groups())
	assert.Empty(t, NewPage("unregistered", nil).Groups())

	idx := mustIndex(t, map[string][]sidebar.Entry{"struct": {}})
	assert.Empty(t, NewPage("no entries", idx).Groups())
}

func TestPage_Groups_BestEffort(t *testing.T) {
	t.Parallel()

	idx := mustIndex(t, map[string][]sidebar.Entry{
		"struct": {{Name: "Dup", Summary: "one"}, {Name: "Dup", Summary: "two"}},
		"gizmo":  {{Name: "Knob"}},
	}, sidebar.WithValidation(false))

	groups := NewPage("", idx).Groups()
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Items, 2)
	assert.Equal(t, sidebar.KindOther, groups[1].Category.Kind)
	assert.Equal(t, "Gizmo", groups[1].Title)
}

func TestPage_Register(t *testing.T) {
	t.Parallel()

	p := NewPage("shape", nil)
	assert.False(t, p.Registered())

	require.NoError(t, p.Register(shapeIndex(t)))
	assert.True(t, p.Registered())

	other := mustIndex(t, map[string][]sidebar.Entry{"fn": {{Name: "f"}}})
	assert.ErrorIs(t, p.Register(other), ErrAlreadyRegistered)
	assert.True(t, p.Index().Has("struct"), "second registration must not replace state")

	constructed := NewPage("shape", shapeIndex(t))
	assert.ErrorIs(t, constructed.Register(other), ErrAlreadyRegistered)
}

func TestPage_RegisterEmpty(t *testing.T) {
	t.Parallel()

	p := NewPage("", nil)
	require.NoError(t, p.Register(nil))
	assert.True(t, p.Registered())
	assert.Empty(t, p.Groups())
}

func TestNavigator_LoadReplaces(t *testing.T) {
	t.Parallel()

	var n Navigator
	assert.Nil(t, n.Page())
	assert.Empty(t, n.Groups())

	first := NewPage("shape", shapeIndex(t))
	n.Load(first)
	require.Len(t, n.Groups(), 2)

	second := NewPage("math", mustIndex(t, map[string][]sidebar.Entry{
		"fn": {{Name: "lerp", Summary: "Linear interpolation"}},
	}))
	n.Load(second)

	groups := n.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "fn", groups[0].Category.Label)
	assert.Same(t, second, n.Page())
	for _, g := range groups {
		for _, it := range g.Items {
			assert.NotEqual(t, "Box", it.Name, "residual entry from previous page")
		}
	}

	n.Load(NewPage("blank", sidebar.Empty()))
	assert.Empty(t, n.Groups())
}

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()

	idx := mustIndex(t, map[string][]sidebar.Entry{
		"struct": {{Name: "Cube"}, {Name: "Box", Summary: "A *box*"}},
	})
	p := NewPage("shape", idx)
	p.Meta = map[string]string{"module": "bevy::prelude::shape"}

	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, p, RenderOptions{BaseURL: "/bevy/prelude/shape/"}))

	want := "---\nmodule: bevy::prelude::shape\n---\n\n" +
		"# shape\n\n" +
		"## Structs\n\n" +
		"- [Cube](/bevy/prelude/shape/struct.Cube.html)\n" +
		"- [Box](/bevy/prelude/shape/struct.Box.html): A \\*box\\*\n\n"
	assert.Equal(t, want, buf.String())
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	idx := mustIndex(t, map[string][]sidebar.Entry{
		"struct": {{Name: "Box", Summary: "Holds <T>"}, {Name: "Cube"}},
		"gizmo":  {{Name: "Knob"}},
	})

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, NewPage("shape", idx), RenderOptions{}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, `<nav class="sidebar">`))
	assert.Contains(t, out, `<section class="sidebar-struct">`)
	assert.Contains(t, out, `<section class="sidebar-other">`)
	assert.Contains(t, out, `<a href="struct.Box.html">Box</a>`)
	assert.Contains(t, out, `<a href="struct.Cube.html">Cube</a>`)
	assert.Contains(t, out, "Holds &lt;T&gt;")
	assert.Less(t, strings.Index(out, "struct.Box.html"), strings.Index(out, "struct.Cube.html"))
	assert.Less(t, strings.Index(out, "sidebar-struct"), strings.Index(out, "sidebar-other"))
}

func TestRenderHTML_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, NewPage("", sidebar.Empty()), RenderOptions{}))
	assert.Equal(t, "<nav class=\"sidebar\">\n</nav>\n", buf.String())
}

func TestRenderText(t *testing.T) {
	t.Parallel()

	idx := mustIndex(t, map[string][]sidebar.Entry{
		"struct": {{Name: "Box", Summary: "A box"}, {Name: "Icosphere", Summary: "A sphere"}, {Name: "Cube"}},
	})

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, NewPage("shape", idx), RenderOptions{NoColor: true}))

	want := "shape\n\n" +
		"Structs\n" +
		"  Box        A box\n" +
		"  Icosphere  A sphere\n" +
		"  Cube\n\n"
	assert.Equal(t, want, buf.String())
}
