package markdown

import (
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		docs string
		want string
	}{
		{"empty", "", ""},
		{"whitespace", "  \n\n ", ""},
		{"single line", "A circle in the xy plane", "A circle in the xy plane"},
		{"first paragraph only", "A torus (donut) shape.\n\nMore detail here.", "A torus (donut) shape."},
		{"wrapped paragraph", "A sphere made of\nsectors and stacks.\n\n# Examples", "A sphere made of sectors and stacks."},
		{"emphasis and code", "Returns **the** `len` of *self*.", "Returns the len of self."},
		{"link text kept", "See [`Mesh`](crate::Mesh) for details.", "See Mesh for details."},
		{"heading first", "# Panics\n\nPanics when empty.", "Panics when empty."},
		{"inline html dropped", "A <b>bold</b> claim.", "A bold claim."},
		{"no paragraph", "```\nlet x = 1;\n```", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summary(tt.docs); got != tt.want {
				t.Errorf("Summary(%q) = %q, want %q", tt.docs, got, tt.want)
			}
		})
	}
}

func TestToHTML(t *testing.T) {
	t.Parallel()

	got := ToHTML("- [Box](struct.Box.html)\n")
	if !strings.Contains(got, `<a href="struct.Box.html">Box</a>`) {
		t.Errorf("link not rendered: %q", got)
	}
	if strings.Contains(got, "<html>") {
		t.Errorf("expected a fragment, got a complete page: %q", got)
	}
}

func TestAddFrontMatter(t *testing.T) {
	t.Parallel()

	t.Run("basic", func(t *testing.T) {
		got := AddFrontMatter("# Doc", map[string]string{"module": "bevy::prelude::shape"})
		if !strings.HasPrefix(got, "---\n") {
			t.Error("missing opening ---")
		}
		if !strings.Contains(got, "module: bevy::prelude::shape") {
			t.Error("missing module entry")
		}
		if !strings.HasSuffix(got, "# Doc") {
			t.Error("original content missing")
		}
	})

	t.Run("sorted_keys", func(t *testing.T) {
		got := AddFrontMatter("body", map[string]string{
			"version": "0.9.1",
			"crate":   "bevy",
		})
		if strings.Index(got, "crate") > strings.Index(got, "version") {
			t.Error("keys not sorted alphabetically")
		}
	})

	t.Run("quotes_unsafe_values", func(t *testing.T) {
		fields := map[string]string{
			"title":   "shape: geometry",
			"comment": "# not a comment",
			"version": "1.0",
		}
		got := AddFrontMatter("body", fields)

		rest, ok := strings.CutPrefix(got, "---\n")
		if !ok {
			t.Fatalf("missing opening ---: %q", got)
		}
		block, body, ok := strings.Cut(rest, "---\n\n")
		if !ok || body != "body" {
			t.Fatalf("malformed front matter: %q", got)
		}

		var back map[string]string
		if err := yaml.Unmarshal([]byte(block), &back); err != nil {
			t.Fatalf("front matter is not valid YAML: %v\n%s", err, block)
		}
		if !reflect.DeepEqual(back, fields) {
			t.Errorf("front matter round trip = %v, want %v", back, fields)
		}
	})

	t.Run("empty_map", func(t *testing.T) {
		got := AddFrontMatter("body", nil)
		if got != "body" {
			t.Errorf("expected unchanged for empty map, got %q", got)
		}
	})
}

func TestEscape(t *testing.T) {
	t.Parallel()

	if got := Escape("block_on *now*"); got != `block\_on \*now\*` {
		t.Errorf("got %q", got)
	}

	html := ToHTML("- " + Escape("Vec<T> [fixed] _x_") + "\n")
	if !strings.Contains(html, "Vec&lt;T&gt; [fixed] _x_") {
		t.Errorf("escaped text not preserved literally: %q", html)
	}
}
