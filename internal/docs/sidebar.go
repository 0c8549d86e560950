package docs

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jcdickinson/ferrisnav/internal/markdown"
	"github.com/jcdickinson/ferrisnav/internal/sidebar"
)

// BuildSidebar emits the sidebar index for one module: every public item defined
// in it plus its `pub use` re-exports, grouped by category, sorted by name, with
// the first paragraph of each item's docs as its summary.
func BuildSidebar(crate *RustdocCrate, modulePath string) (*sidebar.Index, error) {
	moduleID, err := FindModule(crate, modulePath)
	if err != nil {
		return nil, err
	}

	c := &collector{
		crate:  crate,
		groups: make(map[string][]sidebar.Entry),
		seen:   make(map[string]map[string]bool),
	}
	c.collectModule(moduleID, make(map[int]bool))

	for label := range c.groups {
		entries := c.groups[label]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Name < entries[j].Name
		})
	}

	idx, err := sidebar.New(c.groups)
	if err != nil {
		return nil, fmt.Errorf("building sidebar for %s: %w", modulePath, err)
	}
	return idx, nil
}

type collector struct {
	crate  *RustdocCrate
	groups map[string][]sidebar.Entry
	seen   map[string]map[string]bool
}

// add records an entry; the first item seen under a name wins.
func (c *collector) add(label, name, docs string) {
	if label == "" || name == "" {
		return
	}
	if c.seen[label] == nil {
		c.seen[label] = make(map[string]bool)
	}
	if c.seen[label][name] {
		return
	}
	c.seen[label][name] = true
	c.groups[label] = append(c.groups[label], sidebar.Entry{Name: name, Summary: markdown.Summary(docs)})
}

// Kinds that never appear in a module sidebar.
var memberKinds = map[string]bool{
	"impl":         true,
	"struct_field": true,
	"variant":      true,
	"assoc_const":  true,
	"assoc_type":   true,
	"unknown":      true,
}

func (c *collector) collectModule(moduleID int, visited map[int]bool) {
	if visited[moduleID] {
		return
	}
	visited[moduleID] = true

	item, ok := c.crate.item(moduleID)
	if !ok {
		return
	}
	mod, ok := moduleOf(item)
	if !ok {
		return
	}

	for _, childID := range mod.Items {
		child, ok := c.crate.item(childID)
		if !ok || !child.Public() {
			continue
		}

		kind := innerKind(child.Inner)
		switch {
		case kind == "use" || kind == "import":
			c.collectUse(child, kind, visited)
		case memberKinds[kind]:
			continue
		case child.Name != nil:
			c.add(categoryLabel(kind, child.Inner), *child.Name, docsOf(child))
		}
	}
}

func (c *collector) collectUse(item RustdocItem, kind string, visited map[int]bool) {
	var use struct {
		Name   string `json:"name"`
		ID     *int   `json:"id"`
		IsGlob bool   `json:"is_glob"`
		Glob   bool   `json:"glob"`
	}
	if err := json.Unmarshal(unwrapInner(item.Inner, kind), &use); err != nil || use.ID == nil {
		return
	}

	target, local := c.crate.item(*use.ID)

	if use.IsGlob || use.Glob {
		// Only local modules carry the item list needed to inline a glob.
		if local {
			if _, ok := moduleOf(target); ok {
				c.collectModule(*use.ID, visited)
			}
		}
		return
	}

	docs := docsOf(item)
	if local {
		targetKind := innerKind(target.Inner)
		if targetKind == "use" || targetKind == "import" || memberKinds[targetKind] {
			return
		}
		if docs == "" {
			docs = docsOf(target)
		}
		c.add(categoryLabel(targetKind, target.Inner), use.Name, docs)
		return
	}

	if summary, ok := c.crate.Paths[itemKey(*use.ID)]; ok {
		c.add(categoryLabel(summary.Kind, nil), use.Name, docs)
	}
}

func docsOf(item RustdocItem) string {
	if item.Docs == nil {
		return ""
	}
	return *item.Docs
}

// categoryLabel maps a rustdoc JSON kind onto the label rustdoc uses in
// sidebar-items.js.
func categoryLabel(kind string, inner json.RawMessage) string {
	if kind == "proc_macro" {
		var pm struct {
			Kind string `json:"kind"`
		}
		if data := unwrapInner(inner, "proc_macro"); data != nil {
			json.Unmarshal(data, &pm)
		}
		switch pm.Kind {
		case "attr":
			return "attr"
		case "derive":
			return "derive"
		}
		return "macro"
	}
	return sidebar.ParseCategory(kind).Canonical()
}
