// Package nav turns a sidebar index into the navigation groups a documentation
// page displays.
//
// A Page owns exactly one index, handed to it either at construction or through a
// single Register call. A Navigator holds the page currently on screen; loading a
// new page replaces everything it showed before.
package nav

import (
	"errors"
	"net/url"

	"github.com/jcdickinson/ferrisnav/internal/sidebar"
)

// ErrAlreadyRegistered is returned by a second Register call on the same page.
var ErrAlreadyRegistered = errors.New("sidebar index already registered for this page")

// Item is one clickable navigation entry.
type Item struct {
	Name    string
	Summary string
	Href    string
}

// Group is the rendered form of one category.
type Group struct {
	Category sidebar.Category
	Title    string
	Items    []Item
}

// Page is a single documentation page. It is not safe for concurrent use; a page
// is built and rendered on one goroutine.
type Page struct {
	Title string
	// Meta is written as front matter by RenderMarkdown (crate, version, module).
	Meta map[string]string

	index      *sidebar.Index
	registered bool
}

// NewPage creates a page. A non-nil idx counts as the page's registration; pass
// nil to register later.
func NewPage(title string, idx *sidebar.Index) *Page {
	p := &Page{Title: title}
	if idx != nil {
		p.index = idx
		p.registered = true
	}
	return p
}

// Register hands the page its sidebar index. It succeeds at most once per page.
// A nil or empty index is valid and gives an empty sidebar.
func (p *Page) Register(idx *sidebar.Index) error {
	if p.registered {
		return ErrAlreadyRegistered
	}
	if idx == nil {
		idx = sidebar.Empty()
	}
	p.index = idx
	p.registered = true
	return nil
}

// Registered reports whether the page has received its index.
func (p *Page) Registered() bool {
	return p.registered
}

// Index returns the registered index, or an empty one.
func (p *Page) Index() *sidebar.Index {
	if p.index == nil {
		return sidebar.Empty()
	}
	return p.index
}

// Groups builds one group per category that has entries, in rustdoc category
// order. Items keep the emitter's order; nothing is dropped or reordered, and
// duplicate names are rendered as-is.
func (p *Page) Groups() []Group {
	idx := p.Index()

	var groups []Group
	for _, label := range idx.Categories() {
		entries := idx.Entries(label)
		if len(entries) == 0 {
			continue
		}
		cat := sidebar.ParseCategory(label)
		g := Group{
			Category: cat,
			Title:    cat.Title(),
			Items:    make([]Item, len(entries)),
		}
		for i, e := range entries {
			g.Items[i] = Item{
				Name:    e.Name,
				Summary: e.Summary,
				Href:    cat.Href(url.PathEscape(e.Name)),
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// Navigator tracks the page currently displayed.
type Navigator struct {
	page   *Page
	groups []Group
}

// Load makes p the current page. Groups from any previously loaded page are
// discarded.
func (n *Navigator) Load(p *Page) {
	n.page = p
	n.groups = nil
	if p != nil {
		n.groups = p.Groups()
	}
}

// Page returns the current page, or nil before the first Load.
func (n *Navigator) Page() *Page {
	return n.page
}

// Groups returns the navigation groups of the current page.
func (n *Navigator) Groups() []Group {
	return n.groups
}
