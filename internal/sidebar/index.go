// Package sidebar models the sidebar index a generated documentation page uses to
// build its navigation: category label -> ordered (name, summary) entries.
package sidebar

import (
	"sort"
	"strings"
)

// Entry is one documented symbol. An undocumented symbol has an empty Summary.
type Entry struct {
	Name    string
	Summary string
}

// Index is immutable once built. Entry order within a category is the emitter's
// display order and is preserved everywhere.
type Index struct {
	groups map[string][]Entry
}

type options struct {
	validate bool
}

// Option configures New and Decode.
type Option func(*options)

// WithValidation toggles ingestion checks (empty labels, duplicate names).
// Validation is on unless disabled.
func WithValidation(on bool) Option {
	return func(o *options) {
		o.validate = on
	}
}

func buildOptions(opts []Option) options {
	o := options{validate: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New copies groups into a new Index. With validation enabled it returns a
// *ValidationError describing every problem found.
func New(groups map[string][]Entry, opts ...Option) (*Index, error) {
	o := buildOptions(opts)

	idx := &Index{groups: make(map[string][]Entry, len(groups))}
	for label, entries := range groups {
		cp := make([]Entry, len(entries))
		copy(cp, entries)
		idx.groups[label] = cp
	}

	if o.validate {
		if err := Validate(idx); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Empty returns an index with no categories.
func Empty() *Index {
	return &Index{groups: map[string][]Entry{}}
}

// Categories returns the labels in rustdoc display order, ties broken by label.
func (idx *Index) Categories() []string {
	if idx == nil {
		return nil
	}
	labels := make([]string, 0, len(idx.groups))
	for label := range idx.groups {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		ri, rj := ParseCategory(labels[i]).Rank(), ParseCategory(labels[j]).Rank()
		if ri != rj {
			return ri < rj
		}
		return labels[i] < labels[j]
	})
	return labels
}

// Entries returns a copy of the entries for label, in emitter order.
func (idx *Index) Entries(label string) []Entry {
	if idx == nil {
		return nil
	}
	entries, ok := idx.groups[label]
	if !ok {
		return nil
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return cp
}

// Has reports whether label is present (possibly with zero entries).
func (idx *Index) Has(label string) bool {
	if idx == nil {
		return false
	}
	_, ok := idx.groups[label]
	return ok
}

// Len is the number of categories.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.groups)
}

// EntryCount is the total number of entries across all categories.
func (idx *Index) EntryCount() int {
	if idx == nil {
		return 0
	}
	n := 0
	for _, entries := range idx.groups {
		n += len(entries)
	}
	return n
}

func (idx *Index) IsEmpty() bool {
	return idx.Len() == 0
}

// Equal compares category sets and entry lists, including order.
func (idx *Index) Equal(other *Index) bool {
	if idx.Len() != other.Len() {
		return false
	}
	if idx == nil || other == nil {
		return true
	}
	for label, entries := range idx.groups {
		theirs, ok := other.groups[label]
		if !ok || len(theirs) != len(entries) {
			return false
		}
		for i := range entries {
			if entries[i] != theirs[i] {
				return false
			}
		}
	}
	return true
}

func (idx *Index) String() string {
	var b strings.Builder
	for i, label := range idx.Categories() {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(label)
		b.WriteString("(")
		for j, e := range idx.groups[label] {
			if j > 0 {
				b.WriteString(",")
			}
			b.WriteString(e.Name)
		}
		b.WriteString(")")
	}
	return b.String()
}
