package docs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

func itemKey(id int) string {
	return strconv.Itoa(id)
}

func (c *RustdocCrate) item(id int) (RustdocItem, bool) {
	it, ok := c.Index[itemKey(id)]
	return it, ok
}

// CrateName returns the name of the crate's root module.
func (c *RustdocCrate) CrateName() string {
	root, ok := c.item(c.Root)
	if !ok || root.Name == nil {
		return ""
	}
	return *root.Name
}

type moduleInner struct {
	Items      []int `json:"items"`
	IsStripped bool  `json:"is_stripped"`
}

func moduleOf(item RustdocItem) (moduleInner, bool) {
	var mod moduleInner
	data := unwrapInner(item.Inner, "module")
	if data == nil {
		return mod, false
	}
	if err := json.Unmarshal(data, &mod); err != nil {
		return mod, false
	}
	return mod, true
}

// childModules returns the public, non-stripped submodules of a module by name.
func (c *RustdocCrate) childModules(moduleID int) map[string]int {
	item, ok := c.item(moduleID)
	if !ok {
		return nil
	}
	mod, ok := moduleOf(item)
	if !ok {
		return nil
	}

	children := make(map[string]int)
	for _, childID := range mod.Items {
		child, ok := c.item(childID)
		if !ok || !child.Public() || child.Name == nil {
			continue
		}
		if sub, ok := moduleOf(child); ok && !sub.IsStripped {
			children[*child.Name] = childID
		}
	}
	return children
}

// ModulePaths lists every public module of the crate as a Rust path, sorted.
// The crate root is listed under the crate's name.
func ModulePaths(crate *RustdocCrate) []string {
	root := crate.CrateName()
	if root == "" {
		return nil
	}

	var paths []string
	visited := make(map[int]bool)
	var walk func(id int, path string)
	walk = func(id int, path string) {
		if visited[id] {
			return
		}
		visited[id] = true
		paths = append(paths, path)
		for name, childID := range crate.childModules(id) {
			walk(childID, path+"::"+name)
		}
	}
	walk(crate.Root, root)

	sort.Strings(paths)
	return paths
}

// FindModule resolves a Rust module path ("bevy::prelude::shape") to its item ID.
// An empty path, or the bare crate name, is the crate root.
func FindModule(crate *RustdocCrate, modulePath string) (int, error) {
	root := crate.CrateName()
	modulePath = strings.TrimSpace(modulePath)
	if modulePath == "" || modulePath == root {
		return crate.Root, nil
	}

	segments := strings.Split(modulePath, "::")
	if segments[0] != root {
		return 0, fmt.Errorf("module path %s is outside crate %s", modulePath, root)
	}

	id := crate.Root
	for i, seg := range segments[1:] {
		next, ok := crate.childModules(id)[seg]
		if !ok {
			return 0, fmt.Errorf("module %s not found in %s", seg, strings.Join(segments[:i+1], "::"))
		}
		id = next
	}
	return id, nil
}
