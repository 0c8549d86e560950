package sidebar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SyntaxError reports structurally malformed index data.
type SyntaxError struct {
	Category string // empty when the problem is at the top level
	Position int    // entry position within Category, -1 when not applicable
	Msg      string
}

func (e *SyntaxError) Error() string {
	switch {
	case e.Category == "" && e.Position < 0:
		return "malformed sidebar index: " + e.Msg
	case e.Position < 0:
		return fmt.Sprintf("malformed sidebar index: category %q: %s", e.Category, e.Msg)
	default:
		return fmt.Sprintf("malformed sidebar index: category %q entry %d: %s", e.Category, e.Position, e.Msg)
	}
}

// MarshalJSON writes the entry as a two-element [name, summary] array.
func (e Entry) MarshalJSON() ([]byte, error) {
	return marshalNoEscape([2]string{e.Name, e.Summary})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	name, summary, err := decodePair(data)
	if err != nil {
		return &SyntaxError{Position: -1, Msg: err.Error()}
	}
	e.Name, e.Summary = name, summary
	return nil
}

// MarshalJSON writes categories in sorted key order; entry order is preserved.
func (idx *Index) MarshalJSON() ([]byte, error) {
	groups := make(map[string][]Entry)
	if idx != nil {
		for label, entries := range idx.groups {
			if entries == nil {
				entries = []Entry{}
			}
			groups[label] = entries
		}
	}
	return marshalNoEscape(groups)
}

// UnmarshalJSON replaces the receiver's contents. It checks structure only; use
// Validate or Decode for the semantic checks.
func (idx *Index) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return &SyntaxError{Position: -1, Msg: "expected an object of categories"}
	}

	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		return &SyntaxError{Position: -1, Msg: err.Error()}
	}

	// Keys are walked in order so a repeated label is reported.
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return &SyntaxError{Position: -1, Msg: err.Error()}
	}
	groups := make(map[string][]Entry)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return &SyntaxError{Position: -1, Msg: err.Error()}
		}
		label, ok := tok.(string)
		if !ok {
			return &SyntaxError{Position: -1, Msg: fmt.Sprintf("unexpected token %v", tok)}
		}
		if _, dup := groups[label]; dup {
			return &SyntaxError{Category: label, Position: -1, Msg: "duplicate category"}
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return &SyntaxError{Category: label, Position: -1, Msg: err.Error()}
		}

		value = bytes.TrimSpace(value)
		if len(value) == 0 || value[0] != '[' {
			return &SyntaxError{Category: label, Position: -1, Msg: "expected an array of entries"}
		}
		var items []json.RawMessage
		if err := json.Unmarshal(value, &items); err != nil {
			return &SyntaxError{Category: label, Position: -1, Msg: err.Error()}
		}

		entries := make([]Entry, 0, len(items))
		for i, item := range items {
			name, summary, err := decodePair(item)
			if err != nil {
				return &SyntaxError{Category: label, Position: i, Msg: err.Error()}
			}
			entries = append(entries, Entry{Name: name, Summary: summary})
		}
		groups[label] = entries
	}

	idx.groups = groups
	return nil
}

func decodePair(data []byte) (string, string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return "", "", fmt.Errorf("expected a [name, summary] array")
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return "", "", err
	}
	if len(parts) != 2 {
		return "", "", fmt.Errorf("expected 2 elements, got %d", len(parts))
	}

	var out [2]string
	for i, p := range parts {
		p = bytes.TrimSpace(p)
		if len(p) == 0 || p[0] != '"' {
			field := "name"
			if i == 1 {
				field = "summary"
			}
			return "", "", fmt.Errorf("%s must be a string, got %s", field, string(p))
		}
		if err := json.Unmarshal(p, &out[i]); err != nil {
			return "", "", err
		}
	}
	return out[0], out[1], nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalYAML writes the entry as a flow sequence: [name, summary].
func (e Entry) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.SequenceNode,
		Style: yaml.FlowStyle,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Name},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Summary, Style: yaml.DoubleQuotedStyle},
		},
	}, nil
}

func (idx *Index) MarshalYAML() (any, error) {
	groups := make(map[string][]Entry)
	if idx != nil {
		for label, entries := range idx.groups {
			if entries == nil {
				entries = []Entry{}
			}
			groups[label] = entries
		}
	}
	return groups, nil
}

func (idx *Index) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.DocumentNode && len(value.Content) == 1 {
		value = value.Content[0]
	}
	if value.Kind != yaml.MappingNode {
		return &SyntaxError{Position: -1, Msg: fmt.Sprintf("line %d: expected a mapping of categories", value.Line)}
	}

	groups := make(map[string][]Entry, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return &SyntaxError{Position: -1, Msg: fmt.Sprintf("line %d: category label must be a string", key.Line)}
		}
		label := key.Value
		if _, dup := groups[label]; dup {
			return &SyntaxError{Category: label, Position: -1, Msg: fmt.Sprintf("line %d: duplicate category", key.Line)}
		}
		if val.Kind != yaml.SequenceNode {
			return &SyntaxError{Category: label, Position: -1, Msg: fmt.Sprintf("line %d: expected a sequence of entries", val.Line)}
		}

		entries := make([]Entry, 0, len(val.Content))
		for pos, item := range val.Content {
			if item.Kind != yaml.SequenceNode || len(item.Content) != 2 {
				return &SyntaxError{Category: label, Position: pos, Msg: fmt.Sprintf("line %d: expected a [name, summary] pair", item.Line)}
			}
			name, summary := item.Content[0], item.Content[1]
			if !isYAMLString(name) || !isYAMLString(summary) {
				return &SyntaxError{Category: label, Position: pos, Msg: fmt.Sprintf("line %d: name and summary must be strings", item.Line)}
			}
			entries = append(entries, Entry{Name: name.Value, Summary: summary.Value})
		}
		groups[label] = entries
	}

	idx.groups = groups
	return nil
}

func isYAMLString(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str"
}

// Format names a boundary encoding of an index.
type Format string

const (
	// FormatScript is rustdoc's sidebar-items.js: initSidebarItems({...});
	FormatScript Format = "script"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
)

// ParseFormat accepts the CLI spellings of a format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "script", "js":
		return FormatScript, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want script, json or yaml)", s)
}

// FormatFromPath infers the format from a file extension, defaulting to script.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatScript
}

const (
	scriptCall   = "initSidebarItems("
	scriptAssign = "window.SIDEBAR_ITEMS"
)

// ParseScript extracts the index from a sidebar-items.js file. Both the
// initSidebarItems({...}); call and the window.SIDEBAR_ITEMS = {...}; assignment
// are accepted, as is bare JSON.
func ParseScript(r io.Reader, opts ...Option) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading sidebar script: %w", err)
	}
	payload, err := scriptPayload(data)
	if err != nil {
		return nil, err
	}
	return decodeJSON(payload, opts)
}

func scriptPayload(data []byte) ([]byte, error) {
	s := strings.TrimSpace(string(data))
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))

	switch {
	case strings.HasPrefix(s, scriptCall):
		s = strings.TrimPrefix(s, scriptCall)
		if !strings.HasSuffix(s, ")") {
			return nil, &SyntaxError{Position: -1, Msg: "unterminated initSidebarItems call"}
		}
		s = strings.TrimSuffix(s, ")")
	case strings.HasPrefix(s, scriptAssign):
		s = strings.TrimSpace(strings.TrimPrefix(s, scriptAssign))
		if !strings.HasPrefix(s, "=") {
			return nil, &SyntaxError{Position: -1, Msg: "expected = after " + scriptAssign}
		}
		s = strings.TrimPrefix(s, "=")
	}
	return []byte(strings.TrimSpace(s)), nil
}

// WriteScript writes idx as rustdoc's initSidebarItems call.
func WriteScript(w io.Writer, idx *Index) error {
	data, err := idx.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding sidebar index: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s%s);", scriptCall, data); err != nil {
		return fmt.Errorf("writing sidebar script: %w", err)
	}
	return nil
}

func decodeJSON(data []byte, opts []Option) (*Index, error) {
	var idx Index
	if err := idx.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return finish(&idx, opts)
}

func finish(idx *Index, opts []Option) (*Index, error) {
	if buildOptions(opts).validate {
		if err := Validate(idx); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Decode reads an index in the given format, validating it unless disabled.
func Decode(r io.Reader, format Format, opts ...Option) (*Index, error) {
	switch format {
	case FormatScript:
		return ParseScript(r, opts...)
	case FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading sidebar index: %w", err)
		}
		return decodeJSON(data, opts)
	case FormatYAML:
		var idx Index
		if err := yaml.NewDecoder(r).Decode(&idx); err != nil {
			if err == io.EOF {
				return nil, &SyntaxError{Position: -1, Msg: "empty document"}
			}
			return nil, err
		}
		return finish(&idx, opts)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// Encode writes idx in the given format.
func Encode(w io.Writer, idx *Index, format Format) error {
	switch format {
	case FormatScript:
		return WriteScript(w, idx)
	case FormatJSON:
		data, err := idx.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encoding sidebar index: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(idx); err != nil {
			return fmt.Errorf("encoding sidebar index: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", format)
}
