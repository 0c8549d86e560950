package sidebar

import (
	"fmt"
	"strings"
)

// Problem is a single data-quality defect in an index.
type Problem struct {
	Category string
	Name     string
	Reason   string
}

func (p Problem) String() string {
	switch {
	case p.Name != "":
		return fmt.Sprintf("%s %q: %s", p.Category, p.Name, p.Reason)
	case p.Category != "":
		return fmt.Sprintf("%s: %s", p.Category, p.Reason)
	default:
		return p.Reason
	}
}

// ValidationError collects every problem found in one pass.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid sidebar index: " + e.Problems[0].String()
	}
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("invalid sidebar index: %d problems: %s", len(e.Problems), strings.Join(parts, "; "))
}

// Validate checks the semantic invariants: non-empty category labels and unique
// entry names within a category. Unknown labels are not an error.
func Validate(idx *Index) error {
	if idx == nil {
		return nil
	}

	var problems []Problem
	for _, label := range idx.Categories() {
		if strings.TrimSpace(label) == "" {
			problems = append(problems, Problem{Category: fmt.Sprintf("%q", label), Reason: "empty category label"})
		}

		seen := make(map[string]bool, len(idx.groups[label]))
		for i, e := range idx.groups[label] {
			if e.Name == "" {
				problems = append(problems, Problem{Category: label, Reason: fmt.Sprintf("entry %d has an empty name", i)})
				continue
			}
			if seen[e.Name] {
				problems = append(problems, Problem{Category: label, Name: e.Name, Reason: "duplicate name"})
				continue
			}
			seen[e.Name] = true
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// Warnings lists the categories a renderer will show as a generic group.
func Warnings(idx *Index) []Problem {
	var warnings []Problem
	for _, label := range idx.Categories() {
		if strings.TrimSpace(label) == "" {
			continue
		}
		if !ParseCategory(label).Known() {
			warnings = append(warnings, Problem{Category: label, Reason: "unrecognized category"})
		}
	}
	return warnings
}
