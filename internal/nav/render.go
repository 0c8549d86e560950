package nav

import (
	"fmt"
	"html"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/jcdickinson/ferrisnav/internal/markdown"
	"github.com/jcdickinson/ferrisnav/internal/sidebar"
)

// RenderOptions controls link targets and terminal styling.
type RenderOptions struct {
	// BaseURL is prefixed to every item href.
	BaseURL string
	NoColor bool
}

// outline writes a group as a markdown section.
func outline(b *strings.Builder, g Group, level int, opts RenderOptions) {
	fmt.Fprintf(b, "%s %s\n\n", strings.Repeat("#", level), markdown.Escape(g.Title))
	for _, it := range g.Items {
		fmt.Fprintf(b, "- [%s](%s%s)", markdown.Escape(it.Name), opts.BaseURL, it.Href)
		if it.Summary != "" {
			b.WriteString(": ")
			b.WriteString(markdown.Escape(it.Summary))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// RenderMarkdown writes the page title followed by one section per group.
// Page.Meta becomes front matter.
func RenderMarkdown(w io.Writer, p *Page, opts RenderOptions) error {
	var b strings.Builder
	if p.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", markdown.Escape(p.Title))
	}
	for _, g := range p.Groups() {
		outline(&b, g, 2, opts)
	}
	_, err := io.WriteString(w, markdown.AddFrontMatter(b.String(), p.Meta))
	return err
}

// RenderHTML writes a <nav> element with one <section> per group. Sections carry
// a sidebar-<category> class; unknown categories use sidebar-other.
func RenderHTML(w io.Writer, p *Page, opts RenderOptions) error {
	var b strings.Builder
	b.WriteString(`<nav class="sidebar">` + "\n")
	if p.Title != "" {
		fmt.Fprintf(&b, "<h2 class=\"location\">%s</h2>\n", html.EscapeString(p.Title))
	}
	for _, g := range p.Groups() {
		var section strings.Builder
		outline(&section, g, 3, opts)
		fmt.Fprintf(&b, "<section class=\"sidebar-%s\">\n%s</section>\n", g.Category.Kind, markdown.ToHTML(section.String()))
	}
	b.WriteString("</nav>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Palette per category; anything unlisted uses colorDefault.
const (
	colorDefault = "245"
	colorTitle   = "255"
	colorDim     = "240"
)

var categoryColors = map[sidebar.Kind]string{
	sidebar.KindModule:    "75",
	sidebar.KindMacro:     "114",
	sidebar.KindStruct:    "179",
	sidebar.KindEnum:      "179",
	sidebar.KindUnion:     "179",
	sidebar.KindTrait:     "141",
	sidebar.KindFunction:  "154",
	sidebar.KindTypeAlias: "179",
	sidebar.KindConstant:  "75",
	sidebar.KindStatic:    "75",
	sidebar.KindPrimitive: "179",
}

type textStyles struct {
	title   lipgloss.Style
	header  func(sidebar.Kind) lipgloss.Style
	name    func(sidebar.Kind) lipgloss.Style
	summary lipgloss.Style
}

func defaultTextStyles() textStyles {
	color := func(k sidebar.Kind) lipgloss.Color {
		if c, ok := categoryColors[k]; ok {
			return lipgloss.Color(c)
		}
		return lipgloss.Color(colorDefault)
	}
	return textStyles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorTitle)),
		header: func(k sidebar.Kind) lipgloss.Style {
			return lipgloss.NewStyle().Bold(true).Underline(true).Foreground(color(k))
		},
		name: func(k sidebar.Kind) lipgloss.Style {
			return lipgloss.NewStyle().Foreground(color(k))
		},
		summary: lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim)),
	}
}

func plainTextStyles() textStyles {
	plain := func(sidebar.Kind) lipgloss.Style { return lipgloss.NewStyle() }
	return textStyles{
		title:   lipgloss.NewStyle(),
		header:  plain,
		name:    plain,
		summary: lipgloss.NewStyle(),
	}
}

// RenderText writes the groups for a terminal, names aligned per group.
func RenderText(w io.Writer, p *Page, opts RenderOptions) error {
	styles := defaultTextStyles()
	if opts.NoColor {
		styles = plainTextStyles()
	}

	var b strings.Builder
	if p.Title != "" {
		b.WriteString(styles.title.Render(p.Title))
		b.WriteString("\n\n")
	}

	for _, g := range p.Groups() {
		kind := g.Category.Kind
		b.WriteString(styles.header(kind).Render(g.Title))
		b.WriteString("\n")

		width := 0
		for _, it := range g.Items {
			if n := utf8.RuneCountInString(it.Name); n > width {
				width = n
			}
		}
		for _, it := range g.Items {
			b.WriteString("  ")
			if it.Summary == "" {
				b.WriteString(styles.name(kind).Render(it.Name))
				b.WriteString("\n")
				continue
			}
			pad := strings.Repeat(" ", width-utf8.RuneCountInString(it.Name))
			b.WriteString(styles.name(kind).Render(it.Name))
			b.WriteString(pad + "  ")
			b.WriteString(styles.summary.Render(it.Summary))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
