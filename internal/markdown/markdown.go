package markdown

import (
	"strings"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"
	gmparser "github.com/gomarkdown/markdown/parser"
	"gopkg.in/yaml.v3"
)

func parse(src string) ast.Node {
	return gm.Parse([]byte(src), gmparser.NewWithExtensions(
		gmparser.CommonExtensions|gmparser.Autolink,
	))
}

// Summary returns the first paragraph of a doc comment as a single line of plain
// text. Formatting, link targets and inline HTML are dropped; code spans keep their
// text. Docs that open with a heading or code block before any paragraph still use
// the first paragraph.
func Summary(docs string) string {
	docs = strings.TrimSpace(docs)
	if docs == "" {
		return ""
	}

	doc := parse(docs)
	for _, child := range doc.GetChildren() {
		if p, ok := child.(*ast.Paragraph); ok {
			return nodeText(p)
		}
	}
	return ""
}

// nodeText flattens the leaves under node and collapses whitespace.
func nodeText(node ast.Node) string {
	var b strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch n.(type) {
		case *ast.HTMLSpan:
			return ast.SkipChildren
		case *ast.Softbreak, *ast.Hardbreak:
			b.WriteByte(' ')
			return ast.GoToNext
		}
		if leaf := n.AsLeaf(); leaf != nil && leaf.Literal != nil {
			b.Write(leaf.Literal)
		}
		return ast.GoToNext
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// ToHTML renders markdown to an HTML fragment.
func ToHTML(src string) string {
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags &^ html.CompletePage,
	})
	return string(gm.Render(parse(src), renderer))
}

// escaper backslash-escapes characters that would otherwise start inline markup.
var escaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"<", `\<`, ">", `\>`, "#", `\#`, "!", `\!`,
)

// Escape makes s safe to embed as literal text in markdown.
func Escape(s string) string {
	return escaper.Replace(s)
}

// AddFrontMatter prepends a YAML front-matter block with the given keys, sorted.
func AddFrontMatter(src string, fields map[string]string) string {
	if len(fields) == 0 {
		return src
	}

	// Map keys are emitted sorted.
	data, err := yaml.Marshal(fields)
	if err != nil {
		return src
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(data)
	b.WriteString("---\n\n")
	b.WriteString(src)
	return b.String()
}
