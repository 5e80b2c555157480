// Package markdown implements the Page model's Markdown/frontmatter
// transform (spec.md §3 Page, §6 File formats): frontmatter extraction plus
// Markdown-to-HTML rendering, treated by the rest of the core as an opaque
// transform boundary (spec.md §1).
package markdown

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// HeadItem is one entry of a Markdown page's frontmatter `head` array,
// emitted as a meta/link/script element per spec.md §6.
type HeadItem struct {
	Tag   string
	Attrs map[string]string
}

// Page is a parsed Markdown source file: frontmatter plus rendered body.
type Page struct {
	SourcePath  string
	Frontmatter map[string]any
	BodyHTML    string

	Title       string
	Description string
	Author      string
	Layout      string
	Excerpt     string
	Schema      any

	HeadHTML  string
	HeadItems []HeadItem
	OpenGraph map[string]string

	HTMLAttrs map[string]string
	BodyAttrs map[string]string

	// HeadInBody reports whether the rendered body contains a literal <head>
	// element, per spec.md §7's "markdown containing <head> in body" per-file
	// recoverable error. Code fences render their contents HTML-escaped, so
	// this only fires on a genuine stray <head> tag, not an example in a
	// fenced block.
	HeadInBody bool
}

// renderer is the shared goldmark instance. GFM + Footnote mirror the
// extensions the pack's Markdown-based site generators enable by default;
// WithUnsafe permits raw HTML passthrough in Markdown bodies, which Unify
// pages rely on for inline include directives and DOM-cascade markup.
var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Footnote),
	goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
)

// Parse extracts frontmatter from source and renders the remaining Markdown
// body to HTML, returning a populated Page. sourcePath is recorded for error
// messages only.
func Parse(source []byte, sourcePath string) (*Page, error) {
	var fm map[string]any
	rest, err := frontmatter.Parse(bytes.NewReader(source), &fm)
	if err != nil {
		return nil, fmt.Errorf("parsing frontmatter in %s: %w", sourcePath, err)
	}
	if fm == nil {
		fm = map[string]any{}
	}

	var buf bytes.Buffer
	if err := renderer.Convert(rest, &buf); err != nil {
		return nil, fmt.Errorf("rendering markdown in %s: %w", sourcePath, err)
	}

	page := &Page{
		SourcePath:  sourcePath,
		Frontmatter: fm,
		BodyHTML:    buf.String(),
		HTMLAttrs:   map[string]string{},
		BodyAttrs:   map[string]string{},
		OpenGraph:   map[string]string{},
	}
	populateKnownKeys(page, fm)
	page.HeadInBody = strings.Contains(strings.ToLower(page.BodyHTML), "<head")
	return page, nil
}

func populateKnownKeys(page *Page, fm map[string]any) {
	page.Title, _ = fm["title"].(string)
	page.Description, _ = fm["description"].(string)
	page.Author, _ = fm["author"].(string)
	page.Layout, _ = fm["layout"].(string)
	page.Excerpt, _ = fm["excerpt"].(string)
	page.Schema = fm["schema"]

	if raw, ok := fm["head_html"]; ok {
		page.HeadHTML = headHTMLLines(raw)
	}

	if raw, ok := fm["head"].([]any); ok {
		for _, entry := range raw {
			if m, ok := entry.(map[string]any); ok {
				page.HeadItems = append(page.HeadItems, toHeadItem(m))
			}
		}
	}

	for key, v := range fm {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(key, "og:"):
			page.OpenGraph[key] = s
		case strings.HasPrefix(key, "html_"):
			page.HTMLAttrs[htmlAttrName(key, "html_")] = s
		case strings.HasPrefix(key, "body_"):
			page.BodyAttrs[htmlAttrName(key, "body_")] = s
		}
	}
}

// htmlAttrName converts a frontmatter key like "html_data_theme" into the
// HTML attribute name "data-theme", per spec.md §4.6: "html_lang -> lang;
// html_data_theme -> data-theme".
func htmlAttrName(key, prefix string) string {
	rest := strings.TrimPrefix(key, prefix)
	return strings.ReplaceAll(rest, "_", "-")
}

func toHeadItem(m map[string]any) HeadItem {
	item := HeadItem{Attrs: map[string]string{}}
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if k == "tag" {
			item.Tag = s
			continue
		}
		item.Attrs[k] = s
	}
	if item.Tag == "" {
		item.Tag = "meta"
	}
	return item
}

func headHTMLLines(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []any:
		var lines []string
		for _, l := range v {
			if s, ok := l.(string); ok {
				lines = append(lines, s)
			}
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

// HeadContribution renders the page's frontmatter-derived head content
// (title, description, author, schema, head_html, head items, Open Graph
// tags) as an HTML fragment suitable for the Head Merger's page tier.
func (p *Page) HeadContribution() string {
	var b strings.Builder
	if p.Title != "" {
		fmt.Fprintf(&b, "<title>%s</title>\n", escape(p.Title))
	}
	if p.Description != "" {
		fmt.Fprintf(&b, `<meta name="description" content="%s">`+"\n", escape(p.Description))
	}
	if p.Author != "" {
		fmt.Fprintf(&b, `<meta name="author" content="%s">`+"\n", escape(p.Author))
	}
	if p.Schema != nil {
		if jsonLD, err := schemaToJSONLD(p.Schema); err == nil {
			fmt.Fprintf(&b, `<script type="application/ld+json">%s</script>`+"\n", jsonLD)
		}
	}

	keys := make([]string, 0, len(p.OpenGraph))
	for k := range p.OpenGraph {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, `<meta property="%s" content="%s">`+"\n", escape(k), escape(p.OpenGraph[k]))
	}

	for _, item := range p.HeadItems {
		b.WriteString(renderHeadItem(item))
		b.WriteString("\n")
	}

	if p.HeadHTML != "" {
		b.WriteString(p.HeadHTML)
		b.WriteString("\n")
	}

	return b.String()
}

func renderHeadItem(item HeadItem) string {
	keys := make([]string, 0, len(item.Attrs))
	for k := range item.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<")
	b.WriteString(item.Tag)
	for _, k := range keys {
		fmt.Fprintf(&b, ` %s="%s"`, k, escape(item.Attrs[k]))
	}
	if item.Tag == "meta" || item.Tag == "link" {
		b.WriteString(" />")
		return b.String()
	}
	b.WriteString("></")
	b.WriteString(item.Tag)
	b.WriteString(">")
	return b.String()
}

func schemaToJSONLD(schema any) (string, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func escape(s string) string {
	r := strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")
	return r.Replace(s)
}
