// Package domutil wraps goquery/golang.org/x/net/html with the handful of
// DOM parsing, attribute, and serialization helpers shared by the layout
// resolver, head merger, and cascade composer. It exists so none of those
// packages need to reimplement tolerant HTML parsing by hand (spec.md §9:
// "substitute a real HTML parser for parse-side operations").
package domutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseDocument parses a complete HTML document (the final composed page,
// or a standalone page before composition) into a *goquery.Document.
func ParseDocument(htmlStr string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil, fmt.Errorf("parsing html document: %w", err)
	}
	return doc, nil
}

// ParseFragment parses an HTML fragment (a layout body, an include's
// contents, a head block) in the context of a <body> element and returns a
// Selection over a synthetic wrapper node whose children are the parsed
// fragment nodes. Use Selection.Contents() or Selection.Children() to reach
// them, or Find to search within.
func ParseFragment(htmlStr string) (*goquery.Selection, error) {
	wrapper := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(htmlStr), wrapper)
	if err != nil {
		return nil, fmt.Errorf("parsing html fragment: %w", err)
	}
	for _, n := range nodes {
		wrapper.AppendChild(n)
	}
	doc := goquery.NewDocumentFromNode(wrapper)
	return doc.Selection, nil
}

// OuterHTML renders sel's first node including its own tag.
func OuterHTML(sel *goquery.Selection) (string, error) {
	s, err := goquery.OuterHtml(sel)
	if err != nil {
		return "", fmt.Errorf("rendering outer html: %w", err)
	}
	return s, nil
}

// InnerHTML renders the contents of sel's first node, without its own tag.
func InnerHTML(sel *goquery.Selection) (string, error) {
	s, err := sel.Html()
	if err != nil {
		return "", fmt.Errorf("rendering inner html: %w", err)
	}
	return s, nil
}

// RenderDocument serializes a full parsed document back to HTML text.
func RenderDocument(doc *goquery.Document) (string, error) {
	return OuterHTML(doc.Selection)
}

// DataUnify returns the value of a data-unify attribute declared on the
// document's <html> element, falling back to <body>, per spec.md §4.3: "A
// page may override discovery via ... a data-unify="<spec>" attribute on the
// page's <html> or <body> element."
func DataUnify(doc *goquery.Document) (string, bool) {
	if v, ok := doc.Find("html").First().Attr("data-unify"); ok {
		return v, true
	}
	if v, ok := doc.Find("body").First().Attr("data-unify"); ok {
		return v, true
	}
	return "", false
}

// ClassTokens splits a class attribute value into its whitespace-separated
// tokens.
func ClassTokens(classAttr string) []string {
	return strings.Fields(classAttr)
}

// AreaToken returns the first class token beginning with "unify-" found in
// classAttr, per spec.md §3 "Area: a DOM node whose class attribute contains
// a token beginning with unify-".
func AreaToken(classAttr string) (string, bool) {
	for _, tok := range ClassTokens(classAttr) {
		if strings.HasPrefix(tok, "unify-") {
			return tok, true
		}
	}
	return "", false
}

// MergeClassAttrs unions layout and page class tokens, page tokens appended
// after layout tokens, duplicates removed while preserving first occurrence
// (spec.md §4.6 attribute merge rule for class).
func MergeClassAttrs(layoutClass, pageClass string) string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range ClassTokens(layoutClass) {
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	for _, tok := range ClassTokens(pageClass) {
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return strings.Join(out, " ")
}

// Attrs returns sel's first node attributes as an ordered map-like slice of
// name/value pairs, sorted alphabetically by name. Useful for stable
// reconstruction of an element's attribute list.
func Attrs(sel *goquery.Selection) []html.Attribute {
	if len(sel.Nodes) == 0 {
		return nil
	}
	attrs := make([]html.Attribute, len(sel.Nodes[0].Attr))
	copy(attrs, sel.Nodes[0].Attr)
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Key < attrs[j].Key })
	return attrs
}

// StripComments removes HTML comment nodes from within sel's subtree.
func StripComments(sel *goquery.Selection) {
	var strip func(*html.Node)
	strip = func(n *html.Node) {
		var next *html.Node
		for c := n.FirstChild; c != nil; c = next {
			next = c.NextSibling
			if c.Type == html.CommentNode {
				n.RemoveChild(c)
				continue
			}
			strip(c)
		}
	}
	for _, n := range sel.Nodes {
		strip(n)
	}
}
