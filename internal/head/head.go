// Package head implements the Head Merger (spec.md §4.5): it parses, merges,
// and deduplicates <head> HTML fragments contributed by a layout chain and
// a page, in layout -> fragment -> page order.
package head

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwdslsh/unify/internal/domutil"
)

// Tier names the origin of a head fragment, used only to preserve processing
// order; the merge algorithm itself is order-sensitive, not tier-aware.
type Tier string

const (
	TierLayout   Tier = "layout"
	TierFragment Tier = "fragment"
	TierPage     Tier = "page"
)

// recognizedTags are the tag names spec.md §3 defines Head Element over.
// Anything else encountered in a head fragment is passed through unchanged,
// never deduplicated.
var recognizedTags = map[string]bool{
	"title": true, "meta": true, "link": true,
	"script": true, "style": true, "base": true,
}

// lastWinsTags get their dedup-key collisions resolved in favor of the later
// tier (the page overrides the layout). Everything else with a dedup key
// resolves in favor of the earlier tier (first wins), per spec.md §4.5.
var lastWinsTags = map[string]bool{"title": true, "meta": true, "base": true}

// Fragment is one tier's raw <head>...</head> contents (or a bare sequence
// of head-eligible elements without an enclosing <head> tag; both are
// accepted).
type Fragment struct {
	Tier Tier
	HTML string
}

// Element is a single parsed head element.
type Element struct {
	Tag            string
	Attrs          map[string]string
	Text           string
	Raw            string
	Tier           Tier
	AllowDuplicate bool
	DedupKey       string
	HasDedupKey    bool
}

// ExtractHead parses htmlFragment and returns its head-eligible elements,
// tagged with tier. Non-head-element nodes (stray text, unrelated tags) are
// preserved as opaque pass-through elements so nothing from the source is
// silently dropped.
func ExtractHead(htmlFragment string, tier Tier) ([]Element, error) {
	sel, err := domutil.ParseFragment(stripHeadTag(htmlFragment))
	if err != nil {
		return nil, fmt.Errorf("parsing head fragment: %w", err)
	}
	domutil.StripComments(sel)

	var elements []Element
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		if goquery.NodeName(node) == "#text" {
			if strings.TrimSpace(node.Text()) == "" {
				return
			}
		}
		elements = append(elements, buildElement(node, tier))
	})
	return elements, nil
}

// stripHeadTag removes an enclosing <head>/</head> pair if present, since
// fragments are parsed in a body context and a literal <head> tag there
// would otherwise be dropped by the HTML parser's insertion-mode rules.
func stripHeadTag(s string) string {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<head") && strings.HasSuffix(lower, "</head>") {
		open := strings.Index(trimmed, ">")
		closeIdx := strings.LastIndex(trimmed, "<")
		if open != -1 && closeIdx != -1 && closeIdx > open {
			return trimmed[open+1 : closeIdx]
		}
	}
	return s
}

func buildElement(sel *goquery.Selection, tier Tier) Element {
	tag := goquery.NodeName(sel)
	if tag == "#text" {
		return Element{Tag: "#text", Text: sel.Text(), Raw: sel.Text(), Tier: tier}
	}

	attrs := map[string]string{}
	for _, a := range domutil.Attrs(sel) {
		attrs[a.Key] = a.Val
	}
	raw, _ := domutil.OuterHTML(sel)

	el := Element{
		Tag:   tag,
		Attrs: attrs,
		Text:  sel.Text(),
		Raw:   raw,
		Tier:  tier,
	}
	if _, ok := attrs["data-allow-duplicate"]; ok {
		el.AllowDuplicate = true
	}
	if recognizedTags[tag] {
		el.DedupKey, el.HasDedupKey = dedupKey(tag, attrs)
	}
	return el
}

// dedupKey computes the Head Merger's deduplication key for a recognized
// tag, per spec.md §4.5.
func dedupKey(tag string, attrs map[string]string) (string, bool) {
	switch tag {
	case "title", "base":
		return tag, true
	case "meta":
		if v, ok := attrs["charset"]; ok {
			return "charset:" + v, true
		}
		if v, ok := attrs["name"]; ok {
			return "name:" + v, true
		}
		if v, ok := attrs["property"]; ok {
			return "property:" + v, true
		}
		if v, ok := attrs["http-equiv"]; ok {
			return "http-equiv:" + v, true
		}
		return "", false
	case "link":
		rel := attrs["rel"]
		if rel == "canonical" || rel == "icon" {
			return "rel:" + rel, true
		}
		return "link:" + rel + ":" + attrs["href"], true
	case "script":
		if v, ok := attrs["src"]; ok {
			return "src:" + v, true
		}
		return "", false
	case "style":
		if v, ok := attrs["href"]; ok {
			return "href:" + v, true
		}
		return "", false
	}
	return "", false
}

// MergeHeads merges ordered head fragments into a single head body, per
// spec.md §4.5's dedup-key and override-policy rules. The fragments must
// already be in layout -> fragment(s) -> page order.
func MergeHeads(fragments []Fragment) (string, error) {
	var all []Element
	for _, f := range fragments {
		els, err := ExtractHead(f.HTML, f.Tier)
		if err != nil {
			return "", err
		}
		all = append(all, els...)
	}

	var output []Element
	keyIndex := make(map[string]int)

	for _, el := range all {
		if el.AllowDuplicate || !el.HasDedupKey {
			output = append(output, el)
			continue
		}
		if idx, exists := keyIndex[el.DedupKey]; exists {
			if lastWinsTags[el.Tag] {
				output[idx] = el
			}
			continue
		}
		keyIndex[el.DedupKey] = len(output)
		output = append(output, el)
	}

	return renderElements(output), nil
}

func renderElements(elements []Element) string {
	var b strings.Builder
	for i, el := range elements {
		if i > 0 {
			b.WriteString("\n")
		}
		if el.Tag == "#text" {
			b.WriteString(el.Text)
			continue
		}
		if el.Raw != "" {
			b.WriteString(el.Raw)
			continue
		}
		b.WriteString(reconstruct(el))
	}
	return b.String()
}

// reconstruct rebuilds an element's tag text from captured attributes when
// no original source text is available: the dedup-key attribute first, then
// remaining attributes alphabetically, per spec.md §4.5 emission rule.
func reconstruct(el Element) string {
	primary, rest := splitPrimaryAttr(el)
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(el.Tag)
	if primary != "" {
		b.WriteString(" ")
		b.WriteString(primary)
		b.WriteString(`="`)
		b.WriteString(el.Attrs[primary])
		b.WriteString(`"`)
	}
	for _, k := range rest {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(el.Attrs[k])
		b.WriteString(`"`)
	}
	if el.Tag == "meta" || el.Tag == "link" || el.Tag == "base" {
		b.WriteString(" />")
		return b.String()
	}
	b.WriteString(">")
	b.WriteString(el.Text)
	b.WriteString("</")
	b.WriteString(el.Tag)
	b.WriteString(">")
	return b.String()
}

func splitPrimaryAttr(el Element) (string, []string) {
	primaryCandidates := map[string][]string{
		"meta":   {"charset", "name", "property", "http-equiv"},
		"link":   {"rel"},
		"script": {"src"},
		"style":  {"href"},
	}
	var primary string
	for _, k := range primaryCandidates[el.Tag] {
		if _, ok := el.Attrs[k]; ok {
			primary = k
			break
		}
	}
	var rest []string
	for k := range el.Attrs {
		if k == primary {
			continue
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return primary, rest
}

// InjectHead rewrites document's <head> contents to headHTML, creating a
// <head> element if none exists.
func InjectHead(documentHTML, headHTML string) (string, error) {
	doc, err := domutil.ParseDocument(documentHTML)
	if err != nil {
		return "", fmt.Errorf("parsing document for head injection: %w", err)
	}
	headSel := doc.Find("head").First()
	if headSel.Length() == 0 {
		doc.Find("html").PrependHtml("<head></head>")
		headSel = doc.Find("head").First()
	}
	headSel.SetHtml(headHTML)
	return domutil.RenderDocument(doc)
}
