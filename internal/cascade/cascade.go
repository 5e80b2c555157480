// Package cascade implements the Cascade Composer (spec.md §4.6): it folds
// a page into its layout chain by area matching, landmark matching, or
// ordered fill, merging attributes and delegating head assembly to the
// head package at every step.
package cascade

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/fwdslsh/unify/internal/domutil"
	"github.com/fwdslsh/unify/internal/head"
	"github.com/fwdslsh/unify/internal/security"
)

// landmarkTags are the fallback alignment elements, per spec.md §3.
var landmarkTags = []string{"header", "nav", "main", "aside", "footer"}

// Input is a page's contribution to composition, already normalized by the
// caller (the build orchestrator): BodyHTML is the page's own content
// (never a full <html>/<body> document), HeadHTML is whatever head
// elements the page declares or a Markdown page's frontmatter contributes,
// and HTMLAttrs/BodyAttrs are the frontmatter-derived html_*/body_*
// attributes (spec.md §4.6), empty for ordinary HTML pages.
type Input struct {
	BodyHTML  string
	HeadHTML  string
	HTMLAttrs map[string]string
	BodyAttrs map[string]string
}

// Result is what Compose returns for a single page.
type Result struct {
	HTML     string
	Errors   []error
	Warnings []security.Warning
}

// Compose folds in.BodyHTML into layoutsHTML, an ordered innermost-to-
// outermost list of raw layout file contents (spec.md §5 "bottom-up"
// composition order). scanner is invoked once against the final output.
// If layoutsHTML is empty, the page's own content is emitted unchanged.
func Compose(in Input, layoutsHTML []string, scanner security.Scanner) Result {
	if scanner == nil {
		scanner = security.NoopScanner{}
	}
	if len(layoutsHTML) == 0 {
		return Result{HTML: in.BodyHTML, Warnings: scanner.Scan(in.BodyHTML)}
	}

	var errs []error
	currentBody := in.BodyHTML
	currentHead := in.HeadHTML
	var lastGood string

	for _, layoutHTML := range layoutsHTML {
		layoutDoc, err := domutil.ParseDocument(layoutHTML)
		if err != nil {
			errs = append(errs, fmt.Errorf("parsing layout: %w", err))
			continue
		}
		layoutBody := layoutDoc.Find("body").First()
		if layoutBody.Length() == 0 {
			errs = append(errs, fmt.Errorf("layout has no body element"))
			continue
		}

		pageFrag, err := domutil.ParseFragment(currentBody)
		if err != nil {
			errs = append(errs, fmt.Errorf("parsing page content: %w", err))
			continue
		}

		applyScheme(layoutBody, pageFrag)
		mergeAttrsInto(layoutDoc.Find("html").First(), in.HTMLAttrs)
		mergeAttrsInto(layoutBody, in.BodyAttrs)

		layoutHeadInner, _ := domutil.InnerHTML(layoutDoc.Find("head").First())
		mergedHead, mhErr := head.MergeHeads([]head.Fragment{
			{Tier: head.TierLayout, HTML: layoutHeadInner},
			{Tier: head.TierPage, HTML: currentHead},
		})
		if mhErr != nil {
			errs = append(errs, mhErr)
			mergedHead = currentHead
		}

		cleanupDoc(layoutDoc)

		rendered, err := domutil.RenderDocument(layoutDoc)
		if err != nil {
			errs = append(errs, fmt.Errorf("rendering composed layout: %w", err))
			continue
		}
		rendered, err = head.InjectHead(rendered, mergedHead)
		if err != nil {
			errs = append(errs, fmt.Errorf("injecting merged head: %w", err))
			continue
		}

		composedDoc, err := domutil.ParseDocument(rendered)
		if err != nil {
			errs = append(errs, fmt.Errorf("reparsing composed document: %w", err))
			continue
		}

		lastGood = rendered
		currentHead = mergedHead
		currentBody, _ = domutil.InnerHTML(composedDoc.Find("body").First())
	}

	if lastGood == "" {
		// Every layout in the chain failed: spec.md §4.6 "missing layout
		// file -> recoverable error, emit raw page".
		return Result{HTML: in.BodyHTML, Errors: errs, Warnings: scanner.Scan(in.BodyHTML)}
	}

	return Result{HTML: lastGood, Errors: errs, Warnings: scanner.Scan(lastGood)}
}

// applyScheme picks and applies one of the three alignment schemes, per
// spec.md §4.6, attempted in order: area matching, then landmark matching,
// then ordered fill.
func applyScheme(layoutBody, pageFrag *goquery.Selection) {
	areas := collectAreas(pageFrag)
	if len(areas) > 0 {
		applyAreaScheme(layoutBody, areas)
		return
	}

	landmarks, loose := collectLandmarks(pageFrag)
	if len(landmarks) > 0 {
		applyLandmarkScheme(layoutBody, landmarks, loose)
		return
	}

	applyOrderedFill(layoutBody, pageFrag)
}

// collectAreas finds every descendant of pageFrag carrying a unify-* class
// token, keyed by that token (first occurrence wins).
func collectAreas(pageFrag *goquery.Selection) map[string]*goquery.Selection {
	result := map[string]*goquery.Selection{}
	pageFrag.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		classAttr, _ := s.Attr("class")
		token, ok := domutil.AreaToken(classAttr)
		if !ok {
			return
		}
		if _, exists := result[token]; !exists {
			result[token] = s
		}
	})
	return result
}

func applyAreaScheme(layoutBody *goquery.Selection, areas map[string]*goquery.Selection) {
	layoutBody.Find("[class]").Each(func(_ int, layoutEl *goquery.Selection) {
		classAttr, _ := layoutEl.Attr("class")
		token, ok := domutil.AreaToken(classAttr)
		if !ok {
			return
		}
		pageEl, found := areas[token]
		if !found {
			// Layout areas not matched in the page retain their default
			// content, per spec.md §4.6.
			return
		}
		fillElement(layoutEl, pageEl)
	})
}

// collectLandmarks partitions pageFrag's top-level children into landmark
// elements (keyed by tag, first occurrence wins) and "loose" nodes that
// belong to no landmark.
func collectLandmarks(pageFrag *goquery.Selection) (map[string]*goquery.Selection, []*html.Node) {
	landmarks := map[string]*goquery.Selection{}
	var loose []*html.Node

	pageFrag.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		if name == "#text" && strings.TrimSpace(c.Text()) == "" {
			return
		}
		if isLandmarkTag(name) {
			if _, exists := landmarks[name]; !exists {
				landmarks[name] = c
			}
			return
		}
		loose = append(loose, c.Nodes...)
	})

	return landmarks, loose
}

func isLandmarkTag(name string) bool {
	for _, t := range landmarkTags {
		if t == name {
			return true
		}
	}
	return false
}

// applyLandmarkScheme inserts each matched landmark's content into the
// layout's corresponding landmark element. Loose content with no landmark
// of its own is wrapped in a synthetic <main>, per spec.md §4.6 "content
// not inside any landmark is wrapped in <main> before placement" -- unless
// the page already supplies an explicit <main>, in which case the loose
// content is appended inside it, after its existing children, rather than
// discarded.
func applyLandmarkScheme(layoutBody *goquery.Selection, landmarks map[string]*goquery.Selection, loose []*html.Node) {
	if len(loose) > 0 {
		if existingMain, ok := landmarks["main"]; ok {
			for _, n := range loose {
				detach(n)
				existingMain.Nodes[0].AppendChild(n)
			}
		} else {
			wrapper := &html.Node{Type: html.ElementNode, Data: "main", DataAtom: atom.Main}
			for _, n := range loose {
				detach(n)
				wrapper.AppendChild(n)
			}
			landmarks["main"] = goquery.NewDocumentFromNode(wrapper).Selection
		}
	}

	for tag, pageEl := range landmarks {
		layoutEl := layoutBody.Find(tag).First()
		if layoutEl.Length() == 0 {
			continue
		}
		fillElement(layoutEl, pageEl)
	}
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// applyOrderedFill replaces the layout's first <main> element's inner
// content with the entire page fragment, or appends to <body> if no <main>
// exists, per spec.md §4.6 Scheme 3.
func applyOrderedFill(layoutBody, pageFrag *goquery.Selection) {
	innerHTML, _ := domutil.InnerHTML(pageFrag)
	mainSel := layoutBody.Find("main").First()
	if mainSel.Length() > 0 {
		mainSel.SetHtml(innerHTML)
		return
	}
	existing, _ := layoutBody.Html()
	layoutBody.SetHtml(existing + innerHTML)
}

// fillElement replaces layoutEl's inner content with pageEl's inner content
// and merges their attributes, per spec.md §4.6's per-pair attribute merge
// rule.
func fillElement(layoutEl, pageEl *goquery.Selection) {
	innerHTML, _ := domutil.InnerHTML(pageEl)
	layoutEl.SetHtml(innerHTML)

	layoutClass, _ := layoutEl.Attr("class")
	pageClass, _ := pageEl.Attr("class")
	layoutEl.SetAttr("class", domutil.MergeClassAttrs(layoutClass, pageClass))

	for _, a := range domutil.Attrs(pageEl) {
		if a.Key == "class" {
			continue
		}
		layoutEl.SetAttr(a.Key, a.Val)
	}
}

// mergeAttrsInto applies attrs onto sel: class tokens are unioned, every
// other attribute overrides by name, per spec.md §4.6.
func mergeAttrsInto(sel *goquery.Selection, attrs map[string]string) {
	if sel.Length() == 0 || len(attrs) == 0 {
		return
	}
	if classVal, ok := attrs["class"]; ok {
		existing, _ := sel.Attr("class")
		sel.SetAttr("class", domutil.MergeClassAttrs(existing, classVal))
	}
	for k, v := range attrs {
		if k == "class" {
			continue
		}
		sel.SetAttr(k, v)
	}
}

// cleanupDoc strips data-unify and data-layer attributes and any
// <style data-unify-docs> blocks from doc, per spec.md §4.6 "special-cased
// removal" and "style blocks".
func cleanupDoc(doc *goquery.Document) {
	doc.Find("[data-unify]").Each(func(_ int, s *goquery.Selection) { s.RemoveAttr("data-unify") })
	doc.Find("[data-layer]").Each(func(_ int, s *goquery.Selection) { s.RemoveAttr("data-layer") })
	doc.Find("style[data-unify-docs]").Remove()
}
