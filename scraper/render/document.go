package render

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DocumentPage is a Page over a static markup snapshot.
type DocumentPage struct {
	url    string
	markup string
	doc    *goquery.Document
}

// NewDocumentPage parses markup into a queryable page.
func NewDocumentPage(url, markup string) (*DocumentPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	return &DocumentPage{url: url, markup: markup, doc: doc}, nil
}

// URL returns the address the snapshot was taken from.
func (p *DocumentPage) URL() string { return p.url }

func (p *DocumentPage) QuerySelector(selector string) (Element, bool) {
	sel, ok := find(p.doc.Selection, selector)
	if !ok || sel.Length() == 0 {
		return nil, false
	}
	return &element{sel: sel.First()}, true
}

func (p *DocumentPage) QuerySelectorAll(selector string) []Element {
	sel, ok := find(p.doc.Selection, selector)
	if !ok {
		return nil
	}
	return wrap(sel)
}

func (p *DocumentPage) Text() string {
	body := p.doc.Find("body")
	return innerText(body)
}

func (p *DocumentPage) RawMarkup() string { return p.markup }

func (p *DocumentPage) Close() error { return nil }

type element struct {
	sel *goquery.Selection
}

func (e *element) Text() string {
	return innerText(e.sel)
}

func (e *element) Attribute(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *element) QuerySelectorAll(selector string) []Element {
	sel, ok := find(e.sel, selector)
	if !ok {
		return nil
	}
	return wrap(sel)
}

// find compiles the selector without panicking on bad input; an invalid
// selector simply matches nothing.
func find(root *goquery.Selection, selector string) (sel *goquery.Selection, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			sel, ok = nil, false
		}
	}()
	return root.Find(selector), true
}

func wrap(sel *goquery.Selection) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{sel: s})
	})
	return out
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "section": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

var hiddenTags = map[string]bool{"script": true, "style": true, "noscript": true, "template": true}

// innerText approximates the browser's innerText: hidden elements are
// skipped and block elements end up on their own lines.
func innerText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if hiddenTags[n.Data] {
				return
			}
		}
		block := n.Type == html.ElementNode && blockTags[n.Data]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Trim(b.String(), "\n")
}
