// Package extract locates values in a registry lookup page by structural
// position: the value cell next to a row label, or an element tagged with
// a schema.org itemprop attribute. Lookups are first-match in document
// order and never fail; a missing node is reported as absent.
package extract

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed page. The zero value is an empty document.
type Document struct {
	root *html.Node
}

// Parse builds a Document from markup. The parser tolerates malformed
// input; if it still fails the result is an empty Document.
func Parse(r io.Reader) *Document {
	root, err := html.Parse(r)
	if err != nil {
		return &Document{}
	}
	return &Document{root: root}
}

// ParseBytes is Parse over an in-memory page.
func ParseBytes(b []byte) *Document {
	return Parse(bytes.NewReader(b))
}

// Text returns the trimmed text content of the first node matching loc.
func (d *Document) Text(loc Locator) (string, bool) {
	n := d.find(loc)
	if n == nil {
		return "", false
	}
	return strings.TrimSpace(textContent(n)), true
}

// LinkText returns the trimmed text of the first link inside the node
// matching loc.
func (d *Document) LinkText(loc Locator) (string, bool) {
	a := firstLink(d.find(loc))
	if a == nil {
		return "", false
	}
	return strings.TrimSpace(textContent(a)), true
}

// LinkTarget returns the href of the first link inside the node matching
// loc.
func (d *Document) LinkTarget(loc Locator) (string, bool) {
	a := firstLink(d.find(loc))
	if a == nil {
		return "", false
	}
	href, ok := attr(a, "href")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(href), true
}

func (d *Document) find(loc Locator) *html.Node {
	if d == nil || d.root == nil {
		return nil
	}
	switch loc.kind {
	case kindItemProp:
		return findFirst(d.root, func(n *html.Node) bool {
			v, ok := attr(n, "itemprop")
			return ok && v == loc.key
		})
	case kindLabelCell:
		var cell *html.Node
		findFirst(d.root, func(n *html.Node) bool {
			if n.DataAtom != atom.Tr || !rowLabelContains(n, loc.key) {
				return false
			}
			cell = firstChildElement(n, atom.Td)
			return cell != nil
		})
		return cell
	}
	return nil
}

// findFirst walks the tree in document order and returns the first element
// for which match holds.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func rowLabelContains(tr *html.Node, label string) bool {
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Th &&
			strings.Contains(textContent(c), label) {
			return true
		}
	}
	return false
}

func firstChildElement(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

func firstLink(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	return findFirst(n, func(n *html.Node) bool { return n.DataAtom == atom.A })
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// textContent concatenates every text node below n, skipping scripts and
// styles. Entities are already decoded by the parser.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
