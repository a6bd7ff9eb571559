// Package markup wraps golang.org/x/net/html with the small set of tree
// queries the legislation parsers need.
package markup

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

func Parse(source string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// First returns the first descendant of root, in document order, that
// matches sel.
func First(root *html.Node, sel Selector) *html.Node {
	return FirstPruned(root, sel, nil)
}

// FirstPruned is First but never descends into nodes for which prune
// returns true.
func FirstPruned(root *html.Node, sel Selector, prune func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(root, prune, func(n *html.Node) bool {
		if sel.Matches(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

func All(root *html.Node, sel Selector) []*html.Node {
	var out []*html.Node
	walk(root, nil, func(n *html.Node) bool {
		if sel.Matches(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// walk visits the descendants of root depth first. visit returning false
// stops the walk.
func walk(root *html.Node, prune func(*html.Node) bool, visit func(*html.Node) bool) bool {
	if root == nil {
		return true
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if !visit(c) {
			return false
		}
		if prune != nil && prune(c) {
			continue
		}
		if !walk(c, prune, visit) {
			return false
		}
	}
	return true
}

// Children returns the element children of n whose tag is one of tags, or
// every element child when tags is empty.
func Children(n *html.Node, tags ...string) []*html.Node {
	if n == nil {
		return nil
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if len(tags) == 0 || IsTag(c, tags...) {
			out = append(out, c)
		}
	}
	return out
}

func IsTag(n *html.Node, tags ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, tag := range tags {
		if n.Data == tag {
			return true
		}
	}
	return false
}

func Attr(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

func HasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(Attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

// Text returns the text content of n with whitespace runs collapsed.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func InnerHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

func OuterHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}
