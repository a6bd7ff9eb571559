package markup

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector is a compiled CSS selector group.
type Selector struct {
	source string
	match  cascadia.Selector
}

func Compile(source string) (Selector, error) {
	match, err := cascadia.Compile(source)
	if err != nil {
		return Selector{}, fmt.Errorf("compile selector %q: %w", source, err)
	}
	return Selector{source: source, match: match}, nil
}

func MustCompile(source string) Selector {
	sel, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return sel
}

func (s Selector) String() string {
	return s.source
}

// Matches reports whether n is an element satisfying any alternative of
// the selector. Combinators are evaluated against n's real ancestors, not
// only those below the node a search started from.
func (s Selector) Matches(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || s.match == nil {
		return false
	}
	return s.match.Match(n)
}
