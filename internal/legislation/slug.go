package legislation

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	slugInvalid    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace = regexp.MustCompile(`\s+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// GenerateSlug derives an anchor-safe id from a heading title. It is pure
// and GenerateSlug(GenerateSlug(x)) == GenerateSlug(x).
func GenerateSlug(title string) string {
	slug := strings.ToLower(title)
	slug = slugInvalid.ReplaceAllString(slug, " ")
	slug = strings.TrimSpace(slug)
	slug = slugWhitespace.ReplaceAllString(slug, "-")
	return slugHyphens.ReplaceAllString(slug, "-")
}

// assignAnchors fills Anchor on each item. Repeated slugs get -2, -3, ...
// in TOC order so every heading id in a document is unique.
func assignAnchors(items []TocItem) {
	seen := make(map[string]int, len(items))
	for i := range items {
		base := GenerateSlug(items[i].Title)
		if base == "" {
			base = "section-" + strconv.Itoa(i+1)
		}
		anchor := base
		for seen[anchor] > 0 {
			seen[base]++
			anchor = base + "-" + strconv.Itoa(seen[base])
		}
		seen[anchor]++
		items[i].Anchor = anchor
	}
}
