package legislation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"legisdraft/api/internal/markup"
	"legisdraft/api/internal/telemetry"
)

var tracer = otel.Tracer("legislation")

var (
	ErrInvalidURL          = errors.New("invalid contents url")
	ErrContentsUnavailable = errors.New("contents page unavailable")
)

const defaultWorkers = 6

// Fetcher returns a page body, or present=false when the page could not be
// retrieved for any reason.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, bool)
}

type Document struct {
	Identifier   string             `json:"identifier"`
	Title        string             `json:"title"`
	SourceURL    string             `json:"sourceUrl"`
	TOC          []TocItem          `json:"toc"`
	IntroHTML    *string            `json:"introHtml"`
	SectionsHTML map[string]*string `json:"sectionsHtml"`
	FullHTML     string             `json:"fullHtml"`
}

type Assembler struct {
	fetcher Fetcher
	workers int
}

func NewAssembler(fetcher Fetcher, workers int) *Assembler {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Assembler{fetcher: fetcher, workers: workers}
}

var (
	pageTitle     = markup.MustCompile("h1.pageTitle")
	documentTitle = markup.MustCompile("title")
)

// Assemble builds the document rooted at contentsURL. Only a missing
// contents page fails the call; missing intro or section pages leave nil
// bodies.
func (a *Assembler) Assemble(ctx context.Context, contentsURL string) (doc *Document, err error) {
	ctx, span := tracer.Start(ctx, "Assembler.Assemble")
	defer span.End()
	started := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		telemetry.AssembleDuration.WithLabelValues(result).Observe(time.Since(started).Seconds())
	}()

	source, err := validateContentsURL(contentsURL)
	if err != nil {
		return nil, err
	}
	contentsURL = source.String()

	contents, ok := a.fetcher.Fetch(ctx, contentsURL)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContentsUnavailable, contentsURL)
	}

	root, err := markup.Parse(contents)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentsUnavailable, err)
	}
	toc := parseTOCNode(root, contentsURL)
	items := withoutIntro(toc.Items, toc.IntroLink)
	assignAnchors(items)
	span.SetAttributes(attribute.Int("toc.items", len(items)))
	telemetry.AssembleSections.Observe(float64(len(items)))

	intro, bodies := a.fetchBodies(ctx, toc.IntroLink, items)

	sections := make(map[string]*string, len(items))
	for i, item := range items {
		if isHeadingHref(item.Href) {
			continue
		}
		if existing, seen := sections[item.Href]; !seen || existing == nil {
			sections[item.Href] = bodies[i]
		}
	}

	return &Document{
		Identifier:   identifierFromURL(source),
		Title:        titleOf(root),
		SourceURL:    contentsURL,
		TOC:          items,
		IntroHTML:    intro,
		SectionsHTML: sections,
		FullHTML:     renderFullHTML(intro, items, bodies),
	}, nil
}

// fetchBodies loads the intro and every content-bearing item with at most
// a.workers requests in flight. bodies is indexed like items.
func (a *Assembler) fetchBodies(ctx context.Context, introLink string, items []TocItem) (*string, []*string) {
	bodies := make([]*string, len(items))
	var intro *string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	if introLink != "" {
		g.Go(func() error {
			if page, ok := a.fetcher.Fetch(gctx, introLink); ok {
				intro = extractBody(page, introBodySelectors)
			}
			return nil
		})
	}
	for i, item := range items {
		i, item := i, item
		if isHeadingHref(item.Href) {
			continue
		}
		g.Go(func() error {
			page, ok := a.fetcher.Fetch(gctx, item.Href)
			if !ok {
				return nil
			}
			bodies[i] = extractBody(page, sectionBodySelectors)
			if bodies[i] == nil {
				log.Printf("legislation: no body found in %s", item.Href)
			}
			return nil
		})
	}
	_ = g.Wait()
	return intro, bodies
}

func renderFullHTML(intro *string, items []TocItem, bodies []*string) string {
	var b strings.Builder
	if intro != nil {
		b.WriteString(*intro)
	}
	for i, item := range items {
		level := strconv.Itoa(headingLevel(item.Level))
		b.WriteString("<h" + level + ` id="` + html.EscapeString(item.Anchor) + `">`)
		b.WriteString(html.EscapeString(item.Title))
		b.WriteString("</h" + level + ">")
		if bodies[i] != nil {
			b.WriteString(*bodies[i])
		}
	}
	return b.String()
}

func headingLevel(level int) int {
	return min(max(level+2, 2), 6)
}

func withoutIntro(items []TocItem, introLink string) []TocItem {
	out := make([]TocItem, 0, len(items))
	removed := false
	for _, item := range items {
		if !removed && introLink != "" && item.Href == introLink {
			removed = true
			continue
		}
		out = append(out, item)
	}
	return out
}

func validateContentsURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return parsed, nil
}

func identifierFromURL(u *url.URL) string {
	return documentIDOf(u.Path)
}

// documentIDOf turns /uksi/2024/12/contents into uksi/2024/12.
func documentIDOf(path string) string {
	path = strings.Trim(path, "/")
	if path == "contents" {
		return ""
	}
	return strings.TrimSuffix(path, "/contents")
}

func titleOf(root *html.Node) string {
	if node := markup.First(root, pageTitle); node != nil {
		if title := markup.Text(node); title != "" {
			return title
		}
	}
	return markup.Text(markup.First(root, documentTitle))
}
