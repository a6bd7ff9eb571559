package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const fixture = `<html><body>
<div id="viewLegContents">
  <div class="LegContents LegClearFix">
    <ol>
      <li><p class="LegContentsItem"><span class="LegContentsTitle"><a href="/a">Alpha  title</a></span></p>
        <ol><li><a href="/b">Beta</a></li></ol>
      </li>
    </ol>
  </div>
</div>
<div class="LegContents"><ul><li>x</li></ul></div>
</body></html>`

func TestCompileRejectsMalformed(t *testing.T) {
	for _, source := range []string{"", "div >", "> div", "div > > p", "p.", "#"} {
		_, err := Compile(source)
		assert.Error(t, err, source)
	}
}

func TestSelectorCombinators(t *testing.T) {
	doc, err := Parse(fixture)
	require.NoError(t, err)

	container := First(doc, MustCompile("#viewLegContents .LegContents.LegClearFix > ol"))
	require.NotNil(t, container)
	assert.Equal(t, "ol", container.Data)

	// child combinator must not match a grandchild list
	assert.Nil(t, First(doc, MustCompile("#viewLegContents > ol")))

	links := All(doc, MustCompile("span.LegContentsTitle a, li > a"))
	require.Len(t, links, 2)
	assert.Equal(t, "/a", Attr(links[0], "href"))
	assert.Equal(t, "/b", Attr(links[1], "href"))
}

func TestFirstPrunedSkipsSubtrees(t *testing.T) {
	doc, err := Parse(fixture)
	require.NoError(t, err)

	item := First(doc, MustCompile("li"))
	require.NotNil(t, item)

	nested := func(n *html.Node) bool { return IsTag(n, "ol", "ul") }
	link := FirstPruned(item, MustCompile("a"), nested)
	require.NotNil(t, link)
	assert.Equal(t, "/a", Attr(link, "href"))

	second := Children(item, "ol")
	require.Len(t, second, 1)
	assert.Nil(t, FirstPruned(item, MustCompile("li"), nested))
}

func TestTextAndHTML(t *testing.T) {
	doc, err := Parse(`<div id="x"><p>One <b>two</b>
	three</p></div>`)
	require.NoError(t, err)

	div := First(doc, MustCompile("#x"))
	require.NotNil(t, div)
	assert.Equal(t, "One two three", Text(div))
	assert.Equal(t, "<p>One <b>two</b>\n\tthree</p>", InnerHTML(div))
	assert.Equal(t, `<div id="x"><p>One <b>two</b>`+"\n\tthree</p></div>", OuterHTML(div))
	assert.True(t, IsTag(div, "span", "div"))
	assert.Len(t, Children(div), 1)
}

func TestSelectorAttributeAndAncestorScope(t *testing.T) {
	doc, err := Parse(fixture)
	require.NoError(t, err)

	link := First(doc, MustCompile(`a[href$="/b"]`))
	require.NotNil(t, link)
	assert.Equal(t, "Beta", Text(link))

	// the descendant combinator is anchored on real ancestors, so searching
	// from inside the container still matches
	inner := First(doc, MustCompile("ol ol"))
	require.NotNil(t, inner)
	assert.NotNil(t, First(inner, MustCompile("#viewLegContents li")))

	// the search root itself is never returned
	item := First(doc, MustCompile("li"))
	assert.NotSame(t, item, First(item, MustCompile("li")))
	assert.Equal(t, "#viewLegContents li", MustCompile("#viewLegContents li").String())
}
