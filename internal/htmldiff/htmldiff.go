// Package htmldiff renders an insert/delete diff between two HTML
// snapshots. Markup is diffed as whole tokens so tags are never split.
package htmldiff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	insOpen  = `<ins class="diffins">`
	insClose = `</ins>`
	delOpen  = `<del class="diffdel">`
	delClose = `</del>`
)

// tokenBase is the rune assigned to the first distinct token.
const tokenBase = 0x10000

// Diff marks text inserted in newHTML with <ins class="diffins"> and text
// removed from oldHTML with <del class="diffdel">. Inserted tags are kept
// and deleted tags dropped, so the result renders with the new structure.
func Diff(oldHTML, newHTML string) string {
	if oldHTML == newHTML {
		return newHTML
	}

	oldTokens := tokenize(oldHTML)
	newTokens := tokenize(newHTML)

	enc := &encoder{index: make(map[string]rune)}
	oldRunes := enc.encode(oldTokens)
	newRunes := enc.encode(newTokens)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMainRunes(oldRunes, newRunes, false)

	var out strings.Builder
	for _, d := range diffs {
		tokens := enc.decode(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			for _, tok := range tokens {
				out.WriteString(tok)
			}
		case diffmatchpatch.DiffInsert:
			writeMarked(&out, tokens, insOpen, insClose, true)
		case diffmatchpatch.DiffDelete:
			writeMarked(&out, tokens, delOpen, delClose, false)
		}
	}
	return out.String()
}

// writeMarked wraps each run of text tokens in open/close. Tags break the
// run and are written through only when keepTags is set.
func writeMarked(out *strings.Builder, tokens []string, open, close string, keepTags bool) {
	inRun := false
	for _, tok := range tokens {
		if isTag(tok) {
			if inRun {
				out.WriteString(close)
				inRun = false
			}
			if keepTags {
				out.WriteString(tok)
			}
			continue
		}
		if !inRun {
			out.WriteString(open)
			inRun = true
		}
		out.WriteString(tok)
	}
	if inRun {
		out.WriteString(close)
	}
}

type encoder struct {
	index  map[string]rune
	tokens []string
}

func (e *encoder) encode(tokens []string) []rune {
	out := make([]rune, len(tokens))
	for i, tok := range tokens {
		r, ok := e.index[tok]
		if !ok {
			r = rune(tokenBase + len(e.tokens))
			e.index[tok] = r
			e.tokens = append(e.tokens, tok)
		}
		out[i] = r
	}
	return out
}

func (e *encoder) decode(text string) []string {
	var out []string
	for _, r := range text {
		out = append(out, e.tokens[int(r)-tokenBase])
	}
	return out
}
