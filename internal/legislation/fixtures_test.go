package legislation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const contentsURL = "https://leg.test/uksi/2024/1/contents"

const contentsPage = `<html><head><title>Fallback title</title></head><body>
<h1 class="pageTitle">The Test Regulations 2024</h1>
<div id="viewLegContents"><div class="LegContents LegClearFix"><ol>
  <li><p class="LegContentsItem"><span class="LegContentsNo"><a href="/uksi/2024/1/introduction">Introductory Text</a></span></p></li>
  <li><p class="LegContentsPart"><a href="/uksi/2024/1/part/1">Part 1</a></p>
    <ol>
      <li><p class="LegContentsItem"><span class="LegContentsNo"><a href="/uksi/2024/1/regulation/1/made">1.</a></span><span class="LegContentsTitle"><a href="/uksi/2024/1/regulation/1">Citation and commencement</a></span></p></li>
      <li><p class="LegContentsItem"><span class="LegContentsTitle"><a href="regulation/2">Section 2 – Interpretation</a></span></p></li>
    </ol>
  </li>
  <li><p class="LegContentsTitle">Schedules</p>
    <ol><li><a href="https://leg.test/uksi/2024/1/schedule">The Schedule</a></li></ol>
  </li>
  <li><a href="/uksi/2024/1/contents">Whole contents</a>
    <ol><li><a href="/uksi/2024/1/signature">Signature</a></li></ol>
  </li>
</ol></div></div>
</body></html>`

var pages = map[string]string{
	contentsURL:                                 contentsPage,
	"https://leg.test/uksi/2024/1/introduction": `<div id="viewLegSnippet"><p>Intro text</p></div>`,
	"https://leg.test/uksi/2024/1/part/1":       `<div class="LegPartContainer"><p>Part body</p></div>`,
	"https://leg.test/uksi/2024/1/regulation/1": `<div id="content"><div class="LegP1Container"><p>Reg one</p></div></div>`,
	"https://leg.test/uksi/2024/1/schedule":     `<main><p>Sched</p></main>`,
	"https://leg.test/uksi/2024/1/signature":    `<html><body><div class="nothing"></div></body></html>`,
}

type fakeFetcher struct {
	pages    map[string]string
	delay    time.Duration
	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages, calls: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, bool) {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if current <= peak || f.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	f.mu.Lock()
	f.calls[url]++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", false
		}
	}
	body, ok := f.pages[url]
	return body, ok
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}
