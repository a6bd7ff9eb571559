// Package fetch retrieves upstream pages for the legislation assembler.
// Failures are soft: callers receive present=false and decide what a
// missing page means for them.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/patrickmn/go-cache"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"legisdraft/api/internal/telemetry"
)

var tracer = otel.Tracer("fetch")

// maxBodyBytes caps a single upstream page.
const maxBodyBytes = 32 << 20

// SharedCache is a cache visible to every API replica.
type SharedCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type Options struct {
	Timeout   time.Duration
	CacheTTL  time.Duration
	Retries   int
	RPS       float64
	Burst     int
	UserAgent string
	Shared    SharedCache
	// HTTPClient replaces the transport-level client, mainly for tests.
	HTTPClient *http.Client
}

type Fetcher struct {
	client  *retryablehttp.Client
	local   *cache.Cache
	shared  SharedCache
	ttl     time.Duration
	limiter *rate.Limiter
	group   singleflight.Group
	// loadTimeout bounds one shared load, retries included. Loads do not
	// inherit cancellation from any single caller.
	loadTimeout time.Duration
	userAgent   string
	now         func() time.Time
}

func New(opts Options) *Fetcher {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}

	client := retryablehttp.NewClient()
	if opts.HTTPClient != nil {
		client.HTTPClient = opts.HTTPClient
	}
	client.HTTPClient.Timeout = opts.Timeout
	client.RetryMax = opts.Retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	return &Fetcher{
		client:      client,
		local:       cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		shared:      opts.Shared,
		ttl:         opts.CacheTTL,
		limiter:     limiter,
		loadTimeout: time.Duration(opts.Retries+1)*(opts.Timeout+client.RetryWaitMax) + opts.Timeout,
		userAgent:   opts.UserAgent,
		now:         time.Now,
	}
}

// Fetch returns the body of url. Only successful responses are cached;
// concurrent calls for the same url share one network request. Each caller
// waits under its own ctx, and a caller giving up does not cancel the
// shared request for the others.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, bool) {
	if body, ok := f.local.Get(url); ok {
		telemetry.FetchOutcomes.WithLabelValues("hit_local").Inc()
		return body.(string), true
	}

	detached := context.WithoutCancel(ctx)
	results := f.group.DoChan(url, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(detached, f.loadTimeout)
		defer cancel()
		return f.load(loadCtx, url), nil
	})

	select {
	case <-ctx.Done():
		telemetry.FetchOutcomes.WithLabelValues("abandoned").Inc()
		log.Printf("fetch: %s: caller gave up: %v", url, ctx.Err())
		return "", false
	case res := <-results:
		body, _ := res.Val.(*string)
		if body == nil {
			return "", false
		}
		return *body, true
	}
}

func (f *Fetcher) load(ctx context.Context, url string) *string {
	ctx, span := tracer.Start(ctx, "Fetcher.Fetch", trace.WithAttributes(attribute.String("url", url)))
	defer span.End()

	if f.shared != nil {
		raw, ok, err := f.shared.Get(ctx, sharedKey(url))
		if err != nil {
			log.Printf("fetch: shared cache get %s: %v", url, err)
		} else if ok {
			if body, remaining, fresh := f.unwrapShared(raw); fresh {
				telemetry.FetchOutcomes.WithLabelValues("hit_shared").Inc()
				f.local.Set(url, body, remaining)
				return &body
			}
		}
	}

	body, err := f.get(ctx, url)
	if err != nil {
		telemetry.FetchOutcomes.WithLabelValues("error").Inc()
		span.SetStatus(codes.Error, err.Error())
		log.Printf("fetch: %s: %v", url, err)
		return nil
	}
	telemetry.FetchOutcomes.WithLabelValues("miss").Inc()

	f.local.Set(url, body, f.ttl)
	if f.shared != nil {
		if err := f.shared.Set(ctx, sharedKey(url), f.wrapShared(body), f.ttl); err != nil {
			log.Printf("fetch: shared cache set %s: %v", url, err)
		}
	}
	return &body
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	started := time.Now()
	resp, err := f.client.Do(req)
	telemetry.FetchDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(raw), nil
}

func sharedKey(url string) string {
	return fmt.Sprintf("page:%016x", xxh3.HashString(url))
}

// Shared entries carry their absolute expiry so a replica copying one into
// its local cache keeps the original deadline.
func (f *Fetcher) wrapShared(body string) string {
	return strconv.FormatInt(f.now().Add(f.ttl).UnixMilli(), 10) + "\n" + body
}

func (f *Fetcher) unwrapShared(raw string) (body string, remaining time.Duration, fresh bool) {
	stamp, body, ok := strings.Cut(raw, "\n")
	if !ok {
		return "", 0, false
	}
	expiresMillis, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return "", 0, false
	}
	remaining = time.UnixMilli(expiresMillis).Sub(f.now())
	if remaining <= 0 {
		return "", 0, false
	}
	if remaining > f.ttl {
		remaining = f.ttl
	}
	return body, remaining, true
}
