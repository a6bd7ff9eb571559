package workspace

import (
	"context"
	"errors"
	"log"
	"sync"

	"legisdraft/api/internal/legislation"
)

// Loader performs the I/O behind effects.
type Loader interface {
	LoadCatalog(ctx context.Context) ([]legislation.CatalogItem, error)
	LoadDocument(ctx context.Context, url string) (*legislation.Document, error)
}

var ErrStopped = errors.New("workspace coordinator stopped")

// Coordinator owns a State. Intents arrive on a channel, effects run in
// their own goroutines and report back as actions, and every new state is
// published to subscribers.
type Coordinator struct {
	loader  Loader
	intents chan Action
	done    chan struct{}

	mu      sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int
}

func NewCoordinator(loader Loader) *Coordinator {
	return &Coordinator{
		loader:  loader,
		intents: make(chan Action, 16),
		done:    make(chan struct{}),
		subs:    make(map[int]chan State),
	}
}

// Dispatch queues an action for Run.
func (c *Coordinator) Dispatch(ctx context.Context, a Action) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case c.intents <- a:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a channel that always holds the newest state. Slow
// readers skip intermediate states. The returned func unsubscribes.
func (c *Coordinator) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan State, 1)
	ch <- c.state
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run processes actions until ctx is cancelled, then waits for in-flight
// effects to return.
func (c *Coordinator) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer func() {
		close(c.done)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-c.intents:
			c.mu.Lock()
			next, effects := Reduce(c.state, a)
			c.state = next
			c.publish(next)
			c.mu.Unlock()

			for _, effect := range effects {
				wg.Add(1)
				go func(effect Effect) {
					defer wg.Done()
					result := c.run(ctx, effect)
					if result == nil {
						return
					}
					select {
					case c.intents <- result:
					case <-ctx.Done():
					}
				}(effect)
			}
		}
	}
}

func (c *Coordinator) run(ctx context.Context, effect Effect) Action {
	switch e := effect.(type) {
	case LoadCatalog:
		items, err := c.loader.LoadCatalog(ctx)
		if err != nil {
			return CatalogFailed{Err: err}
		}
		return CatalogLoaded{Items: items}
	case LoadDocument:
		doc, err := c.loader.LoadDocument(ctx, e.URL)
		if err != nil {
			return DocumentFailed{Selection: e.Selection, Err: err}
		}
		return DocumentLoaded{Selection: e.Selection, Document: doc}
	}
	log.Printf("workspace: unknown effect %T", effect)
	return nil
}

// publish must be called with c.mu held.
func (c *Coordinator) publish(s State) {
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
