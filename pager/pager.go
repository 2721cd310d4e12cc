// Package pager accumulates post summaries page by page, following the
// cursor returned with each page until it runs out.
package pager

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/eringen/spacetraveling/post"
)

// ErrNoMorePages is returned by LoadMore once the cursor is exhausted.
var ErrNoMorePages = errors.New("pager: no more pages")

// Fetcher loads the page a cursor points at.
type Fetcher interface {
	FetchPage(ctx context.Context, cursor string) (post.Page, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, cursor string) (post.Page, error)

// FetchPage calls f.
func (f FetcherFunc) FetchPage(ctx context.Context, cursor string) (post.Page, error) {
	return f(ctx, cursor)
}

// Option configures a Pager.
type Option func(*Pager)

// WithSingleFlight makes concurrent LoadMore calls for the same cursor share
// one fetch and one append. Without it overlapping calls each fetch and each
// append their results.
func WithSingleFlight() Option {
	return func(p *Pager) {
		p.group = new(singleflight.Group)
		p.loaded = make(map[string]loadResult)
	}
}

// Pager holds the posts loaded so far and the cursor of the next page.
type Pager struct {
	fetcher Fetcher
	group   *singleflight.Group

	mu     sync.Mutex
	posts  []post.Summary
	cursor string
	// loaded remembers each page fetched under WithSingleFlight, keyed by
	// the cursor it was fetched from.
	loaded map[string]loadResult
}

// New starts a Pager from an already-fetched first page.
func New(fetcher Fetcher, first post.Page, opts ...Option) *Pager {
	p := &Pager{
		fetcher: fetcher,
		posts:   append([]post.Summary(nil), first.Results...),
		cursor:  first.NextPage,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resume starts an empty Pager positioned at cursor. It is used when only the
// cursor survives between requests.
func Resume(fetcher Fetcher, cursor string, opts ...Option) *Pager {
	return New(fetcher, post.Page{NextPage: cursor}, opts...)
}

// Posts returns a copy of the posts loaded so far, in load order.
func (p *Pager) Posts() []post.Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]post.Summary(nil), p.posts...)
}

// Cursor returns the next-page cursor, or "" when there is none.
func (p *Pager) Cursor() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// HasMore reports whether LoadMore can be offered.
func (p *Pager) HasMore() bool {
	return p.Cursor() != ""
}

type loadResult struct {
	items []post.Summary
	next  string
}

// LoadMore fetches the page at the current cursor, appends its results and
// replaces the cursor with the page's next cursor. On error the posts and
// cursor are left as they were. There is no retry.
func (p *Pager) LoadMore(ctx context.Context) ([]post.Summary, string, error) {
	cursor := p.Cursor()
	if cursor == "" {
		return nil, "", ErrNoMorePages
	}
	if p.group == nil {
		r, err := p.load(ctx, cursor)
		if err != nil {
			return nil, cursor, err
		}
		return r.items, r.next, nil
	}
	r, err := p.loadShared(ctx, cursor)
	if err != nil {
		return nil, cursor, err
	}
	return r.items, r.next, nil
}

// loadShared loads cursor at most once. A caller that read the cursor just
// before another caller's load finished gets that load's result.
func (p *Pager) loadShared(ctx context.Context, cursor string) (loadResult, error) {
	v, err, _ := p.group.Do(cursor, func() (interface{}, error) {
		p.mu.Lock()
		r, done := p.loaded[cursor]
		p.mu.Unlock()
		if done {
			return r, nil
		}
		return p.load(ctx, cursor)
	})
	if err != nil {
		return loadResult{}, err
	}
	return v.(loadResult), nil
}

func (p *Pager) load(ctx context.Context, cursor string) (loadResult, error) {
	page, err := p.fetcher.FetchPage(ctx, cursor)
	if err != nil {
		return loadResult{}, err
	}
	r := loadResult{items: page.Results, next: page.NextPage}
	p.mu.Lock()
	p.posts = append(p.posts, page.Results...)
	p.cursor = page.NextPage
	if p.loaded != nil {
		p.loaded[cursor] = r
	}
	p.mu.Unlock()
	return r, nil
}

// ErrCursorLoop is returned by Walk when a page points back at a cursor that
// was already loaded.
var ErrCursorLoop = errors.New("pager: cursor loop")

// Walk loads every remaining page, calling fn with each page's new items.
func (p *Pager) Walk(ctx context.Context, fn func([]post.Summary) error) error {
	seen := make(map[string]struct{})
	for p.HasMore() {
		cursor := p.Cursor()
		if _, ok := seen[cursor]; ok {
			return ErrCursorLoop
		}
		seen[cursor] = struct{}{}
		items, _, err := p.LoadMore(ctx)
		if err != nil {
			return err
		}
		if err := fn(items); err != nil {
			return err
		}
	}
	return nil
}
