package spacetraveling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eringen/spacetraveling/post"
)

func newTestCache(src ContentSource, ttl time.Duration) (*PostCache, *time.Time) {
	c := NewPostCache(src, ttl)
	now := time.Date(2021, time.April, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestPostCacheFirstPageWithinTTL(t *testing.T) {
	src := newFakeSource()
	c, now := newTestCache(src, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.FirstPage(ctx, ""); err != nil {
			t.Fatalf("FirstPage: %v", err)
		}
	}
	if first, _, _ := src.calls(); first != 1 {
		t.Errorf("upstream FirstPage calls = %d, want 1", first)
	}

	*now = now.Add(2 * time.Minute)
	if _, err := c.FirstPage(ctx, ""); err != nil {
		t.Fatalf("FirstPage: %v", err)
	}
	if first, _, _ := src.calls(); first != 2 {
		t.Errorf("upstream FirstPage calls after expiry = %d, want 2", first)
	}
}

func TestPostCacheGetPost(t *testing.T) {
	src := newFakeSource()
	c, _ := newTestCache(src, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := c.GetPost(ctx, "a", "")
		if err != nil {
			t.Fatalf("GetPost: %v", err)
		}
		if d.UID != "a" {
			t.Errorf("UID = %q", d.UID)
		}
	}
	if _, _, posts := src.calls(); posts != 1 {
		t.Errorf("upstream GetPost calls = %d, want 1", posts)
	}
}

func TestPostCacheDoesNotCacheMisses(t *testing.T) {
	src := newFakeSource()
	c, _ := newTestCache(src, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.GetPost(ctx, "missing", ""); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	}
	if _, _, posts := src.calls(); posts != 2 {
		t.Errorf("upstream GetPost calls = %d, want 2", posts)
	}
}

func TestPostCachePreviewPassesThrough(t *testing.T) {
	src := newFakeSource()
	c, _ := newTestCache(src, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.FirstPage(ctx, "preview-ref"); err != nil {
			t.Fatalf("FirstPage: %v", err)
		}
		if _, err := c.GetPost(ctx, "a", "preview-ref"); err != nil {
			t.Fatalf("GetPost: %v", err)
		}
	}
	first, _, posts := src.calls()
	if first != 2 || posts != 2 {
		t.Errorf("calls = (%d, %d), want (2, 2)", first, posts)
	}
	// A preview must not populate the published cache.
	if _, err := c.FirstPage(ctx, ""); err != nil {
		t.Fatalf("FirstPage: %v", err)
	}
	if first, _, _ := src.calls(); first != 3 {
		t.Errorf("FirstPage calls = %d, want 3", first)
	}
}

func TestPostCacheFetchPageNotCached(t *testing.T) {
	src := newFakeSource()
	c, _ := newTestCache(src, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.FetchPage(ctx, cursorPage2); err != nil {
			t.Fatalf("FetchPage: %v", err)
		}
	}
	if _, pages, _ := src.calls(); pages != 2 {
		t.Errorf("upstream FetchPage calls = %d, want 2", pages)
	}
}

func TestPostCacheInvalidate(t *testing.T) {
	src := newFakeSource()
	c, _ := newTestCache(src, time.Hour)
	ctx := context.Background()

	_, _ = c.FirstPage(ctx, "")
	_, _ = c.GetPost(ctx, "a", "")
	c.Invalidate()
	_, _ = c.FirstPage(ctx, "")
	_, _ = c.GetPost(ctx, "a", "")

	first, _, posts := src.calls()
	if first != 2 || posts != 2 {
		t.Errorf("calls after Invalidate = (%d, %d), want (2, 2)", first, posts)
	}
}

func TestPostCacheErrorNotCached(t *testing.T) {
	src := newFakeSource()
	src.firstErr = errUpstream
	c, _ := newTestCache(src, time.Minute)
	ctx := context.Background()

	if _, err := c.FirstPage(ctx, ""); !errors.Is(err, errUpstream) {
		t.Fatalf("err = %v, want errUpstream", err)
	}
	src.mu.Lock()
	src.firstErr = nil
	src.mu.Unlock()
	page, err := c.FirstPage(ctx, "")
	if err != nil {
		t.Fatalf("FirstPage after recovery: %v", err)
	}
	if len(page.Results) != 2 {
		t.Errorf("got %d results, want 2", len(page.Results))
	}
}

func TestPostCacheConcurrentReads(t *testing.T) {
	src := newFakeSource()
	c, _ := newTestCache(src, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetPost(ctx, "b", ""); err != nil {
				t.Errorf("GetPost: %v", err)
			}
		}()
	}
	wg.Wait()
	if _, _, posts := src.calls(); posts > 20 || posts < 1 {
		t.Errorf("upstream GetPost calls = %d", posts)
	}
}

// gatedSource holds its first load until release is closed. The first load
// returns content titled "old", later loads "new".
type gatedSource struct {
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func newGatedSource() *gatedSource {
	return &gatedSource{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedSource) next() string {
	g.mu.Lock()
	n := g.calls
	g.calls++
	g.mu.Unlock()
	if n == 0 {
		close(g.started)
		<-g.release
		return "old"
	}
	return "new"
}

func (g *gatedSource) FirstPage(ctx context.Context, ref string) (post.Page, error) {
	return post.Page{Results: []post.Summary{{UID: "a", Title: g.next()}}}, nil
}

func (g *gatedSource) FetchPage(ctx context.Context, cursor string) (post.Page, error) {
	return post.Page{}, errUpstream
}

func (g *gatedSource) GetPost(ctx context.Context, uid, ref string) (post.Detail, error) {
	return post.Detail{UID: uid, Title: g.next()}, nil
}

func TestPostCacheInvalidateDropsInFlightFirstPage(t *testing.T) {
	src := newGatedSource()
	c, _ := newTestCache(src, time.Hour)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.FirstPage(ctx, "")
	}()
	<-src.started
	c.Invalidate()

	page, err := c.FirstPage(ctx, "")
	if err != nil {
		t.Fatalf("FirstPage: %v", err)
	}
	if got := page.Results[0].Title; got != "new" {
		t.Errorf("load after Invalidate = %q, want new", got)
	}

	close(src.release)
	<-done

	page, err = c.FirstPage(ctx, "")
	if err != nil {
		t.Fatalf("FirstPage: %v", err)
	}
	if got := page.Results[0].Title; got != "new" {
		t.Errorf("cached first page = %q, want new", got)
	}
}

func TestPostCacheInvalidateDropsInFlightPost(t *testing.T) {
	src := newGatedSource()
	c, _ := newTestCache(src, time.Hour)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetPost(ctx, "a", "")
	}()
	<-src.started
	c.Invalidate()
	close(src.release)
	<-done

	d, err := c.GetPost(ctx, "a", "")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if d.Title != "new" {
		t.Errorf("GetPost after Invalidate = %q, want new", d.Title)
	}
}
