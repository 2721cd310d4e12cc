package spacetraveling

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eringen/spacetraveling/post"
)

// PostCache is an in-memory TTL cache in front of a ContentSource. Only
// published content is cached: preview refs and cursor pages pass through.
type PostCache struct {
	mu           sync.RWMutex
	first        post.Page
	firstFetched time.Time
	hasFirst     bool
	posts        map[string]cachedPost
	ttl          time.Duration
	source       ContentSource
	group        singleflight.Group
	now          func() time.Time
	// gen is bumped by Invalidate; loads that began under an older
	// generation do not store their results.
	gen uint64
}

type cachedPost struct {
	detail  post.Detail
	fetched time.Time
}

// NewPostCache creates a PostCache backed by the given source.
func NewPostCache(src ContentSource, ttl time.Duration) *PostCache {
	return &PostCache{
		source: src,
		ttl:    ttl,
		posts:  make(map[string]cachedPost),
		now:    time.Now,
	}
}

func (c *PostCache) fresh(fetched time.Time) bool {
	return c.now().Sub(fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.first = post.Page{}
	c.hasFirst = false
	c.posts = make(map[string]cachedPost)
	c.mu.Unlock()
}

// FirstPage returns the first list page. Concurrent misses share one load.
func (c *PostCache) FirstPage(ctx context.Context, ref string) (post.Page, error) {
	if ref != "" {
		return c.source.FirstPage(ctx, ref)
	}
	c.mu.RLock()
	if c.hasFirst && c.fresh(c.firstFetched) {
		page := c.first
		c.mu.RUnlock()
		return page, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	v, err, _ := c.group.Do(groupKey("first", gen), func() (interface{}, error) {
		page, err := c.source.FirstPage(ctx, "")
		if err != nil {
			return post.Page{}, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.first = page
			c.firstFetched = c.now()
			c.hasFirst = true
		}
		c.mu.Unlock()
		return page, nil
	})
	if err != nil {
		return post.Page{}, err
	}
	return v.(post.Page), nil
}

// FetchPage follows a cursor without caching; cursors are one-shot.
func (c *PostCache) FetchPage(ctx context.Context, cursor string) (post.Page, error) {
	return c.source.FetchPage(ctx, cursor)
}

// GetPost returns a single post by uid from the cache.
func (c *PostCache) GetPost(ctx context.Context, uid, ref string) (post.Detail, error) {
	if ref != "" {
		return c.source.GetPost(ctx, uid, ref)
	}
	c.mu.RLock()
	cp, ok := c.posts[uid]
	gen := c.gen
	c.mu.RUnlock()
	if ok && c.fresh(cp.fetched) {
		return cp.detail, nil
	}

	v, err, _ := c.group.Do(groupKey("post:"+uid, gen), func() (interface{}, error) {
		d, err := c.source.GetPost(ctx, uid, "")
		if err != nil {
			return post.Detail{}, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.posts[uid] = cachedPost{detail: d, fetched: c.now()}
		}
		c.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return post.Detail{}, err
	}
	return v.(post.Detail), nil
}

// groupKey scopes a load to a cache generation so a request made after
// Invalidate never joins a load that started before it.
func groupKey(key string, gen uint64) string {
	return key + "@" + strconv.FormatUint(gen, 10)
}
