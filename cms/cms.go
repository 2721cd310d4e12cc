// Package cms is a small client for the Prismic REST API (v2). It resolves
// content refs, runs predicate queries, looks documents up by UID or ID, and
// follows the self-describing next_page cursor URLs returned with every page.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

var (
	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("cms: document not found")
	// ErrForeignCursor is returned when a cursor URL does not point at the
	// configured repository.
	ErrForeignCursor = errors.New("cms: cursor does not belong to this repository")
	// ErrNoMasterRef is returned when the API root lists no master ref.
	ErrNoMasterRef = errors.New("cms: api has no master ref")
)

// StatusError reports a non-2xx response from the API.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cms: %s returned %d", e.URL, e.Code)
}

// maxBodySize caps how much of a response body is decoded.
const maxBodySize = 8 << 20

// Config configures a Client.
type Config struct {
	Endpoint    string        // API root, e.g. https://repo.cdn.prismic.io/api/v2
	AccessToken string        // optional; sent as access_token
	Timeout     time.Duration // per-request timeout (default 10s)
	RefTTL      time.Duration // how long a resolved master ref is reused (default 5s)
	HTTPClient  *http.Client  // optional; overrides the tuned default client
}

// Client talks to a single CMS repository.
type Client struct {
	endpoint *url.URL
	token    string
	http     *http.Client
	refTTL   time.Duration

	mu         sync.Mutex
	ref        string
	refFetched time.Time
}

// New builds a Client for cfg.Endpoint.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(cfg.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("cms: parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("cms: endpoint scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("cms: endpoint %q has no host", cfg.Endpoint)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RefTTL == 0 {
		cfg.RefTTL = 5 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{
		endpoint: u,
		token:    cfg.AccessToken,
		http:     hc,
		refTTL:   cfg.RefTTL,
	}, nil
}

// Endpoint returns the API root URL.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// HTTPClient exposes the underlying client so callers can fetch assets
// (e.g. banner images) with the same transport settings.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Ref returns the current master ref, reusing it for RefTTL.
func (c *Client) Ref(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.ref != "" && time.Since(c.refFetched) < c.refTTL {
		ref := c.ref
		c.mu.Unlock()
		return ref, nil
	}
	c.mu.Unlock()

	u := *c.endpoint
	if c.token != "" {
		q := u.Query()
		q.Set("access_token", c.token)
		u.RawQuery = q.Encode()
	}
	var api APIRoot
	if err := c.getJSON(ctx, u.String(), &api); err != nil {
		return "", err
	}
	ref := api.MasterRef()
	if ref == "" {
		return "", ErrNoMasterRef
	}

	c.mu.Lock()
	c.ref = ref
	c.refFetched = time.Now()
	c.mu.Unlock()
	return ref, nil
}

// Query runs predicates against the repository.
func (c *Client) Query(ctx context.Context, predicates []string, opts QueryOptions) (*Response, error) {
	ref := opts.Ref
	if ref == "" {
		var err error
		ref, err = c.Ref(ctx)
		if err != nil {
			return nil, err
		}
	}
	u := *c.endpoint
	u.Path = strings.TrimSuffix(u.Path, "/") + "/documents/search"
	q := url.Values{}
	q.Set("ref", ref)
	if len(predicates) > 0 {
		q.Set("q", "["+strings.Join(predicates, "")+"]")
	}
	if len(opts.Fetch) > 0 {
		q.Set("fetch", strings.Join(opts.Fetch, ","))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Orderings != "" {
		q.Set("orderings", opts.Orderings)
	}
	if opts.Lang != "" {
		q.Set("lang", opts.Lang)
	}
	if c.token != "" {
		q.Set("access_token", c.token)
	}
	u.RawQuery = q.Encode()

	var resp Response
	if err := c.getJSON(ctx, u.String(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetByUID returns the document of docType whose uid is uid.
func (c *Client) GetByUID(ctx context.Context, docType, uid, ref string) (*Document, error) {
	resp, err := c.Query(ctx, []string{At("my."+docType+".uid", uid)}, QueryOptions{PageSize: 1, Ref: ref})
	if err != nil {
		return nil, err
	}
	return first(resp)
}

// GetByID returns the document with the given ID.
func (c *Client) GetByID(ctx context.Context, id, ref string) (*Document, error) {
	resp, err := c.Query(ctx, []string{At("document.id", id)}, QueryOptions{PageSize: 1, Ref: ref})
	if err != nil {
		return nil, err
	}
	return first(resp)
}

func first(resp *Response) (*Document, error) {
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Results[0], nil
}

// FetchPage follows a next_page cursor URL. The cursor is opaque apart from
// the host check that keeps the client pinned to its repository.
func (c *Client) FetchPage(ctx context.Context, cursor string) (*Response, error) {
	u, err := url.Parse(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForeignCursor, err)
	}
	if u.Scheme != c.endpoint.Scheme || !strings.EqualFold(u.Host, c.endpoint.Host) {
		return nil, ErrForeignCursor
	}
	var resp Response
	if err := c.getJSON(ctx, u.String(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PreviewRef validates a preview token (itself a URL on the repository's
// domain) and returns it for use as a query ref.
func (c *Client) PreviewRef(token string) (string, error) {
	u, err := url.Parse(token)
	if err != nil || (u.Scheme != "https" && u.Scheme != c.endpoint.Scheme) {
		return "", fmt.Errorf("cms: invalid preview token")
	}
	if !sameRepository(u.Host, c.endpoint.Host) {
		return "", fmt.Errorf("cms: preview token is for another repository")
	}
	return token, nil
}

// sameRepository reports whether two hosts serve the same repository. The
// first DNS label names the repository on both the CDN and the non-CDN host
// ("blog.cdn.prismic.io" and "blog.prismic.io"), and both must sit under the
// same registrable domain. IPs and single-label hosts must match exactly.
func sameRepository(a, b string) bool {
	a, b = hostname(a), hostname(b)
	if a == "" || b == "" {
		return false
	}
	if net.ParseIP(a) != nil || net.ParseIP(b) != nil || !strings.Contains(a, ".") || !strings.Contains(b, ".") {
		return a == b
	}
	nameA, _, _ := strings.Cut(a, ".")
	nameB, _, _ := strings.Cut(b, ".")
	if nameA != nameB {
		return false
	}
	domA, errA := publicsuffix.EffectiveTLDPlusOne(a)
	domB, errB := publicsuffix.EffectiveTLDPlusOne(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return domA == domB
}

func hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

func (c *Client) getJSON(ctx context.Context, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("cms: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cms: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, URL: redact(req.URL)}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(dst); err != nil {
		return fmt.Errorf("cms: decode %s: %w", redact(req.URL), err)
	}
	return nil
}

// redact strips the query (refs and access tokens) from URLs used in errors.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}
