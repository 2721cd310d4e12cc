package spacetraveling

import (
	"context"
	"errors"
	"fmt"

	"github.com/eringen/spacetraveling/cms"
	"github.com/eringen/spacetraveling/post"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = cms.ErrNotFound

// ContentSource supplies posts to the handlers. An empty ref means the
// published content; a non-empty ref is a preview.
type ContentSource interface {
	FirstPage(ctx context.Context, ref string) (post.Page, error)
	FetchPage(ctx context.Context, cursor string) (post.Page, error)
	GetPost(ctx context.Context, uid, ref string) (post.Detail, error)
}

// cmsSource reads posts straight from the CMS.
type cmsSource struct {
	client   *cms.Client
	pageSize int
}

// NewCMSSource adapts a CMS client to ContentSource.
func NewCMSSource(client *cms.Client, pageSize int) ContentSource {
	return &cmsSource{client: client, pageSize: pageSize}
}

func (s *cmsSource) FirstPage(ctx context.Context, ref string) (post.Page, error) {
	resp, err := s.client.Query(ctx, []string{cms.At("document.type", post.DocumentType)}, cms.QueryOptions{
		Fetch:     post.SummaryFields,
		PageSize:  s.pageSize,
		Orderings: "[document.first_publication_date desc]",
		Ref:       ref,
	})
	if err != nil {
		return post.Page{}, fmt.Errorf("list posts: %w", err)
	}
	return post.PageFromResponse(resp)
}

func (s *cmsSource) FetchPage(ctx context.Context, cursor string) (post.Page, error) {
	resp, err := s.client.FetchPage(ctx, cursor)
	if err != nil {
		return post.Page{}, fmt.Errorf("load more: %w", err)
	}
	return post.PageFromResponse(resp)
}

func (s *cmsSource) GetPost(ctx context.Context, uid, ref string) (post.Detail, error) {
	doc, err := s.client.GetByUID(ctx, post.DocumentType, uid, ref)
	if err != nil {
		if errors.Is(err, cms.ErrNotFound) {
			return post.Detail{}, ErrNotFound
		}
		return post.Detail{}, fmt.Errorf("get post %s: %w", uid, err)
	}
	return post.DetailFromDocument(*doc)
}
