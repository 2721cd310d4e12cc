package spacetraveling

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/eringen/spacetraveling/post"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "snapshot.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("store db is nil")
	}
	posts, err := s.ListPosts()
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("expected empty store, got %d posts", len(posts))
	}
}

func TestSaveAndGetPost(t *testing.T) {
	s := setupTestStore(t)
	d := testDetail("a", "Como utilizar Hooks", 25)
	d.Banner = post.Banner{URL: "https://images.prismic.io/blog/a.png", Alt: "hooks", Width: 1200, Height: 400}

	if err := s.SavePost(d); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	got, err := s.GetPost("a")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Title != d.Title || got.Author != d.Author || got.Banner != d.Banner {
		t.Errorf("got %+v, want %+v", got, d)
	}
	if got.FirstPublicationDate == nil || !got.FirstPublicationDate.Equal(*d.FirstPublicationDate) {
		t.Errorf("FirstPublicationDate = %v, want %v", got.FirstPublicationDate, d.FirstPublicationDate)
	}
	if len(got.Content) != 1 || got.Content[0].Body[0].Text != "Hello from a" {
		t.Errorf("Content = %+v", got.Content)
	}
	if got.ReadingTime() != d.ReadingTime() {
		t.Errorf("ReadingTime = %+v, want %+v", got.ReadingTime(), d.ReadingTime())
	}
}

func TestSavePostUpdate(t *testing.T) {
	s := setupTestStore(t)
	d := testDetail("a", "Original", 25)
	if err := s.SavePost(d); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	d.Title = "Updated"
	if err := s.SavePost(d); err != nil {
		t.Fatalf("SavePost update: %v", err)
	}
	got, err := s.GetPost("a")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Title != "Updated" {
		t.Errorf("Title = %q, want Updated", got.Title)
	}
	posts, _ := s.ListPosts()
	if len(posts) != 1 {
		t.Errorf("expected 1 post after upsert, got %d", len(posts))
	}
}

func TestGetPostNotFound(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.GetPost("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	for _, d := range []post.Detail{
		testDetail("old", "Old", 1),
		testDetail("new", "New", 28),
		testDetail("mid", "Mid", 14),
	} {
		if err := s.SavePost(d); err != nil {
			t.Fatalf("SavePost: %v", err)
		}
	}
	posts, err := s.ListPosts()
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	want := []string{"new", "mid", "old"}
	if len(posts) != len(want) {
		t.Fatalf("got %d posts, want %d", len(posts), len(want))
	}
	for i, uid := range want {
		if posts[i].UID != uid {
			t.Errorf("posts[%d] = %q, want %q", i, posts[i].UID, uid)
		}
	}
}

func TestBuildFollowsEveryPage(t *testing.T) {
	s := setupTestStore(t)
	src := newFakeSource()

	res, err := s.Build(context.Background(), src)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Posts != 3 || res.Removed != 0 {
		t.Errorf("res = %+v, want 3 posts 0 removed", res)
	}
	for _, uid := range []string{"a", "b", "c"} {
		if _, err := s.GetPost(uid); err != nil {
			t.Errorf("GetPost(%q): %v", uid, err)
		}
	}
}

func TestBuildRemovesUnpublishedPosts(t *testing.T) {
	s := setupTestStore(t)
	if err := s.SavePost(testDetail("gone", "Gone", 2)); err != nil {
		t.Fatalf("SavePost: %v", err)
	}

	res, err := s.Build(context.Background(), newFakeSource())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Removed != 1 {
		t.Errorf("Removed = %d, want 1", res.Removed)
	}
	if _, err := s.GetPost("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unpublished post still stored: %v", err)
	}
}

func TestBuildFailureKeepsSnapshot(t *testing.T) {
	s := setupTestStore(t)
	if err := s.SavePost(testDetail("keep", "Keep", 2)); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	src := newFakeSource()
	src.first.NextPage = cursorBroken

	if _, err := s.Build(context.Background(), src); !errors.Is(err, errUpstream) {
		t.Fatalf("err = %v, want errUpstream", err)
	}
	if _, err := s.GetPost("keep"); err != nil {
		t.Errorf("failed build pruned the snapshot: %v", err)
	}
}

func TestBuildFailureWritesNothing(t *testing.T) {
	s := setupTestStore(t)
	if err := s.SavePost(testDetail("a", "Old title", 2)); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	src := newFakeSource()
	src.first.NextPage = cursorBroken

	if _, err := s.Build(context.Background(), src); !errors.Is(err, errUpstream) {
		t.Fatalf("err = %v, want errUpstream", err)
	}
	got, err := s.GetPost("a")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Title != "Old title" {
		t.Errorf("title = %q, want the pre-build snapshot", got.Title)
	}
	if _, err := s.GetPost("b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("post from the failed build was stored: %v", err)
	}
}

func TestSnapshotSourceServesStoredPosts(t *testing.T) {
	s := setupTestStore(t)
	stored := testDetail("a", "From snapshot", 25)
	if err := s.SavePost(stored); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	src := newFakeSource()
	snap := NewSnapshotSource(s, src, nil)

	got, err := snap.GetPost(context.Background(), "a", "")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Title != "From snapshot" {
		t.Errorf("Title = %q, want snapshot copy", got.Title)
	}
	if _, _, posts := src.calls(); posts != 0 {
		t.Errorf("upstream GetPost called %d times, want 0", posts)
	}
}

func TestSnapshotSourceFallsBackAndStores(t *testing.T) {
	s := setupTestStore(t)
	src := newFakeSource()
	snap := NewSnapshotSource(s, src, func(err error) { t.Errorf("onError: %v", err) })

	if _, err := snap.GetPost(context.Background(), "c", ""); err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if _, err := s.GetPost("c"); err != nil {
		t.Errorf("fallback post was not stored: %v", err)
	}
	if _, err := snap.GetPost(context.Background(), "nope", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSnapshotSourcePreviewBypassesStore(t *testing.T) {
	s := setupTestStore(t)
	if err := s.SavePost(testDetail("a", "Stale", 25)); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	src := newFakeSource()
	snap := NewSnapshotSource(s, src, nil)

	got, err := snap.GetPost(context.Background(), "a", "preview-ref")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Title != "Como utilizar Hooks" {
		t.Errorf("Title = %q, want upstream draft", got.Title)
	}
	if stored, _ := s.GetPost("a"); stored.Title != "Stale" {
		t.Errorf("preview content leaked into the snapshot: %q", stored.Title)
	}
}

func TestListSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.SavePost(testDetail("a", "A", 2)); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	s.Close()

	posts, err := ListSnapshot(SiteConfig{SnapshotPath: path})
	if err != nil {
		t.Fatalf("ListSnapshot: %v", err)
	}
	if len(posts) != 1 || posts[0].UID != "a" {
		t.Errorf("posts = %+v, want [a]", posts)
	}
	if _, err := ListSnapshot(SiteConfig{}); err == nil {
		t.Errorf("expected error without SnapshotPath")
	}
}
