package spacetraveling

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/spacetraveling/pager"
	"github.com/eringen/spacetraveling/post"
)

// Store wraps a SQLite database holding a snapshot of built posts.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets page requests read while a rebuild writes; busy_timeout makes
	// the writer wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    uid TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    first_publication_date TEXT NOT NULL DEFAULT '',
    document TEXT NOT NULL,
    built_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS posts_first_publication_date ON posts (first_publication_date);
`)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// SavePost upserts a post.
func (s *Store) SavePost(d post.Detail) error {
	return savePost(s.db, d)
}

func savePost(db execer, d post.Detail) error {
	doc, err := json.Marshal(d)
	if err != nil {
		return err
	}
	published := ""
	if d.FirstPublicationDate != nil {
		published = d.FirstPublicationDate.UTC().Format(time.RFC3339)
	}
	_, err = db.Exec(`INSERT OR REPLACE INTO posts (uid, title, first_publication_date, document, built_at) VALUES (?, ?, ?, ?, ?)`,
		d.UID, d.Title, published, string(doc), time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetPost returns a single post by uid, or ErrNotFound.
func (s *Store) GetPost(uid string) (post.Detail, error) {
	var doc string
	err := s.db.QueryRow(`SELECT document FROM posts WHERE uid = ?`, uid).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return post.Detail{}, ErrNotFound
	}
	if err != nil {
		return post.Detail{}, err
	}
	var d post.Detail
	if err := json.Unmarshal([]byte(doc), &d); err != nil {
		return post.Detail{}, fmt.Errorf("decode snapshot %s: %w", uid, err)
	}
	return d, nil
}

// ListPosts returns every stored post as a summary, newest first.
func (s *Store) ListPosts() ([]post.Summary, error) {
	rows, err := s.db.Query(`SELECT document FROM posts ORDER BY first_publication_date DESC, uid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []post.Summary
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var d post.Detail
		if err := json.Unmarshal([]byte(doc), &d); err != nil {
			return nil, err
		}
		posts = append(posts, d.Summary())
	}
	return posts, rows.Err()
}

// replace upserts docs and deletes every other post in one transaction.
func (s *Store) replace(docs []post.Detail) (int, error) {
	keep := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		keep[d.UID] = struct{}{}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	existing, err := storedUIDs(tx)
	if err != nil {
		return 0, err
	}
	for _, d := range docs {
		if err := savePost(tx, d); err != nil {
			return 0, fmt.Errorf("save %s: %w", d.UID, err)
		}
	}
	removed := 0
	for _, uid := range existing {
		if _, ok := keep[uid]; ok {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM posts WHERE uid = ?`, uid); err != nil {
			return 0, err
		}
		removed++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}

func storedUIDs(tx *sql.Tx) ([]string, error) {
	rows, err := tx.Query(`SELECT uid FROM posts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

// BuildResult summarises a snapshot build.
type BuildResult struct {
	Posts   int
	Removed int
}

// Build walks every page of src, fetches each post's detail and then replaces
// the snapshot with the result. Nothing is written unless the walk succeeds.
func (s *Store) Build(ctx context.Context, src ContentSource) (BuildResult, error) {
	first, err := src.FirstPage(ctx, "")
	if err != nil {
		return BuildResult{}, err
	}
	seen := make(map[string]struct{})
	var docs []post.Detail
	collect := func(items []post.Summary) error {
		for _, sum := range items {
			if _, dup := seen[sum.UID]; dup {
				continue
			}
			d, err := src.GetPost(ctx, sum.UID, "")
			if err != nil {
				return err
			}
			seen[sum.UID] = struct{}{}
			docs = append(docs, d)
		}
		return nil
	}
	if err := collect(first.Results); err != nil {
		return BuildResult{}, err
	}
	if err := pager.New(src, first).Walk(ctx, collect); err != nil {
		return BuildResult{}, err
	}
	removed, err := s.replace(docs)
	if err != nil {
		return BuildResult{}, err
	}
	return BuildResult{Posts: len(docs), Removed: removed}, nil
}

// SnapshotSource serves post pages from the Store and falls back to the
// upstream source for posts that were not built, storing them on the way.
type SnapshotSource struct {
	store    *Store
	upstream ContentSource
	onError  func(error)
}

// NewSnapshotSource layers store in front of upstream. onError receives
// failures to persist fetched posts; it may be nil.
func NewSnapshotSource(store *Store, upstream ContentSource, onError func(error)) *SnapshotSource {
	return &SnapshotSource{store: store, upstream: upstream, onError: onError}
}

func (s *SnapshotSource) FirstPage(ctx context.Context, ref string) (post.Page, error) {
	return s.upstream.FirstPage(ctx, ref)
}

func (s *SnapshotSource) FetchPage(ctx context.Context, cursor string) (post.Page, error) {
	return s.upstream.FetchPage(ctx, cursor)
}

func (s *SnapshotSource) GetPost(ctx context.Context, uid, ref string) (post.Detail, error) {
	if ref != "" {
		return s.upstream.GetPost(ctx, uid, ref)
	}
	d, err := s.store.GetPost(uid)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrNotFound) && s.onError != nil {
		s.onError(err)
	}
	d, err = s.upstream.GetPost(ctx, uid, "")
	if err != nil {
		return post.Detail{}, err
	}
	if err := s.store.SavePost(d); err != nil && s.onError != nil {
		s.onError(err)
	}
	return d, nil
}
