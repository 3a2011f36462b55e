package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite" // SQLite driver registration.

	"feedkeeper/internal/model"
	"feedkeeper/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreatePost inserts a post. A missing ID is generated, a zero PublishedAt
// becomes the creation time.
func (s *SQLite) CreatePost(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC().Truncate(time.Second)
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.PublishedAt.IsZero() {
		post.PublishedAt = now
	}
	cats, err := json.Marshal(nonNil(post.Categories))
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, link, description, categories, published_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.Title, post.Link, post.Description, string(cats),
		post.PublishedAt.UTC().Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	post.PublishedAt = post.PublishedAt.UTC().Truncate(time.Second)
	post.CreatedAt = now
	return nil
}

// GetPost returns a single post by its ID.
func (s *SQLite) GetPost(ctx context.Context, id string) (*model.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, link, description, categories, published_at, created_at
		 FROM posts WHERE id = ?`, id,
	)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPosts returns all posts, newest first.
func (s *SQLite) ListPosts(ctx context.Context) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, link, description, categories, published_at, created_at
		 FROM posts ORDER BY published_at DESC, created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// MarkSeen records identity keys of published items. Known keys are ignored.
func (s *SQLite) MarkSeen(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeLayout)
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO seen_keys (key, seen_at) VALUES (?, ?)`, k, now,
		); err != nil {
			return fmt.Errorf("mark seen: %w", err)
		}
	}
	return tx.Commit()
}

// SeenKeys returns every recorded identity key.
func (s *SQLite) SeenKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM seen_keys ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query seen keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan seen key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPost(row scannable) (model.Post, error) {
	var p model.Post
	var cats, published, created string
	err := row.Scan(&p.ID, &p.Title, &p.Link, &p.Description, &cats, &published, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan post: %w", err)
	}
	if err := json.Unmarshal([]byte(cats), &p.Categories); err != nil {
		return p, fmt.Errorf("decode categories of %s: %w", p.ID, err)
	}
	if len(p.Categories) == 0 {
		p.Categories = nil
	}
	p.PublishedAt, _ = time.Parse(timeLayout, published)
	p.CreatedAt, _ = time.Parse(timeLayout, created)
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
