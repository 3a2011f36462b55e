// Package server serves the manual post submission form and API.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"feedkeeper/internal/feed"
	"feedkeeper/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed add-post.html
var formPage []byte

const (
	maxBodyBytes = 1 << 20

	// Submissions allowed per client and window.
	postLimit  = 100
	postWindow = 15 * time.Minute
)

// PostStore persists manual posts. *storage.SQLite implements it.
type PostStore interface {
	CreatePost(ctx context.Context, p *model.Post) error
	ListPosts(ctx context.Context) ([]model.Post, error)
}

// FeedReader reads the current feed document. *document.File implements it.
type FeedReader interface {
	Read(ctx context.Context) (string, error)
}

// Server routes the post API.
type Server struct {
	posts PostStore
	feed  FeedReader
	log   *slog.Logger
	mux   *http.ServeMux
	now   func() time.Time
}

// New creates a Server. feed may be nil, in which case /feed.xml is not served.
func New(posts PostStore, feed FeedReader, log *slog.Logger) *Server {
	return newServer(posts, feed, log, NewRateLimiter(postLimit, postWindow))
}

func newServer(posts PostStore, feed FeedReader, log *slog.Logger, limiter *RateLimiter) *Server {
	s := &Server{
		posts: posts,
		feed:  feed,
		log:   log,
		mux:   http.NewServeMux(),
		now:   time.Now,
	}
	s.mux.HandleFunc("GET /{$}", s.handleForm)
	s.mux.HandleFunc("GET /api/posts", s.handleListPosts)
	s.mux.Handle("POST /api/posts", limiter.Middleware(http.HandlerFunc(s.handleCreatePost)))
	if feed != nil {
		s.mux.HandleFunc("GET /feed.xml", s.handleFeed)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

func (s *Server) handleForm(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(formPage)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.ListPosts(r.Context())
	if err != nil {
		s.log.Error("list posts", "error", err)
		writeError(w, http.StatusInternalServerError, "error reading posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

type postRequest struct {
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	PublishedAt string   `json:"published_at"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	post := &model.Post{
		Title:       strings.TrimSpace(req.Title),
		Link:        strings.TrimSpace(req.Link),
		Description: req.Description,
		Categories:  req.Categories,
		PublishedAt: s.now().UTC(),
	}
	if post.Title == "" || post.Link == "" {
		writeError(w, http.StatusBadRequest, "title and link are required")
		return
	}
	if req.PublishedAt != "" {
		t, err := feed.ParseDate(req.PublishedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid published_at")
			return
		}
		post.PublishedAt = t.UTC()
	}

	if err := s.posts.CreatePost(r.Context(), post); err != nil {
		s.log.Error("create post", "error", err)
		writeError(w, http.StatusInternalServerError, "error saving post")
		return
	}
	s.log.Info("post created", "id", post.ID, "link", post.Link)
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	doc, err := s.feed.Read(r.Context())
	if err != nil {
		s.log.Error("read feed", "error", err)
		writeError(w, http.StatusInternalServerError, "error reading feed")
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
