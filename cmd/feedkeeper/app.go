package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"feedkeeper/internal/config"
	"feedkeeper/internal/dedupe"
	"feedkeeper/internal/document"
	"feedkeeper/internal/fetcher"
	"feedkeeper/internal/logging"
	"feedkeeper/internal/model"
	"feedkeeper/internal/notify"
	"feedkeeper/internal/pipeline"
	"feedkeeper/internal/sanitize"
	"feedkeeper/internal/source"
	"feedkeeper/internal/storage"
)

const (
	defaultLockTimeout = 2 * time.Minute
	httpTimeout        = 30 * time.Second
)

// notifier announces items added to the feed.
type notifier interface {
	Notify(ctx context.Context, items []model.FeedItem) error
}

// app holds what every command shares: configuration, the logger and the
// feed document.
type app struct {
	cfg         *config.Config
	log         *slog.Logger
	doc         *document.File
	lockTimeout time.Duration
	now         func() time.Time
	closers     []io.Closer
}

// withApp builds the app for a command, runs fn and releases everything the
// app opened.
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log, logCloser := logging.New(cfg.LogLevel, cfg.LogFile)
		timeout, err := cmd.Flags().GetDuration("lock-timeout")
		if err != nil {
			timeout = defaultLockTimeout
		}

		a := &app{
			cfg:         cfg,
			log:         log,
			doc:         document.NewFile(cfg.FeedPath),
			lockTimeout: timeout,
			now:         time.Now,
			closers:     []io.Closer{logCloser},
		}
		defer a.close()

		return fn(cmd.Context(), a, args)
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

func (a *app) settings() (*config.Settings, error) {
	return config.LoadSettings(a.cfg.SettingsPath)
}

// openStore opens the database, creating its directory first.
func (a *app) openStore() (*storage.SQLite, error) {
	if dir := filepath.Dir(a.cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}
	store, err := storage.NewSQLite(a.cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.cfg.DatabasePath, err)
	}
	a.closers = append(a.closers, store)
	return store, nil
}

// lock takes the document lock, giving up after the lock timeout.
func (a *app) lock(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, a.lockTimeout)
	defer cancel()
	unlock, err := a.doc.Lock(ctx)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := unlock(); err != nil {
			a.log.Warn("release feed lock", "feed_path", a.doc.Path(), "error", err)
		}
	}, nil
}

// newNotifier returns the Telegram notifier, or nil when notifications are off.
func (a *app) newNotifier() (notifier, error) {
	if !a.cfg.NotificationsEnabled() {
		return nil, nil
	}
	tg, err := notify.NewTelegram(a.cfg.TelegramToken, a.cfg.TelegramChatID, a.log)
	if err != nil {
		return nil, err
	}
	return tg, nil
}

// sources builds the enabled collectors from the current settings.
func (a *app) sources(store *storage.SQLite) ([]source.Source, error) {
	s, err := a.settings()
	if err != nil {
		return nil, err
	}
	return source.FromSettings(s, source.Deps{
		Getter: fetcher.New(&http.Client{Timeout: httpTimeout}),
		Posts:  store,
		APIKey: a.cfg.NVDAPIKey,
		Log:    a.log,
		Now:    a.now,
	})
}

// pipeline builds a pipeline for the settings. seen may be nil.
func (a *app) pipeline(s *config.Settings, seen []string) *pipeline.Pipeline {
	return newPipeline(s, seen, pipeline.NewLogReporter(a.log))
}

func newPipeline(s *config.Settings, seen []string, reporter pipeline.Reporter) *pipeline.Pipeline {
	cfg := pipeline.Config{
		Anchor:    s.AnchorDelimiter,
		Insertion: s.Insertion,
		Limit:     s.RetentionLimit,
		Options: func(src string) sanitize.Options {
			o := s.For(src)
			return sanitize.Options{HTML: o.HTML, Blacklist: o.Blacklist}
		},
	}
	if seen != nil {
		cfg.Seen = dedupe.NewSeen(seen...)
	}
	return pipeline.New(cfg, reporter)
}

// errNotFormatted is returned by check when the feed differs from its
// canonical form.
var errNotFormatted = errors.New("feed is not in canonical format, run feedkeeper format")
