// Package pipeline runs one feed update: candidate items are validated,
// cleaned, de-duplicated, ordered, rendered and merged into the document,
// which is written back only when every step succeeded.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"feedkeeper/internal/dedupe"
	"feedkeeper/internal/feed"
	"feedkeeper/internal/model"
	"feedkeeper/internal/sanitize"
)

// Stage names a step of a run.
type Stage string

// Run stages in execution order, and the terminal failure state.
const (
	StageLoad     Stage = "load"
	StageValidate Stage = "validate"
	StageSanitize Stage = "sanitize"
	StageDedupe   Stage = "dedupe"
	StageSort     Stage = "sort"
	StageRender   Stage = "render"
	StageMerge    Stage = "merge"
	StageFormat   Stage = "format"
	StagePersist  Stage = "persist"
	StageDone     Stage = "done"
	StageFailed   Stage = "failed"
)

// StageError is returned when a run fails. Stage is the step that failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// DocumentStore reads and replaces the feed document as a whole.
type DocumentStore interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, doc string) error
}

// Config is the per-run configuration.
type Config struct {
	Anchor    string
	Insertion model.InsertMode
	// Limit caps the number of items kept by a run. Non-positive means no cap.
	Limit int
	// Options returns the cleaning options of a source. Nil means defaults.
	Options func(source string) sanitize.Options
	// Seen holds identity keys recorded by earlier runs. It is not modified.
	Seen dedupe.Seen
}

// Result describes a successful run.
type Result struct {
	Document string
	Added    []model.FeedItem
	Rejected int
	Changed  bool
	Stage    Stage
}

// Pipeline runs feed updates with a fixed configuration.
type Pipeline struct {
	cfg      Config
	reporter Reporter
}

// New creates a Pipeline.
func New(cfg Config, reporter Reporter) *Pipeline {
	return &Pipeline{cfg: cfg, reporter: reporter}
}

// Run loads the document from store, merges items into it and writes the
// result back. The store is not written when any step fails or when the
// document did not change.
func (p *Pipeline) Run(ctx context.Context, store DocumentStore, items []model.FeedItem) (*Result, error) {
	doc, err := store.Read(ctx)
	if err != nil {
		return nil, p.fail(StageLoad, err)
	}
	res, err := p.Process(doc, items)
	if err != nil {
		return nil, err
	}
	if err := p.persist(ctx, store, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Process computes the merged document without touching any store.
func (p *Pipeline) Process(doc string, items []model.FeedItem) (*Result, error) {
	r := &run{p: p, res: &Result{}}

	// LOAD
	r.stage = StageLoad
	existing, err := p.load(doc)
	if err != nil {
		return nil, r.fail(err)
	}

	// VALIDATE, SANITIZE
	r.stage = StageValidate
	items = r.clean(items)

	// DEDUPE
	r.stage = StageDedupe
	seen := dedupe.NewSeen()
	for k := range existing {
		seen.Add(k)
	}
	for k := range p.cfg.Seen {
		seen.Add(k)
	}
	items = dedupe.Filter(items, seen)

	// SORT/LIMIT
	r.stage = StageSort
	items = feed.Limit(feed.SortByDateDesc(items), p.cfg.Limit)

	// RENDER
	r.stage = StageRender
	fragments := feed.RenderAll(items)

	// MERGE, FORMAT
	r.stage = StageMerge
	merged, err := feed.Merge(doc, fragments, p.cfg.Anchor, p.cfg.Insertion)
	if err != nil {
		return nil, r.fail(err)
	}

	r.stage = StageFormat
	if _, err := feed.Parse(merged); err != nil {
		return nil, r.fail(err)
	}

	r.res.Document = merged
	r.res.Added = items
	r.res.Changed = merged != doc
	r.res.Stage = StageFormat
	return r.res, nil
}

// Rebuild re-processes the items already in doc: they are cleaned,
// de-duplicated, ordered, limited and rendered again between the original
// head and tail. Only documents with items after the anchor can be rebuilt.
func (p *Pipeline) Rebuild(doc string) (*Result, error) {
	r := &run{p: p, res: &Result{}}

	r.stage = StageLoad
	if _, err := p.load(doc); err != nil {
		return nil, r.fail(err)
	}
	if p.cfg.Insertion == model.InsertBefore {
		return nil, r.fail(&feed.StructuralError{
			Op:  "rebuild",
			Err: fmt.Errorf("items before the anchor cannot be rebuilt"),
		})
	}
	head, region, tail, err := feed.Region(doc, p.cfg.Anchor)
	if err != nil {
		return nil, r.fail(err)
	}
	existing, err := feed.ParseItems(region)
	if err != nil {
		return nil, r.fail(err)
	}

	r.stage = StageValidate
	items := r.clean(existing)

	r.stage = StageDedupe
	items = dedupe.Filter(items, nil)

	r.stage = StageSort
	items = feed.Limit(feed.SortByDateDesc(items), p.cfg.Limit)

	r.stage = StageRender
	fragments := feed.RenderAll(items)

	r.stage = StageMerge
	out, err := feed.Assemble(head, p.cfg.Anchor, fragments, tail, model.InsertAfter)
	if err != nil {
		return nil, r.fail(err)
	}

	r.stage = StageFormat
	if _, err := feed.Parse(out); err != nil {
		return nil, r.fail(err)
	}

	r.res.Document = out
	r.res.Added = items
	r.res.Changed = out != doc
	r.res.Stage = StageFormat
	return r.res, nil
}

// Persist writes a processed result. Unchanged documents are not written.
func (p *Pipeline) Persist(ctx context.Context, store DocumentStore, res *Result) error {
	return p.persist(ctx, store, res)
}

func (p *Pipeline) persist(ctx context.Context, store DocumentStore, res *Result) error {
	if res.Changed {
		if err := store.Write(ctx, res.Document); err != nil {
			return p.fail(StagePersist, err)
		}
	}
	res.Stage = StageDone
	return nil
}

// load checks that doc is well formed, parseable and contains the anchor,
// and returns the identity keys of its items.
func (p *Pipeline) load(doc string) (dedupe.Seen, error) {
	if err := feed.CheckWellFormed(doc); err != nil {
		return nil, &feed.StructuralError{Op: "load", Err: err}
	}
	if p.cfg.Anchor == "" || !strings.Contains(doc, p.cfg.Anchor) {
		return nil, &feed.StructuralError{
			Op:  "load",
			Err: fmt.Errorf("%w: %q", feed.ErrAnchorNotFound, p.cfg.Anchor),
		}
	}
	return feed.ExistingKeys(doc)
}

func (p *Pipeline) fail(stage Stage, err error) error {
	serr := &StageError{Stage: stage, Err: err}
	if p.reporter != nil {
		p.reporter.Report(serr, "stage", string(stage))
	}
	return serr
}

func (p *Pipeline) options(source string) sanitize.Options {
	if p.cfg.Options == nil {
		return sanitize.Options{HTML: model.HTMLStrip}
	}
	return p.cfg.Options(source)
}

type run struct {
	p     *Pipeline
	stage Stage
	res   *Result
}

func (r *run) fail(err error) error {
	return r.p.fail(r.stage, err)
}

// clean validates, sanitizes and re-validates items. An item is checked
// again after cleaning because sanitizing can empty a required field.
func (r *run) clean(items []model.FeedItem) []model.FeedItem {
	out := make([]model.FeedItem, 0, len(items))
	for _, it := range items {
		if !r.accept(it, StageValidate) {
			continue
		}
		cleaned := Sanitize(it, r.p.options(it.Source))
		if !r.accept(cleaned, StageSanitize) {
			continue
		}
		out = append(out, cleaned)
	}
	return out
}

func (r *run) accept(it model.FeedItem, stage Stage) bool {
	err := feed.Validate(it)
	if err == nil {
		return true
	}
	r.res.Rejected++
	if r.p.reporter != nil {
		r.p.reporter.Report(err, "stage", string(stage))
	}
	return false
}

// Sanitize returns a cleaned copy of item. Dates that parse are normalized to
// RFC 822 in GMT; others keep their trimmed text.
func Sanitize(item model.FeedItem, opts sanitize.Options) model.FeedItem {
	out := model.FeedItem{
		Title:       sanitize.Title(item.Title, opts),
		Link:        sanitize.Link(item.Link),
		Description: sanitize.Description(item.Description, opts),
		GUID:        strings.TrimSpace(sanitize.RemoveControlCharacters(sanitize.NormalizeWhitespace(sanitize.ValidXML(item.GUID)))),
		Source:      strings.TrimSpace(sanitize.Title(item.Source, sanitize.Options{})),
	}
	out.PublishedAt = strings.TrimSpace(sanitize.RemoveControlCharacters(sanitize.ValidXML(item.PublishedAt)))
	if d, err := feed.NormalizeDate(out.PublishedAt); err == nil {
		out.PublishedAt = d
	}
	for _, c := range item.Categories {
		if c = sanitize.Category(c, opts); c != "" {
			out.Categories = append(out.Categories, c)
		}
	}
	return out
}
