package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"feedkeeper/internal/filter"
	"feedkeeper/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Default endpoints of the built-in collectors.
const (
	DefaultCVEEndpoint    = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	DefaultRetroFeedURL   = "https://thomas-iniguez-visioli.github.io/retro-weekly/feed.json"
	defaultResultsPerPage = 200
	defaultMaxResults     = 100
)

// Settings is the feed settings file. It is read once per run and rewritten
// as a whole only after a successful run.
type Settings struct {
	AnchorDelimiter    string           `json:"breakDelimiter" yaml:"breakDelimiter"`
	Insertion          model.InsertMode `json:"insertion,omitempty" yaml:"insertion,omitempty"`
	RetentionLimit     int              `json:"processingLimit,omitempty" yaml:"processingLimit,omitempty"`
	Blacklist          []string         `json:"blacklist,omitempty" yaml:"blacklist,omitempty"`
	HTML               model.HTMLMode   `json:"html,omitempty" yaml:"html,omitempty"`
	LastCheckTimestamp int64            `json:"lastCheckTimestamp,omitempty" yaml:"lastCheckTimestamp,omitempty"`
	LastFeedHash       string           `json:"lastFeedHash,omitempty" yaml:"lastFeedHash,omitempty"`

	CVE           CVESettings    `json:"cve" yaml:"cve"`
	Retrospective RetroSettings  `json:"retrospective" yaml:"retrospective"`
	Manual        ManualSettings `json:"manual" yaml:"manual"`
	Feeds         []UpstreamFeed `json:"feeds,omitempty" yaml:"feeds,omitempty"`
	Scrapers      []Scraper      `json:"scrapers,omitempty" yaml:"scrapers,omitempty"`
}

// SourceOptions are the per-source sanitization settings.
type SourceOptions struct {
	Blacklist []string       `json:"blacklist,omitempty" yaml:"blacklist,omitempty"`
	HTML      model.HTMLMode `json:"html,omitempty" yaml:"html,omitempty"`
}

// CVESettings configures the NVD collector.
type CVESettings struct {
	SourceOptions      `yaml:",inline"`
	Enabled            bool   `json:"enabled" yaml:"enabled"`
	APIEndpoint        string `json:"apiEndpoint,omitempty" yaml:"apiEndpoint,omitempty"`
	APIKey             string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	ResultsPerPage     int    `json:"resultsPerPage,omitempty" yaml:"resultsPerPage,omitempty"`
	MaxResults         int    `json:"maxResults,omitempty" yaml:"maxResults,omitempty"`
	LastCheckTimestamp int64  `json:"lastCheckTimestamp,omitempty" yaml:"lastCheckTimestamp,omitempty"`
}

// RetroSettings configures the retrospective digest collector.
type RetroSettings struct {
	SourceOptions `yaml:",inline"`
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	URL           string `json:"url,omitempty" yaml:"url,omitempty"`
	LastSeen      string `json:"lastSeen,omitempty" yaml:"lastSeen,omitempty"`
}

// ManualSettings configures the manual post collector.
type ManualSettings struct {
	SourceOptions `yaml:",inline"`
	Enabled       bool `json:"enabled" yaml:"enabled"`
}

// UpstreamFeed is an RSS/Atom/JSON feed merged through keyword filters.
type UpstreamFeed struct {
	SourceOptions `yaml:",inline"`
	Name          string   `json:"name" yaml:"name"`
	URL           string   `json:"url" yaml:"url"`
	Include       []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude       []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	// Scope selects the text keyword rules match: all, title or content.
	Scope         string   `json:"scope,omitempty" yaml:"scope,omitempty"`
	IncludeRe     []string `json:"includeRe,omitempty" yaml:"includeRe,omitempty"`
	ExcludeRe     []string `json:"excludeRe,omitempty" yaml:"excludeRe,omitempty"`
	Categories    []string `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// Scraper extracts items from an HTML page with CSS selectors.
type Scraper struct {
	SourceOptions `yaml:",inline"`
	Name          string `json:"name" yaml:"name"`
	URL           string `json:"url" yaml:"url"`
	Item          string `json:"item" yaml:"item"`
	Title         string `json:"title" yaml:"title"`
	Link          string `json:"link" yaml:"link"`
	Date          string `json:"date" yaml:"date"`
	DateAttr      string `json:"dateAttr,omitempty" yaml:"dateAttr,omitempty"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Source names of the built-in collectors.
const (
	SourceCVE           = "cve"
	SourceRetrospective = "retrospective"
	SourceManual        = "manual"
)

// LoadSettings reads the settings file. Files ending in .yaml or .yml are
// decoded as YAML, anything else as JSON.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from process configuration
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if isYAML(path) {
		err = yaml.Unmarshal(data, &s)
	} else {
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", path, err)
	}

	setDefaults(&s)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSettings atomically replaces the settings file with s.
func SaveSettings(path string, s *Settings) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		err = enc.Encode(s)
		data = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Validate checks the fields a run cannot do without.
func (s *Settings) Validate() error {
	if s.AnchorDelimiter == "" {
		return fmt.Errorf("breakDelimiter is required")
	}
	switch s.Insertion {
	case model.InsertAfter, model.InsertBefore:
	default:
		return fmt.Errorf("invalid insertion %q, use: after, before", s.Insertion)
	}
	for _, mode := range s.htmlModes() {
		switch mode {
		case "", model.HTMLStrip, model.HTMLEscape, model.HTMLPreserve:
		default:
			return fmt.Errorf("invalid html mode %q, use: strip, escape, preserve", mode)
		}
	}
	for _, f := range s.Feeds {
		if err := f.validate(); err != nil {
			return fmt.Errorf("feed %s: %w", f.Name, err)
		}
	}
	return nil
}

func (f UpstreamFeed) validate() error {
	if _, err := filter.ParseScope(f.Scope); err != nil {
		return err
	}
	for _, p := range append(append([]string{}, f.IncludeRe...), f.ExcludeRe...) {
		if err := filter.ValidateRegex(p); err != nil {
			return fmt.Errorf("pattern %q: %w", p, err)
		}
	}
	return nil
}

// For returns the effective options of a source: the global blacklist
// followed by the source's own phrases, and the source's HTML mode falling
// back to the global one.
func (s *Settings) For(source string) SourceOptions {
	own := s.sourceOptions(source)
	out := SourceOptions{HTML: own.HTML}
	if out.HTML == "" {
		out.HTML = s.HTML
	}
	if out.HTML == "" {
		out.HTML = model.HTMLStrip
	}
	out.Blacklist = append(append([]string{}, s.Blacklist...), own.Blacklist...)
	return out
}

func (s *Settings) sourceOptions(source string) SourceOptions {
	switch source {
	case SourceCVE:
		return s.CVE.SourceOptions
	case SourceRetrospective:
		return s.Retrospective.SourceOptions
	case SourceManual:
		return s.Manual.SourceOptions
	}
	for _, f := range s.Feeds {
		if f.Name == source {
			return f.SourceOptions
		}
	}
	for _, sc := range s.Scrapers {
		if sc.Name == source {
			return sc.SourceOptions
		}
	}
	return SourceOptions{}
}

func (s *Settings) htmlModes() []model.HTMLMode {
	modes := []model.HTMLMode{s.HTML, s.CVE.HTML, s.Retrospective.HTML, s.Manual.HTML}
	for _, f := range s.Feeds {
		modes = append(modes, f.HTML)
	}
	for _, sc := range s.Scrapers {
		modes = append(modes, sc.HTML)
	}
	return modes
}

func setDefaults(s *Settings) {
	if s.Insertion == "" {
		s.Insertion = model.InsertAfter
	}
	if s.CVE.APIEndpoint == "" {
		s.CVE.APIEndpoint = DefaultCVEEndpoint
	}
	if s.CVE.ResultsPerPage <= 0 {
		s.CVE.ResultsPerPage = defaultResultsPerPage
	}
	if s.CVE.MaxResults <= 0 {
		s.CVE.MaxResults = defaultMaxResults
	}
	if s.Retrospective.URL == "" {
		s.Retrospective.URL = DefaultRetroFeedURL
	}
	if s.Manual.HTML == "" {
		s.Manual.HTML = model.HTMLPreserve
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
