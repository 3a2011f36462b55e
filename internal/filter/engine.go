// Package filter implements the keyword and category matching engine used to
// select upstream items.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"feedkeeper/internal/model"
)

// Kind is the kind of a filter rule.
type Kind string

// Rule kinds.
const (
	Include   Kind = "include"
	Exclude   Kind = "exclude"
	IncludeRe Kind = "include_re"
	ExcludeRe Kind = "exclude_re"
	Category  Kind = "category"
)

// Scope selects which item text a keyword rule looks at.
type Scope string

// Rule scopes.
const (
	ScopeAll     Scope = "all"
	ScopeTitle   Scope = "title"
	ScopeContent Scope = "content"
)

// ParseScope maps a configured scope name to a Scope. Empty means ScopeAll.
func ParseScope(name string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(name))) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeTitle:
		return ScopeTitle, nil
	case ScopeContent:
		return ScopeContent, nil
	}
	return "", fmt.Errorf("invalid scope %q, use: all, title, content", name)
}

// Rule is a single filter rule.
type Rule struct {
	Kind  Kind
	Scope Scope
	Value string
}

type compiled struct {
	Rule
	re *regexp.Regexp
}

// Matcher evaluates a fixed set of rules.
type Matcher struct {
	rules []compiled
}

// New compiles rules into a Matcher. An invalid pattern is an error.
func New(rules []Rule) (*Matcher, error) {
	m := &Matcher{rules: make([]compiled, 0, len(rules))}
	for _, r := range rules {
		c := compiled{Rule: r}
		switch r.Kind {
		case IncludeRe, ExcludeRe:
			re, err := regexp.Compile("(?i)" + r.Value)
			if err != nil {
				return nil, fmt.Errorf("invalid regex %q: %w", r.Value, err)
			}
			c.re = re
		case Include, Exclude, Category:
			c.Value = strings.ToLower(strings.TrimSpace(r.Value))
		default:
			return nil, fmt.Errorf("unknown rule kind %q", r.Kind)
		}
		m.rules = append(m.rules, c)
	}
	return m, nil
}

// Build collects the rule lists of one upstream source. Keyword rules look
// at the text selected by scope; an empty scope means ScopeAll.
func Build(scope Scope, include, exclude, includeRe, excludeRe, categories []string) []Rule {
	if scope == "" {
		scope = ScopeAll
	}
	var rules []Rule
	add := func(kind Kind, values []string) {
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				continue
			}
			rules = append(rules, Rule{Kind: kind, Scope: scope, Value: v})
		}
	}
	add(Include, include)
	add(Exclude, exclude)
	add(IncludeRe, includeRe)
	add(ExcludeRe, excludeRe)
	add(Category, categories)
	return rules
}

// Match checks whether an item passes the rules.
// Without rules every item passes.
// Include rules use OR logic (at least one must match).
// Exclude rules use AND logic (none must match).
// Category rules form their own OR group over the item's categories.
func (m *Matcher) Match(item model.FeedItem) bool {
	var (
		hasIncludes, anyInclude    bool
		hasCategories, anyCategory bool
	)

	for _, r := range m.rules {
		switch r.Kind {
		case Include, IncludeRe:
			hasIncludes = true
			if r.matches(item) {
				anyInclude = true
			}
		case Exclude, ExcludeRe:
			if r.matches(item) {
				return false
			}
		case Category:
			hasCategories = true
			if hasCategory(item, r.Value) {
				anyCategory = true
			}
		}
	}

	if hasIncludes && !anyInclude {
		return false
	}
	if hasCategories && !anyCategory {
		return false
	}
	return true
}

// Apply returns the items that pass, in their original order.
func (m *Matcher) Apply(items []model.FeedItem) []model.FeedItem {
	out := make([]model.FeedItem, 0, len(items))
	for _, it := range items {
		if m.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

func (r compiled) matches(item model.FeedItem) bool {
	text := textForScope(item, r.Scope)
	if r.re != nil {
		return r.re.MatchString(text)
	}
	return strings.Contains(text, r.Value)
}

func hasCategory(item model.FeedItem, want string) bool {
	for _, c := range item.Categories {
		if strings.ToLower(strings.TrimSpace(c)) == want {
			return true
		}
	}
	return false
}

func textForScope(item model.FeedItem, scope Scope) string {
	switch scope {
	case ScopeTitle:
		return strings.ToLower(item.Title)
	case ScopeContent:
		return strings.ToLower(item.Description)
	default:
		return strings.ToLower(item.Title + " " + item.Description)
	}
}

// ValidateRegex checks whether a pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	_, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return nil
}
