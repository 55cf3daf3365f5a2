package types

import (
	"sort"
	"strings"
)

// ReplaceRule is a pattern to replacement substitution applied to chapter
// titles, chapter content, or both.
type ReplaceRule struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Group         string `json:"group,omitempty"`
	Pattern       string `json:"pattern"`
	Replacement   string `json:"replacement"`
	IsRegex       bool   `json:"isRegex"`
	Enabled       bool   `json:"isEnabled"`
	Scope         string `json:"scope,omitempty"`
	ExcludeScope  string `json:"excludeScope,omitempty"`
	ScopeTitle    bool   `json:"scopeTitle"`
	ScopeContent  bool   `json:"scopeContent"`
	Order         int    `json:"order"`
	TimeoutMillis int    `json:"timeoutMillisecond"`
}

// RuleScope selects title or content rules.
type RuleScope int

const (
	ScopeContent RuleScope = iota
	ScopeTitle
)

func (s RuleScope) String() string {
	if s == ScopeTitle {
		return "title"
	}
	return "content"
}

// Covers reports whether the rule targets the given scope.
func (r *ReplaceRule) Covers(scope RuleScope) bool {
	if scope == ScopeTitle {
		return r.ScopeTitle
	}
	return r.ScopeContent
}

// AppliesTo reports whether the rule applies to a book from origin.
// A blank Scope is global. ExcludeScope always wins.
func (r *ReplaceRule) AppliesTo(bookName, origin string) bool {
	if scopeMatches(r.ExcludeScope, bookName, origin) {
		return false
	}
	if strings.TrimSpace(r.Scope) == "" {
		return true
	}
	return scopeMatches(r.Scope, bookName, origin)
}

func scopeMatches(scope, bookName, origin string) bool {
	for _, s := range splitTags.Split(scope, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if (bookName != "" && s == bookName) || (origin != "" && s == origin) {
			return true
		}
	}
	return false
}

// Active reports whether the rule takes part in replacement.
func (r *ReplaceRule) Active() bool {
	return r.Enabled && r.Pattern != ""
}

// SortRules orders rules by Order then ID.
func SortRules(rules []ReplaceRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Order != rules[j].Order {
			return rules[i].Order < rules[j].Order
		}
		return rules[i].ID < rules[j].ID
	})
}
