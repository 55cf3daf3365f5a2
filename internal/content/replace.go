package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/jackzampolin/sourcecheck/internal/types"
)

// DefaultRuleTimeout bounds a regex rule that declares no timeout.
const DefaultRuleTimeout = 3 * time.Second

// ReplacementError reports one rule that failed to apply. It is non-fatal:
// the text passes to the next rule unchanged.
type ReplacementError struct {
	Rule string
	Err  error
}

func (e *ReplacementError) Error() string {
	return fmt.Sprintf("replace rule %q failed: %v", e.Rule, e.Err)
}

func (e *ReplacementError) Unwrap() error { return e.Err }

type compiledRule struct {
	rule types.ReplaceRule
	re   *regexp2.Regexp
	err  error
}

// RuleSet is an immutable, ordered snapshot of active replacement rules.
// A nil RuleSet is empty.
type RuleSet struct {
	rules []compiledRule
}

// NewRuleSet keeps the enabled rules with a pattern, orders them by Order
// then ID, and compiles the regex ones. A rule whose regex does not compile
// stays in the set and reports its error each time it is applied.
func NewRuleSet(rules []types.ReplaceRule) *RuleSet {
	active := make([]types.ReplaceRule, 0, len(rules))
	for _, r := range rules {
		if r.Active() {
			active = append(active, r)
		}
	}
	types.SortRules(active)

	rs := &RuleSet{rules: make([]compiledRule, len(active))}
	for i, r := range active {
		cr := compiledRule{rule: r}
		if r.IsRegex {
			cr.re, cr.err = regexp2.Compile(r.Pattern, regexp2.None)
			if cr.re != nil {
				cr.re.MatchTimeout = ruleTimeout(r)
			}
		}
		rs.rules[i] = cr
	}
	return rs
}

func ruleTimeout(r types.ReplaceRule) time.Duration {
	if r.TimeoutMillis > 0 {
		return time.Duration(r.TimeoutMillis) * time.Millisecond
	}
	return DefaultRuleTimeout
}

// Len returns the number of rules in the snapshot.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Rules returns a copy of the rules in application order.
func (rs *RuleSet) Rules() []types.ReplaceRule {
	if rs == nil {
		return nil
	}
	out := make([]types.ReplaceRule, len(rs.rules))
	for i, cr := range rs.rules {
		out[i] = cr.rule
	}
	return out
}

// Apply runs every rule in order. Failed rules are skipped and returned.
func (rs *RuleSet) Apply(text string) (string, []error) {
	if rs == nil {
		return text, nil
	}
	var errs []error
	for _, cr := range rs.rules {
		out, err := cr.apply(text)
		if err != nil {
			errs = append(errs, &ReplacementError{Rule: ruleName(cr.rule), Err: err})
			continue
		}
		text = out
	}
	return text, errs
}

func (cr compiledRule) apply(text string) (string, error) {
	if !cr.rule.IsRegex {
		return strings.ReplaceAll(text, cr.rule.Pattern, cr.rule.Replacement), nil
	}
	if cr.err != nil {
		return "", cr.err
	}
	return cr.re.Replace(text, cr.rule.Replacement, -1, -1)
}

func ruleName(r types.ReplaceRule) string {
	if r.Name != "" {
		return r.Name
	}
	return r.Pattern
}
