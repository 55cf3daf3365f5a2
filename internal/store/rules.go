package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackzampolin/sourcecheck/internal/types"
)

// GroupPrefix switches ListRules from text search to group filtering.
const GroupPrefix = "group:"

const ruleColumns = `id, name, grp, pattern, replacement, is_regex, enabled, scope, exclude_scope,
	scope_title, scope_content, sort_order, timeout_ms`

// ListRules returns rules ordered by order then id. A query starting with
// "group:" filters by group; any other non-blank query matches name, pattern
// or replacement text.
func (s *Store) ListRules(ctx context.Context, query string) ([]types.ReplaceRule, error) {
	q := `SELECT ` + ruleColumns + ` FROM replace_rules`
	var args []any
	switch query = strings.TrimSpace(query); {
	case strings.HasPrefix(query, GroupPrefix):
		q += ` WHERE grp LIKE ?`
		args = append(args, "%"+strings.TrimSpace(strings.TrimPrefix(query, GroupPrefix))+"%")
	case query != "":
		q += ` WHERE name LIKE ? OR pattern LIKE ? OR replacement LIKE ?`
		like := "%" + query + "%"
		args = append(args, like, like, like)
	}
	q += ` ORDER BY sort_order, id`
	return s.queryRules(ctx, s.db, q, args...)
}

// ListEnabledReplaceRules returns the enabled, non-empty rules covering scope
// that apply to bookName from origin, in order.
func (s *Store) ListEnabledReplaceRules(ctx context.Context, scope types.RuleScope, bookName, origin string) ([]types.ReplaceRule, error) {
	col := "scope_content"
	if scope == types.ScopeTitle {
		col = "scope_title"
	}
	q := `SELECT ` + ruleColumns + ` FROM replace_rules
		WHERE enabled = 1 AND pattern <> '' AND ` + col + ` = 1
		ORDER BY sort_order, id`
	all, err := s.queryRules(ctx, s.db, q)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.AppliesTo(bookName, origin) {
			out = append(out, r)
		}
	}
	return out, nil
}

// RuleGroups returns the distinct groups, split on the group delimiters.
func (s *Store) RuleGroups(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT grp FROM replace_rules WHERE grp <> ''`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups types.TagSet
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		for _, part := range types.ParseTags(g) {
			groups.Add(part)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(groups)
	return groups, nil
}

// GetRule loads one rule.
func (s *Store) GetRule(ctx context.Context, id int64) (*types.ReplaceRule, error) {
	rules, err := s.queryRules(ctx, s.db, `SELECT `+ruleColumns+` FROM replace_rules WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	return &rules[0], nil
}

// SaveRule inserts a rule when ID is zero and updates it otherwise. New rules
// go to the bottom of the list.
func (s *Store) SaveRule(ctx context.Context, r *types.ReplaceRule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := saveRule(ctx, tx, r); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.publish(TopicRules, strconv.FormatInt(r.ID, 10))
	return nil
}

// ImportRules inserts rules in one transaction. Incoming ids are ignored so
// an import never overwrites existing rules.
func (s *Store) ImportRules(ctx context.Context, rules []types.ReplaceRule) ([]types.ReplaceRule, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	out := make([]types.ReplaceRule, len(rules))
	for i := range rules {
		r := rules[i]
		r.ID = 0
		r.Order = 0
		if err := saveRule(ctx, tx, &r); err != nil {
			return nil, err
		}
		out[i] = r
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.publish(TopicRules)
	return out, nil
}

// DeleteRules removes the given rules.
func (s *Store) DeleteRules(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	q := `DELETE FROM replace_rules WHERE id IN (` + placeholders(len(ids)) + `)`
	if _, err := s.db.ExecContext(ctx, q, anySlice(ids)...); err != nil {
		return fmt.Errorf("delete rules: %w", err)
	}
	s.publish(TopicRules, idKeys(ids)...)
	return nil
}

// SetRulesEnabled enables or disables the given rules.
func (s *Store) SetRulesEnabled(ctx context.Context, enabled bool, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	q := `UPDATE replace_rules SET enabled = ? WHERE id IN (` + placeholders(len(ids)) + `)`
	args := append([]any{boolInt(enabled)}, anySlice(ids)...)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("set rules enabled: %w", err)
	}
	s.publish(TopicRules, idKeys(ids)...)
	return nil
}

// MoveRulesToTop places the given rules, in the given order, before all others.
func (s *Store) MoveRulesToTop(ctx context.Context, ids ...int64) error {
	return s.moveRules(ctx, `SELECT COALESCE(MIN(sort_order), 0) FROM replace_rules`, func(bound int64, i int) int64 {
		return bound - int64(len(ids)) + int64(i)
	}, ids)
}

// MoveRulesToBottom places the given rules, in the given order, after all others.
func (s *Store) MoveRulesToBottom(ctx context.Context, ids ...int64) error {
	return s.moveRules(ctx, `SELECT COALESCE(MAX(sort_order), 0) FROM replace_rules`, func(bound int64, i int) int64 {
		return bound + 1 + int64(i)
	}, ids)
}

func (s *Store) moveRules(ctx context.Context, boundQuery string, order func(bound int64, i int) int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var bound int64
	if err := tx.QueryRowContext(ctx, boundQuery).Scan(&bound); err != nil {
		return fmt.Errorf("order bound: %w", err)
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE replace_rules SET sort_order = ? WHERE id = ?`, order(bound, i), id); err != nil {
			return fmt.Errorf("move rule %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.publish(TopicRules, idKeys(ids)...)
	return nil
}

// RenumberRules rewrites order as 1..n following the current ordering.
func (s *Store) RenumberRules(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rules, err := s.queryRules(ctx, tx, `SELECT `+ruleColumns+` FROM replace_rules ORDER BY sort_order, id`)
	if err != nil {
		return err
	}
	for i, r := range rules {
		if _, err := tx.ExecContext(ctx, `UPDATE replace_rules SET sort_order = ? WHERE id = ?`, i+1, r.ID); err != nil {
			return fmt.Errorf("renumber rule %d: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.publish(TopicRules)
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type txer interface {
	execer
	querier
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func saveRule(ctx context.Context, tx txer, r *types.ReplaceRule) error {
	if r.Pattern == "" {
		return fmt.Errorf("rule pattern is required")
	}
	if r.ID == 0 {
		if r.Order == 0 {
			var max int
			if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order), 0) FROM replace_rules`).Scan(&max); err != nil {
				return fmt.Errorf("order bound: %w", err)
			}
			r.Order = max + 1
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO replace_rules (name, grp, pattern, replacement, is_regex, enabled, scope, exclude_scope,
				scope_title, scope_content, sort_order, timeout_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Name, r.Group, r.Pattern, r.Replacement, boolInt(r.IsRegex), boolInt(r.Enabled), r.Scope,
			r.ExcludeScope, boolInt(r.ScopeTitle), boolInt(r.ScopeContent), r.Order, r.TimeoutMillis,
		)
		if err != nil {
			return fmt.Errorf("insert rule: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert rule id: %w", err)
		}
		r.ID = id
		return nil
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE replace_rules SET name = ?, grp = ?, pattern = ?, replacement = ?, is_regex = ?, enabled = ?,
			scope = ?, exclude_scope = ?, scope_title = ?, scope_content = ?, sort_order = ?, timeout_ms = ?
		WHERE id = ?`,
		r.Name, r.Group, r.Pattern, r.Replacement, boolInt(r.IsRegex), boolInt(r.Enabled), r.Scope,
		r.ExcludeScope, boolInt(r.ScopeTitle), boolInt(r.ScopeContent), r.Order, r.TimeoutMillis, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule %d: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %d: %w", r.ID, ErrNotFound)
	}
	return nil
}

func (s *Store) queryRules(ctx context.Context, db querier, q string, args ...any) ([]types.ReplaceRule, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []types.ReplaceRule
	for rows.Next() {
		var r types.ReplaceRule
		var isRegex, enabled, scopeTitle, scopeContent int
		err := rows.Scan(&r.ID, &r.Name, &r.Group, &r.Pattern, &r.Replacement, &isRegex, &enabled,
			&r.Scope, &r.ExcludeScope, &scopeTitle, &scopeContent, &r.Order, &r.TimeoutMillis)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.IsRegex = isRegex == 1
		r.Enabled = enabled == 1
		r.ScopeTitle = scopeTitle == 1
		r.ScopeContent = scopeContent == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

func idKeys(ids []int64) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = strconv.FormatInt(id, 10)
	}
	return keys
}

