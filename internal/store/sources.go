package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackzampolin/sourcecheck/internal/types"
)

// SourceFilter narrows ListSources. Zero values match everything.
type SourceFilter struct {
	// Query matches name or URL as a substring.
	Query string
	// Tag matches a tag or a group entry exactly.
	Tag string
	// Enabled restricts to enabled or disabled sources.
	Enabled *bool
}

const sourceColumns = `data`

// GetSource loads one source by URL.
func (s *Store) GetSource(ctx context.Context, url string) (*types.BookSource, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM book_sources WHERE url = ?`, url)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %s: %w", url, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get source %s: %w", url, err)
	}
	return src, nil
}

// UpdateSource inserts or replaces the whole record.
func (s *Store) UpdateSource(ctx context.Context, src *types.BookSource) error {
	if err := upsertSource(ctx, s.db, src); err != nil {
		return err
	}
	s.publish(TopicSources, src.URL)
	return nil
}

// SaveSources upserts many sources in one transaction.
func (s *Store) SaveSources(ctx context.Context, sources []*types.BookSource) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, src := range sources {
		if err := upsertSource(ctx, tx, src); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.publish(TopicSources)
	return nil
}

// ListSources returns sources ordered by custom order then name.
func (s *Store) ListSources(ctx context.Context, f SourceFilter) ([]*types.BookSource, error) {
	q := `SELECT ` + sourceColumns + ` FROM book_sources WHERE 1=1`
	var args []any
	if f.Query != "" {
		q += ` AND (name LIKE ? OR url LIKE ?)`
		like := "%" + f.Query + "%"
		args = append(args, like, like)
	}
	if f.Enabled != nil {
		q += ` AND enabled = ?`
		args = append(args, boolInt(*f.Enabled))
	}
	q += ` ORDER BY custom_order, name, url`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []*types.BookSource
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if f.Tag != "" && !src.HasTag(f.Tag) && !types.ParseTags(src.Group).Has(f.Tag) {
			continue
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// SourceURLs returns the URLs of the sources matching f, in list order.
func (s *Store) SourceURLs(ctx context.Context, f SourceFilter) ([]string, error) {
	sources, err := s.ListSources(ctx, f)
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(sources))
	for i, src := range sources {
		urls[i] = src.URL
	}
	return urls, nil
}

// DeleteSources removes the given sources. Unknown URLs are ignored.
func (s *Store) DeleteSources(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}
	q := `DELETE FROM book_sources WHERE url IN (` + placeholders(len(urls)) + `)`
	if _, err := s.db.ExecContext(ctx, q, anySlice(urls)...); err != nil {
		return fmt.Errorf("delete sources: %w", err)
	}
	s.publish(TopicSources, urls...)
	return nil
}

// SetSourcesEnabled flips the enabled flag on the given sources.
func (s *Store) SetSourcesEnabled(ctx context.Context, enabled bool, urls ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, url := range urls {
		src, err := scanSource(tx.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM book_sources WHERE url = ?`, url))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("get source %s: %w", url, err)
		}
		src.Enabled = enabled
		if err := upsertSource(ctx, tx, src); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.publish(TopicSources, urls...)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func upsertSource(ctx context.Context, db execer, src *types.BookSource) error {
	if strings.TrimSpace(src.URL) == "" {
		return fmt.Errorf("source url is required")
	}
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode source %s: %w", src.URL, err)
	}
	tags, err := json.Marshal(src.Tags)
	if err != nil {
		return fmt.Errorf("encode tags %s: %w", src.URL, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO book_sources (url, name, grp, tags, enabled, custom_order, respond_time, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			name = excluded.name,
			grp = excluded.grp,
			tags = excluded.tags,
			enabled = excluded.enabled,
			custom_order = excluded.custom_order,
			respond_time = excluded.respond_time,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		src.URL, src.Name, src.Group, string(tags), boolInt(src.Enabled), src.CustomOrder,
		src.RespondTime, string(data), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save source %s: %w", src.URL, err)
	}
	return nil
}

func scanSource(row scanner) (*types.BookSource, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		return nil, err
	}
	var src types.BookSource
	if err := json.Unmarshal([]byte(data), &src); err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}
	return &src, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
