// Package webbook runs a book source's scraping rules against its website:
// search, discovery, book detail, table of contents and chapter text.
package webbook

import (
	"context"
	"errors"

	"github.com/jackzampolin/sourcecheck/internal/types"
)

var (
	// ErrEmptyToc is returned when a book's table of contents has no chapters.
	ErrEmptyToc = errors.New("table of contents is empty")
	// ErrEmptyContent is returned when a chapter yields no text.
	ErrEmptyContent = errors.New("chapter content is empty")
)

// WebBook is the scraping capability used by the source checker.
// Every operation honors ctx cancellation.
type WebBook interface {
	// Search runs the source's search rule with keyword.
	Search(ctx context.Context, src *types.BookSource, keyword string) ([]types.SearchBook, error)
	// Explore runs the source's discovery rule against one endpoint URL.
	Explore(ctx context.Context, src *types.BookSource, url string) ([]types.SearchBook, error)
	// BookInfo fills in the book detail, including its TocURL.
	BookInfo(ctx context.Context, src *types.BookSource, book *types.Book) error
	// ChapterList returns the table of contents.
	ChapterList(ctx context.Context, src *types.BookSource, book *types.Book) ([]types.Chapter, error)
	// Content returns a chapter's raw text. nextURL is the following
	// chapter's URL and bounds multi-page chapters. When persist is false the
	// text is not kept in the chapter cache.
	Content(ctx context.Context, src *types.BookSource, book *types.Book, chapter types.Chapter, nextURL string, persist bool) (string, error)
}
