package check

import (
	"context"
	"sync"
	"time"

	"github.com/jackzampolin/sourcecheck/internal/types"
	"github.com/jackzampolin/sourcecheck/internal/webbook"
)

// MockWebBook is a scripted WebBook for tests. Nil funcs return one book,
// two chapters and some text. Delay is applied before every call and honors
// ctx cancellation.
type MockWebBook struct {
	SearchFunc      func(src *types.BookSource, keyword string) ([]types.SearchBook, error)
	ExploreFunc     func(src *types.BookSource, url string) ([]types.SearchBook, error)
	BookInfoFunc    func(src *types.BookSource, book *types.Book) error
	ChapterListFunc func(src *types.BookSource, book *types.Book) ([]types.Chapter, error)
	ContentFunc     func(src *types.BookSource, chapter types.Chapter, nextURL string) (string, error)
	Delay           func(src *types.BookSource) time.Duration

	mu    sync.Mutex
	calls map[string]int
}

var _ webbook.WebBook = (*MockWebBook)(nil)

// Calls returns how many times op was called ("search", "explore", "info",
// "toc", "content").
func (m *MockWebBook) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockWebBook) enter(ctx context.Context, src *types.BookSource, op string) error {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
	m.mu.Unlock()

	if m.Delay != nil {
		if d := m.Delay(src); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return ctx.Err()
}

func mockBooks(src *types.BookSource) []types.SearchBook {
	return []types.SearchBook{{Name: "Book", BookURL: src.URL + "/book", Origin: src.URL}}
}

// Search implements webbook.WebBook.
func (m *MockWebBook) Search(ctx context.Context, src *types.BookSource, keyword string) ([]types.SearchBook, error) {
	if err := m.enter(ctx, src, "search"); err != nil {
		return nil, err
	}
	if m.SearchFunc != nil {
		return m.SearchFunc(src, keyword)
	}
	return mockBooks(src), nil
}

// Explore implements webbook.WebBook.
func (m *MockWebBook) Explore(ctx context.Context, src *types.BookSource, url string) ([]types.SearchBook, error) {
	if err := m.enter(ctx, src, "explore"); err != nil {
		return nil, err
	}
	if m.ExploreFunc != nil {
		return m.ExploreFunc(src, url)
	}
	return mockBooks(src), nil
}

// BookInfo implements webbook.WebBook.
func (m *MockWebBook) BookInfo(ctx context.Context, src *types.BookSource, book *types.Book) error {
	if err := m.enter(ctx, src, "info"); err != nil {
		return err
	}
	if m.BookInfoFunc != nil {
		return m.BookInfoFunc(src, book)
	}
	book.TocURL = book.BookURL + "/toc"
	return nil
}

// ChapterList implements webbook.WebBook.
func (m *MockWebBook) ChapterList(ctx context.Context, src *types.BookSource, book *types.Book) ([]types.Chapter, error) {
	if err := m.enter(ctx, src, "toc"); err != nil {
		return nil, err
	}
	if m.ChapterListFunc != nil {
		return m.ChapterListFunc(src, book)
	}
	return []types.Chapter{
		{Title: "Chapter 1", URL: book.BookURL + "/1", Index: 0},
		{Title: "Chapter 2", URL: book.BookURL + "/2", Index: 1},
	}, nil
}

// Content implements webbook.WebBook.
func (m *MockWebBook) Content(ctx context.Context, src *types.BookSource, book *types.Book, chapter types.Chapter, nextURL string, persist bool) (string, error) {
	if err := m.enter(ctx, src, "content"); err != nil {
		return "", err
	}
	if m.ContentFunc != nil {
		return m.ContentFunc(src, chapter, nextURL)
	}
	return "Chapter 1\nOnce upon a time.", nil
}
