package webbook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jackzampolin/sourcecheck/internal/types"
)

// Defaults applied by New for zero Config fields. Retries of zero is kept
// as is; DefaultRetries is the configured default.
const (
	DefaultTimeout      = 15 * time.Second
	DefaultRetries      = 2
	DefaultRetryDelay   = 500 * time.Millisecond
	DefaultUserAgent    = "Mozilla/5.0 (Linux; Android 12) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36"
	DefaultMaxBodyBytes = 8 << 20
	maxContentPages     = 16
)

// Config configures the HTTP scraper.
type Config struct {
	HTTPClient   *http.Client
	Timeout      time.Duration // per request
	Retries      int
	RetryDelay   time.Duration
	UserAgent    string
	MaxBodyBytes int64
	// CacheSize bounds the chapter text cache. Zero disables it.
	CacheSize int
	Logger    *slog.Logger
}

// Client implements WebBook over HTTP.
type Client struct {
	http         *http.Client
	timeout      time.Duration
	retries      int
	retryDelay   time.Duration
	userAgent    string
	maxBodyBytes int64
	chapters     *lru.Cache[string, string]
	logger       *slog.Logger
}

var _ WebBook = (*Client)(nil)

// New creates a Client.
func New(cfg Config) (*Client, error) {
	c := &Client{
		http:         cfg.HTTPClient,
		timeout:      cfg.Timeout,
		retries:      cfg.Retries,
		retryDelay:   cfg.RetryDelay,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		logger:       cfg.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.retries < 0 {
		c.retries = 0
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.maxBodyBytes <= 0 {
		c.maxBodyBytes = DefaultMaxBodyBytes
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, string](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("chapter cache: %w", err)
		}
		c.chapters = cache
	}
	return c, nil
}

// Search implements WebBook.
func (c *Client) Search(ctx context.Context, src *types.BookSource, keyword string) ([]types.SearchBook, error) {
	if strings.TrimSpace(src.SearchURL) == "" {
		return nil, fmt.Errorf("source %s has no search url", src.URL)
	}
	p, err := c.fetch(ctx, src, expandTemplate(src.SearchURL, keyword, 1))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return bookList(src, p, src.RuleSearch.BookListRule)
}

// Explore implements WebBook.
func (c *Client) Explore(ctx context.Context, src *types.BookSource, exploreURL string) ([]types.SearchBook, error) {
	p, err := c.fetch(ctx, src, expandTemplate(exploreURL, "", 1))
	if err != nil {
		return nil, fmt.Errorf("explore: %w", err)
	}
	rule := src.RuleExplore
	if rule.BookList == "" {
		rule = src.RuleSearch.BookListRule
	}
	return bookList(src, p, rule)
}

func bookList(src *types.BookSource, p *page, rule types.BookListRule) ([]types.SearchBook, error) {
	doc, err := parseDocument(p.body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.url, err)
	}
	var books []types.SearchBook
	for _, item := range elements(doc, rule.BookList) {
		name := value(item, rule.Name)
		if name == "" {
			continue
		}
		bookURL := resolveURL(p.url, value(item, rule.BookURL))
		if bookURL == "" {
			bookURL = p.url
		}
		books = append(books, types.SearchBook{
			Name:    name,
			Author:  value(item, rule.Author),
			Intro:   value(item, rule.Intro),
			BookURL: bookURL,
			TocURL:  resolveURL(p.url, value(item, rule.TocURL)),
			Origin:  src.URL,
		})
	}
	return books, nil
}

// BookInfo implements WebBook.
func (c *Client) BookInfo(ctx context.Context, src *types.BookSource, book *types.Book) error {
	if book.BookURL == "" {
		return fmt.Errorf("book %q has no url", book.Name)
	}
	p, err := c.fetch(ctx, src, book.BookURL)
	if err != nil {
		return fmt.Errorf("book info: %w", err)
	}
	doc, err := parseDocument(p.body)
	if err != nil {
		return fmt.Errorf("parse %s: %w", p.url, err)
	}

	rule := src.RuleBookInfo
	if v := value(doc, rule.Name); v != "" {
		book.Name = v
	}
	if v := value(doc, rule.Author); v != "" {
		book.Author = v
	}
	if v := value(doc, rule.Intro); v != "" {
		book.Intro = v
	}
	book.TocURL = resolveURL(p.url, value(doc, rule.TocURL))
	if book.TocURL == "" {
		book.TocURL = p.url
	}
	return nil
}

// ChapterList implements WebBook.
func (c *Client) ChapterList(ctx context.Context, src *types.BookSource, book *types.Book) ([]types.Chapter, error) {
	tocURL := book.TocURL
	if tocURL == "" {
		tocURL = book.BookURL
	}
	p, err := c.fetch(ctx, src, tocURL)
	if err != nil {
		return nil, fmt.Errorf("toc: %w", err)
	}
	doc, err := parseDocument(p.body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.url, err)
	}

	rule := src.RuleToc
	var chapters []types.Chapter
	for _, item := range elements(doc, rule.ChapterList) {
		title := value(item, rule.ChapterName)
		if title == "" {
			continue
		}
		chapters = append(chapters, types.Chapter{
			Title: title,
			URL:   resolveURL(p.url, value(item, rule.ChapterURL)),
			Index: len(chapters),
		})
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("%s: %w", tocURL, ErrEmptyToc)
	}
	return chapters, nil
}

// Content implements WebBook. Pages linked by the source's next-page rule are
// followed until the link is blank, repeats, or equals nextURL.
func (c *Client) Content(ctx context.Context, src *types.BookSource, book *types.Book, chapter types.Chapter, nextURL string, persist bool) (string, error) {
	key := src.URL + "\x00" + chapter.URL
	if c.chapters != nil {
		if text, ok := c.chapters.Get(key); ok {
			return text, nil
		}
	}

	target := chapter.URL
	if target == "" {
		return "", fmt.Errorf("chapter %q: %w", chapter.Title, ErrEmptyContent)
	}

	var parts []string
	visited := map[string]bool{}
	for i := 0; i < maxContentPages && target != "" && !visited[target]; i++ {
		visited[target] = true
		p, err := c.fetch(ctx, src, target)
		if err != nil {
			return "", fmt.Errorf("content: %w", err)
		}
		doc, err := parseDocument(p.body)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", p.url, err)
		}
		parts = append(parts, value(doc, src.RuleContent.Content))

		next := resolveURL(p.url, value(doc, src.RuleContent.NextContentURL))
		if next == "" || next == resolveURL(p.url, nextURL) {
			break
		}
		target = next
	}

	text := strings.Join(parts, "\n")
	if strings.Contains(text, "<") {
		text = htmlToText(text)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("chapter %q: %w", chapter.Title, ErrEmptyContent)
	}

	if persist && c.chapters != nil {
		c.chapters.Add(key, text)
	}
	c.logger.Debug("fetched chapter", "source", src.URL, "book", book.Name, "chapter", chapter.Title, "chars", len(text))
	return text, nil
}
