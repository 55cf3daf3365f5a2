package webbook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/jackzampolin/sourcecheck/internal/types"
)

const searchPage = `<html><body>
<ul class="result">
  <li class="book"><a class="title" href="/book/1">Dune</a><span class="author">Herbert</span></li>
  <li class="book"><a class="title" href="/book/2">Emma</a><span class="author">Austen</span></li>
  <li class="book"><span class="author">nameless</span></li>
</ul>
</body></html>`

const bookPage = `<html><body><h1>Dune</h1><p class="intro">Spice.</p><a id="toc" href="/toc/1">Read</a></body></html>`

const tocPage = `<html><body><dl id="list">
<dd><a href="/c/1">Chapter 1</a></dd>
<dd><a href="/c/2">Chapter 2</a></dd>
</dl></body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "dune book" {
			t.Errorf("expected escaped keyword, got %q", r.URL.Query().Get("q"))
		}
		w.Write([]byte(searchPage))
	})
	mux.HandleFunc("POST /api/search", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("kw") != "x" {
			t.Errorf("expected form kw=x, got %q", r.Form.Get("kw"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"list":[{"name":"Dune","author":"Herbert","url":"/book/1"}]}}`))
	})
	mux.HandleFunc("GET /book/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bookPage))
	})
	mux.HandleFunc("GET /toc/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tocPage))
	})
	mux.HandleFunc("GET /toc/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><dl id="list"></dl></body></html>`))
	})
	mux.HandleFunc("GET /c/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<div id="content">Line one<br>Line &amp; two</div><a id="next" href="/c/1_2">next</a>`))
	})
	mux.HandleFunc("GET /c/1_2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<div id="content"><p>Page two</p></div><a id="next" href="/c/2">next</a>`))
	})
	mux.HandleFunc("GET /c/blank", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<div id="content">   </div>`))
	})
	mux.HandleFunc("GET /gbk", func(w http.ResponseWriter, r *http.Request) {
		enc, _ := simplifiedchinese.GBK.NewEncoder().String(`<div id="content">你好</div>`)
		w.Write([]byte(enc))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testSource(base string) *types.BookSource {
	return &types.BookSource{
		URL:       base,
		Name:      "test",
		SearchURL: "/search?q={{key}}&p={{page}}",
		RuleSearch: types.SearchRule{BookListRule: types.BookListRule{
			BookList: "li.book",
			Name:     "a.title@text",
			Author:   ".author@text",
			BookURL:  "a@href",
		}},
		RuleBookInfo: types.BookInfoRule{Intro: ".intro@text", TocURL: "#toc@href"},
		RuleToc:      types.TocRule{ChapterList: "#list dd", ChapterName: "a@text", ChapterURL: "a@href"},
		RuleContent:  types.ContentRule{Content: "#content@html", NextContentURL: "#next@href"},
	}
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(Config{Retries: 2, RetryDelay: time.Millisecond, CacheSize: 8})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestClient_Flow(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t)
	src := testSource(srv.URL)
	ctx := context.Background()

	books, err := c.Search(ctx, src, "dune book")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("expected 2 books, got %d: %v", len(books), books)
	}
	if books[0].Name != "Dune" || books[0].Author != "Herbert" || books[0].BookURL != srv.URL+"/book/1" {
		t.Errorf("unexpected first book: %+v", books[0])
	}
	if books[0].Origin != srv.URL {
		t.Errorf("expected origin %s, got %s", srv.URL, books[0].Origin)
	}

	book := books[0].ToBook()
	if err := c.BookInfo(ctx, src, book); err != nil {
		t.Fatalf("BookInfo() error = %v", err)
	}
	if book.TocURL != srv.URL+"/toc/1" || book.Intro != "Spice." {
		t.Errorf("unexpected book detail: %+v", book)
	}

	chapters, err := c.ChapterList(ctx, src, book)
	if err != nil {
		t.Fatalf("ChapterList() error = %v", err)
	}
	if len(chapters) != 2 || chapters[1].Title != "Chapter 2" || chapters[1].Index != 1 {
		t.Fatalf("unexpected chapters: %v", chapters)
	}

	text, err := c.Content(ctx, src, book, chapters[0], chapters[1].URL, false)
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	for _, want := range []string{"Line one", "Line & two", "Page two"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected content to contain %q, got %q", want, text)
		}
	}
	if strings.Contains(text, "<") {
		t.Errorf("expected markup stripped, got %q", text)
	}
	if c.chapters.Len() != 0 {
		t.Errorf("expected nothing cached when persist=false, got %d", c.chapters.Len())
	}

	if _, err := c.Content(ctx, src, book, chapters[0], chapters[1].URL, true); err != nil {
		t.Fatalf("Content(persist) error = %v", err)
	}
	if c.chapters.Len() != 1 {
		t.Errorf("expected chapter cached, got %d", c.chapters.Len())
	}
}

func TestClient_JSONAndPost(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t)
	src := &types.BookSource{
		URL:       srv.URL,
		SearchURL: `/api/search,{"method":"POST","body":"kw={{key}}"}`,
		RuleSearch: types.SearchRule{BookListRule: types.BookListRule{
			BookList: "$.data.list[*]",
			Name:     "$.name",
			Author:   "author",
			BookURL:  "$.url",
		}},
	}

	books, err := c.Search(context.Background(), src, "x")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(books) != 1 || books[0].Name != "Dune" || books[0].Author != "Herbert" {
		t.Fatalf("unexpected books: %v", books)
	}
	if books[0].BookURL != srv.URL+"/book/1" {
		t.Errorf("expected resolved url, got %s", books[0].BookURL)
	}
}

func TestClient_Errors(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t)
	src := testSource(srv.URL)
	ctx := context.Background()

	t.Run("empty toc", func(t *testing.T) {
		_, err := c.ChapterList(ctx, src, &types.Book{TocURL: srv.URL + "/toc/empty"})
		if !errors.Is(err, ErrEmptyToc) {
			t.Errorf("expected ErrEmptyToc, got %v", err)
		}
	})

	t.Run("empty content", func(t *testing.T) {
		_, err := c.Content(ctx, src, &types.Book{}, types.Chapter{URL: srv.URL + "/c/blank"}, "", false)
		if !errors.Is(err, ErrEmptyContent) {
			t.Errorf("expected ErrEmptyContent, got %v", err)
		}
	})

	t.Run("no search url", func(t *testing.T) {
		if _, err := c.Search(ctx, &types.BookSource{URL: srv.URL}, "x"); err == nil {
			t.Error("expected error for blank search url")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := c.Search(cctx, src, "dune book"); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

func TestClient_Retry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky":
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`<div id="content">ok</div>`))
		default:
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t)
	src := &types.BookSource{URL: srv.URL, RuleContent: types.ContentRule{Content: "#content@text"}}

	text, err := c.Content(context.Background(), src, &types.Book{}, types.Chapter{URL: "/flaky"}, "", false)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if text != "ok" || calls.Load() != 3 {
		t.Errorf("expected ok after 3 calls, got %q after %d", text, calls.Load())
	}

	calls.Store(0)
	_, err = c.Content(context.Background(), src, &types.Book{}, types.Chapter{URL: "/missing"}, "", false)
	var se *statusError
	if !errors.As(err, &se) || se.status != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 404 not retried, got %d calls", calls.Load())
	}
}

func TestClient_Charset(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t)
	src := &types.BookSource{URL: srv.URL, Charset: "gbk", RuleContent: types.ContentRule{Content: "#content@text"}}

	text, err := c.Content(context.Background(), src, &types.Book{}, types.Chapter{URL: "/gbk"}, "", false)
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if text != "你好" {
		t.Errorf("expected 你好, got %q", text)
	}
}
