package check

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/sourcecheck/internal/store"
	"github.com/jackzampolin/sourcecheck/internal/types"
	"github.com/jackzampolin/sourcecheck/internal/webbook"
)

// fakeStore is an in-memory SourceStore.
type fakeStore struct {
	mu      sync.Mutex
	sources map[string]*types.BookSource
	updates int
}

func newFakeStore(sources ...*types.BookSource) *fakeStore {
	fs := &fakeStore{sources: make(map[string]*types.BookSource)}
	for _, s := range sources {
		fs.sources[s.URL] = s.Clone()
	}
	return fs
}

func (f *fakeStore) GetSource(_ context.Context, url string) (*types.BookSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sources[url]
	if !ok {
		return nil, fmt.Errorf("source %s: %w", url, store.ErrNotFound)
	}
	return s.Clone(), nil
}

func (f *fakeStore) UpdateSource(ctx context.Context, src *types.BookSource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources[src.URL] = src.Clone()
	f.updates++
	return nil
}

func (f *fakeStore) get(url string) *types.BookSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sources[url].Clone()
}

func (f *fakeStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates
}

func source(url string) *types.BookSource {
	return &types.BookSource{URL: url, Name: "src " + url, SearchURL: "/s?q={{key}}", ExploreURL: "Hot::/hot"}
}

func searchOnly() Options {
	return Options{CheckSearch: true, Timeout: time.Second, Keyword: DefaultKeyword}
}

func newTestProber(web webbook.WebBook, st SourceStore) *Prober {
	return NewProber(ProberConfig{WebBook: web, Store: st})
}

func failureOf(t *testing.T, err error) *Failure {
	t.Helper()
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected *Failure, got %v", err)
	}
	return f
}

func TestProbe_SearchTagInvariant(t *testing.T) {
	empty := true
	web := &MockWebBook{SearchFunc: func(src *types.BookSource, _ string) ([]types.SearchBook, error) {
		if empty {
			return nil, nil
		}
		return mockBooks(src), nil
	}}
	p := newTestProber(web, nil)
	src := source("https://a")
	opts := DefaultOptions()
	opts.CheckDiscovery = false

	err := p.Probe(context.Background(), src, opts)
	f := failureOf(t, err)
	if f.Kind != KindEmptyResult || f.Message != "search returned empty" {
		t.Errorf("expected empty result failure, got %v %q", f.Kind, f.Message)
	}
	if !src.HasTag(types.TagSearchInvalid) {
		t.Errorf("expected %q tag, got %v", types.TagSearchInvalid, src.Tags)
	}
	if src.HasTag(types.TagRuleInvalid) {
		t.Errorf("explicit failure must not add %q", types.TagRuleInvalid)
	}
	if !strings.HasPrefix(src.Comment, "Error: [") || !strings.HasSuffix(src.Comment, "search returned empty") {
		t.Errorf("unexpected comment: %q", src.Comment)
	}

	empty = false
	if err := p.Probe(context.Background(), src, opts); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if src.HasTag(types.TagSearchInvalid) {
		t.Errorf("expected %q cleared, got %v", types.TagSearchInvalid, src.Tags)
	}
	if src.Comment != "" {
		t.Errorf("expected error comment pruned, got %q", src.Comment)
	}
}

func TestProbe_DiscoveryPrecedence(t *testing.T) {
	tests := []struct {
		name         string
		searchOn     bool
		searchEmpty  bool
		exploreURL   string
		exploreEmpty bool
		wantMsg      string
		wantTags     []string
	}{
		{"search empty and no endpoint", true, true, "Header", false, "search empty and no discovery", []string{types.TagSearchInvalid}},
		{"search off and no endpoint", false, false, "", false, "no discovery endpoint", nil},
		{"search ok and no endpoint", true, false, "", false, "", nil},
		{"search off and discovery empty", false, false, "Hot::/hot", true, "discovery returned empty", []string{types.TagDiscoveryInvalid}},
		{"both empty", true, true, "Hot::/hot", true, "search and discovery both empty", []string{types.TagSearchInvalid, types.TagDiscoveryInvalid}},
		{"search ok discovery empty", true, false, "Hot::/hot", true, "discovery invalid", []string{types.TagDiscoveryInvalid}},
		{"search empty discovery ok", true, true, "Hot::/hot", false, "search invalid", []string{types.TagSearchInvalid}},
		{"both ok", true, false, "Hot::/hot", false, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			web := &MockWebBook{
				SearchFunc: func(src *types.BookSource, _ string) ([]types.SearchBook, error) {
					if tt.searchEmpty {
						return nil, nil
					}
					return mockBooks(src), nil
				},
				ExploreFunc: func(src *types.BookSource, _ string) ([]types.SearchBook, error) {
					if tt.exploreEmpty {
						return nil, nil
					}
					return mockBooks(src), nil
				},
			}
			src := source("https://a")
			src.ExploreURL = tt.exploreURL
			opts := DefaultOptions()
			opts.CheckSearch = tt.searchOn

			err := newTestProber(web, nil).Probe(context.Background(), src, opts)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
			} else {
				f := failureOf(t, err)
				if f.Message != tt.wantMsg {
					t.Errorf("expected %q, got %q", tt.wantMsg, f.Message)
				}
				if f.Kind != KindEmptyResult {
					t.Errorf("expected KindEmptyResult, got %v", f.Kind)
				}
			}
			if len(src.Tags) != len(tt.wantTags) {
				t.Errorf("expected tags %v, got %v", tt.wantTags, src.Tags)
			}
			for _, tag := range tt.wantTags {
				if !src.HasTag(tag) {
					t.Errorf("expected tag %q, got %v", tag, src.Tags)
				}
			}
		})
	}
}

func TestProbe_ExploreUsesFirstNonBlankURL(t *testing.T) {
	var got string
	web := &MockWebBook{ExploreFunc: func(src *types.BookSource, url string) ([]types.SearchBook, error) {
		got = url
		return mockBooks(src), nil
	}}
	src := source("https://a")
	src.ExploreURL = "Header&&Blank::  \nHot::/hot\nNew::/new"

	if err := newTestProber(web, nil).Probe(context.Background(), src, DefaultOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/hot" {
		t.Errorf("expected /hot, got %q", got)
	}
}

func TestProbe_BlankSearchURLSkipped(t *testing.T) {
	web := &MockWebBook{}
	src := source("https://a")
	src.SearchURL = "  "
	src.Tags = types.TagSet{"fantasy"}

	if err := newTestProber(web, nil).Probe(context.Background(), src, searchOnly()); err != nil {
		t.Fatalf("expected skipped search to pass, got %v", err)
	}
	if web.Calls("search") != 0 {
		t.Errorf("expected no search call, got %d", web.Calls("search"))
	}
	if src.Tags.String() != "fantasy" {
		t.Errorf("expected tags untouched, got %v", src.Tags)
	}
}

func TestCheck_PersistsResultFinishedAfterCancel(t *testing.T) {
	src := source("https://late.example")
	st := newFakeStore(src)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	web := &MockWebBook{
		SearchFunc: func(src *types.BookSource, _ string) ([]types.SearchBook, error) {
			cancel()
			return mockBooks(src), nil
		},
	}
	p := newTestProber(web, st)

	res := p.Check(ctx, src.Clone(), searchOnly())
	if !res.Success() {
		t.Fatalf("expected success, got %v", res.Failure)
	}
	if st.updateCount() != 1 {
		t.Errorf("expected result persisted once, got %d updates", st.updateCount())
	}
}
