package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/jackzampolin/sourcecheck/internal/types"
)

// fakeRules serves a fixed rule list and counts loads.
type fakeRules struct {
	mu    sync.Mutex
	rules []types.ReplaceRule
	loads int
	err   error
}

func (f *fakeRules) ListEnabledReplaceRules(_ context.Context, scope types.RuleScope, bookName, origin string) ([]types.ReplaceRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	var out []types.ReplaceRule
	for _, r := range f.rules {
		if r.Active() && r.Covers(scope) && r.AppliesTo(bookName, origin) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRules) set(rules []types.ReplaceRule) {
	f.mu.Lock()
	f.rules = rules
	f.mu.Unlock()
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notice(msg string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
}

func indentSettings() Settings {
	return Settings{ParagraphIndent: DefaultParagraphIndent}
}

func newTestProcessor(t *testing.T, rules *fakeRules, n Notifier) *Processor {
	t.Helper()
	p, err := NewProcessor(context.Background(), Config{
		BookName: "Book",
		Origin:   "https://a",
		Rules:    rules,
		Settings: indentSettings,
		Notifier: n,
	})
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}
	return p
}

func TestProcess_DuplicateTitle(t *testing.T) {
	p := newTestProcessor(t, &fakeRules{}, nil)
	book := &types.Book{Name: "Book", UseReplaceRule: true}
	chapter := types.Chapter{Title: "Chapter 1 Beginning"}

	got := p.Process(book, chapter, "Chapter 1 Beginning\n\nHello world", DefaultOptions())
	expected := []string{"Chapter 1 Beginning", "　　Hello world"}
	if strings.Join(got, "|") != strings.Join(expected, "|") {
		t.Errorf("expected %q, got %q", expected, got)
	}

	t.Run("book name and punctuation before title", func(t *testing.T) {
		got := p.Process(book, chapter, "  Book, Chapter 1 Beginning!\nBody", Options{})
		if len(got) != 1 || got[0] != "　　Body" {
			t.Errorf("expected only indented body, got %q", got)
		}
	})

	t.Run("title in the middle is kept", func(t *testing.T) {
		got := p.Process(book, chapter, "Intro\nChapter 1 Beginning\nBody", Options{})
		if len(got) != 3 {
			t.Errorf("expected 3 paragraphs, got %q", got)
		}
	})

	t.Run("regex metacharacters in title", func(t *testing.T) {
		ch := types.Chapter{Title: "Part (1) [a]*"}
		got := p.Process(book, ch, "Part (1) [a]*\nBody", Options{})
		if len(got) != 1 || got[0] != "　　Body" {
			t.Errorf("expected title stripped, got %q", got)
		}
	})
}

func TestProcess_Paragraphs(t *testing.T) {
	p := newTestProcessor(t, &fakeRules{}, nil)
	book := &types.Book{Name: "Book"}

	got := p.Process(book, types.Chapter{Title: "T"}, "\n \t\n　　line one　\n\n\x01line two\n   ", Options{})
	expected := []string{"　　line one", "　　line two"}
	if strings.Join(got, "|") != strings.Join(expected, "|") {
		t.Errorf("expected %q, got %q", expected, got)
	}

	empty := p.Process(book, types.Chapter{Title: "T"}, " \n　\n", Options{})
	if len(empty) != 0 {
		t.Errorf("expected no paragraphs, got %q", empty)
	}
}

func TestProcess_Idempotent(t *testing.T) {
	rules := &fakeRules{rules: []types.ReplaceRule{
		{ID: 1, Name: "ads", Pattern: "[AD]", Replacement: "", Enabled: true, ScopeContent: true},
	}}
	p := newTestProcessor(t, rules, nil)
	book := &types.Book{Name: "Book", UseReplaceRule: true}
	chapter := types.Chapter{Title: "Chapter 9"}
	opts := Options{UseReplace: true, ChineseConvert: true, ReSegment: true}

	first := p.Process(book, chapter, "It was night.\n  The wind rose.\n\nShe slept.", opts)
	second := p.Process(book, chapter, strings.Join(first, "\n"), opts)
	if strings.Join(first, "|") != strings.Join(second, "|") {
		t.Errorf("expected idempotent output, got %q then %q", first, second)
	}
}

func TestReplaceContent_Chain(t *testing.T) {
	rules := &fakeRules{rules: []types.ReplaceRule{
		{ID: 3, Name: "collapse", Pattern: "aa", Replacement: "A", Enabled: true, ScopeContent: true, Order: 3},
		{ID: 1, Name: "foo", Pattern: "foo", Replacement: "bar", Enabled: true, ScopeContent: true, Order: 1},
		{ID: 2, Name: "double", Pattern: `b(a)r`, Replacement: "$1$1", IsRegex: true, Enabled: true, ScopeContent: true, Order: 2},
		{ID: 4, Name: "disabled", Pattern: "A", Replacement: "Z", Enabled: false, ScopeContent: true, Order: 4},
		{ID: 5, Name: "title only", Pattern: "A", Replacement: "Y", Enabled: true, ScopeTitle: true, Order: 5},
	}}
	p := newTestProcessor(t, rules, nil)

	if got := p.ReplaceContent("foo foo!"); got != "A A!" {
		t.Errorf("expected %q, got %q", "A A!", got)
	}
	if n := p.ContentRules().Len(); n != 3 {
		t.Errorf("expected 3 content rules, got %d", n)
	}
	if got := p.DisplayTitle(types.Chapter{Title: "A title"}); got != "Y title" {
		t.Errorf("expected title rule applied, got %q", got)
	}
}

func TestReplaceContent_FailingRuleSkipped(t *testing.T) {
	rules := &fakeRules{rules: []types.ReplaceRule{
		{ID: 1, Name: "broken", Pattern: "(", IsRegex: true, Enabled: true, ScopeContent: true, Order: 1},
		{ID: 2, Name: "works", Pattern: "x", Replacement: "y", Enabled: true, ScopeContent: true, Order: 2},
	}}
	n := &recordingNotifier{}
	p := newTestProcessor(t, rules, n)

	if got := p.ReplaceContent("xx"); got != "yy" {
		t.Errorf("expected yy, got %q", got)
	}
	if len(n.msgs) != 1 || !strings.Contains(n.msgs[0], "broken") {
		t.Errorf("expected one notice naming the broken rule, got %v", n.msgs)
	}

	_, errs := p.ContentRules().Apply("xx")
	var re *ReplacementError
	if len(errs) != 1 || !errors.As(errs[0], &re) || re.Rule != "broken" {
		t.Errorf("expected ReplacementError for broken, got %v", errs)
	}
}

func TestProcess_ReplaceFlags(t *testing.T) {
	rules := &fakeRules{rules: []types.ReplaceRule{
		{ID: 1, Pattern: "bad", Replacement: "good", Enabled: true, ScopeContent: true},
	}}
	p := newTestProcessor(t, rules, nil)

	off := p.Process(&types.Book{Name: "Book", UseReplaceRule: false}, types.Chapter{}, "bad", Options{UseReplace: true})
	if off[0] != "　　bad" {
		t.Errorf("expected book flag to disable replacement, got %q", off)
	}
	on := p.Process(&types.Book{Name: "Book", UseReplaceRule: true}, types.Chapter{}, "bad", Options{UseReplace: true})
	if on[0] != "　　good" {
		t.Errorf("expected replacement, got %q", on)
	}
}

func TestProcess_ChineseConvert(t *testing.T) {
	mode := ConvertToTraditional
	p, err := NewProcessor(context.Background(), Config{
		BookName: "Book",
		Settings: func() Settings { return Settings{ChineseConverterType: mode, ParagraphIndent: ""} },
	})
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}
	book := &types.Book{Name: "Book"}

	got := p.Process(book, types.Chapter{}, "汉字", Options{ChineseConvert: true})
	if len(got) != 1 || got[0] != "漢字" {
		t.Errorf("expected traditional output, got %q", got)
	}

	mode = ConvertToSimplified
	got = p.Process(book, types.Chapter{}, "漢字", Options{ChineseConvert: true})
	if len(got) != 1 || got[0] != "汉字" {
		t.Errorf("expected simplified output, got %q", got)
	}

	mode = ConvertNone
	got = p.Process(book, types.Chapter{}, "漢字", Options{ChineseConvert: true})
	if got[0] != "漢字" {
		t.Errorf("expected unchanged output, got %q", got)
	}
}

func TestUpReplaceRules_Snapshot(t *testing.T) {
	version := func(v int) []types.ReplaceRule {
		var rules []types.ReplaceRule
		for i := 0; i < 5; i++ {
			rules = append(rules, types.ReplaceRule{
				ID: int64(i + 1), Name: fmt.Sprintf("v%d", v), Pattern: "p",
				Enabled: true, ScopeContent: true, ScopeTitle: true,
			})
		}
		return rules
	}
	rules := &fakeRules{rules: version(0)}
	p := newTestProcessor(t, rules, nil)

	ctx := context.Background()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := p.ContentRules().Rules()
				for _, r := range snap {
					if r.Name != snap[0].Name {
						t.Errorf("mixed snapshot: %s and %s", snap[0].Name, r.Name)
						return
					}
				}
			}
		}()
	}
	for v := 1; v <= 50; v++ {
		rules.set(version(v))
		if err := p.UpReplaceRules(ctx); err != nil {
			t.Fatalf("UpReplaceRules() error = %v", err)
		}
	}
	wg.Wait()

	if got := p.ContentRules().Rules()[0].Name; got != "v50" {
		t.Errorf("expected latest snapshot v50, got %s", got)
	}
}

func TestUpReplaceRules_ErrorKeepsSnapshot(t *testing.T) {
	rules := &fakeRules{rules: []types.ReplaceRule{{ID: 1, Pattern: "a", Enabled: true, ScopeContent: true}}}
	p := newTestProcessor(t, rules, nil)

	rules.mu.Lock()
	rules.err = errors.New("db down")
	rules.mu.Unlock()

	if err := p.UpReplaceRules(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if p.ContentRules().Len() != 1 {
		t.Errorf("expected previous snapshot kept, got %d rules", p.ContentRules().Len())
	}
}
