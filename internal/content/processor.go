// Package content turns raw chapter text into display paragraphs: duplicate
// title removal, re-segmentation, Chinese script conversion, replacement
// rules and paragraph indentation.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"

	"github.com/jackzampolin/sourcecheck/internal/types"
)

// DefaultParagraphIndent is two full-width spaces.
const DefaultParagraphIndent = "　　"

// RuleSource reads the active rules for a book. *store.Store implements it.
type RuleSource interface {
	ListEnabledReplaceRules(ctx context.Context, scope types.RuleScope, bookName, origin string) ([]types.ReplaceRule, error)
}

// Notifier receives short user-facing notices for non-fatal failures.
type Notifier interface {
	Notice(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Notice implements Notifier.
func (f NotifierFunc) Notice(msg string) { f(msg) }

// Settings are the reader preferences the pipeline consults on every call.
type Settings struct {
	ChineseConverterType int
	ParagraphIndent      string
}

// Options selects the pipeline steps for one Process call.
type Options struct {
	IncludeTitle   bool
	UseReplace     bool
	ChineseConvert bool
	ReSegment      bool
}

// DefaultOptions enables every step.
func DefaultOptions() Options {
	return Options{IncludeTitle: true, UseReplace: true, ChineseConvert: true, ReSegment: true}
}

// Config configures a Processor.
type Config struct {
	BookName string
	Origin   string
	Rules    RuleSource
	// Settings is called on every Process so configuration reloads apply
	// immediately. Nil uses no conversion and DefaultParagraphIndent.
	Settings func() Settings
	Notifier Notifier
	Logger   *slog.Logger
}

// Processor runs the content pipeline for one (book name, origin) pair.
type Processor struct {
	bookName string
	origin   string
	rules    RuleSource
	settings func() Settings
	notifier Notifier
	logger   *slog.Logger

	mu      sync.RWMutex
	title   *RuleSet
	content *RuleSet
}

// NewProcessor creates a Processor and loads its rule snapshots.
func NewProcessor(ctx context.Context, cfg Config) (*Processor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	settings := cfg.Settings
	if settings == nil {
		settings = func() Settings { return Settings{ParagraphIndent: DefaultParagraphIndent} }
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}

	p := &Processor{
		bookName: cfg.BookName,
		origin:   cfg.Origin,
		rules:    cfg.Rules,
		settings: settings,
		notifier: notifier,
		logger:   logger.With("book", cfg.BookName, "origin", cfg.Origin),
	}
	if err := p.UpReplaceRules(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// UpReplaceRules reloads the title and content rules and swaps both
// snapshots at once. Concurrent readers see the old or the new pair.
func (p *Processor) UpReplaceRules(ctx context.Context) error {
	if p.rules == nil {
		return nil
	}
	title, err := p.rules.ListEnabledReplaceRules(ctx, types.ScopeTitle, p.bookName, p.origin)
	if err != nil {
		return fmt.Errorf("load title rules: %w", err)
	}
	content, err := p.rules.ListEnabledReplaceRules(ctx, types.ScopeContent, p.bookName, p.origin)
	if err != nil {
		return fmt.Errorf("load content rules: %w", err)
	}
	ts, cs := NewRuleSet(title), NewRuleSet(content)

	p.mu.Lock()
	p.title, p.content = ts, cs
	p.mu.Unlock()
	return nil
}

// TitleRules returns the current title snapshot.
func (p *Processor) TitleRules() *RuleSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.title
}

// ContentRules returns the current content snapshot.
func (p *Processor) ContentRules() *RuleSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.content
}

// Process runs the pipeline over one chapter's raw text and returns the
// non-empty paragraphs.
func (p *Processor) Process(book *types.Book, chapter types.Chapter, raw string, opts Options) []string {
	text := p.stripDuplicateTitle(book.Name, chapter.Title, raw)

	if opts.ReSegment && book.ReSegment {
		text = ReSegment(text, chapter.Title)
	}

	settings := p.settings()
	if opts.ChineseConvert {
		converted, err := convertChinese(settings.ChineseConverterType, text)
		if err != nil {
			p.logger.Warn("chinese conversion failed", "error", err)
			p.notifier.Notice("Chinese conversion failed")
		}
		text = converted
	}

	if opts.UseReplace && book.UseReplaceRule {
		text = p.ReplaceContent(text)
	}

	if opts.IncludeTitle {
		text = p.DisplayTitle(chapter) + "\n" + text
	}

	return paragraphs(text, opts.IncludeTitle, settings.ParagraphIndent)
}

// ReplaceContent applies the content snapshot. A failing rule is logged,
// reported to the notifier and skipped.
func (p *Processor) ReplaceContent(text string) string {
	out, errs := p.ContentRules().Apply(text)
	p.report(errs)
	return out
}

// DisplayTitle resolves a chapter title through the title snapshot.
func (p *Processor) DisplayTitle(chapter types.Chapter) string {
	out, errs := p.TitleRules().Apply(chapter.Title)
	p.report(errs)
	return out
}

func (p *Processor) report(errs []error) {
	for _, err := range errs {
		p.logger.Warn("replace rule failed", "error", err)
		if re, ok := err.(*ReplacementError); ok {
			p.notifier.Notice(fmt.Sprintf("%s replacement failed", re.Rule))
		}
	}
}

// stripDuplicateTitle removes a leading copy of the chapter title, optionally
// preceded by whitespace, punctuation or the book name.
func (p *Processor) stripDuplicateTitle(bookName, title, text string) string {
	if title == "" {
		return text
	}
	pattern := `^(\s|\p{P}|` + regexp2.Escape(bookName) + `)*` + regexp2.Escape(title) + `(\s|\p{P})+`
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		p.logger.Warn("duplicate title pattern failed", "error", err)
		return text
	}
	re.MatchTimeout = DefaultRuleTimeout
	out, err := re.Replace(text, "", -1, 1)
	if err != nil {
		p.logger.Warn("duplicate title strip failed", "error", err)
		return text
	}
	return out
}

// paragraphs splits on newlines, trims ASCII control/space and full-width
// spaces, drops empty lines and indents every line except a leading title.
func paragraphs(text string, includeTitle bool, indent string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimFunc(line, func(r rune) bool {
			return r <= 0x20 || r == '　'
		})
		if line == "" {
			continue
		}
		if len(out) == 0 && includeTitle {
			out = append(out, line)
			continue
		}
		out = append(out, indent+line)
	}
	return out
}
