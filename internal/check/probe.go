package check

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackzampolin/sourcecheck/internal/content"
	"github.com/jackzampolin/sourcecheck/internal/types"
	"github.com/jackzampolin/sourcecheck/internal/webbook"
)

// Defaults for Options.
const (
	DefaultKeyword = "我的"
	DefaultTimeout = 180 * time.Second
)

// Options select the stages of a probe.
type Options struct {
	CheckSearch    bool          `json:"check_search"`
	CheckDiscovery bool          `json:"check_discovery"`
	CheckInfo      bool          `json:"check_info"`
	CheckToc       bool          `json:"check_toc"`
	CheckContent   bool          `json:"check_content"`
	Timeout        time.Duration `json:"timeout"`
	Keyword        string        `json:"keyword"`
}

// DefaultOptions enables every stage.
func DefaultOptions() Options {
	return Options{
		CheckSearch:    true,
		CheckDiscovery: true,
		CheckInfo:      true,
		CheckToc:       true,
		CheckContent:   true,
		Timeout:        DefaultTimeout,
		Keyword:        DefaultKeyword,
	}
}

// Processors hands out content processors. *content.Cache implements it.
type Processors interface {
	Get(ctx context.Context, bookName, origin string) (*content.Processor, error)
}

// SourceStore reads and writes source records. *store.Store implements it.
type SourceStore interface {
	GetSource(ctx context.Context, url string) (*types.BookSource, error)
	UpdateSource(ctx context.Context, src *types.BookSource) error
}

// ProberConfig configures a Prober.
type ProberConfig struct {
	WebBook webbook.WebBook
	// Store persists each outcome. Nil skips persistence.
	Store SourceStore
	// Processors judges whether chapter text is usable. Nil falls back to a
	// whitespace check.
	Processors Processors
	Journal    *Journal
	Now        func() time.Time
	Logger     *slog.Logger
}

// Prober validates one book source at a time.
type Prober struct {
	web        webbook.WebBook
	store      SourceStore
	processors Processors
	journal    *Journal
	now        func() time.Time
	logger     *slog.Logger
}

// NewProber creates a Prober.
func NewProber(cfg ProberConfig) *Prober {
	p := &Prober{
		web:        cfg.WebBook,
		store:      cfg.Store,
		processors: cfg.Processors,
		journal:    cfg.Journal,
		now:        cfg.Now,
		logger:     cfg.Logger,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.journal == nil {
		p.journal = NewJournal(p.now)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Journal returns the check log.
func (p *Prober) Journal() *Journal {
	return p.journal
}

// Result is the outcome of one checked source.
type Result struct {
	URL         string       `json:"url"`
	Name        string       `json:"name"`
	Failure     *Failure     `json:"-"`
	Kind        string       `json:"kind,omitempty"`
	Error       string       `json:"error,omitempty"`
	RespondTime int64        `json:"respond_time_ms"`
	Tags        types.TagSet `json:"tags"`
}

// Success reports whether the check passed.
func (r Result) Success() bool { return r.Failure == nil }

// Check probes src and persists the updated record. src is modified in
// place, so callers pass their own copy. A cancelled probe is not persisted;
// any other result is persisted even if ctx is cancelled meanwhile.
func (p *Prober) Check(ctx context.Context, src *types.BookSource, opts Options) Result {
	err := p.Probe(ctx, src, opts)
	res := Result{URL: src.URL, Name: src.Name, RespondTime: src.RespondTime, Tags: src.Tags.Clone()}
	if err != nil {
		res.Failure = err.(*Failure)
		res.Kind = res.Failure.Kind.String()
		res.Error = res.Failure.Message
	}
	if res.Failure != nil && res.Failure.Kind == KindCancelled {
		return res
	}
	if p.store != nil {
		if err := p.store.UpdateSource(context.WithoutCancel(ctx), src); err != nil {
			p.logger.Error("failed to persist source", "source", src.URL, "error", err)
		}
	}
	return res
}

// Probe runs the stage sequence against src under opts.Timeout, classifies
// any failure and updates src's tags, comment and respond time. It returns
// nil or a *Failure.
func (p *Prober) Probe(ctx context.Context, src *types.BookSource, opts Options) error {
	logger := p.logger.With("source", src.URL)
	p.journal.Start(src.URL, src.Name)
	src.PruneErrorComments()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	f := Classify(ctx, probeCtx, p.runStages(probeCtx, src, opts))
	switch {
	case f == nil:
		src.RemoveTag(types.TagInvalid, types.TagRuleInvalid, types.TagTimedOut)
		src.RespondTime = p.journal.Finish(src.URL, true, "check succeeded")
		logger.Debug("check succeeded", "respond_ms", src.RespondTime)
		return nil
	case f.Kind == KindCancelled:
		p.journal.Finish(src.URL, false, "check cancelled")
		return f
	default:
		if tag := f.Kind.Tag(); tag != "" {
			src.AddTag(tag)
		}
		src.PrependError(p.now(), f.Message)
		src.RespondTime = p.journal.Finish(src.URL, false, "check failed: "+f.Message)
		logger.Debug("check failed", "kind", f.Kind, "error", f.Message)
		return f
	}
}

// runStages executes search, discovery, info, toc and content in order.
// Toc runs only inside info, and content only inside toc.
func (p *Prober) runStages(ctx context.Context, src *types.BookSource, opts Options) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule panicked: %v", r)
		}
	}()

	keyword := opts.Keyword
	if kw := strings.TrimSpace(src.RuleSearch.CheckKeyWord); kw != "" {
		keyword = kw
	}

	var books []types.SearchBook

	if opts.CheckSearch && strings.TrimSpace(src.SearchURL) != "" {
		found, err := p.web.Search(ctx, src, keyword)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			src.AddTag(types.TagSearchInvalid)
			if !opts.CheckDiscovery {
				return fail("search returned empty")
			}
		} else {
			src.RemoveTag(types.TagSearchInvalid)
			books = found
		}
	}

	if opts.CheckDiscovery {
		exploreURL, err := firstExploreURL(src)
		if err != nil {
			return err
		}
		if exploreURL == "" {
			switch {
			case !opts.CheckSearch:
				return fail("no discovery endpoint")
			case src.HasTag(types.TagSearchInvalid):
				return fail("search empty and no discovery")
			}
		} else {
			found, err := p.web.Explore(ctx, src, exploreURL)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				src.AddTag(types.TagDiscoveryInvalid)
				switch {
				case !opts.CheckSearch:
					return fail("discovery returned empty")
				case src.HasTag(types.TagSearchInvalid):
					return fail("search and discovery both empty")
				}
			} else {
				src.RemoveTag(types.TagDiscoveryInvalid)
				books = found
			}
		}
	}

	if opts.CheckInfo {
		if len(books) == 0 {
			return fmt.Errorf("no book to check details")
		}
		book := books[0].ToBook()
		if strings.TrimSpace(book.TocURL) == "" {
			if err := p.web.BookInfo(ctx, src, book); err != nil {
				return err
			}
		}
		if opts.CheckToc {
			if err := p.checkToc(ctx, src, book, opts); err != nil {
				return err
			}
		}
	}

	if src.HasTag(types.TagSearchInvalid) {
		return fail("search invalid")
	}
	if src.HasTag(types.TagDiscoveryInvalid) {
		return fail("discovery invalid")
	}
	return nil
}

func (p *Prober) checkToc(ctx context.Context, src *types.BookSource, book *types.Book, opts Options) error {
	toc, err := p.web.ChapterList(ctx, src, book)
	if err != nil {
		return err
	}
	if len(toc) == 0 {
		return webbook.ErrEmptyToc
	}
	next := toc[0].URL
	if len(toc) > 1 {
		next = toc[1].URL
	}
	src.RemoveTag(types.TagTocInvalid)

	if !opts.CheckContent {
		return nil
	}
	text, err := p.web.Content(ctx, src, book, toc[0], next, false)
	if err != nil {
		return err
	}
	if !p.usable(ctx, book, toc[0], text) {
		return fmt.Errorf("%s: %w", toc[0].Title, webbook.ErrEmptyContent)
	}
	src.RemoveTag(types.TagContentInvalid)
	return nil
}

// usable reports whether chapter text survives the reader pipeline.
func (p *Prober) usable(ctx context.Context, book *types.Book, chapter types.Chapter, text string) bool {
	if p.processors == nil {
		return strings.TrimSpace(text) != ""
	}
	proc, err := p.processors.Get(ctx, book.Name, book.Origin)
	if err != nil {
		p.logger.Warn("content processor unavailable", "book", book.Name, "error", err)
		return strings.TrimSpace(text) != ""
	}
	paras := proc.Process(book, chapter, text, content.Options{UseReplace: true})
	return len(paras) > 0
}

// firstExploreURL returns the first discovery endpoint with a non-blank URL.
func firstExploreURL(src *types.BookSource) (string, error) {
	kinds, err := src.ExploreKinds()
	if err != nil {
		return "", err
	}
	for _, k := range kinds {
		if strings.TrimSpace(k.URL) != "" {
			return k.URL, nil
		}
	}
	return "", nil
}
