package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackzampolin/sourcecheck/internal/types"
	"github.com/jackzampolin/sourcecheck/internal/webbook"
)

const webbookScopeName = "github.com/jackzampolin/sourcecheck/webbook"

// InstrumentedWebBook wraps webbook.WebBook with OTel tracing and metrics.
// Every operation gets a span and is counted in sourcecheck.webbook.* metrics.
type InstrumentedWebBook struct {
	inner  webbook.WebBook
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

var _ webbook.WebBook = (*InstrumentedWebBook)(nil)

// WrapWebBook returns w decorated with OTel instrumentation.
// When telemetry is disabled, w is returned as-is.
func WrapWebBook(w webbook.WebBook) webbook.WebBook {
	if !Enabled() {
		return w
	}
	return newInstrumentedWebBook(w, Tracer(webbookScopeName), Meter(webbookScopeName))
}

func newInstrumentedWebBook(w webbook.WebBook, tracer trace.Tracer, m metric.Meter) *InstrumentedWebBook {
	ops, _ := m.Int64Counter("sourcecheck.webbook.operations",
		metric.WithDescription("Total scraping operations executed"),
	)
	dur, _ := m.Float64Histogram("sourcecheck.webbook.operation.duration",
		metric.WithDescription("Scraping operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("sourcecheck.webbook.errors",
		metric.WithDescription("Total scraping operation errors"),
	)
	return &InstrumentedWebBook{inner: w, tracer: tracer, ops: ops, dur: dur, errs: errs}
}

// op starts a span and counts the named operation.
func (w *InstrumentedWebBook) op(ctx context.Context, name string, src *types.BookSource) (context.Context, trace.Span, []attribute.KeyValue, time.Time) {
	attrs := []attribute.KeyValue{
		attribute.String("webbook.operation", name),
		attribute.String("sourcecheck.source", src.URL),
	}
	ctx, span := w.tracer.Start(ctx, "webbook."+name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	w.ops.Add(ctx, 1, metric.WithAttributes(attrs[0]))
	return ctx, span, attrs, time.Now()
}

// done ends the span, records duration and optional error.
func (w *InstrumentedWebBook) done(ctx context.Context, span trace.Span, attrs []attribute.KeyValue, start time.Time, err error) {
	ms := float64(time.Since(start).Milliseconds())
	w.dur.Record(ctx, ms, metric.WithAttributes(attrs[0]))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.errs.Add(ctx, 1, metric.WithAttributes(attrs[0]))
	}
	span.End()
}

func (w *InstrumentedWebBook) Search(ctx context.Context, src *types.BookSource, keyword string) ([]types.SearchBook, error) {
	ctx, span, attrs, t := w.op(ctx, "Search", src)
	books, err := w.inner.Search(ctx, src, keyword)
	span.SetAttributes(attribute.Int("webbook.result.count", len(books)))
	w.done(ctx, span, attrs, t, err)
	return books, err
}

func (w *InstrumentedWebBook) Explore(ctx context.Context, src *types.BookSource, url string) ([]types.SearchBook, error) {
	ctx, span, attrs, t := w.op(ctx, "Explore", src)
	books, err := w.inner.Explore(ctx, src, url)
	span.SetAttributes(attribute.Int("webbook.result.count", len(books)))
	w.done(ctx, span, attrs, t, err)
	return books, err
}

func (w *InstrumentedWebBook) BookInfo(ctx context.Context, src *types.BookSource, book *types.Book) error {
	ctx, span, attrs, t := w.op(ctx, "BookInfo", src)
	err := w.inner.BookInfo(ctx, src, book)
	w.done(ctx, span, attrs, t, err)
	return err
}

func (w *InstrumentedWebBook) ChapterList(ctx context.Context, src *types.BookSource, book *types.Book) ([]types.Chapter, error) {
	ctx, span, attrs, t := w.op(ctx, "ChapterList", src)
	toc, err := w.inner.ChapterList(ctx, src, book)
	span.SetAttributes(attribute.Int("webbook.result.count", len(toc)))
	w.done(ctx, span, attrs, t, err)
	return toc, err
}

func (w *InstrumentedWebBook) Content(ctx context.Context, src *types.BookSource, book *types.Book, chapter types.Chapter, nextURL string, persist bool) (string, error) {
	ctx, span, attrs, t := w.op(ctx, "Content", src)
	text, err := w.inner.Content(ctx, src, book, chapter, nextURL, persist)
	span.SetAttributes(attribute.Int("webbook.content.length", len(text)))
	w.done(ctx, span, attrs, t, err)
	return text, err
}
