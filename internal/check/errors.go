package check

import (
	"context"
	"errors"

	"github.com/jackzampolin/sourcecheck/internal/types"
	"github.com/jackzampolin/sourcecheck/internal/webbook"
)

var (
	// ErrRunActive is returned when a run is requested while one is active.
	ErrRunActive = errors.New("a check run is already active")
	// ErrNoSources is returned when a run is requested with no source ids.
	ErrNoSources = errors.New("no sources to check")
)

// Kind classifies a probe failure.
type Kind int

const (
	// KindRule is any failure without more specific meaning.
	KindRule Kind = iota
	// KindEmptyResult is an explicit probe failure whose tags are already set.
	KindEmptyResult
	KindEmptyToc
	KindEmptyContent
	KindTimeout
	// KindCancelled means the run was stopped; nothing is recorded.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindEmptyResult:
		return "empty_result"
	case KindEmptyToc:
		return "empty_toc"
	case KindEmptyContent:
		return "empty_content"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	default:
		return "rule"
	}
}

// Tag returns the health tag a failure of this kind adds, or "" for none.
func (k Kind) Tag() string {
	switch k {
	case KindEmptyToc:
		return types.TagTocInvalid
	case KindEmptyContent:
		return types.TagContentInvalid
	case KindTimeout:
		return types.TagTimedOut
	case KindRule:
		return types.TagRuleInvalid
	default:
		return ""
	}
}

// Failure is a classified probe failure.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// fail builds an explicit probe failure. The caller has already set the tags.
func fail(msg string) *Failure {
	return &Failure{Kind: KindEmptyResult, Message: msg}
}

// Classify maps a stage error to a Failure. probeCtx is the probe's own
// context and runCtx the run's: a stopped run wins, then an exceeded probe
// deadline, then the error's own meaning.
func Classify(runCtx, probeCtx context.Context, err error) *Failure {
	if err == nil {
		return nil
	}
	if runCtx.Err() != nil {
		return &Failure{Kind: KindCancelled, Message: "check cancelled", Err: err}
	}
	if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
		return &Failure{Kind: KindTimeout, Message: "check timed out", Err: err}
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	switch {
	case errors.Is(err, webbook.ErrEmptyContent):
		return &Failure{Kind: KindEmptyContent, Message: err.Error(), Err: err}
	case errors.Is(err, webbook.ErrEmptyToc):
		return &Failure{Kind: KindEmptyToc, Message: err.Error(), Err: err}
	default:
		return &Failure{Kind: KindRule, Message: err.Error(), Err: err}
	}
}
