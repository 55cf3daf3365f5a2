package webbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/avast/retry-go/v4"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/jackzampolin/sourcecheck/internal/types"
)

// requestOptions is the JSON object a source may append to a URL after a
// comma, e.g. `/search,{"method":"POST","body":"q={{key}}"}`.
type requestOptions struct {
	Method  string            `json:"method,omitempty"`
	Body    string            `json:"body,omitempty"`
	Charset string            `json:"charset,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// splitURLOptions separates a URL from its trailing request options.
func splitURLOptions(raw string) (string, requestOptions, error) {
	var opts requestOptions
	raw = strings.TrimSpace(raw)
	idx := strings.Index(raw, ",{")
	if idx < 0 || !strings.HasSuffix(raw, "}") {
		return raw, opts, nil
	}
	if err := json.Unmarshal([]byte(raw[idx+1:]), &opts); err != nil {
		return "", opts, fmt.Errorf("parse url options: %w", err)
	}
	return strings.TrimSpace(raw[:idx]), opts, nil
}

// expandTemplate fills the {{key}} and {{page}} placeholders.
func expandTemplate(s, key string, page int) string {
	return strings.NewReplacer(
		"{{key}}", url.QueryEscape(key),
		"{{page}}", strconv.Itoa(page),
	).Replace(s)
}

// resolveURL makes ref absolute against base. Blank refs stay blank.
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// page is a fetched and decoded response.
type page struct {
	url  string
	body string
}

// statusError reports a non-2xx response.
type statusError struct {
	url    string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.url, e.status)
}

// fetch requests rawURL (relative to the source URL) with retries.
// Client errors (4xx) are not retried.
func (c *Client) fetch(ctx context.Context, src *types.BookSource, rawURL string) (*page, error) {
	target, opts, err := splitURLOptions(rawURL)
	if err != nil {
		return nil, err
	}
	abs := resolveURL(src.URL, target)
	if abs == "" {
		return nil, fmt.Errorf("empty url")
	}

	return retry.DoWithData(
		func() (*page, error) {
			p, err := c.do(ctx, src, abs, opts)
			var se *statusError
			if errors.As(err, &se) && se.status < 500 && se.status != http.StatusTooManyRequests {
				return nil, retry.Unrecoverable(err)
			}
			return p, err
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.retries+1)),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying fetch", "url", abs, "attempt", n+1, "error", err)
		}),
	)
}

func (c *Client) do(ctx context.Context, src *types.BookSource, abs string, opts requestOptions) (*page, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if opts.Body != "" {
		body = strings.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, abs, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if method == http.MethodPost && opts.Body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range src.Header {
		req.Header.Set(k, v)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, abs, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{url: abs, status: resp.StatusCode}
	}

	limited := io.LimitReader(resp.Body, c.maxBodyBytes)
	cs := opts.Charset
	if cs == "" {
		cs = src.Charset
	}
	var reader io.Reader
	if cs != "" {
		enc, err := htmlindex.Get(cs)
		if err != nil {
			return nil, fmt.Errorf("unknown charset %q: %w", cs, err)
		}
		reader = enc.NewDecoder().Reader(limited)
	} else {
		reader, err = charset.NewReader(limited, resp.Header.Get("Content-Type"))
		if err != nil {
			return nil, fmt.Errorf("detect charset: %w", err)
		}
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}

	final := abs
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &page{url: final, body: string(data)}, nil
}
