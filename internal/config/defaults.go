package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

var (
	// ErrNoDefault is returned when no default value exists for a config key.
	ErrNoDefault = errors.New("no default exists")
	// ErrInvalidKey is returned when a config key is malformed or unknown.
	ErrInvalidKey = errors.New("invalid config key")
)

// Entry is one configuration key with its default value.
type Entry struct {
	Key         string `json:"key"`
	Value       any    `json:"value"`
	Description string `json:"description"`
}

// DefaultEntries returns every configuration key with its default value.
// Durations are written as strings so the generated file stays readable.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// Check runs
		{Key: "check.thread_count", Value: d.Check.ThreadCount, Description: "Worker threads per run"},
		{Key: "check.max_threads", Value: d.Check.MaxThreads, Description: "Upper bound on worker threads"},
		{Key: "check.keyword", Value: d.Check.Keyword, Description: "Search keyword when a source sets none"},
		{Key: "check.timeout", Value: d.Check.Timeout.String(), Description: "Time limit for checking one source"},
		{Key: "check.search", Value: d.Check.Search, Description: "Check the search rule"},
		{Key: "check.discovery", Value: d.Check.Discovery, Description: "Check the discovery rule"},
		{Key: "check.info", Value: d.Check.Info, Description: "Check the book detail rule"},
		{Key: "check.toc", Value: d.Check.Toc, Description: "Check the table of contents rule"},
		{Key: "check.content", Value: d.Check.Content, Description: "Check the chapter content rule"},

		// Reader
		{Key: "reader.chinese_converter_type", Value: d.Reader.ChineseConverterType, Description: "0 off, 1 to simplified, 2 to traditional"},
		{Key: "reader.paragraph_indent", Value: d.Reader.ParagraphIndent, Description: "Prefix for every paragraph"},
		{Key: "reader.processor_cache_size", Value: d.Reader.ProcessorCacheSize, Description: "Content processors kept in memory"},

		// Fetch
		{Key: "fetch.timeout", Value: d.Fetch.Timeout.String(), Description: "Per-request HTTP timeout"},
		{Key: "fetch.retries", Value: d.Fetch.Retries, Description: "Retries for transient HTTP failures"},
		{Key: "fetch.retry_delay", Value: d.Fetch.RetryDelay.String(), Description: "Base delay between retries"},
		{Key: "fetch.user_agent", Value: d.Fetch.UserAgent, Description: "Default User-Agent header"},
		{Key: "fetch.max_body_bytes", Value: d.Fetch.MaxBodyBytes, Description: "Largest response body read"},

		// Server
		{Key: "server.host", Value: d.Server.Host, Description: "HTTP listen host"},
		{Key: "server.port", Value: d.Server.Port, Description: "HTTP listen port"},

		// Telemetry
		{Key: "telemetry.enabled", Value: d.Telemetry.Enabled, Description: "Enable OpenTelemetry"},
		{Key: "telemetry.stdout", Value: d.Telemetry.Stdout, Description: "Export spans and metrics to stdout"},
	}
}

// GetDefault returns the default entry for a config key, or nil.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// ValidateKey checks that key is well formed and names a known setting.
// Valid keys contain letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	if GetDefault(key) == nil {
		return fmt.Errorf("%w: unknown key %q", ErrInvalidKey, key)
	}
	return nil
}

// defaultTree nests DefaultEntries by section for the config file.
func defaultTree() map[string]map[string]any {
	tree := make(map[string]map[string]any)
	for _, e := range DefaultEntries() {
		section, name, _ := strings.Cut(e.Key, ".")
		if tree[section] == nil {
			tree[section] = make(map[string]any)
		}
		tree[section][name] = e.Value
	}
	return tree
}

// Keys returns every known key, sorted.
func Keys() []string {
	entries := DefaultEntries()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	sort.Strings(keys)
	return keys
}
