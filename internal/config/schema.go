package config

import (
	"time"

	"github.com/jackzampolin/sourcecheck/internal/check"
	"github.com/jackzampolin/sourcecheck/internal/content"
	"github.com/jackzampolin/sourcecheck/internal/webbook"
)

// Config holds sourcecheck configuration.
// Stored at: ./config.yaml or ~/.sourcecheck/config.yaml
type Config struct {
	Check     CheckCfg     `mapstructure:"check" yaml:"check"`
	Reader    ReaderCfg    `mapstructure:"reader" yaml:"reader"`
	Fetch     FetchCfg     `mapstructure:"fetch" yaml:"fetch"`
	Server    ServerCfg    `mapstructure:"server" yaml:"server"`
	Telemetry TelemetryCfg `mapstructure:"telemetry" yaml:"telemetry"`
}

// CheckCfg configures validation runs. Read at the start of each run.
type CheckCfg struct {
	ThreadCount int           `mapstructure:"thread_count" yaml:"thread_count"`
	MaxThreads  int           `mapstructure:"max_threads" yaml:"max_threads"`
	Keyword     string        `mapstructure:"keyword" yaml:"keyword"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Search      bool          `mapstructure:"search" yaml:"search"`
	Discovery   bool          `mapstructure:"discovery" yaml:"discovery"`
	Info        bool          `mapstructure:"info" yaml:"info"`
	Toc         bool          `mapstructure:"toc" yaml:"toc"`
	Content     bool          `mapstructure:"content" yaml:"content"`
}

// ReaderCfg configures the content pipeline. Applied to processors immediately.
type ReaderCfg struct {
	ChineseConverterType int    `mapstructure:"chinese_converter_type" yaml:"chinese_converter_type"` // 0 off, 1 simplified, 2 traditional
	ParagraphIndent      string `mapstructure:"paragraph_indent" yaml:"paragraph_indent"`
	ProcessorCacheSize   int    `mapstructure:"processor_cache_size" yaml:"processor_cache_size"`
}

// FetchCfg configures the scraping HTTP client.
type FetchCfg struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries      int           `mapstructure:"retries" yaml:"retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// TelemetryCfg configures OpenTelemetry export.
type TelemetryCfg struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Stdout  bool `mapstructure:"stdout" yaml:"stdout"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Check: CheckCfg{
			ThreadCount: check.DefaultThreadCount,
			MaxThreads:  check.DefaultMaxThreads,
			Keyword:     check.DefaultKeyword,
			Timeout:     check.DefaultTimeout,
			Search:      true,
			Discovery:   true,
			Info:        true,
			Toc:         true,
			Content:     true,
		},
		Reader: ReaderCfg{
			ChineseConverterType: content.ConvertNone,
			ParagraphIndent:      content.DefaultParagraphIndent,
			ProcessorCacheSize:   content.DefaultCacheSize,
		},
		Fetch: FetchCfg{
			Timeout:      webbook.DefaultTimeout,
			Retries:      webbook.DefaultRetries,
			RetryDelay:   webbook.DefaultRetryDelay,
			UserAgent:    webbook.DefaultUserAgent,
			MaxBodyBytes: webbook.DefaultMaxBodyBytes,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
	}
}

// RunSettings converts the check section for the scheduler.
func (c *Config) RunSettings() check.RunSettings {
	return check.RunSettings{
		ThreadCount: c.Check.ThreadCount,
		MaxThreads:  c.Check.MaxThreads,
		Options: check.Options{
			CheckSearch:    c.Check.Search,
			CheckDiscovery: c.Check.Discovery,
			CheckInfo:      c.Check.Info,
			CheckToc:       c.Check.Toc,
			CheckContent:   c.Check.Content,
			Timeout:        c.Check.Timeout,
			Keyword:        c.Check.Keyword,
		},
	}
}

// ReaderSettings converts the reader section for content processors.
func (c *Config) ReaderSettings() content.Settings {
	return content.Settings{
		ChineseConverterType: c.Reader.ChineseConverterType,
		ParagraphIndent:      c.Reader.ParagraphIndent,
	}
}

// WebBookConfig converts the fetch section for the scraping client.
func (c *Config) WebBookConfig() webbook.Config {
	return webbook.Config{
		Timeout:      c.Fetch.Timeout,
		Retries:      c.Fetch.Retries,
		RetryDelay:   c.Fetch.RetryDelay,
		UserAgent:    c.Fetch.UserAgent,
		MaxBodyBytes: c.Fetch.MaxBodyBytes,
	}
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
