package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jackzampolin/sourcecheck/internal/store"
)

// DefaultCacheSize bounds the number of live processors.
const DefaultCacheSize = 64

// CacheConfig configures a Cache. Rules, Settings, Notifier and Logger are
// handed to every Processor it creates.
type CacheConfig struct {
	Size     int
	Rules    RuleSource
	Settings func() Settings
	Notifier Notifier
	Logger   *slog.Logger
}

// Cache holds one Processor per (book name, origin), evicting the least
// recently used once full. Evicted processors are simply dropped.
type Cache struct {
	cfg    CacheConfig
	logger *slog.Logger

	mu    sync.Mutex // serializes creation so a key gets one processor
	procs *lru.Cache[string, *Processor]
}

// NewCache creates a Cache.
func NewCache(cfg CacheConfig) (*Cache, error) {
	if cfg.Size <= 0 {
		cfg.Size = DefaultCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	procs, err := lru.New[string, *Processor](cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("processor cache: %w", err)
	}
	return &Cache{cfg: cfg, logger: cfg.Logger, procs: procs}, nil
}

func cacheKey(bookName, origin string) string {
	return bookName + "\x00" + origin
}

// Get returns the processor for the pair, creating it on first use.
func (c *Cache) Get(ctx context.Context, bookName, origin string) (*Processor, error) {
	key := cacheKey(bookName, origin)
	if p, ok := c.procs.Get(key); ok {
		return p, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.procs.Get(key); ok {
		return p, nil
	}
	p, err := NewProcessor(ctx, Config{
		BookName: bookName,
		Origin:   origin,
		Rules:    c.cfg.Rules,
		Settings: c.cfg.Settings,
		Notifier: c.cfg.Notifier,
		Logger:   c.cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	c.procs.Add(key, p)
	return p, nil
}

// Len returns the number of live processors.
func (c *Cache) Len() int {
	return c.procs.Len()
}

// RefreshAll reloads the rule snapshots of every live processor.
func (c *Cache) RefreshAll(ctx context.Context) error {
	var errs []error
	for _, p := range c.procs.Values() {
		if err := p.UpReplaceRules(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscriber is the change feed a Cache follows. *store.Store implements it.
type Subscriber interface {
	Subscribe(topic store.Topic) (<-chan store.Change, func())
}

// Watch refreshes all processors whenever rules change, until ctx is done.
func (c *Cache) Watch(ctx context.Context, sub Subscriber) {
	changes, cancel := sub.Subscribe(store.TopicRules)
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				if err := c.RefreshAll(ctx); err != nil {
					c.logger.Warn("failed to refresh replace rules", "error", err)
				}
			}
		}
	}()
}
