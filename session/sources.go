package session

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gaborage/go-dbsession/config"
	"github.com/gaborage/go-dbsession/logger"
	"github.com/gaborage/go-dbsession/session/types"
)

// ConfigProvider supplies per-key database configurations. For single-
// database applications the key is ""; multi-tenant applications use the
// tenant identifier.
type ConfigProvider interface {
	DBConfig(ctx context.Context, key string) (*config.DatabaseConfig, error)
}

// Connector creates connection sources from configuration. Injected for
// testability; defaults to NewSource.
type Connector func(*config.DatabaseConfig, logger.Logger) (types.Source, error)

// SourceManager manages connection sources by string key with lazy
// initialization, LRU eviction, and idle cleanup. It is key-agnostic: it
// does not know about tenants, just named sources.
type SourceManager struct {
	logger    logger.Logger
	provider  ConfigProvider
	connector Connector

	mu      sync.RWMutex
	sources map[string]*sourceEntry

	lru     *list.List
	maxSize int

	idleTTL   time.Duration
	cleanupMu sync.Mutex
	cleanupCh chan struct{}

	sfg singleflight.Group
}

type sourceEntry struct {
	source   types.Source
	element  *list.Element
	lastUsed time.Time
	key      string
}

// SourceManagerOptions configures the SourceManager.
type SourceManagerOptions struct {
	MaxSize int           // Maximum number of sources to keep (0 = default)
	IdleTTL time.Duration // Time after which idle sources are closed (0 = default)
}

// NewSourceManager creates a source manager backed by provider.
func NewSourceManager(provider ConfigProvider, log logger.Logger, opts SourceManagerOptions, connector Connector) *SourceManager {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if connector == nil {
		connector = NewSource
	}

	return &SourceManager{
		logger:    log,
		provider:  provider,
		connector: connector,
		sources:   make(map[string]*sourceEntry),
		lru:       list.New(),
		maxSize:   opts.MaxSize,
		idleTTL:   opts.IdleTTL,
	}
}

// Get returns the connection source for the given key, creating it lazily.
func (m *SourceManager) Get(ctx context.Context, key string) (types.Source, error) {
	if src := m.getExisting(key); src != nil {
		return src, nil
	}

	// Singleflight prevents a thundering herd on source creation.
	result, err, _ := m.sfg.Do(key, func() (any, error) {
		if src := m.getExisting(key); src != nil {
			return src, nil
		}
		return m.createSource(ctx, key)
	})
	if err != nil {
		return nil, err
	}

	return result.(types.Source), nil
}

// getExisting returns an existing source and updates LRU, or nil.
func (m *SourceManager) getExisting(key string) types.Source {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.sources[key]
	if !exists {
		return nil
	}

	entry.lastUsed = time.Now()
	m.lru.MoveToFront(entry.element)

	return entry.source
}

func (m *SourceManager) createSource(ctx context.Context, key string) (types.Source, error) {
	cfg, err := m.provider.DBConfig(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get database config for key %s: %w", key, err)
	}

	source, err := m.connector(cfg, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection source for key %s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another goroutine may have created the source while we were waiting.
	if existing, exists := m.sources[key]; exists {
		_ = source.Close()
		existing.lastUsed = time.Now()
		m.lru.MoveToFront(existing.element)
		return existing.source, nil
	}

	m.evictIfNeeded()

	element := m.lru.PushFront(key)
	m.sources[key] = &sourceEntry{
		source:   source,
		element:  element,
		lastUsed: time.Now(),
		key:      key,
	}

	m.logger.Info().
		Str("key", key).
		Str("vendor", source.Vendor()).
		Msg("Created new connection source")

	return source, nil
}

// evictIfNeeded removes the least recently used source if at capacity.
func (m *SourceManager) evictIfNeeded() {
	if len(m.sources) < m.maxSize {
		return
	}

	oldest := m.lru.Back()
	if oldest == nil {
		return
	}

	key := oldest.Value.(string)
	entry := m.sources[key]

	if err := entry.source.Close(); err != nil {
		m.logger.Error().
			Err(err).
			Str("key", key).
			Msg("Error closing evicted connection source")
	}

	delete(m.sources, key)
	m.lru.Remove(oldest)

	m.logger.Debug().
		Str("key", key).
		Msg("Evicted connection source due to LRU limit")
}

// StartCleanup starts the background cleanup routine for idle sources.
func (m *SourceManager) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	m.cleanupMu.Lock()
	if m.cleanupCh != nil {
		m.cleanupMu.Unlock()
		return
	}
	done := make(chan struct{})
	m.cleanupCh = done
	m.cleanupMu.Unlock()

	go m.cleanupLoop(interval, done)
}

// StopCleanup stops the background cleanup routine.
func (m *SourceManager) StopCleanup() {
	m.cleanupMu.Lock()
	if m.cleanupCh == nil {
		m.cleanupMu.Unlock()
		return
	}
	close(m.cleanupCh)
	m.cleanupCh = nil
	m.cleanupMu.Unlock()
}

func (m *SourceManager) cleanupLoop(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupIdleSources()
		case <-done:
			return
		}
	}
}

func (m *SourceManager) cleanupIdleSources() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var toRemove []string

	for key, entry := range m.sources {
		if now.Sub(entry.lastUsed) > m.idleTTL {
			toRemove = append(toRemove, key)
		}
	}

	for _, key := range toRemove {
		entry := m.sources[key]

		if err := entry.source.Close(); err != nil {
			m.logger.Error().
				Err(err).
				Str("key", key).
				Msg("Error closing idle connection source")
		}

		delete(m.sources, key)
		m.lru.Remove(entry.element)

		m.logger.Debug().
			Str("key", key).
			Dur("idle_time", now.Sub(entry.lastUsed)).
			Msg("Cleaned up idle connection source")
	}
}

// Close closes all sources and stops cleanup.
func (m *SourceManager) Close() error {
	m.StopCleanup()

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for key, entry := range m.sources {
		if err := entry.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing source for key %s: %w", key, err))
		}
	}

	m.sources = make(map[string]*sourceEntry)
	m.lru.Init()

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connection sources: %v", errs)
	}

	return nil
}

// Size returns the number of active sources.
func (m *SourceManager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sources)
}

// Stats returns statistics about the managed sources.
func (m *SourceManager) Stats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]any)
	stats["active_sources"] = len(m.sources)
	stats["max_sources"] = m.maxSize
	stats["idle_ttl_seconds"] = int(m.idleTTL.Seconds())

	entries := make([]map[string]any, 0, len(m.sources))
	now := time.Now()
	for key, entry := range m.sources {
		entries = append(entries, map[string]any{
			"key":           key,
			"vendor":        entry.source.Vendor(),
			"last_used":     entry.lastUsed.Format(time.RFC3339),
			"idle_duration": int(now.Sub(entry.lastUsed).Seconds()),
		})
	}
	stats["sources"] = entries

	return stats
}
