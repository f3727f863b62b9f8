package refdata

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/planvector/drawing-cli/internal/config"
	"github.com/planvector/drawing-cli/internal/model"
)

// Service is the reference data provider. It layers a TTL cache over the API
// client, falls back to the on-disk store per category, and deduplicates
// concurrent refreshes so N simultaneous callers trigger one fetch.
type Service struct {
	client  Client
	store   *MockStore
	ttl     time.Duration
	useMock bool

	// now allows test injection of time.
	now   func() time.Time
	group singleflight.Group

	mu       sync.RWMutex
	entries  map[model.Category]cacheEntry
	snapshot *model.Snapshot
}

type cacheEntry struct {
	items     []model.ReferenceItem
	fetchedAt time.Time
}

// NewService wires the provider from config. A nil client is only valid when
// cfg.UseMock is set.
func NewService(cfg config.ReferenceConfig, client Client, store *MockStore) *Service {
	ttl := time.Duration(cfg.CacheTTLMins) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		client:  client,
		store:   store,
		ttl:     ttl,
		useMock: cfg.UseMock,
		now:     time.Now,
		entries: make(map[model.Category]cacheEntry),
	}
}

// FetchCategory returns the items for one category and whether local fallback
// data was substituted. Failures never propagate: the chain is cache, then
// API, then disk, then seeds.
func (s *Service) FetchCategory(ctx context.Context, category model.Category) ([]model.ReferenceItem, bool) {
	if items, ok := s.cached(category); ok {
		return items, false
	}

	if s.useMock {
		return s.store.LoadOrSeed(category), true
	}

	items, err := s.client.FetchCategory(ctx, category)
	if err != nil {
		zap.L().Warn("reference fetch failed, using local fallback",
			zap.String("category", string(category)),
			zap.Error(err),
		)
		return s.store.LoadOrSeed(category), true
	}

	// Write-through is best effort. A read-only disk costs the fallback
	// freshness, not the request.
	if err := s.store.Save(category, items); err != nil {
		zap.L().Warn("reference write-through failed",
			zap.String("category", string(category)),
			zap.Error(err),
		)
	}

	s.put(category, items)
	return items, false
}

// FetchAll fetches every category concurrently with settle-all semantics: a
// failed category falls back on its own while the others proceed. The
// returned snapshot becomes the service's current snapshot.
func (s *Service) FetchAll(ctx context.Context) *model.Snapshot {
	snap := &model.Snapshot{Timestamp: s.now()}

	type result struct {
		items    []model.ReferenceItem
		fallback bool
	}
	results := make([]result, len(model.Categories))

	var g errgroup.Group
	for i, category := range model.Categories {
		g.Go(func() error {
			items, fallback := s.FetchCategory(ctx, category)
			results[i] = result{items: items, fallback: fallback}
			return nil
		})
	}
	_ = g.Wait()

	var fallbacks int
	for i, category := range model.Categories {
		snap.SetItems(category, results[i].items)
		if results[i].fallback {
			fallbacks++
		}
	}

	snap.IsMock = fallbacks > 0
	snap.PartialSuccess = fallbacks > 0 && fallbacks < len(model.Categories)
	if fallbacks == len(model.Categories) {
		snap.Error = "all reference categories fell back to local data"
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	return snap
}

// Snapshot returns the current snapshot, refreshing when stale. Callers
// arriving during a refresh share the single outstanding fetch rather than
// each triggering their own.
func (s *Service) Snapshot(ctx context.Context) *model.Snapshot {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()

	if snap != nil && s.now().Sub(snap.Timestamp) < s.ttl {
		return snap
	}

	v, _, _ := s.group.Do("snapshot", func() (any, error) {
		return s.FetchAll(ctx), nil
	})
	return v.(*model.Snapshot)
}

// Refresh drops all cached data and fetches a fresh snapshot.
func (s *Service) Refresh(ctx context.Context) *model.Snapshot {
	s.Invalidate()
	return s.Snapshot(ctx)
}

// Invalidate clears the cache so the next read refetches everything.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.entries = make(map[model.Category]cacheEntry)
	s.snapshot = nil
	s.mu.Unlock()
}

func (s *Service) cached(category model.Category) ([]model.ReferenceItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[category]
	if !ok || s.now().Sub(e.fetchedAt) >= s.ttl {
		return nil, false
	}
	return e.items, true
}

func (s *Service) put(category model.Category, items []model.ReferenceItem) {
	s.mu.Lock()
	s.entries[category] = cacheEntry{items: items, fetchedAt: s.now()}
	s.mu.Unlock()
}
