package tiles

import (
	"context"
	"image"
	"log"
	"sync"

	"github.com/olablt/tilebridge/tiles/worker"
)

// State of a tile inside a Manager.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateError
)

// Manager serves decoded tiles from its cache and loads missing ones in the
// background. Failed tiles are remembered and never requested again.
type Manager struct {
	provider Provider
	cache    *Cache
	pool     *worker.Pool

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	loading map[string]bool
	failed  map[string]bool
	onLoad  func()
}

func NewManager(provider Provider, cache *Cache, pool *worker.Pool) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		provider: provider,
		cache:    cache,
		pool:     pool,
		ctx:      ctx,
		cancel:   cancel,
		loading:  make(map[string]bool),
		failed:   make(map[string]bool),
	}
}

func (m *Manager) Cache() *Cache {
	return m.cache
}

// SetOnLoadCallback registers fn to run, on a worker goroutine, after each
// tile finishes loading successfully.
func (m *Manager) SetOnLoadCallback(fn func()) {
	m.mu.Lock()
	m.onLoad = fn
	m.mu.Unlock()
}

// Get returns the cached tile, if any. Otherwise it schedules a load with the
// given priority and reports the tile's current state.
func (m *Manager) Get(c Coord, priority int) (image.Image, State) {
	key := c.Key()
	if img, ok := m.cache.Get(key); ok {
		return img, StateLoaded
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.failed[key]:
		return nil, StateError
	case m.loading[key]:
		return nil, StateLoading
	case m.ctx.Err() != nil:
		return nil, StateIdle
	}

	m.loading[key] = true
	err := m.pool.Submit(worker.Task{
		Ctx:      m.ctx,
		Priority: priority,
		Work: func(ctx context.Context) error {
			img, err := m.provider.GetTile(ctx, c)
			if err != nil {
				return err
			}
			m.cache.Set(key, img)
			return nil
		},
		Done: func(err error) { m.finish(key, err) },
	})
	if err != nil {
		delete(m.loading, key)
		return nil, StateIdle
	}
	return nil, StateLoading
}

func (m *Manager) finish(key string, err error) {
	m.mu.Lock()
	delete(m.loading, key)
	onLoad := m.onLoad
	switch {
	case err == nil:
	case m.ctx.Err() != nil:
		// cancelled loads may be retried by a later Get
		onLoad = nil
	default:
		m.failed[key] = true
		onLoad = nil
		log.Printf("Error loading tile %v: %v", key, err)
	}
	m.mu.Unlock()

	if onLoad != nil {
		onLoad()
	}
}

// Pending returns the number of tiles currently loading.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loading)
}

// Close cancels outstanding loads. The manager serves only cached tiles
// afterwards.
func (m *Manager) Close() {
	m.cancel()
}
