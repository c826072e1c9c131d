// Package fetcher caches token risk lookups keyed by chain id and address.
//
// The cache is immutable: a resolved lookup (success or failure) is kept for
// the life of the process and only replaced by an explicit Revalidate.
// Concurrent callers of the same key share a single in-flight request.
package fetcher

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"riskscan/internal/metrics"
	"riskscan/internal/model"
)

// RiskSource performs the remote risk lookup.
type RiskSource interface {
	FetchRiskToken(ctx context.Context, address string, chainID uint64) (model.RiskResult, error)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithTimeout bounds each provider request. Zero leaves the transport defaults.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = timeout
	}
}

// Fetcher is a process-wide deduplicated cache of risk lookups.
type Fetcher struct {
	source  RiskSource
	logger  *zap.Logger
	timeout time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc

	group singleflight.Group

	mu        sync.RWMutex
	entries   map[model.Key]model.Snapshot
	gens      map[model.Key]uint64
	listeners map[int]func(model.Snapshot)
	nextID    int
}

// New builds a Fetcher around source.
func New(source RiskSource, opts ...Option) *Fetcher {
	ctx, cancel := context.WithCancel(context.Background())
	f := &Fetcher{
		source:    source,
		logger:    zap.NewNop(),
		baseCtx:   ctx,
		cancel:    cancel,
		entries:   make(map[model.Key]model.Snapshot),
		gens:      make(map[model.Key]uint64),
		listeners: make(map[int]func(model.Snapshot)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Close cancels outstanding requests. Later lookups stay pending.
func (f *Fetcher) Close() {
	f.cancel()
}

// Snapshot returns the current state of key without fetching.
func (f *Fetcher) Snapshot(key model.Key) model.Snapshot {
	if snap, ok := f.cached(key); ok {
		return snap
	}
	return model.Snapshot{Key: key, Status: model.StatusPending}
}

// Request returns the state for token and starts the lookup if none was made yet.
// A nil token never triggers a request and always reads as pending.
func (f *Fetcher) Request(token *model.Token) model.Snapshot {
	key, ok := model.KeyOf(token)
	if !ok {
		metrics.RiskCacheLookupsTotal.WithLabelValues("absent").Inc()
		return model.Snapshot{Status: model.StatusPending}
	}

	if snap, ok := f.cached(key); ok {
		metrics.RiskCacheLookupsTotal.WithLabelValues("hit").Inc()
		return snap
	}

	metrics.RiskCacheLookupsTotal.WithLabelValues("miss").Inc()
	f.dispatch(key)
	return model.Snapshot{Key: key, Status: model.StatusPending}
}

// Load waits for the lookup of key, starting it if needed. ctx bounds the wait only;
// the shared request keeps running for other callers.
func (f *Fetcher) Load(ctx context.Context, key model.Key) (model.Snapshot, error) {
	if snap, ok := f.cached(key); ok {
		return snap, nil
	}
	return f.wait(ctx, key)
}

// Revalidate drops the cached value of key and fetches it again. When nothing is
// cached yet, the request already in flight (or a new one) serves as the refetch.
func (f *Fetcher) Revalidate(ctx context.Context, key model.Key) (model.Snapshot, error) {
	metrics.RiskRetriesTotal.Inc()
	f.logger.Info("risk revalidate",
		zap.Uint64("chain_id", key.ChainID),
		zap.String("address", key.Address),
	)

	f.mu.Lock()
	_, cached := f.entries[key]
	if cached {
		delete(f.entries, key)
		f.gens[key]++
	}
	listeners := f.listenersLocked()
	f.mu.Unlock()

	if cached {
		notify(listeners, model.Snapshot{Key: key, Status: model.StatusPending})
	}
	return f.wait(ctx, key)
}

// Subscribe registers fn for state changes of any key. fn runs on the goroutine that
// resolved the lookup and must not block.
func (f *Fetcher) Subscribe(fn func(model.Snapshot)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.listeners, id)
			f.mu.Unlock()
		})
	}
}

func (f *Fetcher) wait(ctx context.Context, key model.Key) (model.Snapshot, error) {
	select {
	case res := <-f.dispatch(key):
		return res.Val.(model.Snapshot), nil
	case <-ctx.Done():
		return f.Snapshot(key), ctx.Err()
	}
}

// dispatch joins or starts the flight for the current generation of key.
// Revalidate bumps the generation so callers never join a flight that
// would hand back the invalidated value.
func (f *Fetcher) dispatch(key model.Key) <-chan singleflight.Result {
	f.mu.RLock()
	gen := f.gens[key]
	f.mu.RUnlock()

	flight := key.String() + "#" + strconv.FormatUint(gen, 10)
	return f.group.DoChan(flight, func() (interface{}, error) {
		return f.fetch(key, gen), nil
	})
}

func (f *Fetcher) fetch(key model.Key, gen uint64) model.Snapshot {
	f.mu.RLock()
	snap, ok := f.entries[key]
	current := f.gens[key]
	f.mu.RUnlock()

	if current != gen {
		res := <-f.dispatch(key)
		return res.Val.(model.Snapshot)
	}
	// Resolved between the caller's cache check and this call.
	if ok {
		return snap
	}

	pending := model.Snapshot{Key: key, Status: model.StatusPending}
	if f.baseCtx.Err() != nil {
		return pending
	}

	ctx := f.baseCtx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	f.logger.Debug("risk fetch",
		zap.Uint64("chain_id", key.ChainID),
		zap.String("address", key.Address),
	)

	start := time.Now()
	result, err := f.source.FetchRiskToken(ctx, key.Address, key.ChainID)
	metrics.RiskFetchDuration.Observe(time.Since(start).Seconds())

	if f.baseCtx.Err() != nil {
		return pending
	}

	snap = model.Snapshot{Key: key}
	if err != nil {
		metrics.RiskFetchesTotal.WithLabelValues("failure").Inc()
		f.logger.Warn("risk fetch failed",
			zap.Uint64("chain_id", key.ChainID),
			zap.String("address", key.Address),
			zap.Error(err),
		)
		snap.Status = model.StatusFailure
		snap.Err = err
	} else {
		metrics.RiskFetchesTotal.WithLabelValues("success").Inc()
		snap.Status = model.StatusSuccess
		snap.Result = &result
	}

	f.mu.Lock()
	f.entries[key] = snap
	listeners := f.listenersLocked()
	f.mu.Unlock()
	notify(listeners, snap)

	return snap
}

func (f *Fetcher) cached(key model.Key) (model.Snapshot, bool) {
	f.mu.RLock()
	snap, ok := f.entries[key]
	f.mu.RUnlock()
	return snap, ok
}

// Caller must hold f.mu.
func (f *Fetcher) listenersLocked() []func(model.Snapshot) {
	out := make([]func(model.Snapshot), 0, len(f.listeners))
	for _, fn := range f.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(model.Snapshot), snap model.Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}
