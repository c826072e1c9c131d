// Package preferences stores per-user display settings for the risk badge.
package preferences

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store persists the show-risk flag per user.
type Store interface {
	Load(ctx context.Context, userID string) (bool, bool, error)
	Save(ctx context.Context, userID string, show bool) error
}

// Resolver serves preferences from memory, loading each user from the store once.
type Resolver struct {
	store       Store
	defaultShow bool
	logger      *zap.Logger

	mu    sync.RWMutex
	cache map[string]bool
}

// NewResolver builds a resolver. A nil store keeps preferences in memory only.
func NewResolver(store Store, defaultShow bool, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		store:       store,
		defaultShow: defaultShow,
		logger:      logger,
		cache:       make(map[string]bool),
	}
}

// ShowRiskScanning returns the flag for userID, falling back to the default when
// the user has none or the store is unavailable.
func (r *Resolver) ShowRiskScanning(ctx context.Context, userID string) bool {
	r.mu.RLock()
	show, ok := r.cache[userID]
	r.mu.RUnlock()
	if ok {
		return show
	}

	show = r.defaultShow
	if r.store != nil && userID != "" {
		stored, found, err := r.store.Load(ctx, userID)
		if err != nil {
			r.logger.Warn("load preference", zap.String("user", userID), zap.Error(err))
			return show
		}
		if found {
			show = stored
		}
	}

	r.mu.Lock()
	r.cache[userID] = show
	r.mu.Unlock()
	return show
}

// SetShowRiskScanning updates the flag in memory and in the store.
func (r *Resolver) SetShowRiskScanning(ctx context.Context, userID string, show bool) error {
	if r.store != nil && userID != "" {
		if err := r.store.Save(ctx, userID, show); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.cache[userID] = show
	r.mu.Unlock()
	return nil
}

// For binds the resolver to one user. The result satisfies the badge's
// preference accessor and always reflects the latest value.
func (r *Resolver) For(userID string) User {
	return User{resolver: r, id: userID}
}

// User is the preference accessor of a single user.
type User struct {
	resolver *Resolver
	id       string
}

func (u User) ShowRiskScanning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return u.resolver.ShowRiskScanning(ctx, u.id)
}
