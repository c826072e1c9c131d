package preferences

import (
	"context"

	"riskscan/internal/storage/postgres"
)

// DBStore stores preferences in the user_preferences table.
type DBStore struct {
	Store *postgres.Store
}

func (s *DBStore) Load(ctx context.Context, userID string) (bool, bool, error) {
	if s == nil || s.Store == nil {
		return false, false, nil
	}
	return s.Store.LoadPreference(ctx, userID)
}

func (s *DBStore) Save(ctx context.Context, userID string, show bool) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SavePreference(ctx, userID, show)
}
