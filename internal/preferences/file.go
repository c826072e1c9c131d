package preferences

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps preferences in a local JSON file.
type FileStore struct {
	Path string

	mu sync.Mutex
}

type fileRecord struct {
	Users     map[string]bool `json:"users"`
	UpdatedAt string          `json:"updated_at"`
}

func (s *FileStore) Load(ctx context.Context, userID string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read()
	if err != nil {
		return false, false, err
	}
	show, ok := rec.Users[userID]
	return show, ok, nil
}

func (s *FileStore) Save(ctx context.Context, userID string, show bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read()
	if err != nil {
		return err
	}
	rec.Users[userID] = show
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)

	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preferences dir: %w", err)
		}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write preferences tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename preferences: %w", err)
	}
	return nil
}

func (s *FileStore) read() (fileRecord, error) {
	rec := fileRecord{Users: make(map[string]bool)}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return rec, nil
		}
		return rec, fmt.Errorf("read preferences: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse preferences: %w", err)
	}
	if rec.Users == nil {
		rec.Users = make(map[string]bool)
	}
	return rec, nil
}
