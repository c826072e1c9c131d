package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"riskscan/internal/model"
)

// JsonlStorage appends scan records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutScanBatch appends a batch of scan records as JSON lines.
func (s *JsonlStorage) PutScanBatch(_ context.Context, records []model.ScanRecord) error {
	if len(records) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal scan record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write scan record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

// Multi fans a batch out to several sinks and returns the first error.
type Multi []Storage

func (m Multi) PutScanBatch(ctx context.Context, records []model.ScanRecord) error {
	var first error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutScanBatch(ctx, records); err != nil && first == nil {
			first = err
		}
	}
	return first
}
