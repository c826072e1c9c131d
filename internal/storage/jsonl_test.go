package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"riskscan/internal/model"
)

func readRecords(t *testing.T, path string) []model.ScanRecord {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var out []model.ScanRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec model.ScanRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scans.jsonl")
	sink := NewJsonlStorage(path)

	first := []model.ScanRecord{{ChainID: 56, Address: "0xAAA", Status: "success", RiskLevel: "Low"}}
	second := []model.ScanRecord{{ChainID: 56, Address: "0xBBB", Status: "failure", Error: "boom"}}
	if err := sink.PutScanBatch(context.Background(), first); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := sink.PutScanBatch(context.Background(), second); err != nil {
		t.Fatalf("put: %v", err)
	}

	got := readRecords(t, path)
	if len(got) != 2 || got[0].Address != "0xAAA" || got[1].Error != "boom" {
		t.Fatalf("records mismatch: %+v", got)
	}
}

func TestRecorderFlushesOnStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scans.jsonl")
	rec := NewRecorder(NewJsonlStorage(path), 10, time.Hour, nil)

	key := model.Key{ChainID: 56, Address: "0xAAA"}
	rec.Observe(model.Snapshot{Key: key, Status: model.StatusPending})
	rec.Observe(model.Snapshot{Key: key, Status: model.StatusFailure, Err: errors.New("boom")})
	rec.Observe(model.Snapshot{Key: key, Status: model.StatusSuccess, Result: &model.RiskResult{RiskLevel: model.RiskHigh}})
	rec.Stop()

	got := readRecords(t, path)
	if len(got) != 2 {
		t.Fatalf("pending snapshots must be skipped, got %+v", got)
	}
	if got[0].Status != "failure" || got[1].RiskLevel != "High" {
		t.Fatalf("records mismatch: %+v", got)
	}
}
