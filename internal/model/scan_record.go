package model

import "time"

// ScanRecord is the audit entry written for every resolved lookup.
type ScanRecord struct {
	ChainID    uint64    `json:"chain_id"`
	Address    string    `json:"address"`
	Status     string    `json:"status"`
	RiskLevel  string    `json:"risk_level,omitempty"`
	Error      string    `json:"error,omitempty"`
	ScannedAt  time.Time `json:"scanned_at,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// ScanRecordFromSnapshot builds an audit entry. Pending snapshots are not recorded.
func ScanRecordFromSnapshot(snap Snapshot, resolvedAt time.Time) (ScanRecord, bool) {
	if !snap.Resolved() {
		return ScanRecord{}, false
	}
	rec := ScanRecord{
		ChainID:    snap.Key.ChainID,
		Address:    snap.Key.Address,
		Status:     snap.Status.String(),
		ResolvedAt: resolvedAt.UTC(),
	}
	if snap.Result != nil {
		rec.RiskLevel = string(snap.Result.RiskLevel)
		rec.ScannedAt = snap.Result.ScannedAt
	}
	if snap.Err != nil {
		rec.Error = snap.Err.Error()
	}
	return rec, true
}
