package model

import "time"

// RiskLevel is the label returned by the risk scoring provider.
type RiskLevel string

const (
	RiskVeryLow   RiskLevel = "Very Low"
	RiskLow       RiskLevel = "Low"
	RiskLowMedium RiskLevel = "Low-Medium"
	RiskMedium    RiskLevel = "Medium"
	RiskHigh      RiskLevel = "High"
	RiskVeryHigh  RiskLevel = "Very High"
)

// riskBands maps the provider's numeric bands to labels.
var riskBands = map[string]RiskLevel{
	"0": RiskVeryLow,
	"1": RiskLow,
	"2": RiskLowMedium,
	"3": RiskMedium,
	"4": RiskHigh,
	"5": RiskVeryHigh,
}

// RiskLevelFromBand converts a band ("0".."5") to a label. Unknown bands pass through unchanged.
func RiskLevelFromBand(band string) RiskLevel {
	if level, ok := riskBands[band]; ok {
		return level
	}
	return RiskLevel(band)
}

// RiskResult is a successful risk lookup.
type RiskResult struct {
	ChainID   uint64    `json:"chain_id"`
	Address   string    `json:"address"`
	RiskLevel RiskLevel `json:"risk_level"`
	ScannedAt time.Time `json:"scanned_at,omitempty"`
}

// Status is the derived state of a lookup.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Snapshot is the state of one key at a point in time.
type Snapshot struct {
	Key    Key
	Status Status
	Result *RiskResult
	Err    error
}

// Resolved reports whether the lookup finished, successfully or not.
func (s Snapshot) Resolved() bool {
	return s.Status == StatusSuccess || s.Status == StatusFailure
}
