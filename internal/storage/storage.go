package storage

import (
	"context"

	"riskscan/internal/model"
)

// Storage defines a sink for scan audit records.
type Storage interface {
	PutScanBatch(ctx context.Context, records []model.ScanRecord) error
}
