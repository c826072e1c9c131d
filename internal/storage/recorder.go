package storage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"riskscan/internal/model"
)

// Recorder turns resolved fetcher snapshots into scan records and writes them
// to a sink from a single background goroutine.
type Recorder struct {
	sink      Storage
	logger    *zap.Logger
	batchSize int
	interval  time.Duration

	mu      sync.RWMutex
	stopped bool
	queue   chan model.ScanRecord
	done    chan struct{}
}

// NewRecorder starts the writer goroutine. Stop flushes pending records.
func NewRecorder(sink Storage, batchSize int, interval time.Duration, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = time.Second
	}
	r := &Recorder{
		sink:      sink,
		logger:    logger,
		batchSize: batchSize,
		interval:  interval,
		queue:     make(chan model.ScanRecord, batchSize*4),
		done:      make(chan struct{}),
	}
	go r.loop()
	return r
}

// Observe is a fetcher subscription callback. It never blocks; records are
// dropped when the queue is full or the recorder has stopped.
func (r *Recorder) Observe(snap model.Snapshot) {
	rec, ok := model.ScanRecordFromSnapshot(snap, time.Now())
	if !ok {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return
	}
	select {
	case r.queue <- rec:
	default:
		r.logger.Warn("scan record dropped", zap.String("address", rec.Address))
	}
}

// Stop flushes queued records and waits for the writer to exit.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	batch := make([]model.ScanRecord, 0, r.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.sink.PutScanBatch(ctx, batch); err != nil {
			r.logger.Warn("store scan records", zap.Int("records", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec, ok := <-r.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= r.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
