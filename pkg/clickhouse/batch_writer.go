package clickhouse

import (
	"context"
	"sync"
	"time"

	"kairos/pkg/logger"
)

// FlushFunc performs the actual INSERT for one accumulated batch
type FlushFunc func(ctx context.Context, batch []interface{}) error

// BatchWriter buffers rows in memory and hands them to FlushFunc when the
// buffer fills or on a timer, whichever comes first. ClickHouse wants few
// large inserts; callers want fire-and-forget row writes. A batch that fails
// to flush is dropped after logging; size-triggered callers also see the error.
type BatchWriter struct {
	flushFunc FlushFunc
	log       *logger.Logger

	maxBatchSize int
	flushEvery   time.Duration

	mu     sync.Mutex
	buffer []interface{}

	runMu   sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// BatchWriterConfig contains configuration for BatchWriter
type BatchWriterConfig struct {
	FlushFunc    FlushFunc
	TableName    string
	MaxBatchSize int           // Default: 500
	MaxAge       time.Duration // Default: 5s
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(cfg BatchWriterConfig) *BatchWriter {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 500
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Second
	}

	return &BatchWriter{
		flushFunc:    cfg.FlushFunc,
		buffer:       make([]interface{}, 0, cfg.MaxBatchSize),
		maxBatchSize: cfg.MaxBatchSize,
		flushEvery:   cfg.MaxAge,
		log:          logger.Get().With("component", "batch_writer", "table", cfg.TableName),
	}
}

// Start launches the background flush loop. Calling Start on a running
// writer is a no-op; a stopped writer can be started again.
func (bw *BatchWriter) Start(ctx context.Context) {
	bw.runMu.Lock()
	defer bw.runMu.Unlock()

	if bw.running {
		return
	}
	bw.running = true
	bw.stop = make(chan struct{})
	bw.done = make(chan struct{})

	go bw.run(ctx)

	bw.log.Infof("Batch writer started (batch=%d, every=%v)", bw.maxBatchSize, bw.flushEvery)
}

// Add buffers one row. When the buffer reaches capacity the flush runs on the
// caller's goroutine, so a size-triggered insert error surfaces here.
func (bw *BatchWriter) Add(ctx context.Context, item interface{}) error {
	bw.mu.Lock()
	bw.buffer = append(bw.buffer, item)
	full := len(bw.buffer) >= bw.maxBatchSize
	bw.mu.Unlock()

	if full {
		return bw.Flush(ctx)
	}
	return nil
}

// Flush writes the buffered rows through FlushFunc. The buffer is swapped out
// under the lock so concurrent Adds land in the next batch.
func (bw *BatchWriter) Flush(ctx context.Context) error {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return nil
	}
	batch := bw.buffer
	bw.buffer = make([]interface{}, 0, bw.maxBatchSize)
	bw.mu.Unlock()

	start := time.Now()
	if err := bw.flushFunc(ctx, batch); err != nil {
		bw.log.Errorf("Failed to flush %d rows: %v (took %v)", len(batch), err, time.Since(start))
		return err
	}

	bw.log.Debugf("Flushed %d rows in %v", len(batch), time.Since(start))
	return nil
}

func (bw *BatchWriter) run(ctx context.Context) {
	defer close(bw.done)

	ticker := time.NewTicker(bw.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			bw.drain()
			return

		case <-bw.stop:
			bw.drain()
			return

		case <-ticker.C:
			if err := bw.Flush(ctx); err != nil {
				bw.log.Errorf("Periodic flush failed: %v", err)
			}
		}
	}
}

// drain flushes the tail with a bounded context of its own, since the loop
// context is usually already cancelled by the time it runs.
func (bw *BatchWriter) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := bw.Flush(ctx); err != nil {
		bw.log.Errorf("Final flush failed: %v", err)
	}
}

// Stop signals the loop and waits for the final flush. Returns the context
// error when the wait exceeds the deadline.
func (bw *BatchWriter) Stop(ctx context.Context) error {
	bw.runMu.Lock()
	if !bw.running {
		bw.runMu.Unlock()
		return nil
	}
	bw.running = false
	close(bw.stop)
	done := bw.done
	bw.runMu.Unlock()

	select {
	case <-done:
		bw.log.Info("Batch writer stopped")
		return nil
	case <-ctx.Done():
		bw.log.Warn("Batch writer stop timed out")
		return ctx.Err()
	}
}

// BufferSize reports the rows currently waiting to be flushed
func (bw *BatchWriter) BufferSize() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}
