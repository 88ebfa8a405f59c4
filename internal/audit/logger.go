package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/thinkcrm/plugincore/internal/platform/database"
)

const (
	defaultBufferSize    = 4096
	defaultBatchSize     = 100
	defaultFlushInterval = 500 * time.Millisecond
	defaultWriteTimeout  = 5 * time.Second

	// maxBatchSize keeps one multi-row insert under Postgres's 65535 bind
	// parameter limit.
	maxBatchSize = 65535 / eventColumns
)

// LoggerConfig configures the async audit logger. Zero values take defaults.
type LoggerConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
}

func (c LoggerConfig) withDefaults() LoggerConfig {
	if c.BufferSize <= 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.BatchSize > maxBatchSize {
		c.BatchSize = maxBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = defaultFlushInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	return c
}

// Stats counts events by fate.
type Stats struct {
	Written int64
	Dropped int64
	Failed  int64
}

// AsyncLogger batches events off the invocation path and writes them with
// one multi-row insert per batch.
type AsyncLogger struct {
	queue chan Event
	store *Store
	db    database.Querier
	cfg   LoggerConfig

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// mu orders Log's check-then-send against Close so nothing is queued
	// after the writer has drained.
	mu     sync.RWMutex
	closed bool

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewAsyncLogger starts the background writer.
func NewAsyncLogger(db database.Querier, store *Store, cfg LoggerConfig) *AsyncLogger {
	cfg = cfg.withDefaults()
	l := &AsyncLogger{
		queue: make(chan Event, cfg.BufferSize),
		store: store,
		db:    db,
		cfg:   cfg,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

// Log enqueues event without blocking. Events are dropped when the buffer
// is full or the logger is closed.
func (l *AsyncLogger) Log(_ context.Context, event Event) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	select {
	case l.queue <- event:
	default:
		l.dropped.Add(1)
		slog.Warn("audit buffer full, dropping event", "action", event.Action, "handler", event.Handler)
	}
}

func (l *AsyncLogger) Dropped() int64 { return l.dropped.Load() }

func (l *AsyncLogger) Stats() Stats {
	return Stats{Written: l.written.Load(), Dropped: l.dropped.Load(), Failed: l.failed.Load()}
}

// Close writes whatever is queued and stops the writer. Safe to call twice.
func (l *AsyncLogger) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		close(l.stop)
	})
	<-l.done
	return nil
}

func (l *AsyncLogger) run() {
	defer close(l.done)

	ticker := time.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, l.cfg.BatchSize)
	for {
		select {
		case e := <-l.queue:
			batch = append(batch, e)
			if len(batch) >= l.cfg.BatchSize {
				batch = l.write(batch)
			}
		case <-ticker.C:
			batch = l.write(batch)
		case <-l.stop:
			for {
				select {
				case e := <-l.queue:
					batch = append(batch, e)
					if len(batch) >= l.cfg.BatchSize {
						batch = l.write(batch)
					}
				default:
					l.write(batch)
					return
				}
			}
		}
	}
}

// write persists batch and returns it emptied for reuse.
func (l *AsyncLogger) write(batch []Event) []Event {
	if len(batch) == 0 {
		return batch
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.WriteTimeout)
	defer cancel()

	if err := l.store.InsertBatch(ctx, l.db, batch); err != nil {
		l.failed.Add(int64(len(batch)))
		slog.Error("audit flush failed", "error", err, "count", len(batch))
	} else {
		l.written.Add(int64(len(batch)))
	}
	return batch[:0]
}
