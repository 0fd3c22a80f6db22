package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second
	defaultBuffer        = 1024
	defaultWriteTimeout  = 5 * time.Second
)

// RecorderOptions tunes batching. Zero values select the defaults.
type RecorderOptions struct {
	BatchSize     int
	FlushInterval time.Duration
	Buffer        int
	WriteTimeout  time.Duration
}

// Recorder collects events without blocking the caller and writes them to every sink in batches.
// A batch is flushed when it reaches BatchSize or when FlushInterval elapses.
type Recorder struct {
	sinks  []Sink
	logger *slog.Logger
	opts   RecorderOptions

	mu     sync.RWMutex
	closed bool
	events chan Event
	done   chan struct{}

	dropped atomic.Int64
	written atomic.Int64
}

// NewRecorder starts a recorder writing to sinks
func NewRecorder(logger *slog.Logger, opts RecorderOptions, sinks ...Sink) *Recorder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}

	r := &Recorder{
		sinks:  sinks,
		logger: logger,
		opts:   opts,
		events: make(chan Event, opts.Buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues an event. It returns false when the event was dropped
// because the buffer is full or the recorder is closed.
func (r *Recorder) Record(e Event) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return false
	}

	select {
	case r.events <- e:
		return true
	default:
		r.dropped.Add(1)
		r.logger.Warn("audit buffer full, dropping event",
			slog.String("resource", string(e.Resource)),
			slog.String("action", string(e.Action)),
		)
		return false
	}
}

// Close stops accepting events and waits until queued events are flushed or ctx ends
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns the number of events that were not queued
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Written returns the number of events handed to the sinks
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

func (r *Recorder) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, r.opts.BatchSize)
	for {
		select {
		case e, ok := <-r.events:
			if !ok {
				r.flush(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= r.opts.BatchSize {
				r.flush(batch)
				batch = make([]Event, 0, r.opts.BatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = make([]Event, 0, r.opts.BatchSize)
			}
		}
	}
}

func (r *Recorder) flush(batch []Event) {
	if len(batch) == 0 {
		return
	}

	for _, sink := range r.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.WriteTimeout)
		if err := sink.Write(ctx, batch); err != nil {
			r.logger.Error("audit sink write failed",
				slog.Int("events", len(batch)),
				slog.Any("error", err),
			)
		}
		cancel()
	}
	r.written.Add(int64(len(batch)))
}
