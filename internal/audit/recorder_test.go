package audit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-authz/internal/policy"
)

type memorySink struct {
	mu      sync.Mutex
	batches [][]Event
	err     error
}

func (s *memorySink) Write(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, events)
	return s.err
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func (s *memorySink) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func testEvent(action policy.Action) Event {
	return NewEvent("users", action, "admin", policy.Explanation{Allowed: true, Decision: policy.DecisionAllow})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_FlushOnBatchSize(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(discardLogger(), RecorderOptions{BatchSize: 3, FlushInterval: time.Hour}, sink)

	for i := 0; i < 6; i++ {
		assert.True(t, r.Record(testEvent("read")))
	}

	assert.Eventually(t, func() bool { return sink.count() == 6 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, sink.batchCount())
	require.NoError(t, r.Close(context.Background()))
}

func TestRecorder_FlushOnInterval(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(discardLogger(), RecorderOptions{BatchSize: 100, FlushInterval: 10 * time.Millisecond}, sink)

	r.Record(testEvent("read"))

	assert.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, r.Close(context.Background()))
}

func TestRecorder_CloseDrains(t *testing.T) {
	sink := &memorySink{}
	other := &memorySink{}
	r := NewRecorder(discardLogger(), RecorderOptions{BatchSize: 100, FlushInterval: time.Hour}, sink, other)

	for i := 0; i < 5; i++ {
		r.Record(testEvent("update"))
	}
	require.NoError(t, r.Close(context.Background()))

	assert.Equal(t, 5, sink.count())
	assert.Equal(t, 5, other.count())
	assert.Equal(t, int64(5), r.Written())

	assert.False(t, r.Record(testEvent("read")), "closed recorder must reject events")
	assert.Equal(t, int64(1), r.Dropped())
	require.NoError(t, r.Close(context.Background()), "Close is idempotent")
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &blockingSink{release: block}
	r := NewRecorder(discardLogger(), RecorderOptions{BatchSize: 1, Buffer: 1, FlushInterval: time.Hour}, sink)

	// first event is taken by the flusher and blocks in the sink
	r.Record(testEvent("read"))
	assert.Eventually(t, func() bool { return sink.started() }, time.Second, time.Millisecond)

	assert.True(t, r.Record(testEvent("read")))
	assert.False(t, r.Record(testEvent("read")))
	assert.Equal(t, int64(1), r.Dropped())

	close(block)
	require.NoError(t, r.Close(context.Background()))
}

func TestRecorder_SinkErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	failing := &memorySink{err: errors.New("disk full")}
	healthy := &memorySink{}
	r := NewRecorder(logger, RecorderOptions{}, failing, healthy)

	r.Record(testEvent("delete"))
	require.NoError(t, r.Close(context.Background()))

	assert.Equal(t, 1, healthy.count(), "one failing sink must not starve the others")
	assert.Contains(t, buf.String(), "audit sink write failed")
	assert.Contains(t, buf.String(), "disk full")
}

func TestRecorder_CloseHonoursContext(t *testing.T) {
	block := make(chan struct{})
	sink := &blockingSink{release: block}
	r := NewRecorder(discardLogger(), RecorderOptions{}, sink)
	r.Record(testEvent("read"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Close(ctx), context.DeadlineExceeded)

	close(block)
}

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	entered bool
}

func (s *blockingSink) Write(ctx context.Context, _ []Event) error {
	s.mu.Lock()
	s.entered = true
	s.mu.Unlock()
	<-s.release
	return nil
}

func (s *blockingSink) started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entered
}
