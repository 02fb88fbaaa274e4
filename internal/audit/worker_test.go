package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (c *captureSink) SaveAuditEvent(_ context.Context, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("sink down")
	}
	c.events = append(c.events, e)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkerDrainsOnShutdown(t *testing.T) {
	sink := &captureSink{}
	w := NewWorker(sink, 16, testLogger())
	w.Start()
	for i := 0; i < 10; i++ {
		w.Log(New(uuid.New(), "journal", "post", uuid.New(), "posted entry", "tester", nil))
	}
	w.Shutdown()
	assert.Equal(t, 10, sink.count())
}

func TestWorkerNeverBlocksWhenFull(t *testing.T) {
	sink := &captureSink{}
	w := NewWorker(sink, 1, testLogger())
	// Worker not started: buffer fills, extra events drop without blocking.
	for i := 0; i < 5; i++ {
		w.Log(New(uuid.New(), "journal", "post", uuid.New(), "posted entry", "tester", nil))
	}
	w.Start()
	w.Shutdown()
	assert.Equal(t, 1, sink.count())
}

func TestWorkerSwallowsSinkFailures(t *testing.T) {
	sink := &captureSink{fail: true}
	w := NewWorker(sink, 4, testLogger())
	w.Start()
	w.Log(New(uuid.New(), "mapping", "create", uuid.New(), "mapped role", "tester", nil))
	// Shutdown must complete despite the failing sink.
	w.Shutdown()
	assert.Equal(t, 0, sink.count())
}
