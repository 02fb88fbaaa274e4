package audit

import (
	"context"
	"log/slog"
	"sync"
)

// Worker drains audit events to a Sink on a background goroutine. When the
// buffer is full events are dropped with a warning rather than blocking the
// posting transaction.
type Worker struct {
	events chan Event
	sink   Sink
	log    *slog.Logger
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewWorker builds a worker with the given buffer size.
func NewWorker(sink Sink, bufferSize int, logger *slog.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		events: make(chan Event, bufferSize),
		sink:   sink,
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the drain loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				w.log.Info("draining audit events before shutdown", "remaining", len(w.events))
				for {
					select {
					case e := <-w.events:
						if err := w.sink.SaveAuditEvent(context.Background(), e); err != nil {
							w.log.Error("audit save failed during shutdown", "err", err, "module", e.Module, "action", e.Action)
						}
					default:
						return
					}
				}
			case e := <-w.events:
				if err := w.sink.SaveAuditEvent(w.ctx, e); err != nil {
					w.log.Error("audit save failed", "err", err, "module", e.Module, "action", e.Action)
				}
			}
		}
	}()
}

// Log implements Recorder. It never blocks the caller.
func (w *Worker) Log(e Event) {
	select {
	case w.events <- e:
	default:
		w.log.Warn("audit buffer full, dropping event", "module", e.Module, "action", e.Action)
	}
}

// Shutdown stops the worker after draining buffered events.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}
