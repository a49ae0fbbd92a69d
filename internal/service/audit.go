package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/office-booking/internal/model"
)

// AuditSink persists one entry: a broker publish or a direct insert.
type AuditSink interface {
	Write(ctx context.Context, e model.AuditEntry) error
}

// AuditSinkFunc adapts a function to AuditSink.
type AuditSinkFunc func(ctx context.Context, e model.AuditEntry) error

func (f AuditSinkFunc) Write(ctx context.Context, e model.AuditEntry) error { return f(ctx, e) }

// Auditor queues audit entries and writes them from a single background
// worker.  Record never blocks: when the queue is full or the auditor is
// closed the entry is dropped with a warning.  Sink failures are logged and
// never reach the request that produced the entry.
type Auditor struct {
	sink         AuditSink
	log          *logrus.Logger
	ch           chan model.AuditEntry
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAuditor(sink AuditSink, log *logrus.Logger, buffer int) *Auditor {
	if buffer < 1 {
		buffer = 1
	}
	a := &Auditor{
		sink:         sink,
		log:          log,
		ch:           make(chan model.AuditEntry, buffer),
		writeTimeout: 5 * time.Second,
		done:         make(chan struct{}),
	}
	go a.run()
	return a
}

// Record enqueues an entry.  An empty actor records nothing.
func (a *Auditor) Record(actorID, action string, details map[string]any) {
	if actorID == "" {
		return
	}
	e := model.AuditEntry{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.log.WithField("action", action).Warn("audit: auditor closed, entry dropped")
		return
	}
	select {
	case a.ch <- e:
	default:
		a.log.WithField("action", action).Warn("audit: queue full, entry dropped")
	}
}

func (a *Auditor) run() {
	defer close(a.done)
	for e := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
		if err := a.sink.Write(ctx, e); err != nil {
			a.log.WithError(err).WithFields(logrus.Fields{
				"action":   e.Action,
				"actor_id": e.ActorID,
			}).Warn("audit: write failed, entry dropped")
		}
		cancel()
	}
}

// Close stops accepting entries and waits for queued ones to be written or
// for ctx to expire.
func (a *Auditor) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
