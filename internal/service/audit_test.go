package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/office-booking/internal/model"
)

type collectSink struct {
	mu      sync.Mutex
	entries []model.AuditEntry
	err     error
	block   chan struct{}
}

func (s *collectSink) Write(_ context.Context, e model.AuditEntry) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func TestAuditorWritesEntries(t *testing.T) {
	sink := &collectSink{}
	a := NewAuditor(sink, quietLogger(), 8)

	a.Record("u1", model.ActionConfigCreate, map[string]any{"type": "room_type"})
	a.Record("u2", model.ActionUserRoleChange, nil)
	require.NoError(t, a.Close(context.Background()))

	require.Len(t, sink.entries, 2)
	assert.Equal(t, "u1", sink.entries[0].ActorID)
	assert.Equal(t, model.ActionConfigCreate, sink.entries[0].Action)
	assert.NotEmpty(t, sink.entries[0].ID)
	assert.False(t, sink.entries[0].CreatedAt.IsZero())
}

func TestAuditorSkipsEmptyActor(t *testing.T) {
	sink := &collectSink{}
	a := NewAuditor(sink, quietLogger(), 8)
	a.Record("", model.ActionUpdateProfile, nil)
	require.NoError(t, a.Close(context.Background()))
	assert.Empty(t, sink.entries)
}

func TestAuditorSinkFailureIsSwallowed(t *testing.T) {
	sink := &collectSink{err: errors.New("broker down")}
	a := NewAuditor(sink, quietLogger(), 8)
	assert.NotPanics(t, func() { a.Record("u1", model.ActionConfigDelete, nil) })
	require.NoError(t, a.Close(context.Background()))
	assert.Empty(t, sink.entries)
}

func TestAuditorRecordNeverBlocks(t *testing.T) {
	sink := &collectSink{block: make(chan struct{})}
	a := NewAuditor(sink, quietLogger(), 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			a.Record("u1", model.ActionConfigCreate, nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a stalled sink")
	}

	close(sink.block)
	require.NoError(t, a.Close(context.Background()))
	// One entry held by the worker plus at most one in the buffer.
	assert.LessOrEqual(t, len(sink.entries), 2)
}

func TestAuditorRecordAfterClose(t *testing.T) {
	sink := &collectSink{}
	a := NewAuditor(sink, quietLogger(), 4)
	require.NoError(t, a.Close(context.Background()))
	require.NoError(t, a.Close(context.Background()))
	assert.NotPanics(t, func() { a.Record("u1", model.ActionConfigCreate, nil) })
	assert.Empty(t, sink.entries)
}

func TestAuditSinkFunc(t *testing.T) {
	var got string
	sink := AuditSinkFunc(func(_ context.Context, e model.AuditEntry) error {
		got = e.Action
		return nil
	})
	require.NoError(t, sink.Write(context.Background(), model.AuditEntry{Action: "X"}))
	assert.Equal(t, "X", got)
}
