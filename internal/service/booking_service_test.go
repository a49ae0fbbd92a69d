package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/office-booking/internal/apperror"
	"github.com/iliyamo/office-booking/internal/model"
	"github.com/iliyamo/office-booking/internal/repository"
)

// memStore is an in-memory BookingStore.  InTx serializes per space the way
// the row lock does: the lock is taken in LockSpace and released when the
// transaction ends.  Inserts are buffered and applied only on commit.
type memStore struct {
	mu       sync.Mutex
	spaces   map[string]bool // id -> is_active
	locks    map[string]*sync.Mutex
	bookings []model.Booking
	txCalls  atomic.Int32

	failInsert error
}

func newMemStore(spaces map[string]bool) *memStore {
	locks := make(map[string]*sync.Mutex, len(spaces))
	for id := range spaces {
		locks[id] = &sync.Mutex{}
	}
	return &memStore{spaces: spaces, locks: locks}
}

type memTx struct {
	s       *memStore
	held    []*sync.Mutex
	pending []model.Booking
}

func (t *memTx) LockSpace(_ context.Context, spaceID string) (bool, error) {
	t.s.mu.Lock()
	active, ok := t.s.spaces[spaceID]
	l := t.s.locks[spaceID]
	t.s.mu.Unlock()
	if !ok {
		return false, repository.ErrSpaceNotFound
	}
	l.Lock()
	t.held = append(t.held, l)
	return active, nil
}

func (t *memTx) FindOverlapping(_ context.Context, spaceID string, start, end time.Time) ([]model.Booking, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var out []model.Booking
	for _, b := range t.s.bookings {
		if b.SpaceID == spaceID && b.Overlaps(start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (t *memTx) Insert(_ context.Context, b *model.Booking) error {
	if t.s.failInsert != nil {
		return t.s.failInsert
	}
	t.pending = append(t.pending, *b)
	return nil
}

func (s *memStore) InTx(_ context.Context, fn func(tx repository.BookingTx) error) error {
	s.txCalls.Add(1)
	tx := &memTx{s: s}
	defer func() {
		for _, l := range tx.held {
			l.Unlock()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	s.bookings = append(s.bookings, tx.pending...)
	s.mu.Unlock()
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ID == id {
			b := b
			return &b, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (s *memStore) ListBySpace(_ context.Context, spaceID string) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.SpaceID == spaceID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) ListByUser(_ context.Context, userID string) ([]model.UserBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.UserBooking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, model.UserBooking{Booking: b})
		}
	}
	return out, nil
}

func (s *memStore) ListAll(context.Context) ([]model.AdminBooking, error) { return nil, nil }

// OccupiedSpaceIDs deliberately returns one id per overlapping booking so
// the service's de-duplication is exercised.
func (s *memStore) OccupiedSpaceIDs(_ context.Context, start, end time.Time, _ string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, b := range s.bookings {
		if b.Overlaps(start, end) {
			out = append(out, b.SpaceID)
		}
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.bookings {
		if b.ID == id {
			s.bookings = append(s.bookings[:i], s.bookings[i+1:]...)
			return nil
		}
	}
	return repository.ErrBookingNotFound
}

type recordedAudit struct {
	actor, action string
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []recordedAudit
}

func (f *fakeAudit) Record(actorID, action string, _ map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, recordedAudit{actorID, action})
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(store BookingStore) (*BookingService, *fakeAudit) {
	audit := &fakeAudit{}
	svc := NewBookingService(store, audit, quietLogger())
	var n atomic.Int64
	svc.newID = func() string { return fmt.Sprintf("b-%d", n.Add(1)) }
	return svc, audit
}

func clock(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2026-03-02 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

var alice = Actor{ID: "alice", Role: model.RoleUser}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	ae := apperror.As(err)
	require.NotNil(t, ae, "expected AppError, got %v", err)
	return ae.Status
}

func TestTryCreateBookingScenarios(t *testing.T) {
	store := newMemStore(map[string]bool{"S": true})
	svc, _ := newTestService(store)
	ctx := context.Background()

	_, err := svc.TryCreateBooking(ctx, alice, CreateBookingInput{SpaceID: "S", StartTime: clock("10:00"), EndTime: clock("11:00")})
	require.NoError(t, err)

	_, err = svc.TryCreateBooking(ctx, alice, CreateBookingInput{SpaceID: "S", StartTime: clock("10:30"), EndTime: clock("11:30")})
	assert.Equal(t, http.StatusConflict, statusOf(t, err))
	assert.Equal(t, ConflictMessage, apperror.As(err).Message)

	_, err = svc.TryCreateBooking(ctx, alice, CreateBookingInput{SpaceID: "S", StartTime: clock("11:00"), EndTime: clock("12:00")})
	assert.NoError(t, err, "touching after must not conflict")

	_, err = svc.TryCreateBooking(ctx, alice, CreateBookingInput{SpaceID: "S", StartTime: clock("09:00"), EndTime: clock("10:00")})
	assert.NoError(t, err, "touching before must not conflict")

	assert.Len(t, store.bookings, 3)
}

func TestTryCreateBookingRejectionIsOrderIndependent(t *testing.T) {
	a := CreateBookingInput{SpaceID: "S", StartTime: clock("09:00"), EndTime: clock("10:30")}
	b := CreateBookingInput{SpaceID: "S", StartTime: clock("10:00"), EndTime: clock("11:00")}

	for _, order := range [][]CreateBookingInput{{a, b}, {b, a}} {
		store := newMemStore(map[string]bool{"S": true})
		svc, _ := newTestService(store)

		_, err := svc.TryCreateBooking(context.Background(), alice, order[0])
		require.NoError(t, err)
		_, err = svc.TryCreateBooking(context.Background(), alice, order[1])
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
	}
}

func TestTryCreateBookingValidationNeverReachesStore(t *testing.T) {
	store := newMemStore(map[string]bool{"S": true})
	svc, _ := newTestService(store)

	cases := []CreateBookingInput{
		{SpaceID: "S", StartTime: clock("11:00"), EndTime: clock("10:00")},
		{SpaceID: "S", StartTime: clock("10:00"), EndTime: clock("10:00")},
		{SpaceID: "S", EndTime: clock("10:00")},
		{SpaceID: "", StartTime: clock("10:00"), EndTime: clock("11:00")},
	}
	for _, in := range cases {
		_, err := svc.TryCreateBooking(context.Background(), alice, in)
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	}
	assert.Zero(t, store.txCalls.Load())
}

func TestTryCreateBookingDifferentSpacesDoNotConflict(t *testing.T) {
	store := newMemStore(map[string]bool{"S1": true, "S2": true})
	svc, _ := newTestService(store)

	_, err := svc.TryCreateBooking(context.Background(), alice, CreateBookingInput{SpaceID: "S1", StartTime: clock("10:00"), EndTime: clock("11:00")})
	require.NoError(t, err)
	_, err = svc.TryCreateBooking(context.Background(), alice, CreateBookingInput{SpaceID: "S2", StartTime: clock("10:00"), EndTime: clock("11:00")})
	assert.NoError(t, err)
}

func TestTryCreateBookingConcurrentOverlapExactlyOneWins(t *testing.T) {
	for round := 0; round < 20; round++ {
		store := newMemStore(map[string]bool{"S": true})
		svc, _ := newTestService(store)

		const n = 8
		var (
			wg        sync.WaitGroup
			successes atomic.Int32
			conflicts atomic.Int32
			start     = make(chan struct{})
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				in := CreateBookingInput{
					SpaceID:   "S",
					StartTime: clock("10:00").Add(time.Duration(i) * time.Minute),
					EndTime:   clock("11:00"),
				}
				_, err := svc.TryCreateBooking(context.Background(), alice, in)
				switch {
				case err == nil:
					successes.Add(1)
				case apperror.StatusOf(err) == http.StatusConflict:
					conflicts.Add(1)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		require.EqualValues(t, 1, successes.Load())
		require.EqualValues(t, n-1, conflicts.Load())
		require.Len(t, store.bookings, 1)
	}
}

func TestTryCreateBookingSpaceErrors(t *testing.T) {
	store := newMemStore(map[string]bool{"closed": false})
	svc, _ := newTestService(store)

	_, err := svc.TryCreateBooking(context.Background(), alice, CreateBookingInput{SpaceID: "ghost", StartTime: clock("10:00"), EndTime: clock("11:00")})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = svc.TryCreateBooking(context.Background(), alice, CreateBookingInput{SpaceID: "closed", StartTime: clock("10:00"), EndTime: clock("11:00")})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestTryCreateBookingStoreFailureIsInternal(t *testing.T) {
	store := newMemStore(map[string]bool{"S": true})
	store.failInsert = errors.New("disk full")
	svc, audit := newTestService(store)

	_, err := svc.TryCreateBooking(context.Background(), alice, CreateBookingInput{SpaceID: "S", StartTime: clock("10:00"), EndTime: clock("11:00")})
	assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	assert.Empty(t, store.bookings)
	assert.Empty(t, audit.entries)
}

func TestTryCreateBookingOnBehalfOfOthers(t *testing.T) {
	store := newMemStore(map[string]bool{"S": true})
	svc, audit := newTestService(store)

	_, err := svc.TryCreateBooking(context.Background(), alice, CreateBookingInput{SpaceID: "S", UserID: "bob", StartTime: clock("10:00"), EndTime: clock("11:00")})
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	admin := Actor{ID: "root", Role: model.RoleAdmin}
	b, err := svc.TryCreateBooking(context.Background(), admin, CreateBookingInput{SpaceID: "S", UserID: "bob", StartTime: clock("10:00"), EndTime: clock("11:00")})
	require.NoError(t, err)
	assert.Equal(t, "bob", b.UserID)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, recordedAudit{"root", model.ActionBookingCreate}, audit.entries[0])
}

func TestTryCreateBookingRequiresActor(t *testing.T) {
	svc, _ := newTestService(newMemStore(nil))
	_, err := svc.TryCreateBooking(context.Background(), Actor{}, CreateBookingInput{SpaceID: "S", StartTime: clock("10:00"), EndTime: clock("11:00")})
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestOccupiedDeduplicates(t *testing.T) {
	store := newMemStore(map[string]bool{"S1": true, "S2": true})
	svc, _ := newTestService(store)
	ctx := context.Background()
	for _, in := range []CreateBookingInput{
		{SpaceID: "S1", StartTime: clock("09:00"), EndTime: clock("10:00")},
		{SpaceID: "S1", StartTime: clock("10:00"), EndTime: clock("11:00")},
		{SpaceID: "S2", StartTime: clock("10:30"), EndTime: clock("12:00")},
	} {
		_, err := svc.TryCreateBooking(ctx, alice, in)
		require.NoError(t, err)
	}

	ids, err := svc.Occupied(ctx, clock("09:30"), clock("11:00"), "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"S1", "S2"}, ids)

	ids, err = svc.Occupied(ctx, clock("12:00"), clock("13:00"), "")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = svc.Occupied(ctx, clock("13:00"), clock("12:00"), "")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestUniqueStringsAnyOrder(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, uniqueStrings([]string{"b", "a", "b", "c", "a"}))
	assert.Empty(t, uniqueStrings(nil))
}

func TestCancel(t *testing.T) {
	store := newMemStore(map[string]bool{"S": true})
	svc, audit := newTestService(store)
	ctx := context.Background()

	b, err := svc.TryCreateBooking(ctx, alice, CreateBookingInput{SpaceID: "S", StartTime: clock("10:00"), EndTime: clock("11:00")})
	require.NoError(t, err)

	err = svc.Cancel(ctx, Actor{ID: "mallory", Role: model.RoleUser}, b.ID)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	require.NoError(t, svc.Cancel(ctx, alice, b.ID))
	assert.Empty(t, store.bookings)

	err = svc.Cancel(ctx, alice, b.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	assert.Equal(t, model.ActionBookingCancel, audit.entries[len(audit.entries)-1].action)
}

func TestListByUserAccess(t *testing.T) {
	svc, _ := newTestService(newMemStore(nil))

	_, err := svc.ListByUser(context.Background(), alice, "bob")
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = svc.ListByUser(context.Background(), alice, "alice")
	assert.NoError(t, err)

	_, err = svc.ListByUser(context.Background(), Actor{ID: "root", Role: model.RoleAdmin}, "bob")
	assert.NoError(t, err)
}
