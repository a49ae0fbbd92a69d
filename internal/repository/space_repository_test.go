package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/office-booking/internal/model"
)

func TestSpaceDeleteCascade(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSpaceRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM spaces WHERE id = ? FOR UPDATE`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM bookings WHERE space_id = ?`)).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM spaces WHERE id = ?`)).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.DeleteCascade(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, CascadeResult{Spaces: 1, Bookings: 3}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpaceDeleteCascadeRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSpaceRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM spaces WHERE id = ? FOR UPDATE`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM bookings WHERE space_id = ?`)).
		WithArgs("s1").
		WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	_, err := repo.DeleteCascade(context.Background(), "s1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpaceSaveRequiresFloor(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSpaceRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM floors WHERE id = ? LOCK IN SHARE MODE`)).
		WithArgs("f-missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Save(context.Background(), &model.Space{ID: "s1", FloorID: "f-missing", Name: "Desk", Type: "desk", Capacity: 1})
	assert.ErrorIs(t, err, ErrFloorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpaceSaveUpserts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSpaceRepo(db)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM floors WHERE id = ? LOCK IN SHARE MODE`)).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("f1"))
	mock.ExpectExec(regexp.QuoteMeta(`ON DUPLICATE KEY UPDATE`)).
		WithArgs("s1", "f1", "Focus Room", "meeting_room", 4, `{"x":1}`, "", `["tv"]`, true, created).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Save(context.Background(), &model.Space{
		ID: "s1", FloorID: "f1", Name: "Focus Room", Type: "meeting_room", Capacity: 4,
		Coordinates: []byte(`{"x":1}`), Amenities: []string{"tv"}, IsActive: true, CreatedAt: created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpaceGetByIDDecodesJSON(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSpaceRepo(db)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM spaces s WHERE s.id = ?`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "floor_id", "name", "type", "capacity", "coordinates", "description", "amenities", "is_active", "created_at"}).
			AddRow("s1", "f1", "Desk 1", "desk", 1, []byte(`[[0,0],[1,1]]`), nil, []byte(`["monitor","dock"]`), false, created))

	sp, err := repo.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"monitor", "dock"}, sp.Amenities)
	assert.JSONEq(t, `[[0,0],[1,1]]`, string(sp.Coordinates))
	assert.False(t, sp.IsActive)
	assert.Equal(t, "", sp.Description)
}

func TestSpaceUpdateBuildsPartialSet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSpaceRepo(db)
	name := "Quiet Room"
	capacity := 6

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE spaces SET name = ?, capacity = ? WHERE id = ?`)).
		WithArgs(name, capacity, "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM spaces s WHERE s.id = ?`)).
		WithArgs("s1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), "s1", model.SpacePatch{Name: &name, Capacity: &capacity})
	assert.ErrorIs(t, err, ErrSpaceNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
