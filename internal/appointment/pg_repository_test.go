package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgEventRepositoryInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgEventRepository(mock)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	payload := []byte(`{"sink":"remote"}`)

	mock.ExpectExec("INSERT INTO booking_events").
		WithArgs(EventBookingRemoteSaved, "Dr. Khan|2026-10-21|11:00 AM", pgxmock.AnyArg(), payload, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.InsertEvent(context.Background(), EventLog{
		EventType: EventBookingRemoteSaved,
		SlotKey:   "Dr. Khan|2026-10-21|11:00 AM",
		SessionID: "sess-1",
		Payload:   payload,
		CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgEventRepositoryInsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgEventRepository(mock)
	mock.ExpectExec("INSERT INTO booking_events").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("relation does not exist"))

	err = repo.InsertEvent(context.Background(), EventLog{EventType: EventBookingLocalSaved, SlotKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert booking event")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNullableHelpers(t *testing.T) {
	assert.Nil(t, nullableString(""))
	assert.Equal(t, "x", *nullableString("x"))
	assert.Nil(t, nullableTime(time.Time{}))
}
