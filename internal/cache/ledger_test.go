package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLedger_Seen(t *testing.T) {
	t.Parallel()

	db, mock := redismock.NewClientMock()
	ledger := NewEventLedger(db, time.Hour)

	mock.ExpectExists("salon:webhook-event:evt_1").SetVal(1)
	mock.ExpectExists("salon:webhook-event:evt_2").SetVal(0)
	mock.ExpectExists("salon:webhook-event:evt_3").SetErr(errors.New("connection refused"))

	seen, err := ledger.Seen(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = ledger.Seen(context.Background(), "evt_2")
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = ledger.Seen(context.Background(), "evt_3")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventLedger_MarkProcessed(t *testing.T) {
	t.Parallel()

	db, mock := redismock.NewClientMock()
	ledger := NewEventLedger(db, 0)

	mock.ExpectSetNX("salon:webhook-event:evt_1", "processed", 72*time.Hour).SetVal(true)
	mock.ExpectSetNX("salon:webhook-event:evt_1", "processed", 72*time.Hour).SetVal(false)

	require.NoError(t, ledger.MarkProcessed(context.Background(), "evt_1"))
	require.NoError(t, ledger.MarkProcessed(context.Background(), "evt_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_RejectsBadURL(t *testing.T) {
	t.Parallel()

	_, _, err := Open(context.Background(), "not-a-url", time.Hour)
	assert.Error(t, err)
}
