package sqldb

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/example/salon-booking/internal/persistence"
)

func TestRebind(t *testing.T) {
	t.Parallel()

	query := `UPDATE bookings SET a = ? WHERE id = ? AND s IN (?, ?)`

	sqlite := &DB{dialect: DialectSQLite}
	if got := sqlite.rebind(query); got != query {
		t.Fatalf("sqlite query should be unchanged, got %q", got)
	}

	postgres := &DB{dialect: DialectPostgres}
	want := `UPDATE bookings SET a = $1 WHERE id = $2 AND s IN ($3, $4)`
	if got := postgres.rebind(query); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestErrorMapper(t *testing.T) {
	t.Parallel()

	mapper := NewErrorMapper()

	if err := mapper.MapError(&pq.Error{Code: "23505", Constraint: "users_email_key"}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected unique violation to map to ErrDuplicate, got %v", err)
	}
	if err := mapper.MapError(fmt.Errorf("constraint failed: UNIQUE constraint failed: users.email")); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected sqlite unique message to map to ErrDuplicate, got %v", err)
	}
	other := errors.New("disk I/O error")
	if err := mapper.MapError(other); !errors.Is(err, other) {
		t.Fatalf("expected unrelated error to pass through, got %v", err)
	}
}

func TestFormatTimeSortsAsText(t *testing.T) {
	t.Parallel()

	whole := time.Date(2025, 1, 1, 10, 0, 5, 0, time.UTC)
	fraction := whole.Add(500 * time.Millisecond)
	if !(formatTime(whole) < formatTime(fraction)) {
		t.Fatalf("expected %s < %s", formatTime(whole), formatTime(fraction))
	}

	parsed, err := parseTime("t", formatTime(fraction))
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !parsed.Equal(fraction) {
		t.Fatalf("round trip mismatch: %v != %v", parsed, fraction)
	}
}
