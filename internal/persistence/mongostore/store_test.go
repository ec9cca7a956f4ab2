package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/example/salon-booking/internal/persistence"
	"github.com/example/salon-booking/internal/persistence/persistencetest"
)

func TestStoreContract(t *testing.T) {
	uri := os.Getenv("SALON_TEST_MONGO_URL")
	if uri == "" {
		t.Skip("SALON_TEST_MONGO_URL not set")
	}

	database := fmt.Sprintf("salon_test_%d", time.Now().UnixNano())
	persistencetest.Run(t, func(t *testing.T) persistence.Store {
		ctx := context.Background()
		store, err := Open(ctx, uri, database)
		require.NoError(t, err)
		require.NoError(t, store.Migrate(ctx))
		t.Cleanup(func() {
			_ = store.client.Database(database).Drop(context.Background())
			_ = store.Close()
		})
		return store
	})
}

func TestBookingDocumentLayout(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.May, 1, 14, 0, 0, 0, time.UTC)
	booking := persistence.Booking{
		ID:              "b-1",
		CustomerName:    "Ada",
		CustomerEmail:   "ada@example.com",
		AppointmentAt:   at,
		AmountCents:     5000,
		Currency:        "usd",
		Channel:         persistence.ChannelOnlinePayment,
		PaymentStatus:   persistence.StatusPending,
		PaymentIntentID: "pi_1",
		CreatedAt:       at,
		UpdatedAt:       at,
	}

	raw, err := bson.Marshal(toBookingDocument(booking))
	require.NoError(t, err)

	var fields bson.M
	require.NoError(t, bson.Unmarshal(raw, &fields))
	assert.Equal(t, "b-1", fields["_id"])
	assert.Equal(t, "pending", fields["paymentStatus"])
	assert.Equal(t, "pi_1", fields["paymentIntentId"])
	assert.Equal(t, "Ada", fields["name"])
	assert.NotContains(t, fields, "message", "empty message is omitted")

	var decoded bookingDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, booking, decoded.model())
}

func TestOpenValidatesArguments(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "", "salon")
	assert.Error(t, err)
	_, err = Open(context.Background(), "mongodb://localhost:27017", " ")
	assert.Error(t, err)
}
