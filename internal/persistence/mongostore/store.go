// Package mongostore implements persistence.Store on MongoDB, keeping the
// document layout of the original bookings, contactmessages and users
// collections.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/example/salon-booking/internal/persistence"
)

const (
	bookingsCollection = "bookings"
	contactsCollection = "contactmessages"
	usersCollection    = "users"
	sessionsCollection = "sessions"
)

// Store is a MongoDB backed persistence.Store.
type Store struct {
	client   *mongo.Client
	bookings *mongo.Collection
	contacts *mongo.Collection
	users    *mongo.Collection
	sessions *mongo.Collection
}

var _ persistence.Store = (*Store)(nil)

// Open connects to uri and selects database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("mongostore: uri is required")
	}
	if strings.TrimSpace(database) == "" {
		return nil, fmt.Errorf("mongostore: database name is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	db := client.Database(database)
	return &Store{
		client:   client,
		bookings: db.Collection(bookingsCollection),
		contacts: db.Collection(contactsCollection),
		users:    db.Collection(usersCollection),
		sessions: db.Collection(sessionsCollection),
	}, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks connectivity to the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Migrate creates the indexes the repositories rely on.
func (s *Store) Migrate(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}}, Options: unique,
	}); err != nil {
		return fmt.Errorf("mongostore: users index: %w", err)
	}
	if _, err := s.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("mongostore: sessions index: %w", err)
	}
	if _, err := s.bookings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "_id", Value: 1}, {Key: "paymentIntentId", Value: 1}},
	}); err != nil {
		return fmt.Errorf("mongostore: bookings index: %w", err)
	}
	return nil
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return persistence.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	default:
		return err
	}
}

// --- BookingRepository implementation ---

// CreateBooking inserts a booking document.
func (s *Store) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.bookings.InsertOne(ctx, toBookingDocument(booking))
	return mapError(err)
}

// GetBooking retrieves a booking by ID.
func (s *Store) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	return s.findBooking(ctx, bson.D{{Key: "_id", Value: id}})
}

// GetBookingByPaymentIntent retrieves a booking matching both identifiers.
func (s *Store) GetBookingByPaymentIntent(ctx context.Context, id, paymentIntentID string) (persistence.Booking, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return s.findBooking(ctx, bson.D{{Key: "_id", Value: id}, {Key: "paymentIntentId", Value: paymentIntentID}})
}

func (s *Store) findBooking(ctx context.Context, filter bson.D) (persistence.Booking, error) {
	var doc bookingDocument
	if err := s.bookings.FindOne(ctx, filter).Decode(&doc); err != nil {
		return persistence.Booking{}, mapError(err)
	}
	return doc.model(), nil
}

// TransitionStatus uses a single findOneAndUpdate with an aggregation
// pipeline so the status guard and the reference backfill apply atomically.
func (s *Store) TransitionStatus(ctx context.Context, transition persistence.StatusTransition) (persistence.Booking, bool, error) {
	if transition.BookingID == "" || transition.To == "" || len(transition.From) == 0 {
		return persistence.Booking{}, false, persistence.ErrConstraintViolation
	}
	if transition.RequirePaymentIntentMatch && transition.PaymentIntentID == "" {
		return persistence.Booking{}, false, persistence.ErrNotFound
	}

	match := bson.D{{Key: "_id", Value: transition.BookingID}}
	if transition.RequirePaymentIntentMatch {
		match = append(match, bson.E{Key: "paymentIntentId", Value: transition.PaymentIntentID})
	}
	filter := append(bson.D{}, match...)
	filter = append(filter, bson.E{Key: "paymentStatus", Value: bson.D{{Key: "$in", Value: transition.From}}})

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "paymentStatus", Value: transition.To},
			{Key: "updatedAt", Value: transition.At.UTC()},
			{Key: "paymentIntentId", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$in", Value: bson.A{"$paymentIntentId", bson.A{"", nil}}}},
				transition.PaymentIntentID,
				"$paymentIntentId",
			}}}},
		}}},
	}

	var doc bookingDocument
	err := s.bookings.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.model(), true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return persistence.Booking{}, false, mapError(err)
	}

	current, err := s.findBooking(ctx, match)
	if err != nil {
		return persistence.Booking{}, false, err
	}
	return current, false, nil
}

// SaveBooking overwrites mutable fields unless the stored payment intent
// differs from the one being written.
func (s *Store) SaveBooking(ctx context.Context, booking persistence.Booking) error {
	filter := bson.D{
		{Key: "_id", Value: booking.ID},
		{Key: "paymentIntentId", Value: bson.D{{Key: "$in", Value: bson.A{"", nil, booking.PaymentIntentID}}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: booking.CustomerName},
		{Key: "email", Value: booking.CustomerEmail},
		{Key: "date", Value: booking.AppointmentAt.UTC()},
		{Key: "message", Value: booking.Message},
		{Key: "amount", Value: booking.AmountCents},
		{Key: "currency", Value: booking.Currency},
		{Key: "paymentStatus", Value: booking.PaymentStatus},
		{Key: "paymentIntentId", Value: booking.PaymentIntentID},
		{Key: "updatedAt", Value: booking.UpdatedAt.UTC()},
	}}}

	result, err := s.bookings.UpdateOne(ctx, filter, update)
	if err != nil {
		return mapError(err)
	}
	if result.MatchedCount > 0 {
		return nil
	}
	if _, err := s.GetBooking(ctx, booking.ID); err != nil {
		return err
	}
	return persistence.ErrConflict
}

// --- ContactRepository implementation ---

// CreateContactMessage inserts a contact message document.
func (s *Store) CreateContactMessage(ctx context.Context, message persistence.ContactMessage) error {
	if message.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.contacts.InsertOne(ctx, toContactDocument(message))
	return mapError(err)
}

// GetContactMessage retrieves a contact message by ID.
func (s *Store) GetContactMessage(ctx context.Context, id string) (persistence.ContactMessage, error) {
	var doc contactDocument
	if err := s.contacts.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		return persistence.ContactMessage{}, mapError(err)
	}
	return doc.model(), nil
}

// --- UserRepository implementation ---

// CreateUser inserts a user document; the unique email index rejects duplicates.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	_, err := s.users.InsertOne(ctx, toUserDocument(user))
	return mapError(err)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return s.findUser(ctx, bson.D{{Key: "_id", Value: id}})
}

// GetUserByEmail retrieves a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	return s.findUser(ctx, bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}})
}

func (s *Store) findUser(ctx context.Context, filter bson.D) (persistence.User, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return persistence.User{}, mapError(err)
	}
	return doc.model(), nil
}

// --- SessionRepository implementation ---

// CreateSession inserts a session document.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.UserID == "" || strings.TrimSpace(session.Token) == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	if _, err := s.sessions.InsertOne(ctx, toSessionDocument(session)); err != nil {
		return persistence.Session{}, mapError(err)
	}
	return session, nil
}

// GetSession retrieves a session by token.
func (s *Store) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	var doc sessionDocument
	if err := s.sessions.FindOne(ctx, bson.D{{Key: "token", Value: strings.TrimSpace(token)}}).Decode(&doc); err != nil {
		return persistence.Session{}, mapError(err)
	}
	return doc.model(), nil
}

// RevokeSession marks a session revoked and returns the updated document.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	var doc sessionDocument
	err := s.sessions.FindOneAndUpdate(ctx,
		bson.D{{Key: "token", Value: strings.TrimSpace(token)}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "revokedAt", Value: revokedAt.UTC()},
			{Key: "updatedAt", Value: revokedAt.UTC()},
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return doc.model(), nil
}

// DeleteExpiredSessions removes sessions that expired at or before reference.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := s.sessions.DeleteMany(ctx, bson.D{{Key: "expiresAt", Value: bson.D{{Key: "$lte", Value: reference.UTC()}}}})
	return mapError(err)
}
