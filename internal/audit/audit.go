package audit

import (
	"context"
	"fmt"
	"time"

	"seatbooking/internal/config"
	"seatbooking/internal/events"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Record is one lifecycle event as stored in the audit collection.
type Record struct {
	ID            string    `bson:"_id" json:"id"`
	EventType     string    `bson:"event_type" json:"eventType"`
	BookingID     string    `bson:"booking_id" json:"bookingId"`
	BookingDate   string    `bson:"booking_date" json:"bookingDate"`
	TimeSlot      string    `bson:"time_slot" json:"timeSlot"`
	NumberOfSeats int       `bson:"number_of_seats" json:"numberOfSeats"`
	Status        string    `bson:"status" json:"status"`
	Arrival       string    `bson:"arrival" json:"arrival"`
	ChangedBy     string    `bson:"changed_by,omitempty" json:"changedBy,omitempty"`
	OccurredAt    time.Time `bson:"occurred_at" json:"occurredAt"`
	RecordedAt    time.Time `bson:"recorded_at" json:"recordedAt"`
}

// Collection is the subset of *mongo.Collection the sink uses.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// MongoSink writes one document per booking lifecycle event.
type MongoSink struct {
	coll   Collection
	now    func() time.Time
	logger *zerolog.Logger
}

func NewMongoSink(coll Collection, logger *zerolog.Logger) *MongoSink {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &MongoSink{coll: coll, now: time.Now, logger: logger}
}

// Connect dials MongoDB, ensures the booking index and returns the sink
// together with a disconnect func.
func Connect(ctx context.Context, cfg config.MongoConfig, logger *zerolog.Logger) (*MongoSink, func(context.Context) error, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	index := mongo.IndexModel{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "occurred_at", Value: 1}}}
	if _, err := coll.Indexes().CreateOne(ctx, index); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("cannot create booking_id index: %w", err)
	}

	logger.Info().Str("database", cfg.Database).Str("collection", cfg.Collection).Msg("audit sink connected")
	return NewMongoSink(coll, logger), client.Disconnect, nil
}

// NewRecord flattens a booking event into an audit document.
func NewRecord(ev *events.Event, recordedAt time.Time) (*Record, error) {
	payload, err := ev.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", ev.Type, err)
	}
	b := payload.Booking
	occurred := payload.OccurredAt
	if occurred.IsZero() {
		occurred = ev.CreatedAt
	}
	return &Record{
		ID:            ev.ID,
		EventType:     ev.Type,
		BookingID:     b.ID,
		BookingDate:   b.BookingDate,
		TimeSlot:      b.TimeSlot,
		NumberOfSeats: b.NumberOfSeats,
		Status:        string(b.Status),
		Arrival:       b.Arrival.String(),
		ChangedBy:     payload.ChangedBy,
		OccurredAt:    occurred.UTC(),
		RecordedAt:    recordedAt.UTC(),
	}, nil
}

// HandleEvent is an events.EventHandler. Re-delivery of the same event is
// ignored since the event id is the document id.
func (s *MongoSink) HandleEvent(ctx context.Context, ev *events.Event) error {
	rec, err := NewRecord(ev, s.now())
	if err != nil {
		return err
	}
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert audit record: %w", err)
	}
	s.logger.Debug().Str("event_type", rec.EventType).Str("booking_id", rec.BookingID).Msg("audit record stored")
	return nil
}

// History returns a booking's audit trail, oldest first.
func (s *MongoSink) History(ctx context.Context, bookingID string) ([]Record, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"booking_id": bookingID},
		options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find audit records: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]Record, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode audit records: %w", err)
	}
	return records, nil
}
