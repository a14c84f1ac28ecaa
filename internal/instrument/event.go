// Package instrument keeps a log of served list requests. Events are
// buffered in memory, flushed to the query_events table in batches and
// listed back through the same query engine as every other resource.
package instrument

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"finance-backend/internal/engine"
	"finance-backend/internal/query"
	"finance-backend/internal/store"
)

const EventsTable = "query_events"

// Event is one stored list request. UserID is the token subject as given.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Resource   string    `json:"resource"`
	UserID     string    `json:"userId"`
	Filters    int32     `json:"filters"`
	Sorts      int32     `json:"sorts"`
	Search     bool      `json:"search"`
	Total      int64     `json:"total"`
	DurationMs int64     `json:"durationMs"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

var EventSchema = query.NewSchema(
	query.UUIDField("id", func(e Event) uuid.UUID { return e.ID }),
	query.StringField("resource", func(e Event) string { return e.Resource }),
	query.StringField("userId", func(e Event) string { return e.UserID }),
	query.Int32Field("filters", func(e Event) int32 { return e.Filters }),
	query.Int32Field("sorts", func(e Event) int32 { return e.Sorts }),
	query.BoolField("search", func(e Event) bool { return e.Search }),
	query.Int64Field("total", func(e Event) int64 { return e.Total }),
	query.Int64Field("durationMs", func(e Event) int64 { return e.DurationMs }),
	query.StringField("status", func(e Event) string { return e.Status }),
	query.TimeField("createdAt", func(e Event) time.Time { return e.CreatedAt }),
)

// NewEvent converts a list event for storage.
func NewEvent(ev engine.ListEvent) Event {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return Event{
		ID:         uuid.New(),
		Resource:   ev.Resource,
		UserID:     ev.UserID,
		Filters:    int32(ev.Filters),
		Sorts:      int32(ev.Sorts),
		Search:     ev.Search,
		Total:      int64(ev.Total),
		DurationMs: ev.Duration.Milliseconds(),
		Status:     ev.Status,
		CreatedAt:  at.UTC(),
	}
}

func scanEvent(r *store.Row) Event {
	return Event{
		ID:         r.UUID("id"),
		Resource:   r.String("resource"),
		UserID:     r.String("user_id"),
		Filters:    r.Int32("filters"),
		Sorts:      r.Int32("sorts"),
		Search:     r.Bool("search"),
		Total:      r.Int64("total"),
		DurationMs: r.Int64("duration_ms"),
		Status:     r.String("status"),
		CreatedAt:  r.Time("created_at"),
	}
}

func eventValues(e Event) []any {
	return []any{e.ID, e.Resource, e.UserID, e.Filters, e.Sorts, e.Search, e.Total, e.DurationMs, e.Status, e.CreatedAt}
}

// Migrate creates or extends the events table.
func Migrate(ctx context.Context, s *store.Store) error {
	def := store.DefineTable(EventsTable, "id", EventSchema, "user_id", "created_at")
	if err := store.NewMigrator(s).Migrate(ctx, def); err != nil {
		return fmt.Errorf("migrate %s: %w", EventsTable, err)
	}
	return nil
}

// Register exposes the events table as a resource. Users list their own
// requests; admins list everyone's.
func Register(reg *engine.Registry, s *store.Store, opts query.Options, log logrus.FieldLogger) {
	base := store.NewTable(s.DB, s.Dialect, EventsTable, "id", EventSchema, scanEvent).
		WithLogger(log.WithField("resource", EventsTable))
	reg.Register(engine.NewResource(EventsTable, query.New(EventSchema, opts), func() query.Source[Event] {
		return base
	}, "userId"))
}
