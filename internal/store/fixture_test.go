package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"finance-backend/internal/query"
)

type level int64

const (
	levelLow  level = 1
	levelMid  level = 2
	levelHigh level = 4
)

type item struct {
	ID       uuid.UUID
	Name     string
	Note     *string
	Amount   decimal.Decimal
	Qty      int32
	Level    level
	Active   bool
	Tags     []string
	BookedAt time.Time
	DueAt    *time.Time
	Delay    time.Duration
	Score    *float32
}

var itemSchema = query.NewSchema(
	query.UUIDField("id", func(i item) uuid.UUID { return i.ID }),
	query.StringField("name", func(i item) string { return i.Name }),
	query.NullableStringField("note", func(i item) *string { return i.Note }),
	query.DecimalField("amount", func(i item) decimal.Decimal { return i.Amount }),
	query.Int32Field("qty", func(i item) int32 { return i.Qty }),
	query.EnumField("level", func(i item) level { return i.Level }, map[string]level{"Low": levelLow, "Mid": levelMid, "High": levelHigh}),
	query.BoolField("active", func(i item) bool { return i.Active }),
	query.StringsField("tags", func(i item) []string { return i.Tags }),
	query.TimeOffsetField("bookedAt", func(i item) time.Time { return i.BookedAt }),
	query.NullableTimeField("dueAt", func(i item) *time.Time { return i.DueAt }),
	query.DurationField("delay", func(i item) time.Duration { return i.Delay }),
	query.NullableFloat32Field("score", func(i item) *float32 { return i.Score }),
)

func scanItem(r *Row) item {
	return item{
		ID:       r.UUID("id"),
		Name:     r.String("name"),
		Note:     r.NullString("note"),
		Amount:   r.Decimal("amount"),
		Qty:      r.Int32("qty"),
		Level:    level(r.Int64("level")),
		Active:   r.Bool("active"),
		Tags:     r.Strings("tags"),
		BookedAt: r.Time("booked_at"),
		DueAt:    r.NullTime("due_at"),
		Delay:    time.Duration(r.Int64("delay")),
		Score:    r.NullFloat32("score"),
	}
}

func ptr[V any](v V) *V { return &v }

func at(d int) time.Time { return time.Date(2024, time.May, d, 8, 0, 0, 0, time.UTC) }

func itemID(n int) uuid.UUID {
	return uuid.MustParse("00000000-0000-0000-0000-00000000000" + string(rune('0'+n)))
}

// items are in id order, which is also the table's tie-break order.
func items() []item {
	return []item{
		{ID: itemID(1), Name: "Alpha Rent", Note: ptr("monthly"), Amount: decimal.RequireFromString("1200.00"), Qty: 1,
			Level: levelLow | levelMid, Active: true, Tags: []string{"home", "fixed"}, BookedAt: at(1), Delay: time.Hour, Score: ptr(float32(4.5))},
		{ID: itemID(2), Name: "Bravo Coffee", Note: ptr(""), Amount: decimal.RequireFromString("3.75"), Qty: 2,
			Level: levelHigh, Active: false, Tags: []string{"food"}, BookedAt: at(2), DueAt: ptr(at(9)), Delay: 0},
		{ID: itemID(3), Name: "charlie 50%_off", Note: nil, Amount: decimal.RequireFromString("49.99"), Qty: 3,
			Level: 0, Active: true, Tags: nil, BookedAt: at(3), DueAt: ptr(at(4)), Delay: 90 * time.Minute, Score: ptr(float32(2))},
		{ID: itemID(4), Name: "Delta Salary", Note: ptr("  "), Amount: decimal.RequireFromString("3000"), Qty: 4,
			Level: levelMid, Active: true, Tags: []string{}, BookedAt: at(4), Delay: 2 * time.Hour},
		{ID: itemID(5), Name: "Echo Groceries", Note: ptr("weekly shop"), Amount: decimal.RequireFromString("87.10"), Qty: 5,
			Level: levelMid | levelHigh, Active: false, Tags: []string{"food", "home"}, BookedAt: at(5), Delay: 30 * time.Minute},
	}
}

var itemColumns = itemSchema.Columns()

func itemValues(i item) []any {
	return []any{i.ID, i.Name, i.Note, i.Amount, i.Qty, int64(i.Level), i.Active, i.Tags, i.BookedAt, i.DueAt, i.Delay, i.Score}
}

// openItems creates an in-memory SQLite store holding items().
func openItems(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, NewDialect("sqlite"), ":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, NewMigrator(s).Migrate(ctx, DefineTable("items", "id", itemSchema, "qty")))
	for _, i := range items() {
		require.NoError(t, Insert(ctx, s.DB, s.Dialect, "items", itemColumns, itemValues(i)))
	}
	return s
}

func itemTable(s *Store) *Table[item] {
	return NewTable(s.DB, s.Dialect, "items", "id", itemSchema, scanItem)
}

func names(rows []item) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}
