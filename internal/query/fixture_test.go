package query

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type perm int32

const (
	permRead    perm = 1
	permWrite   perm = 2
	permExecute perm = 4
)

var permNames = map[string]perm{
	"Read":    permRead,
	"Write":   permWrite,
	"Execute": permExecute,
}

type entry struct {
	ID          uuid.UUID
	Description string
	Category    string
	Note        *string
	Amount      decimal.Decimal
	Limit       *decimal.Decimal
	Count       int32
	Retries     *int32
	Big         int64
	Ratio       float64
	Rate        *float32
	Active      bool
	Verified    *bool
	Perms       perm
	Tags        []string
	BookedAt    time.Time
	DueAt       *time.Time
	Delay       time.Duration
}

var entrySchema = NewSchema(
	UUIDField("id", func(e entry) uuid.UUID { return e.ID }),
	StringField("description", func(e entry) string { return e.Description }),
	StringField("category", func(e entry) string { return e.Category }),
	NullableStringField("note", func(e entry) *string { return e.Note }),
	DecimalField("amount", func(e entry) decimal.Decimal { return e.Amount }),
	NullableDecimalField("limit", func(e entry) *decimal.Decimal { return e.Limit }),
	Int32Field("count", func(e entry) int32 { return e.Count }),
	NullableInt32Field("retries", func(e entry) *int32 { return e.Retries }),
	Int64Field("big", func(e entry) int64 { return e.Big }),
	Float64Field("ratio", func(e entry) float64 { return e.Ratio }),
	NullableFloat32Field("rate", func(e entry) *float32 { return e.Rate }),
	BoolField("active", func(e entry) bool { return e.Active }),
	NullableBoolField("verified", func(e entry) *bool { return e.Verified }),
	EnumField("perms", func(e entry) perm { return e.Perms }, permNames),
	StringsField("tags", func(e entry) []string { return e.Tags }),
	TimeOffsetField("bookedAt", func(e entry) time.Time { return e.BookedAt }),
	NullableTimeField("dueAt", func(e entry) *time.Time { return e.DueAt }),
	DurationField("delay", func(e entry) time.Duration { return e.Delay }),
)

func ptr[V any](v V) *V { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(d int) time.Time { return time.Date(2024, time.March, d, 9, 0, 0, 0, time.UTC) }

// fixture returns five entries with distinct ids in a fixed order.
func fixture() []entry {
	return []entry{
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Description: "Test Account", Category: "Food",
			Amount: dec("12.50"), Count: 1, Big: 100, Ratio: 0.5, Active: true, Perms: permRead | permWrite,
			Tags: []string{"groceries", "weekly"}, BookedAt: day(1), Delay: time.Hour, Note: ptr("lunch"),
			Limit: ptr(dec("100")), Retries: ptr(int32(3)), Verified: ptr(true), Rate: ptr(float32(1.5)),
		},
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Description: "Rent March", Category: "Housing",
			Amount: dec("900"), Count: 2, Big: 200, Ratio: 0.25, Active: true, Perms: permRead,
			Tags: []string{"monthly"}, BookedAt: day(2), Delay: 2 * time.Hour, Note: ptr("  "),
			DueAt: ptr(day(5)),
		},
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-000000000003"), Description: "Coffee", Category: "Food",
			Amount: dec("3.20"), Count: 3, Big: 300, Ratio: 0.75, Active: false, Perms: permExecute,
			Tags: []string{"groceries"}, BookedAt: day(3), Delay: 30 * time.Minute, Note: ptr(""),
			Verified: ptr(false),
		},
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-000000000004"), Description: "Salary", Category: "Income",
			Amount: dec("2500"), Count: 4, Big: 400, Ratio: 1, Active: true, Perms: 0,
			BookedAt: day(4), Delay: 0,
		},
		{
			ID: uuid.MustParse("00000000-0000-0000-0000-000000000005"), Description: "Groceries", Category: "Food",
			Amount: dec("45.10"), Count: 5, Big: 500, Ratio: 0.1, Active: false, Perms: permWrite | permExecute,
			Tags: []string{}, BookedAt: day(5), Delay: 3 * time.Hour, DueAt: ptr(day(10)),
		},
	}
}

// ids returns the last digit of each entry id, to keep assertions short.
func ids(rows []entry) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = int(r.ID[15])
	}
	return out
}

// filterIDs applies one criterion list to the fixture and returns matching ids.
func filterIDs(criteria ...Criterion) ([]int, error) {
	p, err := BuildPredicate(entrySchema, criteria...)
	if err != nil {
		return nil, err
	}
	var out []entry
	for _, e := range fixture() {
		if p(e) {
			out = append(out, e)
		}
	}
	return ids(out), nil
}

func crit(field string, op Operator, logic Logic, values ...string) Criterion {
	c, err := Normalize(FilterDescriptor{Field: field, Operator: op, Values: values, Logic: logic})
	if err != nil {
		panic(err)
	}
	return c
}
