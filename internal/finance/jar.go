package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-backend/internal/query"
	"finance-backend/internal/store"
)

// Jar is a savings goal. Ratio is the share of each deposit routed to it,
// Rate an optional interest rate in percent.
type Jar struct {
	ID       uuid.UUID       `json:"id"`
	OwnerID  uuid.UUID       `json:"ownerId"`
	Name     string          `json:"name"`
	Target   decimal.Decimal `json:"target"`
	Saved    decimal.Decimal `json:"saved"`
	Priority int64           `json:"priority"`
	Ratio    float64         `json:"ratio"`
	Rate     *float32        `json:"rate"`
	DueAt    *time.Time      `json:"dueAt"`
}

var JarSchema = query.NewSchema(
	query.UUIDField("id", func(j Jar) uuid.UUID { return j.ID }),
	query.UUIDField("ownerId", func(j Jar) uuid.UUID { return j.OwnerID }),
	query.StringField("name", func(j Jar) string { return j.Name }),
	query.DecimalField("target", func(j Jar) decimal.Decimal { return j.Target }),
	query.DecimalField("saved", func(j Jar) decimal.Decimal { return j.Saved }),
	query.Int64Field("priority", func(j Jar) int64 { return j.Priority }),
	query.Float64Field("ratio", func(j Jar) float64 { return j.Ratio }),
	query.NullableFloat32Field("rate", func(j Jar) *float32 { return j.Rate }),
	query.NullableTimeField("dueAt", func(j Jar) *time.Time { return j.DueAt }),
)

func scanJar(r *store.Row) Jar {
	return Jar{
		ID:       r.UUID("id"),
		OwnerID:  r.UUID("owner_id"),
		Name:     r.String("name"),
		Target:   r.Decimal("target"),
		Saved:    r.Decimal("saved"),
		Priority: r.Int64("priority"),
		Ratio:    r.Float64("ratio"),
		Rate:     r.NullFloat32("rate"),
		DueAt:    r.NullTime("due_at"),
	}
}

func jarValues(j Jar) []any {
	return []any{j.ID, j.OwnerID, j.Name, j.Target, j.Saved, j.Priority, j.Ratio, j.Rate, j.DueAt}
}
