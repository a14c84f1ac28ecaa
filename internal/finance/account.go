package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-backend/internal/query"
	"finance-backend/internal/store"
)

// AccountKind is a flag set so that filters can ask for several kinds at
// once ("Checking|Savings").
type AccountKind int64

const (
	Checking AccountKind = 1 << iota
	Savings
	Credit
	Cash
	Investment
)

var accountKindNames = map[string]AccountKind{
	"Checking":   Checking,
	"Savings":    Savings,
	"Credit":     Credit,
	"Cash":       Cash,
	"Investment": Investment,
}

type Account struct {
	ID       uuid.UUID       `json:"id"`
	OwnerID  uuid.UUID       `json:"ownerId"`
	Name     string          `json:"name"`
	Currency string          `json:"currency"`
	Kind     AccountKind     `json:"kind"`
	Balance  decimal.Decimal `json:"balance"`
	Archived bool            `json:"archived"`
	OpenedAt time.Time       `json:"openedAt"`
	ClosedAt *time.Time      `json:"closedAt"`
}

var AccountSchema = query.NewSchema(
	query.UUIDField("id", func(a Account) uuid.UUID { return a.ID }),
	query.UUIDField("ownerId", func(a Account) uuid.UUID { return a.OwnerID }),
	query.StringField("name", func(a Account) string { return a.Name }),
	query.StringField("currency", func(a Account) string { return a.Currency }),
	query.EnumField("kind", func(a Account) AccountKind { return a.Kind }, accountKindNames),
	query.DecimalField("balance", func(a Account) decimal.Decimal { return a.Balance }),
	query.BoolField("archived", func(a Account) bool { return a.Archived }),
	query.TimeField("openedAt", func(a Account) time.Time { return a.OpenedAt }),
	query.NullableTimeField("closedAt", func(a Account) *time.Time { return a.ClosedAt }),
)

func scanAccount(r *store.Row) Account {
	return Account{
		ID:       r.UUID("id"),
		OwnerID:  r.UUID("owner_id"),
		Name:     r.String("name"),
		Currency: r.String("currency"),
		Kind:     AccountKind(r.Int64("kind")),
		Balance:  r.Decimal("balance"),
		Archived: r.Bool("archived"),
		OpenedAt: r.Time("opened_at"),
		ClosedAt: r.NullTime("closed_at"),
	}
}

// accountValues lists a's columns in AccountSchema order.
func accountValues(a Account) []any {
	return []any{a.ID, a.OwnerID, a.Name, a.Currency, int64(a.Kind), a.Balance, a.Archived, a.OpenedAt, a.ClosedAt}
}
