package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-backend/internal/query"
	"finance-backend/internal/store"
)

// TransactionFlags marks bookkeeping state. A transaction can carry several.
type TransactionFlags int64

const (
	Recurring TransactionFlags = 1 << iota
	Shared
	Reconciled
	Pending
)

var transactionFlagNames = map[string]TransactionFlags{
	"Recurring":  Recurring,
	"Shared":     Shared,
	"Reconciled": Reconciled,
	"Pending":    Pending,
}

// Transaction is one booking on an account. Amounts are signed: income is
// positive, spending negative.
type Transaction struct {
	ID          uuid.UUID        `json:"id"`
	AccountID   uuid.UUID        `json:"accountId"`
	OwnerID     uuid.UUID        `json:"ownerId"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Note        *string          `json:"note"`
	Amount      decimal.Decimal  `json:"amount"`
	Flags       TransactionFlags `json:"flags"`
	Tags        []string         `json:"tags"`
	BookedAt    time.Time        `json:"bookedAt"`
	SettleAfter *time.Duration   `json:"settleAfter"`
	Installment *int32           `json:"installment"`
}

var TransactionSchema = query.NewSchema(
	query.UUIDField("id", func(t Transaction) uuid.UUID { return t.ID }),
	query.UUIDField("accountId", func(t Transaction) uuid.UUID { return t.AccountID }),
	query.UUIDField("ownerId", func(t Transaction) uuid.UUID { return t.OwnerID }),
	query.StringField("description", func(t Transaction) string { return t.Description }),
	query.StringField("category", func(t Transaction) string { return t.Category }),
	query.NullableStringField("note", func(t Transaction) *string { return t.Note }),
	query.DecimalField("amount", func(t Transaction) decimal.Decimal { return t.Amount }),
	query.EnumField("flags", func(t Transaction) TransactionFlags { return t.Flags }, transactionFlagNames),
	query.StringsField("tags", func(t Transaction) []string { return t.Tags }),
	query.TimeOffsetField("bookedAt", func(t Transaction) time.Time { return t.BookedAt }),
	query.NullableDurationField("settleAfter", func(t Transaction) *time.Duration { return t.SettleAfter }),
	query.NullableInt32Field("installment", func(t Transaction) *int32 { return t.Installment }),
)

func scanTransaction(r *store.Row) Transaction {
	return Transaction{
		ID:          r.UUID("id"),
		AccountID:   r.UUID("account_id"),
		OwnerID:     r.UUID("owner_id"),
		Description: r.String("description"),
		Category:    r.String("category"),
		Note:        r.NullString("note"),
		Amount:      r.Decimal("amount"),
		Flags:       TransactionFlags(r.Int64("flags")),
		Tags:        r.Strings("tags"),
		BookedAt:    r.Time("booked_at"),
		SettleAfter: r.NullDuration("settle_after"),
		Installment: r.NullInt32("installment"),
	}
}

func transactionValues(t Transaction) []any {
	return []any{
		t.ID, t.AccountID, t.OwnerID, t.Description, t.Category, t.Note, t.Amount,
		int64(t.Flags), t.Tags, t.BookedAt, t.SettleAfter, t.Installment,
	}
}
