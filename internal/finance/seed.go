package finance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-backend/internal/store"
)

// Demo holds a small, fixed data set for one owner. Ids derive from the
// owner, so seeding the same owner twice yields the same rows.
type Demo struct {
	Accounts     []Account
	Transactions []Transaction
	Jars         []Jar
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[V any](v V) *V { return &v }

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// NewDemo builds the demo data set for owner.
func NewDemo(owner uuid.UUID) Demo {
	id := func(name string) uuid.UUID { return uuid.NewSHA1(owner, []byte(name)) }

	everyday, savings, visa, wallet := id("account/everyday"), id("account/savings"), id("account/visa"), id("account/wallet")

	return Demo{
		Accounts: []Account{
			{ID: everyday, OwnerID: owner, Name: "Everyday", Currency: "EUR", Kind: Checking,
				Balance: money("1520.40"), OpenedAt: at("2023-01-10T00:00:00Z")},
			{ID: savings, OwnerID: owner, Name: "Rainy day", Currency: "EUR", Kind: Savings,
				Balance: money("8000"), OpenedAt: at("2023-02-01T00:00:00Z")},
			{ID: visa, OwnerID: owner, Name: "Visa", Currency: "EUR", Kind: Credit,
				Balance: money("-312.75"), OpenedAt: at("2023-03-15T00:00:00Z")},
			{ID: wallet, OwnerID: owner, Name: "Old wallet", Currency: "USD", Kind: Cash,
				Balance: decimal.Zero, Archived: true, OpenedAt: at("2022-06-01T00:00:00Z"), ClosedAt: ptr(at("2024-01-31T00:00:00Z"))},
		},
		Transactions: []Transaction{
			{ID: id("tx/salary"), AccountID: everyday, OwnerID: owner, Description: "Salary May", Category: "income",
				Amount: money("3200.00"), Flags: Recurring | Reconciled, Tags: []string{"income"}, BookedAt: at("2024-05-01T09:00:00+02:00")},
			{ID: id("tx/rent"), AccountID: everyday, OwnerID: owner, Description: "Rent", Category: "housing",
				Amount: money("-1100"), Flags: Recurring | Reconciled, Tags: []string{"home", "fixed"}, BookedAt: at("2024-05-02T08:00:00+02:00")},
			{ID: id("tx/groceries"), AccountID: everyday, OwnerID: owner, Description: "Groceries", Category: "food", Note: ptr("split with Sam"),
				Amount: money("-86.40"), Flags: Shared, Tags: []string{"food", "home"}, BookedAt: at("2024-05-04T17:30:00+02:00")},
			{ID: id("tx/coffee"), AccountID: everyday, OwnerID: owner, Description: "Coffee", Category: "food",
				Amount: money("-3.80"), Tags: []string{}, BookedAt: at("2024-05-05T08:15:00+02:00")},
			{ID: id("tx/laptop"), AccountID: visa, OwnerID: owner, Description: "Laptop", Category: "electronics", Note: ptr("3 of 12"),
				Amount: money("-1200"), Flags: Pending, Tags: []string{"work"}, BookedAt: at("2024-05-06T12:00:00+02:00"),
				SettleAfter: ptr(48 * time.Hour), Installment: ptr(int32(3))},
			{ID: id("tx/cinema"), AccountID: everyday, OwnerID: owner, Description: "Cinema", Category: "fun", Note: ptr(""),
				Amount: money("-24"), Flags: Shared | Pending, BookedAt: at("2024-05-07T20:00:00+02:00")},
		},
		Jars: []Jar{
			{ID: id("jar/emergency"), OwnerID: owner, Name: "Emergency", Target: money("10000"), Saved: money("8000"),
				Priority: 1, Ratio: 0.5, Rate: ptr(float32(2.5))},
			{ID: id("jar/holiday"), OwnerID: owner, Name: "Holiday", Target: money("2500"), Saved: money("600"),
				Priority: 2, Ratio: 0.3, DueAt: ptr(at("2024-08-01T00:00:00Z"))},
			{ID: id("jar/gadgets"), OwnerID: owner, Name: "Gadgets", Target: money("1500"), Saved: money("1450"),
				Priority: 3, Ratio: 0.2, Rate: ptr(float32(1)), DueAt: ptr(at("2024-12-24T00:00:00Z"))},
		},
	}
}

// Seed inserts the demo data for owner in one transaction.
func Seed(ctx context.Context, s *store.Store, owner uuid.UUID) error {
	demo := NewDemo(owner)

	return s.InTx(ctx, func(tx *sql.Tx) error {
		if err := insertAll(ctx, tx, s.Dialect, AccountsTable, AccountSchema.Columns(), demo.Accounts, accountValues); err != nil {
			return err
		}
		if err := insertAll(ctx, tx, s.Dialect, TransactionsTable, TransactionSchema.Columns(), demo.Transactions, transactionValues); err != nil {
			return err
		}
		return insertAll(ctx, tx, s.Dialect, JarsTable, JarSchema.Columns(), demo.Jars, jarValues)
	})
}

func insertAll[T any](ctx context.Context, q store.Querier, dialect store.Dialect, table string, columns []string, rows []T, values func(T) []any) error {
	for _, row := range rows {
		if err := store.Insert(ctx, q, dialect, table, columns, values(row)); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}
