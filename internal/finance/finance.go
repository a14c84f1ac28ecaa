// Package finance declares the listable finance resources: their entities,
// query schemas and table layout.
package finance

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"finance-backend/internal/engine"
	"finance-backend/internal/query"
	"finance-backend/internal/store"
)

const (
	AccountsTable     = "accounts"
	TransactionsTable = "transactions"
	JarsTable         = "jars"

	// ownerField scopes every resource to the authenticated user.
	ownerField = "ownerId"
)

// Tables returns the table definitions of every resource. Owner and the
// common filter columns are indexed.
func Tables() []store.TableDef {
	return []store.TableDef{
		store.DefineTable(AccountsTable, "id", AccountSchema, "owner_id"),
		store.DefineTable(TransactionsTable, "id", TransactionSchema, "owner_id", "account_id", "booked_at"),
		store.DefineTable(JarsTable, "id", JarSchema, "owner_id"),
	}
}

// Migrate creates or extends the resource tables.
func Migrate(ctx context.Context, s *store.Store) error {
	m := store.NewMigrator(s)
	for _, def := range Tables() {
		if err := m.Migrate(ctx, def); err != nil {
			return fmt.Errorf("migrate %s: %w", def.Name, err)
		}
	}
	return nil
}

// Register adds the SQL-backed resources to reg.
func Register(reg *engine.Registry, s *store.Store, opts query.Options, log logrus.FieldLogger) {
	reg.Register(resource(AccountsTable, s, AccountSchema, scanAccount, opts, log))
	reg.Register(resource(TransactionsTable, s, TransactionSchema, scanTransaction, opts, log))
	reg.Register(resource(JarsTable, s, JarSchema, scanJar, opts, log))
}

func resource[T any](table string, s *store.Store, schema *query.Schema[T], scan store.ScanFunc[T], opts query.Options, log logrus.FieldLogger) engine.Resource {
	base := store.NewTable(s.DB, s.Dialect, table, "id", schema, scan).WithLogger(log.WithField("resource", table))
	return engine.NewResource(table, query.New(schema, opts), func() query.Source[T] {
		return base
	}, ownerField)
}
