package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"finance-backend/internal/query"
)

// ColumnDef is one column derived from a query field.
type ColumnDef struct {
	Name     string
	Kind     query.FieldKind
	Nullable bool
}

// TableDef describes a resource table: its columns, primary key and the
// columns worth an index (owner scoping, common filters).
type TableDef struct {
	Name    string
	Key     string
	Columns []ColumnDef
	Indexes []string
}

// DefineTable derives a TableDef from a schema, one column per field.
func DefineTable[T any](name, key string, schema *query.Schema[T], indexes ...string) TableDef {
	def := TableDef{Name: name, Key: key, Indexes: indexes}
	for _, f := range schema.Fields() {
		def.Columns = append(def.Columns, ColumnDef{Name: f.Column(), Kind: f.Kind(), Nullable: f.Nullable()})
	}
	return def
}

// Migrator brings resource tables up to their definitions. It only ever
// adds: tables, missing columns and indexes.
type Migrator struct {
	store *Store
}

func NewMigrator(store *Store) *Migrator {
	return &Migrator{store: store}
}

// Migrate creates the table, or adds the columns it lacks as nullable since
// existing rows have no value for them. Indexes are created if absent.
func (m *Migrator) Migrate(ctx context.Context, def TableDef) error {
	existing, err := m.store.Dialect.Columns(ctx, m.store.DB, def.Name)
	if err != nil {
		return err
	}

	var stmts []string
	if len(existing) == 0 {
		cols := make([]string, 0, len(def.Columns))
		for _, c := range def.Columns {
			cols = append(cols, m.columnDDL(def, c))
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", def.Name, strings.Join(cols, ",\n  ")))
	} else {
		for _, c := range def.Columns {
			if !slices.Contains(existing, c.Name) {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", def.Name, c.Name, m.store.Dialect.ColumnType(c.Kind)))
			}
		}
	}
	for _, col := range def.Indexes {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)", def.Name, col, def.Name, col))
	}

	for _, stmt := range stmts {
		if _, err := Exec(ctx, m.store.DB, m.store.Dialect, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", def.Name, err)
		}
	}
	return nil
}

func (m *Migrator) columnDDL(def TableDef, c ColumnDef) string {
	col := c.Name + " " + m.store.Dialect.ColumnType(c.Kind)
	switch {
	case c.Name == def.Key:
		col += " PRIMARY KEY"
	case !c.Nullable:
		col += " NOT NULL"
	}
	return col
}
