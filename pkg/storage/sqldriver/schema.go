package sqldriver

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	realmsTable   = "realms"
	memoriesTable = "memories"
)

var (
	// RealmsColumns holds the columns for the "realms" table.
	RealmsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "natural_key", Type: field.TypeString, Unique: true},
		{Name: "name", Type: field.TypeString, Default: ""},
		{Name: "description", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// RealmsTable holds the schema information for the "realms" table.
	RealmsTable = &schema.Table{
		Name:       realmsTable,
		Columns:    RealmsColumns,
		PrimaryKey: []*schema.Column{RealmsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "realm_name",
				Unique:  false,
				Columns: []*schema.Column{RealmsColumns[2]},
			},
		},
	}

	// MemoriesColumns holds the columns for the "memories" table.
	MemoriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "natural_key", Type: field.TypeString},
		{Name: "title", Type: field.TypeString, Default: ""},
		{Name: "content", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "link", Type: field.TypeString, Default: ""},
		{Name: "enclosure_link", Type: field.TypeString, Default: ""},
		{Name: "image_link", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "realm_id", Type: field.TypeInt64},
	}
	// MemoriesTable holds the schema information for the "memories" table.
	MemoriesTable = &schema.Table{
		Name:       memoriesTable,
		Columns:    MemoriesColumns,
		PrimaryKey: []*schema.Column{MemoriesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "memories_realms_memories",
				Columns:    []*schema.Column{MemoriesColumns[9]},
				RefColumns: []*schema.Column{RealmsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "memory_realm_id_natural_key",
				Unique:  true,
				Columns: []*schema.Column{MemoriesColumns[9], MemoriesColumns[1]},
			},
			{
				Name:    "memory_created_at",
				Unique:  false,
				Columns: []*schema.Column{MemoriesColumns[7]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		RealmsTable,
		MemoriesTable,
	}
)

func init() {
	MemoriesTable.ForeignKeys[0].RefTable = RealmsTable
}

// Migrate creates or updates the realms and memories tables. Changes are
// append-only: new tables, columns and indexes.
func Migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
