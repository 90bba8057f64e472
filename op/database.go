package op

import (
	"fmt"

	"github.com/nickyhof/TabulaDB/core"
	"github.com/nickyhof/TabulaDB/ps"
)

type DatabaseOp struct {
	Database    core.Database
	Persistence *ps.Persistence
}

func CreateDatabase(database core.Database, persistence *ps.Persistence, identity core.Identity) (*ps.Transaction, *DatabaseOp, error) {
	if err := core.ValidateName(database.Name); err != nil {
		return nil, nil, fmt.Errorf("database name: %w", err)
	}

	txn, err := persistence.CreateDatabase(database, identity)
	if err != nil {
		return nil, nil, err
	}

	return &txn, &DatabaseOp{
		Database:    database,
		Persistence: persistence,
	}, nil
}

func GetDatabase(name string, persistence *ps.Persistence) (*DatabaseOp, error) {
	d, err := persistence.GetDatabase(name)
	if err != nil {
		return nil, err
	}
	return &DatabaseOp{
		Database:    *d,
		Persistence: persistence,
	}, nil
}

func (op *DatabaseOp) DropDatabase(identity core.Identity) (txn ps.Transaction, err error) {
	return op.Persistence.DropDatabase(op.Database.Name, identity)
}

func (op *DatabaseOp) TableNames() []string {
	return op.Persistence.ListTables(op.Database.Name)
}

// Tables loads every table schema in the database.
func (op *DatabaseOp) Tables() ([]core.Table, error) {
	names := op.TableNames()

	tables := make([]core.Table, 0, len(names))
	for _, name := range names {
		table, err := op.Persistence.GetTable(op.Database.Name, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *table)
	}

	return tables, nil
}

func (op *DatabaseOp) Restore(asof ps.Transaction, identity core.Identity) (ps.Transaction, error) {
	return op.Persistence.Restore(asof, &op.Database.Name, nil, identity)
}
