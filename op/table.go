package op

import (
	"encoding/json"
	"fmt"
	"iter"

	"github.com/nickyhof/TabulaDB/core"
	"github.com/nickyhof/TabulaDB/ps"
)

type TableOp struct {
	Table       core.Table
	Persistence *ps.Persistence
}

func CreateTable(table core.Table, persistence *ps.Persistence, identity core.Identity) (*ps.Transaction, *TableOp, error) {
	if err := table.Validate(); err != nil {
		return nil, nil, err
	}

	// The parent database must exist
	if _, err := persistence.GetDatabase(table.Database); err != nil {
		return nil, nil, err
	}

	txn, err := persistence.CreateTable(table, identity)
	if err != nil {
		return nil, nil, err
	}

	return &txn, &TableOp{
		Table:       table,
		Persistence: persistence,
	}, nil
}

func GetTable(database string, tableName string, persistence *ps.Persistence) (*TableOp, error) {
	table, err := persistence.GetTable(database, tableName)

	if err != nil {
		return nil, err
	}

	return &TableOp{
		Table:       *table,
		Persistence: persistence,
	}, nil
}

// Columns returns the declared columns in declaration order.
func (op *TableOp) Columns() []core.Column {
	return op.Table.Columns
}

// ColumnTypes maps every declared column name to its type.
func (op *TableOp) ColumnTypes() map[string]core.DataType {
	return op.Table.ColumnTypes()
}

// ReplaceColumns rewrites the table's schema. Stored rows are left as they
// are; reads coerce them against the new declared types.
func (op *TableOp) ReplaceColumns(columns []core.Column, identity core.Identity) (txn ps.Transaction, err error) {
	updated := op.Table
	updated.Columns = columns

	if err := updated.Validate(); err != nil {
		return ps.Transaction{}, err
	}

	txn, err = op.Persistence.UpdateTable(updated, identity, "Replacing columns")
	if err != nil {
		return ps.Transaction{}, err
	}

	op.Table = updated
	return txn, nil
}

func (op *TableOp) DropTable(identity core.Identity) (txn ps.Transaction, err error) {
	return op.Persistence.DropTable(op.Table.Database, op.Table.Name, identity)
}

// Rows returns every row in insertion order, each carrying its synthetic id.
func (op *TableOp) Rows() ([]core.Row, error) {
	var rows []core.Row
	for key, value := range op.Scan() {
		var row core.Row
		if err := json.Unmarshal(value, &row); err != nil {
			return nil, fmt.Errorf("failed to decode row %s of %s.%s: %w", key, op.Table.Database, op.Table.Name, core.ErrInternal)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Get reads a single row by synthetic id.
func (op *TableOp) Get(id int64) (core.Row, bool) {
	return op.Persistence.GetRow(op.Table.Database, op.Table.Name, id)
}

// NextSyntheticID previews the id the next inserted row will receive.
func (op *TableOp) NextSyntheticID() int64 {
	return op.Persistence.NextRowID(op.Table.Database, op.Table.Name)
}

// InsertRows appends rows in one transaction, assigning each a synthetic id.
func (op *TableOp) InsertRows(rows []core.Row, identity core.Identity) (ids []int64, txn ps.Transaction, err error) {
	if len(rows) == 0 {
		return nil, ps.Transaction{}, fmt.Errorf("no rows to insert: %w", core.ErrValidation)
	}

	return op.Persistence.AppendRows(op.Table.Database, op.Table.Name, rows, identity)
}

// UpdateRow rewrites the row with the given id, keeping the id itself.
func (op *TableOp) UpdateRow(id int64, row core.Row, identity core.Identity) (txn ps.Transaction, err error) {
	return op.Persistence.UpdateRow(op.Table.Database, op.Table.Name, id, row, identity)
}

func (op *TableOp) DeleteRow(id int64, identity core.Identity) (txn ps.Transaction, err error) {
	return op.Persistence.DeleteRow(op.Table.Database, op.Table.Name, id, identity)
}

// DeleteAllRows clears the table's rows while keeping its schema.
func (op *TableOp) DeleteAllRows(identity core.Identity) (txn ps.Transaction, err error) {
	return op.Persistence.ClearRows(op.Table.Database, op.Table.Name, identity)
}

func (op *TableOp) Count() int {
	return len(op.Keys())
}

func (op *TableOp) Keys() []string {
	return op.Persistence.ListRowKeys(op.Table.Database, op.Table.Name)
}

func (op *TableOp) Scan() iter.Seq2[string, []byte] {
	return op.Persistence.Scan(op.Table.Database, op.Table.Name, nil)
}

func (op *TableOp) ScanWithFilter(filterExpr func(key string, value []byte) bool) iter.Seq2[string, []byte] {
	return op.Persistence.Scan(op.Table.Database, op.Table.Name, &filterExpr)
}

func (op *TableOp) Restore(asof ps.Transaction, identity core.Identity) (ps.Transaction, error) {
	return op.Persistence.Restore(asof, &op.Table.Database, &op.Table.Name, identity)
}
