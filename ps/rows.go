package ps

import (
	"encoding/json"
	"fmt"
	"iter"
	"path"

	"github.com/nickyhof/TabulaDB/core"
)

// ListRowKeys returns the record keys for a table in Git tree order.
// Row keys are zero-padded ids, so tree order is insertion order.
func (persistence *Persistence) ListRowKeys(database string, table string) []string {
	dirPath := fmt.Sprintf("%s/%s", database, table)

	entries, err := persistence.ListEntriesDirect(dirPath)
	if err != nil {
		return nil
	}

	var keys []string
	for _, entry := range entries {
		if !entry.IsDir {
			keys = append(keys, entry.Name)
		}
	}

	return keys
}

// nextRowID computes the next synthetic id as highest existing id plus one.
// Callers must hold the write lock when the result is used for assignment.
func (persistence *Persistence) nextRowID(database string, table string) int64 {
	var max int64
	for _, key := range persistence.ListRowKeys(database, table) {
		id, err := core.ParseRowKey(key)
		if err != nil {
			continue
		}
		if id > max {
			max = id
		}
	}
	return max + 1
}

// NextRowID returns the id the next inserted row would receive.
func (persistence *Persistence) NextRowID(database string, table string) int64 {
	persistence.mu.RLock()
	defer persistence.mu.RUnlock()

	return persistence.nextRowID(database, table)
}

// AppendRows assigns synthetic ids to the given rows and writes them in a
// single commit. Id assignment and the commit share the write lock so
// concurrent inserts never hand out the same id.
func (persistence *Persistence) AppendRows(database string, table string, rows []core.Row, identity core.Identity) (ids []int64, txn Transaction, err error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, Transaction{}, err
	}

	persistence.mu.Lock()
	defer persistence.mu.Unlock()

	next := persistence.nextRowID(database, table)

	ids = make([]int64, 0, len(rows))
	changes := make([]TreeChange, 0, len(rows))
	for _, row := range rows {
		id := next
		next++

		stored := row.Clone()
		stored[core.SyntheticIDColumn] = id

		data, err := json.Marshal(stored)
		if err != nil {
			return nil, Transaction{}, fmt.Errorf("failed to marshal row %d: %w", id, err)
		}

		blobHash, err := persistence.createBlob(data)
		if err != nil {
			return nil, Transaction{}, fmt.Errorf("failed to create blob for row %d: %w", id, err)
		}

		changes = append(changes, TreeChange{
			Path:     path.Join(database, table, core.RowKey(id)),
			BlobHash: blobHash,
		})
		ids = append(ids, id)
	}

	txn, err = persistence.commitChanges(changes, identity, fmt.Sprintf("Inserting %d row(s)", len(rows)))
	if err != nil {
		return nil, Transaction{}, err
	}

	return ids, txn, nil
}

// UpdateRow rewrites the row with the given id. The stored id always wins
// over any id present in the incoming data.
func (persistence *Persistence) UpdateRow(database string, table string, id int64, row core.Row, identity core.Identity) (txn Transaction, err error) {
	if err := persistence.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	key := core.RowKey(id)
	if _, exists := persistence.GetRecord(database, table, key); !exists {
		return Transaction{}, fmt.Errorf("row %d in %s.%s does not exist: %w", id, database, table, core.ErrNotFound)
	}

	stored := row.Clone()
	stored[core.SyntheticIDColumn] = id

	data, err := json.Marshal(stored)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to marshal row %d: %w", id, err)
	}

	records := map[string][]byte{key: data}
	return persistence.SaveRecords(database, table, records, identity, "Updating row")
}

// DeleteRow removes the row with the given id.
func (persistence *Persistence) DeleteRow(database string, table string, id int64, identity core.Identity) (txn Transaction, err error) {
	if err := persistence.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	key := core.RowKey(id)
	if _, exists := persistence.GetRecord(database, table, key); !exists {
		return Transaction{}, fmt.Errorf("row %d in %s.%s does not exist: %w", id, database, table, core.ErrNotFound)
	}

	changes := []TreeChange{{
		Path:     path.Join(database, table, key),
		IsDelete: true,
	}}

	return persistence.commitChanges(changes, identity, "Deleting row")
}

// ClearRows removes every row from a table while keeping its schema.
func (persistence *Persistence) ClearRows(database string, table string, identity core.Identity) (txn Transaction, err error) {
	dirPath := fmt.Sprintf("%s/%s", database, table)

	return persistence.DeletePathDirect([]string{dirPath}, identity, "Clearing rows")
}

// GetRow reads and decodes a single row by id.
func (persistence *Persistence) GetRow(database string, table string, id int64) (core.Row, bool) {
	data, exists := persistence.GetRecord(database, table, core.RowKey(id))
	if !exists {
		return nil, false
	}

	var row core.Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, false
	}

	return row, true
}

// GetRecord reads a raw record directly from the Git tree (bypasses worktree filesystem)
func (persistence *Persistence) GetRecord(database string, table string, key string) (data []byte, exists bool) {
	if !persistence.IsInitialized() {
		return nil, false
	}

	commit, err := persistence.headCommit()
	if err != nil {
		return nil, false
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, false
	}

	filePath := path.Join(database, table, key)
	file, err := tree.File(filePath)
	if err != nil {
		return nil, false
	}

	content, err := file.Contents()
	if err != nil {
		return nil, false
	}

	return []byte(content), true
}

// SaveRecords writes keyed records to a table in a single commit.
// Unlike AppendRows the keys are supplied by the caller, which lets imports
// and replication preserve ids.
func (persistence *Persistence) SaveRecords(database string, table string, records map[string][]byte, identity core.Identity, message string) (txn Transaction, err error) {
	if err := persistence.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	changes := make([]TreeChange, 0, len(records))
	for key, data := range records {
		blobHash, err := persistence.createBlob(data)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", key, err)
		}

		changes = append(changes, TreeChange{
			Path:     path.Join(database, table, key),
			BlobHash: blobHash,
		})
	}

	return persistence.commitChanges(changes, identity, message)
}

// Scan iterates records in key order, optionally filtered.
func (persistence *Persistence) Scan(database string, table string, filterExpr *func(key string, value []byte) bool) iter.Seq2[string, []byte] {
	keys := persistence.ListRowKeys(database, table)

	currentIndex := 0

	return func(yield func(key string, value []byte) bool) {
		for currentIndex < len(keys) {
			key := keys[currentIndex]
			value, _ := persistence.GetRecord(database, table, key)

			currentIndex++

			if filterExpr != nil && !(*filterExpr)(key, value) {
				continue
			}

			if !yield(key, value) {
				return
			}
		}
	}
}
