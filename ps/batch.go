package ps

import (
	"fmt"
	"path"

	"github.com/nickyhof/TabulaDB/core"
)

// TransactionBuilder batches writes and deletes, possibly across tables,
// into a single transaction. Writes become blobs as they are staged; nothing
// touches the tree or HEAD until Commit.
type TransactionBuilder struct {
	persistence *Persistence
	changes     []TreeChange
	done        bool
}

// BeginTransaction starts a batch against the store.
func (persistence *Persistence) BeginTransaction() (*TransactionBuilder, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	return &TransactionBuilder{persistence: persistence}, nil
}

// AddWrite stages a record write under database/table/key.
func (tb *TransactionBuilder) AddWrite(database, table, key string, data []byte) error {
	if tb.done {
		return fmt.Errorf("transaction already finished")
	}

	blobHash, err := tb.persistence.createBlob(data)
	if err != nil {
		return fmt.Errorf("failed to stage %s/%s/%s: %w", database, table, key, err)
	}

	tb.changes = append(tb.changes, TreeChange{
		Path:     path.Join(database, table, key),
		BlobHash: blobHash,
	})

	return nil
}

// AddDelete stages the removal of database/table/key.
func (tb *TransactionBuilder) AddDelete(database, table, key string) error {
	if tb.done {
		return fmt.Errorf("transaction already finished")
	}

	tb.changes = append(tb.changes, TreeChange{
		Path:     path.Join(database, table, key),
		IsDelete: true,
	})

	return nil
}

// Commit lands every staged change as one transaction. The builder cannot be
// reused afterwards.
func (tb *TransactionBuilder) Commit(identity core.Identity) (Transaction, error) {
	if tb.done {
		return Transaction{}, fmt.Errorf("transaction already finished")
	}
	if len(tb.changes) == 0 {
		return Transaction{}, fmt.Errorf("no operations to commit")
	}

	message := fmt.Sprintf("Batch transaction: %d operation(s)", len(tb.changes))
	txn, err := tb.persistence.commitChanges(tb.changes, identity, message)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit: %w", err)
	}

	tb.done = true
	tb.changes = nil

	return txn, nil
}

// Rollback discards the staged changes. Blobs already written stay behind as
// unreferenced objects, which Git tolerates.
func (tb *TransactionBuilder) Rollback() {
	tb.done = true
	tb.changes = nil
}

// OperationCount returns the number of staged changes.
func (tb *TransactionBuilder) OperationCount() int {
	return len(tb.changes)
}
