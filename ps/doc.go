// Package ps provides the persistence layer for TabulaDB.
//
// The persistence layer is backed by Git, using go-git for storage.
// Every write operation creates a Git commit, providing full version
// control and history tracking. The HEAD commit hash doubles as a
// version stamp: readers can tell whether anything changed by comparing
// hashes.
//
// # Memory Persistence
//
// For testing or ephemeral databases:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// For persistent storage:
//
//	persistence, err := ps.NewFilePersistence("/path/to/data", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Row Storage
//
// Rows are stored one record per blob under database/table/ using
// zero-padded synthetic ids as keys, so Git's tree ordering is also
// insertion order. AppendRows assigns ids and commits in one step:
//
//	ids, txn, err := persistence.AppendRows("shop", "sales", rows, identity)
//
// # Transaction Batching
//
// For batching writes across tables into a single commit, use
// TransactionBuilder:
//
//	txn, _ := persistence.BeginTransaction()
//	txn.AddWrite("db", "table", "key1", data1)
//	txn.AddWrite("db", "table", "key2", data2)
//	result, _ := txn.Commit(identity)
package ps
