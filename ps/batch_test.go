package ps

import (
	"testing"
	"time"

	"github.com/nickyhof/TabulaDB/core"
)

func batchTestStore(t *testing.T) (*Persistence, core.Identity) {
	t.Helper()

	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	identity := core.Identity{Name: "batcher", Email: "batcher@example.com"}

	if _, err := persistence.CreateDatabase(core.Database{Name: "ledger"}, identity); err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if _, err := persistence.CreateTable(core.Table{
		Database: "ledger",
		Name:     "entries",
		Columns:  []core.Column{{Name: "memo", Type: core.VarcharType}},
	}, identity); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	return &persistence, identity
}

func TestBatchLandsAsOneTransaction(t *testing.T) {
	persistence, identity := batchTestStore(t)

	historyBefore := len(persistence.TransactionsSince(time.Time{}))

	builder, err := persistence.BeginTransaction()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	if err := builder.AddWrite("ledger", "entries", core.RowKey(1), []byte(`{"id":1,"memo":"rent"}`)); err != nil {
		t.Fatalf("Failed to stage write: %v", err)
	}
	if err := builder.AddWrite("ledger", "entries", core.RowKey(2), []byte(`{"id":2,"memo":"food"}`)); err != nil {
		t.Fatalf("Failed to stage write: %v", err)
	}
	if builder.OperationCount() != 2 {
		t.Errorf("Expected 2 staged operations, got %d", builder.OperationCount())
	}

	// Staged writes stay invisible until the batch commits
	if _, exists := persistence.GetRecord("ledger", "entries", core.RowKey(1)); exists {
		t.Error("Expected staged write to be invisible before commit")
	}

	txn, err := builder.Commit(identity)
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	if txn.Id == "" {
		t.Error("Expected the batch to commit a transaction")
	}

	for id := int64(1); id <= 2; id++ {
		if _, exists := persistence.GetRecord("ledger", "entries", core.RowKey(id)); !exists {
			t.Errorf("Expected record %d after commit", id)
		}
	}

	if after := len(persistence.TransactionsSince(time.Time{})); after != historyBefore+1 {
		t.Errorf("Expected one transaction for the batch, got %d", after-historyBefore)
	}
}

func TestBatchMixesWritesAndDeletes(t *testing.T) {
	persistence, identity := batchTestStore(t)

	if _, _, err := persistence.AppendRows("ledger", "entries", []core.Row{{"memo": "stale"}}, identity); err != nil {
		t.Fatalf("Failed to seed row: %v", err)
	}

	builder, err := persistence.BeginTransaction()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	if err := builder.AddDelete("ledger", "entries", core.RowKey(1)); err != nil {
		t.Fatalf("Failed to stage delete: %v", err)
	}
	if err := builder.AddWrite("ledger", "entries", core.RowKey(2), []byte(`{"id":2,"memo":"fresh"}`)); err != nil {
		t.Fatalf("Failed to stage write: %v", err)
	}

	if _, err := builder.Commit(identity); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	if _, exists := persistence.GetRecord("ledger", "entries", core.RowKey(1)); exists {
		t.Error("Expected the staged delete applied")
	}
	if _, exists := persistence.GetRecord("ledger", "entries", core.RowKey(2)); !exists {
		t.Error("Expected the staged write applied")
	}
}

func TestBatchRollbackLeavesHeadUntouched(t *testing.T) {
	persistence, _ := batchTestStore(t)

	before := persistence.HeadVersion()

	builder, err := persistence.BeginTransaction()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if err := builder.AddWrite("ledger", "entries", core.RowKey(1), []byte(`{"id":1}`)); err != nil {
		t.Fatalf("Failed to stage write: %v", err)
	}

	builder.Rollback()

	if builder.OperationCount() != 0 {
		t.Errorf("Expected no staged operations after rollback, got %d", builder.OperationCount())
	}
	if persistence.HeadVersion() != before {
		t.Error("Expected head to stay put after rollback")
	}
}

func TestBatchEmptyCommitFails(t *testing.T) {
	persistence, identity := batchTestStore(t)

	builder, err := persistence.BeginTransaction()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	if _, err := builder.Commit(identity); err == nil {
		t.Error("Expected an error committing an empty batch")
	}
}

func TestFinishedBatchRefusesWork(t *testing.T) {
	persistence, identity := batchTestStore(t)

	builder, err := persistence.BeginTransaction()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if err := builder.AddWrite("ledger", "entries", core.RowKey(1), []byte(`{"id":1}`)); err != nil {
		t.Fatalf("Failed to stage write: %v", err)
	}
	if _, err := builder.Commit(identity); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	if err := builder.AddWrite("ledger", "entries", core.RowKey(2), []byte(`{"id":2}`)); err == nil {
		t.Error("Expected a committed builder to refuse writes")
	}
	if err := builder.AddDelete("ledger", "entries", core.RowKey(1)); err == nil {
		t.Error("Expected a committed builder to refuse deletes")
	}
	if _, err := builder.Commit(identity); err == nil {
		t.Error("Expected a second commit to fail")
	}
}
