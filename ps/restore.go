package ps

import (
	"fmt"

	"github.com/go-git/go-git/v6/plumbing"

	"github.com/nickyhof/TabulaDB/core"
)

// Snapshot tags a transaction with a name. When asof is nil the snapshot is
// taken at the current HEAD.
func (persistence *Persistence) Snapshot(name string, asof *Transaction) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	var target plumbing.Hash
	if asof != nil {
		target = plumbing.NewHash(asof.Id)
	} else {
		headRef, err := persistence.repo.Head()
		if err != nil {
			return fmt.Errorf("nothing to snapshot: %w", err)
		}
		target = headRef.Hash()
	}

	if _, err := persistence.repo.CreateTag(name, target, nil); err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", name, err)
	}

	return nil
}

// SnapshotRef is a named snapshot and the transaction it points at.
type SnapshotRef struct {
	Name string
	Id   string
}

// ListSnapshots returns all named snapshots.
func (persistence *Persistence) ListSnapshots() ([]SnapshotRef, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	iter, err := persistence.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var snapshots []SnapshotRef
	iter.ForEach(func(ref *plumbing.Reference) error {
		snapshots = append(snapshots, SnapshotRef{
			Name: ref.Name().Short(),
			Id:   ref.Hash().String(),
		})
		return nil
	})

	return snapshots, nil
}

// DeleteSnapshot removes a named snapshot. The underlying transaction stays
// in history.
func (persistence *Persistence) DeleteSnapshot(name string) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	if err := persistence.repo.DeleteTag(name); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", name, err)
	}

	return nil
}

// Recover moves HEAD back to a named snapshot. Transactions after the
// snapshot are abandoned.
func (persistence *Persistence) Recover(name string) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	ref, err := persistence.repo.Tag(name)
	if err != nil {
		return fmt.Errorf("snapshot %s not found: %w", name, err)
	}

	return persistence.resetTo(ref.Hash())
}

// resetTo points the current branch at the given commit and resyncs the
// worktree.
func (persistence *Persistence) resetTo(hash plumbing.Hash) error {
	branchName := plumbing.Master
	if headRef, err := persistence.repo.Head(); err == nil && headRef.Name().IsBranch() {
		branchName = headRef.Name()
	}

	ref := plumbing.NewHashReference(branchName, hash)
	if err := persistence.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to move HEAD: %w", err)
	}

	return persistence.syncWorktree()
}

// Restore brings a database, a table, or the whole store back to the state it
// had at the given transaction. Unlike Recover this records the rollback as a
// new transaction, so history is preserved.
func (persistence *Persistence) Restore(asof Transaction, database *string, table *string, identity core.Identity) (Transaction, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	commit, err := persistence.repo.CommitObject(plumbing.NewHash(asof.Id))
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction %s not found: %w", asof.Id, core.ErrNotFound)
	}
	oldTree := commit.TreeHash

	currentTree, err := persistence.headTree()
	if err != nil {
		return Transaction{}, err
	}

	var paths []string
	if database != nil && table != nil {
		paths = []string{
			fmt.Sprintf("%s/%s.table", *database, *table),
			fmt.Sprintf("%s/%s", *database, *table),
		}
	} else if database != nil {
		paths = []string{
			fmt.Sprintf("%s.database", *database),
			*database,
		}
	}

	newTree := oldTree
	if paths != nil {
		// Partial restore: graft the historical entries over the current tree
		newTree = currentTree
		for _, restorePath := range paths {
			entry, found, err := persistence.lookupTreePath(oldTree, restorePath)
			if err != nil {
				return Transaction{}, err
			}

			if found {
				newTree, err = persistence.setTreePath(newTree, restorePath, entry)
			} else {
				newTree, err = persistence.deleteTreePath(newTree, restorePath)
			}
			if err != nil {
				return Transaction{}, fmt.Errorf("failed to restore %s: %w", restorePath, err)
			}
		}
	}

	message := fmt.Sprintf("Restoring to transaction %s", shortId(asof.Id))
	return persistence.commitTree(currentTree, newTree, identity, message)
}

func shortId(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
