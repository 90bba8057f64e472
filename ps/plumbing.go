package ps

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/nickyhof/TabulaDB/core"
)

// TreeChange is one staged edit against the store's Git tree: a blob write
// when BlobHash is set, a removal when IsDelete is set. Paths are
// slash-separated, e.g. "database/table/key".
type TreeChange struct {
	Path     string
	BlobHash plumbing.Hash
	IsDelete bool
}

// TreeEntry is a directory listing entry as seen by the layers above, which
// only care about names and file-vs-directory.
type TreeEntry struct {
	Name  string
	IsDir bool
}

// storeEncoded encodes one Git object into the repository's object store and
// returns its hash.
func (persistence *Persistence) storeEncoded(encode func(plumbing.EncodedObject) error) (plumbing.Hash, error) {
	obj := persistence.repo.Storer.NewEncodedObject()
	if err := encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}

	return persistence.repo.Storer.SetEncodedObject(obj)
}

// createBlob writes data as a blob object, bypassing the worktree entirely.
func (persistence *Persistence) createBlob(data []byte) (plumbing.Hash, error) {
	hash, err := persistence.storeEncoded(func(obj plumbing.EncodedObject) error {
		obj.SetType(plumbing.BlobObject)
		obj.SetSize(int64(len(data)))

		writer, err := obj.Writer()
		if err != nil {
			return err
		}
		defer writer.Close()

		_, err = writer.Write(data)
		return err
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}

	return hash, nil
}

// storeTree encodes entries as a tree object in Git's canonical order, where
// a directory sorts as if its name carried a trailing slash. Canonical order
// keeps hashes stable, so rewriting unchanged content yields the same tree.
func (persistence *Persistence) storeTree(entries []object.TreeEntry) (plumbing.Hash, error) {
	sort.Slice(entries, func(i, j int) bool {
		return treeSortKey(entries[i]) < treeSortKey(entries[j])
	})

	tree := object.Tree{Entries: entries}
	hash, err := persistence.storeEncoded(tree.Encode)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}

	return hash, nil
}

func treeSortKey(entry object.TreeEntry) string {
	if entry.Mode == filemode.Dir {
		return entry.Name + "/"
	}
	return entry.Name
}

// headCommit resolves HEAD to its commit object. Errors when the repository
// has no commits yet.
func (persistence *Persistence) headCommit() (*object.Commit, error) {
	headRef, err := persistence.repo.Head()
	if err != nil {
		return nil, err
	}

	return persistence.repo.CommitObject(headRef.Hash())
}

// headTree returns the tree hash of the HEAD commit, or ZeroHash when nothing
// has been committed yet.
func (persistence *Persistence) headTree() (plumbing.Hash, error) {
	headRef, err := persistence.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, nil
	}

	commit, err := persistence.repo.CommitObject(headRef.Hash())
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve head commit: %w", err)
	}

	return commit.TreeHash, nil
}

// stagedDir is one directory level under edit. Entries start out as the base
// tree's; a subdirectory is expanded into children only when a change path
// descends into it, so untouched subtrees keep their hashes and are never
// re-encoded.
type stagedDir struct {
	entries  map[string]object.TreeEntry
	children map[string]*stagedDir
}

func (persistence *Persistence) stageTree(treeHash plumbing.Hash) (*stagedDir, error) {
	staged := &stagedDir{
		entries:  make(map[string]object.TreeEntry),
		children: make(map[string]*stagedDir),
	}

	if treeHash == plumbing.ZeroHash {
		return staged, nil
	}

	tree, err := object.GetTree(persistence.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to load tree: %w", err)
	}
	for _, entry := range tree.Entries {
		staged.entries[entry.Name] = entry
	}

	return staged, nil
}

// stageChild expands the named subdirectory of staged for editing, starting
// empty when the name is absent or currently a file.
func (persistence *Persistence) stageChild(staged *stagedDir, name string) (*stagedDir, error) {
	if child, ok := staged.children[name]; ok {
		return child, nil
	}

	base := plumbing.ZeroHash
	if entry, ok := staged.entries[name]; ok && entry.Mode == filemode.Dir {
		base = entry.Hash
	}

	child, err := persistence.stageTree(base)
	if err != nil {
		return nil, err
	}
	staged.children[name] = child

	return child, nil
}

// stagePath walks staged down the directory components of filePath and
// returns the directory that holds the final component, plus that
// component's name.
func (persistence *Persistence) stagePath(staged *stagedDir, filePath string) (*stagedDir, string, error) {
	if filePath == "" {
		return nil, "", fmt.Errorf("empty path")
	}

	parts := strings.Split(filePath, "/")
	current := staged
	for _, name := range parts[:len(parts)-1] {
		child, err := persistence.stageChild(current, name)
		if err != nil {
			return nil, "", err
		}
		current = child
	}

	return current, parts[len(parts)-1], nil
}

// sealTree encodes every edited directory bottom-up and returns the resulting
// tree hash. An emptied directory seals to ZeroHash and disappears from its
// parent; a name that was a plain file all along is left untouched.
func (persistence *Persistence) sealTree(staged *stagedDir) (plumbing.Hash, error) {
	for name, child := range staged.children {
		hash, err := persistence.sealTree(child)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		if hash == plumbing.ZeroHash {
			if entry, ok := staged.entries[name]; ok && entry.Mode == filemode.Dir {
				delete(staged.entries, name)
			}
			continue
		}

		staged.entries[name] = object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash}
	}

	if len(staged.entries) == 0 {
		return plumbing.ZeroHash, nil
	}

	entries := make([]object.TreeEntry, 0, len(staged.entries))
	for _, entry := range staged.entries {
		entries = append(entries, entry)
	}

	return persistence.storeTree(entries)
}

// applyTreeChanges folds a batch of writes and deletes into the tree rooted
// at rootTree and returns the new root hash. ZeroHash means the tree ended
// up empty.
func (persistence *Persistence) applyTreeChanges(rootTree plumbing.Hash, changes []TreeChange) (plumbing.Hash, error) {
	if len(changes) == 0 {
		return rootTree, nil
	}

	staged, err := persistence.stageTree(rootTree)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	for _, change := range changes {
		dir, leaf, err := persistence.stagePath(staged, change.Path)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		if change.IsDelete {
			// Removes a file or a whole subtree, staged edits included
			delete(dir.entries, leaf)
			delete(dir.children, leaf)
			continue
		}

		dir.entries[leaf] = object.TreeEntry{Name: leaf, Mode: filemode.Regular, Hash: change.BlobHash}
	}

	return persistence.sealTree(staged)
}

func (persistence *Persistence) deleteTreePath(rootTree plumbing.Hash, filePath string) (plumbing.Hash, error) {
	return persistence.applyTreeChanges(rootTree, []TreeChange{{Path: filePath, IsDelete: true}})
}

// setTreePath grafts an arbitrary entry, blob or whole subtree, onto the
// given path. Restores use this to carry historical subtrees into the
// current tree.
func (persistence *Persistence) setTreePath(rootTree plumbing.Hash, filePath string, entry object.TreeEntry) (plumbing.Hash, error) {
	staged, err := persistence.stageTree(rootTree)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	dir, leaf, err := persistence.stagePath(staged, filePath)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	entry.Name = leaf
	dir.entries[leaf] = entry
	delete(dir.children, leaf)

	return persistence.sealTree(staged)
}

// lookupTreePath resolves the entry at the given path, descending one tree
// object per path component.
func (persistence *Persistence) lookupTreePath(rootTree plumbing.Hash, filePath string) (object.TreeEntry, bool, error) {
	parts := strings.Split(filePath, "/")
	currentHash := rootTree

	for depth, name := range parts {
		if currentHash == plumbing.ZeroHash {
			return object.TreeEntry{}, false, nil
		}

		tree, err := object.GetTree(persistence.repo.Storer, currentHash)
		if err != nil {
			return object.TreeEntry{}, false, fmt.Errorf("failed to load tree: %w", err)
		}

		next := plumbing.ZeroHash
		for _, entry := range tree.Entries {
			if entry.Name != name {
				continue
			}
			if depth == len(parts)-1 {
				return entry, true, nil
			}
			if entry.Mode != filemode.Dir {
				return object.TreeEntry{}, false, nil
			}
			next = entry.Hash
			break
		}
		if next == plumbing.ZeroHash {
			return object.TreeEntry{}, false, nil
		}

		currentHash = next
	}

	return object.TreeEntry{}, false, nil
}

// writeCommit records a commit for the given tree, parented on the current
// HEAD, and advances the current branch to it.
func (persistence *Persistence) writeCommit(treeHash plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	if treeHash == plumbing.ZeroHash {
		// Deleting the last content still commits a real, empty tree
		empty, err := persistence.storeTree(nil)
		if err != nil {
			return Transaction{}, err
		}
		treeHash = empty
	}

	signature := object.Signature{
		Name:  identity.Name,
		Email: identity.Email,
		When:  time.Now(),
	}

	commit := object.Commit{
		Author:    signature,
		Committer: signature,
		Message:   message,
		TreeHash:  treeHash,
	}

	branchName := plumbing.Master
	if headRef, err := persistence.repo.Head(); err == nil {
		commit.ParentHashes = []plumbing.Hash{headRef.Hash()}
		if headRef.Name().IsBranch() {
			branchName = headRef.Name()
		}
	}

	commitHash, err := persistence.storeEncoded(commit.Encode)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store commit: %w", err)
	}

	ref := plumbing.NewHashReference(branchName, commitHash)
	if err := persistence.repo.Storer.SetReference(ref); err != nil {
		return Transaction{}, fmt.Errorf("failed to advance %s: %w", branchName, err)
	}

	return Transaction{
		Id:     commitHash.String(),
		When:   signature.When,
		Author: fmt.Sprintf("%s <%s>", identity.Name, identity.Email),
	}, nil
}

// commitTree commits newTree unless it is identical to currentTree, in which
// case the mutation was a no-op and no transaction is recorded.
func (persistence *Persistence) commitTree(currentTree, newTree plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	if newTree == currentTree {
		return Transaction{}, nil
	}

	txn, err := persistence.writeCommit(newTree, identity, message)
	if err != nil {
		return Transaction{}, err
	}

	if err := persistence.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	return txn, nil
}

// commitChanges stages a batch of tree changes against HEAD and commits the
// result.
func (persistence *Persistence) commitChanges(changes []TreeChange, identity core.Identity, message string) (Transaction, error) {
	currentTree, err := persistence.headTree()
	if err != nil {
		return Transaction{}, err
	}

	newTree, err := persistence.applyTreeChanges(currentTree, changes)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}

	return persistence.commitTree(currentTree, newTree, identity, message)
}

// syncWorktree resets the on-disk worktree to HEAD. Memory mode skips this:
// reads go straight to the Git tree.
func (persistence *Persistence) syncWorktree() error {
	if persistence.isMemoryMode {
		return nil
	}

	commit, err := persistence.headCommit()
	if err != nil {
		return err
	}

	tree, err := commit.Tree()
	if err != nil {
		return err
	}

	wt, err := persistence.repo.Worktree()
	if err != nil {
		return err
	}

	// A hard reset to an empty tree fails trying to remove the base dir, so
	// clear the files by hand instead
	if len(tree.Entries) == 0 {
		entries, err := wt.Filesystem.ReadDir("/")
		if err != nil {
			return nil
		}
		for _, entry := range entries {
			if entry.Name() != ".git" {
				wt.Filesystem.Remove(entry.Name())
			}
		}
		return nil
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: commit.Hash,
	})
}

// WriteFileDirect commits a single file write, creating intermediate
// directories as needed.
func (persistence *Persistence) WriteFileDirect(filePath string, data []byte, identity core.Identity, message string) (Transaction, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	blobHash, err := persistence.createBlob(data)
	if err != nil {
		return Transaction{}, err
	}

	changes := []TreeChange{{Path: filePath, BlobHash: blobHash}}
	return persistence.commitChanges(changes, identity, message)
}

// DeletePathDirect commits the removal of one or more paths. A path may name
// a single file or a whole directory.
func (persistence *Persistence) DeletePathDirect(paths []string, identity core.Identity, message string) (Transaction, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	currentTree, err := persistence.headTree()
	if err != nil {
		return Transaction{}, err
	}
	if currentTree == plumbing.ZeroHash {
		return Transaction{}, fmt.Errorf("no content exists")
	}

	changes := make([]TreeChange, 0, len(paths))
	for _, filePath := range paths {
		changes = append(changes, TreeChange{Path: filePath, IsDelete: true})
	}

	newTree, err := persistence.applyTreeChanges(currentTree, changes)
	if err != nil {
		return Transaction{}, err
	}

	return persistence.commitTree(currentTree, newTree, identity, message)
}

// ReadFileDirect reads one file's content from the HEAD tree.
func (persistence *Persistence) ReadFileDirect(filePath string) ([]byte, error) {
	if !persistence.IsInitialized() {
		return nil, ErrNotInitialized
	}

	commit, err := persistence.headCommit()
	if err != nil {
		return nil, fmt.Errorf("no commits yet")
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	file, err := tree.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}

	return []byte(content), nil
}

// ListEntriesDirect lists the names directly under dirPath in the HEAD tree.
// A missing directory and an empty repository both list as empty.
func (persistence *Persistence) ListEntriesDirect(dirPath string) ([]TreeEntry, error) {
	if !persistence.IsInitialized() {
		return nil, ErrNotInitialized
	}

	commit, err := persistence.headCommit()
	if err != nil {
		return nil, nil
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	if dirPath != "" && dirPath != "." {
		tree, err = tree.Tree(dirPath)
		if err != nil {
			return nil, nil
		}
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		entries = append(entries, TreeEntry{
			Name:  entry.Name,
			IsDir: entry.Mode == filemode.Dir,
		})
	}

	return entries, nil
}
