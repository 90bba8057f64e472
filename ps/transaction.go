package ps

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Transaction identifies one committed change to the store. Id is the commit
// hash, which also serves as the version stamp caches key on.
type Transaction struct {
	Id     string
	When   time.Time
	Author string // "Name <email>" format
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("%s at %s by %s", shortId(transaction.Id), transaction.When.Format(time.RFC3339), transaction.Author)
}

// HeadVersion returns the current HEAD commit hash, or an empty string when
// the repository has no commits. Every committed change moves HEAD, so the
// hash doubles as a cheap version stamp for caches built over the store.
func (persistence *Persistence) HeadVersion() string {
	headRef, err := persistence.repo.Head()
	if err != nil || headRef == nil {
		return ""
	}

	return headRef.Hash().String()
}

// LatestTransaction returns the transaction HEAD points at, or the zero
// Transaction when nothing has been committed yet.
func (persistence *Persistence) LatestTransaction() Transaction {
	commit, err := persistence.headCommit()
	if err != nil {
		return Transaction{}
	}

	return transactionFromCommit(commit)
}

// TransactionsSince lists transactions committed after asof, newest first.
// The zero time lists the full history.
func (persistence *Persistence) TransactionsSince(asof time.Time) []Transaction {
	logIter, err := persistence.repo.Log(&git.LogOptions{Since: &asof})
	if err != nil {
		return nil
	}

	var transactions []Transaction
	logIter.ForEach(func(commit *object.Commit) error {
		transactions = append(transactions, transactionFromCommit(commit))
		return nil
	})

	return transactions
}

func transactionFromCommit(commit *object.Commit) Transaction {
	author := ""
	if commit.Author.Name != "" || commit.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", commit.Author.Name, commit.Author.Email)
	}

	return Transaction{
		Id:     commit.Hash.String(),
		When:   commit.Committer.When,
		Author: author,
	}
}
