package ps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"

	"github.com/nickyhof/TabulaDB/core"
)

// DefaultRemoteName is used by Push, Pull and Fetch when no remote is named.
const DefaultRemoteName = "origin"

// AuthType selects how remote operations authenticate.
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeBasic AuthType = "basic"
)

// RemoteAuth carries credentials for remote operations. A nil RemoteAuth
// means anonymous access, which is all a local-path remote needs.
type RemoteAuth struct {
	Type       AuthType
	Token      string // token auth
	KeyPath    string // ssh key auth, defaults to ~/.ssh/id_rsa
	Passphrase string // ssh key passphrase
	Username   string // basic auth
	Password   string // basic auth
}

// Remote describes a configured git remote.
type Remote struct {
	Name string
	URLs []string
}

// authMethod converts the auth config into go-git's transport method.
func (auth *RemoteAuth) authMethod() (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}

	switch auth.Type {
	case "", AuthTypeNone:
		return nil, nil

	case AuthTypeToken:
		// Tokens ride basic auth; the username only has to be non-empty.
		return &http.BasicAuth{Username: "git", Password: auth.Token}, nil

	case AuthTypeSSH:
		keyPath := auth.KeyPath
		if keyPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to resolve home directory for ssh key: %w", err)
			}
			keyPath = filepath.Join(home, ".ssh", "id_rsa")
		}
		return ssh.NewPublicKeysFromFile("git", keyPath, auth.Passphrase)

	case AuthTypeBasic:
		return &http.BasicAuth{Username: auth.Username, Password: auth.Password}, nil

	default:
		return nil, fmt.Errorf("unknown auth type %s: %w", auth.Type, core.ErrValidation)
	}
}

// currentBranch resolves the short name of the branch HEAD points at.
func (persistence *Persistence) currentBranch() (string, error) {
	headRef, err := persistence.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	if !headRef.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is not on a branch")
	}

	return headRef.Name().Short(), nil
}

// resolveRemote checks that a remote exists, defaulting the name first.
func (persistence *Persistence) resolveRemote(name string) (string, error) {
	if name == "" {
		name = DefaultRemoteName
	}

	if _, err := persistence.repo.Remote(name); err != nil {
		return "", fmt.Errorf("remote %s does not exist: %w", name, core.ErrNotFound)
	}

	return name, nil
}

// AddRemote registers a named remote for the backing repository. The name
// must be unused and both arguments non-empty.
func (persistence *Persistence) AddRemote(name string, url string) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	if name == "" || url == "" {
		return fmt.Errorf("remote name and url are required: %w", core.ErrValidation)
	}
	if _, err := persistence.repo.Remote(name); err == nil {
		return fmt.Errorf("remote %s already exists: %w", name, core.ErrValidation)
	}

	_, err := persistence.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote %s: %w", name, err)
	}

	return nil
}

// ListRemotes returns the configured remotes sorted by name.
func (persistence *Persistence) ListRemotes() ([]Remote, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	remotes, err := persistence.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}

	result := make([]Remote, 0, len(remotes))
	for _, remote := range remotes {
		cfg := remote.Config()
		result = append(result, Remote{
			Name: cfg.Name,
			URLs: append([]string(nil), cfg.URLs...),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// RemoveRemote deletes a configured remote.
func (persistence *Persistence) RemoveRemote(name string) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	name, err := persistence.resolveRemote(name)
	if err != nil {
		return err
	}

	if err := persistence.repo.DeleteRemote(name); err != nil {
		return fmt.Errorf("failed to remove remote %s: %w", name, err)
	}

	return nil
}

// Push sends a branch to a remote. The remote defaults to origin and the
// branch to the one HEAD points at. An already up-to-date remote is not an
// error.
func (persistence *Persistence) Push(remoteName string, branch string, auth *RemoteAuth) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	remoteName, err := persistence.resolveRemote(remoteName)
	if err != nil {
		return err
	}

	if branch == "" {
		branch, err = persistence.currentBranch()
		if err != nil {
			return err
		}
	}

	authMethod, err := auth.authMethod()
	if err != nil {
		return err
	}

	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err = persistence.repo.Push(&git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       authMethod,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to push to %s: %w", remoteName, err)
	}

	return nil
}

// Pull fetches from a remote and merges into the current branch. The
// remote defaults to origin; an empty branch pulls the remote's default.
func (persistence *Persistence) Pull(remoteName string, branch string, auth *RemoteAuth) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	remoteName, err := persistence.resolveRemote(remoteName)
	if err != nil {
		return err
	}

	worktree, err := persistence.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to resolve worktree: %w", err)
	}

	authMethod, err := auth.authMethod()
	if err != nil {
		return err
	}

	options := &git.PullOptions{
		RemoteName: remoteName,
		Auth:       authMethod,
	}
	if branch != "" {
		options.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	err = worktree.Pull(options)
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to pull from %s: %w", remoteName, err)
	}

	return nil
}

// Fetch updates remote-tracking refs without merging.
func (persistence *Persistence) Fetch(remoteName string, auth *RemoteAuth) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	remoteName, err := persistence.resolveRemote(remoteName)
	if err != nil {
		return err
	}

	authMethod, err := auth.authMethod()
	if err != nil {
		return err
	}

	err = persistence.repo.Fetch(&git.FetchOptions{
		RemoteName: remoteName,
		Auth:       authMethod,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch from %s: %w", remoteName, err)
	}

	return nil
}
