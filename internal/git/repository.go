// Package git adapts go-git repositories to the commit list.
package git

import (
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// Open opens the repository containing path, searching parent directories
// for the .git directory.
func Open(path string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	return repo, nil
}

// GitDir returns the directory holding the repository's refs, or "" when the
// repository is not backed by a filesystem.
func GitDir(repo *gogit.Repository) string {
	if s, ok := repo.Storer.(*filesystem.Storage); ok {
		return s.Filesystem().Root()
	}
	return ""
}
