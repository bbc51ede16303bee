package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kurobon/gitlane/internal/commitlist"
)

// DefaultCacheSize is the number of decoded commits kept by a Provider.
const DefaultCacheSize = 4096

// ErrCommitNotFound is returned when the repository has no commit with the
// requested id.
var ErrCommitNotFound = errors.New("commit not found")

// Provider serves commits from a go-git repository.
type Provider struct {
	repo  *gogit.Repository
	cache *lru.Cache[plumbing.Hash, *commitlist.Commit]
}

var _ commitlist.Provider = (*Provider)(nil)

// NewProvider wraps repo. cacheSize below one selects DefaultCacheSize.
func NewProvider(repo *gogit.Repository, cacheSize int) (*Provider, error) {
	if cacheSize < 1 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[plumbing.Hash, *commitlist.Commit](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create commit cache: %w", err)
	}
	return &Provider{repo: repo, cache: cache}, nil
}

// Commit returns the commit with the given id.
func (p *Provider) Commit(ctx context.Context, hash plumbing.Hash) (*commitlist.Commit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c, ok := p.cache.Get(hash); ok {
		return c, nil
	}

	obj, err := p.repo.CommitObject(hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, hash)
		}
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}

	c := FromObject(obj)
	p.cache.Add(hash, c)
	return c, nil
}

// Purge drops every cached commit.
func (p *Provider) Purge() {
	p.cache.Purge()
}

// Cached returns the number of commits held in the cache.
func (p *Provider) Cached() int {
	return p.cache.Len()
}

// Repository returns the underlying repository.
func (p *Provider) Repository() *gogit.Repository {
	return p.repo
}

// FromObject converts a go-git commit. The time is the author time.
func FromObject(obj *object.Commit) *commitlist.Commit {
	parents := make([]plumbing.Hash, len(obj.ParentHashes))
	copy(parents, obj.ParentHashes)

	return &commitlist.Commit{
		Hash:    obj.Hash,
		Time:    obj.Author.When.Unix(),
		Parents: parents,
		Author:  obj.Author.Name,
		Summary: Summary(obj.Message),
		Message: obj.Message,
	}
}

// Summary returns the first line of a commit message.
func Summary(message string) string {
	message = strings.TrimLeft(message, "\n")
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		message = message[:i]
	}
	return strings.TrimRight(message, "\r ")
}
