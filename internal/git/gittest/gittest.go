// Package gittest builds in-memory repositories for tests.
package gittest

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Repo is an in-memory repository whose commits are addressed by name.
type Repo struct {
	*gogit.Repository

	t       testing.TB
	tree    plumbing.Hash
	commits map[string]plumbing.Hash
}

// New returns an empty in-memory repository with HEAD pointing at
// refs/heads/master.
func New(t testing.TB) *Repo {
	t.Helper()

	repo, err := gogit.Init(memory.NewStorage(), memfs.New())
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}
	return wrap(t, repo)
}

// Init creates an empty repository with a worktree at dir.
func Init(t testing.TB, dir string) *Repo {
	t.Helper()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repository in %s: %v", dir, err)
	}
	return wrap(t, repo)
}

func wrap(t testing.TB, repo *gogit.Repository) *Repo {
	t.Helper()

	r := &Repo{
		Repository: repo,
		t:          t,
		commits:    make(map[string]plumbing.Hash),
	}

	obj := repo.Storer.NewEncodedObject()
	if err := (&object.Tree{}).Encode(obj); err != nil {
		t.Fatalf("encode tree: %v", err)
	}
	tree, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		t.Fatalf("store tree: %v", err)
	}
	r.tree = tree
	return r
}

// Commit stores a commit named name, authored at unix time when, with the
// named parents. The name is the commit summary.
func (r *Repo) Commit(name string, when int64, parents ...string) plumbing.Hash {
	r.t.Helper()

	sig := object.Signature{
		Name:  "Tester",
		Email: "tester@example.com",
		When:  time.Unix(when, 0).UTC(),
	}
	c := &object.Commit{
		Author:    sig,
		Committer: sig,
		Message:   name + "\n\nbody of " + name + "\n",
		TreeHash:  r.tree,
	}
	for _, p := range parents {
		c.ParentHashes = append(c.ParentHashes, r.Hash(p))
	}

	obj := r.Storer.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		r.t.Fatalf("encode commit %s: %v", name, err)
	}
	h, err := r.Storer.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("store commit %s: %v", name, err)
	}
	r.commits[name] = h
	return h
}

// Hash returns the id of a commit created by Commit.
func (r *Repo) Hash(name string) plumbing.Hash {
	r.t.Helper()
	h, ok := r.commits[name]
	if !ok {
		r.t.Fatalf("unknown commit %q", name)
	}
	return h
}

// Branch points refs/heads/<branch> at the named commit.
func (r *Repo) Branch(branch, commit string) {
	r.t.Helper()
	r.setRef(plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), r.Hash(commit)))
}

// RemoteBranch points refs/remotes/<remote>/<branch> at the named commit.
func (r *Repo) RemoteBranch(remote, branch, commit string) {
	r.t.Helper()
	r.setRef(plumbing.NewHashReference(plumbing.NewRemoteReferenceName(remote, branch), r.Hash(commit)))
}

// Tag creates a lightweight tag.
func (r *Repo) Tag(tag, commit string) {
	r.t.Helper()
	r.setRef(plumbing.NewHashReference(plumbing.NewTagReferenceName(tag), r.Hash(commit)))
}

// AnnotatedTag creates a tag object pointing at the named commit.
func (r *Repo) AnnotatedTag(tag, commit string) {
	r.t.Helper()
	_, err := r.CreateTag(tag, r.Hash(commit), &gogit.CreateTagOptions{
		Tagger:  &object.Signature{Name: "Tester", Email: "tester@example.com", When: time.Unix(0, 0).UTC()},
		Message: "release " + tag,
	})
	if err != nil {
		r.t.Fatalf("create tag %s: %v", tag, err)
	}
}

// Note creates a ref under refs/notes.
func (r *Repo) Note(name, commit string) {
	r.t.Helper()
	r.setRef(plumbing.NewHashReference(plumbing.ReferenceName("refs/notes/"+name), r.Hash(commit)))
}

// Checkout makes HEAD a symbolic ref to the branch.
func (r *Repo) Checkout(branch string) {
	r.t.Helper()
	r.setRef(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch)))
}

// Detach points HEAD directly at the named commit.
func (r *Repo) Detach(commit string) {
	r.t.Helper()
	r.setRef(plumbing.NewHashReference(plumbing.HEAD, r.Hash(commit)))
}

func (r *Repo) setRef(ref *plumbing.Reference) {
	r.t.Helper()
	if err := r.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("set reference %s: %v", ref.Name(), err)
	}
}
