// Package refs tracks the references of a repository and which of them seed
// the commit list.
package refs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrUnknownRef is returned when a name matches no reference.
var ErrUnknownRef = errors.New("unknown reference")

// Kind classifies a reference by namespace.
type Kind uint8

const (
	KindOther Kind = iota
	KindHead
	KindBranch
	KindRemote
	KindTag
)

func (k Kind) String() string {
	switch k {
	case KindHead:
		return "head"
	case KindBranch:
		return "branch"
	case KindRemote:
		return "remote"
	case KindTag:
		return "tag"
	default:
		return "other"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "head":
		*k = KindHead
	case "branch":
		*k = KindBranch
	case "remote":
		*k = KindRemote
	case "tag":
		*k = KindTag
	case "other":
		*k = KindOther
	default:
		return fmt.Errorf("unknown ref kind %q", text)
	}
	return nil
}

// Ref is a reference resolved to the commit it names.
type Ref struct {
	Name   string        `json:"name"`
	Short  string        `json:"short"`
	Kind   Kind          `json:"kind"`
	Hash   plumbing.Hash `json:"-"`
	Target string        `json:"target"`
	Active bool          `json:"active"`
}

// Path is the position of the ref in the name hierarchy.
func (r *Ref) Path() string {
	return strings.TrimPrefix(r.Name, "refs/")
}

// Map holds the references ordered by name, every one active after loading.
type Map struct {
	refs   []*Ref
	byName map[string]*Ref
	byHash map[plumbing.Hash][]*Ref
}

// New builds a map from refs. Names must be unique.
func New(refs []Ref) *Map {
	m := &Map{
		refs:   make([]*Ref, 0, len(refs)),
		byName: make(map[string]*Ref, len(refs)),
		byHash: make(map[plumbing.Hash][]*Ref),
	}
	for i := range refs {
		r := refs[i]
		if r.Target == "" {
			r.Target = r.Hash.String()
		}
		m.refs = append(m.refs, &r)
	}
	sort.Slice(m.refs, func(i, j int) bool { return m.refs[i].Name < m.refs[j].Name })
	for _, r := range m.refs {
		m.byName[r.Name] = r
		m.byHash[r.Hash] = append(m.byHash[r.Hash], r)
	}
	return m
}

// Load reads every reference of repo except notes. HEAD is included only when
// detached. Other symbolic references are resolved and tags are peeled to
// commits; tags of other objects and unborn branches are skipped.
func Load(repo *gogit.Repository) (*Map, error) {
	iter, err := repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer iter.Close()

	var refs []Ref
	err = iter.ForEach(func(r *plumbing.Reference) error {
		name := r.Name()
		if name.IsNote() {
			return nil
		}

		hash := r.Hash()
		if r.Type() == plumbing.SymbolicReference {
			if name == plumbing.HEAD {
				// an attached HEAD is shown through its branch
				return nil
			}
			resolved, err := repo.Reference(name, true)
			if errors.Is(err, plumbing.ErrReferenceNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("resolve %s: %w", name, err)
			}
			hash = resolved.Hash()
		}

		kind := kindOf(name)
		if kind == KindTag {
			peeled, ok := peel(repo, hash)
			if !ok {
				return nil
			}
			hash = peeled
		}

		refs = append(refs, Ref{
			Name:   name.String(),
			Short:  name.Short(),
			Kind:   kind,
			Hash:   hash,
			Active: true,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return New(refs), nil
}

func kindOf(name plumbing.ReferenceName) Kind {
	switch {
	case name == plumbing.HEAD:
		return KindHead
	case name.IsBranch():
		return KindBranch
	case name.IsRemote():
		return KindRemote
	case name.IsTag():
		return KindTag
	default:
		return KindOther
	}
}

// peel follows tag objects until it reaches a commit.
func peel(repo *gogit.Repository, hash plumbing.Hash) (plumbing.Hash, bool) {
	for depth := 0; depth < 16; depth++ {
		tag, err := repo.TagObject(hash)
		if err != nil {
			break
		}
		hash = tag.Target
	}
	if _, err := repo.CommitObject(hash); err != nil {
		return plumbing.ZeroHash, false
	}
	return hash, true
}

// Len returns the number of references.
func (m *Map) Len() int {
	return len(m.refs)
}

// Refs returns a copy of the references in name order.
func (m *Map) Refs() []Ref {
	out := make([]Ref, len(m.refs))
	for i, r := range m.refs {
		out[i] = *r
	}
	return out
}

// Get looks a reference up by full name.
func (m *Map) Get(name string) (Ref, bool) {
	r, ok := m.byName[name]
	if !ok {
		return Ref{}, false
	}
	return *r, true
}

// SetActive activates or deactivates one reference, named in full or by an
// unambiguous short name.
func (m *Map) SetActive(name string, active bool) error {
	r, err := m.find(name)
	if err != nil {
		return err
	}
	r.Active = active
	return nil
}

func (m *Map) find(name string) (*Ref, error) {
	if r, ok := m.byName[name]; ok {
		return r, nil
	}
	var match *Ref
	for _, r := range m.refs {
		if r.Short != name {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: %q is ambiguous", ErrUnknownRef, name)
		}
		match = r
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRef, name)
	}
	return match, nil
}

// SetActivePrefix sets the flag of every reference at or below prefix in the
// name hierarchy ("remotes/origin", "tags", ...). It returns the number of
// references matched.
func (m *Map) SetActivePrefix(prefix string, active bool) (int, error) {
	prefix = strings.Trim(strings.TrimPrefix(prefix, "refs/"), "/")
	n := 0
	for _, r := range m.refs {
		p := r.Path()
		if prefix == "" || p == prefix || strings.HasPrefix(p, prefix+"/") {
			r.Active = active
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no reference under %q", ErrUnknownRef, prefix)
	}
	return n, nil
}

// ActiveHeads returns the commits named by active references in name order,
// without repeats.
func (m *Map) ActiveHeads() []plumbing.Hash {
	seen := make(map[plumbing.Hash]struct{})
	var heads []plumbing.Hash
	for _, r := range m.refs {
		if !r.Active {
			continue
		}
		if _, ok := seen[r.Hash]; ok {
			continue
		}
		seen[r.Hash] = struct{}{}
		heads = append(heads, r.Hash)
	}
	return heads
}

// Labels returns the short names of the active references pointing at hash.
func (m *Map) Labels(hash plumbing.Hash) []string {
	var out []string
	for _, r := range m.byHash[hash] {
		if r.Active {
			out = append(out, r.Short)
		}
	}
	return out
}
