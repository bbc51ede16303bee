package commitlist

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5/plumbing"
)

var (
	// ErrCommitRedelivered is returned by Next when a commit would be handed out a
	// second time within one drain. It means the time correction or the parent
	// linking is broken and must be treated as a defect, never retried.
	ErrCommitRedelivered = errors.New("commit returned twice")

	// ErrEmpty is returned by Next when no lanes are left.
	ErrEmpty = errors.New("commit list is empty")
)

// Commit is the immutable view of a commit the list works with.
type Commit struct {
	Hash    plumbing.Hash
	Time    int64 // author time, seconds
	Parents []plumbing.Hash
	Author  string
	Summary string
	Message string
}

// Provider fetches commits by id. Lookups of the same id must be idempotent.
type Provider interface {
	Commit(ctx context.Context, hash plumbing.Hash) (*Commit, error)
}

// GraphInfo describes the lane bookkeeping of one drained commit. It is the only
// thing the graph renderer needs to draw the commit's row.
type GraphInfo struct {
	// LaneID is the lane the commit was drained from.
	LaneID uint32 `json:"laneId"`
	// NumParents is the parent count of the commit.
	NumParents int `json:"numParents"`
	// DuplicateLaneIDs are the other lanes that converged on this commit.
	// Each id appears at most once.
	DuplicateLaneIDs []uint32 `json:"duplicateLaneIds,omitempty"`
	// NewParentLaneIDs are the lanes minted for parents beyond the first, in
	// parent order.
	NewParentLaneIDs []uint32 `json:"newParentLaneIds,omitempty"`
}

// IsDuplicate reports whether lane converged on this commit.
func (g GraphInfo) IsDuplicate(lane uint32) bool {
	for _, id := range g.DuplicateLaneIDs {
		if id == lane {
			return true
		}
	}
	return false
}
