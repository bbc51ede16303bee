// Package commitlist produces the commits of a repository one at a time in
// temporal topological order, newest first, together with the lane bookkeeping
// the graph renderer needs.
//
// Author clocks are not trusted. Every commit reachable so far carries a
// corrected time that is strictly greater than the corrected time of all of its
// parents. Corrections are computed by a breadth-first walk that runs a fixed
// number of generations (the approximation factor) ahead of the drained commits.
package commitlist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/go-git/go-git/v5/plumbing"
)

// DefaultApproximation is the default lookahead depth of the breadth-first walk.
const DefaultApproximation = 32

// Options configures a Scheduler.
type Options struct {
	// Approximation is the number of generations the walk runs ahead of the
	// drained commits. Values below one are raised to one.
	Approximation int
	Logger        *slog.Logger
}

// Scheduler is the commit ordering engine. It is not safe for concurrent use.
type Scheduler struct {
	provider Provider
	approx   int
	logger   *slog.Logger

	nodes []graphNode
	index map[plumbing.Hash]nodeRef

	frontier *binaryheap.Heap
	lanes    *binaryheap.Heap
	seq      uint64
	nextLane uint32

	returned map[plumbing.Hash]struct{}
	// pending is the depth the walk still owes after a failed extension, or -1.
	pending int
	reorder bool
}

// New loads heads, assigns each distinct head a lane and walks the DAG
// Approximation generations deep.
func New(ctx context.Context, provider Provider, heads []plumbing.Hash, opts Options) (*Scheduler, error) {
	if opts.Approximation < 1 {
		opts.Approximation = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Scheduler{
		provider: provider,
		approx:   opts.Approximation,
		logger:   opts.Logger,
		index:    make(map[plumbing.Hash]nodeRef),
		frontier: binaryheap.NewWith(compareFrontier),
		returned: make(map[plumbing.Hash]struct{}),
		pending:  -1,
	}
	s.lanes = binaryheap.NewWith(s.compareLanes)

	if err := s.Reseed(ctx, heads); err != nil {
		return nil, err
	}
	return s, nil
}

// Reseed replaces the lanes with one lane per distinct head. Nodes loaded by
// earlier walks are kept, so reseeding a region that was already visited costs
// no provider lookups.
func (s *Scheduler) Reseed(ctx context.Context, heads []plumbing.Hash) error {
	unique := make([]plumbing.Hash, 0, len(heads))
	seen := make(map[plumbing.Hash]struct{}, len(heads))
	for _, h := range heads {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		unique = append(unique, h)
	}

	// Load unknown heads before touching any state so a provider error leaves
	// the previous lanes intact.
	loaded := make(map[plumbing.Hash]*Commit)
	for _, h := range unique {
		if _, ok := s.index[h]; ok {
			continue
		}
		c, err := s.provider.Commit(ctx, h)
		if err != nil {
			return fmt.Errorf("load head %s: %w", h, err)
		}
		loaded[h] = c
	}

	s.lanes.Clear()
	s.nextLane = 0
	s.returned = make(map[plumbing.Hash]struct{})
	s.pending = -1

	entries := make([]any, 0, len(unique))
	for _, h := range unique {
		ref, ok := s.index[h]
		if !ok {
			ref = s.addNode(loaded[h], 0)
		}
		entries = append(entries, s.newLane(ref, s.nextLane))
		s.nextLane++
	}
	if len(entries) > 0 {
		s.lanes.Push(entries...)
	}

	s.logger.Debug("commit list seeded", "heads", len(unique), "loaded", len(s.nodes))
	return s.Extend(ctx, s.approx)
}

// Empty reports whether every lane has been drained.
func (s *Scheduler) Empty() bool {
	return s.lanes.Empty()
}

// Next removes the newest commit from the lanes and returns it with the lane
// bookkeeping for its graph row.
func (s *Scheduler) Next(ctx context.Context) (*Commit, GraphInfo, error) {
	var info GraphInfo

	if s.pending >= 0 {
		if err := s.Extend(ctx, s.pending); err != nil {
			return nil, info, err
		}
		s.pending = -1
	}

	top, ok := s.peekLane()
	if !ok {
		return nil, info, ErrEmpty
	}
	// A lane may point at a node the lookahead has not reached yet (a reseeded
	// head deep in the DAG); expand it before its parents are needed.
	for !s.nodes[top.node].expanded {
		if err := s.Extend(ctx, s.nodes[top.node].depth); err != nil {
			return nil, info, err
		}
		top, _ = s.peekLane()
	}

	s.lanes.Pop()
	commit := s.nodes[top.node].commit

	if _, ok := s.returned[commit.Hash]; ok {
		s.logger.Error("commit list ordering invariant violated",
			"commit", commit.Hash.String(), "lane", top.lane)
		return nil, info, fmt.Errorf("%w: %s", ErrCommitRedelivered, commit.Hash)
	}
	s.returned[commit.Hash] = struct{}{}

	info.LaneID = top.lane

	for {
		e, ok := s.peekLane()
		if !ok || e.node != top.node {
			break
		}
		s.lanes.Pop()
		info.DuplicateLaneIDs = append(info.DuplicateLaneIDs, e.lane)
	}

	parents := s.nodes[top.node].parents
	info.NumParents = len(parents)
	if len(parents) > 0 {
		// first parent continues the branch
		s.lanes.Push(s.newLane(parents[0], top.lane))
	}
	for i := 1; i < len(parents); i++ {
		p := parents[i]
		lane := s.nextLane
		s.nextLane++
		s.lanes.Push(s.newLane(p, lane))
		info.NewParentLaneIDs = append(info.NewParentLaneIDs, lane)
	}

	depth := s.nodes[top.node].depth + s.approx
	if err := s.Extend(ctx, depth); err != nil {
		// The frontier is untouched by a failed expansion; retry on the next call.
		s.logger.Warn("commit list lookahead failed", "depth", depth, "error", err)
		s.pending = depth
	}

	return commit, info, nil
}

// Lookup returns the commit with the given id, from the loaded nodes when
// possible.
func (s *Scheduler) Lookup(ctx context.Context, hash plumbing.Hash) (*Commit, error) {
	if ref, ok := s.index[hash]; ok {
		return s.nodes[ref].commit, nil
	}
	return s.provider.Commit(ctx, hash)
}

// CorrectedTime returns the corrected time of a loaded commit.
func (s *Scheduler) CorrectedTime(hash plumbing.Hash) (int64, bool) {
	ref, ok := s.index[hash]
	if !ok {
		return 0, false
	}
	return s.nodes[ref].time, true
}

// Loaded returns the number of commits loaded so far.
func (s *Scheduler) Loaded() int {
	return len(s.nodes)
}

// Lanes returns the number of queued lanes.
func (s *Scheduler) Lanes() int {
	return s.lanes.Size()
}

func (s *Scheduler) addNode(c *Commit, depth int) nodeRef {
	ref := nodeRef(len(s.nodes))
	s.nodes = append(s.nodes, graphNode{
		commit: c,
		time:   c.Time,
		depth:  depth,
	})
	s.index[c.Hash] = ref
	s.seq++
	s.frontier.Push(frontierEntry{node: ref, depth: depth, seq: s.seq})
	return ref
}

func (s *Scheduler) newLane(ref nodeRef, lane uint32) laneEntry {
	s.seq++
	return laneEntry{node: ref, lane: lane, seq: s.seq}
}

func (s *Scheduler) peekLane() (laneEntry, bool) {
	v, ok := s.lanes.Peek()
	if !ok {
		return laneEntry{}, false
	}
	return v.(laneEntry), true
}
