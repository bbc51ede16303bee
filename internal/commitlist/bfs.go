package commitlist

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// Extend expands every frontier node up to requestedDepth generations from the
// heads: parents are loaded and linked, and corrected times are raised where a
// parent is not strictly older than its child.
func (s *Scheduler) Extend(ctx context.Context, requestedDepth int) error {
	for {
		v, ok := s.frontier.Peek()
		if !ok {
			break
		}
		fe := v.(frontierEntry)
		if fe.depth > requestedDepth {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.expand(ctx, fe.node); err != nil {
			return err
		}
		s.frontier.Pop()
	}

	if s.reorder {
		s.reorder = false
		s.rebuildLanes()
	}
	return nil
}

// expand links ref to its parents. On error nothing is linked and ref stays on
// the frontier; parents loaded before the failure are kept and queued.
func (s *Scheduler) expand(ctx context.Context, ref nodeRef) error {
	if s.nodes[ref].expanded {
		return nil
	}

	commit := s.nodes[ref].commit
	parents := make([]nodeRef, 0, len(commit.Parents))
	for _, ph := range commit.Parents {
		p, err := s.load(ctx, ph, s.nodes[ref].depth+1)
		if err != nil {
			return fmt.Errorf("load parent %s of %s: %w", ph, commit.Hash, err)
		}
		parents = append(parents, p)
	}

	var maxParentTime int64
	for i, p := range parents {
		s.nodes[p].children = append(s.nodes[p].children, ref)
		if i == 0 || s.nodes[p].time > maxParentTime {
			maxParentTime = s.nodes[p].time
		}
	}
	s.nodes[ref].parents = parents
	s.nodes[ref].expanded = true

	if len(parents) > 0 && maxParentTime >= s.nodes[ref].time {
		s.fixCommitTimes(ref, maxParentTime+1)
	}
	return nil
}

func (s *Scheduler) load(ctx context.Context, hash plumbing.Hash, depth int) (nodeRef, error) {
	if ref, ok := s.index[hash]; ok {
		return ref, nil
	}
	c, err := s.provider.Commit(ctx, hash)
	if err != nil {
		return 0, err
	}
	return s.addNode(c, depth), nil
}

// fixCommitTimes raises ref to time t and pushes the bump down to every child
// that is no longer strictly newer.
//
// The walk terminates: a node is only revisited with a time strictly greater
// than its current one, and along any child chain the bumped times grow by one
// per edge of an acyclic graph. Do not relax the "strictly greater" checks.
func (s *Scheduler) fixCommitTimes(ref nodeRef, t int64) {
	type bump struct {
		ref  nodeRef
		time int64
	}

	stack := []bump{{ref: ref, time: t}}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if b.time <= s.nodes[b.ref].time {
			continue
		}
		s.nodes[b.ref].time = b.time
		s.reorder = true

		for _, c := range s.nodes[b.ref].children {
			if s.nodes[c].time <= b.time {
				stack = append(stack, bump{ref: c, time: b.time + 1})
			}
		}
	}
}

// rebuildLanes restores the heap order after corrected times changed under
// queued lanes.
func (s *Scheduler) rebuildLanes() {
	if s.lanes.Size() < 2 {
		return
	}
	entries := s.lanes.Values()
	s.lanes.Clear()
	s.lanes.Push(entries...)
}
