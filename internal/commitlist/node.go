package commitlist

import (
	"bytes"
)

// nodeRef indexes Scheduler.nodes. The arena is append-only, so a nodeRef stays
// valid for the life of the Scheduler.
type nodeRef int

// graphNode is one commit of the DAG as seen so far.
type graphNode struct {
	commit *Commit
	// time is the corrected time: at least one more than every linked parent.
	time  int64
	depth int

	parents  []nodeRef
	children []nodeRef

	// expanded is set once the node's parents have been loaded and linked.
	expanded bool
}

// laneEntry is one occupied slot of the lane queue. Several entries may point
// at the same node when lanes converge.
type laneEntry struct {
	node nodeRef
	lane uint32
	seq  uint64
}

// frontierEntry is a node waiting to be expanded by the breadth-first walk.
type frontierEntry struct {
	node  nodeRef
	depth int
	seq   uint64
}

// compareLanes orders the lane heap so that its minimum is the lane to drain
// next: later corrected time first, then the greater hash. Entries of the same
// commit fall back to arrival order so the first lane to reach a commit keeps it.
func (s *Scheduler) compareLanes(a, b any) int {
	ea, eb := a.(laneEntry), b.(laneEntry)
	na, nb := &s.nodes[ea.node], &s.nodes[eb.node]

	switch {
	case na.time > nb.time:
		return -1
	case na.time < nb.time:
		return 1
	}

	if c := bytes.Compare(na.commit.Hash[:], nb.commit.Hash[:]); c != 0 {
		return -c
	}

	switch {
	case ea.seq < eb.seq:
		return -1
	case ea.seq > eb.seq:
		return 1
	}
	return 0
}

func compareFrontier(a, b any) int {
	fa, fb := a.(frontierEntry), b.(frontierEntry)
	switch {
	case fa.depth < fb.depth:
		return -1
	case fa.depth > fb.depth:
		return 1
	case fa.seq < fb.seq:
		return -1
	case fa.seq > fb.seq:
		return 1
	}
	return 0
}
