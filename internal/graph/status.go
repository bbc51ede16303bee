package graph

// Status is the state of a graph column within one step.
type Status uint8

const (
	StatusEmpty Status = iota
	StatusOld
	StatusNewHead
	StatusRemoved
	StatusCommit
	StatusCommitInitial
	StatusMergeHead
	StatusRemMerge
	StatusCollapseBegin
	StatusCollapseMid
	StatusCollapseEnd
)

var statusNames = [...]string{
	StatusEmpty:         "empty",
	StatusOld:           "old",
	StatusNewHead:       "new-head",
	StatusRemoved:       "removed",
	StatusCommit:        "commit",
	StatusCommitInitial: "commit-initial",
	StatusMergeHead:     "merge-head",
	StatusRemMerge:      "rem-merge",
	StatusCollapseBegin: "collapse-begin",
	StatusCollapseMid:   "collapse-mid",
	StatusCollapseEnd:   "collapse-end",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// connects reports whether the column draws a horizontal connector to the
// commit of the current step.
func (s Status) connects() bool {
	return s == StatusMergeHead || s == StatusRemMerge || s == StatusRemoved
}

// Column is one lane currently drawn by the renderer.
type Column struct {
	LaneID uint32 `json:"laneId"`
	Status Status `json:"status"`
	Color  uint8  `json:"color"`
}
