// Package graph turns the lane bookkeeping of the commit list into rows of
// box drawing cells, one row per commit, in the style of git log --graph.
package graph

import (
	"errors"
	"fmt"

	"github.com/kurobon/gitlane/internal/commitlist"
)

const (
	DefaultMaxColors = 6
	DefaultMaxWidth  = 128
)

// ErrWidthOverflow is matched by every *WidthOverflowError.
var ErrWidthOverflow = errors.New("graph width overflow")

// WidthOverflowError is returned when a step would need more columns than the
// renderer allows. The renderer must be Reset before it is used again.
type WidthOverflowError struct {
	Limit   int
	Columns int
}

func (e *WidthOverflowError) Error() string {
	return fmt.Sprintf("graph needs %d columns, limit is %d", e.Columns, e.Limit)
}

func (e *WidthOverflowError) Is(target error) bool {
	return target == ErrWidthOverflow
}

// Renderer keeps the columns between steps. It is not safe for concurrent use.
type Renderer struct {
	columns   []Column
	colorRefs []int
	maxWidth  int

	noCollapse bool
}

// NewRenderer returns a renderer cycling through maxColors colors and
// drawing at most maxWidth columns.
func NewRenderer(maxColors, maxWidth int) *Renderer {
	if maxColors < 1 {
		maxColors = 1
	}
	if maxColors > 255 {
		maxColors = 255
	}
	if maxWidth < 1 {
		maxWidth = 1
	}
	return &Renderer{
		colorRefs: make([]int, maxColors),
		maxWidth:  maxWidth,
	}
}

// Reset drops all columns and color assignments.
func (r *Renderer) Reset() {
	r.columns = r.columns[:0]
	for i := range r.colorRefs {
		r.colorRefs[i] = 0
	}
}

// Columns returns a copy of the columns left after the last step.
func (r *Renderer) Columns() []Column {
	out := make([]Column, len(r.columns))
	copy(out, r.columns)
	return out
}

// Compute advances the renderer by one commit and returns its row.
func (r *Renderer) Compute(info commitlist.GraphInfo) (Row, error) {
	dups := make(map[uint32]struct{}, len(info.DuplicateLaneIDs))
	for _, l := range info.DuplicateLaneIDs {
		dups[l] = struct{}{}
	}

	commitIdx := r.locate(info.LaneID, dups)
	r.mark(commitIdx, info.NumParents, dups)
	r.placeParents(commitIdx, info.NewParentLaneIDs)

	if len(r.columns) > r.maxWidth {
		return nil, &WidthOverflowError{Limit: r.maxWidth, Columns: len(r.columns)}
	}

	if !r.noCollapse {
		r.collapse(commitIdx)
	}
	row := r.emit()
	r.trim()
	return row, nil
}

// locate finds the column of the commit. The leftmost column carrying the
// commit lane or one of its duplicates wins; a duplicate column is relabelled
// to the commit lane and the lane it carried becomes a duplicate in its place.
func (r *Renderer) locate(lane uint32, dups map[uint32]struct{}) int {
	for i := range r.columns {
		col := &r.columns[i]
		if col.Status == StatusEmpty {
			continue
		}
		if col.LaneID == lane {
			return i
		}
		if _, ok := dups[col.LaneID]; ok {
			delete(dups, col.LaneID)
			dups[lane] = struct{}{}
			col.LaneID = lane
			return i
		}
	}

	r.columns = append(r.columns, Column{
		LaneID: lane,
		Status: StatusNewHead,
		Color:  r.nextColor(),
	})
	return len(r.columns) - 1
}

func (r *Renderer) mark(commitIdx, numParents int, dups map[uint32]struct{}) {
	for i := range r.columns {
		col := &r.columns[i]
		switch {
		case col.Status == StatusEmpty:
		case i == commitIdx && numParents == 0:
			col.Status = StatusCommitInitial
		case i == commitIdx:
			col.Status = StatusCommit
		default:
			if _, ok := dups[col.LaneID]; ok {
				col.Status = StatusRemoved
			} else {
				col.Status = StatusOld
			}
		}
	}
}

// placeParents gives every parent lane after the first a column right of the
// commit: a column freed in this step, else a blank one, else a new one.
func (r *Renderer) placeParents(commitIdx int, lanes []uint32) {
	pos := commitIdx
	for _, lane := range lanes {
		pos++
		placed := false
		for ; pos < len(r.columns); pos++ {
			col := &r.columns[pos]
			if col.Status == StatusRemoved {
				r.releaseColor(col.Color)
				*col = Column{LaneID: lane, Status: StatusRemMerge, Color: r.nextColor()}
				placed = true
				break
			}
			if col.Status == StatusEmpty {
				*col = Column{LaneID: lane, Status: StatusMergeHead, Color: r.nextColor()}
				placed = true
				break
			}
		}
		if !placed {
			r.columns = append(r.columns, Column{
				LaneID: lane,
				Status: StatusMergeHead,
				Color:  r.nextColor(),
			})
			pos = len(r.columns) - 1
		}
	}
}

// collapse moves lanes left over runs of blank columns. A run is left alone
// when it overlaps the connectors drawn to the commit in this step, and the
// commit itself only moves when it has no connectors at all.
func (r *Renderer) collapse(commitIdx int) {
	lo, hi := commitIdx, commitIdx
	for i := commitIdx + 1; i < len(r.columns); i++ {
		if r.columns[i].Status.connects() {
			hi = i
		}
	}
	connected := hi > lo

	for j := range r.columns {
		st := r.columns[j].Status
		if st != StatusOld && st != StatusCommit {
			continue
		}
		s := j
		for s > 0 && r.columns[s-1].Status == StatusEmpty {
			s--
		}
		if s == j {
			continue
		}
		if connected && s <= hi && j >= lo {
			continue
		}

		src := r.columns[j]
		r.columns[j].Status = StatusCollapseBegin
		for k := s + 1; k < j; k++ {
			r.columns[k] = Column{LaneID: src.LaneID, Status: StatusCollapseMid, Color: src.Color}
		}
		dst := Column{LaneID: src.LaneID, Status: StatusCollapseEnd, Color: src.Color}
		if st == StatusCommit {
			dst.Status = StatusCommit
		}
		r.columns[s] = dst
	}
}

// emit draws every column and moves it to the status it keeps into the next
// step.
func (r *Renderer) emit() Row {
	row := make(Row, 0, 2*len(r.columns))
	for i := range r.columns {
		col := &r.columns[i]
		switch col.Status {
		case StatusOld:
			row = append(row, Cell{Flags: FlagUpper | FlagLower, Color: col.Color})
		case StatusCommit:
			row = append(row, Cell{Flags: FlagMark})
		case StatusCommitInitial:
			row = append(row, Cell{Flags: FlagMark | FlagInitial})
			r.releaseColor(col.Color)
			col.Status = StatusEmpty
		case StatusMergeHead:
			row = append(row, Cell{Flags: FlagLower | FlagLeft, Color: col.Color})
			row = connect(row, col.Color)
			col.Status = StatusOld
		case StatusRemMerge:
			row = append(row, Cell{Flags: FlagLower | FlagLeft | FlagUpper, Color: col.Color})
			row = connect(row, col.Color)
			col.Status = StatusOld
		case StatusRemoved:
			row = append(row, Cell{Flags: FlagUpper | FlagLeft, Color: col.Color})
			row = connect(row, col.Color)
			r.releaseColor(col.Color)
			col.Status = StatusEmpty
		case StatusCollapseBegin:
			row[len(row)-1] = Cell{Flags: FlagLeft | FlagRight, Color: col.Color}
			row = append(row, Cell{Flags: FlagUpper | FlagLeft, Color: col.Color})
			col.Status = StatusEmpty
		case StatusCollapseMid:
			row[len(row)-1] = Cell{Flags: FlagLeft | FlagRight, Color: col.Color}
			row = append(row, Cell{Flags: FlagLeft | FlagRight, Color: col.Color})
			col.Status = StatusEmpty
		case StatusCollapseEnd:
			row = append(row, Cell{Flags: FlagLower | FlagRight, Color: col.Color})
			col.Status = StatusOld
		default:
			row = append(row, Cell{})
		}
		row = append(row, Cell{})
	}
	return row
}

// connect draws a horizontal line from the cell just appended back to the
// commit mark. Vertical lines it crosses keep their shape.
func connect(row Row, color uint8) Row {
	for k := len(row) - 2; k >= 0 && row[k].Flags&FlagMark == 0; k-- {
		if row[k].Flags == FlagUpper|FlagLower {
			continue
		}
		row[k].Flags |= FlagLeft | FlagRight
		if row[k].Color == 0 {
			row[k].Color = color
		}
	}
	return row
}

func (r *Renderer) trim() {
	n := len(r.columns)
	for n > 0 && r.columns[n-1].Status == StatusEmpty {
		n--
	}
	r.columns = r.columns[:n]
}
