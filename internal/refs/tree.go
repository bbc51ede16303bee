package refs

import (
	"sort"
	"strings"
)

// State is the check state of a node in the reference tree.
type State string

const (
	StateOn      State = "on"
	StateOff     State = "off"
	StatePartial State = "partial"
)

// Node is an entry of the reference hierarchy. Leaves carry the full name of
// their reference.
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Ref      string  `json:"ref,omitempty"`
	State    State   `json:"state"`
	Children []*Node `json:"children,omitempty"`
}

// Tree groups the references by the slash separated segments of their
// path. A node with a single child and no reference of its own is merged with
// that child, so "remotes/origin/main" shows as one entry when it is alone.
func (m *Map) Tree() []*Node {
	root := &Node{}
	for _, r := range m.refs {
		insert(root, r, strings.Split(r.Path(), "/"), "")
	}
	sort.Slice(root.Children, func(i, j int) bool { return root.Children[i].Name < root.Children[j].Name })
	for _, n := range root.Children {
		finish(n)
	}
	return root.Children
}

func insert(parent *Node, r *Ref, segments []string, prefix string) {
	path := segments[0]
	if prefix != "" {
		path = prefix + "/" + segments[0]
	}

	var child *Node
	for _, c := range parent.Children {
		if c.Name == segments[0] {
			child = c
			break
		}
	}
	if child == nil {
		child = &Node{Name: segments[0], Path: path}
		parent.Children = append(parent.Children, child)
	}

	if len(segments) == 1 {
		child.Ref = r.Name
		child.State = StateOff
		if r.Active {
			child.State = StateOn
		}
		return
	}
	insert(child, r, segments[1:], path)
}

func finish(n *Node) {
	for len(n.Children) == 1 && n.Ref == "" {
		c := n.Children[0]
		n.Name += "/" + c.Name
		n.Path = c.Path
		n.Ref = c.Ref
		n.State = c.State
		n.Children = c.Children
	}

	if len(n.Children) == 0 {
		return
	}
	sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].Name < n.Children[j].Name })

	on, off, partial := 0, 0, 0
	for _, c := range n.Children {
		finish(c)
		switch c.State {
		case StateOn:
			on++
		case StateOff:
			off++
		default:
			partial++
		}
	}
	if n.Ref != "" {
		if n.State == StateOn {
			on++
		} else {
			off++
		}
	}
	switch {
	case partial > 0:
		n.State = StatePartial
	case off == 0 && on > 0:
		n.State = StateOn
	case on == 0 && off > 0:
		n.State = StateOff
	default:
		n.State = StatePartial
	}
}
