package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/kurobon/gitlane/internal/refs"
)

var cmdRefs = &cli.Command{
	Name:  "refs",
	Usage: "Print the reference hierarchy and which references are shown",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "hide",
			Usage: "Leave out a reference, or every reference under a prefix",
		},
	},
	Action: runRefs,
}

func runRefs(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	printTree(c.App.Writer, s.ctrl.RefTree(), 0)
	return nil
}

var stateMarks = map[refs.State]string{
	refs.StateOn:      "[x]",
	refs.StateOff:     "[ ]",
	refs.StatePartial: "[-]",
}

func printTree(w io.Writer, nodes []*refs.Node, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("    ", depth), stateMarks[n.State], n.Name)
		printTree(w, n.Children, depth+1)
	}
}
