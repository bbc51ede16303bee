package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/urfave/cli/v2"
)

var cmdShow = &cli.Command{
	Name:      "show",
	Usage:     "Print one commit with its corrected time",
	ArgsUsage: "<revision>",
	Flags:     graphFlags,
	Action:    runShow,
}

func runShow(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("show needs exactly one revision")
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	hash, err := s.repo.ResolveRevision(plumbing.Revision(c.Args().First()))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", c.Args().First(), err)
	}
	if _, err := s.ctrl.Load(c.Context); err != nil {
		return err
	}
	d, err := s.ctrl.Commit(c.Context, *hash)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "commit %s\n", d.ID)
	for _, p := range d.Parents {
		fmt.Fprintf(w, "parent %s\n", p)
	}
	if len(d.Refs) > 0 {
		fmt.Fprintf(w, "refs   %s\n", strings.Join(d.Refs, ", "))
	}
	fmt.Fprintf(w, "author %s\n", d.Author)
	fmt.Fprintf(w, "date   %s\n", time.Unix(d.Time, 0).UTC().Format(time.RFC3339))
	if d.CorrectedTime != d.Time {
		fmt.Fprintf(w, "sorted %s\n", time.Unix(d.CorrectedTime, 0).UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(w)
	for _, line := range strings.Split(strings.TrimRight(d.Message, "\n"), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
	return nil
}
