package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/kurobon/gitlane/internal/state"
)

var cmdLog = &cli.Command{
	Name:  "log",
	Usage: "Print the commit log with its graph",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "color",
			Value: "auto",
			Usage: "auto, always or never",
		},
	}, graphFlags...),
	Action: runLog,
}

func runLog(c *cli.Context) error {
	colorize, width, err := terminalOptions(c.App.Writer, c.String("color"))
	if err != nil {
		return err
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	// a failed load still leaves the commits before the failure
	_, loadErr := s.ctrl.Load(c.Context)

	entries, status := s.ctrl.Entries(0, 0)
	for _, e := range entries {
		fmt.Fprintln(c.App.Writer, formatEntry(e, colorize, width))
	}
	if status.Truncated {
		fmt.Fprintf(errWriter(c), "log cut short after %d commits\n", status.Total)
	}
	return loadErr
}

// terminalOptions decides whether to color and how wide lines may be. Width 0
// means unlimited.
func terminalOptions(w io.Writer, mode string) (bool, int, error) {
	fd := -1
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}

	var colorize bool
	switch mode {
	case "auto":
		colorize = fd >= 0
	case "always":
		colorize = true
	case "never":
		colorize = false
	default:
		return false, 0, fmt.Errorf("invalid color mode %q", mode)
	}

	width := 0
	if fd >= 0 {
		if cols, _, err := term.GetSize(fd); err == nil {
			width = cols
		}
	}
	return colorize, width, nil
}

const (
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[1;36m"
	ansiReset  = "\x1b[0m"
)

func formatEntry(e state.LogEntry, colorize bool, width int) string {
	hash := e.ID
	if len(hash) > 7 {
		hash = hash[:7]
	}

	var rest strings.Builder
	rest.WriteString(hash)
	if len(e.Refs) > 0 {
		rest.WriteString(" (" + strings.Join(e.Refs, ", ") + ")")
	}
	rest.WriteString(" " + e.Summary)

	text := []rune(rest.String())
	graphWidth := len([]rune(e.Text))
	if width > 0 && graphWidth+len(text) > width {
		text = text[:max(0, width-graphWidth)]
	}
	if !colorize {
		return e.Text + string(text)
	}

	// hash and labels are ASCII-prefixed, so rune offsets match the parts
	line := string(text)
	var sb strings.Builder
	sb.WriteString(e.Graph.Format(true))
	n := min(len(hash), len(line))
	sb.WriteString(ansiYellow + line[:n] + ansiReset)
	line = line[n:]
	if len(e.Refs) > 0 && strings.HasPrefix(line, " (") {
		end := strings.IndexByte(line, ')')
		if end < 0 {
			end = len(line) - 1
		}
		sb.WriteString(" " + ansiCyan + line[1:end+1] + ansiReset)
		line = line[end+1:]
	}
	sb.WriteString(line)
	return sb.String()
}
