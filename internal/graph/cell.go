package graph

import (
	"fmt"
	"strings"
)

// Flags describe which connectors meet in a graph cell.
type Flags uint8

const (
	FlagLeft Flags = 1 << iota
	FlagRight
	FlagUpper
	FlagLower
	FlagMark
	FlagInitial

	FlagEmpty Flags = 0
)

// Cell is one rendered unit of a graph row. Color 0 means no color.
type Cell struct {
	Flags Flags `json:"flags"`
	Color uint8 `json:"color"`
}

// Row is the graph of one commit: two cells per column, glyph then spacer.
type Row []Cell

var boxDrawing = [...]rune{
	FlagEmpty:                                   ' ',
	FlagLeft:                                    ' ',
	FlagRight:                                   ' ',
	FlagLeft | FlagRight:                        '─',
	FlagUpper:                                   ' ',
	FlagLeft | FlagUpper:                        '┘',
	FlagRight | FlagUpper:                       '└',
	FlagLeft | FlagRight | FlagUpper:            '┴',
	FlagLower:                                   ' ',
	FlagLeft | FlagLower:                        '┐',
	FlagRight | FlagLower:                       '┌',
	FlagLeft | FlagRight | FlagLower:            '┬',
	FlagUpper | FlagLower:                       '│',
	FlagLeft | FlagUpper | FlagLower:            '┤',
	FlagRight | FlagUpper | FlagLower:           '├',
	FlagLeft | FlagRight | FlagUpper | FlagLower: '┼',
}

// Rune maps the flags to a box drawing character.
func (f Flags) Rune() rune {
	switch f {
	case FlagMark:
		return '•'
	case FlagMark | FlagInitial:
		return 'I'
	}
	if int(f) < len(boxDrawing) {
		return boxDrawing[f]
	}
	return '?'
}

// String renders the row with box drawing characters and no color.
func (r Row) String() string {
	var sb strings.Builder
	for _, c := range r {
		sb.WriteRune(c.Flags.Rune())
	}
	return sb.String()
}

// ansiPalette holds the SGR foreground codes used for colors 1..n, cycling
// when the renderer was configured with more colors than listed here.
var ansiPalette = []int{31, 32, 33, 34, 35, 36, 91, 92, 93, 94, 95, 96}

// Format renders the row for a terminal. Colored cells are bold.
func (r Row) Format(colorize bool) string {
	if !colorize {
		return r.String()
	}
	var sb strings.Builder
	for _, c := range r {
		if c.Color == 0 {
			sb.WriteRune(c.Flags.Rune())
			continue
		}
		code := ansiPalette[int(c.Color-1)%len(ansiPalette)]
		fmt.Fprintf(&sb, "\x1b[1;%dm%c\x1b[0m", code, c.Flags.Rune())
	}
	return sb.String()
}

// Width returns the number of columns the row spans.
func (r Row) Width() int {
	return (len(r) + 1) / 2
}
