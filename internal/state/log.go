package state

import (
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/kurobon/gitlane/internal/graph"
)

// LogEntry is one line of the commit log.
type LogEntry struct {
	Hash    plumbing.Hash `json:"-"`
	ID      string        `json:"hash"`
	Graph   graph.Row     `json:"graph"`
	Text    string        `json:"text"`
	Refs    []string      `json:"refs"`
	Summary string        `json:"summary"`
	Author  string        `json:"author"`
	Time    int64         `json:"time"`
}

// Status describes the last load.
type Status struct {
	Total    int  `json:"total"`
	Complete bool `json:"complete"`
	// Truncated is set when the load stopped at the commit limit.
	Truncated bool `json:"truncated,omitempty"`
	// Error is why the last load stopped early, if it did.
	Error  string `json:"error,omitempty"`
	Loaded int    `json:"loaded"`
	Heads  int    `json:"heads"`
}

// CommitDetail is a commit with the data the log leaves out.
type CommitDetail struct {
	ID            string   `json:"hash"`
	Parents       []string `json:"parents"`
	Author        string   `json:"author"`
	Summary       string   `json:"summary"`
	Message       string   `json:"message"`
	Time          int64    `json:"time"`
	CorrectedTime int64    `json:"correctedTime"`
	Refs          []string `json:"refs"`
}
