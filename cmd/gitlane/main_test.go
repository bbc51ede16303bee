package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurobon/gitlane/internal/git/gittest"
	"github.com/kurobon/gitlane/internal/graph"
	"github.com/kurobon/gitlane/internal/state"
)

// mergeRepo creates on disk:
//
//	m     master (HEAD)
//	|\
//	c f   feature
//	|/
//	b
//	a
func mergeRepo(t *testing.T) (string, *gittest.Repo) {
	dir := t.TempDir()
	repo := gittest.Init(t, dir)
	repo.Commit("a", 100)
	repo.Commit("b", 200, "a")
	repo.Commit("f", 250, "b")
	repo.Commit("c", 300, "b")
	repo.Commit("m", 400, "c", "f")
	repo.Branch("master", "m")
	repo.Branch("feature", "f")
	return dir, repo
}

type runResult struct {
	Stdout string
	Stderr string
}

func runApp(t *testing.T, args ...string) (runResult, error) {
	t.Helper()
	t.Setenv("GITLANE_LOG_LEVEL", "")
	t.Setenv("GITLANE_CONFIG", "")

	var out, errOut strings.Builder
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.RunContext(context.Background(), append([]string{"gitlane"}, args...))
	return runResult{out.String(), errOut.String()}, err
}

func short(repo *gittest.Repo, name string) string {
	return repo.Hash(name).String()[:7]
}

func TestLogCommand(t *testing.T) {
	dir, repo := mergeRepo(t)

	res, err := runApp(t, "--repo", dir, "log", "--color", "never")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"•─┐ " + short(repo, "m") + " (master) m",
		"• │ " + short(repo, "c") + " c",
		"│ • " + short(repo, "f") + " (feature) f",
		"•─┘ " + short(repo, "b") + " b",
		"I " + short(repo, "a") + " a",
	}, strings.Split(strings.TrimRight(res.Stdout, "\n"), "\n"))
	assert.Empty(t, res.Stderr)
}

func TestLogCommandOptions(t *testing.T) {
	dir, repo := mergeRepo(t)

	t.Run("Hide", func(t *testing.T) {
		res, err := runApp(t, "-C", dir, "log", "--color", "never", "--hide", "heads")
		require.NoError(t, err)
		assert.Empty(t, res.Stdout)
	})

	t.Run("MaxCommits", func(t *testing.T) {
		res, err := runApp(t, "-C", dir, "log", "--color", "never", "-n", "2")
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(res.Stdout, "\n"))
		assert.Contains(t, res.Stderr, "cut short after 2 commits")
	})

	t.Run("WidthOverflow", func(t *testing.T) {
		res, err := runApp(t, "-C", dir, "log", "--color", "never", "--max-width", "1")
		assert.ErrorIs(t, err, graph.ErrWidthOverflow)
		assert.NotContains(t, res.Stdout, short(repo, "m"))
	})

	t.Run("BadColor", func(t *testing.T) {
		_, err := runApp(t, "-C", dir, "log", "--color", "sometimes")
		assert.ErrorContains(t, err, "invalid color mode")
	})

	t.Run("Colors", func(t *testing.T) {
		res, err := runApp(t, "-C", dir, "log", "--color", "always")
		require.NoError(t, err)
		first := strings.SplitN(res.Stdout, "\n", 2)[0]
		// commit marks stay plain; the merge connector takes the new lane's color
		assert.True(t, strings.HasPrefix(first, "•\x1b[1;32m─\x1b[0m\x1b[1;32m┐\x1b[0m "), "%q", first)
		assert.Contains(t, first, ansiYellow+short(repo, "m")+ansiReset)
		assert.Contains(t, first, ansiCyan+"(master)"+ansiReset)
		assert.NotContains(t, res.Stdout, "m•")
	})

	t.Run("ConfigFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gitlane.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max_commits: 1\n"), 0o644))
		res, err := runApp(t, "-C", dir, "--config", path, "log", "--color", "never")
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(res.Stdout, "\n"))
	})
}

func TestShowCommand(t *testing.T) {
	dir, repo := mergeRepo(t)

	res, err := runApp(t, "-C", dir, "show", "master")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "commit "+repo.Hash("m").String()+"\n")
	assert.Contains(t, res.Stdout, "parent "+repo.Hash("c").String()+"\n")
	assert.Contains(t, res.Stdout, "parent "+repo.Hash("f").String()+"\n")
	assert.Contains(t, res.Stdout, "refs   master\n")
	assert.Contains(t, res.Stdout, "    body of m\n")

	_, err = runApp(t, "-C", dir, "show")
	assert.Error(t, err)
	_, err = runApp(t, "-C", dir, "show", "nope")
	assert.Error(t, err)
}

func TestRefsCommand(t *testing.T) {
	dir, _ := mergeRepo(t)

	res, err := runApp(t, "-C", dir, "refs", "--hide", "feature")
	require.NoError(t, err)
	assert.Equal(t, "[-] heads\n    [ ] feature\n    [x] master\n", res.Stdout)
}

func TestFormatEntryTruncates(t *testing.T) {
	e := state.LogEntry{
		ID:      strings.Repeat("a", 40),
		Text:    "• ",
		Refs:    []string{"main"},
		Summary: "a long summary line",
	}
	assert.Equal(t, "• aaaaaaa (main) a long summary line", formatEntry(e, false, 0))
	assert.Equal(t, "• aaaaaaa (ma", formatEntry(e, false, 13))
	assert.Equal(t, "• ", formatEntry(e, false, 1))
}
