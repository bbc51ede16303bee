package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurobon/gitlane/internal/git"
	"github.com/kurobon/gitlane/internal/git/gittest"
)

func TestShouldIgnoreEvent(t *testing.T) {
	gitDir := filepath.FromSlash("/repo/.git")
	tests := []struct {
		path   string
		op     fsnotify.Op
		ignore bool
	}{
		{"HEAD", fsnotify.Write, false},
		{"packed-refs", fsnotify.Create, false},
		{"refs/heads/main", fsnotify.Write, false},
		{"refs/remotes/origin/HEAD", fsnotify.Write, false},
		{"refs/tags/v1", fsnotify.Remove, false},
		{"refs/heads/main.lock", fsnotify.Create, true},
		{"refs/heads/main", fsnotify.Chmod, true},
		{"logs/HEAD", fsnotify.Write, true},
		{"config", fsnotify.Write, true},
		{"index", fsnotify.Write, true},
		{"ORIG_HEAD", fsnotify.Write, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			ev := fsnotify.Event{Name: filepath.Join(gitDir, filepath.FromSlash(tt.path)), Op: tt.op}
			assert.Equal(t, tt.ignore, shouldIgnoreEvent(gitDir, ev))
		})
	}
}

func TestWatchReloadsOnRefChange(t *testing.T) {
	repo := gittest.Init(t, t.TempDir())
	repo.Commit("a", 100)
	repo.Branch("master", "a")

	srv, _ := newTestServer(t, repo)
	require.Equal(t, 1, srv.Controller.Status().Total)

	gitDir := git.GitDir(repo.Repository)
	require.NotEmpty(t, gitDir)

	watcher, err := srv.newRefWatcher(gitDir)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.watchLoop(ctx, watcher, gitDir, 20*time.Millisecond)

	repo.Commit("b", 200, "a")
	repo.Branch("master", "b")

	assert.Eventually(t, func() bool {
		return srv.Controller.Status().Total == 2
	}, 5*time.Second, 20*time.Millisecond)
}
