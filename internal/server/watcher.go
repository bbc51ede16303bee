package server

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the log whenever a reference under gitDir changes, after
// changes have been quiet for debounce. It blocks until ctx is done.
func (s *Server) Watch(ctx context.Context, gitDir string, debounce time.Duration) error {
	watcher, err := s.newRefWatcher(gitDir)
	if err != nil {
		return err
	}
	s.watchLoop(ctx, watcher, gitDir, debounce)
	return nil
}

// newRefWatcher watches gitDir and every directory below refs/. fsnotify is
// not recursive.
func (s *Server) newRefWatcher(gitDir string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(gitDir); err != nil {
		watcher.Close()
		return nil, err
	}
	if err := addTree(watcher, filepath.Join(gitDir, "refs")); err != nil {
		watcher.Close()
		return nil, err
	}
	s.logger.Info("watching repository for reference changes", "dir", gitDir)
	return watcher, nil
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, gitDir string, debounce time.Duration) {
	defer watcher.Close()

	var debounceTimer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 && isRefsPath(gitDir, event.Name) {
				// new namespace directories, e.g. refs/heads/feature/
				_ = addTree(watcher, event.Name)
			}
			if shouldIgnoreEvent(gitDir, event) {
				continue
			}

			s.Controller.Metrics().WatchEvents.Inc()
			s.logger.Debug("reference change detected", "path", event.Name, "op", event.Op.String())

			if debounceTimer == nil {
				debounceTimer = time.AfterFunc(debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				debounceTimer.Reset(debounce)
			}

		case <-fire:
			s.refresh(ctx, "watch")

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

func relPath(gitDir, path string) string {
	rel, err := filepath.Rel(gitDir, path)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}

func isRefsPath(gitDir, path string) bool {
	rel := relPath(gitDir, path)
	return rel == "refs" || strings.HasPrefix(rel, "refs/")
}

// shouldIgnoreEvent keeps changes to HEAD, packed-refs and loose refs.
func shouldIgnoreEvent(gitDir string, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return true
	}
	if strings.HasSuffix(event.Name, ".lock") {
		return true
	}
	switch rel := relPath(gitDir, event.Name); rel {
	case "HEAD", "packed-refs":
		return false
	default:
		return !strings.HasPrefix(rel, "refs/")
	}
}
