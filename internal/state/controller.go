// Package state owns the loaded commit log of one repository and keeps the
// commit list, the graph renderer and the reference map consistent with each
// other.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/kurobon/gitlane/internal/commitlist"
	"github.com/kurobon/gitlane/internal/config"
	"github.com/kurobon/gitlane/internal/git"
	"github.com/kurobon/gitlane/internal/graph"
	"github.com/kurobon/gitlane/internal/metrics"
	"github.com/kurobon/gitlane/internal/refs"
)

// ErrNotLoaded is returned by lookups made before the first load.
var ErrNotLoaded = errors.New("log not loaded")

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	Approximation    int
	MaxColors        int
	MaxWidth         int
	MaxCommits       int
	CacheSize        int
	ProgressInterval time.Duration
	Logger           *slog.Logger
	Metrics          *metrics.Metrics
}

// OptionsFromConfig copies the log settings of cfg.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) Options {
	return Options{
		Approximation:    cfg.Approximation,
		MaxColors:        cfg.MaxColors,
		MaxWidth:         cfg.MaxWidth,
		MaxCommits:       cfg.MaxCommits,
		CacheSize:        cfg.CacheSize,
		ProgressInterval: cfg.ProgressInterval,
		Logger:           logger,
		Metrics:          m,
	}
}

// Controller serializes every use of the commit list and the renderer.
type Controller struct {
	repo     *gogit.Repository
	provider *git.Provider
	opts     Options
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	refs     *refs.Map
	sched    *commitlist.Scheduler
	renderer *graph.Renderer
	entries  []LogEntry
	status   Status
}

// NewController reads the references of repo. Nothing is drained until Load.
func NewController(repo *gogit.Repository, opts Options) (*Controller, error) {
	if opts.Approximation < 1 {
		opts.Approximation = commitlist.DefaultApproximation
	}
	if opts.MaxColors < 1 {
		opts.MaxColors = graph.DefaultMaxColors
	}
	if opts.MaxWidth < 1 {
		opts.MaxWidth = graph.DefaultMaxWidth
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	provider, err := git.NewProvider(repo, opts.CacheSize)
	if err != nil {
		return nil, err
	}
	m, err := refs.Load(repo)
	if err != nil {
		return nil, err
	}

	return &Controller{
		repo:     repo,
		provider: provider,
		opts:     opts,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		refs:     m,
		renderer: graph.NewRenderer(opts.MaxColors, opts.MaxWidth),
	}, nil
}

// Load drains the commit list from the active references and rebuilds the
// log. On error the entries drained before the failure are kept.
func (c *Controller) Load(ctx context.Context) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// RefreshRefs re-reads the references of the repository and reloads.
// References switched off before stay off.
func (c *Controller) RefreshRefs(ctx context.Context) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh, err := refs.Load(c.repo)
	if err != nil {
		return c.status, err
	}
	for _, r := range c.refs.Refs() {
		if r.Active {
			continue
		}
		if _, ok := fresh.Get(r.Name); ok {
			_ = fresh.SetActive(r.Name, false)
		}
	}
	c.refs = fresh
	return c.load(ctx)
}

// SetRefActive switches one reference and reloads.
func (c *Controller) SetRefActive(ctx context.Context, name string, active bool) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refs.SetActive(name, active); err != nil {
		return c.status, err
	}
	return c.load(ctx)
}

// SetPrefixActive switches every reference under prefix and reloads.
func (c *Controller) SetPrefixActive(ctx context.Context, prefix string, active bool) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.refs.SetActivePrefix(prefix, active); err != nil {
		return c.status, err
	}
	return c.load(ctx)
}

// Hide switches references off without reloading. Each name is a reference
// or a hierarchy prefix such as "remotes/origin".
func (c *Controller) Hide(names ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range names {
		err := c.refs.SetActive(name, false)
		if err == nil {
			continue
		}
		if !errors.Is(err, refs.ErrUnknownRef) {
			return err
		}
		if _, perr := c.refs.SetActivePrefix(name, false); perr != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) load(ctx context.Context) (Status, error) {
	start := time.Now()
	heads := c.refs.ActiveHeads()

	// The renderer starts over with every reseed of the commit list.
	c.renderer.Reset()
	c.entries = c.entries[:0]
	c.status = Status{Heads: len(heads)}

	var err error
	if c.sched == nil {
		c.sched, err = commitlist.New(ctx, c.provider, heads, commitlist.Options{
			Approximation: c.opts.Approximation,
			Logger:        c.logger,
		})
	} else {
		err = c.sched.Reseed(ctx, heads)
	}
	if err == nil {
		err = c.drain(ctx)
	}

	c.status.Total = len(c.entries)
	if c.sched != nil {
		c.status.Loaded = c.sched.Loaded()
	}
	c.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	c.metrics.LogEntries.Set(float64(len(c.entries)))

	switch {
	case err == nil && c.status.Truncated:
		c.metrics.Reloads.WithLabelValues("truncated").Inc()
	case err == nil:
		c.status.Complete = true
		c.metrics.Reloads.WithLabelValues("ok").Inc()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.status.Error = err.Error()
		c.metrics.Reloads.WithLabelValues("canceled").Inc()
	default:
		c.status.Error = err.Error()
		c.metrics.Reloads.WithLabelValues("error").Inc()
	}

	if err != nil {
		c.logger.Warn("log load stopped", "commits", len(c.entries), "error", err)
		return c.status, err
	}
	c.logger.Info("log loaded",
		"commits", len(c.entries),
		"heads", len(heads),
		"truncated", c.status.Truncated,
		"duration", time.Since(start).Round(time.Millisecond))
	return c.status, nil
}

func (c *Controller) drain(ctx context.Context) error {
	lastProgress := time.Now()
	for !c.sched.Empty() {
		if c.opts.MaxCommits > 0 && len(c.entries) >= c.opts.MaxCommits {
			c.status.Truncated = true
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		commit, info, err := c.sched.Next(ctx)
		if err != nil {
			if errors.Is(err, commitlist.ErrCommitRedelivered) {
				c.metrics.RedeliveryFaults.Inc()
			}
			return fmt.Errorf("next commit: %w", err)
		}

		row, err := c.renderer.Compute(info)
		if err != nil {
			if errors.Is(err, graph.ErrWidthOverflow) {
				c.metrics.WidthOverflows.Inc()
			}
			return fmt.Errorf("render %s: %w", commit.Hash, err)
		}

		c.entries = append(c.entries, LogEntry{
			Hash:    commit.Hash,
			ID:      commit.Hash.String(),
			Graph:   row,
			Text:    row.String(),
			Refs:    c.refs.Labels(commit.Hash),
			Summary: commit.Summary,
			Author:  commit.Author,
			Time:    commit.Time,
		})
		c.metrics.CommitsDrained.Inc()
		c.metrics.GraphWidth.Observe(float64(row.Width()))

		if now := time.Now(); now.Sub(lastProgress) >= c.opts.ProgressInterval {
			c.logger.Info("loading commits", "count", len(c.entries), "loaded", c.sched.Loaded())
			lastProgress = now
		}
	}
	return nil
}

// Entries returns up to limit entries starting at offset; a limit below one
// returns everything after offset.
func (c *Controller) Entries(offset, limit int) ([]LogEntry, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if offset < 0 {
		offset = 0
	}
	if offset > len(c.entries) {
		offset = len(c.entries)
	}
	end := len(c.entries)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]LogEntry, end-offset)
	copy(out, c.entries[offset:end])
	return out, c.status
}

// Status returns the outcome of the last load.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Commit returns the details of one commit.
func (c *Controller) Commit(ctx context.Context, hash plumbing.Hash) (CommitDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sched == nil {
		return CommitDetail{}, ErrNotLoaded
	}
	commit, err := c.sched.Lookup(ctx, hash)
	if err != nil {
		return CommitDetail{}, err
	}
	corrected, ok := c.sched.CorrectedTime(hash)
	if !ok {
		corrected = commit.Time
	}

	parents := make([]string, len(commit.Parents))
	for i, p := range commit.Parents {
		parents[i] = p.String()
	}
	return CommitDetail{
		ID:            commit.Hash.String(),
		Parents:       parents,
		Author:        commit.Author,
		Summary:       commit.Summary,
		Message:       commit.Message,
		Time:          commit.Time,
		CorrectedTime: corrected,
		Refs:          c.refs.Labels(hash),
	}, nil
}

// Refs returns the references in name order.
func (c *Controller) Refs() []refs.Ref {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs.Refs()
}

// RefTree returns the reference hierarchy.
func (c *Controller) RefTree() []*refs.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs.Tree()
}

// Metrics returns the collectors the controller reports to.
func (c *Controller) Metrics() *metrics.Metrics {
	return c.metrics
}
