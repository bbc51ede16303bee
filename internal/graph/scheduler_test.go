package graph

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurobon/gitlane/internal/commitlist"
)

type mapProvider map[plumbing.Hash]*commitlist.Commit

func (m mapProvider) Commit(_ context.Context, h plumbing.Hash) (*commitlist.Commit, error) {
	c, ok := m[h]
	if !ok {
		return nil, fmt.Errorf("commit %s not found", h)
	}
	return c, nil
}

// randomHistory builds n commits whose parents are always older commits, with
// unreliable timestamps. It returns the provider and the commits without
// children.
func randomHistory(seed int64, n int) (mapProvider, []plumbing.Hash) {
	rng := rand.New(rand.NewSource(seed))
	p := make(mapProvider, n)
	hashes := make([]plumbing.Hash, n)
	hasChild := make([]bool, n)

	for i := 0; i < n; i++ {
		hashes[i] = plumbing.ComputeHash(plumbing.CommitObject, []byte(fmt.Sprintf("%d/%d", seed, i)))
		c := &commitlist.Commit{
			Hash:    hashes[i],
			Time:    int64(i*10) + rng.Int63n(40) - 20,
			Summary: fmt.Sprintf("c%d", i),
		}
		if i > 0 && rng.Intn(10) > 0 {
			parents := 1 + rng.Intn(3)
			used := map[int]bool{}
			for k := 0; k < parents; k++ {
				j := i - 1 - rng.Intn(min(i, 8))
				if used[j] {
					continue
				}
				used[j] = true
				hasChild[j] = true
				c.Parents = append(c.Parents, hashes[j])
			}
		}
		p[hashes[i]] = c
	}

	var heads []plumbing.Hash
	for i := n - 1; i >= 0; i-- {
		if !hasChild[i] {
			heads = append(heads, hashes[i])
		}
	}
	return p, heads
}

func TestRendererFollowsScheduler(t *testing.T) {
	ctx := context.Background()

	for seed := int64(1); seed <= 8; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			provider, heads := randomHistory(seed, 150)
			sched, err := commitlist.New(ctx, provider, heads, commitlist.Options{Approximation: 4})
			require.NoError(t, err)

			r := NewRenderer(DefaultMaxColors, 1000)
			rows := 0
			for !sched.Empty() {
				_, info, err := sched.Next(ctx)
				require.NoError(t, err)

				row, err := r.Compute(info)
				require.NoError(t, err)
				rows++

				require.Zero(t, len(row)%2, "row %d", rows)
				text := row.String()
				marks := strings.Count(text, "•") + strings.Count(text, "I")
				assert.Equal(t, 1, marks, "row %d: %q", rows, text)
				assert.NotContains(t, text, "?", "row %d", rows)
				assert.LessOrEqual(t, len(r.Columns()), row.Width())
			}

			assert.Equal(t, len(provider), rows)
			assert.Empty(t, r.Columns(), "every lane ends with its last commit")
			assert.Equal(t, make([]int, DefaultMaxColors), r.ColorUse(), "every color is returned")
		})
	}
}
