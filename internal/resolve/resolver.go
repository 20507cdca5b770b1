// Package resolve is the boundary between the composition engine and the
// platform media stack: it turns opaque clip sources into the metadata the
// timeline math needs (dimensions, duration, audio presence). Resolution is
// the only concurrent, failure-prone part of a build; everything downstream
// is pure computation.
package resolve

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tapecut/tapecut/internal/tape"
)

// Failure taxonomy. Per-clip failures are isolated: a failed clip is
// skipped, never aborting the whole build.
var (
	ErrAssetUnavailable     = errors.New("asset unavailable")
	ErrUnsupportedMediaKind = errors.New("unsupported media kind")
	ErrMissingVideoTrack    = errors.New("no video track")
)

// Context is the resolved metadata for one clip. Width and Height are
// post-rotation (a physically rotated source reports swapped dimensions)
// and, for stills, already clamped to the bounded size. Rotation records
// the clockwise quarter turns folded into the reported dimensions.
type Context struct {
	Width    int
	Height   int
	Rotation int
	Duration float64
	HasAudio bool
	Still    bool
}

// Resolver produces a Context for a clip or fails with one of the package
// sentinel errors (possibly wrapped).
type Resolver interface {
	Resolve(ctx context.Context, clip tape.Clip) (Context, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, clip tape.Clip) (Context, error)

func (f ResolverFunc) Resolve(ctx context.Context, clip tape.Clip) (Context, error) {
	return f(ctx, clip)
}

// Skip records a clip excluded from a build, with enough detail for the
// caller to surface a per-clip notice.
type Skip struct {
	Index  int
	ClipID string
	Reason string
}

// Static is a map-backed resolver for tests and for callers that already
// hold resolved metadata (e.g. re-invoking the builder with a grown set).
type Static map[string]Context

func (s Static) Resolve(_ context.Context, clip tape.Clip) (Context, error) {
	c, ok := s[clip.ID]
	if !ok {
		return Context{}, errors.Wrapf(ErrAssetUnavailable, "clip %s", clip.ID)
	}
	return c, nil
}

// ResolveAll resolves every clip concurrently with at most workers in
// flight, then reassembles results in clip order — completion order carries
// no meaning. Per-clip failures become entries in the returned map's
// absence; the error return fires only on context cancellation.
func ResolveAll(ctx context.Context, r Resolver, clips []tape.Clip, workers int) (map[string]Context, []Skip, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]*Context, len(clips))
	failures := make([]error, len(clips))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, clip := range clips {
		i, clip := i, clip
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := r.Resolve(gctx, clip)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = &c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	contexts := make(map[string]Context, len(clips))
	var skips []Skip
	for i, clip := range clips {
		if results[i] != nil {
			contexts[clip.ID] = *results[i]
			continue
		}
		skips = append(skips, Skip{
			Index:  i,
			ClipID: clip.ID,
			Reason: failures[i].Error(),
		})
	}
	return contexts, skips, nil
}

type cacheKey struct {
	id      string
	updated int64
}

// Cache memoizes resolutions keyed by clip identity plus last-modified
// timestamp, so edits invalidate naturally. Safe for concurrent use.
type Cache struct {
	inner Resolver

	mu      sync.Mutex
	entries map[cacheKey]Context
}

// NewCache wraps a resolver with memoization.
func NewCache(inner Resolver) *Cache {
	return &Cache{
		inner:   inner,
		entries: make(map[cacheKey]Context),
	}
}

func (c *Cache) Resolve(ctx context.Context, clip tape.Clip) (Context, error) {
	key := cacheKey{id: clip.ID, updated: clip.UpdatedAt.UnixNano()}

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	resolved, err := c.inner.Resolve(ctx, clip)
	if err != nil {
		// Failures are not cached: an asset may become available later.
		return Context{}, err
	}

	c.mu.Lock()
	c.entries[key] = resolved
	c.mu.Unlock()
	return resolved, nil
}
