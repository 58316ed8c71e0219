package business

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Agurato/cinefin/internal/model"
)

// PageFetcher loads one page of a partition
type PageFetcher func(ctx context.Context, page int) (model.MoviePage, error)

// PagedView accumulates the pages of a view. Fetches run on their own goroutines
// and their results are merged back on the event loop, in the order they complete.
type PagedView struct {
	ctx   context.Context
	loop  *EventLoop
	name  model.View
	acc   *Accumulator
	fetch PageFetcher

	// channels closed when the pending fetch settles
	waiters []chan struct{}
}

// NewPagedView creates an empty view. ctx bounds every fetch the view issues.
func NewPagedView(ctx context.Context, loop *EventLoop, name model.View) *PagedView {
	return &PagedView{
		ctx:  ctx,
		loop: loop,
		name: name,
		acc:  NewAccumulator(""),
	}
}

// Name returns the view name
func (v *PagedView) Name() model.View {
	return v.name
}

// Ensure switches the view to partition if it is not already on it, makes sure its first page
// is requested, and waits for the pending fetch to settle.
func (v *PagedView) Ensure(ctx context.Context, partition string, fetch PageFetcher) (model.BucketSnapshot, error) {
	var wait chan struct{}
	err := v.loop.Do(ctx, func() {
		if v.fetch == nil || v.acc.Partition() != partition {
			v.reset(partition, fetch)
		}
		if v.acc.Snapshot().Page == 0 {
			v.loadNext()
		}
		wait = v.waiter()
	})
	if err != nil {
		return model.BucketSnapshot{}, err
	}
	return v.waitFor(ctx, wait)
}

// Reset switches the view to partition and requests its first page, without waiting for it
func (v *PagedView) Reset(ctx context.Context, partition string, fetch PageFetcher) error {
	return v.loop.Do(ctx, func() {
		v.reset(partition, fetch)
		v.loadNext()
	})
}

// LoadNext requests the next page. It returns false if a fetch is already pending or nothing is left to load.
func (v *PagedView) LoadNext(ctx context.Context) (bool, error) {
	var started bool
	err := v.loop.Do(ctx, func() {
		started = v.loadNext()
	})
	return started, err
}

// Snapshot returns the current state of the view
func (v *PagedView) Snapshot(ctx context.Context) (model.BucketSnapshot, error) {
	var snapshot model.BucketSnapshot
	err := v.loop.Do(ctx, func() {
		snapshot = v.acc.Snapshot()
	})
	return snapshot, err
}

// Settled waits for the pending fetch, if any, and returns the state of the view
func (v *PagedView) Settled(ctx context.Context) (model.BucketSnapshot, error) {
	var wait chan struct{}
	if err := v.loop.Do(ctx, func() { wait = v.waiter() }); err != nil {
		return model.BucketSnapshot{}, err
	}
	return v.waitFor(ctx, wait)
}

func (v *PagedView) waitFor(ctx context.Context, wait chan struct{}) (model.BucketSnapshot, error) {
	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return model.BucketSnapshot{}, ctx.Err()
		}
	}
	return v.Snapshot(ctx)
}

// waiter returns a channel closed when the pending fetch settles, nil if nothing is pending. Loop only.
func (v *PagedView) waiter() chan struct{} {
	if v.acc.Pending() == 0 {
		return nil
	}
	ch := make(chan struct{})
	v.waiters = append(v.waiters, ch)
	return ch
}

func (v *PagedView) settle() {
	for _, ch := range v.waiters {
		close(ch)
	}
	v.waiters = nil
}

// reset runs on the loop
func (v *PagedView) reset(partition string, fetch PageFetcher) {
	v.acc.Reset(partition)
	v.fetch = fetch
	v.settle()
}

// loadNext runs on the loop
func (v *PagedView) loadNext() bool {
	if v.fetch == nil {
		return false
	}
	page, ok := v.acc.NextPage()
	if !ok {
		return false
	}
	partition, fetch := v.acc.Partition(), v.fetch
	log.Debug().Str("view", string(v.name)).Str("partition", partition).Int("page", page).Msg("Loading page")

	go func() {
		result, err := fetch(v.ctx, page)
		dispatchErr := v.loop.Dispatch(func() {
			if err != nil {
				if v.acc.Fail(partition, page, err) {
					log.Error().Err(err).Str("view", string(v.name)).Int("page", page).Msg("Could not load page")
					v.settle()
				}
				return
			}
			if v.acc.Merge(partition, page, result) {
				v.settle()
			} else {
				log.Debug().Str("view", string(v.name)).Str("partition", partition).Int("page", page).Msg("Dropping stale page")
			}
		})
		if dispatchErr != nil {
			log.Debug().Err(dispatchErr).Str("view", string(v.name)).Msg("Page loaded after the view was closed")
		}
	}()
	return true
}
