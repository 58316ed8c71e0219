package business

import (
	"github.com/Agurato/cinefin/internal/model"
)

// Accumulator merges the pages of one partition into a single list of unique movies.
// It is a plain state machine and is not safe for concurrent use: a PagedView drives it from its event loop.
type Accumulator struct {
	bucket  model.PageBucket
	state   model.BucketState
	pending int // page being fetched, 0 if none
	err     error
	seen    map[int64]struct{}
}

// NewAccumulator creates an empty accumulator for a partition
func NewAccumulator(partition string) *Accumulator {
	a := &Accumulator{}
	a.Reset(partition)
	return a
}

// Partition returns the partition currently accumulated
func (a *Accumulator) Partition() string {
	return a.bucket.Partition
}

// Reset clears the list and starts over for a partition.
// A fetch still in flight for the previous partition will be discarded when it completes.
func (a *Accumulator) Reset(partition string) {
	a.bucket = model.PageBucket{Partition: partition}
	a.state = model.BucketEmpty
	a.pending = 0
	a.err = nil
	a.seen = make(map[int64]struct{})
}

// NextPage returns the page to fetch next, and flags it as pending.
// It returns false while a fetch is pending or once the partition is exhausted.
func (a *Accumulator) NextPage() (int, bool) {
	if a.pending != 0 || a.state == model.BucketExhausted {
		return 0, false
	}
	if a.bucket.Page > 0 && a.bucket.Page >= a.bucket.TotalPages {
		a.state = model.BucketExhausted
		return 0, false
	}
	a.pending = a.bucket.Page + 1
	a.state = model.BucketLoading
	a.err = nil
	return a.pending, true
}

// Pending returns the page being fetched, 0 if none
func (a *Accumulator) Pending() int {
	return a.pending
}

// Merge adds a fetched page. Results for another partition or page than the pending one are stale and dropped.
// The first page replaces the list, the following ones only append movies that were not seen yet.
func (a *Accumulator) Merge(partition string, page int, result model.MoviePage) bool {
	if partition != a.bucket.Partition || page != a.pending {
		return false
	}
	a.pending = 0

	if page == 1 {
		a.bucket.Movies = nil
		a.seen = make(map[int64]struct{}, len(result.Results))
	}
	for _, movie := range result.Results {
		if _, ok := a.seen[movie.ID]; ok {
			continue
		}
		a.seen[movie.ID] = struct{}{}
		a.bucket.Movies = append(a.bucket.Movies, movie)
	}
	a.bucket.Page = page
	a.bucket.TotalPages = result.TotalPages

	a.state = model.BucketReady
	if len(result.Results) == 0 || page >= result.TotalPages {
		a.state = model.BucketExhausted
	}
	return true
}

// Fail records the failure of the pending fetch. The movies loaded so far are kept.
func (a *Accumulator) Fail(partition string, page int, err error) bool {
	if partition != a.bucket.Partition || page != a.pending {
		return false
	}
	a.pending = 0
	a.err = err
	if a.bucket.Page == 0 {
		a.state = model.BucketEmpty
	} else {
		a.state = model.BucketReady
	}
	return true
}

// Snapshot returns a copy of the bucket
func (a *Accumulator) Snapshot() model.BucketSnapshot {
	bucket := a.bucket
	bucket.Movies = append([]model.MovieSummary(nil), a.bucket.Movies...)
	return model.BucketSnapshot{
		PageBucket: bucket,
		State:      a.state,
		Err:        a.err,
	}
}
