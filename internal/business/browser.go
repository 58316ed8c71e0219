package business

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Agurato/cinefin/internal/model"
)

// RatingDebounce is how long the rating range must stay still before the filtered movies reload
const RatingDebounce = 200 * time.Millisecond

// ListCataloger reads paginated movie lists
type ListCataloger interface {
	TabMovies(ctx context.Context, tab model.Tab, page int) (model.MoviePage, error)
	TopRatedMovies(ctx context.Context, page int) (model.MoviePage, error)
	SearchMovies(ctx context.Context, query string, page int) (model.MoviePage, error)
}

// BrowserOptions tunes the timings of a Browser
type BrowserOptions struct {
	ScrollDebounce time.Duration
	RatingDebounce time.Duration
}

// DefaultBrowserOptions returns the timings used in production
func DefaultBrowserOptions() BrowserOptions {
	return BrowserOptions{
		ScrollDebounce: ScrollDebounce,
		RatingDebounce: RatingDebounce,
	}
}

// Browser is the browsing session of one visitor: the movies accumulated by each view and the filters in use.
// Its state lives on an event loop, so concurrent requests from the same visitor are applied one at a time.
type Browser struct {
	id      string
	catalog ListCataloger
	loop    *EventLoop
	cancel  context.CancelFunc

	views   map[model.View]*PagedView
	loaders map[model.View]*ScrollLoader

	// filters is only touched on the loop
	filters         model.FilterState
	ratingDebouncer *Debouncer[model.RatingRange]

	lastSeen atomic.Int64
}

// NewBrowser starts a browsing session
func NewBrowser(id string, catalog ListCataloger, opts BrowserOptions) *Browser {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Browser{
		id:      id,
		catalog: catalog,
		loop:    NewEventLoop(64),
		cancel:  cancel,
		views:   make(map[model.View]*PagedView),
		loaders: make(map[model.View]*ScrollLoader),
		filters: model.DefaultFilterState(),
	}
	for _, view := range []model.View{model.ViewCategory, model.ViewFiltered, model.ViewSearch} {
		pv := NewPagedView(ctx, b.loop, view)
		b.views[view] = pv
		b.loaders[view] = NewScrollLoader(ScrollThreshold(view), opts.ScrollDebounce, func() {
			if _, err := pv.LoadNext(ctx); err != nil {
				log.Debug().Err(err).Str("view", string(pv.Name())).Msg("Could not load next page")
			}
		})
	}
	b.ratingDebouncer = NewDebouncer(opts.RatingDebounce, func(rating model.RatingRange) {
		if err := b.applyRating(ctx, rating); err != nil {
			log.Debug().Err(err).Msg("Could not apply rating range")
		}
	})
	b.Touch()
	return b
}

// ID returns the visitor id
func (b *Browser) ID() string {
	return b.id
}

// Touch records activity of the visitor
func (b *Browser) Touch() {
	b.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen returns the time of the last activity of the visitor
func (b *Browser) LastSeen() time.Time {
	return time.Unix(0, b.lastSeen.Load())
}

// View returns a paged view
func (b *Browser) View(view model.View) (*PagedView, error) {
	pv, ok := b.views[view]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownView, view)
	}
	return pv, nil
}

// Category returns the movies accumulated for a category tab, loading its first page if needed
func (b *Browser) Category(ctx context.Context, tab model.Tab) (model.BucketSnapshot, error) {
	b.Touch()
	return b.views[model.ViewCategory].Ensure(ctx, string(tab), b.tabFetcher(tab))
}

// Search returns the movies accumulated for a query, loading its first page if needed.
// A blank query has no results and issues no request.
func (b *Browser) Search(ctx context.Context, query string) (model.BucketSnapshot, error) {
	b.Touch()
	query = strings.TrimSpace(query)
	if query == "" {
		return model.BucketSnapshot{State: model.BucketExhausted}, nil
	}
	return b.views[model.ViewSearch].Ensure(ctx, query, b.searchFetcher(query))
}

// Filtered applies filters to the top rated movies. The accumulated pages restart whenever the filters change.
// It returns the raw accumulated bucket and the filtered, sorted movies.
func (b *Browser) Filtered(ctx context.Context, filters model.FilterState) (model.BucketSnapshot, []model.MovieSummary, error) {
	b.Touch()
	filters.Rating = filters.Rating.Normalized()
	b.ratingDebouncer.Stop()
	if err := b.loop.Do(ctx, func() { b.filters = filters }); err != nil {
		return model.BucketSnapshot{}, nil, err
	}
	snapshot, err := b.views[model.ViewFiltered].Ensure(ctx, filters.Signature(), b.catalog.TopRatedMovies)
	if err != nil {
		return snapshot, nil, err
	}
	return snapshot, RenderMovies(snapshot.Movies, filters), nil
}

// Filters returns the filters in use
func (b *Browser) Filters(ctx context.Context) (model.FilterState, error) {
	var filters model.FilterState
	err := b.loop.Do(ctx, func() { filters = b.filters })
	return filters, err
}

// SetRating changes the rating range of the filtered movies once it stops changing
func (b *Browser) SetRating(rating model.RatingRange) {
	b.Touch()
	b.ratingDebouncer.Trigger(rating.Normalized())
}

func (b *Browser) applyRating(ctx context.Context, rating model.RatingRange) error {
	var (
		filters   model.FilterState
		unchanged bool
	)
	if err := b.loop.Do(ctx, func() {
		previous := b.filters.Signature()
		b.filters.Rating = rating
		filters = b.filters
		unchanged = filters.Signature() == previous
	}); err != nil {
		return err
	}
	// same partition, the accumulated pages stay valid
	if unchanged {
		return nil
	}
	log.Debug().Str("visitor", b.id).Float64("min", rating.Min).Float64("max", rating.Max).Msg("Applying rating range")
	return b.views[model.ViewFiltered].Reset(ctx, filters.Signature(), b.catalog.TopRatedMovies)
}

// Scroll records a scroll event on a view
func (b *Browser) Scroll(view model.View, metrics model.ScrollMetrics) error {
	b.Touch()
	loader, ok := b.loaders[view]
	if !ok {
		return fmt.Errorf("%w: %q", model.ErrUnknownView, view)
	}
	loader.OnScroll(metrics)
	return nil
}

// Movies returns the movies of a view from offset on. Filtered movies are returned filtered and sorted, whatever the offset.
func (b *Browser) Movies(ctx context.Context, view model.View, offset int) (model.BucketSnapshot, []model.MovieSummary, error) {
	b.Touch()
	pv, err := b.View(view)
	if err != nil {
		return model.BucketSnapshot{}, nil, err
	}
	snapshot, err := pv.Snapshot(ctx)
	if err != nil {
		return snapshot, nil, err
	}
	if view == model.ViewFiltered {
		filters, err := b.Filters(ctx)
		if err != nil {
			return snapshot, nil, err
		}
		return snapshot, RenderMovies(snapshot.Movies, filters), nil
	}
	offset = min(max(offset, 0), len(snapshot.Movies))
	return snapshot, snapshot.Movies[offset:], nil
}

// Close stops the session. Fetches still in flight are dropped.
func (b *Browser) Close() {
	b.ratingDebouncer.Stop()
	for _, loader := range b.loaders {
		loader.Stop()
	}
	b.cancel()
	b.loop.Close()
}

func (b *Browser) tabFetcher(tab model.Tab) PageFetcher {
	return func(ctx context.Context, page int) (model.MoviePage, error) {
		return b.catalog.TabMovies(ctx, tab, page)
	}
}

func (b *Browser) searchFetcher(query string) PageFetcher {
	return func(ctx context.Context, page int) (model.MoviePage, error) {
		return b.catalog.SearchMovies(ctx, query, page)
	}
}
