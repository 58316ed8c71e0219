package business_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/Agurato/cinefin/internal/model"
)

// fakeCatalog serves generated pages and counts the requests it receives
type fakeCatalog struct {
	mu         sync.Mutex
	totalPages int
	perPage    int
	calls      map[string]int
	errs       map[string]error
	gate       chan struct{}
	backdrops  bool

	details map[int64]model.MovieDetail
}

func newFakeCatalog(totalPages, perPage int) *fakeCatalog {
	return &fakeCatalog{
		totalPages: totalPages,
		perPage:    perPage,
		calls:      make(map[string]int),
		errs:       make(map[string]error),
		details:    make(map[int64]model.MovieDetail),
	}
}

func (fc *fakeCatalog) record(key string) error {
	fc.mu.Lock()
	fc.calls[key]++
	err := fc.errs[key]
	gate := fc.gate
	fc.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (fc *fakeCatalog) Calls(key string) int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.calls[key]
}

func (fc *fakeCatalog) failWith(key string, err error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.errs[key] = err
}

func (fc *fakeCatalog) page(base int64, page int) model.MoviePage {
	result := model.MoviePage{Page: page, TotalPages: fc.totalPages}
	for i := 0; i < fc.perPage; i++ {
		id := base + int64((page-1)*fc.perPage+i)
		result.Results = append(result.Results, model.MovieSummary{
			ID:          id,
			Title:       fmt.Sprintf("Movie %d", id),
			VoteAverage: float64(id % 11),
			Popularity:  float64(id),
		})
		if fc.backdrops {
			result.Results[i].BackdropPath = fmt.Sprintf("/b%d.jpg", id)
		}
	}
	return result
}

func (fc *fakeCatalog) TabMovies(_ context.Context, tab model.Tab, page int) (model.MoviePage, error) {
	if err := fc.record(fmt.Sprintf("%s/%d", tab, page)); err != nil {
		return model.MoviePage{}, err
	}
	return fc.page(1000, page), nil
}

func (fc *fakeCatalog) TopRatedMovies(ctx context.Context, page int) (model.MoviePage, error) {
	return fc.TabMovies(ctx, model.TabTopRated, page)
}

func (fc *fakeCatalog) SearchMovies(_ context.Context, query string, page int) (model.MoviePage, error) {
	if err := fc.record(fmt.Sprintf("search:%s/%d", query, page)); err != nil {
		return model.MoviePage{}, err
	}
	return fc.page(5000, page), nil
}
