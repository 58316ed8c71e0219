package business

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/Agurato/cinefin/internal/model"
)

// How much of each list the pages display
const (
	HomeSectionSize     = 6
	CastSize            = 12
	BackdropsSize       = 10
	PostersSize         = 10
	RecommendationsSize = 8
	SimilarSize         = 8
)

// MovieCataloger reads movies from the remote catalog
type MovieCataloger interface {
	TabMovies(ctx context.Context, tab model.Tab, page int) (model.MoviePage, error)
	TopRatedMovies(ctx context.Context, page int) (model.MoviePage, error)
	SearchMovies(ctx context.Context, query string, page int) (model.MoviePage, error)

	MovieDetails(ctx context.Context, movieID int64) (model.MovieDetail, error)
	MovieCredits(ctx context.Context, movieID int64) (model.Credits, error)
	MovieImages(ctx context.Context, movieID int64) (model.Images, error)
	MovieRecommendations(ctx context.Context, movieID int64) (model.MoviePage, error)
	SimilarMovies(ctx context.Context, movieID int64) (model.MoviePage, error)
	MovieVideos(ctx context.Context, movieID int64) (model.Videos, error)

	GetPosterLink(key string) string
	GetBackdropLink(key string) string
}

// MovieCacher stores posters and backdrops on disk
type MovieCacher interface {
	CachePoster(ctx context.Context, link, key string) (hasToWait bool, err error)
	CacheBackdrop(ctx context.Context, link, key string) (hasToWait bool, err error)
	IsCached(filePath string) bool
}

// RatingGetter fetches ratings from other movie sites
type RatingGetter interface {
	GetRatings(ctx context.Context, imdbID string) model.ExternalRatings
}

type MovieManager struct {
	MovieCataloger
	MovieCacher
	RatingGetter
}

// NewMovieManager creates a MovieManager. mc and rg may be nil to disable image caching and external ratings.
func NewMovieManager(cat MovieCataloger, mc MovieCacher, rg RatingGetter) *MovieManager {
	return &MovieManager{
		MovieCataloger: cat,
		MovieCacher:    mc,
		RatingGetter:   rg,
	}
}

// HomeSection is one list of the home page
type HomeSection struct {
	Tab    model.Tab
	Movies []model.MovieSummary
	Err    error
}

// HomeView is what the home page displays
type HomeView struct {
	Hero            *model.MovieSummary
	HeroBackdropURL string
	Sections        []HomeSection
}

// GetHome loads the first page of every category concurrently
func (mm MovieManager) GetHome(ctx context.Context) HomeView {
	sections := make([]HomeSection, len(model.Tabs))
	var wg sync.WaitGroup
	for i, tab := range model.Tabs {
		wg.Add(1)
		go func(i int, tab model.Tab) {
			defer wg.Done()
			sections[i].Tab = tab
			page, err := mm.MovieCataloger.TabMovies(ctx, tab, 1)
			if err != nil {
				log.Error().Err(err).Str("tab", string(tab)).Msg("Could not load home section")
				sections[i].Err = err
				return
			}
			sections[i].Movies = page.Results
		}(i, tab)
	}
	wg.Wait()

	home := HomeView{Sections: make([]HomeSection, 0, len(sections))}
	for _, section := range sections {
		if section.Tab == model.TabPopular {
			if hero, ok := lo.Find(section.Movies, func(m model.MovieSummary) bool { return m.BackdropPath != "" }); ok {
				home.Hero = &hero
				home.HeroBackdropURL = mm.backdropURL(ctx, hero.BackdropPath)
			}
		}
		section.Movies = lo.Slice(section.Movies, 0, HomeSectionSize)
		home.Sections = append(home.Sections, section)
	}
	return home
}

// MovieView is what the movie page displays. Each part is fetched independently and has its own error.
type MovieView struct {
	Detail model.MovieDetail

	Director   *model.CrewMember
	Cast       []model.CastMember
	CreditsErr error

	Backdrops []model.Image
	Posters   []model.Image
	ImagesErr error

	Recommendations    []model.MovieSummary
	RecommendationsErr error

	Similar    []model.MovieSummary
	SimilarErr error

	Trailer   *model.Video
	VideosErr error

	Ratings model.ExternalRatings
}

// GetMovie loads everything the movie page displays. Only a failure of the details is returned as an error.
func (mm MovieManager) GetMovie(ctx context.Context, movieID int64) (*MovieView, error) {
	var (
		view      MovieView
		detailErr error
		wg        sync.WaitGroup
	)

	wg.Add(6)
	go func() {
		defer wg.Done()
		view.Detail, detailErr = mm.MovieCataloger.MovieDetails(ctx, movieID)
		if detailErr == nil && mm.RatingGetter != nil {
			view.Ratings = mm.RatingGetter.GetRatings(ctx, view.Detail.IMDbID)
		}
	}()
	go func() {
		defer wg.Done()
		credits, err := mm.MovieCataloger.MovieCredits(ctx, movieID)
		if err != nil {
			view.CreditsErr = err
			return
		}
		if director, ok := credits.Director(); ok {
			view.Director = &director
		}
		view.Cast = lo.Slice(credits.Cast, 0, CastSize)
	}()
	go func() {
		defer wg.Done()
		images, err := mm.MovieCataloger.MovieImages(ctx, movieID)
		if err != nil {
			view.ImagesErr = err
			return
		}
		view.Backdrops = lo.Slice(images.Backdrops, 0, BackdropsSize)
		view.Posters = lo.Slice(images.Posters, 0, PostersSize)
	}()
	go func() {
		defer wg.Done()
		page, err := mm.MovieCataloger.MovieRecommendations(ctx, movieID)
		view.Recommendations, view.RecommendationsErr = lo.Slice(page.Results, 0, RecommendationsSize), err
	}()
	go func() {
		defer wg.Done()
		page, err := mm.MovieCataloger.SimilarMovies(ctx, movieID)
		view.Similar, view.SimilarErr = lo.Slice(page.Results, 0, SimilarSize), err
	}()
	go func() {
		defer wg.Done()
		videos, err := mm.MovieCataloger.MovieVideos(ctx, movieID)
		if err != nil {
			view.VideosErr = err
			return
		}
		if trailer, ok := videos.Trailer(); ok {
			view.Trailer = &trailer
		}
	}()
	wg.Wait()

	if detailErr != nil {
		if errors.Is(detailErr, model.ErrMovieNotFound) {
			log.Debug().Int64("movieID", movieID).Msg("Movie not found")
		} else {
			log.Error().Err(detailErr).Int64("movieID", movieID).Msg("Could not load movie details")
		}
		return nil, detailErr
	}
	return &view, nil
}

// FavoriteMovie is a favorite resolved to its details
type FavoriteMovie struct {
	model.MovieSummary
	PosterURL string
}

// GetFavoriteMovies resolves movie ids to their summaries, in the same order.
// Movies that cannot be loaded are skipped. Posters are cached on disk and served from the cache when possible.
func (mm MovieManager) GetFavoriteMovies(ctx context.Context, movieIDs []int64) []FavoriteMovie {
	movies := make([]*FavoriteMovie, len(movieIDs))
	var wg sync.WaitGroup
	for i, movieID := range movieIDs {
		wg.Add(1)
		go func(i int, movieID int64) {
			defer wg.Done()
			detail, err := mm.MovieCataloger.MovieDetails(ctx, movieID)
			if err != nil {
				log.Error().Err(err).Int64("movieID", movieID).Msg("Could not load favorite movie")
				return
			}
			movies[i] = &FavoriteMovie{
				MovieSummary: detail.Summary(),
				PosterURL:    mm.posterURL(ctx, detail.PosterPath),
			}
		}(i, movieID)
	}
	wg.Wait()

	return lo.FilterMap(movies, func(m *FavoriteMovie, _ int) (FavoriteMovie, bool) {
		if m == nil {
			return FavoriteMovie{}, false
		}
		return *m, true
	})
}

func (mm MovieManager) posterURL(ctx context.Context, key string) string {
	if mm.MovieCacher == nil {
		return mm.MovieCataloger.GetPosterLink(key)
	}
	return mm.cachedURL(ctx, "poster", mm.MovieCataloger.GetPosterLink(key), key, mm.MovieCacher.CachePoster)
}

func (mm MovieManager) backdropURL(ctx context.Context, key string) string {
	if mm.MovieCacher == nil {
		return mm.MovieCataloger.GetBackdropLink(key)
	}
	return mm.cachedURL(ctx, "backdrop", mm.MovieCataloger.GetBackdropLink(key), key, mm.MovieCacher.CacheBackdrop)
}

// cachedURL returns the cache path of an image, caching it first if needed.
// The remote link is used while the image is not on disk.
func (mm MovieManager) cachedURL(ctx context.Context, kind, link, key string, cache func(context.Context, string, string) (bool, error)) string {
	if link == "" {
		return link
	}
	cachedPath := kind + key
	if mm.MovieCacher.IsCached(cachedPath) {
		return "/cache/" + cachedPath
	}
	hasToWait, err := cache(ctx, link, key)
	if err != nil {
		log.Error().Err(err).Str(kind, key).Msg("Could not cache image")
		return link
	}
	if hasToWait {
		return link
	}
	return "/cache/" + cachedPath
}

// BestMatch returns the most popular movie whose title is close to the query.
// If no title is close enough, the most popular movie is returned.
func BestMatch(query string, movies []model.MovieSummary) (model.MovieSummary, bool) {
	if len(movies) == 0 {
		return model.MovieSummary{}, false
	}
	query = strings.ToLower(strings.TrimSpace(query))
	var (
		best        model.MovieSummary
		bestClose   bool
		mostPopular = -1.0
	)
	for _, movie := range movies {
		// Levenshtein distance so that the title corresponds at least a little bit
		isClose := levenshtein.ComputeDistance(query, strings.ToLower(movie.Title)) < len(query)/3
		if bestClose && !isClose {
			continue
		}
		if (isClose && !bestClose) || movie.Popularity > mostPopular {
			best, bestClose, mostPopular = movie, isClose, movie.Popularity
		}
	}
	return best, true
}
