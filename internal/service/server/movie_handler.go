package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/cinefin/internal/business"
	"github.com/Agurato/cinefin/internal/model"
)

// ErrorMessage is shown in place of anything that could not be loaded
const ErrorMessage = "Please try again later"

type MovieGetter interface {
	GetMovie(ctx context.Context, movieID int64) (*business.MovieView, error)
	GetFavoriteMovies(ctx context.Context, movieIDs []int64) []business.FavoriteMovie
}

type FavoritesManager interface {
	Toggle(ctx context.Context, visitor string, movieID int64) (bool, error)
	IsFavorite(ctx context.Context, visitor string, movieID int64) bool
	ListFavoriteIDs(ctx context.Context, visitor string) []int64
	FavoriteSet(ctx context.Context, visitor string) map[int64]bool
}

// BrowserGetter returns the browsing session of a visitor
type BrowserGetter interface {
	Get(visitor string) *business.Browser
}

type MovieHandler struct {
	MovieGetter
	FavoritesManager
	BrowserGetter
	paginater *business.Paginater[int64]
}

func NewMovieHandler(mg MovieGetter, fm FavoritesManager, bg BrowserGetter, p *business.Paginater[int64]) *MovieHandler {
	return &MovieHandler{
		MovieGetter:      mg,
		FavoritesManager: fm,
		BrowserGetter:    bg,
		paginater:        p,
	}
}

// GETCategory displays the movies of a category tab
func (mh MovieHandler) GETCategory(c *gin.Context) {
	tab, err := model.ParseTab(c.Query("tab"))
	if err != nil {
		log.Debug().Err(err).Msg("Falling back to the popular tab")
		tab = model.TabPopular
	}
	visitor := visitorID(c)
	snapshot, err := mh.BrowserGetter.Get(visitor).Category(c.Request.Context(), tab)
	if err != nil {
		log.Error().Err(err).Str("tab", string(tab)).Msg("Could not load category")
	}

	RenderHTML(c, http.StatusOK, "pages/category.go.html", gin.H{
		"title":     tab.Label(),
		"tabs":      model.Tabs,
		"activeTab": tab,
		"view":      model.ViewCategory,
		"movies":    snapshot.Movies,
		"page":      snapshot.Page,
		"hasMore":   snapshot.HasMore(),
		"error":     errorMessage(err, snapshot.Err),
		"favorites": mh.FavoritesManager.FavoriteSet(c.Request.Context(), visitor),
	})
}

// GETFiltered displays the top rated movies, filtered and sorted
func (mh MovieHandler) GETFiltered(c *gin.Context) {
	filters, err := ParseFilters(c)
	if err != nil {
		log.Debug().Err(err).Msg("Ignoring invalid filters")
	}
	visitor := visitorID(c)
	snapshot, movies, err := mh.BrowserGetter.Get(visitor).Filtered(c.Request.Context(), filters)
	if err != nil {
		log.Error().Err(err).Msg("Could not load filtered movies")
	}

	RenderHTML(c, http.StatusOK, "pages/filtered.go.html", gin.H{
		"title":     "Filtered Movies",
		"view":      model.ViewFiltered,
		"filters":   filters,
		"genres":    business.GetGenreOptions(filters),
		"sortKeys":  model.SortKeys,
		"movies":    movies,
		"page":      snapshot.Page,
		"hasMore":   snapshot.HasMore(),
		"error":     errorMessage(err, snapshot.Err),
		"favorites": mh.FavoritesManager.FavoriteSet(c.Request.Context(), visitor),
	})
}

// GETSearch displays the results of a search
func (mh MovieHandler) GETSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	visitor := visitorID(c)
	snapshot, err := mh.BrowserGetter.Get(visitor).Search(c.Request.Context(), query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Could not search movies")
	}

	obj := gin.H{
		"title":     "Search",
		"view":      model.ViewSearch,
		"query":     query,
		"movies":    snapshot.Movies,
		"page":      snapshot.Page,
		"hasMore":   snapshot.HasMore(),
		"error":     errorMessage(err, snapshot.Err),
		"favorites": mh.FavoritesManager.FavoriteSet(c.Request.Context(), visitor),
	}
	if query != "" {
		obj["title"] = fmt.Sprintf("Search: %s", query)
	}
	if best, ok := business.BestMatch(query, snapshot.Movies); ok {
		obj["bestMatch"] = best
	}
	RenderHTML(c, http.StatusOK, "pages/search.go.html", obj)
}

// GETFavorites displays the favorite movies of the visitor
func (mh MovieHandler) GETFavorites(c *gin.Context) {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil {
		page = 1
	}
	ids := mh.FavoritesManager.ListFavoriteIDs(c.Request.Context(), visitorID(c))
	pagedIDs, pages := mh.paginater.GetPagination(page, ids)
	movies := mh.MovieGetter.GetFavoriteMovies(c.Request.Context(), pagedIDs)

	RenderHTML(c, http.StatusOK, "pages/favorites.go.html", gin.H{
		"title":      "Favorites",
		"movies":     movies,
		"count":      len(ids),
		"pages":      pages,
		"missing":    len(pagedIDs) - len(movies),
		"pagination": len(pages) > 1,
		"errorMsg":   ErrorMessage,
	})
}

// GETMovie displays everything about a movie
func (mh MovieHandler) GETMovie(c *gin.Context) {
	movieID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || movieID <= 0 {
		RenderHTML(c, http.StatusNotFound, "pages/404.go.html", gin.H{
			"title": "404 - Not Found",
		})
		return
	}

	view, err := mh.MovieGetter.GetMovie(c.Request.Context(), movieID)
	if errors.Is(err, model.ErrMovieNotFound) {
		RenderHTML(c, http.StatusNotFound, "pages/404.go.html", gin.H{
			"title": "404 - Not Found",
		})
		return
	}
	if err != nil {
		RenderHTML(c, http.StatusBadGateway, "pages/error.go.html", gin.H{
			"title": "Error",
			"error": ErrorMessage,
		})
		return
	}

	title := view.Detail.Title
	if year := view.Detail.ReleaseDate; len(year) >= 4 {
		title = fmt.Sprintf("%s (%s)", title, year[:4])
	}
	RenderHTML(c, http.StatusOK, "pages/movie.go.html", gin.H{
		"title":    title,
		"movie":    view,
		"favorite": mh.FavoritesManager.IsFavorite(c.Request.Context(), visitorID(c), movieID),
		"errorMsg": ErrorMessage,
	})
}

func errorMessage(errs ...error) string {
	for _, err := range errs {
		if err != nil {
			return ErrorMessage
		}
	}
	return ""
}

// ParseFilters reads the filters of the filtered movies page from the query string:
// genre (repeated), min, max and sort. Invalid values fall back to their default and are reported.
func ParseFilters(c *gin.Context) (model.FilterState, error) {
	filters := model.DefaultFilterState()
	var errs []error

	for _, value := range c.QueryArray("genre") {
		genreID, err := strconv.Atoi(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid genre %q: %w", value, err))
			continue
		}
		if !filters.HasGenre(genreID) {
			filters.Genres = append(filters.Genres, genreID)
		}
	}
	if value, ok := c.GetQuery("min"); ok {
		rating, err := strconv.ParseFloat(value, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid minimum rating %q: %w", value, err))
		} else {
			filters.Rating.Min = rating
		}
	}
	if value, ok := c.GetQuery("max"); ok {
		rating, err := strconv.ParseFloat(value, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid maximum rating %q: %w", value, err))
		} else {
			filters.Rating.Max = rating
		}
	}
	filters.Rating = filters.Rating.Normalized()

	sort, err := model.ParseSortKey(c.Query("sort"))
	if err != nil {
		errs = append(errs, err)
	}
	filters.Sort = sort

	return filters, errors.Join(errs...)
}
