package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/Agurato/cinefin/internal/model"
)

// ImageLinker builds image URLs
type ImageLinker interface {
	GetPosterLink(key string) string
}

type APIHandler struct {
	BrowserGetter
	FavoritesManager
	ImageLinker
}

func NewAPIHandler(bg BrowserGetter, fm FavoritesManager, il ImageLinker) *APIHandler {
	return &APIHandler{
		BrowserGetter:    bg,
		FavoritesManager: fm,
		ImageLinker:      il,
	}
}

type scrollRequest struct {
	View model.View `json:"view" binding:"required"`
	model.ScrollMetrics
}

// MovieCard is a movie as the page scripts render it
type MovieCard struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	PosterURL   string   `json:"posterUrl"`
	VoteAverage float64  `json:"voteAverage"`
	Stars       []bool   `json:"stars"`
	Year        string   `json:"year"`
	Genres      []string `json:"genres"`
	Favorite    bool     `json:"favorite"`
}

// ViewMoviesResponse is the state of a paged view
type ViewMoviesResponse struct {
	Movies     []MovieCard `json:"movies"`
	Offset     int         `json:"offset"`
	Page       int         `json:"page"`
	TotalPages int         `json:"totalPages"`
	State      string      `json:"state"`
	HasMore    bool        `json:"hasMore"`
	Replace    bool        `json:"replace"`
	Error      string      `json:"error,omitempty"`
}

// POSTScroll records a scroll event. The next page loads in the background if the viewport is near the end.
func (ah APIHandler) POSTScroll(c *gin.Context) {
	var req scrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := ah.BrowserGetter.Get(visitorID(c)).Scroll(req.View, req.ScrollMetrics); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

// GETViewMovies returns the movies of a view from an offset on
func (ah APIHandler) GETViewMovies(c *gin.Context) {
	view, err := model.ParseView(c.Param("view"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	visitor := visitorID(c)
	snapshot, movies, err := ah.BrowserGetter.Get(visitor).Movies(c.Request.Context(), view, offset)
	if err != nil {
		log.Error().Err(err).Str("view", string(view)).Msg("Could not read view")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrorMessage})
		return
	}

	favorites := ah.FavoritesManager.FavoriteSet(c.Request.Context(), visitor)
	resp := ViewMoviesResponse{
		Movies: lo.Map(movies, func(movie model.MovieSummary, _ int) MovieCard {
			return ah.movieCard(movie, favorites[movie.ID])
		}),
		Offset:     offset,
		Page:       snapshot.Page,
		TotalPages: snapshot.TotalPages,
		State:      snapshot.State.String(),
		HasMore:    snapshot.HasMore(),
		// filtered movies are sorted as a whole, the grid is rendered again from scratch
		Replace: view == model.ViewFiltered,
		Error:   errorMessage(snapshot.Err),
	}
	if resp.Replace {
		resp.Offset = 0
	}
	c.JSON(http.StatusOK, resp)
}

// POSTRating changes the rating range of the filtered movies. Changes are applied once the range stops moving.
func (ah APIHandler) POSTRating(c *gin.Context) {
	var rating model.RatingRange
	if err := c.ShouldBindJSON(&rating); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rating = rating.Normalized()
	ah.BrowserGetter.Get(visitorID(c)).SetRating(rating)
	c.JSON(http.StatusAccepted, rating)
}

// POSTToggleFavorite adds a movie to the favorites, or removes it if it is already in them
func (ah APIHandler) POSTToggleFavorite(c *gin.Context) {
	movieID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || movieID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movie id"})
		return
	}
	favorite, err := ah.FavoritesManager.Toggle(c.Request.Context(), visitorID(c), movieID)
	if err != nil {
		log.Error().Err(err).Int64("movieID", movieID).Msg("Could not toggle favorite")
		c.JSON(http.StatusInternalServerError, gin.H{"error": ErrorMessage})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": movieID, "favorite": favorite})
}

func (ah APIHandler) movieCard(movie model.MovieSummary, favorite bool) MovieCard {
	year := ""
	if len(movie.ReleaseDate) >= 4 {
		year = movie.ReleaseDate[:4]
	}
	return MovieCard{
		ID:          movie.ID,
		Title:       movie.Title,
		PosterURL:   ah.ImageLinker.GetPosterLink(movie.PosterPath),
		VoteAverage: movie.VoteAverage,
		Stars:       stars(movie.VoteAverage),
		Year:        year,
		Genres: lo.FilterMap(lo.Slice(movie.GenreIDs, 0, 2), func(id int, _ int) (string, bool) {
			name := model.GenreName(id)
			return name, name != ""
		}),
		Favorite: favorite,
	}
}
