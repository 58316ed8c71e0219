package business

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Agurato/cinefin/internal/model"
)

// RenderMovies returns the movies matching the filters, in the requested order.
// A movie matches when it shares a genre with the selection (any genre if none is selected)
// and its rating is within the range, bounds included.
// The input is never modified, and movies that compare equal keep their relative order.
func RenderMovies(movies []model.MovieSummary, filters model.FilterState) []model.MovieSummary {
	rating := filters.Rating.Normalized()
	filtered := lo.Filter(movies, func(movie model.MovieSummary, _ int) bool {
		return (len(filters.Genres) == 0 || movie.HasGenre(filters.Genres...)) && rating.Contains(movie.VoteAverage)
	})
	slices.SortStableFunc(filtered, movieComparator(filters.Sort))
	return filtered
}

func movieComparator(key model.SortKey) func(a, b model.MovieSummary) int {
	switch key {
	case model.SortPopularityAsc:
		return func(a, b model.MovieSummary) int { return cmp.Compare(a.Popularity, b.Popularity) }
	case model.SortRatingDesc:
		return func(a, b model.MovieSummary) int { return cmp.Compare(b.VoteAverage, a.VoteAverage) }
	case model.SortRatingAsc:
		return func(a, b model.MovieSummary) int { return cmp.Compare(a.VoteAverage, b.VoteAverage) }
	case model.SortReleaseDesc:
		return func(a, b model.MovieSummary) int { return b.Released().Compare(a.Released()) }
	case model.SortReleaseAsc:
		return func(a, b model.MovieSummary) int { return a.Released().Compare(b.Released()) }
	case model.SortTitleAsc:
		collator := collate.New(language.English)
		return func(a, b model.MovieSummary) int { return collator.CompareString(a.Title, b.Title) }
	case model.SortTitleDesc:
		collator := collate.New(language.English)
		return func(a, b model.MovieSummary) int { return collator.CompareString(b.Title, a.Title) }
	}
	return func(a, b model.MovieSummary) int { return cmp.Compare(b.Popularity, a.Popularity) }
}

// GenreOption is a genre checkbox of the filters form
type GenreOption struct {
	model.Genre
	Selected bool
}

// GetGenreOptions lists every movie genre, flagging the selected ones
func GetGenreOptions(filters model.FilterState) []GenreOption {
	return lo.Map(model.MovieGenres, func(genre model.Genre, _ int) GenreOption {
		return GenreOption{Genre: genre, Selected: filters.HasGenre(genre.ID)}
	})
}
