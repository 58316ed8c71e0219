package model

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

const (
	MinRating = 0.0
	MaxRating = 10.0
)

// SortKey orders the filtered movies grid
type SortKey string

const (
	SortPopularityDesc SortKey = "popularity_desc"
	SortPopularityAsc  SortKey = "popularity_asc"
	SortRatingDesc     SortKey = "rating_desc"
	SortRatingAsc      SortKey = "rating_asc"
	SortReleaseDesc    SortKey = "release_desc"
	SortReleaseAsc     SortKey = "release_asc"
	SortTitleAsc       SortKey = "title_asc"
	SortTitleDesc      SortKey = "title_desc"
)

// SortKeys lists every sort key in display order
var SortKeys = []SortKey{
	SortPopularityDesc,
	SortPopularityAsc,
	SortRatingDesc,
	SortRatingAsc,
	SortReleaseDesc,
	SortReleaseAsc,
	SortTitleAsc,
	SortTitleDesc,
}

// ParseSortKey returns the sort key for its URL value. An empty value selects popularity descending.
func ParseSortKey(value string) (SortKey, error) {
	if value == "" {
		return SortPopularityDesc, nil
	}
	key := SortKey(value)
	if !slices.Contains(SortKeys, key) {
		return SortPopularityDesc, fmt.Errorf("%w: %q", ErrUnknownSortKey, value)
	}
	return key, nil
}

func (k SortKey) Label() string {
	switch k {
	case SortPopularityDesc:
		return "Popularity ↓"
	case SortPopularityAsc:
		return "Popularity ↑"
	case SortRatingDesc:
		return "Rating ↓"
	case SortRatingAsc:
		return "Rating ↑"
	case SortReleaseDesc:
		return "Release Date ↓"
	case SortReleaseAsc:
		return "Release Date ↑"
	case SortTitleAsc:
		return "Title A-Z"
	case SortTitleDesc:
		return "Title Z-A"
	}
	return string(k)
}

// RatingRange is an inclusive range of vote averages
type RatingRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FullRatingRange keeps every movie
var FullRatingRange = RatingRange{Min: MinRating, Max: MaxRating}

// Normalized clamps both bounds to [0, 10] and swaps them if needed so that Min <= Max
func (r RatingRange) Normalized() RatingRange {
	clamp := func(v float64) float64 {
		if math.IsNaN(v) {
			return MinRating
		}
		return math.Max(MinRating, math.Min(MaxRating, v))
	}
	r.Min, r.Max = clamp(r.Min), clamp(r.Max)
	if r.Min > r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}

// Contains returns true if the rating is within the range, bounds included
func (r RatingRange) Contains(rating float64) bool {
	return rating >= r.Min && rating <= r.Max
}

// FilterState is the set of filters applied to the filtered movies grid
type FilterState struct {
	Genres []int
	Rating RatingRange
	Sort   SortKey
}

// DefaultFilterState keeps every movie sorted by popularity
func DefaultFilterState() FilterState {
	return FilterState{
		Rating: FullRatingRange,
		Sort:   SortPopularityDesc,
	}
}

// Signature identifies the filter set. The accumulated pages restart whenever it changes.
func (fs FilterState) Signature() string {
	genres := slices.Clone(fs.Genres)
	slices.Sort(genres)
	genreStrs := make([]string, 0, len(genres))
	for _, g := range genres {
		genreStrs = append(genreStrs, strconv.Itoa(g))
	}
	return fmt.Sprintf("%s-%s-%g-%g", fs.Sort, strings.Join(genreStrs, ","), fs.Rating.Min, fs.Rating.Max)
}

// HasGenre returns true if the genre is selected
func (fs FilterState) HasGenre(genreID int) bool {
	return slices.Contains(fs.Genres, genreID)
}
