package business

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// FavoritesStorer persists the favorite movie ids of each visitor
type FavoritesStorer interface {
	Get(ctx context.Context, namespace string) []int64
	Update(ctx context.Context, namespace string, fn func([]int64) []int64) ([]int64, error)
}

// FavoritesManager maintains an ordered set of favorite movie ids per visitor.
// Every change rewrites the whole list before returning.
type FavoritesManager struct {
	FavoritesStorer
}

func NewFavoritesManager(fs FavoritesStorer) *FavoritesManager {
	return &FavoritesManager{FavoritesStorer: fs}
}

// Toggle adds the movie to the favorites if it is not in them, removes it otherwise.
// It returns whether the movie is a favorite after the change.
func (fm FavoritesManager) Toggle(ctx context.Context, visitor string, movieID int64) (bool, error) {
	var favorite bool
	_, err := fm.FavoritesStorer.Update(ctx, visitor, func(ids []int64) []int64 {
		ids = lo.Uniq(ids)
		if slices.Contains(ids, movieID) {
			favorite = false
			return lo.Without(ids, movieID)
		}
		favorite = true
		return append(ids, movieID)
	})
	if err != nil {
		return false, fmt.Errorf("could not toggle favorite %d: %w", movieID, err)
	}
	return favorite, nil
}

// Add adds the movie at the end of the favorites. Adding a favorite again does nothing.
func (fm FavoritesManager) Add(ctx context.Context, visitor string, movieID int64) error {
	_, err := fm.FavoritesStorer.Update(ctx, visitor, func(ids []int64) []int64 {
		ids = lo.Uniq(ids)
		if slices.Contains(ids, movieID) {
			return ids
		}
		return append(ids, movieID)
	})
	if err != nil {
		return fmt.Errorf("could not add favorite %d: %w", movieID, err)
	}
	return nil
}

// Remove removes the movie from the favorites, if it is in them
func (fm FavoritesManager) Remove(ctx context.Context, visitor string, movieID int64) error {
	_, err := fm.FavoritesStorer.Update(ctx, visitor, func(ids []int64) []int64 {
		return lo.Without(lo.Uniq(ids), movieID)
	})
	if err != nil {
		return fmt.Errorf("could not remove favorite %d: %w", movieID, err)
	}
	return nil
}

// IsFavorite returns true if the movie is in the favorites
func (fm FavoritesManager) IsFavorite(ctx context.Context, visitor string, movieID int64) bool {
	return slices.Contains(fm.FavoritesStorer.Get(ctx, visitor), movieID)
}

// ListFavoriteIDs returns the favorites, in the order they were added
func (fm FavoritesManager) ListFavoriteIDs(ctx context.Context, visitor string) []int64 {
	return lo.Uniq(fm.FavoritesStorer.Get(ctx, visitor))
}

// FavoriteSet returns the favorites as a set, for quick lookups while rendering a grid
func (fm FavoritesManager) FavoriteSet(ctx context.Context, visitor string) map[int64]bool {
	return lo.SliceToMap(fm.FavoritesStorer.Get(ctx, visitor), func(id int64) (int64, bool) {
		return id, true
	})
}
