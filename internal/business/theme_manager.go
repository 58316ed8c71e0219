package business

import (
	"context"
	"fmt"
)

// ThemeStorer persists the theme of each visitor, true meaning dark
type ThemeStorer interface {
	Get(ctx context.Context, namespace string) bool
	Update(ctx context.Context, namespace string, fn func(bool) bool) (bool, error)
}

type ThemeManager struct {
	ThemeStorer
}

func NewThemeManager(ts ThemeStorer) *ThemeManager {
	return &ThemeManager{ThemeStorer: ts}
}

// IsDark returns true if the visitor uses the dark theme, which is the default
func (tm ThemeManager) IsDark(ctx context.Context, visitor string) bool {
	return tm.ThemeStorer.Get(ctx, visitor)
}

// ToggleTheme switches between the dark and light themes and returns whether the dark one is now used
func (tm ThemeManager) ToggleTheme(ctx context.Context, visitor string) (bool, error) {
	dark, err := tm.ThemeStorer.Update(ctx, visitor, func(dark bool) bool { return !dark })
	if err != nil {
		return dark, fmt.Errorf("could not toggle theme: %w", err)
	}
	return dark, nil
}
