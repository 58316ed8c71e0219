package business

import (
	"time"

	"github.com/Agurato/cinefin/internal/model"
)

// Distance to the end of the document under which the next page is requested
const (
	CategoryScrollThreshold = 400
	FilteredScrollThreshold = 500
	SearchScrollThreshold   = 300
)

// ScrollDebounce collapses bursts of scroll events
const ScrollDebounce = 50 * time.Millisecond

// ScrollThreshold returns the threshold of a view
func ScrollThreshold(view model.View) float64 {
	switch view {
	case model.ViewFiltered:
		return FilteredScrollThreshold
	case model.ViewSearch:
		return SearchScrollThreshold
	}
	return CategoryScrollThreshold
}

// NearEnd returns true if less than threshold is left to scroll
func NearEnd(m model.ScrollMetrics, threshold float64) bool {
	return m.Remaining() < threshold
}

// ScrollLoader requests the next page of a view when the viewport gets close to the end of the document
type ScrollLoader struct {
	threshold float64
	debouncer *Debouncer[model.ScrollMetrics]
}

// NewScrollLoader creates a loader. load is called, at most once per debounce window, when the viewport is near the end.
func NewScrollLoader(threshold float64, wait time.Duration, load func()) *ScrollLoader {
	sl := &ScrollLoader{threshold: threshold}
	sl.debouncer = NewDebouncer(wait, func(m model.ScrollMetrics) {
		if NearEnd(m, sl.threshold) {
			load()
		}
	})
	return sl
}

// OnScroll records a scroll event
func (sl *ScrollLoader) OnScroll(m model.ScrollMetrics) {
	sl.debouncer.Trigger(m)
}

// Stop drops a pending scroll event
func (sl *ScrollLoader) Stop() {
	sl.debouncer.Stop()
}
