package model

import "fmt"

// Tab is one of the category listings
type Tab string

const (
	TabPopular    Tab = "popular"
	TabTopRated   Tab = "top-rated"
	TabUpcoming   Tab = "upcoming"
	TabNowPlaying Tab = "now-playing"
)

// Tabs lists the category tabs in display order
var Tabs = []Tab{TabPopular, TabTopRated, TabUpcoming, TabNowPlaying}

// ParseTab returns the tab for its URL value. An empty value selects the popular tab.
func ParseTab(value string) (Tab, error) {
	if value == "" {
		return TabPopular, nil
	}
	for _, tab := range Tabs {
		if string(tab) == value {
			return tab, nil
		}
	}
	return TabPopular, fmt.Errorf("%w: %q", ErrUnknownTab, value)
}

// Label is the heading displayed for the tab
func (t Tab) Label() string {
	switch t {
	case TabPopular:
		return "Popular Movies"
	case TabTopRated:
		return "Top Rated Movies"
	case TabUpcoming:
		return "Upcoming Movies"
	case TabNowPlaying:
		return "Now Playing Movies"
	}
	return string(t)
}
