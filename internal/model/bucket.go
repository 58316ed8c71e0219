package model

// BucketState is where a page bucket stands in its loading cycle
type BucketState int

const (
	BucketEmpty BucketState = iota
	BucketLoading
	BucketReady
	BucketExhausted
)

func (s BucketState) String() string {
	switch s {
	case BucketLoading:
		return "loading"
	case BucketReady:
		return "ready"
	case BucketExhausted:
		return "exhausted"
	}
	return "empty"
}

// PageBucket holds the movies accumulated for one partition of a view
type PageBucket struct {
	Partition  string
	Page       int
	TotalPages int
	Movies     []MovieSummary
}

// BucketSnapshot is a copy of a bucket that can be read outside its event loop
type BucketSnapshot struct {
	PageBucket
	State BucketState
	Err   error
}

// HasMore returns true if scrolling further can still load movies
func (s BucketSnapshot) HasMore() bool {
	return s.State != BucketExhausted
}

// ScrollMetrics describes the viewport at the time of a scroll event
type ScrollMetrics struct {
	ScrollTop    float64 `json:"scrollTop"`
	ScrollHeight float64 `json:"scrollHeight"`
	ClientHeight float64 `json:"clientHeight"`
}

// Remaining is the distance left to scroll before the end of the document
func (m ScrollMetrics) Remaining() float64 {
	return m.ScrollHeight - (m.ScrollTop + m.ClientHeight)
}

// View names the browsing views that accumulate pages
type View string

const (
	ViewCategory View = "category"
	ViewFiltered View = "filtered"
	ViewSearch   View = "search"
)

// ParseView returns the view for its URL value
func ParseView(value string) (View, error) {
	switch View(value) {
	case ViewCategory, ViewFiltered, ViewSearch:
		return View(value), nil
	}
	return "", ErrUnknownView
}
