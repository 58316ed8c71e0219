package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tmdb "github.com/cyruzin/golang-tmdb"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/Agurato/cinefin/internal/model"
)

// TMDB endpoints, relative to the API base URL
const (
	EndpointPopular    = "movie/popular"
	EndpointTopRated   = "movie/top_rated"
	EndpointUpcoming   = "movie/upcoming"
	EndpointNowPlaying = "movie/now_playing"
	EndpointSearch     = "search/movie"
)

// MovieEndpoint returns the endpoint of a movie sub-resource, or of the movie itself if resource is empty
func MovieEndpoint(movieID int64, resource string) string {
	if resource == "" {
		return "movie/" + strconv.FormatInt(movieID, 10)
	}
	return "movie/" + strconv.FormatInt(movieID, 10) + "/" + resource
}

// TabEndpoint returns the list endpoint backing a category tab
func TabEndpoint(tab model.Tab) (string, error) {
	switch tab {
	case model.TabPopular:
		return EndpointPopular, nil
	case model.TabTopRated:
		return EndpointTopRated, nil
	case model.TabUpcoming:
		return EndpointUpcoming, nil
	case model.TabNowPlaying:
		return EndpointNowPlaying, nil
	}
	return "", fmt.Errorf("%w: %q", model.ErrUnknownTab, tab)
}

// CatalogOptions configures a Catalog
type CatalogOptions struct {
	BaseURL     string
	BearerToken string
	Language    string
	CacheTTL    time.Duration
	Timeout     time.Duration
	RateLimit   float64
	HTTPClient  *http.Client
	Metrics     *Metrics
}

// Catalog reads movies from the TMDB API.
// Identical queries are served from a cache for its lifetime, and identical
// queries in flight at the same time share a single request.
type Catalog struct {
	baseURL     *url.URL
	bearerToken string
	language    string

	client  *http.Client
	limiter *rate.Limiter
	cache   *QueryCache
	group   singleflight.Group
	tracker *RequestTracker
	metrics *Metrics
}

// NewCatalog creates a Catalog
func NewCatalog(opts CatalogOptions) (*Catalog, error) {
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid TMDB base URL %q: %w", opts.BaseURL, err)
	}
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}
	if opts.BearerToken == "" {
		return nil, errors.New("a TMDB bearer token is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(opts.RateLimit)))
	}

	c := &Catalog{
		baseURL:     baseURL,
		bearerToken: opts.BearerToken,
		language:    opts.Language,
		client:      client,
		limiter:     limiter,
		cache:       NewQueryCache(opts.CacheTTL),
		metrics:     opts.Metrics,
	}
	c.tracker = NewRequestTracker(func(pending int) {
		if c.metrics != nil {
			c.metrics.InFlight.Set(float64(pending))
		}
	})
	return c, nil
}

// Tracker returns the counter of requests in flight
func (c *Catalog) Tracker() *RequestTracker {
	return c.tracker
}

// Cache returns the query cache
func (c *Catalog) Cache() *QueryCache {
	return c.cache
}

// QueryKey identifies a query in the cache. Arguments are encoded in key order.
func QueryKey(endpoint string, args url.Values) string {
	if len(args) == 0 {
		return endpoint
	}
	return endpoint + "?" + args.Encode()
}

// Status returns the status of a query
func (c *Catalog) Status(endpoint string, args url.Values) (model.QueryStatus, error) {
	return c.cache.Status(QueryKey(endpoint, args))
}

// Fetch returns the raw JSON payload of an endpoint
func (c *Catalog) Fetch(ctx context.Context, endpoint string, args url.Values) ([]byte, error) {
	key := QueryKey(endpoint, args)
	if data, ok := c.cache.Get(key); ok {
		c.countCache(true)
		return data, nil
	}
	c.countCache(false)

	// The shared request must outlive any single caller giving up on it
	sharedCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if data, ok := c.cache.Get(key); ok {
			return data, nil
		}
		c.cache.MarkPending(key)
		c.tracker.Start()
		defer c.tracker.Settle()

		data, err := c.do(sharedCtx, endpoint, args)
		if err != nil {
			c.cache.Reject(key, err)
			c.countRequest(endpoint, err)
			return nil, err
		}
		c.cache.Fulfill(key, data)
		c.countRequest(endpoint, nil)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// do issues the request. It never retries.
func (c *Catalog) do(ctx context.Context, endpoint string, args url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &model.FetchError{Kind: model.FetchErrorNetwork, Endpoint: endpoint, Err: err}
	}

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: endpoint, RawQuery: args.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, &model.FetchError{Kind: model.FetchErrorNetwork, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Msg("TMDB request failed")
		return nil, &model.FetchError{Kind: model.FetchErrorNetwork, Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.FetchError{Kind: model.FetchErrorNetwork, Endpoint: endpoint, Err: err}
	}
	log.Debug().Str("endpoint", endpoint).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("TMDB request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			StatusCode    int    `json:"status_code"`
			StatusMessage string `json:"status_message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		log.Warn().Str("endpoint", endpoint).Int("status", resp.StatusCode).Str("message", apiErr.StatusMessage).Msg("TMDB returned an error")
		return nil, &model.FetchError{
			Kind:       model.FetchErrorStatus,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    apiErr.StatusMessage,
		}
	}
	return body, nil
}

func (c *Catalog) countCache(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHits.Inc()
	} else {
		c.metrics.CacheMisses.Inc()
	}
}

func (c *Catalog) countRequest(endpoint string, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) {
		outcome = fetchErr.Kind.String()
	}
	c.metrics.Requests.WithLabelValues(endpointLabel(endpoint), outcome).Inc()
}

// fetchAs fetches an endpoint and decodes its payload
func fetchAs[T any](ctx context.Context, c *Catalog, endpoint string, args url.Values) (T, error) {
	var out T
	data, err := c.Fetch(ctx, endpoint, args)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, &model.FetchError{Kind: model.FetchErrorDecode, Endpoint: endpoint, Err: err}
	}
	return out, nil
}

func (c *Catalog) listArgs(page int) url.Values {
	if page < 1 {
		page = 1
	}
	return url.Values{
		"language": {c.language},
		"page":     {strconv.Itoa(page)},
	}
}

// ListMovies returns one page of a list endpoint
func (c *Catalog) ListMovies(ctx context.Context, endpoint string, page int) (model.MoviePage, error) {
	return fetchAs[model.MoviePage](ctx, c, endpoint, c.listArgs(page))
}

// TabMovies returns one page of a category tab
func (c *Catalog) TabMovies(ctx context.Context, tab model.Tab, page int) (model.MoviePage, error) {
	endpoint, err := TabEndpoint(tab)
	if err != nil {
		return model.MoviePage{}, err
	}
	return c.ListMovies(ctx, endpoint, page)
}

func (c *Catalog) PopularMovies(ctx context.Context, page int) (model.MoviePage, error) {
	return c.ListMovies(ctx, EndpointPopular, page)
}

func (c *Catalog) TopRatedMovies(ctx context.Context, page int) (model.MoviePage, error) {
	return c.ListMovies(ctx, EndpointTopRated, page)
}

func (c *Catalog) UpcomingMovies(ctx context.Context, page int) (model.MoviePage, error) {
	return c.ListMovies(ctx, EndpointUpcoming, page)
}

func (c *Catalog) NowPlayingMovies(ctx context.Context, page int) (model.MoviePage, error) {
	return c.ListMovies(ctx, EndpointNowPlaying, page)
}

// SearchMovies returns one page of search results. Adult titles are excluded.
func (c *Catalog) SearchMovies(ctx context.Context, query string, page int) (model.MoviePage, error) {
	args := c.listArgs(page)
	args.Set("query", query)
	args.Set("include_adult", "false")
	return fetchAs[model.MoviePage](ctx, c, EndpointSearch, args)
}

// MovieDetails returns the details of a movie
func (c *Catalog) MovieDetails(ctx context.Context, movieID int64) (model.MovieDetail, error) {
	return fetchAs[model.MovieDetail](ctx, c, MovieEndpoint(movieID, ""), url.Values{"language": {c.language}})
}

// MovieCredits returns the cast and crew of a movie
func (c *Catalog) MovieCredits(ctx context.Context, movieID int64) (model.Credits, error) {
	return fetchAs[model.Credits](ctx, c, MovieEndpoint(movieID, "credits"), url.Values{"language": {c.language}})
}

// MovieImages returns the posters and backdrops of a movie, in every language
func (c *Catalog) MovieImages(ctx context.Context, movieID int64) (model.Images, error) {
	return fetchAs[model.Images](ctx, c, MovieEndpoint(movieID, "images"), nil)
}

// MovieRecommendations returns the first page of recommendations for a movie
func (c *Catalog) MovieRecommendations(ctx context.Context, movieID int64) (model.MoviePage, error) {
	return fetchAs[model.MoviePage](ctx, c, MovieEndpoint(movieID, "recommendations"), c.listArgs(1))
}

// SimilarMovies returns the first page of movies similar to a movie
func (c *Catalog) SimilarMovies(ctx context.Context, movieID int64) (model.MoviePage, error) {
	return fetchAs[model.MoviePage](ctx, c, MovieEndpoint(movieID, "similar"), c.listArgs(1))
}

// MovieVideos returns the trailers, teasers and clips of a movie
func (c *Catalog) MovieVideos(ctx context.Context, movieID int64) (model.Videos, error) {
	return fetchAs[model.Videos](ctx, c, MovieEndpoint(movieID, "videos"), url.Values{"language": {c.language}})
}

// GetPosterLink returns the URL of a poster
func (c *Catalog) GetPosterLink(key string) string {
	if key == "" {
		return ""
	}
	return tmdb.GetImageURL(key, tmdb.W500)
}

// GetBackdropLink returns the URL of a backdrop
func (c *Catalog) GetBackdropLink(key string) string {
	if key == "" {
		return ""
	}
	return tmdb.GetImageURL(key, tmdb.W1280)
}
