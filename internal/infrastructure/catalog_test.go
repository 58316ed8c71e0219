package infrastructure_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agurato/cinefin/internal/infrastructure"
	"github.com/Agurato/cinefin/internal/model"
)

const popularPage = `{"page":1,"total_pages":3,"total_results":3,"results":[
{"id":12,"title":"Finding Nemo","vote_average":7.8,"release_date":"2003-05-30","popularity":80.5,"genre_ids":[16,10751]}]}`

func newCatalog(t *testing.T, handler http.HandlerFunc) (*infrastructure.Catalog, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	catalog, err := infrastructure.NewCatalog(infrastructure.CatalogOptions{
		BaseURL:     srv.URL + "/3",
		BearerToken: "token",
		Language:    "en-US",
		CacheTTL:    time.Minute,
		HTTPClient:  srv.Client(),
	})
	require.NoError(t, err)
	return catalog, srv
}

func TestNewCatalog(t *testing.T) {
	_, err := infrastructure.NewCatalog(infrastructure.CatalogOptions{BaseURL: "http://localhost"})
	assert.Error(t, err)

	_, err = infrastructure.NewCatalog(infrastructure.CatalogOptions{BaseURL: "::", BearerToken: "token"})
	assert.Error(t, err)
}

func TestCatalogFetch(t *testing.T) {
	t.Run("Request", func(t *testing.T) {
		var req *http.Request
		catalog, _ := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			req = r
			_, _ = w.Write([]byte(popularPage))
		})

		page, err := catalog.PopularMovies(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, "/3/movie/popular", req.URL.Path)
		assert.Equal(t, "en-US", req.URL.Query().Get("language"))
		assert.Equal(t, "2", req.URL.Query().Get("page"))
		assert.Equal(t, "Bearer token", req.Header.Get("Authorization"))
		assert.Equal(t, "application/json", req.Header.Get("accept"))

		assert.Equal(t, 3, page.TotalPages)
		require.Len(t, page.Results, 1)
		assert.Equal(t, int64(12), page.Results[0].ID)
		assert.Equal(t, []int{16, 10751}, page.Results[0].GenreIDs)
	})

	t.Run("Search", func(t *testing.T) {
		var req *http.Request
		catalog, _ := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			req = r
			_, _ = w.Write([]byte(popularPage))
		})

		_, err := catalog.SearchMovies(context.Background(), "nemo", 1)
		require.NoError(t, err)
		assert.Equal(t, "/3/search/movie", req.URL.Path)
		assert.Equal(t, "nemo", req.URL.Query().Get("query"))
		assert.Equal(t, "false", req.URL.Query().Get("include_adult"))
	})

	t.Run("Images", func(t *testing.T) {
		var req *http.Request
		catalog, _ := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			req = r
			_, _ = w.Write([]byte(`{"backdrops":[{"file_path":"/b.jpg"}],"posters":[]}`))
		})

		images, err := catalog.MovieImages(context.Background(), 12)
		require.NoError(t, err)
		assert.Equal(t, "/3/movie/12/images", req.URL.Path)
		assert.Empty(t, req.URL.RawQuery)
		assert.Len(t, images.Backdrops, 1)
	})

	t.Run("Cached", func(t *testing.T) {
		var calls atomic.Int32
		catalog, _ := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(popularPage))
		})

		_, err := catalog.PopularMovies(context.Background(), 1)
		require.NoError(t, err)
		_, err = catalog.PopularMovies(context.Background(), 1)
		require.NoError(t, err)
		assert.EqualValues(t, 1, calls.Load())

		_, err = catalog.PopularMovies(context.Background(), 2)
		require.NoError(t, err)
		assert.EqualValues(t, 2, calls.Load())
	})

	t.Run("Coalesced", func(t *testing.T) {
		var calls atomic.Int32
		release := make(chan struct{})
		catalog, _ := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			<-release
			_, _ = w.Write([]byte(popularPage))
		})

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := catalog.PopularMovies(context.Background(), 1)
				assert.NoError(t, err)
			}()
		}
		assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
		assert.True(t, catalog.Tracker().IsLoading())
		status, _ := catalog.Status(infrastructure.EndpointPopular, url.Values{"language": {"en-US"}, "page": {"1"}})
		assert.Equal(t, model.QueryPending, status)
		close(release)
		wg.Wait()

		assert.EqualValues(t, 1, calls.Load())
		assert.Equal(t, 0, catalog.Tracker().Pending())
	})

	t.Run("NotFound", func(t *testing.T) {
		catalog, _ := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
		})

		_, err := catalog.MovieDetails(context.Background(), 999)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrStatus))
		assert.True(t, errors.Is(err, model.ErrMovieNotFound))
		assert.False(t, errors.Is(err, model.ErrNetwork))

		var fetchErr *model.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
		assert.Equal(t, "The resource you requested could not be found.", fetchErr.Message)
	})

	t.Run("Network", func(t *testing.T) {
		catalog, srv := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {})
		srv.Close()

		_, err := catalog.TopRatedMovies(context.Background(), 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNetwork))
		assert.Equal(t, 0, catalog.Tracker().Pending())
	})

	t.Run("Malformed", func(t *testing.T) {
		catalog, _ := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"results":"nope"}`))
		})

		_, err := catalog.UpcomingMovies(context.Background(), 1)
		var fetchErr *model.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, model.FetchErrorDecode, fetchErr.Kind)
	})

	t.Run("ErrorsNotCached", func(t *testing.T) {
		var calls atomic.Int32
		catalog, _ := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(popularPage))
		})

		_, err := catalog.NowPlayingMovies(context.Background(), 1)
		require.Error(t, err)
		status, statusErr := catalog.Status(infrastructure.EndpointNowPlaying, url.Values{"language": {"en-US"}, "page": {"1"}})
		assert.Equal(t, model.QueryRejected, status)
		assert.Error(t, statusErr)

		_, err = catalog.NowPlayingMovies(context.Background(), 1)
		assert.NoError(t, err)
		assert.EqualValues(t, 2, calls.Load())
		status, _ = catalog.Status(infrastructure.EndpointNowPlaying, url.Values{"language": {"en-US"}, "page": {"1"}})
		assert.Equal(t, model.QueryFulfilled, status)
	})

	t.Run("CallerCanceled", func(t *testing.T) {
		release := make(chan struct{})
		catalog, _ := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			<-release
			_, _ = w.Write([]byte(popularPage))
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := catalog.PopularMovies(ctx, 1)
		assert.ErrorIs(t, err, context.Canceled)
		close(release)
		assert.Eventually(t, func() bool { return catalog.Tracker().Pending() == 0 }, time.Second, time.Millisecond)
	})
}

func TestCatalogMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := infrastructure.NewMetrics(reg)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":12,"title":"Finding Nemo"}`))
	}))
	defer srv.Close()

	catalog, err := infrastructure.NewCatalog(infrastructure.CatalogOptions{
		BaseURL:     srv.URL,
		BearerToken: "token",
		CacheTTL:    time.Minute,
		HTTPClient:  srv.Client(),
		Metrics:     metrics,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := catalog.MovieDetails(context.Background(), 12)
		require.NoError(t, err)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheMisses))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues("movie/:id", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.InFlight))
}

func TestImageLinks(t *testing.T) {
	catalog, _ := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {})

	assert.Equal(t, "https://image.tmdb.org/t/p/w500/poster.jpg", catalog.GetPosterLink("/poster.jpg"))
	assert.Equal(t, "https://image.tmdb.org/t/p/w1280/backdrop.jpg", catalog.GetBackdropLink("/backdrop.jpg"))
	assert.Empty(t, catalog.GetPosterLink(""))
}
