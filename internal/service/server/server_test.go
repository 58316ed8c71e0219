package server_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agurato/cinefin/internal/business"
	"github.com/Agurato/cinefin/internal/infrastructure"
	"github.com/Agurato/cinefin/internal/model"
	"github.com/Agurato/cinefin/internal/service/server"
)

// fakeCatalog serves ten pages of twenty movies for every list
type fakeCatalog struct {
	mu    sync.Mutex
	calls int
}

func (fc *fakeCatalog) page(base int64, page int) model.MoviePage {
	fc.mu.Lock()
	fc.calls++
	fc.mu.Unlock()

	result := model.MoviePage{Page: page, TotalPages: 10}
	for i := 0; i < 20; i++ {
		id := base + int64((page-1)*20+i)
		result.Results = append(result.Results, model.MovieSummary{
			ID:           id,
			Title:        fmt.Sprintf("Movie %d", id),
			PosterPath:   fmt.Sprintf("/%d.jpg", id),
			BackdropPath: fmt.Sprintf("/b%d.jpg", id),
			VoteAverage:  float64(id%10) + 0.5,
			ReleaseDate:  "2003-05-30",
			GenreIDs:     []int{16, 35},
		})
	}
	return result
}

func (fc *fakeCatalog) TabMovies(_ context.Context, tab model.Tab, page int) (model.MoviePage, error) {
	return fc.page(int64(len(tab))*1000, page), nil
}

func (fc *fakeCatalog) TopRatedMovies(ctx context.Context, page int) (model.MoviePage, error) {
	return fc.TabMovies(ctx, model.TabTopRated, page)
}

func (fc *fakeCatalog) SearchMovies(_ context.Context, query string, page int) (model.MoviePage, error) {
	return fc.page(90000, page), nil
}

func (fc *fakeCatalog) MovieDetails(_ context.Context, movieID int64) (model.MovieDetail, error) {
	if movieID != 12 {
		return model.MovieDetail{}, &model.FetchError{Kind: model.FetchErrorStatus, StatusCode: http.StatusNotFound}
	}
	return model.MovieDetail{
		ID:                  12,
		Title:               "Finding Nemo",
		OriginalTitle:       "Finding Nemo",
		PosterPath:          "/nemo.jpg",
		ReleaseDate:         "2003-05-30",
		Runtime:             100,
		Budget:              94000000,
		VoteAverage:         7.8,
		Genres:              []model.Genre{{ID: 16, Name: "Animation"}},
		ProductionCountries: []model.ProductionCountry{{Iso3166_1: "US", Name: "United States of America"}},
	}, nil
}

func (fc *fakeCatalog) MovieCredits(_ context.Context, movieID int64) (model.Credits, error) {
	return model.Credits{Crew: []model.CrewMember{{Name: "Andrew Stanton", Job: "Director"}}}, nil
}

func (fc *fakeCatalog) MovieImages(_ context.Context, movieID int64) (model.Images, error) {
	return model.Images{}, &model.FetchError{Kind: model.FetchErrorNetwork}
}

func (fc *fakeCatalog) MovieRecommendations(_ context.Context, movieID int64) (model.MoviePage, error) {
	return fc.page(7000, 1), nil
}

func (fc *fakeCatalog) SimilarMovies(_ context.Context, movieID int64) (model.MoviePage, error) {
	return model.MoviePage{}, nil
}

func (fc *fakeCatalog) MovieVideos(_ context.Context, movieID int64) (model.Videos, error) {
	return model.Videos{Results: []model.Video{{Key: "abc", Site: "YouTube", Type: "Trailer"}}}, nil
}

func (fc *fakeCatalog) GetPosterLink(key string) string {
	if key == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/w500" + key
}

func (fc *fakeCatalog) GetBackdropLink(key string) string {
	return "https://image.tmdb.org/t/p/w1280" + key
}

type fakeCacher struct{}

func (fakeCacher) GetCachedPath(filePath string) string {
	return "/nonexistent" + filePath
}

type fakeTracker struct{ pending int }

func (ft fakeTracker) Pending() int { return ft.pending }

type testServer struct {
	router  *gin.Engine
	cookies []*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := &fakeCatalog{}
	store := infrastructure.NewMemoryStore()
	favorites := business.NewFavoritesManager(infrastructure.NewPreference[[]int64](store, infrastructure.KeyFavorites, []int64{}))
	themes := business.NewThemeManager(infrastructure.NewPreference(store, infrastructure.KeyTheme, true))
	registry := business.NewBrowserRegistry(catalog, business.BrowserOptions{
		ScrollDebounce: 5 * time.Millisecond,
		RatingDebounce: 10 * time.Millisecond,
	})
	t.Cleanup(registry.Close)
	movies := business.NewMovieManager(catalog, nil, nil)

	router := server.NewServer(
		server.ServerOptions{
			CookieSecret:  "secret",
			TemplatesGlob: "../../../web/templates/**/*",
			StaticPath:    "../../../web/static",
			Gatherer:      prometheus.NewRegistry(),
		},
		server.NewMainHandler(fakeCacher{}, themes, movies, fakeTracker{pending: 2}),
		server.NewMovieHandler(movies, favorites, registry, business.NewPaginater[int64](20)),
		server.NewAPIHandler(registry, favorites, catalog),
	)
	return &testServer{router: router}
}

// do sends a request as the same visitor every time
func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("content-type", "application/json")
	}
	for _, cookie := range ts.cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		ts.cookies = cookies
	}
	return w
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"pending":2,"loading":true}`, w.Body.String())
}

func TestToggleFavorite(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/favorites/12/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":12,"favorite":true}`, w.Body.String())
	require.NotEmpty(t, ts.cookies)

	w = ts.do(http.MethodPost, "/api/favorites/45/toggle", "")
	assert.JSONEq(t, `{"id":45,"favorite":true}`, w.Body.String())
	w = ts.do(http.MethodPost, "/api/favorites/12/toggle", "")
	assert.JSONEq(t, `{"id":12,"favorite":false}`, w.Body.String())

	w = ts.do(http.MethodPost, "/api/favorites/abc/toggle", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestViewMovies(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/categoryMovies?tab=upcoming", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Movie 8000")

	w = ts.do(http.MethodGet, "/api/views/category/movies?offset=15", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp server.ViewMoviesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Movies, 5)
	assert.Equal(t, 15, resp.Offset)
	assert.Equal(t, 1, resp.Page)
	assert.True(t, resp.HasMore)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/8015.jpg", resp.Movies[0].PosterURL)
	assert.Equal(t, []string{"Animation", "Comedy"}, resp.Movies[0].Genres)

	w = ts.do(http.MethodPost, "/api/scroll", `{"view":"category","scrollTop":4000,"scrollHeight":5000,"clientHeight":800}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Eventually(t, func() bool {
		w := ts.do(http.MethodGet, "/api/views/category/movies?offset=20", "")
		var resp server.ViewMoviesResponse
		return json.Unmarshal(w.Body.Bytes(), &resp) == nil && len(resp.Movies) == 20 && resp.Page == 2
	}, time.Second, 5*time.Millisecond)

	// the page script waits for the page after this one on its next scroll
	body := ts.do(http.MethodGet, "/categoryMovies?tab=upcoming", "").Body.String()
	assert.Contains(t, body, `data-page="2"`)
	assert.Contains(t, body, `data-offset="40"`)

	w = ts.do(http.MethodGet, "/api/views/nope/movies", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(http.MethodGet, "/api/views/search/movies?offset=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(http.MethodPost, "/api/scroll", `{"scrollTop":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRatingFilter(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/filteredMovies?min=2&max=9&sort=rating_desc&genre=16", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodPost, "/api/filters/rating", `{"min":8,"max":5}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"min":5,"max":8}`, w.Body.String())

	assert.Eventually(t, func() bool {
		w := ts.do(http.MethodGet, "/api/views/filtered/movies", "")
		var resp server.ViewMoviesResponse
		if json.Unmarshal(w.Body.Bytes(), &resp) != nil || resp.State == "loading" || len(resp.Movies) == 0 {
			return false
		}
		for _, movie := range resp.Movies {
			if movie.VoteAverage < 5 || movie.VoteAverage > 8 {
				return false
			}
		}
		return resp.Replace
	}, time.Second, 5*time.Millisecond)
}

func TestPages(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		target   string
		code     int
		contains string
	}{
		{"/", http.StatusOK, "Popular Movies"},
		{"/categoryMovies?tab=nope", http.StatusOK, "Movie 7000"},
		{"/filteredMovies", http.StatusOK, "Title A-Z"},
		{"/search", http.StatusOK, "Enter a movie title"},
		{"/search?q=movie+90003", http.StatusOK, "Best match"},
		{"/favorites", http.StatusOK, "No favorite movies yet"},
		{"/movie/12", http.StatusOK, "Andrew Stanton"},
		{"/movie/13", http.StatusNotFound, "404"},
		{"/movie/abc", http.StatusNotFound, "404"},
		{"/nope", http.StatusNotFound, "404"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := ts.do(http.MethodGet, tt.target, "")
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}

	t.Run("MovieDetails", func(t *testing.T) {
		body := ts.do(http.MethodGet, "/movie/12", "").Body.String()
		assert.Contains(t, body, "1h 40m")
		assert.Contains(t, body, "$94,000,000")
		assert.Contains(t, body, "May 30, 2003")
		assert.Contains(t, body, "United States")
		assert.Contains(t, body, "https://www.youtube.com/embed/abc")
		assert.Contains(t, body, server.ErrorMessage, "images failed to load")
	})

	t.Run("Favorites", func(t *testing.T) {
		ts.do(http.MethodPost, "/api/favorites/12/toggle", "")
		body := ts.do(http.MethodGet, "/favorites", "").Body.String()
		assert.Contains(t, body, "Finding Nemo")
	})

	t.Run("Theme", func(t *testing.T) {
		assert.Contains(t, ts.do(http.MethodGet, "/", "").Body.String(), `data-theme="dark"`)
		req := httptest.NewRequest(http.MethodPost, "/theme", nil)
		req.Header.Set("Referer", "http://localhost/favorites?page=1")
		for _, cookie := range ts.cookies {
			req.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/favorites?page=1", w.Header().Get("Location"))
		assert.Contains(t, ts.do(http.MethodGet, "/", "").Body.String(), `data-theme="light"`)
	})

	t.Run("Metrics", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/metrics", "").Code)
	})
}
