package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Agurato/cinefin/internal/model"
	"github.com/Agurato/cinefin/internal/service/server"
)

func TestParseFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)

	parse := func(query string) (model.FilterState, error) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/filteredMovies?"+query, nil)
		return server.ParseFilters(c)
	}

	t.Run("Default", func(t *testing.T) {
		filters, err := parse("")
		assert.NoError(t, err)
		assert.Equal(t, model.DefaultFilterState(), filters)
	})

	t.Run("Valid", func(t *testing.T) {
		filters, err := parse("genre=28&genre=16&genre=28&min=9&max=3.5&sort=title_asc")
		assert.NoError(t, err)
		assert.Equal(t, []int{28, 16}, filters.Genres)
		assert.Equal(t, model.RatingRange{Min: 3.5, Max: 9}, filters.Rating)
		assert.Equal(t, model.SortTitleAsc, filters.Sort)
	})

	t.Run("Invalid", func(t *testing.T) {
		filters, err := parse("genre=action&min=low&max=42&sort=random")
		assert.Error(t, err)
		assert.ErrorIs(t, err, model.ErrUnknownSortKey)
		assert.Empty(t, filters.Genres)
		assert.Equal(t, model.FullRatingRange, filters.Rating)
		assert.Equal(t, model.SortPopularityDesc, filters.Sort)
	})
}

func TestFuncMap(t *testing.T) {
	funcs := server.FuncMap()

	t.Run("Stars", func(t *testing.T) {
		stars := funcs["stars"].(func(float64) []bool)
		assert.Equal(t, []bool{true, true, true, true, false}, stars(7.8))
		assert.Equal(t, []bool{false, false, false, false, false}, stars(0))
		assert.Equal(t, []bool{true, true, true, true, true}, stars(10))
	})

	t.Run("Runtime", func(t *testing.T) {
		runtime := funcs["runtime"].(func(int) string)
		assert.Equal(t, "2h 5m", runtime(125))
		assert.Equal(t, "45m", runtime(45))
		assert.Equal(t, "", runtime(0))
	})

	t.Run("Money", func(t *testing.T) {
		money := funcs["money"].(func(int64) string)
		assert.Equal(t, "$1,234,567", money(1234567))
		assert.Equal(t, "-", money(0))
	})

	t.Run("LongDate", func(t *testing.T) {
		longDate := funcs["longDate"].(func(string) string)
		assert.Equal(t, "December 19, 1997", longDate("1997-12-19"))
		assert.Equal(t, "soon", longDate("soon"))
	})

	t.Run("Images", func(t *testing.T) {
		posterURL := funcs["posterURL"].(func(string) string)
		assert.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", posterURL("/abc.jpg"))
		assert.Equal(t, "", posterURL(""))
	})

	t.Run("CountryName", func(t *testing.T) {
		countryName := funcs["countryName"].(func(string) string)
		assert.Equal(t, "France", countryName("FR"))
		assert.Equal(t, "XX", countryName("XX"))
	})

	t.Run("Dict", func(t *testing.T) {
		dict := funcs["dict"].(func(...any) (map[string]any, error))
		d, err := dict("movie", 1, "favorite", true)
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"movie": 1, "favorite": true}, d)
		_, err = dict("odd")
		assert.Error(t, err)
	})
}
