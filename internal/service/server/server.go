package server

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strings"
	"time"

	tmdb "github.com/cyruzin/golang-tmdb"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pariz/gountries"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Agurato/cinefin/internal/model"
)

const (
	// VisitorKey is the session key of the visitor id, also set on the gin context
	VisitorKey = "visitor"
	// DarkKey is the gin context key of the visitor theme
	DarkKey = "dark"

	sessionName = "cinefin-session"
)

// ServerOptions holds what the router needs besides the handlers
type ServerOptions struct {
	CookieSecret  string
	TemplatesGlob string
	StaticPath    string
	Gatherer      prometheus.Gatherer
}

// NewServer initializes the router
func NewServer(opts ServerOptions, mainHandler *MainHandler, movieHandler *MovieHandler, apiHandler *APIHandler) *gin.Engine {
	router := gin.Default()
	_ = router.SetTrustedProxies(nil)

	// Cookies
	store := cookie.NewStore([]byte(opts.CookieSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 365 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	router.Use(sessions.Sessions(sessionName, store), visitorRequired)

	router.SetFuncMap(FuncMap())
	router.LoadHTMLGlob(opts.TemplatesGlob)

	// Static files
	router.Static("/static", opts.StaticPath)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	// 404
	router.NoRoute(mainHandler.WithTheme, mainHandler.Error404)

	pages := router.Group("/", mainHandler.WithTheme)
	{
		pages.GET("/", mainHandler.GETIndex)
		pages.GET("/categoryMovies", movieHandler.GETCategory)
		pages.GET("/filteredMovies", movieHandler.GETFiltered)
		pages.GET("/search", movieHandler.GETSearch)
		pages.GET("/favorites", movieHandler.GETFavorites)
		pages.GET("/movie/:id", movieHandler.GETMovie)
	}
	router.POST("/theme", mainHandler.POSTTheme)
	router.GET("/cache/*path", mainHandler.GETCache)

	RegisterAPI(router.Group("/api"), mainHandler, apiHandler)

	return router
}

// RegisterAPI adds the JSON endpoints used by the page scripts
func RegisterAPI(api *gin.RouterGroup, mainHandler *MainHandler, apiHandler *APIHandler) {
	api.GET("/status", mainHandler.GETStatus)
	api.POST("/scroll", apiHandler.POSTScroll)
	api.GET("/views/:view/movies", apiHandler.GETViewMovies)
	api.POST("/filters/rating", apiHandler.POSTRating)
	api.POST("/favorites/:id/toggle", apiHandler.POSTToggleFavorite)
}

// RenderHTML renders HTML pages and adds useful objects for templates
func RenderHTML(c *gin.Context, code int, name string, obj gin.H) {
	dark, ok := c.Get(DarkKey)
	if !ok {
		dark = true
	}
	obj["dark"] = dark
	obj["path"] = c.Request.URL.Path
	c.HTML(code, name, obj)
}

// visitorRequired gives every visitor a stable id, kept in the session cookie.
// The id namespaces the visitor's preferences and browsing session.
func visitorRequired(c *gin.Context) {
	session := sessions.Default(c)
	visitor, ok := session.Get(VisitorKey).(string)
	if !ok || visitor == "" {
		visitor = uuid.NewString()
		session.Set(VisitorKey, visitor)
		if err := session.Save(); err != nil {
			log.Error().Err(err).Msg("Could not save visitor session")
		}
	}
	c.Set(VisitorKey, visitor)
	c.Next()
}

// visitorID returns the id set by visitorRequired
func visitorID(c *gin.Context) string {
	return c.GetString(VisitorKey)
}

// FuncMap returns the template functions
func FuncMap() template.FuncMap {
	printer := message.NewPrinter(language.AmericanEnglish)
	return template.FuncMap{
		"add": func(a int, b int) int {
			return a + b
		},
		"countryName": func(code string) string {
			country, err := gountries.New().FindCountryByAlpha(code)
			if err != nil {
				return code
			}
			return country.Name.Common
		},
		"dict": func(pairs ...any) (map[string]any, error) {
			if len(pairs)%2 != 0 {
				return nil, errors.New("dict needs key and value pairs")
			}
			dict := make(map[string]any, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				key, ok := pairs[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
				}
				dict[key] = pairs[i+1]
			}
			return dict, nil
		},
		"genreName": model.GenreName,
		"joinStrings": func(sep string, elems ...string) string {
			return strings.Join(lo.Filter(elems, func(elem string, i int) bool {
				return len(elem) > 0
			}), sep)
		},
		"json": func(input any) template.JS {
			ret, _ := json.Marshal(input)
			return template.JS(ret)
		},
		"title":       cases.Title(language.English).String,
		"posterURL":   imageURL(tmdb.W500),
		"backdropURL": imageURL(tmdb.W1280),
		"photoURL":    imageURL(tmdb.W185),
		"thumbURL":    imageURL(tmdb.W300),
		"stars":       stars,
		"rating": func(vote float64) string {
			return printer.Sprintf("%.1f", vote)
		},
		"runtime": formatRuntime,
		"money": func(amount int64) string {
			if amount <= 0 {
				return "-"
			}
			return printer.Sprintf("$%d", amount)
		},
		"longDate": formatLongDate,
		"year": func(date string) string {
			if len(date) < 4 {
				return ""
			}
			return date[:4]
		},
		"youtubeURL": func(key string) string {
			return "https://www.youtube.com/embed/" + key
		},
	}
}

func imageURL(size string) func(key string) string {
	return func(key string) string {
		if key == "" {
			return ""
		}
		return tmdb.GetImageURL(key, size)
	}
}

// stars returns five booleans, true for each filled star of a 0-10 rating
func stars(vote float64) []bool {
	filled := int(math.Round(vote / 2))
	return lo.Times(5, func(i int) bool {
		return i < filled
	})
}

func formatRuntime(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func formatLongDate(date string) string {
	t, err := time.Parse(model.ReleaseDateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("January 2, 2006")
}
