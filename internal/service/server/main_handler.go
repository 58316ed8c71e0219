package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/cinefin/internal/business"
)

type MainCacher interface {
	GetCachedPath(filePath string) string
}

type MainThemeManager interface {
	IsDark(ctx context.Context, visitor string) bool
	ToggleTheme(ctx context.Context, visitor string) (bool, error)
}

type MainHomeGetter interface {
	GetHome(ctx context.Context) business.HomeView
}

// MainRequestTracker reports the remote requests in flight
type MainRequestTracker interface {
	Pending() int
}

type MainHandler struct {
	MainCacher
	MainThemeManager
	MainHomeGetter
	MainRequestTracker
}

func NewMainHandler(mc MainCacher, mtm MainThemeManager, mhg MainHomeGetter, mrt MainRequestTracker) *MainHandler {
	return &MainHandler{
		MainCacher:         mc,
		MainThemeManager:   mtm,
		MainHomeGetter:     mhg,
		MainRequestTracker: mrt,
	}
}

// WithTheme reads the visitor theme for RenderHTML
func (mh MainHandler) WithTheme(c *gin.Context) {
	c.Set(DarkKey, mh.MainThemeManager.IsDark(c.Request.Context(), visitorID(c)))
	c.Next()
}

// Error404 displays the 404 page
func (mh MainHandler) Error404(c *gin.Context) {
	RenderHTML(c, http.StatusNotFound, "pages/404.go.html", gin.H{
		"title": "404 - Not Found",
	})
}

// GETIndex displays the index page
func (mh MainHandler) GETIndex(c *gin.Context) {
	home := mh.MainHomeGetter.GetHome(c.Request.Context())
	RenderHTML(c, http.StatusOK, "pages/index.go.html", gin.H{
		"title":    "cinefin",
		"home":     home,
		"errorMsg": ErrorMessage,
	})
}

// POSTTheme switches between the dark and light themes
func (mh MainHandler) POSTTheme(c *gin.Context) {
	dark, err := mh.MainThemeManager.ToggleTheme(c.Request.Context(), visitorID(c))
	if err != nil {
		log.Error().Err(err).Msg("Could not toggle theme")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save the theme"})
		return
	}
	if c.GetHeader("accept") == "application/json" {
		c.JSON(http.StatusOK, gin.H{"dark": dark})
		return
	}
	// Only keep the path of the referer so that the redirection stays on this site
	back := "/"
	if referer, err := url.Parse(c.Request.Referer()); err == nil && strings.HasPrefix(referer.Path, "/") && !strings.HasPrefix(referer.Path, "//") {
		back = (&url.URL{Path: referer.Path, RawQuery: referer.RawQuery}).String()
	}
	c.Redirect(http.StatusSeeOther, back)
}

// GETStatus reports whether remote requests are in flight, for the global loading bar
func (mh MainHandler) GETStatus(c *gin.Context) {
	pending := mh.MainRequestTracker.Pending()
	c.JSON(http.StatusOK, gin.H{
		"pending": pending,
		"loading": pending > 0,
	})
}

// GETCache serves the cached file
func (mh MainHandler) GETCache(c *gin.Context) {
	cachedFilePath := c.Param("path")
	if cachedFilePath == "" || cachedFilePath == "/" {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	c.File(mh.MainCacher.GetCachedPath(cachedFilePath))
}
