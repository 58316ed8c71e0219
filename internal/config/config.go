package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

// Store backends
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Config holds every setting read from the environment
type Config struct {
	TMDBBearerToken string        `env:"TMDB_BEARER_TOKEN,required,notEmpty"`
	TMDBBaseURL     string        `env:"TMDB_BASE_URL" envDefault:"https://api.themoviedb.org/3/"`
	TMDBLanguage    string        `env:"TMDB_LANGUAGE" envDefault:"en-US"`
	TMDBRateLimit   float64       `env:"TMDB_RATE_LIMIT" envDefault:"40"`
	QueryCacheTTL   time.Duration `env:"QUERY_CACHE_TTL" envDefault:"60s"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	ListenAddr         string        `env:"LISTEN_ADDR" envDefault:":8080"`
	CookieSecret       string        `env:"COOKIE_SECRET,required,notEmpty"`
	TemplatesGlob      string        `env:"TEMPLATES_GLOB" envDefault:"web/templates/**/*"`
	StaticPath         string        `env:"STATIC_PATH" envDefault:"./web/static"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	ItemsPerPage       int64         `env:"ITEMS_PER_PAGE" envDefault:"20"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"sqlite"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"cinefin.db"`
	DBURL        string `env:"DB_URL" envDefault:"mongodb://localhost:27017"`
	DBName       string `env:"DB_NAME" envDefault:"cinefin"`

	CachePath string `env:"CACHE_PATH" envDefault:"./cache"`

	ExternalRatings   bool   `env:"EXTERNAL_RATINGS" envDefault:"false"`
	IMDbBaseURL       string `env:"IMDB_BASE_URL" envDefault:"https://www.imdb.com"`
	LetterboxdBaseURL string `env:"LETTERBOXD_BASE_URL" envDefault:"https://letterboxd.com"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// Load reads the optional .env files then parses the environment
func Load(envFiles ...string) (*Config, error) {
	// Missing .env files are not an error, the environment may be set elsewhere
	_ = godotenv.Load(envFiles...)

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("could not parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that the environment parser cannot
func (c Config) Validate() error {
	if _, err := language.Parse(c.TMDBLanguage); err != nil {
		return fmt.Errorf("invalid TMDB_LANGUAGE %q: %w", c.TMDBLanguage, err)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	switch c.StoreBackend {
	case StoreSQLite, StoreMongo:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: expected %q or %q", c.StoreBackend, StoreSQLite, StoreMongo)
	}
	if c.ItemsPerPage <= 0 {
		return fmt.Errorf("ITEMS_PER_PAGE must be positive, got %d", c.ItemsPerPage)
	}
	if c.TMDBRateLimit <= 0 {
		return fmt.Errorf("TMDB_RATE_LIMIT must be positive, got %g", c.TMDBRateLimit)
	}
	return nil
}
