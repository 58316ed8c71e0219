package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Image kinds, used as prefix of the cached file names
const (
	ImagePoster   = "poster"
	ImageBackdrop = "backdrop"
)

// Cache keeps downloaded images on disk
type Cache struct {
	cachePath string
	client    *http.Client
}

// NewCache initializes the cache folder
func NewCache(cachePath string, client *http.Client) (*Cache, error) {
	if err := os.MkdirAll(cachePath, 0755); err != nil {
		return nil, fmt.Errorf("could not create cache directory: %w", err)
	}
	cachePath, err := filepath.Abs(cachePath)
	if err != nil {
		return nil, fmt.Errorf("could not create cache directory: %w", err)
	}
	log.Info().Str("path", cachePath).Msg("Using cache directory")

	if client == nil {
		client = http.DefaultClient
	}
	return &Cache{
		cachePath: cachePath,
		client:    client,
	}, nil
}

// GetCachedPath returns the full path from a filepath in the cache
func (c Cache) GetCachedPath(filePath string) string {
	return filepath.Join(c.cachePath, filepath.Clean("/"+filePath))
}

// CachePoster caches a poster from a source URL and the unique key for this poster
func (c Cache) CachePoster(ctx context.Context, sourceUrl, key string) (hasToWait bool, err error) {
	return c.CacheFile(ctx, sourceUrl, ImagePoster+key)
}

// CacheBackdrop caches a backdrop from a source URL and the unique key for this backdrop
func (c Cache) CacheBackdrop(ctx context.Context, sourceUrl, key string) (hasToWait bool, err error) {
	return c.CacheFile(ctx, sourceUrl, ImageBackdrop+key)
}

// CacheFile caches a file from a sourceUrl to the filePath in the cache folder
// Returns true if the URL returns a Status TooManyRequests (429) and will retry at a later moment
// Returns false if the file was immediately cached
func (c Cache) CacheFile(ctx context.Context, sourceUrl string, filePath string) (hasToWait bool, err error) {
	// Create directories in the requested path if needed
	parent := c.GetCachedPath(filepath.Dir(filePath))
	if _, err := os.Stat(parent); errors.Is(err, os.ErrNotExist) {
		err = os.MkdirAll(parent, 0755)
		if err != nil {
			return false, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceUrl, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		waitSeconds, err := strconv.Atoi(resp.Header.Get("retry-after"))
		if err != nil {
			waitSeconds = 300 // Wait 5 minutes by default
		}
		time.AfterFunc(time.Duration(waitSeconds)*time.Second, func() {
			if _, err := c.CacheFile(context.Background(), sourceUrl, filePath); err != nil {
				log.Error().Err(err).Str("url", sourceUrl).Msg("Could not cache file after waiting")
			}
		})
		return true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("could not fetch source file: status %d", resp.StatusCode)
	}
	// Write to a temporary file first so that a partial download is never served
	tmp, err := os.CreateTemp(parent, ".download-*")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())
	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return false, err
	}
	if err := os.Rename(tmp.Name(), c.GetCachedPath(filePath)); err != nil {
		return false, err
	}
	log.Debug().Str("url", sourceUrl).Int64("size", n).Msg("Cached file")

	return false, nil
}

// IsCached returns true if a filepath is in the cache
func (c Cache) IsCached(filePath string) bool {
	_, err := os.Stat(c.GetCachedPath(filePath))
	return err == nil
}
