package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/cinefin/internal/model"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/111.0.0.0 Safari/537.36"

// RatingScraper reads ratings from the IMDb and Letterboxd web pages
type RatingScraper struct {
	client        *http.Client
	imdbURL       string
	letterboxdURL string
}

// NewRatingScraper creates a scraper for the given site base URLs
func NewRatingScraper(client *http.Client, imdbURL, letterboxdURL string) *RatingScraper {
	if client == nil {
		client = http.DefaultClient
	}
	return &RatingScraper{
		client:        client,
		imdbURL:       strings.TrimRight(imdbURL, "/"),
		letterboxdURL: strings.TrimRight(letterboxdURL, "/"),
	}
}

// GetRatings fetches both ratings concurrently. A rating that cannot be fetched is left empty.
func (rs *RatingScraper) GetRatings(ctx context.Context, imdbID string) model.ExternalRatings {
	var (
		ratings model.ExternalRatings
		wg      sync.WaitGroup
	)
	if imdbID == "" {
		return ratings
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		rating, err := rs.GetIMDbRating(ctx, imdbID)
		if err != nil {
			log.Error().Err(err).Str("imdb_id", imdbID).Msg("Cannot fetch rating from IMDb")
		}
		ratings.IMDb = rating
	}()
	go func() {
		defer wg.Done()
		rating, err := rs.GetLetterboxdRating(ctx, imdbID)
		if err != nil {
			log.Error().Err(err).Str("imdb_id", imdbID).Msg("Cannot fetch rating from Letterboxd")
		}
		ratings.Letterboxd = rating
	}()
	wg.Wait()
	return ratings
}

// GetIMDbRating fetches the rating from the IMDb title page
func (rs *RatingScraper) GetIMDbRating(ctx context.Context, imdbID string) (string, error) {
	doc, err := rs.getDocument(ctx, fmt.Sprintf("%s/title/%s/", rs.imdbURL, imdbID))
	if err != nil {
		return "", err
	}
	rating := strings.TrimSpace(doc.Find(`[data-testid="hero-rating-bar__aggregate-rating__score"] span`).First().Text())
	if rating == "" {
		return "", errors.New("no rating in IMDb page")
	}
	return rating, nil
}

// GetLetterboxdRating fetches the rating from Letterboxd, looking the film up by its IMDb ID
func (rs *RatingScraper) GetLetterboxdRating(ctx context.Context, imdbID string) (string, error) {
	doc, err := rs.getDocument(ctx, fmt.Sprintf("%s/search/films/%s/", rs.letterboxdURL, imdbID))
	if err != nil {
		return "", err
	}
	filmURL, exists := doc.Find("#content > div > div > section > ul > li:nth-child(1) > div").First().Attr("data-target-link")
	if !exists {
		return "", errors.New("film not found on Letterboxd")
	}

	doc, err = rs.getDocument(ctx, fmt.Sprintf("%s/csi%srating-histogram/", rs.letterboxdURL, filmURL))
	if err != nil {
		return "", err
	}
	rating := strings.TrimSpace(doc.Find("a.display-rating").First().Text())
	if rating == "" {
		return "", errors.New("no rating in Letterboxd page")
	}
	return rating, nil
}

func (rs *RatingScraper) getDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("user-agent", userAgent)
	resp, err := rs.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, pageURL)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}
