package model

import "time"

// ReleaseDateLayout is the layout TMDB uses for release dates
const ReleaseDateLayout = "2006-01-02"

// MovieSummary is a movie as it appears in a TMDB list or search result
type MovieSummary struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	PosterPath    string  `json:"poster_path"`
	BackdropPath  string  `json:"backdrop_path"`
	VoteAverage   float64 `json:"vote_average"`
	ReleaseDate   string  `json:"release_date"`
	Popularity    float64 `json:"popularity"`
	GenreIDs      []int   `json:"genre_ids"`
	Overview      string  `json:"overview"`
}

// Released parses the release date. Movies without a parseable date return the zero time.
func (m MovieSummary) Released() time.Time {
	t, err := time.Parse(ReleaseDateLayout, m.ReleaseDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// HasGenre returns true if the movie belongs to at least one of the genres
func (m MovieSummary) HasGenre(genreIDs ...int) bool {
	for _, want := range genreIDs {
		for _, got := range m.GenreIDs {
			if want == got {
				return true
			}
		}
	}
	return false
}

// MoviePage is one page of a paginated TMDB list
type MoviePage struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	Results      []MovieSummary `json:"results"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ProductionCountry struct {
	Iso3166_1 string `json:"iso_3166_1"`
	Name      string `json:"name"`
}

// MovieDetail is the payload of the movie details endpoint
type MovieDetail struct {
	ID                  int64               `json:"id"`
	IMDbID              string              `json:"imdb_id"`
	Title               string              `json:"title"`
	OriginalTitle       string              `json:"original_title"`
	Tagline             string              `json:"tagline"`
	Overview            string              `json:"overview"`
	PosterPath          string              `json:"poster_path"`
	BackdropPath        string              `json:"backdrop_path"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int64               `json:"vote_count"`
	ReleaseDate         string              `json:"release_date"`
	Popularity          float64             `json:"popularity"`
	Runtime             int                 `json:"runtime"`
	Budget              int64               `json:"budget"`
	Revenue             int64               `json:"revenue"`
	Status              string              `json:"status"`
	Genres              []Genre             `json:"genres"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
}

// Summary narrows the details down to what a list entry holds
func (d MovieDetail) Summary() MovieSummary {
	genreIDs := make([]int, 0, len(d.Genres))
	for _, g := range d.Genres {
		genreIDs = append(genreIDs, g.ID)
	}
	return MovieSummary{
		ID:            d.ID,
		Title:         d.Title,
		OriginalTitle: d.OriginalTitle,
		PosterPath:    d.PosterPath,
		BackdropPath:  d.BackdropPath,
		VoteAverage:   d.VoteAverage,
		ReleaseDate:   d.ReleaseDate,
		Popularity:    d.Popularity,
		GenreIDs:      genreIDs,
		Overview:      d.Overview,
	}
}

type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type CrewMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job"`
	Department  string `json:"department"`
	ProfilePath string `json:"profile_path"`
}

type Credits struct {
	ID   int64        `json:"id"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Director returns the first crew member credited as director
func (c Credits) Director() (CrewMember, bool) {
	for _, crew := range c.Crew {
		if crew.Job == "Director" {
			return crew, true
		}
	}
	return CrewMember{}, false
}

type Image struct {
	FilePath    string  `json:"file_path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	VoteAverage float64 `json:"vote_average"`
}

type Images struct {
	ID        int64   `json:"id"`
	Backdrops []Image `json:"backdrops"`
	Posters   []Image `json:"posters"`
	Logos     []Image `json:"logos"`
}

type Video struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

type Videos struct {
	ID      int64   `json:"id"`
	Results []Video `json:"results"`
}

// Trailer returns the first YouTube trailer
func (v Videos) Trailer() (Video, bool) {
	for _, video := range v.Results {
		if video.Type == "Trailer" && video.Site == "YouTube" {
			return video, true
		}
	}
	return Video{}, false
}

// ExternalRatings holds ratings scraped from other movie sites
type ExternalRatings struct {
	IMDb       string
	Letterboxd string
}
