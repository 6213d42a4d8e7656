package domain

// AnimeTitle carries the alternative renderings of an anime title.
// Romaji is the only field the upstream catalog guarantees.
type AnimeTitle struct {
	English string `json:"english,omitempty"`
	Romaji  string `json:"romaji"`
	Native  string `json:"native,omitempty"`
}

// CoverImage holds the cover art URLs for an anime.
type CoverImage struct {
	Large  string `json:"large,omitempty"`
	Medium string `json:"medium,omitempty"`
}

// FuzzyDate is the upstream catalog's partial date; any component may be zero.
type FuzzyDate struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// AnimeTag is a descriptive tag attached to a title.
type AnimeTag struct {
	Name string `json:"name"`
}

// AiringEpisode describes the next scheduled episode of a releasing show.
type AiringEpisode struct {
	AiringAt int64 `json:"airingAt"`
	Episode  int   `json:"episode"`
}

// RelatedAnime is one edge of a title's relation graph, present on detail
// lookups only.
type RelatedAnime struct {
	ID           int    `json:"id"`
	RelationType string `json:"relationType"`
	Node         struct {
		ID         int        `json:"id"`
		Title      AnimeTitle `json:"title"`
		Type       string     `json:"type"`
		Format     string     `json:"format"`
		Episodes   int        `json:"episodes,omitempty"`
		CoverImage CoverImage `json:"coverImage"`
	} `json:"node"`
}

// AnimeMedia is one catalog item as returned by the upstream service.
type AnimeMedia struct {
	ID                int            `json:"id"`
	Title             AnimeTitle     `json:"title"`
	CoverImage        CoverImage     `json:"coverImage"`
	Description       string         `json:"description,omitempty"`
	Genres            []string       `json:"genres"`
	StartDate         FuzzyDate      `json:"startDate"`
	EndDate           FuzzyDate      `json:"endDate"`
	Status            string         `json:"status"`
	AverageScore      int            `json:"averageScore,omitempty"`
	Tags              []AnimeTag     `json:"tags"`
	NextAiringEpisode *AiringEpisode `json:"nextAiringEpisode,omitempty"`
	Episodes          int            `json:"episodes,omitempty"`
	Season            string         `json:"season,omitempty"`
	SeasonYear        int            `json:"seasonYear,omitempty"`
	Relations         *struct {
		Edges []RelatedAnime `json:"edges"`
	} `json:"relations,omitempty"`
}

// PageInfo is the upstream pagination envelope.
type PageInfo struct {
	HasNextPage bool `json:"hasNextPage"`
	CurrentPage int  `json:"currentPage"`
}

// CatalogPage is one page of listing results, shaped identically to the
// upstream response so cache hits are indistinguishable from live fetches.
type CatalogPage struct {
	Media    []AnimeMedia `json:"media"`
	PageInfo PageInfo     `json:"pageInfo"`
}
