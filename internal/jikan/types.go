package jikan

// Ref is the {mal_id, name, type} reference used for genres, studios and
// relation entries.
type Ref struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

type Relation struct {
	Relation string `json:"relation"`
	Entry    []Ref  `json:"entry"`
}

type Images struct {
	JPG struct {
		ImageURL      string `json:"image_url"`
		LargeImageURL string `json:"large_image_url"`
	} `json:"jpg"`
}

// Anime is the data block shared by single and list endpoints. Nullable
// numbers decode as zero.
type Anime struct {
	MalID         int     `json:"mal_id"`
	Title         string  `json:"title"`
	TitleEnglish  string  `json:"title_english"`
	TitleJapanese string  `json:"title_japanese"`
	Synopsis      string  `json:"synopsis"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	Season        string  `json:"season"`
	Year          int     `json:"year"`
	Episodes      int     `json:"episodes"`
	Duration      string  `json:"duration"`
	Rating        string  `json:"rating"`
	Score         float64 `json:"score"`
	Rank          int     `json:"rank"`
	Popularity    int     `json:"popularity"`
	Aired         struct {
		From   string `json:"from"`
		String string `json:"string"`
	} `json:"aired"`
	Images    Images     `json:"images"`
	Genres    []Ref      `json:"genres"`
	Studios   []Ref      `json:"studios"`
	Relations []Relation `json:"relations"`
}

type AnimeResponse struct {
	Data Anime `json:"data"`
}

type Pagination struct {
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
	CurrentPage     int  `json:"current_page"`
}

type AnimeListResponse struct {
	Data       []Anime    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type Recommendation struct {
	Entry struct {
		MalID  int    `json:"mal_id"`
		Title  string `json:"title"`
		Images Images `json:"images"`
	} `json:"entry"`
	Votes int `json:"votes"`
}

type RecommendationsResponse struct {
	Data []Recommendation `json:"data"`
}
