package jikan

import "context"

// Provider is the port for fetching anime data from the Jikan/MAL API.
type Provider interface {
	GetAnime(ctx context.Context, malID int) (*AnimeResponse, error)
	Search(ctx context.Context, p SearchParams) (*AnimeListResponse, error)
	GetTop(ctx context.Context, filter TopFilter, limit int) (*AnimeListResponse, error)
	GetSeasonNow(ctx context.Context, limit int) (*AnimeListResponse, error)
	GetRecommendations(ctx context.Context, malID int) (*RecommendationsResponse, error)
	GetByGenres(ctx context.Context, genreIDs []int, limit int) (*AnimeListResponse, error)
}
