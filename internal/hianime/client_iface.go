package hianime

import (
	"context"

	"github.com/example/animelink/internal/domain"
)

// Provider is the port for the streaming catalog.
type Provider interface {
	Search(ctx context.Context, title string) ([]domain.Candidate, error)
	Episodes(ctx context.Context, catalogID string) ([]domain.EpisodeItem, error)
}
