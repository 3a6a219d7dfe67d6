// Package watch composes the metadata provider, the resolver and the
// streaming catalog into the "play episode N of MAL id X" flow.
package watch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/animelink/internal/cache"
	"github.com/example/animelink/internal/domain"
	"github.com/example/animelink/internal/fetch"
	"github.com/example/animelink/internal/hianime"
	"github.com/example/animelink/internal/jikan"
	"github.com/example/animelink/internal/platform/analytics"
	"github.com/example/animelink/internal/retry"
)

const (
	DetailsTTL  = 15 * time.Minute
	EpisodesTTL = 10 * time.Minute
)

var (
	ErrNotPlayable     = errors.New("watch: no confident catalog match")
	ErrNoEpisodes      = errors.New("watch: catalog has no episodes")
	ErrEpisodeNotFound = errors.New("watch: episode not found")
)

// AnimeSource fetches provider details for a MAL id.
type AnimeSource interface {
	GetAnime(ctx context.Context, malID int) (*jikan.AnimeResponse, error)
}

// Resolver maps a title query onto a catalog id.
type Resolver interface {
	ResolveWithFallback(ctx context.Context, q domain.TitleQuery) (domain.Resolution, error)
}

// Catalog lists episodes for a catalog id.
type Catalog interface {
	Episodes(ctx context.Context, catalogID string) ([]domain.EpisodeItem, error)
}

type Service struct {
	meta     AnimeSource
	resolver Resolver
	catalog  Catalog
	cache    cache.Store
	query    retry.Policy
	poll     retry.Policy
	events   *analytics.Publisher
	log      *zap.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithCache sets the store used for details and episode lists.
func WithCache(store cache.Store) Option {
	return func(s *Service) { s.cache = store }
}

// WithPolicies overrides the query retry and the empty-list poll schedules.
func WithPolicies(query, poll retry.Policy) Option {
	return func(s *Service) { s.query, s.poll = query, poll }
}

func WithPublisher(p *analytics.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func New(meta AnimeSource, r Resolver, catalog Catalog, opts ...Option) *Service {
	s := &Service{
		meta:     meta,
		resolver: r,
		catalog:  catalog,
		query:    retry.QueryPolicy(),
		poll:     retry.EpisodePollPolicy(),
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.cache == nil {
		s.cache = cache.NewEphemeral(cache.DefaultEphemeralTTL)
	}
	if s.query.Log == nil {
		s.query.Log = s.log
	}
	if s.poll.Log == nil {
		s.poll.Log = s.log
	}
	return s
}

// Resolved is a provider record together with its catalog resolution.
type Resolved struct {
	Anime      jikan.Anime       `json:"anime"`
	Query      domain.TitleQuery `json:"query"`
	Resolution domain.Resolution `json:"resolution"`
}

// ResolveAnime fetches details for malID and resolves its best title with
// the full strategy sequence.
func (s *Service) ResolveAnime(ctx context.Context, malID int) (Resolved, error) {
	a, err := s.Details(ctx, malID)
	if err != nil {
		return Resolved{}, err
	}
	q := jikan.Query(a)
	r := retry.Do(ctx, s.query, func(ctx context.Context) (domain.Resolution, error) {
		return s.resolver.ResolveWithFallback(ctx, q)
	}, fetch.Retryable)
	if r.Err != nil {
		return Resolved{Anime: a, Query: q}, fmt.Errorf("watch: resolve %q: %w", q.Title, r.Err)
	}
	return Resolved{Anime: a, Query: q, Resolution: r.Value}, nil
}

// Details returns the provider record for malID, read through the cache.
func (s *Service) Details(ctx context.Context, malID int) (jikan.Anime, error) {
	if malID <= 0 {
		return jikan.Anime{}, jikan.ErrInvalidID
	}
	return cache.Fetch(ctx, s.cache, "anime_details_"+strconv.Itoa(malID), DetailsTTL,
		func(ctx context.Context) (jikan.Anime, error) {
			r := retry.Do(ctx, s.query, func(ctx context.Context) (*jikan.AnimeResponse, error) {
				return s.meta.GetAnime(ctx, malID)
			}, fetch.Retryable)
			if r.Err != nil {
				return jikan.Anime{}, r.Err
			}
			return r.Value.Data, nil
		}, nil)
}

// EpisodeList is an ordered episode list. Attempts is the number of catalog
// polls it took; zero means it was served from the cache.
type EpisodeList struct {
	Items    []domain.EpisodeItem `json:"items"`
	Attempts int                  `json:"attempts"`
}

// Episodes lists the episodes of a playable resolution. An empty list is
// polled on the episode schedule and never cached.
func (s *Service) Episodes(ctx context.Context, res domain.Resolution) (EpisodeList, error) {
	if !res.Playable() {
		return EpisodeList{}, ErrNotPlayable
	}
	var attempts int
	items, err := cache.Fetch(ctx, s.cache, "episodes_"+res.ExternalID, EpisodesTTL,
		func(ctx context.Context) ([]domain.EpisodeItem, error) {
			r := retry.Poll(ctx, s.poll, func(ctx context.Context) ([]domain.EpisodeItem, error) {
				q := retry.Do(ctx, s.query, func(ctx context.Context) ([]domain.EpisodeItem, error) {
					return s.catalog.Episodes(ctx, res.ExternalID)
				}, fetch.Retryable)
				return q.Value, q.Err
			}, cache.NonEmpty[domain.EpisodeItem], nil)
			attempts = r.Attempts
			if r.Err != nil && !errors.Is(r.Err, retry.ErrNotReady) {
				return nil, r.Err
			}
			if len(r.Value) == 0 {
				s.log.Warn("episode list still empty", zap.String("external_id", res.ExternalID), zap.Int("attempts", r.Attempts))
				return []domain.EpisodeItem{}, nil
			}
			return r.Value, nil
		}, cache.NonEmpty[domain.EpisodeItem])
	if err != nil {
		return EpisodeList{Attempts: attempts}, fmt.Errorf("watch: episodes %s: %w", res.ExternalID, err)
	}
	s.events.Publish(analytics.SubjectEpisodesListed, "episodes_listed", "", map[string]any{
		"external_id": res.ExternalID,
		"count":       len(items),
		"attempts":    attempts,
	})
	return EpisodeList{Items: items, Attempts: attempts}, nil
}

// Playback is everything needed to start one episode.
type Playback struct {
	MalID      int                 `json:"malId"`
	Title      string              `json:"title"`
	Resolution domain.Resolution   `json:"resolution"`
	Episode    domain.EpisodeItem  `json:"episode"`
	Prev       *domain.EpisodeItem `json:"prev,omitempty"`
	Next       *domain.EpisodeItem `json:"next,omitempty"`
	Total      int                 `json:"total"`
	Lang       hianime.Lang        `json:"lang"`
	Server     hianime.Server      `json:"server"`
	URL        string              `json:"url"`
}

// Player resolves malID, lists its episodes and builds the player URL for
// episode number. A number <= 0 selects the first episode.
func (s *Service) Player(ctx context.Context, malID, number int, lang hianime.Lang, server hianime.Server) (Playback, error) {
	r, err := s.ResolveAnime(ctx, malID)
	if err != nil {
		return Playback{}, err
	}
	list, err := s.Episodes(ctx, r.Resolution)
	if err != nil {
		return Playback{}, err
	}
	if len(list.Items) == 0 {
		return Playback{}, ErrNoEpisodes
	}
	i := 0
	if number > 0 {
		i = indexOf(list.Items, number)
		if i < 0 {
			return Playback{}, fmt.Errorf("%w: %d of %d", ErrEpisodeNotFound, number, len(list.Items))
		}
	}

	if lang != hianime.LangDub {
		lang = hianime.LangSub
	}
	if server == "" {
		server = hianime.ServerHD1
	}
	pb := Playback{
		MalID:      malID,
		Title:      r.Query.Title,
		Resolution: r.Resolution,
		Episode:    list.Items[i],
		Total:      len(list.Items),
		Lang:       lang,
		Server:     server,
		URL:        hianime.PlayerURL(list.Items[i].EpisodeID, lang, server),
	}
	if i > 0 {
		prev := list.Items[i-1]
		pb.Prev = &prev
	}
	if i+1 < len(list.Items) {
		next := list.Items[i+1]
		pb.Next = &next
	}

	s.events.Publish(analytics.SubjectPlaybackRequested, "playback_requested", uuid.NewString(), map[string]any{
		"mal_id":      malID,
		"external_id": r.Resolution.ExternalID,
		"episode":     pb.Episode.Number,
		"lang":        string(lang),
		"server":      string(server),
	})
	s.log.Info("playback ready",
		zap.Int("mal_id", malID),
		zap.String("external_id", r.Resolution.ExternalID),
		zap.Int("episode", pb.Episode.Number),
	)
	return pb, nil
}

func indexOf(items []domain.EpisodeItem, number int) int {
	for i, ep := range items {
		if ep.Number == number {
			return i
		}
	}
	return -1
}
