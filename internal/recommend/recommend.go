// Package recommend picks titles to suggest next: related entries first,
// then genre neighbours, then the popularity chart.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/example/animelink/internal/cache"
	"github.com/example/animelink/internal/jikan"
)

// Kind names the tier a Result came from.
type Kind string

const (
	KindRelated Kind = "related"
	KindGenre   Kind = "genre"
	KindTop     Kind = "top"
)

const (
	RelatedTTL = 30 * time.Minute
	GenreTTL   = 30 * time.Minute
	TopTTL     = time.Hour

	maxGenres     = 2
	genreLimit    = 15
	topLimit      = 12
	maxConcurrent = 4
)

// RelationKinds are the relation labels treated as "related".
var RelationKinds = []string{"Sequel", "Prequel", "Spin-off", "Side story"}

// Source is the slice of the metadata provider used here.
type Source interface {
	GetAnime(ctx context.Context, malID int) (*jikan.AnimeResponse, error)
	GetByGenres(ctx context.Context, genreIDs []int, limit int) (*jikan.AnimeListResponse, error)
	GetTop(ctx context.Context, filter jikan.TopFilter, limit int) (*jikan.AnimeListResponse, error)
}

type Result struct {
	Items []jikan.Anime `json:"items"`
	Kind  Kind          `json:"kind"`
}

type Service struct {
	src   Source
	store cache.Store
	log   *zap.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithCache stores results under recommendations_<id>.
func WithCache(store cache.Store) Option {
	return func(s *Service) { s.store = store }
}

func New(src Source, opts ...Option) *Service {
	s := &Service{src: src, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// For returns recommendations for malID. Only a failed details lookup or a
// failed top chart is an error; the earlier tiers degrade silently.
func (s *Service) For(ctx context.Context, malID int) (Result, error) {
	if malID <= 0 {
		return Result{}, jikan.ErrInvalidID
	}
	key := "recommendations_" + strconv.Itoa(malID)
	if s.store != nil {
		var cached Result
		if ok, _ := s.store.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	details, err := s.src.GetAnime(ctx, malID)
	if err != nil {
		return Result{}, fmt.Errorf("recommend: details %d: %w", malID, err)
	}
	anime := details.Data

	if items := s.related(ctx, anime); len(items) > 0 {
		return s.save(ctx, key, Result{Items: items, Kind: KindRelated}, RelatedTTL), nil
	}
	if items := s.byGenre(ctx, anime); len(items) > 0 {
		return s.save(ctx, key, Result{Items: items, Kind: KindGenre}, GenreTTL), nil
	}

	top, err := s.src.GetTop(ctx, jikan.TopPopular, 0)
	if err != nil {
		return Result{}, fmt.Errorf("recommend: top: %w", err)
	}
	items := exclude(top.Data, malID)
	if len(items) > topLimit {
		items = items[:topLimit]
	}
	return s.save(ctx, key, Result{Items: items, Kind: KindTop}, TopTTL), nil
}

type relatedItem struct {
	idx   int
	anime jikan.Anime
	ok    bool
}

// related fetches the related entries concurrently and keeps the ones that
// loaded, in relation order.
func (s *Service) related(ctx context.Context, a jikan.Anime) []jikan.Anime {
	ids := jikan.RelatedIDs(a, RelationKinds...)
	if len(ids) == 0 {
		return nil
	}
	p := pool.NewWithResults[relatedItem]().WithMaxGoroutines(maxConcurrent)
	for i, id := range ids {
		p.Go(func() relatedItem {
			resp, err := s.src.GetAnime(ctx, id)
			if err != nil {
				s.log.Debug("related entry skipped", zap.Int("mal_id", id), zap.Error(err))
				return relatedItem{idx: i}
			}
			return relatedItem{idx: i, anime: resp.Data, ok: true}
		})
	}
	got := p.Wait()
	sort.Slice(got, func(i, j int) bool { return got[i].idx < got[j].idx })

	out := make([]jikan.Anime, 0, len(got))
	for _, r := range got {
		if r.ok {
			out = append(out, r.anime)
		}
	}
	return out
}

func (s *Service) byGenre(ctx context.Context, a jikan.Anime) []jikan.Anime {
	ids := jikan.GenreIDs(a, maxGenres)
	if len(ids) == 0 {
		return nil
	}
	list, err := s.src.GetByGenres(ctx, ids, genreLimit)
	if err != nil {
		s.log.Warn("genre recommendations failed", zap.Ints("genres", ids), zap.Error(err))
		return nil
	}
	return exclude(list.Data, a.MalID)
}

func (s *Service) save(ctx context.Context, key string, r Result, ttl time.Duration) Result {
	if s.store != nil {
		if err := s.store.Set(ctx, key, r, ttl); err != nil {
			s.log.Warn("recommendations not cached", zap.String("key", key), zap.Error(err))
		}
	}
	return r
}

func exclude(items []jikan.Anime, malID int) []jikan.Anime {
	out := make([]jikan.Anime, 0, len(items))
	for _, a := range items {
		if a.MalID != malID {
			out = append(out, a)
		}
	}
	return out
}
