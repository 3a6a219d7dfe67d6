// Package resolver maps a metadata-provider title onto a streaming-catalog
// id: candidates are ranked by similarity plus metadata heuristics, and a
// fixed sequence of strategies trades precision for recall.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/animelink/internal/cache"
	"github.com/example/animelink/internal/domain"
	"github.com/example/animelink/internal/matching"
	"github.com/example/animelink/internal/platform/analytics"
)

// Searcher is the catalog search port.
type Searcher interface {
	Search(ctx context.Context, title string) ([]domain.Candidate, error)
}

const (
	DefaultHitTTL  = 24 * time.Hour
	DefaultMissTTL = 10 * time.Minute
)

// Strategy names, in the order they run.
const (
	StrategyDirect     = "direct"
	StrategyAlternate  = "alternate"
	StrategySimplified = "simplified"
)

type Resolver struct {
	search    Searcher
	durable   cache.Store
	ephemeral cache.Store
	hitTTL    time.Duration
	missTTL   time.Duration
	events    *analytics.Publisher
	log       *zap.Logger
}

// Option configures the Resolver.
type Option func(*Resolver)

func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithCache stores confident lookups in durable and misses in ephemeral.
// Either may be nil.
func WithCache(durable, ephemeral cache.Store) Option {
	return func(r *Resolver) { r.durable, r.ephemeral = durable, ephemeral }
}

func WithTTLs(hit, miss time.Duration) Option {
	return func(r *Resolver) {
		if hit > 0 {
			r.hitTTL = hit
		}
		if miss > 0 {
			r.missTTL = miss
		}
	}
}

func WithPublisher(p *analytics.Publisher) Option {
	return func(r *Resolver) { r.events = p }
}

func New(s Searcher, opts ...Option) *Resolver {
	r := &Resolver{
		search:  s,
		hitTTL:  DefaultHitTTL,
		missTTL: DefaultMissTTL,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// lookup is the cached outcome of one search-and-rank pass. An empty
// ExternalID records a miss.
type lookup struct {
	ExternalID string  `json:"externalId,omitempty"`
	Title      string  `json:"title,omitempty"`
	Score      float64 `json:"score"`
}

type strategy struct {
	name       string
	title      string
	confidence float64
}

// Resolve runs the direct strategy only.
func (r *Resolver) Resolve(ctx context.Context, q domain.TitleQuery) (domain.Resolution, error) {
	return r.run(ctx, q, r.strategies(q)[:1])
}

// ResolveWithFallback runs direct, alternate-label and simplified-title
// strategies in order and stops at the first confident match. Network
// errors stop the sequence and are returned so the caller can retry.
func (r *Resolver) ResolveWithFallback(ctx context.Context, q domain.TitleQuery) (domain.Resolution, error) {
	return r.run(ctx, q, r.strategies(q))
}

func (r *Resolver) run(ctx context.Context, q domain.TitleQuery, steps []strategy) (domain.Resolution, error) {
	traceID := uuid.NewString()
	log := r.log.With(zap.String("trace_id", traceID), zap.String("title", q.Title))
	start := time.Now()

	for _, s := range steps {
		if s.title == "" {
			continue
		}
		hit, err := r.lookup(ctx, log, s.title, q.Metadata)
		if err != nil {
			log.Warn("resolution interrupted", zap.String("strategy", s.name), zap.Error(err))
			return domain.Resolution{}, err
		}
		if hit.ExternalID == "" {
			log.Debug("strategy missed", zap.String("strategy", s.name), zap.String("query", s.title))
			continue
		}
		res := domain.Resolution{
			ExternalID:   hit.ExternalID,
			Confidence:   s.confidence,
			MatchedTitle: s.title,
			CatalogTitle: hit.Title,
			Strategy:     s.name,
		}
		log.Info("resolved",
			zap.String("strategy", s.name),
			zap.String("external_id", res.ExternalID),
			zap.Float64("confidence", res.Confidence),
			zap.Float64("score", hit.Score),
		)
		r.publish(traceID, q, res, time.Since(start))
		return res, nil
	}

	log.Info("no confident match")
	res := domain.Resolution{Confidence: domain.ConfidenceNone}
	r.publish(traceID, q, res, time.Since(start))
	return res, nil
}

func (r *Resolver) lookup(ctx context.Context, log *zap.Logger, title string, md *domain.ContentMetadata) (lookup, error) {
	key := cacheKey(title, md)
	var hit lookup
	for _, tier := range []cache.Store{r.durable, r.ephemeral} {
		if tier == nil {
			continue
		}
		ok, err := tier.Get(ctx, key, &hit)
		if err != nil {
			log.Warn("resolution cache read failed", zap.String("key", key), zap.Error(err))
			continue
		}
		if ok {
			return hit, nil
		}
	}

	cands, err := r.search.Search(ctx, title)
	if err != nil {
		return lookup{}, err
	}
	ranked := Rank(title, cands, md)
	logTop(log, title, ranked)

	best, ok := Pick(ranked)
	if !ok {
		if r.ephemeral != nil {
			if err := r.ephemeral.Set(ctx, key, lookup{}, r.missTTL); err != nil {
				log.Warn("resolution miss not cached", zap.String("key", key), zap.Error(err))
			}
		}
		return lookup{}, nil
	}
	hit = lookup{ExternalID: best.ExternalID, Title: best.DisplayTitle, Score: best.TotalScore}
	if r.durable != nil {
		if err := r.durable.Set(ctx, key, hit, r.hitTTL); err != nil {
			log.Warn("resolution not cached", zap.String("key", key), zap.Error(err))
		}
	}
	return hit, nil
}

func (r *Resolver) strategies(q domain.TitleQuery) []strategy {
	title := strings.TrimSpace(q.Title)
	return []strategy{
		{name: StrategyDirect, title: title, confidence: domain.ConfidenceDirect},
		{name: StrategyAlternate, title: AlternateLabel(title, q.Metadata), confidence: domain.ConfidenceAlternate},
		{name: StrategySimplified, title: SimplifyTitle(title), confidence: domain.ConfidenceSimplified},
	}
}

// AlternateLabel picks the distinguishing label for the second strategy:
// the metadata's alternate title when it differs from title, otherwise the
// title with its content type appended when the type is not already in it.
// It returns "" when neither applies.
func AlternateLabel(title string, md *domain.ContentMetadata) string {
	if md == nil {
		return ""
	}
	norm := matching.Normalize(title)
	if alt := strings.TrimSpace(md.AltTitle); alt != "" {
		if n := matching.Normalize(alt); n != "" && n != norm {
			return alt
		}
	}
	if md.Type == "" || title == "" {
		return ""
	}
	label := strings.ToLower(string(md.Type))
	for _, w := range strings.Fields(norm) {
		if w == label {
			return ""
		}
	}
	return title + " " + string(md.Type)
}

// SimplifyTitle drops any subtitle: everything from the first ':' or '-'.
// It returns "" when nothing would change or nothing would remain.
func SimplifyTitle(title string) string {
	i := strings.IndexAny(title, ":-")
	if i < 0 {
		return ""
	}
	s := strings.TrimSpace(title[:i])
	if s == "" || s == strings.TrimSpace(title) {
		return ""
	}
	return s
}

func cacheKey(title string, md *domain.ContentMetadata) string {
	k := "resolve_" + matching.Normalize(title)
	if md != nil {
		k += fmt.Sprintf("|%s|%d|%s", md.Type, md.Year, strings.ToLower(strings.TrimSpace(md.Season)))
	}
	return k
}

func logTop(log *zap.Logger, title string, ranked []domain.ScoredCandidate) {
	if ce := log.Check(zap.DebugLevel, "top candidates"); ce != nil {
		n := min(len(ranked), 3)
		top := make([]string, 0, n)
		for _, c := range ranked[:n] {
			top = append(top, fmt.Sprintf("%s (sim=%.3f score=%.3f type=%t year=%t season=%t)",
				c.DisplayTitle, c.Similarity, c.TotalScore, c.TypeMatch, c.YearMatch, c.SeasonMatch))
		}
		ce.Write(zap.String("query", title), zap.Int("candidates", len(ranked)), zap.Strings("top", top))
	}
}

func (r *Resolver) publish(traceID string, q domain.TitleQuery, res domain.Resolution, took time.Duration) {
	r.events.Publish(analytics.SubjectResolutionCompleted, "resolution_completed", traceID, map[string]any{
		"title":       q.Title,
		"external_id": res.ExternalID,
		"confidence":  res.Confidence,
		"strategy":    res.Strategy,
		"took_ms":     took.Milliseconds(),
	})
}
