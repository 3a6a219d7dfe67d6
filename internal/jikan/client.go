// Package jikan is the metadata provider client (Jikan v4, a MyAnimeList
// mirror). Requests go direct, spaced by a limiter to respect the public
// per-second quota.
package jikan

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/animelink/internal/fetch"
	"github.com/example/animelink/internal/platform/ratelimit"
)

const (
	DefaultBaseURL   = "https://api.jikan.moe/v4"
	DefaultUserAgent = "animelink/1.0"

	// DefaultRPS is the public API's documented per-second limit.
	DefaultRPS = 3

	defaultSearchLimit = 24
	defaultListLimit   = 20
	defaultGenreLimit  = 15
)

var ErrInvalidID = errors.New("jikan: malID required")

// TopFilter selects one of the /top/anime rankings.
type TopFilter string

const (
	TopAll       TopFilter = ""
	TopAiring    TopFilter = "airing"
	TopPopular   TopFilter = "bypopularity"
	TopFavorite  TopFilter = "favorite"
	TopCompleted TopFilter = "completed"
)

// ParseTopFilter maps a user label onto a TopFilter.
func ParseTopFilter(s string) (TopFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return TopAll, nil
	case "airing":
		return TopAiring, nil
	case "popular", "bypopularity":
		return TopPopular, nil
	case "favorite":
		return TopFavorite, nil
	case "completed":
		return TopCompleted, nil
	}
	return "", fmt.Errorf("jikan: unknown top filter %q", s)
}

// SearchParams mirrors the /anime query. Zero values are omitted, except
// Page and Limit which default to 1 and 24.
type SearchParams struct {
	Query  string
	Page   int
	Limit  int
	Type   string
	Status string
	Genre  string
}

type Client struct {
	BaseURL string
	HTTP    *fetch.Client
	Log     *zap.Logger
}

// Option configures the Client.
type Option func(*Client)

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.Log = log }
}

// New builds a metadata client. A nil hc gets a direct client limited to
// DefaultRPS.
func New(baseURL string, hc *fetch.Client, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = fetch.New(fetch.Config{UserAgent: DefaultUserAgent}, fetch.WithLimiter(ratelimit.NewRPS(DefaultRPS)))
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    hc,
		Log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetAnime returns the full record, relations included.
func (c *Client) GetAnime(ctx context.Context, malID int) (*AnimeResponse, error) {
	if malID <= 0 {
		return nil, ErrInvalidID
	}
	out, err := fetch.GetJSON[AnimeResponse](ctx, c.HTTP, c.BaseURL+"/anime/"+strconv.Itoa(malID)+"/full")
	if err != nil {
		return nil, fmt.Errorf("jikan: anime %d: %w", malID, err)
	}
	return out, nil
}

// Search orders matches by score, best first.
func (c *Client) Search(ctx context.Context, p SearchParams) (*AnimeListResponse, error) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultSearchLimit
	}
	q := url.Values{}
	q.Set("q", strings.TrimSpace(p.Query))
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("order_by", "score")
	q.Set("sort", "desc")
	if p.Type != "" {
		q.Set("type", strings.ToLower(p.Type))
	}
	if p.Status != "" {
		q.Set("status", strings.ToLower(p.Status))
	}
	if p.Genre != "" {
		q.Set("genres", p.Genre)
	}
	return c.list(ctx, "/anime", q)
}

// GetTop returns one page of a top ranking.
func (c *Client) GetTop(ctx context.Context, filter TopFilter, limit int) (*AnimeListResponse, error) {
	q := url.Values{}
	if filter != TopAll {
		q.Set("filter", string(filter))
	}
	q.Set("limit", strconv.Itoa(orDefault(limit, defaultListLimit)))
	return c.list(ctx, "/top/anime", q)
}

// GetSeasonNow returns anime airing in the current season.
func (c *Client) GetSeasonNow(ctx context.Context, limit int) (*AnimeListResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(orDefault(limit, defaultListLimit)))
	return c.list(ctx, "/seasons/now", q)
}

func (c *Client) GetRecommendations(ctx context.Context, malID int) (*RecommendationsResponse, error) {
	if malID <= 0 {
		return nil, ErrInvalidID
	}
	out, err := fetch.GetJSON[RecommendationsResponse](ctx, c.HTTP, c.BaseURL+"/anime/"+strconv.Itoa(malID)+"/recommendations")
	if err != nil {
		return nil, fmt.Errorf("jikan: recommendations %d: %w", malID, err)
	}
	return out, nil
}

// GetByGenres lists the best scored anime tagged with every genre id.
func (c *Client) GetByGenres(ctx context.Context, genreIDs []int, limit int) (*AnimeListResponse, error) {
	ids := make([]string, 0, len(genreIDs))
	for _, id := range genreIDs {
		if id > 0 {
			ids = append(ids, strconv.Itoa(id))
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("jikan: at least one genre id required")
	}
	q := url.Values{}
	q.Set("genres", strings.Join(ids, ","))
	q.Set("order_by", "score")
	q.Set("sort", "desc")
	q.Set("limit", strconv.Itoa(orDefault(limit, defaultGenreLimit)))
	return c.list(ctx, "/anime", q)
}

func (c *Client) list(ctx context.Context, path string, q url.Values) (*AnimeListResponse, error) {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	out, err := fetch.GetJSON[AnimeListResponse](ctx, c.HTTP, u)
	if err != nil {
		return nil, fmt.Errorf("jikan: list %s: %w", path, err)
	}
	c.Log.Debug("jikan list", zap.String("path", path), zap.Int("items", len(out.Data)))
	return out, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
