// Package hianime talks to the streaming catalog: title search, episode
// lists and embed player URLs.
package hianime

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/example/animelink/internal/domain"
	"github.com/example/animelink/internal/fetch"
)

const DefaultBaseURL = "https://hianimez.is"

// ErrEmptyID is returned when an episode list is requested without an id.
var ErrEmptyID = errors.New("hianime: catalog id required")

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

// New builds a catalog client. hc should route through the catalog proxy.
func New(baseURL string, hc *fetch.Client, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = fetch.New(fetch.Config{})
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

// Search returns the candidates on the first search results page, in page
// order. Network errors propagate.
func (c *Client) Search(ctx context.Context, title string) ([]domain.Candidate, error) {
	u := c.BaseURL + "/search?keyword=" + url.QueryEscape(strings.TrimSpace(title))
	body, err := c.HTTP.Get(ctx, u, fetch.KindHTML)
	if err != nil {
		return nil, fmt.Errorf("hianime: search %q: %w", title, err)
	}
	out := ParseSearch(body)
	c.Log.Debug("hianime search", zap.String("title", title), zap.Int("candidates", len(out)))
	return out, nil
}

// Episodes returns the ordered episode list for catalogID. Malformed
// payloads yield an empty list and a nil error; network errors propagate.
func (c *Client) Episodes(ctx context.Context, catalogID string) ([]domain.EpisodeItem, error) {
	catalogID = strings.TrimSpace(catalogID)
	if catalogID == "" {
		return nil, ErrEmptyID
	}
	u := c.BaseURL + "/ajax/v2/episode/list/" + url.PathEscape(catalogID)
	body, err := c.HTTP.Get(ctx, u, fetch.KindJSON)
	if err != nil {
		return nil, fmt.Errorf("hianime: episodes %s: %w", catalogID, err)
	}
	eps, perr := parseEpisodes(body)
	if perr != nil {
		c.Log.Warn("hianime: episode payload unusable", zap.String("id", catalogID), zap.Error(perr))
	}
	return eps, nil
}
