package hianime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/example/animelink/internal/domain"
)

var (
	errStatusFalse = errors.New("status false")
	errNoHTML      = errors.New("missing html fragment")
)

// ParseSearch extracts candidates from a search results page. Anchors
// without an id or a title are skipped and repeated ids keep their first
// position.
func ParseSearch(html []byte) []domain.Candidate {
	out := []domain.Candidate{}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return out
	}
	sel := doc.Find("a.film-poster-ahref")
	if sel.Length() == 0 {
		sel = doc.Find("a[data-id][title]")
	}
	seen := make(map[string]struct{})
	sel.Each(func(_ int, s *goquery.Selection) {
		id := strings.TrimSpace(s.AttrOr("data-id", ""))
		title := normSpace(s.AttrOr("title", ""))
		if id == "" || title == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, domain.Candidate{ExternalID: id, DisplayTitle: title})
	})
	return out
}

// ParseEpisodes decodes the episode-list envelope {status, html} and
// returns episodes strictly increasing by number. Anything malformed yields
// an empty list.
func ParseEpisodes(body []byte) []domain.EpisodeItem {
	eps, _ := parseEpisodes(body)
	return eps
}

type episodeEnvelope struct {
	Status json.RawMessage `json:"status"`
	HTML   string          `json:"html"`
}

func parseEpisodes(body []byte) ([]domain.EpisodeItem, error) {
	out := []domain.EpisodeItem{}
	var env episodeEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return out, fmt.Errorf("decode envelope: %w", err)
	}
	if !truthy(env.Status) {
		return out, errStatusFalse
	}
	if strings.TrimSpace(env.HTML) == "" {
		return out, errNoHTML
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(env.HTML))
	if err != nil {
		return out, fmt.Errorf("parse fragment: %w", err)
	}

	seen := make(map[int]struct{})
	doc.Find("a.ep-item").Each(func(_ int, s *goquery.Selection) {
		id := strings.TrimSpace(s.AttrOr("data-id", ""))
		n, err := strconv.Atoi(strings.TrimSpace(s.AttrOr("data-number", "")))
		if id == "" || err != nil || n < 1 {
			return
		}
		if _, dup := seen[n]; dup {
			return
		}
		seen[n] = struct{}{}

		title := normSpace(s.Find(".ep-name").First().Text())
		if title == "" {
			title = normSpace(s.AttrOr("title", ""))
		}
		if title == "" {
			title = "Episode " + strconv.Itoa(n)
		}
		out = append(out, domain.EpisodeItem{EpisodeID: id, Number: n, Title: title})
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// truthy accepts true, a non-zero number or a non-empty string other than
// "false"/"0".
func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		return s != "" && s != "false" && s != "0"
	}
	return false
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
