package jikan

import (
	"strconv"
	"strings"

	"github.com/example/animelink/internal/domain"
	"github.com/example/animelink/internal/matching"
)

// BestTitle prefers the English title, then the default romaji title, then
// the Japanese one.
func BestTitle(a Anime) string {
	if t := strings.TrimSpace(a.TitleEnglish); t != "" {
		return t
	}
	if t := strings.TrimSpace(a.Title); t != "" {
		return t
	}
	return strings.TrimSpace(a.TitleJapanese)
}

// ToMetadata builds the resolver hints for a. When BestTitle picked the
// English title the romaji title becomes AltTitle.
func ToMetadata(a Anime) *domain.ContentMetadata {
	md := &domain.ContentMetadata{
		Type:         domain.ParseContentType(a.Type),
		Year:         a.Year,
		Season:       strings.TrimSpace(a.Season),
		EpisodeCount: a.Episodes,
	}
	if md.Year == 0 {
		md.Year = airedYear(a.Aired.From)
	}
	best := BestTitle(a)
	if alt := strings.TrimSpace(a.Title); alt != "" && best == strings.TrimSpace(a.TitleEnglish) &&
		matching.Normalize(alt) != matching.Normalize(best) {
		md.AltTitle = alt
	}
	return md
}

// Query is the resolver input for a.
func Query(a Anime) domain.TitleQuery {
	return domain.TitleQuery{Title: BestTitle(a), Metadata: ToMetadata(a)}
}

// GenreIDs returns up to n genre ids in provider order; n <= 0 means all.
func GenreIDs(a Anime, n int) []int {
	out := make([]int, 0, len(a.Genres))
	for _, g := range a.Genres {
		if g.MalID <= 0 {
			continue
		}
		out = append(out, g.MalID)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}

// GenreNames returns the trimmed non-empty genre names.
func GenreNames(a Anime) []string {
	out := make([]string, 0, len(a.Genres))
	for _, g := range a.Genres {
		if name := strings.TrimSpace(g.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// RelatedIDs returns the anime entries of the named relation kinds, in
// provider order and without duplicates.
func RelatedIDs(a Anime, kinds ...string) []int {
	want := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		want[strings.ToLower(k)] = struct{}{}
	}
	seen := map[int]struct{}{a.MalID: {}}
	var out []int
	for _, rel := range a.Relations {
		if _, ok := want[strings.ToLower(strings.TrimSpace(rel.Relation))]; !ok {
			continue
		}
		for _, e := range rel.Entry {
			if e.MalID <= 0 || (e.Type != "" && !strings.EqualFold(e.Type, "anime")) {
				continue
			}
			if _, dup := seen[e.MalID]; dup {
				continue
			}
			seen[e.MalID] = struct{}{}
			out = append(out, e.MalID)
		}
	}
	return out
}

func airedYear(from string) int {
	if len(from) < 4 {
		return 0
	}
	y, err := strconv.Atoi(from[:4])
	if err != nil {
		return 0
	}
	return y
}
