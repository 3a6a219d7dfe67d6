package jikan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/example/animelink/internal/domain"
	"github.com/example/animelink/internal/fetch"
)

const fullBody = `{"data":{
  "mal_id":16498,
  "title":"Shingeki no Kyojin",
  "title_english":"Attack on Titan",
  "title_japanese":"進撃の巨人",
  "type":"TV",
  "season":"spring",
  "year":2013,
  "episodes":25,
  "score":8.5,
  "genres":[{"mal_id":1,"name":"Action","type":"anime"},{"mal_id":8,"name":"Drama","type":"anime"},{"mal_id":10,"name":"Fantasy","type":"anime"}],
  "relations":[
    {"relation":"Sequel","entry":[{"mal_id":25777,"type":"anime","name":"Shingeki no Kyojin Season 2"}]},
    {"relation":"Adaptation","entry":[{"mal_id":23390,"type":"manga","name":"Shingeki no Kyojin"}]},
    {"relation":"Side Story","entry":[{"mal_id":18397,"type":"anime","name":"Shingeki no Kyojin OVA"},{"mal_id":25777,"type":"anime","name":"dup"}]}
  ]
}}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, fetch.New(fetch.Config{}))
}

func TestClient_GetAnime(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/anime/16498/full" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fullBody))
	})
	resp, err := c.GetAnime(context.Background(), 16498)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Data.MalID != 16498 || resp.Data.Year != 2013 || len(resp.Data.Relations) != 3 {
		t.Fatalf("unexpected anime %+v", resp.Data)
	}
}

func TestClient_GetAnime_InvalidID(t *testing.T) {
	c := New("http://127.0.0.1:0", fetch.New(fetch.Config{}))
	if _, err := c.GetAnime(context.Background(), 0); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestClient_RateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.GetTop(context.Background(), TopPopular, 0)
	if !errors.Is(err, fetch.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestClient_QueryStrings(t *testing.T) {
	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.Path+"?"+r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"data":[{"mal_id":1,"title":"Cowboy Bebop"}],"pagination":{"has_next_page":true}}`))
	})
	ctx := context.Background()

	if _, err := c.Search(ctx, SearchParams{Query: "bebop", Type: "TV", Genre: "1"}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := c.GetTop(ctx, TopAiring, 0); err != nil {
		t.Fatalf("top: %v", err)
	}
	if _, err := c.GetTop(ctx, TopAll, 5); err != nil {
		t.Fatalf("top all: %v", err)
	}
	if _, err := c.GetSeasonNow(ctx, 0); err != nil {
		t.Fatalf("season: %v", err)
	}
	list, err := c.GetByGenres(ctx, []int{1, 0, 8}, 0)
	if err != nil {
		t.Fatalf("genres: %v", err)
	}
	if len(list.Data) != 1 || !list.Pagination.HasNextPage {
		t.Fatalf("unexpected list %+v", list)
	}

	want := []string{
		"/anime?genres=1&limit=24&order_by=score&page=1&q=bebop&sort=desc&type=tv",
		"/top/anime?filter=airing&limit=20",
		"/top/anime?limit=5",
		"/seasons/now?limit=20",
		"/anime?genres=1%2C8&limit=15&order_by=score&sort=desc",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected requests\n%q\ngot\n%q", want, got)
	}
}

func TestClient_GetByGenres_RequiresID(t *testing.T) {
	c := New("http://127.0.0.1:0", fetch.New(fetch.Config{}))
	if _, err := c.GetByGenres(context.Background(), []int{0, -1}, 0); err == nil {
		t.Fatal("expected error for no usable genre ids")
	}
}

func TestClient_GetRecommendations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/anime/1/recommendations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[{"entry":{"mal_id":205,"title":"Samurai Champloo"},"votes":42}]}`))
	})
	resp, err := c.GetRecommendations(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Entry.MalID != 205 || resp.Data[0].Votes != 42 {
		t.Fatalf("unexpected recommendations %+v", resp.Data)
	}
}

func TestBestTitle(t *testing.T) {
	if got := BestTitle(Anime{Title: "Shingeki no Kyojin", TitleEnglish: " Attack on Titan "}); got != "Attack on Titan" {
		t.Fatalf("expected English title, got %q", got)
	}
	if got := BestTitle(Anime{Title: "Monster", TitleJapanese: "モンスター"}); got != "Monster" {
		t.Fatalf("expected default title, got %q", got)
	}
	if got := BestTitle(Anime{TitleJapanese: "モンスター"}); got != "モンスター" {
		t.Fatalf("expected Japanese title, got %q", got)
	}
}

func TestToMetadata(t *testing.T) {
	a := Anime{Title: "Shingeki no Kyojin", TitleEnglish: "Attack on Titan", Type: "TV", Year: 2013, Season: "spring", Episodes: 25}
	md := ToMetadata(a)
	want := &domain.ContentMetadata{Type: domain.TypeTV, Year: 2013, Season: "spring", EpisodeCount: 25, AltTitle: "Shingeki no Kyojin"}
	if !reflect.DeepEqual(md, want) {
		t.Fatalf("expected %+v, got %+v", want, md)
	}

	b := Anime{Title: "Monster", TitleEnglish: "Monster", Type: "Movie"}
	b.Aired.From = "2004-04-07T00:00:00+00:00"
	md = ToMetadata(b)
	if md.AltTitle != "" || md.Year != 2004 || md.Type != domain.TypeMovie {
		t.Fatalf("unexpected metadata %+v", md)
	}

	if md := ToMetadata(Anime{Title: "Monster", Type: "CM"}); md.Type != "" || md.AltTitle != "" {
		t.Fatalf("unexpected metadata %+v", md)
	}
}

func TestRelatedIDsAndGenres(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fullBody))
	})
	resp, err := c.GetAnime(context.Background(), 16498)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := RelatedIDs(resp.Data, "Sequel", "Prequel", "Spin-off", "Side story")
	if !reflect.DeepEqual(ids, []int{25777, 18397}) {
		t.Fatalf("expected [25777 18397], got %v", ids)
	}
	if g := GenreIDs(resp.Data, 2); !reflect.DeepEqual(g, []int{1, 8}) {
		t.Fatalf("expected first two genres, got %v", g)
	}
	if n := GenreNames(resp.Data); len(n) != 3 || n[0] != "Action" {
		t.Fatalf("unexpected genre names %v", n)
	}
}

func TestParseTopFilter(t *testing.T) {
	if f, err := ParseTopFilter("Popular"); err != nil || f != TopPopular {
		t.Fatalf("expected bypopularity, got %q err=%v", f, err)
	}
	if f, err := ParseTopFilter(""); err != nil || f != TopAll {
		t.Fatalf("expected unfiltered, got %q err=%v", f, err)
	}
	if _, err := ParseTopFilter("weekly"); err == nil {
		t.Fatal("expected error for unknown filter")
	}
}
