package watch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/animelink/internal/cache"
	"github.com/example/animelink/internal/domain"
	"github.com/example/animelink/internal/fetch"
	"github.com/example/animelink/internal/hianime"
	"github.com/example/animelink/internal/jikan"
	"github.com/example/animelink/internal/retry"
)

type instantTimer struct{}

func (instantTimer) After(time.Duration) <-chan time.Time {
	c := make(chan time.Time, 1)
	c <- time.Now()
	return c
}

type stubMeta struct {
	anime map[int]jikan.Anime
	errs  []error
	calls atomic.Int32
}

func (s *stubMeta) GetAnime(_ context.Context, malID int) (*jikan.AnimeResponse, error) {
	n := int(s.calls.Add(1))
	if n <= len(s.errs) && s.errs[n-1] != nil {
		return nil, s.errs[n-1]
	}
	a, ok := s.anime[malID]
	if !ok {
		return nil, fmt.Errorf("stub: %w", fetch.ErrRequestFailed)
	}
	return &jikan.AnimeResponse{Data: a}, nil
}

type stubResolver struct {
	res     domain.Resolution
	queries []domain.TitleQuery
}

func (s *stubResolver) ResolveWithFallback(_ context.Context, q domain.TitleQuery) (domain.Resolution, error) {
	s.queries = append(s.queries, q)
	return s.res, nil
}

// stubCatalog returns the lists in order, repeating the last one.
type stubCatalog struct {
	lists [][]domain.EpisodeItem
	errs  []error
	calls int
}

func (s *stubCatalog) Episodes(_ context.Context, _ string) ([]domain.EpisodeItem, error) {
	s.calls++
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return nil, s.errs[s.calls-1]
	}
	if len(s.lists) == 0 {
		return []domain.EpisodeItem{}, nil
	}
	i := min(s.calls-1, len(s.lists)-1)
	return s.lists[i], nil
}

func episodes(n int) []domain.EpisodeItem {
	out := make([]domain.EpisodeItem, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.EpisodeItem{EpisodeID: fmt.Sprintf("ep%d", i), Number: i, Title: fmt.Sprintf("Episode %d", i)})
	}
	return out
}

func testPolicies() Option {
	q := retry.QueryPolicy()
	q.Timer = instantTimer{}
	p := retry.EpisodePollPolicy()
	p.Timer = instantTimer{}
	return WithPolicies(q, p)
}

func newService(t *testing.T, meta AnimeSource, r Resolver, c Catalog) *Service {
	t.Helper()
	store := cache.NewEphemeral(time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	return New(meta, r, c, WithCache(store), testPolicies())
}

var aot = jikan.Anime{MalID: 16498, Title: "Shingeki no Kyojin", TitleEnglish: "Attack on Titan", Type: "TV", Year: 2013}

func TestEpisodes_RefusesLowConfidence(t *testing.T) {
	cat := &stubCatalog{lists: [][]domain.EpisodeItem{episodes(3)}}
	s := newService(t, &stubMeta{}, &stubResolver{}, cat)

	for _, res := range []domain.Resolution{
		{ExternalID: "112", Confidence: 0.5},
		{ExternalID: "", Confidence: 0.9},
		{ExternalID: "112", Confidence: 0},
	} {
		if _, err := s.Episodes(context.Background(), res); !errors.Is(err, ErrNotPlayable) {
			t.Fatalf("expected ErrNotPlayable for %+v, got %v", res, err)
		}
	}
	if cat.calls != 0 {
		t.Fatalf("expected catalog untouched, got %d calls", cat.calls)
	}
}

func TestEpisodes_PollsUntilNonEmpty(t *testing.T) {
	cat := &stubCatalog{lists: [][]domain.EpisodeItem{{}, {}, episodes(2)}}
	s := newService(t, &stubMeta{}, &stubResolver{}, cat)
	res := domain.Resolution{ExternalID: "112", Confidence: domain.ConfidenceDirect}

	list, err := s.Episodes(context.Background(), res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Items) != 2 || list.Attempts != 3 {
		t.Fatalf("expected 2 episodes after 3 attempts, got %d after %d", len(list.Items), list.Attempts)
	}

	again, err := s.Episodes(context.Background(), res)
	if err != nil || len(again.Items) != 2 || again.Attempts != 0 {
		t.Fatalf("expected cached list, got %+v err=%v", again, err)
	}
	if cat.calls != 3 {
		t.Fatalf("expected no further catalog calls, got %d", cat.calls)
	}
}

func TestEpisodes_EmptyAfterPollingIsNotCached(t *testing.T) {
	cat := &stubCatalog{}
	s := newService(t, &stubMeta{}, &stubResolver{}, cat)
	res := domain.Resolution{ExternalID: "112", Confidence: domain.ConfidenceSimplified}

	list, err := s.Episodes(context.Background(), res)
	if err != nil {
		t.Fatalf("empty list must not be an error, got %v", err)
	}
	if len(list.Items) != 0 || list.Attempts != 5 {
		t.Fatalf("expected 5 empty polls, got %+v", list)
	}
	if _, err := s.Episodes(context.Background(), res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.calls != 10 {
		t.Fatalf("expected empty list to be refetched, got %d calls", cat.calls)
	}
}

func TestEpisodes_RetriesTransientErrors(t *testing.T) {
	cat := &stubCatalog{
		lists: [][]domain.EpisodeItem{episodes(1)},
		errs:  []error{fetch.ErrTimeout, fetch.ErrRateLimited},
	}
	s := newService(t, &stubMeta{}, &stubResolver{}, cat)
	list, err := s.Episodes(context.Background(), domain.Resolution{ExternalID: "1", Confidence: 0.9})
	if err != nil || len(list.Items) != 1 {
		t.Fatalf("expected recovery after transient errors, got %+v err=%v", list, err)
	}
	if cat.calls != 3 {
		t.Fatalf("expected 3 catalog calls, got %d", cat.calls)
	}
}

func TestEpisodes_PermanentErrorStops(t *testing.T) {
	cat := &stubCatalog{errs: []error{fmt.Errorf("hianime: %w", fetch.ErrRequestFailed)}}
	s := newService(t, &stubMeta{}, &stubResolver{}, cat)
	_, err := s.Episodes(context.Background(), domain.Resolution{ExternalID: "1", Confidence: 0.9})
	if !errors.Is(err, fetch.ErrRequestFailed) {
		t.Fatalf("expected request failure, got %v", err)
	}
	if cat.calls != 1 {
		t.Fatalf("expected a single call, got %d", cat.calls)
	}
}

func TestResolveAnime_UsesBestTitleAndCachesDetails(t *testing.T) {
	meta := &stubMeta{anime: map[int]jikan.Anime{aot.MalID: aot}, errs: []error{fetch.ErrUpstreamUnavailable}}
	r := &stubResolver{res: domain.Resolution{ExternalID: "112", Confidence: domain.ConfidenceDirect}}
	s := newService(t, meta, r, &stubCatalog{})

	for i := 0; i < 2; i++ {
		got, err := s.ResolveAnime(context.Background(), aot.MalID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Resolution.ExternalID != "112" {
			t.Fatalf("unexpected resolution %+v", got.Resolution)
		}
	}
	if n := meta.calls.Load(); n != 2 {
		t.Fatalf("expected one retried details fetch, got %d calls", n)
	}
	q := r.queries[0]
	if q.Title != "Attack on Titan" || q.Metadata == nil || q.Metadata.AltTitle != "Shingeki no Kyojin" || q.Metadata.Year != 2013 {
		t.Fatalf("unexpected query %+v %+v", q, q.Metadata)
	}
}

func TestResolveAnime_InvalidID(t *testing.T) {
	s := newService(t, &stubMeta{}, &stubResolver{}, &stubCatalog{})
	if _, err := s.ResolveAnime(context.Background(), 0); !errors.Is(err, jikan.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestPlayer(t *testing.T) {
	meta := &stubMeta{anime: map[int]jikan.Anime{aot.MalID: aot}}
	r := &stubResolver{res: domain.Resolution{ExternalID: "112", Confidence: domain.ConfidenceDirect}}
	s := newService(t, meta, r, &stubCatalog{lists: [][]domain.EpisodeItem{episodes(3)}})
	ctx := context.Background()

	pb, err := s.Player(ctx, aot.MalID, 0, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pb.Episode.Number != 1 || pb.Prev != nil || pb.Next == nil || pb.Next.Number != 2 {
		t.Fatalf("expected first episode with next only, got %+v", pb)
	}
	if pb.URL != "https://megaplay.buzz/stream/s-4/ep1/sub" || pb.Total != 3 {
		t.Fatalf("unexpected playback %+v", pb)
	}

	pb, err = s.Player(ctx, aot.MalID, 3, hianime.LangDub, hianime.ServerHD3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pb.Prev == nil || pb.Prev.Number != 2 || pb.Next != nil {
		t.Fatalf("expected last episode with prev only, got %+v", pb)
	}
	if pb.URL != "https://megacloud.bloggy.click/stream/s-3/ep3/dub" {
		t.Fatalf("unexpected url %s", pb.URL)
	}

	if _, err := s.Player(ctx, aot.MalID, 9, "", ""); !errors.Is(err, ErrEpisodeNotFound) {
		t.Fatalf("expected ErrEpisodeNotFound, got %v", err)
	}
}

func TestPlayer_NotPlayable(t *testing.T) {
	meta := &stubMeta{anime: map[int]jikan.Anime{aot.MalID: aot}}
	cat := &stubCatalog{lists: [][]domain.EpisodeItem{episodes(3)}}
	s := newService(t, meta, &stubResolver{}, cat)
	if _, err := s.Player(context.Background(), aot.MalID, 1, "", ""); !errors.Is(err, ErrNotPlayable) {
		t.Fatalf("expected ErrNotPlayable, got %v", err)
	}
	if cat.calls != 0 {
		t.Fatalf("expected catalog untouched, got %d calls", cat.calls)
	}
}
