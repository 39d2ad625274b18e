package airbnb

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"airbnb-harvester/scraper/render"
)

const searchPage = `<html><head>
<meta itemprop="url" content="https://www.airbnb.com/rooms/2002?adults=2">
</head><body>
<a href="/rooms/1001?check_in=2024-01-01">One</a>
<a href="/rooms/1001">One again</a>
<a href="/rooms/2002/photos">Photos</a>
<a href="/users/show/5">Host</a>
<script>window.__data = {"url":"/rooms/3003333","other":"/rooms/1001"}</script>
</body></html>`

func newTestHarvester(t *testing.T, s Strategies) *Harvester {
	t.Helper()
	h, err := NewHarvester("https://www.airbnb.com/s/Dubai/homes", 18, s, newTestCanon(t), nil)
	if err != nil {
		t.Fatalf("NewHarvester: %v", err)
	}
	return h
}

func TestHarvestUnionsStrategies(t *testing.T) {
	h := newTestHarvester(t, DefaultStrategies())
	res := h.Harvest(mustPage(t, searchPage))

	want := []string{
		"https://www.airbnb.com/rooms/1001",
		"https://www.airbnb.com/rooms/2002",
		"https://www.airbnb.com/rooms/3003333",
	}
	if len(res.URLs) != len(want) {
		t.Fatalf("URLs = %v; want %v", res.URLs, want)
	}
	for i := range want {
		if res.URLs[i] != want[i] {
			t.Errorf("URLs[%d] = %q; want %q", i, res.URLs[i], want[i])
		}
	}

	if res.ByStrategy["anchor/room-anchor"] != 1 {
		t.Errorf("anchor strategy found %d; want 1", res.ByStrategy["anchor/room-anchor"])
	}
	if res.ByStrategy["meta/itemprop-url"] != 1 {
		t.Errorf("meta strategy found %d; want 1", res.ByStrategy["meta/itemprop-url"])
	}
}

func TestHarvestEmptyPage(t *testing.T) {
	h := newTestHarvester(t, DefaultStrategies())
	res := h.Harvest(mustPage(t, `<html><body><p>No results</p></body></html>`))
	if len(res.URLs) != 0 {
		t.Errorf("URLs = %v; want none", res.URLs)
	}
}

func TestHarvestBadSelectorIsIsolated(t *testing.T) {
	s := DefaultStrategies()
	s.HarvestAnchors = append([]Selector{{Name: "broken", CSS: "a[[[", Attr: "href"}}, s.HarvestAnchors...)
	h := newTestHarvester(t, s)

	res := h.Harvest(mustPage(t, searchPage))
	if len(res.URLs) != 3 {
		t.Errorf("URLs = %v; other strategies should still contribute", res.URLs)
	}
}

func TestNewHarvesterRejectsBadPattern(t *testing.T) {
	s := DefaultStrategies()
	s.HarvestPatterns = []string{"(unclosed"}
	if _, err := NewHarvester("https://www.airbnb.com/s/x", 18, s, newTestCanon(t), nil); err == nil {
		t.Error("expected compile error")
	}
}

type stubSession struct {
	pages  map[string]string
	opened []string
}

func (s *stubSession) Open(_ context.Context, raw string, _ ...render.OpenOption) (render.Page, error) {
	s.opened = append(s.opened, raw)
	u, _ := url.Parse(raw)
	markup, ok := s.pages[u.Path]
	if !ok {
		return nil, &render.NavigationError{URL: raw, Err: errors.New("404")}
	}
	return render.NewDocumentPage(raw, markup)
}

func (s *stubSession) Close() error { return nil }

func TestHarvestPageUsesOffset(t *testing.T) {
	h := newTestHarvester(t, DefaultStrategies())
	sess := &stubSession{pages: map[string]string{"/s/Dubai/homes": searchPage}}

	res, err := h.HarvestPage(context.Background(), sess, 2)
	if err != nil {
		t.Fatalf("HarvestPage: %v", err)
	}
	if len(res.URLs) != 3 {
		t.Errorf("URLs = %v", res.URLs)
	}
	u, _ := url.Parse(sess.opened[0])
	if got := u.Query().Get("items_offset"); got != "36" {
		t.Errorf("items_offset = %s; want 36", got)
	}
}

func TestHarvestPageNavigationError(t *testing.T) {
	h := newTestHarvester(t, DefaultStrategies())
	_, err := h.HarvestPage(context.Background(), &stubSession{}, 0)
	if !errors.Is(err, render.ErrNavigation) {
		t.Errorf("err = %v; want navigation error", err)
	}
}
