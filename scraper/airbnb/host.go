package airbnb

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"airbnb-harvester/models"
	"airbnb-harvester/scraper/render"
	"airbnb-harvester/utils"
)

var (
	hostRatingRe = regexp.MustCompile(`(?i)([0-5][.,]\d{1,2})\s*(?:out of 5|·|/5|rating|reviews?)`)
	hostJoinedRe = regexp.MustCompile(`(?i)joined(?:\s+in)?\s+([A-Za-z\p{L}]+\s+\d{4}|\d{4})`)
)

// Stopper reports whether the run has used up its budget.
type Stopper interface {
	ShouldStop() bool
}

// HostProfile is what a host's profile page tells us.
type HostProfile struct {
	Rating       string
	ListingCount string
	JoinedDate   string
}

// HostEnricher visits host profile pages to fill the host columns.
type HostEnricher struct {
	strategies Strategies
	canon      *Canonicalizer
	maxScrolls int
	logger     *utils.Logger
}

// NewHostEnricher builds an enricher that scrolls a profile at most maxScrolls times.
func NewHostEnricher(s Strategies, canon *Canonicalizer, maxScrolls int, logger *utils.Logger) *HostEnricher {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if maxScrolls < 0 {
		maxScrolls = 0
	}
	return &HostEnricher{strategies: s, canon: canon, maxScrolls: maxScrolls, logger: logger}
}

// Enrich opens rec.HostProfileURL and fills the rating, listing count and
// joined date. It is best effort: on any failure the record keeps whatever
// it already had.
func (h *HostEnricher) Enrich(ctx context.Context, sess render.Session, rec *models.ListingRecord, budget Stopper) {
	if rec.HostProfileURL == "" || (budget != nil && budget.ShouldStop()) {
		return
	}

	page, err := sess.Open(ctx, rec.HostProfileURL)
	if err != nil {
		h.logger.Warn("[host] profile %s: %v", rec.HostProfileURL, err)
		return
	}
	defer page.Close()

	if scroller, ok := page.(render.Scroller); ok {
		for i := 0; i < h.maxScrolls; i++ {
			if ctx.Err() != nil || (budget != nil && budget.ShouldStop()) {
				break
			}
			if err := scroller.Scroll(ctx); err != nil {
				h.logger.Debug("[host] scroll %d on %s: %v", i+1, rec.HostProfileURL, err)
				break
			}
		}
	}

	profile := ParseHostProfile(page, h.canon, h.strategies)
	if profile.Rating != "" {
		rec.HostRating = profile.Rating
	}
	if profile.ListingCount != "" {
		rec.HostListingCount = profile.ListingCount
	}
	if profile.JoinedDate != "" {
		rec.HostJoinedDate = profile.JoinedDate
	}
}

// ParseHostProfile reads a rendered profile page. Missing values are empty.
func ParseHostProfile(page render.Page, canon *Canonicalizer, s Strategies) HostProfile {
	var p HostProfile
	text := page.Text()

	p.Rating = parseRating(text)

	distinct := make(map[string]struct{})
	for _, el := range page.QuerySelectorAll(`a[href*="` + s.ListingPathMarker + `"]`) {
		href, ok := el.Attribute("href")
		if !ok {
			continue
		}
		if u, ok := canon.Listing(href); ok {
			distinct[u] = struct{}{}
		}
	}
	if n := len(distinct); n > 0 {
		p.ListingCount = strconv.Itoa(n)
	}

	p.JoinedDate, _ = firstOf(utils.NewNopLogger(), joinedSteps(page, s.HostJoined, text))
	return p
}

func parseRating(text string) string {
	for _, m := range hostRatingRe.FindAllStringSubmatch(text, -1) {
		v := strings.Replace(m[1], ",", ".", 1)
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 5 {
			continue
		}
		return v
	}
	return ""
}

func joinedSteps(page render.Page, sels []Selector, text string) []step {
	steps := selectorSteps(page, "joined", sels, func(el render.Element, _ Selector) string {
		t := utils.NormaliseText(el.Text())
		if m := hostJoinedRe.FindStringSubmatch(t); m != nil {
			return m[1]
		}
		if len(t) <= 40 {
			return t
		}
		return ""
	})
	return append(steps, step{name: "joined/body", fn: func() (string, error) {
		if m := hostJoinedRe.FindStringSubmatch(text); m != nil {
			return m[1], nil
		}
		return "", ErrMiss
	}})
}
