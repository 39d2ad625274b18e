package airbnb

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"airbnb-harvester/scraper/render"
	"airbnb-harvester/utils"
)

// HarvestResult is the union of every detection strategy over one page.
type HarvestResult struct {
	// URLs holds canonical listing URLs in first-seen order, without duplicates.
	URLs []string
	// ByStrategy counts the distinct URLs each strategy found on its own.
	ByStrategy map[string]int
}

// Harvester finds listing URLs on a search-results page.
type Harvester struct {
	searchURL  string
	pageSize   int
	strategies Strategies
	canon      *Canonicalizer
	patterns   []*regexp.Regexp
	logger     *utils.Logger
}

// NewHarvester compiles the raw-markup patterns. A pattern that fails to
// compile is reported as an error.
func NewHarvester(searchURL string, pageSize int, s Strategies, canon *Canonicalizer, logger *utils.Logger) (*Harvester, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if pageSize <= 0 {
		pageSize = 18
	}
	h := &Harvester{
		searchURL:  searchURL,
		pageSize:   pageSize,
		strategies: s,
		canon:      canon,
		logger:     logger,
	}
	for _, p := range s.HarvestPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("harvest pattern %q: %w", p, err)
		}
		h.patterns = append(h.patterns, re)
	}
	return h, nil
}

// Offset returns the items offset of the zero-based cursor.
func (h *Harvester) Offset(cursor int) int {
	return cursor * h.pageSize
}

// HarvestPage opens the search page at cursor and harvests it. Only a
// navigation failure is returned as an error.
func (h *Harvester) HarvestPage(ctx context.Context, sess render.Session, cursor int) (HarvestResult, error) {
	pageURL, err := PageURL(h.searchURL, h.Offset(cursor))
	if err != nil {
		return HarvestResult{}, err
	}

	page, err := sess.Open(ctx, pageURL, render.WaitFor(h.strategies.SearchWait))
	if err != nil {
		return HarvestResult{}, err
	}
	defer page.Close()

	return h.Harvest(page), nil
}

// Harvest runs every detection strategy over the page and unions the
// results. A strategy that fails or finds nothing does not affect the others.
func (h *Harvester) Harvest(page render.Page) HarvestResult {
	res := HarvestResult{ByStrategy: make(map[string]int)}
	seen := make(map[string]struct{})

	for _, s := range h.steps(page) {
		urls, err := s.run()
		if err != nil {
			h.logger.Warn("[harvest] strategy %s failed: %v", s.name, err)
		}
		res.ByStrategy[s.name] = len(urls)
		for _, u := range urls {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			res.URLs = append(res.URLs, u)
		}
	}
	return res
}

type harvestStep struct {
	name string
	fn   func() []string
}

func (s harvestStep) run() (urls []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			urls, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return s.fn(), nil
}

func (h *Harvester) steps(page render.Page) []harvestStep {
	var steps []harvestStep

	for _, sel := range h.strategies.HarvestAnchors {
		sel := sel
		steps = append(steps, harvestStep{name: "anchor/" + sel.Name, fn: func() []string {
			return h.fromElements(page.QuerySelectorAll(sel.CSS), sel.Attr, "href")
		}})
	}
	for _, sel := range h.strategies.HarvestMeta {
		sel := sel
		steps = append(steps, harvestStep{name: "meta/" + sel.Name, fn: func() []string {
			return h.fromElements(page.QuerySelectorAll(sel.CSS), sel.Attr, "content")
		}})
	}
	for i, re := range h.patterns {
		re := re
		steps = append(steps, harvestStep{name: fmt.Sprintf("markup/%d", i), fn: func() []string {
			return h.fromMarkup(page.RawMarkup(), re)
		}})
	}
	return steps
}

func (h *Harvester) fromElements(els []render.Element, attr, fallbackAttr string) []string {
	if attr == "" {
		attr = fallbackAttr
	}
	var out []string
	local := make(map[string]struct{})
	for _, el := range els {
		v, ok := el.Attribute(attr)
		if !ok || !strings.Contains(v, h.strategies.ListingPathMarker) {
			continue
		}
		u, ok := h.canon.Listing(v)
		if !ok {
			continue
		}
		if _, dup := local[u]; !dup {
			local[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

func (h *Harvester) fromMarkup(markup string, re *regexp.Regexp) []string {
	var out []string
	local := make(map[string]struct{})
	for _, m := range re.FindAllStringSubmatch(markup, -1) {
		if len(m) < 2 {
			continue
		}
		u, ok := h.canon.FromID(m[1])
		if !ok {
			continue
		}
		if _, dup := local[u]; !dup {
			local[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}
