package airbnb

import (
	"errors"
	"fmt"
	"strings"

	"airbnb-harvester/models"
	"airbnb-harvester/scraper/render"
	"airbnb-harvester/utils"
)

// ErrMiss means a strategy found nothing. It is not a failure.
var ErrMiss = errors.New("no match")

type step struct {
	name string
	fn   func() (string, error)
}

// attempt runs one strategy in isolation: panics become errors and an empty
// result becomes ErrMiss.
func attempt(s step) (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = "", fmt.Errorf("%s panicked: %v", s.name, r)
		}
	}()
	value, err = s.fn()
	if err == nil && value == "" {
		err = ErrMiss
	}
	return value, err
}

// firstOf returns the first non-empty result. Later steps are never run once
// one succeeds.
func firstOf(logger *utils.Logger, steps []step) (string, string) {
	for _, s := range steps {
		v, err := attempt(s)
		if err == nil {
			return v, s.name
		}
		if !errors.Is(err, ErrMiss) {
			logger.Debug("[extract] strategy %s: %v", s.name, err)
		}
	}
	return "", ""
}

// Extractor fills a ListingRecord from a rendered listing page.
type Extractor struct {
	strategies Strategies
	canon      *Canonicalizer
	license    *LicenseRecognizer
	logger     *utils.Logger
}

// NewExtractor wires the field strategies together.
func NewExtractor(s Strategies, canon *Canonicalizer, logger *utils.Logger) *Extractor {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Extractor{
		strategies: s,
		canon:      canon,
		license:    NewLicenseRecognizer(s, logger),
		logger:     logger,
	}
}

// Strategies returns the lookups in use.
func (e *Extractor) Strategies() Strategies { return e.strategies }

// Extract never fails: fields with no match stay empty.
func (e *Extractor) Extract(page render.Page, url string) models.ListingRecord {
	rec := models.ListingRecord{URL: url}

	rec.Title, _ = firstOf(e.logger, selectorSteps(page, "title", e.strategies.Title, textOf))
	rec.LicenseCode = e.license.Extract(page)
	rec.HostProfileURL, _ = firstOf(e.logger, selectorSteps(page, "host-url", e.strategies.Host, e.profileOf))
	rec.HostName, _ = firstOf(e.logger, selectorSteps(page, "host-name", e.strategies.Host, hostNameOf))

	return rec
}

// selectorSteps turns each selector into one strategy that returns the first
// non-empty value read from its matches.
func selectorSteps(page render.Page, field string, sels []Selector, read func(render.Element, Selector) string) []step {
	steps := make([]step, 0, len(sels))
	for _, sel := range sels {
		sel := sel
		steps = append(steps, step{name: field + "/" + sel.Name, fn: func() (string, error) {
			for _, el := range ordered(page.QuerySelectorAll(sel.CSS), sel.Innermost) {
				if v := read(el, sel); v != "" {
					return v, nil
				}
			}
			return "", ErrMiss
		}})
	}
	return steps
}

func textOf(el render.Element, sel Selector) string {
	if sel.Attr != "" {
		v, _ := el.Attribute(sel.Attr)
		return utils.NormaliseText(v)
	}
	return utils.NormaliseText(el.Text())
}

func (e *Extractor) profileOf(el render.Element, _ Selector) string {
	href, ok := el.Attribute("href")
	if !ok {
		return ""
	}
	abs, ok := e.canon.Resolve(href)
	if !ok {
		return ""
	}
	return abs
}

var hostNamePrefixes = []string{"hosted by ", "hébergé par ", "meet your host, ", "learn more about the host, "}

// hostNameOf reads the visible link text, falling back to the aria-label that
// avatar-only links carry.
func hostNameOf(el render.Element, _ Selector) string {
	name := utils.NormaliseText(el.Text())
	if name == "" {
		label, _ := el.Attribute("aria-label")
		name = utils.NormaliseText(label)
	}
	return trimHostName(name)
}

func trimHostName(name string) string {
	for _, p := range hostNamePrefixes {
		if len(name) >= len(p) && strings.EqualFold(name[:len(p)], p) {
			name = name[len(p):]
			break
		}
	}
	return strings.TrimSpace(strings.TrimSuffix(name, "."))
}
