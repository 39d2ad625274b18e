package airbnb

import (
	"regexp"
	"strings"

	"airbnb-harvester/scraper/render"
	"airbnb-harvester/utils"
)

var (
	// licensePrimaryRe matches the three-part registration code, e.g. ABC-DEF-12345.
	licensePrimaryRe = regexp.MustCompile(`(?i)\b([A-Z]{3}-[A-Z]{3}-[A-Z0-9]{4,6})\b`)
	// licenseCueRe finds a keyword that usually precedes a registration number.
	licenseCueRe = regexp.MustCompile(`(?i)registration(?:\s*no\.|\s*number)?|permit|licen[cs]e|dtcm`)
	// licenseTokenRe is a candidate code following a cue.
	licenseTokenRe = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9\-/]{3,40}`)
)

// RecognizeLicense looks for a registration code in free text. The strict
// three-part pattern wins; otherwise the first digit-bearing token after a
// permit/license/registration cue on the same line is returned. The result is
// upper-case, or empty when nothing matched.
func RecognizeLicense(text string) string {
	if m := licensePrimaryRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	return strings.ToUpper(licenseAfterCue(text))
}

func licenseAfterCue(text string) string {
	for _, loc := range licenseCueRe.FindAllStringIndex(text, -1) {
		rest := text[loc[1]:]
		if nl := strings.IndexAny(rest, "\r\n"); nl >= 0 {
			rest = rest[:nl]
		}
		for _, tok := range licenseTokenRe.FindAllString(rest, -1) {
			tok = strings.TrimRight(tok, "-/")
			if len(tok) >= 4 && strings.ContainsAny(tok, "0123456789") {
				return tok
			}
		}
	}
	return ""
}

// LicenseRecognizer finds the code on a listing page, narrowest scope first:
// the dedicated permit element, then labelled containers, then body text.
type LicenseRecognizer struct {
	strategies Strategies
	logger     *utils.Logger
}

// NewLicenseRecognizer builds a recognizer over the given strategies.
func NewLicenseRecognizer(s Strategies, logger *utils.Logger) *LicenseRecognizer {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &LicenseRecognizer{strategies: s, logger: logger}
}

// Extract returns the license code or "" on a total miss. It never panics.
func (l *LicenseRecognizer) Extract(page render.Page) string {
	var steps []step

	for _, sel := range l.strategies.LicenseDedicated {
		sel := sel
		steps = append(steps, step{name: "license/" + sel.Name, fn: func() (string, error) {
			return dedicatedLicense(page, sel)
		}})
	}
	for _, sel := range l.strategies.LicenseScopes {
		sel := sel
		steps = append(steps, step{name: "license/" + sel.Name, fn: func() (string, error) {
			for _, el := range ordered(page.QuerySelectorAll(sel.CSS), sel.Innermost) {
				if code := RecognizeLicense(utils.NormaliseText(el.Text())); code != "" {
					return code, nil
				}
			}
			return "", ErrMiss
		}})
	}
	steps = append(steps, step{name: "license/body", fn: func() (string, error) {
		return RecognizeLicense(page.Text()), nil
	}})

	code, _ := firstOf(l.logger, steps)
	return code
}

// dedicatedLicense reads the value span of the permit element. When no
// pattern matches, a single digit-bearing token in that span is taken as is.
func dedicatedLicense(page render.Page, sel Selector) (string, error) {
	el, ok := page.QuerySelector(sel.CSS)
	if !ok {
		return "", ErrMiss
	}
	spans := el.QuerySelectorAll("span")
	if len(spans) >= 2 {
		val := utils.NormaliseText(spans[len(spans)-1].Text())
		if m := licensePrimaryRe.FindStringSubmatch(val); m != nil {
			return strings.ToUpper(m[1]), nil
		}
		if val != "" && !strings.Contains(val, " ") && strings.ContainsAny(val, "0123456789") {
			return strings.ToUpper(val), nil
		}
	}
	return RecognizeLicense(utils.NormaliseText(el.Text())), nil
}

// ordered returns elements innermost-first when requested. Descendants come
// after their ancestors in document order, so reversing visits deeper
// matches first.
func ordered(els []render.Element, innermost bool) []render.Element {
	if !innermost {
		return els
	}
	out := make([]render.Element, len(els))
	for i, el := range els {
		out[len(els)-1-i] = el
	}
	return out
}
