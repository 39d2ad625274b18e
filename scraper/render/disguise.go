package render

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// stealthScript hides the most common automation markers.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3]});
window.chrome = window.chrome || {runtime: {}};
`

// Disguise picks per-session browser identity: user agent and locale headers.
type Disguise struct {
	UserAgents []string
	Locale     string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewDisguise returns a Disguise using the built-in user-agent list.
func NewDisguise(locale string) *Disguise {
	return &Disguise{
		UserAgents: defaultUserAgents,
		Locale:     locale,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// UserAgent returns a random user agent string.
func (d *Disguise) UserAgent() string {
	if d == nil || len(d.UserAgents) == 0 {
		return defaultUserAgents[0]
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rnd == nil {
		d.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return d.UserAgents[d.rnd.Intn(len(d.UserAgents))]
}

// AcceptLanguage builds an Accept-Language value such as "fr-FR,fr;q=0.9".
func (d *Disguise) AcceptLanguage() string {
	locale := "en-US"
	if d != nil && strings.TrimSpace(d.Locale) != "" {
		locale = strings.TrimSpace(d.Locale)
	}
	lang, _, found := strings.Cut(locale, "-")
	if !found {
		return locale
	}
	return locale + "," + lang + ";q=0.9"
}

// Headers returns the extra request headers sent with every navigation.
func (d *Disguise) Headers() map[string]interface{} {
	return map[string]interface{}{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": d.AcceptLanguage(),
		"DNT":             "1",
	}
}
