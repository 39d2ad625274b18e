// Package render wraps the headless browser behind a small page-query API so
// that harvesting and extraction can run against live Chrome or static HTML.
package render

import (
	"context"
	"errors"
	"fmt"
)

// ErrNavigation matches every NavigationError via errors.Is.
var ErrNavigation = errors.New("navigation failed")

// NavigationError reports a page that failed to load or timed out.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() []error {
	return []error{ErrNavigation, e.Err}
}

// Renderer creates isolated browser sessions. A session must never be shared
// between goroutines that navigate concurrently.
type Renderer interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session owns one browser's cookie and fingerprint state.
type Session interface {
	Open(ctx context.Context, url string, opts ...OpenOption) (Page, error)
	Close() error
}

// Page is a rendered document.
type Page interface {
	QuerySelector(selector string) (Element, bool)
	QuerySelectorAll(selector string) []Element
	// Text returns the visible body text.
	Text() string
	RawMarkup() string
	Close() error
}

// Scroller is implemented by pages that can trigger lazy-loaded content.
type Scroller interface {
	Scroll(ctx context.Context) error
}

// Element is a single DOM node.
type Element interface {
	Text() string
	Attribute(name string) (string, bool)
	QuerySelectorAll(selector string) []Element
}

// OpenOptions tunes a single navigation.
type OpenOptions struct {
	// WaitFor is a selector to wait for (best effort) before snapshotting.
	WaitFor string
}

// OpenOption mutates OpenOptions.
type OpenOption func(*OpenOptions)

// WaitFor waits for selector to appear before the page is captured.
func WaitFor(selector string) OpenOption {
	return func(o *OpenOptions) { o.WaitFor = selector }
}

func buildOpenOptions(opts []OpenOption) OpenOptions {
	var o OpenOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
