package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"airbnb-harvester/utils"
)

// blockedResources are URL patterns for images, media and fonts.
var blockedResources = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.avif", "*.svg", "*.ico",
	"*.mp4", "*.webm", "*.mp3", "*.m4a",
	"*.woff", "*.woff2", "*.ttf", "*.otf",
	"*a0.muscache.com/im/pictures*",
}

const consentScript = `
(function() {
	var labels = ['accept', 'accepter', 'ok', 'got it'];
	var buttons = document.querySelectorAll('button');
	for (var i = 0; i < buttons.length; i++) {
		var text = (buttons[i].innerText || '').trim().toLowerCase();
		for (var j = 0; j < labels.length; j++) {
			if (text === labels[j] || text.indexOf(labels[j] + ' ') === 0) {
				buttons[i].click();
				return true;
			}
		}
	}
	return false;
})()
`

// ChromeOptions configures the chromedp-backed renderer.
type ChromeOptions struct {
	ExecPath       string
	Headless       bool
	BlockResources bool
	NavTimeout     time.Duration
	WaitTimeout    time.Duration
	SettleDelay    time.Duration
	Disguise       *Disguise
	Logger         *utils.Logger
}

// ChromeRenderer launches one Chrome process per Session.
type ChromeRenderer struct {
	opts ChromeOptions
}

// NewChromeRenderer fills defaults and returns a renderer.
func NewChromeRenderer(opts ChromeOptions) *ChromeRenderer {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 40 * time.Second
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 10 * time.Second
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.ExecPath == "" {
		opts.ExecPath = FindChromeBinary()
	}
	if opts.Disguise == nil {
		opts.Disguise = NewDisguise("en-US")
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	return &ChromeRenderer{opts: opts}
}

// NewSession starts a browser. Failure here is not recoverable per listing.
func (r *ChromeRenderer) NewSession(ctx context.Context) (Session, error) {
	ua := r.opts.Disguise.UserAgent()
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(ua),
	)
	if r.opts.ExecPath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(r.opts.ExecPath))
	}

	// The browser outlives the caller's context; Close releases it.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), execOpts...)

	logf := func(string, ...interface{}) {}
	if r.opts.Logger.DebugEnabled() {
		logf = func(format string, args ...interface{}) {
			r.opts.Logger.Debug("[chromedp] "+format, args...)
		}
	}
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(logf))

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	r.opts.Logger.Debug("[render] browser session started (ua=%s)", ua)
	return &chromeSession{
		renderer:      r,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}, nil
}

type chromeSession struct {
	renderer      *ChromeRenderer
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

func (s *chromeSession) Close() error {
	s.cancelBrowser()
	s.cancelAlloc()
	return nil
}

// Open navigates a fresh tab. The tab is closed if anything fails.
func (s *chromeSession) Open(ctx context.Context, url string, opts ...OpenOption) (Page, error) {
	o := buildOpenOptions(opts)
	ro := s.renderer.opts

	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	p := &chromePage{url: url, tabCtx: tabCtx, cancel: cancelTab, settle: ro.SettleDelay}

	// allocate the tab on its own context so the timeout below cannot close it
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		return nil, &NavigationError{URL: url, Err: err}
	}

	navCtx, cancelNav := context.WithTimeout(tabCtx, ro.NavTimeout)
	defer cancelNav()
	stop := context.AfterFunc(ctx, cancelNav)
	defer stop()

	if err := chromedp.Run(navCtx, s.prepare(), chromedp.Navigate(url)); err != nil {
		cancelTab()
		return nil, &NavigationError{URL: url, Err: err}
	}

	if o.WaitFor != "" {
		waitCtx, cancelWait := context.WithTimeout(navCtx, ro.WaitTimeout)
		if err := chromedp.Run(waitCtx, chromedp.WaitReady(o.WaitFor, chromedp.ByQuery)); err != nil {
			ro.Logger.Debug("[render] wait for %q on %s: %v", o.WaitFor, url, err)
		}
		cancelWait()
	}

	var clicked bool
	_ = chromedp.Run(navCtx, chromedp.Evaluate(consentScript, &clicked))

	if err := p.snapshot(navCtx); err != nil {
		cancelTab()
		return nil, &NavigationError{URL: url, Err: err}
	}
	return p, nil
}

// prepare applies resource blocking and the disguise to a new tab.
func (s *chromeSession) prepare() chromedp.Action {
	ro := s.renderer.opts
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return err
		}
		if ro.BlockResources {
			if err := network.SetBlockedURLS(blockedResources).Do(ctx); err != nil {
				return err
			}
		}
		if err := network.SetExtraHTTPHeaders(network.Headers(ro.Disguise.Headers())).Do(ctx); err != nil {
			return err
		}
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	})
}

type chromePage struct {
	*DocumentPage
	url    string
	tabCtx context.Context
	cancel context.CancelFunc
	settle time.Duration
}

func (p *chromePage) snapshot(ctx context.Context) error {
	var html string
	if err := chromedp.Run(ctx,
		chromedp.Sleep(p.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return err
	}
	doc, err := NewDocumentPage(p.url, html)
	if err != nil {
		return err
	}
	p.DocumentPage = doc
	return nil
}

// Scroll pushes the viewport to the bottom and re-captures the DOM.
func (p *chromePage) Scroll(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(p.tabCtx, 15*time.Second)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx,
		chromedp.Evaluate(`window.scrollBy(0, document.body.scrollHeight)`, nil),
	); err != nil {
		return err
	}
	return p.snapshot(runCtx)
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}

// FindChromeBinary locates a Chrome/Chromium binary.
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
