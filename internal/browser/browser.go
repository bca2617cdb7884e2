// Package browser drives a Chromium instance through playwright and parses
// the amazon.jobs pages it renders.
package browser

import (
	"context"
	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
	log "github.com/sirupsen/logrus"
	"time"
)

const consentButton = "#onetrust-accept-btn-handler"

type Options struct {
	Headless  bool
	Timeout   time.Duration
	UserAgent string
}

// Document is a rendered page.
type Document struct {
	URL  string
	HTML string
}

// Page loads URLs one at a time. A page is not safe for concurrent use, each
// worker opens its own.
type Page interface {
	Load(ctx context.Context, url string) (Document, error)
	Close() error
}

type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	options Options
}

func Launch(options Options) (*Session, error) {

	if options.Timeout <= 0 {
		options.Timeout = 30 * time.Second
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, errors.Wrap(err, "could not start playwright, is the driver installed")
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(options.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, errors.Wrap(err, "could not launch chromium")
	}

	log.Debugf("chromium launched, headless: %v", options.Headless)
	return &Session{pw: pw, browser: browser, options: options}, nil
}

// NewPage opens a page in its own browser context so workers don't share cookies or state.
func (s *Session) NewPage() (Page, error) {

	contextOptions := playwright.BrowserNewContextOptions{
		Locale: playwright.String("en-US"),
		Viewport: &playwright.Size{
			Width:  1366,
			Height: 900,
		},
	}
	if s.options.UserAgent != "" {
		contextOptions.UserAgent = playwright.String(s.options.UserAgent)
	}

	browserCtx, err := s.browser.NewContext(contextOptions)
	if err != nil {
		return nil, errors.Wrap(err, "could not create browser context")
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		_ = browserCtx.Close()
		return nil, errors.Wrap(err, "could not create page")
	}
	page.SetDefaultTimeout(float64(s.options.Timeout.Milliseconds()))

	return &livePage{browserCtx: browserCtx, page: page, timeout: s.options.Timeout}, nil
}

func (s *Session) Close() error {
	var errs []error
	if err := s.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Errorf("closing browser: %v", errs)
	}
	return nil
}

type livePage struct {
	browserCtx playwright.BrowserContext
	page       playwright.Page
	timeout    time.Duration
	consented  bool
}

func (p *livePage) Load(ctx context.Context, url string) (Document, error) {

	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(p.timeout.Milliseconds())),
	})
	if err != nil {
		return Document{}, errors.Wrapf(err, "navigation to %s failed", url)
	}

	// listing tiles are rendered by scripts after DOMContentLoaded
	_ = p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(p.timeout.Milliseconds())),
	})

	p.acceptConsent()

	html, err := p.page.Content()
	if err != nil {
		return Document{}, errors.Wrap(err, "could not read page content")
	}

	return Document{URL: p.page.URL(), HTML: html}, nil
}

func (p *livePage) acceptConsent() {
	if p.consented {
		return
	}
	button := p.page.Locator(consentButton)
	if visible, _ := button.IsVisible(); !visible {
		return
	}
	if err := button.Click(); err != nil {
		log.Debugf("could not accept cookie consent: %v", err)
		return
	}
	p.consented = true
}

func (p *livePage) Close() error {
	return p.browserCtx.Close()
}
