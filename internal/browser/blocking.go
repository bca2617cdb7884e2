package browser

import (
	"context"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

// ErrBlocked means the site answered with a bot wall instead of content.
var ErrBlocked = errors.New("blocked by anti-bot protection")

var blockingIndicators = []string{
	"access denied",
	"blocked",
	"captcha",
	"robot",
	"bot detection",
	"rate limit",
	"too many requests",
	"suspicious activity",
}

var blockingPattern = regexp.MustCompile(`\b(` + strings.Join(blockingIndicators, "|") + `)\b`)

// DetectBlocking looks for bot wall phrases in the title and visible text of
// a page and returns the first one found. Whole words only, so "robotics" in
// a job title doesn't count.
func DetectBlocking(html string) (string, bool) {

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	doc.Find("script, style, noscript").Remove()

	text := strings.ToLower(doc.Find("title").Text() + " " + doc.Find("body").Text())
	indicator := blockingPattern.FindString(text)
	return indicator, indicator != ""
}

// CheckBlocked wraps ErrBlocked with the indicator that matched.
func CheckBlocked(doc Document) error {
	if indicator, blocked := DetectBlocking(doc.HTML); blocked {
		return errors.Wrapf(ErrBlocked, "%q on %s", indicator, doc.URL)
	}
	return nil
}

// Pause sleeps for a random duration in [min, max], returning early with the
// context error when ctx is done.
func Pause(ctx context.Context, min, max time.Duration) error {

	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
