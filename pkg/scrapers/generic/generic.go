package generic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"affilink/pkg/fetch"
	"affilink/pkg/models"
	"affilink/pkg/scrapers"
)

const Source = "generic"

// Scraper is the fallback for hosts no dedicated adapter matches. It
// reads open-graph and product meta tags, which most storefronts emit
// for link previews regardless of their markup.
type Scraper struct {
	UserAgent string
	Timeout   time.Duration
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

type Options struct {
	UserAgent string
	Timeout   time.Duration
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func NewScraper(opts Options) *Scraper {
	if opts.UserAgent == "" {
		opts.UserAgent = fetch.DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5 * time.Second
	}
	return &Scraper{
		UserAgent: opts.UserAgent,
		Timeout:   opts.Timeout,
		Attempts:  opts.Attempts,
		BaseDelay: opts.BaseDelay,
		MaxDelay:  opts.MaxDelay,
	}
}

func (s *Scraper) Extract(ctx context.Context, url string) (*models.RawFields, error) {
	var lastErr error
	delay := s.BaseDelay

	for attempt := 1; attempt <= s.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.MaxDelay {
				delay = s.MaxDelay
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		raw, err, permanent := s.scrapeOnce(ctx, url)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if permanent {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", models.ErrFetchExhausted, s.Attempts, lastErr)
}

// scrapeOnce runs a single colly visit. The collector is rebuilt per
// call because its handlers close over the result being filled; ctx is
// threaded into the underlying requests so cancellation aborts an
// in-flight fetch, not just the retry loop.
func (s *Scraper) scrapeOnce(ctx context.Context, url string) (*models.RawFields, error, bool) {
	c := colly.NewCollector(
		colly.UserAgent(s.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.Timeout)

	raw := &models.RawFields{}
	var titleTag, firstH1 string
	var status int

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	c.OnHTML(`meta[property]`, func(e *colly.HTMLElement) {
		content := strings.TrimSpace(e.Attr("content"))
		if content == "" {
			return
		}
		switch e.Attr("property") {
		case "og:title":
			raw.Title = content
		case "og:image":
			if raw.ImageURL == "" {
				raw.ImageURL = content
			} else {
				raw.AdditionalImages = append(raw.AdditionalImages, content)
			}
		case "product:price:amount", "og:price:amount":
			raw.PriceText = scrapers.MachineToPtBR(content)
		case "product:price:currency", "og:price:currency":
			raw.Currency = content
		case "product:availability", "og:availability":
			raw.AvailabilityText = content
		}
	})

	c.OnHTML("title", func(e *colly.HTMLElement) {
		if titleTag == "" {
			titleTag = strings.TrimSpace(e.Text)
		}
	})
	c.OnHTML("h1", func(e *colly.HTMLElement) {
		if firstH1 == "" {
			firstH1 = strings.TrimSpace(e.Text)
		}
	})

	err := c.Visit(url)
	if err != nil {
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status %d for %s", models.ErrPageNotAccessible, status, url), true
		}
		return nil, err, false
	}

	if raw.Title == "" {
		raw.Title = firstH1
	}
	if raw.Title == "" {
		raw.Title = titleTag
	}
	if raw.Title == "" {
		return nil, models.ErrMissingTitle, true
	}
	return raw, nil, false
}
