package shopee

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"affilink/pkg/fetch"
	"affilink/pkg/models"
	"affilink/pkg/scrapers"
)

const Source = "shopee"

// Scraper drives a headless browser because shopee renders its product
// pages entirely client side; a plain GET returns an empty shell.
type Scraper struct {
	UserAgent string
	Timeout   time.Duration
}

type Options struct {
	UserAgent string
	Timeout   time.Duration
}

func NewScraper(opts Options) *Scraper {
	if opts.UserAgent == "" {
		opts.UserAgent = fetch.DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	return &Scraper{UserAgent: opts.UserAgent, Timeout: opts.Timeout}
}

func (s *Scraper) Extract(ctx context.Context, url string) (*models.RawFields, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(s.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	scrapeCtx, cancelScrape := context.WithTimeout(browserCtx, s.Timeout)
	defer cancelScrape()

	var jsonLDContent, ogTitle, ogImage string

	err := chromedp.Run(scrapeCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(`body`, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),

		chromedp.Evaluate(`
			(function() {
				const scripts = document.querySelectorAll('script[type="application/ld+json"]');
				for (const script of scripts) {
					if (script.innerText.includes('"@type": "Product"') || script.innerText.includes('"@type":"Product"')) {
						return script.innerText;
					}
				}
				return "";
			})()
		`, &jsonLDContent),

		chromedp.Evaluate(`document.querySelector('meta[property="og:title"]')?.content || ""`, &ogTitle),
		chromedp.Evaluate(`document.querySelector('meta[property="og:image"]')?.content || ""`, &ogImage),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: browser render of %s: %v", models.ErrFetchExhausted, url, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("chromedp failed for %s: %w", url, err)
	}

	raw := &models.RawFields{}

	if ld, ok := scrapers.ParseProductLD(jsonLDContent); ok {
		raw.Title = ld.Name
		raw.PriceText = ld.PriceText()
		raw.Currency = ld.Offers.PriceCurrency
		raw.AvailabilityText = ld.Offers.Availability
		raw.RatingText = ld.RatingText()
		raw.ReviewCountText = ld.ReviewCountText()
		if imgs := ld.Images(); len(imgs) > 0 {
			raw.ImageURL = imgs[0]
			raw.AdditionalImages = imgs[1:]
		}
	}

	if raw.Title == "" {
		raw.Title = strings.TrimSpace(ogTitle)
	}
	if raw.Title == "" {
		return nil, models.ErrMissingTitle
	}
	if raw.ImageURL == "" {
		raw.ImageURL = strings.TrimSpace(ogImage)
	}

	return raw, nil
}
