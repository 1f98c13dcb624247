package casasbahia

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"affilink/pkg/fetch"
	"affilink/pkg/models"
	"affilink/pkg/scrapers"
)

const Source = "casas-bahia"

type Scraper struct {
	Client *fetch.Client
}

func NewScraper(client *fetch.Client) *Scraper {
	return &Scraper{Client: client}
}

// Extract combines the JSON-LD Product block with the open-graph meta
// tags the page always carries.
func (s *Scraper) Extract(ctx context.Context, url string) (*models.RawFields, error) {
	body, err := s.Client.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	raw := &models.RawFields{}

	if ld, ok := scrapers.FindProductLD(doc); ok {
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
		raw.Title = metaContent(doc, "og:title")
	}
	if raw.Title == "" {
		raw.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if raw.Title == "" {
		return nil, models.ErrMissingTitle
	}

	if raw.PriceText == "" {
		raw.PriceText = scrapers.MachineToPtBR(metaContent(doc, "product:price:amount"))
	}
	if raw.Currency == "" {
		raw.Currency = metaContent(doc, "product:price:currency")
	}
	if raw.ImageURL == "" {
		raw.ImageURL = metaContent(doc, "og:image")
	}
	if raw.AvailabilityText == "" {
		raw.AvailabilityText = metaContent(doc, "product:availability")
	}

	return raw, nil
}

func metaContent(doc *goquery.Document, property string) string {
	return strings.TrimSpace(doc.Find(`meta[property="` + property + `"]`).First().AttrOr("content", ""))
}
