package magalu

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"affilink/pkg/fetch"
	"affilink/pkg/models"
	"affilink/pkg/scrapers"
)

const Source = "magazine-luiza"

type Scraper struct {
	Client *fetch.Client
}

func NewScraper(client *fetch.Client) *Scraper {
	return &Scraper{Client: client}
}

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
		raw.Title = strings.TrimSpace(doc.Find(`h1[data-testid="heading-product-title"]`).First().Text())
	}
	if raw.Title == "" {
		return nil, models.ErrMissingTitle
	}

	if raw.PriceText == "" {
		raw.PriceText = strings.TrimSpace(doc.Find(`p[data-testid="price-value"]`).First().Text())
	}
	if raw.OriginalPriceText == "" {
		raw.OriginalPriceText = strings.TrimSpace(doc.Find(`p[data-testid="price-original"]`).First().Text())
	}
	if raw.ImageURL == "" {
		raw.ImageURL = doc.Find(`img[data-testid="image-selected-thumbnail"]`).First().AttrOr("src", "")
	}
	if len(raw.AdditionalImages) == 0 {
		doc.Find(`img[data-testid="media-gallery-image"]`).Each(func(_ int, sel *goquery.Selection) {
			if src := sel.AttrOr("src", ""); src != "" {
				raw.AdditionalImages = append(raw.AdditionalImages, src)
			}
		})
	}

	return raw, nil
}
