package mercadolivre

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"affilink/pkg/fetch"
	"affilink/pkg/models"
	"affilink/pkg/scrapers"
)

const Source = "mercadolivre"

type Scraper struct {
	Client *fetch.Client
}

func NewScraper(client *fetch.Client) *Scraper {
	return &Scraper{Client: client}
}

// Extract reads the JSON-LD Product block first and falls back to the
// ui-pdp selectors the product page renders.
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
		raw.Title = strings.TrimSpace(doc.Find("h1.ui-pdp-title").First().Text())
	}
	if raw.Title == "" {
		return nil, models.ErrMissingTitle
	}

	if raw.PriceText == "" {
		raw.PriceText = pdpPrice(doc, ".ui-pdp-price__second-line .andes-money-amount")
	}
	if raw.OriginalPriceText == "" {
		raw.OriginalPriceText = pdpPrice(doc, "s.andes-money-amount--previous")
	}
	if raw.ImageURL == "" {
		raw.ImageURL = doc.Find("figure.ui-pdp-gallery__figure img").First().AttrOr("data-zoom", "")
		if raw.ImageURL == "" {
			raw.ImageURL = doc.Find("figure.ui-pdp-gallery__figure img").First().AttrOr("src", "")
		}
	}
	doc.Find("figure.ui-pdp-gallery__figure img").Each(func(i int, sel *goquery.Selection) {
		if i == 0 {
			return
		}
		if src := sel.AttrOr("data-zoom", sel.AttrOr("src", "")); src != "" {
			raw.AdditionalImages = append(raw.AdditionalImages, src)
		}
	})

	return raw, nil
}

// pdpPrice joins the fraction and cents spans the page splits a price
// into, e.g. "1.234" + "56" -> "1.234,56".
func pdpPrice(doc *goquery.Document, selector string) string {
	amount := doc.Find(selector).First()
	fraction := strings.TrimSpace(amount.Find(".andes-money-amount__fraction").First().Text())
	if fraction == "" {
		return strings.TrimSpace(amount.Text())
	}
	cents := strings.TrimSpace(amount.Find(".andes-money-amount__cents").First().Text())
	if cents == "" {
		return fraction
	}
	return fraction + "," + cents
}
