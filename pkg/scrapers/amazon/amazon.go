package amazon

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"affilink/pkg/fetch"
	"affilink/pkg/models"
)

const Source = "amazon"

type Scraper struct {
	Client *fetch.Client
}

func NewScraper(client *fetch.Client) *Scraper {
	return &Scraper{Client: client}
}

// hiResRegex pulls gallery URLs out of the colorImages script block on
// the product page.
var hiResRegex = regexp.MustCompile(`"hiRes":"(https://[^"]+)"`)

func (s *Scraper) Extract(ctx context.Context, url string) (*models.RawFields, error) {
	body, err := s.Client.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	raw := &models.RawFields{
		Title:            strings.TrimSpace(doc.Find("#productTitle").First().Text()),
		AvailabilityText: strings.TrimSpace(doc.Find("#availability span").First().Text()),
	}
	if raw.Title == "" {
		return nil, models.ErrMissingTitle
	}

	raw.PriceText = firstText(doc,
		"#corePrice_feature_div .a-price .a-offscreen",
		"#corePriceDisplay_desktop_feature_div .a-price .a-offscreen",
		".a-price .a-offscreen",
	)
	// The struck-through "De:" price.
	raw.OriginalPriceText = firstText(doc,
		".basisPrice .a-price.a-text-price .a-offscreen",
		"span.a-price.a-text-price[data-a-strike=true] .a-offscreen",
	)

	if img, ok := doc.Find("#landingImage").Attr("data-old-hires"); ok && img != "" {
		raw.ImageURL = img
	} else {
		raw.ImageURL = doc.Find("#landingImage").AttrOr("src", "")
	}
	for _, m := range hiResRegex.FindAllStringSubmatch(string(body), -1) {
		raw.AdditionalImages = append(raw.AdditionalImages, m[1])
	}

	raw.RatingText = firstText(doc,
		"span[data-hook=rating-out-of-text]",
		"#acrPopover .a-icon-alt",
	)
	if raw.RatingText == "" {
		raw.RatingText = doc.Find("#acrPopover").AttrOr("title", "")
	}
	raw.ReviewCountText = strings.TrimSpace(doc.Find("#acrCustomerReviewText").First().Text())

	return raw, nil
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}
