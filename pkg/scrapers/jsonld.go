package scrapers

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ProductLD is the subset of a schema.org Product JSON-LD block the
// extractors care about. Price can be a string or a number depending on
// the site, so it stays raw until read.
type ProductLD struct {
	Type            string          `json:"@type"`
	Name            string          `json:"name"`
	Image           json.RawMessage `json:"image"`
	AggregateRating struct {
		RatingValue json.RawMessage `json:"ratingValue"`
		ReviewCount json.RawMessage `json:"reviewCount"`
	} `json:"aggregateRating"`
	Offers struct {
		Type          string          `json:"@type"`
		Availability  string          `json:"availability"`
		Price         json.RawMessage `json:"price"`
		LowPrice      json.RawMessage `json:"lowPrice"`
		PriceCurrency string          `json:"priceCurrency"`
	} `json:"offers"`
}

// FindProductLD scans the document's ld+json scripts for a Product
// block. Both bare objects and @graph arrays appear in the wild.
func FindProductLD(doc *goquery.Document) (*ProductLD, bool) {
	var found *ProductLD
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if ld, ok := ParseProductLD(sel.Text()); ok {
			found = ld
			return false
		}
		return true
	})
	return found, found != nil
}

// ParseProductLD decodes a single ld+json payload, accepting a bare
// Product object, an array of objects, or an @graph wrapper.
func ParseProductLD(text string) (*ProductLD, bool) {
	text = strings.TrimSpace(text)
	if text == "" || !strings.Contains(text, "Product") {
		return nil, false
	}

	var single ProductLD
	if err := json.Unmarshal([]byte(text), &single); err == nil && single.Type == "Product" {
		return &single, true
	}

	var list []ProductLD
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		for i := range list {
			if list[i].Type == "Product" {
				return &list[i], true
			}
		}
	}

	var graph struct {
		Graph []ProductLD `json:"@graph"`
	}
	if err := json.Unmarshal([]byte(text), &graph); err == nil {
		for i := range graph.Graph {
			if graph.Graph[i].Type == "Product" {
				return &graph.Graph[i], true
			}
		}
	}

	return nil, false
}

// PriceText renders the offer price as pt-BR text for the normalizer.
// JSON-LD carries machine-format decimals (dot separator, no grouping),
// so the dot is rewritten to a decimal comma before handing it over.
func (ld *ProductLD) PriceText() string {
	if s := rawToString(ld.Offers.Price); s != "" {
		return MachineToPtBR(s)
	}
	return MachineToPtBR(rawToString(ld.Offers.LowPrice))
}

func (ld *ProductLD) RatingText() string {
	return MachineToPtBR(rawToString(ld.AggregateRating.RatingValue))
}

var machineDecimal = regexp.MustCompile(`^\d+(\.\d+)?$`)

// MachineToPtBR rewrites a machine-format decimal ("2199.00", as found
// in JSON-LD and open-graph price tags) to the pt-BR form the
// normalizer's locale table expects. Anything else passes through.
func MachineToPtBR(s string) string {
	s = strings.TrimSpace(s)
	if machineDecimal.MatchString(s) {
		return strings.Replace(s, ".", ",", 1)
	}
	return s
}

func (ld *ProductLD) ReviewCountText() string {
	return rawToString(ld.AggregateRating.ReviewCount)
}

// Images flattens the image field, which is either a single URL or a
// list of URLs.
func (ld *ProductLD) Images() []string {
	if len(ld.Image) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(ld.Image, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(ld.Image, &many); err == nil {
		return many
	}
	return nil
}

func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(f, 'f', 2, 64), "0"), ".")
	}
	return ""
}
