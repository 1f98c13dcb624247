package normalize

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"affilink/pkg/models"
	"affilink/pkg/platform"
)

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		locale   Locale
		expected float64
	}{
		{"Plain BRL", "R$ 99,90", LocalePtBR, 99.90},
		{"Thousands BRL", "R$ 1.234,56", LocalePtBR, 1234.56},
		{"Integer BRL", "R$ 120", LocalePtBR, 120},
		{"Label Prefix", "Por: R$ 2.550,50", LocalePtBR, 2550.50},
		{"US Format", "$1,079.00", LocaleEnUS, 1079},
		{"Empty Is Unset", "", LocalePtBR, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePrice(tc.input, tc.locale)
			if err != nil {
				t.Fatalf("ParsePrice(%q) error: %v", tc.input, err)
			}
			if got != tc.expected {
				t.Errorf("ParsePrice(%q) = %f; want %f", tc.input, got, tc.expected)
			}
		})
	}

	if _, err := ParsePrice("sob consulta", LocalePtBR); !errors.Is(err, models.ErrNumericParse) {
		t.Errorf("expected ErrNumericParse for non-numeric text, got %v", err)
	}
}

func TestSlug(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"Echo Dot (5ª Geração)", "echo-dot-5-gera-o"},
		{"  Notebook Gamer -- 16GB RAM ", "notebook-gamer-16gb-ram"},
		{"ABC", "abc"},
		{"---", ""},
	}
	for _, tc := range testCases {
		if got := Slug(tc.input); got != tc.expected {
			t.Errorf("Slug(%q) = %q; want %q", tc.input, got, tc.expected)
		}
	}

	// Slugging is idempotent.
	for _, tc := range testCases {
		if got := Slug(Slug(tc.input)); got != Slug(tc.input) {
			t.Errorf("Slug not idempotent for %q", tc.input)
		}
	}
}

func TestProduct(t *testing.T) {
	raw := &models.RawFields{
		Title:             "Echo Dot  5ª Geração\n",
		PriceText:         "R$ 100,00",
		OriginalPriceText: "R$ 200,00",
		ImageURL:          "https://img.example.com/main.jpg",
		AdditionalImages:  []string{"/gallery/1.jpg", "https://img.example.com/main.jpg", "/gallery/1.jpg"},
		AvailabilityText:  "Em estoque",
		RatingText:        "4,7 de 5 estrelas",
		ReviewCountText:   "12.345 avaliações",
	}

	p, err := Product(platform.Amazon, "https://www.amazon.com.br/dp/B01234567", raw)
	if err != nil {
		t.Fatalf("Product failed: %v", err)
	}

	if p.Title != "Echo Dot 5ª Geração" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Price != 100 || p.OriginalPrice != 200 {
		t.Errorf("prices = %f / %f", p.Price, p.OriginalPrice)
	}
	if p.DiscountPercentage != 50 {
		t.Errorf("discount = %d; want 50", p.DiscountPercentage)
	}
	if p.Currency != "BRL" {
		t.Errorf("currency = %q", p.Currency)
	}
	if p.Rating != 4.7 || p.ReviewCount != 12345 {
		t.Errorf("rating = %f, reviews = %d", p.Rating, p.ReviewCount)
	}
	if p.Availability != models.InStock {
		t.Errorf("availability = %q", p.Availability)
	}
	if want := []string{"https://www.amazon.com.br/gallery/1.jpg"}; !reflect.DeepEqual([]string(p.AdditionalImages), want) {
		t.Errorf("additional images = %v; want %v", p.AdditionalImages, want)
	}
	if p.LowConfidence {
		t.Error("unexpected low-confidence flag")
	}
	if p.ID != "" {
		t.Error("normalizer must not assign IDs")
	}
}

// An amazon.com link classifies as amazon just like amazon.com.br, so
// the normalizer must read en-US price layouts for that platform
// without mangling the grouping separators.
func TestProductAmazonEnUSPrices(t *testing.T) {
	raw := &models.RawFields{
		Title:             "Kindle Paperwhite",
		PriceText:         "$1,079.00",
		OriginalPriceText: "$1,199.00",
		RatingText:        "4.7 out of 5 stars",
	}
	p, err := Product(platform.Amazon, "https://www.amazon.com/dp/B01234567", raw)
	if err != nil {
		t.Fatalf("Product failed: %v", err)
	}
	if p.Price != 1079 || p.OriginalPrice != 1199 {
		t.Errorf("prices = %f / %f; want 1079 / 1199", p.Price, p.OriginalPrice)
	}
	if p.DiscountPercentage != 10 {
		t.Errorf("discount = %d; want 10", p.DiscountPercentage)
	}
	if p.Rating != 4.7 {
		t.Errorf("rating = %f; want 4.7", p.Rating)
	}

	// The pt-BR storefront still parses with its own layout.
	brl, err := Product(platform.Amazon, "https://www.amazon.com.br/dp/B01234567", &models.RawFields{
		Title:     "Kindle Paperwhite",
		PriceText: "R$ 1.079,00",
	})
	if err != nil {
		t.Fatalf("Product failed: %v", err)
	}
	if brl.Price != 1079 {
		t.Errorf("pt-BR price = %f; want 1079", brl.Price)
	}
}

func TestProductIdempotent(t *testing.T) {
	raw := &models.RawFields{
		Title:            "Smart TV 50 Polegadas",
		PriceText:        "R$ 2.199,00",
		ImageURL:         "https://img.example.com/tv.jpg",
		AvailabilityText: "in_stock",
	}
	first, err := Product(platform.MagazineLuiza, "https://www.magazineluiza.com.br/p/123", raw)
	if err != nil {
		t.Fatalf("first normalize failed: %v", err)
	}

	// Feed the normalized record back in as raw fields; the output
	// must not change.
	again := &models.RawFields{
		Title:            first.Title,
		PriceText:        strings.ReplaceAll(fmt.Sprintf("%.2f", first.Price), ".", ","),
		Currency:         first.Currency,
		ImageURL:         first.ImageURL,
		AvailabilityText: string(first.Availability),
	}
	second, err := Product(platform.MagazineLuiza, first.OriginalURL, again)
	if err != nil {
		t.Fatalf("second normalize failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalize not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestProductNumericParseDegrades(t *testing.T) {
	raw := &models.RawFields{
		Title:     "Produto Sem Preço",
		PriceText: "sob consulta",
	}
	p, err := Product(platform.Generic, "https://store.example.com/item", raw)
	if !errors.Is(err, models.ErrNumericParse) {
		t.Fatalf("expected ErrNumericParse, got %v", err)
	}
	if p == nil {
		t.Fatal("product must still be returned on numeric parse failure")
	}
	if !p.LowConfidence {
		t.Error("expected low-confidence flag")
	}
	if p.Title != "Produto Sem Preço" {
		t.Errorf("title = %q", p.Title)
	}
}

func TestProductMissingTitle(t *testing.T) {
	_, err := Product(platform.Generic, "https://store.example.com/item", &models.RawFields{PriceText: "R$ 10,00"})
	if !errors.Is(err, models.ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}
}

func TestProductDropsBogusOriginalPrice(t *testing.T) {
	raw := &models.RawFields{
		Title:             "Fone Bluetooth",
		PriceText:         "R$ 150,00",
		OriginalPriceText: "R$ 150,00",
	}
	p, err := Product(platform.CasasBahia, "https://www.casasbahia.com.br/p/9", raw)
	if err != nil {
		t.Fatalf("Product failed: %v", err)
	}
	if p.OriginalPrice != 0 || p.DiscountPercentage != 0 {
		t.Errorf("expected no discount, got original=%f percent=%d", p.OriginalPrice, p.DiscountPercentage)
	}
}
