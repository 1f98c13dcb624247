package normalize

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"affilink/pkg/models"
	"affilink/pkg/platform"
)

// Locale fixes how thousand and decimal separators are read. It is
// always resolved from the platform, never guessed from the string.
type Locale string

const (
	LocalePtBR Locale = "pt-BR" // 1.234,56
	LocaleEnUS Locale = "en-US" // 1,234.56
)

// locales maps each platform to the locale its price strings use. All
// supported marketplaces are Brazilian storefronts; generic pages are
// read as pt-BR as well.
var locales = map[platform.ID]Locale{
	platform.Amazon:        LocalePtBR,
	platform.MercadoLivre:  LocalePtBR,
	platform.Shopee:        LocalePtBR,
	platform.MagazineLuiza: LocalePtBR,
	platform.CasasBahia:    LocalePtBR,
	platform.Generic:       LocalePtBR,
}

var numberRegex = regexp.MustCompile(`\d[\d.,]*`)

// enUSLayout recognizes a number laid out with comma grouping and a dot
// decimal ("1,079.00"). A pt-BR string never matches: its dot groups
// carry three digits and its decimal separator is a comma.
var enUSLayout = regexp.MustCompile(`^\d+(,\d{3})*\.\d{1,2}$`)

// fallbackLocales lists platforms whose links span storefront locales.
// amazon.com classifies as amazon alongside amazon.com.br, so its
// prices may arrive in either layout.
var fallbackLocales = map[platform.ID]Locale{
	platform.Amazon: LocaleEnUS,
}

// priceLocale resolves the locale for one numeric field. The platform
// table decides; a platform with an en-US fallback switches over only
// when the string's separator layout is unambiguously en-US.
func priceLocale(id platform.ID, text string) Locale {
	loc := locales[id]
	if loc == "" {
		loc = LocalePtBR
	}
	if fb, ok := fallbackLocales[id]; ok && loc != fb && enUSLayout.MatchString(numberRegex.FindString(text)) {
		return fb
	}
	return loc
}

// ParsePrice finds the first number in a price string like
// "R$ 1.234,56" and converts it according to the locale.
func ParsePrice(text string, loc Locale) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	found := numberRegex.FindString(text)
	if found == "" {
		return 0, fmt.Errorf("%w: no number in %q", models.ErrNumericParse, text)
	}

	var cleaned string
	switch loc {
	case LocaleEnUS:
		cleaned = strings.ReplaceAll(found, ",", "")
	default:
		cleaned = strings.ReplaceAll(found, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q in %q", models.ErrNumericParse, cleaned, text)
	}
	if val < 0 {
		return 0, fmt.Errorf("%w: negative amount in %q", models.ErrNumericParse, text)
	}
	return val, nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slug builds a URL-safe slug from a title: lowercase, runs of
// non-alphanumerics collapsed to single hyphens, trimmed.
func Slug(title string) string {
	slug := strings.ToLower(title)
	slug = slugInvalid.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// Product converts raw extracted fields into a canonical record. It is
// pure: no I/O, no ID assignment (the store does that on insert) and no
// timestamps (the pipeline stamps the run).
//
// A malformed numeric field does not abort the conversion: the product
// is returned flagged LowConfidence together with an error wrapping
// models.ErrNumericParse so the caller can decide how loudly to report
// it.
func Product(id platform.ID, originalURL string, raw *models.RawFields) (*models.ParsedProduct, error) {
	title := collapseWhitespace(raw.Title)
	if title == "" {
		return nil, models.ErrMissingTitle
	}

	p := &models.ParsedProduct{
		Title:        title,
		Slug:         Slug(title),
		Platform:     string(id),
		OriginalURL:  originalURL,
		Currency:     raw.Currency,
		Availability: parseAvailability(raw.AvailabilityText),
	}
	if p.Currency == "" {
		p.Currency = "BRL"
	}

	var numErr error

	if v, err := ParsePrice(raw.PriceText, priceLocale(id, raw.PriceText)); err != nil {
		numErr = err
	} else {
		p.Price = v
	}
	if v, err := ParsePrice(raw.OriginalPriceText, priceLocale(id, raw.OriginalPriceText)); err != nil {
		numErr = err
	} else {
		p.OriginalPrice = v
	}
	if v, err := ParsePrice(raw.RatingText, priceLocale(id, raw.RatingText)); err != nil {
		numErr = err
	} else {
		p.Rating = v
	}
	if raw.ReviewCountText != "" {
		if v, err := parseCount(raw.ReviewCountText); err != nil {
			numErr = err
		} else {
			p.ReviewCount = v
		}
	}

	if p.Price > 0 && p.OriginalPrice > p.Price {
		p.DiscountPercentage = int(math.Round(100 * (1 - p.Price/p.OriginalPrice)))
	}
	if p.OriginalPrice > 0 && p.OriginalPrice <= p.Price {
		// A "was" price at or below the current one is noise.
		p.OriginalPrice = 0
	}

	p.ImageURL = absoluteURL(raw.ImageURL, originalURL)
	for _, img := range uniqueStrings(raw.AdditionalImages) {
		abs := absoluteURL(img, originalURL)
		if abs != "" && abs != p.ImageURL {
			p.AdditionalImages = append(p.AdditionalImages, abs)
		}
	}

	if numErr != nil {
		p.LowConfidence = true
		return p, numErr
	}
	return p, nil
}

var digitsRegex = regexp.MustCompile(`\d+`)

func parseCount(text string) (int, error) {
	digits := strings.Join(digitsRegex.FindAllString(text, -1), "")
	if digits == "" {
		return 0, fmt.Errorf("%w: no digits in %q", models.ErrNumericParse, text)
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", models.ErrNumericParse, text)
	}
	return v, nil
}

func parseAvailability(text string) models.Availability {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case t == "":
		return models.AvailabilityUnknown
	case t == string(models.InStock):
		return models.InStock
	case t == string(models.OutOfStock):
		return models.OutOfStock
	case strings.Contains(t, "esgotado"),
		strings.Contains(t, "indispon"),
		strings.Contains(t, "out of stock"),
		strings.Contains(t, "outofstock"),
		strings.Contains(t, "unavailable"):
		return models.OutOfStock
	case strings.Contains(t, "em estoque"),
		strings.Contains(t, "dispon"),
		strings.Contains(t, "in stock"),
		strings.Contains(t, "instock"):
		return models.InStock
	default:
		return models.AvailabilityUnknown
	}
}

func absoluteURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(u).String()
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
