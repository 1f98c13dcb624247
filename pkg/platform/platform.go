package platform

import (
	"fmt"
	"net/url"
	"strings"

	"affilink/pkg/models"
)

// ID identifies a supported marketplace.
type ID string

const (
	Amazon        ID = "amazon"
	MercadoLivre  ID = "mercadolivre"
	Shopee        ID = "shopee"
	MagazineLuiza ID = "magazine-luiza"
	CasasBahia    ID = "casas-bahia"
	Generic       ID = "generic"
)

// All lists every platform an adapter exists for.
var All = []ID{Amazon, MercadoLivre, Shopee, MagazineLuiza, CasasBahia, Generic}

type hostPattern struct {
	suffix string
	id     ID
}

// hostPatterns is ordered most-specific (longest suffix) first so a
// regional domain like amazon.com.br wins over amazon.com. Matching is
// exact-or-dot-suffix, so "notamazon.com" never matches "amazon.com".
var hostPatterns = []hostPattern{
	{"magazinevoce.com.br", MagazineLuiza},
	{"magazineluiza.com.br", MagazineLuiza},
	{"mercadolivre.com.br", MercadoLivre},
	{"mercadolibre.com", MercadoLivre},
	{"casasbahia.com.br", CasasBahia},
	{"shopee.com.br", Shopee},
	{"amazon.com.br", Amazon},
	{"magalu.com", MagazineLuiza},
	{"amazon.com", Amazon},
	{"shope.ee", Shopee},
	{"amzn.to", Amazon},
	{"a.co", Amazon},
}

// Classify maps a raw affiliate URL to the platform it belongs to.
// Unknown hosts fall back to Generic; the error cases are a URL that is
// not absolute http(s) at all.
func Classify(rawURL string) (ID, error) {
	host, err := Host(rawURL)
	if err != nil {
		return "", err
	}
	for _, p := range hostPatterns {
		if host == p.suffix || strings.HasSuffix(host, "."+p.suffix) {
			return p.id, nil
		}
	}
	return Generic, nil
}

// Host validates rawURL and returns its lowercased host without port.
func Host(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute http(s) url", models.ErrInvalidURL, rawURL)
	}
	return strings.ToLower(u.Hostname()), nil
}

// ParseID validates a platform value supplied by a caller (the
// ?platform= override). The empty string means "classify from the URL".
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", nil
	}
	for _, id := range All {
		if ID(s) == id {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", models.ErrUnsupportedPlatform, s)
}
