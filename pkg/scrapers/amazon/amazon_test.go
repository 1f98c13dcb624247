package amazon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"affilink/pkg/fetch"
	"affilink/pkg/models"
)

const productPage = `
<!DOCTYPE html>
<html>
<body>
	<span id="productTitle"> Echo Dot 5ª Geração | Smart speaker com Alexa </span>
	<div id="corePrice_feature_div">
		<span class="a-price"><span class="a-offscreen">R$ 379,05</span></span>
	</div>
	<div class="basisPrice">
		<span class="a-price a-text-price"><span class="a-offscreen">R$ 474,05</span></span>
	</div>
	<div id="availability"><span> Em estoque </span></div>
	<img id="landingImage" src="https://m.media-amazon.com/images/I/main.jpg" data-old-hires="https://m.media-amazon.com/images/I/main-hires.jpg"/>
	<span id="acrPopover" title="4,8 de 5 estrelas"></span>
	<span id="acrCustomerReviewText">51.733 avaliações de clientes</span>
	<script>
		var data = {"colorImages": {"initial": [{"hiRes":"https://m.media-amazon.com/images/I/g1.jpg"},{"hiRes":"https://m.media-amazon.com/images/I/g2.jpg"}]}};
	</script>
</body>
</html>
`

func testFetchClient() *fetch.Client {
	return fetch.New(fetch.Options{Timeout: 2 * time.Second, Attempts: 1, BaseDelay: time.Millisecond})
}

func TestExtract(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPage)
	}))
	defer ts.Close()

	raw, err := NewScraper(testFetchClient()).Extract(context.Background(), ts.URL+"/dp/B01234567")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if raw.Title != "Echo Dot 5ª Geração | Smart speaker com Alexa" {
		t.Errorf("title = %q", raw.Title)
	}
	if raw.PriceText != "R$ 379,05" {
		t.Errorf("price text = %q", raw.PriceText)
	}
	if raw.OriginalPriceText != "R$ 474,05" {
		t.Errorf("original price text = %q", raw.OriginalPriceText)
	}
	if raw.ImageURL != "https://m.media-amazon.com/images/I/main-hires.jpg" {
		t.Errorf("image = %q", raw.ImageURL)
	}
	if len(raw.AdditionalImages) != 2 || raw.AdditionalImages[0] != "https://m.media-amazon.com/images/I/g1.jpg" {
		t.Errorf("gallery = %v", raw.AdditionalImages)
	}
	if raw.AvailabilityText != "Em estoque" {
		t.Errorf("availability = %q", raw.AvailabilityText)
	}
	if raw.RatingText != "4,8 de 5 estrelas" {
		t.Errorf("rating = %q", raw.RatingText)
	}
	if raw.ReviewCountText != "51.733 avaliações de clientes" {
		t.Errorf("reviews = %q", raw.ReviewCountText)
	}
}

func TestExtractMissingTitle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="availability"><span>Em estoque</span></div></body></html>`)
	}))
	defer ts.Close()

	_, err := NewScraper(testFetchClient()).Extract(context.Background(), ts.URL+"/dp/B000")
	if !errors.Is(err, models.ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}
}

func TestExtractNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := NewScraper(testFetchClient()).Extract(context.Background(), ts.URL+"/dp/B000")
	if !errors.Is(err, models.ErrPageNotAccessible) {
		t.Fatalf("expected ErrPageNotAccessible, got %v", err)
	}
}
