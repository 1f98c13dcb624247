package scrapers

import (
	"context"

	"affilink/pkg/models"
)

// Scraper is the extraction strategy for one marketplace. Adapters hold
// no mutable state; a single instance serves concurrent runs.
type Scraper interface {
	// Extract fetches the page behind url and pulls the raw product
	// fields out of it. A missing title is an error, every other
	// missing field is not.
	Extract(ctx context.Context, url string) (*models.RawFields, error)
}
