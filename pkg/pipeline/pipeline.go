package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"affilink/pkg/logger"
	"affilink/pkg/models"
	"affilink/pkg/normalize"
	"affilink/pkg/platform"
	"affilink/pkg/store"
)

// Options controls a single run.
type Options struct {
	// Platform skips classification when set (the ?platform= override).
	Platform platform.ID
	// SaveToDB upserts the normalized record keyed by its original URL.
	SaveToDB bool
	// ExtractImages keeps the gallery; when false only the main image
	// survives normalization.
	ExtractImages bool
}

// Pipeline runs classify -> resolve -> extract -> normalize -> upsert
// for one affiliate URL. Each run is independent; the only shared state
// is the read-only registry and the store, whose uniqueness constraint
// carries correctness under concurrency.
type Pipeline struct {
	registry *Registry
	store    *store.Store
	freshTTL time.Duration
}

// New wires the orchestrator. freshTTL > 0 lets a recently scraped
// record short-circuit the run instead of hitting the marketplace
// again.
func New(registry *Registry, st *store.Store, freshTTL time.Duration) *Pipeline {
	return &Pipeline{registry: registry, store: st, freshTTL: freshTTL}
}

func (p *Pipeline) Run(ctx context.Context, rawURL string, opts Options) (*models.ParsedProduct, error) {
	id := opts.Platform
	if id == "" {
		var err error
		id, err = platform.Classify(rawURL)
		if err != nil {
			return nil, err
		}
	} else {
		// The override still requires a syntactically valid URL.
		if _, err := platform.Host(rawURL); err != nil {
			return nil, err
		}
	}

	scraper, err := p.registry.Resolve(id)
	if err != nil {
		return nil, err
	}

	if p.store != nil && p.freshTTL > 0 {
		if cached, ok := p.store.Fresh(rawURL, p.freshTTL); ok {
			logger.Dedup("Fresh record for %s, skipping extraction", rawURL)
			return trimImages(cached, opts), nil
		}
	}

	raw, err := scraper.Extract(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	product, err := normalize.Product(id, rawURL, raw)
	if err != nil && !errors.Is(err, models.ErrNumericParse) {
		return nil, err
	}
	if err != nil {
		log.Printf("Low-confidence product for %s: %v", rawURL, err)
	}
	product.ScrapedAt = time.Now().UTC()
	product = trimImages(product, opts)

	if opts.SaveToDB {
		if p.store == nil {
			return nil, fmt.Errorf("%w: no store configured", models.ErrPersistence)
		}
		persisted, err := p.store.Upsert(product)
		if err != nil {
			return nil, err
		}
		return persisted, nil
	}
	return product, nil
}

func trimImages(product *models.ParsedProduct, opts Options) *models.ParsedProduct {
	if opts.ExtractImages || len(product.AdditionalImages) == 0 {
		return product
	}
	trimmed := *product
	trimmed.AdditionalImages = nil
	return &trimmed
}
