package pipeline

import (
	"fmt"

	"affilink/pkg/fetch"
	"affilink/pkg/models"
	"affilink/pkg/platform"
	"affilink/pkg/scrapers"
	"affilink/pkg/scrapers/amazon"
	"affilink/pkg/scrapers/casasbahia"
	"affilink/pkg/scrapers/generic"
	"affilink/pkg/scrapers/magalu"
	"affilink/pkg/scrapers/mercadolivre"
	"affilink/pkg/scrapers/shopee"
)

// Registry maps a platform to its extraction strategy. It is populated
// once at construction and never mutated, so concurrent runs share it
// without locking.
type Registry struct {
	adapters map[platform.ID]scrapers.Scraper
}

func NewRegistry(client *fetch.Client, genericOpts generic.Options, shopeeOpts shopee.Options) *Registry {
	return &Registry{
		adapters: map[platform.ID]scrapers.Scraper{
			platform.Amazon:        amazon.NewScraper(client),
			platform.MercadoLivre:  mercadolivre.NewScraper(client),
			platform.MagazineLuiza: magalu.NewScraper(client),
			platform.CasasBahia:    casasbahia.NewScraper(client),
			platform.Shopee:        shopee.NewScraper(shopeeOpts),
			platform.Generic:       generic.NewScraper(genericOpts),
		},
	}
}

// Resolve returns the adapter for a platform. The classifier's generic
// fallback makes a miss unreachable in practice, but the registry
// guards independently anyway.
func (r *Registry) Resolve(id platform.ID) (scrapers.Scraper, error) {
	sc, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrAdapterNotRegistered, id)
	}
	return sc, nil
}
