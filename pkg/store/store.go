package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"affilink/pkg/models"
)

// Store is the persistence gate. Idempotency rests on the UNIQUE
// constraint over original_url: a concurrent duplicate insert surfaces
// as a conflict, which Upsert retries as an update exactly once.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id TEXT NOT NULL PRIMARY KEY,
			title TEXT NOT NULL,
			slug TEXT NOT NULL,
			price REAL NOT NULL DEFAULT 0,
			original_price REAL NOT NULL DEFAULT 0,
			discount_percentage INTEGER NOT NULL DEFAULT 0,
			currency TEXT,
			image_url TEXT,
			additional_images TEXT,
			platform TEXT NOT NULL,
			original_url TEXT NOT NULL UNIQUE,
			availability TEXT,
			rating REAL NOT NULL DEFAULT 0,
			review_count INTEGER NOT NULL DEFAULT 0,
			low_confidence BOOLEAN NOT NULL DEFAULT 0,
			scraped_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `id, title, slug, price, original_price, discount_percentage,
	currency, image_url, additional_images, platform, original_url,
	availability, rating, review_count, low_confidence, scraped_at`

// FindByURL returns the stored record for an original URL, or nil when
// none exists.
func (s *Store) FindByURL(originalURL string) (*models.ParsedProduct, error) {
	row := s.db.QueryRow(
		`SELECT `+productColumns+` FROM products WHERE original_url = ?`,
		originalURL,
	)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find %s: %v", models.ErrPersistence, originalURL, err)
	}
	return p, nil
}

// Fresh returns the stored record when it was scraped within ttl.
func (s *Store) Fresh(originalURL string, ttl time.Duration) (*models.ParsedProduct, bool) {
	p, err := s.FindByURL(originalURL)
	if err != nil || p == nil {
		return nil, false
	}
	if time.Since(p.ScrapedAt) > ttl {
		return nil, false
	}
	return p, true
}

// Insert writes a new record, assigning its immutable ID.
func (s *Store) Insert(p *models.ParsedProduct) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := s.db.Exec(
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Slug, p.Price, p.OriginalPrice, p.DiscountPercentage,
		p.Currency, p.ImageURL, p.AdditionalImages, p.Platform, p.OriginalURL,
		string(p.Availability), p.Rating, p.ReviewCount, p.LowConfidence, p.ScrapedAt,
	)
	return err
}

// Update overwrites the mutable fields of an existing record.
func (s *Store) Update(id string, p *models.ParsedProduct) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE products SET title = ?, slug = ?, price = ?, original_price = ?,
			discount_percentage = ?, currency = ?, image_url = ?, additional_images = ?,
			availability = ?, rating = ?, review_count = ?, low_confidence = ?, scraped_at = ?
		 WHERE id = ?`,
		p.Title, p.Slug, p.Price, p.OriginalPrice,
		p.DiscountPercentage, p.Currency, p.ImageURL, p.AdditionalImages,
		string(p.Availability), p.Rating, p.ReviewCount, p.LowConfidence, p.ScrapedAt,
		id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Upsert inserts or updates by original_url, merging the new record
// over the old one: new non-empty values win, unset new fields keep the
// stored values.
func (s *Store) Upsert(p *models.ParsedProduct) (*models.ParsedProduct, error) {
	existing, err := s.FindByURL(p.OriginalURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.mergeUpdate(existing, p)
	}

	if err := s.Insert(p); err != nil {
		if !isUniqueConflict(err) {
			return nil, fmt.Errorf("%w: insert %s: %v", models.ErrPersistence, p.OriginalURL, err)
		}
		// A concurrent run inserted the same URL first. Retry as an
		// update exactly once.
		existing, ferr := s.FindByURL(p.OriginalURL)
		if ferr != nil {
			return nil, ferr
		}
		if existing == nil {
			return nil, fmt.Errorf("%w: conflict on %s but no row found", models.ErrPersistence, p.OriginalURL)
		}
		p.ID = ""
		return s.mergeUpdate(existing, p)
	}
	return p, nil
}

func (s *Store) mergeUpdate(old, new *models.ParsedProduct) (*models.ParsedProduct, error) {
	merged := merge(old, new)
	ok, err := s.Update(merged.ID, merged)
	if err != nil {
		return nil, fmt.Errorf("%w: update %s: %v", models.ErrPersistence, merged.OriginalURL, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: update %s touched no rows", models.ErrPersistence, merged.OriginalURL)
	}
	return merged, nil
}

func merge(old, new *models.ParsedProduct) *models.ParsedProduct {
	m := *new
	m.ID = old.ID
	m.Platform = old.Platform // set once at classification, never changed
	m.OriginalURL = old.OriginalURL
	if m.Title == "" {
		m.Title = old.Title
		m.Slug = old.Slug
	}
	if m.Price == 0 {
		m.Price = old.Price
	}
	if m.OriginalPrice == 0 {
		m.OriginalPrice = old.OriginalPrice
	}
	if m.Currency == "" {
		m.Currency = old.Currency
	}
	if m.ImageURL == "" {
		m.ImageURL = old.ImageURL
	}
	if len(m.AdditionalImages) == 0 {
		m.AdditionalImages = old.AdditionalImages
	}
	if m.Availability == "" || m.Availability == models.AvailabilityUnknown {
		m.Availability = old.Availability
	}
	if m.Rating == 0 {
		m.Rating = old.Rating
	}
	if m.ReviewCount == 0 {
		m.ReviewCount = old.ReviewCount
	}
	if m.ScrapedAt.IsZero() {
		m.ScrapedAt = old.ScrapedAt
	}

	// The price pair may now mix runs, so the discount is always
	// recomputed from it rather than carried over.
	if m.OriginalPrice > 0 && m.OriginalPrice <= m.Price {
		m.OriginalPrice = 0
	}
	if m.Price > 0 && m.OriginalPrice > m.Price {
		m.DiscountPercentage = int(math.Round(100 * (1 - m.Price/m.OriginalPrice)))
	} else {
		m.DiscountPercentage = 0
	}
	return &m
}

func isUniqueConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.ParsedProduct, error) {
	var p models.ParsedProduct
	var availability string
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Price, &p.OriginalPrice, &p.DiscountPercentage,
		&p.Currency, &p.ImageURL, &p.AdditionalImages, &p.Platform, &p.OriginalURL,
		&availability, &p.Rating, &p.ReviewCount, &p.LowConfidence, &p.ScrapedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Availability = models.Availability(availability)
	return &p, nil
}
