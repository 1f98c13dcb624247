package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type Availability string

const (
	InStock             Availability = "in_stock"
	OutOfStock          Availability = "out_of_stock"
	AvailabilityUnknown Availability = "unknown"
)

// ParsedProduct is the canonical record produced by a pipeline run.
// OriginalURL is the unique key for persistence: re-parsing the same
// URL updates the stored record instead of inserting a second one.
type ParsedProduct struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Slug               string          `json:"slug"`
	Price              float64         `json:"price,omitempty"`
	OriginalPrice      float64         `json:"original_price,omitempty"`
	DiscountPercentage int             `json:"discount_percentage,omitempty"`
	Currency           string          `json:"currency,omitempty"`
	ImageURL           string          `json:"image_url,omitempty"`
	AdditionalImages   JSONStringSlice `json:"additional_images,omitempty"`
	Platform           string          `json:"platform"`
	OriginalURL        string          `json:"original_url"`
	Availability       Availability    `json:"availability"`
	Rating             float64         `json:"rating,omitempty"`
	ReviewCount        int             `json:"review_count,omitempty"`
	LowConfidence      bool            `json:"low_confidence,omitempty"`
	ScrapedAt          time.Time       `json:"scraped_at"`
}

// RawFields is what an extractor pulls off a product page before
// normalization. Everything except Title is optional.
type RawFields struct {
	Title             string
	PriceText         string
	OriginalPriceText string
	Currency          string
	ImageURL          string
	AdditionalImages  []string
	AvailabilityText  string
	RatingText        string
	ReviewCountText   string
}

// JSONStringSlice stores a []string as a JSON text column.
type JSONStringSlice []string

func (j JSONStringSlice) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONStringSlice) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("unsupported type for JSONStringSlice")
	}
	return json.Unmarshal(bytes, j)
}
