package models

import "errors"

var (
	ErrInvalidURL           = errors.New("invalid url")
	ErrUnsupportedPlatform  = errors.New("unsupported platform")
	ErrAdapterNotRegistered = errors.New("no adapter registered for platform")

	// ErrPageNotAccessible is permanent: the extractor got a 4xx and
	// will not retry.
	ErrPageNotAccessible = errors.New("page not accessible")

	// ErrFetchExhausted is returned once all retry attempts for a
	// transient failure (timeout, 5xx, network error) are spent.
	ErrFetchExhausted = errors.New("fetch retries exhausted")

	ErrMissingTitle = errors.New("product title not found")

	// ErrNumericParse does not abort a pipeline run; the product is
	// kept and flagged low-confidence.
	ErrNumericParse = errors.New("numeric field could not be parsed")

	ErrPersistence = errors.New("persistence failure")
)
