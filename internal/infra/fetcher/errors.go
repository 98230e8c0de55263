package fetcher

import "errors"

var (
	// ErrInvalidURL is returned for unparseable URLs and non-http(s) schemes.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP is returned when a host resolves to a private, loopback or
	// link-local address.
	ErrPrivateIP = errors.New("private IP access denied")

	ErrTooManyRedirects = errors.New("too many redirects")
	ErrBodyTooLarge     = errors.New("response body too large")

	// ErrReadabilityFailed means the page was fetched but held no readable text.
	ErrReadabilityFailed = errors.New("content extraction failed")
)
