package entity

import (
	"strings"
	"time"
)

// RawListing is a job posting as returned by a source adapter, before the
// aggregator normalizes it.
type RawListing struct {
	ExternalID   string
	Title        string
	Organization string
	Location     string
	URL          string
	Description  string
	PostedAt     time.Time
	Salary       string
	JobType      string
}

// Listing is a source-agnostic job posting produced by the aggregator.
// ID is qualified by the source name ("remotive:12345").
type Listing struct {
	ID              string
	Title           string
	Organization    string
	LocationText    string
	URL             string
	DescriptionText string
	PostedAt        time.Time
	SourceName      string
	SalaryText      string
	JobType         string
	Score           int
}

// Normalize converts a raw listing from the named source into a Listing.
// Whitespace is trimmed and an empty external ID falls back to the URL.
func (r RawListing) Normalize(source string) Listing {
	externalID := strings.TrimSpace(r.ExternalID)
	if externalID == "" {
		externalID = strings.TrimSpace(r.URL)
	}
	return Listing{
		ID:              source + ":" + externalID,
		Title:           strings.TrimSpace(r.Title),
		Organization:    strings.TrimSpace(r.Organization),
		LocationText:    strings.TrimSpace(r.Location),
		URL:             strings.TrimSpace(r.URL),
		DescriptionText: strings.TrimSpace(r.Description),
		PostedAt:        r.PostedAt,
		SourceName:      source,
		SalaryText:      strings.TrimSpace(r.Salary),
		JobType:         strings.TrimSpace(r.JobType),
	}
}

// DedupeKey returns the case-insensitive (title, organization) identity of a listing.
func (l Listing) DedupeKey() string {
	return strings.ToLower(strings.TrimSpace(l.Title)) + "|" + strings.ToLower(strings.TrimSpace(l.Organization))
}

// HasPostedAt reports whether the source supplied a posting date.
func (l Listing) HasPostedAt() bool {
	return !l.PostedAt.IsZero()
}
