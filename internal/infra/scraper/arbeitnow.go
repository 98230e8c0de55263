package scraper

import (
	"context"
	"strings"
	"time"

	"jobscout/internal/domain/entity"
)

// Arbeitnow reads the Arbeitnow job board API. The API has no search
// parameter, so listings are matched against the keywords locally.
type Arbeitnow struct {
	httpSource
	limit int
}

type arbeitnowResponse struct {
	Data []struct {
		Slug        string   `json:"slug"`
		CompanyName string   `json:"company_name"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Remote      bool     `json:"remote"`
		URL         string   `json:"url"`
		JobTypes    []string `json:"job_types"`
		Location    string   `json:"location"`
		CreatedAt   int64    `json:"created_at"`
	} `json:"data"`
}

func (a *Arbeitnow) Search(ctx context.Context, keywords []string, _ string) ([]entity.RawListing, error) {
	var resp arbeitnowResponse
	if err := a.getJSON(ctx, "/api/job-board-api", nil, &resp); err != nil {
		return nil, err
	}

	var listings []entity.RawListing
	for _, j := range resp.Data {
		if len(listings) >= a.limit {
			break
		}
		description := htmlToText(j.Description)
		if !matchesAny(j.Title+" "+description, keywords) {
			continue
		}
		location := j.Location
		if j.Remote && !strings.Contains(strings.ToLower(location), "remote") {
			location = strings.TrimSpace(location + " (Remote)")
		}
		var posted time.Time
		if j.CreatedAt > 0 {
			posted = time.Unix(j.CreatedAt, 0).UTC()
		}
		listings = append(listings, entity.RawListing{
			ExternalID:   j.Slug,
			Title:        j.Title,
			Organization: j.CompanyName,
			Location:     location,
			URL:          j.URL,
			Description:  description,
			PostedAt:     posted,
			JobType:      strings.Join(j.JobTypes, ", "),
		})
	}
	return listings, nil
}
