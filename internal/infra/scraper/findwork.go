package scraper

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"jobscout/internal/domain/entity"
)

// Findwork queries the findwork.dev API. It needs an API token.
type Findwork struct {
	httpSource
}

type findworkResponse struct {
	Results []struct {
		ID             int64  `json:"id"`
		Role           string `json:"role"`
		CompanyName    string `json:"company_name"`
		EmploymentType string `json:"employment_type"`
		Location       string `json:"location"`
		Remote         bool   `json:"remote"`
		URL            string `json:"url"`
		Text           string `json:"text"`
		DatePosted     string `json:"date_posted"`
	} `json:"results"`
}

func (f *Findwork) Search(ctx context.Context, keywords []string, location string) ([]entity.RawListing, error) {
	q := url.Values{}
	q.Set("search", strings.Join(keywords, " "))
	if location != "" {
		q.Set("location", location)
	}

	var resp findworkResponse
	if err := f.getJSON(ctx, "/api/jobs/", q, &resp); err != nil {
		return nil, err
	}

	listings := make([]entity.RawListing, 0, len(resp.Results))
	for _, j := range resp.Results {
		loc := j.Location
		if j.Remote && !strings.Contains(strings.ToLower(loc), "remote") {
			loc = strings.TrimSpace(loc + " (Remote)")
		}
		listings = append(listings, entity.RawListing{
			ExternalID:   strconv.FormatInt(j.ID, 10),
			Title:        j.Role,
			Organization: j.CompanyName,
			Location:     loc,
			URL:          j.URL,
			Description:  htmlToText(j.Text),
			PostedAt:     parseDate(j.DatePosted),
			JobType:      j.EmploymentType,
		})
	}
	return listings, nil
}
