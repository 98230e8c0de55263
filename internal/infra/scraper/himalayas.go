package scraper

import (
	"context"
	"fmt"
	"strings"

	"jobscout/internal/domain/entity"
)

// Himalayas reads the Himalayas remote jobs API and matches keywords locally.
type Himalayas struct {
	httpSource
	limit int
}

type himalayasResponse struct {
	Jobs []struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
		Location    string `json:"location"`
		PublishedAt string `json:"published_at"`
		Employment  string `json:"employment_type"`
		MinSalary   int    `json:"min_salary"`
		MaxSalary   int    `json:"max_salary"`
		Company     struct {
			Name string `json:"name"`
		} `json:"company"`
	} `json:"jobs"`
}

func (h *Himalayas) Search(ctx context.Context, keywords []string, _ string) ([]entity.RawListing, error) {
	var resp himalayasResponse
	if err := h.getJSON(ctx, "/jobs/api", nil, &resp); err != nil {
		return nil, err
	}

	var listings []entity.RawListing
	for _, j := range resp.Jobs {
		if len(listings) >= h.limit {
			break
		}
		description := htmlToText(j.Description)
		if !matchesAny(j.Title+" "+description, keywords) {
			continue
		}
		location := j.Location
		if location == "" {
			location = "Remote"
		}
		var salary string
		if j.MaxSalary > 0 {
			salary = fmt.Sprintf("%d - %d", j.MinSalary, j.MaxSalary)
		}
		listings = append(listings, entity.RawListing{
			ExternalID:   j.ID,
			Title:        j.Title,
			Organization: j.Company.Name,
			Location:     location,
			URL:          strings.TrimRight(h.baseURL, "/") + "/jobs/" + j.Slug,
			Description:  truncate(description, 500),
			PostedAt:     parseDate(j.PublishedAt),
			Salary:       salary,
			JobType:      j.Employment,
		})
	}
	return listings, nil
}
