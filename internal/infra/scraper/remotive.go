package scraper

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"jobscout/internal/domain/entity"
)

// Remotive queries the Remotive remote jobs API.
type Remotive struct {
	httpSource
	limit int
}

type remotiveResponse struct {
	Jobs []struct {
		ID                        int64  `json:"id"`
		URL                       string `json:"url"`
		Title                     string `json:"title"`
		CompanyName               string `json:"company_name"`
		JobType                   string `json:"job_type"`
		PublicationDate           string `json:"publication_date"`
		CandidateRequiredLocation string `json:"candidate_required_location"`
		Salary                    string `json:"salary"`
		Description               string `json:"description"`
	} `json:"jobs"`
}

func (r *Remotive) Search(ctx context.Context, keywords []string, _ string) ([]entity.RawListing, error) {
	q := url.Values{}
	q.Set("search", strings.Join(keywords, " "))
	q.Set("limit", strconv.Itoa(r.limit))

	var resp remotiveResponse
	if err := r.getJSON(ctx, "/api/remote-jobs", q, &resp); err != nil {
		return nil, err
	}

	listings := make([]entity.RawListing, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		location := "Remote"
		if j.CandidateRequiredLocation != "" {
			location = "Remote (" + j.CandidateRequiredLocation + ")"
		}
		listings = append(listings, entity.RawListing{
			ExternalID:   strconv.FormatInt(j.ID, 10),
			Title:        j.Title,
			Organization: j.CompanyName,
			Location:     location,
			URL:          j.URL,
			Description:  htmlToText(j.Description),
			PostedAt:     parseDate(j.PublicationDate),
			Salary:       j.Salary,
			JobType:      j.JobType,
		})
	}
	return listings, nil
}
