package scraper

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobscout/internal/domain/entity"
)

// LinkedIn scrapes the public guest job search fragment. Cards carry no
// description, so the title doubles as one until enrichment replaces it.
type LinkedIn struct {
	httpSource
	limit int
}

func (l *LinkedIn) Search(ctx context.Context, keywords []string, location string) ([]entity.RawListing, error) {
	q := url.Values{}
	q.Set("keywords", strings.Join(keywords, " "))
	q.Set("location", location)
	q.Set("start", "0")

	doc, err := l.getDocument(ctx, "/jobs-guest/jobs/api/seeMoreJobPostings/search", q)
	if err != nil {
		return nil, err
	}

	var listings []entity.RawListing
	doc.Find("li").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if len(listings) >= l.limit {
			return false
		}
		title := strings.TrimSpace(card.Find("h3.base-search-card__title").Text())
		href, ok := card.Find("a.base-card__full-link").Attr("href")
		if title == "" || !ok {
			return true
		}
		company := strings.TrimSpace(card.Find("h4.base-search-card__subtitle").Text())
		if company == "" {
			company = "Unknown"
		}
		loc := strings.TrimSpace(card.Find("span.job-search-card__location").Text())
		if loc == "" {
			loc = location
		}
		posted := ""
		if dt, ok := card.Find("time").Attr("datetime"); ok {
			posted = dt
		}

		href = strings.TrimSpace(href)
		listings = append(listings, entity.RawListing{
			ExternalID:   jobIDFromURL(href),
			Title:        title,
			Organization: company,
			Location:     loc,
			URL:          href,
			Description:  title,
			PostedAt:     parseDate(posted),
		})
		return true
	})
	return listings, nil
}

// jobIDFromURL returns the last path segment of a job URL, without query.
func jobIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return path.Base(strings.TrimRight(u.Path, "/"))
}
