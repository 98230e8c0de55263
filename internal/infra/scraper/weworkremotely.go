package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"jobscout/internal/domain/entity"
	"jobscout/internal/resilience/failure"
)

// WeWorkRemotely reads the WeWorkRemotely RSS feed. Item titles have the
// form "Company: Role".
type WeWorkRemotely struct {
	httpSource
	limit int
}

func (w *WeWorkRemotely) Search(ctx context.Context, keywords []string, _ string) ([]entity.RawListing, error) {
	body, err := w.get(ctx, "/remote-jobs.rss", nil)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, failure.New(failure.DataFormatError, fmt.Errorf("%s parse feed: %w", w.name, err))
	}

	var listings []entity.RawListing
	for _, it := range feed.Items {
		if len(listings) >= w.limit {
			break
		}
		company, title := splitCompanyTitle(it.Title)
		description := htmlToText(it.Description)
		if !matchesAny(title+" "+description, keywords) {
			continue
		}
		l := entity.RawListing{
			ExternalID:   it.GUID,
			Title:        title,
			Organization: company,
			Location:     "Remote",
			URL:          it.Link,
			Description:  truncate(description, 500),
		}
		if it.PublishedParsed != nil {
			l.PostedAt = *it.PublishedParsed
		}
		if region, ok := it.Custom["region"]; ok && region != "" {
			l.Location = "Remote (" + region + ")"
		}
		if typ, ok := it.Custom["type"]; ok {
			l.JobType = typ
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func splitCompanyTitle(s string) (company, title string) {
	if i := strings.Index(s, ":"); i > 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	return "", strings.TrimSpace(s)
}
