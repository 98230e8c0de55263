package search

import (
	"context"
	"fmt"
	"log/slog"

	"jobscout/internal/domain/entity"
	"jobscout/internal/observability/logging"
)

// ListingStore persists aggregated listings.
type ListingStore interface {
	ExistsByIDBatch(ctx context.Context, ids []string) (map[string]bool, error)
	Save(ctx context.Context, l *entity.Listing) error
}

// SaveStats summarizes one SearchAndSave run.
type SaveStats struct {
	Found   int
	Saved   int
	Skipped int
}

// SearchAndSave runs SearchAll and persists the listings the store has not
// seen yet. Store errors abort the run.
func (s *Service) SearchAndSave(ctx context.Context, q entity.SearchQuery, store ListingStore) (SaveStats, error) {
	if logging.CorrelationID(ctx) == "" {
		ctx = logging.WithCorrelationID(ctx, logging.NewCorrelationID())
	}
	var stats SaveStats

	listings, err := s.SearchAll(ctx, q)
	if err != nil {
		return stats, err
	}
	stats.Found = len(listings)
	if len(listings) == 0 {
		return stats, nil
	}

	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	exists, err := store.ExistsByIDBatch(ctx, ids)
	if err != nil {
		return stats, fmt.Errorf("check existing listings: %w", err)
	}

	for i := range listings {
		l := &listings[i]
		if exists[l.ID] {
			stats.Skipped++
			continue
		}
		if err := store.Save(ctx, l); err != nil {
			return stats, fmt.Errorf("save listing %s: %w", l.ID, err)
		}
		stats.Saved++
	}
	listingsSavedTotal.Add(float64(stats.Saved))

	logging.WithCorrelation(ctx, s.logger).Info("search results saved",
		slog.Int("found", stats.Found),
		slog.Int("saved", stats.Saved),
		slog.Int("skipped", stats.Skipped))
	return stats, nil
}
