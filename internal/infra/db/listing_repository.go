package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"jobscout/internal/domain/entity"
	"jobscout/internal/resilience/circuitbreaker"
)

// existsBatchSize bounds the IN list of one existence query.
const existsBatchSize = 500

// ListingRepository persists listings through the database breaker.
type ListingRepository struct {
	db        *circuitbreaker.DBCircuitBreaker
	batchSize int
}

func NewListingRepository(db *circuitbreaker.DBCircuitBreaker) *ListingRepository {
	return &ListingRepository{db: db, batchSize: existsBatchSize}
}

// ExistsByIDBatch reports which of ids are already stored, querying at most
// batchSize ids at a time.
func (repo *ListingRepository) ExistsByIDBatch(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool, len(ids))
	for start := 0; start < len(ids); start += repo.batchSize {
		end := min(start+repo.batchSize, len(ids))
		if err := repo.existsChunk(ctx, ids[start:end], result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (repo *ListingRepository) existsChunk(ctx context.Context, ids []string, found map[string]bool) error {
	var b strings.Builder
	b.WriteString(`SELECT id FROM listings WHERE id IN (`)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("$" + strconv.Itoa(i+1))
		args[i] = id
	}
	b.WriteString(")")

	rows, err := repo.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return fmt.Errorf("ExistsByIDBatch: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("ExistsByIDBatch: Scan: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ExistsByIDBatch: rows.Err: %w", err)
	}
	return nil
}

// Save inserts l. A listing that already exists is left unchanged.
func (repo *ListingRepository) Save(ctx context.Context, l *entity.Listing) error {
	const query = `
INSERT INTO listings (id, source_name, title, organization, location_text, url, description, salary_text, job_type, score, posted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO NOTHING`

	var posted sql.NullTime
	if l.HasPostedAt() {
		posted = sql.NullTime{Time: l.PostedAt, Valid: true}
	}
	if _, err := repo.db.ExecContext(ctx, query,
		l.ID, l.SourceName, l.Title, l.Organization, l.LocationText, l.URL,
		l.DescriptionText, l.SalaryText, l.JobType, l.Score, posted); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// CountBySource returns the number of stored listings per source.
func (repo *ListingRepository) CountBySource(ctx context.Context) (map[string]int, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT source_name, COUNT(*) FROM listings GROUP BY source_name`)
	if err != nil {
		return nil, fmt.Errorf("CountBySource: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			source string
			n      int
		)
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("CountBySource: Scan: %w", err)
		}
		counts[source] = n
	}
	return counts, rows.Err()
}
