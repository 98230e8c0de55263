package entity

import (
	"fmt"
	"strings"
)

// DatePosted is a recency bucket relative to the time of the search.
type DatePosted string

const (
	DatePostedAll   DatePosted = "all"
	DatePostedToday DatePosted = "today"
	DatePostedWeek  DatePosted = "week"
	DatePostedMonth DatePosted = "month"
)

// JobType is an employment type filter.
type JobType string

const (
	JobTypeAll      JobType = "all"
	JobTypeFullTime JobType = "fulltime"
	JobTypePartTime JobType = "parttime"
	JobTypeContract JobType = "contract"
)

// Experience is a seniority filter.
type Experience string

const (
	ExperienceAll    Experience = "all"
	ExperienceEntry  Experience = "entry"
	ExperienceMid    Experience = "mid"
	ExperienceSenior Experience = "senior"
)

// SortBy selects the ranking mode of the aggregated result.
type SortBy string

const (
	SortByRelevance SortBy = "relevance"
	SortByDate      SortBy = "date"
	SortByCompany   SortBy = "company"
)

// SearchFilters are independent predicates applied after deduplication.
// Zero values mean "no filter".
type SearchFilters struct {
	RemoteOnly bool
	DatePosted DatePosted
	JobType    JobType
	Experience Experience
	// SalaryMin is an annual amount. Zero disables the filter.
	SalaryMin int
}

// SearchQuery is the input of one aggregation run.
type SearchQuery struct {
	Keywords []string
	Location string
	Filters  SearchFilters
	SortBy   SortBy
}

// Validate checks the query and fills defaults for empty enum values.
// It returns a *ValidationError for malformed input.
func (q *SearchQuery) Validate() error {
	keywords := make([]string, 0, len(q.Keywords))
	for _, k := range q.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return &ValidationError{Field: "keywords", Message: "at least one keyword is required"}
	}
	q.Keywords = keywords

	if q.Filters.DatePosted == "" {
		q.Filters.DatePosted = DatePostedAll
	}
	switch q.Filters.DatePosted {
	case DatePostedAll, DatePostedToday, DatePostedWeek, DatePostedMonth:
	default:
		return &ValidationError{Field: "date_posted", Message: fmt.Sprintf("unsupported value %q", q.Filters.DatePosted)}
	}

	if q.Filters.JobType == "" {
		q.Filters.JobType = JobTypeAll
	}
	switch q.Filters.JobType {
	case JobTypeAll, JobTypeFullTime, JobTypePartTime, JobTypeContract:
	default:
		return &ValidationError{Field: "job_type", Message: fmt.Sprintf("unsupported value %q", q.Filters.JobType)}
	}

	if q.Filters.Experience == "" {
		q.Filters.Experience = ExperienceAll
	}
	switch q.Filters.Experience {
	case ExperienceAll, ExperienceEntry, ExperienceMid, ExperienceSenior:
	default:
		return &ValidationError{Field: "experience", Message: fmt.Sprintf("unsupported value %q", q.Filters.Experience)}
	}

	if q.Filters.SalaryMin < 0 {
		return &ValidationError{Field: "salary_min", Message: "must not be negative"}
	}

	if q.SortBy == "" {
		q.SortBy = SortByRelevance
	}
	switch q.SortBy {
	case SortByRelevance, SortByDate, SortByCompany:
	default:
		return &ValidationError{Field: "sort_by", Message: fmt.Sprintf("unsupported value %q", q.SortBy)}
	}
	return nil
}

// CacheKey returns a stable key for the normalized query.
func (q SearchQuery) CacheKey() string {
	keywords := make([]string, len(q.Keywords))
	for i, k := range q.Keywords {
		keywords[i] = strings.ToLower(strings.TrimSpace(k))
	}
	return fmt.Sprintf("%s|%s|%t|%s|%s|%s|%d|%s",
		strings.Join(keywords, ","),
		strings.ToLower(strings.TrimSpace(q.Location)),
		q.Filters.RemoteOnly,
		q.Filters.DatePosted,
		q.Filters.JobType,
		q.Filters.Experience,
		q.Filters.SalaryMin,
		q.SortBy,
	)
}
