package search

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"jobscout/internal/domain/entity"
)

// Dedupe drops listings whose (title, organization) pair was already seen.
// The first occurrence wins, so the result depends only on input order.
func Dedupe(listings []entity.Listing) []entity.Listing {
	seen := make(map[string]struct{}, len(listings))
	out := make([]entity.Listing, 0, len(listings))
	for _, l := range listings {
		key := l.DedupeKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Filter returns the listings that pass every filter. now anchors the
// date buckets.
func Filter(listings []entity.Listing, f entity.SearchFilters, now time.Time) []entity.Listing {
	out := make([]entity.Listing, 0, len(listings))
	for _, l := range listings {
		if matches(l, f, now) {
			out = append(out, l)
		}
	}
	return out
}

func matches(l entity.Listing, f entity.SearchFilters, now time.Time) bool {
	if f.RemoteOnly {
		loc := strings.ToLower(l.LocationText)
		if !strings.Contains(loc, "remote") && !strings.Contains(loc, "anywhere") {
			return false
		}
	}

	if maxDays, ok := dateBuckets[f.DatePosted]; ok && l.HasPostedAt() {
		if int(now.Sub(l.PostedAt).Hours()/24) > maxDays {
			return false
		}
	}

	text := strings.ToLower(l.Title + " " + l.JobType + " " + l.DescriptionText)
	if term, ok := jobTypeTerms[f.JobType]; ok && !term.MatchString(text) {
		return false
	}
	if excluded, ok := seniorityExclusions[f.Experience]; ok && excluded.MatchString(text) {
		return false
	}

	if f.SalaryMin > 0 {
		if upper, ok := ParseSalaryMax(l.SalaryText); ok && upper < f.SalaryMin {
			return false
		}
	}
	return true
}

var dateBuckets = map[entity.DatePosted]int{
	entity.DatePostedToday: 1,
	entity.DatePostedWeek:  7,
	entity.DatePostedMonth: 30,
}

// Terms match whole words so that "department" is not part-time and
// "leading" is not a lead role.
var jobTypeTerms = map[entity.JobType]*regexp.Regexp{
	entity.JobTypeFullTime: regexp.MustCompile(`\bfull\b`),
	entity.JobTypePartTime: regexp.MustCompile(`\bpart\b`),
	entity.JobTypeContract: regexp.MustCompile(`\bcontract`),
}

// Mid level has no exclusions.
var seniorityExclusions = map[entity.Experience]*regexp.Regexp{
	entity.ExperienceEntry:  regexp.MustCompile(`\b(?:senior|lead)\b`),
	entity.ExperienceSenior: regexp.MustCompile(`\b(?:junior|entry)\b`),
}

var salaryAmount = regexp.MustCompile(`(\d[\d,.]*)\s*([kK])?`)

// ParseSalaryMax returns the largest amount in a free-text salary such as
// "$80,000 - $120,000" or "90k-110k". ok is false when nothing parses.
func ParseSalaryMax(s string) (int, bool) {
	best, ok := 0, false
	for _, m := range salaryAmount.FindAllStringSubmatch(s, -1) {
		digits := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(strings.TrimRight(digits, "."), 64)
		if err != nil {
			continue
		}
		if m[2] != "" {
			v *= 1000
		}
		if int(v) > best {
			best, ok = int(v), true
		}
	}
	return best, ok
}

// Score counts keyword hits: 10 per keyword found in the title and 1 per
// keyword found in the description.
func Score(l entity.Listing, keywords []string) int {
	title := strings.ToLower(l.Title)
	desc := strings.ToLower(l.DescriptionText)
	score := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(title, kw) {
			score += 10
		}
		if strings.Contains(desc, kw) {
			score += 1
		}
	}
	return score
}

// Rank scores every listing and sorts in place. Ties keep their input order.
func Rank(listings []entity.Listing, keywords []string, sortBy entity.SortBy) []entity.Listing {
	for i := range listings {
		listings[i].Score = Score(listings[i], keywords)
	}

	switch sortBy {
	case entity.SortByDate:
		sort.SliceStable(listings, func(i, j int) bool {
			a, b := listings[i], listings[j]
			if a.HasPostedAt() != b.HasPostedAt() {
				return a.HasPostedAt()
			}
			return a.PostedAt.After(b.PostedAt)
		})
	case entity.SortByCompany:
		sort.SliceStable(listings, func(i, j int) bool {
			return strings.ToLower(listings[i].Organization) < strings.ToLower(listings[j].Organization)
		})
	default:
		sort.SliceStable(listings, func(i, j int) bool {
			return listings[i].Score > listings[j].Score
		})
	}
	return listings
}
