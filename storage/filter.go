package storage

import (
	"slices"
	"sort"
	"strings"

	"jobfeed/models"
)

// Matches reports whether p passes every constraint in f. Inactive postings
// never match.
func Matches(p *models.JobPosting, f *models.JobFilters) bool {
	if !p.IsActive {
		return false
	}

	if kw := strings.ToLower(strings.TrimSpace(f.Keywords)); kw != "" && !matchesKeywords(p, kw) {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Remote != nil && p.Remote != *f.Remote {
		return false
	}
	if loc := strings.ToLower(strings.TrimSpace(f.Location)); loc != "" &&
		!strings.Contains(strings.ToLower(p.Location), loc) {
		return false
	}

	if f.MinSalary != nil || f.MaxSalary != nil {
		if p.Salary == nil {
			return false
		}
		if f.MinSalary != nil && p.Salary.Min < *f.MinSalary {
			return false
		}
		if f.MaxSalary != nil && p.Salary.Max > *f.MaxSalary {
			return false
		}
	}

	if len(f.Seniority) > 0 && !slices.Contains(f.Seniority, p.Seniority) {
		return false
	}
	if len(f.ContractType) > 0 && !slices.Contains(f.ContractType, p.ContractType) {
		return false
	}
	if len(f.SourceSite) > 0 &&
		!slices.Contains(f.SourceSite, p.SourceSite) && !slices.Contains(f.SourceSite, p.SourceID) {
		return false
	}

	return true
}

func matchesKeywords(p *models.JobPosting, kw string) bool {
	if strings.Contains(strings.ToLower(p.Title), kw) ||
		strings.Contains(strings.ToLower(p.Description), kw) ||
		strings.Contains(strings.ToLower(p.Company), kw) {
		return true
	}
	for _, s := range p.Skills {
		if strings.Contains(strings.ToLower(s), kw) {
			return true
		}
	}
	return false
}

// SortNewestFirst orders by posted date descending, then by id for a stable
// page boundary.
func SortNewestFirst(postings []models.JobPosting) {
	sort.SliceStable(postings, func(i, j int) bool {
		a, b := postings[i].PostedDate, postings[j].PostedDate
		if !a.Equal(b) {
			return a.After(b)
		}
		return postings[i].ID < postings[j].ID
	})
}

// Page applies offset and limit; a non-positive limit means the default.
func Page(postings []models.JobPosting, offset, limit int) []models.JobPosting {
	if limit <= 0 {
		limit = models.DefaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(postings) {
		return []models.JobPosting{}
	}
	end := min(offset+limit, len(postings))
	return postings[offset:end]
}

// Facets counts the four facet dimensions over postings.
func Facets(postings []models.JobPosting) models.FacetCounts {
	fc := models.NewFacetCounts()
	for i := range postings {
		fc.Add(&postings[i])
	}
	return fc
}

// Filter returns the postings matching f, in input order.
func Filter(postings []models.JobPosting, f models.JobFilters) []models.JobPosting {
	out := make([]models.JobPosting, 0, len(postings))
	for i := range postings {
		if Matches(&postings[i], &f) {
			out = append(out, postings[i])
		}
	}
	return out
}
