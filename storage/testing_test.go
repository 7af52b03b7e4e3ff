package storage

import (
	"fmt"
	"time"

	"jobfeed/identity"
	"jobfeed/models"
)

var baseTime = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func posting(sourceID, title, company string, age time.Duration) models.JobPosting {
	return models.JobPosting{
		ID:           fmt.Sprintf("id-%s-%s", sourceID, title),
		Title:        title,
		Company:      company,
		Location:     "Warsaw, Poland",
		Description:  title + " at " + company,
		Seniority:    models.SeniorityMid,
		ContractType: models.ContractFullTime,
		RemoteType:   models.RemoteOnSite,
		Category:     models.CategoryBackend,
		Skills:       []string{"Go", "PostgreSQL"},
		PostedDate:   baseTime.Add(-age),
		SourceID:     sourceID,
		SourceSite:   "Board " + sourceID,
		IsActive:     true,
		ScrapedAt:    baseTime,
		LastUpdated:  baseTime,
		Fingerprint:  identity.Fingerprint(title, company, sourceID),
	}
}

func withSalary(p models.JobPosting, lo, hi float64) models.JobPosting {
	p.Salary = &models.SalaryRange{Min: lo, Max: hi, Currency: "EUR", Period: "yearly"}
	return p
}
