package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfeed/identity"
	"jobfeed/models"
)

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func testSource() models.Source {
	return models.Source{
		ID:       "demo",
		Name:     "Demo Board",
		BaseURL:  "https://jobs.example.com",
		Currency: "eur",
		Tags:     []string{"EU", "tech"},
	}
}

func fixedNormalizer() *Normalizer {
	n := NewNormalizer()
	n.now = func() time.Time { return fixedNow }
	return n
}

func TestNormalize_FillsDefaults(t *testing.T) {
	n := fixedNormalizer()
	raw := &models.RawCandidate{
		Title:     "  Senior   Go Engineer ",
		Company:   "Acme\tCorp",
		Location:  "Berlin (Hybrid)",
		SalaryMin: f64(90000),
		Tags:      []string{"Go", "eu", " "},
		Skills:    []string{"Go", "go", "Kafka"},
	}

	p, err := n.Normalize(raw, testSource())
	require.NoError(t, err)

	assert.Empty(t, p.ID)
	assert.Equal(t, "Senior Go Engineer", p.Title)
	assert.Equal(t, "Acme Corp", p.Company)
	assert.Equal(t, models.SenioritySenior, p.Seniority)
	assert.Equal(t, models.ContractFullTime, p.ContractType)
	assert.Equal(t, models.RemoteHybrid, p.RemoteType)
	assert.False(t, p.Remote)
	assert.Equal(t, models.CategoryBackend, p.Category)
	require.NotNil(t, p.Salary)
	assert.Equal(t, models.SalaryRange{Min: 90000, Max: 90000, Currency: "EUR", Period: "yearly"}, *p.Salary)
	assert.Equal(t, []string{"eu", "go", "tech"}, p.Tags)
	assert.Equal(t, []string{"Go", "Kafka"}, p.Skills)
	assert.Equal(t, fixedNow, p.PostedDate)
	assert.Equal(t, fixedNow, p.ScrapedAt)
	assert.Equal(t, "https://jobs.example.com", p.SourceURL)
	assert.Equal(t, p.SourceURL, p.ApplicationURL)
	assert.Equal(t, "demo", p.SourceID)
	assert.Equal(t, "Demo Board", p.SourceSite)
	assert.True(t, p.IsActive)
	assert.Equal(t, identity.Fingerprint("senior go engineer", "ACME CORP", "demo"), p.Fingerprint)
}

func TestNormalize_RejectsMalformed(t *testing.T) {
	n := fixedNormalizer()

	_, err := n.Normalize(&models.RawCandidate{Company: "Acme"}, testSource())
	assert.True(t, errors.Is(err, ErrMalformedCandidate))

	_, err = n.Normalize(&models.RawCandidate{Title: "Go Dev", Company: "   "}, testSource())
	assert.ErrorIs(t, err, ErrMalformedCandidate)

	_, err = n.Normalize(&models.RawCandidate{Title: "Go Dev", Company: "Acme", SalaryMin: f64(10), SalaryPeriod: "fortnightly"}, testSource())
	assert.ErrorIs(t, err, ErrMalformedCandidate)
}

func TestNormalize_SalaryBoundsAndPeriod(t *testing.T) {
	n := fixedNormalizer()
	raw := &models.RawCandidate{
		Title: "Go Dev", Company: "Acme",
		SalaryMin: f64(9000), SalaryMax: f64(7000),
		SalaryCurrency: "pln", SalaryPeriod: "Month",
	}

	p, err := n.Normalize(raw, testSource())
	require.NoError(t, err)
	require.NotNil(t, p.Salary)
	assert.Equal(t, 7000.0, p.Salary.Min)
	assert.Equal(t, 9000.0, p.Salary.Max)
	assert.Equal(t, "PLN", p.Salary.Currency)
	assert.Equal(t, "monthly", p.Salary.Period)

	raw = &models.RawCandidate{Title: "Go Dev", Company: "Acme", SalaryMin: f64(0)}
	p, err = n.Normalize(raw, models.Source{ID: "x"})
	require.NoError(t, err)
	assert.Nil(t, p.Salary)
}

func TestNormalize_Dates(t *testing.T) {
	n := fixedNormalizer()

	p, err := n.Normalize(&models.RawCandidate{Title: "Go Dev", Company: "Acme", PostedAt: "2026-04-30", Deadline: "2026-06-01T00:00:00Z"}, testSource())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), p.PostedDate)
	require.NotNil(t, p.ApplicationDeadline)
	assert.Equal(t, 2026, p.ApplicationDeadline.Year())

	p, err = n.Normalize(&models.RawCandidate{Title: "Go Dev", Company: "Acme", PostedAt: "2030-01-01"}, testSource())
	require.NoError(t, err)
	assert.Equal(t, fixedNow, p.PostedDate)

	p, err = n.Normalize(&models.RawCandidate{Title: "Go Dev", Company: "Acme", PostedAt: "yesterday-ish"}, testSource())
	require.NoError(t, err)
	assert.Equal(t, fixedNow, p.PostedDate)
	assert.Nil(t, p.ApplicationDeadline)
}

func TestParseEnums(t *testing.T) {
	yes, no := true, false

	assert.Equal(t, models.ContractFullTime, ParseContractType("Full Time"))
	assert.Equal(t, models.ContractFullTime, ParseContractType("permanent"))
	assert.Equal(t, models.ContractPartTime, ParseContractType("part_time"))
	assert.Equal(t, models.ContractContract, ParseContractType("B2B"))
	assert.Equal(t, models.ContractFreelance, ParseContractType("Freelance"))

	assert.Equal(t, models.SenioritySenior, ParseSeniority("Sr.", ""))
	assert.Equal(t, models.SeniorityLead, ParseSeniority("", "Principal Engineer"))
	assert.Equal(t, models.SeniorityExecutive, ParseSeniority("", "Head of Data"))
	assert.Equal(t, models.SeniorityJunior, ParseSeniority("", "Junior QA"))
	assert.Equal(t, models.SeniorityMid, ParseSeniority("", "Backend Developer"))

	assert.Equal(t, models.RemoteFully, ParseRemoteType("remote", nil, ""))
	assert.Equal(t, models.RemoteFully, ParseRemoteType("", &yes, "Berlin"))
	assert.Equal(t, models.RemoteOnSite, ParseRemoteType("", &no, "Remote"))
	assert.Equal(t, models.RemoteFully, ParseRemoteType("", nil, "Remote, EU"))
	assert.Equal(t, models.RemoteFlexible, ParseRemoteType("Flexible", nil, ""))
	assert.Equal(t, models.RemoteOnSite, ParseRemoteType("", nil, "Warsaw"))

	assert.Equal(t, models.CategoryData, ParseCategory("data", ""))
	assert.Equal(t, models.CategoryFrontend, ParseCategory("Front End", ""))
	assert.Equal(t, models.CategoryMobile, ParseCategory("", "React Native Developer"))
	assert.Equal(t, models.CategoryFullstack, ParseCategory("", "Full Stack Engineer"))
	assert.Equal(t, models.CategoryDevOps, ParseCategory("", "Site Reliability Engineer"))
	assert.Equal(t, models.CategoryOther, ParseCategory("", "Office Assistant"))
}
