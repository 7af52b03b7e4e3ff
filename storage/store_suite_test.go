package storage

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"jobfeed/models"
)

// jobStoreSuite holds the behaviour every JobStore shares. Each driver runs
// it with its own constructor.
type jobStoreSuite struct {
	suite.Suite
	ctx      context.Context
	newStore func() JobStore
	store    JobStore
}

func (s *jobStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
}

func (s *jobStoreSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *jobStoreSuite) seed() {
	remote := posting("alpha", "Remote Go Engineer", "Acme", 1*time.Hour)
	remote.Remote = true
	remote.RemoteType = models.RemoteFully
	remote.Location = "Anywhere"
	remote.Skills = []string{"Kubernetes"}

	frontend := posting("bravo", "Frontend Developer", "Globex", 3*time.Hour)
	frontend.Category = models.CategoryFrontend
	frontend.Seniority = models.SeniorityJunior
	frontend.ContractType = models.ContractContract

	inactive := posting("alpha", "Retired Role", "Acme", 30*time.Minute)
	inactive.IsActive = false

	s.Require().NoError(s.store.Upsert(s.ctx, []models.JobPosting{
		withSalary(remote, 90000, 120000),
		frontend,
		withSalary(posting("alpha", "Senior Backend Engineer", "Initech", 2*time.Hour), 60000, 80000),
		inactive,
	}))
}

func (s *jobStoreSuite) TestUpsert_ConflictKeepsIDAndScrapedAt() {
	first := posting("alpha", "Backend Engineer", "Acme", time.Hour)
	s.Require().NoError(s.store.Upsert(s.ctx, []models.JobPosting{first}))

	second := first
	second.ID = "other-id"
	second.Description = "rewritten"
	second.ScrapedAt = baseTime.Add(time.Hour)
	second.LastUpdated = baseTime.Add(time.Hour)
	s.Require().NoError(s.store.Upsert(s.ctx, []models.JobPosting{second}))

	got, err := s.store.GetByFingerprints(s.ctx, "alpha", []string{first.Fingerprint})
	s.Require().NoError(err)
	s.Require().Contains(got, first.Fingerprint)

	stored := got[first.Fingerprint]
	s.Equal(first.ID, stored.ID)
	s.True(first.ScrapedAt.Equal(stored.ScrapedAt))
	s.Equal("rewritten", stored.Description)
	s.True(second.LastUpdated.Equal(stored.LastUpdated))

	all, err := s.store.Active(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *jobStoreSuite) TestGetByFingerprints_ScopedToSource() {
	p := posting("alpha", "Backend Engineer", "Acme", time.Hour)
	s.Require().NoError(s.store.Upsert(s.ctx, []models.JobPosting{p}))

	got, err := s.store.GetByFingerprints(s.ctx, "bravo", []string{p.Fingerprint})
	s.Require().NoError(err)
	s.Empty(got)

	got, err = s.store.GetByFingerprints(s.ctx, "alpha", nil)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *jobStoreSuite) TestQuery_SortedNewestFirstAndPaged() {
	s.seed()

	jobs, total, err := s.store.Query(s.ctx, models.JobFilters{})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(jobs, 3)
	s.Equal("Remote Go Engineer", jobs[0].Title)
	s.Equal("Senior Backend Engineer", jobs[1].Title)
	s.Equal("Frontend Developer", jobs[2].Title)

	jobs, total, err = s.store.Query(s.ctx, models.JobFilters{Offset: 1, Limit: 1})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(jobs, 1)
	s.Equal("Senior Backend Engineer", jobs[0].Title)

	jobs, total, err = s.store.Query(s.ctx, models.JobFilters{Offset: 10})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Empty(jobs)
}

func (s *jobStoreSuite) TestQuery_Filters() {
	s.seed()
	yes := true
	minSal := 70000.0
	maxSal := 100000.0

	cases := []struct {
		name   string
		filter models.JobFilters
		titles []string
	}{
		{"keyword in skills", models.JobFilters{Keywords: "kubernetes"}, []string{"Remote Go Engineer"}},
		{"keyword in company", models.JobFilters{Keywords: "GLOBEX"}, []string{"Frontend Developer"}},
		{"category", models.JobFilters{Category: models.CategoryFrontend}, []string{"Frontend Developer"}},
		{"remote", models.JobFilters{Remote: &yes}, []string{"Remote Go Engineer"}},
		{"location substring", models.JobFilters{Location: "warsaw"}, []string{"Senior Backend Engineer", "Frontend Developer"}},
		{"min salary drops missing salary", models.JobFilters{MinSalary: &minSal}, []string{"Remote Go Engineer"}},
		{"max salary", models.JobFilters{MaxSalary: &maxSal}, []string{"Senior Backend Engineer"}},
		{"seniority list", models.JobFilters{Seniority: []models.Seniority{models.SeniorityJunior, models.SeniorityLead}}, []string{"Frontend Developer"}},
		{"contract list", models.JobFilters{ContractType: []models.ContractType{models.ContractFullTime}}, []string{"Remote Go Engineer", "Senior Backend Engineer"}},
		{"source by id", models.JobFilters{SourceSite: []string{"bravo"}}, []string{"Frontend Developer"}},
		{"source by name", models.JobFilters{SourceSite: []string{"Board alpha"}}, []string{"Remote Go Engineer", "Senior Backend Engineer"}},
		{"no match", models.JobFilters{Keywords: "cobol"}, nil},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			jobs, total, err := s.store.Query(s.ctx, tc.filter)
			s.Require().NoError(err)
			var titles []string
			for _, j := range jobs {
				titles = append(titles, j.Title)
			}
			s.Equal(tc.titles, titles)
			s.Equal(len(tc.titles), total)
		})
	}
}

func (s *jobStoreSuite) TestQuery_FoldsNonASCIICase() {
	p := posting("alpha", "ŠEF RAČUNOVODSTVA", "Žito d.o.o.", time.Hour)
	p.Location = "ČAČAK"
	p.Description = "Vođenje knjiga"
	s.Require().NoError(s.store.Upsert(s.ctx, []models.JobPosting{p}))

	cases := []struct {
		name   string
		filter models.JobFilters
	}{
		{"keyword in title", models.JobFilters{Keywords: "šef"}},
		{"keyword in company", models.JobFilters{Keywords: "žito"}},
		{"keyword in description", models.JobFilters{Keywords: "VOĐENJE"}},
		{"location", models.JobFilters{Location: "čačak"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			jobs, total, err := s.store.Query(s.ctx, tc.filter)
			s.Require().NoError(err)
			s.Equal(1, total)
			s.Require().Len(jobs, 1)
			s.Equal("ŠEF RAČUNOVODSTVA", jobs[0].Title)
		})
	}
}

func (s *jobStoreSuite) TestFacetCounts_FilteredAndZeroFilled() {
	s.seed()

	fc, err := s.store.FacetCounts(s.ctx, models.JobFilters{Category: models.CategoryBackend})
	s.Require().NoError(err)
	s.Len(fc.Category, len(models.AllCategories))
	s.Len(fc.Seniority, len(models.AllSeniorities))
	s.Len(fc.ContractType, len(models.AllContractTypes))
	s.Len(fc.RemoteType, len(models.AllRemoteTypes))
	s.Equal(2, fc.Category[models.CategoryBackend])
	s.Equal(0, fc.Category[models.CategoryFrontend])
	s.Equal(1, fc.RemoteType[models.RemoteFully])
	s.Equal(1, fc.RemoteType[models.RemoteOnSite])

	fc, err = s.store.FacetCounts(s.ctx, models.JobFilters{Keywords: "nothing matches this"})
	s.Require().NoError(err)
	s.Len(fc.Category, len(models.AllCategories))
	for _, n := range fc.Category {
		s.Zero(n)
	}
}

func (s *jobStoreSuite) TestActive_ExcludesInactive() {
	s.seed()
	all, err := s.store.Active(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 3)
	for _, p := range all {
		s.True(p.IsActive)
	}
}
