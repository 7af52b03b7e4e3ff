package scraper

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"jobfeed/config"
	"jobfeed/models"
)

const defaultMockCount = 25

var (
	mockTitles = []string{
		"Senior Go Engineer", "Backend Developer", "Frontend Engineer (React)",
		"Full Stack Developer", "iOS Developer", "DevOps Engineer",
		"Data Engineer", "QA Automation Engineer", "Security Analyst",
		"Product Designer", "Product Manager", "Engineering Manager",
		"Junior Python Developer", "Lead Platform Engineer", "Machine Learning Engineer",
	}
	mockCompanies = []string{
		"Acme Corp", "Globex", "Initech", "Umbrella Labs", "Hooli",
		"Stark Industries", "Wayne Tech", "Vandelay Imports", "Pied Piper", "Soylent",
	}
	mockLocations = []string{
		"Berlin, Germany", "Remote", "London, UK", "Amsterdam, Netherlands",
		"Remote (EU)", "New York, NY", "Lisbon, Portugal", "Hybrid - Paris",
	}
	mockContracts = []string{"full-time", "full-time", "full-time", "contract", "part-time", "freelance"}
	mockSkills    = []string{"go", "python", "react", "typescript", "postgres", "kubernetes", "aws", "docker", "terraform", "swift"}
)

// MockFetcher generates a stable catalogue of synthetic postings per
// source. The catalogue is derived from the seed so repeated passes hit the
// same fingerprints; a share of postings drift their salary on each fetch
// so updates show up too.
type MockFetcher struct {
	id    string
	count int
	seed  int64

	mu    sync.Mutex
	drift *rand.Rand
	// DriftRate is the chance each posting changes between fetches.
	DriftRate float64
}

func NewMockFetcher(cfg *config.SourceConfig, seed int64) *MockFetcher {
	count := cfg.MockCount
	if count <= 0 {
		count = defaultMockCount
	}
	return &MockFetcher{
		id:        cfg.ID,
		count:     count,
		seed:      seed,
		drift:     rand.New(rand.NewSource(time.Now().UnixNano())),
		DriftRate: 0.1,
	}
}

func (f *MockFetcher) ID() string {
	return f.id
}

func (f *MockFetcher) Fetch(ctx context.Context, src models.Source) ([]models.RawCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(f.seed))
	now := time.Now().UTC()

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.RawCandidate, 0, f.count)
	for i := 0; i < f.count; i++ {
		title := mockTitles[rng.Intn(len(mockTitles))]
		company := mockCompanies[rng.Intn(len(mockCompanies))]
		// Title and company alone collide quickly; the suffix keeps the
		// catalogue at the requested size.
		title = fmt.Sprintf("%s #%d", title, i+1)

		lo := float64(40000 + rng.Intn(60)*1000)
		hi := lo + float64(10000+rng.Intn(40)*1000)
		if f.DriftRate > 0 && f.drift.Float64() < f.DriftRate {
			hi += 5000
		}

		skills := []string{
			mockSkills[rng.Intn(len(mockSkills))],
			mockSkills[rng.Intn(len(mockSkills))],
		}
		posted := now.Add(-time.Duration(rng.Intn(14*24)) * time.Hour)

		out = append(out, models.RawCandidate{
			ExternalID:   fmt.Sprintf("%s-%d", f.id, i+1),
			Title:        title,
			Company:      company,
			Location:     mockLocations[rng.Intn(len(mockLocations))],
			Description:  fmt.Sprintf("%s is hiring a %s. Stack includes %s and %s.", company, title, skills[0], skills[1]),
			SalaryMin:    &lo,
			SalaryMax:    &hi,
			SalaryPeriod: "yearly",
			Skills:       skills,
			ContractType: mockContracts[rng.Intn(len(mockContracts))],
			PostedAt:     posted.Format(time.RFC3339),
			SourceURL:    fmt.Sprintf("%s/jobs/%d", src.BaseURL, i+1),
		})
	}
	return out, nil
}

func seedFor(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return int64(h.Sum64())
}
