package models

import "time"

const DefaultPageLimit = 20

// JobFilters are ANDed together. Empty fields do not constrain.
type JobFilters struct {
	Keywords     string         `json:"keywords,omitempty"`
	Category     Category       `json:"category,omitempty"`
	Remote       *bool          `json:"remote,omitempty"`
	Location     string         `json:"location,omitempty"`
	MinSalary    *float64       `json:"minSalary,omitempty"`
	MaxSalary    *float64       `json:"maxSalary,omitempty"`
	Seniority    []Seniority    `json:"seniority,omitempty"`
	ContractType []ContractType `json:"contractType,omitempty"`
	SourceSite   []string       `json:"sourceSite,omitempty"`
	Offset       int            `json:"offset,omitempty"`
	Limit        int            `json:"limit,omitempty"`
}

type JobsPage struct {
	Jobs   []JobPosting `json:"jobs"`
	Total  int          `json:"total"`
	Facets FacetCounts  `json:"facets"`
}

type FacetCounts struct {
	ContractType map[ContractType]int `json:"contractType"`
	Seniority    map[Seniority]int    `json:"seniority"`
	Category     map[Category]int     `json:"category"`
	RemoteType   map[RemoteType]int   `json:"remoteType"`
}

// NewFacetCounts returns counts with every enum value present at zero.
func NewFacetCounts() FacetCounts {
	f := FacetCounts{
		ContractType: make(map[ContractType]int, len(AllContractTypes)),
		Seniority:    make(map[Seniority]int, len(AllSeniorities)),
		Category:     make(map[Category]int, len(AllCategories)),
		RemoteType:   make(map[RemoteType]int, len(AllRemoteTypes)),
	}
	for _, v := range AllContractTypes {
		f.ContractType[v] = 0
	}
	for _, v := range AllSeniorities {
		f.Seniority[v] = 0
	}
	for _, v := range AllCategories {
		f.Category[v] = 0
	}
	for _, v := range AllRemoteTypes {
		f.RemoteType[v] = 0
	}
	return f
}

func (f *FacetCounts) Add(p *JobPosting) {
	f.ContractType[p.ContractType]++
	f.Seniority[p.Seniority]++
	f.Category[p.Category]++
	f.RemoteType[p.RemoteType]++
}

type RankedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Stats struct {
	TotalJobs         int              `json:"totalJobs"`
	JobsToday         int              `json:"jobsToday"`
	JobsThisWeek      int              `json:"jobsThisWeek"`
	ActiveSources     int              `json:"activeSources"`
	LastScrapeTime    *time.Time       `json:"lastScrapeTime,omitempty"`
	TopSources        []RankedCount    `json:"topSources"`
	TopCompanies      []RankedCount    `json:"topCompanies"`
	CategoryBreakdown map[Category]int `json:"categoryBreakdown"`
}
