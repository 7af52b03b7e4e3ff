package models

import (
	"encoding/json"
	"time"
)

type Seniority string

const (
	SeniorityJunior    Seniority = "junior"
	SeniorityMid       Seniority = "mid"
	SenioritySenior    Seniority = "senior"
	SeniorityLead      Seniority = "lead"
	SeniorityExecutive Seniority = "executive"
)

var AllSeniorities = []Seniority{
	SeniorityJunior, SeniorityMid, SenioritySenior, SeniorityLead, SeniorityExecutive,
}

type ContractType string

const (
	ContractFullTime  ContractType = "full-time"
	ContractPartTime  ContractType = "part-time"
	ContractContract  ContractType = "contract"
	ContractFreelance ContractType = "freelance"
)

var AllContractTypes = []ContractType{
	ContractFullTime, ContractPartTime, ContractContract, ContractFreelance,
}

type RemoteType string

const (
	RemoteFully    RemoteType = "fully-remote"
	RemoteHybrid   RemoteType = "hybrid"
	RemoteOnSite   RemoteType = "on-site"
	RemoteFlexible RemoteType = "flexible"
)

var AllRemoteTypes = []RemoteType{
	RemoteFully, RemoteHybrid, RemoteOnSite, RemoteFlexible,
}

// Category is the job family a posting belongs to.
type Category string

const (
	CategoryFrontend   Category = "frontend"
	CategoryBackend    Category = "backend"
	CategoryFullstack  Category = "fullstack"
	CategoryMobile     Category = "mobile"
	CategoryDevOps     Category = "devops"
	CategoryData       Category = "data"
	CategoryQA         Category = "qa"
	CategorySecurity   Category = "security"
	CategoryDesign     Category = "design"
	CategoryProduct    Category = "product"
	CategoryManagement Category = "management"
	CategoryOther      Category = "other"
)

var AllCategories = []Category{
	CategoryFrontend, CategoryBackend, CategoryFullstack, CategoryMobile,
	CategoryDevOps, CategoryData, CategoryQA, CategorySecurity,
	CategoryDesign, CategoryProduct, CategoryManagement, CategoryOther,
}

type SalaryRange struct {
	Min      float64 `json:"min" db:"salary_min"`
	Max      float64 `json:"max" db:"salary_max"`
	Currency string  `json:"currency" db:"salary_currency"`
	Period   string  `json:"period" db:"salary_period"` // yearly, monthly, hourly
}

// JobPosting is the canonical normalized record. ID is assigned on first
// sight and survives every later update of the same fingerprint.
type JobPosting struct {
	ID                  string       `json:"id" db:"id"`
	Title               string       `json:"title" db:"title"`
	Company             string       `json:"company" db:"company"`
	Location            string       `json:"location" db:"location"`
	Salary              *SalaryRange `json:"salary,omitempty"`
	Description         string       `json:"description" db:"description"`
	Requirements        []string     `json:"requirements" db:"requirements"`
	Benefits            []string     `json:"benefits" db:"benefits"`
	Tags                []string     `json:"tags" db:"tags"`
	Seniority           Seniority    `json:"seniority" db:"seniority"`
	ContractType        ContractType `json:"contractType" db:"contract_type"`
	Remote              bool         `json:"remote" db:"remote"`
	RemoteType          RemoteType   `json:"remoteType" db:"remote_type"`
	Category            Category     `json:"category" db:"category"`
	Skills              []string     `json:"skills" db:"skills"`
	Languages           []string     `json:"languages" db:"languages"`
	PostedDate          time.Time    `json:"postedDate" db:"posted_date"`
	ApplicationDeadline *time.Time   `json:"applicationDeadline,omitempty" db:"application_deadline"`
	ApplicationURL      string       `json:"applicationUrl" db:"application_url"`
	SourceURL           string       `json:"sourceUrl" db:"source_url"`
	SourceID            string       `json:"sourceId" db:"source_id"`
	SourceSite          string       `json:"sourceSite" db:"source_site"`
	IsActive            bool         `json:"isActive" db:"is_active"`
	ScrapedAt           time.Time    `json:"scrapedAt" db:"scraped_at"`
	LastUpdated         time.Time    `json:"lastUpdated" db:"last_updated"`
	Fingerprint         string       `json:"fingerprint" db:"fingerprint"`
}

// RawCandidate is what a fetcher hands back before normalization. Every
// field is optional except Title and Company.
type RawCandidate struct {
	ExternalID     string          `json:"externalId,omitempty"`
	Title          string          `json:"title"`
	Company        string          `json:"company"`
	Location       string          `json:"location,omitempty"`
	Description    string          `json:"description,omitempty"`
	SalaryMin      *float64        `json:"salaryMin,omitempty"`
	SalaryMax      *float64        `json:"salaryMax,omitempty"`
	SalaryCurrency string          `json:"salaryCurrency,omitempty"`
	SalaryPeriod   string          `json:"salaryPeriod,omitempty"`
	Requirements   []string        `json:"requirements,omitempty"`
	Benefits       []string        `json:"benefits,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	Skills         []string        `json:"skills,omitempty"`
	Languages      []string        `json:"languages,omitempty"`
	Seniority      string          `json:"seniority,omitempty"`
	ContractType   string          `json:"contractType,omitempty"`
	RemoteType     string          `json:"remoteType,omitempty"`
	Remote         *bool           `json:"remote,omitempty"`
	Category       string          `json:"category,omitempty"`
	PostedAt       string          `json:"postedAt,omitempty"`
	Deadline       string          `json:"deadline,omitempty"`
	ApplicationURL string          `json:"applicationUrl,omitempty"`
	SourceURL      string          `json:"sourceUrl,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
}
