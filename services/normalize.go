package services

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"jobfeed/identity"
	"jobfeed/models"
)

var ErrMalformedCandidate = errors.New("malformed candidate")

const (
	defaultCurrency = "USD"
	defaultPeriod   = "yearly"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Normalizer maps raw candidates onto the canonical posting shape.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize builds a posting from raw for src. The returned posting has no
// ID; the deduplicator assigns it. A candidate without a title or company is
// rejected with ErrMalformedCandidate.
func (n *Normalizer) Normalize(raw *models.RawCandidate, src models.Source) (models.JobPosting, error) {
	now := n.now()

	title := identity.CollapseSpaces(raw.Title)
	company := identity.CollapseSpaces(raw.Company)
	if title == "" {
		return models.JobPosting{}, fmt.Errorf("%w: missing title", ErrMalformedCandidate)
	}
	if company == "" {
		return models.JobPosting{}, fmt.Errorf("%w: missing company for %q", ErrMalformedCandidate, title)
	}

	salary, err := normalizeSalary(raw, src)
	if err != nil {
		return models.JobPosting{}, err
	}

	location := identity.CollapseSpaces(raw.Location)
	remoteType := ParseRemoteType(raw.RemoteType, raw.Remote, location)
	remote := remoteType == models.RemoteFully
	if raw.Remote != nil {
		remote = *raw.Remote
	}

	posted := parseDate(raw.PostedAt)
	if posted == nil || posted.After(now) {
		posted = &now
	}

	sourceURL := strings.TrimSpace(raw.SourceURL)
	if sourceURL == "" {
		sourceURL = src.BaseURL
	}
	applyURL := strings.TrimSpace(raw.ApplicationURL)
	if applyURL == "" {
		applyURL = sourceURL
	}

	return models.JobPosting{
		Title:               title,
		Company:             company,
		Location:            location,
		Salary:              salary,
		Description:         strings.TrimSpace(raw.Description),
		Requirements:        cleanList(raw.Requirements),
		Benefits:            cleanList(raw.Benefits),
		Tags:                mergeTags(raw.Tags, src.Tags),
		Seniority:           ParseSeniority(raw.Seniority, title),
		ContractType:        ParseContractType(raw.ContractType),
		Remote:              remote,
		RemoteType:          remoteType,
		Category:            ParseCategory(raw.Category, title),
		Skills:              uniqueList(raw.Skills),
		Languages:           uniqueList(raw.Languages),
		PostedDate:          *posted,
		ApplicationDeadline: parseDate(raw.Deadline),
		ApplicationURL:      applyURL,
		SourceURL:           sourceURL,
		SourceID:            src.ID,
		SourceSite:          src.Name,
		IsActive:            true,
		ScrapedAt:           now,
		LastUpdated:         now,
		Fingerprint:         identity.Fingerprint(title, company, src.ID),
	}, nil
}

func normalizeSalary(raw *models.RawCandidate, src models.Source) (*models.SalaryRange, error) {
	lo, hi := raw.SalaryMin, raw.SalaryMax
	if lo != nil && *lo <= 0 {
		lo = nil
	}
	if hi != nil && *hi <= 0 {
		hi = nil
	}
	if lo == nil && hi == nil {
		return nil, nil
	}
	if lo == nil {
		lo = hi
	}
	if hi == nil {
		hi = lo
	}

	sal := &models.SalaryRange{Min: *lo, Max: *hi}
	if sal.Min > sal.Max {
		sal.Min, sal.Max = sal.Max, sal.Min
	}

	sal.Currency = strings.ToUpper(strings.TrimSpace(raw.SalaryCurrency))
	if sal.Currency == "" {
		sal.Currency = strings.ToUpper(src.Currency)
	}
	if sal.Currency == "" {
		sal.Currency = defaultCurrency
	}

	sal.Period = strings.ToLower(strings.TrimSpace(raw.SalaryPeriod))
	switch sal.Period {
	case "", "year", "annual", "yearly":
		sal.Period = defaultPeriod
	case "month", "monthly":
		sal.Period = "monthly"
	case "hour", "hourly":
		sal.Period = "hourly"
	default:
		return nil, fmt.Errorf("%w: unknown salary period %q", ErrMalformedCandidate, raw.SalaryPeriod)
	}
	return sal, nil
}

func token(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "-", " ", "-").Replace(s)
}

// ParseSeniority reads an explicit level, falling back to title keywords and
// then to mid.
func ParseSeniority(value, title string) models.Seniority {
	switch token(value) {
	case "junior", "jr", "jr.", "entry", "entry-level", "intern", "trainee", "graduate":
		return models.SeniorityJunior
	case "mid", "middle", "regular", "intermediate", "mid-level":
		return models.SeniorityMid
	case "senior", "sr", "sr.":
		return models.SenioritySenior
	case "lead", "principal", "staff", "tech-lead":
		return models.SeniorityLead
	case "executive", "director", "head", "vp", "c-level":
		return models.SeniorityExecutive
	}

	words := strings.Fields(strings.ToLower(title))
	has := func(keys ...string) bool {
		for _, w := range words {
			if slices.Contains(keys, strings.Trim(w, ".,()-/")) {
				return true
			}
		}
		return false
	}
	switch {
	case has("cto", "ceo", "vp", "director", "head", "chief"):
		return models.SeniorityExecutive
	case has("lead", "principal", "staff"):
		return models.SeniorityLead
	case has("senior", "sr"):
		return models.SenioritySenior
	case has("junior", "jr", "intern", "trainee", "graduate"):
		return models.SeniorityJunior
	}
	return models.SeniorityMid
}

func ParseContractType(value string) models.ContractType {
	switch token(value) {
	case "part-time", "parttime", "part":
		return models.ContractPartTime
	case "contract", "contractor", "temporary", "temp", "b2b", "fixed-term":
		return models.ContractContract
	case "freelance", "freelancer", "gig":
		return models.ContractFreelance
	}
	return models.ContractFullTime
}

// ParseRemoteType reads an explicit arrangement, then the remote flag, then
// the location text.
func ParseRemoteType(value string, remote *bool, location string) models.RemoteType {
	switch token(value) {
	case "remote", "fully-remote", "full-remote", "100%-remote", "wfh":
		return models.RemoteFully
	case "hybrid", "partially-remote":
		return models.RemoteHybrid
	case "on-site", "onsite", "office", "in-office":
		return models.RemoteOnSite
	case "flexible", "remote-friendly":
		return models.RemoteFlexible
	}
	if remote != nil {
		if *remote {
			return models.RemoteFully
		}
		return models.RemoteOnSite
	}
	loc := strings.ToLower(location)
	switch {
	case strings.Contains(loc, "hybrid"):
		return models.RemoteHybrid
	case strings.Contains(loc, "remote"):
		return models.RemoteFully
	}
	return models.RemoteOnSite
}

var categoryAliases = map[string]models.Category{
	"front-end":        models.CategoryFrontend,
	"back-end":         models.CategoryBackend,
	"full-stack":       models.CategoryFullstack,
	"ios":              models.CategoryMobile,
	"android":          models.CategoryMobile,
	"sre":              models.CategoryDevOps,
	"infrastructure":   models.CategoryDevOps,
	"ml":               models.CategoryData,
	"machine-learning": models.CategoryData,
	"analytics":        models.CategoryData,
	"testing":          models.CategoryQA,
	"ux":               models.CategoryDesign,
	"ui":               models.CategoryDesign,
}

// categoryKeywords is checked in order against the lower-cased title.
var categoryKeywords = []struct {
	category models.Category
	words    []string
}{
	{models.CategoryFullstack, []string{"fullstack", "full stack", "full-stack"}},
	{models.CategoryMobile, []string{"mobile", "ios", "android", "flutter", "react native"}},
	{models.CategoryFrontend, []string{"frontend", "front end", "front-end", "javascript", "react", "angular", "vue"}},
	{models.CategoryDevOps, []string{"devops", "sre", "site reliability", "platform", "infrastructure", "cloud"}},
	{models.CategoryData, []string{"data", "machine learning", "ml ", "analyst", "scientist"}},
	{models.CategoryQA, []string{"qa", "quality", "test", "sdet"}},
	{models.CategorySecurity, []string{"security", "pentest", "appsec"}},
	{models.CategoryDesign, []string{"designer", "ui/ux", "ux/ui", "design"}},
	{models.CategoryProduct, []string{"product manager", "product owner"}},
	{models.CategoryManagement, []string{"manager", "director", "head of", "cto"}},
	{models.CategoryBackend, []string{"backend", "back end", "back-end", "golang", "java", "python", "node", ".net", "php", "ruby"}},
}

// ParseCategory reads an explicit category or infers one from the title.
func ParseCategory(value, title string) models.Category {
	t := token(value)
	if slices.Contains(models.AllCategories, models.Category(t)) {
		return models.Category(t)
	}
	if c, ok := categoryAliases[t]; ok {
		return c
	}

	lower := strings.ToLower(title) + " "
	for _, ck := range categoryKeywords {
		for _, w := range ck.words {
			if strings.Contains(lower, w) {
				return ck.category
			}
		}
	}
	if strings.Contains(lower, "engineer") || strings.Contains(lower, "developer") {
		return models.CategoryBackend
	}
	return models.CategoryOther
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func mergeTags(tagSets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range tagSets {
		for _, tag := range set {
			tag = strings.ToLower(identity.CollapseSpaces(tag))
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}

func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		if item = identity.CollapseSpaces(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// uniqueList keeps the first spelling of each case-insensitive value.
func uniqueList(items []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range cleanList(items) {
		key := strings.ToLower(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
