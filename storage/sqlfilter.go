package storage

import (
	"fmt"
	"strings"

	"jobfeed/models"
)

// skillSep joins skills into the skills_text column so a keyword cannot
// match across two skills.
const skillSep = "\x1f"

type placeholderFunc func(n int) string

func qmark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// whereBuilder renders JobFilters as a SQL WHERE clause over the postings
// table. SQLite and Postgres share it and differ only in placeholders.
type whereBuilder struct {
	ph    placeholderFunc
	conds []string
	args  []any
}

func buildWhere(f models.JobFilters, ph placeholderFunc) (string, []any) {
	b := &whereBuilder{ph: ph}

	b.add("is_active = %s", true)

	if kw := strings.ToLower(strings.TrimSpace(f.Keywords)); kw != "" {
		pattern := "%" + escapeLike(kw) + "%"
		b.add(`(LOWER(title) LIKE %s ESCAPE '\' OR LOWER(description) LIKE %s ESCAPE '\' OR LOWER(company) LIKE %s ESCAPE '\' OR skills_text LIKE %s ESCAPE '\')`,
			pattern, pattern, pattern, pattern)
	}
	if f.Category != "" {
		b.add("category = %s", string(f.Category))
	}
	if f.Remote != nil {
		b.add("remote = %s", *f.Remote)
	}
	if loc := strings.ToLower(strings.TrimSpace(f.Location)); loc != "" {
		b.add(`LOWER(location) LIKE %s ESCAPE '\'`, "%"+escapeLike(loc)+"%")
	}
	if f.MinSalary != nil || f.MaxSalary != nil {
		b.conds = append(b.conds, "salary_min IS NOT NULL")
		if f.MinSalary != nil {
			b.add("salary_min >= %s", *f.MinSalary)
		}
		if f.MaxSalary != nil {
			b.add("salary_max <= %s", *f.MaxSalary)
		}
	}
	if len(f.Seniority) > 0 {
		b.addIn("seniority", toAny(f.Seniority))
	}
	if len(f.ContractType) > 0 {
		b.addIn("contract_type", toAny(f.ContractType))
	}
	if len(f.SourceSite) > 0 {
		sites := toAny(f.SourceSite)
		sitesIn := b.inList(sites)
		idsIn := b.inList(sites)
		b.conds = append(b.conds, fmt.Sprintf("(source_site IN (%s) OR source_id IN (%s))", sitesIn, idsIn))
	}

	return "WHERE " + strings.Join(b.conds, " AND "), b.args
}

func (b *whereBuilder) add(format string, args ...any) {
	phs := make([]any, len(args))
	for i, a := range args {
		b.args = append(b.args, a)
		phs[i] = b.ph(len(b.args))
	}
	b.conds = append(b.conds, fmt.Sprintf(format, phs...))
}

func (b *whereBuilder) addIn(column string, values []any) {
	b.conds = append(b.conds, fmt.Sprintf("%s IN (%s)", column, b.inList(values)))
}

func (b *whereBuilder) inList(values []any) string {
	phs := make([]string, len(values))
	for i, v := range values {
		b.args = append(b.args, v)
		phs[i] = b.ph(len(b.args))
	}
	return strings.Join(phs, ", ")
}

func toAny[T ~string](vals []T) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func skillsText(skills []string) string {
	return strings.ToLower(strings.Join(skills, skillSep))
}

func pageBounds(f models.JobFilters) (offset, limit int) {
	limit = f.Limit
	if limit <= 0 {
		limit = models.DefaultPageLimit
	}
	offset = max(f.Offset, 0)
	return offset, limit
}

// facetColumns maps each facet column to the FacetCounts slot it fills.
var facetColumns = []string{"contract_type", "seniority", "category", "remote_type"}

func addFacet(fc *models.FacetCounts, column, value string, n int) {
	switch column {
	case "contract_type":
		fc.ContractType[models.ContractType(value)] += n
	case "seniority":
		fc.Seniority[models.Seniority(value)] += n
	case "category":
		fc.Category[models.Category(value)] += n
	case "remote_type":
		fc.RemoteType[models.RemoteType(value)] += n
	}
}
