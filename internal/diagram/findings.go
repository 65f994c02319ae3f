package diagram

import (
	"fmt"
	"sort"

	"github.com/abhisek/threatlab/internal/api"
)

// CategoryOrder is the display order of finding groups.
var CategoryOrder = []api.Category{
	api.CategorySecurity,
	api.CategoryArchitecture,
	api.CategoryPerformance,
	api.CategoryCompleteness,
	api.CategoryOther,
}

// Group is the findings of one category.
type Group struct {
	Category api.Category
	Results  []api.ValidationResult
}

// GroupResults buckets results by category in CategoryOrder, dropping empty
// groups. Unknown categories land in "other". Within a group, results are
// ordered error, warning, info; equal severities keep their input order.
func GroupResults(results []api.ValidationResult) []Group {
	buckets := make(map[api.Category][]api.ValidationResult, len(CategoryOrder))
	for _, r := range results {
		cat := r.Category
		if !knownCategory(cat) {
			cat = api.CategoryOther
		}
		buckets[cat] = append(buckets[cat], r)
	}

	var groups []Group
	for _, cat := range CategoryOrder {
		rs := buckets[cat]
		if len(rs) == 0 {
			continue
		}
		sort.SliceStable(rs, func(i, j int) bool {
			return severityRank(rs[i].Severity) < severityRank(rs[j].Severity)
		})
		groups = append(groups, Group{Category: cat, Results: rs})
	}
	return groups
}

func knownCategory(c api.Category) bool {
	for _, k := range CategoryOrder {
		if k == c {
			return true
		}
	}
	return false
}

func severityRank(s api.Severity) int {
	switch s {
	case api.SeverityError:
		return 0
	case api.SeverityWarning:
		return 1
	case api.SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Summary counts findings per severity.
type Summary struct {
	Errors   int
	Warnings int
	Info     int
}

// Total returns the number of counted findings.
func (s Summary) Total() int {
	return s.Errors + s.Warnings + s.Info
}

func (s Summary) String() string {
	return fmt.Sprintf("%d errors, %d warnings, %d info", s.Errors, s.Warnings, s.Info)
}

// Summarize counts results by severity. Unknown severities count as info.
func Summarize(results []api.ValidationResult) Summary {
	var s Summary
	for _, r := range results {
		switch r.Severity {
		case api.SeverityError:
			s.Errors++
		case api.SeverityWarning:
			s.Warnings++
		default:
			s.Info++
		}
	}
	return s
}
