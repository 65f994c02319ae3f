package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/threatlab/internal/api"
)

func TestGroupResultsOrdering(t *testing.T) {
	results := []api.ValidationResult{
		{RuleID: "P1", Category: api.CategoryPerformance, Severity: api.SeverityInfo},
		{RuleID: "S1", Category: api.CategorySecurity, Severity: api.SeverityInfo},
		{RuleID: "S2", Category: api.CategorySecurity, Severity: api.SeverityError},
		{RuleID: "S3", Category: api.CategorySecurity, Severity: api.SeverityWarning},
		{RuleID: "S4", Category: api.CategorySecurity, Severity: api.SeverityError},
		{RuleID: "X1", Category: "compliance", Severity: api.SeverityWarning},
		{RuleID: "A1", Category: api.CategoryArchitecture, Severity: api.SeverityWarning},
	}

	groups := GroupResults(results)
	require.Len(t, groups, 4)

	var cats []api.Category
	for _, g := range groups {
		cats = append(cats, g.Category)
	}
	assert.Equal(t, []api.Category{
		api.CategorySecurity, api.CategoryArchitecture, api.CategoryPerformance, api.CategoryOther,
	}, cats)

	var sec []string
	for _, r := range groups[0].Results {
		sec = append(sec, r.RuleID)
	}
	assert.Equal(t, []string{"S2", "S4", "S3", "S1"}, sec, "error, warning, info; stable within a severity")

	assert.Equal(t, "X1", groups[3].Results[0].RuleID)
}

func TestGroupResultsEmpty(t *testing.T) {
	assert.Empty(t, GroupResults(nil))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]api.ValidationResult{
		{Severity: api.SeverityError},
		{Severity: api.SeverityError},
		{Severity: api.SeverityWarning},
		{Severity: api.SeverityInfo},
	})
	assert.Equal(t, Summary{Errors: 2, Warnings: 1, Info: 1}, s)
	assert.Equal(t, 4, s.Total())
	assert.Equal(t, "2 errors, 1 warnings, 1 info", s.String())
}
