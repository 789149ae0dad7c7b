package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxbolgarin/repoq/internal/model"
	"github.com/maxbolgarin/repoq/internal/scoring"
)

func finding(category model.Category, severity model.Severity) model.Finding {
	return model.Finding{Category: category, Severity: severity, Line: 1, Message: "x"}
}

func TestScoreCleanFile(t *testing.T) {
	score, histogram := scoring.Score(nil, 120)
	assert.Equal(t, 10.0, score)
	assert.Empty(t, histogram)
}

func TestScorePenalties(t *testing.T) {
	findings := []model.Finding{
		finding(model.CategorySecurity, model.SeverityError),     // 1.5
		finding(model.CategoryComplexity, model.SeverityWarning), // 0.8
		finding(model.CategoryStyle, model.SeverityInfo),         // 0.3
	}
	score, histogram := scoring.Score(findings, 100)
	assert.Equal(t, 7.4, score)
	assert.Equal(t, map[model.Category]int{
		model.CategorySecurity:   1,
		model.CategoryComplexity: 1,
		model.CategoryStyle:      1,
	}, histogram)
}

func TestScoreLargerFileSoftensSamePenalty(t *testing.T) {
	findings := []model.Finding{
		finding(model.CategoryComplexity, model.SeverityWarning),
		finding(model.CategoryComplexity, model.SeverityWarning),
	}
	small, _ := scoring.Score(findings, 100)
	large, _ := scoring.Score(findings, 800) // factor sqrt(4) = 2

	assert.Equal(t, 8.4, small)
	assert.Equal(t, 9.2, large)
	assert.Greater(t, large, small)
}

func TestScoreMoreFindingsNeverRaiseIt(t *testing.T) {
	var findings []model.Finding
	previous := 11.0
	for i := 0; i < 30; i++ {
		findings = append(findings, finding(model.CategorySecurity, model.SeverityError))
		score, _ := scoring.Score(findings, 150)
		assert.LessOrEqual(t, score, previous)
		previous = score
	}
}

func TestScoreBoundedAtZero(t *testing.T) {
	findings := make([]model.Finding, 100)
	for i := range findings {
		findings[i] = finding(model.CategorySecurity, model.SeverityError)
	}
	score, _ := scoring.Score(findings, 50)
	assert.Equal(t, 0.0, score)
}

func TestScoreDeterministic(t *testing.T) {
	findings := []model.Finding{
		finding(model.CategorySecurity, model.SeverityError),
		finding(model.CategoryNaming, model.SeverityInfo),
	}
	first, _ := scoring.Score(findings, 333)
	for i := 0; i < 10; i++ {
		score, _ := scoring.Score(findings, 333)
		assert.Equal(t, first, score)
	}
}

func TestAggregateEmpty(t *testing.T) {
	assert.Equal(t, 10.0, scoring.Aggregate(nil))
}

func TestAggregateWeightsByLines(t *testing.T) {
	files := []model.FileAnalysisResult{
		{Path: "big.py", Score: 4.0, Lines: 300},
		{Path: "small.py", Score: 10.0, Lines: 100},
	}
	// (4*300 + 10*100) / 400 = 5.5
	assert.Equal(t, 5.5, scoring.Aggregate(files))
}

func TestAggregateZeroLineFiles(t *testing.T) {
	files := []model.FileAnalysisResult{
		{Path: "empty.py", Score: 10.0, Lines: 0},
		{Path: "other.py", Score: 6.0, Lines: 0},
	}
	assert.Equal(t, 8.0, scoring.Aggregate(files))
}

func TestSuggestionsOnePerCategory(t *testing.T) {
	findings := []model.Finding{
		finding(model.CategorySecurity, model.SeverityError),
		finding(model.CategoryStyle, model.SeverityInfo),
		finding(model.CategorySecurity, model.SeverityError),
		finding(model.CategoryStyle, model.SeverityInfo),
	}
	suggestions := scoring.Suggestions(findings, "python")

	require.Len(t, suggestions, 2)
	assert.Equal(t, model.CategorySecurity, suggestions[0].Category)
	assert.Equal(t, model.CategoryStyle, suggestions[1].Category)
	for _, s := range suggestions {
		assert.NotEmpty(t, s.Title)
	}
}

func TestSuggestionsLanguageOverride(t *testing.T) {
	findings := []model.Finding{finding(model.CategorySecurity, model.SeverityError)}

	generic := scoring.Suggestions(findings, "python")
	forGo := scoring.Suggestions(findings, "go")

	require.Len(t, generic, 1)
	require.Len(t, forGo, 1)
	assert.NotEqual(t, generic[0].Title, forGo[0].Title)
	assert.Contains(t, forGo[0].Title, "parameterized")
}

func TestSuggestionsEmptyFindings(t *testing.T) {
	assert.Empty(t, scoring.Suggestions(nil, "python"))
}
