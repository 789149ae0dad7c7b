package scoring

import (
	"math"

	"github.com/maxbolgarin/repoq/internal/model"
)

// Severity penalties and the size normalization are documented tuning
// policy: a larger file is not punished harder for a proportionally
// similar issue density, and the divisor never reaches zero.
const (
	penaltyError   = 1.5
	penaltyWarning = 0.8
	penaltyInfo    = 0.3

	sizeNormLines = 200
	maxSizeFactor = 4.0

	maxScore = 10.0
)

// Score converts a file's findings into a quality score in [0, 10] with
// one decimal place, plus the per-category histogram. It is a pure
// function: identical findings and line count always produce identical
// output.
func Score(findings []model.Finding, lineCount int) (float64, map[model.Category]int) {
	histogram := make(map[model.Category]int, len(findings))

	var penalty float64
	for _, f := range findings {
		histogram[f.Category]++
		switch f.Severity {
		case model.SeverityError:
			penalty += penaltyError
		case model.SeverityWarning:
			penalty += penaltyWarning
		default:
			penalty += penaltyInfo
		}
	}

	score := maxScore - penalty/sizeFactor(lineCount)
	if score < 0 {
		score = 0
	}
	if score > maxScore {
		score = maxScore
	}
	return math.Round(score*10) / 10, histogram
}

// sizeFactor grows sub-linearly with file size: 1.0 up to the norm, then
// the square root of the ratio, capped so huge files still accumulate
// penalties.
func sizeFactor(lineCount int) float64 {
	if lineCount <= sizeNormLines {
		return 1.0
	}
	factor := math.Sqrt(float64(lineCount) / sizeNormLines)
	return math.Min(factor, maxSizeFactor)
}

// Aggregate computes the repository-level score as the line-count-weighted
// mean of the per-file scores, rounded to one decimal place. An empty
// result set scores the full mark: nothing was found wrong.
func Aggregate(files []model.FileAnalysisResult) float64 {
	if len(files) == 0 {
		return maxScore
	}
	var weighted, weight float64
	for _, f := range files {
		w := float64(f.Lines)
		if w < 1 {
			w = 1
		}
		weighted += f.Score * w
		weight += w
	}
	return math.Round(weighted/weight*10) / 10
}
