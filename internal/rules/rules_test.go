package rules_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxbolgarin/repoq/internal/model"
	"github.com/maxbolgarin/repoq/internal/rules"
)

func newRegistry(t *testing.T) *rules.Registry {
	t.Helper()
	registry, err := rules.NewRegistry(rules.Config{})
	require.NoError(t, err)
	return registry
}

// longPythonFunction builds a public 60-line function with no docstring.
func longPythonFunction() string {
	lines := []string{
		"def process_records(records):",
		"    total = 0",
	}
	for i := 0; i < 57; i++ {
		lines = append(lines, fmt.Sprintf("    total += records[%d].value", i))
	}
	lines = append(lines, "    return total")
	return strings.Join(lines, "\n")
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"src/app.py", "python"},
		{"src/App.PY", "python"},
		{"web/index.js", "javascript"},
		{"web/Button.jsx", "javascript"},
		{"web/api.ts", "typescript"},
		{"web/View.tsx", "typescript"},
		{"internal/server.go", "go"},
		{"src/Main.java", "java"},
		{"lib/worker.rb", "ruby"},
		{"README", ""},
		{"data.xyzext", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rules.DetectLanguage(tt.path), tt.path)
	}
}

func TestLongFunctionWithoutDocstring(t *testing.T) {
	registry := newRegistry(t)

	src := rules.NewSource("pkg/metrics.py", "python", longPythonFunction())
	findings := registry.Analyze(src, model.DepthStandard)

	require.Len(t, findings, 2)
	assert.Equal(t, model.CategoryComplexity, findings[0].Category)
	assert.Equal(t, model.SeverityWarning, findings[0].Severity)
	assert.Equal(t, 1, findings[0].Line)
	assert.Contains(t, findings[0].Message, "process_records")

	assert.Equal(t, model.CategoryDocumentation, findings[1].Category)
	assert.Equal(t, model.SeverityInfo, findings[1].Severity)
	assert.Equal(t, 1, findings[1].Line)
	assert.Contains(t, findings[1].Message, "docstring")
}

func TestBasicDepthRunsOnlyGenericRules(t *testing.T) {
	registry := newRegistry(t)

	// Language rules would flag the missing docstring and, under the
	// standard threshold, the function length. Basic mode skips the
	// language set and relaxes the limits, so nothing fires.
	src := rules.NewSource("pkg/metrics.py", "python", longPythonFunction())
	findings := registry.Analyze(src, model.DepthBasic)
	assert.Empty(t, findings)
}

func TestCleanFileHasNoFindings(t *testing.T) {
	registry := newRegistry(t)

	text := strings.Join([]string{
		"def add(left, right):",
		`    """Return the sum of two numbers."""`,
		"    return left + right",
	}, "\n")
	src := rules.NewSource("pkg/math.py", "python", text)
	assert.Empty(t, registry.Analyze(src, model.DepthStandard))
}

func TestGenericLineLength(t *testing.T) {
	registry := newRegistry(t)

	text := "short line\n" + strings.Repeat("x", 150)
	src := rules.NewSource("notes.txt", "", text)
	findings := registry.Analyze(src, model.DepthStandard)

	require.Len(t, findings, 1)
	assert.Equal(t, model.CategoryStyle, findings[0].Category)
	assert.Equal(t, 2, findings[0].Line)
}

func TestGenericTrailingWhitespace(t *testing.T) {
	registry := newRegistry(t)

	src := rules.NewSource("notes.txt", "", "clean\ndirty   \nclean")
	findings := registry.Analyze(src, model.DepthStandard)

	require.Len(t, findings, 1)
	assert.Equal(t, 2, findings[0].Line)
	assert.Equal(t, "trailing whitespace", findings[0].Message)
}

func TestGenericFileLength(t *testing.T) {
	registry := newRegistry(t)

	lines := make([]string, 400)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	src := rules.NewSource("big.txt", "", strings.Join(lines, "\n"))
	findings := registry.Analyze(src, model.DepthStandard)

	require.Len(t, findings, 1)
	assert.Equal(t, model.CategoryComplexity, findings[0].Category)
	assert.Equal(t, 0, findings[0].Line)
}

func TestGenericTodoMarkers(t *testing.T) {
	registry := newRegistry(t)

	src := rules.NewSource("notes.txt", "", "# TODO: later\nfine\n# FIXME broken")
	findings := registry.Analyze(src, model.DepthStandard)

	require.Len(t, findings, 2)
	assert.Contains(t, findings[0].Message, "TODO")
	assert.Contains(t, findings[1].Message, "FIXME")
}

func TestPythonSecurity(t *testing.T) {
	registry := newRegistry(t)

	text := strings.Join([]string{
		"import yaml",
		"",
		"",
		"def _load(raw, path):",
		"    data = yaml.load(raw)",
		"    safe = yaml.load(raw, Loader=yaml.SafeLoader)",
		"    result = eval(path)",
		"    return data, safe, result",
	}, "\n")
	src := rules.NewSource("loader.py", "python", text)
	findings := registry.Analyze(src, model.DepthStandard)

	var security []model.Finding
	for _, f := range findings {
		if f.Category == model.CategorySecurity {
			security = append(security, f)
		}
	}
	require.Len(t, security, 2)
	assert.Equal(t, 5, security[0].Line)
	assert.Equal(t, model.SeverityError, security[0].Severity)
	assert.Equal(t, 7, security[1].Line)
}

func TestPythonNestedLoops(t *testing.T) {
	registry := newRegistry(t)

	text := strings.Join([]string{
		"def _scan(matrix):",
		"    for row in matrix:",
		"        for cell in row:",
		"            print(cell)",
		"    for row in matrix:",
		"        print(row)",
	}, "\n")
	src := rules.NewSource("scan.py", "python", text)
	findings := registry.Analyze(src, model.DepthStandard)

	require.Len(t, findings, 1)
	assert.Equal(t, model.CategoryPerformance, findings[0].Category)
	assert.Equal(t, 3, findings[0].Line)
}

func TestGoDocAndNaming(t *testing.T) {
	registry := newRegistry(t)

	text := strings.Join([]string{
		"package demo",
		"",
		"// Documented is fine.",
		"func Documented() {}",
		"",
		"func Exported() {}",
		"",
		"func do_work() {}",
	}, "\n")
	src := rules.NewSource("demo.go", "go", text)
	findings := registry.Analyze(src, model.DepthStandard)

	require.Len(t, findings, 2)
	assert.Equal(t, model.CategoryDocumentation, findings[0].Category)
	assert.Equal(t, 6, findings[0].Line)
	assert.Equal(t, model.CategoryNaming, findings[1].Category)
	assert.Equal(t, 8, findings[1].Line)
}

func TestGoSecurity(t *testing.T) {
	registry := newRegistry(t)

	text := strings.Join([]string{
		"package demo",
		"",
		"// attach builds the transport.",
		"func attach() {",
		"\tcfg := &tls.Config{InsecureSkipVerify: true}",
		"\t_ = cfg",
		"}",
	}, "\n")
	src := rules.NewSource("demo.go", "go", text)
	findings := registry.Analyze(src, model.DepthStandard)

	require.Len(t, findings, 1)
	assert.Equal(t, model.CategorySecurity, findings[0].Category)
	assert.Equal(t, model.SeverityError, findings[0].Severity)
	assert.Equal(t, 5, findings[0].Line)
}

func TestDeepDepthFlagsNesting(t *testing.T) {
	registry := newRegistry(t)

	text := strings.Join([]string{
		"package demo",
		"",
		"// probe walks the grid.",
		"func probe(grid [][][]int) {",
		"\tif len(grid) > 0 {",
		"\t\tif len(grid[0]) > 0 {",
		"\t\t\tif len(grid[0][0]) > 0 {",
		"\t\t\t\tif grid[0][0][0] > 0 {",
		"\t\t\t\t\tif grid[0][0][0] < 100 {",
		"\t\t\t\t\t\tprintln(grid[0][0][0])",
		"\t\t\t\t\t}",
		"\t\t\t\t}",
		"\t\t\t}",
		"\t\t}",
		"\t}",
		"}",
	}, "\n")
	src := rules.NewSource("demo.go", "go", text)

	standard := registry.Analyze(src, model.DepthStandard)
	for _, f := range standard {
		assert.NotContains(t, f.Message, "nesting depth")
	}

	deep := registry.Analyze(src, model.DepthDeep)
	var nesting []model.Finding
	for _, f := range deep {
		if strings.Contains(f.Message, "nesting depth") {
			nesting = append(nesting, f)
		}
	}
	require.Len(t, nesting, 1)
	assert.Equal(t, model.CategoryComplexity, nesting[0].Category)
	assert.Equal(t, model.SeverityWarning, nesting[0].Severity)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	registry := newRegistry(t)

	text := longPythonFunction() + "\n\n\ndef BadName(x):\n    return eval(x)\n"
	src := rules.NewSource("mixed.py", "python", text)

	first := registry.Analyze(src, model.DepthDeep)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, registry.Analyze(src, model.DepthDeep))
	}
}

func TestEmptySource(t *testing.T) {
	registry := newRegistry(t)

	src := rules.NewSource("empty.py", "python", "")
	assert.Empty(t, registry.Analyze(src, model.DepthDeep))
}
