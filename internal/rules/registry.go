package rules

import (
	"sort"

	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/repoq/internal/model"
)

// Rule checks one file against one pattern and returns zero or more
// findings. Rules are pure functions over the source text: no shared
// state, no randomness, no network.
type Rule interface {
	Name() string
	Check(src *Source, th Thresholds) []model.Finding
}

// Registry maps detected languages to their ordered rule sets. A new
// language is supported by registering a rule set, not by editing a
// dispatcher.
type Registry struct {
	cfg        Config
	generic    []Rule
	byLanguage map[string][]Rule
	structural []Rule
	log        logze.Logger
}

// NewRegistry builds the registry with the built-in rule sets.
func NewRegistry(cfg Config) (*Registry, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, err
	}

	r := &Registry{
		cfg:        cfg,
		byLanguage: make(map[string][]Rule),
		log:        logze.With("component", "rules"),
	}

	r.generic = []Rule{
		lineLengthRule{},
		trailingWhitespaceRule{},
		fileLengthRule{},
		todoRule{},
	}
	r.structural = []Rule{
		nestingDepthRule{},
	}

	r.Register("python", pythonRules()...)
	r.Register("javascript", javascriptRules()...)
	r.Register("typescript", javascriptRules()...)
	r.Register("go", goRules()...)
	r.Register("java", javaRules()...)

	return r, nil
}

// Register adds a rule set for a language, appending to any existing set.
func (r *Registry) Register(language string, rules ...Rule) {
	r.byLanguage[language] = append(r.byLanguage[language], rules...)
}

// Analyze runs the rule sets selected by depth over one file and returns
// the findings in deterministic order. A rule that cannot handle the input
// is skipped; the engine always terminates with a (possibly empty) list.
func (r *Registry) Analyze(src *Source, depth model.Depth) []model.Finding {
	th := r.cfg.thresholdsFor(src.Language, depth == model.DepthBasic)

	rules := make([]Rule, 0, len(r.generic)+8)
	rules = append(rules, r.generic...)
	if depth != model.DepthBasic {
		rules = append(rules, r.byLanguage[src.Language]...)
	}
	if depth == model.DepthDeep {
		rules = append(rules, r.structural...)
	}

	var findings []model.Finding
	for _, rule := range rules {
		findings = append(findings, r.runRule(rule, src, th)...)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}
		if findings[i].Category != findings[j].Category {
			return findings[i].Category < findings[j].Category
		}
		return findings[i].Message < findings[j].Message
	})
	return findings
}

// runRule isolates one rule execution so malformed input can never abort
// the whole file's analysis.
func (r *Registry) runRule(rule Rule, src *Source, th Thresholds) (findings []model.Finding) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Debug("rule skipped malformed input", "rule", rule.Name(), "file", src.Path, "panic", rec)
			findings = nil
		}
	}()
	return rule.Check(src, th)
}
