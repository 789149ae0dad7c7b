package scoring

import "github.com/maxbolgarin/repoq/internal/model"

// Suggestions attaches one representative remediation example per distinct
// finding category, in the order categories first appear. The catalog is
// static: suggestions are reproducible and explainable, never generated.
func Suggestions(findings []model.Finding, language string) []model.Suggestion {
	var out []model.Suggestion
	seen := make(map[model.Category]bool, len(findings))
	for _, f := range findings {
		if seen[f.Category] {
			continue
		}
		seen[f.Category] = true
		out = append(out, suggestionFor(f.Category, language))
	}
	return out
}

func suggestionFor(category model.Category, language string) model.Suggestion {
	if byLanguage, ok := languageCatalog[category]; ok {
		if s, ok := byLanguage[language]; ok {
			return s
		}
	}
	return genericCatalog[category]
}

var genericCatalog = map[model.Category]model.Suggestion{
	model.CategoryStyle: {
		Category: model.CategoryStyle,
		Title:    "Keep lines short and free of trailing whitespace",
		Before:   "result = some_function(argument_one, argument_two, argument_three, argument_four, argument_five)",
		After:    "result = some_function(\n    argument_one, argument_two,\n    argument_three, argument_four,\n    argument_five,\n)",
	},
	model.CategoryComplexity: {
		Category: model.CategoryComplexity,
		Title:    "Extract long or deeply nested blocks into named functions",
		Before:   "def process(data):\n    # 80 lines of validation, transformation and saving\n    ...",
		After:    "def process(data):\n    validated = validate(data)\n    transformed = transform(validated)\n    save(transformed)",
	},
	model.CategoryDocumentation: {
		Category: model.CategoryDocumentation,
		Title:    "Document every public function",
		Before:   "def convert(value, unit):\n    return value * FACTORS[unit]",
		After:    "def convert(value, unit):\n    \"\"\"Convert value to the base unit.\"\"\"\n    return value * FACTORS[unit]",
	},
	model.CategorySecurity: {
		Category: model.CategorySecurity,
		Title:    "Never build shell commands or queries from raw input",
		Before:   "os.system(\"convert \" + filename)",
		After:    "subprocess.run([\"convert\", filename], check=True)",
	},
	model.CategoryPerformance: {
		Category: model.CategoryPerformance,
		Title:    "Replace nested scans with a lookup structure",
		Before:   "for a in items:\n    for b in others:\n        if a.key == b.key:\n            match(a, b)",
		After:    "by_key = {b.key: b for b in others}\nfor a in items:\n    if a.key in by_key:\n        match(a, by_key[a.key])",
	},
	model.CategoryNaming: {
		Category: model.CategoryNaming,
		Title:    "Follow the language's naming convention",
		Before:   "def GetUserName():",
		After:    "def get_user_name():",
	},
}

// languageCatalog overrides the generic examples where a language-specific
// snippet reads better.
var languageCatalog = map[model.Category]map[string]model.Suggestion{
	model.CategorySecurity: {
		"javascript": {
			Category: model.CategorySecurity,
			Title:    "Never render raw input into the DOM",
			Before:   "element.innerHTML = userInput;",
			After:    "element.textContent = userInput;",
		},
		"typescript": {
			Category: model.CategorySecurity,
			Title:    "Never render raw input into the DOM",
			Before:   "element.innerHTML = userInput;",
			After:    "element.textContent = userInput;",
		},
		"go": {
			Category: model.CategorySecurity,
			Title:    "Use parameterized queries",
			Before:   "db.Query(fmt.Sprintf(\"SELECT * FROM users WHERE id = %s\", id))",
			After:    "db.Query(\"SELECT * FROM users WHERE id = $1\", id)",
		},
		"java": {
			Category: model.CategorySecurity,
			Title:    "Use PreparedStatement for queries",
			Before:   "stmt.executeQuery(\"SELECT * FROM users WHERE id = \" + id);",
			After:    "PreparedStatement ps = conn.prepareStatement(\n    \"SELECT * FROM users WHERE id = ?\");\nps.setLong(1, id);",
		},
	},
	model.CategoryNaming: {
		"javascript": {
			Category: model.CategoryNaming,
			Title:    "Use camelCase for functions and variables",
			Before:   "function get_user_name() {}",
			After:    "function getUserName() {}",
		},
		"typescript": {
			Category: model.CategoryNaming,
			Title:    "Use camelCase for functions and variables",
			Before:   "function get_user_name() {}",
			After:    "function getUserName() {}",
		},
		"go": {
			Category: model.CategoryNaming,
			Title:    "Use MixedCaps, not underscores",
			Before:   "func get_user_name() string {}",
			After:    "func getUserName() string {}",
		},
		"java": {
			Category: model.CategoryNaming,
			Title:    "Use camelCase methods and PascalCase classes",
			Before:   "public String get_user_name() {}",
			After:    "public String getUserName() {}",
		},
	},
	model.CategoryStyle: {
		"javascript": {
			Category: model.CategoryStyle,
			Title:    "Prefer const/let and strict equality",
			Before:   "var count = 0;\nif (value == null) {}",
			After:    "let count = 0;\nif (value === null) {}",
		},
		"typescript": {
			Category: model.CategoryStyle,
			Title:    "Prefer const/let and strict equality",
			Before:   "var count = 0;\nif (value == null) {}",
			After:    "let count = 0;\nif (value === null) {}",
		},
	},
	model.CategoryDocumentation: {
		"go": {
			Category: model.CategoryDocumentation,
			Title:    "Start doc comments with the identifier's name",
			Before:   "func Convert(value int) int {",
			After:    "// Convert maps value to the base unit.\nfunc Convert(value int) int {",
		},
		"java": {
			Category: model.CategoryDocumentation,
			Title:    "Add Javadoc to public methods",
			Before:   "public int convert(int value) {",
			After:    "/**\n * Converts value to the base unit.\n */\npublic int convert(int value) {",
		},
	},
}
