package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxbolgarin/repoq/internal/model"
)

func TestFileFilterSelects(t *testing.T) {
	var f model.FileFilter
	f.SetDefaults()

	selected := []string{
		"main.py",
		"src/app.ts",
		"internal/server/server.go",
		"deep/path/to/Widget.java",
	}
	for _, p := range selected {
		assert.True(t, f.Selects(p), p)
	}

	rejected := []string{
		"node_modules/lodash/index.js",
		"vendor/github.com/pkg/errors/errors.go",
		"src/__pycache__/app.py",
		"dist/bundle.js",
		"app.min.js",
		"package-lock.json",
		"api/service.pb.go",
		"README.md",      // extension not in the set
		"assets/img.png", // binary asset
	}
	for _, p := range rejected {
		assert.False(t, f.Selects(p), p)
	}
}

func TestFileFilterCustomExtensions(t *testing.T) {
	f := model.FileFilter{Extensions: []string{".rb"}}
	f.SetDefaults()

	assert.True(t, f.Selects("app.rb"))
	assert.False(t, f.Selects("app.py"))
}

func TestAnalysisConfigDefaults(t *testing.T) {
	var cfg model.AnalysisConfig
	require.NoError(t, cfg.PrepareAndValidate())

	assert.Equal(t, 20, cfg.MaxFiles)
	assert.Equal(t, model.DepthStandard, cfg.Depth)
	assert.NotEmpty(t, cfg.Filter.Extensions)
	assert.Positive(t, cfg.Workers)
	assert.Positive(t, cfg.MaxDepth)
}
