package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"unipkg/internal/config"
)

func TestExportTarget(t *testing.T) {
	paths := config.Paths{Bundles: filepath.Join("data", "bundles")}
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	fallback := filepath.Join("data", "bundles", "packages-20240309-140507.ubundle")

	tests := []struct {
		name string
		args []string
		path string
		ids  []string
	}{
		{name: "no arguments", args: nil, path: fallback, ids: nil},
		{name: "file only", args: []string{"dev.json"}, path: "dev.json", ids: []string{}},
		{name: "file and packages", args: []string{"tools.YAML", "git", "jq"}, path: "tools.YAML", ids: []string{"git", "jq"}},
		{name: "packages only", args: []string{"git", "jq"}, path: fallback, ids: []string{"git", "jq"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ids := exportTarget(tt.args, paths, now)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.ids, ids)
		})
	}
}
