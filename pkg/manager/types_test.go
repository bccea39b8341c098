package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackageTagString(t *testing.T) {
	tests := []struct {
		tag      PackageTag
		expected string
	}{
		{TagDefault, "default"},
		{TagAlreadyInstalled, "installed"},
		{TagOnQueue, "queued"},
		{TagBeingProcessed, "processing"},
		{TagFailed, "failed"},
		{PackageTag(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.tag.String())
		})
	}
}

func TestIdentityHash(t *testing.T) {
	a := Identity{ID: "git", Version: "2.40", Source: "main", Manager: "scoop"}
	b := Identity{ID: "git", Version: "2.41", Source: "main", Manager: "scoop"}

	assert.Equal(t, a.Hash(false), b.Hash(false), "versions collapse when unversioned")
	assert.NotEqual(t, a.Hash(true), b.Hash(true))

	other := a
	other.Manager = "winget"
	assert.NotEqual(t, a.Hash(false), other.Hash(false))

	// Field boundaries must not be ambiguous.
	x := Identity{ID: "bc", Source: "a", Manager: ""}
	y := Identity{ID: "c", Source: "ab", Manager: ""}
	assert.NotEqual(t, x.Hash(false), y.Hash(false))
}

func TestPackageTagAndScope(t *testing.T) {
	src := NewSource("scoop", "main", "")
	p := NewPackage("Git", "git", "2.40", src, nil, ScopeUser)

	assert.Equal(t, TagDefault, p.Tag())
	p.SetTag(TagOnQueue)
	assert.Equal(t, TagOnQueue, p.Tag())

	assert.Equal(t, ScopeUser, p.Scope())
	p.SetScope(ScopeGlobal)
	assert.Equal(t, ScopeGlobal, p.Scope())

	assert.False(t, p.IsUpgradable())
	assert.Equal(t, Identity{ID: "git", Version: "2.40", Source: "main"}, p.Identity())
}

func TestOverriddenOptionsAreCopied(t *testing.T) {
	p := NewPackage("Git", "git", "2.40", nil, nil, ScopeDefault)
	opts := InstallationOptions{CustomParameters: []string{"--a"}}
	p.SetOverriddenOptions(opts)

	opts.CustomParameters[0] = "--changed"
	got := p.OverriddenOptions()
	assert.Equal(t, []string{"--a"}, got.CustomParameters)

	got.CustomParameters[0] = "--again"
	assert.Equal(t, []string{"--a"}, p.OverriddenOptions().CustomParameters)
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "scoop: extras", NewSource("scoop", "extras", "").String())
	assert.Equal(t, "Local PC", NewVirtualSource("Local PC").String())

	var nilSource *ManagerSource
	assert.Equal(t, "", nilSource.String())
}

func TestSourceMetadata(t *testing.T) {
	src := NewSource("scoop", "main", "")
	_, known := src.PackageCount()
	assert.False(t, known)

	src.SetPackageCount(1200)
	n, known := src.PackageCount()
	assert.True(t, known)
	assert.Equal(t, 1200, n)
}
