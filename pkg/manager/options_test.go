package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLayersOverrides(t *testing.T) {
	defaults := InstallationOptions{
		Architecture:     ArchX64,
		CustomParameters: []string{"--quiet"},
	}
	overrides := InstallationOptions{
		RunAsAdministrator: true,
		Version:            "1.2.3",
		CustomParameters:   []string{"--force"},
	}

	merged := defaults.Merge(overrides)

	assert.True(t, merged.RunAsAdministrator)
	assert.Equal(t, ArchX64, merged.Architecture)
	assert.Equal(t, "1.2.3", merged.Version)
	assert.Equal(t, []string{"--quiet", "--force"}, merged.CustomParameters)
	assert.Equal(t, []string{"--quiet"}, defaults.CustomParameters, "defaults must not be mutated")
}

func TestSanitizeStripsUnsupported(t *testing.T) {
	opts := InstallationOptions{
		SkipHashCheck:         true,
		RunAsAdministrator:    true,
		RemoveDataOnUninstall: true,
		PreRelease:            true,
		Architecture:          ArchArm64,
		InstallationScope:     ScopeGlobal,
		Version:               "1.0",
	}

	t.Run("nothing supported", func(t *testing.T) {
		s := opts.Sanitize(Capabilities{})
		assert.Equal(t, InstallationOptions{}, s)
	})

	t.Run("architectures limited", func(t *testing.T) {
		caps := Capabilities{
			SupportsCustomArchitectures: true,
			SupportedArchitectures:      []Architecture{ArchX86, ArchX64},
		}
		assert.Equal(t, ArchDefault, opts.Sanitize(caps).Architecture)

		caps.SupportedArchitectures = append(caps.SupportedArchitectures, ArchArm64)
		assert.Equal(t, ArchArm64, opts.Sanitize(caps).Architecture)
	})

	t.Run("everything supported", func(t *testing.T) {
		caps := Capabilities{
			CanRunAsAdmin:               true,
			CanSkipIntegrityChecks:      true,
			CanRemoveDataOnUninstall:    true,
			SupportsPreRelease:          true,
			SupportsCustomVersions:      true,
			SupportsCustomScopes:        true,
			SupportsCustomArchitectures: true,
			SupportedArchitectures:      []Architecture{ArchArm64},
		}
		assert.Equal(t, opts, opts.Sanitize(caps))
	})
}

func TestOptionsString(t *testing.T) {
	assert.Equal(t, "<defaults>", InstallationOptions{}.String())
	s := InstallationOptions{RunAsAdministrator: true, InstallationScope: ScopeGlobal}.String()
	assert.Equal(t, "run-as-admin scope=global", s)
}
