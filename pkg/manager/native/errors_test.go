package native

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(s string) []string {
	return strings.Split(s, "\n")
}

func TestDiagnosePacman(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		kind     FailureKind
		packages []string
	}{
		{
			name: "dependency conflict",
			output: `resolving dependencies...
error: failed to prepare transaction (could not satisfy dependencies)
:: installing gst-plugins-base-libs (1.26.10-3) breaks dependency 'gst-plugins-base-libs=1.26.10-1' required by gst-plugins-bad-libs
:: installing pipewire (1.2.3-4) breaks dependency 'pipewire=1.2.3-1' required by wireplumber`,
			kind:     FailureDependencyConflict,
			packages: []string{"gst-plugins-base-libs", "gst-plugins-bad-libs", "pipewire", "wireplumber"},
		},
		{
			name:     "package conflict",
			output:   ":: iptables and iptables-nft are in conflict",
			kind:     FailureDependencyConflict,
			packages: []string{"iptables", "iptables-nft"},
		},
		{
			name:     "not found",
			output:   "error: target not found: nonexistent-pkg\nerror: target not found: other",
			kind:     FailurePackageNotFound,
			packages: []string{"nonexistent-pkg", "other"},
		},
		{
			name:   "locked",
			output: "error: failed to init transaction (unable to lock database)",
			kind:   FailureDatabaseLocked,
		},
		{
			name:   "not root",
			output: "error: you cannot perform this operation unless you are root.",
			kind:   FailurePermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DiagnosePacman(lines(tt.output))
			require.NotNil(t, d)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.packages, d.Packages)
		})
	}

	assert.Nil(t, DiagnosePacman(lines("some unrelated error")))
	assert.Nil(t, DiagnosePacman(nil))
}

func TestDiagnoseAPT(t *testing.T) {
	d := DiagnoseAPT(lines("E: Could not get lock /var/lib/dpkg/lock-frontend. It is held by process 1234 (apt)"))
	require.NotNil(t, d)
	assert.Equal(t, FailureDatabaseLocked, d.Kind)

	d = DiagnoseAPT(lines("E: Unable to locate package nosuchpkg"))
	require.NotNil(t, d)
	assert.Equal(t, FailurePackageNotFound, d.Kind)
	assert.Equal(t, []string{"nosuchpkg"}, d.Packages)

	d = DiagnoseAPT(lines(`The following packages have unmet dependencies:
 foo : Depends: libbar (>= 2.0) but it is not going to be installed
 foo : Depends: libbaz but it is not installable
E: Unmet dependencies.`))
	require.NotNil(t, d)
	assert.Equal(t, FailureDependencyConflict, d.Kind)
	assert.Equal(t, []string{"foo", "libbar", "libbaz"}, d.Packages)

	d = DiagnoseAPT(lines("E: Could not open lock file /var/lib/dpkg/lock-frontend - open (13: Permission denied)"))
	require.NotNil(t, d)
	assert.Equal(t, FailurePermissionDenied, d.Kind)

	assert.Nil(t, DiagnoseAPT(lines("Reading package lists... Done")))
}

func TestDiagnosisString(t *testing.T) {
	d := &Diagnosis{Kind: FailureDependencyConflict, Packages: []string{"a"}, Suggestion: "update first"}
	s := d.String()
	assert.Contains(t, s, "Dependency conflict detected")
	assert.Contains(t, s, "-> Suggestion: update first")
	assert.Contains(t, s, "    - a")
}
