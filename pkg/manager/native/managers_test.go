package native

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unipkg/internal/executor"
	"unipkg/pkg/manager"
)

// scriptedRunner answers each command with canned output, keyed by the
// command's arguments with the call args stripped.
type scriptedRunner struct {
	outputs map[string]string
	calls   []executor.Command
}

func (r *scriptedRunner) Run(_ context.Context, cmd executor.Command, onLine func(string)) (int, error) {
	r.calls = append(r.calls, cmd)
	args := cmd.Args
	for i, a := range args {
		if a == "scoop" {
			args = args[i+1:]
			break
		}
	}
	out, ok := r.outputs[strings.Join(args, " ")]
	if !ok {
		return 1, nil
	}
	for _, line := range strings.Split(out, "\n") {
		onLine(line)
	}
	return 0, nil
}

func TestManagerInterface(t *testing.T) {
	managers := []manager.Manager{
		NewScoop(),
		NewWinget(),
		NewAPT(),
		NewPacman(),
	}

	for _, mgr := range managers {
		t.Run(mgr.Name(), func(t *testing.T) {
			assert.NotEmpty(t, mgr.Name())
			assert.NotEmpty(t, mgr.DisplayName())

			props := mgr.Properties()
			require.NotNil(t, props.DefaultSource)
			assert.Equal(t, mgr.Name(), props.DefaultSource.Manager)
			assert.Same(t, props.DefaultSource, mgr.SourceOrDefault(""))

			_ = mgr.IsAvailable()
		})
	}
}

func TestSourceOrDefault(t *testing.T) {
	scoop := NewScoop()
	extras := scoop.SourceOrDefault("extras")
	assert.Equal(t, "https://github.com/ScoopInstaller/Extras", extras.URL)
	assert.Same(t, extras, scoop.SourceOrDefault("extras"))

	custom := scoop.SourceOrDefault("my-bucket")
	assert.Equal(t, "my-bucket", custom.Name)
	assert.Same(t, custom, scoop.SourceOrDefault("my-bucket"))

	// APT has a single source; every name resolves to it.
	apt := NewAPT()
	assert.Equal(t, "apt", apt.SourceOrDefault("anything").Name)
}

func TestFormatAsName(t *testing.T) {
	assert.Equal(t, "Visual Studio Code", formatAsName("visual-studio_code"))
	assert.Equal(t, "Git", formatAsName("git"))
	assert.Equal(t, "", formatAsName(""))
}

func TestTableRows(t *testing.T) {
	rows := tableRows([]string{"Installed apps:", "", "Name Version", "---- -------", "git 2.40", "", "7zip 23.01"})
	assert.Equal(t, []string{"git 2.40", "7zip 23.01"}, rows)
}
