package history

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unipkg/internal/config"
	"unipkg/internal/executor"
	"unipkg/pkg/manager/managertest"
	"unipkg/pkg/operation"
)

func TestRecorder(t *testing.T) {
	store := setupTestStore(t)
	cfg := config.Default()
	cfg.General.QueuePollInterval = config.Duration{Duration: time.Millisecond}

	runner := executor.RunnerFunc(func(ctx context.Context, cmd executor.Command, onLine func(string)) (int, error) {
		for i := 0; i < 30; i++ {
			onLine(fmt.Sprintf("line %d", i))
		}
		if strings.Contains(cmd.String(), "broken") {
			return 1, nil
		}
		return 0, nil
	})

	engine := operation.NewEngine(cfg, runner, nil, nil, operation.WithListener(NewRecorder(store, 2, nil)))
	fake := managertest.New("fake")

	for _, id := range []string{"git", "broken", "curl"} {
		engine.Install(fake.Package(id, "1.0")).Run(context.Background())
	}

	entries, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 2, "trimmed to the limit")

	assert.Equal(t, "curl", entries[0].PackageID)
	assert.True(t, entries[0].Success())
	assert.Equal(t, "fake", entries[0].Manager)
	assert.Equal(t, 1, entries[0].Runs)
	assert.Len(t, entries[0].Output, outputTail)

	assert.Equal(t, "broken", entries[1].PackageID)
	assert.Equal(t, operation.StatusFailed.String(), entries[1].Status)
	assert.False(t, entries[1].Success())
}

func TestRecorderSkipsDryRuns(t *testing.T) {
	store := setupTestStore(t)
	cfg := config.Default()
	cfg.General.QueuePollInterval = config.Duration{Duration: time.Millisecond}

	runner := executor.New(true, false)
	runner.SetOutput(io.Discard)
	engine := operation.NewEngine(cfg, runner, nil, nil, operation.WithListener(NewRecorder(store, 10, nil)))
	fake := managertest.New("fake")

	op := engine.Install(fake.Package("git", "1.0"))
	require.Equal(t, operation.StatusSucceeded, op.Run(context.Background()))
	require.True(t, op.Simulated())

	entries, err := store.List(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
