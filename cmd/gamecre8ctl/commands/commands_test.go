package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamecre8/internal/bootstrap"
	"gamecre8/internal/infra"
)

func init() {
	color.NoColor = true
}

// useTestServices points the CLI at a SQLite queue and a local asset tree
// so state survives between invocations.
func useTestServices(t *testing.T, assetsPresent bool) string {
	t.Helper()
	root := t.TempDir()
	if assetsPresent {
		for _, p := range []string{"Sprites/ninja.png", "Backgrounds/lava.png"} {
			full := filepath.Join(root, filepath.FromSlash(p))
			require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
			require.NoError(t, os.WriteFile(full, []byte("img"), 0o644))
		}
	}
	cfg := &infra.Config{
		QueueBackend:       infra.QueueBackendSQLite,
		SQLitePath:         filepath.Join(t.TempDir(), "queue.db"),
		AssetsSource:       infra.SourceLocal,
		GameStore:          infra.GameStoreFile,
		StoragePath:        root,
		SpritePrefixes:     []string{"Sprites"},
		BackgroundPrefixes: []string{"Backgrounds"},
		QueueDedupWindow:   time.Hour,
		RunnerBatchSize:    5,
		SeedPath:           "prompts.json",
	}
	prev := loadServices
	loadServices = func(ctx context.Context, _ io.Writer) (*bootstrap.Services, error) {
		return bootstrap.Build(ctx, cfg, zerolog.Nop())
	}
	t.Cleanup(func() { loadServices = prev })
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootShowsHelp(t *testing.T) {
	out, err := run(t)
	assert.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "enqueue")
}

func TestScanCommand(t *testing.T) {
	useTestServices(t, true)
	out, err := run(t, "scan", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "1 sprites, 1 backgrounds")
	assert.Contains(t, out, "Sprites/ninja.png")
}

func TestEnqueueRunAndJob(t *testing.T) {
	root := useTestServices(t, true)

	out, err := run(t, "--json", "enqueue", "ninja lava", "Ninja Lava")
	require.NoError(t, err)
	var results []struct {
		Skipped bool `json:"skipped"`
		Job     *struct {
			ID string `json:"id"`
		} `json:"job"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	require.NotNil(t, results[0].Job)
	assert.True(t, results[1].Skipped)
	jobID := results[0].Job.ID

	out, err = run(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "done    "+jobID)
	assert.Contains(t, out, "claimed 1, done 1, failed 0")

	out, err = run(t, "job", jobID)
	require.NoError(t, err)
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "result")

	games, err := os.ReadDir(filepath.Join(root, "games"))
	require.NoError(t, err)
	assert.Len(t, games, 1)

	out, err = run(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "queue empty")
}

func TestJobRequeueAfterFailure(t *testing.T) {
	useTestServices(t, false)

	out, err := run(t, "--json", "enqueue", "ninja")
	require.NoError(t, err)
	var results []struct {
		Job struct {
			ID string `json:"id"`
		} `json:"job"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	jobID := results[0].Job.ID

	out, err = run(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "failed  "+jobID)
	assert.Contains(t, out, "missing assets")

	out, err = run(t, "job", "--requeue", jobID)
	require.NoError(t, err)
	assert.Contains(t, out, "queued")
	assert.False(t, strings.Contains(out, jobID), "requeue must create a new job")

	_, err = run(t, "job", "does-not-exist")
	assert.Error(t, err)
}

func TestSeedCommand(t *testing.T) {
	root := useTestServices(t, true)

	out, err := run(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "no prompt list at prompts.json")

	require.NoError(t, os.WriteFile(filepath.Join(root, "prompts.json"), []byte(`["a", "b", "A"]`), 0o644))
	out, err = run(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "enqueued 2, skipped 1")

	out, err = run(t, "--json", "seed", "--demo")
	require.NoError(t, err)
	var counts map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, 15, counts["enqueued"])

	local := filepath.Join(t.TempDir(), "list.yaml")
	require.NoError(t, os.WriteFile(local, []byte("- prompt: forest fox\n- b\n"), 0o644))
	out, err = run(t, "seed", "--file", local)
	require.NoError(t, err)
	assert.Contains(t, out, "enqueued 1, skipped 1")

	_, err = run(t, "seed", "--demo", "--file", local)
	assert.Error(t, err)
}
