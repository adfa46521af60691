package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/usdplan/core/model"
	"github.com/kilianp07/usdplan/core/store"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	plant, err := filepath.Abs(filepath.Join("..", "infra", "provider", "testdata", "plant.yaml"))
	require.NoError(t, err)
	dir := t.TempDir()
	body := fmt.Sprintf(`snapshot:
  path: %s
store:
  backend: jsonl
  path: %s
logging:
  level: error
`, plant, filepath.Join(dir, "results.jsonl"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		solveSummary = false
		resultsPeriod = ""
		resultsFormat = "json"
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCurveCommand(t *testing.T) {
	cfgFile := writeConfig(t)
	out, err := execute(t, "curve", "-c", cfgFile, "--kind", "gt", "--load", "13.5")
	require.NoError(t, err)
	var perf struct {
		HeatRate        float64 `json:"heat_rate"`
		FreeSteamFactor float64 `json:"free_steam_factor"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &perf))
	assert.InDelta(t, 11000, perf.HeatRate, 1e-6)
	assert.InDelta(t, 1.9, perf.FreeSteamFactor, 1e-9)

	_, err = execute(t, "curve", "-c", cfgFile, "--kind", "hrsg")
	assert.Error(t, err)
}

func TestSolveAndResultsCommands(t *testing.T) {
	cfgFile := writeConfig(t)
	// A planning failure still prints the summary.
	out, _ := execute(t, "solve", "-c", cfgFile, "--period", "2025-04", "--summary")
	var sum store.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, model.Period{Month: 4, Year: 2025}, sum.Period)
	assert.NotEmpty(t, sum.RunID)

	out, err := execute(t, "results", "-c", cfgFile, "--fy", "2025")
	require.NoError(t, err)
	var sums []store.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sums))
	require.Len(t, sums, 1)
	assert.Equal(t, sum.RunID, sums[0].RunID)

	out, err = execute(t, "results", "-c", cfgFile, "--format", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "period,run_id,converged"))
	assert.Contains(t, out, "2025-04,"+sum.RunID)
}

func TestSolveRejectsBadPeriod(t *testing.T) {
	_, err := execute(t, "solve", "-c", writeConfig(t), "--period", "2025-13")
	assert.Error(t, err)
}
