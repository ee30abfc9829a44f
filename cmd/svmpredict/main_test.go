package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig points a config file at the shipped models and data with
// logging kept off disk.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("..", ".."))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := fmt.Sprintf("log:\n  level: error\nmodels:\n  dir: %q\n  cache_size: 0\ndata:\n  dir: %q\n%s",
		filepath.Join(root, "models"), filepath.Join(root, "data"), extra)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDatasetsCommand(t *testing.T) {
	out, err := run(t, "datasets", "--config", writeConfig(t, ""))
	require.NoError(t, err)
	assert.Contains(t, out, "Fish Dataset")
	assert.Contains(t, out, "Pumpkin Dataset")
	assert.Contains(t, out, "length,weight,w_l_ratio")
}

func TestPredictCommand(t *testing.T) {
	cfg := writeConfig(t, "")
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{"first dataset by default", nil, "Prediction for Fish Dataset: Anabas testudineus", ""},
		{"fruit", []string{"-d", "Fruit Dataset"}, "Prediction for Fruit Dataset: orange", ""},
		{"pumpkin", []string{"--dataset", "Pumpkin Dataset"}, "Prediction for Pumpkin Dataset: Çerçevelik", ""},
		{"verbose", []string{"-v", "--set", "length=10.66"}, "[success] Model loaded", ""},
		{"unknown dataset", []string{"-d", "Bird Dataset"}, "", "unknown dataset"},
		{"unknown feature", []string{"--set", "height=2"}, "", "unknown feature"},
		{"bad value", []string{"--set", "length=long"}, "", "value is not a number"},
		{"bad pair", []string{"--set", "length"}, "", "want name=value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"predict", "--config", cfg}, tt.args...)...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestPredictCommandModelMissing(t *testing.T) {
	cfg := writeConfig(t, `datasets:
  - name: Fish Dataset
    model: gone.json
    sample_data: fish_data.csv
    input_columns: [length, weight, w_l_ratio]
`)
	_, err := run(t, "predict", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Model failed to load")
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	cfg, source, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "defaults", source)
	assert.Len(t, cfg.Datasets, 3)
}

func TestParseSets(t *testing.T) {
	got, err := parseSets([]string{"length=1.5", " weight = 2 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"length": 1.5, "weight": 2}, got)

	_, err = parseSets([]string{"=3"})
	assert.Error(t, err)
	_, err = parseSets([]string{"length="})
	assert.Error(t, err)
}
