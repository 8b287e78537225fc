package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	d := Default()

	assert.Equal(t, 2.5, d.Detection.StatisticalThreshold)
	assert.Equal(t, 0.3, d.Detection.PercentageThreshold)
	assert.Equal(t, 10, d.Detection.MinDataPoints)
	assert.Equal(t, 24, d.Detection.RollingWindow)
	assert.Equal(t, SeverityThresholds{Moderate: 0.5, High: 0.8, Critical: 1.2}, d.Detection.Severity)
	assert.Equal(t, 80, d.Strategy.Recommendation.StrongBuy)
	assert.InDelta(t, 1.0, d.Strategy.Weights.Sum(), 1e-9)
	require.NoError(t, d.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(t *testing.T, th *Thresholds)
	}{
		{
			name:    "override keeps other defaults",
			content: "detection:\n  statistical_threshold: 3.0\n",
			check: func(t *testing.T, th *Thresholds) {
				assert.Equal(t, 3.0, th.Detection.StatisticalThreshold)
				assert.Equal(t, 0.3, th.Detection.PercentageThreshold)
			},
		},
		{
			name:    "non monotonic severity",
			content: "detection:\n  severity:\n    high: 2.0\n",
			wantErr: true,
		},
		{
			name:    "moderate band below the detection gate",
			content: "detection:\n  percentage_threshold: 0.6\n",
			wantErr: true,
		},
		{
			name:    "weights must sum to one",
			content: "strategy:\n  weights:\n    performance: 0.9\n",
			wantErr: true,
		},
		{
			name:    "broken yaml",
			content: "detection: [",
			wantErr: true,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "thresholds"+string(rune('a'+i))+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			th, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, th)
		})
	}
}

func TestLoadEmptyPath(t *testing.T) {
	th, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), th)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
