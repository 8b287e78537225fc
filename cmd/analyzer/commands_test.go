package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/SubnetScope/internal/service"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		want    float64
	}{
		{name: "Метрики", input: `{"metrics":{"activity_score":91}}`, want: 91},
		{name: "Пустой ввод", input: ""},
		{name: "Битый JSON", input: `{"metrics":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req service.AnomalyRequest
			err := decodeRequest(strings.NewReader(tt.input), &req)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Metrics["activity_score"])
		})
	}
}

func TestOpenInput(t *testing.T) {
	stdin := strings.NewReader("from stdin")

	r, closeFn, err := openInput(stdin, "-")
	require.NoError(t, err)
	closeFn()
	assert.Same(t, stdin, r)

	path := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"subnet_id":3}`), 0o600))
	r, closeFn, err = openInput(stdin, path)
	require.NoError(t, err)
	defer closeFn()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	assert.Equal(t, `{"subnet_id":3}`, buf.String())

	_, _, err = openInput(stdin, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSubnetArg(t *testing.T) {
	id, err := subnetArg([]string{"18"})
	require.NoError(t, err)
	assert.Equal(t, 18, id)

	_, err = subnetArg([]string{"eighteen"})
	assert.Error(t, err)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"subnet_id": 1}))
	assert.Equal(t, "{\n  \"subnet_id\": 1\n}\n", buf.String())
}
