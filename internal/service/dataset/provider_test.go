package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestParseSummary(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "list with content", raw: `[{"content": "ranked: sleep"}, {"content": "x"}]`, want: "ranked: sleep"},
		{name: "plain text", raw: "just text", want: "just text", wantErr: true},
		{name: "empty list", raw: `[]`, want: `[]`, wantErr: true},
		{name: "missing content", raw: `[{"role": "model"}]`, want: `[{"role": "model"}]`, wantErr: true},
		{name: "object document", raw: `{"Sleep_percent": 0.8}`, want: `{"Sleep_percent": 0.8}`, wantErr: true},
		{name: "non-text content", raw: `[{"content": 3}]`, want: `[{"content": 3}]`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseSummary(tc.raw)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantErr, err != nil)
		})
	}
}

func TestDirProviderFetch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "P01_simulatedUser.txt", `[{"content": "summary for P01"}]`)
	writeFile(t, dir, "Sleep_1", `{"Sleep_percent": [0.8, 0.9]}`)

	provider := NewDirProvider(dir, zap.NewNop())
	ctx := context.Background()

	text, err := provider.Fetch(ctx, "P01_simulatedUser.txt")
	require.NoError(t, err)
	assert.Equal(t, "summary for P01", text)

	text, err = provider.Fetch(ctx, "Sleep_1")
	require.NoError(t, err)
	assert.Equal(t, `{"Sleep_percent": [0.8, 0.9]}`, text)

	_, err = provider.Fetch(ctx, "Sleep_2")
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	_, err = provider.Fetch(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestDirProviderList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "b")
	writeFile(t, dir, "a.txt", "a")
	writeFile(t, dir, ".hidden", "h")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))

	names, err := NewDirProvider(dir, zap.NewNop()).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
}

func TestParticipantNames(t *testing.T) {
	csvDir := t.TempDir()
	summaryDir := t.TempDir()
	writeFile(t, csvDir, "P02.csv", "")
	writeFile(t, csvDir, "P01.csv", "")
	writeFile(t, csvDir, "P03.csv", "")
	writeFile(t, summaryDir, "P01"+SummarySuffix, "")
	writeFile(t, summaryDir, "P02"+SummarySuffix, "")
	writeFile(t, summaryDir, "P04"+SummarySuffix, "")

	names, err := ParticipantNames(csvDir, summaryDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"P01", "P02"}, names)
}
