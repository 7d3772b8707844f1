package workload

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/priosim/pkg/model"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParse_TextFormat(t *testing.T) {
	procs, err := Parse(strings.NewReader("1 0 7 2\n2 2 4 4\n\n  3\t4  1 6  \n"))
	require.NoError(t, err)
	assert.Equal(t, []model.Process{
		model.NewProcess(1, 0, 7, 2),
		model.NewProcess(2, 2, 4, 4),
		model.NewProcess(3, 4, 1, 6),
	}, procs)
}

func TestParse_StopsAtFirstMalformedLine(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  int
	}{
		{"too few fields", "1 0 7 2\n2 2 4\n3 4 1 6\n", 1},
		{"too many fields", "1 0 7 2\n2 2 4 4 9\n", 1},
		{"non-integer", "1 0 7 2\n2 x 4 4\n3 4 1 6\n", 1},
		{"malformed first", "oops\n1 0 7 2\n", 0},
		{"comments skipped", "# header\n1 0 7 2\n# note\n2 2 4 4\n", 2},
		{"empty input", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			procs, err := Parse(strings.NewReader(tc.input))
			require.NoError(t, err)
			assert.Len(t, procs, tc.want)
		})
	}
}

func TestParseYAML(t *testing.T) {
	input := `
processes:
  - {pid: 1, arrival: 0, burst: 7, priority: 2}
  - pid: 2
    arrival: 2
    burst: 4
    priority: 4
`
	procs, err := ParseYAML(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []model.Process{
		model.NewProcess(1, 0, 7, 2),
		model.NewProcess(2, 2, 4, 4),
	}, procs)
}

func TestParseYAML_Invalid(t *testing.T) {
	_, err := ParseYAML(strings.NewReader("processes: [1, 2"))
	assert.Error(t, err)
}

func TestLoad_ByExtension(t *testing.T) {
	text := writeFile(t, "w.txt", "1 0 3 1\n")
	procs, err := Load(text)
	require.NoError(t, err)
	assert.Equal(t, []model.Process{model.NewProcess(1, 0, 3, 1)}, procs)

	yml := writeFile(t, "w.yml", "processes:\n  - {pid: 9, arrival: 1, burst: 2, priority: 3}\n")
	procs, err = Load(yml)
	require.NoError(t, err)
	assert.Equal(t, []model.Process{model.NewProcess(9, 1, 2, 3)}, procs)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)

	empty := writeFile(t, "empty.txt", "\n# nothing\n")
	_, err = Load(empty)
	assert.True(t, errors.Is(err, ErrNoProcesses), "got %v", err)

	emptyYAML := writeFile(t, "empty.yaml", "")
	_, err = Load(emptyYAML)
	assert.True(t, errors.Is(err, ErrNoProcesses), "got %v", err)
}

func TestWrite_RoundTripsThroughParse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Sample()))

	procs, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, Sample(), procs)
}

func TestIsYAML(t *testing.T) {
	assert.True(t, IsYAML("a.yaml"))
	assert.True(t, IsYAML("dir/a.YML"))
	assert.False(t, IsYAML("a.txt"))
	assert.False(t, IsYAML("yaml"))
}

func TestWriteYAML_RoundTripsThroughParseYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, Sample()))
	assert.NotContains(t, buf.String(), "remaining", "accounting fields are not part of the format")

	procs, err := ParseYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, Sample(), procs)
}
