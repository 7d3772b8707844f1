// Package workload loads process tables.
//
// The text format has one process per line, four whitespace-separated
// integers:
//
//	PID ARRIVAL BURST PRIORITY
//
// Blank lines and lines starting with '#' are skipped. Parsing stops at the
// first malformed line; the processes read before it are kept.
//
// Files ending in .yaml or .yml are read as YAML:
//
//	processes:
//	  - {pid: 1, arrival: 0, burst: 7, priority: 2}
package workload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/daviddao/priosim/pkg/model"
)

// ErrNoProcesses is returned by Load when a file yields no processes.
var ErrNoProcesses = errors.New("no processes loaded")

// SampleSource names the built-in workload in recorded runs.
const SampleSource = "sample"

// Sample returns the built-in five-process workload.
func Sample() []model.Process {
	return []model.Process{
		model.NewProcess(1, 0, 7, 2),
		model.NewProcess(2, 2, 4, 4),
		model.NewProcess(3, 4, 1, 6),
		model.NewProcess(4, 5, 4, 3),
		model.NewProcess(5, 6, 6, 1),
	}
}

// Parse reads the text format from r.
func Parse(r io.Reader) ([]model.Process, error) {
	var procs []model.Process
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, ok := parseLine(line)
		if !ok {
			break
		}
		procs = append(procs, p)
	}
	if err := sc.Err(); err != nil {
		return procs, err
	}
	return procs, nil
}

func parseLine(line string) (model.Process, bool) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return model.Process{}, false
	}
	var v [4]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return model.Process{}, false
		}
		v[i] = n
	}
	return model.NewProcess(v[0], v[1], v[2], v[3]), true
}

type yamlFile struct {
	Processes []model.Process `yaml:"processes"`
}

// ParseYAML reads the YAML format from r.
func ParseYAML(r io.Reader) ([]model.Process, error) {
	var f yamlFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	for i := range f.Processes {
		f.Processes[i].Reset()
	}
	return f.Processes, nil
}

// IsYAML reports whether path names a YAML workload.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a workload file, choosing the format by extension.
func Load(path string) ([]model.Process, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var procs []model.Process
	if IsYAML(path) {
		procs, err = ParseYAML(f)
	} else {
		procs, err = Parse(f)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("%w from %s", ErrNoProcesses, path)
	}
	return procs, nil
}

// Write emits procs in the text format.
func Write(w io.Writer, procs []model.Process) error {
	if _, err := fmt.Fprintln(w, "# PID ARRIVAL BURST PRIORITY"); err != nil {
		return err
	}
	for _, p := range procs {
		if _, err := fmt.Fprintf(w, "%d %d %d %d\n", p.PID, p.Arrival, p.Burst, p.BasePriority); err != nil {
			return err
		}
	}
	return nil
}

// WriteYAML emits procs in the YAML format.
func WriteYAML(w io.Writer, procs []model.Process) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlFile{Processes: procs}); err != nil {
		return err
	}
	return enc.Close()
}
