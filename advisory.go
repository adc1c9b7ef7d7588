package transit

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// disabledState is the on-disk shape of the suspended-lines file,
// maintained out of band from service advisories.
type disabledState struct {
	DisabledLines []string `json:"disabled_lines"`
}

// LoadDisabledLines reads the suspended-lines state file. The file is
// untrusted operator input: a missing or malformed file degrades to
// "nothing suspended" with a log line, never an error.
func LoadDisabledLines(path string, logger *slog.Logger) map[string]bool {
	if logger == nil {
		logger = slog.Default()
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("reading disabled-lines state", "path", path, "error", err)
		}
		return map[string]bool{}
	}

	var state disabledState
	if err := json.Unmarshal(buf, &state); err != nil {
		logger.Warn("malformed disabled-lines state, ignoring", "path", path, "error", err)
		return map[string]bool{}
	}

	disabled := make(map[string]bool, len(state.DisabledLines))
	for _, line := range state.DisabledLines {
		if line != "" {
			disabled[line] = true
		}
	}
	return disabled
}

// SaveDisabledLines writes the state atomically: a temp file in the
// same directory, then rename. A crash mid-write leaves the previous
// state intact.
func SaveDisabledLines(path string, disabled map[string]bool) error {
	lines := make([]string, 0, len(disabled))
	for line, on := range disabled {
		if on {
			lines = append(lines, line)
		}
	}
	sort.Strings(lines)

	buf, err := json.MarshalIndent(disabledState{DisabledLines: lines}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding disabled-lines state")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".disabled-lines-*")
	if err != nil {
		return errors.Wrap(err, "creating temp state file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temp state file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp state file")
	}

	return errors.Wrap(os.Rename(tmp.Name(), path), "replacing state file")
}

// EnsureStateFile creates an explicit empty state on first run only.
// An existing file is never touched, whatever its contents.
func EnsureStateFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "checking state file")
	}
	return SaveDisabledLines(path, map[string]bool{})
}
