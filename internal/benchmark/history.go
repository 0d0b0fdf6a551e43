package benchmark

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// HistoryFile is the file name of the run history under the history
// directory.
const HistoryFile = "benchmarks.json.zst"

// DefaultHistoryLimit is the number of runs a History keeps.
const DefaultHistoryLimit = 50

// History stores past reports as zstd-compressed JSON.
type History struct {
	path  string
	limit int
}

// NewHistory returns the history kept in dir.
func NewHistory(dir string) *History {
	return &History{path: filepath.Join(dir, HistoryFile), limit: DefaultHistoryLimit}
}

func (h *History) Path() string { return h.path }

// Load returns the stored reports, oldest first. A missing history is
// empty.
func (h *History) Load() ([]Report, error) {
	f, err := os.Open(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening benchmark history: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading benchmark history: %w", err)
	}
	defer dec.Close()

	var reports []Report
	if err := json.NewDecoder(dec).Decode(&reports); err != nil {
		return nil, fmt.Errorf("decoding benchmark history %s: %w", h.path, err)
	}
	return reports, nil
}

// Last returns the most recent stored report, or nil.
func (h *History) Last() (*Report, error) {
	reports, err := h.Load()
	if err != nil || len(reports) == 0 {
		return nil, err
	}
	return &reports[len(reports)-1], nil
}

// Append adds rep and drops the oldest runs beyond the limit. The file is
// replaced atomically.
func (h *History) Append(rep Report) error {
	reports, err := h.Load()
	if err != nil {
		return err
	}
	reports = append(reports, rep)
	if len(reports) > h.limit {
		reports = reports[len(reports)-h.limit:]
	}
	return h.write(reports)
}

func (h *History) write(reports []Report) (err error) {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(h.path), ".history-*")
	if err != nil {
		return fmt.Errorf("creating history file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	enc, err := zstd.NewWriter(tmp)
	if err != nil {
		return fmt.Errorf("compressing history: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(reports); err != nil {
		_ = enc.Close()
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("compressing history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return os.Rename(tmp.Name(), h.path)
}
