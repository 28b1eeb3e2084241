package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/san-kum/powertrain/internal/config"
	"github.com/san-kum/powertrain/internal/logging"
	"github.com/san-kum/powertrain/internal/system"
)

var ErrCorrupt = errors.New("storage: corrupt run")

const (
	metadataFile = "metadata.json"
	systemFile   = "system.yaml"
	gridFile     = "grid.csv"
)

var gridHeader = []string{
	"torque", "rpm", "copper", "iron", "bus", "mechanical", "iq", "id", "output",
	"voltage_ratio", "demagnetization", "bus_voltage",
}

type Store struct {
	baseDir string
	log     *zap.Logger
}

func New(baseDir string, log *zap.Logger) *Store {
	return &Store{baseDir: baseDir, log: logging.OrNop(log)}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	GridSize  int                `json:"gridsize"`
	Torques   int                `json:"torques"`
	Speeds    int                `json:"speeds"`
	Feasible  float64            `json:"feasible"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes a solved map under a new run directory and returns its name.
// cfg may be nil when the system was not built from a config file.
func (s *Store) Save(name string, cfg *config.Config, gridSize int, res *system.Result, metrics map[string]float64) (string, error) {
	id := uuid.New()
	runID := fmt.Sprintf("%s_%s", name, id)
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	rows, cols := res.Dims()
	meta := RunMetadata{
		ID:        id.String(),
		Name:      name,
		Timestamp: time.Now(),
		GridSize:  gridSize,
		Torques:   rows,
		Speeds:    cols,
		Feasible:  res.FeasibleFraction(),
		Metrics:   metrics,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	if cfg != nil {
		if err := config.Save(filepath.Join(runDir, systemFile), cfg); err != nil {
			return "", err
		}
	}

	if err := writeGrid(filepath.Join(runDir, gridFile), res); err != nil {
		return "", err
	}

	s.log.Info("run saved", zap.String("run", runID), zap.Int("cells", rows*cols))
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeGrid stores one row per cell, torque major.
func writeGrid(path string, res *system.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(gridHeader); err != nil {
		return err
	}

	layers := res.Layers()
	row := make([]string, len(gridHeader))
	for i, t := range res.Torque {
		for j, r := range res.RPM {
			row[0] = formatFloat(t)
			row[1] = formatFloat(r)
			for k, m := range layers {
				row[k+2] = formatFloat(m.At(i, j))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			s.log.Debug("skipping run", zap.String("dir", entry.Name()), zap.Error(err))
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadConfig returns the system description saved with a run.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, systemFile))
}

// LoadResult rebuilds the solved map of a run.
func (s *Store) LoadResult(runID string) (*system.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, gridFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(gridHeader)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(records)-1 != meta.Torques*meta.Speeds || meta.Torques == 0 || meta.Speeds == 0 {
		return nil, fmt.Errorf("%w: %d rows for a %dx%d grid", ErrCorrupt, len(records)-1, meta.Torques, meta.Speeds)
	}

	trange := make([]float64, meta.Torques)
	rpm := make([]float64, meta.Speeds)
	res := system.NewResult(trange, rpm)
	layers := res.Layers()

	for k, record := range records[1:] {
		i, j := k/meta.Speeds, k%meta.Speeds
		vals := make([]float64, len(record))
		for c, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", ErrCorrupt, k+1, err)
			}
			vals[c] = v
		}
		res.Torque[i] = vals[0]
		res.RPM[j] = vals[1]
		for c, m := range layers {
			m.Set(i, j, vals[c+2])
		}
	}
	return res, nil
}
