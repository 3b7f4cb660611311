// Package storage persists MD runs as a directory per run.
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
)

const (
	metadataFile = "metadata.json"
	energiesFile = "energies.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID          string             `json:"id"`
	System      string             `json:"system"`
	Timestamp   time.Time          `json:"timestamp"`
	Precision   string             `json:"precision"`
	Backend     string             `json:"backend"`
	NumAtoms    int                `json:"num_atoms"`
	NumParams   int                `json:"num_params"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Steps       int                `json:"steps"`
	StepsTaken  int                `json:"steps_taken"`
	Temperature float64            `json:"temperature"`
	Metrics     map[string]float64 `json:"metrics"`
	Error       string             `json:"error,omitempty"`
}

// Energies is the sampled energy trace of a run.
type Energies struct {
	Times     []float64
	Potential []float64
	Kinetic   []float64
	Total     []float64
}

func (e Energies) Len() int { return len(e.Times) }

// Save writes a new run directory and returns its id. meta.ID and
// meta.Timestamp are assigned here.
func (s *Store) Save(meta RunMetadata, energies Energies) (string, error) {
	n := energies.Len()
	if len(energies.Potential) != n || len(energies.Kinetic) != n || len(energies.Total) != n {
		return "", fmt.Errorf("storage: ragged energy series")
	}

	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now()
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, energiesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"time", "potential", "kinetic", "total"}); err != nil {
		return "", err
	}
	for i := 0; i < n; i++ {
		row := []string{
			formatFloat(energies.Times[i]),
			formatFloat(energies.Potential[i]),
			formatFloat(energies.Kinetic[i]),
			formatFloat(energies.Total[i]),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns all runs, newest first. Directories without readable metadata
// are skipped.
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
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", runID, err)
	}

	return &meta, nil
}

func (s *Store) LoadEnergies(runID string) (Energies, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, energiesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Energies{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return Energies{}, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return Energies{}, err
	}

	var e Energies
	for i := 1; i < len(records); i++ {
		var vals [4]float64
		for j := range vals {
			vals[j], err = strconv.ParseFloat(records[i][j], 64)
			if err != nil {
				return Energies{}, fmt.Errorf("storage: %s line %d: %w", energiesFile, i+1, err)
			}
		}
		e.Times = append(e.Times, vals[0])
		e.Potential = append(e.Potential, vals[1])
		e.Kinetic = append(e.Kinetic, vals[2])
		e.Total = append(e.Total, vals[3])
	}

	return e, nil
}
