package training

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/ml"
)

const (
	MappingFile  = "domain_to_best_model.json"
	ScalerFile   = "scaler.json"
	ResultsFile  = "training_results.json"
	DatasetFile  = "training_data.csv"
	modelFileFmt = "%s_model.json"
)

// ModelFile is the artifact name for a classifier family.
func ModelFile(f ml.Family) string {
	return fmt.Sprintf(modelFileFmt, f)
}

// Artifacts is everything a training run leaves on disk.
type Artifacts struct {
	DomainMapping map[string]string
	Scaler        *ml.StandardScaler
	Classifiers   map[ml.Family]*ml.Model
	Reports       map[ml.Family]FamilyReport
}

func (a *Artifacts) Accuracies() map[ml.Family]float64 {
	acc := make(map[ml.Family]float64, len(a.Reports))
	for f, r := range a.Reports {
		acc[f] = r.Accuracy
	}
	return acc
}

// Store reads and writes artifacts under one directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// Save writes every artifact into a staging directory and then renames each
// file into place, so a crash mid-write never leaves a torn JSON file behind.
func (s *Store) Save(a *Artifacts, dataset *Dataset) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create models dir: %w", err)
	}

	staging := filepath.Join(s.dir, ".staging-"+uuid.NewString())
	if err := os.Mkdir(staging, 0o755); err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	files := []string{MappingFile, ScalerFile, ResultsFile}
	if err := writeJSON(filepath.Join(staging, MappingFile), a.DomainMapping); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(staging, ScalerFile), a.Scaler); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(staging, ResultsFile), a.Reports); err != nil {
		return err
	}
	for _, f := range ml.Families {
		m, ok := a.Classifiers[f]
		if !ok {
			continue
		}
		if err := writeJSON(filepath.Join(staging, ModelFile(f)), m); err != nil {
			return err
		}
		files = append(files, ModelFile(f))
	}
	if dataset != nil {
		if err := writeCSV(filepath.Join(staging, DatasetFile), dataset); err != nil {
			return err
		}
		files = append(files, DatasetFile)
	}

	// The mapping goes last so readers never pair a new mapping with old models.
	files = append(files[1:], files[0])
	for _, name := range files {
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(s.dir, name)); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", name, err)
		}
	}
	return nil
}

// Load reads whatever artifacts exist. A directory with no artifacts yields
// an empty mapping and no error; a corrupt file is an error.
func (s *Store) Load() (*Artifacts, error) {
	a := &Artifacts{
		DomainMapping: map[string]string{},
		Classifiers:   map[ml.Family]*ml.Model{},
		Reports:       map[ml.Family]FamilyReport{},
	}

	if _, err := readJSON(filepath.Join(s.dir, MappingFile), &a.DomainMapping); err != nil {
		return nil, err
	}
	if a.DomainMapping == nil {
		a.DomainMapping = map[string]string{}
	}

	var scaler ml.StandardScaler
	found, err := readJSON(filepath.Join(s.dir, ScalerFile), &scaler)
	if err != nil {
		return nil, err
	}
	if found {
		a.Scaler = &scaler
	}

	for _, f := range ml.Families {
		var m ml.Model
		found, err := readJSON(filepath.Join(s.dir, ModelFile(f)), &m)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s artifact: %w", f, err)
		}
		a.Classifiers[f] = &m
	}

	if _, err := readJSON(filepath.Join(s.dir, ResultsFile), &a.Reports); err != nil {
		return nil, err
	}
	return a, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeCSV(path string, d *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if err := d.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}
