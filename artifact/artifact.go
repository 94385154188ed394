// Package artifact persists trained model bundles as versioned JSON files
// and tracks which bundle serves predictions by default.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/minimarket-io/demandcast/models"
	"github.com/minimarket-io/demandcast/trainer"
)

const (
	// FormatVersion is bumped whenever the bundle layout changes in a way
	// old readers cannot handle.
	FormatVersion = 1

	fileSuffix = ".json"
)

var (
	ErrNoArtifacts       = errors.New("no model artifacts found")
	ErrVersionMismatch   = errors.New("unsupported artifact format version")
	ErrNoDefaultArtifact = errors.New("no default artifact has been promoted")
)

// Bundle is everything needed to reload a trained model and run it against
// freshly built features.
type Bundle struct {
	FormatVersion int                  `json:"format_version"`
	ModelName     models.Kind          `json:"model_name"`
	TrainedAt     time.Time            `json:"trained_at"`
	FeatureNames  []string             `json:"feature_names"`
	TrainMetrics  trainer.Metrics      `json:"train_metrics"`
	TestMetrics   trainer.Metrics      `json:"test_metrics"`
	CVScore       float64              `json:"cv_score,omitempty"`
	CVStd         float64              `json:"cv_std,omitempty"`
	Pipeline      models.PipelineState `json:"pipeline"`
}

// NewBundle snapshots a training result into a persistable bundle.
func NewBundle(res *trainer.Result, featureNames []string, trainedAt time.Time) (*Bundle, error) {
	state, err := res.Pipeline().State()
	if err != nil {
		return nil, fmt.Errorf("snapshotting pipeline, %w", err)
	}
	return &Bundle{
		FormatVersion: FormatVersion,
		ModelName:     res.Kind,
		TrainedAt:     trainedAt.UTC(),
		FeatureNames:  append([]string(nil), featureNames...),
		TrainMetrics:  res.TrainMetrics,
		TestMetrics:   res.TestMetrics,
		CVScore:       res.CVScore,
		CVStd:         res.CVStd,
		Pipeline:      state,
	}, nil
}

// Restore rebuilds the fitted pipeline stored in the bundle.
func (b *Bundle) Restore() (*models.Pipeline, error) {
	return models.NewPipelineFromState(b.Pipeline)
}

// Filename derives the timestamped name this bundle saves under.
func (b *Bundle) Filename() string {
	return fmt.Sprintf("%s_%s%s", b.ModelName, b.TrainedAt.Format("20060102_150405"), fileSuffix)
}

// Save writes the bundle into dir under its timestamped filename. The
// write goes through a temp file and rename so a concurrent reader never
// sees a partial bundle. Returns the full path written.
func (b *Bundle) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact dir, %w", err)
	}
	buf, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding artifact, %w", err)
	}

	path := filepath.Join(dir, b.Filename())
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads one bundle from path.
func Load(path string) (*Bundle, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact, %w", err)
	}
	var b Bundle
	if err := json.Unmarshal(buf, &b); err != nil {
		return nil, fmt.Errorf("decoding artifact %s, %w", filepath.Base(path), err)
	}
	if b.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("artifact %s has version %d, %w", filepath.Base(path), b.FormatVersion, ErrVersionMismatch)
	}
	return &b, nil
}

// LoadLatest loads the most recently trained bundle in dir, going by the
// trained-at timestamp embedded in the filename.
func LoadLatest(dir string) (*Bundle, error) {
	names, err := listArtifacts(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrNoArtifacts
	}
	return Load(filepath.Join(dir, names[len(names)-1]))
}

// listArtifacts returns artifact filenames in dir sorted so the most
// recently trained comes last. The timestamp suffix sorts lexically.
func listArtifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoArtifacts
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileSuffix) || strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return timestampOf(names[i]) < timestampOf(names[j])
	})
	return names, nil
}

// timestampOf extracts the trailing YYYYMMDD_HHMMSS portion of an
// artifact filename. Names without one sort first.
func timestampOf(name string) string {
	name = strings.TrimSuffix(name, fileSuffix)
	if len(name) < 15 {
		return ""
	}
	return name[len(name)-15:]
}
