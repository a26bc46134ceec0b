package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

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

// RunMetadata is the JSON sidecar written next to each run's log.
type RunMetadata struct {
	ID               string    `json:"id"`
	Scene            string    `json:"scene"`
	Timestamp        time.Time `json:"timestamp"`
	Engine           string    `json:"engine"`
	Integrator       string    `json:"integrator"`
	Dim              int       `json:"dim"`
	Bodies           int       `json:"bodies"`
	Dt               float64   `json:"dt"`
	ProducerInterval string    `json:"producer_interval"`
	ConsumerInterval string    `json:"consumer_interval"`
	Sequence         string    `json:"sequence_policy"`
	Samples          uint64    `json:"samples"`
	LastSequence     uint64    `json:"last_sequence"`
	Finished         time.Time `json:"finished,omitempty"`
}

// Create assigns a run id, writes the sidecar and opens the run's log.
func (s *Store) Create(meta RunMetadata, opts Options) (*Log, RunMetadata, error) {
	if err := s.Init(); err != nil {
		return nil, meta, err
	}

	now := time.Now()
	scene := meta.Scene
	if scene == "" {
		scene = "run"
	}
	meta.ID = fmt.Sprintf("%s_%s_%s", scene, now.Format("20060102_150405"), strings.SplitN(uuid.NewString(), "-", 2)[0])
	meta.Timestamp = now
	meta.Sequence = opts.Sequence.String()

	if err := s.Save(meta); err != nil {
		return nil, meta, err
	}

	l, err := Open(s.LogPath(meta.ID), opts)
	if err != nil {
		return nil, meta, err
	}
	return l, meta, nil
}

// Save rewrites the sidecar, typically once a run finishes.
func (s *Store) Save(meta RunMetadata) error {
	metaFile, err := os.Create(s.metaPath(meta.ID))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// List returns every run with a readable sidecar, oldest first.
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
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil || meta.ID == "" {
			continue
		}

		runs = append(runs, meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(s.metaPath(runID))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LogPath(runID string) string {
	return filepath.Join(s.baseDir, runID+".log")
}

func (s *Store) AnalysisDir() string {
	return filepath.Join(s.baseDir, "analysis")
}

func (s *Store) metaPath(runID string) string {
	return filepath.Join(s.baseDir, runID+".json")
}
