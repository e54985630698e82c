package store

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rigflow/rigflow/internal/logger"
	"github.com/rigflow/rigflow/internal/pipeline"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

// PipelineMetadata is the indexed summary of a saved pipeline.
type PipelineMetadata struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// pipelineEnvelope is the on-disk document wrapping a pipeline.
type pipelineEnvelope struct {
	PipelineID string             `json:"pipeline_id"`
	Name       string             `json:"name"`
	CreatedAt  string             `json:"created_at"`
	UpdatedAt  string             `json:"updated_at"`
	Data       *pipeline.Pipeline `json:"data"`
}

// PipelineStore stores pipelines as one JSON file each.
type PipelineStore struct {
	dir string
	log *logger.Logger
	mu  sync.Mutex
}

// NewPipelineStore creates the store, making the directory if needed.
func NewPipelineStore(dir string, log *logger.Logger) (*PipelineStore, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, rferrors.NewStorageError("pipeline directory", dir, "create", err)
	}
	return &PipelineStore{dir: dir, log: log}, nil
}

func (s *PipelineStore) path(id string) string {
	return filepath.Join(s.dir, sanitizeID(id)+".json")
}

// Save writes a pipeline, preserving the original creation time when the
// pipeline already exists. Saving is an upsert.
func (s *PipelineStore) Save(p *pipeline.Pipeline) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	env := pipelineEnvelope{
		PipelineID: p.PipelineID,
		Name:       p.Name,
		CreatedAt:  now,
		UpdatedAt:  now,
		Data:       p,
	}
	if env.Name == "" {
		env.Name = "Untitled Pipeline"
	}

	var existing pipelineEnvelope
	if err := readJSON(s.path(p.PipelineID), &existing); err == nil && existing.CreatedAt != "" {
		env.CreatedAt = existing.CreatedAt
	}

	if err := writeJSON(s.path(p.PipelineID), env); err != nil {
		return "", rferrors.NewStorageError("pipeline", p.PipelineID, "save", err)
	}

	index := s.loadIndex()
	index[p.PipelineID] = PipelineMetadata{
		ID:        p.PipelineID,
		Name:      env.Name,
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
	}
	s.saveIndex(index)

	s.log.Infof("saved pipeline: %s", p.PipelineID)
	return p.PipelineID, nil
}

// Get loads a pipeline by id.
func (s *PipelineStore) Get(id string) (*pipeline.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var env pipelineEnvelope
	if err := readJSON(s.path(id), &env); err != nil {
		if os.IsNotExist(err) {
			return nil, rferrors.NewNotFoundError("pipeline", id)
		}
		return nil, rferrors.NewStorageError("pipeline", id, "load", err)
	}
	if env.Data == nil {
		return nil, rferrors.NewStorageError("pipeline", id, "load",
			rferrors.NewInvalidStateError("document has no pipeline data", ""))
	}
	return env.Data, nil
}

// List returns the metadata index sorted by id.
func (s *PipelineStore) List() []PipelineMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.loadIndex()
	out := make([]PipelineMetadata, 0, len(index))
	for _, m := range index {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Exists reports whether a pipeline is stored.
func (s *PipelineStore) Exists(id string) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Delete removes a pipeline. It reports whether anything was deleted.
func (s *PipelineStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		return false
	}

	index := s.loadIndex()
	if _, ok := index[id]; ok {
		delete(index, id)
		s.saveIndex(index)
	}

	s.log.Infof("deleted pipeline: %s", id)
	return true
}

func (s *PipelineStore) loadIndex() map[string]PipelineMetadata {
	index := make(map[string]PipelineMetadata)
	if err := readJSON(filepath.Join(s.dir, metadataFile), &index); err != nil {
		return make(map[string]PipelineMetadata)
	}
	return index
}

func (s *PipelineStore) saveIndex(index map[string]PipelineMetadata) {
	if err := writeJSON(filepath.Join(s.dir, metadataFile), index); err != nil {
		s.log.Errorf(err, "error saving pipeline metadata index")
	}
}
