package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rigflow/rigflow/internal/logger"
	"github.com/rigflow/rigflow/internal/pipeline"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

// CompositeMetadata is the indexed summary of a saved composite.
type CompositeMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Color       string `json:"color"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	InputCount  int    `json:"input_count"`
	OutputCount int    `json:"output_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// CompositeStore stores composite definitions as one JSON file each.
type CompositeStore struct {
	dir string
	log *logger.Logger
	mu  sync.Mutex
}

// NewCompositeStore creates the store, making the directory if needed.
func NewCompositeStore(dir string, log *logger.Logger) (*CompositeStore, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, rferrors.NewStorageError("composite directory", dir, "create", err)
	}
	return &CompositeStore{dir: dir, log: log}, nil
}

func (s *CompositeStore) path(id string) string {
	return filepath.Join(s.dir, sanitizeID(id)+".json")
}

// Save validates and writes a composite, assigning an id when the
// definition has none. A composite whose subgraph embeds itself is
// rejected. Saving is an upsert that preserves the creation time.
func (s *CompositeStore) Save(c *pipeline.Composite) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.CompositeID == "" {
		u := uuid.New()
		c.CompositeID = fmt.Sprintf("composite_%x", u[:4])
	}
	c.ApplyDefaults()

	for _, node := range c.Subgraph.Nodes {
		if node.Type == pipeline.NodeComposite && node.CompositeID == c.CompositeID {
			return "", rferrors.NewCircularReferenceError(c.CompositeID, "")
		}
	}

	if err := pipeline.ValidateComposite(c); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	c.UpdatedAt = now
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if existing, err := s.load(c.CompositeID); err == nil && !existing.CreatedAt.IsZero() {
		c.CreatedAt = existing.CreatedAt
	}

	if err := writeJSON(s.path(c.CompositeID), c); err != nil {
		return "", rferrors.NewStorageError("composite", c.CompositeID, "save", err)
	}

	index := s.loadIndex()
	index[c.CompositeID] = CompositeMetadata{
		ID:          c.CompositeID,
		Name:        c.Name,
		Category:    c.Category,
		Color:       c.Color,
		Version:     c.Version,
		Author:      c.Author,
		InputCount:  len(c.Inputs),
		OutputCount: len(c.Outputs),
		CreatedAt:   c.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   c.UpdatedAt.Format(time.RFC3339Nano),
	}
	s.saveIndex(index)

	s.log.Infof("saved composite: %s", c.CompositeID)
	return c.CompositeID, nil
}

// Get loads a composite by id.
func (s *CompositeStore) Get(id string) (*pipeline.Composite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

func (s *CompositeStore) load(id string) (*pipeline.Composite, error) {
	var c pipeline.Composite
	if err := readJSON(s.path(id), &c); err != nil {
		if os.IsNotExist(err) {
			return nil, rferrors.NewNotFoundError("composite", id)
		}
		return nil, rferrors.NewStorageError("composite", id, "load", err)
	}
	return &c, nil
}

// List returns the metadata index sorted by id.
func (s *CompositeStore) List() []CompositeMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.loadIndex()
	out := make([]CompositeMetadata, 0, len(index))
	for _, m := range index {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListByCategory loads every composite in a category.
func (s *CompositeStore) ListByCategory(category string) ([]*pipeline.Composite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.loadIndex()
	ids := make([]string, 0, len(index))
	for id, m := range index {
		if m.Category == category {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]*pipeline.Composite, 0, len(ids))
	for _, id := range ids {
		c, err := s.load(id)
		if err != nil {
			s.log.Errorf(err, "error loading composite %s", id)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Exists reports whether a composite is stored.
func (s *CompositeStore) Exists(id string) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Delete removes a composite. It reports whether anything was deleted.
func (s *CompositeStore) Delete(id string) bool {
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

	s.log.Infof("deleted composite: %s", id)
	return true
}

func (s *CompositeStore) loadIndex() map[string]CompositeMetadata {
	index := make(map[string]CompositeMetadata)
	if err := readJSON(filepath.Join(s.dir, metadataFile), &index); err != nil {
		return make(map[string]CompositeMetadata)
	}
	return index
}

func (s *CompositeStore) saveIndex(index map[string]CompositeMetadata) {
	if err := writeJSON(filepath.Join(s.dir, metadataFile), index); err != nil {
		s.log.Errorf(err, "error saving composite metadata index")
	}
}
