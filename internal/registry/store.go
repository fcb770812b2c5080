// Package registry provides an in-memory organizational registry loaded from
// a YAML fixture. It lists the candidates the cascade offers and stands in
// for the creation sub-workflow by registering new entities.
package registry

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mrsinham/importctx/internal/model"
	"github.com/mrsinham/importctx/internal/resolver"
)

var _ resolver.Collaborators = (*Store)(nil)

// ErrNotFound is returned when an entity referenced by a write does not
// exist.
var ErrNotFound = eris.New("registry: entity not found")

// Fixture is the on-disk shape of the registry.
type Fixture struct {
	Studies      []model.Study              `yaml:"studies"`
	Centers      []model.Center             `yaml:"centers"`
	StudyCards   []model.StudyCard          `yaml:"study_cards,omitempty"`
	Subjects     []model.Subject            `yaml:"subjects,omitempty"`
	Examinations []model.Examination        `yaml:"examinations,omitempty"`
	Converters   []model.Converter          `yaml:"converters,omitempty"`
	Rights       map[model.ID][]model.Right `yaml:"rights,omitempty"`
}

// Store is a concurrency-safe registry. Lists are returned as copies in
// fixture order.
type Store struct {
	mu     sync.RWMutex
	data   Fixture
	nextID model.ID
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New builds a store over a fixture.
func New(f Fixture, opts ...Option) *Store {
	s := &Store{data: f, logger: zap.NewNop()}
	if s.data.Rights == nil {
		s.data.Rights = make(map[model.ID][]model.Right)
	}
	for i := range s.data.Centers {
		c := &s.data.Centers[i]
		for j := range c.Equipment {
			c.Equipment[j].CenterID = c.ID
		}
	}
	s.nextID = maxID(s.data) + 1
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Parse decodes a YAML fixture.
func Parse(data []byte, opts ...Option) (*Store, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, eris.Wrap(err, "decode registry fixture")
	}
	return New(f, opts...), nil
}

// Load reads a YAML fixture from disk.
func Load(path string, opts ...Option) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read registry %s", path)
	}
	s, err := Parse(data, opts...)
	if err != nil {
		return nil, eris.Wrapf(err, "load registry %s", path)
	}
	return s, nil
}

// Save writes the registry, including created entities, to disk.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	data, err := yaml.Marshal(s.data)
	s.mu.RUnlock()
	if err != nil {
		return eris.Wrap(err, "encode registry")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "write registry %s", path)
	}
	return nil
}

func maxID(f Fixture) model.ID {
	var m model.ID
	bump := func(id model.ID) {
		if id > m {
			m = id
		}
	}
	for _, s := range f.Studies {
		bump(s.ID)
	}
	for _, c := range f.Centers {
		bump(c.ID)
		for _, eq := range c.Equipment {
			bump(eq.ID)
		}
	}
	for _, c := range f.StudyCards {
		bump(c.ID)
	}
	for _, s := range f.Subjects {
		bump(s.ID)
	}
	for _, e := range f.Examinations {
		bump(e.ID)
	}
	for _, c := range f.Converters {
		bump(c.ID)
	}
	return m
}
