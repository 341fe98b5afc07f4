// Package settings persists the manager's user preferences as a small
// YAML document keyed by settings group.
package settings

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const defaultRelAltitude = 20.0

type document struct {
	WaypointManager group `yaml:"WAYPOINT_MANAGER"`
}

type group struct {
	DefaultRelAltitude float64 `yaml:"defaultRelAltitude"`
}

// Store reads the settings file once and writes it back on every change.
type Store struct {
	path string

	mu  sync.Mutex
	doc document
}

// Open loads path, falling back to defaults when the file does not exist
// yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	s.doc.WaypointManager.DefaultRelAltitude = defaultRelAltitude

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading settings %s", path)
	}
	if err := yaml.Unmarshal(data, &s.doc); err != nil {
		return nil, errors.Wrapf(err, "parsing settings %s", path)
	}
	if s.doc.WaypointManager.DefaultRelAltitude == 0 {
		s.doc.WaypointManager.DefaultRelAltitude = defaultRelAltitude
	}
	return s, nil
}

func (s *Store) DefaultRelAltitude() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.WaypointManager.DefaultRelAltitude
}

func (s *Store) SetDefaultRelAltitude(alt float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.WaypointManager.DefaultRelAltitude = alt
	return s.write()
}

func (s *Store) write() error {
	data, err := yaml.Marshal(&s.doc)
	if err != nil {
		return errors.Wrap(err, "encoding settings")
	}
	return errors.Wrapf(os.WriteFile(s.path, data, 0o644), "writing settings %s", s.path)
}
