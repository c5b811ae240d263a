package domain

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Canonical state names.
const (
	StateAutoDetected    = "autoDetectado"
	StateLockedInReview  = "bloqueadoEnRevision"
	StatePendingRevision = "pendienteRevision"
	StateConfirmed       = "confirmado"
	StateRejected        = "rechazado"
	StateDerived         = "derivado"
)

// State is a named workflow status. States are immutable values obtained from
// the Catalog; two States are the same state when their names match.
type State struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
}

func (s State) String() string { return s.Name }

// Is reports whether s is the named state.
func (s State) Is(name string) bool { return s.Name == name }

// StateChange is one timestamped occupancy of a state. End is nil while the
// change is open, i.e. while it defines the event's current state.
type StateChange struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
	State State      `json:"state"`
}

// Open reports whether the change has not been closed yet.
func (c StateChange) Open() bool { return c.End == nil }

//go:embed states.yaml
var statesYAML []byte

type catalogDocument struct {
	Version int     `yaml:"version"`
	States  []State `yaml:"states"`
}

// Catalog is the fixed, ordered set of workflow states.
type Catalog struct {
	states []State
	byName map[string]int
}

var (
	catalogOnce sync.Once
	catalog     *Catalog
)

// LoadCatalog returns the process-wide state catalog. It is built on first use
// from the embedded states document and the same instance is returned on
// every subsequent call.
func LoadCatalog() *Catalog {
	catalogOnce.Do(func() {
		c, err := parseCatalog(statesYAML)
		if err != nil {
			panic(fmt.Sprintf("state catalog: %v", err))
		}
		catalog = c
	})
	return catalog
}

func parseCatalog(data []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.States) == 0 {
		return nil, fmt.Errorf("parse catalog: no states declared")
	}

	c := &Catalog{
		states: make([]State, 0, len(doc.States)),
		byName: make(map[string]int, len(doc.States)),
	}
	for i, s := range doc.States {
		if s.Name == "" {
			return nil, fmt.Errorf("parse catalog: states[%d]: name is required", i)
		}
		if _, dup := c.byName[s.Name]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate state %q", s.Name)
		}
		c.byName[s.Name] = len(c.states)
		c.states = append(c.states, s)
	}
	return c, nil
}

// Find looks a state up by its canonical name.
func (c *Catalog) Find(name string) (State, error) {
	i, ok := c.byName[name]
	if !ok {
		return State{}, fmt.Errorf("state %q: %w", name, ErrNotFound)
	}
	return c.states[i], nil
}

// MustFind is Find for names the workflow itself relies on. It panics when the
// name is missing, which means the embedded catalog is broken.
func (c *Catalog) MustFind(name string) State {
	s, err := c.Find(name)
	if err != nil {
		panic(err)
	}
	return s
}

// States returns the catalog in declared order.
func (c *Catalog) States() []State {
	out := make([]State, len(c.states))
	copy(out, c.states)
	return out
}
