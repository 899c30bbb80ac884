package workflow

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/go-playground/validator/v10"
	"github.com/qmuntal/stateless"
	"gopkg.in/yaml.v3"
)

type ActorConstraint string

const (
	ActorNone      ActorConstraint = "none"
	ActorRequester ActorConstraint = "requester"
	ActorProducer  ActorConstraint = "producer"
)

type StateDefinition struct {
	Name           string `yaml:"name" json:"name" validate:"required"`
	Terminal       bool   `yaml:"terminal" json:"terminal"`
	Stamp          string `yaml:"stamp" json:"stamp,omitempty"`
	BumpRevision   bool   `yaml:"bumpRevision" json:"bumpRevision,omitempty"`
	AssignProducer bool   `yaml:"assignProducer" json:"assignProducer,omitempty"`
}

type TransitionRule struct {
	From            string          `yaml:"from" json:"from" validate:"required"`
	To              string          `yaml:"to" json:"to" validate:"required"`
	Actor           ActorConstraint `yaml:"actor" json:"actor" validate:"omitempty,oneof=none requester producer"`
	RequiresComment bool            `yaml:"requiresComment" json:"requiresComment"`
	// Backward moves return to an earlier phase, they are kept as configured and carry no comment requirement unless set.
	Backward bool `yaml:"backward" json:"backward"`
}

type Table struct {
	EntityType         domain.EntityType    `yaml:"entityType" json:"entityType" validate:"required"`
	InitialState       string               `yaml:"initialState" json:"initialState" validate:"required"`
	SubmitState        string               `yaml:"submitState" json:"submitState,omitempty"`
	AccessCapability   authority.Capability `yaml:"accessCapability" json:"accessCapability" validate:"required"`
	ViewAllCapability  authority.Capability `yaml:"viewAllCapability" json:"viewAllCapability,omitempty"`
	ProducerCapability authority.Capability `yaml:"producerCapability" json:"producerCapability,omitempty"`

	States      []StateDefinition `yaml:"states" json:"states" validate:"required,min=1,dive"`
	Transitions []TransitionRule  `yaml:"transitions" json:"transitions" validate:"dive"`

	states   map[string]*StateDefinition
	rules    map[string]map[string]*TransitionRule
	produced map[string]bool
}

var tableValidator = validator.New()

func (t *Table) compile() error {
	if err := tableValidator.Struct(t); err != nil {
		return err
	}
	prefix := string(t.EntityType)

	t.states = map[string]*StateDefinition{}
	for i := range t.States {
		s := &t.States[i]
		if _, dup := t.states[s.Name]; dup {
			return fmt.Errorf("%s: duplicated state '%s'", prefix, s.Name)
		}
		if s.Stamp != "" && !domain.IsKnownStamp(s.Stamp) {
			return fmt.Errorf("%s: state '%s' declares unknown stamp '%s'", prefix, s.Name, s.Stamp)
		}
		t.states[s.Name] = s
	}

	initial, found := t.states[t.InitialState]
	if !found {
		return fmt.Errorf("%s: initial state '%s' is not declared", prefix, t.InitialState)
	}
	if initial.Terminal {
		return fmt.Errorf("%s: initial state '%s' is terminal", prefix, t.InitialState)
	}

	for _, capability := range []authority.Capability{t.AccessCapability, t.ViewAllCapability, t.ProducerCapability} {
		if capability != "" && !authority.IsKnownCapability(capability) {
			return fmt.Errorf("%s: unknown capability '%s'", prefix, capability)
		}
	}

	t.rules = map[string]map[string]*TransitionRule{}
	t.produced = map[string]bool{}
	for i := range t.Transitions {
		r := &t.Transitions[i]
		if r.Actor == "" {
			r.Actor = ActorNone
		}
		from, found := t.states[r.From]
		if !found {
			return fmt.Errorf("%s: transition references undeclared state '%s'", prefix, r.From)
		}
		if _, found := t.states[r.To]; !found {
			return fmt.Errorf("%s: transition references undeclared state '%s'", prefix, r.To)
		}
		if r.From == r.To {
			return fmt.Errorf("%s: self transition on '%s' is not allowed", prefix, r.From)
		}
		if from.Terminal {
			return fmt.Errorf("%s: terminal state '%s' has outgoing transition to '%s'", prefix, r.From, r.To)
		}
		if r.Actor == ActorProducer && t.ProducerCapability == "" {
			return fmt.Errorf("%s: producer transition %s -> %s without producer capability", prefix, r.From, r.To)
		}
		if t.rules[r.From] == nil {
			t.rules[r.From] = map[string]*TransitionRule{}
		}
		if _, dup := t.rules[r.From][r.To]; dup {
			return fmt.Errorf("%s: duplicated transition %s -> %s", prefix, r.From, r.To)
		}
		t.rules[r.From][r.To] = r
		if r.Actor == ActorProducer {
			t.produced[r.To] = true
		}
	}

	if t.SubmitState != "" {
		if _, found := t.Rule(t.InitialState, t.SubmitState); !found {
			return fmt.Errorf("%s: submit state '%s' is not reachable from initial state", prefix, t.SubmitState)
		}
	}
	return nil
}

// machine answers admissibility questions for an entity standing in state from.
func (t *Table) machine(from string) *stateless.StateMachine {
	sm := stateless.NewStateMachine(from)
	for _, s := range t.States {
		config := sm.Configure(s.Name)
		for _, r := range t.Transitions {
			if r.From == s.Name {
				config.Permit(r.To, r.To)
			}
		}
	}
	return sm
}

func (t *Table) Allowed(from, to string) bool {
	ok, err := t.machine(from).CanFire(to)
	return err == nil && ok
}

// Targets lists the states reachable from state in one step, sorted by name.
func (t *Table) Targets(state string) []string {
	triggers, err := t.machine(state).PermittedTriggers()
	if err != nil {
		return []string{}
	}
	targets := make([]string, 0, len(triggers))
	for _, trigger := range triggers {
		targets = append(targets, trigger.(string))
	}
	sort.Strings(targets)
	return targets
}

func (t *Table) Rule(from, to string) (*TransitionRule, bool) {
	r, found := t.rules[from][to]
	return r, found
}

// Produced reports whether some producer transition leads into state.
func (t *Table) Produced(state string) bool {
	return t.produced[state]
}

func (t *Table) State(name string) (*StateDefinition, bool) {
	s, found := t.states[name]
	return s, found
}

func (t *Table) TerminalStates() []string {
	var names []string
	for _, s := range t.States {
		if s.Terminal {
			names = append(names, s.Name)
		}
	}
	return names
}

// Graph renders the table in DOT format.
func (t *Table) Graph() string {
	return t.machine(t.InitialState).ToGraph()
}

type Registry struct {
	tables map[domain.EntityType]*Table
	order  []domain.EntityType
}

//go:embed tables.yaml
var defaultTables []byte

var ActiveRegistry = MustLoadRegistry(defaultTables)

func LoadRegistry(data []byte) (*Registry, error) {
	var tables []*Table
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&tables); err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, errors.New("no transition table defined")
	}

	r := &Registry{tables: map[domain.EntityType]*Table{}}
	for _, t := range tables {
		if err := t.compile(); err != nil {
			return nil, err
		}
		if _, dup := r.tables[t.EntityType]; dup {
			return nil, fmt.Errorf("duplicated transition table for '%s'", t.EntityType)
		}
		r.tables[t.EntityType] = t
		r.order = append(r.order, t.EntityType)
	}
	return r, nil
}

func MustLoadRegistry(data []byte) *Registry {
	r, err := LoadRegistry(data)
	if err != nil {
		panic(fmt.Errorf("invalid transition tables: %w", err))
	}
	return r
}

func (r *Registry) Table(entityType domain.EntityType) (*Table, bool) {
	t, found := r.tables[entityType]
	return t, found
}

func (r *Registry) Tables() []*Table {
	tables := make([]*Table, 0, len(r.order))
	for _, entityType := range r.order {
		tables = append(tables, r.tables[entityType])
	}
	return tables
}
