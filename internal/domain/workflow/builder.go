package workflow

import (
	"fmt"
	"sort"
)

// StateMachineBuilder builds a transition table
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given status
	Configure(state Status) StateConfiguration

	// Definition freezes the configured rows into an immutable table
	Definition() *Definition

	// Build creates a new state machine instance with the given initial status
	Build(initialState Status) StateMachine
}

// StateConfiguration configures transitions for a specific status
type StateConfiguration interface {
	// Permit allows an action to move to the target status for holders of any listed capability
	Permit(action Action, toState Status, anyOf ...Capability) StateConfiguration

	// PermitSigned is Permit for rows that also require the sign flag
	PermitSigned(action Action, toState Status, anyOf ...Capability) StateConfiguration
}

// stateConfig implements StateConfiguration
type stateConfig struct {
	fromState Status
	rules     map[Action]Rule
}

// stateMachineBuilder implements StateMachineBuilder
type stateMachineBuilder struct {
	configurations map[Status]*stateConfig
}

// Definition is an immutable transition table. It is safe for concurrent use.
type Definition struct {
	rules map[Status]map[Action]Rule
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[Status]*stateConfig),
	}
}

func configurable(s Status) bool {
	return s == StatusNone || s.IsValid()
}

// Configure returns a state configuration for the given status
func (b *stateMachineBuilder) Configure(state Status) StateConfiguration {
	if !configurable(state) {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState: state,
			rules:     make(map[Action]Rule),
		}
		b.configurations[state] = config
	}

	return config
}

// Definition freezes the configured rows into an immutable table
func (b *stateMachineBuilder) Definition() *Definition {
	rules := make(map[Status]map[Action]Rule, len(b.configurations))
	for state, config := range b.configurations {
		row := make(map[Action]Rule, len(config.rules))
		for action, rule := range config.rules {
			rule.AnyOf = append([]Capability(nil), rule.AnyOf...)
			row[action] = rule
		}
		rules[state] = row
	}
	return &Definition{rules: rules}
}

// Build creates a new state machine instance with the given initial status
func (b *stateMachineBuilder) Build(initialState Status) StateMachine {
	return b.Definition().Machine(initialState)
}

// Permit allows an action to move to the target status
func (c *stateConfig) Permit(action Action, toState Status, anyOf ...Capability) StateConfiguration {
	return c.permit(action, toState, false, anyOf)
}

// PermitSigned allows an action that also requires the sign flag
func (c *stateConfig) PermitSigned(action Action, toState Status, anyOf ...Capability) StateConfiguration {
	return c.permit(action, toState, true, anyOf)
}

func (c *stateConfig) permit(action Action, toState Status, signed bool, anyOf []Capability) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	if !action.IsValid() {
		panic(fmt.Sprintf("invalid action: %s", action))
	}
	if _, dup := c.rules[action]; dup {
		panic(fmt.Sprintf("duplicate rule: %s from %s", action, c.fromState))
	}

	c.rules[action] = Rule{
		From:             c.fromState,
		Action:           action,
		To:               toState,
		AnyOf:            append([]Capability(nil), anyOf...),
		RequiresSignFlag: signed,
	}

	return c
}

// Evaluate returns the status that results from applying action in from.
// The only failure is *InvalidTransitionError.
func (d *Definition) Evaluate(from Status, action Action) (Status, error) {
	rule, ok := d.Rule(from, action)
	if !ok {
		return from, &InvalidTransitionError{From: from, Action: action}
	}
	return rule.To, nil
}

// Rule returns the table row for (from, action)
func (d *Definition) Rule(from Status, action Action) (Rule, bool) {
	rule, ok := d.rules[from][action]
	if !ok {
		return Rule{}, false
	}
	rule.AnyOf = append([]Capability(nil), rule.AnyOf...)
	return rule, true
}

// PermittedActions returns the actions legal from a status, sorted by name
func (d *Definition) PermittedActions(from Status) []Action {
	row := d.rules[from]
	actions := make([]Action, 0, len(row))
	for action := range row {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// Rules returns every row of the table
func (d *Definition) Rules() []Rule {
	var rules []Rule
	for _, row := range d.rules {
		for _, rule := range row {
			rule.AnyOf = append([]Capability(nil), rule.AnyOf...)
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].From != rules[j].From {
			return rules[i].From < rules[j].From
		}
		return rules[i].Action < rules[j].Action
	})
	return rules
}

// Machine creates a stateful machine positioned at initialState
func (d *Definition) Machine(initialState Status) StateMachine {
	if !configurable(initialState) {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}
	return &stateMachine{
		currentState: initialState,
		definition:   d,
	}
}
