package workflow

// StateMachine tracks a current status and applies actions against a Definition.
// Instances are not safe for concurrent use.
type StateMachine interface {
	// State returns the current status
	State() Status

	// CanFire returns true if the action is permitted in the current status
	CanFire(action Action) bool

	// Fire applies the action, moving to the new status if allowed
	Fire(action Action) error

	// PermittedActions returns all actions legal in the current status
	PermittedActions() []Action
}

// stateMachine implements StateMachine
type stateMachine struct {
	currentState Status
	definition   *Definition
}

// State returns the current status
func (m *stateMachine) State() Status {
	return m.currentState
}

// CanFire returns true if the action is permitted in the current status
func (m *stateMachine) CanFire(action Action) bool {
	_, ok := m.definition.Rule(m.currentState, action)
	return ok
}

// Fire applies the action, moving to the new status if allowed
func (m *stateMachine) Fire(action Action) error {
	next, err := m.definition.Evaluate(m.currentState, action)
	if err != nil {
		return err
	}
	m.currentState = next
	return nil
}

// PermittedActions returns all actions legal in the current status
func (m *stateMachine) PermittedActions() []Action {
	return m.definition.PermittedActions(m.currentState)
}
