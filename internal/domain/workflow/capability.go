package workflow

// Capability is a named permission required to perform an action
type Capability string

const (
	CapabilityAuthor   Capability = "author"
	CapabilityEditor   Capability = "editor"
	CapabilityReviewer Capability = "reviewer"
	CapabilitySigner   Capability = "signer"
	CapabilityAdmin    Capability = "admin"
)

// String returns the string representation of the capability
func (c Capability) String() string {
	return string(c)
}

// Rule is one row of the transition table
type Rule struct {
	From   Status
	Action Action
	To     Status

	// AnyOf lists capabilities of which the principal needs at least one
	AnyOf []Capability

	// RequiresSignFlag marks rows that additionally need Principal.CanSign
	RequiresSignFlag bool
}
