package domain

// ProcessIO is a single input or output record of a transition. It is
// supplied by the host per transition and is read-only to the engine.
type ProcessIO struct {
	Owner    AccountID                     `json:"owner"`
	Roles    map[RoleKey]AccountID         `json:"roles,omitempty"`
	Metadata map[MetadataKey]MetadataValue `json:"metadata,omitempty"`
}

// Transition is the sender/inputs/outputs triple being checked for authorization.
type Transition struct {
	Sender  AccountID   `json:"sender"`
	Inputs  []ProcessIO `json:"inputs"`
	Outputs []ProcessIO `json:"outputs"`
}

// Role returns the account holding key on the record.
func (io ProcessIO) Role(key RoleKey) (AccountID, bool) {
	acc, ok := io.Roles[key]
	return acc, ok
}

// Meta returns the value stored under key on the record.
func (io ProcessIO) Meta(key MetadataKey) (MetadataValue, bool) {
	v, ok := io.Metadata[key]
	return v, ok
}
