// Package restriction implements the restriction expression tree and its
// evaluator. Evaluation is pure domain logic: no I/O, no side effects, and
// every decision is a function of the restriction and the transition alone.
package restriction

import "processguard/pkg/domain"

// MaxDepth is the deepest restriction tree a process may register.
const MaxDepth = 3

// Kind tags the variant held by a Restriction node.
//
// The catalog is closed and statically enumerable so a policy can be audited
// by reading it. New leaf kinds are added here, in Validate and in the
// evaluate switch; the depth walk does not change.
//
// The semantics of the leaf kinds below None and Combined are defined by this
// package and nowhere else: each is a pure predicate over sender, inputs and
// outputs, and an out-of-range index or absent key evaluates false.
type Kind string

const (
	KindNone     Kind = "none"
	KindCombined Kind = "combined"

	KindSenderOwnsAllInputs      Kind = "sender_owns_all_inputs"
	KindSenderHasInputRole       Kind = "sender_has_input_role"
	KindSenderHasOutputRole      Kind = "sender_has_output_role"
	KindFixedNumberOfInputs      Kind = "fixed_number_of_inputs"
	KindFixedNumberOfOutputs     Kind = "fixed_number_of_outputs"
	KindMatchInputOutputMetadata Kind = "match_input_output_metadata"
)

// BinaryOperator combines the results of two sub-restrictions.
type BinaryOperator string

const (
	// AND admits only when both sub-restrictions admit.
	AND BinaryOperator = "AND"
)

// Known reports whether the engine can evaluate op. Validate rejects the
// rest so a process can never register a tree that denies everything.
func (op BinaryOperator) Known() bool {
	return op == AND
}

// Restriction is a node of the restriction tree. Which fields are meaningful
// depends on Kind; the rest stay at their zero value. Children of a Combined
// node are owned by that node and never shared.
type Restriction struct {
	Kind Kind `json:"kind"`

	// Combined
	Operator BinaryOperator `json:"operator,omitempty"`
	Left     *Restriction   `json:"left,omitempty"`
	Right    *Restriction   `json:"right,omitempty"`

	// SenderHasInputRole, SenderHasOutputRole
	Index   int            `json:"index,omitempty"`
	RoleKey domain.RoleKey `json:"role_key,omitempty"`

	// FixedNumberOfInputs, FixedNumberOfOutputs
	Count int `json:"count,omitempty"`

	// MatchInputOutputMetadata
	InputIndex  int                `json:"input_index,omitempty"`
	OutputIndex int                `json:"output_index,omitempty"`
	MetadataKey domain.MetadataKey `json:"metadata_key,omitempty"`
}

// None admits every transition.
func None() Restriction {
	return Restriction{Kind: KindNone}
}

// Combined joins two sub-restrictions with op.
func Combined(op BinaryOperator, left, right Restriction) Restriction {
	return Restriction{Kind: KindCombined, Operator: op, Left: &left, Right: &right}
}

// And is shorthand for Combined(AND, left, right).
func And(left, right Restriction) Restriction {
	return Combined(AND, left, right)
}

// SenderOwnsAllInputs admits when the sender owns every input record.
func SenderOwnsAllInputs() Restriction {
	return Restriction{Kind: KindSenderOwnsAllInputs}
}

// SenderHasInputRole admits when the input at index assigns role to the sender.
func SenderHasInputRole(index int, role domain.RoleKey) Restriction {
	return Restriction{Kind: KindSenderHasInputRole, Index: index, RoleKey: role}
}

// SenderHasOutputRole admits when the output at index assigns role to the sender.
func SenderHasOutputRole(index int, role domain.RoleKey) Restriction {
	return Restriction{Kind: KindSenderHasOutputRole, Index: index, RoleKey: role}
}

// FixedNumberOfInputs admits when the transition carries exactly n inputs.
func FixedNumberOfInputs(n int) Restriction {
	return Restriction{Kind: KindFixedNumberOfInputs, Count: n}
}

// FixedNumberOfOutputs admits when the transition carries exactly n outputs.
func FixedNumberOfOutputs(n int) Restriction {
	return Restriction{Kind: KindFixedNumberOfOutputs, Count: n}
}

// MatchInputOutputMetadata admits when the input and output at the given
// indexes both carry key with equal values.
func MatchInputOutputMetadata(inputIndex, outputIndex int, key domain.MetadataKey) Restriction {
	return Restriction{
		Kind:        KindMatchInputOutputMetadata,
		InputIndex:  inputIndex,
		OutputIndex: outputIndex,
		MetadataKey: key,
	}
}

// IsLeaf reports whether the node is a predicate with no children.
func (r Restriction) IsLeaf() bool {
	return r.Kind != KindCombined
}

// Clone returns a deep copy of the tree so stored policies cannot be mutated
// through a caller's reference.
func (r Restriction) Clone() Restriction {
	c := r
	if r.Left != nil {
		left := r.Left.Clone()
		c.Left = &left
	}
	if r.Right != nil {
		right := r.Right.Clone()
		c.Right = &right
	}
	return c
}

// CloneAll deep-copies a restriction list. A nil list stays nil.
func CloneAll(rs []Restriction) []Restriction {
	if rs == nil {
		return nil
	}
	out := make([]Restriction, len(rs))
	for i := range rs {
		out[i] = rs[i].Clone()
	}
	return out
}
