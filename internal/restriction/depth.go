package restriction

import (
	"errors"
	"fmt"
)

var (
	// ErrRestrictionsTooDeep is returned when a tree is deeper than the allowed maximum.
	ErrRestrictionsTooDeep = errors.New("restrictions too deep")
	// ErrMalformed is returned for unknown kinds or operators, missing children
	// and negative indexes.
	ErrMalformed = errors.New("malformed restriction")
)

// Depth returns the structural depth of the tree. Leaves have depth 1 and a
// Combined node is one deeper than its deepest child. A missing child counts
// as depth 0; Validate rejects such trees separately.
func Depth(r *Restriction) int {
	if r == nil {
		return 0
	}
	if r.Kind != KindCombined {
		return 1
	}
	return 1 + max(Depth(r.Left), Depth(r.Right))
}

// Validate checks every tree in the list against maxDepth and the leaf
// catalog. It is called before any registry write.
func Validate(restrictions []Restriction, maxDepth int) error {
	for i := range restrictions {
		r := &restrictions[i]
		if d := Depth(r); d > maxDepth {
			return fmt.Errorf("restriction %d has depth %d, max %d: %w", i, d, maxDepth, ErrRestrictionsTooDeep)
		}
		if err := checkShape(r); err != nil {
			return fmt.Errorf("restriction %d: %w", i, err)
		}
	}
	return nil
}

func checkShape(r *Restriction) error {
	switch r.Kind {
	case KindNone, KindSenderOwnsAllInputs:
		return nil
	case KindCombined:
		if r.Left == nil || r.Right == nil {
			return fmt.Errorf("combined restriction needs two children: %w", ErrMalformed)
		}
		if !r.Operator.Known() {
			return fmt.Errorf("unknown binary operator %q: %w", r.Operator, ErrMalformed)
		}
		if err := checkShape(r.Left); err != nil {
			return err
		}
		return checkShape(r.Right)
	case KindSenderHasInputRole, KindSenderHasOutputRole:
		if r.Index < 0 {
			return fmt.Errorf("%s index must not be negative: %w", r.Kind, ErrMalformed)
		}
		if r.RoleKey == "" {
			return fmt.Errorf("%s needs a role key: %w", r.Kind, ErrMalformed)
		}
		return nil
	case KindFixedNumberOfInputs, KindFixedNumberOfOutputs:
		if r.Count < 0 {
			return fmt.Errorf("%s count must not be negative: %w", r.Kind, ErrMalformed)
		}
		return nil
	case KindMatchInputOutputMetadata:
		if r.InputIndex < 0 || r.OutputIndex < 0 {
			return fmt.Errorf("%s indexes must not be negative: %w", r.Kind, ErrMalformed)
		}
		if r.MetadataKey == "" {
			return fmt.Errorf("%s needs a metadata key: %w", r.Kind, ErrMalformed)
		}
		return nil
	default:
		return fmt.Errorf("unknown restriction kind %q: %w", r.Kind, ErrMalformed)
	}
}
