package restriction

import "processguard/pkg/domain"

// Evaluate reports whether the transition satisfies r. Unknown kinds and
// operators deny.
func Evaluate(r *Restriction, tr domain.Transition) bool {
	if r == nil {
		return false
	}
	switch r.Kind {
	case KindNone:
		return true
	case KindCombined:
		return evaluateCombined(r, tr)
	case KindSenderOwnsAllInputs:
		for _, in := range tr.Inputs {
			if in.Owner != tr.Sender {
				return false
			}
		}
		return true
	case KindSenderHasInputRole:
		return senderHasRole(tr.Inputs, r.Index, r.RoleKey, tr.Sender)
	case KindSenderHasOutputRole:
		return senderHasRole(tr.Outputs, r.Index, r.RoleKey, tr.Sender)
	case KindFixedNumberOfInputs:
		return len(tr.Inputs) == r.Count
	case KindFixedNumberOfOutputs:
		return len(tr.Outputs) == r.Count
	case KindMatchInputOutputMetadata:
		return metadataMatches(tr, r.InputIndex, r.OutputIndex, r.MetadataKey)
	default:
		return false
	}
}

// EvaluateAll is the implicit AND across a process's top-level restrictions,
// evaluated in order and stopping at the first denial.
func EvaluateAll(restrictions []Restriction, tr domain.Transition) bool {
	for i := range restrictions {
		if !Evaluate(&restrictions[i], tr) {
			return false
		}
	}
	return true
}

func evaluateCombined(r *Restriction, tr domain.Transition) bool {
	switch r.Operator {
	case AND:
		return Evaluate(r.Left, tr) && Evaluate(r.Right, tr)
	default:
		return false
	}
}

func senderHasRole(records []domain.ProcessIO, index int, key domain.RoleKey, sender domain.AccountID) bool {
	if index < 0 || index >= len(records) {
		return false
	}
	acc, ok := records[index].Role(key)
	return ok && acc == sender
}

func metadataMatches(tr domain.Transition, inputIndex, outputIndex int, key domain.MetadataKey) bool {
	if inputIndex < 0 || inputIndex >= len(tr.Inputs) || outputIndex < 0 || outputIndex >= len(tr.Outputs) {
		return false
	}
	in, ok := tr.Inputs[inputIndex].Meta(key)
	if !ok {
		return false
	}
	out, ok := tr.Outputs[outputIndex].Meta(key)
	return ok && in == out
}
