package pipeline

import "smelter/internal/ids"

// EndConditionKind selects how an output's EOS condition is evaluated
// against its inputs' EOS state (§4.7).
type EndConditionKind int

const (
	EndAnyOf EndConditionKind = iota
	EndAllOf
	EndAnyInput
	EndAllInputs
	EndNever
)

// EndCondition is OutputRegistration.end_condition (§3/§4.7). Inputs is
// only meaningful for EndAnyOf/EndAllOf; EndAnyInput/EndAllInputs evaluate
// over whatever inputs are currently bound in the output's scene instead.
type EndCondition struct {
	Kind   EndConditionKind
	Inputs []ids.InputId
}

// Satisfied reports whether the end condition has fired (§4.7): eos is the
// set of inputs that have emitted EOS so far; boundInputs is the set of
// inputs currently referenced by the output's scene tree, used by
// EndAnyInput/EndAllInputs.
func (e EndCondition) Satisfied(eos map[ids.InputId]bool, boundInputs []ids.InputId) bool {
	switch e.Kind {
	case EndNever:
		return false
	case EndAnyOf:
		for _, id := range e.Inputs {
			if eos[id] {
				return true
			}
		}
		return false
	case EndAllOf:
		if len(e.Inputs) == 0 {
			return false
		}
		for _, id := range e.Inputs {
			if !eos[id] {
				return false
			}
		}
		return true
	case EndAnyInput:
		for _, id := range boundInputs {
			if eos[id] {
				return true
			}
		}
		return false
	case EndAllInputs:
		if len(boundInputs) == 0 {
			return false
		}
		for _, id := range boundInputs {
			if !eos[id] {
				return false
			}
		}
		return true
	default:
		return false
	}
}
