package pipeline

import (
	"testing"

	"smelter/internal/ids"
)

func TestEndAnyOfFiresOnFirstMatch(t *testing.T) {
	c := EndCondition{Kind: EndAnyOf, Inputs: []ids.InputId{"a", "b"}}
	if c.Satisfied(map[ids.InputId]bool{}, nil) {
		t.Fatalf("expected not satisfied with no EOS")
	}
	if !c.Satisfied(map[ids.InputId]bool{"b": true}, nil) {
		t.Fatalf("expected satisfied once one of the inputs is EOS")
	}
}

func TestEndAllOfRequiresEveryInput(t *testing.T) {
	c := EndCondition{Kind: EndAllOf, Inputs: []ids.InputId{"a", "b"}}
	if c.Satisfied(map[ids.InputId]bool{"a": true}, nil) {
		t.Fatalf("expected not satisfied with only one of two EOS")
	}
	if !c.Satisfied(map[ids.InputId]bool{"a": true, "b": true}, nil) {
		t.Fatalf("expected satisfied once both inputs are EOS")
	}
}

func TestEndAnyInputUsesBoundSet(t *testing.T) {
	c := EndCondition{Kind: EndAnyInput}
	bound := []ids.InputId{"x", "y"}
	if c.Satisfied(map[ids.InputId]bool{"z": true}, bound) {
		t.Fatalf("expected EOS of an unbound input to be ignored")
	}
	if !c.Satisfied(map[ids.InputId]bool{"x": true}, bound) {
		t.Fatalf("expected satisfied once a bound input is EOS")
	}
}

func TestEndAllInputsRequiresEveryBoundInput(t *testing.T) {
	c := EndCondition{Kind: EndAllInputs}
	bound := []ids.InputId{"x", "y"}
	if c.Satisfied(map[ids.InputId]bool{"x": true}, bound) {
		t.Fatalf("expected not satisfied until every bound input is EOS")
	}
	if !c.Satisfied(map[ids.InputId]bool{"x": true, "y": true}, bound) {
		t.Fatalf("expected satisfied once every bound input is EOS")
	}
}

func TestEndNeverNeverFires(t *testing.T) {
	c := EndCondition{Kind: EndNever}
	if c.Satisfied(map[ids.InputId]bool{"a": true}, []ids.InputId{"a"}) {
		t.Fatalf("expected EndNever to never be satisfied")
	}
}
