package class

import "testing"

func TestBytecodeClassFieldShadowing(t *testing.T) {
	// A <- B, both declare a field named "thing" (spec section 8's
	// shadowed-field-through-inheritance scenario).
	a := NewBytecodeClass(
		ClassIdentifier{Name: "A"},
		nil, nil,
		[]FieldDescriptor{{Name: "thing", Default: IntValue(0)}},
		nil,
	)
	b := NewBytecodeClass(
		ClassIdentifier{Name: "B"},
		nil, nil,
		[]FieldDescriptor{{Name: "thing", Default: IntValue(0)}},
		a,
	)

	inst, err := b.NewInstance(b)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	bi := inst.(*BytecodeInstance)

	aLevel, ok := InstanceAtClass(bi, ClassIdentifier{Name: "A"})
	if !ok {
		t.Fatal("expected to find the A level")
	}
	bLevel, ok := InstanceAtClass(bi, ClassIdentifier{Name: "B"})
	if !ok {
		t.Fatal("expected to find the B level")
	}

	aSlot, _ := aLevel.FieldAt("thing")
	bSlot, _ := bLevel.FieldAt("thing")
	*aSlot = IntValue(20)
	*bSlot = IntValue(10)

	if aSlot.Int != 20 {
		t.Errorf("A.thing = %d, want 20", aSlot.Int)
	}
	if bSlot.Int != 10 {
		t.Errorf("B.thing = %d, want 10", bSlot.Int)
	}
}

func TestInstanceAtClassMissingLevel(t *testing.T) {
	a := NewBytecodeClass(ClassIdentifier{Name: "A"}, nil, nil, nil, nil)
	inst, _ := a.NewInstance(a)

	if _, ok := InstanceAtClass(inst, ClassIdentifier{Name: "Unrelated"}); ok {
		t.Error("expected no match for an unrelated class identifier")
	}
}

func TestNewInstanceRejectsWrongSelf(t *testing.T) {
	a := NewBytecodeClass(ClassIdentifier{Name: "A"}, nil, nil, nil, nil)
	other := NewBytecodeClass(ClassIdentifier{Name: "A"}, nil, nil, nil, nil)
	if _, err := a.NewInstance(other); err == nil {
		t.Error("expected an error when self is not identity-equal to the receiver")
	}
}

func TestNewInstanceDefaultsFields(t *testing.T) {
	a := NewBytecodeClass(
		ClassIdentifier{Name: "A"}, nil, nil,
		[]FieldDescriptor{{Name: "x", Default: IntValue(7)}},
		nil,
	)
	inst, err := a.NewInstance(a)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	bi := inst.(*BytecodeInstance)
	slot, ok := bi.FieldAt("x")
	if !ok {
		t.Fatal("expected field x")
	}
	if slot.Int != 7 {
		t.Errorf("x = %d, want 7", slot.Int)
	}
}
