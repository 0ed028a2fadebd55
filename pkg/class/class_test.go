package class

import "testing"

// stubClass is a minimal Class used to test the free functions that operate
// on the Class interface without pulling in a built-in or bytecode variant.
type stubClass struct {
	id      ClassIdentifier
	methods []*Method
	statics []*Field
	super   Class
}

func (s *stubClass) ClassIdentifier() ClassIdentifier            { return s.id }
func (s *stubClass) Methods() []*Method                          { return s.methods }
func (s *stubClass) StaticFields() []*Field                      { return s.statics }
func (s *stubClass) InstanceFieldDescriptors() []FieldDescriptor { return nil }
func (s *stubClass) SuperClass() Class                           { return s.super }
func (s *stubClass) NewInstance(self Class) (Instance, error)    { return nil, nil }

func TestFindMethodDoesNotWalkSuper(t *testing.T) {
	super := &stubClass{
		id:      ClassIdentifier{Name: "A"},
		methods: []*Method{{Name: "m", Descriptor: "()V"}},
	}
	sub := &stubClass{id: ClassIdentifier{Name: "B"}, super: super}

	if FindMethod(sub, "m", "()V") != nil {
		t.Error("FindMethod should not walk the superclass chain")
	}
	if FindMethod(super, "m", "()V") == nil {
		t.Error("FindMethod should find a directly declared method")
	}
}

func TestFindMethodDescriptorMismatch(t *testing.T) {
	c := &stubClass{methods: []*Method{{Name: "m", Descriptor: "(I)V"}}}
	if FindMethod(c, "m", "()V") != nil {
		t.Error("FindMethod matched despite descriptor mismatch")
	}
}

func TestFindStaticField(t *testing.T) {
	c := &stubClass{statics: []*Field{{Name: "count", Value: IntValue(5)}}}
	f := FindStaticField(c, "count")
	if f == nil {
		t.Fatal("expected to find static field")
	}
	if f.Value.Int != 5 {
		t.Errorf("Value.Int = %d, want 5", f.Value.Int)
	}
	if FindStaticField(c, "missing") != nil {
		t.Error("expected nil for missing static field")
	}
}

func TestIdentityEqual(t *testing.T) {
	a := &stubClass{id: ClassIdentifier{Name: "A"}}
	b := &stubClass{id: ClassIdentifier{Name: "A"}}
	if !IdentityEqual(a, a) {
		t.Error("a is not identity-equal to itself")
	}
	if IdentityEqual(a, b) {
		t.Error("distinct values with equal identifiers reported identity-equal")
	}
}
