package class

import "fmt"

// FieldDescriptor is a template for an instance field: its name and the
// default value new instances start with.
type FieldDescriptor struct {
	Name    string
	Default FieldValue
}

// Class is the capability set every class variant satisfies, whether
// bytecode-loaded or a built-in library class (spec section 3). The
// executor holds shared references to this interface and never
// distinguishes variants except inside native handlers that know their
// receiver's concrete form.
type Class interface {
	ClassIdentifier() ClassIdentifier
	Methods() []*Method
	StaticFields() []*Field
	InstanceFieldDescriptors() []FieldDescriptor
	SuperClass() Class

	// NewInstance allocates a fresh instance of this class. self must be
	// identity-equal to the receiver — the caller hands the class its own
	// shared reference back so the new instance can point to it without
	// the class exposing a raw self-pointer.
	NewInstance(self Class) (Instance, error)
}

// Instance is the capability set every instance variant satisfies.
type Instance interface {
	Class() Class
}

// FindMethod returns the first method matching name and descriptor
// declared directly on c (no superclass walk — that's invokevirtual's job).
func FindMethod(c Class, name, descriptor string) *Method {
	for _, m := range c.Methods() {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// FindStaticField returns the named static field declared directly on c.
func FindStaticField(c Class, name string) *Field {
	for _, f := range c.StaticFields() {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// IdentityEqual reports whether two Class handles refer to the same
// underlying class. Built-ins are singletons; bytecode classes are
// pointer-identical once loaded into the heap.
func IdentityEqual(a, b Class) bool {
	return a == b
}

// errNotSelf is returned by NewInstance implementations when the caller's
// self argument isn't identity-equal to the receiver.
func errNotSelf(c Class) error {
	return fmt.Errorf("NewInstance: self must be identity-equal to %s", c.ClassIdentifier())
}
