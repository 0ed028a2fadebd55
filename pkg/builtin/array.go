package builtin

import (
	"fmt"

	"github.com/cmjava/cmjava/pkg/class"
)

// PrimitiveComponentDescriptors lists the eight primitive array component
// codes the heap boots array classes for (spec section 4.6): boolean,
// byte, char, double, float, int, long, short.
var PrimitiveComponentDescriptors = []string{"Z", "B", "C", "D", "F", "I", "J", "S"}

// ArrayClass is parametric over its component kind — a primitive
// descriptor code, an object descriptor ("Ljava/lang/String;"), or another
// array descriptor. Array-of-array component classes are filled in by the
// heap's FindArrayClass, which mints them recursively and caches the
// result.
type ArrayClass struct {
	identifier class.ClassIdentifier
	component  string      // descriptor of the immediate component
	compClass  class.Class // non-nil when component is a reference/array type
}

// NewArrayClass builds the array class for component (a field-type
// descriptor token), whose component class (nil for primitives) is
// compClass.
func NewArrayClass(component string, compClass class.Class) *ArrayClass {
	return &ArrayClass{
		identifier: class.ClassIdentifier{Name: "[" + component},
		component:  component,
		compClass:  compClass,
	}
}

func (c *ArrayClass) ClassIdentifier() class.ClassIdentifier { return c.identifier }
func (c *ArrayClass) Methods() []*class.Method                 { return nil }
func (c *ArrayClass) StaticFields() []*class.Field              { return nil }
func (c *ArrayClass) InstanceFieldDescriptors() []class.FieldDescriptor { return nil }
func (c *ArrayClass) SuperClass() class.Class                  { return Object }
func (c *ArrayClass) ComponentDescriptor() string              { return c.component }
func (c *ArrayClass) ComponentClass() class.Class               { return c.compClass }

// NewInstance allocates a zero-length array. The executor always uses
// NewArrayInstance directly (it knows the requested length); this exists
// only to satisfy class.Class.
func (c *ArrayClass) NewInstance(self class.Class) (class.Instance, error) {
	if !class.IdentityEqual(self, c) {
		return nil, errNotSelf(c)
	}
	return NewArrayInstance(c, 0), nil
}

// ArrayInstance is the capability set the executor's array opcodes
// (arraylength/<t>aload/<t>astore) need, independent of component kind.
type ArrayInstance interface {
	class.Instance
	Length() int
	Get(i int) (class.FieldValue, error)
	Set(i int, v class.FieldValue) error
}

type arrayInstance struct {
	class  *ArrayClass
	values []class.FieldValue
}

// NewArrayInstance allocates a fresh array of length, each slot defaulted
// per the component descriptor.
func NewArrayInstance(c *ArrayClass, length int) ArrayInstance {
	values := make([]class.FieldValue, length)
	def := class.DefaultValueForDescriptor(c.component)
	for i := range values {
		values[i] = def
	}
	return &arrayInstance{class: c, values: values}
}

func (a *arrayInstance) Class() class.Class { return a.class }
func (a *arrayInstance) Length() int        { return len(a.values) }

func (a *arrayInstance) Get(i int) (class.FieldValue, error) {
	if i < 0 || i >= len(a.values) {
		return class.FieldValue{}, &IndexOutOfBoundsError{Length: len(a.values), Index: i}
	}
	return a.values[i], nil
}

func (a *arrayInstance) Set(i int, v class.FieldValue) error {
	if i < 0 || i >= len(a.values) {
		return &IndexOutOfBoundsError{Length: len(a.values), Index: i}
	}
	a.values[i] = v
	return nil
}

// IndexOutOfBoundsError is returned by ArrayInstance.Get/Set on an
// out-of-range index. The executor converts it into a thrown
// ArrayIndexOutOfBoundsException carrying the same {length, index} pair
// (spec section 4.7).
type IndexOutOfBoundsError struct {
	Length, Index int
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("index %d out of bounds for length %d", e.Index, e.Length)
}
