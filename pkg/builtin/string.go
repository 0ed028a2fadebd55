package builtin

import "github.com/cmjava/cmjava/pkg/class"

// StringClass is the singleton java/lang/String class. It declares zero
// bytecode-callable methods in the minimum runtime surface; string
// instances are materialized directly by the heap (NewString), not by a
// no-arg NewInstance.
type StringClass struct{}

var String = &StringClass{}

func (c *StringClass) ClassIdentifier() class.ClassIdentifier {
	return class.ClassIdentifier{Package: "java/lang", Name: "String"}
}
func (c *StringClass) Methods() []*class.Method                 { return nil }
func (c *StringClass) StaticFields() []*class.Field              { return nil }
func (c *StringClass) InstanceFieldDescriptors() []class.FieldDescriptor { return nil }
func (c *StringClass) SuperClass() class.Class                  { return Object }

func (c *StringClass) NewInstance(self class.Class) (class.Instance, error) {
	if !class.IdentityEqual(self, c) {
		return nil, errNotSelf(c)
	}
	return NewStringInstance(""), nil
}

// StringInstance carries its payload directly as a Go string rather than
// through the generic instance-field mechanism.
type StringInstance struct {
	parent class.Instance
	value  string
}

// NewStringInstance builds a String instance wrapping value.
func NewStringInstance(value string) *StringInstance {
	parent, err := Object.NewInstance(Object)
	if err != nil {
		panic(err) // Object.NewInstance never fails
	}
	return &StringInstance{parent: parent, value: value}
}

func (i *StringInstance) Class() class.Class { return String }
func (i *StringInstance) Value() string      { return i.value }
