// Package builtin implements the minimum native runtime surface compiled
// Java programs expect (spec section 4.7): Object, String, Throwable and
// the runtime exception hierarchy, the console streams, System, and the
// array classes. Every built-in satisfies class.Class/class.Instance so
// the executor never distinguishes them from bytecode-loaded classes.
package builtin

import "github.com/cmjava/cmjava/pkg/class"

// ObjectClass is the root of every class hierarchy. A process has exactly
// one; it is shared by value identity.
type ObjectClass struct{}

// Object is the singleton java/lang/Object class.
var Object = &ObjectClass{}

func (c *ObjectClass) ClassIdentifier() class.ClassIdentifier {
	return class.ClassIdentifier{Package: "java/lang", Name: "Object"}
}
func (c *ObjectClass) Methods() []*class.Method                 { return objectMethods }
func (c *ObjectClass) StaticFields() []*class.Field              { return nil }
func (c *ObjectClass) InstanceFieldDescriptors() []class.FieldDescriptor { return nil }
func (c *ObjectClass) SuperClass() class.Class                  { return nil }

func (c *ObjectClass) NewInstance(self class.Class) (class.Instance, error) {
	if !class.IdentityEqual(self, c) {
		return nil, errNotSelf(c)
	}
	return &ObjectInstance{class: c}, nil
}

var objectMethods = []*class.Method{
	{
		Name:       "<init>",
		Descriptor: "()V",
		Code: class.NativeCode{Handler: func(frame class.NativeFrame) (class.NativeResult, error) {
			return class.NativeVoid(), nil
		}},
	},
}

// ObjectInstance is the instance backing every Object allocation that
// carries no payload of its own.
type ObjectInstance struct{ class *ObjectClass }

func (i *ObjectInstance) Class() class.Class { return i.class }
