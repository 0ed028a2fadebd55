package builtin

import (
	"fmt"
	"os"

	"github.com/cmjava/cmjava/pkg/class"
)

// SystemClass is the singleton java/lang/System class: two static
// reference fields, out and in, plus the static exit(int) method.
type SystemClass struct {
	statics []*class.Field
}

// System is built once at heap initialization by NewSystemClass, which
// needs the configured stdout/stdin before the static fields can be
// populated.
var System *SystemClass

// NewSystemClass builds the System class with out/in bound to the given
// streams. Called exactly once, by the heap, during boot.
func NewSystemClass(stdout *PrintStreamInstance, stdin *InputStreamInstance) *SystemClass {
	c := &SystemClass{
		statics: []*class.Field{
			{Name: "out", Value: class.RefValue(stdout)},
			{Name: "in", Value: class.RefValue(stdin)},
		},
	}
	System = c
	return c
}

func (c *SystemClass) ClassIdentifier() class.ClassIdentifier {
	return class.ClassIdentifier{Package: "java/lang", Name: "System"}
}
func (c *SystemClass) Methods() []*class.Method                 { return systemMethods }
func (c *SystemClass) StaticFields() []*class.Field              { return c.statics }
func (c *SystemClass) InstanceFieldDescriptors() []class.FieldDescriptor { return nil }
func (c *SystemClass) SuperClass() class.Class                  { return Object }

func (c *SystemClass) NewInstance(self class.Class) (class.Instance, error) {
	return nil, fmt.Errorf("System cannot be instantiated")
}

var systemMethods = []*class.Method{
	{
		Name:       "exit",
		Descriptor: "(I)V",
		ParamTypes: []string{"I"},
		IsStatic:   true,
		Code: class.NativeCode{Handler: func(frame class.NativeFrame) (class.NativeResult, error) {
			os.Exit(int(frame.Arg(0).Int))
			return class.NativeVoid(), nil
		}},
	},
}
