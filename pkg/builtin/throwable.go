package builtin

import (
	"fmt"

	"github.com/cmjava/cmjava/pkg/class"
	"github.com/cmjava/cmjava/pkg/cmerr"
)

// ThrowableClass backs java/lang/Throwable and every runtime exception
// class derived from it: each gets its own identifier and its own
// singleton, but they all share the same <init>(String)/getMessage()
// native handlers and the same ThrowableInstance shape.
type ThrowableClass struct {
	identifier class.ClassIdentifier
	super      class.Class
}

// Throwable is the singleton java/lang/Throwable class.
var Throwable = newThrowableClass("java/lang", "Throwable", Object)

func newThrowableClass(pkg, name string, super class.Class) *ThrowableClass {
	return &ThrowableClass{
		identifier: class.ClassIdentifier{Package: pkg, Name: name},
		super:      super,
	}
}

func (c *ThrowableClass) ClassIdentifier() class.ClassIdentifier { return c.identifier }
func (c *ThrowableClass) Methods() []*class.Method               { return throwableMethods }
func (c *ThrowableClass) StaticFields() []*class.Field            { return nil }
func (c *ThrowableClass) InstanceFieldDescriptors() []class.FieldDescriptor { return nil }
func (c *ThrowableClass) SuperClass() class.Class                { return c.super }

func (c *ThrowableClass) NewInstance(self class.Class) (class.Instance, error) {
	if !class.IdentityEqual(self, c) {
		return nil, errNotSelf(c)
	}
	parent, err := c.super.NewInstance(c.super)
	if err != nil {
		return nil, err
	}
	return &ThrowableInstance{class: c, parent: parent}, nil
}

var throwableMethods = []*class.Method{
	{
		Name:       "<init>",
		Descriptor: "(Ljava/lang/String;)V",
		ParamTypes: []string{"Ljava/lang/String;"},
		Code:       class.NativeCode{Handler: throwableInit},
	},
	{
		Name:       "getMessage",
		Descriptor: "()Ljava/lang/String;",
		ReturnType: "Ljava/lang/String;",
		Code:       class.NativeCode{Handler: throwableGetMessage},
	},
}

func throwableInit(frame class.NativeFrame) (class.NativeResult, error) {
	ti, ok := frame.Arg(0).Ref.(*ThrowableInstance)
	if !ok {
		return class.NativeResult{}, fmt.Errorf("Throwable.<init>: receiver is not a ThrowableInstance")
	}
	if ti.hasMessage {
		cmerr.Violate("Throwable.<init> called twice on the same instance: the message cell is write-once")
	}
	msgArg := frame.Arg(1)
	if !msgArg.IsNull() {
		if s, ok := frame.Heap().StringValue(msgArg.Ref); ok {
			ti.message = s
		}
	}
	ti.hasMessage = true
	return class.NativeVoid(), nil
}

func throwableGetMessage(frame class.NativeFrame) (class.NativeResult, error) {
	ti, ok := frame.Arg(0).Ref.(*ThrowableInstance)
	if !ok {
		return class.NativeResult{}, fmt.Errorf("Throwable.getMessage: receiver is not a ThrowableInstance")
	}
	if !ti.hasMessage {
		return class.NativeReturn(class.NullValue()), nil
	}
	return class.NativeReturn(class.RefValue(frame.Heap().NewString(ti.message))), nil
}

// ThrowableInstance backs Throwable and every runtime exception subclass.
// The message cell is write-once, matching spec section 5.
type ThrowableInstance struct {
	class      *ThrowableClass
	parent     class.Instance
	message    string
	hasMessage bool
}

func (i *ThrowableInstance) Class() class.Class  { return i.class }
func (i *ThrowableInstance) Message() (string, bool) { return i.message, i.hasMessage }

// NewThrowableInstance allocates an exception instance directly, bypassing
// <init>, with message already set. Used by the executor/heap to raise a
// runtime exception (e.g. NullPointerException) without a bytecode `new` +
// `invokespecial` sequence.
func NewThrowableInstance(c *ThrowableClass, message string) *ThrowableInstance {
	parent, err := c.super.NewInstance(c.super)
	if err != nil {
		panic(err)
	}
	return &ThrowableInstance{class: c, parent: parent, message: message, hasMessage: true}
}

// The runtime exception classes supplementing Throwable, per spec section 8
// scenarios (uncaught exception) and the opcodes that can raise them
// (idiv/irem, iaload/iastore family, checkcast, newarray, getfield/putfield
// on a null receiver).
var (
	NullPointerException          = newThrowableClass("java/lang", "NullPointerException", Throwable)
	ArrayIndexOutOfBoundsException = newThrowableClass("java/lang", "ArrayIndexOutOfBoundsException", Throwable)
	ArithmeticException           = newThrowableClass("java/lang", "ArithmeticException", Throwable)
	ClassCastException            = newThrowableClass("java/lang", "ClassCastException", Throwable)
	NegativeArraySizeException    = newThrowableClass("java/lang", "NegativeArraySizeException", Throwable)
	StackOverflowError            = newThrowableClass("java/lang", "StackOverflowError", Throwable)
)
