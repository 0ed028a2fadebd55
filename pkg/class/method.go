package class

import (
	"github.com/cmjava/cmjava/pkg/bytecode"
)

// Method is { name, parameter-types, optional return-type, is_static, code }
// per spec section 3. ParamTypes and ReturnType are descriptor tokens
// ("I", "Ljava/lang/String;", "[I", ...); ReturnType is "" for void.
type Method struct {
	Name       string
	Descriptor string
	ParamTypes []string
	ReturnType string
	IsStatic   bool
	Code       MethodCode
}

// MethodCode is either a decoded bytecode stream or a native handler.
type MethodCode interface{ isMethodCode() }

// ExceptionHandler is one exception-table row with its CatchType already
// resolved to a class identifier (nil means catch-all), so the executor
// never needs the constant pool at unwind time.
type ExceptionHandler struct {
	StartPC, EndPC, HandlerPC int
	CatchType                 *ClassIdentifier
}

// BytecodeCode is a method's decoded Code attribute: the bounds the
// executor sizes its frame to, the typed instruction stream, and the
// exception table.
type BytecodeCode struct {
	MaxStack       uint16
	MaxLocals      uint16
	Instructions   []bytecode.Instruction
	ExceptionTable []ExceptionHandler
}

func (BytecodeCode) isMethodCode() {}

// NativeResult is what a native handler returns: either nothing (void) or
// a single FieldValue.
type NativeResult struct {
	HasValue bool
	Value    FieldValue
}

func NativeVoid() NativeResult                { return NativeResult{} }
func NativeReturn(v FieldValue) NativeResult { return NativeResult{HasValue: true, Value: v} }

// NativeFrame is the capability set a native method handler needs from the
// executor: its own arguments and a handle back to the heap for allocating
// results. Defined here (not in the executor package) so built-in classes
// never import the executor — only the executor imports built-ins.
type NativeFrame interface {
	Arg(i int) FieldValue
	NumArgs() int
	Heap() Heap
	// Throw raises a user-level exception from native code; the executor
	// unwinds exactly as it would for a bytecode athrow.
	Throw(instance Instance) error
}

// Heap is the subset of the class registry's capabilities a native
// built-in or the executor needs. Implemented by package heap.
type Heap interface {
	FindClass(id ClassIdentifier) (Class, bool)
	FindArrayClass(componentDescriptor string, dimensions int) (Class, error)
	NewInstance(id ClassIdentifier) (Instance, error)
	NewString(s string) Instance
	StringValue(i Instance) (string, bool)
}

// NativeCode wraps a Go function implementing a native method.
type NativeCode struct {
	Handler func(frame NativeFrame) (NativeResult, error)
}

func (NativeCode) isMethodCode() {}
