package exec

import (
	"github.com/cmjava/cmjava/pkg/bytecode"
	"github.com/cmjava/cmjava/pkg/class"
	"github.com/cmjava/cmjava/pkg/cmerr"
)

// frame is one activation record (spec section 4.8): a fixed-size local
// variable array addressed by JVM slot index (a long/double occupies one
// array entry but its declared neighbor index is skipped by the caller),
// a max_stack-bounded operand stack, and a PC that indexes into the
// method's already-decoded instruction stream rather than a raw byte
// offset.
type frame struct {
	owner    class.Class
	method   *class.Method
	locals   []class.FieldValue
	stack    []class.FieldValue
	sp       int
	pc       int
	instrs   []bytecode.Instruction
	handlers []class.ExceptionHandler
}

func newFrame(owner class.Class, m *class.Method, code class.BytecodeCode, locals []class.FieldValue) *frame {
	return &frame{
		owner:    owner,
		method:   m,
		locals:   locals,
		stack:    make([]class.FieldValue, code.MaxStack),
		instrs:   code.Instructions,
		handlers: code.ExceptionTable,
	}
}

func (f *frame) push(v class.FieldValue) {
	if f.sp >= len(f.stack) {
		cmerr.Violatef("operand stack overflow in %s%s", f.method.Name, f.method.Descriptor)
	}
	f.stack[f.sp] = v
	f.sp++
}

func (f *frame) pop() class.FieldValue {
	if f.sp == 0 {
		cmerr.Violatef("operand stack underflow in %s%s", f.method.Name, f.method.Descriptor)
	}
	f.sp--
	return f.stack[f.sp]
}

func (f *frame) local(i int) class.FieldValue {
	if i < 0 || i >= len(f.locals) {
		cmerr.Violatef("local variable index %d out of range in %s%s", i, f.method.Name, f.method.Descriptor)
	}
	return f.locals[i]
}

func (f *frame) setLocal(i int, v class.FieldValue) {
	if i < 0 || i >= len(f.locals) {
		cmerr.Violatef("local variable index %d out of range in %s%s", i, f.method.Name, f.method.Descriptor)
	}
	f.locals[i] = v
}

// popArgs pops the dense call arguments for a method whose descriptor
// parameter list is paramTypes, reversing the reverse-pushed order on the
// operand stack back into declaration order. When !isStatic the receiver
// ('this') is included at index 0 (spec section 4.8's "parameter
// marshalling" algorithm).
func (f *frame) popArgs(paramTypes []string, isStatic bool) []class.FieldValue {
	n := len(paramTypes)
	if !isStatic {
		n++
	}
	args := make([]class.FieldValue, n)
	for i := len(paramTypes) - 1; i >= 0; i-- {
		idx := i
		if !isStatic {
			idx++
		}
		args[idx] = f.pop()
	}
	if !isStatic {
		args[0] = f.pop()
	}
	return args
}

// popWords pops successive operand-stack entries until their accumulated
// slot size reaches n, returning them topmost-first. This is how pop/dup/
// swap honor the long/double two-slot rule without the stack itself being
// word-addressed (spec section 4.8/9).
func popWords(f *frame, n int) []class.FieldValue {
	var vals []class.FieldValue
	total := 0
	for total < n {
		v := f.pop()
		vals = append(vals, v)
		total += v.SlotSize()
	}
	if total != n {
		cmerr.Violatef("stack word-count mismatch in %s%s: wanted %d, got %d", f.method.Name, f.method.Descriptor, n, total)
	}
	return vals
}

// pushWords pushes vals (topmost-first, as returned by popWords) back in
// their original bottom-to-top order.
func pushWords(f *frame, vals []class.FieldValue) {
	for i := len(vals) - 1; i >= 0; i-- {
		f.push(vals[i])
	}
}

// marshalLocals places dense call arguments into a slot-indexed locals
// array: 'this' (if any) at index 0, then each parameter advancing the
// slot cursor by its descriptor's slot size (spec section 4.8).
func marshalLocals(maxLocals uint16, isStatic bool, paramTypes []string, args []class.FieldValue) []class.FieldValue {
	locals := make([]class.FieldValue, maxLocals)
	idx, di := 0, 0
	if !isStatic {
		locals[0] = args[0]
		idx, di = 1, 1
	}
	for _, pt := range paramTypes {
		locals[idx] = args[di]
		idx += class.SlotSizeForDescriptor(pt)
		di++
	}
	return locals
}

// findHandler returns the handler_pc of the first exception-table row
// whose [StartPC, EndPC) covers pc and whose CatchType matches instance's
// class or one of its ancestors (nil CatchType catches everything).
func findHandler(f *frame, pc int, instance class.Instance) (int, bool) {
	for _, h := range f.handlers {
		if pc < h.StartPC || pc >= h.EndPC {
			continue
		}
		if h.CatchType == nil || isInstanceOfID(instance, *h.CatchType) {
			return h.HandlerPC, true
		}
	}
	return 0, false
}

func isInstanceOfID(instance class.Instance, id class.ClassIdentifier) bool {
	for c := instance.Class(); c != nil; c = c.SuperClass() {
		if c.ClassIdentifier() == id {
			return true
		}
	}
	return false
}

// resolveMethodUp walks c's superclass chain for the first class declaring
// name/descriptor — invokestatic and invokespecial bind here directly;
// invokevirtual starts the same walk from the receiver's runtime class.
func resolveMethodUp(c class.Class, name, descriptor string) (class.Class, *class.Method) {
	for cur := c; cur != nil; cur = cur.SuperClass() {
		if m := class.FindMethod(cur, name, descriptor); m != nil {
			return cur, m
		}
	}
	return nil, nil
}
