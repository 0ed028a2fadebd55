// Package exec implements the executor (spec section 4.8): it drives one
// method's bytecode at a time, dispatches invokevirtual/invokespecial/
// invokestatic by the rules the spec lays out, and unwinds through
// exception tables on a thrown instance instead of Go panics. Grounded on
// daimatz-gojvm's pkg/vm — this package keeps that VM's frame/dispatch
// shape but replaces its JDK-sized native surface with cmjava's minimum
// built-in set and its byte-offset PC with a decoded-instruction-index
// PC (spec section 4.8/9).
package exec

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/cmjava/cmjava/internal/tracelog"
	"github.com/cmjava/cmjava/pkg/builtin"
	"github.com/cmjava/cmjava/pkg/bytecode"
	"github.com/cmjava/cmjava/pkg/class"
	"github.com/cmjava/cmjava/pkg/classfile"
	"github.com/cmjava/cmjava/pkg/cmerr"
	"github.com/cmjava/cmjava/pkg/heap"
)

// maxFrameDepth bounds the executor's own call stack; exceeding it raises
// a catchable StackOverflowError rather than exhausting the Go stack.
// Grounded on daimatz-gojvm's VM.maxFrameDepth.
const maxFrameDepth = 1024

// Executor runs loaded classes' bytecode against one heap.
type Executor struct {
	heap   *heap.Heap
	frames []*frame
}

// New builds an Executor over h.
func New(h *heap.Heap) *Executor {
	return &Executor{heap: h}
}

// stepResult is what one decoded instruction produces: either nothing (the
// loop advances pc and continues), or a method return.
type stepResult struct {
	isReturn bool
	value    class.FieldValue
}

// Run locates entry's main(String[]) method, builds the argument array
// from args, and runs it to completion. A return value of non-nil means
// either an interpreter-level error or (if asThrown succeeds on it) an
// uncaught Java exception — Run has already printed the uncaught-exception
// diagnostic to stderr in that case.
func (ex *Executor) Run(entry class.Class, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if iv, ok := r.(*cmerr.InvariantViolation); ok {
				err = iv
				return
			}
			panic(r)
		}
	}()

	main := class.FindMethod(entry, "main", "([Ljava/lang/String;)V")
	if main == nil {
		return cmerr.Link("locating entry point", fmt.Errorf("%s has no main([Ljava/lang/String;)V method", entry.ClassIdentifier()))
	}
	argv := class.RefValue(ex.buildStringArray(args))
	_, callErr := ex.invoke(entry, main, []class.FieldValue{argv})
	if callErr == nil {
		return nil
	}
	if ts, ok := asThrown(callErr); ok {
		fmt.Fprintf(os.Stderr, "Uncaught exception: instance of Class '%s'\n", ts.instance.Class().ClassIdentifier())
		if msg, ok := throwableMessage(ts.instance); ok && msg != "" {
			fmt.Fprintf(os.Stderr, "  message: %s\n", msg)
		}
		return callErr
	}
	return callErr
}

func throwableMessage(instance class.Instance) (string, bool) {
	ti, ok := instance.(*builtin.ThrowableInstance)
	if !ok {
		return "", false
	}
	return ti.Message()
}

func (ex *Executor) buildStringArray(args []string) class.Instance {
	arrClassI, err := ex.heap.FindArrayClass("Ljava/lang/String;", 1)
	if err != nil {
		cmerr.Violatef("building argument array: %v", err)
	}
	arrClass := arrClassI.(*builtin.ArrayClass)
	arr := builtin.NewArrayInstance(arrClass, len(args))
	for i, a := range args {
		if err := arr.Set(i, class.RefValue(ex.heap.NewString(a))); err != nil {
			cmerr.Violatef("building argument array: %v", err)
		}
	}
	return arr
}

// invoke runs one method call to completion, dispatching to either a
// native handler or the bytecode interpreter loop.
func (ex *Executor) invoke(owner class.Class, m *class.Method, args []class.FieldValue) (class.FieldValue, error) {
	switch code := m.Code.(type) {
	case class.NativeCode:
		na := &nativeFrameAdapter{args: args, heap: ex.heap}
		res, err := code.Handler(na)
		if err != nil {
			return class.FieldValue{}, err
		}
		if res.HasValue {
			return res.Value, nil
		}
		return class.FieldValue{}, nil
	case class.BytecodeCode:
		return ex.invokeBytecode(owner, m, code, args)
	default:
		cmerr.Violatef("method %s%s has no code", m.Name, m.Descriptor)
		panic("unreachable")
	}
}

func (ex *Executor) raise(c *builtin.ThrowableClass, message string) error {
	return &thrownSignal{instance: ex.heap.NewException(c, message)}
}

func (ex *Executor) invokeBytecode(owner class.Class, m *class.Method, code class.BytecodeCode, args []class.FieldValue) (class.FieldValue, error) {
	if len(ex.frames) >= maxFrameDepth {
		return class.FieldValue{}, ex.raise(builtin.StackOverflowError, "")
	}

	locals := marshalLocals(code.MaxLocals, m.IsStatic, m.ParamTypes, args)
	f := newFrame(owner, m, code, locals)
	ex.frames = append(ex.frames, f)
	defer func() { ex.frames = ex.frames[:len(ex.frames)-1] }()

	tracelog.Debugf("invoke %s.%s%s", owner.ClassIdentifier(), m.Name, m.Descriptor)
	defer tracelog.Debugf("leave %s.%s%s", owner.ClassIdentifier(), m.Name, m.Descriptor)

	for f.pc < len(f.instrs) {
		instr := f.instrs[f.pc]
		tracelog.Debugf("  pc %d: op %d", f.pc, instr.Op)
		res, err := ex.step(f, instr)
		if err != nil {
			ts, ok := asThrown(err)
			if !ok {
				return class.FieldValue{}, err
			}
			handlerPC, found := findHandler(f, f.pc, ts.instance)
			if !found {
				return class.FieldValue{}, err
			}
			f.sp = 0
			f.push(class.RefValue(ts.instance))
			f.pc = handlerPC
			continue
		}
		if res.isReturn {
			return res.value, nil
		}
	}
	return class.FieldValue{}, nil
}

// step executes one instruction. Control-flow opcodes (branches, goto)
// set f.pc themselves and set branched; everything else falls through to
// the trailing f.pc++ .
func (ex *Executor) step(f *frame, instr bytecode.Instruction) (stepResult, error) {
	branched := false

	switch instr.Op {
	case bytecode.OpAconstNull:
		f.push(class.NullValue())
	case bytecode.OpIconstM1:
		f.push(class.IntValue(-1))
	case bytecode.OpIconst0, bytecode.OpIconst1, bytecode.OpIconst2,
		bytecode.OpIconst3, bytecode.OpIconst4, bytecode.OpIconst5:
		f.push(class.IntValue(int32(instr.Op - bytecode.OpIconst0)))
	case bytecode.OpBipush, bytecode.OpSipush:
		f.push(class.IntValue(instr.IntOperand))
	case bytecode.OpLconst0:
		f.push(class.LongValue(0))
	case bytecode.OpLconst1:
		f.push(class.LongValue(1))
	case bytecode.OpFconst0:
		f.push(class.FloatValue(0))
	case bytecode.OpFconst1:
		f.push(class.FloatValue(1))
	case bytecode.OpFconst2:
		f.push(class.FloatValue(2))
	case bytecode.OpDconst0:
		f.push(class.DoubleValue(0))
	case bytecode.OpDconst1:
		f.push(class.DoubleValue(1))
	case bytecode.OpLdc, bytecode.OpLdc2W:
		v, err := ex.ldcValue(instr.CPEntry)
		if err != nil {
			return stepResult{}, err
		}
		f.push(v)

	case bytecode.OpIload, bytecode.OpLload, bytecode.OpFload, bytecode.OpDload, bytecode.OpAload:
		f.push(f.local(instr.VarIndex))
	case bytecode.OpIstore, bytecode.OpLstore, bytecode.OpFstore, bytecode.OpDstore, bytecode.OpAstore:
		f.setLocal(instr.VarIndex, f.pop())

	case bytecode.OpPop:
		popWords(f, 1)
	case bytecode.OpPop2:
		popWords(f, 2)
	case bytecode.OpDup:
		v := popWords(f, 1)
		pushWords(f, v)
		pushWords(f, v)
	case bytecode.OpDupX1:
		top := popWords(f, 1)
		below := popWords(f, 1)
		pushWords(f, top)
		pushWords(f, below)
		pushWords(f, top)
	case bytecode.OpDupX2:
		top := popWords(f, 1)
		below := popWords(f, 2)
		pushWords(f, top)
		pushWords(f, below)
		pushWords(f, top)
	case bytecode.OpDup2:
		top := popWords(f, 2)
		pushWords(f, top)
		pushWords(f, top)
	case bytecode.OpDup2X1:
		top := popWords(f, 2)
		below := popWords(f, 1)
		pushWords(f, top)
		pushWords(f, below)
		pushWords(f, top)
	case bytecode.OpDup2X2:
		top := popWords(f, 2)
		below := popWords(f, 2)
		pushWords(f, top)
		pushWords(f, below)
		pushWords(f, top)
	case bytecode.OpSwap:
		top := popWords(f, 1)
		below := popWords(f, 1)
		pushWords(f, top)
		pushWords(f, below)

	case bytecode.OpIadd:
		b, a := f.pop().Int, f.pop().Int
		f.push(class.IntValue(a + b))
	case bytecode.OpIsub:
		b, a := f.pop().Int, f.pop().Int
		f.push(class.IntValue(a - b))
	case bytecode.OpImul:
		b, a := f.pop().Int, f.pop().Int
		f.push(class.IntValue(a * b))
	case bytecode.OpIdiv:
		b, a := f.pop().Int, f.pop().Int
		if b == 0 {
			return stepResult{}, ex.raise(builtin.ArithmeticException, "/ by zero")
		}
		f.push(class.IntValue(a / b))
	case bytecode.OpIrem:
		b, a := f.pop().Int, f.pop().Int
		if b == 0 {
			return stepResult{}, ex.raise(builtin.ArithmeticException, "/ by zero")
		}
		f.push(class.IntValue(a % b))
	case bytecode.OpIneg:
		f.push(class.IntValue(-f.pop().Int))
	case bytecode.OpIshl:
		b, a := f.pop().Int, f.pop().Int
		f.push(class.IntValue(a << (uint32(b) & 0x1F)))
	case bytecode.OpIshr:
		b, a := f.pop().Int, f.pop().Int
		f.push(class.IntValue(a >> (uint32(b) & 0x1F)))
	case bytecode.OpIushr:
		b, a := f.pop().Int, f.pop().Int
		f.push(class.IntValue(int32(uint32(a) >> (uint32(b) & 0x1F))))
	case bytecode.OpIand:
		b, a := f.pop().Int, f.pop().Int
		f.push(class.IntValue(a & b))
	case bytecode.OpIor:
		b, a := f.pop().Int, f.pop().Int
		f.push(class.IntValue(a | b))
	case bytecode.OpIxor:
		b, a := f.pop().Int, f.pop().Int
		f.push(class.IntValue(a ^ b))
	case bytecode.OpIinc:
		v := f.local(instr.VarIndex)
		f.setLocal(instr.VarIndex, class.IntValue(v.Int+instr.IntOperand))

	case bytecode.OpLadd:
		b, a := f.pop().Long, f.pop().Long
		f.push(class.LongValue(a + b))
	case bytecode.OpLsub:
		b, a := f.pop().Long, f.pop().Long
		f.push(class.LongValue(a - b))
	case bytecode.OpLmul:
		b, a := f.pop().Long, f.pop().Long
		f.push(class.LongValue(a * b))
	case bytecode.OpLdiv:
		b, a := f.pop().Long, f.pop().Long
		if b == 0 {
			return stepResult{}, ex.raise(builtin.ArithmeticException, "/ by zero")
		}
		f.push(class.LongValue(a / b))
	case bytecode.OpLrem:
		b, a := f.pop().Long, f.pop().Long
		if b == 0 {
			return stepResult{}, ex.raise(builtin.ArithmeticException, "/ by zero")
		}
		f.push(class.LongValue(a % b))
	case bytecode.OpLneg:
		f.push(class.LongValue(-f.pop().Long))
	case bytecode.OpLshl:
		b, a := f.pop().Int, f.pop().Long
		f.push(class.LongValue(a << (uint32(b) & 0x3F)))
	case bytecode.OpLshr:
		b, a := f.pop().Int, f.pop().Long
		f.push(class.LongValue(a >> (uint32(b) & 0x3F)))
	case bytecode.OpLushr:
		b, a := f.pop().Int, f.pop().Long
		f.push(class.LongValue(int64(uint64(a) >> (uint32(b) & 0x3F))))
	case bytecode.OpLand:
		b, a := f.pop().Long, f.pop().Long
		f.push(class.LongValue(a & b))
	case bytecode.OpLor:
		b, a := f.pop().Long, f.pop().Long
		f.push(class.LongValue(a | b))
	case bytecode.OpLxor:
		b, a := f.pop().Long, f.pop().Long
		f.push(class.LongValue(a ^ b))

	case bytecode.OpFadd:
		b, a := f.pop().Float32, f.pop().Float32
		f.push(class.FloatValue(a + b))
	case bytecode.OpFsub:
		b, a := f.pop().Float32, f.pop().Float32
		f.push(class.FloatValue(a - b))
	case bytecode.OpFmul:
		b, a := f.pop().Float32, f.pop().Float32
		f.push(class.FloatValue(a * b))
	case bytecode.OpFdiv:
		b, a := f.pop().Float32, f.pop().Float32
		f.push(class.FloatValue(a / b))
	case bytecode.OpFrem:
		b, a := f.pop().Float32, f.pop().Float32
		f.push(class.FloatValue(float32(math.Mod(float64(a), float64(b)))))
	case bytecode.OpFneg:
		f.push(class.FloatValue(-f.pop().Float32))

	case bytecode.OpDadd:
		b, a := f.pop().Float64, f.pop().Float64
		f.push(class.DoubleValue(a + b))
	case bytecode.OpDsub:
		b, a := f.pop().Float64, f.pop().Float64
		f.push(class.DoubleValue(a - b))
	case bytecode.OpDmul:
		b, a := f.pop().Float64, f.pop().Float64
		f.push(class.DoubleValue(a * b))
	case bytecode.OpDdiv:
		b, a := f.pop().Float64, f.pop().Float64
		f.push(class.DoubleValue(a / b))
	case bytecode.OpDrem:
		b, a := f.pop().Float64, f.pop().Float64
		f.push(class.DoubleValue(math.Mod(a, b)))
	case bytecode.OpDneg:
		f.push(class.DoubleValue(-f.pop().Float64))

	case bytecode.OpI2l:
		f.push(class.LongValue(int64(f.pop().Int)))
	case bytecode.OpI2f:
		f.push(class.FloatValue(float32(f.pop().Int)))
	case bytecode.OpI2d:
		f.push(class.DoubleValue(float64(f.pop().Int)))
	case bytecode.OpL2i:
		f.push(class.IntValue(int32(f.pop().Long)))
	case bytecode.OpL2f:
		f.push(class.FloatValue(float32(f.pop().Long)))
	case bytecode.OpL2d:
		f.push(class.DoubleValue(float64(f.pop().Long)))
	case bytecode.OpF2i:
		f.push(class.IntValue(javaToInt(float64(f.pop().Float32))))
	case bytecode.OpF2l:
		f.push(class.LongValue(javaToLong(float64(f.pop().Float32))))
	case bytecode.OpF2d:
		f.push(class.DoubleValue(float64(f.pop().Float32)))
	case bytecode.OpD2i:
		f.push(class.IntValue(javaToInt(f.pop().Float64)))
	case bytecode.OpD2l:
		f.push(class.LongValue(javaToLong(f.pop().Float64)))
	case bytecode.OpD2f:
		f.push(class.FloatValue(float32(f.pop().Float64)))
	case bytecode.OpI2b:
		f.push(class.ByteValue(int32(int8(f.pop().Int))))
	case bytecode.OpI2c:
		f.push(class.CharValue(f.pop().Int & 0xFFFF))
	case bytecode.OpI2s:
		f.push(class.ShortValue(int32(int16(f.pop().Int))))

	case bytecode.OpLcmp:
		b, a := f.pop().Long, f.pop().Long
		f.push(class.IntValue(cmpOrdered(a, b)))
	case bytecode.OpFcmpl:
		b, a := f.pop().Float32, f.pop().Float32
		f.push(class.IntValue(cmpFloat(float64(a), float64(b), -1)))
	case bytecode.OpFcmpg:
		b, a := f.pop().Float32, f.pop().Float32
		f.push(class.IntValue(cmpFloat(float64(a), float64(b), 1)))
	case bytecode.OpDcmpl:
		b, a := f.pop().Float64, f.pop().Float64
		f.push(class.IntValue(cmpFloat(a, b, -1)))
	case bytecode.OpDcmpg:
		b, a := f.pop().Float64, f.pop().Float64
		f.push(class.IntValue(cmpFloat(a, b, 1)))

	case bytecode.OpIfeq:
		if f.pop().Int == 0 {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfne:
		if f.pop().Int != 0 {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIflt:
		if f.pop().Int < 0 {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfge:
		if f.pop().Int >= 0 {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfgt:
		if f.pop().Int > 0 {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfle:
		if f.pop().Int <= 0 {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfIcmpeq:
		b, a := f.pop().Int, f.pop().Int
		if a == b {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfIcmpne:
		b, a := f.pop().Int, f.pop().Int
		if a != b {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfIcmplt:
		b, a := f.pop().Int, f.pop().Int
		if a < b {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfIcmpge:
		b, a := f.pop().Int, f.pop().Int
		if a >= b {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfIcmpgt:
		b, a := f.pop().Int, f.pop().Int
		if a > b {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfIcmple:
		b, a := f.pop().Int, f.pop().Int
		if a <= b {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfAcmpeq:
		b, a := f.pop().Ref, f.pop().Ref
		if a == b {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfAcmpne:
		b, a := f.pop().Ref, f.pop().Ref
		if a != b {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfnull:
		if f.pop().IsNull() {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpIfnonnull:
		if !f.pop().IsNull() {
			f.pc, branched = instr.BranchTarget, true
		}
	case bytecode.OpGoto:
		f.pc, branched = instr.BranchTarget, true

	case bytecode.OpIreturn, bytecode.OpLreturn, bytecode.OpFreturn, bytecode.OpDreturn, bytecode.OpAreturn:
		return stepResult{isReturn: true, value: f.pop()}, nil
	case bytecode.OpReturn:
		return stepResult{isReturn: true}, nil

	case bytecode.OpGetstatic:
		fr := instr.CPEntry.(classfile.CPFieldRef)
		c, ok := ex.heap.FindClass(class.ParseClassIdentifier(fr.Class))
		if !ok {
			cmerr.Violatef("getstatic: class %s not found", fr.Class)
		}
		sf := class.FindStaticField(c, fr.Name)
		if sf == nil {
			cmerr.Violatef("getstatic: %s has no static field %s", fr.Class, fr.Name)
		}
		f.push(sf.Value)
	case bytecode.OpPutstatic:
		fr := instr.CPEntry.(classfile.CPFieldRef)
		v := f.pop()
		c, ok := ex.heap.FindClass(class.ParseClassIdentifier(fr.Class))
		if !ok {
			cmerr.Violatef("putstatic: class %s not found", fr.Class)
		}
		sf := class.FindStaticField(c, fr.Name)
		if sf == nil {
			cmerr.Violatef("putstatic: %s has no static field %s", fr.Class, fr.Name)
		}
		sf.Value = v
	case bytecode.OpGetfield:
		fr := instr.CPEntry.(classfile.CPFieldRef)
		obj := f.pop()
		if obj.IsNull() {
			return stepResult{}, ex.raise(builtin.NullPointerException, "")
		}
		id := class.ParseClassIdentifier(fr.Class)
		bi, ok := class.InstanceAtClass(obj.Ref, id)
		if !ok {
			cmerr.Violatef("getfield: %s has no field level for %s", obj.Ref.Class().ClassIdentifier(), id)
		}
		slot, ok := bi.FieldAt(fr.Name)
		if !ok {
			cmerr.Violatef("getfield: %s has no field %s", id, fr.Name)
		}
		f.push(*slot)
	case bytecode.OpPutfield:
		fr := instr.CPEntry.(classfile.CPFieldRef)
		value := f.pop()
		obj := f.pop()
		if obj.IsNull() {
			return stepResult{}, ex.raise(builtin.NullPointerException, "")
		}
		id := class.ParseClassIdentifier(fr.Class)
		bi, ok := class.InstanceAtClass(obj.Ref, id)
		if !ok {
			cmerr.Violatef("putfield: %s has no field level for %s", obj.Ref.Class().ClassIdentifier(), id)
		}
		slot, ok := bi.FieldAt(fr.Name)
		if !ok {
			cmerr.Violatef("putfield: %s has no field %s", id, fr.Name)
		}
		*slot = value

	case bytecode.OpInvokestatic:
		mr := instr.CPEntry.(classfile.CPMethodRef)
		id := class.ParseClassIdentifier(mr.Class)
		c, ok := ex.heap.FindClass(id)
		if !ok {
			cmerr.Violatef("invokestatic: class %s not found", id)
		}
		owner, m := resolveMethodUp(c, mr.Name, mr.Descriptor)
		if m == nil {
			cmerr.Violatef("invokestatic: %s.%s%s not found", id, mr.Name, mr.Descriptor)
		}
		args := f.popArgs(m.ParamTypes, true)
		v, err := ex.invoke(owner, m, args)
		if err != nil {
			return stepResult{}, err
		}
		if m.ReturnType != "" {
			f.push(v)
		}
	case bytecode.OpInvokespecial:
		mr := instr.CPEntry.(classfile.CPMethodRef)
		id := class.ParseClassIdentifier(mr.Class)
		c, ok := ex.heap.FindClass(id)
		if !ok {
			cmerr.Violatef("invokespecial: class %s not found", id)
		}
		owner, m := resolveMethodUp(c, mr.Name, mr.Descriptor)
		if m == nil {
			cmerr.Violatef("invokespecial: %s.%s%s not found", id, mr.Name, mr.Descriptor)
		}
		args := f.popArgs(m.ParamTypes, false)
		if args[0].IsNull() {
			return stepResult{}, ex.raise(builtin.NullPointerException, "")
		}
		v, err := ex.invoke(owner, m, args)
		if err != nil {
			return stepResult{}, err
		}
		if m.ReturnType != "" {
			f.push(v)
		}
	case bytecode.OpInvokevirtual:
		mr := instr.CPEntry.(classfile.CPMethodRef)
		params, _, err := class.ParseMethodDescriptor(mr.Descriptor)
		if err != nil {
			cmerr.Violatef("invokevirtual: %v", err)
		}
		args := f.popArgs(params, false)
		if args[0].IsNull() {
			return stepResult{}, ex.raise(builtin.NullPointerException, "")
		}
		owner, m := resolveMethodUp(args[0].Ref.Class(), mr.Name, mr.Descriptor)
		if m == nil {
			cmerr.Violatef("invokevirtual: %s has no method %s%s", args[0].Ref.Class().ClassIdentifier(), mr.Name, mr.Descriptor)
		}
		v, err := ex.invoke(owner, m, args)
		if err != nil {
			return stepResult{}, err
		}
		if m.ReturnType != "" {
			f.push(v)
		}

	case bytecode.OpNew:
		cls := instr.CPEntry.(classfile.CPClass)
		id := class.ParseClassIdentifier(cls.Name)
		inst, err := ex.heap.NewInstance(id)
		if err != nil {
			cmerr.Violatef("new %s: %v", id, err)
		}
		f.push(class.RefValue(inst))
	case bytecode.OpInstanceof:
		cls := instr.CPEntry.(classfile.CPClass)
		id := class.ParseClassIdentifier(cls.Name)
		v := f.pop()
		f.push(class.BoolValue(!v.IsNull() && isInstanceOfID(v.Ref, id)))
	case bytecode.OpCheckcast:
		cls := instr.CPEntry.(classfile.CPClass)
		id := class.ParseClassIdentifier(cls.Name)
		v := f.pop()
		if !v.IsNull() && !isInstanceOfID(v.Ref, id) {
			return stepResult{}, ex.raise(builtin.ClassCastException,
				fmt.Sprintf("%s cannot be cast to %s", v.Ref.Class().ClassIdentifier(), id))
		}
		f.push(v)
	case bytecode.OpAthrow:
		v := f.pop()
		if v.IsNull() {
			return stepResult{}, ex.raise(builtin.NullPointerException, "")
		}
		return stepResult{}, &thrownSignal{instance: v.Ref}

	case bytecode.OpNewarray:
		count := f.pop().Int
		if count < 0 {
			return stepResult{}, ex.raise(builtin.NegativeArraySizeException, fmt.Sprintf("%d", count))
		}
		desc := arrayKindDescriptor(instr.ArrayKind)
		arrClassI, err := ex.heap.FindArrayClass(desc, 1)
		if err != nil {
			cmerr.Violatef("newarray: %v", err)
		}
		f.push(class.RefValue(builtin.NewArrayInstance(arrClassI.(*builtin.ArrayClass), int(count))))
	case bytecode.OpAnewarray:
		count := f.pop().Int
		if count < 0 {
			return stepResult{}, ex.raise(builtin.NegativeArraySizeException, fmt.Sprintf("%d", count))
		}
		cls := instr.CPEntry.(classfile.CPClass)
		leaf := strings.TrimLeft(cls.Name, "[")
		existingDims := len(cls.Name) - len(leaf)
		if existingDims == 0 {
			leaf = "L" + leaf + ";"
		}
		arrClassI, err := ex.heap.FindArrayClass(leaf, existingDims+1)
		if err != nil {
			cmerr.Violatef("anewarray: %v", err)
		}
		f.push(class.RefValue(builtin.NewArrayInstance(arrClassI.(*builtin.ArrayClass), int(count))))
	case bytecode.OpMultianewarray:
		cls := instr.CPEntry.(classfile.CPClass)
		fullDesc := cls.Name
		leaf := strings.TrimLeft(fullDesc, "[")
		totalDims := len(fullDesc) - len(leaf)
		counts := make([]int32, instr.Dimensions)
		for i := instr.Dimensions - 1; i >= 0; i-- {
			counts[i] = f.pop().Int
		}
		arr, err := ex.buildMultiArray(leaf, totalDims, counts)
		if err != nil {
			return stepResult{}, err
		}
		f.push(class.RefValue(arr))
	case bytecode.OpArraylength:
		v := f.pop()
		if v.IsNull() {
			return stepResult{}, ex.raise(builtin.NullPointerException, "")
		}
		arr, ok := v.Ref.(builtin.ArrayInstance)
		if !ok {
			cmerr.Violatef("arraylength: receiver is not an array")
		}
		f.push(class.IntValue(int32(arr.Length())))

	case bytecode.OpIaload, bytecode.OpLaload, bytecode.OpFaload, bytecode.OpDaload,
		bytecode.OpAaload, bytecode.OpBaload, bytecode.OpCaload, bytecode.OpSaload:
		v, err := ex.arrayLoad(f)
		if err != nil {
			return stepResult{}, err
		}
		f.push(v)
	case bytecode.OpIastore, bytecode.OpLastore, bytecode.OpFastore, bytecode.OpDastore,
		bytecode.OpAastore, bytecode.OpBastore, bytecode.OpCastore, bytecode.OpSastore:
		if err := ex.arrayStore(f); err != nil {
			return stepResult{}, err
		}

	default:
		cmerr.Violatef("unimplemented opcode %v", instr.Op)
	}

	if !branched {
		f.pc++
	}
	return stepResult{}, nil
}

func (ex *Executor) ldcValue(entry classfile.RuntimeCPEntry) (class.FieldValue, error) {
	switch v := entry.(type) {
	case classfile.CPInteger:
		return class.IntValue(v.Value), nil
	case classfile.CPFloat:
		return class.FloatValue(v.Value), nil
	case classfile.CPLong:
		return class.LongValue(v.Value), nil
	case classfile.CPDouble:
		return class.DoubleValue(v.Value), nil
	case classfile.CPString:
		return class.RefValue(ex.heap.NewString(v.Value)), nil
	default:
		cmerr.Violatef("ldc: unsupported constant pool entry %T", entry)
		panic("unreachable")
	}
}

func (ex *Executor) arrayLoad(f *frame) (class.FieldValue, error) {
	idx := f.pop().Int
	v := f.pop()
	if v.IsNull() {
		return class.FieldValue{}, ex.raise(builtin.NullPointerException, "")
	}
	arr, ok := v.Ref.(builtin.ArrayInstance)
	if !ok {
		cmerr.Violatef("array load: receiver is not an array")
	}
	val, err := arr.Get(int(idx))
	if err != nil {
		if ioe, ok := err.(*builtin.IndexOutOfBoundsError); ok {
			return class.FieldValue{}, ex.raise(builtin.ArrayIndexOutOfBoundsException,
				fmt.Sprintf("Index %d out of bounds for length %d", ioe.Index, ioe.Length))
		}
		cmerr.Violatef("array load: %v", err)
	}
	return val, nil
}

func (ex *Executor) arrayStore(f *frame) error {
	value := f.pop()
	idx := f.pop().Int
	v := f.pop()
	if v.IsNull() {
		return ex.raise(builtin.NullPointerException, "")
	}
	arr, ok := v.Ref.(builtin.ArrayInstance)
	if !ok {
		cmerr.Violatef("array store: receiver is not an array")
	}
	if err := arr.Set(int(idx), value); err != nil {
		if ioe, ok := err.(*builtin.IndexOutOfBoundsError); ok {
			return ex.raise(builtin.ArrayIndexOutOfBoundsException,
				fmt.Sprintf("Index %d out of bounds for length %d", ioe.Index, ioe.Length))
		}
		cmerr.Violatef("array store: %v", err)
	}
	return nil
}

// buildMultiArray mints each dimension's array class from the leaf
// component and the remaining dimension count, then recursively fills
// rows — only as many dimensions as multianewarray was given explicit
// counts for are pre-filled, the rest stay null per the JVM spec.
func (ex *Executor) buildMultiArray(leaf string, remainingDims int, counts []int32) (class.Instance, error) {
	n := counts[0]
	if n < 0 {
		return nil, ex.raise(builtin.NegativeArraySizeException, fmt.Sprintf("%d", n))
	}
	arrClassI, err := ex.heap.FindArrayClass(leaf, remainingDims)
	if err != nil {
		cmerr.Violatef("multianewarray: %v", err)
	}
	arr := builtin.NewArrayInstance(arrClassI.(*builtin.ArrayClass), int(n))
	if len(counts) == 1 {
		return arr, nil
	}
	for i := int32(0); i < n; i++ {
		sub, err := ex.buildMultiArray(leaf, remainingDims-1, counts[1:])
		if err != nil {
			return nil, err
		}
		if err := arr.Set(int(i), class.RefValue(sub)); err != nil {
			cmerr.Violatef("multianewarray: %v", err)
		}
	}
	return arr, nil
}

func arrayKindDescriptor(k bytecode.ArrayKind) string {
	switch k {
	case bytecode.ArrayBoolean:
		return "Z"
	case bytecode.ArrayChar:
		return "C"
	case bytecode.ArrayFloat:
		return "F"
	case bytecode.ArrayDouble:
		return "D"
	case bytecode.ArrayByte:
		return "B"
	case bytecode.ArrayShort:
		return "S"
	case bytecode.ArrayInt:
		return "I"
	case bytecode.ArrayLong:
		return "J"
	default:
		cmerr.Violatef("newarray: unknown array type code %d", k)
		panic("unreachable")
	}
}

// javaToInt mirrors Java's f2i/d2i: NaN becomes 0, out-of-range values
// saturate to MinInt32/MaxInt32 rather than wrapping.
func javaToInt(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(v)
	}
}

// javaToLong mirrors Java's f2l/d2l.
func javaToLong(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(v)
	}
}

func cmpOrdered(a, b int64) int32 {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// cmpFloat implements {f,d}cmp{l,g}: nanResult is returned (without
// comparing) whenever either operand is NaN, distinguishing the two
// "which way does NaN compare" opcode variants.
func cmpFloat(a, b float64, nanResult int32) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return nanResult
	}
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}
