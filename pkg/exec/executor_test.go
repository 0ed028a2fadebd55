package exec

import (
	"io"
	"strings"
	"testing"

	"github.com/cmjava/cmjava/pkg/builtin"
	"github.com/cmjava/cmjava/pkg/bytecode"
	"github.com/cmjava/cmjava/pkg/class"
	"github.com/cmjava/cmjava/pkg/classfile"
	"github.com/cmjava/cmjava/pkg/heap"
)

func newTestExecutor() *Executor {
	return New(heap.New(io.Discard, strings.NewReader("")))
}

// runMethod builds a Method around instrs and runs it to completion via
// invokeBytecode, returning its return value.
func runMethod(t *testing.T, ex *Executor, instrs []bytecode.Instruction, maxStack, maxLocals uint16, isStatic bool, paramTypes []string, args []class.FieldValue, handlers []class.ExceptionHandler) (class.FieldValue, error) {
	t.Helper()
	m := &class.Method{
		Name:       "test",
		ParamTypes: paramTypes,
		IsStatic:   isStatic,
		Code: class.BytecodeCode{
			MaxStack:       maxStack,
			MaxLocals:      maxLocals,
			Instructions:   instrs,
			ExceptionTable: handlers,
		},
	}
	return ex.invokeBytecode(builtin.Object, m, m.Code.(class.BytecodeCode), args)
}

func TestExecutorIaddIreturn(t *testing.T) {
	ex := newTestExecutor()
	instrs := []bytecode.Instruction{
		{Op: bytecode.OpIconst5},
		{Op: bytecode.OpBipush, IntOperand: 3},
		{Op: bytecode.OpIadd},
		{Op: bytecode.OpIreturn},
	}
	v, err := runMethod(t, ex, instrs, 4, 0, true, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Int != 8 {
		t.Errorf("result = %d, want 8", v.Int)
	}
}

func TestExecutorWrappingArithmetic(t *testing.T) {
	ex := newTestExecutor()

	// iadd(INT_MAX, 1) == INT_MIN
	m := &class.Method{
		IsStatic: true,
		Code: class.BytecodeCode{
			MaxStack:  4,
			MaxLocals: 0,
			Instructions: []bytecode.Instruction{
				{Op: bytecode.OpLdc, CPEntry: classfile.CPInteger{Value: 2147483647}},
				{Op: bytecode.OpIconst1},
				{Op: bytecode.OpIadd},
				{Op: bytecode.OpIreturn},
			},
		},
	}
	v, err := ex.invokeBytecode(builtin.Object, m, m.Code.(class.BytecodeCode), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Int != -2147483648 {
		t.Errorf("iadd(INT_MAX, 1) = %d, want INT_MIN", v.Int)
	}
}

func TestExecutorIshlMasksShiftCount(t *testing.T) {
	ex := newTestExecutor()
	m := &class.Method{
		IsStatic: true,
		Code: class.BytecodeCode{
			MaxStack: 4,
			Instructions: []bytecode.Instruction{
				{Op: bytecode.OpIconst1},
				{Op: bytecode.OpBipush, IntOperand: 33}, // masked to 1
				{Op: bytecode.OpIshl},
				{Op: bytecode.OpIreturn},
			},
		},
	}
	v, err := ex.invokeBytecode(builtin.Object, m, m.Code.(class.BytecodeCode), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Int != 2 {
		t.Errorf("ishl(1, 33) = %d, want 2 (same as ishl(1, 1))", v.Int)
	}
}

func TestExecutorIdivByZeroRaisesArithmeticException(t *testing.T) {
	ex := newTestExecutor()
	m := &class.Method{
		IsStatic: true,
		Code: class.BytecodeCode{
			MaxStack: 4,
			Instructions: []bytecode.Instruction{
				{Op: bytecode.OpIconst1},
				{Op: bytecode.OpIconst0},
				{Op: bytecode.OpIdiv},
				{Op: bytecode.OpIreturn},
			},
		},
	}
	_, err := ex.invokeBytecode(builtin.Object, m, m.Code.(class.BytecodeCode), nil)
	ts, ok := asThrown(err)
	if !ok {
		t.Fatalf("expected a thrown signal, got %v", err)
	}
	if ts.instance.Class().ClassIdentifier() != builtin.ArithmeticException.ClassIdentifier() {
		t.Errorf("thrown class = %v, want ArithmeticException", ts.instance.Class().ClassIdentifier())
	}
}

func TestExecutorExceptionTableCatchesAndUnwindsStack(t *testing.T) {
	ex := newTestExecutor()
	// 0: iconst_1
	// 1: iconst_0
	// 2: idiv        <- throws ArithmeticException here
	// 3: ireturn
	// 4: pop         <- handler: discard the exception instance
	// 5: bipush -1
	// 6: ireturn
	instrs := []bytecode.Instruction{
		{Op: bytecode.OpIconst1},
		{Op: bytecode.OpIconst0},
		{Op: bytecode.OpIdiv},
		{Op: bytecode.OpIreturn},
		{Op: bytecode.OpPop},
		{Op: bytecode.OpBipush, IntOperand: -1},
		{Op: bytecode.OpIreturn},
	}
	handlers := []class.ExceptionHandler{
		{StartPC: 0, EndPC: 4, HandlerPC: 4, CatchType: nil},
	}
	m := &class.Method{
		IsStatic: true,
		Code: class.BytecodeCode{
			MaxStack:       4,
			Instructions:   instrs,
			ExceptionTable: handlers,
		},
	}
	v, err := ex.invokeBytecode(builtin.Object, m, m.Code.(class.BytecodeCode), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Int != -1 {
		t.Errorf("result = %d, want -1 (handler ran)", v.Int)
	}
}

func TestExecutorIfIcmpgeBranches(t *testing.T) {
	ex := newTestExecutor()
	// if 5 >= 3 goto 5 (push 99; return) else push 0; return
	instrs := []bytecode.Instruction{
		{Op: bytecode.OpIconst5},
		{Op: bytecode.OpBipush, IntOperand: 3},
		{Op: bytecode.OpIfIcmpge, BranchTarget: 5},
		{Op: bytecode.OpIconst0},
		{Op: bytecode.OpIreturn},
		{Op: bytecode.OpBipush, IntOperand: 99},
		{Op: bytecode.OpIreturn},
	}
	m := &class.Method{
		IsStatic: true,
		Code:     class.BytecodeCode{MaxStack: 4, Instructions: instrs},
	}
	v, err := ex.invokeBytecode(builtin.Object, m, m.Code.(class.BytecodeCode), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Int != 99 {
		t.Errorf("result = %d, want 99 (branch taken, iconst_0 skipped)", v.Int)
	}
}

func TestExecutorArrayRoundTrip(t *testing.T) {
	ex := newTestExecutor()
	arrClass, err := ex.heap.FindArrayClass("I", 1)
	if err != nil {
		t.Fatalf("FindArrayClass: %v", err)
	}
	arr := builtin.NewArrayInstance(arrClass.(*builtin.ArrayClass), 3)

	// arr[1] = 42; return arr[1]
	m := &class.Method{
		IsStatic:   true,
		ParamTypes: []string{"[I"},
		Code: class.BytecodeCode{
			MaxStack:  4,
			MaxLocals: 1,
			Instructions: []bytecode.Instruction{
				{Op: bytecode.OpAload, VarIndex: 0},
				{Op: bytecode.OpIconst1},
				{Op: bytecode.OpBipush, IntOperand: 42},
				{Op: bytecode.OpIastore},
				{Op: bytecode.OpAload, VarIndex: 0},
				{Op: bytecode.OpIconst1},
				{Op: bytecode.OpIaload},
				{Op: bytecode.OpIreturn},
			},
		},
	}
	v, err := ex.invokeBytecode(builtin.Object, m, m.Code.(class.BytecodeCode), []class.FieldValue{class.RefValue(arr)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Int != 42 {
		t.Errorf("arr[1] = %d, want 42", v.Int)
	}
}

func TestExecutorArrayIndexOutOfBounds(t *testing.T) {
	ex := newTestExecutor()
	arrClass, _ := ex.heap.FindArrayClass("I", 1)
	arr := builtin.NewArrayInstance(arrClass.(*builtin.ArrayClass), 2)

	m := &class.Method{
		IsStatic:   true,
		ParamTypes: []string{"[I"},
		Code: class.BytecodeCode{
			MaxStack:  4,
			MaxLocals: 1,
			Instructions: []bytecode.Instruction{
				{Op: bytecode.OpAload, VarIndex: 0},
				{Op: bytecode.OpBipush, IntOperand: 5},
				{Op: bytecode.OpIaload},
				{Op: bytecode.OpIreturn},
			},
		},
	}
	_, err := ex.invokeBytecode(builtin.Object, m, m.Code.(class.BytecodeCode), []class.FieldValue{class.RefValue(arr)})
	ts, ok := asThrown(err)
	if !ok {
		t.Fatalf("expected a thrown signal, got %v", err)
	}
	if ts.instance.Class().ClassIdentifier() != builtin.ArrayIndexOutOfBoundsException.ClassIdentifier() {
		t.Errorf("thrown class = %v, want ArrayIndexOutOfBoundsException", ts.instance.Class().ClassIdentifier())
	}
}

func TestExecutorNullPointerOnGetfield(t *testing.T) {
	ex := newTestExecutor()
	m := &class.Method{
		IsStatic: true,
		Code: class.BytecodeCode{
			MaxStack: 4,
			Instructions: []bytecode.Instruction{
				{Op: bytecode.OpAconstNull},
				{Op: bytecode.OpGetfield, CPEntry: classfile.CPFieldRef{Class: "A", Name: "x", Descriptor: "I"}},
				{Op: bytecode.OpIreturn},
			},
		},
	}
	_, err := ex.invokeBytecode(builtin.Object, m, m.Code.(class.BytecodeCode), nil)
	ts, ok := asThrown(err)
	if !ok {
		t.Fatalf("expected a thrown signal, got %v", err)
	}
	if ts.instance.Class().ClassIdentifier() != builtin.NullPointerException.ClassIdentifier() {
		t.Errorf("thrown class = %v, want NullPointerException", ts.instance.Class().ClassIdentifier())
	}
}

func TestExecutorVirtualDispatchResolvesNearestOverride(t *testing.T) {
	ex := newTestExecutor()

	retVal := func(v int32) class.BytecodeCode {
		return class.BytecodeCode{
			MaxStack:  2,
			MaxLocals: 1, // 'this'
			Instructions: []bytecode.Instruction{
				{Op: bytecode.OpBipush, IntOperand: v},
				{Op: bytecode.OpIreturn},
			},
		}
	}

	aMethod := &class.Method{Name: "m", Descriptor: "()I", ReturnType: "I", Code: retVal(1)}
	a := class.NewBytecodeClass(class.ClassIdentifier{Name: "A"}, []*class.Method{aMethod}, nil, nil, builtin.Object)

	bMethod := &class.Method{Name: "m", Descriptor: "()I", ReturnType: "I", Code: retVal(2)}
	b := class.NewBytecodeClass(class.ClassIdentifier{Name: "B"}, []*class.Method{bMethod}, nil, nil, a)
	c := class.NewBytecodeClass(class.ClassIdentifier{Name: "C"}, nil, nil, nil, b)

	inst, err := c.NewInstance(c)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}

	owner, m := resolveMethodUp(inst.Class(), "m", "()I")
	if owner != b {
		t.Fatalf("owner = %v, want B", owner.ClassIdentifier())
	}
	v, err := ex.invoke(owner, m, []class.FieldValue{class.RefValue(inst)})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if v.Int != 2 {
		t.Errorf("dispatched result = %d, want 2 (B.m, the nearest override)", v.Int)
	}
}

func TestExecutorCheckcastFailureRaisesClassCastException(t *testing.T) {
	ex := newTestExecutor()
	strInst := ex.heap.NewString("hi")
	m := &class.Method{
		IsStatic: true,
		Code: class.BytecodeCode{
			MaxStack: 2,
			Instructions: []bytecode.Instruction{
				{Op: bytecode.OpAload, VarIndex: 0},
				{Op: bytecode.OpCheckcast, CPEntry: classfile.CPClass{Name: "java/lang/Throwable"}},
				{Op: bytecode.OpReturn},
			},
			MaxLocals: 1,
		},
	}
	locals := marshalLocals(1, true, []string{"Ljava/lang/Object;"}, []class.FieldValue{class.RefValue(strInst)})
	f := newFrame(nil, m, m.Code.(class.BytecodeCode), locals)
	ex.frames = append(ex.frames, f)
	_, err := ex.step(f, f.instrs[0])
	if err != nil {
		t.Fatalf("aload: %v", err)
	}
	_, err = ex.step(f, f.instrs[1])
	ts, ok := asThrown(err)
	if !ok {
		t.Fatalf("expected a thrown signal, got %v", err)
	}
	if ts.instance.Class().ClassIdentifier() != builtin.ClassCastException.ClassIdentifier() {
		t.Errorf("thrown class = %v, want ClassCastException", ts.instance.Class().ClassIdentifier())
	}
}

func TestExecutorMaxFrameDepthRaisesStackOverflow(t *testing.T) {
	ex := newTestExecutor()
	for i := 0; i < maxFrameDepth; i++ {
		ex.frames = append(ex.frames, &frame{})
	}
	m := &class.Method{IsStatic: true, Code: class.BytecodeCode{MaxStack: 1}}
	_, err := ex.invokeBytecode(builtin.Object, m, m.Code.(class.BytecodeCode), nil)
	ts, ok := asThrown(err)
	if !ok {
		t.Fatalf("expected a thrown signal, got %v", err)
	}
	if ts.instance.Class().ClassIdentifier() != builtin.StackOverflowError.ClassIdentifier() {
		t.Errorf("thrown class = %v, want StackOverflowError", ts.instance.Class().ClassIdentifier())
	}
}
