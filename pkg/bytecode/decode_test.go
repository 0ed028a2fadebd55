package bytecode

import (
	"testing"

	"github.com/cmjava/cmjava/pkg/classfile"
)

func TestDecodeSimpleConstants(t *testing.T) {
	// iconst_3, ireturn
	code := []byte{0x06, 0xAC}
	instrs, _, err := Decode(code, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(instrs) != 2 {
		t.Fatalf("len(instrs) = %d, want 2", len(instrs))
	}
	if instrs[0].Op != OpIconst3 || instrs[0].IntOperand != 3 {
		t.Errorf("instrs[0] = %+v, want OpIconst3/3", instrs[0])
	}
	if instrs[1].Op != OpIreturn {
		t.Errorf("instrs[1].Op = %v, want OpIreturn", instrs[1].Op)
	}
}

func TestDecodeBipushSipush(t *testing.T) {
	// bipush 10, sipush 1000, pop, pop, return
	code := []byte{0x10, 0x0A, 0x11, 0x03, 0xE8, 0x57, 0x57, 0xB1}
	instrs, _, err := Decode(code, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if instrs[0].Op != OpBipush || instrs[0].IntOperand != 10 {
		t.Errorf("bipush decoded as %+v", instrs[0])
	}
	if instrs[1].Op != OpSipush || instrs[1].IntOperand != 1000 {
		t.Errorf("sipush decoded as %+v", instrs[1])
	}
}

func TestDecodeBranchTargetRemapsToInstructionIndex(t *testing.T) {
	// 0: iconst_0
	// 1: goto 7        (jumps past the next 3 single-byte instructions)
	// 4: iconst_1
	// 5: iconst_2
	// 6: iconst_3
	// 7: return
	code := []byte{
		0x03,       // 0: iconst_0
		0xA7, 0, 6, // 1: goto +6 -> offset 7
		0x04, // 4: iconst_1
		0x05, // 5: iconst_2
		0x06, // 6: iconst_3
		0xB1, // 7: return
	}
	instrs, _, err := Decode(code, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// instruction indices: 0=iconst_0, 1=goto, 2=iconst_1, 3=iconst_2, 4=iconst_3, 5=return
	if instrs[1].Op != OpGoto {
		t.Fatalf("instrs[1].Op = %v, want OpGoto", instrs[1].Op)
	}
	if instrs[1].BranchTarget != 5 {
		t.Errorf("BranchTarget = %d, want 5 (the decoded index of `return`)", instrs[1].BranchTarget)
	}
	if instrs[5].Op != OpReturn {
		t.Fatalf("instrs[5].Op = %v, want OpReturn", instrs[5].Op)
	}
}

func TestDecodeOffsetMapCoversEveryInstructionAndCodeEnd(t *testing.T) {
	// Same layout as above: multi-byte goto followed by several
	// single-byte instructions, so byte offset and instruction index
	// diverge partway through — this is exactly what an exception
	// table's StartPC/EndPC/HandlerPC need remapped against.
	code := []byte{
		0x03,       // offset 0: iconst_0  (instruction 0)
		0xA7, 0, 6, // offset 1: goto       (instruction 1)
		0x04, // offset 4: iconst_1 (instruction 2)
		0x05, // offset 5: iconst_2 (instruction 3)
		0x06, // offset 6: iconst_3 (instruction 4)
		0xB1, // offset 7: return   (instruction 5)
	}
	_, offsetOf, err := Decode(code, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := map[int]int{0: 0, 1: 1, 4: 2, 5: 3, 6: 4, 7: 5}
	for offset, idx := range want {
		if got, ok := offsetOf[offset]; !ok || got != idx {
			t.Errorf("offsetOf[%d] = (%d, %v), want (%d, true)", offset, got, ok, idx)
		}
	}
	// One past the last instruction's offset must map to len(instrs), so a
	// try block that runs to the end of the method remaps cleanly.
	if got, ok := offsetOf[len(code)]; !ok || got != len(code)-2 {
		// len(code)-2 == 6, the instruction count, given this code layout.
		t.Errorf("offsetOf[len(code)] = (%d, %v), want (6, true)", got, ok)
	}
}

func TestDecodeLocalVarAccessors(t *testing.T) {
	// iload_0, istore_1, iload 4 (general form), return
	code := []byte{0x1A, 0x3C, 0x15, 0x04, 0xB1}
	instrs, _, err := Decode(code, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if instrs[0].Op != OpIload || instrs[0].VarIndex != 0 {
		t.Errorf("iload_0 -> %+v", instrs[0])
	}
	if instrs[1].Op != OpIstore || instrs[1].VarIndex != 1 {
		t.Errorf("istore_1 -> %+v", instrs[1])
	}
	if instrs[2].Op != OpIload || instrs[2].VarIndex != 4 {
		t.Errorf("iload 4 -> %+v", instrs[2])
	}
}

func TestDecodeConstantPoolOperand(t *testing.T) {
	pool := []classfile.RuntimeCPEntry{nil, classfile.CPString{Value: "hi"}}
	// ldc #1, areturn
	code := []byte{0x12, 0x01, 0xB0}
	instrs, _, err := Decode(code, pool)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	s, ok := instrs[0].CPEntry.(classfile.CPString)
	if !ok {
		t.Fatalf("CPEntry = %T, want classfile.CPString", instrs[0].CPEntry)
	}
	if s.Value != "hi" {
		t.Errorf("CPString.Value = %q, want %q", s.Value, "hi")
	}
}

func TestDecodeInvalidConstantPoolIndex(t *testing.T) {
	code := []byte{0x12, 0x05} // ldc #5, pool too short
	if _, _, err := Decode(code, nil); err == nil {
		t.Error("expected an error for an out-of-range constant pool index")
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	code := []byte{0xFE}
	if _, _, err := Decode(code, nil); err == nil {
		t.Error("expected an error for an unknown opcode")
	}
}

func TestDecodeTruncatedOperand(t *testing.T) {
	code := []byte{0x10} // bipush with no operand byte
	if _, _, err := Decode(code, nil); err == nil {
		t.Error("expected an error for a truncated operand")
	}
}

func TestDecodeIinc(t *testing.T) {
	// iinc 2, -1 ; return
	code := []byte{0x84, 0x02, 0xFF, 0xB1}
	instrs, _, err := Decode(code, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if instrs[0].Op != OpIinc || instrs[0].VarIndex != 2 || instrs[0].IntOperand != -1 {
		t.Errorf("iinc -> %+v", instrs[0])
	}
}
