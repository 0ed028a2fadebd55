package bytecode

import "github.com/cmjava/cmjava/pkg/classfile"

// Instruction is one decoded opcode. Only the fields relevant to its Op are
// populated; the rest stay at their zero value.
type Instruction struct {
	Op Op

	IntOperand   int32  // bipush/sipush literal, iinc increment
	VarIndex     int    // local-variable index for loads/stores/iinc
	BranchTarget int    // decoded-instruction index for branches
	CPEntry      classfile.RuntimeCPEntry // ldc/field/method/class operand
	ArrayKind    ArrayKind                // newarray component type
	Dimensions   int                      // multianewarray dimension count
}
