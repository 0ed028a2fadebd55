package bytecode

import (
	"fmt"

	"github.com/cmjava/cmjava/pkg/classfile"
)

// Decode walks a method's raw code bytes one instruction at a time,
// producing a typed instruction stream. CP operands are eagerly
// dereferenced against pool. Branch targets are byte offsets in the input
// but decoded-instruction indices in the output — this function performs
// that one-time remap, described in spec section 4.8/9 ("Program-counter
// units"). Unknown opcodes are fatal, with the offending byte surfaced.
//
// The returned map is the same byte-offset -> instruction-index table used
// internally to remap branch targets; callers that need to remap other
// byte-offset quantities from the class file (an exception table's
// StartPC/EndPC/HandlerPC) reuse it instead of re-deriving it.
func Decode(code []byte, pool []classfile.RuntimeCPEntry) ([]Instruction, map[int]int, error) {
	var (
		instrs      []Instruction
		offsetOf    = make(map[int]int) // byte offset -> instruction index
		branchAt    = make(map[int]int) // instruction index -> raw byte target
		pc          = 0
	)

	for pc < len(code) {
		startOffset := pc
		opByte := code[pc]
		pc++

		readU8 := func() (uint8, error) {
			if pc >= len(code) {
				return 0, fmt.Errorf("truncated operand at offset %d", pc)
			}
			v := code[pc]
			pc++
			return v, nil
		}
		readI8 := func() (int8, error) {
			v, err := readU8()
			return int8(v), err
		}
		readU16 := func() (uint16, error) {
			if pc+1 >= len(code) {
				return 0, fmt.Errorf("truncated u16 operand at offset %d", pc)
			}
			v := uint16(code[pc])<<8 | uint16(code[pc+1])
			pc += 2
			return v, nil
		}
		readI16 := func() (int16, error) {
			v, err := readU16()
			return int16(v), err
		}
		cpEntry := func(index uint16) (classfile.RuntimeCPEntry, error) {
			if int(index) >= len(pool) || pool[index] == nil {
				return nil, fmt.Errorf("invalid constant pool index %d", index)
			}
			return pool[index], nil
		}

		var instr Instruction
		offsetOf[startOffset] = len(instrs)

		switch opByte {
		case rawAconstNull:
			instr.Op = OpAconstNull
		case rawIconstM1:
			instr.Op, instr.IntOperand = OpIconstM1, -1
		case rawIconst0, rawIconst1, rawIconst2, rawIconst3, rawIconst4, rawIconst5:
			iconstOps := [...]Op{OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5}
			instr.Op = iconstOps[opByte-rawIconst0]
			instr.IntOperand = int32(opByte - rawIconst0)
		case rawLconst0:
			instr.Op = OpLconst0
		case rawLconst1:
			instr.Op = OpLconst1
		case rawFconst0:
			instr.Op = OpFconst0
		case rawFconst1:
			instr.Op = OpFconst1
		case rawFconst2:
			instr.Op = OpFconst2
		case rawDconst0:
			instr.Op = OpDconst0
		case rawDconst1:
			instr.Op = OpDconst1

		case rawBipush:
			v, err := readI8()
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.IntOperand = OpBipush, int32(v)
		case rawSipush:
			v, err := readI16()
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.IntOperand = OpSipush, int32(v)

		case rawLdc:
			idx, err := readU8()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(uint16(idx))
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpLdc, entry
		case rawLdcW:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpLdc, entry
		case rawLdc2W:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpLdc2W, entry

		case rawIload, rawLload, rawFload, rawDload, rawAload:
			idx, err := readU8()
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.VarIndex = loadOpFor(opByte), int(idx)
		case rawIload0, rawIload1, rawIload2, rawIload3:
			instr.Op, instr.VarIndex = OpIload, int(opByte-rawIload0)
		case rawLload0, rawLload1, rawLload2, rawLload3:
			instr.Op, instr.VarIndex = OpLload, int(opByte-rawLload0)
		case rawFload0, rawFload1, rawFload2, rawFload3:
			instr.Op, instr.VarIndex = OpFload, int(opByte-rawFload0)
		case rawDload0, rawDload1, rawDload2, rawDload3:
			instr.Op, instr.VarIndex = OpDload, int(opByte-rawDload0)
		case rawAload0, rawAload1, rawAload2, rawAload3:
			instr.Op, instr.VarIndex = OpAload, int(opByte-rawAload0)

		case rawIstore, rawLstore, rawFstore, rawDstore, rawAstore:
			idx, err := readU8()
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.VarIndex = storeOpFor(opByte), int(idx)
		case rawIstore0, rawIstore1, rawIstore2, rawIstore3:
			instr.Op, instr.VarIndex = OpIstore, int(opByte-rawIstore0)
		case rawLstore0, rawLstore1, rawLstore2, rawLstore3:
			instr.Op, instr.VarIndex = OpLstore, int(opByte-rawLstore0)
		case rawFstore0, rawFstore1, rawFstore2, rawFstore3:
			instr.Op, instr.VarIndex = OpFstore, int(opByte-rawFstore0)
		case rawDstore0, rawDstore1, rawDstore2, rawDstore3:
			instr.Op, instr.VarIndex = OpDstore, int(opByte-rawDstore0)
		case rawAstore0, rawAstore1, rawAstore2, rawAstore3:
			instr.Op, instr.VarIndex = OpAstore, int(opByte-rawAstore0)

		case rawPop:
			instr.Op = OpPop
		case rawPop2:
			instr.Op = OpPop2
		case rawDup:
			instr.Op = OpDup
		case rawDupX1:
			instr.Op = OpDupX1
		case rawDupX2:
			instr.Op = OpDupX2
		case rawDup2:
			instr.Op = OpDup2
		case rawDup2X1:
			instr.Op = OpDup2X1
		case rawDup2X2:
			instr.Op = OpDup2X2
		case rawSwap:
			instr.Op = OpSwap

		case rawIadd:
			instr.Op = OpIadd
		case rawIsub:
			instr.Op = OpIsub
		case rawImul:
			instr.Op = OpImul
		case rawIdiv:
			instr.Op = OpIdiv
		case rawIrem:
			instr.Op = OpIrem
		case rawIneg:
			instr.Op = OpIneg
		case rawIshl:
			instr.Op = OpIshl
		case rawIshr:
			instr.Op = OpIshr
		case rawIushr:
			instr.Op = OpIushr
		case rawIand:
			instr.Op = OpIand
		case rawIor:
			instr.Op = OpIor
		case rawIxor:
			instr.Op = OpIxor
		case rawIinc:
			idx, err := readU8()
			if err != nil {
				return nil, nil, err
			}
			delta, err := readI8()
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.VarIndex, instr.IntOperand = OpIinc, int(idx), int32(delta)

		case rawLadd:
			instr.Op = OpLadd
		case rawLsub:
			instr.Op = OpLsub
		case rawLmul:
			instr.Op = OpLmul
		case rawLdiv:
			instr.Op = OpLdiv
		case rawLrem:
			instr.Op = OpLrem
		case rawLneg:
			instr.Op = OpLneg
		case rawLshl:
			instr.Op = OpLshl
		case rawLshr:
			instr.Op = OpLshr
		case rawLushr:
			instr.Op = OpLushr
		case rawLand:
			instr.Op = OpLand
		case rawLor:
			instr.Op = OpLor
		case rawLxor:
			instr.Op = OpLxor

		case rawFadd:
			instr.Op = OpFadd
		case rawFsub:
			instr.Op = OpFsub
		case rawFmul:
			instr.Op = OpFmul
		case rawFdiv:
			instr.Op = OpFdiv
		case rawFrem:
			instr.Op = OpFrem
		case rawFneg:
			instr.Op = OpFneg

		case rawDadd:
			instr.Op = OpDadd
		case rawDsub:
			instr.Op = OpDsub
		case rawDmul:
			instr.Op = OpDmul
		case rawDdiv:
			instr.Op = OpDdiv
		case rawDrem:
			instr.Op = OpDrem
		case rawDneg:
			instr.Op = OpDneg

		case rawI2l:
			instr.Op = OpI2l
		case rawI2f:
			instr.Op = OpI2f
		case rawI2d:
			instr.Op = OpI2d
		case rawL2i:
			instr.Op = OpL2i
		case rawL2f:
			instr.Op = OpL2f
		case rawL2d:
			instr.Op = OpL2d
		case rawF2i:
			instr.Op = OpF2i
		case rawF2l:
			instr.Op = OpF2l
		case rawF2d:
			instr.Op = OpF2d
		case rawD2i:
			instr.Op = OpD2i
		case rawD2l:
			instr.Op = OpD2l
		case rawD2f:
			instr.Op = OpD2f
		case rawI2b:
			instr.Op = OpI2b
		case rawI2c:
			instr.Op = OpI2c
		case rawI2s:
			instr.Op = OpI2s

		case rawLcmp:
			instr.Op = OpLcmp
		case rawFcmpl:
			instr.Op = OpFcmpl
		case rawFcmpg:
			instr.Op = OpFcmpg
		case rawDcmpl:
			instr.Op = OpDcmpl
		case rawDcmpg:
			instr.Op = OpDcmpg

		case rawIfeq, rawIfne, rawIflt, rawIfge, rawIfgt, rawIfle,
			rawIfIcmpeq, rawIfIcmpne, rawIfIcmplt, rawIfIcmpge, rawIfIcmpgt, rawIfIcmple,
			rawIfAcmpeq, rawIfAcmpne, rawGoto, rawIfnull, rawIfnonnull:
			offset, err := readI16()
			if err != nil {
				return nil, nil, err
			}
			instr.Op = branchOpFor(opByte)
			branchAt[len(instrs)] = startOffset + int(offset)

		case rawIreturn:
			instr.Op = OpIreturn
		case rawLreturn:
			instr.Op = OpLreturn
		case rawFreturn:
			instr.Op = OpFreturn
		case rawDreturn:
			instr.Op = OpDreturn
		case rawAreturn:
			instr.Op = OpAreturn
		case rawReturn:
			instr.Op = OpReturn

		case rawGetstatic:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpGetstatic, entry
		case rawPutstatic:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpPutstatic, entry
		case rawGetfield:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpGetfield, entry
		case rawPutfield:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpPutfield, entry
		case rawInvokevirtual:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpInvokevirtual, entry
		case rawInvokespecial:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpInvokespecial, entry
		case rawInvokestatic:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpInvokestatic, entry
		case rawNew:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpNew, entry
		case rawInstanceof:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpInstanceof, entry
		case rawCheckcast:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpCheckcast, entry
		case rawAthrow:
			instr.Op = OpAthrow

		case rawNewarray:
			kind, err := readU8()
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.ArrayKind = OpNewarray, ArrayKind(kind)
		case rawAnewarray:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry = OpAnewarray, entry
		case rawMultianewarray:
			idx, err := readU16()
			if err != nil {
				return nil, nil, err
			}
			entry, err := cpEntry(idx)
			if err != nil {
				return nil, nil, err
			}
			dims, err := readU8()
			if err != nil {
				return nil, nil, err
			}
			instr.Op, instr.CPEntry, instr.Dimensions = OpMultianewarray, entry, int(dims)
		case rawArraylength:
			instr.Op = OpArraylength

		case rawIaload:
			instr.Op = OpIaload
		case rawLaload:
			instr.Op = OpLaload
		case rawFaload:
			instr.Op = OpFaload
		case rawDaload:
			instr.Op = OpDaload
		case rawAaload:
			instr.Op = OpAaload
		case rawBaload:
			instr.Op = OpBaload
		case rawCaload:
			instr.Op = OpCaload
		case rawSaload:
			instr.Op = OpSaload
		case rawIastore:
			instr.Op = OpIastore
		case rawLastore:
			instr.Op = OpLastore
		case rawFastore:
			instr.Op = OpFastore
		case rawDastore:
			instr.Op = OpDastore
		case rawAastore:
			instr.Op = OpAastore
		case rawBastore:
			instr.Op = OpBastore
		case rawCastore:
			instr.Op = OpCastore
		case rawSastore:
			instr.Op = OpSastore

		default:
			return nil, nil, fmt.Errorf("unknown opcode 0x%02X at offset %d", opByte, startOffset)
		}

		instrs = append(instrs, instr)
	}
	// One past the last instruction's start offset, so a byte-offset range
	// that runs to the end of the code array (an exception table's EndPC,
	// for instance) remaps to len(instrs) instead of needing special-casing.
	offsetOf[len(code)] = len(instrs)

	for idx, target := range branchAt {
		targetIdx, ok := offsetOf[target]
		if !ok {
			return nil, nil, fmt.Errorf("branch at instruction %d targets invalid offset %d", idx, target)
		}
		instrs[idx].BranchTarget = targetIdx
	}

	return instrs, offsetOf, nil
}

func loadOpFor(raw byte) Op {
	switch raw {
	case rawIload:
		return OpIload
	case rawLload:
		return OpLload
	case rawFload:
		return OpFload
	case rawDload:
		return OpDload
	default:
		return OpAload
	}
}

func storeOpFor(raw byte) Op {
	switch raw {
	case rawIstore:
		return OpIstore
	case rawLstore:
		return OpLstore
	case rawFstore:
		return OpFstore
	case rawDstore:
		return OpDstore
	default:
		return OpAstore
	}
}

func branchOpFor(raw byte) Op {
	switch raw {
	case rawIfeq:
		return OpIfeq
	case rawIfne:
		return OpIfne
	case rawIflt:
		return OpIflt
	case rawIfge:
		return OpIfge
	case rawIfgt:
		return OpIfgt
	case rawIfle:
		return OpIfle
	case rawIfIcmpeq:
		return OpIfIcmpeq
	case rawIfIcmpne:
		return OpIfIcmpne
	case rawIfIcmplt:
		return OpIfIcmplt
	case rawIfIcmpge:
		return OpIfIcmpge
	case rawIfIcmpgt:
		return OpIfIcmpgt
	case rawIfIcmple:
		return OpIfIcmple
	case rawIfAcmpeq:
		return OpIfAcmpeq
	case rawIfAcmpne:
		return OpIfAcmpne
	case rawIfnull:
		return OpIfnull
	case rawIfnonnull:
		return OpIfnonnull
	default:
		return OpGoto
	}
}
