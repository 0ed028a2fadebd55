package classfile

import (
	"encoding/binary"
	"fmt"
)

// ExceptionTableEntry is one row of a Code attribute's exception table.
// CatchType is 0 for a catch-all/finally handler, otherwise a 1-based
// index of a CPClass entry naming the caught exception's class.
type ExceptionTableEntry struct {
	StartPC, EndPC, HandlerPC, CatchType uint16
}

// Code holds the decoded Code attribute of a method: its declared stack and
// locals bounds, the raw instruction bytes (still byte-offset addressed —
// the opcode decoder in package bytecode remaps branch targets to decoded
// instruction indices), and the exception table.
type Code struct {
	MaxStack       uint16
	MaxLocals      uint16
	Bytes          []byte
	ExceptionTable []ExceptionTableEntry
}

// DecodeCode finds and decodes a method's Code attribute, if any.
// SourceFile, LineNumberTable and the other metadata attributes listed in
// the switch below (StackMapTable, Signature, Exceptions, ...) are
// recognized and ignored. Any other attribute name on a method is a fatal
// decode error: the interpreter refuses to run code it cannot fully
// interpret.
func DecodeCode(attrs []RawAttribute, pool []RuntimeCPEntry) (*Code, error) {
	var code *Code
	for _, attr := range attrs {
		name, err := RuntimeUtf8(pool, attr.NameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving attribute name: %w", err)
		}
		switch name {
		case "Code":
			c, err := decodeCodeAttribute(attr.Info)
			if err != nil {
				return nil, fmt.Errorf("decoding Code attribute: %w", err)
			}
			code = c
		case "SourceFile", "LineNumberTable", "StackMapTable", "Signature", "Deprecated",
			"RuntimeVisibleAnnotations", "Exceptions", "LocalVariableTable":
			// recognized, no-op
		default:
			return nil, fmt.Errorf("unsupported attribute %q", name)
		}
	}
	return code, nil
}

// DecodeClassAttributes validates that every class-level attribute is one
// this interpreter understands. Unknown attributes are a fatal decode
// error per spec.
func DecodeClassAttributes(attrs []RawAttribute, pool []RuntimeCPEntry) error {
	for _, attr := range attrs {
		name, err := RuntimeUtf8(pool, attr.NameIndex)
		if err != nil {
			return fmt.Errorf("resolving class attribute name: %w", err)
		}
		switch name {
		case "SourceFile", "InnerClasses", "Signature", "Deprecated",
			"BootstrapMethods", "RuntimeVisibleAnnotations", "EnclosingMethod":
			// recognized, no-op
		default:
			return fmt.Errorf("unsupported class attribute %q", name)
		}
	}
	return nil
}

// DecodeFieldAttributes looks for a ConstantValue attribute on a field_info
// and returns the constant pool entry it names, if any. Other recognized
// field attributes are ignored; anything else is a fatal decode error.
func DecodeFieldAttributes(attrs []RawAttribute, pool []RuntimeCPEntry) (RuntimeCPEntry, error) {
	var value RuntimeCPEntry
	for _, attr := range attrs {
		name, err := RuntimeUtf8(pool, attr.NameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving field attribute name: %w", err)
		}
		switch name {
		case "ConstantValue":
			if len(attr.Info) != 2 {
				return nil, fmt.Errorf("malformed ConstantValue attribute: %d bytes", len(attr.Info))
			}
			idx := binary.BigEndian.Uint16(attr.Info)
			if int(idx) >= len(pool) || pool[idx] == nil {
				return nil, fmt.Errorf("ConstantValue index %d out of range", idx)
			}
			value = pool[idx]
		case "Synthetic", "Deprecated", "Signature", "RuntimeVisibleAnnotations":
			// recognized, no-op
		default:
			return nil, fmt.Errorf("unsupported field attribute %q", name)
		}
	}
	return value, nil
}

func decodeCodeAttribute(data []byte) (*Code, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("Code attribute too short: %d bytes", len(data))
	}
	maxStack := binary.BigEndian.Uint16(data[0:2])
	maxLocals := binary.BigEndian.Uint16(data[2:4])
	codeLength := binary.BigEndian.Uint32(data[4:8])

	offset := 8
	if len(data) < offset+int(codeLength) {
		return nil, fmt.Errorf("Code attribute truncated: need %d bytes of code, have %d", codeLength, len(data)-offset)
	}
	code := make([]byte, codeLength)
	copy(code, data[offset:offset+int(codeLength)])
	offset += int(codeLength)

	if len(data) < offset+2 {
		return nil, fmt.Errorf("Code attribute truncated before exception table length")
	}
	exTableLen := binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2

	table := make([]ExceptionTableEntry, exTableLen)
	for i := range table {
		if len(data) < offset+8 {
			return nil, fmt.Errorf("Code attribute truncated in exception table entry %d", i)
		}
		table[i] = ExceptionTableEntry{
			StartPC:   binary.BigEndian.Uint16(data[offset : offset+2]),
			EndPC:     binary.BigEndian.Uint16(data[offset+2 : offset+4]),
			HandlerPC: binary.BigEndian.Uint16(data[offset+4 : offset+6]),
			CatchType: binary.BigEndian.Uint16(data[offset+6 : offset+8]),
		}
		offset += 8
	}

	// The Code attribute carries its own nested attribute list (e.g.
	// LineNumberTable, StackMapTable). We don't need their contents, but
	// we must walk past them correctly; since we already have the whole
	// attribute's bytes and no further field of Code depends on them,
	// skipping the rest of `data` is sufficient here.

	return &Code{
		MaxStack:       maxStack,
		MaxLocals:      maxLocals,
		Bytes:          code,
		ExceptionTable: table,
	}, nil
}
