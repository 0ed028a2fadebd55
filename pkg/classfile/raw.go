// Package classfile decodes the on-disk JVM class-file format into runtime
// structures: a raw, untyped pass (this file) followed by a constant-pool
// resolution pass (cpool.go) and an attribute pass (attributes.go).
package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const classMagic = 0xCAFEBABE

// Constant pool tags.
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
)

// RawConstant is implemented by every unresolved constant-pool entry.
type RawConstant interface {
	Tag() uint8
}

type RawUtf8 struct{ Value string }

func (RawUtf8) Tag() uint8 { return TagUtf8 }

type RawInteger struct{ Value int32 }

func (RawInteger) Tag() uint8 { return TagInteger }

type RawFloat struct{ Value float32 }

func (RawFloat) Tag() uint8 { return TagFloat }

type RawLong struct{ Value int64 }

func (RawLong) Tag() uint8 { return TagLong }

type RawDouble struct{ Value float64 }

func (RawDouble) Tag() uint8 { return TagDouble }

type RawClass struct{ NameIndex uint16 }

func (RawClass) Tag() uint8 { return TagClass }

type RawString struct{ StringIndex uint16 }

func (RawString) Tag() uint8 { return TagString }

type RawFieldref struct{ ClassIndex, NameAndTypeIndex uint16 }

func (RawFieldref) Tag() uint8 { return TagFieldref }

type RawMethodref struct{ ClassIndex, NameAndTypeIndex uint16 }

func (RawMethodref) Tag() uint8 { return TagMethodref }

type RawInterfaceMethodref struct{ ClassIndex, NameAndTypeIndex uint16 }

func (RawInterfaceMethodref) Tag() uint8 { return TagInterfaceMethodref }

type RawNameAndType struct{ NameIndex, DescriptorIndex uint16 }

func (RawNameAndType) Tag() uint8 { return TagNameAndType }

type RawMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (RawMethodHandle) Tag() uint8 { return TagMethodHandle }

type RawMethodType struct{ DescriptorIndex uint16 }

func (RawMethodType) Tag() uint8 { return TagMethodType }

type RawDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (RawDynamic) Tag() uint8 { return TagDynamic }

type RawInvokeDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (RawInvokeDynamic) Tag() uint8 { return TagInvokeDynamic }

// RawAttribute is an undecoded attribute blob: a name index into the raw
// constant pool plus its raw info bytes.
type RawAttribute struct {
	NameIndex uint16
	Info      []byte
}

// RawMember is the shared shape of field_info and method_info.
type RawMember struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []RawAttribute
}

// RawClassFile is the direct, untyped decoding of a .class file: every
// index is still an index into RawClassFile.ConstantPool, and every
// attribute is still an opaque byte blob.
type RawClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool []RawConstant // 1-indexed; ConstantPool[0] is nil
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []RawMember
	Methods      []RawMember
	Attributes   []RawAttribute
}

// ParseRaw reads a .class file from r. Any truncation, bad magic, or
// unknown constant-pool tag is a fatal decode error; no partial
// RawClassFile is ever returned.
func ParseRaw(r io.Reader) (*RawClassFile, error) {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("reading magic number: %w", err)
	}
	if magic != classMagic {
		return nil, fmt.Errorf("invalid magic number: 0x%X (expected 0xCAFEBABE)", magic)
	}

	rcf := &RawClassFile{}
	if err := binary.Read(r, binary.BigEndian, &rcf.MinorVersion); err != nil {
		return nil, fmt.Errorf("reading minor version: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &rcf.MajorVersion); err != nil {
		return nil, fmt.Errorf("reading major version: %w", err)
	}

	var cpCount uint16
	if err := binary.Read(r, binary.BigEndian, &cpCount); err != nil {
		return nil, fmt.Errorf("reading constant pool count: %w", err)
	}
	pool, err := parseRawConstantPool(r, cpCount)
	if err != nil {
		return nil, fmt.Errorf("parsing constant pool: %w", err)
	}
	rcf.ConstantPool = pool

	if err := binary.Read(r, binary.BigEndian, &rcf.AccessFlags); err != nil {
		return nil, fmt.Errorf("reading access flags: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &rcf.ThisClass); err != nil {
		return nil, fmt.Errorf("reading this_class: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &rcf.SuperClass); err != nil {
		return nil, fmt.Errorf("reading super_class: %w", err)
	}

	var interfacesCount uint16
	if err := binary.Read(r, binary.BigEndian, &interfacesCount); err != nil {
		return nil, fmt.Errorf("reading interfaces count: %w", err)
	}
	rcf.Interfaces = make([]uint16, interfacesCount)
	for i := range rcf.Interfaces {
		if err := binary.Read(r, binary.BigEndian, &rcf.Interfaces[i]); err != nil {
			return nil, fmt.Errorf("reading interface %d: %w", i, err)
		}
	}

	rcf.Fields, err = parseRawMembers(r)
	if err != nil {
		return nil, fmt.Errorf("parsing fields: %w", err)
	}
	rcf.Methods, err = parseRawMembers(r)
	if err != nil {
		return nil, fmt.Errorf("parsing methods: %w", err)
	}
	rcf.Attributes, err = parseRawAttributes(r)
	if err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}

	return rcf, nil
}

func parseRawMembers(r io.Reader) ([]RawMember, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("reading member count: %w", err)
	}
	members := make([]RawMember, count)
	for i := range members {
		if err := binary.Read(r, binary.BigEndian, &members[i].AccessFlags); err != nil {
			return nil, fmt.Errorf("reading member %d access flags: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &members[i].NameIndex); err != nil {
			return nil, fmt.Errorf("reading member %d name index: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &members[i].DescriptorIndex); err != nil {
			return nil, fmt.Errorf("reading member %d descriptor index: %w", i, err)
		}
		attrs, err := parseRawAttributes(r)
		if err != nil {
			return nil, fmt.Errorf("parsing member %d attributes: %w", i, err)
		}
		members[i].Attributes = attrs
	}
	return members, nil
}

func parseRawAttributes(r io.Reader) ([]RawAttribute, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("reading attribute count: %w", err)
	}
	attrs := make([]RawAttribute, count)
	for i := range attrs {
		if err := binary.Read(r, binary.BigEndian, &attrs[i].NameIndex); err != nil {
			return nil, fmt.Errorf("reading attribute %d name index: %w", i, err)
		}
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("reading attribute %d length: %w", i, err)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("reading attribute %d data: %w", i, err)
		}
		attrs[i].Info = data
	}
	return attrs, nil
}

func parseRawConstantPool(r io.Reader, count uint16) ([]RawConstant, error) {
	pool := make([]RawConstant, count) // pool[0] unused; CP is 1-indexed

	for i := uint16(1); i < count; i++ {
		var tag uint8
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, fmt.Errorf("reading tag at index %d: %w", i, err)
		}

		switch tag {
		case TagUtf8:
			var length uint16
			if err := binary.Read(r, binary.BigEndian, &length); err != nil {
				return nil, fmt.Errorf("reading Utf8 length at index %d: %w", i, err)
			}
			raw := make([]byte, length)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, fmt.Errorf("reading Utf8 bytes at index %d: %w", i, err)
			}
			pool[i] = RawUtf8{Value: string(raw)}

		case TagInteger:
			var v int32
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, fmt.Errorf("reading Integer at index %d: %w", i, err)
			}
			pool[i] = RawInteger{Value: v}

		case TagFloat:
			var bits uint32
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, fmt.Errorf("reading Float at index %d: %w", i, err)
			}
			pool[i] = RawFloat{Value: math.Float32frombits(bits)}

		case TagLong:
			var v int64
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, fmt.Errorf("reading Long at index %d: %w", i, err)
			}
			pool[i] = RawLong{Value: v}
			i++ // long/double occupy two CP slots; the second is a placeholder

		case TagDouble:
			var bits uint64
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, fmt.Errorf("reading Double at index %d: %w", i, err)
			}
			pool[i] = RawDouble{Value: math.Float64frombits(bits)}
			i++

		case TagClass:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading Class at index %d: %w", i, err)
			}
			pool[i] = RawClass{NameIndex: nameIndex}

		case TagString:
			var stringIndex uint16
			if err := binary.Read(r, binary.BigEndian, &stringIndex); err != nil {
				return nil, fmt.Errorf("reading String at index %d: %w", i, err)
			}
			pool[i] = RawString{StringIndex: stringIndex}

		case TagFieldref:
			ci, ni, err := readRefPair(r)
			if err != nil {
				return nil, fmt.Errorf("reading Fieldref at index %d: %w", i, err)
			}
			pool[i] = RawFieldref{ClassIndex: ci, NameAndTypeIndex: ni}

		case TagMethodref:
			ci, ni, err := readRefPair(r)
			if err != nil {
				return nil, fmt.Errorf("reading Methodref at index %d: %w", i, err)
			}
			pool[i] = RawMethodref{ClassIndex: ci, NameAndTypeIndex: ni}

		case TagInterfaceMethodref:
			ci, ni, err := readRefPair(r)
			if err != nil {
				return nil, fmt.Errorf("reading InterfaceMethodref at index %d: %w", i, err)
			}
			pool[i] = RawInterfaceMethodref{ClassIndex: ci, NameAndTypeIndex: ni}

		case TagNameAndType:
			ni, di, err := readRefPair(r)
			if err != nil {
				return nil, fmt.Errorf("reading NameAndType at index %d: %w", i, err)
			}
			pool[i] = RawNameAndType{NameIndex: ni, DescriptorIndex: di}

		case TagMethodHandle:
			var kind uint8
			if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
				return nil, fmt.Errorf("reading MethodHandle kind at index %d: %w", i, err)
			}
			var refIndex uint16
			if err := binary.Read(r, binary.BigEndian, &refIndex); err != nil {
				return nil, fmt.Errorf("reading MethodHandle ref index at index %d: %w", i, err)
			}
			pool[i] = RawMethodHandle{ReferenceKind: kind, ReferenceIndex: refIndex}

		case TagMethodType:
			var descIndex uint16
			if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
				return nil, fmt.Errorf("reading MethodType at index %d: %w", i, err)
			}
			pool[i] = RawMethodType{DescriptorIndex: descIndex}

		case TagDynamic:
			bi, ni, err := readRefPair(r)
			if err != nil {
				return nil, fmt.Errorf("reading Dynamic at index %d: %w", i, err)
			}
			pool[i] = RawDynamic{BootstrapMethodAttrIndex: bi, NameAndTypeIndex: ni}

		case TagInvokeDynamic:
			bi, ni, err := readRefPair(r)
			if err != nil {
				return nil, fmt.Errorf("reading InvokeDynamic at index %d: %w", i, err)
			}
			pool[i] = RawInvokeDynamic{BootstrapMethodAttrIndex: bi, NameAndTypeIndex: ni}

		default:
			return nil, fmt.Errorf("unknown constant pool tag %d at index %d", tag, i)
		}
	}

	return pool, nil
}

func readRefPair(r io.Reader) (uint16, uint16, error) {
	var a, b uint16
	if err := binary.Read(r, binary.BigEndian, &a); err != nil {
		return 0, 0, err
	}
	if err := binary.Read(r, binary.BigEndian, &b); err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
