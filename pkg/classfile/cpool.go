package classfile

import "fmt"

// RuntimeCPEntry is implemented by every resolved constant-pool entry. The
// runtime pool has the same length and indices as the raw pool it was
// decoded from: slot 0 is unused, so a 1-based class-file index is used
// directly as the Go slice index.
type RuntimeCPEntry interface {
	Tag() uint8
}

const TagResolved = 0 // standalone Utf8/NameAndType entries collapse to this

type CPClass struct{ Name string }

func (CPClass) Tag() uint8 { return TagClass }

type CPFieldRef struct{ Class, Name, Descriptor string }

func (CPFieldRef) Tag() uint8 { return TagFieldref }

type CPMethodRef struct{ Class, Name, Descriptor string }

func (CPMethodRef) Tag() uint8 { return TagMethodref }

type CPInterfaceMethodRef struct{ Class, Name, Descriptor string }

func (CPInterfaceMethodRef) Tag() uint8 { return TagInterfaceMethodref }

type CPString struct{ Value string }

func (CPString) Tag() uint8 { return TagString }

type CPInteger struct{ Value int32 }

func (CPInteger) Tag() uint8 { return TagInteger }

type CPFloat struct{ Value float32 }

func (CPFloat) Tag() uint8 { return TagFloat }

type CPLong struct{ Value int64 }

func (CPLong) Tag() uint8 { return TagLong }

type CPDouble struct{ Value float64 }

func (CPDouble) Tag() uint8 { return TagDouble }

type CPMethodHandle struct {
	ReferenceKind uint8
	Ref           RuntimeCPEntry
}

func (CPMethodHandle) Tag() uint8 { return TagMethodHandle }

type CPInvokeDynamic struct {
	BootstrapMethodAttrIndex uint16
	Name, Descriptor         string
}

func (CPInvokeDynamic) Tag() uint8 { return TagInvokeDynamic }

// CPResolved is the placeholder left behind for a Utf8 or NameAndType entry
// that served only as indirection for another entry. Its payload is kept
// around so index-based lookups (e.g. a field_info descriptor_index) still
// resolve against a self-contained runtime pool rather than the raw one.
type CPResolved struct {
	Utf8             string // set when this slot held a standalone Utf8
	Name, Descriptor string // set when this slot held a standalone NameAndType
}

func (CPResolved) Tag() uint8 { return TagResolved }

// DecodeConstantPool flattens a raw, cross-indexed constant pool into a
// self-contained runtime pool of identical length. Any index that fails to
// resolve the expected tag is a fatal decode error.
func DecodeConstantPool(raw []RawConstant) ([]RuntimeCPEntry, error) {
	pool := make([]RuntimeCPEntry, len(raw))

	for i := 1; i < len(raw); i++ {
		if raw[i] == nil {
			continue // second slot of a long/double
		}
		entry, err := decodeEntry(raw, uint16(i))
		if err != nil {
			return nil, fmt.Errorf("decoding constant pool entry %d: %w", i, err)
		}
		pool[i] = entry
	}
	return pool, nil
}

func decodeEntry(raw []RawConstant, index uint16) (RuntimeCPEntry, error) {
	switch c := raw[index].(type) {
	case RawUtf8:
		return CPResolved{Utf8: c.Value}, nil
	case RawNameAndType:
		name, err := rawUtf8At(raw, c.NameIndex)
		if err != nil {
			return nil, fmt.Errorf("NameAndType name: %w", err)
		}
		desc, err := rawUtf8At(raw, c.DescriptorIndex)
		if err != nil {
			return nil, fmt.Errorf("NameAndType descriptor: %w", err)
		}
		return CPResolved{Name: name, Descriptor: desc}, nil
	case RawInteger:
		return CPInteger{Value: c.Value}, nil
	case RawFloat:
		return CPFloat{Value: c.Value}, nil
	case RawLong:
		return CPLong{Value: c.Value}, nil
	case RawDouble:
		return CPDouble{Value: c.Value}, nil
	case RawClass:
		name, err := rawUtf8At(raw, c.NameIndex)
		if err != nil {
			return nil, fmt.Errorf("Class name: %w", err)
		}
		return CPClass{Name: name}, nil
	case RawString:
		value, err := rawUtf8At(raw, c.StringIndex)
		if err != nil {
			return nil, fmt.Errorf("String value: %w", err)
		}
		return CPString{Value: value}, nil
	case RawFieldref:
		class, name, desc, err := resolveRef(raw, c.ClassIndex, c.NameAndTypeIndex)
		if err != nil {
			return nil, fmt.Errorf("Fieldref: %w", err)
		}
		return CPFieldRef{Class: class, Name: name, Descriptor: desc}, nil
	case RawMethodref:
		class, name, desc, err := resolveRef(raw, c.ClassIndex, c.NameAndTypeIndex)
		if err != nil {
			return nil, fmt.Errorf("Methodref: %w", err)
		}
		return CPMethodRef{Class: class, Name: name, Descriptor: desc}, nil
	case RawInterfaceMethodref:
		class, name, desc, err := resolveRef(raw, c.ClassIndex, c.NameAndTypeIndex)
		if err != nil {
			return nil, fmt.Errorf("InterfaceMethodref: %w", err)
		}
		return CPInterfaceMethodRef{Class: class, Name: name, Descriptor: desc}, nil
	case RawMethodHandle:
		if int(c.ReferenceIndex) >= len(raw) {
			return nil, fmt.Errorf("MethodHandle reference index %d out of range", c.ReferenceIndex)
		}
		ref, err := decodeEntry(raw, c.ReferenceIndex)
		if err != nil {
			return nil, fmt.Errorf("MethodHandle reference: %w", err)
		}
		return CPMethodHandle{ReferenceKind: c.ReferenceKind, Ref: ref}, nil
	case RawMethodType:
		return CPResolved{Utf8: ""}, nil
	case RawDynamic:
		if int(c.NameAndTypeIndex) >= len(raw) {
			return nil, fmt.Errorf("Dynamic name_and_type index %d out of range", c.NameAndTypeIndex)
		}
		return CPResolved{}, nil
	case RawInvokeDynamic:
		nat, ok := raw[c.NameAndTypeIndex].(RawNameAndType)
		if !ok {
			return nil, fmt.Errorf("InvokeDynamic name_and_type_index %d is not NameAndType", c.NameAndTypeIndex)
		}
		name, err := rawUtf8At(raw, nat.NameIndex)
		if err != nil {
			return nil, fmt.Errorf("InvokeDynamic name: %w", err)
		}
		desc, err := rawUtf8At(raw, nat.DescriptorIndex)
		if err != nil {
			return nil, fmt.Errorf("InvokeDynamic descriptor: %w", err)
		}
		return CPInvokeDynamic{BootstrapMethodAttrIndex: c.BootstrapMethodAttrIndex, Name: name, Descriptor: desc}, nil
	default:
		return nil, fmt.Errorf("unhandled raw constant tag %d", raw[index].Tag())
	}
}

func rawUtf8At(raw []RawConstant, index uint16) (string, error) {
	if int(index) >= len(raw) || raw[index] == nil {
		return "", fmt.Errorf("invalid constant pool index %d", index)
	}
	u, ok := raw[index].(RawUtf8)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Utf8 (tag=%d)", index, raw[index].Tag())
	}
	return u.Value, nil
}

func resolveRef(raw []RawConstant, classIndex, natIndex uint16) (class, name, desc string, err error) {
	if int(classIndex) >= len(raw) {
		return "", "", "", fmt.Errorf("invalid class index %d", classIndex)
	}
	rc, ok := raw[classIndex].(RawClass)
	if !ok {
		return "", "", "", fmt.Errorf("constant pool index %d is not Class", classIndex)
	}
	class, err = rawUtf8At(raw, rc.NameIndex)
	if err != nil {
		return "", "", "", err
	}

	if int(natIndex) >= len(raw) {
		return "", "", "", fmt.Errorf("invalid name_and_type index %d", natIndex)
	}
	nat, ok := raw[natIndex].(RawNameAndType)
	if !ok {
		return "", "", "", fmt.Errorf("constant pool index %d is not NameAndType", natIndex)
	}
	name, err = rawUtf8At(raw, nat.NameIndex)
	if err != nil {
		return "", "", "", err
	}
	desc, err = rawUtf8At(raw, nat.DescriptorIndex)
	if err != nil {
		return "", "", "", err
	}
	return class, name, desc, nil
}

// RuntimeUtf8 returns the string carried by a CPResolved Utf8 slot at the
// given 1-based constant-pool index.
func RuntimeUtf8(pool []RuntimeCPEntry, index uint16) (string, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return "", fmt.Errorf("invalid constant pool index %d", index)
	}
	r, ok := pool[index].(CPResolved)
	if !ok || r.Name != "" {
		return "", fmt.Errorf("constant pool index %d is not Utf8", index)
	}
	return r.Utf8, nil
}

// RuntimeClassName returns the name carried by a CPClass entry.
func RuntimeClassName(pool []RuntimeCPEntry, index uint16) (string, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return "", fmt.Errorf("invalid constant pool index %d", index)
	}
	c, ok := pool[index].(CPClass)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Class", index)
	}
	return c.Name, nil
}
