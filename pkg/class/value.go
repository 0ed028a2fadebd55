package class

import "fmt"

// ValueKind tags the variant of a FieldValue.
type ValueKind int

const (
	KindByte ValueKind = iota
	KindShort
	KindInt
	KindChar
	KindBoolean
	KindLong
	KindFloat
	KindDouble
	KindReference
)

func (k ValueKind) String() string {
	switch k {
	case KindByte:
		return "byte"
	case KindShort:
		return "short"
	case KindInt:
		return "int"
	case KindChar:
		return "char"
	case KindBoolean:
		return "boolean"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindReference:
		return "reference"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// FieldValue is a sum over the JVM's primitive field/value types (booleans
// are encoded as 0/1 in Int) and an optional reference to a shared
// instance.
type FieldValue struct {
	Kind    ValueKind
	Int     int32 // byte/short/int/char/boolean
	Long    int64
	Float32 float32
	Float64 float64
	Ref     Instance // nil is the JVM null
}

func ByteValue(v int32) FieldValue    { return FieldValue{Kind: KindByte, Int: v} }
func ShortValue(v int32) FieldValue   { return FieldValue{Kind: KindShort, Int: v} }
func IntValue(v int32) FieldValue     { return FieldValue{Kind: KindInt, Int: v} }
func CharValue(v int32) FieldValue    { return FieldValue{Kind: KindChar, Int: v} }
func BoolValue(v bool) FieldValue {
	if v {
		return FieldValue{Kind: KindBoolean, Int: 1}
	}
	return FieldValue{Kind: KindBoolean, Int: 0}
}
func LongValue(v int64) FieldValue    { return FieldValue{Kind: KindLong, Long: v} }
func FloatValue(v float32) FieldValue { return FieldValue{Kind: KindFloat, Float32: v} }
func DoubleValue(v float64) FieldValue { return FieldValue{Kind: KindDouble, Float64: v} }
func RefValue(ref Instance) FieldValue { return FieldValue{Kind: KindReference, Ref: ref} }
func NullValue() FieldValue            { return FieldValue{Kind: KindReference, Ref: nil} }

func (v FieldValue) IsNull() bool { return v.Kind == KindReference && v.Ref == nil }
func (v FieldValue) Bool() bool   { return v.Int != 0 }

// SlotSize returns 2 for long/double and 1 for everything else — the unit
// spec.md uses for local-variable and operand-stack depth accounting.
func (v FieldValue) SlotSize() int {
	if v.Kind == KindLong || v.Kind == KindDouble {
		return 2
	}
	return 1
}
