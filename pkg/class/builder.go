package class

import (
	"fmt"

	"github.com/cmjava/cmjava/pkg/bytecode"
	"github.com/cmjava/cmjava/pkg/classfile"
)

const accStatic = 0x0008

// BuildClass turns a raw, parsed class file into a BytecodeClass (spec
// section 4.5). The superclass, if any, must already be registered in heap;
// BuildClass does not load it, and heap.LoadClassFile's callers supply
// superclasses before their subclasses.
func BuildClass(rcf *classfile.RawClassFile, heap Heap) (*BytecodeClass, error) {
	pool, err := classfile.DecodeConstantPool(rcf.ConstantPool)
	if err != nil {
		return nil, fmt.Errorf("building class: %w", err)
	}
	if err := classfile.DecodeClassAttributes(rcf.Attributes, pool); err != nil {
		return nil, fmt.Errorf("building class: %w", err)
	}

	thisName, err := classfile.RuntimeClassName(pool, rcf.ThisClass)
	if err != nil {
		return nil, fmt.Errorf("resolving this_class: %w", err)
	}
	id := ParseClassIdentifier(thisName)

	var super Class
	if rcf.SuperClass != 0 {
		superName, err := classfile.RuntimeClassName(pool, rcf.SuperClass)
		if err != nil {
			return nil, fmt.Errorf("resolving super_class: %w", err)
		}
		superID := ParseClassIdentifier(superName)
		sc, ok := heap.FindClass(superID)
		if !ok {
			return nil, fmt.Errorf("linking %s: superclass %s not found", id, superID)
		}
		super = sc
	}

	methods, err := buildMethods(rcf, pool)
	if err != nil {
		return nil, fmt.Errorf("building class %s: %w", id, err)
	}

	statics, instFields, err := buildFields(rcf, pool, heap)
	if err != nil {
		return nil, fmt.Errorf("building class %s: %w", id, err)
	}

	return NewBytecodeClass(id, methods, statics, instFields, super), nil
}

func buildMethods(rcf *classfile.RawClassFile, pool []classfile.RuntimeCPEntry) ([]*Method, error) {
	methods := make([]*Method, 0, len(rcf.Methods))
	for _, m := range rcf.Methods {
		name, err := classfile.RuntimeUtf8(pool, m.NameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving method name: %w", err)
		}
		desc, err := classfile.RuntimeUtf8(pool, m.DescriptorIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving method %s descriptor: %w", name, err)
		}
		params, ret, err := ParseMethodDescriptor(desc)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", name, err)
		}
		code, err := classfile.DecodeCode(m.Attributes, pool)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", name, err)
		}
		if code == nil {
			return nil, fmt.Errorf("method %s%s has no Code attribute (abstract/native methods are not supported)", name, desc)
		}
		instrs, offsetOf, err := bytecode.Decode(code.Bytes, pool)
		if err != nil {
			return nil, fmt.Errorf("method %s%s: decoding bytecode: %w", name, desc, err)
		}
		handlers, err := buildExceptionTable(code.ExceptionTable, pool, offsetOf)
		if err != nil {
			return nil, fmt.Errorf("method %s%s: %w", name, desc, err)
		}
		methods = append(methods, &Method{
			Name:       name,
			Descriptor: desc,
			ParamTypes: params,
			ReturnType: ret,
			IsStatic:   m.AccessFlags&accStatic != 0,
			Code: BytecodeCode{
				MaxStack:       code.MaxStack,
				MaxLocals:      code.MaxLocals,
				Instructions:   instrs,
				ExceptionTable: handlers,
			},
		})
	}
	return methods, nil
}

// buildExceptionTable resolves each row's CatchType constant-pool index to
// a class identifier once, at build time, so the executor's unwind path
// never needs the constant pool. StartPC/EndPC/HandlerPC are class-file
// byte offsets; offsetOf (the same byte-offset -> instruction-index table
// bytecode.Decode built while remapping branch targets) converts them to
// the decoded-instruction indices the executor's pc actually counts in.
func buildExceptionTable(table []classfile.ExceptionTableEntry, pool []classfile.RuntimeCPEntry, offsetOf map[int]int) ([]ExceptionHandler, error) {
	remap := func(offset uint16) (int, error) {
		idx, ok := offsetOf[int(offset)]
		if !ok {
			return 0, fmt.Errorf("exception table offset %d does not align to an instruction boundary", offset)
		}
		return idx, nil
	}

	handlers := make([]ExceptionHandler, len(table))
	for i, row := range table {
		startPC, err := remap(row.StartPC)
		if err != nil {
			return nil, err
		}
		endPC, err := remap(row.EndPC)
		if err != nil {
			return nil, err
		}
		handlerPC, err := remap(row.HandlerPC)
		if err != nil {
			return nil, err
		}
		h := ExceptionHandler{StartPC: startPC, EndPC: endPC, HandlerPC: handlerPC}
		if row.CatchType != 0 {
			name, err := classfile.RuntimeClassName(pool, row.CatchType)
			if err != nil {
				return nil, fmt.Errorf("resolving exception handler catch_type: %w", err)
			}
			id := ParseClassIdentifier(name)
			h.CatchType = &id
		}
		handlers[i] = h
	}
	return handlers, nil
}

func buildFields(rcf *classfile.RawClassFile, pool []classfile.RuntimeCPEntry, heap Heap) ([]*Field, []FieldDescriptor, error) {
	var statics []*Field
	var instFields []FieldDescriptor
	for _, f := range rcf.Fields {
		name, err := classfile.RuntimeUtf8(pool, f.NameIndex)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving field name: %w", err)
		}
		desc, err := classfile.RuntimeUtf8(pool, f.DescriptorIndex)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving field %s descriptor: %w", name, err)
		}
		constant, err := classfile.DecodeFieldAttributes(f.Attributes, pool)
		if err != nil {
			return nil, nil, fmt.Errorf("field %s: %w", name, err)
		}
		value := DefaultValueForDescriptor(desc)
		if constant != nil {
			v, err := constantFieldValue(desc, constant, heap)
			if err != nil {
				return nil, nil, fmt.Errorf("field %s: %w", name, err)
			}
			value = v
		}
		if f.AccessFlags&accStatic != 0 {
			statics = append(statics, &Field{Name: name, Value: value})
		} else {
			instFields = append(instFields, FieldDescriptor{Name: name, Default: value})
		}
	}
	return statics, instFields, nil
}

// constantFieldValue converts a ConstantValue attribute's constant pool
// entry into the FieldValue the field's descriptor calls for. String
// constants are materialized immediately via heap — the heap is already
// booted with the String built-in by the time any class is loaded.
func constantFieldValue(desc string, entry classfile.RuntimeCPEntry, heap Heap) (FieldValue, error) {
	switch v := entry.(type) {
	case classfile.CPInteger:
		switch desc {
		case "B":
			return ByteValue(v.Value), nil
		case "S":
			return ShortValue(v.Value), nil
		case "C":
			return CharValue(v.Value), nil
		case "Z":
			return BoolValue(v.Value != 0), nil
		case "I":
			return IntValue(v.Value), nil
		}
	case classfile.CPLong:
		if desc == "J" {
			return LongValue(v.Value), nil
		}
	case classfile.CPFloat:
		if desc == "F" {
			return FloatValue(v.Value), nil
		}
	case classfile.CPDouble:
		if desc == "D" {
			return DoubleValue(v.Value), nil
		}
	case classfile.CPString:
		if desc == "Ljava/lang/String;" {
			return RefValue(heap.NewString(v.Value)), nil
		}
	}
	return FieldValue{}, fmt.Errorf("ConstantValue type mismatch for descriptor %q", desc)
}
