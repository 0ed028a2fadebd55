// Package heap implements the process-wide class registry (spec section
// 4.6): it owns every loaded class, boots the built-in singletons and
// primitive array classes, and mints object/array classes on demand.
package heap

import (
	"fmt"
	"io"
	"strings"

	"github.com/cmjava/cmjava/pkg/builtin"
	"github.com/cmjava/cmjava/pkg/class"
	"github.com/cmjava/cmjava/pkg/classfile"
	"github.com/cmjava/cmjava/pkg/cmerr"
)

// Heap is the class registry. It satisfies class.Heap, the capability set
// native handlers and the executor depend on.
type Heap struct {
	classes      map[class.ClassIdentifier]class.Class
	arrayClasses map[string]*builtin.ArrayClass
}

// New boots a Heap with every built-in class registered: Object, String,
// Throwable and the runtime exception hierarchy, PrintStream/InputStream
// (with System.out/System.in bound to stdout/stdin), System, and the eight
// primitive array classes.
func New(stdout io.Writer, stdin io.Reader) *Heap {
	h := &Heap{
		classes:      make(map[class.ClassIdentifier]class.Class),
		arrayClasses: make(map[string]*builtin.ArrayClass),
	}

	h.register(builtin.Object)
	h.register(builtin.String)
	h.register(builtin.Throwable)
	h.register(builtin.NullPointerException)
	h.register(builtin.ArrayIndexOutOfBoundsException)
	h.register(builtin.ArithmeticException)
	h.register(builtin.ClassCastException)
	h.register(builtin.NegativeArraySizeException)
	h.register(builtin.StackOverflowError)
	h.register(builtin.PrintStream)

	out := builtin.NewPrintStreamInstance(stdout)
	stdinClass := builtin.NewInputStreamClass("java/io", "InputStream", stdin)
	fileInClass := builtin.NewInputStreamClass("java/io", "FileInputStream", stdin)
	h.register(stdinClass)
	h.register(fileInClass)
	in, err := stdinClass.NewInstance(stdinClass)
	if err != nil {
		cmerr.Violatef("booting System.in: %v", err)
	}

	h.register(builtin.NewSystemClass(out, in.(*builtin.InputStreamInstance)))

	for _, code := range builtin.PrimitiveComponentDescriptors {
		arr := builtin.NewArrayClass(code, nil)
		h.arrayClasses[arr.ClassIdentifier().FullyQualifiedName()] = arr
		h.register(arr)
	}

	return h
}

func (h *Heap) register(c class.Class) {
	h.classes[c.ClassIdentifier()] = c
}

// RegisterBytecodeClass adds a freshly built class to the registry. It is
// a LinkError for a class to already be registered under the same
// identifier.
func (h *Heap) RegisterBytecodeClass(c class.Class) error {
	id := c.ClassIdentifier()
	if _, exists := h.classes[id]; exists {
		return cmerr.Link("registering class", fmt.Errorf("class %s already loaded", id))
	}
	h.register(c)
	return nil
}

// FindClass implements class.Heap.
func (h *Heap) FindClass(id class.ClassIdentifier) (class.Class, bool) {
	c, ok := h.classes[id]
	return c, ok
}

// FindArrayClass implements class.Heap: componentDescriptor is the
// leaf/object component's field-type descriptor ("I", "Ljava/lang/String;",
// ...), dimensions is the total array depth requested.
func (h *Heap) FindArrayClass(componentDescriptor string, dimensions int) (class.Class, error) {
	if dimensions < 1 {
		return nil, cmerr.Link("array class", fmt.Errorf("non-positive dimensions %d", dimensions))
	}
	full := strings.Repeat("[", dimensions) + componentDescriptor
	if c, ok := h.arrayClasses[full]; ok {
		return c, nil
	}

	if dimensions == 1 {
		if isPrimitiveDescriptor(componentDescriptor) {
			cmerr.Violatef("1-dimensional primitive array class %s missing at boot", full)
		}
		compClass, err := h.resolveComponentClass(componentDescriptor)
		if err != nil {
			return nil, err
		}
		arr := builtin.NewArrayClass(componentDescriptor, compClass)
		h.arrayClasses[full] = arr
		return arr, nil
	}

	innerFull := strings.Repeat("[", dimensions-1) + componentDescriptor
	innerClass, err := h.FindArrayClass(componentDescriptor, dimensions-1)
	if err != nil {
		return nil, err
	}
	arr := builtin.NewArrayClass(innerFull, innerClass)
	h.arrayClasses[full] = arr
	return arr, nil
}

func isPrimitiveDescriptor(desc string) bool {
	switch desc {
	case "Z", "B", "C", "D", "F", "I", "J", "S":
		return true
	}
	return false
}

func (h *Heap) resolveComponentClass(descriptor string) (class.Class, error) {
	if !strings.HasPrefix(descriptor, "L") || !strings.HasSuffix(descriptor, ";") {
		return nil, cmerr.Link("array class", fmt.Errorf("unsupported array component descriptor %q", descriptor))
	}
	name := descriptor[1 : len(descriptor)-1]
	id := class.ParseClassIdentifier(name)
	c, ok := h.FindClass(id)
	if !ok {
		return nil, cmerr.Link("array class", fmt.Errorf("component class %s not found", id))
	}
	return c, nil
}

// NewInstance implements class.Heap.
func (h *Heap) NewInstance(id class.ClassIdentifier) (class.Instance, error) {
	c, ok := h.FindClass(id)
	if !ok {
		return nil, cmerr.Link("instantiating class", fmt.Errorf("class %s not found", id))
	}
	return c.NewInstance(c)
}

// NewString implements class.Heap.
func (h *Heap) NewString(s string) class.Instance {
	return builtin.NewStringInstance(s)
}

// StringValue implements class.Heap.
func (h *Heap) StringValue(i class.Instance) (string, bool) {
	s, ok := i.(*builtin.StringInstance)
	if !ok {
		return "", false
	}
	return s.Value(), true
}

// NewException allocates a runtime exception instance with message set,
// bypassing <init> — used by the executor when an opcode itself raises a
// runtime exception (division by zero, null dereference, bad array index,
// bad cast, negative array size).
func (h *Heap) NewException(c *builtin.ThrowableClass, message string) *builtin.ThrowableInstance {
	return builtin.NewThrowableInstance(c, message)
}

// LoadClassFile parses, links, and registers one class file. Its
// superclass, if any, must already be registered — required by spec
// section 4.5's eager-loading rule; callers must supply class files to
// this interpreter in dependency order.
func LoadClassFile(h *Heap, r io.Reader) (class.Class, error) {
	rcf, err := classfile.ParseRaw(r)
	if err != nil {
		return nil, cmerr.Decode("parsing class file", err)
	}
	built, err := class.BuildClass(rcf, h)
	if err != nil {
		return nil, cmerr.Link("building class", err)
	}
	if err := h.RegisterBytecodeClass(built); err != nil {
		return nil, err
	}
	return built, nil
}
