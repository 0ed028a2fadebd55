package builtin

import (
	"fmt"
	"io"
	"strconv"

	"github.com/cmjava/cmjava/pkg/class"
)

// PrintStreamClass is the singleton java/io/PrintStream class. Actual
// instances (System.out) are built with NewPrintStreamInstance, which
// binds the Go io.Writer console output is written to.
type PrintStreamClass struct{}

var PrintStream = &PrintStreamClass{}

func (c *PrintStreamClass) ClassIdentifier() class.ClassIdentifier {
	return class.ClassIdentifier{Package: "java/io", Name: "PrintStream"}
}
func (c *PrintStreamClass) Methods() []*class.Method                 { return printStreamMethods }
func (c *PrintStreamClass) StaticFields() []*class.Field              { return nil }
func (c *PrintStreamClass) InstanceFieldDescriptors() []class.FieldDescriptor { return nil }
func (c *PrintStreamClass) SuperClass() class.Class                  { return Object }

func (c *PrintStreamClass) NewInstance(self class.Class) (class.Instance, error) {
	return nil, fmt.Errorf("PrintStream has no bytecode-visible constructor")
}

// printlnOverload builds a println(<descriptor>)V method whose handler
// formats frame.Arg(1) with format and writes it with a trailing newline.
func printlnOverload(descriptor string, format func(class.FieldValue) string) *class.Method {
	return &class.Method{
		Name:       "println",
		Descriptor: "(" + descriptor + ")V",
		ParamTypes: []string{descriptor},
		Code: class.NativeCode{Handler: func(frame class.NativeFrame) (class.NativeResult, error) {
			ps, ok := frame.Arg(0).Ref.(*PrintStreamInstance)
			if !ok {
				return class.NativeResult{}, fmt.Errorf("println: receiver is not a PrintStreamInstance")
			}
			fmt.Fprintln(ps.w, format(frame.Arg(1)))
			return class.NativeVoid(), nil
		}},
	}
}

var printStreamMethods = []*class.Method{
	printlnOverload("Ljava/lang/Object;", formatObjectArg),
	printlnOverload("Ljava/lang/String;", formatStringArg),
	printlnOverload("Z", func(v class.FieldValue) string {
		if v.Bool() {
			return "true"
		}
		return "false"
	}),
	printlnOverload("C", func(v class.FieldValue) string { return string(rune(v.Int)) }),
	printlnOverload("D", func(v class.FieldValue) string { return formatJavaDouble(v.Float64) }),
	printlnOverload("F", func(v class.FieldValue) string { return formatJavaFloat(v.Float32) }),
	printlnOverload("I", func(v class.FieldValue) string { return strconv.FormatInt(int64(v.Int), 10) }),
	printlnOverload("J", func(v class.FieldValue) string { return strconv.FormatInt(v.Long, 10) }),
	{
		Name:       "println",
		Descriptor: "()V",
		Code: class.NativeCode{Handler: func(frame class.NativeFrame) (class.NativeResult, error) {
			ps, ok := frame.Arg(0).Ref.(*PrintStreamInstance)
			if !ok {
				return class.NativeResult{}, fmt.Errorf("println: receiver is not a PrintStreamInstance")
			}
			fmt.Fprintln(ps.w)
			return class.NativeVoid(), nil
		}},
	},
}

func formatObjectArg(v class.FieldValue) string {
	if v.IsNull() {
		return "null"
	}
	if s, ok := v.Ref.(*StringInstance); ok {
		return s.Value()
	}
	id := v.Ref.Class().ClassIdentifier()
	return fmt.Sprintf("%s@%p", id.FullyQualifiedName(), v.Ref)
}

func formatStringArg(v class.FieldValue) string {
	if v.IsNull() {
		return "null"
	}
	s, ok := v.Ref.(*StringInstance)
	if !ok {
		return formatObjectArg(v)
	}
	return s.Value()
}

// formatJavaDouble mimics enough of Double.toString to keep integral
// values distinguishable from ints in println output.
func formatJavaDouble(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	return ensureDecimalPoint(s)
}

func formatJavaFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'g', -1, 32)
	return ensureDecimalPoint(s)
}

func ensureDecimalPoint(s string) string {
	for _, r := range s {
		if r == '.' || r == 'e' || r == 'E' {
			return s
		}
	}
	return s + ".0"
}

// PrintStreamInstance is the instance backing System.out (and any other
// stream built over an io.Writer).
type PrintStreamInstance struct {
	parent class.Instance
	w      io.Writer
}

// NewPrintStreamInstance builds a PrintStream instance writing to w.
func NewPrintStreamInstance(w io.Writer) *PrintStreamInstance {
	parent, err := Object.NewInstance(Object)
	if err != nil {
		panic(err)
	}
	return &PrintStreamInstance{parent: parent, w: w}
}

func (i *PrintStreamInstance) Class() class.Class { return PrintStream }

// InputStreamClass backs both java/io/InputStream and
// java/io/FileInputStream: both read bytes from the same kind of source
// (standard input, in this interpreter's minimum runtime) via read().
type InputStreamClass struct {
	identifier class.ClassIdentifier
	reader     io.Reader
}

// NewInputStreamClass builds an InputStream-shaped class reading from r.
func NewInputStreamClass(pkg, name string, r io.Reader) *InputStreamClass {
	return &InputStreamClass{identifier: class.ClassIdentifier{Package: pkg, Name: name}, reader: r}
}

func (c *InputStreamClass) ClassIdentifier() class.ClassIdentifier { return c.identifier }
func (c *InputStreamClass) Methods() []*class.Method                 { return inputStreamMethods }
func (c *InputStreamClass) StaticFields() []*class.Field              { return nil }
func (c *InputStreamClass) InstanceFieldDescriptors() []class.FieldDescriptor { return nil }
func (c *InputStreamClass) SuperClass() class.Class                  { return Object }

func (c *InputStreamClass) NewInstance(self class.Class) (class.Instance, error) {
	if !class.IdentityEqual(self, c) {
		return nil, errNotSelf(c)
	}
	parent, err := Object.NewInstance(Object)
	if err != nil {
		return nil, err
	}
	return &InputStreamInstance{class: c, parent: parent, r: c.reader}, nil
}

var inputStreamMethods = []*class.Method{
	{
		Name:       "read",
		Descriptor: "()I",
		ReturnType: "I",
		Code: class.NativeCode{Handler: func(frame class.NativeFrame) (class.NativeResult, error) {
			is, ok := frame.Arg(0).Ref.(*InputStreamInstance)
			if !ok {
				return class.NativeResult{}, fmt.Errorf("read: receiver is not an InputStreamInstance")
			}
			var b [1]byte
			n, err := is.r.Read(b[:])
			if n == 0 || err != nil {
				return class.NativeReturn(class.IntValue(-1)), nil
			}
			return class.NativeReturn(class.IntValue(int32(b[0]))), nil
		}},
	},
}

// InputStreamInstance backs System.in.
type InputStreamInstance struct {
	class  *InputStreamClass
	parent class.Instance
	r      io.Reader
}

func (i *InputStreamInstance) Class() class.Class { return i.class }
