package exec

import "github.com/cmjava/cmjava/pkg/class"

// thrownSignal is the error a NativeFrame.Throw call returns, and the
// value athrow wraps directly. The dispatch loop recognizes it and
// unwinds against the current frame's exception table exactly as it
// would for a bytecode-raised exception, instead of treating it as a
// fatal interpreter error.
type thrownSignal struct {
	instance class.Instance
}

func (t *thrownSignal) Error() string {
	return "uncaught " + t.instance.Class().ClassIdentifier().String()
}

func asThrown(err error) (*thrownSignal, bool) {
	ts, ok := err.(*thrownSignal)
	return ts, ok
}

// nativeFrameAdapter implements class.NativeFrame for the duration of one
// native method call: its dense call arguments (receiver at 0, if any,
// then each parameter) and a handle back to the heap.
type nativeFrameAdapter struct {
	args []class.FieldValue
	heap class.Heap
}

func (n *nativeFrameAdapter) Arg(i int) class.FieldValue { return n.args[i] }
func (n *nativeFrameAdapter) NumArgs() int                { return len(n.args) }
func (n *nativeFrameAdapter) Heap() class.Heap            { return n.heap }

func (n *nativeFrameAdapter) Throw(instance class.Instance) error {
	return &thrownSignal{instance: instance}
}
