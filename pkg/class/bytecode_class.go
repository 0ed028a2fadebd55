package class

// BytecodeClass is the Class variant produced by the class builder from a
// loaded .class file (spec section 4.5).
type BytecodeClass struct {
	identifier  ClassIdentifier
	methods     []*Method
	statics     []*Field
	instFields  []FieldDescriptor
	super       Class
}

// NewBytecodeClass assembles a BytecodeClass. Used only by the builder.
func NewBytecodeClass(id ClassIdentifier, methods []*Method, statics []*Field, instFields []FieldDescriptor, super Class) *BytecodeClass {
	return &BytecodeClass{
		identifier: id,
		methods:    methods,
		statics:    statics,
		instFields: instFields,
		super:      super,
	}
}

func (c *BytecodeClass) ClassIdentifier() ClassIdentifier       { return c.identifier }
func (c *BytecodeClass) Methods() []*Method                     { return c.methods }
func (c *BytecodeClass) StaticFields() []*Field                 { return c.statics }
func (c *BytecodeClass) InstanceFieldDescriptors() []FieldDescriptor { return c.instFields }
func (c *BytecodeClass) SuperClass() Class                      { return c.super }

func (c *BytecodeClass) NewInstance(self Class) (Instance, error) {
	if bc, ok := self.(*BytecodeClass); !ok || bc != c {
		return nil, errNotSelf(c)
	}
	var parent Instance
	if c.super != nil {
		p, err := c.super.NewInstance(c.super)
		if err != nil {
			return nil, err
		}
		parent = p
	}
	fields := make([]FieldValue, len(c.instFields))
	for i, d := range c.instFields {
		fields[i] = d.Default
	}
	return &BytecodeInstance{class: c, parent: parent, fields: fields}, nil
}

// BytecodeInstance is the Instance variant holding a bytecode class's
// state: a back-reference to its class, a parent-instance link mirroring
// the class's super_class chain, and this class level's own instance
// fields (spec section 3).
type BytecodeInstance struct {
	class  *BytecodeClass
	parent Instance
	fields []FieldValue
}

func (i *BytecodeInstance) Class() Class    { return i.class }
func (i *BytecodeInstance) Parent() Instance { return i.parent }

// FieldAt returns a pointer to this instance level's field slot by name,
// for in-place mutation by putfield. It does NOT walk the parent chain —
// getfield/putfield in the executor pick the right level using the
// Fieldref's declared class, per the shadowed-field invariant in spec
// section 8.
func (i *BytecodeInstance) FieldAt(name string) (*FieldValue, bool) {
	for idx := range i.fields {
		if i.class.instFields[idx].Name == name {
			return &i.fields[idx], true
		}
	}
	return nil, false
}

// InstanceAtClass walks the parent chain (including i itself) looking for
// the level whose class identifier matches id, returning the
// BytecodeInstance that owns that level's fields.
func InstanceAtClass(i Instance, id ClassIdentifier) (*BytecodeInstance, bool) {
	for cur := i; cur != nil; {
		bi, ok := cur.(*BytecodeInstance)
		if !ok {
			return nil, false
		}
		if bi.class.identifier == id {
			return bi, true
		}
		cur = bi.parent
	}
	return nil, false
}
