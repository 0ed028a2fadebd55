package class

// Field is a static field slot: shared by all instances of its class and
// mutated in place via getstatic/putstatic.
type Field struct {
	Name  string
	Value FieldValue
}
