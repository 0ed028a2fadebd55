// Package class defines the polymorphic class/instance data model shared by
// bytecode-loaded classes and built-in library classes (spec section 3),
// plus the class builder (spec section 4.5) that turns a decoded class file
// into a BytecodeClass.
package class

import "strings"

// ClassIdentifier is a (package, name) pair; two identifiers are equal iff
// both fields match. Array classes encode their component type in Name
// using descriptor syntax ("[I", "[[Ljava/lang/String;", ...) with an
// empty Package.
type ClassIdentifier struct {
	Package string
	Name    string
}

// ParseClassIdentifier splits a fully qualified, slash-separated class name
// (as it appears in a class file's CPClass entries) into package and name.
// Array descriptors (leading '[') keep the whole descriptor as Name with an
// empty Package, per spec section 3.
func ParseClassIdentifier(fqn string) ClassIdentifier {
	if strings.HasPrefix(fqn, "[") {
		return ClassIdentifier{Name: fqn}
	}
	i := strings.LastIndex(fqn, "/")
	if i < 0 {
		return ClassIdentifier{Name: fqn}
	}
	return ClassIdentifier{Package: fqn[:i], Name: fqn[i+1:]}
}

// FullyQualifiedName reconstructs the slash-separated name.
func (id ClassIdentifier) FullyQualifiedName() string {
	if id.Package == "" {
		return id.Name
	}
	return id.Package + "/" + id.Name
}

func (id ClassIdentifier) String() string { return id.FullyQualifiedName() }
