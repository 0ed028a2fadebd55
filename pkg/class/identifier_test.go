package class

import "testing"

func TestParseClassIdentifier(t *testing.T) {
	tests := []struct {
		fqn     string
		wantPkg string
		wantNm  string
	}{
		{"java/lang/Object", "java/lang", "Object"},
		{"java/lang/String", "java/lang", "String"},
		{"Main", "", "Main"},
		{"[I", "", "[I"},
		{"[Ljava/lang/String;", "", "[Ljava/lang/String;"},
	}
	for _, tt := range tests {
		t.Run(tt.fqn, func(t *testing.T) {
			id := ParseClassIdentifier(tt.fqn)
			if id.Package != tt.wantPkg || id.Name != tt.wantNm {
				t.Errorf("got {%q, %q}, want {%q, %q}", id.Package, id.Name, tt.wantPkg, tt.wantNm)
			}
		})
	}
}

func TestClassIdentifierRoundTrip(t *testing.T) {
	for _, fqn := range []string{"java/lang/Object", "Main", "a/b/C"} {
		id := ParseClassIdentifier(fqn)
		if got := id.FullyQualifiedName(); got != fqn {
			t.Errorf("FullyQualifiedName() = %q, want %q", got, fqn)
		}
		if id.String() != fqn {
			t.Errorf("String() = %q, want %q", id.String(), fqn)
		}
	}
}

func TestClassIdentifierEquality(t *testing.T) {
	a := ClassIdentifier{Package: "java/lang", Name: "Object"}
	b := ParseClassIdentifier("java/lang/Object")
	if a != b {
		t.Errorf("%v != %v", a, b)
	}
}
