package class

import (
	"reflect"
	"testing"
)

func TestParseMethodDescriptor(t *testing.T) {
	tests := []struct {
		desc       string
		wantParams []string
		wantRet    string
		wantErr    bool
	}{
		{"()V", nil, "", false},
		{"(I)V", []string{"I"}, "", false},
		{"(ILjava/lang/String;)V", []string{"I", "Ljava/lang/String;"}, "", false},
		{"()I", nil, "I", false},
		{"([Ljava/lang/String;)V", []string{"[Ljava/lang/String;"}, "", false},
		{"(JJ)J", []string{"J", "J"}, "J", false},
		{"(", nil, "", true},
		{"IV)", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			params, ret, err := ParseMethodDescriptor(tt.desc)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got none", tt.desc)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(params, tt.wantParams) {
				t.Errorf("params = %v, want %v", params, tt.wantParams)
			}
			if ret != tt.wantRet {
				t.Errorf("ret = %q, want %q", ret, tt.wantRet)
			}
		})
	}
}

func TestSlotSizeForDescriptor(t *testing.T) {
	if SlotSizeForDescriptor("J") != 2 {
		t.Error("J should be slot size 2")
	}
	if SlotSizeForDescriptor("D") != 2 {
		t.Error("D should be slot size 2")
	}
	for _, d := range []string{"I", "Z", "B", "C", "S", "F", "Ljava/lang/Object;", "[I"} {
		if SlotSizeForDescriptor(d) != 1 {
			t.Errorf("%s should be slot size 1", d)
		}
	}
}

func TestDefaultValueForDescriptor(t *testing.T) {
	tests := []struct {
		desc string
		kind ValueKind
	}{
		{"I", KindInt},
		{"J", KindLong},
		{"D", KindDouble},
		{"F", KindFloat},
		{"Z", KindBoolean},
		{"B", KindByte},
		{"C", KindChar},
		{"S", KindShort},
		{"Ljava/lang/Object;", KindReference},
		{"[I", KindReference},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			v := DefaultValueForDescriptor(tt.desc)
			if v.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", v.Kind, tt.kind)
			}
			if tt.kind == KindReference && !v.IsNull() {
				t.Error("reference default should be null")
			}
		})
	}
}

func TestArrayComponent(t *testing.T) {
	tests := []struct {
		desc    string
		want    string
		wantErr bool
	}{
		{"[I", "I", false},
		{"[[Ljava/lang/String;", "[Ljava/lang/String;", false},
		{"I", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, err := ArrayComponent(tt.desc)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.desc)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
