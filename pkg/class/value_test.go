package class

import "testing"

func TestFieldValueSlotSize(t *testing.T) {
	tests := []struct {
		name string
		v    FieldValue
		want int
	}{
		{"byte", ByteValue(1), 1},
		{"short", ShortValue(1), 1},
		{"int", IntValue(1), 1},
		{"char", CharValue(1), 1},
		{"boolean", BoolValue(true), 1},
		{"reference", NullValue(), 1},
		{"long", LongValue(1), 2},
		{"double", DoubleValue(1), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.SlotSize(); got != tt.want {
				t.Errorf("SlotSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFieldValueSlotSizeSurvivesOverwrite(t *testing.T) {
	// Long/double pairing invariant: writing Long at a slot and then
	// overwriting its declared neighbor must not be confused with the
	// long's own slot size.
	locals := make([]FieldValue, 4)
	locals[0] = LongValue(42)
	if got := locals[0].SlotSize(); got != 2 {
		t.Fatalf("SlotSize() = %d, want 2", got)
	}
	locals[1] = IntValue(7) // overwrite the long's second half
	if locals[0].Long != 42 {
		t.Errorf("slot 0 corrupted by writing slot 1: got %d, want 42", locals[0].Long)
	}
}

func TestIsNull(t *testing.T) {
	if !NullValue().IsNull() {
		t.Error("NullValue() is not null")
	}
	if IntValue(0).IsNull() {
		t.Error("IntValue(0) reported as null")
	}
	ref := RefValue(nil)
	if !ref.IsNull() {
		t.Error("RefValue(nil) is not null")
	}
}

func TestBoolRoundTrip(t *testing.T) {
	if !BoolValue(true).Bool() {
		t.Error("BoolValue(true).Bool() = false")
	}
	if BoolValue(false).Bool() {
		t.Error("BoolValue(false).Bool() = true")
	}
}
