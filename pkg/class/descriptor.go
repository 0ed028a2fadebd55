package class

import "fmt"

// SlotSizeForDescriptor returns 2 for J (long) and D (double) field/parameter
// descriptors, 1 for everything else.
func SlotSizeForDescriptor(desc string) int {
	if desc == "J" || desc == "D" {
		return 2
	}
	return 1
}

// DefaultValueForDescriptor returns the zero value a field of this
// descriptor starts with: 0 for numeric kinds, false for boolean, null for
// references and arrays.
func DefaultValueForDescriptor(desc string) FieldValue {
	if desc == "" {
		return NullValue()
	}
	switch desc[0] {
	case 'B':
		return ByteValue(0)
	case 'S':
		return ShortValue(0)
	case 'I':
		return IntValue(0)
	case 'C':
		return CharValue(0)
	case 'Z':
		return BoolValue(false)
	case 'J':
		return LongValue(0)
	case 'F':
		return FloatValue(0)
	case 'D':
		return DoubleValue(0)
	default: // 'L' object, '[' array
		return NullValue()
	}
}

// ParseMethodDescriptor splits a method descriptor, e.g. "(ILjava/lang/String;)V",
// into its parameter type tokens and return type token ("" for void).
func ParseMethodDescriptor(desc string) (params []string, ret string, err error) {
	if len(desc) == 0 || desc[0] != '(' {
		return nil, "", fmt.Errorf("malformed method descriptor %q: missing '('", desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		tok, n, err := parseFieldType(desc[i:])
		if err != nil {
			return nil, "", fmt.Errorf("malformed method descriptor %q: %w", desc, err)
		}
		params = append(params, tok)
		i += n
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("malformed method descriptor %q: missing ')'", desc)
	}
	i++ // skip ')'
	if i >= len(desc) {
		return nil, "", fmt.Errorf("malformed method descriptor %q: missing return type", desc)
	}
	if desc[i] == 'V' {
		return params, "", nil
	}
	tok, _, err := parseFieldType(desc[i:])
	if err != nil {
		return nil, "", fmt.Errorf("malformed method descriptor %q: %w", desc, err)
	}
	return params, tok, nil
}

// parseFieldType parses one field-type token at the start of s, returning
// the token text and its length.
func parseFieldType(s string) (string, int, error) {
	if len(s) == 0 {
		return "", 0, fmt.Errorf("empty field type")
	}
	switch s[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return s[:1], 1, nil
	case '[':
		inner, n, err := parseFieldType(s[1:])
		if err != nil {
			return "", 0, err
		}
		return "[" + inner, n + 1, nil
	case 'L':
		end := 1
		for end < len(s) && s[end] != ';' {
			end++
		}
		if end >= len(s) {
			return "", 0, fmt.Errorf("unterminated object type in %q", s)
		}
		return s[:end+1], end + 1, nil
	default:
		return "", 0, fmt.Errorf("unknown field type tag %q", s[0])
	}
}

// ArrayComponent strips one leading '[' from an array descriptor, e.g.
// "[I" -> "I", "[[Ljava/lang/String;" -> "[Ljava/lang/String;".
func ArrayComponent(desc string) (string, error) {
	if len(desc) < 2 || desc[0] != '[' {
		return "", fmt.Errorf("not an array descriptor: %q", desc)
	}
	return desc[1:], nil
}
