package identity

import (
	"encoding/json"
	"testing"
)

func TestCanonicalize_SortedAndStable(t *testing.T) {
	a := Canonicalize(map[string]interface{}{
		"phone": "+15550100",
		"email": "a@x.com",
	})
	b := Canonicalize(map[string]interface{}{
		"email": "a@x.com",
		"phone": "+15550100",
	})

	if a != b {
		t.Errorf("Expected identical canonical strings, got %q and %q", a, b)
	}
	if a != `{"email":"a@x.com","phone":"+15550100"}` {
		t.Errorf("Unexpected canonical form: %q", a)
	}
}

func TestCanonicalize_Empty(t *testing.T) {
	if got := Canonicalize(nil); got != "{}" {
		t.Errorf("Expected {}, got %q", got)
	}
	if got := Canonicalize(map[string]interface{}{}); got != "{}" {
		t.Errorf("Expected {}, got %q", got)
	}
}

func TestCanonicalize_NilValuesDropped(t *testing.T) {
	withNil := Canonicalize(map[string]interface{}{
		"email": "a@x.com",
		"phone": nil,
	})
	without := Canonicalize(map[string]interface{}{
		"email": "a@x.com",
	})

	if withNil != without {
		t.Errorf("Nil value should canonicalize like an absent one: %q vs %q", withNil, without)
	}
}

func TestCanonicalize_Coercion(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"string", "abc", `{"k":"abc"}`},
		{"json number", json.Number("42"), `{"k":"42"}`},
		{"json number decimal", json.Number("4.20"), `{"k":"4.20"}`},
		{"bool", true, `{"k":"true"}`},
		{"float", float64(42), `{"k":"42"}`},
		{"int", 7, `{"k":"7"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Canonicalize(map[string]interface{}{"k": tt.value})
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestCanonicalize_EscapesSpecialCharacters(t *testing.T) {
	got := Canonicalize(map[string]interface{}{"email": `a"b@x.com`})
	var decoded map[string]string
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("Canonical string is not valid JSON: %v", err)
	}
	if decoded["email"] != `a"b@x.com` {
		t.Errorf("Value mangled: %q", decoded["email"])
	}
}
