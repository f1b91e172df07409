package payments

import (
	"strings"
	"testing"
)

func TestValidateVPA(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "simple handle", input: "user@bank", expected: true},
		{name: "dots and dashes", input: "first.last-1@ok.axis", expected: true},
		{name: "phone number handle", input: "9876543210@ybl", expected: true},
		{name: "shortest valid", input: "a@b", expected: true},
		{name: "exactly fifty characters", input: strings.Repeat("a", 44) + "@bankx", expected: true},
		{name: "missing at sign", input: "not-a-vpa", expected: false},
		{name: "too short", input: "@b", expected: false},
		{name: "too long", input: strings.Repeat("a", 45) + "@bankx", expected: false},
		{name: "empty", input: "", expected: false},
		{name: "handle starting with digit", input: "user@1bank", expected: false},
		{name: "two at signs", input: "user@bank@other", expected: false},
		{name: "space inside", input: "us er@bank", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateVPA(tt.input); got != tt.expected {
				t.Errorf("ValidateVPA(%q) = %v; want %v", tt.input, got, tt.expected)
			}
		})
	}
}
