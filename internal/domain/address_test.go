package domain

import "testing"

func TestIsAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"Valid Lowercase", "0x4ed4e862860bed51a9570b96d89af5e1b0efefed", true},
		{"Valid Mixed Case", "0x4ED4e862860bED51a9570b96d89aF5E1B0Efefed", true},
		{"Valid With Whitespace", "  0x4ed4e862860bed51a9570b96d89af5e1b0efefed  ", true},
		{"Too Short", "0x123", false},
		{"No Prefix", "4ed4e862860bed51a9570b96d89af5e1b0efefed", false},
		{"Non Hex", "0x4ed4e862860bed51a9570b96d89af5e1b0efefeg", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAddress(tt.input); got != tt.want {
				t.Errorf("IsAddress(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractAddress(t *testing.T) {
	const want = "0x4ed4e862860bed51a9570b96d89af5e1b0efefed"

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Bare Address", "0x4ED4e862860bED51a9570b96d89aF5E1B0Efefed", want},
		{"Explorer URL", "https://basescan.org/token/0x4ed4e862860bed51a9570b96d89af5e1b0efefed/", want},
		{"Chain Prefix", "base:0x4ed4e862860bed51a9570b96d89af5e1b0efefed", want},
		{"URL Encoded", "0x4ed4e862860bed51a9570b96d89af5e1b0efefed%2F", want},
		{"Interior Whitespace", "0x4ed4e862860bed 51a9570b96d89af5e1b0efefed", want},
		{"Nothing Embedded", "hello world", ""},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractAddress(tt.input); got != tt.want {
				t.Errorf("ExtractAddress(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
