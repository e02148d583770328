package main

import "testing"

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		version, commit, want string
	}{
		{"v0.4.0", "0123456789abcdef", "v0.4.0"},
		{"dev", "0123456789abcdef", "dev-0123456"},
		{"dev", "unknown", "dev"},
		{"", "abcdef1", "dev-abcdef1"},
		{" v1.0.0 ", "", "v1.0.0"},
	}
	for _, tt := range tests {
		if got := formatVersion(tt.version, tt.commit); got != tt.want {
			t.Errorf("formatVersion(%q, %q) = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}
