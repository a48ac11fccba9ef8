package models

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"ana@example.com", "ana@example.com", true},
		{"  Ana@Example.COM ", "ana@example.com", true},
		{"", "", false},
		{"not-an-email", "not-an-email", false},
		{"ana@localhost", "ana@localhost", false},
		{"Ana <ana@example.com>", "ana <ana@example.com>", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeEmail(tt.in)
			if got != tt.want || ok != tt.valid {
				t.Errorf("NormalizeEmail(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.valid)
			}
		})
	}
}

func TestGenerateEnrollmentToken(t *testing.T) {
	a, err := GenerateEnrollmentToken()
	if err != nil {
		t.Fatalf("GenerateEnrollmentToken failed: %v", err)
	}
	b, _ := GenerateEnrollmentToken()
	if len(a) != 48 {
		t.Errorf("token length = %d, want 48", len(a))
	}
	if a == b {
		t.Error("tokens should differ")
	}
}
