package view

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		ownerID  int64
		want     string
	}{
		{"username wins", "ansel", "ansel@example.com", 1, "ansel"},
		{"email local part fallback", "", "ansel@example.com", 1, "ansel"},
		{"email without at sign used whole", "", "ansel", 1, "ansel"},
		{"owner id last resort", "", "", 42, "42"},
		{"long owner id truncated", "", "", 123456789012, "12345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(tt.username, tt.email, tt.ownerID); got != tt.want {
				t.Errorf("DisplayName = %q, want %q", got, tt.want)
			}
		})
	}
}
