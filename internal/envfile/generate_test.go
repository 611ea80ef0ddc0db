package envfile

import "testing"

func TestGenerator_Password(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()

	tests := []struct {
		name    string
		length  int
		wantLen int
	}{
		{"default length on zero", 0, DefaultPasswordLength},
		{"default length on negative", -5, DefaultPasswordLength},
		{"service password length", 20, 20},
		{"long password", 64, 64},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := gen.Password(tt.length)
			if len(got) != tt.wantLen {
				t.Errorf("Password(%d) length = %d, want %d", tt.length, len(got), tt.wantLen)
			}
			if !alnumRe.MatchString(got) {
				t.Errorf("Password(%d) = %q, want alphanumeric only", tt.length, got)
			}
		})
	}
}

func TestGenerator_SecretKey(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()

	if got := gen.SecretKey(64); len(got) != 64 || !hexRe.MatchString(got) {
		t.Errorf("SecretKey(64) = %q, want 64-char lowercase hex", got)
	}
	if got := gen.SecretKey(32); len(got) != 32 || !hexRe.MatchString(got) {
		t.Errorf("SecretKey(32) = %q, want 32-char lowercase hex", got)
	}
	if got := gen.SecretKey(0); len(got) != DefaultSecretKeyLength {
		t.Errorf("SecretKey(0) length = %d, want %d", len(got), DefaultSecretKeyLength)
	}
}

func TestGenerator_Salt(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()
	if got := gen.Salt(); len(got) != SaltLength || !hexRe.MatchString(got) {
		t.Errorf("Salt() = %q, want %d-char lowercase hex", got, SaltLength)
	}
}

func TestGenerator_Uniqueness(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		p := gen.Password(20)
		if seen[p] {
			t.Fatalf("duplicate password generated: %q", p)
		}
		seen[p] = true
	}
}
