package crypto

import (
	"strings"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(token) != TokenLength {
			t.Fatalf("expected %d characters, got %d", TokenLength, len(token))
		}
		if !ValidToken(token) {
			t.Fatalf("generated token fails its own shape check: %q", token)
		}
		if token != strings.ToLower(token) {
			t.Fatalf("token not lowercase: %q", token)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %q", token)
		}
		seen[token] = true
	}
}

func TestValidToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{
			name:  "well formed",
			token: "9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b",
			want:  true,
		},
		{
			name:  "too short",
			token: "9944b091",
			want:  false,
		},
		{
			name:  "too long",
			token: "9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b00",
			want:  false,
		},
		{
			name:  "uppercase hex",
			token: "9944B09199C62BCF9418AD846DD0E4BBDFC6EE4B",
			want:  false,
		},
		{
			name:  "non hex characters",
			token: "zz44b09199c62bcf9418ad846dd0e4bbdfc6ee4b",
			want:  false,
		},
		{
			name:  "empty",
			token: "",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidToken(tt.token); got != tt.want {
				t.Errorf("ValidToken(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestDigestToken(t *testing.T) {
	digest := DigestToken("9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b")
	if len(digest) != 64 {
		t.Fatalf("expected a 64-character hex digest, got %d", len(digest))
	}
	if digest == DigestToken("other") {
		t.Error("distinct tokens produced the same digest")
	}
	if digest != DigestToken("9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b") {
		t.Error("digest not deterministic")
	}
}
