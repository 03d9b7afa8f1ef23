package login

import (
	"os"
	"strings"
	"testing"
)

func TestSignAndParseToken(t *testing.T) {
	os.Setenv("SECRET_KEY", "token-test-secret")
	token, exp := SignToken("maria")
	if exp <= 0 || strings.Count(token, ".") != 2 {
		t.Fatalf("malformed token: %q exp=%d", token, exp)
	}
	sub, ok := ParseToken(token)
	if !ok || sub != "maria" {
		t.Fatalf("ParseToken = %q, %v", sub, ok)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	os.Setenv("SECRET_KEY", "token-test-secret")
	token, _ := SignToken("maria")
	parts := strings.Split(token, ".")
	forged := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, ok := ParseToken(forged); ok {
		t.Fatal("tampered token accepted")
	}
	if _, ok := ParseToken("garbage"); ok {
		t.Fatal("garbage token accepted")
	}
}

func TestOpaqueTokensAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok := NewOpaqueToken()
		if len(tok) < 32 || seen[tok] {
			t.Fatalf("weak opaque token %q", tok)
		}
		seen[tok] = true
	}
}
