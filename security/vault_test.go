package security

import (
	"encoding/base64"
	"os"
	"testing"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	os.Setenv("SECRET_KEY", "test-secret")
	inputs := []string{"AIzaSyDUMMYKEY123", "k", "khóa có dấu cách và ơ", "x\n\tmultiline"}
	for _, in := range inputs {
		tok, err := Encrypt(in)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", in, err)
		}
		if tok == "" || tok == in {
			t.Fatalf("Encrypt(%q) produced %q", in, tok)
		}
		if got := Decrypt(tok); got != in {
			t.Fatalf("roundtrip: got %q want %q", got, in)
		}
	}
}

func TestEncryptEmptyShortCircuits(t *testing.T) {
	tok, err := Encrypt("")
	if err != nil || tok != "" {
		t.Fatalf("Encrypt(\"\") = %q, %v; want empty, nil", tok, err)
	}
	if got := Decrypt(""); got != "" {
		t.Fatalf("Decrypt(\"\") = %q; want empty", got)
	}
}

func TestDecryptTamperedReturnsEmpty(t *testing.T) {
	tok, err := Encrypt("super-secret-key")
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := base64.RawURLEncoding.DecodeString(tok)
	raw[len(raw)-1] ^= 0xff
	if got := Decrypt(base64.RawURLEncoding.EncodeToString(raw)); got != "" {
		t.Fatalf("tampered token decrypted to %q", got)
	}
}

func TestDecryptGarbageReturnsEmpty(t *testing.T) {
	for _, bad := range []string{"not base64 !!!", "YWJj", base64.RawURLEncoding.EncodeToString([]byte("short"))} {
		if got := Decrypt(bad); got != "" {
			t.Fatalf("Decrypt(%q) = %q; want empty", bad, got)
		}
	}
}
