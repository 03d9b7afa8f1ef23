package login

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// tokenPayload is a minimal JWT-like payload signed with HMAC-SHA256.
type tokenPayload struct {
	Username string `json:"sub"`
	Exp      int64  `json:"exp"`
	Jti      string `json:"jti"`
}

func sessionDuration() time.Duration {
	hours := 12
	if v := os.Getenv("SESSION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}
	return time.Hour * time.Duration(hours)
}

func sessionSecret() []byte {
	s := os.Getenv("SECRET_KEY")
	if s == "" {
		s = "dev-insecure-secret"
	}
	return []byte(s)
}

// SignToken issues a bearer token for the username.
func SignToken(username string) (string, int64) {
	exp := time.Now().Add(sessionDuration()).Unix()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payloadBytes, _ := json.Marshal(tokenPayload{Username: username, Exp: exp, Jti: generateJTI()})
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	mac := hmac.New(sha256.New, sessionSecret())
	mac.Write([]byte(header + "." + payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return header + "." + payload + "." + sig, exp
}

// ParseToken validates signature and expiry and returns the subject.
func ParseToken(token string) (string, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", false
	}
	unsigned := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, sessionSecret())
	mac.Write([]byte(unsigned))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return "", false
	}
	pb, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", false
	}
	var tp tokenPayload
	if err := json.Unmarshal(pb, &tp); err != nil {
		return "", false
	}
	if tp.Exp < time.Now().Unix() {
		return "", false
	}
	return tp.Username, true
}

func generateJTI() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405")
	}
	return hex.EncodeToString(b)
}

// NewOpaqueToken returns a URL-safe random token for email verification and
// password resets.
func NewOpaqueToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return generateJTI() + generateJTI()
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
