package nexus

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"
)

// Signer authenticates requests to the service locator. The password never
// leaves the process; each request carries an HMAC of its contents keyed by it.
type Signer struct {
	username string
	password string
}

// NewSigner creates a new Signer instance
func NewSigner(username, password string) *Signer {
	return &Signer{
		username: username,
		password: password,
	}
}

// GenerateHeaders creates the authentication headers for a request.
// path: /v1/orders/7 (no host)
// query: account=ACME&begin=... (empty if none)
// body: json string (empty if none)
func (s *Signer) GenerateHeaders(method, path, query, body string, now time.Time) map[string]string {
	timestamp := strconv.FormatInt(now.UnixMilli(), 10)

	// Format: timestamp + method + requestPath + "?" + queryString + body
	fullPath := path
	if query != "" {
		fullPath = path + "?" + query
	}
	payload := timestamp + method + fullPath + body

	return map[string]string{
		"X-NEXUS-USER":      s.username,
		"X-NEXUS-SIGN":      computeHmacSha256(payload, s.password),
		"X-NEXUS-TIMESTAMP": timestamp,
		"Content-Type":      "application/json",
	}
}

// Verify checks a request header produced by GenerateHeaders.
func (s *Signer) Verify(method, path, query, body string, header http.Header) bool {
	ms, err := strconv.ParseInt(header.Get("X-NEXUS-TIMESTAMP"), 10, 64)
	if err != nil || header.Get("X-NEXUS-USER") != s.username {
		return false
	}
	want := s.GenerateHeaders(method, path, query, body, time.UnixMilli(ms))
	return hmac.Equal([]byte(want["X-NEXUS-SIGN"]), []byte(header.Get("X-NEXUS-SIGN")))
}

func computeHmacSha256(message string, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
