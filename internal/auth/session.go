package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/influencer-scout/backend/pkg/utils"
)

const (
	// CookieName is the session cookie issued on login.
	CookieName = "session"

	DefaultSessionTTL = 7 * 24 * time.Hour
)

// Manager issues and validates stateless signed session tokens of the form
// expiresAt|random|signature. No server-side session map is kept; the
// signing secret is supplied externally via configuration.
type Manager struct {
	secret string
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{secret: secret, ttl: ttl}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a signed token embedding its own expiry.
func (m *Manager) Issue() (string, error) {
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}

	expiresAt := time.Now().Add(m.ttl).UnixMilli()
	payload := fmt.Sprintf("%d|%s", expiresAt, hex.EncodeToString(random))
	signature := m.sign(payload)

	return payload + "|" + signature, nil
}

// Validate reports whether the token is well-formed, unexpired and carries
// a valid signature.
func (m *Manager) Validate(token string) bool {
	parts := strings.Split(token, "|")
	if len(parts) != 3 {
		return false
	}

	expiresAt, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return false
	}
	if expiresAt < time.Now().UnixMilli() {
		return false
	}

	payload := parts[0] + "|" + parts[1]
	expected := m.sign(payload)
	return subtle.ConstantTimeCompare([]byte(parts[2]), []byte(expected)) == 1
}

// VerifyPassword compares the login password against the configured admin
// password in constant time.
func (m *Manager) VerifyPassword(input, adminPassword string) bool {
	if adminPassword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(input), []byte(adminPassword)) == 1
}

func (m *Manager) sign(payload string) string {
	return utils.HashString(payload + m.secret)
}
