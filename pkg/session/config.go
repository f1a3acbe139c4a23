package session

import "time"

// Config holds session manager configuration.
type Config struct {
	// CookieName is the name of the session cookie (default: "sid")
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"sid"`

	// TTL is the authenticated session lifetime
	TTL time.Duration `env:"SESSION_TTL" envDefault:"720h"`

	// CleanupInterval for expired sessions in the memory store (0 to disable)
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`

	// SecureCookies enables the Secure flag on session cookies
	SecureCookies bool `env:"SESSION_SECURE_COOKIES" envDefault:"false"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		CookieName:      "sid",
		TTL:             30 * 24 * time.Hour,
		CleanupInterval: 5 * time.Minute,
		SecureCookies:   false,
	}
}
