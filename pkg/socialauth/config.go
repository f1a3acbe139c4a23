package socialauth

import "time"

// Config is the explicit flow configuration supplied by the embedding
// application at construction time.
type Config struct {
	// Providers is the allow-list of provider names. Empty means no provider
	// is accepted.
	Providers []string `env:"SOCIALAUTH_PROVIDERS" envSeparator:","`

	// RedirectPath is the post-login redirect target.
	RedirectPath string `env:"SOCIALAUTH_REDIRECT_PATH" envDefault:"/home"`

	// FailurePath is the uniform failure redirect target shared by every
	// failure kind.
	FailurePath string `env:"SOCIALAUTH_FAILURE_PATH" envDefault:"/login"`

	// StateTTL bounds the lifetime of handshake state tokens.
	StateTTL time.Duration `env:"SOCIALAUTH_STATE_TTL" envDefault:"10m"`
}

func (c Config) withDefaults() Config {
	if c.RedirectPath == "" {
		c.RedirectPath = "/home"
	}
	if c.FailurePath == "" {
		c.FailurePath = "/login"
	}
	if c.StateTTL <= 0 {
		c.StateTTL = 10 * time.Minute
	}
	return c
}
