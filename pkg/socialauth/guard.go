package socialauth

// ProviderGuard validates provider names against the configured allow-list.
// Requests naming an unlisted provider short-circuit to the failure path
// before any handshake or resolution runs, so an attacker cannot probe
// behavior with unconfigured provider names.
type ProviderGuard struct {
	allowed map[string]struct{}
}

// NewProviderGuard builds a guard from the allow-listed provider names.
func NewProviderGuard(providers []string) *ProviderGuard {
	allowed := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		if p != "" {
			allowed[p] = struct{}{}
		}
	}
	return &ProviderGuard{allowed: allowed}
}

// IsValidProvider reports whether name is allow-listed.
func (g *ProviderGuard) IsValidProvider(name string) bool {
	_, ok := g.allowed[name]
	return ok
}
