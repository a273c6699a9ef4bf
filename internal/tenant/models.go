package tenant

// Config describes one tenant of the gateway.
//
// Multi-tenant invariant: every routing decision is scoped to a tenant id.
//
// Configs are immutable after load. Anything that needs to change at
// runtime (agent presence, availability) lives in internal/presence, not here.

type Config struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"` // public phone number, E.164 where possible

	// Greeting is spoken to callers before digit collection.
	// Empty means a generic greeting is generated from Name.
	Greeting string `json:"greeting,omitempty"`

	// Extensions are ordered; order is part of the public contract
	// (extension listings are rendered in this order).
	Extensions []Extension `json:"extensions"`

	// Menu maps a single IVR digit to an extension code.
	Menu map[string]string `json:"menu"`

	// DefaultExtension receives callers who press nothing, press an
	// unmapped digit, or fall through provider-side digit collection.
	DefaultExtension string `json:"default_extension"`
}

// Extension is a named routing destination within a tenant.
type Extension struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`

	// Available is the default availability for new agent sessions
	// claiming this extension.
	Available bool `json:"available"`
}

// ExtensionForDigit resolves a caller digit to an extension code.
// The mapping is total: unmapped digits (and empty input on timeout)
// resolve to the tenant default extension. That is menu policy, not an error.
func (c Config) ExtensionForDigit(digit string) string {
	if code, ok := c.Menu[digit]; ok {
		return code
	}
	return c.DefaultExtension
}

// Extension looks up an extension by code.
func (c Config) Extension(code string) (Extension, bool) {
	for _, e := range c.Extensions {
		if e.Code == code {
			return e, true
		}
	}
	return Extension{}, false
}
