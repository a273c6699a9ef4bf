package routing

// Outcome is the tagged result of a routing decision.
//
// It must contain only what the IVR layer needs to act; no provider
// identity and no provider-specific fields belong here. Failures are
// values, not errors: the call path treats every outcome as routable.

type Outcome struct {
	Kind OutcomeKind `json:"kind"`

	TenantID  string `json:"tenant_id"`
	Extension string `json:"extension,omitempty"`

	// AgentID is set only for OutcomeConnectAgent.
	AgentID string `json:"agent_id,omitempty"`
}

type OutcomeKind string

const (
	// OutcomeConnectAgent means an available agent session was found.
	OutcomeConnectAgent OutcomeKind = "connect_agent"
	// OutcomeNoAgent means routing was valid but no agent is reachable;
	// the caller decides voicemail or another fallback.
	OutcomeNoAgent OutcomeKind = "no_agent_available"
	// OutcomeUnknownTenant / OutcomeUnknownExtension are input validation
	// failures surfaced as values.
	OutcomeUnknownTenant    OutcomeKind = "unknown_tenant"
	OutcomeUnknownExtension OutcomeKind = "unknown_extension"
)
