package routing

import (
	"callgate/internal/presence"
	"callgate/internal/tenant"
)

// AgentFinder is the registry surface the engine needs. Satisfied by
// *presence.Registry; tests substitute stubs.
type AgentFinder interface {
	FindAvailable(tenantID, preferredExtension string) (string, bool)
	Get(identity string) (presence.Session, bool)
}

// Engine makes routing decisions from current directory + registry state.
//
// Route has no side effects: no store writes, no provider calls. Given the
// same registry snapshot it always produces the same outcome.
type Engine struct {
	Directory *tenant.Directory
	Agents    AgentFinder

	// DefaultCallerID is used for outbound dials when the dialing identity
	// has no registered session. Outbound dialing must always proceed with
	// some caller id.
	DefaultCallerID string
}

func NewEngine(dir *tenant.Directory, agents AgentFinder, defaultCallerID string) *Engine {
	return &Engine{Directory: dir, Agents: agents, DefaultCallerID: defaultCallerID}
}

// Route resolves a tenant + requested extension to an outcome.
func (e *Engine) Route(tenantID, requestedExtension string) Outcome {
	if _, ok := e.Directory.Get(tenantID); !ok {
		return Outcome{Kind: OutcomeUnknownTenant, TenantID: tenantID}
	}
	if _, ok := e.Directory.Extension(tenantID, requestedExtension); !ok {
		return Outcome{Kind: OutcomeUnknownExtension, TenantID: tenantID, Extension: requestedExtension}
	}
	identity, ok := e.Agents.FindAvailable(tenantID, requestedExtension)
	if !ok {
		return Outcome{Kind: OutcomeNoAgent, TenantID: tenantID, Extension: requestedExtension}
	}
	return Outcome{
		Kind:      OutcomeConnectAgent,
		TenantID:  tenantID,
		Extension: requestedExtension,
		AgentID:   identity,
	}
}

// OutboundCallerID resolves the caller id an identity dials out with: the
// public number of its registered tenant, else the configured default.
// Never fails.
func (e *Engine) OutboundCallerID(identity string) string {
	if s, ok := e.Agents.Get(identity); ok {
		if cfg, ok := e.Directory.Get(s.TenantID); ok && cfg.Number != "" {
			return cfg.Number
		}
	}
	return e.DefaultCallerID
}
