package routing

import (
	"testing"

	"callgate/internal/presence"
	"callgate/internal/tenant"
)

type stubAgents struct {
	found    string
	sessions map[string]presence.Session
}

func (s stubAgents) FindAvailable(tenantID, preferredExtension string) (string, bool) {
	return s.found, s.found != ""
}

func (s stubAgents) Get(identity string) (presence.Session, bool) {
	sess, ok := s.sessions[identity]
	return sess, ok
}

func seedDirectory(t *testing.T) *tenant.Directory {
	t.Helper()
	dir, err := tenant.NewDirectory(tenant.Seed())
	if err != nil {
		t.Fatalf("seed directory: %v", err)
	}
	return dir
}

func TestRoute_ConnectAgent(t *testing.T) {
	e := NewEngine(seedDirectory(t), stubAgents{found: "ext_101"}, "+10000000")

	out := e.Route("connectiv", "101")
	if out.Kind != OutcomeConnectAgent {
		t.Fatalf("expected connect, got %q", out.Kind)
	}
	if out.AgentID != "ext_101" {
		t.Fatalf("expected ext_101, got %q", out.AgentID)
	}
}

func TestRoute_NoAgentAvailable(t *testing.T) {
	e := NewEngine(seedDirectory(t), stubAgents{}, "+10000000")

	out := e.Route("connectiv", "102")
	if out.Kind != OutcomeNoAgent {
		t.Fatalf("expected no agent, got %q", out.Kind)
	}
	if out.Extension != "102" {
		t.Fatalf("expected requested extension carried, got %q", out.Extension)
	}
}

func TestRoute_UnknownTenantNeverPanics(t *testing.T) {
	e := NewEngine(seedDirectory(t), stubAgents{found: "ext_101"}, "+10000000")

	out := e.Route("ghost", "101")
	if out.Kind != OutcomeUnknownTenant {
		t.Fatalf("expected unknown tenant, got %q", out.Kind)
	}
}

func TestRoute_UnknownExtension(t *testing.T) {
	e := NewEngine(seedDirectory(t), stubAgents{found: "ext_101"}, "+10000000")

	out := e.Route("connectiv", "999")
	if out.Kind != OutcomeUnknownExtension {
		t.Fatalf("expected unknown extension, got %q", out.Kind)
	}
}

func TestRoute_WithLiveRegistry(t *testing.T) {
	dir := seedDirectory(t)
	reg := presence.NewRegistry(dir, nil)
	if err := reg.Register("ext_101", "connectiv", "101"); err != nil {
		t.Fatalf("register: %v", err)
	}
	e := NewEngine(dir, reg, "+10000000")

	out := e.Route("connectiv", "101")
	if out.Kind != OutcomeConnectAgent || out.AgentID != "ext_101" {
		t.Fatalf("expected connect to ext_101, got %+v", out)
	}
}

func TestOutboundCallerID(t *testing.T) {
	dir := seedDirectory(t)
	e := NewEngine(dir, stubAgents{
		sessions: map[string]presence.Session{
			"ext_101": {Identity: "ext_101", TenantID: "connectiv", Extension: "101"},
		},
	}, "+10000000")

	if got := e.OutboundCallerID("ext_101"); got != "+15550100" {
		t.Fatalf("expected tenant number, got %q", got)
	}
	// Unregistered identities always get the default; outbound dialing must
	// never proceed without some caller id.
	if got := e.OutboundCallerID("stranger"); got != "+10000000" {
		t.Fatalf("expected default caller id, got %q", got)
	}
}
