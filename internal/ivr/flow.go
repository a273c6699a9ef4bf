package ivr

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"callgate/internal/calls"
	"callgate/internal/routing"
	"callgate/internal/tenant"
	"callgate/pkg/logger"
)

// CallCap limits concurrent inbound calls per tenant. Optional; a nil cap
// admits everything.
type CallCap interface {
	Acquire(ctx context.Context, tenantID string) (bool, error)
	Release(ctx context.Context, tenantID string) error
}

// Timings are the caller-facing timeouts, in seconds.
type Timings struct {
	DigitTimeoutSeconds int
	RingTimeoutSeconds  int
	VoicemailMaxSeconds int
}

const (
	DefaultDigitTimeoutSeconds = 10
	DefaultRingTimeoutSeconds  = 30
	DefaultVoicemailMaxSeconds = 60

	voicemailFinishKey = "#"
)

func (t Timings) withDefaults() Timings {
	out := t
	if out.DigitTimeoutSeconds <= 0 {
		out.DigitTimeoutSeconds = DefaultDigitTimeoutSeconds
	}
	if out.RingTimeoutSeconds <= 0 {
		out.RingTimeoutSeconds = DefaultRingTimeoutSeconds
	}
	if out.VoicemailMaxSeconds <= 0 {
		out.VoicemailMaxSeconds = DefaultVoicemailMaxSeconds
	}
	return out
}

// Steps are the transport paths the flow redirects callers through. They
// are opaque to this package; the transport layer owns their meaning.
type Steps struct {
	GatherPath  string // receives collected digits
	DefaultPath string // default-route fallback when digit collection falls through
	StatusPath  string // agent dial status callback
}

// Flow drives a call through Greeting -> AwaitingDigit -> {Routed,
// Voicemail, DefaultRoute}.
//
// Contract: every exported method returns a valid, non-empty instruction
// sequence, whatever the input. Internal failures degrade to a spoken
// apology plus hangup; nothing on the call path ever surfaces an error to
// the provider.
type Flow struct {
	Directory *tenant.Directory
	Engine    *routing.Engine
	Calls     *calls.Store
	Caps      CallCap

	Timings Timings
	Steps   Steps
}

// AnswerCall handles the first inbound event for a call: records it,
// greets the caller, and starts single-digit collection. If digit
// collection falls through on the provider side, the trailing redirect
// re-enters resolution with the tenant default extension.
func (f *Flow) AnswerCall(ctx context.Context, callID, from, tenantID string) []Instruction {
	cfg, ok := f.Directory.Get(tenantID)
	if !ok {
		return f.Apology()
	}

	slotHeld := false
	if f.Caps != nil {
		admitted, err := f.Caps.Acquire(ctx, tenantID)
		switch {
		case err != nil:
			// Fail open: the cap is advisory and must not take calls down.
			// No slot was acquired, so none is marked for release.
			logger.From(ctx).Warn("call cap acquire failed", "tenant_id", tenantID, "err", err)
		case !admitted:
			f.Calls.Begin(callID, from, tenantID)
			out := []Instruction{Say{Text: "All of our lines are busy."}}
			return append(out, f.voicemail(cfg, cfg.DefaultExtension)...)
		default:
			slotHeld = true
		}
	}

	f.Calls.Begin(callID, from, tenantID)
	if slotHeld {
		f.Calls.HoldSlot(callID)
	}

	t := f.Timings.withDefaults()
	return []Instruction{
		Say{Text: f.greeting(cfg)},
		Say{Text: menuPrompt(cfg)},
		Gather{
			TimeoutSeconds: t.DigitTimeoutSeconds,
			NumDigits:      1,
			Action:         f.stepURL(f.Steps.GatherPath, cfg.ID),
		},
		Redirect{URL: f.stepURL(f.Steps.DefaultPath, cfg.ID)},
	}
}

// HandleDigit resolves a collected digit through the tenant menu and routes
// the call. The digit mapping is total; an unrecognized digit (or empty
// input on timeout) resolves to the tenant default extension.
func (f *Flow) HandleDigit(ctx context.Context, tenantID, digit string) []Instruction {
	cfg, ok := f.Directory.Get(tenantID)
	if !ok {
		return f.Apology()
	}
	return f.connect(cfg, cfg.ExtensionForDigit(digit))
}

// HandleDefault re-enters resolution with the tenant default extension.
// Used when the caller never reached digit collection.
func (f *Flow) HandleDefault(ctx context.Context, tenantID string) []Instruction {
	cfg, ok := f.Directory.Get(tenantID)
	if !ok {
		return f.Apology()
	}
	return f.connect(cfg, cfg.DefaultExtension)
}

// PlaceOutbound connects an agent-originated call to an external number.
// The caller id is the agent's tenant number, else the configured default;
// outbound dialing always proceeds with some caller id.
func (f *Flow) PlaceOutbound(ctx context.Context, callID, identity, to string) []Instruction {
	if to == "" {
		return f.Apology()
	}
	if s, ok := f.Engine.Agents.Get(identity); ok {
		f.Calls.Begin(callID, "client:"+identity, s.TenantID)
	}
	return []Instruction{
		DialNumber{
			Number:   to,
			CallerID: f.Engine.OutboundCallerID(identity),
		},
	}
}

// Apology is the generic degradation for any failure on the call path.
func (f *Flow) Apology() []Instruction {
	return []Instruction{
		Say{Text: "We are sorry, we are unable to take your call right now. Please try again later."},
		Hangup{},
	}
}

func (f *Flow) connect(cfg tenant.Config, extension string) []Instruction {
	out := f.Engine.Route(cfg.ID, extension)
	switch out.Kind {
	case routing.OutcomeConnectAgent:
		t := f.Timings.withDefaults()
		name := extension
		if e, ok := cfg.Extension(extension); ok {
			name = e.Name
		}
		return []Instruction{
			Say{Text: fmt.Sprintf("Connecting you to %s.", name)},
			DialAgent{
				Identity:       out.AgentID,
				TimeoutSeconds: t.RingTimeoutSeconds,
				CallerID:       cfg.Number,
				StatusCallback: f.Steps.StatusPath,
			},
		}
	case routing.OutcomeNoAgent, routing.OutcomeUnknownExtension:
		return f.voicemail(cfg, extension)
	default:
		return f.Apology()
	}
}

func (f *Flow) voicemail(cfg tenant.Config, extension string) []Instruction {
	t := f.Timings.withDefaults()
	name := cfg.Name
	if e, ok := cfg.Extension(extension); ok {
		name = e.Name
	}
	return []Instruction{
		Say{Text: fmt.Sprintf("No one in %s is available to take your call. Please leave a message after the tone, and press pound when you are finished.", name)},
		Record{
			MaxSeconds:  t.VoicemailMaxSeconds,
			FinishOnKey: voicemailFinishKey,
		},
		Say{Text: "Goodbye."},
		Hangup{},
	}
}

func (f *Flow) greeting(cfg tenant.Config) string {
	if cfg.Greeting != "" {
		return cfg.Greeting
	}
	return fmt.Sprintf("Thank you for calling %s.", cfg.Name)
}

// menuPrompt narrates the digit menu in digit order.
func menuPrompt(cfg tenant.Config) string {
	digits := make([]string, 0, len(cfg.Menu))
	for d := range cfg.Menu {
		digits = append(digits, d)
	}
	sort.Strings(digits)

	prompt := ""
	for _, d := range digits {
		name := cfg.Menu[d]
		if e, ok := cfg.Extension(cfg.Menu[d]); ok {
			name = e.Name
		}
		prompt += fmt.Sprintf("For %s, press %s. ", name, d)
	}
	if prompt == "" {
		return "Please hold while we connect you."
	}
	return prompt
}

func (f *Flow) stepURL(path, tenantID string) string {
	return path + "?tenant=" + url.QueryEscape(tenantID)
}
