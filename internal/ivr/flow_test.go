package ivr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"callgate/internal/calls"
	"callgate/internal/presence"
	"callgate/internal/routing"
	"callgate/internal/tenant"
)

func newFlow(t *testing.T) (*Flow, *presence.Registry, *calls.Store) {
	t.Helper()
	dir, err := tenant.NewDirectory(tenant.Seed())
	if err != nil {
		t.Fatalf("seed directory: %v", err)
	}
	reg := presence.NewRegistry(dir, nil)
	store := calls.NewStore(nil)
	f := &Flow{
		Directory: dir,
		Engine:    routing.NewEngine(dir, reg, "+10000000"),
		Calls:     store,
		Steps: Steps{
			GatherPath:  "/webhooks/twilio/gather",
			DefaultPath: "/webhooks/twilio/default",
			StatusPath:  "/webhooks/twilio/status",
		},
	}
	return f, reg, store
}

func TestAnswerCall_GreetsAndCollectsDigit(t *testing.T) {
	f, _, store := newFlow(t)

	ins := f.AnswerCall(context.Background(), "CA1", "+15551234567", "connectiv")
	if len(ins) == 0 {
		t.Fatalf("expected instructions")
	}

	say, ok := ins[0].(Say)
	if !ok || !strings.Contains(say.Text, "Connectiv") {
		t.Fatalf("expected tenant greeting first, got %+v", ins[0])
	}

	var gather *Gather
	var redirect *Redirect
	for _, in := range ins {
		switch v := in.(type) {
		case Gather:
			gather = &v
		case Redirect:
			redirect = &v
		}
	}
	if gather == nil {
		t.Fatalf("expected gather instruction")
	}
	if gather.TimeoutSeconds != DefaultDigitTimeoutSeconds || gather.NumDigits != 1 {
		t.Fatalf("unexpected gather config: %+v", gather)
	}
	if !strings.Contains(gather.Action, "tenant=connectiv") {
		t.Fatalf("gather action must carry tenant: %q", gather.Action)
	}
	if redirect == nil {
		t.Fatalf("expected default-route redirect after gather")
	}

	if rec, ok := store.Get("CA1"); !ok || rec.Status != calls.StatusIncoming {
		t.Fatalf("expected call tracked as incoming, got %+v ok=%v", rec, ok)
	}
}

func TestHandleDigit_NoAgentMeansVoicemailNotError(t *testing.T) {
	f, _, _ := newFlow(t)

	// Caller presses 2 with nobody registered: must be a recording
	// instruction, not a dial and not an error.
	ins := f.HandleDigit(context.Background(), "connectiv", "2")

	var rec *Record
	for _, in := range ins {
		if v, ok := in.(Record); ok {
			rec = &v
		}
		if _, ok := in.(DialAgent); ok {
			t.Fatalf("must not dial with no agent registered")
		}
	}
	if rec == nil {
		t.Fatalf("expected voicemail record instruction, got %+v", ins)
	}
	if rec.MaxSeconds != DefaultVoicemailMaxSeconds || rec.FinishOnKey != "#" {
		t.Fatalf("unexpected record config: %+v", rec)
	}
}

func TestHandleDigit_DialsRegisteredAgent(t *testing.T) {
	f, reg, _ := newFlow(t)
	if err := reg.Register("ext_101", "connectiv", "101"); err != nil {
		t.Fatalf("register: %v", err)
	}

	ins := f.HandleDigit(context.Background(), "connectiv", "1")

	var dial *DialAgent
	for _, in := range ins {
		if v, ok := in.(DialAgent); ok {
			dial = &v
		}
	}
	if dial == nil {
		t.Fatalf("expected dial instruction, got %+v", ins)
	}
	if dial.Identity != "ext_101" {
		t.Fatalf("expected dial to ext_101, got %q", dial.Identity)
	}
	if dial.TimeoutSeconds != DefaultRingTimeoutSeconds {
		t.Fatalf("expected ring timeout %d, got %d", DefaultRingTimeoutSeconds, dial.TimeoutSeconds)
	}
	if dial.StatusCallback == "" {
		t.Fatalf("expected status callback on dial")
	}
}

func TestHandleDigit_UnmappedDigitUsesDefaultExtension(t *testing.T) {
	f, reg, _ := newFlow(t)
	// Default extension for the seed tenant is 101.
	if err := reg.Register("ext_101", "connectiv", "101"); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, digit := range []string{"9", "", "*"} {
		ins := f.HandleDigit(context.Background(), "connectiv", digit)
		var dial *DialAgent
		for _, in := range ins {
			if v, ok := in.(DialAgent); ok {
				dial = &v
			}
		}
		if dial == nil || dial.Identity != "ext_101" {
			t.Fatalf("digit %q: expected default-extension dial to ext_101, got %+v", digit, ins)
		}
	}
}

func TestHandleDefault_ReentersResolution(t *testing.T) {
	f, reg, _ := newFlow(t)
	if err := reg.Register("ext_101", "connectiv", "101"); err != nil {
		t.Fatalf("register: %v", err)
	}

	ins := f.HandleDefault(context.Background(), "connectiv")
	found := false
	for _, in := range ins {
		if v, ok := in.(DialAgent); ok && v.Identity == "ext_101" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected default route to dial ext_101, got %+v", ins)
	}
}

func TestUnknownTenant_DegradesToApology(t *testing.T) {
	f, _, _ := newFlow(t)

	for _, ins := range [][]Instruction{
		f.AnswerCall(context.Background(), "CA1", "+1555", "ghost"),
		f.HandleDigit(context.Background(), "ghost", "1"),
		f.HandleDefault(context.Background(), "ghost"),
	} {
		if len(ins) == 0 {
			t.Fatalf("call path must always produce instructions")
		}
		if _, ok := ins[len(ins)-1].(Hangup); !ok {
			t.Fatalf("expected apology to end in hangup, got %+v", ins)
		}
	}
}

func TestPlaceOutbound_UsesTenantCallerID(t *testing.T) {
	f, reg, store := newFlow(t)
	if err := reg.Register("ext_101", "connectiv", "101"); err != nil {
		t.Fatalf("register: %v", err)
	}

	ins := f.PlaceOutbound(context.Background(), "CA9", "ext_101", "+15557654321")
	var dial *DialNumber
	for _, in := range ins {
		if v, ok := in.(DialNumber); ok {
			dial = &v
		}
	}
	if dial == nil {
		t.Fatalf("expected dial instruction, got %+v", ins)
	}
	if dial.Number != "+15557654321" {
		t.Fatalf("expected dialed number carried, got %q", dial.Number)
	}
	if dial.CallerID != "+15550100" {
		t.Fatalf("expected tenant caller id, got %q", dial.CallerID)
	}
	if rec, ok := store.Get("CA9"); !ok || rec.TenantID != "connectiv" {
		t.Fatalf("expected outbound call tracked for tenant, got %+v ok=%v", rec, ok)
	}
}

func TestPlaceOutbound_UnregisteredIdentityGetsDefaultCallerID(t *testing.T) {
	f, _, _ := newFlow(t)

	ins := f.PlaceOutbound(context.Background(), "CA9", "stranger", "+15557654321")
	var dial *DialNumber
	for _, in := range ins {
		if v, ok := in.(DialNumber); ok {
			dial = &v
		}
	}
	if dial == nil || dial.CallerID != "+10000000" {
		t.Fatalf("expected default caller id, got %+v", ins)
	}
}

func TestPlaceOutbound_EmptyDestinationApologizes(t *testing.T) {
	f, _, _ := newFlow(t)

	ins := f.PlaceOutbound(context.Background(), "CA9", "ext_101", "")
	if len(ins) == 0 {
		t.Fatalf("call path must always produce instructions")
	}
	if _, ok := ins[len(ins)-1].(Hangup); !ok {
		t.Fatalf("expected apology ending in hangup, got %+v", ins)
	}
}

type stubCap struct {
	admit bool
	err   error
}

func (s stubCap) Acquire(ctx context.Context, tenantID string) (bool, error) { return s.admit, s.err }
func (s stubCap) Release(ctx context.Context, tenantID string) error         { return nil }

func TestAnswerCall_CapDeniedGoesToVoicemail(t *testing.T) {
	f, _, store := newFlow(t)
	f.Caps = stubCap{admit: false}

	ins := f.AnswerCall(context.Background(), "CA1", "+1555", "connectiv")
	var rec bool
	for _, in := range ins {
		if _, ok := in.(Record); ok {
			rec = true
		}
		if _, ok := in.(Gather); ok {
			t.Fatalf("capped call must not reach digit collection")
		}
	}
	if !rec {
		t.Fatalf("expected voicemail for capped call, got %+v", ins)
	}
	if _, ok := store.Get("CA1"); !ok {
		t.Fatalf("capped call should still be tracked")
	}
}

func TestAnswerCall_AdmittedCallHoldsSlot(t *testing.T) {
	f, _, store := newFlow(t)
	f.Caps = stubCap{admit: true}

	f.AnswerCall(context.Background(), "CA1", "+1555", "connectiv")
	if !store.ApplyStatus("CA1", calls.StatusCompleted, 5) {
		t.Fatalf("admitted call must own a slot to return on hangup")
	}
}

func TestAnswerCall_DeniedCallHoldsNoSlot(t *testing.T) {
	f, _, store := newFlow(t)
	f.Caps = stubCap{admit: false}

	f.AnswerCall(context.Background(), "CA1", "+1555", "connectiv")
	if store.ApplyStatus("CA1", calls.StatusCompleted, 5) {
		t.Fatalf("capped call never acquired a slot and must not release one")
	}
}

func TestAnswerCall_CapErrorHoldsNoSlot(t *testing.T) {
	f, _, store := newFlow(t)
	f.Caps = stubCap{err: errors.New("redis down")}

	f.AnswerCall(context.Background(), "CA1", "+1555", "connectiv")
	if store.ApplyStatus("CA1", calls.StatusCompleted, 5) {
		t.Fatalf("call admitted on cap failure must not release a slot")
	}
}

func TestAnswerCall_CapErrorFailsOpen(t *testing.T) {
	f, _, _ := newFlow(t)
	f.Caps = stubCap{err: errors.New("redis down")}

	ins := f.AnswerCall(context.Background(), "CA1", "+1555", "connectiv")
	var gathered bool
	for _, in := range ins {
		if _, ok := in.(Gather); ok {
			gathered = true
		}
	}
	if !gathered {
		t.Fatalf("cap failure must not block the call, got %+v", ins)
	}
}
