package telephony

import (
	"net/http"
	"strconv"
	"strings"
)

// Twilio posts webhook events as application/x-www-form-urlencoded.
// These forms capture only the fields the gateway reads; everything else
// in the payload is ignored.
//
// Parsing only; no routing decisions are made in this file.

// VoiceForm is the initial inbound-call event.
type VoiceForm struct {
	CallSid    string
	AccountSid string
	From       string
	To         string
	Direction  string
	CallStatus string
}

// GatherForm carries the digits collected from the caller. Digits is empty
// when the caller pressed nothing before the timeout.
type GatherForm struct {
	CallSid string
	Digits  string
}

// OutboundForm is an agent-client-originated call event. From carries the
// client identity ("client:ext_101" on the wire); To is the dialed number.
type OutboundForm struct {
	CallSid  string
	Identity string
	To       string
}

// StatusForm is a call lifecycle status callback.
type StatusForm struct {
	CallSid         string
	CallStatus      string
	DurationSeconds int
}

func ParseVoice(r *http.Request) (VoiceForm, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceForm{}, err
	}
	return VoiceForm{
		CallSid:    r.PostFormValue("CallSid"),
		AccountSid: r.PostFormValue("AccountSid"),
		From:       normalizePhone(r.PostFormValue("From")),
		To:         normalizePhone(r.PostFormValue("To")),
		Direction:  r.PostFormValue("Direction"),
		CallStatus: r.PostFormValue("CallStatus"),
	}, nil
}

func ParseGather(r *http.Request) (GatherForm, error) {
	if err := r.ParseForm(); err != nil {
		return GatherForm{}, err
	}
	return GatherForm{
		CallSid: r.PostFormValue("CallSid"),
		Digits:  strings.TrimSpace(r.PostFormValue("Digits")),
	}, nil
}

func ParseOutbound(r *http.Request) (OutboundForm, error) {
	if err := r.ParseForm(); err != nil {
		return OutboundForm{}, err
	}
	return OutboundForm{
		CallSid:  r.PostFormValue("CallSid"),
		Identity: strings.TrimPrefix(strings.TrimSpace(r.PostFormValue("From")), "client:"),
		To:       normalizePhone(r.PostFormValue("To")),
	}, nil
}

func ParseStatus(r *http.Request) (StatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return StatusForm{}, err
	}
	f := StatusForm{
		CallSid:    r.PostFormValue("CallSid"),
		CallStatus: r.PostFormValue("CallStatus"),
	}
	// Dial action callbacks report the dial leg result separately; it is
	// the more specific signal when present.
	if s := r.PostFormValue("DialCallStatus"); s != "" {
		f.CallStatus = s
	}
	// Twilio reports duration in whole seconds; DialCallDuration is set on
	// dial action callbacks, CallDuration on call-level callbacks.
	raw := r.PostFormValue("CallDuration")
	if raw == "" {
		raw = r.PostFormValue("DialCallDuration")
	}
	if raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			f.DurationSeconds = n
		}
	}
	return f, nil
}

func normalizePhone(s string) string {
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return strings.TrimSpace(s)
}
