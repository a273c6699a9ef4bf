package telephony

import (
	"strings"
	"testing"

	"callgate/internal/ivr"
)

func TestRenderTwiML_DialAgent(t *testing.T) {
	doc, err := RenderTwiML([]ivr.Instruction{
		ivr.Say{Text: "Connecting you to Sales."},
		ivr.DialAgent{
			Identity:       "ext_101",
			TimeoutSeconds: 30,
			CallerID:       "+15550100",
			StatusCallback: "/webhooks/twilio/status",
		},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{
		"<Say>Connecting you to Sales.</Say>",
		"<Client>ext_101</Client>",
		`timeout="30"`,
		`callerId="+15550100"`,
		`action="/webhooks/twilio/status"`,
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("expected %q in twiml:\n%s", want, doc)
		}
	}
}

func TestRenderTwiML_Voicemail(t *testing.T) {
	doc, err := RenderTwiML([]ivr.Instruction{
		ivr.Say{Text: "Please leave a message."},
		ivr.Record{MaxSeconds: 60, FinishOnKey: "#"},
		ivr.Hangup{},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{`maxLength="60"`, `finishOnKey="#"`, "<Hangup"} {
		if !strings.Contains(doc, want) {
			t.Fatalf("expected %q in twiml:\n%s", want, doc)
		}
	}
}

func TestRenderTwiML_GatherAndRedirect(t *testing.T) {
	doc, err := RenderTwiML([]ivr.Instruction{
		ivr.Gather{TimeoutSeconds: 10, NumDigits: 1, Action: "/webhooks/twilio/gather?tenant=connectiv"},
		ivr.Redirect{URL: "/webhooks/twilio/default?tenant=connectiv"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{
		`numDigits="1"`,
		`timeout="10"`,
		`method="POST"`,
		"<Redirect",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("expected %q in twiml:\n%s", want, doc)
		}
	}
}

func TestRenderTwiML_DialNumberRecording(t *testing.T) {
	doc, err := RenderTwiML([]ivr.Instruction{
		ivr.DialNumber{Number: "+15557654321", CallerID: "+15550100", Record: true},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(doc, "<Number>+15557654321</Number>") {
		t.Fatalf("expected number in twiml:\n%s", doc)
	}
	if !strings.Contains(doc, `record="record-from-answer"`) {
		t.Fatalf("expected record attr in twiml:\n%s", doc)
	}
}

func TestEmptyTwiML(t *testing.T) {
	doc := EmptyTwiML()
	if !strings.Contains(doc, "<Response></Response>") {
		t.Fatalf("expected empty response document, got %q", doc)
	}
}
