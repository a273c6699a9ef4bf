package telephony

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"callgate/internal/ivr"
)

// TwiML rendering of the abstract instruction set. Built on encoding/xml;
// intentionally avoids any provider SDK dependency.
//
// Only the verbs the IVR actually emits are modeled here.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName   xml.Name `xml:"Gather"`
	NumDigits int      `xml:"numDigits,attr"`
	Timeout   int      `xml:"timeout,attr"`
	Action    string   `xml:"action,attr,omitempty"`
	Method    string   `xml:"method,attr"`
}

type twimlDial struct {
	XMLName  xml.Name `xml:"Dial"`
	Timeout  int      `xml:"timeout,attr,omitempty"`
	CallerID string   `xml:"callerId,attr,omitempty"`
	Record   string   `xml:"record,attr,omitempty"`
	Action   string   `xml:"action,attr,omitempty"`

	Client string `xml:"Client,omitempty"`
	Number string `xml:"Number,omitempty"`
}

type twimlRecord struct {
	XMLName     xml.Name `xml:"Record"`
	MaxLength   int      `xml:"maxLength,attr"`
	FinishOnKey string   `xml:"finishOnKey,attr,omitempty"`
	Action      string   `xml:"action,attr,omitempty"`
}

type twimlRedirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr"`
	URL     string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// RenderTwiML maps an instruction sequence to a TwiML document.
func RenderTwiML(instructions []ivr.Instruction) (string, error) {
	var r twimlResponse
	for _, in := range instructions {
		switch v := in.(type) {
		case ivr.Say:
			r.Verbs = append(r.Verbs, twimlSay{Text: v.Text})
		case ivr.Gather:
			r.Verbs = append(r.Verbs, twimlGather{
				NumDigits: v.NumDigits,
				Timeout:   v.TimeoutSeconds,
				Action:    v.Action,
				Method:    "POST",
			})
		case ivr.DialAgent:
			r.Verbs = append(r.Verbs, twimlDial{
				Timeout:  v.TimeoutSeconds,
				CallerID: v.CallerID,
				Action:   v.StatusCallback,
				Client:   v.Identity,
			})
		case ivr.DialNumber:
			d := twimlDial{CallerID: v.CallerID, Number: v.Number}
			if v.Record {
				d.Record = "record-from-answer"
			}
			r.Verbs = append(r.Verbs, d)
		case ivr.Record:
			r.Verbs = append(r.Verbs, twimlRecord{
				MaxLength:   v.MaxSeconds,
				FinishOnKey: v.FinishOnKey,
				Action:      v.Action,
			})
		case ivr.Redirect:
			r.Verbs = append(r.Verbs, twimlRedirect{Method: "POST", URL: v.URL})
		case ivr.Hangup:
			r.Verbs = append(r.Verbs, twimlHangup{})
		default:
			return "", fmt.Errorf("telephony: unrenderable instruction %T", in)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// EmptyTwiML acknowledges an event without issuing instructions. Used for
// status callbacks, which expect a valid document but no verbs.
func EmptyTwiML() string {
	return xml.Header + "<Response></Response>"
}
