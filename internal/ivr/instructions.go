package ivr

// Instruction is one abstract call-control directive. The transport layer
// renders instructions into provider-specific markup; nothing in this
// package knows about that markup.
//
// Every flow entry point returns a non-empty instruction sequence. The
// signaling provider cannot interpret internal errors, so there is no
// error-shaped instruction; failures degrade to Say + Hangup.

type Instruction interface {
	instruction()
}

// Say speaks text to the caller.
type Say struct {
	Text string
}

// Gather collects caller digits and posts them to Action.
type Gather struct {
	TimeoutSeconds int
	NumDigits      int
	Action         string
}

// DialAgent rings a connected agent client session.
type DialAgent struct {
	Identity       string
	TimeoutSeconds int
	CallerID       string
	StatusCallback string
}

// DialNumber dials an external number.
type DialNumber struct {
	Number   string
	CallerID string
	Record   bool
}

// Record captures a voicemail message.
type Record struct {
	MaxSeconds  int
	FinishOnKey string
	Action      string
}

// Redirect transfers control to another flow step.
type Redirect struct {
	URL string
}

// Hangup terminates the call.
type Hangup struct{}

func (Say) instruction()        {}
func (Gather) instruction()     {}
func (DialAgent) instruction()  {}
func (DialNumber) instruction() {}
func (Record) instruction()     {}
func (Redirect) instruction()   {}
func (Hangup) instruction()     {}
