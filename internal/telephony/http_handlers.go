package telephony

import (
	"net/http"

	"callgate/internal/calls"
	"callgate/internal/ivr"
	"callgate/internal/tenant"
	"callgate/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandler adapts provider webhooks to the IVR flow and renders the
// resulting instructions as TwiML.
//
// Contract for every handler here: the response is always HTTP 200 with a
// valid TwiML document. The signaling provider cannot interpret raw
// internal errors, so any failure degrades to the apology sequence.
type WebhookHandler struct {
	Directory *tenant.Directory
	Flow      *ivr.Flow
	Calls     *calls.Store
	Caps      ivr.CallCap
}

// HandleVoice answers a new inbound call. The tenant is resolved from the
// dialed number; an unknown number still gets a spoken response.
func (h WebhookHandler) HandleVoice(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseVoice(c.Request)
	if err != nil {
		log.Warn("voice webhook parse failed", "err", err)
		h.write(c, h.Flow.Apology())
		return
	}

	cfg, ok := h.Directory.ByNumber(form.To)
	if !ok {
		log.Warn("inbound call for unknown number", "to", form.To, "call_sid", form.CallSid)
		h.write(c, h.Flow.Apology())
		return
	}

	log.Info("inbound call", "call_sid", form.CallSid, "tenant_id", cfg.ID, "from", form.From)
	h.write(c, h.Flow.AnswerCall(c.Request.Context(), form.CallSid, form.From, cfg.ID))
}

// HandleGather receives the digit the caller pressed. Empty digits (gather
// timeout) resolve through the same total menu mapping.
func (h WebhookHandler) HandleGather(c *gin.Context) {
	log := logger.FromGin(c)
	tenantID := c.Query("tenant")

	form, err := ParseGather(c.Request)
	if err != nil {
		log.Warn("gather webhook parse failed", "err", err)
		h.write(c, h.Flow.Apology())
		return
	}

	log.Info("digit received", "call_sid", form.CallSid, "tenant_id", tenantID, "digit", form.Digits)
	h.write(c, h.Flow.HandleDigit(c.Request.Context(), tenantID, form.Digits))
}

// HandleDefault is hit when the caller never completed digit collection.
func (h WebhookHandler) HandleDefault(c *gin.Context) {
	tenantID := c.Query("tenant")
	h.write(c, h.Flow.HandleDefault(c.Request.Context(), tenantID))
}

// HandleOutbound places an agent-originated call to an external number.
func (h WebhookHandler) HandleOutbound(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseOutbound(c.Request)
	if err != nil {
		log.Warn("outbound webhook parse failed", "err", err)
		h.write(c, h.Flow.Apology())
		return
	}

	log.Info("outbound call", "call_sid", form.CallSid, "identity", form.Identity, "to", form.To)
	h.write(c, h.Flow.PlaceOutbound(c.Request.Context(), form.CallSid, form.Identity, form.To))
}

// HandleStatus applies a lifecycle status callback. Unknown call ids and
// unknown status strings are silent no-ops; the provider may report calls
// this process never observed.
//
// The store decides, under its own lock, whether this callback is the one
// terminal transition that must return the call's concurrency slot. Calls
// that never acquired a slot (cap-denied inbound, agent outbound) never
// trigger a release.
func (h WebhookHandler) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseStatus(c.Request)
	if err != nil {
		log.Warn("status webhook parse failed", "err", err)
		h.writeEmpty(c)
		return
	}

	status, known := calls.ParseStatus(form.CallStatus)
	if !known {
		log.Debug("ignoring unknown call status", "call_sid", form.CallSid, "status", form.CallStatus)
		h.writeEmpty(c)
		return
	}

	if release := h.Calls.ApplyStatus(form.CallSid, status, form.DurationSeconds); release && h.Caps != nil {
		if rec, ok := h.Calls.Get(form.CallSid); ok {
			if err := h.Caps.Release(c.Request.Context(), rec.TenantID); err != nil {
				log.Warn("call cap release failed", "tenant_id", rec.TenantID, "err", err)
			}
		}
	}
	h.writeEmpty(c)
}

// apologyTwiML is the last-resort response when even rendering fails.
const apologyTwiML = `<?xml version="1.0" encoding="UTF-8"?>
<Response><Say>We are sorry, we are unable to take your call right now. Please try again later.</Say><Hangup></Hangup></Response>`

func (h WebhookHandler) write(c *gin.Context, instructions []ivr.Instruction) {
	doc, err := RenderTwiML(instructions)
	if err != nil {
		logger.FromGin(c).Error("twiml render failed", "err", err)
		doc = apologyTwiML
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, doc)
}

func (h WebhookHandler) writeEmpty(c *gin.Context) {
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, EmptyTwiML())
}
