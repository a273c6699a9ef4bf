package main

import (
	"callgate/internal/auth"
	"callgate/internal/calls"
	"callgate/internal/httpapi"
	"callgate/internal/ivr"
	"callgate/internal/presence"
	"callgate/internal/rbac"
	"callgate/internal/telephony"
	"callgate/internal/tenant"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	Auth      *auth.Manager
	Directory *tenant.Directory
	Registry  *presence.Registry
	Calls     *calls.Store
	Hub       *presence.Hub
	Flow      *ivr.Flow
	Caps      ivr.CallCap
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic; handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public).
	// NOTE: these should be protected by Twilio signature validation in production.
	{
		h := telephony.WebhookHandler{
			Directory: deps.Directory,
			Flow:      deps.Flow,
			Calls:     deps.Calls,
			Caps:      deps.Caps,
		}
		wh := r.Group("/webhooks/twilio")
		wh.POST("/voice", h.HandleVoice)
		wh.POST("/gather", h.HandleGather)
		wh.POST("/default", h.HandleDefault)
		wh.POST("/outbound", h.HandleOutbound)
		wh.POST("/status", h.HandleStatus)
	}

	api := httpapi.Handlers{
		Auth:      deps.Auth,
		Directory: deps.Directory,
		Registry:  deps.Registry,
		Calls:     deps.Calls,
		Hub:       deps.Hub,
	}

	// Session issuance is the login analog for agent clients; the rest of
	// the surface requires the issued access token.
	r.POST("/v1/sessions", api.IssueSession)

	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(deps.Auth))
	v1.Use(rbac.RequireTenant())
	{
		v1.DELETE("/sessions/:identity", api.EndSession)

		v1.PUT("/extensions/availability",
			rbac.RequireAnyRole(rbac.RoleSupervisor, rbac.RoleAdmin),
			api.SetAvailability)

		v1.GET("/tenants/:tenant_id/extensions", api.ListExtensions)
		v1.GET("/agents", api.ListAgents)
		v1.GET("/agents/stream", api.StreamAgents)
		v1.GET("/status", api.Status)
	}
}
