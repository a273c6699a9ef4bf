package httpapi

import (
	"errors"
	"net/http"
	"time"

	"callgate/internal/auth"
	"callgate/internal/calls"
	"callgate/internal/presence"
	"callgate/internal/rbac"
	"callgate/internal/tenant"

	"github.com/gin-gonic/gin"
)

// Handlers groups the administrative HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal modules, return JSON.
//
// Unlike the webhook surface, this surface reports errors directly to its
// caller as structured 4xx responses.
type Handlers struct {
	Auth      *auth.Manager
	Directory *tenant.Directory
	Registry  *presence.Registry
	Calls     *calls.Store
	Hub       *presence.Hub
}

// --- Sessions ---

type issueSessionRequest struct {
	Identity  string `json:"identity"`
	TenantID  string `json:"tenant_id"`
	Extension string `json:"extension"`
	Role      string `json:"role,omitempty"`
}

// IssueSession registers an agent session and returns its credentials.
// Re-issuing for a connected identity replaces the prior session.
func (h Handlers) IssueSession(c *gin.Context) {
	var req issueSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Identity == "" || req.TenantID == "" || req.Extension == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "identity, tenant_id, extension required"})
		return
	}
	role := req.Role
	if role == "" {
		role = rbac.RoleAgent
	}

	if err := h.Registry.Register(req.Identity, req.TenantID, req.Extension); err != nil {
		writeRegistryError(c, err)
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), req.Identity, req.TenantID, role)
	if err != nil {
		// Keep registry and credentials consistent: a session the client
		// can never authenticate with should not linger.
		h.Registry.Unregister(req.Identity)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "credential issuance failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"identity":      req.Identity,
		"tenant_id":     req.TenantID,
		"extension":     req.Extension,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// EndSession unregisters an agent session. Removing an absent session
// succeeds; unregister is a no-op then.
func (h Handlers) EndSession(c *gin.Context) {
	identity := c.Param("identity")
	if identity == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "identity required"})
		return
	}
	h.Registry.Unregister(identity)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Availability ---

type setAvailabilityRequest struct {
	TenantID  string `json:"tenant_id"`
	Extension string `json:"extension"`
	Available *bool  `json:"available"`
}

func (h Handlers) SetAvailability(c *gin.Context) {
	var req setAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.TenantID == "" || req.Extension == "" || req.Available == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "tenant_id, extension, available required"})
		return
	}

	if err := h.Registry.SetAvailability(req.TenantID, req.Extension, *req.Available); err != nil {
		writeRegistryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Queries ---

func (h Handlers) ListExtensions(c *gin.Context) {
	id := c.Param("tenant_id")
	cfg, ok := h.Directory.Get(id)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown tenant"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant_id": cfg.ID, "extensions": cfg.Extensions})
}

// ListAgents returns the caller's tenant sessions; admin callers see all.
func (h Handlers) ListAgents(c *gin.Context) {
	role, _ := auth.Role(c.Request.Context())
	snapshot := h.Registry.Snapshot()

	if !rbac.IsAdmin(role) {
		tid, err := auth.TenantID(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
			return
		}
		scoped := make([]presence.Session, 0, len(snapshot))
		for _, s := range snapshot {
			if s.TenantID == tid {
				scoped = append(scoped, s)
			}
		}
		snapshot = scoped
	}

	c.JSON(http.StatusOK, gin.H{"agents": snapshot})
}

// Status summarizes gateway health for operators.
func (h Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active_sessions":    h.Registry.Len(),
		"tracked_calls":      h.Calls.Len(),
		"sessions_by_tenant": h.Registry.CountByTenant(),
	})
}

func writeRegistryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, presence.ErrInvalidTenant):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown tenant"})
	case errors.Is(err, presence.ErrUnknownExtension):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown extension"})
	case errors.Is(err, presence.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
