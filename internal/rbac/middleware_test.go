package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"callgate/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveWithIdentity(t *testing.T, identity, tenantID, role string, allowed ...string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), identity, tenantID, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, RequireTenant(), RequireAnyRole(allowed...), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	if code := serveWithIdentity(t, "ext_101", "connectiv", RoleAdmin, RoleSupervisor); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_AllowedRolePasses(t *testing.T) {
	if code := serveWithIdentity(t, "ext_101", "connectiv", RoleSupervisor, RoleSupervisor); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_DisallowedRoleForbidden(t *testing.T) {
	if code := serveWithIdentity(t, "ext_101", "connectiv", RoleAgent, RoleSupervisor); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireTenant_MissingTenantUnauthorized(t *testing.T) {
	if code := serveWithIdentity(t, "ext_101", "", RoleAgent, RoleAgent); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireAnyRole_MissingRoleUnauthorized(t *testing.T) {
	if code := serveWithIdentity(t, "ext_101", "connectiv", "", RoleAgent); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}
