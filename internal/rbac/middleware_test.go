package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"callbridge/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveAs(role string, chain ...gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handlers := append([]gin.HandlerFunc{func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u", role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}}, chain...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(200) })
	r.GET("/x", handlers...)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	if code := serveAs(RoleAdmin, RequireAnyRole(RoleUser)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_DeniesUnlistedRole(t *testing.T) {
	if code := serveAs("intern", RequireAnyRole(RoleUser)); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_MissingRoleIsUnauthorized(t *testing.T) {
	if code := serveAs("", RequireAnyRole(RoleUser)); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireAdmin(t *testing.T) {
	if code := serveAs(RoleAdmin, RequireAdmin()); code != 200 {
		t.Fatalf("expected 200 for admin, got %d", code)
	}
	if code := serveAs(RoleUser, RequireAdmin()); code != 403 {
		t.Fatalf("expected 403 for user, got %d", code)
	}
}
