package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupRouter(role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/", JWTAuthMiddleware())
	if role != "" {
		group.Use(RequireRole(role))
	}
	group.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetUsername(c), "role": GetRole(c)})
	})
	return r
}

func doRequest(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMissingAuthHeader(t *testing.T) {
	r := setupRouter("")
	if w := doRequest(r, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestInvalidToken(t *testing.T) {
	r := setupRouter("")
	if w := doRequest(r, "not-a-jwt"); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestValidToken(t *testing.T) {
	token, err := GenerateToken("alice", RoleSender)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	r := setupRouter("")
	if w := doRequest(r, token); w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	senderToken, _ := GenerateToken("alice", RoleSender)
	adminToken, _ := GenerateToken("root", RoleAdmin)

	r := setupRouter(RoleAdmin)
	if w := doRequest(r, senderToken); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for sender on admin route, got %d", w.Code)
	}
	if w := doRequest(r, adminToken); w.Code != http.StatusOK {
		t.Errorf("Expected 200 for admin, got %d", w.Code)
	}

	// Admins pass sender routes too.
	r = setupRouter(RoleSender)
	if w := doRequest(r, adminToken); w.Code != http.StatusOK {
		t.Errorf("Expected admin to pass sender routes, got %d", w.Code)
	}
}
