package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"bitbucket.org/mmdatafocus/royalties_backend/utils"
	"github.com/gin-gonic/gin"
)

func opsRouter(sessionIsAdmin bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if sessionIsAdmin {
		r.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(utils.SetIsAdminInContext(c.Request.Context(), true))
			c.Next()
		})
	}
	internal := r.Group("/internal", AuthMiddleware(), RequireJwtOrAdmin())
	internal.GET("/ops/ping", func(c *gin.Context) {
		if claim := CtxValue(c.Request.Context()); claim != nil {
			c.JSON(http.StatusOK, gin.H{"caller": "service", "role": claim.Role})
			return
		}
		c.JSON(http.StatusOK, gin.H{"caller": "session"})
	})
	return r
}

func opsRequest(t *testing.T, r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/internal/ops/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInternalOps_ServiceJwtAdmitted(t *testing.T) {
	t.Setenv("TOKEN_HOUR_LIFESPAN", "1")
	token, err := utils.JwtGenerate(42, "ADMIN")
	if err != nil {
		t.Fatalf("generate jwt: %v", err)
	}
	w := opsRequest(t, opsRouter(false), "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestInternalOps_AdminSessionAdmitted(t *testing.T) {
	w := opsRequest(t, opsRouter(true), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestInternalOps_Rejections(t *testing.T) {
	cases := []struct {
		name          string
		authorization string
	}{
		{"no credentials", ""},
		{"malformed scheme", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := opsRequest(t, opsRouter(false), tc.authorization)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}
