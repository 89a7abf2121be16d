package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"vmestego-backend/internal/models"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, salt := HashPassword("Secret123")
	if hash == "" || salt == "" {
		t.Fatal("empty hash or salt")
	}
	if !VerifyPassword(hash, salt, "Secret123") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, salt, "secret123") {
		t.Fatal("wrong password accepted")
	}

	hash2, salt2 := HashPassword("Secret123")
	if salt2 == salt || hash2 == hash {
		t.Fatal("salts must differ between calls")
	}
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	raw, err := tokens.Generate(42, "alice", models.RoleAdmin)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	id, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id.UserID != 42 || id.Username != "alice" || !id.IsAdmin() {
		t.Fatalf("identity = %+v", id)
	}
}

func TestTokensRejectExpired(t *testing.T) {
	tokens := NewTokens("test-secret", time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }
	raw, err := tokens.Generate(1, "bob", models.RoleUser)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	tokens.now = time.Now
	if _, err := tokens.Parse(raw); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestTokensRejectUnknownRole(t *testing.T) {
	claims := Claims{
		Username: "mallory",
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "5",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokens("test-secret", time.Hour).Parse(raw); err == nil {
		t.Fatal("lowercase role must not parse")
	}
}

func TestTokensRejectWrongSecret(t *testing.T) {
	raw, _ := NewTokens("one", time.Hour).Generate(1, "bob", models.RoleUser)
	if _, err := NewTokens("two", time.Hour).Parse(raw); err == nil {
		t.Fatal("expected signature failure")
	}
}

func newRouter(tokens *Tokens, mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", mw, func(c *gin.Context) {
		id, ok := FromContext(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok, "id": id.UserID})
	})
	return r
}

func TestRequiredMiddleware(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	r := newRouter(tokens, Required(tokens))
	valid, _ := tokens.Generate(9, "carol", models.RoleUser)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "no bearer prefix", header: valid, want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + valid, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestOptionalMiddlewareAllowsAnonymous(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	r := newRouter(tokens, Optional(tokens))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer broken")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := w.Body.String(); body != `{"authenticated":false,"id":0}` {
		t.Fatalf("body = %s", body)
	}
}
