package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/taskmaster/internal/auth"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f *fakeVerifier) Verify(token string) (*auth.Claims, error) {
	return f.claims, f.err
}

type fakeResolver struct {
	users map[string]user.User
}

func (f *fakeResolver) GetByID(ctx context.Context, id string) (user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func protectedRouter(m *middlewares.AuthMiddleware) *gin.Engine {
	r := gin.New()
	r.GET("/protected", m.RequireAuth(), func(c *gin.Context) {
		u, _ := middlewares.UserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": u.ID})
	})
	return r
}

func doAuth(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	knownID := uuid.NewString()
	resolver := &fakeResolver{users: map[string]user.User{
		knownID: {ID: knownID, Email: "ann@x.com"},
	}}

	tests := []struct {
		name       string
		header     string
		verifier   *fakeVerifier
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no_header",
			header:     "",
			verifier:   &fakeVerifier{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "no_token",
		},
		{
			name:       "wrong_scheme",
			header:     "Basic abc123",
			verifier:   &fakeVerifier{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "no_token",
		},
		{
			name:       "empty_bearer",
			header:     "Bearer ",
			verifier:   &fakeVerifier{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "no_token",
		},
		{
			name:       "expired_token",
			header:     "Bearer some-token",
			verifier:   &fakeVerifier{err: auth.ErrExpired},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "token_expired",
		},
		{
			name:       "invalid_token",
			header:     "Bearer some-token",
			verifier:   &fakeVerifier{err: auth.ErrInvalid},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "token_invalid",
		},
		{
			name:       "other_verification_failure",
			header:     "Bearer some-token",
			verifier:   &fakeVerifier{err: errors.New("boom")},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "token_failed",
		},
		{
			name:       "token_for_deleted_user",
			header:     "Bearer some-token",
			verifier:   &fakeVerifier{claims: &auth.Claims{UserID: uuid.NewString()}},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "user_not_found",
		},
		{
			name:       "success",
			header:     "Bearer some-token",
			verifier:   &fakeVerifier{claims: &auth.Claims{UserID: knownID}},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			m := middlewares.NewAuthMiddleware(tt.verifier, resolver)
			r := protectedRouter(m)

			w := doAuth(r, tt.header)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantCode != "" && !containsCode(w.Body.String(), tt.wantCode) {
				t.Fatalf("body %s does not carry code %q", w.Body.String(), tt.wantCode)
			}
		})
	}
}

func containsCode(body, code string) bool {
	return strings.Contains(body, `"code":"`+code+`"`)
}
