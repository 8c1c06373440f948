package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/http/handlers"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/geocoder89/taskmaster/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake implementations of the handlers.UserStore and TokenIssuer interfaces

type fakeUserStore struct {
	createFn     func(ctx context.Context, name, email, passwordHash string) (user.User, error)
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
}

func (f *fakeUserStore) Create(ctx context.Context, name, email, passwordHash string) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, name, email, passwordHash)
	}
	return user.User{}, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

type fakeTokenIssuer struct {
	generateFn func(userID string) (string, error)
}

func (f *fakeTokenIssuer) Generate(userID string) (string, error) {
	if f.generateFn != nil {
		return f.generateFn(userID)
	}
	return "test-token", nil
}

// small helper function which returns the gin engine to mount one handler per test

func setupRouter(method, path string, h gin.HandlerFunc, mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	chain := append(mw, h)
	r.Handle(method, path, chain...)

	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func injectUser(u user.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		middlewares.AttachUser(c, u)
		c.Next()
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		storeSetUp     func(*fakeUserStore)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{"name":"Ann","email":"ann@x.com","password":"secret1"}`,
			storeSetUp: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, name, email, passwordHash string) (user.User, error) {
					if passwordHash == "secret1" {
						t.Fatal("plaintext password reached the store")
					}
					return user.User{ID: uuid.NewString(), Name: name, Email: email}, nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "short_password",
			body:           `{"name":"Ann","email":"ann@x.com","password":"12345"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "bad_email",
			body:           `{"name":"Ann","email":"not-an-email","password":"secret1"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "missing_name",
			body:           `{"email":"ann@x.com","password":"secret1"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "duplicate_email",
			body: `{"name":"Ann","email":"ann@x.com","password":"secret1"}`,
			storeSetUp: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, name, email, passwordHash string) (user.User, error) {
					return user.User{}, user.ErrEmailTaken
				}
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name: "store_error",
			body: `{"name":"Ann","email":"ann@x.com","password":"secret1"}`,
			storeSetUp: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, name, email, passwordHash string) (user.User, error) {
					return user.User{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUserStore{}

			if tt.storeSetUp != nil {
				tt.storeSetUp(store)
			}

			h := handlers.NewUsersHandler(store, &fakeTokenIssuer{})
			r := setupRouter(http.MethodPost, "/users/register", h.Register)

			w := doJSON(r, http.MethodPost, "/users/register", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusCreated {
				var resp struct {
					Token string    `json:"token"`
					User  user.User `json:"user"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if resp.Token == "" {
					t.Fatal("expected a token in the register response")
				}
			}
		})
	}
}

func TestLogin(t *testing.T) {
	hash, err := security.HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	known := user.User{
		ID:           uuid.NewString(),
		Email:        "ann@x.com",
		Name:         "Ann",
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	store := &fakeUserStore{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			if email == known.Email {
				return known, nil
			}
			return user.User{}, user.ErrNotFound
		},
	}

	h := handlers.NewUsersHandler(store, &fakeTokenIssuer{})
	r := setupRouter(http.MethodPost, "/users/login", h.Login)

	t.Run("success", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/users/login", `{"email":"ann@x.com","password":"secret1"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
		}

		if bytes.Contains(w.Body.Bytes(), []byte(hash)) {
			t.Fatal("password hash leaked in login response")
		}
	})

	// unknown email and wrong password must be indistinguishable
	t.Run("no_account_existence_leak", func(t *testing.T) {
		wrongPwd := doJSON(r, http.MethodPost, "/users/login", `{"email":"ann@x.com","password":"nope123"}`)
		unknown := doJSON(r, http.MethodPost, "/users/login", `{"email":"ghost@x.com","password":"secret1"}`)

		if wrongPwd.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
			t.Fatalf("got statuses %d and %d, want both 401", wrongPwd.Code, unknown.Code)
		}

		if wrongPwd.Body.String() != unknown.Body.String() {
			t.Fatalf("responses differ:\n%s\n%s", wrongPwd.Body.String(), unknown.Body.String())
		}
	})

	// only a credential mismatch is 401; a broken store is not
	t.Run("store_outage_is_internal_error", func(t *testing.T) {
		broken := &fakeUserStore{
			getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
				return user.User{}, errors.New("connection refused")
			},
		}
		h := handlers.NewUsersHandler(broken, &fakeTokenIssuer{})
		r := setupRouter(http.MethodPost, "/users/login", h.Login)

		w := doJSON(r, http.MethodPost, "/users/login", `{"email":"ann@x.com","password":"secret1"}`)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("got status %d, want 500, body=%s", w.Code, w.Body.String())
		}
		if bytes.Contains(w.Body.Bytes(), []byte("invalid_credentials")) {
			t.Fatalf("store failure disguised as a credential error: %s", w.Body.String())
		}
	})

	t.Run("missing_password", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/users/login", `{"email":"ann@x.com"}`)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, want 400", w.Code)
		}
	})
}

func TestMe(t *testing.T) {
	u := user.User{ID: uuid.NewString(), Email: "ann@x.com", Name: "Ann"}

	h := handlers.NewUsersHandler(&fakeUserStore{}, &fakeTokenIssuer{})
	r := setupRouter(http.MethodGet, "/users/me", h.Me, injectUser(u))

	w := doJSON(r, http.MethodGet, "/users/me", "")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var got user.User
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.ID != u.ID || got.Email != u.Email {
		t.Fatalf("got %+v, want identity %+v", got, u)
	}
}

func TestLogout(t *testing.T) {
	u := user.User{ID: uuid.NewString(), Email: "ann@x.com"}

	h := handlers.NewUsersHandler(&fakeUserStore{}, &fakeTokenIssuer{})

	t.Run("authenticated_ack", func(t *testing.T) {
		r := setupRouter(http.MethodPost, "/users/logout", h.Logout, injectUser(u))
		w := doJSON(r, http.MethodPost, "/users/logout", "")

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, want 200", w.Code)
		}
	})

	t.Run("no_identity", func(t *testing.T) {
		r := setupRouter(http.MethodPost, "/users/logout", h.Logout)
		w := doJSON(r, http.MethodPost, "/users/logout", "")

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("got status %d, want 401", w.Code)
		}
	})
}
