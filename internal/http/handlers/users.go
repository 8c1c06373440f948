package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/geocoder89/taskmaster/internal/security"
	"github.com/gin-gonic/gin"
)

// bcrypt hash of "password", compared against on unknown-email logins.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type TokenIssuer interface {
	Generate(userID string) (string, error)
}

type UsersHandler struct {
	users UserStore
	jwt   TokenIssuer
}

func NewUsersHandler(users UserStore, jwt TokenIssuer) *UsersHandler {
	return &UsersHandler{
		users: users,
		jwt:   jwt,
	}
}

// Register creates the account and signs the caller in with the same
// response shape as Login.
func (h *UsersHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.users.Create(cctx, req.Name, req.Email, hash)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	token, err := h.jwt.Generate(u.ID)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  u,
	})
}

func (h *UsersHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// unknown email and wrong password answer identically so account
	// existence never leaks
	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// burn a compare so the not-found path costs the same as a
			// wrong password
			_ = security.CheckPassword(dummyPasswordHash, req.Password)
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}

		RespondInternal(ctx, "Could not log in")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	token, err := h.jwt.Generate(foundUser.ID)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  foundUser,
	})
}

// Me echoes the identity the auth gate already resolved; no extra store
// round-trip.
func (h *UsersHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, u)
}

// Logout is a stateless acknowledgment: tokens are not persisted
// server-side, so the client discarding its copy is the whole operation.
func (h *UsersHandler) Logout(ctx *gin.Context) {
	if _, ok := middlewares.UserFromContext(ctx); !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Logout successful. Please clear token client-side.",
	})
}
