package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DevFusionist/dilse/internal/app"
	"github.com/DevFusionist/dilse/internal/domain"
)

// AccountService is the minimal interface needed for the auth endpoints.
type AccountService interface {
	Register(ctx context.Context, in app.RegisterInput) (domain.User, string, error)
	Login(ctx context.Context, email, password string) (domain.User, string, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
}

// HandleRegister returns the handler for account creation.
func HandleRegister(svc AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req app.RegisterInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		user, token, err := svc.Register(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrEmailTaken):
				writeError(w, http.StatusConflict, codeEmailTaken, "email already registered")
			case errors.Is(err, domain.ErrInvalidCredentials):
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "email and password are required")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, sessionResponse{
			Token: token,
			User:  userResponse{ID: user.ID, Name: user.Name, Email: user.Email},
		})
	}
}

// HandleLogin returns the handler for credential login.
func HandleLogin(svc AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		user, token, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "invalid email or password")
				return
			}
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, sessionResponse{
			Token: token,
			User:  userResponse{ID: user.ID, Name: user.Name, Email: user.Email},
		})
	}
}

// HandleMe returns the handler for the authenticated account lookup.
// Mounted behind Authenticated.
func HandleMe(svc AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			return
		}

		user, err := svc.GetUser(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "unknown account")
				return
			}
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Name: user.Name, Email: user.Email})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
