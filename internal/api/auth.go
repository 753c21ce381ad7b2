package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/peakfin/peakfin/internal/audit"
	"github.com/peakfin/peakfin/internal/storage"
)

type ctxKey int

const userIDKey ctxKey = iota

type RegisterRequest struct {
	Email            string  `json:"email"`
	Password         string  `json:"password"`
	FullName         string  `json:"full_name"`
	MonthlyNetIncome float64 `json:"monthly_net_income"`
	RiskTolerance    string  `json:"risk_tolerance"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func handleRegister(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" || !strings.Contains(email, "@") {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "a valid email is required")
			return
		}
		if len(req.Password) < 8 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "password must be at least 8 characters")
			return
		}
		if req.MonthlyNetIncome < 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "monthly_net_income must not be negative")
			return
		}
		if req.RiskTolerance == "" {
			req.RiskTolerance = "moderate"
		}
		switch req.RiskTolerance {
		case "low", "moderate", "high":
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "risk_tolerance must be one of low, moderate, high")
			return
		}

		if _, err := deps.Store.GetUserByEmail(email); err == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "email already registered")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), deps.BcryptCost)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to hash password: %v", err)
			return
		}

		user := storage.User{
			ID:               uuid.New().String(),
			Email:            email,
			PasswordHash:     string(hash),
			FullName:         req.FullName,
			MonthlyNetIncome: req.MonthlyNetIncome,
			RiskTolerance:    req.RiskTolerance,
			CreatedAt:        time.Now().UTC(),
		}
		if err := deps.Store.CreateUser(user); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create user: %v", err)
			return
		}

		rec := audit.Record{UserRef: user.ID, Action: audit.ActionUserRegistered}
		if err := deps.Store.WriteAudit(r.Context(), rec); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "writing audit record: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(user)
	}
}

func handleLogin(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		user, err := deps.Store.GetUserByEmail(email)
		if err != nil {
			// Same answer for unknown email and wrong password.
			httpError(w, http.StatusUnauthorized, "authentication_error", "invalid email or password")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			httpError(w, http.StatusUnauthorized, "authentication_error", "invalid email or password")
			return
		}

		now := time.Now().UTC()
		sess := storage.Session{
			Token:     uuid.New().String(),
			UserID:    user.ID,
			ExpiresAt: now.Add(deps.SessionTTL),
			CreatedAt: now,
		}
		if err := deps.Store.CreateSession(sess); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create session: %v", err)
			return
		}

		rec := audit.Record{UserRef: user.ID, Action: audit.ActionUserLogin}
		if err := deps.Store.WriteAudit(r.Context(), rec); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "writing audit record: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: sess.Token,
			ExpiresAt:   sess.ExpiresAt,
		})
	}
}

// SessionAuth resolves the bearer token to a live session and stores the
// user ID in the request context. Tokens are random UUIDs looked up by
// equality; expiry is checked here, not in the store.
func SessionAuth(store *storage.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				httpError(w, http.StatusUnauthorized, "authentication_error", "Not authenticated")
				return
			}

			sess, err := store.GetSession(auth[len(prefix):])
			if err != nil || time.Now().UTC().After(sess.ExpiresAt) {
				httpError(w, http.StatusUnauthorized, "authentication_error", "Invalid authentication credentials")
				return
			}
			if _, err := store.GetUser(sess.UserID); err != nil {
				httpError(w, http.StatusUnauthorized, "authentication_error", "User not found")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, sess.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userID returns the authenticated user set by SessionAuth.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
