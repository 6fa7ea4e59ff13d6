package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pawhaven/pet-adoption-api/internal/models"
	"github.com/pawhaven/pet-adoption-api/internal/store"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, hashedPw string, role models.Role) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users  UserStore
	tokens *TokenIssuer
	log    zerolog.Logger
}

func NewHandler(users UserStore, tokens *TokenIssuer, log zerolog.Logger) *Handler {
	return &Handler{users: users, tokens: tokens, log: log}
}

type authResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type loginData struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Register creates a new user account. The email's UNIQUE constraint is what
// rejects duplicates; roles outside the closed set default to "user".
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{Message: "invalid request body"})
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, authResponse{Message: "name, email, and password are required"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, authResponse{Message: "Server error"})
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Name, req.Email, string(hashed), models.ParseRole(req.Role))
	if errors.Is(err, store.ErrDuplicate) {
		writeJSON(w, http.StatusConflict, authResponse{Message: "User already exists"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("register failed")
		writeJSON(w, http.StatusInternalServerError, authResponse{Message: "Server error"})
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Message: fmt.Sprintf("%s registered successfully", user.Role),
	})
}

// Login verifies credentials and issues a signed bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{Message: "invalid request body"})
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusUnauthorized, authResponse{Message: "Invalid credentials"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("login lookup failed")
		writeJSON(w, http.StatusInternalServerError, authResponse{Message: "Server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, authResponse{Message: "Invalid credentials"})
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		h.log.Error().Err(err).Msg("token issue failed")
		writeJSON(w, http.StatusInternalServerError, authResponse{Message: "Server error"})
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Login successful",
		Data:    loginData{Token: token, User: user},
	})
}
